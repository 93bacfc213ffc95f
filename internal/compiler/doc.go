// Package compiler turns CHR rule text into ir.Rule values.
//
// Three program formats are accepted:
//
//   - inline: one rule per line in the usual CHR syntax
//     [name @] kept \ removed <=> guards | body, or heads ==> guards | body
//   - tabular: name, heads, guards and body in four tab-separated columns
//   - CUE: a rules list of inline strings or structs, plus optional facts
//
// Fact files hold one ground constraint per line.
//
// Compilation fails before any matching: every rule is parsed, its guards
// are classified as tests or computed bindings, and variables and
// expression types are checked. Errors are *CompileError values carrying a
// code and a source position.
package compiler
