package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/chr/internal/ir"
)

// ParseRules compiles inline-grammar rule text, one rule per line.
//
// Blank lines and comment lines are skipped. All errors are collected
// (joined with errors.Join) so a single pass reports every bad line;
// errors.As finds the first *CompileError.
func ParseRules(src, source string) ([]ir.Rule, error) {
	var rules []ir.Rule
	var lines []int
	var errs []error
	for i, line := range strings.Split(src, "\n") {
		if isBlank(line) {
			continue
		}
		r, err := parseRuleLine(line, i+1, source)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, r)
		lines = append(lines, i+1)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := checkProgram(rules, lines, source); err != nil {
		return nil, err
	}
	return rules, nil
}

// ParseRule compiles a single inline-grammar rule.
func ParseRule(text string) (ir.Rule, error) {
	return parseRuleLine(text, 1, "")
}

func parseRuleLine(text string, line int, source string) (ir.Rule, error) {
	p, err := newParser(text, line, source)
	if err != nil {
		return ir.Rule{}, err
	}
	rs, err := p.rule()
	if err != nil {
		return ir.Rule{}, err
	}
	return resolve(rs, source)
}

// checkProgram enforces whole-program invariants: rule names are unique.
// lines holds the source line of each rule, or is nil when unknown.
func checkProgram(rules []ir.Rule, lines []int, source string) error {
	var errs []error
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		if r.Name == "" {
			continue
		}
		if seen[r.Name] {
			errs = append(errs, &CompileError{
				Code:    ErrDuplicateRule,
				Message: fmt.Sprintf("duplicate rule name %q", r.Name),
				Source:  source,
				Line:    lineOf(lines, i),
			})
		}
		seen[r.Name] = true
	}
	return errors.Join(errs...)
}

func lineOf(lines []int, i int) int {
	if i < len(lines) {
		return lines[i]
	}
	return 0
}

// ParseFacts parses a fact file: one ground constraint per line, written
// name(arg, ...) or bare name, with an optional trailing '.'.
func ParseFacts(src, source string) ([]ir.Constraint, error) {
	var facts []ir.Constraint
	var errs []error
	for i, line := range strings.Split(src, "\n") {
		if isBlank(line) {
			continue
		}
		c, err := parseFactLine(line, i+1, source)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		facts = append(facts, c)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return facts, nil
}

// ParseFact parses a single ground constraint.
func ParseFact(text string) (ir.Constraint, error) {
	return parseFactLine(text, 1, "")
}

func parseFactLine(text string, line int, source string) (ir.Constraint, error) {
	p, err := newParser(text, line, source)
	if err != nil {
		return ir.Constraint{}, err
	}
	return p.fact()
}
