// Package ir provides the term model for the CHR engine.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the term model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - numbers are int64 (Int)
//   - Store constraints are always ground (Constraint holds Values only)
//   - Patterns (Term) and expressions (Expr) are sealed interfaces so the
//     matcher and evaluator can switch on them exhaustively
//   - Structural identity of a constraint is its canonical key (canonical.go),
//     never Go's == on the struct
package ir
