// Package testutil provides builders and fixture programs for tests.
//
// Fixtures are built directly in the ir term model so engine tests do not
// depend on the compiler.
package testutil

import (
	"fmt"

	"github.com/roach88/chr/internal/ir"
)

// V is a pattern variable.
func V(name string) ir.Term { return ir.Var{Name: name} }

// K is a pattern constant: int values become ir.Int, strings ir.Atom.
func K(v any) ir.Term { return ir.Const{Value: Val(v)} }

// W is the wildcard.
func W() ir.Term { return ir.Wildcard{} }

// P builds a head pattern.
func P(functor string, args ...ir.Term) ir.Pattern {
	return ir.Pattern{Functor: functor, Args: args}
}

// R is a variable reference in a guard or body expression.
func R(name string) ir.Expr { return ir.VarRef{Name: name} }

// L is a literal in a guard or body expression.
func L(v any) ir.Expr { return ir.Lit{Value: Val(v)} }

// B builds a binary expression.
func B(op ir.BinaryOp, l, r ir.Expr) ir.Expr {
	return ir.Binary{Op: op, L: l, R: r}
}

// Test builds a boolean guard.
func Test(e ir.Expr) ir.Guard { return ir.Guard{Kind: ir.GuardTest, Expr: e} }

// Bind builds a computed binding guard.
func Bind(name string, e ir.Expr) ir.Guard {
	return ir.Guard{Kind: ir.GuardBind, Var: name, Expr: e}
}

// T builds a body term.
func T(functor string, args ...ir.Expr) ir.BodyTerm {
	return ir.BodyTerm{Functor: functor, Args: args}
}

// C builds a ground constraint: int arguments become ir.Int, strings ir.Atom.
func C(functor string, args ...any) ir.Constraint {
	vals := make([]ir.Value, len(args))
	for i, a := range args {
		vals[i] = Val(a)
	}
	return ir.NewConstraint(functor, vals...)
}

// Val converts a Go literal to an ir.Value.
func Val(v any) ir.Value {
	switch x := v.(type) {
	case int:
		return ir.Int(x)
	case int64:
		return ir.Int(x)
	case string:
		return ir.Atom(x)
	case ir.Value:
		return x
	default:
		panic(fmt.Sprintf("testutil: unsupported literal %T", v))
	}
}

// CountingRules counts from 0 up to N:
//
//	start @ upto(N) <=> count(0, N)
//	step  @ count(I, N) <=> I < N | count(I + 1, N)
//	done  @ count(I, N) <=> I >= N | counted(I)
func CountingRules() []ir.Rule {
	return []ir.Rule{
		{
			Name:    "start",
			Removed: []ir.Pattern{P("upto", V("N"))},
			Body:    []ir.BodyTerm{T("count", L(0), R("N"))},
		},
		{
			Name:    "step",
			Removed: []ir.Pattern{P("count", V("I"), V("N"))},
			Guards:  []ir.Guard{Test(B(ir.OpLt, R("I"), R("N")))},
			Body:    []ir.BodyTerm{T("count", B(ir.OpAdd, R("I"), L(1)), R("N"))},
		},
		{
			Name:    "done",
			Removed: []ir.Pattern{P("count", V("I"), V("N"))},
			Guards:  []ir.Guard{Test(B(ir.OpGe, R("I"), R("N")))},
			Body:    []ir.BodyTerm{T("counted", R("I"))},
		},
	}
}

// SieveRules generates the primes up to N:
//
//	gen  @ upto(N) <=> N > 1 | upto(N - 1), prime(N)
//	stop @ upto(N) <=> N =< 1 | true
//	sift @ prime(X), prime(Y) <=> Y > X, Y % X == 0 | prime(X)
func SieveRules() []ir.Rule {
	return []ir.Rule{
		{
			Name:    "gen",
			Removed: []ir.Pattern{P("upto", V("N"))},
			Guards:  []ir.Guard{Test(B(ir.OpGt, R("N"), L(1)))},
			Body: []ir.BodyTerm{
				T("upto", B(ir.OpSub, R("N"), L(1))),
				T("prime", R("N")),
			},
		},
		{
			Name:    "stop",
			Removed: []ir.Pattern{P("upto", V("N"))},
			Guards:  []ir.Guard{Test(B(ir.OpLe, R("N"), L(1)))},
			Body:    []ir.BodyTerm{T(ir.TrueFunctor)},
		},
		{
			Name:    "sift",
			Removed: []ir.Pattern{P("prime", V("X")), P("prime", V("Y"))},
			Guards: []ir.Guard{
				Test(B(ir.OpGt, R("Y"), R("X"))),
				Test(B(ir.OpEq, B(ir.OpMod, R("Y"), R("X")), L(0))),
			},
			Body: []ir.BodyTerm{T("prime", R("X"))},
		},
	}
}

// GCDRules computes the greatest common divisor with a simpagation rule:
//
//	zero @ gcd(0) <=> true
//	reduce @ gcd(N) \ gcd(M) <=> N =< M | gcd(M - N)
func GCDRules() []ir.Rule {
	return []ir.Rule{
		{
			Name:    "zero",
			Removed: []ir.Pattern{P("gcd", K(0))},
			Body:    []ir.BodyTerm{T(ir.TrueFunctor)},
		},
		{
			Name:    "reduce",
			Kept:    []ir.Pattern{P("gcd", V("N"))},
			Removed: []ir.Pattern{P("gcd", V("M"))},
			Guards:  []ir.Guard{Test(B(ir.OpLe, R("N"), R("M")))},
			Body:    []ir.BodyTerm{T("gcd", B(ir.OpSub, R("M"), R("N")))},
		},
	}
}
