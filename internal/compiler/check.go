package compiler

import (
	"fmt"

	"github.com/roach88/chr/internal/ir"
)

// resolve turns parsed syntax into an ir.Rule.
//
// It decides which `V = e` guards bind (V not yet bound) and which test
// equality, and enforces the rule invariants: at least one head, every
// guard and body variable bound by a head or an earlier bind guard, and
// every expression well typed.
func resolve(rs *ruleSyntax, source string) (ir.Rule, error) {
	errAt := func(col int, code, format string, args ...any) *CompileError {
		return &CompileError{
			Code:    code,
			Message: fmt.Sprintf(format, args...),
			Source:  source,
			Line:    rs.line,
			Column:  col,
		}
	}

	rule := ir.Rule{Name: rs.name, Kept: rs.kept, Removed: rs.removed}
	if len(rule.Kept) == 0 && len(rule.Removed) == 0 {
		return ir.Rule{}, errAt(rs.col, ErrNoHeads, "rule %s has no head constraints", ruleLabel(rs))
	}

	bound := make(map[string]bool)
	for _, p := range rule.Heads() {
		for _, v := range p.Pattern.Vars() {
			bound[v] = true
		}
	}

	checkVars := func(col int, e ir.Expr, where string) *CompileError {
		for _, v := range ir.FreeVars(e) {
			if !bound[v] {
				return errAt(col, ErrUnboundVariable,
					"variable %s in %s of rule %s is not bound by a head or an earlier guard", v, where, ruleLabel(rs))
			}
		}
		return nil
	}

	for _, g := range rs.guards {
		switch {
		case g.assign != "" && !bound[g.assign]:
			if err := checkVars(g.col, g.rhs, "guard"); err != nil {
				return ir.Rule{}, err
			}
			if err := expectType(g.rhs, ir.TypeValue); err != nil {
				return ir.Rule{}, errAt(g.col, ErrTypeMismatch, "guard %s = %s: %v", g.assign, g.rhs, err)
			}
			rule.Guards = append(rule.Guards, ir.Guard{Kind: ir.GuardBind, Var: g.assign, Expr: g.rhs})
			bound[g.assign] = true

		default:
			e := g.expr
			if g.assign != "" {
				e = ir.Binary{Op: ir.OpEq, L: ir.VarRef{Name: g.assign}, R: g.rhs}
			}
			if err := checkVars(g.col, e, "guard"); err != nil {
				return ir.Rule{}, err
			}
			if err := expectType(e, ir.TypeBool); err != nil {
				return ir.Rule{}, errAt(g.col, ErrTypeMismatch, "guard %s: %v", e, err)
			}
			rule.Guards = append(rule.Guards, ir.Guard{Kind: ir.GuardTest, Expr: e})
		}
	}

	for _, b := range rs.body {
		switch b.term.Functor {
		case ir.TrueFunctor, ir.FalseFunctor, ir.FailFunctor:
			if len(b.term.Args) > 0 {
				return ir.Rule{}, errAt(b.col, ErrSentinelArgs, "%s takes no arguments", b.term.Functor)
			}
		}
		for _, a := range b.term.Args {
			if err := checkVars(b.col, a, "body"); err != nil {
				return ir.Rule{}, err
			}
			if err := expectType(a, ir.TypeValue); err != nil {
				return ir.Rule{}, errAt(b.col, ErrTypeMismatch, "body term %s: %v", b.term, err)
			}
		}
		rule.Body = append(rule.Body, b.term)
	}

	return rule, nil
}

func ruleLabel(rs *ruleSyntax) string {
	if rs.name != "" {
		return rs.name
	}
	return fmt.Sprintf("on line %d", rs.line)
}

// expectType checks e bottom-up and requires the given result type.
func expectType(e ir.Expr, want ir.ExprType) error {
	got, err := typeOf(e)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected a %s expression, got a %s", want, got)
	}
	return nil
}

func typeOf(e ir.Expr) (ir.ExprType, error) {
	switch n := e.(type) {
	case ir.VarRef, ir.Lit:
		return ir.TypeValue, nil

	case ir.Unary:
		want := ir.TypeValue
		if n.Op == ir.OpNot {
			want = ir.TypeBool
		}
		if err := expectType(n.X, want); err != nil {
			return 0, fmt.Errorf("operand of %s: %w", n, err)
		}
		return n.Type(), nil

	case ir.Binary:
		want := ir.TypeValue
		if n.Op.IsLogical() {
			want = ir.TypeBool
		}
		if err := expectType(n.L, want); err != nil {
			return 0, fmt.Errorf("left operand of %s: %w", n.Op, err)
		}
		if err := expectType(n.R, want); err != nil {
			return 0, fmt.Errorf("right operand of %s: %w", n.Op, err)
		}
		return n.Type(), nil

	default:
		return 0, fmt.Errorf("unsupported expression %T", e)
	}
}
