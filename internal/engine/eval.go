package engine

import (
	"fmt"
	"math"

	"github.com/roach88/chr/internal/ir"
)

// EvalValue evaluates a value-typed expression under a binding environment.
//
// Arithmetic is int64 with truncated division. Errors (fatal for the run):
//   - reference to an unbound variable
//   - arithmetic on an atom
//   - division or modulo by zero
//   - int64 overflow
//   - a boolean expression where a value is required
func EvalValue(e ir.Expr, b *ir.Bindings) (ir.Value, error) {
	switch x := e.(type) {
	case ir.Lit:
		return x.Value, nil

	case ir.VarRef:
		v, ok := b.Lookup(x.Name)
		if !ok {
			return nil, fmt.Errorf("unbound variable %s", x.Name)
		}
		return v, nil

	case ir.Unary:
		if x.Op != ir.OpNeg {
			return nil, fmt.Errorf("%s is not a value expression", x)
		}
		v, err := EvalValue(x.X, b)
		if err != nil {
			return nil, err
		}
		n, ok := v.(ir.Int)
		if !ok {
			return nil, fmt.Errorf("cannot negate %s", ir.Describe(v))
		}
		if n == math.MinInt64 {
			return nil, fmt.Errorf("integer overflow: -(%d)", n)
		}
		return -n, nil

	case ir.Binary:
		if !x.Op.IsArithmetic() {
			return nil, fmt.Errorf("%s is not a value expression", x)
		}
		l, err := evalInt(x.L, b, x.Op)
		if err != nil {
			return nil, err
		}
		r, err := evalInt(x.R, b, x.Op)
		if err != nil {
			return nil, err
		}
		return arith(x.Op, l, r)

	default:
		return nil, fmt.Errorf("unsupported expression %T", e)
	}
}

// EvalBool evaluates a boolean-typed expression under a binding environment.
//
// == and != compare any two values structurally (an int never equals an
// atom). Ordering comparisons require two ints or two atoms.
// && and || short-circuit.
func EvalBool(e ir.Expr, b *ir.Bindings) (bool, error) {
	switch x := e.(type) {
	case ir.Unary:
		if x.Op != ir.OpNot {
			return false, fmt.Errorf("%s is not a boolean expression", x)
		}
		v, err := EvalBool(x.X, b)
		if err != nil {
			return false, err
		}
		return !v, nil

	case ir.Binary:
		switch {
		case x.Op.IsLogical():
			l, err := EvalBool(x.L, b)
			if err != nil {
				return false, err
			}
			if x.Op == ir.OpAnd && !l {
				return false, nil
			}
			if x.Op == ir.OpOr && l {
				return true, nil
			}
			return EvalBool(x.R, b)

		case x.Op.IsComparison():
			l, err := EvalValue(x.L, b)
			if err != nil {
				return false, err
			}
			r, err := EvalValue(x.R, b)
			if err != nil {
				return false, err
			}
			return compare(x.Op, l, r)
		}
	}
	return false, fmt.Errorf("%s is not a boolean expression", e)
}

func evalInt(e ir.Expr, b *ir.Bindings, op ir.BinaryOp) (ir.Int, error) {
	v, err := EvalValue(e, b)
	if err != nil {
		return 0, err
	}
	n, ok := v.(ir.Int)
	if !ok {
		return 0, fmt.Errorf("operator %s applied to %s", op, ir.Describe(v))
	}
	return n, nil
}

func arith(op ir.BinaryOp, l, r ir.Int) (ir.Value, error) {
	switch op {
	case ir.OpAdd:
		sum := l + r
		if (r > 0 && sum < l) || (r < 0 && sum > l) {
			return nil, overflow(op, l, r)
		}
		return sum, nil
	case ir.OpSub:
		diff := l - r
		if (r < 0 && diff < l) || (r > 0 && diff > l) {
			return nil, overflow(op, l, r)
		}
		return diff, nil
	case ir.OpMul:
		if l == 0 || r == 0 {
			return ir.Int(0), nil
		}
		prod := l * r
		if prod/r != l || (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
			return nil, overflow(op, l, r)
		}
		return prod, nil
	case ir.OpDiv:
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		if l == math.MinInt64 && r == -1 {
			return nil, overflow(op, l, r)
		}
		return l / r, nil
	case ir.OpMod:
		if r == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return l % r, nil
	}
	return nil, fmt.Errorf("unsupported arithmetic operator %s", op)
}

func overflow(op ir.BinaryOp, l, r ir.Int) error {
	return fmt.Errorf("integer overflow: %d %s %d", l, op, r)
}

func compare(op ir.BinaryOp, l, r ir.Value) (bool, error) {
	switch op {
	case ir.OpEq:
		return ir.Equal(l, r), nil
	case ir.OpNe:
		return !ir.Equal(l, r), nil
	}
	c, err := ir.Compare(l, r)
	if err != nil {
		return false, err
	}
	switch op {
	case ir.OpLt:
		return c < 0, nil
	case ir.OpLe:
		return c <= 0, nil
	case ir.OpGt:
		return c > 0, nil
	case ir.OpGe:
		return c >= 0, nil
	}
	return false, fmt.Errorf("unsupported comparison operator %s", op)
}
