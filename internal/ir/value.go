package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a sealed interface representing a ground constraint argument.
// Only Int and Atom implement this.
// NO float values - arithmetic is integer-only for determinism.
type Value interface {
	value() // Sealed - only these types implement it
	String() string
}

// Int represents an integer value.
// Always int64, never float64.
type Int int64

func (Int) value() {}

// String renders the integer in base 10.
func (i Int) String() string {
	return strconv.FormatInt(int64(i), 10)
}

// Atom represents a symbolic constant (lowercase identifier or any
// non-numeric token in a fact file).
type Atom string

func (Atom) value() {}

// String returns the atom text unchanged.
func (a Atom) String() string {
	return string(a)
}

// ParseValue converts a literal token to a Value.
// Tokens that parse as base-10 integers become Int, everything else Atom.
func ParseValue(tok string) Value {
	tok = strings.TrimSpace(tok)
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return Int(n)
	}
	return Atom(tok)
}

// Equal reports whether two values are structurally identical.
// Values of different kinds are never equal (Int(1) != Atom("1")).
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Atom:
		bv, ok := b.(Atom)
		return ok && av == bv
	default:
		return false
	}
}

// Compare orders two values of the same kind.
// Ints compare numerically, Atoms lexicographically.
// Comparing values of different kinds is an error.
func Compare(a, b Value) (int, error) {
	switch av := a.(type) {
	case Int:
		bv, ok := b.(Int)
		if !ok {
			return 0, fmt.Errorf("cannot compare %s with %s", Describe(a), Describe(b))
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	case Atom:
		bv, ok := b.(Atom)
		if !ok {
			return 0, fmt.Errorf("cannot compare %s with %s", Describe(a), Describe(b))
		}
		return strings.Compare(string(av), string(bv)), nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", a)
	}
}

// Describe renders a value with its kind, for error messages.
func Describe(v Value) string {
	switch val := v.(type) {
	case Int:
		return fmt.Sprintf("int %d", int64(val))
	case Atom:
		return fmt.Sprintf("atom %q", string(val))
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%T", v)
	}
}
