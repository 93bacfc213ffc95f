package ir

import (
	"fmt"
	"strings"
)

// Signature identifies a constraint kind: functor name plus arity.
// Two constraints can only match the same head pattern if their
// signatures are equal.
type Signature struct {
	Functor string
	Arity   int
}

// String renders the signature in name/arity form.
func (s Signature) String() string {
	return fmt.Sprintf("%s/%d", s.Functor, s.Arity)
}

// Constraint is a ground fact: a functor with an ordered list of values.
//
// Constraints in the store are ALWAYS ground - variables only ever appear
// in rule patterns (see Pattern), never here.
type Constraint struct {
	Functor string
	Args    []Value
}

// NewConstraint creates a constraint from a functor and its arguments.
func NewConstraint(functor string, args ...Value) Constraint {
	return Constraint{Functor: functor, Args: args}
}

// Arity returns the number of arguments.
func (c Constraint) Arity() int {
	return len(c.Args)
}

// Signature returns the functor/arity pair of the constraint.
func (c Constraint) Signature() Signature {
	return Signature{Functor: c.Functor, Arity: len(c.Args)}
}

// Equal reports whether two constraints are structurally identical.
func (c Constraint) Equal(o Constraint) bool {
	if c.Functor != o.Functor || len(c.Args) != len(o.Args) {
		return false
	}
	for i := range c.Args {
		if !Equal(c.Args[i], o.Args[i]) {
			return false
		}
	}
	return true
}

// String renders the constraint in fact-file syntax: name(a, b).
// Zero-arity constraints render as the bare functor.
func (c Constraint) String() string {
	if len(c.Args) == 0 {
		return c.Functor
	}
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Functor + "(" + strings.Join(args, ", ") + ")"
}

// Strings renders each constraint with String.
func Strings(cs []Constraint) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
