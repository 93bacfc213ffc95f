package ir

import "strings"

// Term is a sealed interface for head pattern arguments.
// Only Var, Const and Wildcard implement this.
type Term interface {
	term() // Sealed
	String() string
}

// Var is a named pattern variable. Its scope is a single matching attempt
// of a single rule; it never survives a firing.
type Var struct {
	Name string
}

func (Var) term() {}

// String returns the variable name.
func (v Var) String() string { return v.Name }

// Const is a literal pattern argument that must equal the candidate's value.
type Const struct {
	Value Value
}

func (Const) term() {}

// String renders the literal.
func (c Const) String() string { return c.Value.String() }

// Wildcard (`_`) matches any value and binds nothing.
type Wildcard struct{}

func (Wildcard) term() {}

// String renders the wildcard.
func (Wildcard) String() string { return "_" }

// Pattern is a rule head: a functor and a list of terms.
type Pattern struct {
	Functor string
	Args    []Term
}

// Signature returns the functor/arity pair the pattern matches.
func (p Pattern) Signature() Signature {
	return Signature{Functor: p.Functor, Arity: len(p.Args)}
}

// Vars returns the variable names of the pattern in first-occurrence order.
func (p Pattern) Vars() []string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range p.Args {
		if v, ok := t.(Var); ok && !seen[v.Name] {
			seen[v.Name] = true
			names = append(names, v.Name)
		}
	}
	return names
}

// String renders the pattern in rule syntax.
func (p Pattern) String() string {
	if len(p.Args) == 0 {
		return p.Functor
	}
	args := make([]string, len(p.Args))
	for i, t := range p.Args {
		args[i] = t.String()
	}
	return p.Functor + "(" + strings.Join(args, ", ") + ")"
}
