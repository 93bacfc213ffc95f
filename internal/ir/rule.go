package ir

import (
	"fmt"
	"strings"
)

// Body sentinels. A body term with one of these functors and no arguments
// is never inserted into the store.
const (
	// TrueFunctor is discarded silently: a rule may remove without adding.
	TrueFunctor = "true"
	// FalseFunctor and FailFunctor abort the run with a rule failure.
	FalseFunctor = "false"
	FailFunctor  = "fail"
)

// RuleKind classifies a rule by which heads it keeps and removes.
type RuleKind int

const (
	// Simplification rules remove all their heads (`<=>`).
	Simplification RuleKind = iota + 1
	// Propagation rules keep all their heads (`==>`).
	Propagation
	// Simpagation rules keep some heads and remove others (`k \ r <=>`).
	Simpagation
)

// String names the rule kind.
func (k RuleKind) String() string {
	switch k {
	case Simplification:
		return "simplification"
	case Propagation:
		return "propagation"
	case Simpagation:
		return "simpagation"
	default:
		return fmt.Sprintf("RuleKind(%d)", int(k))
	}
}

// GuardKind distinguishes boolean tests from computed bindings.
type GuardKind int

const (
	// GuardTest is a boolean expression over bound variables.
	GuardTest GuardKind = iota + 1
	// GuardBind evaluates Expr and binds the result to Var. Always succeeds.
	GuardBind
)

// Guard is a side condition evaluated after all heads matched.
type Guard struct {
	Kind GuardKind
	Var  string // GuardBind only
	Expr Expr
}

// String renders the guard in rule syntax.
func (g Guard) String() string {
	if g.Kind == GuardBind {
		return g.Var + " = " + g.Expr.String()
	}
	return g.Expr.String()
}

// BodyTerm is a constraint template instantiated when the rule fires.
// Arguments are expressions so bodies can compute (count(I + 1, N)).
type BodyTerm struct {
	Functor string
	Args    []Expr
}

// IsTrue reports whether the term is the `true` sentinel.
func (b BodyTerm) IsTrue() bool {
	return b.Functor == TrueFunctor && len(b.Args) == 0
}

// IsFail reports whether the term is the `false`/`fail` sentinel.
func (b BodyTerm) IsFail() bool {
	return (b.Functor == FalseFunctor || b.Functor == FailFunctor) && len(b.Args) == 0
}

// String renders the body term in rule syntax.
func (b BodyTerm) String() string {
	if len(b.Args) == 0 {
		return b.Functor
	}
	args := make([]string, len(b.Args))
	for i, a := range b.Args {
		args[i] = a.String()
	}
	return b.Functor + "(" + strings.Join(args, ", ") + ")"
}

// Head is one head slot of a rule in matching order.
type Head struct {
	Pattern Pattern
	Removed bool
}

// Rule is a compiled CHR rule.
//
// INVARIANTS (enforced by the compiler, relied upon by the engine):
//   - Kept and Removed are not both empty
//   - Every variable used in Guards or Body is bound by a head pattern
//     or by an earlier GuardBind
//   - Guard test expressions have TypeBool, everything else TypeValue
type Rule struct {
	Name    string
	Kept    []Pattern
	Removed []Pattern
	Guards  []Guard
	Body    []BodyTerm
}

// Kind derives the rule kind from its heads.
func (r Rule) Kind() RuleKind {
	switch {
	case len(r.Removed) == 0:
		return Propagation
	case len(r.Kept) == 0:
		return Simplification
	default:
		return Simpagation
	}
}

// Heads returns all head slots in matching order: kept heads first, then
// removed heads, each in declaration order.
func (r Rule) Heads() []Head {
	heads := make([]Head, 0, len(r.Kept)+len(r.Removed))
	for _, p := range r.Kept {
		heads = append(heads, Head{Pattern: p})
	}
	for _, p := range r.Removed {
		heads = append(heads, Head{Pattern: p, Removed: true})
	}
	return heads
}

// String renders the rule in the inline grammar.
// The output re-parses to an equivalent rule.
func (r Rule) String() string {
	var sb strings.Builder
	if r.Name != "" {
		sb.WriteString(r.Name)
		sb.WriteString(" @ ")
	}
	switch r.Kind() {
	case Propagation:
		sb.WriteString(joinPatterns(r.Kept))
		sb.WriteString(" ==> ")
	case Simplification:
		sb.WriteString(joinPatterns(r.Removed))
		sb.WriteString(" <=> ")
	default:
		sb.WriteString(joinPatterns(r.Kept))
		sb.WriteString(" \\ ")
		sb.WriteString(joinPatterns(r.Removed))
		sb.WriteString(" <=> ")
	}
	if len(r.Guards) > 0 {
		guards := make([]string, len(r.Guards))
		for i, g := range r.Guards {
			guards[i] = g.String()
		}
		sb.WriteString(strings.Join(guards, ", "))
		sb.WriteString(" | ")
	}
	body := make([]string, len(r.Body))
	for i, b := range r.Body {
		body[i] = b.String()
	}
	if len(body) == 0 {
		body = []string{TrueFunctor}
	}
	sb.WriteString(strings.Join(body, ", "))
	return sb.String()
}

func joinPatterns(ps []Pattern) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

// Program is a loaded rule set plus its optional initial facts.
type Program struct {
	Rules []Rule
	Facts []Constraint
}
