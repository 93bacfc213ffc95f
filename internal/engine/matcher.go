package engine

import (
	"iter"
	"slices"

	"github.com/roach88/chr/internal/ir"
	"github.com/roach88/chr/internal/store"
)

// Match is one successful head assignment of a rule: a binding environment
// that satisfies every guard, plus the entries matched by kept and removed
// heads (each in head declaration order).
type Match struct {
	Rule     ir.Rule
	Bindings *ir.Bindings
	Kept     []store.Entry
	Removed  []store.Entry
}

// Handles returns the matched entry handles in head order (kept heads,
// then removed heads).
func (m Match) Handles() []store.ID {
	ids := make([]store.ID, 0, len(m.Kept)+len(m.Removed))
	for _, e := range m.Kept {
		ids = append(ids, e.ID)
	}
	for _, e := range m.Removed {
		ids = append(ids, e.ID)
	}
	return ids
}

// Removes reports whether the match consumes the entry with the given ID.
func (m Match) Removes(id store.ID) bool {
	return slices.ContainsFunc(m.Removed, func(e store.Entry) bool {
		return e.ID == id
	})
}

// branch is the state of one search path. Branches are values: extending
// a branch never mutates its parent, so backtracking is just returning.
type branch struct {
	bound   *ir.Bindings
	used    []store.ID    // every entry assigned so far, in head order
	kept    []store.Entry // entries matched by kept heads
	removed []store.Entry // entries matched by removed heads
	active  bool          // the active entry occupies a head slot
}

// Matches enumerates the matches of rule against the store, lazily.
//
// Heads are joined left to right in declaration order (kept heads first,
// then removed heads):
//   - a candidate must have the head's functor and arity
//   - a variable bound by an earlier head must equal the candidate's value
//   - an unbound variable binds for the rest of the branch
//   - no entry is assigned to two heads of the same branch
//
// Guards run left to right once every head is assigned. A failing test
// prunes the branch; a bind guard extends the environment.
//
// When active is non-nil, only assignments that place active in at least
// one head slot are produced. The active entry is not expected to be in the
// store; it is offered first in every compatible slot.
//
// A guard evaluation error is yielded once with a zero Match and ends the
// sequence. Stopping the iteration early has no side effects: matching never
// mutates the store.
func Matches(rule ir.Rule, st *store.Store, active *store.Entry) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		s := &search{
			rule:   rule,
			heads:  rule.Heads(),
			st:     st,
			active: active,
			yield:  yield,
		}
		s.lastActiveSlot = -1
		if active != nil {
			sig := active.Constraint.Signature()
			for i, h := range s.heads {
				if h.Pattern.Signature() == sig {
					s.lastActiveSlot = i
				}
			}
			if s.lastActiveSlot < 0 {
				return
			}
		}
		s.extend(0, branch{})
	}
}

// FirstMatch returns the first match of rule, if any.
func FirstMatch(rule ir.Rule, st *store.Store, active *store.Entry) (Match, bool, error) {
	for m, err := range Matches(rule, st, active) {
		if err != nil {
			return Match{}, false, err
		}
		return m, true, nil
	}
	return Match{}, false, nil
}

type search struct {
	rule           ir.Rule
	heads          []ir.Head
	st             *store.Store
	active         *store.Entry
	lastActiveSlot int
	yield          func(Match, error) bool
}

// extend assigns head i and recurses. Returns false once the consumer
// stops the iteration or an error was yielded.
func (s *search) extend(i int, b branch) bool {
	if i == len(s.heads) {
		return s.complete(b)
	}
	// The active entry can no longer be placed.
	if s.active != nil && !b.active && i > s.lastActiveSlot {
		return true
	}

	head := s.heads[i]
	for _, cand := range s.candidates(head.Pattern.Signature(), b) {
		bound, ok := unify(head.Pattern, cand.Constraint, b.bound)
		if !ok {
			continue
		}
		next := branch{
			bound:   bound,
			used:    append(slices.Clip(b.used), cand.ID),
			kept:    b.kept,
			removed: b.removed,
			active:  b.active || (s.active != nil && cand.ID == s.active.ID),
		}
		if head.Removed {
			next.removed = append(slices.Clip(b.removed), cand)
		} else {
			next.kept = append(slices.Clip(b.kept), cand)
		}
		if !s.extend(i+1, next) {
			return false
		}
	}
	return true
}

// candidates lists the entries head i may try: the active entry first (if
// compatible and not yet placed), then live store entries oldest first.
func (s *search) candidates(sig ir.Signature, b branch) []store.Entry {
	var out []store.Entry
	if s.active != nil && !b.active && s.active.Constraint.Signature() == sig {
		out = append(out, *s.active)
	}
	for _, e := range s.st.Candidates(sig) {
		if s.active != nil && e.ID == s.active.ID {
			continue
		}
		if slices.Contains(b.used, e.ID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// complete evaluates the guards of a fully assigned branch and yields it.
func (s *search) complete(b branch) bool {
	if s.active != nil && !b.active {
		return true
	}
	env := b.bound
	for _, g := range s.rule.Guards {
		switch g.Kind {
		case ir.GuardBind:
			v, err := EvalValue(g.Expr, env)
			if err != nil {
				s.yield(Match{}, NewGuardError(s.rule.Name, g.String(), err))
				return false
			}
			if old, ok := env.Lookup(g.Var); ok {
				if !ir.Equal(old, v) {
					return true
				}
				continue
			}
			env = env.Bind(g.Var, v)
		default:
			ok, err := EvalBool(g.Expr, env)
			if err != nil {
				s.yield(Match{}, NewGuardError(s.rule.Name, g.String(), err))
				return false
			}
			if !ok {
				return true
			}
		}
	}
	return s.yield(Match{
		Rule:     s.rule,
		Bindings: env,
		Kept:     b.kept,
		Removed:  b.removed,
	}, nil)
}

// unify matches a head pattern against a ground constraint, extending the
// environment. Returns false on functor, arity or join mismatch.
func unify(p ir.Pattern, c ir.Constraint, b *ir.Bindings) (*ir.Bindings, bool) {
	if p.Functor != c.Functor || len(p.Args) != len(c.Args) {
		return nil, false
	}
	for i, t := range p.Args {
		arg := c.Args[i]
		switch term := t.(type) {
		case ir.Wildcard:
		case ir.Const:
			if !ir.Equal(term.Value, arg) {
				return nil, false
			}
		case ir.Var:
			if v, ok := b.Lookup(term.Name); ok {
				if !ir.Equal(v, arg) {
					return nil, false
				}
				continue
			}
			b = b.Bind(term.Name, arg)
		default:
			return nil, false
		}
	}
	return b, true
}
