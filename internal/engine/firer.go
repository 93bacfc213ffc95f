package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/chr/internal/ir"
	"github.com/roach88/chr/internal/store"
)

// instantiate builds the ground body constraints of a rule under a binding.
//
// The `true` sentinel is dropped. A `false` or `fail` sentinel aborts with
// a rule failure. Arithmetic arguments are evaluated; an evaluation error
// is fatal.
func instantiate(rule ir.Rule, b *ir.Bindings) ([]ir.Constraint, error) {
	out := make([]ir.Constraint, 0, len(rule.Body))
	for _, term := range rule.Body {
		if term.IsTrue() {
			continue
		}
		if term.IsFail() {
			return nil, NewRuleFailure(rule.Name, b.String())
		}
		args := make([]ir.Value, len(term.Args))
		for i, e := range term.Args {
			v, err := EvalValue(e, b)
			if err != nil {
				return nil, NewBodyError(rule.Name, term.String(), err)
			}
			args[i] = v
		}
		out = append(out, ir.NewConstraint(term.Functor, args...))
	}
	return out, nil
}

// fire applies a match to the store. active is the active entry of the
// match (worklist) or nil (batch); every other matched entry must still be
// in the store.
//
// CRITICAL: the body is instantiated BEFORE anything is removed, so a
// failing firing leaves the store exactly as it was. Once instantiation
// succeeds every removed-head entry is deleted exactly once; the active
// entry (not in the store) is consumed by the caller.
//
// The products are returned to the caller, which introduces them
// (worklist) or inserts them (batch). fire never inserts.
func (r *run) fire(ctx context.Context, m Match, active *store.Entry) (Firing, error) {
	if err := r.quota.Check(r.runID); err != nil {
		return Firing{}, err
	}

	for _, e := range slices.Concat(m.Kept, m.Removed) {
		if active != nil && e.ID == active.ID {
			continue
		}
		if !r.st.Has(e.ID) {
			return Firing{}, fmt.Errorf("stale match for rule %s: %s (id %d) is no longer in the store", m.Rule.Name, e, e.ID)
		}
	}

	added, err := instantiate(m.Rule, m.Bindings)
	if err != nil {
		return Firing{}, err
	}

	for _, e := range m.Removed {
		r.st.Remove(e.ID)
	}
	if m.Rule.Kind() == ir.Propagation {
		r.history.Record(m.Rule.Name, m.Handles())
	}

	f := Firing{
		RunID:    r.runID,
		Seq:      r.quota.Current(),
		Rule:     m.Rule.Name,
		Bindings: m.Bindings,
		Kept:     m.Kept,
		Removed:  m.Removed,
		Added:    added,
	}

	r.logger.Debug("rule fired",
		"run", r.runID,
		"seq", f.Seq,
		"rule", f.Rule,
		"bindings", m.Bindings.String(),
		"removed", len(m.Removed),
		"added", ir.Strings(added),
	)

	for _, obs := range r.observers {
		if err := obs.Fired(ctx, f); err != nil {
			return f, fmt.Errorf("observer rejected firing %d of rule %s: %w", f.Seq, f.Rule, err)
		}
	}
	return f, nil
}

// tryRule fires rule (at most once) for the given active entry, or for any
// assignment when active is nil. Propagation matches already in the history
// are skipped.
func (r *run) tryRule(ctx context.Context, rule ir.Rule, active *activation) (Firing, bool, error) {
	var act *store.Entry
	if active != nil {
		act = &active.entry
	}

	for m, err := range Matches(rule, r.st, act) {
		if err != nil {
			return Firing{}, false, err
		}
		if rule.Kind() == ir.Propagation && r.history.Seen(rule.Name, m.Handles()) {
			continue
		}
		f, err := r.fire(ctx, m, act)
		if err != nil {
			return Firing{}, false, err
		}
		if act != nil && m.Removes(act.ID) {
			r.agenda.Drop(active)
		}
		return f, true, nil
	}
	return Firing{}, false, nil
}
