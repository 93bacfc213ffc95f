package engine

import (
	"github.com/roach88/chr/internal/ir"
	"github.com/roach88/chr/internal/store"
)

// activation is one constraint being processed by the worklist strategy.
//
// The active constraint is NOT in the store while its activation is on the
// agenda. It is inserted when the activation is popped, unless a rule
// consumed it.
type activation struct {
	entry   store.Entry
	key     string          // structural key of entry.Constraint
	next    int             // index of the next rule to try
	pending []ir.Constraint // products waiting to be introduced, in body order
	dropped bool            // consumed by a firing
	dirty   bool            // fired and survived during the current sweep (exhaustive mode)
}

// done reports whether the activation has nothing left to do.
func (a *activation) done(rules int) bool {
	return len(a.pending) == 0 && (a.dropped || a.next >= rules)
}

// agenda is the LIFO stack of activations.
//
// The top activation is always the one being worked on. Introducing a
// product pushes a new activation, so products are processed depth-first
// before their parent continues with its next rule.
//
// The agenda also indexes the structural keys of its live (not dropped)
// activations. Together with the store this is the set of live constraints.
//
// Not safe for concurrent use: only the engine's run loop touches it.
type agenda struct {
	stack []*activation
	live  map[string]*activation
}

// newAgenda creates an empty agenda.
func newAgenda() *agenda {
	return &agenda{
		stack: make([]*activation, 0, 16),
		live:  make(map[string]*activation),
	}
}

// Push adds an activation on top of the stack.
func (a *agenda) Push(act *activation) {
	if act.key == "" {
		act.key = act.entry.Constraint.Key()
	}
	a.stack = append(a.stack, act)
	if !act.dropped {
		a.live[act.key] = act
	}
}

// Top returns the activation on top of the stack.
func (a *agenda) Top() (*activation, bool) {
	if len(a.stack) == 0 {
		return nil, false
	}
	return a.stack[len(a.stack)-1], true
}

// Pop removes and returns the activation on top of the stack.
func (a *agenda) Pop() (*activation, bool) {
	if len(a.stack) == 0 {
		return nil, false
	}
	top := a.stack[len(a.stack)-1]
	a.stack[len(a.stack)-1] = nil
	a.stack = a.stack[:len(a.stack)-1]
	a.release(top)
	return top, true
}

// Drop marks act as consumed. Its constraint stops being live at once,
// although the activation stays on the stack until its products drain.
func (a *agenda) Drop(act *activation) {
	act.dropped = true
	a.release(act)
}

// Holds reports whether a live activation carries a constraint
// structurally identical to c.
func (a *agenda) Holds(c ir.Constraint) bool {
	_, ok := a.live[c.Key()]
	return ok
}

// Len returns the number of activations on the stack.
func (a *agenda) Len() int {
	return len(a.stack)
}

func (a *agenda) release(act *activation) {
	if a.live[act.key] == act {
		delete(a.live, act.key)
	}
}
