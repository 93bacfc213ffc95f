// Package engine implements the CHR matching and firing engine.
//
// The engine is the heart of chr: it owns the constraint store for the
// duration of a run, matches rules against it, fires them, and drives the
// store to a fixpoint.
//
// ARCHITECTURE:
//
// Matcher (matcher.go):
// A backtracking equi-join over the rule's head patterns, exposed as a lazy
// iter.Seq2[Match, error]. Heads are joined left to right in declaration
// order; guards run once all heads are assigned. Search state is an explicit
// branch value (bound, used, kept, removed), never shared between siblings.
//
// Firer (firer.go):
// Instantiates the body under the match's bindings, then removes every
// removed-head entry exactly once. The body is evaluated before anything is
// removed, so a failing firing leaves the store untouched.
//
// Scheduler (engine.go, agenda.go):
//   - worklist (default): each new constraint becomes the active constraint
//     on a LIFO agenda and is offered to every rule in declaration order;
//     products are introduced depth-first before the parent continues;
//     an activation ends only after a sweep of the rules in which nothing
//     fired
//   - batch: passes over the whole rule set until a pass fires nothing
//
// CRITICAL PATTERNS:
//
// Single Writer:
// A run executes on one goroutine. The store is mutated only by the firer,
// between match enumerations, so no match ever observes a partially applied
// firing.
//
// Set Semantics:
// Introducing or inserting a constraint structurally identical to a live
// one is a no-op. Live means in the store or active on the agenda and not
// yet consumed.
//
// Deterministic Scheduling:
// Rules are tried in declaration order, candidates oldest first, facts in
// reverse declaration order. No randomness, no concurrency. The same
// program and facts always produce the same firings.
//
// Termination:
// The engine performs no termination analysis. A rule set with an infinite
// chain of unconditional firings does not terminate unless WithMaxSteps is
// set or the context is cancelled.
package engine
