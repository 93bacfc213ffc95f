package engine

import (
	"context"

	"github.com/roach88/chr/internal/ir"
	"github.com/roach88/chr/internal/store"
)

// RunInfo describes a run as it starts.
type RunInfo struct {
	RunID         string
	ProgramHash   string
	Strategy      Strategy
	FireMode      FireMode
	MaxSteps      int
	EngineVersion string
	Facts         []ir.Constraint
}

// Firing is the record of one rule application.
type Firing struct {
	RunID    string
	Seq      int // 1-based position of the firing in the run
	Rule     string
	Bindings *ir.Bindings
	Kept     []store.Entry
	Removed  []store.Entry
	Added    []ir.Constraint // body products in body order, sentinels dropped
}

// Round is a batch round snapshot. Store is most recent first.
type Round struct {
	RunID string
	N     int
	Store []ir.Constraint
}

// RunSummary describes a run as it finishes.
// Err is nil for a run that reached a fixpoint.
type RunSummary struct {
	RunID  string
	Steps  int
	Rounds int
	Store  []ir.Constraint
	Err    error
}

// Observer receives run events synchronously from the engine loop.
//
// An error returned by an observer aborts the run (except from RunFinished,
// whose error is logged). Bindings and entries are immutable and may be
// retained.
type Observer interface {
	RunStarted(ctx context.Context, info RunInfo) error
	Fired(ctx context.Context, f Firing) error
	// RoundCompleted is called by the batch strategy with round 0 after the
	// facts are loaded and with round N after every pass in which a rule fired.
	RoundCompleted(ctx context.Context, r Round) error
	RunFinished(ctx context.Context, summary RunSummary) error
}

// BaseObserver implements Observer with no-ops. Embed it to implement only
// the callbacks you need.
type BaseObserver struct{}

// RunStarted implements Observer.
func (BaseObserver) RunStarted(context.Context, RunInfo) error { return nil }

// Fired implements Observer.
func (BaseObserver) Fired(context.Context, Firing) error { return nil }

// RoundCompleted implements Observer.
func (BaseObserver) RoundCompleted(context.Context, Round) error { return nil }

// RunFinished implements Observer.
func (BaseObserver) RunFinished(context.Context, RunSummary) error { return nil }

// RoundRecorder is an Observer that keeps every batch round snapshot.
// Used by the CLI to print rounds only once the run has succeeded.
type RoundRecorder struct {
	BaseObserver
	Rounds [][]ir.Constraint
}

// RoundCompleted implements Observer.
func (r *RoundRecorder) RoundCompleted(_ context.Context, round Round) error {
	for len(r.Rounds) <= round.N {
		r.Rounds = append(r.Rounds, nil)
	}
	r.Rounds[round.N] = round.Store
	return nil
}
