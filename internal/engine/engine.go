package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/chr/internal/ir"
	"github.com/roach88/chr/internal/store"
)

// Engine drives a rule set to a fixpoint.
//
// An Engine is immutable after construction and may run any number of
// times; each Run gets a fresh store, clock, quota and propagation history.
//
// INVARIANTS:
//   - rules slice order NEVER changes after construction (declaration
//     order is the rule trial order)
//   - rule names within rules are unique and non-empty
//   - a run is single-threaded: the store has exactly one writer
type Engine struct {
	rules       []ir.Rule // declaration order
	programHash string
	strategy    Strategy
	mode        FireMode
	maxSteps    int // <= 0 means unlimited
	observers   []Observer
	logger      *slog.Logger
	runIDs      RunIDGenerator
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithStrategy selects the scheduling strategy (default: worklist).
func WithStrategy(s Strategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}

// WithFireMode selects first-success or exhaustive firing (default: first).
func WithFireMode(m FireMode) Option {
	return func(e *Engine) {
		e.mode = m
	}
}

// WithMaxSteps sets the maximum number of firings per run.
//
// Default: 0 (unlimited). The engine performs no termination analysis, so
// a non-terminating rule set runs forever unless a quota is set or the
// context is cancelled.
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithObserver registers an observer. Observers are notified in
// registration order.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithLogger sets the structured logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRunIDGenerator sets the run ID source (default: UUIDv7Generator).
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// New creates an Engine for the given rules.
//
// The rules slice must be in declaration order. It is copied to prevent
// external mutation from breaking the trial order. Unnamed rules are named
// rule_N (1-based position).
//
// Returns an error for duplicate rule names, a rule without heads, or an
// invalid strategy or fire mode.
func New(rules []ir.Rule, opts ...Option) (*Engine, error) {
	e := &Engine{
		rules:    slices.Clone(rules),
		strategy: StrategyWorklist,
		mode:     FireFirst,
		logger:   slog.Default(),
		runIDs:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	if e.strategy, err = ParseStrategy(string(e.strategy)); err != nil {
		return nil, err
	}
	if e.mode, err = ParseFireMode(string(e.mode)); err != nil {
		return nil, err
	}

	seen := make(map[string]int, len(e.rules))
	for i := range e.rules {
		r := &e.rules[i]
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule_%d", i+1)
		}
		if prev, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("duplicate rule name %q (rules %d and %d)", r.Name, prev+1, i+1)
		}
		seen[r.Name] = i
		if len(r.Kept) == 0 && len(r.Removed) == 0 {
			return nil, fmt.Errorf("rule %q has no heads", r.Name)
		}
	}
	e.programHash = ir.ProgramHash(e.rules)
	return e, nil
}

// Rules returns a copy of the engine's rules in declaration order.
func (e *Engine) Rules() []ir.Rule {
	return slices.Clone(e.rules)
}

// ProgramHash identifies the rule set (see ir.ProgramHash).
func (e *Engine) ProgramHash() string {
	return e.programHash
}

// Strategy returns the configured scheduling strategy.
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// FireMode returns the configured fire mode.
func (e *Engine) FireMode() FireMode {
	return e.mode
}

// Result is the outcome of a run that reached a fixpoint.
type Result struct {
	RunID  string
	Store  []ir.Constraint // final store, most recent first
	Steps  int             // number of firings
	Rounds int             // dirty passes (batch strategy only)
}

// run is the per-run state. It is created by Run and never shared.
type run struct {
	*Engine
	runID   string
	st      *store.Store
	clock   *Clock
	quota   *QuotaEnforcer
	history *PropagationHistory
	agenda  *agenda
	rounds  int
}

func (e *Engine) newRun() *run {
	return &run{
		Engine:  e,
		runID:   e.runIDs.Generate(),
		st:      store.New(),
		clock:   NewClock(),
		quota:   NewQuotaEnforcer(e.maxSteps),
		history: NewPropagationHistory(),
		agenda:  newAgenda(),
	}
}

// Run drives the facts to a fixpoint and returns the final store.
//
// Facts are introduced in reverse declaration order, so the most-recent-first
// final listing shows surviving facts in declaration order. A fact
// structurally identical to a live constraint is a no-op.
//
// Run blocks until the fixpoint is reached, a fatal error occurs, or ctx is
// cancelled (checked between steps). On any error no result is returned:
// there is no partial store.
func (e *Engine) Run(ctx context.Context, facts []ir.Constraint) (*Result, error) {
	r := e.newRun()

	e.logger.Info("run starting",
		"run", r.runID,
		"strategy", e.strategy,
		"mode", e.mode,
		"rules", len(e.rules),
		"facts", len(facts),
	)

	info := RunInfo{
		RunID:         r.runID,
		ProgramHash:   e.programHash,
		Strategy:      e.strategy,
		FireMode:      e.mode,
		MaxSteps:      e.maxSteps,
		EngineVersion: ir.EngineVersion,
		Facts:         slices.Clone(facts),
	}
	for _, obs := range e.observers {
		if err := obs.RunStarted(ctx, info); err != nil {
			return nil, fmt.Errorf("observer rejected run %s: %w", r.runID, err)
		}
	}

	var err error
	switch e.strategy {
	case StrategyBatch:
		err = r.batch(ctx, facts)
	default:
		err = r.worklist(ctx, facts)
	}
	err = withRunID(err, r.runID)

	summary := RunSummary{
		RunID:  r.runID,
		Steps:  r.quota.Current(),
		Rounds: r.rounds,
		Err:    err,
	}
	if err == nil {
		summary.Store = r.st.Constraints()
	}
	for _, obs := range e.observers {
		if ferr := obs.RunFinished(ctx, summary); ferr != nil {
			e.logger.Warn("observer failed to record run end", "run", r.runID, "error", ferr)
		}
	}

	if err != nil {
		e.logger.Info("run failed", "run", r.runID, "steps", summary.Steps, "error", err)
		return nil, err
	}

	e.logger.Info("run finished",
		"run", r.runID,
		"steps", summary.Steps,
		"rounds", summary.Rounds,
		"store", len(summary.Store),
	)
	return &Result{
		RunID:  r.runID,
		Store:  summary.Store,
		Steps:  summary.Steps,
		Rounds: summary.Rounds,
	}, nil
}

// worklist runs the canonical strategy.
//
// Each fact is introduced and the agenda drained before the next fact.
// For the activation on top of the agenda:
//  1. pending products are introduced first, in body order (depth-first)
//  2. once finished, the activation is popped and its constraint inserted
//     unless consumed
//  3. otherwise the next rule is tried with the active constraint
//
// In first mode a firing that leaves the active constraint alive sends it
// back to the first rule once its products are processed. In exhaustive mode
// the same rule is retried until it no longer fires, and a sweep in which
// anything fired is followed by another. Either way an activation finishes
// only after a full sweep of the rules in which nothing fired.
func (r *run) worklist(ctx context.Context, facts []ir.Constraint) error {
	for i := len(facts) - 1; i >= 0; i-- {
		r.introduce(facts[i])
		if err := r.drain(ctx); err != nil {
			return err
		}
	}
	return nil
}

// introduce pushes an activation for c, unless a structurally identical
// constraint is already live: in the store or active on the agenda.
func (r *run) introduce(c ir.Constraint) {
	if e, ok := r.st.Lookup(c); ok {
		r.logger.Debug("constraint already in store", "run", r.runID, "constraint", c.String(), "id", e.ID)
		return
	}
	if r.agenda.Holds(c) {
		r.logger.Debug("constraint already active", "run", r.runID, "constraint", c.String())
		return
	}
	r.agenda.Push(&activation{
		entry: store.Entry{ID: r.clock.NextID(), Constraint: c},
	})
}

func (r *run) drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run %s cancelled: %w", r.runID, err)
		}
		act, ok := r.agenda.Top()
		if !ok {
			return nil
		}

		if len(act.pending) > 0 {
			next := act.pending[0]
			act.pending = act.pending[1:]
			r.introduce(next)
			continue
		}

		if act.dirty && !act.dropped && act.next >= len(r.rules) {
			act.next, act.dirty = 0, false
		}

		if act.done(len(r.rules)) {
			r.agenda.Pop()
			if !act.dropped && !r.st.Insert(act.entry) {
				r.logger.Debug("duplicate constraint not stored", "run", r.runID, "constraint", act.entry.String())
			}
			continue
		}

		f, fired, err := r.tryRule(ctx, r.rules[act.next], act)
		if err != nil {
			return err
		}
		if !fired {
			act.next++
			continue
		}
		act.pending = append(act.pending, f.Added...)
		switch {
		case act.dropped:
			// finished once its products drain
		case r.mode == FireExhaustive:
			act.dirty = true
		default:
			act.next = 0
		}
	}
}

// batch runs the alternative strategy: load every fact, then pass over the
// rule set until a pass fires nothing. Products go straight into the store.
func (r *run) batch(ctx context.Context, facts []ir.Constraint) error {
	for i := len(facts) - 1; i >= 0; i-- {
		r.add(facts[i])
	}
	if err := r.roundCompleted(ctx); err != nil {
		return err
	}

	for {
		dirty := false
		for _, rule := range r.rules {
			for {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("run %s cancelled: %w", r.runID, err)
				}
				f, fired, err := r.tryRule(ctx, rule, nil)
				if err != nil {
					return err
				}
				if !fired {
					break
				}
				dirty = true
				for _, c := range f.Added {
					r.add(c)
				}
				if r.mode == FireFirst {
					break
				}
			}
		}
		if !dirty {
			return nil
		}
		r.rounds++
		if err := r.roundCompleted(ctx); err != nil {
			return err
		}
	}
}

// add inserts c directly into the store (batch strategy).
func (r *run) add(c ir.Constraint) {
	if r.st.Contains(c) {
		return
	}
	r.st.Insert(store.Entry{ID: r.clock.NextID(), Constraint: c})
}

func (r *run) roundCompleted(ctx context.Context) error {
	snapshot := r.st.Constraints()
	r.logger.Debug("round completed", "run", r.runID, "round", r.rounds, "store", len(snapshot))
	for _, obs := range r.observers {
		if err := obs.RoundCompleted(ctx, Round{RunID: r.runID, N: r.rounds, Store: snapshot}); err != nil {
			return fmt.Errorf("observer rejected round %d: %w", r.rounds, err)
		}
	}
	return nil
}

// Quiescent reports whether no simplification or simpagation rule can fire
// against the given store contents.
//
// Propagation rules are not considered: whether they may fire depends on the
// propagation history of the run that produced the store.
func Quiescent(rules []ir.Rule, constraints []ir.Constraint) (bool, error) {
	st := store.New()
	clock := NewClock()
	for i := len(constraints) - 1; i >= 0; i-- {
		st.Insert(store.Entry{ID: clock.NextID(), Constraint: constraints[i]})
	}
	for _, rule := range rules {
		if rule.Kind() == ir.Propagation {
			continue
		}
		_, ok, err := FirstMatch(rule, st, nil)
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}
	return true, nil
}
