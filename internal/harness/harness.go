package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/chr/internal/compiler"
	"github.com/roach88/chr/internal/engine"
	"github.com/roach88/chr/internal/ir"
	"github.com/roach88/chr/internal/journal"
	"github.com/roach88/chr/internal/store"
	"github.com/roach88/chr/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario against a fresh in-memory journal with
// deterministic run IDs.
type Harness struct {
	journal *journal.Journal
	runIDs  *testutil.SequentialRunIDs
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal for isolation.
//
// Execution flow:
// 1. Create fresh in-memory journal
// 2. Compile the rule program and parse the facts
// 3. Run the engine with the journal attached as observer
// 4. Read the run and its firings back from the journal
// 5. Check the expect clause and evaluate assertions
//
// Compile and runtime failures are scenario outcomes recorded in the
// result. The returned error is reserved for infrastructure failures such
// as an unreadable program file.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	j, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	h := &Harness{
		journal: j,
		runIDs:  testutil.NewSequentialRunIDs(scenario.Name),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	result := NewResult()

	prog, facts, err := h.load(scenario)
	if err != nil {
		if !compiler.IsCompileError(err) {
			return nil, err
		}
		result.ErrorCode = compiler.CompileErrorCode(err)
		checkExpect(scenario, result, err)
		h.evaluate(ctx, scenario, result)
		return result, nil
	}

	runErr, err := h.execute(ctx, scenario, prog, facts, result)
	if err != nil {
		return nil, err
	}
	checkExpect(scenario, result, runErr)
	h.evaluate(ctx, scenario, result)
	return result, nil
}

// load compiles the scenario's program and resolves its facts.
func (h *Harness) load(s *Scenario) (*ir.Program, []ir.Constraint, error) {
	format, err := compiler.ParseFormat(s.Format)
	if err != nil {
		return nil, nil, err
	}

	var prog *ir.Program
	if s.Program != "" {
		prog, err = compiler.Compile([]byte(s.Program), s.Name, format)
	} else {
		prog, err = compiler.LoadProgram(s.Rules, format)
	}
	if err != nil {
		return nil, nil, err
	}

	switch {
	case s.FactsFile != "":
		facts, err := compiler.LoadFacts(s.FactsFile)
		if err != nil {
			return nil, nil, err
		}
		return prog, facts, nil
	case len(s.Facts) > 0:
		facts, err := compiler.ParseFacts(strings.Join(s.Facts, "\n"), s.Name+" facts")
		if err != nil {
			return nil, nil, err
		}
		return prog, facts, nil
	default:
		return prog, prog.Facts, nil
	}
}

// execute runs the engine and fills the result from the journal.
// runErr is the run's own failure; err is an infrastructure failure.
func (h *Harness) execute(ctx context.Context, s *Scenario, prog *ir.Program, facts []ir.Constraint, result *Result) (runErr, err error) {
	strategy, _ := engine.ParseStrategy(s.Strategy)
	mode, _ := engine.ParseFireMode(s.Mode)

	eng, err := engine.New(prog.Rules,
		engine.WithStrategy(strategy),
		engine.WithFireMode(mode),
		engine.WithMaxSteps(s.MaxSteps),
		engine.WithObserver(h.journal),
		engine.WithLogger(h.logger),
		engine.WithRunIDGenerator(h.runIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	_, runErr = eng.Run(ctx, facts)
	if runErr != nil {
		result.ErrorCode = engine.ErrorCode(runErr)
	}

	run, err := h.journal.LatestRun(ctx)
	if errors.Is(err, journal.ErrRunNotFound) {
		return runErr, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	result.RunID = run.ID
	result.Steps = run.Steps
	result.Rounds = run.Rounds
	if run.Store != nil {
		result.Store = ir.Strings(run.Store)
	}

	firings, err := h.journal.ReadFirings(ctx, run.ID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read firings: %w", err)
	}
	for _, f := range firings {
		result.AddFiringTrace(traceEvent(f))
	}

	h.logger.Info("scenario run completed",
		"run", run.ID,
		"status", run.Status,
		"steps", run.Steps,
		"error_code", run.ErrorCode,
	)
	return runErr, nil
}

// checkExpect compares the run outcome against the expect clause.
func checkExpect(s *Scenario, result *Result, runErr error) {
	if s.Expect == nil {
		if runErr != nil {
			result.AddError(fmt.Sprintf("run failed: %v", runErr))
		}
		return
	}
	if runErr == nil {
		result.AddError(fmt.Sprintf("expected error %s, run reached a fixpoint", s.Expect.Error))
		return
	}
	if result.ErrorCode != s.Expect.Error {
		result.AddError(fmt.Sprintf("expected error %s, got %s: %v", s.Expect.Error, result.ErrorCode, runErr))
	}
}

func (h *Harness) evaluate(ctx context.Context, s *Scenario, result *Result) {
	actx := &AssertionContext{
		Journal: h.journal,
		Ctx:     ctx,
	}
	for _, msg := range EvaluateAssertions(result, s.Assertions, actx) {
		result.AddError(msg)
	}
}

func traceEvent(f journal.FiringRecord) TraceEvent {
	event := TraceEvent{
		Seq:     f.Seq,
		Rule:    f.Rule,
		Kept:    entryStrings(f.Kept),
		Removed: entryStrings(f.Removed),
		Added:   ir.Strings(f.Added),
	}
	if f.Bindings.Len() > 0 {
		event.Bindings = make(map[string]string, f.Bindings.Len())
		for name, v := range f.Bindings.Map() {
			event.Bindings[name] = v.String()
		}
	}
	if len(event.Added) == 0 {
		event.Added = nil
	}
	return event
}

func entryStrings(entries []store.Entry) []string {
	if len(entries) == 0 {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Constraint.String()
	}
	return out
}
