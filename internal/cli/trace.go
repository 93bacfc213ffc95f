package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/chr/internal/ir"
	"github.com/roach88/chr/internal/journal"
	"github.com/roach88/chr/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Journal string
	RunID   string // optional - defaults to the latest run
	Rule    string // optional - filter to specific rule
	List    bool   // list runs instead of tracing one
}

// TraceEvent represents a single firing in the trace timeline.
type TraceEvent struct {
	Seq      int               `json:"seq"`
	Rule     string            `json:"rule"`
	Bindings map[string]string `json:"bindings,omitempty"`
	Kept     []string          `json:"kept,omitempty"`
	Removed  []string          `json:"removed,omitempty"`
	Added    []string          `json:"added,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID       string        `json:"run_id"`
	Status      string        `json:"status"`
	Strategy    string        `json:"strategy"`
	FireMode    string        `json:"fire_mode"`
	ProgramHash string        `json:"program_hash"`
	ErrorCode   string        `json:"error_code,omitempty"`
	Error       string        `json:"error,omitempty"`
	Facts       []string      `json:"facts"`
	Timeline    []TraceEvent  `json:"timeline"`
	Rounds      []RoundOutput `json:"rounds,omitempty"`
	Store       []string      `json:"store,omitempty"`
	Stats       TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Steps   int            `json:"steps"`
	Firings int            `json:"firings"` // after the rule filter
	ByRule  map[string]int `json:"by_rule"`
}

// RunSummary is one line of the run listing.
type RunSummary struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Strategy  string `json:"strategy"`
	FireMode  string `json:"fire_mode"`
	Steps     int    `json:"steps"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the firings of a journaled run",
		Long: `Show the firing history of a run recorded with 'chr run --journal'.

The output includes:
- Timeline: every firing in order with its bindings, kept, removed and
  added constraints
- Rounds: store snapshots of a batch run
- Final Store: the fixpoint, if the run reached one
- Stats: firings per rule

Examples:
  chr trace --journal ./chr.db
  chr trace --journal ./chr.db --run 0192f3c4-... --rule sift
  chr trace --journal ./chr.db --list
  chr trace --journal ./chr.db --format json`,
		Args:          exactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite firing journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace (default: latest run)")
	cmd.Flags().StringVar(&opts.Rule, "rule", "", "filter to specific rule name")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list journaled runs")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Opening would create an empty journal
	if _, err := os.Stat(opts.Journal); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("journal not found: %s", opts.Journal), nil)
	}

	j, err := journal.Open(opts.Journal)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	defer j.Close()

	if opts.List {
		return listRuns(ctx, j, formatter)
	}

	var run journal.Run
	if opts.RunID != "" {
		run, err = j.ReadRun(ctx, opts.RunID)
	} else {
		run, err = j.LatestRun(ctx)
	}
	if errors.Is(err, journal.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "run not found", err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read run", err)
	}

	firings, err := j.ReadFirings(ctx, run.ID, opts.Rule)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read firings", err)
	}

	rounds, err := j.ReadRounds(ctx, run.ID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read rounds", err)
	}

	result := buildTraceResult(run, firings, rounds)

	// Output results
	if formatter.IsJSON() {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result, TraceID: run.ID})
	}

	return outputTraceText(formatter.Writer, result, opts.Verbose)
}

// buildTraceResult assembles the trace of one journaled run.
func buildTraceResult(run journal.Run, firings []journal.FiringRecord, rounds []journal.RoundRecord) TraceResult {
	result := TraceResult{
		RunID:       run.ID,
		Status:      run.Status,
		Strategy:    run.Strategy,
		FireMode:    run.FireMode,
		ProgramHash: run.ProgramHash,
		ErrorCode:   run.ErrorCode,
		Error:       run.Error,
		Facts:       ir.Strings(run.Facts),
		Timeline:    make([]TraceEvent, 0, len(firings)),
		Stats: TraceStats{
			Steps:   run.Steps,
			Firings: len(firings),
			ByRule:  make(map[string]int),
		},
	}
	if run.Store != nil {
		result.Store = ir.Strings(run.Store)
	}

	for _, f := range firings {
		result.Timeline = append(result.Timeline, buildTraceEvent(f))
		result.Stats.ByRule[f.Rule]++
	}
	for _, r := range rounds {
		result.Rounds = append(result.Rounds, RoundOutput{N: r.N, Store: ir.Strings(r.Store)})
	}

	return result
}

func buildTraceEvent(f journal.FiringRecord) TraceEvent {
	event := TraceEvent{
		Seq:     f.Seq,
		Rule:    f.Rule,
		Kept:    entryStrings(f.Kept),
		Removed: entryStrings(f.Removed),
	}
	if len(f.Added) > 0 {
		event.Added = ir.Strings(f.Added)
	}
	if f.Bindings.Len() > 0 {
		event.Bindings = make(map[string]string, f.Bindings.Len())
		for name, v := range f.Bindings.Map() {
			event.Bindings[name] = v.String()
		}
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

// listRuns outputs every journaled run, oldest first.
func listRuns(ctx context.Context, j *journal.Journal, formatter *OutputFormatter) error {
	runs, err := j.ReadRuns(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read runs", err)
	}

	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = RunSummary{
			RunID:     r.ID,
			Status:    r.Status,
			Strategy:  r.Strategy,
			FireMode:  r.FireMode,
			Steps:     r.Steps,
			ErrorCode: r.ErrorCode,
		}
	}

	if formatter.IsJSON() {
		return formatter.Success(summaries)
	}

	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}
	for _, s := range summaries {
		line := fmt.Sprintf("%s  %-8s  %s/%s  %d step(s)", s.RunID, s.Status, s.Strategy, s.FireMode, s.Steps)
		if s.ErrorCode != "" {
			line += "  " + s.ErrorCode
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Status: %s (%s/%s, %d step(s))\n", result.Status, result.Strategy, result.FireMode, result.Stats.Steps)
	if result.ErrorCode != "" {
		fmt.Fprintf(w, "Error: [%s] %s\n", result.ErrorCode, result.Error)
	}
	if verbose {
		fmt.Fprintf(w, "Program: %s\n", result.ProgramHash)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Facts ===")
	writeConstraintList(w, result.Facts, "(no facts)")
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no firings)")
	} else {
		for _, event := range result.Timeline {
			formatTimelineEvent(w, event)
		}
	}
	fmt.Fprintln(w)

	if len(result.Rounds) > 0 {
		fmt.Fprintln(w, "=== Rounds ===")
		for _, r := range result.Rounds {
			fmt.Fprintf(w, "  round %d\n", r.N)
			for _, c := range r.Store {
				fmt.Fprintf(w, "    %s\n", c)
			}
		}
		fmt.Fprintln(w)
	}

	if result.Store != nil {
		fmt.Fprintln(w, "=== Final Store ===")
		writeConstraintList(w, result.Store, "(empty)")
		fmt.Fprintln(w)
	}

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Firings: %d\n", result.Stats.Firings)
	rules := make([]string, 0, len(result.Stats.ByRule))
	for rule := range result.Stats.ByRule {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	for _, rule := range rules {
		fmt.Fprintf(w, "  %s: %d\n", rule, result.Stats.ByRule[rule])
	}

	return nil
}

func writeConstraintList(w io.Writer, cs []string, empty string) {
	if len(cs) == 0 {
		fmt.Fprintf(w, "  %s\n", empty)
		return
	}
	for _, c := range cs {
		fmt.Fprintf(w, "  %s\n", c)
	}
}

// formatTimelineEvent formats a single firing for text output.
// Kept heads are marked '=', removed '-' and added '+'.
func formatTimelineEvent(w io.Writer, event TraceEvent) {
	fmt.Fprintf(w, "  [%d] %s %s\n", event.Seq, event.Rule, formatBindings(event.Bindings))
	for _, c := range event.Kept {
		fmt.Fprintf(w, "       = %s\n", c)
	}
	for _, c := range event.Removed {
		fmt.Fprintf(w, "       - %s\n", c)
	}
	for _, c := range event.Added {
		fmt.Fprintf(w, "       + %s\n", c)
	}
}

// formatBindings formats bindings for display.
// Uses sorted keys to ensure deterministic output.
func formatBindings(bindings map[string]string) string {
	if len(bindings) == 0 {
		return "{}"
	}

	// Sort keys for deterministic output
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, bindings[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
