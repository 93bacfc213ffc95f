package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/chr/internal/compiler"
	"github.com/roach88/chr/internal/engine"
	"github.com/roach88/chr/internal/ir"
	"github.com/roach88/chr/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Strategy    string
	Mode        string
	MaxSteps    int
	Journal     string
	RulesFormat string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunOutput is the JSON payload of a successful run.
type RunOutput struct {
	RunID  string        `json:"run_id"`
	Steps  int           `json:"steps"`
	Store  []string      `json:"store"`
	Rounds []RoundOutput `json:"rounds,omitempty"`
}

// RoundOutput is one batch round snapshot.
type RoundOutput struct {
	N     int      `json:"n"`
	Store []string `json:"store"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <rules> <facts>",
		Short: "Run a rule program to a fixpoint",
		Long: `Run a rule program over an initial store until no rule applies.

The rules file is an inline rule program (.chr), a tab-separated table
(.tsv) or a CUE program (.cue). The facts file holds one constraint per
line. The final store is printed most recent first, one constraint per line.
With --strategy batch the store is printed after loading and after every
round in which a rule fired.

Nothing is printed to stdout if the program does not compile or the run
fails.

Example:
  chr run counting.chr counting.facts
  chr run --strategy batch --mode exhaustive sieve.chr sieve.facts
  chr run --journal ./chr.db --max-steps 1000 loop.chr loop.facts`,
		Args:          exactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Strategy, "strategy", string(engine.StrategyWorklist), "scheduling strategy (worklist|batch)")
	cmd.Flags().StringVar(&opts.Mode, "mode", string(engine.FireFirst), "fire mode (first|exhaustive)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "maximum number of firings (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite firing journal (optional)")
	cmd.Flags().StringVar(&opts.RulesFormat, "rules-format", string(compiler.FormatAuto), "rules format (auto|inline|tabular|cue)")

	return cmd
}

func runRules(opts *RunOptions, rulesPath, factsPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	strategy, err := engine.ParseStrategy(opts.Strategy)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "invalid --strategy", err)
	}
	mode, err := engine.ParseFireMode(opts.Mode)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "invalid --mode", err)
	}
	format, err := compiler.ParseFormat(opts.RulesFormat)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "invalid --rules-format", err)
	}
	if opts.MaxSteps < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "invalid --max-steps: must be non-negative", nil)
	}

	prog, facts, err := loadInputs(rulesPath, factsPath, format)
	if err != nil {
		return loadFailure(formatter, err)
	}
	logger.Debug("program loaded", "rules", len(prog.Rules), "facts", len(facts))

	rounds := &engine.RoundRecorder{}
	engOpts := []engine.Option{
		engine.WithStrategy(strategy),
		engine.WithFireMode(mode),
		engine.WithMaxSteps(opts.MaxSteps),
		engine.WithLogger(logger),
		engine.WithObserver(rounds),
	}
	if opts.RunIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}

	// Open journal (create if not exists)
	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		engOpts = append(engOpts, engine.WithObserver(j))
	}

	eng, err := engine.New(prog.Rules, engOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "failed to create engine", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	res, err := eng.Run(ctx, facts)
	if err != nil {
		code := engine.ErrorCode(err)
		if code == "" {
			code = ErrCodeAborted
		}
		return formatter.Fail(ExitFailure, code, "run failed", err)
	}
	formatter.VerboseLog("run %s reached a fixpoint after %d step(s)", res.RunID, res.Steps)

	if formatter.IsJSON() {
		out := RunOutput{
			RunID: res.RunID,
			Steps: res.Steps,
			Store: ir.Strings(res.Store),
		}
		if strategy == engine.StrategyBatch {
			for n, st := range rounds.Rounds {
				out.Rounds = append(out.Rounds, RoundOutput{N: n, Store: ir.Strings(st)})
			}
		}
		return formatter.JSON(CLIResponse{Status: "ok", Data: out, TraceID: res.RunID})
	}

	w := cmd.OutOrStdout()
	if strategy == engine.StrategyBatch {
		for n, st := range rounds.Rounds {
			fmt.Fprintf(w, "round %d\n", n)
			printStore(w, st)
		}
		return nil
	}
	printStore(w, res.Store)
	return nil
}

// loadInputs compiles the rule program and parses the facts file.
// Facts in the facts file replace any facts carried by the program.
func loadInputs(rulesPath, factsPath string, format compiler.Format) (*ir.Program, []ir.Constraint, error) {
	prog, err := compiler.LoadProgram(rulesPath, format)
	if err != nil {
		return nil, nil, err
	}
	if factsPath == "" {
		return prog, prog.Facts, nil
	}
	facts, err := compiler.LoadFacts(factsPath)
	if err != nil {
		return nil, nil, err
	}
	return prog, facts, nil
}

// loadFailure maps a load error to its exit error.
func loadFailure(formatter *OutputFormatter, err error) error {
	switch {
	case compiler.IsCompileError(err):
		return formatter.Fail(ExitCommandError, compiler.CompileErrorCode(err), "compile failed", err)
	case errors.Is(err, fs.ErrNotExist):
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "input not found", err)
	default:
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "failed to load input", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
// Uses the command's context if available (for testing).
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan) // Prevent signal handler leak
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
			// Run finished or parent context cancelled (e.g., from test)
		}
	}()

	return ctx, cancel
}

func printStore(w io.Writer, cs []ir.Constraint) {
	for _, c := range cs {
		fmt.Fprintln(w, c.String())
	}
}
