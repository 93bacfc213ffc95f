package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/chr/internal/compiler"
	"github.com/roach88/chr/internal/engine"
	"github.com/roach88/chr/internal/ir"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	RulesFormat string
}

// CheckOutput is the JSON payload of a successful check.
type CheckOutput struct {
	ProgramHash string       `json:"program_hash"`
	Rules       []RuleOutput `json:"rules"`
	Facts       []string     `json:"facts"`
	// Quiescent reports whether no simplification or simpagation rule
	// matches the facts. Propagation rules are not considered.
	Quiescent bool `json:"quiescent"`
}

// RuleOutput describes one compiled rule.
type RuleOutput struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <rules> [facts]",
		Short: "Compile a rule program without running it",
		Long: `Compile a rule program and print its rules in normalized inline form.

Performs parsing and definition checks (head variables bind every guard and
body variable, expression types, unique rule names) without matching.
If a facts file is given, or the program carries facts, they are parsed
and printed as well.

Example:
  chr check sieve.chr
  chr check --format json gcd.tsv gcd.facts`,
		Args:          rangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			factsPath := ""
			if len(args) == 2 {
				factsPath = args[1]
			}
			return runCheck(opts, args[0], factsPath, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RulesFormat, "rules-format", string(compiler.FormatAuto), "rules format (auto|inline|tabular|cue)")

	return cmd
}

func runCheck(opts *CheckOptions, rulesPath, factsPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	format, err := compiler.ParseFormat(opts.RulesFormat)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "invalid --rules-format", err)
	}

	prog, facts, err := loadInputs(rulesPath, factsPath, format)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Compiled %d rule(s) from %s", len(prog.Rules), rulesPath)

	// engine.New names unnamed rules and computes the program hash
	eng, err := engine.New(prog.Rules)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeUsage, "invalid program", err)
	}
	rules := eng.Rules()

	quiescent, err := engine.Quiescent(rules, facts)
	if err != nil {
		code := engine.ErrorCode(err)
		if code == "" {
			code = string(engine.ErrCodeGuardEval)
		}
		return formatter.Fail(ExitFailure, code, "guard evaluation failed", err)
	}

	out := CheckOutput{
		ProgramHash: eng.ProgramHash(),
		Rules:       make([]RuleOutput, len(rules)),
		Facts:       ir.Strings(facts),
		Quiescent:   quiescent,
	}
	for i, r := range rules {
		out.Rules[i] = RuleOutput{Name: r.Name, Kind: r.Kind().String(), Text: r.String()}
	}

	if formatter.IsJSON() {
		return formatter.Success(out)
	}

	// Text output is itself a valid rule file: summaries are % comments
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%% %d rule(s), program hash %s\n", len(out.Rules), out.ProgramHash)
	for _, r := range out.Rules {
		fmt.Fprintln(w, r.Text)
	}
	if len(out.Facts) > 0 {
		fmt.Fprintf(w, "%% %d fact(s), quiescent: %t\n", len(out.Facts), out.Quiescent)
		for _, f := range out.Facts {
			fmt.Fprintf(w, "%% %s\n", f)
		}
	}
	return nil
}
