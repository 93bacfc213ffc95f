package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chr/internal/compiler"
	"github.com/roach88/chr/internal/engine"
)

// Scenario defines a conformance test scenario.
// A scenario runs one rule program over one set of facts and asserts on the
// resulting trace and final store.
type Scenario struct {
	// Name uniquely identifies this scenario. It also prefixes the run ID
	// and names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules is the path of the rule program.
	// Paths are relative to the scenario file location.
	Rules string `yaml:"rules,omitempty"`

	// Program is inline rule program text, used instead of Rules.
	Program string `yaml:"program,omitempty"`

	// Format is the program format (default: auto).
	Format string `yaml:"format,omitempty"`

	// Facts lists the initial constraints in fact-file syntax.
	Facts []string `yaml:"facts,omitempty"`

	// FactsFile is the path of a fact file, used instead of Facts.
	FactsFile string `yaml:"facts_file,omitempty"`

	// Strategy, Mode and MaxSteps configure the engine.
	Strategy string `yaml:"strategy,omitempty"`
	Mode     string `yaml:"mode,omitempty"`
	MaxSteps int    `yaml:"max_steps,omitempty"`

	// Expect specifies an expected failure.
	// If nil, the program must compile and the run must reach a fixpoint.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the final trace and store.
	Assertions []Assertion `yaml:"assertions"`
}

// ExpectClause specifies expected failure behavior.
type ExpectClause struct {
	// Error is the expected compile error code (e.g. "E201") or runtime
	// error code (e.g. "QUOTA_EXCEEDED").
	Error string `yaml:"error"`
}

// Assertion validates the trace, the final store, or the journal.
type Assertion struct {
	// Type specifies the assertion type:
	// - "store_equals": final store holds exactly Constraints
	// - "store_contains": final store holds every one of Constraints
	// - "store_excludes": final store holds none of Constraints
	// - "trace_contains": Rule fired with Bindings (subset match)
	// - "trace_order": Rules first fire in order
	// - "trace_count": Rule fired exactly Count times
	// - "final_state": query Table and verify expected values
	Type string `yaml:"type"`

	// Constraints are ground constraints (used by store_*).
	Constraints []string `yaml:"constraints,omitempty"`

	// Rule is a rule name (used by trace_contains, trace_count).
	Rule string `yaml:"rule,omitempty"`

	// Bindings are the expected variable values (used by trace_contains).
	// Subset match - only specified variables are validated.
	Bindings map[string]interface{} `yaml:"bindings,omitempty"`

	// Rules is the expected rule order (used by trace_order).
	Rules []string `yaml:"rules,omitempty"`

	// Count is the expected number of firings (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Table is the journal table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected column values (used by final_state).
	// Subset match - only specified columns are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertStoreEquals   = "store_equals"
	AssertStoreContains = "store_contains"
	AssertStoreExcludes = "store_excludes"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Relative program and fact paths are resolved against the scenario's
// directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving program and fact paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths BEFORE validation
	scenario.Rules = resolvePath(scenario.Rules, basePath)
	scenario.FactsFile = resolvePath(scenario.FactsFile, basePath)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ScenarioPaths lists the *.yaml and *.yml files in dir, sorted by name.
func ScenarioPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	paths := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// LoadScenarios loads every scenario in dir. The first invalid file fails
// the whole load.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := ScenarioPaths(dir)
	if err != nil {
		return nil, err
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func resolvePath(p, basePath string) string {
	if p == "" || filepath.IsAbs(p) || basePath == "" {
		return p
	}
	return filepath.Join(basePath, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if (s.Rules == "") == (s.Program == "") {
		return fmt.Errorf("exactly one of rules or program is required")
	}

	if s.Rules != "" {
		if _, err := os.Stat(s.Rules); os.IsNotExist(err) {
			return fmt.Errorf("rules file not found: %s", s.Rules)
		}
	}

	if len(s.Facts) > 0 && s.FactsFile != "" {
		return fmt.Errorf("facts and facts_file are mutually exclusive")
	}

	if s.FactsFile != "" {
		if _, err := os.Stat(s.FactsFile); os.IsNotExist(err) {
			return fmt.Errorf("facts file not found: %s", s.FactsFile)
		}
	}

	if _, err := compiler.ParseFormat(s.Format); err != nil {
		return err
	}
	if _, err := engine.ParseStrategy(s.Strategy); err != nil {
		return err
	}
	if _, err := engine.ParseFireMode(s.Mode); err != nil {
		return err
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}

	if s.Expect != nil && s.Expect.Error == "" {
		return fmt.Errorf("expect: error is required")
	}

	if len(s.Assertions) == 0 && s.Expect == nil {
		return fmt.Errorf("assertions list is required unless an error is expected")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStoreEquals:
		// An empty list asserts an empty store.
	case AssertStoreContains, AssertStoreExcludes:
		if len(a.Constraints) == 0 {
			return fmt.Errorf("assertions[%d]: constraints list is required for %s", index, a.Type)
		}
	case AssertTraceContains:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Rules) == 0 {
			return fmt.Errorf("assertions[%d]: rules list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	for j, c := range a.Constraints {
		if _, err := compiler.ParseFact(c); err != nil {
			return fmt.Errorf("assertions[%d].constraints[%d]: %w", index, j, err)
		}
	}

	return nil
}
