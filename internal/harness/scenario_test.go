package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes YAML to a temp dir next to a small rule program.
func writeScenario(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.chr"), []byte("r @ p(X) <=> q(X)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "facts.txt"), []byte("p(1)\n"), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoadScenario_ResolvesRelativePaths(t *testing.T) {
	path := writeScenario(t, `
name: relative
description: "paths resolve against the scenario file"
rules: rules.chr
facts_file: facts.txt
assertions:
  - type: store_equals
    constraints: [q(1)]
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "rules.chr"), s.Rules)
	assert.Equal(t, filepath.Join(dir, "facts.txt"), s.FactsFile)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, []string{"q(1)"}, s.Assertions[0].Constraints)
}

func TestLoadScenario_AllFields(t *testing.T) {
	path := writeScenario(t, `
name: full
description: "every field"
program: |
  r @ p(X) <=> q(X)
format: inline
facts:
  - p(1)
strategy: batch
mode: exhaustive
max_steps: 10
expect:
  error: QUOTA_EXCEEDED
assertions:
  - type: trace_contains
    rule: r
    bindings: { X: 1 }
  - type: trace_order
    rules: [r]
  - type: trace_count
    rule: r
    count: 1
  - type: store_contains
    constraints: ["q(1)"]
  - type: store_excludes
    constraints: ["p(1)"]
  - type: final_state
    table: runs
    where: { status: failed }
    expect: { steps: 11 }
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "full", s.Name)
	assert.Equal(t, "r @ p(X) <=> q(X)\n", s.Program)
	assert.Equal(t, "batch", s.Strategy)
	assert.Equal(t, "exhaustive", s.Mode)
	assert.Equal(t, 10, s.MaxSteps)
	require.NotNil(t, s.Expect)
	assert.Equal(t, "QUOTA_EXCEEDED", s.Expect.Error)
	require.Len(t, s.Assertions, 6)
	assert.Equal(t, 1, s.Assertions[0].Bindings["X"])
	assert.Equal(t, "failed", s.Assertions[5].Where["status"])
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: d\nrules: rules.chr\nassertions: [{type: store_equals}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nrules: rules.chr\nassertions: [{type: store_equals}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no program",
			yaml:    "name: x\ndescription: d\nassertions: [{type: store_equals}]\n",
			wantErr: "exactly one of rules or program",
		},
		{
			name:    "both program and rules",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nprogram: p <=> q\nassertions: [{type: store_equals}]\n",
			wantErr: "exactly one of rules or program",
		},
		{
			name:    "rules file not found",
			yaml:    "name: x\ndescription: d\nrules: absent.chr\nassertions: [{type: store_equals}]\n",
			wantErr: "rules file not found",
		},
		{
			name:    "facts and facts_file",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nfacts: [p(1)]\nfacts_file: facts.txt\nassertions: [{type: store_equals}]\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "bad strategy",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nstrategy: random\nassertions: [{type: store_equals}]\n",
			wantErr: "invalid strategy",
		},
		{
			name:    "bad mode",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nmode: some\nassertions: [{type: store_equals}]\n",
			wantErr: "invalid fire mode",
		},
		{
			name:    "bad format",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nformat: xml\nassertions: [{type: store_equals}]\n",
			wantErr: "unknown rules format",
		},
		{
			name:    "no assertions",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "empty expect",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nexpect: {error: \"\"}\n",
			wantErr: "expect: error is required",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nassertions: [{type: store_matches}]\n",
			wantErr: `unknown assertion type "store_matches"`,
		},
		{
			name:    "trace_count without rule",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nassertions: [{type: trace_count, count: 1}]\n",
			wantErr: "rule is required for trace_count",
		},
		{
			name:    "trace_order without rules",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nassertions: [{type: trace_order}]\n",
			wantErr: "rules list is required",
		},
		{
			name:    "store_contains without constraints",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nassertions: [{type: store_contains}]\n",
			wantErr: "constraints list is required",
		},
		{
			name:    "non-ground constraint",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nassertions: [{type: store_contains, constraints: [p(X)]}]\n",
			wantErr: "assertions[0].constraints[0]",
		},
		{
			name:    "final_state without expect",
			yaml:    "name: x\ndescription: d\nrules: rules.chr\nassertions: [{type: final_state, table: runs}]\n",
			wantErr: "expect is required for final_state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestScenarioPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.md", "c.YAML"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))

	paths, err := ScenarioPaths(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "c.YAML"),
	}, paths)

	_, err = ScenarioPaths(filepath.Join(dir, "absent"))
	require.Error(t, err)
}

func TestLoadScenarios_Examples(t *testing.T) {
	scenarios, err := LoadScenarios(scenarioDir)
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	names := make(map[string]bool)
	for _, s := range scenarios {
		assert.NotEmpty(t, s.Description, s.Name)
		assert.False(t, names[s.Name], "duplicate scenario name %s", s.Name)
		names[s.Name] = true
	}
}
