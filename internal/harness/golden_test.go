package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Counting(t *testing.T) {
	scenario := &Scenario{
		Name:        "golden_counting",
		Description: "Counting trace snapshot",
		Program:     countingProgram,
		Facts:       []string{"upto(3)"},
		Assertions: []Assertion{
			{Type: AssertStoreEquals, Constraints: []string{"counted(3)"}},
		},
	}

	// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
	require.NoError(t, RunWithGolden(t, scenario))
}

func TestRunWithGolden_Simpagation(t *testing.T) {
	scenario := &Scenario{
		Name:        "golden_gcd",
		Description: "Simpagation trace snapshot with kept heads",
		Program:     "zero\tgcd(0)\t\ttrue\nreduce\tgcd(M)\tgcd(N), (N =< M)\tgcd(K), (K = M - N)\n",
		Format:      "tabular",
		Facts:       []string{"gcd(9)", "gcd(6)"},
		Assertions: []Assertion{
			{Type: AssertStoreEquals, Constraints: []string{"gcd(3)"}},
		},
	}

	require.NoError(t, RunWithGolden(t, scenario))
}

func TestAssertGolden_CompileError(t *testing.T) {
	scenario := &Scenario{
		Name:        "golden_missing_arrow",
		Description: "A parse error has no trace and no store",
		Program:     "p(X) q(X)",
		Expect:      &ExpectClause{Error: "E201"},
	}

	require.NoError(t, RunWithGolden(t, scenario))
}

func TestTraceSnapshot_Marshal(t *testing.T) {
	s := TraceSnapshot{
		ScenarioName: "x",
		Store:        []string{},
		Trace:        []TraceEvent{{Seq: 1, Rule: "r", Bindings: map[string]string{"B": "2", "A": "1"}}},
	}

	data, err := s.Marshal()
	require.NoError(t, err)

	assert.Equal(t, `{
  "scenario_name": "x",
  "store": [],
  "trace": [
    {
      "seq": 1,
      "rule": "r",
      "bindings": {
        "A": "1",
        "B": "2"
      }
    }
  ]
}
`, string(data))
}
