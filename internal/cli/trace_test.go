package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chr/internal/journal"
)

// journalRun runs a program with --journal. Run failures are ignored:
// failed runs are journaled too.
func journalRun(t *testing.T, dbPath string, args ...string) {
	t.Helper()
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	_, _, _ = executeCommand(cmd, append([]string{"--journal", dbPath}, args...)...)
	_, err := os.Stat(dbPath)
	require.NoError(t, err, "journal must exist after a run")
}

func TestTrace_LatestRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chr.db")
	journalRun(t, dbPath, program("counting.chr"), program("counting.facts"))

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	stdout, _, err := executeCommand(cmd, "--journal", dbPath)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Trace for Run: ")
	assert.Contains(t, stdout, "Status: finished (worklist/first, 7 step(s))")
	assert.Contains(t, stdout, "=== Facts ===\n  upto(5)\n")
	assert.Contains(t, stdout, "  [1] start {N=5}\n       - upto(5)\n       + count(0, 5)\n")
	assert.Contains(t, stdout, "  [7] done {I=5, N=5}\n")
	assert.Contains(t, stdout, "=== Final Store ===\n  counted(5)\n")
	assert.Contains(t, stdout, "  Firings: 7\n")
	assert.Contains(t, stdout, "  step: 5\n")
	assert.NotContains(t, stdout, "=== Rounds ===")
}

func TestTrace_SimpagationKeptHeads(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chr.db")
	journalRun(t, dbPath, program("gcd.tsv"), program("gcd.facts"))

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	stdout, _, err := executeCommand(cmd, "--journal", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "       = gcd(6)\n       - gcd(9)\n       + gcd(3)\n")
}

func TestTrace_RuleFilter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chr.db")
	journalRun(t, dbPath, program("counting.chr"), program("counting.facts"))

	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	stdout, _, err := executeCommand(cmd, "--journal", dbPath, "--rule", "step")
	require.NoError(t, err)

	var resp struct {
		Status  string      `json:"status"`
		Data    TraceResult `json:"data"`
		TraceID string      `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, resp.Data.RunID, resp.TraceID)
	require.Len(t, resp.Data.Timeline, 5)
	for i, event := range resp.Data.Timeline {
		assert.Equal(t, "step", event.Rule)
		assert.Equal(t, i+2, event.Seq, "seq numbers are positions in the whole run")
	}
	assert.Equal(t, 7, resp.Data.Stats.Steps)
	assert.Equal(t, 5, resp.Data.Stats.Firings)
	assert.Equal(t, map[string]int{"step": 5}, resp.Data.Stats.ByRule)
	assert.Equal(t, []string{"counted(5)"}, resp.Data.Store)
	assert.Equal(t, map[string]string{"I": "0", "N": "5"}, resp.Data.Timeline[0].Bindings)
}

func TestTrace_SelectRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chr.db")
	journalRun(t, dbPath, program("counting.chr"), program("counting.facts"))
	journalRun(t, dbPath, program("sieve.chr"), program("sieve.facts"))

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	runs, err := j.ReadRuns(t.Context())
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.Len(t, runs, 2)

	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	stdout, _, err := executeCommand(cmd, "--journal", dbPath, "--run", runs[0].ID)
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, runs[0].ID, resp.Data.RunID)
	assert.Equal(t, []string{"upto(5)"}, resp.Data.Facts)

	// Latest is the sieve run
	cmd = NewTraceCommand(&RootOptions{Format: "json"})
	stdout, _, err = executeCommand(cmd, "--journal", dbPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, runs[1].ID, resp.Data.RunID)
	assert.Equal(t, []string{"upto(10)"}, resp.Data.Facts)
}

func TestTrace_List(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chr.db")
	journalRun(t, dbPath, program("counting.chr"), program("counting.facts"))
	journalRun(t, dbPath, "--strategy", "batch", program("sieve.chr"), program("sieve.facts"))

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	stdout, _, err := executeCommand(cmd, "--journal", dbPath, "--list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "finished  worklist/first  7 step(s)")
	assert.Contains(t, lines[1], "batch/first")
}

func TestTrace_ListJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chr.db")
	journalRun(t, dbPath, program("counting.chr"), program("counting.facts"))

	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	stdout, _, err := executeCommand(cmd, "--journal", dbPath, "--list")
	require.NoError(t, err)

	var resp struct {
		Data []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "finished", resp.Data[0].Status)
	assert.Equal(t, 7, resp.Data[0].Steps)
}

func TestTrace_FailedRun(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "chr.db")
	facts := writeFile(t, tmpDir, "loop.facts", "p(0)\n")
	journalRun(t, dbPath, "--max-steps", "3", program("loop.chr"), facts)

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	stdout, _, err := executeCommand(cmd, "--journal", dbPath)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Status: failed")
	assert.Contains(t, stdout, "Error: [QUOTA_EXCEEDED]")
	assert.Contains(t, stdout, "  [3] loop {X=2}\n")
	assert.NotContains(t, stdout, "=== Final Store ===", "failed runs have no store")
}

func TestTrace_BatchRounds(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "chr.db")
	facts := writeFile(t, tmpDir, "upto3.facts", "upto(3)\n")
	journalRun(t, dbPath, "--strategy", "batch", program("counting.chr"), facts)

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	stdout, _, err := executeCommand(cmd, "--journal", dbPath)
	require.NoError(t, err)

	assert.Contains(t, stdout, "=== Rounds ===\n  round 0\n    upto(3)\n  round 1\n    count(1, 3)\n")
	assert.Contains(t, stdout, "  round 3\n    counted(3)\n")
}

func TestTrace_Errors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chr.db")
	journalRun(t, dbPath, program("counting.chr"), program("counting.facts"))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing journal", []string{"--journal", filepath.Join(t.TempDir(), "none.db")}, "journal not found"},
		{"unknown run", []string{"--journal", dbPath, "--run", "no-such-run"}, "run not found"},
		{"positional args", []string{"--journal", dbPath, "extra"}, "accepts 0 arg(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewTraceCommand(&RootOptions{Format: "text"})

			_, _, err := executeCommand(cmd, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTrace_MissingJournalFlag(t *testing.T) {
	cmd := NewTraceCommand(&RootOptions{Format: "text"})

	_, _, err := executeCommand(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "journal")
}

func TestTrace_MissingJournalIsNotCreated(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "none.db")

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	_, _, err := executeCommand(cmd, "--journal", dbPath)
	require.Error(t, err)

	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFormatBindings(t *testing.T) {
	assert.Equal(t, "{}", formatBindings(nil))
	assert.Equal(t, "{A=1, B=x}", formatBindings(map[string]string{"B": "x", "A": "1"}))
}
