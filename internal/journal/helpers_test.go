package journal

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/chr/internal/engine"
	"github.com/roach88/chr/internal/ir"
	"github.com/roach88/chr/internal/testutil"
)

// createTestJournal opens a fresh journal in a temp directory.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

// runJournaled runs rules over facts with j attached as an observer.
func runJournaled(t *testing.T, j *Journal, rules []ir.Rule, facts []ir.Constraint, opts ...engine.Option) (*engine.Result, error) {
	t.Helper()
	opts = append([]engine.Option{
		engine.WithRunIDGenerator(testutil.NewSequentialRunIDs("run")),
		engine.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		engine.WithObserver(j),
	}, opts...)
	e, err := engine.New(rules, opts...)
	require.NoError(t, err)
	return e.Run(context.Background(), facts)
}
