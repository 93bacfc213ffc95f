package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/chr/internal/ir"
	"github.com/roach88/chr/internal/store"
)

// ErrRunNotFound is returned when a run ID is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// Run is a journaled run.
type Run struct {
	ID            string
	ProgramHash   string
	Strategy      string
	FireMode      string
	MaxSteps      int
	EngineVersion string
	IRVersion     string
	Facts         []ir.Constraint
	Status        string
	Steps         int
	Rounds        int
	Store         []ir.Constraint // nil unless Status is finished
	ErrorCode     string
	Error         string
}

// FiringRecord is a journaled firing.
type FiringRecord struct {
	RunID       string
	Seq         int
	Rule        string
	BindingHash string
	Bindings    *ir.Bindings
	Kept        []store.Entry
	Removed     []store.Entry
	Added       []ir.Constraint
}

// RoundRecord is a journaled batch round.
type RoundRecord struct {
	RunID string
	N     int
	Store []ir.Constraint
}

const runColumns = `id, program_hash, strategy, fire_mode, max_steps, engine_version, ir_version,
	facts, status, steps, rounds, final_store, error_code, error`

// ReadRuns returns every run, oldest first.
// Returns an empty slice (not nil) for an empty journal.
func (j *Journal) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a single run. Returns ErrRunNotFound if absent.
func (j *Journal) ReadRun(ctx context.Context, id string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// LatestRun returns the most recently started run.
// Returns ErrRunNotFound for an empty journal.
func (j *Journal) LatestRun(ctx context.Context) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return r, err
}

// ReadFirings returns the firings of a run ordered by seq.
// When rule is non-empty only that rule's firings are returned.
func (j *Journal) ReadFirings(ctx context.Context, runID, rule string) ([]FiringRecord, error) {
	query := `
		SELECT run_id, seq, rule, binding_hash, bindings, kept, removed, added
		FROM firings
		WHERE run_id = ?`
	args := []any{runID}
	if rule != "" {
		query += ` AND rule = ?`
		args = append(args, rule)
	}
	query += ` ORDER BY seq ASC`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	firings := []FiringRecord{}
	for rows.Next() {
		f, err := scanFiring(rows)
		if err != nil {
			return nil, err
		}
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}
	return firings, nil
}

// ReadRounds returns the batch round snapshots of a run ordered by round.
func (j *Journal) ReadRounds(ctx context.Context, runID string) ([]RoundRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, round, store
		FROM rounds
		WHERE run_id = ?
		ORDER BY round ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	rounds := []RoundRecord{}
	for rows.Next() {
		var rr RoundRecord
		var data string
		if err := rows.Scan(&rr.RunID, &rr.N, &data); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if rr.Store, err = unmarshalConstraints(data); err != nil {
			return nil, fmt.Errorf("round %d: %w", rr.N, err)
		}
		rounds = append(rounds, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rounds: %w", err)
	}
	return rounds, nil
}

// Query runs an ad hoc SQL query against the journal tables.
// Callers must close the returned rows.
func (j *Journal) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return j.db.QueryContext(ctx, query, args...)
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var facts string
	var finalStore, errCode, errMsg sql.NullString
	err := s.Scan(
		&r.ID,
		&r.ProgramHash,
		&r.Strategy,
		&r.FireMode,
		&r.MaxSteps,
		&r.EngineVersion,
		&r.IRVersion,
		&facts,
		&r.Status,
		&r.Steps,
		&r.Rounds,
		&finalStore,
		&errCode,
		&errMsg,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if r.Facts, err = unmarshalConstraints(facts); err != nil {
		return Run{}, fmt.Errorf("run %s facts: %w", r.ID, err)
	}
	if finalStore.Valid {
		if r.Store, err = unmarshalConstraints(finalStore.String); err != nil {
			return Run{}, fmt.Errorf("run %s store: %w", r.ID, err)
		}
	}
	r.ErrorCode = errCode.String
	r.Error = errMsg.String
	return r, nil
}

func scanFiring(s scanner) (FiringRecord, error) {
	var f FiringRecord
	var bindings, kept, removed, added string
	if err := s.Scan(&f.RunID, &f.Seq, &f.Rule, &f.BindingHash, &bindings, &kept, &removed, &added); err != nil {
		return FiringRecord{}, fmt.Errorf("scan firing: %w", err)
	}

	var err error
	if f.Bindings, err = ir.UnmarshalCanonicalBindings([]byte(bindings)); err != nil {
		return FiringRecord{}, fmt.Errorf("firing %d: %w", f.Seq, err)
	}
	if f.Kept, err = unmarshalEntries(kept); err != nil {
		return FiringRecord{}, fmt.Errorf("firing %d kept: %w", f.Seq, err)
	}
	if f.Removed, err = unmarshalEntries(removed); err != nil {
		return FiringRecord{}, fmt.Errorf("firing %d removed: %w", f.Seq, err)
	}
	if f.Added, err = unmarshalConstraints(added); err != nil {
		return FiringRecord{}, fmt.Errorf("firing %d added: %w", f.Seq, err)
	}
	return f, nil
}
