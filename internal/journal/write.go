package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/chr/internal/engine"
	"github.com/roach88/chr/internal/ir"
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

var _ engine.Observer = (*Journal)(nil)

// RunStarted inserts the run row with status running.
// Uses ON CONFLICT(id) DO NOTHING so a replayed start is harmless.
func (j *Journal) RunStarted(ctx context.Context, info engine.RunInfo) error {
	facts, err := marshalConstraints(info.Facts)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, program_hash, strategy, fire_mode, max_steps, engine_version, ir_version, facts, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		info.RunID,
		info.ProgramHash,
		string(info.Strategy),
		string(info.FireMode),
		info.MaxSteps,
		info.EngineVersion,
		ir.IRVersion,
		facts,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// Fired inserts one firing row.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (j *Journal) Fired(ctx context.Context, f engine.Firing) error {
	bindings, err := marshalBindings(f.Bindings)
	if err != nil {
		return fmt.Errorf("write firing: %w", err)
	}
	hash, err := ir.BindingHash(f.Bindings)
	if err != nil {
		return fmt.Errorf("write firing: %w", err)
	}
	kept, err := marshalEntries(f.Kept)
	if err != nil {
		return fmt.Errorf("write firing: %w", err)
	}
	removed, err := marshalEntries(f.Removed)
	if err != nil {
		return fmt.Errorf("write firing: %w", err)
	}
	added, err := marshalConstraints(f.Added)
	if err != nil {
		return fmt.Errorf("write firing: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO firings
		(run_id, seq, rule, binding_hash, bindings, kept, removed, added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.RunID,
		f.Seq,
		f.Rule,
		hash,
		bindings,
		kept,
		removed,
		added,
	)
	if err != nil {
		return fmt.Errorf("write firing %s#%d: %w", f.RunID, f.Seq, err)
	}
	return nil
}

// RoundCompleted records a batch round snapshot.
func (j *Journal) RoundCompleted(ctx context.Context, r engine.Round) error {
	data, err := marshalConstraints(r.Store)
	if err != nil {
		return fmt.Errorf("write round %d: %w", r.N, err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO rounds (run_id, round, store)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, round) DO UPDATE SET store = excluded.store
	`, r.RunID, r.N, data)
	if err != nil {
		return fmt.Errorf("write round %d: %w", r.N, err)
	}
	return nil
}

// RunFinished records the outcome. A failed run keeps its error code and
// message and has no final store.
func (j *Journal) RunFinished(ctx context.Context, s engine.RunSummary) error {
	status := StatusFinished
	var finalStore, errCode, errMsg sql.NullString
	if s.Err != nil {
		status = StatusFailed
		errMsg = sql.NullString{String: s.Err.Error(), Valid: true}
		if code := engine.ErrorCode(s.Err); code != "" {
			errCode = sql.NullString{String: code, Valid: true}
		}
	} else {
		data, err := marshalConstraints(s.Store)
		if err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
		finalStore = sql.NullString{String: data, Valid: true}
	}

	_, err := j.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, steps = ?, rounds = ?, final_store = ?, error_code = ?, error = ?
		WHERE id = ?
	`,
		status,
		s.Steps,
		s.Rounds,
		finalStore,
		errCode,
		errMsg,
		s.RunID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", s.RunID, err)
	}
	return nil
}
