package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoRuns indicates the database holds no runs yet.
var ErrNoRuns = errors.New("no runs recorded")

// CreateRun inserts a new run in the running state and stamps its start
// time.
func (s *Store) CreateRun(ctx context.Context, run *Run) error {
	run.Status = RunRunning
	run.StartedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_dir, output_dir, layout, compression, target, status, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InputDir, run.OutputDir, run.Layout, run.Compression,
		run.Target, run.Status, formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun marks a run complete or failed and stamps its finish time.
// errMsg is recorded only for failed runs.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, errMsg string) error {
	if status != RunCompleted && status != RunFailed {
		return fmt.Errorf("run %s: %q is not a terminal run status", runID, status)
	}
	if status != RunFailed {
		errMsg = ""
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, errMsg, formatTime(time.Now().UTC()), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return requireRowAffected(res, "run "+runID)
}

// GetRun returns the run with the given ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	return s.scanRun(s.db.QueryRowContext(ctx,
		runSelect+` WHERE id = ?`, runID))
}

// LatestRun returns the most recently started run, or ErrNoRuns.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	run, err := s.scanRun(s.db.QueryRowContext(ctx,
		runSelect+` ORDER BY started_at DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	return run, err
}

const runSelect = `SELECT id, input_dir, output_dir, layout, compression, target, status, error, started_at, finished_at FROM runs`

func (s *Store) scanRun(row *sql.Row) (*Run, error) {
	var (
		run                   Run
		startedAt, finishedAt string
	)
	err := row.Scan(&run.ID, &run.InputDir, &run.OutputDir, &run.Layout,
		&run.Compression, &run.Target, &run.Status, &run.Error,
		&startedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, err
	}
	return &run, nil
}

func requireRowAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found", what)
	}
	return nil
}
