package runstore

import (
	"context"
	"fmt"
	"time"
)

// AddJob records a newly planned sample job for a run.
func (s *Store) AddJob(ctx context.Context, runID, sample string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (run_id, sample, status, updated_at) VALUES (?, ?, ?, ?)`,
		runID, sample, StatusPlanned, formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", sample, err)
	}
	return nil
}

// SetJobStatus advances a job along the state machine. Invalid moves
// are rejected so a coding error cannot silently corrupt run history.
func (s *Store) SetJobStatus(ctx context.Context, runID, sample string, to JobStatus) error {
	job, err := s.getJob(ctx, runID, sample)
	if err != nil {
		return err
	}
	if !transitionAllowed(job.Status, to) {
		return fmt.Errorf("job %s: transition %s -> %s not allowed", sample, job.Status, to)
	}
	return s.updateJob(ctx, runID, sample, to, "")
}

// FailJob marks a job failed with the given reason, from any state.
func (s *Store) FailJob(ctx context.Context, runID, sample, reason string) error {
	return s.updateJob(ctx, runID, sample, StatusFailed, reason)
}

func (s *Store) updateJob(ctx context.Context, runID, sample string, status JobStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE run_id = ? AND sample = ?`,
		status, errMsg, formatTime(time.Now().UTC()), runID, sample,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", sample, err)
	}
	return requireRowAffected(res, "job "+sample)
}

func (s *Store) getJob(ctx context.Context, runID, sample string) (*Job, error) {
	var (
		job       Job
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, sample, status, error, updated_at FROM jobs WHERE run_id = ? AND sample = ?`,
		runID, sample,
	).Scan(&job.RunID, &job.Sample, &job.Status, &job.Error, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", sample, err)
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &job, nil
}

// Jobs returns every job for a run, ordered by sample.
func (s *Store) Jobs(ctx context.Context, runID string) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, sample, status, error, updated_at FROM jobs WHERE run_id = ? ORDER BY sample`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			job       Job
			updatedAt string
		)
		if err := rows.Scan(&job.RunID, &job.Sample, &job.Status, &job.Error, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// CountJobs returns per-status counts for a run.
func (s *Store) CountJobs(ctx context.Context, runID string) (map[JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM jobs WHERE run_id = ? GROUP BY status`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[JobStatus]int)
	for rows.Next() {
		var (
			status JobStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}
