package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spendguard/spendguard/internal/model"
)

// SaveDeadJob records a job whose retries were exhausted. Dead jobs are
// never deleted automatically; operators inspect and replay them by hand.
func (s *SQLiteStorage) SaveDeadJob(ctx context.Context, job *model.DeadJob) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: job", ErrNilParameter)
	}
	if err := validateString(job.Payload, "job.Payload"); err != nil {
		return err
	}

	failedAt := job.FailedAt
	if failedAt.IsZero() {
		failedAt = time.Now()
	}

	query := `
		INSERT INTO dead_jobs (uuid, payload, reason, failed_at)
		VALUES (?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query, job.UUID, job.Payload, job.Reason, failedAt)
	if err != nil {
		return fmt.Errorf("failed to insert dead job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get dead job ID: %w", err)
	}
	job.ID = id
	job.FailedAt = failedAt

	slog.Warn("persisted dead job",
		"dead_job_id", job.ID,
		"message_uuid", job.UUID,
		"reason", job.Reason)

	return nil
}

// ListDeadJobs returns dead jobs newest first, up to limit. A limit of 0
// returns everything.
func (s *SQLiteStorage) ListDeadJobs(ctx context.Context, limit int) ([]model.DeadJob, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, uuid, payload, reason, failed_at
		FROM dead_jobs
		ORDER BY failed_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dead jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []model.DeadJob
	for rows.Next() {
		var job model.DeadJob
		if err := rows.Scan(&job.ID, &job.UUID, &job.Payload, &job.Reason, &job.FailedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dead job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dead jobs: %w", err)
	}

	return jobs, nil
}

// CountDeadJobs returns the number of retained dead jobs.
func (s *SQLiteStorage) CountDeadJobs(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_jobs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count dead jobs: %w", err)
	}

	return count, nil
}
