package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var _ JobRepository = (*JobRepositoryImpl)(nil)

// JobRepositoryImpl is the persistent work queue backing the scheduler.
type JobRepositoryImpl struct {
	db  *DB
	now func() time.Time
}

func NewJobRepository(db *DB) *JobRepositoryImpl {
	return &JobRepositoryImpl{db: db, now: time.Now}
}

const jobColumns = `id, story_id, kind, identity_key, payload, status, attempts, max_attempts, run_at, last_error, created_at, updated_at`

func (r *JobRepositoryImpl) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode job payload: %w", err)
	}

	now := r.now()
	if job.RunAt.IsZero() {
		job.RunAt = now
	}
	if job.Status == "" {
		job.Status = JobStatusWaiting
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.StoryID, job.Kind, job.IdentityKey, string(payload), job.Status,
		job.Attempts, job.MaxAttempts, toMillis(job.RunAt), job.LastError, toMillis(now), toMillis(now))
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}

	return nil
}

// Claim atomically moves the oldest due waiting job to active. Returns nil
// when nothing is due.
func (r *JobRepositoryImpl) Claim(ctx context.Context, now time.Time) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = ? AND run_at <= ?
			ORDER BY run_at, created_at
			LIMIT 1
		)
		RETURNING `+jobColumns,
		JobStatusActive, toMillis(now), JobStatusWaiting, toMillis(now))

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	return job, nil
}

func (r *JobRepositoryImpl) Complete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, attempts = attempts + 1, updated_at = ? WHERE id = ?
	`, JobStatusCompleted, toMillis(r.now()), id)
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	return nil
}

// Retry records a failed attempt and puts the job back in the queue at runAt.
func (r *JobRepositoryImpl) Retry(ctx context.Context, id string, runAt time.Time, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, attempts = attempts + 1, run_at = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`, JobStatusWaiting, toMillis(runAt), lastError, toMillis(r.now()), id)
	if err != nil {
		return fmt.Errorf("failed to reschedule job %s: %w", id, err)
	}
	return nil
}

func (r *JobRepositoryImpl) Fail(ctx context.Context, id string, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ?
	`, JobStatusFailed, lastError, toMillis(r.now()), id)
	if err != nil {
		return fmt.Errorf("failed to fail job %s: %w", id, err)
	}
	return nil
}

// HasWaiting reports whether a recurring run for identityKey is queued.
// One-shot runs are never matched.
func (r *JobRepositoryImpl) HasWaiting(ctx context.Context, identityKey string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM jobs WHERE identity_key = ? AND kind = ? AND status = ?
	`, identityKey, JobKindRecurring, JobStatusWaiting).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check waiting jobs: %w", err)
	}
	return count > 0, nil
}

// DeleteWaiting drops queued recurring runs for identityKey.
func (r *JobRepositoryImpl) DeleteWaiting(ctx context.Context, identityKey string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM jobs WHERE identity_key = ? AND kind = ? AND status = ?
	`, identityKey, JobKindRecurring, JobStatusWaiting)
	if err != nil {
		return 0, fmt.Errorf("failed to delete waiting jobs: %w", err)
	}
	return res.RowsAffected()
}

// RequeueActive returns jobs left active by a stopped process to the queue.
func (r *JobRepositoryImpl) RequeueActive(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ? WHERE status = ?
	`, JobStatusWaiting, toMillis(r.now()), JobStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue active jobs: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes finished jobs last touched before olderThan.
func (r *JobRepositoryImpl) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM jobs WHERE status IN (?, ?) AND updated_at < ?
	`, JobStatusCompleted, JobStatusFailed, toMillis(olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune jobs: %w", err)
	}
	return res.RowsAffected()
}

func (r *JobRepositoryImpl) Stats(ctx context.Context) (JobStats, error) {
	var stats JobStats

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("failed to get job stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status JobStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("failed to scan job stats row: %w", err)
		}

		switch status {
		case JobStatusWaiting:
			stats.Waiting = count
		case JobStatusActive:
			stats.Active = count
		case JobStatusCompleted:
			stats.Completed = count
		case JobStatusFailed:
			stats.Failed = count
		}
	}

	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("error iterating job stats rows: %w", err)
	}

	return stats, nil
}

func (r *JobRepositoryImpl) GetJob(ctx context.Context, id string) (*Job, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return job, nil
}

func scanJob(row *sql.Row) (*Job, error) {
	var (
		job       Job
		payload   string
		runAt     int64
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(&job.ID, &job.StoryID, &job.Kind, &job.IdentityKey, &payload, &job.Status,
		&job.Attempts, &job.MaxAttempts, &runAt, &job.LastError, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(payload), &job.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode job payload: %w", err)
	}

	job.RunAt = fromMillis(runAt)
	job.CreatedAt = fromMillis(createdAt)
	job.UpdatedAt = fromMillis(updatedAt)

	return &job, nil
}
