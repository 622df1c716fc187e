package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contractor-payouts/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `id, job_type, payload, status, run_at, attempts, last_error, created_at, updated_at`

// JobRepo implements ports.JobRepository.
type JobRepo struct {
	pool Pool
}

// NewJobRepo creates a new JobRepo.
func NewJobRepo(pool Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// Create enqueues a job within the transaction that produced it.
func (r *JobRepo) Create(ctx context.Context, tx pgx.Tx, j *domain.Job) error {
	query := `INSERT INTO jobs (id, job_type, payload, status, run_at, attempts, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		j.ID, j.Type, []byte(j.Payload), j.Status, j.RunAt, j.Attempts, j.LastError, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	j := &domain.Job{}
	var payload []byte
	err := row.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.RunAt, &j.Attempts, &j.LastError, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Payload = payload
	return j, nil
}

// GetByID fetches a job.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// ListQueued returns queued jobs, earliest run_at first.
func (r *JobRepo) ListQueued(ctx context.Context, limit int) ([]domain.Job, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = 'QUEUED' ORDER BY run_at ASC, created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list queued jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// Claim moves a QUEUED job to RUNNING. A nil job means another worker won.
func (r *JobRepo) Claim(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `UPDATE jobs SET status = 'RUNNING', attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'QUEUED'
		RETURNING ` + jobColumns

	j, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return j, nil
}

// Complete marks a running job COMPLETED inside the handler's transaction.
func (r *JobRepo) Complete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx,
		`UPDATE jobs SET status = 'COMPLETED', last_error = '', updated_at = NOW() WHERE id = $1 AND status = 'RUNNING'`, id)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job is not running: %s", id)
	}
	return nil
}

// Requeue returns a running job to the queue.
func (r *JobRepo) Requeue(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = 'QUEUED', run_at = $1, last_error = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'RUNNING'`, runAt, lastError, id)
	if err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job is not running: %s", id)
	}
	return nil
}

// Reschedule returns a running job to the queue with a fresh attempt count.
func (r *JobRepo) Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = 'QUEUED', run_at = $1, attempts = 0, last_error = '', updated_at = NOW()
		WHERE id = $2 AND status = 'RUNNING'`, runAt, id)
	if err != nil {
		return fmt.Errorf("reschedule job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job is not running: %s", id)
	}
	return nil
}

// ReclaimStale requeues jobs whose worker stopped before finishing them.
func (r *JobRepo) ReclaimStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = 'QUEUED', last_error = 'reclaimed from stalled worker', updated_at = NOW()
		WHERE status = 'RUNNING' AND updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Fail moves a running job to FAILED.
func (r *JobRepo) Fail(ctx context.Context, id uuid.UUID, lastError string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status = 'FAILED', last_error = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'RUNNING'`, lastError, id)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job is not running: %s", id)
	}
	return nil
}
