// Package sql implements the durable, SQL-backed job queue
// against PostgreSQL, using `SELECT ... FOR UPDATE SKIP LOCKED` as the sole
// inter-worker exclusion mechanism on the dequeue path.
package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/google/uuid"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/models"
)

const (
	insertJobSQL = `
INSERT INTO jobs (id, user_id, status, priority, job_type, config, created_at,
                   scheduled_at, retry_count, max_retries, enable_ai_extraction, extraction_schema)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	// dequeueSelectSQL selects the single highest-priority queued job with
	// earliest created_at, excluding rows already locked by a concurrent
	// dequeue. priority DESC, created_at ASC is the required ordering.
	dequeueSelectSQL = `
SELECT id, user_id, status, priority, job_type, config, created_at, scheduled_at,
       started_at, completed_at, retry_count, max_retries, error, result_summary,
       enable_ai_extraction, extraction_schema
FROM jobs
WHERE status = 'queued'
ORDER BY priority DESC, created_at ASC
LIMIT 1
FOR UPDATE SKIP LOCKED`

	// claimUpdateSQL mirrors a conditional-UPDATE claim
	// (UPDATE ... WHERE status = $pending), kept here
	// as a secondary guard: even if two transactions somehow raced past the
	// SKIP LOCKED select (they cannot under Postgres's row-lock semantics),
	// this WHERE clause would make the loser's UPDATE affect zero rows.
	claimUpdateSQL = `
UPDATE jobs SET status = 'processing', started_at = $2
WHERE id = $1 AND status = 'queued'`

	updateStatusSQL = `
UPDATE jobs SET status = $2, error = $3, completed_at = $4
WHERE id = $1 AND status NOT IN ('completed', 'failed')`

	setResultSummarySQL = `
UPDATE jobs SET result_summary = $2
WHERE id = $1`

	getJobSQL = `
SELECT id, user_id, status, priority, job_type, config, created_at, scheduled_at,
       started_at, completed_at, retry_count, max_retries, error, result_summary,
       enable_ai_extraction, extraction_schema
FROM jobs WHERE id = $1`

	listJobsSQL = `
SELECT id, user_id, status, priority, job_type, config, created_at, scheduled_at,
       started_at, completed_at, retry_count, max_retries, error, result_summary,
       enable_ai_extraction, extraction_schema
FROM jobs WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
)

// Queue implements interfaces.DurableQueue against PostgreSQL.
type Queue struct {
	db     *sql.DB
	logger *common.Logger
}

// Open connects to Postgres and configures the pool per common.DatabaseConfig.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *common.Logger) (*Queue, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("sql queue: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.GetConnMaxLifetime())

	pingCtx, cancel := context.WithTimeout(ctx, cfg.GetAcquireTimeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("sql queue: ping: %w", err)
	}

	return &Queue{db: db, logger: logger}, nil
}

// Close releases the connection pool.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue inserts a Job with status=Queued.
func (q *Queue) Enqueue(ctx context.Context, job *models.Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = models.JobStatusQueued
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	_, err := q.db.ExecContext(ctx, insertJobSQL,
		job.ID, job.UserID, job.Status, job.Priority, job.JobType, rawOrNull(job.Config), job.CreatedAt,
		job.ScheduledAt, job.RetryCount, job.MaxRetries, job.EnableAIExtraction, rawOrNull(job.ExtractionSchema))
	if err != nil {
		return "", common.WrapError(common.KindTransientExternal, "sql_queue", "enqueue failed", err)
	}
	return job.ID, nil
}

// Dequeue atomically claims the single highest-priority Queued job, per
// the claim algorithm: SELECT ... FOR UPDATE SKIP LOCKED, then a
// conditional UPDATE inside the same transaction.
func (q *Queue) Dequeue(ctx context.Context) (*models.Job, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "sql_queue", "begin tx failed", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, dequeueSelectSQL)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "sql_queue", "dequeue select failed", err)
	}

	startedAt := time.Now().UTC()
	res, err := tx.ExecContext(ctx, claimUpdateSQL, job.ID, startedAt)
	if err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "sql_queue", "dequeue claim failed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "sql_queue", "dequeue claim rowsaffected failed", err)
	}
	if affected == 0 {
		// Lost the race to another transaction despite SKIP LOCKED excluding it;
		// treat as "nothing to dequeue this tick" rather than erroring.
		if err := tx.Commit(); err != nil {
			return nil, common.WrapError(common.KindTransientExternal, "sql_queue", "commit failed", err)
		}
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "sql_queue", "commit failed", err)
	}

	job.Status = models.JobStatusProcessing
	job.StartedAt = &startedAt
	return job, nil
}

// UpdateStatus transitions a job to a terminal/retry state.
func (q *Queue) UpdateStatus(ctx context.Context, id string, status models.JobStatus, errMsg string) error {
	var completedAt *time.Time
	if status.IsTerminal() {
		now := time.Now().UTC()
		completedAt = &now
	}
	res, err := q.db.ExecContext(ctx, updateStatusSQL, id, status, errMsg, completedAt)
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "sql_queue", "update_status failed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "sql_queue", "update_status rowsaffected failed", err)
	}
	if affected == 0 {
		return common.NewError(common.KindNotFound, "sql_queue", fmt.Sprintf("job %s not found", id))
	}
	return nil
}

// SetResultSummary records a pipeline's terminal result payload, written
// right before the status transitions to Completed.
func (q *Queue) SetResultSummary(ctx context.Context, id string, summary json.RawMessage) error {
	res, err := q.db.ExecContext(ctx, setResultSummarySQL, id, rawOrNull(summary))
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "sql_queue", "set_result_summary failed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "sql_queue", "set_result_summary rowsaffected failed", err)
	}
	if affected == 0 {
		return common.NewError(common.KindNotFound, "sql_queue", fmt.Sprintf("job %s not found", id))
	}
	return nil
}

// GetJob is a point read.
func (q *Queue) GetJob(ctx context.Context, id string) (*models.Job, error) {
	row := q.db.QueryRowContext(ctx, getJobSQL, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewError(common.KindNotFound, "sql_queue", fmt.Sprintf("job %s not found", id))
	}
	if err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "sql_queue", "get_job failed", err)
	}
	return job, nil
}

// ListJobs returns a user's jobs, newest first, paginated.
func (q *Queue) ListJobs(ctx context.Context, userID string, limit, offset int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.db.QueryContext(ctx, listJobsSQL, userID, limit, offset)
	if err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "sql_queue", "list_jobs failed", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, common.WrapError(common.KindTransientExternal, "sql_queue", "list_jobs scan failed", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var config, extractionSchema, resultSummary []byte
	if err := row.Scan(
		&job.ID, &job.UserID, &job.Status, &job.Priority, &job.JobType, &config, &job.CreatedAt,
		&job.ScheduledAt, &job.StartedAt, &job.CompletedAt, &job.RetryCount, &job.MaxRetries,
		&job.Error, &resultSummary, &job.EnableAIExtraction, &extractionSchema,
	); err != nil {
		return nil, err
	}
	job.Config = config
	job.ExtractionSchema = extractionSchema
	job.ResultSummary = resultSummary
	return &job, nil
}

func rawOrNull(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
