// Package interfaces defines the service contracts the queue, worker,
// coordinator, and thin HTTP adapter packages depend on, so that each can be
// tested against an in-memory fake without importing the concrete
// Postgres/Redis/go-ethereum implementations.
package interfaces

import (
	"context"
	"encoding/json"

	"github.com/chronocoders/indexnode/internal/models"
)

// DurableQueue is the SQL-backed job queue.
type DurableQueue interface {
	Enqueue(ctx context.Context, job *models.Job) (string, error)
	Dequeue(ctx context.Context) (*models.Job, error)
	UpdateStatus(ctx context.Context, id string, status models.JobStatus, errMsg string) error
	SetResultSummary(ctx context.Context, id string, summary json.RawMessage) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context, userID string, limit, offset int) ([]*models.Job, error)
}

// DistributedQueue is the cache-backed priority queue.
type DistributedQueue interface {
	Enqueue(ctx context.Context, job *models.DistributedJob) error
	Dequeue(ctx context.Context, workerID string) (*models.DistributedJob, error)
	Complete(ctx context.Context, id string) error
	Retry(ctx context.Context, job *models.DistributedJob) error
	QueueStats(ctx context.Context) (map[int]int64, int64, error) // priority -> depth, dead-letter length
}

// JobSource unifies DurableQueue and DistributedQueue behind the single
// surface the worker runtime's dispatch loop drives, so one implementation
// serves both queue backends (see the adapters in internal/worker/sqlqueue
// and internal/worker/cachequeue).
type JobSource interface {
	// Next blocks (subject to ctx) until a job is available or the poll
	// interval elapses with none found, returning (nil, nil) in the latter case.
	Next(ctx context.Context) (*WorkItem, error)
	// Complete marks the work item successfully finished.
	Complete(ctx context.Context, item *WorkItem) error
	// Fail routes the failure per the backend's error-propagation policy:
	// durable jobs transition to Failed directly; distributed jobs retry/dead-letter.
	Fail(ctx context.Context, item *WorkItem, err error) error
	// WriteResultSummary persists a pipeline's result summary against the
	// work item, where the backend has somewhere durable to put it. The
	// distributed queue deletes a job's row on completion (no summary
	// column survives it), so cachequeue's implementation is a no-op.
	WriteResultSummary(ctx context.Context, item *WorkItem, summary json.RawMessage) error
}

// WorkItem is the backend-agnostic unit the worker dispatch loop executes.
// Exactly one of DurableJob / DistributedJob is set, matching the backend
// the JobSource was constructed against.
type WorkItem struct {
	ID             string
	JobType        models.JobType
	Config         []byte // raw job_type-specific parameters, from either backend
	UserID         string
	EnableAIExtraction bool
	ExtractionSchema   []byte

	DurableJob     *models.Job
	DistributedJob *models.DistributedJob
}
