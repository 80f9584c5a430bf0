// Package sqlqueue adapts interfaces.DurableQueue to interfaces.JobSource,
// the default worker backend.
package sqlqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/models"
)

// Adapter wraps a DurableQueue so the worker dispatch loop can drive it
// through the backend-agnostic JobSource surface.
type Adapter struct {
	queue        interfaces.DurableQueue
	pollInterval time.Duration
}

// New builds an Adapter. pollInterval bounds how long Next sleeps after an
// empty dequeue before returning (nil, nil) to the caller's loop.
func New(queue interfaces.DurableQueue, pollInterval time.Duration) *Adapter {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Adapter{queue: queue, pollInterval: pollInterval}
}

// Next dequeues the next durable job, or sleeps for pollInterval and returns
// (nil, nil) if the queue was empty.
func (a *Adapter) Next(ctx context.Context) (*interfaces.WorkItem, error) {
	job, err := a.queue.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	if job == nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.pollInterval):
			return nil, nil
		}
	}
	return &interfaces.WorkItem{
		ID:                 job.ID,
		JobType:            job.JobType,
		Config:             job.Config,
		UserID:             job.UserID,
		EnableAIExtraction: job.EnableAIExtraction,
		ExtractionSchema:   job.ExtractionSchema,
		DurableJob:         job,
	}, nil
}

// Complete transitions the durable job to Completed.
func (a *Adapter) Complete(ctx context.Context, item *interfaces.WorkItem) error {
	return a.queue.UpdateStatus(ctx, item.ID, models.JobStatusCompleted, "")
}

// Fail transitions the durable job to Failed directly — the
// error taxonomy routes durable-queue jobs straight to update_status rather
// than the distributed queue's retry/dead-letter path.
func (a *Adapter) Fail(ctx context.Context, item *interfaces.WorkItem, err error) error {
	return a.queue.UpdateStatus(ctx, item.ID, models.JobStatusFailed, err.Error())
}

// WriteResultSummary stores the pipeline's result payload on the job row.
func (a *Adapter) WriteResultSummary(ctx context.Context, item *interfaces.WorkItem, summary json.RawMessage) error {
	return a.queue.SetResultSummary(ctx, item.ID, summary)
}

var _ interfaces.JobSource = (*Adapter)(nil)
