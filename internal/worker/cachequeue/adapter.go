// Package cachequeue adapts interfaces.DistributedQueue to interfaces.JobSource,
// the second worker backend, used for low-latency jobs.
package cachequeue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chronocoders/indexnode/internal/interfaces"
)

// Adapter wraps a DistributedQueue so the worker dispatch loop can drive it
// through the backend-agnostic JobSource surface.
type Adapter struct {
	queue        interfaces.DistributedQueue
	workerID     string
	pollInterval time.Duration
}

// New builds an Adapter bound to workerID, the identity the distributed
// queue uses to attribute a processing lease.
func New(queue interfaces.DistributedQueue, workerID string, pollInterval time.Duration) *Adapter {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Adapter{queue: queue, workerID: workerID, pollInterval: pollInterval}
}

// Next dequeues the next distributed job, or sleeps for pollInterval and
// returns (nil, nil) if none was waiting.
func (a *Adapter) Next(ctx context.Context) (*interfaces.WorkItem, error) {
	job, err := a.queue.Dequeue(ctx, a.workerID)
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
		Config:             job.Payload,
		UserID:             job.UserID,
		EnableAIExtraction: job.EnableAIExtraction,
		ExtractionSchema:   job.ExtractionSchema,
		DistributedJob:     job,
	}, nil
}

// Complete removes the job from the cache queue entirely; there is no
// terminal-status row to retain for a distributed job.
func (a *Adapter) Complete(ctx context.Context, item *interfaces.WorkItem) error {
	return a.queue.Complete(ctx, item.ID)
}

// Fail routes back through Retry rather than a direct status update —
// the distributed queue increments retry_count and only dead-letters the
// job once it reaches max_retries, unlike the durable queue's immediate
// update_status(Failed).
func (a *Adapter) Fail(ctx context.Context, item *interfaces.WorkItem, err error) error {
	return a.queue.Retry(ctx, item.DistributedJob)
}

// WriteResultSummary is a no-op: a distributed job's row is deleted on
// Complete, so there is nowhere durable left to hold a summary by the time
// the pipeline finishes.
func (a *Adapter) WriteResultSummary(ctx context.Context, item *interfaces.WorkItem, summary json.RawMessage) error {
	return nil
}

var _ interfaces.JobSource = (*Adapter)(nil)
