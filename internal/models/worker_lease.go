package models

import "time"

// WorkerLease is keyed by worker_id and owned by the worker that heartbeats
// it. TTL-bound in the cache store (see common.FreshnessWorkerHeartbeat);
// absence of the key means the worker is considered dead. A dead worker's
// in-flight distributed job is reclaimed independently, when its own
// processing:{job_id} marker expires (common.FreshnessProcessingLease) —
// there is no sweep that ties a job back to the worker that claimed it.
type WorkerLease struct {
	WorkerID      string    `json:"worker_id"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}
