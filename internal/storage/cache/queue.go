// Package cache implements the distributed priority queue
// against Redis (key prefixing per concern, stats read directly with
// ZCard/LLen), generalized from per-job-type queues to
// per-priority sorted-set buckets.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/models"
)

const (
	priorityKeyPrefix = "queue:priority:"
	deadLetterKey     = "queue:dead_letter"
	processingPrefix  = "processing:"

	minPriority = 0
	maxPriority = 100

	processingTTL = common.FreshnessProcessingLease
)

// Queue implements interfaces.DistributedQueue against Redis.
type Queue struct {
	client *redis.Client
	logger *common.Logger
}

// Open connects to Redis per common.CacheConfig.
func Open(ctx context.Context, cfg common.CacheConfig, logger *common.Logger) (*Queue, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("cache queue: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("cache queue: ping: %w", err)
	}

	return &Queue{client: client, logger: logger}, nil
}

// Close releases the Redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}

// Client exposes the underlying Redis connection so the coordinator can
// share it rather than opening a second one.
func (q *Queue) Client() *redis.Client {
	return q.client
}

func priorityKey(priority int) string {
	return fmt.Sprintf("%s%d", priorityKeyPrefix, priority)
}

func processingKey(jobID string) string {
	return processingPrefix + jobID
}

// Enqueue inserts a DistributedJob into its priority bucket, scored by
// created_at epoch seconds.
func (q *Queue) Enqueue(ctx context.Context, job *models.DistributedJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return common.WrapError(common.KindInputInvalid, "cache_queue", "marshal job failed", err)
	}

	err = q.client.ZAdd(ctx, priorityKey(job.Priority), redis.Z{
		Score:  float64(job.CreatedAt.Unix()),
		Member: payload,
	}).Err()
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "cache_queue", "enqueue failed", err)
	}
	return nil
}

// Dequeue scans priority buckets from maxPriority down to minPriority,
// popping the smallest-scored (earliest-created) member of the first
// non-empty bucket, and marks it as claimed by worker_id with a TTL-bound
// processing marker.
func (q *Queue) Dequeue(ctx context.Context, workerID string) (*models.DistributedJob, error) {
	for p := maxPriority; p >= minPriority; p-- {
		key := priorityKey(p)
		popped, err := q.client.ZPopMin(ctx, key, 1).Result()
		if err != nil {
			return nil, common.WrapError(common.KindTransientExternal, "cache_queue", "dequeue zpopmin failed", err)
		}
		if len(popped) == 0 {
			continue
		}

		var job models.DistributedJob
		payload := popped[0].Member.(string)
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return nil, common.WrapError(common.KindPermanentExternal, "cache_queue", "dequeue unmarshal failed", err)
		}

		if err := q.client.Set(ctx, processingKey(job.ID), workerID, processingTTL).Err(); err != nil {
			return nil, common.WrapError(common.KindTransientExternal, "cache_queue", "dequeue claim-marker failed", err)
		}
		return &job, nil
	}
	return nil, nil
}

// Complete deletes the processing marker.
func (q *Queue) Complete(ctx context.Context, id string) error {
	if err := q.client.Del(ctx, processingKey(id)).Err(); err != nil {
		return common.WrapError(common.KindTransientExternal, "cache_queue", "complete failed", err)
	}
	return nil
}

// Retry increments retry_count; once it reaches max_retries the job is moved verbatim
// to queue:dead_letter and never re-enqueued, per the dead-letter
// policy. Otherwise it is re-enqueued into its priority bucket. Either way
// the processing marker is cleared first so the job is never visible in
// more than one of {bucket, processing marker, dead_letter} at once.
func (q *Queue) Retry(ctx context.Context, job *models.DistributedJob) error {
	if err := q.client.Del(ctx, processingKey(job.ID)).Err(); err != nil {
		return common.WrapError(common.KindTransientExternal, "cache_queue", "retry clear-marker failed", err)
	}

	job.RetryCount++
	if job.RetryCount >= job.MaxRetries {
		payload, err := json.Marshal(job)
		if err != nil {
			return common.WrapError(common.KindInputInvalid, "cache_queue", "retry marshal failed", err)
		}
		if err := q.client.RPush(ctx, deadLetterKey, payload).Err(); err != nil {
			return common.WrapError(common.KindTransientExternal, "cache_queue", "dead-letter push failed", err)
		}
		if q.logger != nil {
			q.logger.Warn().Str("job_id", job.ID).Int("retry_count", job.RetryCount).Msg("job moved to dead letter")
		}
		return nil
	}

	return q.Enqueue(ctx, job)
}

// QueueStats returns the depth of each non-empty priority bucket and the
// dead-letter list length, for the coordinator's liveness/stats surface.
func (q *Queue) QueueStats(ctx context.Context) (map[int]int64, int64, error) {
	depths := make(map[int]int64)
	for p := minPriority; p <= maxPriority; p++ {
		count, err := q.client.ZCard(ctx, priorityKey(p)).Result()
		if err != nil {
			return nil, 0, common.WrapError(common.KindTransientExternal, "cache_queue", "stats zcard failed", err)
		}
		if count > 0 {
			depths[p] = count
		}
	}

	deadLetterLen, err := q.client.LLen(ctx, deadLetterKey).Result()
	if err != nil {
		return nil, 0, common.WrapError(common.KindTransientExternal, "cache_queue", "stats llen failed", err)
	}
	return depths, deadLetterLen, nil
}
