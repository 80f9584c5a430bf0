// Package coordinator implements interfaces.Coordinator:
// worker registration, heartbeat, and queue-depth stats reporting over
// Redis. It never makes scheduling decisions; see internal/storage/cache
// for the actual queue it reports stats from.
package coordinator

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/interfaces"
	"github.com/chronocoders/indexnode/internal/storage/cache"
)

const heartbeatKeyPrefix = "worker:"
const heartbeatKeySuffix = ":heartbeat"

// Coordinator implements interfaces.Coordinator against a shared Redis
// connection (the same one the cache-backed distributed queue uses).
type Coordinator struct {
	client *redis.Client
	queue  *cache.Queue
	logger *common.Logger
}

// New builds a Coordinator. queue is optional — pass nil when only worker
// registration/heartbeat is needed (e.g. from inside a worker process that
// itself drives a durable-SQL queue instead of the cache queue).
func New(client *redis.Client, queue *cache.Queue, logger *common.Logger) *Coordinator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Coordinator{client: client, queue: queue, logger: logger}
}

func heartbeatKey(workerID string) string {
	return heartbeatKeyPrefix + workerID + heartbeatKeySuffix
}

// RegisterWorker sets the worker's heartbeat key for the first time.
// Identical to Heartbeat — both are defined as "set
// worker:{id}:heartbeat to current timestamp, TTL 60s".
func (c *Coordinator) RegisterWorker(ctx context.Context, workerID string) error {
	return c.Heartbeat(ctx, workerID)
}

// Heartbeat refreshes the worker's TTL-bound liveness marker.
func (c *Coordinator) Heartbeat(ctx context.Context, workerID string) error {
	err := c.client.Set(ctx, heartbeatKey(workerID), nowUnix(), common.FreshnessWorkerHeartbeat*2).Err()
	if err != nil {
		return common.WrapError(common.KindTransientExternal, "coordinator", "heartbeat failed", err)
	}
	return nil
}

// GetActiveWorkers scans heartbeat keys and returns the worker ids whose
// liveness marker has not expired.
func (c *Coordinator) GetActiveWorkers(ctx context.Context) ([]string, error) {
	var workers []string
	iter := c.client.Scan(ctx, 0, heartbeatKeyPrefix+"*"+heartbeatKeySuffix, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := strings.TrimSuffix(strings.TrimPrefix(key, heartbeatKeyPrefix), heartbeatKeySuffix)
		if id != "" {
			workers = append(workers, id)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, common.WrapError(common.KindTransientExternal, "coordinator", "scan active workers failed", err)
	}
	return workers, nil
}

// GetQueueStats reports per-priority-bucket depths, dead-letter length, and
// active worker count.
func (c *Coordinator) GetQueueStats(ctx context.Context) (interfaces.QueueStats, error) {
	if c.queue == nil {
		return interfaces.QueueStats{}, common.NewError(common.KindFatal, "coordinator", "no queue configured for stats reporting")
	}
	depths, deadLetterLen, err := c.queue.QueueStats(ctx)
	if err != nil {
		return interfaces.QueueStats{}, err
	}
	workers, err := c.GetActiveWorkers(ctx)
	if err != nil {
		return interfaces.QueueStats{}, err
	}
	return interfaces.QueueStats{
		PriorityDepths: depths,
		DeadLetterLen:  deadLetterLen,
		ActiveWorkers:  len(workers),
	}, nil
}

func nowUnix() string {
	return strconv.FormatInt(time.Now().UTC().Unix(), 10)
}

var _ interfaces.Coordinator = (*Coordinator)(nil)
