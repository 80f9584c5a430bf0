package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/models"
	"github.com/chronocoders/indexnode/internal/storage/cache"
	"github.com/chronocoders/indexnode/internal/testutil"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *cache.Queue) {
	t.Helper()
	uri := testutil.NewRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q, err := cache.Open(ctx, common.CacheConfig{URL: uri}, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	return New(q.Client(), q, common.NewSilentLogger()), q
}

func TestRegisterWorker_ThenActiveWorkersIncludesIt(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.RegisterWorker(ctx, "worker-1"))

	workers, err := c.GetActiveWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "worker-1", workers[0])
}

func TestGetActiveWorkers_EmptyWhenNoneRegistered(t *testing.T) {
	c, _ := newTestCoordinator(t)
	workers, err := c.GetActiveWorkers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, workers)
}

func TestHeartbeat_RefreshesExistingWorkerTTL(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.RegisterWorker(ctx, "worker-1"))
	require.NoError(t, c.Heartbeat(ctx, "worker-1"))

	workers, err := c.GetActiveWorkers(ctx)
	require.NoError(t, err)
	assert.Len(t, workers, 1)
}

func TestGetQueueStats_ReflectsQueueDepthsAndActiveWorkers(t *testing.T) {
	c, q := newTestCoordinator(t)
	ctx := context.Background()

	require.NoError(t, c.RegisterWorker(ctx, "worker-1"))
	require.NoError(t, c.RegisterWorker(ctx, "worker-2"))
	require.NoError(t, q.Enqueue(ctx, &models.DistributedJob{ID: "a", Priority: 5, MaxRetries: 1}))

	stats, err := c.GetQueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PriorityDepths[5])
	assert.Equal(t, 2, stats.ActiveWorkers)
	assert.Equal(t, int64(0), stats.DeadLetterLen)
}

func TestGetQueueStats_NoQueueConfiguredIsFatal(t *testing.T) {
	uri := testutil.NewRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q, err := cache.Open(ctx, common.CacheConfig{URL: uri}, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	c := New(q.Client(), nil, common.NewSilentLogger())
	_, err = c.GetQueueStats(context.Background())
	assert.Equal(t, common.KindFatal, common.KindOf(err))
}
