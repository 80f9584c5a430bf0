package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronocoders/indexnode/internal/common"
	"github.com/chronocoders/indexnode/internal/models"
	"github.com/chronocoders/indexnode/internal/testutil"
)

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	uri := testutil.NewRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q, err := Open(ctx, common.CacheConfig{URL: uri}, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestQueue_EnqueueDequeue_RoundTrip(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	job := &models.DistributedJob{ID: "job-1", JobType: models.JobTypeHttpCrawl, Priority: 50, MaxRetries: 3}
	require.NoError(t, q.Enqueue(ctx, job))

	got, err := q.Dequeue(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "job-1", got.ID)
}

func TestQueue_Dequeue_EmptyReturnsNil(t *testing.T) {
	q := openTestQueue(t)
	job, err := q.Dequeue(context.Background(), "worker-1")
	require.NoError(t, err)
	assert.Nil(t, job)
}

// TestQueue_Dequeue_HighPriorityPreemptsLow exercises the queue's
// across-bucket ordering: a higher priority always preempts a lower one.
func TestQueue_Dequeue_HighPriorityPreemptsLow(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	low := &models.DistributedJob{ID: "low", Priority: 1, MaxRetries: 3, CreatedAt: time.Now().Add(-time.Minute)}
	high := &models.DistributedJob{ID: "high", Priority: 99, MaxRetries: 3, CreatedAt: time.Now()}

	require.NoError(t, q.Enqueue(ctx, low))
	require.NoError(t, q.Enqueue(ctx, high))

	got, err := q.Dequeue(ctx, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "high", got.ID)
}

// TestQueue_Dequeue_FIFOWithinBucket exercises the within-bucket
// ordering: earliest created_at dequeued first.
func TestQueue_Dequeue_FIFOWithinBucket(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	first := &models.DistributedJob{ID: "first", Priority: 10, MaxRetries: 3, CreatedAt: time.Now().Add(-time.Minute)}
	second := &models.DistributedJob{ID: "second", Priority: 10, MaxRetries: 3, CreatedAt: time.Now()}

	require.NoError(t, q.Enqueue(ctx, second))
	require.NoError(t, q.Enqueue(ctx, first))

	got, err := q.Dequeue(ctx, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.ID)
}

func TestQueue_Retry_RequeuesBelowMaxRetries(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	job := &models.DistributedJob{ID: "job-1", Priority: 5, MaxRetries: 3, RetryCount: 0}
	require.NoError(t, q.Enqueue(ctx, job))
	dequeued, err := q.Dequeue(ctx, "worker-1")
	require.NoError(t, err)

	require.NoError(t, q.Retry(ctx, dequeued))

	got, err := q.Dequeue(ctx, "worker-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "job-1", got.ID)
	assert.Equal(t, 1, got.RetryCount)
}

// TestQueue_Retry_DeadLettersAtMaxRetries exercises the max-retries scenario:
// a job with max_retries=2 is retried twice and ends up exactly in
// dead_letter, absent from buckets and processing markers.
func TestQueue_Retry_DeadLettersAtMaxRetries(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	job := &models.DistributedJob{ID: "job-1", Priority: 5, MaxRetries: 2, RetryCount: 0}
	require.NoError(t, q.Enqueue(ctx, job))

	for i := 0; i < 2; i++ {
		dequeued, err := q.Dequeue(ctx, "worker-1")
		require.NoError(t, err)
		require.NotNilf(t, dequeued, "expected job to be present for retry round %d", i)
		require.NoError(t, q.Retry(ctx, dequeued))
	}

	// After 2 retries, RetryCount is 2 == MaxRetries: dead-lettered.
	got, err := q.Dequeue(ctx, "worker-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	deadLen, err := q.client.LLen(ctx, deadLetterKey).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, deadLen)
}

func TestQueue_Complete_DeletesProcessingMarker(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	job := &models.DistributedJob{ID: "job-1", Priority: 5, MaxRetries: 3}
	_ = q.Enqueue(ctx, job)
	_, _ = q.Dequeue(ctx, "worker-1")

	require.NoError(t, q.Complete(ctx, "job-1"))

	exists, err := q.client.Exists(ctx, processingKey("job-1")).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestQueue_QueueStats_ReportsNonEmptyBucketsAndDeadLetter(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	_ = q.Enqueue(ctx, &models.DistributedJob{ID: "a", Priority: 10, MaxRetries: 1})
	_ = q.Enqueue(ctx, &models.DistributedJob{ID: "b", Priority: 10, MaxRetries: 1})
	_ = q.Enqueue(ctx, &models.DistributedJob{ID: "c", Priority: 20, MaxRetries: 1})

	depths, deadLen, err := q.QueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), depths[10])
	assert.Equal(t, int64(1), depths[20])
	assert.Equal(t, int64(0), deadLen)
}
