package outbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/MostafaRabia/payin-task/internal/outbox"
)

func newTestQueue(t *testing.T) (*outbox.Queue, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return outbox.New(client, outbox.Config{Namespace: "test-reconcile"}), s
}

func TestEnqueueDequeue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "order-1", 5))

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, "order-1", job.OrderID)
	require.Equal(t, 1, job.Attempts)

	again, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestRetryDeadLettersWhenAttemptsExhausted(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "order-2", 1))
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, job.Attempts)

	require.NoError(t, q.Retry(ctx, *job, require.AnError))

	depth, err := q.DeadLetterDepth(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), depth, "MaxAttempts=1 means the first failed attempt dead-letters immediately")
}

func TestRetryReschedulesBeforeExhaustion(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "order-3", 5))
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Retry(ctx, *job, require.AnError))

	depth, err := q.DeadLetterDepth(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), depth)

	// Attempt 1's backoff is 2^0 = 1 second; the retry becomes dequeuable
	// once real time passes that point (promoteScheduled compares against
	// wall-clock time, not miniredis's virtual clock).
	time.Sleep(1100 * time.Millisecond)

	retried, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, retried)
	require.Equal(t, "order-3", retried.OrderID)
}
