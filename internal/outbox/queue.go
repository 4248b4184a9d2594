// Package outbox is the C13 transactional-outbox mechanism: a Redis-backed
// queue of reconciliation jobs dispatched only after an order's creating
// transaction commits, drained by a worker pool that calls the reconciler
// with retry and a dead-letter backstop on exhaustion.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job is a reconciliation job: "join any parked payment result for this
// order's hold." There is exactly one job shape in this system, unlike the
// generic multi-type queue this package grew from — no type discriminator or
// priority tiers are needed.
type Job struct {
	OrderID      string     `json:"order_id"`
	CreatedAt    time.Time  `json:"created_at"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `json:"max_attempts"`
}

// Queue manages the reconciliation job queue using Redis.
type Queue struct {
	client      *redis.Client
	namespace   string
	queueKey    string
	scheduleKey string
	deadLetter  string
}

// Config configures a Queue.
type Config struct {
	Namespace   string
	MaxAttempts int
}

// New creates a reconciliation outbox queue.
func New(client *redis.Client, cfg Config) *Queue {
	ns := cfg.Namespace
	if ns == "" {
		ns = "reconcile"
	}
	return &Queue{
		client:      client,
		namespace:   ns,
		queueKey:    fmt.Sprintf("%s:queue", ns),
		scheduleKey: fmt.Sprintf("%s:scheduled", ns),
		deadLetter:  fmt.Sprintf("%s:deadletter", ns),
	}
}

// Enqueue adds a reconciliation job for orderID to the queue.
func (q *Queue) Enqueue(ctx context.Context, orderID string, maxAttempts int) error {
	if q.client == nil {
		return fmt.Errorf("outbox: redis client is nil")
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	job := Job{OrderID: orderID, CreatedAt: time.Now(), MaxAttempts: maxAttempts}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("outbox: marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.queueKey, data).Err(); err != nil {
		return fmt.Errorf("outbox: enqueue: %w", err)
	}
	return nil
}

// Dequeue retrieves the next due job, promoting any scheduled retries whose
// backoff has elapsed first. Returns (nil, nil) when the queue is empty.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	if q.client == nil {
		return nil, fmt.Errorf("outbox: redis client is nil")
	}
	if err := q.promoteScheduled(ctx); err != nil {
		return nil, err
	}

	result, err := q.client.RPop(ctx, q.queueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("outbox: dequeue: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(result), &job); err != nil {
		return nil, fmt.Errorf("outbox: unmarshal job: %w", err)
	}
	job.Attempts++
	return &job, nil
}

// Retry schedules job for a later attempt with exponential backoff, or moves
// it to the dead-letter queue once MaxAttempts is exhausted.
func (q *Queue) Retry(ctx context.Context, job Job, cause error) error {
	if job.Attempts < job.MaxAttempts {
		backoff := time.Duration(1<<uint(job.Attempts-1)) * time.Second
		runAt := time.Now().Add(backoff)
		job.ScheduledFor = &runAt

		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("outbox: marshal retry: %w", err)
		}
		if err := q.client.ZAdd(ctx, q.scheduleKey, redis.Z{Score: float64(runAt.Unix()), Member: data}).Err(); err != nil {
			return fmt.Errorf("outbox: schedule retry: %w", err)
		}
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"job":       job,
		"error":     cause.Error(),
		"failed_at": time.Now(),
	})
	if err != nil {
		return fmt.Errorf("outbox: marshal dead letter: %w", err)
	}
	if err := q.client.LPush(ctx, q.deadLetter, payload).Err(); err != nil {
		return fmt.Errorf("outbox: push dead letter: %w", err)
	}
	return nil
}

// DeadLetterDepth returns how many jobs exhausted their retries.
func (q *Queue) DeadLetterDepth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.deadLetter).Result()
}

// QueueDepth returns how many jobs are immediately ready to run.
func (q *Queue) QueueDepth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueKey).Result()
}

func (q *Queue) promoteScheduled(ctx context.Context) error {
	now := float64(time.Now().Unix())
	items, err := q.client.ZRangeByScore(ctx, q.scheduleKey, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return fmt.Errorf("outbox: scan scheduled: %w", err)
	}

	for _, item := range items {
		if err := q.client.LPush(ctx, q.queueKey, item).Err(); err != nil {
			continue
		}
		if err := q.client.ZRem(ctx, q.scheduleKey, item).Err(); err != nil {
			continue
		}
	}
	return nil
}
