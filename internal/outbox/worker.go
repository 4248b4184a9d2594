package outbox

import (
	"context"
	"time"

	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
	"github.com/MostafaRabia/payin-task/internal/services/workerpool"
)

// Reconciler performs one reconciliation attempt for an order. Satisfied by
// *engine.Reconciler; declared locally so this package does not need to
// import engine just for this one method.
type Reconciler interface {
	Reconcile(ctx context.Context, orderID string) error
}

// Worker polls Queue and executes due jobs on a fixed-size pool
// (RECONCILE_WORKERS), matching spec §5's "runs asynchronously on a
// background worker pool".
type Worker struct {
	queue       *Queue
	reconciler  Reconciler
	pool        *workerpool.Pool
	pollEvery   time.Duration
	logger      *zaplogrus.Logger
	stopPolling chan struct{}
}

// NewWorker builds a Worker with the given pool size.
func NewWorker(queue *Queue, reconciler Reconciler, workers int, logger *zaplogrus.Logger) *Worker {
	if logger == nil {
		logger = zaplogrus.New()
	}
	if workers <= 0 {
		workers = 8
	}
	cfg := workerpool.DefaultConfig()
	cfg.Workers = workers
	cfg.QueueSize = workers * 4

	return &Worker{
		queue:       queue,
		reconciler:  reconciler,
		pool:        workerpool.New(cfg),
		pollEvery:   200 * time.Millisecond,
		logger:      logger,
		stopPolling: make(chan struct{}),
	}
}

// Start launches the pool and the polling loop. Run it on its own goroutine.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.pool.Start(); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return w.pool.Stop()
		case <-w.stopPolling:
			return w.pool.Stop()
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

// Stop ends the polling loop and drains the pool.
func (w *Worker) Stop() { close(w.stopPolling) }

func (w *Worker) drainOnce(ctx context.Context) {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.logger.WithError(err).Error("outbox: dequeue failed")
			return
		}
		if job == nil {
			return
		}

		j := *job
		submitErr := w.pool.Submit(workerpool.Task{
			ID: j.OrderID,
			Execute: func() error {
				if err := w.reconciler.Reconcile(context.Background(), j.OrderID); err != nil {
					w.logger.WithError(err).WithField("order_id", j.OrderID).
						Warn("outbox: reconciliation attempt failed, scheduling retry")
					if retryErr := w.queue.Retry(context.Background(), j, err); retryErr != nil {
						w.logger.WithError(retryErr).Error("outbox: failed to schedule retry")
					}
					return err
				}
				return nil
			},
		})
		if submitErr != nil {
			w.logger.WithError(submitErr).Error("outbox: pool submit failed")
			return
		}
	}
}
