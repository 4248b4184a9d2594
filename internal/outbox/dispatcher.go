package outbox

import "context"

// Dispatcher adapts Queue to the engine.Dispatcher interface the order
// engine depends on, so the engine package never imports Redis directly.
type Dispatcher struct {
	queue       *Queue
	maxAttempts int
}

// NewDispatcher builds a Dispatcher. maxAttempts is RECONCILE_MAX_ATTEMPTS.
func NewDispatcher(queue *Queue, maxAttempts int) *Dispatcher {
	return &Dispatcher{queue: queue, maxAttempts: maxAttempts}
}

// Dispatch enqueues a reconciliation job for orderID.
func (d *Dispatcher) Dispatch(ctx context.Context, orderID string) error {
	return d.queue.Enqueue(ctx, orderID, d.maxAttempts)
}
