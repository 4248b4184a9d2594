package engine

import (
	"context"

	"github.com/MostafaRabia/payin-task/internal/cache"
	"github.com/MostafaRabia/payin-task/internal/domain"
	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
	"github.com/MostafaRabia/payin-task/internal/store"
)

// Reconciler is the reconciliation task (C7): it joins a parked payment
// result with the order that was created after it arrived.
type Reconciler struct {
	store  *store.Store
	cache  cache.Invalidator
	logger *zaplogrus.Logger
}

// NewReconciler builds a Reconciler.
func NewReconciler(s *store.Store, c cache.Invalidator, logger *zaplogrus.Logger) *Reconciler {
	if logger == nil {
		logger = zaplogrus.New()
	}
	return &Reconciler{store: s, cache: c, logger: logger}
}

// Reconcile consumes any PendingWebhook parked for orderID's hold. A no-op if
// none exists — the common case where the webhook arrives after the order.
func (r *Reconciler) Reconcile(ctx context.Context, orderID string) error {
	return r.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			if store.IsNotFound(err) {
				return nil
			}
			return err
		}

		pending, err := tx.PendingWebhookByHoldID(ctx, order.HoldID)
		if err != nil {
			if store.IsNotFound(err) {
				return nil
			}
			return err
		}

		// Read status before deleting the row — spec §9's use-after-free fix.
		status := pending.Status

		if err := tx.SetOrderStatus(ctx, order.ID, domain.OrderStatus(status)); err != nil {
			return err
		}
		if err := tx.DeletePendingWebhook(ctx, pending.ID); err != nil {
			return err
		}

		if status == domain.PendingWebhookStatus(domain.OrderFailed) {
			hold, err := tx.Hold(ctx, order.HoldID)
			if err != nil {
				return err
			}
			product, err := tx.LockProduct(ctx, hold.ProductID)
			if err != nil {
				return err
			}
			if err := tx.SetProductStock(ctx, hold.ProductID, product.TotalStock+hold.Qty); err != nil {
				return err
			}
			productID := hold.ProductID
			tx.AfterCommit(func() {
				if err := r.cache.Invalidate(context.Background(), productID); err != nil {
					r.logger.WithError(err).Warn("reconcile: cache invalidation failed")
				}
			})
		}
		return nil
	})
}
