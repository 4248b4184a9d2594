package engine

import (
	"context"
	"fmt"

	"github.com/MostafaRabia/payin-task/internal/domain"
	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
	"github.com/MostafaRabia/payin-task/internal/store"
)

// Dispatcher schedules a reconciliation job for an order. The only
// requirement (spec §4.5) is "after C5 commit, at-least-once eventually";
// internal/outbox provides the concrete Redis-backed implementation.
type Dispatcher interface {
	Dispatch(ctx context.Context, orderID string) error
}

// Orders is the order engine (C5).
type Orders struct {
	store      *store.Store
	dispatcher Dispatcher
	logger     *zaplogrus.Logger
}

// NewOrders builds an Orders engine.
func NewOrders(s *store.Store, d Dispatcher, logger *zaplogrus.Logger) *Orders {
	if logger == nil {
		logger = zaplogrus.New()
	}
	return &Orders{store: s, dispatcher: d, logger: logger}
}

// CreateOrder creates at most one order for holdID.
func (o *Orders) CreateOrder(ctx context.Context, holdID string) (*domain.Order, error) {
	var order *domain.Order
	err := o.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		hold, err := tx.LockHold(ctx, holdID, domain.HoldPending)
		if err != nil {
			if store.IsNotFound(err) {
				return fmt.Errorf("hold invalid or expired: %w", domain.ErrInvalidInput)
			}
			return err
		}

		product, err := tx.LockProduct(ctx, hold.ProductID)
		if err != nil {
			return err
		}

		totalAmount := product.Price.Mul(decimalFromInt(hold.Qty)).Round(2)

		order, err = tx.CreateOrder(ctx, holdID, totalAmount)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return fmt.Errorf("order already exists for hold: %w", domain.ErrInvalidInput)
			}
			return err
		}

		if err := tx.SetHoldStatus(ctx, holdID, domain.HoldCompleted); err != nil {
			return err
		}

		createdOrderID := order.ID
		tx.AfterCommit(func() {
			if err := o.dispatcher.Dispatch(context.Background(), createdOrderID); err != nil {
				o.logger.WithError(err).WithField("order_id", createdOrderID).
					Error("order: failed to dispatch reconciliation job")
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
