// Package engine holds the four transactional operations that make up the
// checkout core: hold creation, order creation, webhook handling, and the
// background reconciliation/expiration jobs that repair the edges between
// them.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/MostafaRabia/payin-task/internal/cache"
	"github.com/MostafaRabia/payin-task/internal/clock"
	"github.com/MostafaRabia/payin-task/internal/domain"
	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
	"github.com/MostafaRabia/payin-task/internal/store"
)

// Holds is the hold engine (C4).
type Holds struct {
	store  *store.Store
	cache  cache.Invalidator
	clock  clock.Clock
	ttl    time.Duration
	logger *zaplogrus.Logger
}

// NewHolds builds a Holds engine. ttl is HOLD_TTL; callers default it to
// 120 seconds when unset.
func NewHolds(s *store.Store, c cache.Invalidator, clk clock.Clock, ttl time.Duration, logger *zaplogrus.Logger) *Holds {
	if logger == nil {
		logger = zaplogrus.New()
	}
	return &Holds{store: s, cache: c, clock: clk, ttl: ttl, logger: logger}
}

// CreateHold reserves qty units of productID. qty must be positive.
func (h *Holds) CreateHold(ctx context.Context, productID string, qty int64) (*domain.Hold, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("qty must be positive: %w", domain.ErrInvalidInput)
	}

	var hold *domain.Hold
	err := h.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		product, err := tx.LockProduct(ctx, productID)
		if err != nil {
			if store.IsNotFound(err) {
				return fmt.Errorf("product does not exist: %w", domain.ErrInvalidInput)
			}
			return err
		}

		if product.TotalStock < qty {
			return fmt.Errorf("insufficient stock: %w", domain.ErrInvalidInput)
		}

		expiresAt := h.clock.Now().Add(h.ttl)
		hold, err = tx.CreateHold(ctx, productID, qty, expiresAt)
		if err != nil {
			return err
		}

		if err := tx.SetProductStock(ctx, productID, product.TotalStock-qty); err != nil {
			return err
		}

		tx.AfterCommit(func() {
			if err := h.cache.Invalidate(context.Background(), productID); err != nil {
				h.logger.WithError(err).Warn("hold: cache invalidation failed")
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hold, nil
}
