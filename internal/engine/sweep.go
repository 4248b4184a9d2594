package engine

import (
	"context"

	"github.com/MostafaRabia/payin-task/internal/cache"
	"github.com/MostafaRabia/payin-task/internal/clock"
	"github.com/MostafaRabia/payin-task/internal/domain"
	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
	"github.com/MostafaRabia/payin-task/internal/store"
)

// SweepResult summarizes one pass of the sweeper.
type SweepResult struct {
	Considered int
	Expired    int
}

// Sweeper is the expiration sweeper (C8).
type Sweeper struct {
	store  *store.Store
	cache  cache.Invalidator
	clock  clock.Clock
	logger *zaplogrus.Logger
}

// NewSweeper builds a Sweeper.
func NewSweeper(s *store.Store, c cache.Invalidator, clk clock.Clock, logger *zaplogrus.Logger) *Sweeper {
	if logger == nil {
		logger = zaplogrus.New()
	}
	return &Sweeper{store: s, cache: c, clock: clk, logger: logger}
}

// Run reclaims stock from every pending hold whose deadline has passed.
// Candidates are listed in a read-only pass, then each is re-locked and
// re-checked inside its own short transaction (spec §4.6: "re-check under
// lock is required to avoid double-counting with C5 winning the race").
func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()

	var candidates []domain.Hold
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		candidates, err = tx.PendingHoldsExpiring(ctx, now)
		return err
	})
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Considered: len(candidates)}
	for _, candidate := range candidates {
		expired, err := s.expireOne(ctx, candidate.ID)
		if err != nil {
			return result, err
		}
		if expired {
			result.Expired++
		}
	}
	return result, nil
}

func (s *Sweeper) expireOne(ctx context.Context, holdID string) (bool, error) {
	var productID string
	expired := false

	err := s.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		hold, err := tx.LockHold(ctx, holdID, domain.HoldPending)
		if err != nil {
			if store.IsNotFound(err) {
				// Already completed or expired by a concurrent winner; skip.
				return nil
			}
			return err
		}

		if err := tx.SetHoldStatus(ctx, holdID, domain.HoldExpired); err != nil {
			return err
		}

		product, err := tx.LockProduct(ctx, hold.ProductID)
		if err != nil {
			return err
		}
		if err := tx.SetProductStock(ctx, hold.ProductID, product.TotalStock+hold.Qty); err != nil {
			return err
		}

		productID = hold.ProductID
		expired = true
		tx.AfterCommit(func() {
			if err := s.cache.Invalidate(context.Background(), productID); err != nil {
				s.logger.WithError(err).Warn("sweep: cache invalidation failed")
			}
		})
		return nil
	})
	return expired, err
}
