package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MostafaRabia/payin-task/internal/cache"
	"github.com/MostafaRabia/payin-task/internal/domain"
	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
	"github.com/MostafaRabia/payin-task/internal/store"
)

// WebhookResult is the response the webhook engine prepares; callers (HTTP
// handler or engine tests) send it back verbatim.
type WebhookResult struct {
	Body       []byte
	StatusCode int
}

// Webhooks is the webhook engine (C6). Validation of status against a closed
// enum is a C9/HTTP boundary concern (spec §9 open question 1); this engine
// accepts any string and stores it verbatim.
type Webhooks struct {
	store  *store.Store
	cache  cache.Invalidator
	logger *zaplogrus.Logger
}

// NewWebhooks builds a Webhooks engine.
func NewWebhooks(s *store.Store, c cache.Invalidator, logger *zaplogrus.Logger) *Webhooks {
	if logger == nil {
		logger = zaplogrus.New()
	}
	return &Webhooks{store: s, cache: c, logger: logger}
}

// HandleWebhook processes a payment result delivery. idempotencyKey seals the
// response; a replay with the same key returns the sealed body untouched.
func (w *Webhooks) HandleWebhook(ctx context.Context, idempotencyKey, holdID, status string) (*WebhookResult, error) {
	var result *WebhookResult

	err := w.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		if log, err := tx.WebhookLogByKey(ctx, idempotencyKey); err == nil {
			result = &WebhookResult{Body: log.ResponseBody, StatusCode: log.ResponseStatusCode}
			return nil
		} else if !store.IsNotFound(err) {
			return err
		}

		hold, err := tx.LockHold(ctx, holdID)
		if err != nil {
			if !store.IsNotFound(err) {
				return err
			}
			result = &WebhookResult{
				Body:       mustJSON(map[string]string{"msg": "Hold not found"}),
				StatusCode: http.StatusNotFound,
			}
			return w.seal(ctx, tx, idempotencyKey, result)
		}

		alreadyFailed := false
		order, err := tx.OrderByHoldID(ctx, holdID)
		switch {
		case err == nil:
			alreadyFailed = order.Status == domain.OrderFailed
			if err := tx.SetOrderStatus(ctx, order.ID, domain.OrderStatus(status)); err != nil {
				return err
			}
		case store.IsNotFound(err):
			if _, err := tx.CreatePendingWebhook(ctx, holdID, domain.PendingWebhookStatus(status)); err != nil {
				if store.IsUniqueViolation(err) {
					return fmt.Errorf("a payment result is already parked for this hold: %w", domain.ErrConflict)
				}
				return err
			}
		default:
			return err
		}

		// A later delivery that reports failed again for an order already
		// marked failed must not restore the hold's stock a second time
		// (spec §4.4's distinct-event semantics allow the delivery; the
		// restoration it would otherwise trigger is not idempotent).
		if status == string(domain.OrderFailed) && !alreadyFailed {
			product, err := tx.LockProduct(ctx, hold.ProductID)
			if err != nil {
				return err
			}
			if err := tx.SetProductStock(ctx, hold.ProductID, product.TotalStock+hold.Qty); err != nil {
				return err
			}
			productID := hold.ProductID
			tx.AfterCommit(func() {
				if err := w.cache.Invalidate(context.Background(), productID); err != nil {
					w.logger.WithError(err).Warn("webhook: cache invalidation failed")
				}
			})
		}

		result = &WebhookResult{
			Body:       mustJSON(map[string]interface{}{"data": map[string]string{"hold_id": holdID, "status": status}}),
			StatusCode: http.StatusOK,
		}
		return w.seal(ctx, tx, idempotencyKey, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (w *Webhooks) seal(ctx context.Context, tx *store.Tx, idempotencyKey string, result *WebhookResult) error {
	return tx.SealWebhookLog(ctx, idempotencyKey, result.Body, result.StatusCode)
}

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("engine: marshal webhook response: %v", err))
	}
	return b
}
