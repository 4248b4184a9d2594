package engine_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MostafaRabia/payin-task/internal/domain"
	"github.com/MostafaRabia/payin-task/internal/store"
)

func TestHandleWebhookHoldNotFound(t *testing.T) {
	env := newTestEnv(t)
	result, err := env.webhooks.HandleWebhook(context.Background(), "k1", "missing-hold", "paid")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, result.StatusCode)
}

func TestHandleWebhookAppliesToExistingOrder(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 10)
	hold, err := env.holds.CreateHold(context.Background(), p.ID, 2)
	require.NoError(t, err)
	order, err := env.orders.CreateOrder(context.Background(), hold.ID)
	require.NoError(t, err)

	result, err := env.webhooks.HandleWebhook(context.Background(), "k1", hold.ID, "paid")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)

	err = env.store.WithTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		got, err := tx.Order(ctx, order.ID)
		require.NoError(t, err)
		require.Equal(t, domain.OrderPaid, got.Status)
		return nil
	})
	require.NoError(t, err)
}

// TestScenarioS3 mirrors the spec's S3: 20 identical webhook deliveries with
// the same idempotency key must produce byte-identical responses and apply
// the stock restoration exactly once.
func TestScenarioS3(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 100)
	hold, err := env.holds.CreateHold(context.Background(), p.ID, 5)
	require.NoError(t, err)
	order, err := env.orders.CreateOrder(context.Background(), hold.ID)
	require.NoError(t, err)

	var bodies [][]byte
	for i := 0; i < 20; i++ {
		result, err := env.webhooks.HandleWebhook(context.Background(), "k", hold.ID, "failed")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, result.StatusCode)
		bodies = append(bodies, result.Body)
	}
	for i := 1; i < len(bodies); i++ {
		require.Equal(t, bodies[0], bodies[i])
	}

	err = env.store.WithTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		gotOrder, err := tx.Order(ctx, order.ID)
		require.NoError(t, err)
		require.Equal(t, domain.OrderFailed, gotOrder.Status)

		gotProduct, err := tx.LockProduct(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, int64(100), gotProduct.TotalStock)
		return nil
	})
	require.NoError(t, err)
}

// TestHandleWebhookDistinctKeyFailedReplayDoesNotDoubleRestoreStock covers
// spec §4.4's status semantics note: a second delivery with a new
// idempotency key for the same hold is a distinct event that overwrites
// order.status, not a sealed replay. It must not restore stock twice.
func TestHandleWebhookDistinctKeyFailedReplayDoesNotDoubleRestoreStock(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 100)
	hold, err := env.holds.CreateHold(context.Background(), p.ID, 5)
	require.NoError(t, err)
	_, err = env.orders.CreateOrder(context.Background(), hold.ID)
	require.NoError(t, err)

	result, err := env.webhooks.HandleWebhook(context.Background(), "k1", hold.ID, "failed")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)

	result, err = env.webhooks.HandleWebhook(context.Background(), "k2", hold.ID, "failed")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)

	err = env.store.WithTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		gotProduct, err := tx.LockProduct(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, int64(100), gotProduct.TotalStock)
		return nil
	})
	require.NoError(t, err)
}

func TestHandleWebhookEarlyWebhookParksPendingWebhook(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 10)
	hold, err := env.holds.CreateHold(context.Background(), p.ID, 2)
	require.NoError(t, err)

	result, err := env.webhooks.HandleWebhook(context.Background(), "k1", hold.ID, "paid")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)

	err = env.store.WithTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		pending, err := tx.PendingWebhookByHoldID(ctx, hold.ID)
		require.NoError(t, err)
		require.Equal(t, domain.PendingWebhookStatus("paid"), pending.Status)
		return nil
	})
	require.NoError(t, err)
}

func TestHandleWebhookSecondEarlyWebhookIsConflict(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 10)
	hold, err := env.holds.CreateHold(context.Background(), p.ID, 2)
	require.NoError(t, err)

	_, err = env.webhooks.HandleWebhook(context.Background(), "k1", hold.ID, "paid")
	require.NoError(t, err)

	_, err = env.webhooks.HandleWebhook(context.Background(), "k2", hold.ID, "failed")
	require.ErrorIs(t, err, domain.ErrConflict)
}
