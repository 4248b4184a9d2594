package engine_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MostafaRabia/payin-task/internal/domain"
	"github.com/MostafaRabia/payin-task/internal/store"
)

// TestScenarioS6 mirrors the spec's S6: a fully serial sequence of holds,
// orders, and a webhook failure against stock=5 must leave total_stock=1.
func TestScenarioS6(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 5)

	hold1, err := env.holds.CreateHold(context.Background(), p.ID, 3)
	require.NoError(t, err)

	hold2, err := env.holds.CreateHold(context.Background(), p.ID, 2)
	require.NoError(t, err)

	_, err = env.holds.CreateHold(context.Background(), p.ID, 1)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.orders.CreateOrder(context.Background(), hold1.ID)
	require.NoError(t, err)

	_, err = env.orders.CreateOrder(context.Background(), hold2.ID)
	require.NoError(t, err)

	result, err := env.webhooks.HandleWebhook(context.Background(), "k-hold2", hold2.ID, "failed")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)

	hold3, err := env.holds.CreateHold(context.Background(), p.ID, 1)
	require.NoError(t, err)
	require.NotEmpty(t, hold3.ID)

	err = env.store.WithTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		got, err := tx.LockProduct(ctx, p.ID)
		require.NoError(t, err)
		require.Equal(t, int64(1), got.TotalStock)
		return nil
	})
	require.NoError(t, err)
}

// TestLawIdempotence exercises the spec's idempotence law directly: repeating
// a webhook call with the same key any number of times leaves state
// unchanged after the first call.
func TestLawIdempotence(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 10)
	hold, err := env.holds.CreateHold(context.Background(), p.ID, 2)
	require.NoError(t, err)
	order, err := env.orders.CreateOrder(context.Background(), hold.ID)
	require.NoError(t, err)

	first, err := env.webhooks.HandleWebhook(context.Background(), "k", hold.ID, "paid")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := env.webhooks.HandleWebhook(context.Background(), "k", hold.ID, "paid")
		require.NoError(t, err)
		require.Equal(t, first.Body, again.Body)
		require.Equal(t, first.StatusCode, again.StatusCode)
	}

	err = env.store.WithTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		got, err := tx.Order(ctx, order.ID)
		require.NoError(t, err)
		require.Equal(t, domain.OrderPaid, got.Status)
		return nil
	})
	require.NoError(t, err)
}

// TestLawEarlyWebhookCommutativity exercises the spec's commutativity law:
// whether the webhook arrives before or after order creation, the end state
// is identical given the same payload and key.
func TestLawEarlyWebhookCommutativity(t *testing.T) {
	env := newTestEnv(t)

	// Arrives after.
	pAfter := env.seedProduct(t, 10)
	holdAfter, err := env.holds.CreateHold(context.Background(), pAfter.ID, 2)
	require.NoError(t, err)
	orderAfter, err := env.orders.CreateOrder(context.Background(), holdAfter.ID)
	require.NoError(t, err)
	_, err = env.webhooks.HandleWebhook(context.Background(), "k-after", holdAfter.ID, "paid")
	require.NoError(t, err)

	// Arrives before.
	pBefore := env.seedProduct(t, 10)
	holdBefore, err := env.holds.CreateHold(context.Background(), pBefore.ID, 2)
	require.NoError(t, err)
	_, err = env.webhooks.HandleWebhook(context.Background(), "k-before", holdBefore.ID, "paid")
	require.NoError(t, err)
	orderBefore, err := env.orders.CreateOrder(context.Background(), holdBefore.ID)
	require.NoError(t, err)
	require.NoError(t, env.reconciler.Reconcile(context.Background(), orderBefore.ID))

	err = env.store.WithTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		gotAfter, err := tx.Order(ctx, orderAfter.ID)
		require.NoError(t, err)
		gotBefore, err := tx.Order(ctx, orderBefore.ID)
		require.NoError(t, err)
		require.Equal(t, gotAfter.Status, gotBefore.Status)

		productAfter, err := tx.LockProduct(ctx, pAfter.ID)
		require.NoError(t, err)
		productBefore, err := tx.LockProduct(ctx, pBefore.ID)
		require.NoError(t, err)
		require.Equal(t, productAfter.TotalStock, productBefore.TotalStock)

		_, err = tx.PendingWebhookByHoldID(ctx, holdAfter.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tx.PendingWebhookByHoldID(ctx, holdBefore.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}
