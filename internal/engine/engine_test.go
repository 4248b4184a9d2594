package engine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/MostafaRabia/payin-task/internal/cache"
	"github.com/MostafaRabia/payin-task/internal/clock"
	"github.com/MostafaRabia/payin-task/internal/domain"
	"github.com/MostafaRabia/payin-task/internal/engine"
	"github.com/MostafaRabia/payin-task/internal/store"
)

// recordingDispatcher captures dispatched order ids instead of handing them
// to a real queue, so tests can decide exactly when reconciliation runs.
type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, orderID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, orderID)
	return nil
}

func (d *recordingDispatcher) last() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.ids) == 0 {
		return ""
	}
	return d.ids[len(d.ids)-1]
}

type testEnv struct {
	store       *store.Store
	clock       *clock.Fixed
	dispatcher  *recordingDispatcher
	holds       *engine.Holds
	orders      *engine.Orders
	webhooks    *engine.Webhooks
	reconciler  *engine.Reconciler
	sweeper     *engine.Sweeper
	invalidator cache.Invalidator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.OpenSQLite("file:"+t.Name()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	require.NoError(t, s.MigrateSQLite(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	fixed := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	dispatcher := &recordingDispatcher{}
	inv := cache.NoopInvalidator{}

	return &testEnv{
		store:       s,
		clock:       fixed,
		dispatcher:  dispatcher,
		invalidator: inv,
		holds:       engine.NewHolds(s, inv, fixed, 2*time.Minute, nil),
		orders:      engine.NewOrders(s, dispatcher, nil),
		webhooks:    engine.NewWebhooks(s, inv, nil),
		reconciler:  engine.NewReconciler(s, inv, nil),
		sweeper:     engine.NewSweeper(s, inv, fixed, nil),
	}
}

func (e *testEnv) seedProduct(t *testing.T, stock int64) *domain.Product {
	t.Helper()
	var p *domain.Product
	err := e.store.WithTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		var err error
		p, err = tx.CreateProduct(ctx, "widget", stock, decimal.NewFromInt(10))
		return err
	})
	require.NoError(t, err)
	return p
}
