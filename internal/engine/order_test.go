package engine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/MostafaRabia/payin-task/internal/domain"
)

func TestCreateOrderUnknownOrNonPendingHold(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orders.CreateOrder(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateOrderComputesTotalAmountAndCompletesHold(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 10) // price 10 per unit, seeded in testEnv.seedProduct
	hold, err := env.holds.CreateHold(context.Background(), p.ID, 3)
	require.NoError(t, err)

	order, err := env.orders.CreateOrder(context.Background(), hold.ID)
	require.NoError(t, err)
	require.True(t, order.TotalAmount.Equal(decimal.NewFromInt(30)))
	require.Equal(t, domain.OrderPending, order.Status)
	require.Equal(t, order.ID, env.dispatcher.last())
}

func TestCreateOrderSecondAttemptFailsOnDuplicate(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 10)
	hold, err := env.holds.CreateHold(context.Background(), p.ID, 1)
	require.NoError(t, err)

	_, err = env.orders.CreateOrder(context.Background(), hold.ID)
	require.NoError(t, err)

	_, err = env.orders.CreateOrder(context.Background(), hold.ID)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestScenarioS2 mirrors the spec's S2: 10 concurrent order attempts against
// a single hold must yield exactly one success.
func TestScenarioS2(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 100)
	hold, err := env.holds.CreateHold(context.Background(), p.ID, 10)
	require.NoError(t, err)

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, failures := 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.orders.CreateOrder(context.Background(), hold.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				failures++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, 9, failures)
}
