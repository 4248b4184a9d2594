package cache_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/MostafaRabia/payin-task/internal/cache"
	"github.com/MostafaRabia/payin-task/internal/domain"
)

func TestNoopInvalidatorAlwaysSucceeds(t *testing.T) {
	var inv cache.Invalidator = cache.NoopInvalidator{}
	require.NoError(t, inv.Invalidate(context.Background(), "p1"))
}

func TestProductCacheWithNilRedisAlwaysMisses(t *testing.T) {
	c := cache.NewProductCache(nil, 0, nil)
	_, ok := c.Get(context.Background(), "p1")
	require.False(t, ok)

	err := c.Set(context.Background(), &domain.Product{ID: "p1", TotalStock: 1, Price: decimal.NewFromInt(1)})
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(context.Background(), "p1"))
}
