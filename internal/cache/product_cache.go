// Package cache is the read-through product cache (C3's collaborator) plus
// the single invalidation hook the checkout engines call on every stock
// mutation. Lookup policy is deliberately thin — the only contract the
// engines depend on is Invalidator.Invalidate.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MostafaRabia/payin-task/internal/domain"
)

// Invalidator is the narrow interface every stock-mutating engine depends on.
// A single method keeps the engines free of any cache implementation detail.
type Invalidator interface {
	Invalidate(ctx context.Context, productID string) error
}

// ProductCacheStats tracks hit/miss/set counters, surfaced for observability
// only — no engine or handler branches on them.
type ProductCacheStats struct {
	Hits   int64
	Misses int64
	Sets   int64
	mu     sync.RWMutex
}

// ProductCache is a Redis-backed read-through cache for GET /products/{id}.
type ProductCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	stats  ProductCacheStats
	logger logger
}

type logger interface {
	Warnf(format string, args ...interface{})
}

// NewProductCache builds a cache with the given entry TTL (PRODUCT_CACHE_TTL).
// A nil redisClient yields a cache that always misses — used where no Redis
// is configured (tests, minimal deployments) without forcing callers to
// nil-check.
func NewProductCache(redisClient *redis.Client, ttl time.Duration, logger logger) *ProductCache {
	return &ProductCache{redis: redisClient, ttl: ttl, prefix: "product:", logger: logger}
}

// Get returns the cached product, if present and unexpired.
func (c *ProductCache) Get(ctx context.Context, productID string) (*domain.Product, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, c.key(productID)).Result()
	if err == redis.Nil {
		c.recordMiss()
		return nil, false
	}
	if err != nil {
		c.logWarnf("product cache get failed for %s: %v", productID, err)
		c.recordMiss()
		return nil, false
	}

	var p domain.Product
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		c.logWarnf("product cache unmarshal failed for %s: %v", productID, err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	return &p, true
}

// Set populates the cache entry for a product.
func (c *ProductCache) Set(ctx context.Context, p *domain.Product) error {
	if c.redis == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product for cache: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(p.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set product cache: %w", err)
	}
	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
	return nil
}

// Invalidate implements Invalidator. Called by the hold/order/webhook/sweep
// engines on every stock mutation (spec C3: "called on every stock
// mutation").
func (c *ProductCache) Invalidate(ctx context.Context, productID string) error {
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, c.key(productID)).Err(); err != nil {
		return fmt.Errorf("invalidate product cache: %w", err)
	}
	return nil
}

func (c *ProductCache) key(productID string) string { return c.prefix + productID }

func (c *ProductCache) recordHit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
}

func (c *ProductCache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}

func (c *ProductCache) logWarnf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warnf(format, args...)
	}
}

// Stats returns a snapshot of the hit/miss/set counters.
func (c *ProductCache) Stats() ProductCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return ProductCacheStats{Hits: c.stats.Hits, Misses: c.stats.Misses, Sets: c.stats.Sets}
}

// NoopInvalidator is the Invalidator used where no cache is configured
// (tests, CLI one-shot tools): Invalidate is a guaranteed no-op success.
type NoopInvalidator struct{}

func (NoopInvalidator) Invalidate(context.Context, string) error { return nil }
