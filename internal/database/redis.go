// Package database provides the single Redis connection constructor shared by
// the product cache (C3), the rate limiter (C10), the outbox queue (C13), and
// the sweep leader lock (C14) — everything else the teacher's database
// package covered is now internal/store's responsibility.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MostafaRabia/payin-task/internal/config"
)

// NewRedisClient dials Redis and verifies connectivity with a bounded Ping
// before returning, the same fail-fast-at-startup shape the teacher used for
// every connection constructor.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return client, nil
}

// RedisHealthChecker adapts a *redis.Client to handlers.RedisHealthChecker.
type RedisHealthChecker struct {
	Client *redis.Client
}

// HealthCheck pings Redis.
func (r RedisHealthChecker) HealthCheck(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.Client.Ping(ctx).Err()
}
