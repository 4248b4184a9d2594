package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MostafaRabia/payin-task/internal/api"
	"github.com/MostafaRabia/payin-task/internal/cache"
	"github.com/MostafaRabia/payin-task/internal/clock"
	"github.com/MostafaRabia/payin-task/internal/config"
	"github.com/MostafaRabia/payin-task/internal/database"
	"github.com/MostafaRabia/payin-task/internal/engine"
	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
	"github.com/MostafaRabia/payin-task/internal/middleware"
	"github.com/MostafaRabia/payin-task/internal/outbox"
	"github.com/MostafaRabia/payin-task/internal/services/distributedlock"
	"github.com/MostafaRabia/payin-task/internal/store"
)

// main is the entry point for the checkout HTTP server.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, wires the store/cache/engine/outbox stack, and
// serves the checkout API until a termination signal arrives.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := zaplogrus.New()
	logger.SetLevel(zaplogrus.ParseLevel(cfg.LogLevel))

	s, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	rc, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("redis unavailable, continuing with local fallbacks")
		rc = nil
	} else {
		defer func() { _ = rc.Close() }()
	}

	var productCache *cache.ProductCache
	var invalidator cache.Invalidator = cache.NoopInvalidator{}
	if rc != nil {
		productCache = cache.NewProductCache(rc, cfg.Cache.ProductTTL, logger)
		invalidator = productCache
	}

	queue := outbox.New(rc, outbox.Config{Namespace: "reconcile", MaxAttempts: cfg.Reconcile.MaxAttempts})
	dispatcher := outbox.NewDispatcher(queue, cfg.Reconcile.MaxAttempts)

	holds := engine.NewHolds(s, invalidator, clock.Real(), cfg.Hold.TTL, logger)
	orders := engine.NewOrders(s, dispatcher, logger)
	webhooks := engine.NewWebhooks(s, invalidator, logger)
	reconciler := engine.NewReconciler(s, invalidator, logger)
	sweeper := engine.NewSweeper(s, invalidator, clock.Real(), logger)

	worker := outbox.NewWorker(queue, reconciler, cfg.Reconcile.Workers, logger)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	go func() {
		if err := worker.Start(workerCtx); err != nil {
			logger.WithError(err).Error("reconciliation worker stopped")
		}
	}()
	defer stopWorker()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if rc != nil {
		go runSweepLoop(sweepCtx, distributedlock.NewLocker(rc), sweeper, cfg.Sweep.Interval, logger)
	} else {
		go runSweepLoopUnlocked(sweepCtx, sweeper, cfg.Sweep.Interval, logger)
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.HoldsPerMinute > 0 {
		rateLimiter = middleware.NewHoldsRateLimiter(rc, cfg.RateLimit.HoldsPerMinute, nil)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	cleanup := api.SetupRoutes(router, api.Dependencies{
		Store:        s,
		ProductCache: productCache,
		Holds:        holds,
		Orders:       orders,
		Webhooks:     webhooks,
		DBHealth:     s,
		RedisHealth:  database.RedisHealthChecker{Client: rc},
		RateLimiter:  rateLimiter,
		Logger:       logger,
	})
	defer cleanup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	go func() {
		logger.Info("checkout server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	logger.Info("server exited gracefully")
	return nil
}

// openStore dials the configured database driver and migrates it if it's
// SQLite (the Postgres schema is managed out-of-band by migration tooling).
func openStore(cfg *config.Config, logger *zaplogrus.Logger) (*store.Store, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		s, err := store.OpenSQLite(cfg.Database.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		if err := s.MigrateSQLite(context.Background()); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return s, nil
	case "postgres":
		return store.OpenPostgres(store.PostgresConfig{
			DSN:             postgresDSN(cfg),
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: connMaxLifetime(cfg),
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// connMaxLifetime parses the configured connection lifetime, treating an
// empty or malformed value as "no limit" (the driver default).
func connMaxLifetime(cfg *config.Config) time.Duration {
	d, err := time.ParseDuration(cfg.Database.ConnMaxLifetime)
	if err != nil {
		return 0
	}
	return d
}

// postgresDSN prefers an explicit DATABASE_URL and otherwise assembles one
// from the discrete connection fields.
func postgresDSN(cfg *config.Config) string {
	if cfg.Database.DatabaseURL != "" {
		return cfg.Database.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User, cfg.Database.Password,
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.DBName, cfg.Database.SSLMode,
	)
}

// runSweepLoop runs the expiration sweeper (C8) on a ticker, guarded by the
// C14 distributed lock so only one server replica sweeps at a time.
func runSweepLoop(ctx context.Context, locker *distributedlock.Locker, sweeper *engine.Sweeper, interval time.Duration, logger *zaplogrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	opts := distributedlock.DefaultLockOptions()
	opts.TTL = interval

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lock, err := locker.TryLock(ctx, "checkout:sweep", opts)
			if err != nil {
				// Another replica is holding the lock; this is the common
				// case, not a failure.
				continue
			}
			result, err := sweeper.Run(ctx)
			if err != nil {
				logger.WithError(err).Error("sweep: run failed")
			} else if result.Expired > 0 {
				logger.WithField("expired", result.Expired).Info("sweep: reclaimed expired holds")
			}
			if err := locker.Unlock(ctx, lock); err != nil {
				logger.WithError(err).Warn("sweep: unlock failed")
			}
		}
	}
}

// runSweepLoopUnlocked runs the sweeper without a distributed lock, for
// single-instance deployments with no Redis configured.
func runSweepLoopUnlocked(ctx context.Context, sweeper *engine.Sweeper, interval time.Duration, logger *zaplogrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := sweeper.Run(ctx)
			if err != nil {
				logger.WithError(err).Error("sweep: run failed")
			} else if result.Expired > 0 {
				logger.WithField("expired", result.Expired).Info("sweep: reclaimed expired holds")
			}
		}
	}
}
