package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/MostafaRabia/payin-task/internal/cache"
	"github.com/MostafaRabia/payin-task/internal/clock"
	"github.com/MostafaRabia/payin-task/internal/config"
	"github.com/MostafaRabia/payin-task/internal/database"
	"github.com/MostafaRabia/payin-task/internal/engine"
	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
	"github.com/MostafaRabia/payin-task/internal/store"
)

// main runs a single expiration sweep pass (C8) and exits. Intended for
// cron-style external scheduling as an alternative to cmd/server's
// in-process ticker.
func main() {
	logger := zaplogrus.New()
	logger.SetLevel(zaplogrus.ParseLevel(os.Getenv("LOG_LEVEL")))

	if err := sweepOnce(logger); err != nil {
		logger.WithError(err).Error("expire-holds: sweep failed")
		os.Exit(1)
	}
	os.Exit(0)
}

// sweepOnce loads configuration, opens the store, runs one pass of the
// expiration sweeper, and reports the outcome. It returns a non-nil error on
// any configuration, storage, or sweep failure so main can set the exit code.
func sweepOnce(logger *zaplogrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	s, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	var invalidator cache.Invalidator = cache.NoopInvalidator{}
	if cfg.Redis.Host != "" {
		rc, err := database.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("expire-holds: redis unavailable, cache invalidation skipped")
		} else {
			defer func() { _ = rc.Close() }()
			invalidator = cache.NewProductCache(rc, cfg.Cache.ProductTTL, logger)
		}
	}

	sweeper := engine.NewSweeper(s, invalidator, clock.Real(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := sweeper.Run(ctx)
	if err != nil {
		return fmt.Errorf("sweep run failed: %w", err)
	}

	logger.WithField("considered", result.Considered).
		WithField("expired", result.Expired).
		Info("expire-holds: sweep complete")
	return nil
}

// openStore mirrors cmd/server's store-selection logic: dial the configured
// database driver and migrate it if it's SQLite.
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
