package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MostafaRabia/payin-task/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "checkout.db", cfg.Database.SQLitePath)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)

	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)

	assert.Equal(t, 120*time.Second, cfg.Hold.TTL)
	assert.Equal(t, 60*time.Second, cfg.Sweep.Interval)
	assert.Equal(t, 600*time.Second, cfg.Cache.ProductTTL)

	assert.Equal(t, 8, cfg.Reconcile.Workers)
	assert.Equal(t, 5, cfg.Reconcile.MaxAttempts)
	assert.Equal(t, 600, cfg.RateLimit.HoldsPerMinute)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("DATABASE_PORT", "6543")
	t.Setenv("HOLD_TTL", "30s")
	t.Setenv("RECONCILE_WORKERS", "16")
	t.Setenv("RATE_LIMIT_HOLDS_PER_MINUTE", "120")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 30*time.Second, cfg.Hold.TTL)
	assert.Equal(t, 16, cfg.Reconcile.Workers)
	assert.Equal(t, 120, cfg.RateLimit.HoldsPerMinute)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver must be one of")
}

func TestLoadRequiresSQLitePathWhenDriverIsSQLite(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "   ")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.sqlite_path is required")
}

func TestLoadAllowsPostgresWithoutSQLitePath(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("SQLITE_PATH", "")

	_, err := config.Load()
	require.NoError(t, err)
}
