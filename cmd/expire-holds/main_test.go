package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MostafaRabia/payin-task/internal/config"
	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
)

func TestPostgresDSNPrefersExplicitURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			DatabaseURL: "postgres://explicit/db",
			Host:        "ignored",
		},
	}
	assert.Equal(t, "postgres://explicit/db", postgresDSN(cfg))
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "oracle"}}
	_, err := openStore(cfg, nil)
	assert.Error(t, err)
}

func TestSweepOnceRunsAgainstEmptySQLiteStore(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "file:"+t.Name()+"?mode=memory&cache=shared")
	t.Setenv("REDIS_HOST", "")

	logger := zaplogrus.New()
	err := sweepOnce(logger)
	require.NoError(t, err)
}
