package database_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MostafaRabia/payin-task/internal/config"
	"github.com/MostafaRabia/payin-task/internal/database"
)

func TestNewRedisClientConnects(t *testing.T) {
	s := miniredis.RunT(t)
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)

	client, err := database.NewRedisClient(config.RedisConfig{Host: s.Host(), Port: port})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewRedisClientFailsOnUnreachableHost(t *testing.T) {
	_, err := database.NewRedisClient(config.RedisConfig{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
}

func TestRedisHealthCheckerReportsPingFailure(t *testing.T) {
	checker := database.RedisHealthChecker{Client: redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})}
	err := checker.HealthCheck(context.Background())
	require.Error(t, err)
}

func TestRedisHealthCheckerNilClient(t *testing.T) {
	checker := database.RedisHealthChecker{}
	err := checker.HealthCheck(context.Background())
	require.Error(t, err)
}
