// Package config loads the checkout service's configuration via Viper:
// defaults, then an optional ~/.checkout/config.json, then environment
// variables (highest precedence).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for cmd/server and cmd/expire-holds.
type Config struct {
	Environment string
	LogLevel    string

	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Hold      HoldConfig
	Sweep     SweepConfig
	Cache     CacheConfig
	Reconcile ReconcileConfig
	RateLimit RateLimitConfig
}

// ServerConfig configures the HTTP surface (C9).
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig configures the store (C1).
type DatabaseConfig struct {
	Driver          string // "postgres" or "sqlite"
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
	ConnMaxIdleTime string
	SQLitePath      string
}

// RedisConfig configures every Redis-backed collaborator: the product
// cache (C3), the rate limiter (C10), and the outbox/sweep-lock (C13/C14).
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HoldConfig configures the hold engine (C4).
type HoldConfig struct {
	TTL time.Duration
}

// SweepConfig configures the expiration sweeper (C8).
type SweepConfig struct {
	Interval time.Duration
}

// CacheConfig configures the product read-through cache.
type CacheConfig struct {
	ProductTTL time.Duration
}

// ReconcileConfig configures the outbox worker pool (C13).
type ReconcileConfig struct {
	Workers     int
	MaxAttempts int
}

// RateLimitConfig configures the holds-endpoint rate limiter (C10).
type RateLimitConfig struct {
	HoldsPerMinute int
}

// Load builds a Config from defaults, ~/.checkout/config.json, then
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(filepath.Join(home, ".checkout"))
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("config: read config file: %w", err)
			}
		}
	}

	bindEnv(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Environment: v.GetString("environment"),
		LogLevel:    v.GetString("log_level"),
		Server: ServerConfig{
			Port:           v.GetInt("server.port"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			DatabaseURL:     v.GetString("database.database_url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetString("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetString("database.conn_max_idle_time"),
			SQLitePath:      v.GetString("database.sqlite_path"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Hold:  HoldConfig{TTL: v.GetDuration("hold.ttl")},
		Sweep: SweepConfig{Interval: v.GetDuration("sweep.interval")},
		Cache: CacheConfig{ProductTTL: v.GetDuration("cache.product_ttl")},
		Reconcile: ReconcileConfig{
			Workers:     v.GetInt("reconcile.workers"),
			MaxAttempts: v.GetInt("reconcile.max_attempts"),
		},
		RateLimit: RateLimitConfig{HoldsPerMinute: v.GetInt("rate_limit.holds_per_minute")},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "change-me-in-production")
	v.SetDefault("database.dbname", "checkout")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.database_url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "300s")
	v.SetDefault("database.conn_max_idle_time", "60s")
	v.SetDefault("database.sqlite_path", "checkout.db")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("hold.ttl", "120s")
	v.SetDefault("sweep.interval", "60s")
	v.SetDefault("cache.product_ttl", "600s")

	v.SetDefault("reconcile.workers", 8)
	v.SetDefault("reconcile.max_attempts", 5)

	v.SetDefault("rate_limit.holds_per_minute", 600)
}

// bindEnv wires each key to the literal environment variable name the
// deployment docs advertise (spec §6), rather than relying solely on
// Viper's automatic dotted-key replacement, since several of these
// (SQLITE_PATH, HOLD_TTL) don't follow the SECTION_FIELD convention.
func bindEnv(v *viper.Viper) {
	binds := map[string]string{
		"environment": "ENVIRONMENT",
		"log_level":   "LOG_LEVEL",

		"server.port":             "SERVER_PORT",
		"server.allowed_origins":  "SERVER_ALLOWED_ORIGINS",
		"database.driver":         "DATABASE_DRIVER",
		"database.host":           "DATABASE_HOST",
		"database.port":           "DATABASE_PORT",
		"database.user":           "DATABASE_USER",
		"database.password":       "DATABASE_PASSWORD",
		"database.dbname":         "DATABASE_DBNAME",
		"database.sslmode":        "DATABASE_SSLMODE",
		"database.database_url":  "DATABASE_URL",
		"database.max_open_conns": "DATABASE_MAX_OPEN_CONNS",
		"database.max_idle_conns": "DATABASE_MAX_IDLE_CONNS",
		"database.sqlite_path":    "SQLITE_PATH",

		"redis.host":     "REDIS_HOST",
		"redis.port":     "REDIS_PORT",
		"redis.password": "REDIS_PASSWORD",
		"redis.db":       "REDIS_DB",

		"hold.ttl":          "HOLD_TTL",
		"sweep.interval":    "SWEEP_INTERVAL",
		"cache.product_ttl": "PRODUCT_CACHE_TTL",

		"reconcile.workers":      "RECONCILE_WORKERS",
		"reconcile.max_attempts": "RECONCILE_MAX_ATTEMPTS",

		"rate_limit.holds_per_minute": "RATE_LIMIT_HOLDS_PER_MINUTE",
	}
	for key, env := range binds {
		_ = v.BindEnv(key, env)
	}
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: database.driver must be one of postgres, sqlite (got %q)", cfg.Database.Driver)
	}

	if cfg.Database.Driver == "sqlite" && strings.TrimSpace(cfg.Database.SQLitePath) == "" {
		return fmt.Errorf("config: database.sqlite_path is required when database.driver=sqlite")
	}

	return nil
}
