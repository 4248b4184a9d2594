package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
)

// OpenSQLite opens a SQLite-backed Store at dsn (":memory:" for tests). The
// `_txlock=immediate` DSN parameter makes every BeginTx issue BEGIN IMMEDIATE,
// which is what gives lockProduct/lockHold their exclusivity on this backend.
func OpenSQLite(dsn string, logger *zaplogrus.Logger) (*Store, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", dsn+sep+"_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite allows one writer; serialize all access through it.
	return Open(db, SQLite, logger), nil
}

// PostgresConfig bundles the connection parameters for OpenPostgres.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenPostgres opens a Postgres-backed Store over the pgx stdlib driver.
func OpenPostgres(cfg PostgresConfig, logger *zaplogrus.Logger) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return Open(db, Postgres, logger), nil
}
