package store

import "context"

// sqliteSchema mirrors the Postgres schema in migrations/0001_init.sql closely
// enough for tests and local development to exercise the same engine code.
// SQLite has no native DECIMAL or UNSIGNED INT; money and status columns are
// stored as TEXT and quantities as plain INTEGER, with the non-negativity and
// enum constraints enforced by the engines rather than the schema.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	total_stock INTEGER NOT NULL,
	price TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS holds (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id),
	qty INTEGER NOT NULL,
	status TEXT NOT NULL,
	expires_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_holds_status_expires ON holds(status, expires_at);

CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	hold_id TEXT NOT NULL UNIQUE REFERENCES holds(id),
	status TEXT NOT NULL,
	total_amount TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS webhook_logs (
	idempotency_key TEXT PRIMARY KEY,
	response_body BLOB NOT NULL,
	response_status_code INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_webhooks (
	id TEXT PRIMARY KEY,
	hold_id TEXT NOT NULL UNIQUE REFERENCES holds(id),
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

// MigrateSQLite creates the schema for a SQLite-backed Store. Safe to call
// repeatedly (every statement is idempotent); used by tests and by
// cmd/server and cmd/expire-holds whenever the sqlite driver is selected.
func (s *Store) MigrateSQLite(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return err
}
