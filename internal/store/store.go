// Package store is the transactional persistence layer for the checkout core
// (C1 in the design). It wraps database/sql behind a small Postgres/SQLite
// dual-driver abstraction in the same spirit as the dbpool/Database split the
// rest of this codebase's ambient stack uses, and adds the row-level locking
// primitives (lockProduct, lockHold) the hold/order/webhook/sweep engines run
// their transactions through.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	_ "github.com/mattn/go-sqlite3"

	"github.com/MostafaRabia/payin-task/internal/domain"
	zaplogrus "github.com/MostafaRabia/payin-task/internal/logging/zaplogrus"
)

// Dialect distinguishes the two supported backends. SQLite stands in for
// Postgres in tests and local development; it has no SELECT ... FOR UPDATE,
// so the store relies on BEGIN IMMEDIATE (taken by Store.WithTx) to get the
// same single-writer exclusivity a row lock gives in Postgres.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Store is the shared persistence handle injected into every engine.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *zaplogrus.Logger
}

// Open wires a Store to an already-open *sql.DB. Callers choose the driver
// (pgx stdlib for Postgres, mattn/go-sqlite3 for SQLite) and dialect.
func Open(db *sql.DB, dialect Dialect, logger *zaplogrus.Logger) *Store {
	if logger == nil {
		logger = zaplogrus.New()
	}
	return &Store{db: db, dialect: dialect, logger: logger}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// HealthCheck verifies connectivity.
func (s *Store) HealthCheck(ctx context.Context) error { return s.db.PingContext(ctx) }

// Dialect reports which backend this Store talks to.
func (s *Store) Dialect() Dialect { return s.dialect }

// Tx is a running transaction plus a queue of callbacks to run only after the
// surrounding WithTx call commits successfully — the mechanism spec §4.3
// requires for dispatching reconciliation: "Enqueue MUST happen only if the
// transaction commits; enqueue before commit is a bug."
type Tx struct {
	tx          *sql.Tx
	dialect     Dialect
	afterCommit []func()
}

// AfterCommit registers fn to run once this transaction has committed. Panics
// are not recovered here; callers should keep fn itself non-panicking (it is
// invoked outside the transaction, with no rollback to fall back on).
func (t *Tx) AfterCommit(fn func()) {
	t.afterCommit = append(t.afterCommit, fn)
}

func (t *Tx) rebind(query string) string {
	if t.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (t *Tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, t.rebind(query), args...)
	return res, mapErr(err)
}

func (t *Tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.rebind(query), args...)
}

func (t *Tx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, t.rebind(query), args...)
	return rows, mapErr(err)
}

// WithTx runs fn inside a transaction. On success, fn's AfterCommit callbacks
// run (in registration order) once the commit has actually landed; on error
// or panic the transaction is rolled back and the panic re-raised.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	opts := &sql.TxOptions{}
	if s.dialect == Postgres {
		opts.Isolation = sql.LevelSerializable
	}

	sqlTx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", domain.ErrStorage, err)
	}

	tx := &Tx{tx: sqlTx, dialect: s.dialect}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.WithError(rbErr).Warn("store: rollback after handler error failed")
		}
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %v", domain.ErrStorage, err)
	}

	for _, hook := range tx.afterCommit {
		hook()
	}
	return nil
}

// mapErr translates driver errors into the store's error taxonomy
// (NotFound / UniqueViolation surfaced as domain.ErrConflict or
// domain.ErrInvalidInput by callers / Storage), per spec §4.1.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Message)
		}
		return fmt.Errorf("%w: %s", domain.ErrStorage, pgErr.Message)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %s", ErrUniqueViolation, sqliteErr.Error())
		}
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %s", domain.ErrConflict, sqliteErr.Error())
		}
	}

	return fmt.Errorf("%w: %s", domain.ErrStorage, err.Error())
}

// ErrUniqueViolation is a store-level signal distinct from domain.ErrConflict:
// callers decide per-operation whether a unique violation means "someone else
// already did this, treat it as invalid input" (orders.hold_id) or "a genuine
// conflict the client shouldn't retry verbatim" (pending_webhooks.hold_id).
var ErrUniqueViolation = errors.New("unique violation")

// IsNotFound reports whether err (or a wrapped cause) is domain.ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

// IsUniqueViolation reports whether err (or a wrapped cause) is ErrUniqueViolation.
func IsUniqueViolation(err error) bool { return errors.Is(err, ErrUniqueViolation) }
