package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MostafaRabia/payin-task/internal/domain"
)

// CreateProduct inserts a new product and returns it with generated id/timestamps.
func (t *Tx) CreateProduct(ctx context.Context, name string, totalStock int64, price decimal.Decimal) (*domain.Product, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := t.exec(ctx,
		`INSERT INTO products (id, name, total_stock, price, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, totalStock, price.String(), now, now)
	if err != nil {
		return nil, err
	}
	return &domain.Product{ID: id, Name: name, TotalStock: totalStock, Price: price, CreatedAt: now, UpdatedAt: now}, nil
}

// Product reads a product without locking, for read-only endpoints (GET /products/{id}).
func (t *Tx) Product(ctx context.Context, id string) (*domain.Product, error) {
	return t.scanProduct(t.queryRow(ctx,
		`SELECT id, name, total_stock, price, created_at, updated_at FROM products WHERE id = ?`, id))
}

// LockProduct reads a product with an exclusive row lock (C1's lockProduct primitive).
// On Postgres this is a real SELECT ... FOR UPDATE; on SQLite the surrounding
// BEGIN IMMEDIATE transaction already gives single-writer exclusivity.
func (t *Tx) LockProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT id, name, total_stock, price, created_at, updated_at FROM products WHERE id = ?`
	if t.dialect == Postgres {
		query += ` FOR UPDATE`
	}
	return t.scanProduct(t.queryRow(ctx, query, id))
}

func (t *Tx) scanProduct(row *sql.Row) (*domain.Product, error) {
	var p domain.Product
	var priceStr string
	if err := row.Scan(&p.ID, &p.Name, &p.TotalStock, &priceStr, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, err
	}
	p.Price = price
	return &p, nil
}

// SetProductStock updates total_stock for a product already locked in this transaction.
func (t *Tx) SetProductStock(ctx context.Context, id string, totalStock int64) error {
	_, err := t.exec(ctx, `UPDATE products SET total_stock = ?, updated_at = ? WHERE id = ?`, totalStock, time.Now().UTC(), id)
	return err
}

// CreateHold inserts a new pending hold.
func (t *Tx) CreateHold(ctx context.Context, productID string, qty int64, expiresAt time.Time) (*domain.Hold, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := t.exec(ctx,
		`INSERT INTO holds (id, product_id, qty, status, expires_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, productID, qty, string(domain.HoldPending), expiresAt, now, now)
	if err != nil {
		return nil, err
	}
	return &domain.Hold{ID: id, ProductID: productID, Qty: qty, Status: domain.HoldPending, ExpiresAt: expiresAt, CreatedAt: now, UpdatedAt: now}, nil
}

// LockHold reads a hold with an exclusive row lock. If statusFilter is
// non-empty, rows not matching it are treated as not found (spec §4.1:
// "returns not-found if filter fails").
func (t *Tx) LockHold(ctx context.Context, id string, statusFilter ...domain.HoldStatus) (*domain.Hold, error) {
	query := `SELECT id, product_id, qty, status, expires_at, created_at, updated_at FROM holds WHERE id = ?`
	if t.dialect == Postgres {
		query += ` FOR UPDATE`
	}
	h, err := t.scanHold(t.queryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if len(statusFilter) > 0 {
		ok := false
		for _, s := range statusFilter {
			if h.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return nil, domain.ErrNotFound
		}
	}
	return h, nil
}

// Hold reads a hold without locking.
func (t *Tx) Hold(ctx context.Context, id string) (*domain.Hold, error) {
	return t.scanHold(t.queryRow(ctx,
		`SELECT id, product_id, qty, status, expires_at, created_at, updated_at FROM holds WHERE id = ?`, id))
}

func (t *Tx) scanHold(row *sql.Row) (*domain.Hold, error) {
	var h domain.Hold
	var status string
	if err := row.Scan(&h.ID, &h.ProductID, &h.Qty, &status, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	h.Status = domain.HoldStatus(status)
	return &h, nil
}

// SetHoldStatus transitions a hold already locked in this transaction.
func (t *Tx) SetHoldStatus(ctx context.Context, id string, status domain.HoldStatus) error {
	_, err := t.exec(ctx, `UPDATE holds SET status = ?, updated_at = ? WHERE id = ?`, string(status), time.Now().UTC(), id)
	return err
}

// PendingHoldsExpiring returns every hold with status=pending and expires_at <= asOf,
// for the expiration sweeper (C8) to iterate without locking them up front.
func (t *Tx) PendingHoldsExpiring(ctx context.Context, asOf time.Time) ([]domain.Hold, error) {
	rows, err := t.query(ctx,
		`SELECT id, product_id, qty, status, expires_at, created_at, updated_at FROM holds WHERE status = ? AND expires_at <= ?`,
		string(domain.HoldPending), asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Hold
	for rows.Next() {
		var h domain.Hold
		var status string
		if err := rows.Scan(&h.ID, &h.ProductID, &h.Qty, &status, &h.ExpiresAt, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, mapErr(err)
		}
		h.Status = domain.HoldStatus(status)
		out = append(out, h)
	}
	return out, mapErr(rows.Err())
}

// CreateOrder inserts a new pending order. A unique-constraint failure on
// hold_id surfaces as ErrUniqueViolation (mapped by the engine to InvalidInput
// per spec §4.3: "a concurrent order already exists").
func (t *Tx) CreateOrder(ctx context.Context, holdID string, totalAmount decimal.Decimal) (*domain.Order, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := t.exec(ctx,
		`INSERT INTO orders (id, hold_id, status, total_amount, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, holdID, string(domain.OrderPending), totalAmount.String(), now, now)
	if err != nil {
		return nil, err
	}
	return &domain.Order{ID: id, HoldID: holdID, Status: domain.OrderPending, TotalAmount: totalAmount, CreatedAt: now, UpdatedAt: now}, nil
}

// Order reads an order without locking.
func (t *Tx) Order(ctx context.Context, id string) (*domain.Order, error) {
	return t.scanOrder(t.queryRow(ctx,
		`SELECT id, hold_id, status, total_amount, created_at, updated_at FROM orders WHERE id = ?`, id))
}

// OrderByHoldID reads the order for a hold, if any.
func (t *Tx) OrderByHoldID(ctx context.Context, holdID string) (*domain.Order, error) {
	return t.scanOrder(t.queryRow(ctx,
		`SELECT id, hold_id, status, total_amount, created_at, updated_at FROM orders WHERE hold_id = ?`, holdID))
}

// LockOrder reads an order with an exclusive row lock, used by the
// reconciliation task (C7) which mutates order.status.
func (t *Tx) LockOrder(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT id, hold_id, status, total_amount, created_at, updated_at FROM orders WHERE id = ?`
	if t.dialect == Postgres {
		query += ` FOR UPDATE`
	}
	return t.scanOrder(t.queryRow(ctx, query, id))
}

func (t *Tx) scanOrder(row *sql.Row) (*domain.Order, error) {
	var o domain.Order
	var status, amountStr string
	if err := row.Scan(&o.ID, &o.HoldID, &status, &amountStr, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	o.Status = domain.OrderStatus(status)
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	o.TotalAmount = amount
	return &o, nil
}

// SetOrderStatus transitions an order's status (C6 and C7 both call this).
func (t *Tx) SetOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	_, err := t.exec(ctx, `UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, string(status), time.Now().UTC(), id)
	return err
}

// WebhookLogByKey looks up a sealed response by idempotency key. Returns
// domain.ErrNotFound if no log has sealed this key yet.
func (t *Tx) WebhookLogByKey(ctx context.Context, idempotencyKey string) (*domain.WebhookLog, error) {
	row := t.queryRow(ctx,
		`SELECT idempotency_key, response_body, response_status_code, created_at FROM webhook_logs WHERE idempotency_key = ?`,
		idempotencyKey)
	var w domain.WebhookLog
	if err := row.Scan(&w.IdempotencyKey, &w.ResponseBody, &w.ResponseStatusCode, &w.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &w, nil
}

// SealWebhookLog writes the sealed response for an idempotency key inside the
// same transaction as the webhook's side effects (spec §4.4 step g).
func (t *Tx) SealWebhookLog(ctx context.Context, idempotencyKey string, body []byte, statusCode int) error {
	_, err := t.exec(ctx,
		`INSERT INTO webhook_logs (idempotency_key, response_body, response_status_code, created_at) VALUES (?, ?, ?, ?)`,
		idempotencyKey, body, statusCode, time.Now().UTC())
	return err
}

// CreatePendingWebhook parks a payment result for a hold with no order yet. A
// unique-constraint failure on hold_id surfaces as ErrUniqueViolation, which
// the engine maps to domain.ErrConflict per spec §4.4 step d.
func (t *Tx) CreatePendingWebhook(ctx context.Context, holdID string, status domain.PendingWebhookStatus) (*domain.PendingWebhook, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := t.exec(ctx,
		`INSERT INTO pending_webhooks (id, hold_id, status, created_at) VALUES (?, ?, ?, ?)`,
		id, holdID, string(status), now)
	if err != nil {
		return nil, err
	}
	return &domain.PendingWebhook{ID: id, HoldID: holdID, Status: status, CreatedAt: now}, nil
}

// PendingWebhookByHoldID reads the parked webhook for a hold, if any.
func (t *Tx) PendingWebhookByHoldID(ctx context.Context, holdID string) (*domain.PendingWebhook, error) {
	row := t.queryRow(ctx,
		`SELECT id, hold_id, status, created_at FROM pending_webhooks WHERE hold_id = ?`, holdID)
	var p domain.PendingWebhook
	var status string
	if err := row.Scan(&p.ID, &p.HoldID, &status, &p.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	p.Status = domain.PendingWebhookStatus(status)
	return &p, nil
}

// DeletePendingWebhook removes a consumed pending webhook row (C7 step 3).
func (t *Tx) DeletePendingWebhook(ctx context.Context, id string) error {
	_, err := t.exec(ctx, `DELETE FROM pending_webhooks WHERE id = ?`, id)
	return err
}
