// Package domain holds the entities and status enums of the checkout core:
// products, holds, orders, and the two webhook bookkeeping tables that make
// payment-result delivery idempotent and order-independent.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldStatus is the lifecycle state of a Hold.
type HoldStatus string

const (
	HoldPending   HoldStatus = "pending"
	HoldCompleted HoldStatus = "completed"
	HoldExpired   HoldStatus = "expired"
)

// OrderStatus is the lifecycle state of an Order.
type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

// PendingWebhookStatus is the payment result parked for a hold with no order yet.
// Stored verbatim from the webhook payload, not constrained to OrderStatus, so a
// replayed PendingWebhook row reflects exactly what the client sent.
type PendingWebhookStatus string

// Product is a single flash-sale item. Stock is decremented under the exclusive
// row lock taken by the hold engine and restored on hold failure or expiry.
type Product struct {
	ID         string
	Name       string
	TotalStock int64
	Price      decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Hold is a time-limited reservation of Qty units of a product.
type Hold struct {
	ID        string
	ProductID string
	Qty       int64
	Status    HoldStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order is created at most once per Hold (enforced by a unique constraint on
// HoldID) and captures TotalAmount at creation time from the product's price.
type Order struct {
	ID          string
	HoldID      string
	Status      OrderStatus
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WebhookLog seals the response for a given idempotency key: once written, every
// delivery with the same key returns this row's body and status verbatim.
type WebhookLog struct {
	IdempotencyKey     string
	ResponseBody       []byte
	ResponseStatusCode int
	CreatedAt          time.Time
}

// PendingWebhook parks a payment result that arrived before its order existed.
// At most one row per hold (unique constraint on HoldID); consumed by
// reconciliation once the order is created.
type PendingWebhook struct {
	ID        string
	HoldID    string
	Status    PendingWebhookStatus
	CreatedAt time.Time
}
