// Package order holds finalized orders, their line items, and the in-memory
// order book.
package order

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for order operations.
var (
	ErrInvalidID       = errors.New("order id must be positive")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrDiscountTooBig  = errors.New("discount exceeds order total")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// NotFoundError indicates an unknown order id.
type NotFoundError struct {
	OrderID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %d not found", e.OrderID)
}

// Status is the state of an order: a completed sale or a return linked to one.
type Status string

const (
	StatusPaid   Status = "PAID"
	StatusReturn Status = "RETURN"
)

// Order is a finalized sale or return. Once created only the status and the
// total (via AddCharge / ApplyDiscount) may change.
type Order struct {
	ID         int64     `json:"id"`
	Code       string    `json:"order_code"`
	MemberID   string    `json:"member_id,omitempty"`
	Status     Status    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	OriginalID int64     `json:"original_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Item is a single order line. Items are created atomically with their order
// and never mutated. The unit price is the price in effect at sale time and
// feeds the sale-price refund policy.
type Item struct {
	ID             int64  `json:"id"`
	OrderID        int64  `json:"order_id"`
	SKU            string `json:"sku"`
	Qty            int64  `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Code derives the human-facing order code from a numeric id: "ORD-"
// followed by the decimal id zero-padded to at least four digits, never
// truncated.
func Code(id int64) (string, error) {
	if id <= 0 {
		return "", ErrInvalidID
	}
	return fmt.Sprintf("ORD-%04d", id), nil
}

// AddCharge increases the order total by cents.
func (o *Order) AddCharge(cents int64) error {
	if cents < 0 {
		return ErrNegativeAmount
	}
	o.TotalCents += cents
	return nil
}

// ApplyDiscount decreases the order total by cents. The total never goes
// negative.
func (o *Order) ApplyDiscount(cents int64) error {
	if cents < 0 {
		return ErrNegativeAmount
	}
	if cents > o.TotalCents {
		return ErrDiscountTooBig
	}
	o.TotalCents -= cents
	return nil
}
