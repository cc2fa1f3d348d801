// Package inventory implements an append-only ledger of stock movements.
// The stock level of a SKU is the fold of all its movement deltas.
package inventory

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Sentinel errors for ledger operations.
var (
	ErrZeroDelta       = errors.New("movement delta must not be zero")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrUnknownSKU      = errors.New("sku not in catalog")
)

// InsufficientStockError indicates an issue request that would drive the
// stock level of a SKU below zero.
type InsufficientStockError struct {
	SKU       string
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.SKU, e.Available, e.Requested)
}

// Movement is a single signed quantity change recorded against a SKU.
// Movements are immutable once recorded.
type Movement struct {
	ID         uuid.UUID `json:"id"`
	SKU        string    `json:"sku"`
	QtyChange  int64     `json:"qty_change"`
	RecordedAt time.Time `json:"recorded_at"`
}

// CatalogView is the read surface of the product catalog the ledger needs.
type CatalogView interface {
	Has(sku string) bool
}

// Ledger is the append-only stock movement log. Receive and Issue validate
// against the catalog and the current level; Record appends raw deltas.
type Ledger struct {
	catalog   CatalogView
	movements []Movement
	now       func() time.Time
}

// New creates an empty ledger validating SKUs against the given catalog.
func New(catalog CatalogView) *Ledger {
	return &Ledger{catalog: catalog, now: time.Now}
}

// Record appends a raw movement. The only validation is a non-zero delta.
func (l *Ledger) Record(sku string, delta int64) error {
	if delta == 0 {
		return ErrZeroDelta
	}
	l.movements = append(l.movements, Movement{
		ID:         uuid.New(),
		SKU:        sku,
		QtyChange:  delta,
		RecordedAt: l.now(),
	})
	return nil
}

// Level returns the current stock level for the SKU: the sum of all recorded
// deltas, 0 when no movement mentions the SKU.
func (l *Ledger) Level(sku string) int64 {
	var total int64
	for _, m := range l.movements {
		if m.SKU == sku {
			total += m.QtyChange
		}
	}
	return total
}

// Receive adds qty units of stock and returns the new level. The quantity
// must be positive and the SKU known to the catalog.
func (l *Ledger) Receive(sku string, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	if !l.catalog.Has(sku) {
		return 0, errors.Wrap(ErrUnknownSKU, sku)
	}
	if err := l.Record(sku, qty); err != nil {
		return 0, err
	}
	return l.Level(sku), nil
}

// Issue removes qty units of stock and returns the new level. It fails with
// InsufficientStockError when the current level cannot cover the request;
// this is the guard that keeps stock levels from going negative.
func (l *Ledger) Issue(sku string, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	if !l.catalog.Has(sku) {
		return 0, errors.Wrap(ErrUnknownSKU, sku)
	}
	level := l.Level(sku)
	if level < qty {
		return 0, &InsufficientStockError{SKU: sku, Available: level, Requested: qty}
	}
	if err := l.Record(sku, -qty); err != nil {
		return 0, err
	}
	return l.Level(sku), nil
}

// InStock reports whether the current level covers qty units of the SKU.
func (l *Ledger) InStock(sku string, qty int64) bool {
	return l.Level(sku) >= qty
}

// Mark returns the current length of the movement log. Together with
// RollbackTo it lets the checkout orchestrator unwind movements appended by
// a failed multi-step operation.
func (l *Ledger) Mark() int {
	return len(l.movements)
}

// RollbackTo discards every movement appended after the given mark.
func (l *Ledger) RollbackTo(mark int) {
	if mark < 0 || mark > len(l.movements) {
		return
	}
	l.movements = l.movements[:mark]
}

// Movements returns a copy of the full movement log in insertion order.
func (l *Ledger) Movements() []Movement {
	out := make([]Movement, len(l.movements))
	copy(out, l.movements)
	return out
}

// Restore replaces the movement log, used when loading persisted state.
func (l *Ledger) Restore(movements []Movement) {
	l.movements = make([]Movement, len(movements))
	copy(l.movements, movements)
}
