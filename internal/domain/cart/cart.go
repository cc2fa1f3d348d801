// Package cart implements the transient point-of-sale cart.
package cart

import (
	"github.com/go-faster/errors"

	"github.com/threadline/backoffice/internal/domain/catalog"
)

// ErrEmptyCart is returned when checkout is attempted on an empty cart.
var ErrEmptyCart = errors.New("cart is empty")

// Line is a cart line. The unit price is captured when the SKU is first
// scanned; later catalog price changes do not affect it.
type Line struct {
	SKU            string
	UnitPriceCents int64
	Qty            int64
}

// Scanner is the catalog surface the cart needs for scanning.
type Scanner interface {
	ActiveVariant(sku string) (catalog.Variant, error)
}

// Cart accumulates scanned lines until checkout.
type Cart struct {
	catalog Scanner
	lines   []Line
}

// New creates an empty cart backed by the given catalog.
func New(catalog Scanner) *Cart {
	return &Cart{catalog: catalog}
}

// Scan adds one unit of the SKU to the cart. Scanning a SKU already in the
// cart merges into its line; the price stays frozen from the first scan.
// A missing or inactive SKU is a hard failure (catalog.NotFoundOrInactiveError).
func (c *Cart) Scan(sku string) error {
	v, err := c.catalog.ActiveVariant(sku)
	if err != nil {
		return err
	}
	for i := range c.lines {
		if c.lines[i].SKU == sku {
			c.lines[i].Qty++
			return nil
		}
	}
	c.lines = append(c.lines, Line{SKU: sku, UnitPriceCents: v.PriceCents, Qty: 1})
	return nil
}

// TotalCents sums qty * unit price over all lines. An empty cart totals 0.
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.Qty * l.UnitPriceCents
	}
	return total
}

// Lines returns a copy of the cart lines in scan order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of distinct lines in the cart.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}
