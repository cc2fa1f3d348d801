// Package catalog holds the product variants available for sale.
package catalog

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for catalog operations.
var (
	ErrNotFound     = errors.New("variant not found")
	ErrEmptySKU     = errors.New("sku required")
	ErrInvalidPrice = errors.New("price must not be negative")
	ErrDuplicateSKU = errors.New("variant already exists")
)

// NotFoundOrInactiveError indicates a scan against a SKU that is missing from
// the catalog or has been deactivated. Unlike ErrNotFound this signals a
// programming or data error, not a recoverable user mistake.
type NotFoundOrInactiveError struct {
	SKU string
}

func (e *NotFoundOrInactiveError) Error() string {
	return fmt.Sprintf("variant %s not found or inactive", e.SKU)
}

// Variant is a purchasable product variant. The record is a value: everything
// except the active flag is fixed at creation, and deactivation is one-way.
type Variant struct {
	SKU        string `json:"sku"`
	PriceCents int64  `json:"price_cents"`
	Active     bool   `json:"active"`
}

// Catalog maps SKUs to product variants.
type Catalog struct {
	variants map[string]Variant
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{variants: make(map[string]Variant)}
}

// Add registers a new active variant. The SKU must be non-empty and unique,
// the price non-negative.
func (c *Catalog) Add(sku string, priceCents int64) error {
	if sku == "" {
		return ErrEmptySKU
	}
	if priceCents < 0 {
		return ErrInvalidPrice
	}
	if _, ok := c.variants[sku]; ok {
		return errors.Wrap(ErrDuplicateSKU, sku)
	}
	c.variants[sku] = Variant{SKU: sku, PriceCents: priceCents, Active: true}
	return nil
}

// Get returns the variant for the given SKU regardless of its active flag.
func (c *Catalog) Get(sku string) (Variant, error) {
	v, ok := c.variants[sku]
	if !ok {
		return Variant{}, ErrNotFound
	}
	return v, nil
}

// ActiveVariant returns the variant for the given SKU only if it is active.
// It fails with NotFoundOrInactiveError otherwise.
func (c *Catalog) ActiveVariant(sku string) (Variant, error) {
	v, ok := c.variants[sku]
	if !ok || !v.Active {
		return Variant{}, &NotFoundOrInactiveError{SKU: sku}
	}
	return v, nil
}

// Has reports whether the SKU exists in the catalog, active or not.
func (c *Catalog) Has(sku string) bool {
	_, ok := c.variants[sku]
	return ok
}

// Deactivate retires a variant. Deactivation is one-way: there is no
// corresponding activate operation.
func (c *Catalog) Deactivate(sku string) error {
	v, ok := c.variants[sku]
	if !ok {
		return ErrNotFound
	}
	v.Active = false
	c.variants[sku] = v
	return nil
}

// Reprice replaces the variant's price. The variant value itself is never
// mutated in place; the mapping is replaced with an updated record. Returns
// between sale and reprice observe the new price under the current-price
// refund policy.
func (c *Catalog) Reprice(sku string, priceCents int64) error {
	if priceCents < 0 {
		return ErrInvalidPrice
	}
	v, ok := c.variants[sku]
	if !ok {
		return ErrNotFound
	}
	v.PriceCents = priceCents
	c.variants[sku] = v
	return nil
}

// Variants returns all variants in the catalog. Order is unspecified.
func (c *Catalog) Variants() []Variant {
	out := make([]Variant, 0, len(c.variants))
	for _, v := range c.variants {
		out = append(out, v)
	}
	return out
}
