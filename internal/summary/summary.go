// Package summary derives a small report from the current store state and
// writes it as a pretty-printed side file.
package summary

import (
	"os"
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/threadline/backoffice/internal/store"
)

// Report is the exported summary shape.
type Report struct {
	InventoryCount int64    `json:"inventory_count"`
	CustomerIDs    []string `json:"customer_ids"`
	OrderCount     int64    `json:"order_count"`
	// TotalRevenueCents sums total_cents over ALL orders. RETURN orders
	// are included, so refunds inflate rather than reduce this figure.
	TotalRevenueCents int64 `json:"total_revenue_cents"`
}

// Build derives the report from the store.
func Build(st *store.Store) Report {
	r := Report{
		InventoryCount: int64(len(st.Inventory.Movements())),
	}
	for id := range st.Customers.All() {
		r.CustomerIDs = append(r.CustomerIDs, id)
	}
	sort.Strings(r.CustomerIDs)
	for _, o := range st.Orders.Orders() {
		r.OrderCount++
		r.TotalRevenueCents += o.TotalCents
	}
	return r
}

// Export writes the report to path.
func Export(st *store.Store, path string) error {
	r := Build(st)

	e := &jx.Encoder{}
	e.SetIdent(2)
	e.ObjStart()
	e.FieldStart("inventory_count")
	e.Int64(r.InventoryCount)
	e.FieldStart("customer_ids")
	e.ArrStart()
	for _, id := range r.CustomerIDs {
		e.Str(id)
	}
	e.ArrEnd()
	e.FieldStart("order_count")
	e.Int64(r.OrderCount)
	e.FieldStart("total_revenue_cents")
	e.Int64(r.TotalRevenueCents)
	e.ObjEnd()

	if err := os.WriteFile(path, append(e.Bytes(), '\n'), 0o644); err != nil {
		return errors.Wrap(err, "write summary")
	}
	return nil
}
