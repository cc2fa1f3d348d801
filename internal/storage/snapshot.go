// Package storage defines the persisted snapshot shape shared by the
// JSON-file and Postgres stores.
package storage

import (
	"context"

	"github.com/threadline/backoffice/internal/domain/customer"
	"github.com/threadline/backoffice/internal/domain/inventory"
	"github.com/threadline/backoffice/internal/domain/order"
)

// Snapshot holds the four persisted collections: inventory movements and
// orders/items as sequences, customers as a mapping by member id.
type Snapshot struct {
	Movements []inventory.Movement
	Customers map[string]customer.Customer
	Orders    []order.Order
	Items     []order.Item
}

// Empty returns a snapshot with every collection at its empty default.
func Empty() Snapshot {
	return Snapshot{Customers: make(map[string]customer.Customer)}
}

// Store loads and saves complete snapshots of the back-office state.
type Store interface {
	LoadAll(ctx context.Context) (Snapshot, error)
	SaveAll(ctx context.Context, snap Snapshot) error
}
