// Package store aggregates the back-office state: catalog, inventory
// ledger, customer directory, and order book. It replaces the original
// system's module-level globals with one explicit object the orchestrator
// and persistence layer share.
package store

import (
	"github.com/threadline/backoffice/internal/domain/catalog"
	"github.com/threadline/backoffice/internal/domain/customer"
	"github.com/threadline/backoffice/internal/domain/inventory"
	"github.com/threadline/backoffice/internal/domain/order"
	"github.com/threadline/backoffice/internal/storage"
)

// Store owns all long-lived back-office state.
type Store struct {
	Catalog   *catalog.Catalog
	Inventory *inventory.Ledger
	Customers *customer.Directory
	Orders    *order.Book
}

// New creates an empty store with the inventory ledger validating SKUs
// against the catalog.
func New() *Store {
	cat := catalog.New()
	return &Store{
		Catalog:   cat,
		Inventory: inventory.New(cat),
		Customers: customer.NewDirectory(),
		Orders:    order.NewBook(),
	}
}

// Snapshot captures the four persisted collections.
func (s *Store) Snapshot() storage.Snapshot {
	return storage.Snapshot{
		Movements: s.Inventory.Movements(),
		Customers: s.Customers.All(),
		Orders:    s.Orders.Orders(),
		Items:     s.Orders.Items(),
	}
}

// Restore replaces the store state with the snapshot's collections. The
// catalog is not part of the snapshot; it is seeded separately.
func (s *Store) Restore(snap storage.Snapshot) {
	s.Inventory.Restore(snap.Movements)
	s.Customers.Restore(snap.Customers)
	s.Orders.Restore(snap.Orders, snap.Items)
}
