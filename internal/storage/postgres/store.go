// Package postgres persists the back-office snapshot in PostgreSQL with the
// same replace-all semantics as the JSON-file store.
package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadline/backoffice/db"
	"github.com/threadline/backoffice/internal/domain/customer"
	"github.com/threadline/backoffice/internal/domain/inventory"
	"github.com/threadline/backoffice/internal/domain/order"
	"github.com/threadline/backoffice/internal/storage"
)

// NewPool creates a pgxpool.Pool for the given connection URL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}
	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store that uses the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// LoadAll reads all four collections.
func (s *Store) LoadAll(ctx context.Context) (storage.Snapshot, error) {
	snap := storage.Empty()

	rows, err := s.pool.Query(ctx,
		`SELECT id, sku, qty_change, recorded_at FROM inventory_movements ORDER BY recorded_at, id`)
	if err != nil {
		return snap, errors.Wrap(err, "query movements")
	}
	snap.Movements, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventory.Movement, error) {
		var m inventory.Movement
		err := row.Scan(&m.ID, &m.SKU, &m.QtyChange, &m.RecordedAt)
		return m, err
	})
	if err != nil {
		return snap, errors.Wrap(err, "collect movements")
	}

	rows, err = s.pool.Query(ctx,
		`SELECT member_id, name, tier, points FROM customers ORDER BY member_id`)
	if err != nil {
		return snap, errors.Wrap(err, "query customers")
	}
	customers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (customer.Customer, error) {
		var (
			c    customer.Customer
			tier string
		)
		err := row.Scan(&c.MemberID, &c.Name, &tier, &c.Points)
		c.Tier = customer.ParseTier(tier)
		return c, err
	})
	if err != nil {
		return snap, errors.Wrap(err, "collect customers")
	}
	for _, c := range customers {
		snap.Customers[c.MemberID] = c
	}

	rows, err = s.pool.Query(ctx,
		`SELECT id, order_code, member_id, status, total_cents, original_id, created_at FROM orders ORDER BY id`)
	if err != nil {
		return snap, errors.Wrap(err, "query orders")
	}
	snap.Orders, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		var (
			o      order.Order
			status string
		)
		err := row.Scan(&o.ID, &o.Code, &o.MemberID, &status, &o.TotalCents, &o.OriginalID, &o.CreatedAt)
		o.Status = order.Status(status)
		return o, err
	})
	if err != nil {
		return snap, errors.Wrap(err, "collect orders")
	}

	rows, err = s.pool.Query(ctx,
		`SELECT id, order_id, sku, qty, unit_price_cents FROM order_items ORDER BY id`)
	if err != nil {
		return snap, errors.Wrap(err, "query order items")
	}
	snap.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ID, &it.OrderID, &it.SKU, &it.Qty, &it.UnitPriceCents)
		return it, err
	})
	if err != nil {
		return snap, errors.Wrap(err, "collect order items")
	}

	return snap, nil
}

// SaveAll replaces all rows with the snapshot's collections in a single
// transaction, using CopyFrom for the bulk inserts.
func (s *Store) SaveAll(ctx context.Context, snap storage.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx,
		`TRUNCATE order_items, orders, customers, inventory_movements`); err != nil {
		return errors.Wrap(err, "truncate")
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"inventory_movements"},
		[]string{"id", "sku", "qty_change", "recorded_at"},
		pgx.CopyFromSlice(len(snap.Movements), func(i int) ([]any, error) {
			m := snap.Movements[i]
			return []any{m.ID, m.SKU, m.QtyChange, m.RecordedAt}, nil
		}),
	)
	if err != nil {
		return errors.Wrap(err, "copy movements")
	}

	customers := make([]customer.Customer, 0, len(snap.Customers))
	for _, c := range snap.Customers {
		customers = append(customers, c)
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"customers"},
		[]string{"member_id", "name", "tier", "points"},
		pgx.CopyFromSlice(len(customers), func(i int) ([]any, error) {
			c := customers[i]
			return []any{c.MemberID, c.Name, string(c.Tier), c.Points}, nil
		}),
	)
	if err != nil {
		return errors.Wrap(err, "copy customers")
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"orders"},
		[]string{"id", "order_code", "member_id", "status", "total_cents", "original_id", "created_at"},
		pgx.CopyFromSlice(len(snap.Orders), func(i int) ([]any, error) {
			o := snap.Orders[i]
			return []any{o.ID, o.Code, o.MemberID, string(o.Status), o.TotalCents, o.OriginalID, o.CreatedAt}, nil
		}),
	)
	if err != nil {
		return errors.Wrap(err, "copy orders")
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"order_items"},
		[]string{"id", "order_id", "sku", "qty", "unit_price_cents"},
		pgx.CopyFromSlice(len(snap.Items), func(i int) ([]any, error) {
			it := snap.Items[i]
			return []any{it.ID, it.OrderID, it.SKU, it.Qty, it.UnitPriceCents}, nil
		}),
	)
	if err != nil {
		return errors.Wrap(err, "copy order items")
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}
