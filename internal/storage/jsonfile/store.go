// Package jsonfile persists the back-office snapshot as one pretty-printed
// JSON file per collection in a data directory.
package jsonfile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/threadline/backoffice/internal/storage"
)

// Data file names, one per persisted collection.
const (
	MovementsFile = "inventory.json"
	CustomersFile = "customers.json"
	OrdersFile    = "orders.json"
	ItemsFile     = "order_items.json"
)

var _ storage.Store = (*Store)(nil)

// Store reads and writes snapshot files under a single directory. Load and
// save failures are logged and degrade to defaults; they are never fatal.
type Store struct {
	dir string
	lg  *zap.Logger
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, lg *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	return &Store{dir: dir, lg: lg}, nil
}

// Dir returns the data directory the store reads and writes.
func (s *Store) Dir() string {
	return s.dir
}

// LoadAll reads the four collection files concurrently. A missing file
// yields that collection's empty default; a corrupt file is logged and
// likewise degrades to the default. The returned error is always nil and
// exists to satisfy storage.Store.
func (s *Store) LoadAll(ctx context.Context) (storage.Snapshot, error) {
	snap := storage.Empty()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if data, ok := s.read(MovementsFile); ok {
			movements, err := decodeMovements(data)
			if err != nil {
				s.lg.Warn("Corrupt movements file, using empty default",
					zap.String("file", MovementsFile), zap.Error(err))
				return nil
			}
			snap.Movements = movements
		}
		return nil
	})
	g.Go(func() error {
		if data, ok := s.read(CustomersFile); ok {
			customers, err := decodeCustomers(data)
			if err != nil {
				s.lg.Warn("Corrupt customers file, using empty default",
					zap.String("file", CustomersFile), zap.Error(err))
				return nil
			}
			snap.Customers = customers
		}
		return nil
	})
	g.Go(func() error {
		if data, ok := s.read(OrdersFile); ok {
			orders, err := decodeOrders(data)
			if err != nil {
				s.lg.Warn("Corrupt orders file, using empty default",
					zap.String("file", OrdersFile), zap.Error(err))
				return nil
			}
			snap.Orders = orders
		}
		return nil
	})
	g.Go(func() error {
		if data, ok := s.read(ItemsFile); ok {
			items, err := decodeItems(data)
			if err != nil {
				s.lg.Warn("Corrupt order items file, using empty default",
					zap.String("file", ItemsFile), zap.Error(err))
				return nil
			}
			snap.Items = items
		}
		return nil
	})

	_ = g.Wait()
	return snap, nil
}

// SaveAll writes the four collection files concurrently. Write failures are
// logged per file and never returned as fatal.
func (s *Store) SaveAll(ctx context.Context, snap storage.Snapshot) error {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.write(MovementsFile, encodeMovements(snap.Movements))
		return nil
	})
	g.Go(func() error {
		s.write(CustomersFile, encodeCustomers(snap.Customers))
		return nil
	})
	g.Go(func() error {
		s.write(OrdersFile, encodeOrders(snap.Orders))
		return nil
	})
	g.Go(func() error {
		s.write(ItemsFile, encodeItems(snap.Items))
		return nil
	})
	_ = g.Wait()
	return nil
}

// read returns the file contents and whether the file exists.
func (s *Store) read(name string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.lg.Warn("Read failed, using empty default",
				zap.String("file", name), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (s *Store) write(name string, data []byte) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		s.lg.Error("Write failed", zap.String("file", name), zap.Error(err))
		return
	}
	s.lg.Debug("Saved", zap.String("file", name))
}
