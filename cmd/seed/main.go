// Command seed writes a demo snapshot: two loyalty members and opening
// stock for two shirt SKUs. It targets the JSON data dir by default, or
// Postgres when a database URL is given.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/threadline/backoffice/internal/domain/customer"
	"github.com/threadline/backoffice/internal/domain/inventory"
	"github.com/threadline/backoffice/internal/storage"
	"github.com/threadline/backoffice/internal/storage/jsonfile"
	"github.com/threadline/backoffice/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory for JSON snapshot files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	snap := demoSnapshot()

	if databaseURL != "" {
		slog.Info("connecting to database")

		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		return postgres.New(pool).SaveAll(ctx, snap)
	}

	fs, err := jsonfile.New(dataDir, zap.NewNop())
	if err != nil {
		return errors.Wrap(err, "open data dir")
	}
	return fs.SaveAll(ctx, snap)
}

func demoSnapshot() storage.Snapshot {
	now := time.Now()
	snap := storage.Empty()
	snap.Movements = []inventory.Movement{
		{ID: uuid.New(), SKU: "SHIRT-RED-M", QtyChange: 10, RecordedAt: now},
		{ID: uuid.New(), SKU: "SHIRT-BLUE-L", QtyChange: 5, RecordedAt: now},
	}
	snap.Customers = map[string]customer.Customer{
		"CUST123": {MemberID: "CUST123", Name: "Alice", Tier: customer.TierGold, Points: 1500},
		"CUST456": {MemberID: "CUST456", Name: "Bob", Tier: customer.TierSilver, Points: 400},
	}
	return snap
}
