// Package app wires the back-office together: configuration, persistence,
// the checkout orchestrator, and the interactive session.
package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/threadline/backoffice/internal/domain/checkout"
	"github.com/threadline/backoffice/internal/storage"
	"github.com/threadline/backoffice/internal/storage/jsonfile"
	"github.com/threadline/backoffice/internal/storage/postgres"
	"github.com/threadline/backoffice/internal/store"
)

// Run creates all dependencies and runs the interactive back-office session
// against stdin/stdout. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("data_dir", cfg.DataDir))

	st := store.New()

	var snaps storage.Store
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		snaps = postgres.New(pool)
		lg.Info("Using Postgres snapshot store")
	} else {
		fs, err := jsonfile.New(cfg.DataDir, lg)
		if err != nil {
			return errors.Wrap(err, "open data dir")
		}
		snaps = fs
	}

	// Load degrades to empty defaults, matching the JSON-file store.
	snap, err := snaps.LoadAll(ctx)
	if err != nil {
		lg.Warn("Load failed, starting from empty state", zap.Error(err))
		snap = storage.Empty()
	}
	st.Restore(snap)

	svc := checkout.NewService(
		st.Catalog, st.Inventory, st.Customers, st.Orders,
		checkout.WithRefundPolicy(checkout.ParseRefundPolicy(cfg.RefundPolicy)),
		checkout.WithTelemetry(m.TracerProvider(), m.MeterProvider()),
	)

	sess := newSession(st, svc, snaps, lg, sessionConfig{
		summaryPath: filepath.Join(cfg.DataDir, cfg.SummaryFile),
	})
	return sess.run(ctx, os.Stdin, os.Stdout)
}
