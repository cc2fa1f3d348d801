// Command member-import reconciles gzipped loyalty-member exports from the
// store's legacy registers and loads the result into Postgres. Each export
// line is "member_id,name,tier". A member is accepted only when its id
// appears in at least two exports, which filters out the test rows and
// typos the registers accumulated; per-file bloom filters keep the
// cross-checking pass cheap.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/threadline/backoffice/internal/domain/customer"
	"github.com/threadline/backoffice/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	numFiles      = 2
	progressEvery = 1_000_000
	minIDLen      = 4
	maxIDLen      = 24
	insertBatch   = 1000
)

// memberRow is a parsed export line.
type memberRow struct {
	memberID string
	name     string
	tier     customer.Tier
}

// fileResult holds candidate members found in a single file during pass 2.
type fileResult struct {
	candidates map[string]memberRow
	masks      map[string]uint
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing memberbaseN.gz export files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("member import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("member import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("memberbase%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: build per-file bloom filters of member ids, concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: keep members whose id appears in 2+ exports.
	slog.Info("pass 2: reconciling member exports")

	members, err := reconcileMembers(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "reconcile members")
	}

	slog.Info("members reconciled", slog.Int("count", len(members)))

	if len(members) == 0 {
		slog.Info("no members to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return writeMembers(ctx, pool, members)
}

// buildBloomFilters creates one bloom filter per export file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			row, ok := parseRow(line)
			if !ok {
				return
			}
			filter.AddString(row.memberID)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("file", idx+1),
					slog.Uint64("members", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_members", count),
		)

		filters[idx] = filter
		return nil
	}
}

// reconcileMembers re-streams each file and checks ids against OTHER files'
// bloom filters. A member is kept when its id appears in 2 or more exports.
func reconcileMembers(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]memberRow, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all files; the first file wins on row conflicts.
	merged := make(map[string]uint)
	rows := make(map[string]memberRow)
	for _, r := range results {
		for id, mask := range r.masks {
			merged[id] |= mask
			if _, ok := rows[id]; !ok {
				rows[id] = r.candidates[id]
			}
		}
	}

	var members []memberRow
	for id, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			members = append(members, rows[id])
		}
	}
	return members, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[string]memberRow)
		masks := make(map[string]uint)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			row, ok := parseRow(line)
			if !ok {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("members", count),
				)
			}

			// A hit in any OTHER file's filter marks the id as present here
			// too: the merged mask then shows in how many exports it appears.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(row.memberID) {
					candidates[row.memberID] = row
					masks[row.memberID] |= fileBit
					masks[row.memberID] |= uint(1) << uint(j)
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_members", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = fileResult{candidates: candidates, masks: masks}
		return nil
	}
}

// parseRow splits a "member_id,name,tier" export line. Rows with malformed
// ids are dropped.
func parseRow(line string) (memberRow, bool) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) < 2 {
		return memberRow{}, false
	}
	id := strings.TrimSpace(parts[0])
	if len(id) < minIDLen || len(id) > maxIDLen {
		return memberRow{}, false
	}
	row := memberRow{
		memberID: id,
		name:     strings.TrimSpace(parts[1]),
		tier:     customer.TierBronze,
	}
	if len(parts) == 3 {
		row.tier = customer.ParseTier(parts[2])
	}
	if row.name == "" {
		return memberRow{}, false
	}
	return row, true
}

// writeMembers inserts the reconciled members in batches, skipping ids that
// already exist.
func writeMembers(ctx context.Context, pool *pgxpool.Pool, members []memberRow) error {
	slog.Info("writing members to database", slog.Int("count", len(members)))

	const insertSQL = `INSERT INTO customers (member_id, name, tier, points)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (member_id) DO NOTHING`

	for start := 0; start < len(members); start += insertBatch {
		end := min(start+insertBatch, len(members))

		b := &pgx.Batch{}
		for _, m := range members[start:end] {
			b.Queue(insertSQL, m.memberID, m.name, string(m.tier))
		}
		if err := pool.SendBatch(ctx, b).Close(); err != nil {
			return errors.Wrapf(err, "insert batch at %d", start)
		}

		slog.Info("insert progress", slog.Int("written", end))
	}
	return nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
