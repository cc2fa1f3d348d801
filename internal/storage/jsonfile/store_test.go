package jsonfile

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threadline/backoffice/internal/domain/customer"
	"github.com/threadline/backoffice/internal/domain/inventory"
	"github.com/threadline/backoffice/internal/domain/order"
	"github.com/threadline/backoffice/internal/storage"
)

func testSnapshot() storage.Snapshot {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	return storage.Snapshot{
		Movements: []inventory.Movement{
			{ID: uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), SKU: "SHIRT-RED-M", QtyChange: 10, RecordedAt: at},
			{ID: uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8"), SKU: "SHIRT-RED-M", QtyChange: -2, RecordedAt: at.Add(time.Hour)},
		},
		Customers: map[string]customer.Customer{
			"CUST123": {MemberID: "CUST123", Name: "Alice", Tier: customer.TierGold, Points: 1500},
			"CUST456": {MemberID: "CUST456", Name: "Bob", Tier: customer.TierSilver, Points: 400},
		},
		Orders: []order.Order{
			{ID: 1, Code: "ORD-0001", MemberID: "CUST123", Status: order.StatusPaid, TotalCents: 4500, CreatedAt: at},
			{ID: 2, Code: "ORD-0002", MemberID: "CUST123", Status: order.StatusReturn, TotalCents: 2500, OriginalID: 1, CreatedAt: at.Add(time.Hour)},
		},
		Items: []order.Item{
			{ID: 1, OrderID: 1, SKU: "SHIRT-RED-M", Qty: 2, UnitPriceCents: 2500},
			{ID: 2, OrderID: 2, SKU: "SHIRT-RED-M", Qty: 1, UnitPriceCents: 2500},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	want := testSnapshot()
	require.NoError(t, s.SaveAll(context.Background(), want))

	reopened, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	got, err := reopened.LoadAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, want.Movements, got.Movements)
	assert.Equal(t, want.Customers, got.Customers)
	assert.Equal(t, want.Orders, got.Orders)
	assert.Equal(t, want.Items, got.Items)
}

func TestLoadAll_MissingFiles(t *testing.T) {
	s, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	got, err := s.LoadAll(context.Background())
	require.NoError(t, err)

	assert.Empty(t, got.Movements)
	assert.Empty(t, got.Customers)
	assert.Empty(t, got.Orders)
	assert.Empty(t, got.Items)
	assert.NotNil(t, got.Customers)
}

func TestLoadAll_CorruptFileDegradesToDefault(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.SaveAll(context.Background(), testSnapshot()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, CustomersFile), []byte("{not json"), 0o644))

	got, err := s.LoadAll(context.Background())
	require.NoError(t, err)

	// The corrupt collection falls back to empty, the rest still load.
	assert.Empty(t, got.Customers)
	assert.Len(t, got.Movements, 2)
	assert.Len(t, got.Orders, 2)
	assert.Len(t, got.Items, 2)
}

func TestLoadAll_SkipsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	data := `[{"id": 7, "order_code": "ORD-0007", "member_id": "", "status": "PAID", "total_cents": 100, "created_at": "2024-03-15T10:30:00Z", "legacy_field": {"nested": true}}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, OrdersFile), []byte(data), 0o644))

	got, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Orders, 1)
	assert.Equal(t, "ORD-0007", got.Orders[0].Code)
	assert.Equal(t, int64(100), got.Orders[0].TotalCents)
}

func TestArchive_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.SaveAll(context.Background(), testSnapshot()))

	var buf bytes.Buffer
	require.NoError(t, s.Archive(&buf))

	gz, err := pgzip.NewReader(&buf)
	require.NoError(t, err)
	defer gz.Close()

	tr := tar.NewReader(gz)
	files := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[hdr.Name] = data
	}

	require.Len(t, files, 4)
	for _, name := range []string{MovementsFile, CustomersFile, OrdersFile, ItemsFile} {
		onDisk, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, onDisk, files[name], name)
	}
}

func TestArchive_SkipsMissingFiles(t *testing.T) {
	s, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Archive(&buf))

	gz, err := pgzip.NewReader(&buf)
	require.NoError(t, err)
	defer gz.Close()

	_, err = tar.NewReader(gz).Next()
	assert.ErrorIs(t, err, io.EOF)
}
