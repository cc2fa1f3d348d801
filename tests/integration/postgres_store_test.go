//go:build integration

package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/threadline/backoffice/internal/domain/customer"
	"github.com/threadline/backoffice/internal/domain/inventory"
	"github.com/threadline/backoffice/internal/domain/order"
	"github.com/threadline/backoffice/internal/storage"
	"github.com/threadline/backoffice/internal/storage/postgres"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dc, err := tc.NewDockerCompose("docker-compose.test.yml")
	if err != nil {
		log.Fatalf("compose init: %v", err)
	}

	err = dc.
		WaitForService("postgres", wait.ForHealthCheck()).
		Up(ctx, tc.Wait(true))
	if err != nil {
		log.Fatalf("compose up: %v", err)
	}
	defer func() {
		if err := dc.Down(context.Background(), tc.RemoveOrphans(true)); err != nil {
			log.Printf("compose down: %v", err)
		}
	}()

	pgContainer, err := dc.ServiceContainer(ctx, "postgres")
	if err != nil {
		log.Fatalf("postgres container: %v", err)
	}
	host, err := pgContainer.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://backoffice:backoffice@%s:%s/backoffice?sslmode=disable",
		host, port.Port())
	pool, err = postgres.NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	return m.Run()
}

func snapshotFixture() storage.Snapshot {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	return storage.Snapshot{
		Movements: []inventory.Movement{
			{ID: uuid.New(), SKU: "SHIRT-RED-M", QtyChange: 10, RecordedAt: at},
			{ID: uuid.New(), SKU: "SHIRT-RED-M", QtyChange: -2, RecordedAt: at.Add(time.Hour)},
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

func TestPostgresStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := postgres.New(pool)

	want := snapshotFixture()
	require.NoError(t, st.SaveAll(ctx, want))

	got, err := st.LoadAll(ctx)
	require.NoError(t, err)

	require.Len(t, got.Movements, 2)
	for i := range want.Movements {
		assert.Equal(t, want.Movements[i].ID, got.Movements[i].ID)
		assert.Equal(t, want.Movements[i].SKU, got.Movements[i].SKU)
		assert.Equal(t, want.Movements[i].QtyChange, got.Movements[i].QtyChange)
		assert.True(t, want.Movements[i].RecordedAt.Equal(got.Movements[i].RecordedAt))
	}

	assert.Equal(t, want.Customers, got.Customers)
	assert.Equal(t, want.Items, got.Items)

	require.Len(t, got.Orders, 2)
	for i := range want.Orders {
		assert.Equal(t, want.Orders[i].ID, got.Orders[i].ID)
		assert.Equal(t, want.Orders[i].Code, got.Orders[i].Code)
		assert.Equal(t, want.Orders[i].Status, got.Orders[i].Status)
		assert.Equal(t, want.Orders[i].TotalCents, got.Orders[i].TotalCents)
		assert.Equal(t, want.Orders[i].OriginalID, got.Orders[i].OriginalID)
		assert.True(t, want.Orders[i].CreatedAt.Equal(got.Orders[i].CreatedAt))
	}
}

func TestPostgresStore_SaveReplacesAllRows(t *testing.T) {
	ctx := context.Background()
	st := postgres.New(pool)

	require.NoError(t, st.SaveAll(ctx, snapshotFixture()))

	smaller := storage.Snapshot{
		Customers: map[string]customer.Customer{
			"CUST789": {MemberID: "CUST789", Name: "Carol", Tier: customer.TierBronze},
		},
	}
	require.NoError(t, st.SaveAll(ctx, smaller))

	got, err := st.LoadAll(ctx)
	require.NoError(t, err)

	assert.Empty(t, got.Movements)
	assert.Empty(t, got.Orders)
	assert.Empty(t, got.Items)
	require.Len(t, got.Customers, 1)
	assert.Equal(t, "Carol", got.Customers["CUST789"].Name)
}

func TestPostgresStore_EmptyDatabase(t *testing.T) {
	ctx := context.Background()
	st := postgres.New(pool)

	require.NoError(t, st.SaveAll(ctx, storage.Empty()))

	got, err := st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Movements)
	assert.Empty(t, got.Customers)
	assert.Empty(t, got.Orders)
	assert.Empty(t, got.Items)
}
