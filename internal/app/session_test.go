package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threadline/backoffice/internal/domain/checkout"
	"github.com/threadline/backoffice/internal/storage/jsonfile"
	"github.com/threadline/backoffice/internal/store"
)

func runScript(t *testing.T, dir string, script string) (*store.Store, string) {
	t.Helper()

	st := store.New()
	svc := checkout.NewService(st.Catalog, st.Inventory, st.Customers, st.Orders)
	snaps, err := jsonfile.New(dir, zap.NewNop())
	require.NoError(t, err)

	sess := newSession(st, svc, snaps, zap.NewNop(), sessionConfig{
		summaryPath: filepath.Join(dir, "summary.json"),
	})

	var out bytes.Buffer
	require.NoError(t, sess.run(context.Background(), strings.NewReader(script), &out))
	return st, out.String()
}

func TestSession_SaleFlow(t *testing.T) {
	st, out := runScript(t, t.TempDir(), `
product SHIRT-RED-M 2500
receive SHIRT-RED-M 5
scan SHIRT-RED-M
scan SHIRT-RED-M
checkout
quit
`)

	assert.Contains(t, out, "order ORD-0001 finalized, total $50.00")
	assert.Equal(t, int64(3), st.Inventory.Level("SHIRT-RED-M"))
	require.Len(t, st.Orders.Orders(), 1)
}

func TestSession_MemberDiscount(t *testing.T) {
	st, out := runScript(t, t.TempDir(), `
product SHIRT-BLUE-L 2700
receive SHIRT-BLUE-L 5
member CUST456 silver Bob Smith
scan SHIRT-BLUE-L
checkout CUST456
quit
`)

	assert.Contains(t, out, "total $25.65")
	bob, err := st.Customers.Get("CUST456")
	require.NoError(t, err)
	assert.Equal(t, "Bob Smith", bob.Name)
	assert.Equal(t, int64(25), bob.Points)
}

func TestSession_ReturnFlow(t *testing.T) {
	st, out := runScript(t, t.TempDir(), `
product SHIRT-RED-M 2500
receive SHIRT-RED-M 5
scan SHIRT-RED-M
checkout
return 1 SHIRT-RED-M 1
quit
`)

	assert.Contains(t, out, "return order ORD-0002 created, refund $25.00")
	assert.Equal(t, int64(5), st.Inventory.Level("SHIRT-RED-M"))
	assert.Len(t, st.Orders.Orders(), 2)
}

func TestSession_ErrorsAreReportedNotFatal(t *testing.T) {
	_, out := runScript(t, t.TempDir(), `
scan NO-SUCH-SKU
bogus
checkout
quit
`)

	assert.Contains(t, out, "error:")
	assert.Contains(t, out, "unknown command")
	assert.Contains(t, out, "ready")
}

func TestSession_SavesOnExit(t *testing.T) {
	dir := t.TempDir()
	runScript(t, dir, `
product SHIRT-RED-M 2500
receive SHIRT-RED-M 5
quit
`)

	data, err := os.ReadFile(filepath.Join(dir, jsonfile.MovementsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "SHIRT-RED-M")
}

func TestSession_SummaryCommand(t *testing.T) {
	dir := t.TempDir()
	_, out := runScript(t, dir, `
product SHIRT-RED-M 2500
receive SHIRT-RED-M 5
summary
quit
`)

	assert.Contains(t, out, "summary written")
	data, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "inventory_count")
}

func TestSession_BackupCommand(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "backup.tar.gz")
	_, out := runScript(t, dir, "product SHIRT-RED-M 2500\nbackup "+target+"\nquit\n")

	assert.Contains(t, out, "backup written")
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestDollars(t *testing.T) {
	assert.Equal(t, "$0.00", dollars(0))
	assert.Equal(t, "$0.05", dollars(5))
	assert.Equal(t, "$25.65", dollars(2565))
	assert.Equal(t, "$50.00", dollars(5000))
}
