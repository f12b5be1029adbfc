package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dataforge/jewelbase/internal/record"
	"github.com/dataforge/jewelbase/internal/sparseindex"
)

const csvHeader = "timestamp,order_id,product_id,quantity,category_id,category_alias,brand_id,price_usd,user_id,gender,color,metal,gem\n"

// TestS1LoadSortsAndDedupes mirrors spec.md's S1 scenario: five orders with
// order_id in {30,10,20,10,40} and product_id in {7,7,8,7,9} load into five
// sorted orders and three unique products.
func TestS1LoadSortsAndDedupes(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "jewelry.csv")

	rows := []string{
		"2024-01-01T00:00:00Z,30,7,1,100,rings,1,99.99,1,M,gold,silver,ruby",
		"2024-01-02T00:00:00Z,10,7,2,100,rings,1,99.99,2,M,gold,silver,ruby",
		"2024-01-03T00:00:00Z,20,8,1,200,earrings,2,49.99,3,F,rose,gold,diamond",
		"2024-01-04T00:00:00Z,10,7,1,100,rings,1,99.99,4,M,gold,silver,ruby",
		"2024-01-05T00:00:00Z,40,9,3,300,necklaces,3,150.00,5,U,silver,platinum,emerald",
	}
	writeCSV(t, csvPath, rows)

	cfg := Config{CSVPath: csvPath, DataDir: dir, IndexGap: 1000, RunBudget: 10000}
	res, err := Load(cfg)
	require.NoError(t, err)
	require.Equal(t, PhaseDone, res.Phase)
	require.EqualValues(t, 5, res.OrdersWritten)
	require.EqualValues(t, 3, res.ProductsWritten)

	orders := readOrders(t, filepath.Join(dir, FileOrderData))
	require.Len(t, orders, 5)
	var ids []int64
	for _, o := range orders {
		ids = append(ids, o.OrderID)
	}
	require.Equal(t, []int64{10, 10, 20, 30, 40}, ids)

	products := readProducts(t, filepath.Join(dir, FileProductData))
	require.Len(t, products, 3)
	var pids []int64
	for _, p := range products {
		pids = append(pids, p.ProductID)
	}
	require.Equal(t, []int64{7, 8, 9}, pids)

	// No temp run files should remain.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), "temp_")
	}
}

// TestLoadSkipsShortRows exercises spec.md §7's lenient ParseError recovery:
// a row with fewer than 11 fields is silently skipped, not fatal.
func TestLoadSkipsShortRows(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "jewelry.csv")

	rows := []string{
		"2024-01-01T00:00:00Z,1,7,1,100",
		"2024-01-02T00:00:00Z,2,8,1,100,rings,1,99.99,1,M,gold,silver,ruby",
	}
	writeCSV(t, csvPath, rows)

	cfg := Config{CSVPath: csvPath, DataDir: dir, IndexGap: 1000, RunBudget: 10000}
	res, err := Load(cfg)
	require.NoError(t, err)
	require.EqualValues(t, 1, res.OrdersWritten)
	require.EqualValues(t, 1, res.RowsSkipped)
}

// TestLoadMultipleRuns forces multiple run files per table by using a tiny
// RunBudget, exercising the multi-run k-way merge path.
func TestLoadMultipleRuns(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "jewelry.csv")

	var rows []string
	for i := 20; i >= 1; i-- {
		rows = append(rows, rowFor(int64(i), int64(100+i%5)))
	}
	writeCSV(t, csvPath, rows)

	cfg := Config{CSVPath: csvPath, DataDir: dir, IndexGap: 4, RunBudget: 3}
	res, err := Load(cfg)
	require.NoError(t, err)
	require.Greater(t, res.OrderRuns, 1)
	require.EqualValues(t, 20, res.OrdersWritten)

	orders := readOrders(t, filepath.Join(dir, FileOrderData))
	for i := 1; i < len(orders); i++ {
		require.Less(t, orders[i-1].OrderID, orders[i].OrderID)
	}

	idx := readIndex(t, filepath.Join(dir, FileOrderIndex))
	require.NotEmpty(t, idx)
	require.Equal(t, orders[0].OrderID, idx[0].Key)
}

func rowFor(orderID, productID int64) string {
	return fmt.Sprintf("2024-01-01T00:00:00Z,%d,%d,1,100,rings,1,99.99,1,M,gold,silver,ruby", orderID, productID)
}

func writeCSV(t *testing.T, path string, rows []string) {
	t.Helper()
	content := csvHeader
	for _, r := range rows {
		content += r + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readOrders(t *testing.T, path string) []record.Order {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Zero(t, len(data)%record.OrderSize)

	var out []record.Order
	for i := 0; i < len(data); i += record.OrderSize {
		o, err := record.DecodeOrder(data[i : i+record.OrderSize])
		require.NoError(t, err)
		out = append(out, o)
	}
	return out
}

func readProducts(t *testing.T, path string) []record.Product {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Zero(t, len(data)%record.ProductSize)

	var out []record.Product
	for i := 0; i < len(data); i += record.ProductSize {
		p, err := record.DecodeProduct(data[i : i+record.ProductSize])
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func readIndex(t *testing.T, path string) []sparseindex.Entry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	entries, err := sparseindex.ReadIndex(f)
	require.NoError(t, err)
	return entries
}
