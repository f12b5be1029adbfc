package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dataforge/jewelbase/internal/record"
	"github.com/dataforge/jewelbase/pkg/options"
)

const csvHeader = "timestamp,order_id,product_id,quantity,category_id,category_alias,brand_id,price_usd,user_id,gender,color,metal,gem\n"

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s := New("jewelbase-test",
		options.WithDataDir(dir),
		options.WithIndexGap(2),
		options.WithRunBudget(1000),
		options.WithBTreeFanout(4),
		options.WithHashBuckets(16),
	)
	return s, dir
}

func writeFixtureCSV(t *testing.T, dir string) string {
	t.Helper()
	csvPath := filepath.Join(dir, "jewelry.csv")
	rows := []string{
		"2024-01-01T00:00:00Z,30,7,1,100,rings,1,99.99,1,M,gold,silver,ruby",
		"2024-01-02T00:00:00Z,10,7,2,100,rings,1,99.99,2,M,gold,silver,ruby",
		"2024-01-03T00:00:00Z,20,8,1,200,earrings,2,49.99,3,F,rose,gold,diamond",
	}
	content := csvHeader
	for _, r := range rows {
		content += r + "\n"
	}
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0o644))
	return csvPath
}

// TestStoreFullWorkflow exercises the numbered CLI surface end to end: load,
// inspect, index, search, mutate, rebuild-advisory and the protection
// pipeline, mirroring spec.md §6's action list.
func TestStoreFullWorkflow(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStore(t)
	csvPath := writeFixtureCSV(t, dir)

	res, err := s.LoadCSV(ctx, csvPath)
	require.NoError(t, err)
	require.EqualValues(t, 3, res.OrdersWritten)
	require.EqualValues(t, 2, res.ProductsWritten)

	products, orders, err := s.ShowFirstRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Len(t, orders, 3)

	p, found, err := s.SearchProductByFileIndex(ctx, 7)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 7, p.ProductID)

	var o record.Order
	copy(o.Timestamp[:], record.PadString("2024-03-01T00:00:00Z", len(o.Timestamp)))
	o.OrderID = 99
	o.ProductID = 8
	require.NoError(t, s.InsertOrder(ctx, o))

	require.NoError(t, s.LoadIndexes(ctx))

	offset, found, err := s.SearchProductByBTree(ctx, 7)
	require.NoError(t, err)
	require.True(t, found)
	require.GreaterOrEqual(t, offset, int64(0))

	entries, err := s.SearchOrdersByProductHash(ctx, 8)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	btStats, hashStats, err := s.PrintIndexStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, btStats.KeyCount)
	require.Equal(t, 4, hashStats.ElementCount)

	collisions, err := s.AnalyzeCollisions(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, collisions.CollisionCount, int64(0))

	bench, err := s.RunBenchmarks(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, bench.SampleSize)

	require.NoError(t, s.RemoveOrder(ctx, 30))
	require.False(t, s.ShouldRebuild(ctx))

	srcPath := filepath.Join(dir, "payload.bin")
	require.NoError(t, os.WriteFile(srcPath, []byte("a sample payload to protect"), 0o644))

	secPath := filepath.Join(dir, "payload.sec")
	restoredPath := filepath.Join(dir, "payload.restored")
	require.NoError(t, s.Protect(ctx, srcPath, secPath))
	require.NoError(t, s.Restore(ctx, secPath, restoredPath))

	verifyResult, err := s.Verify(ctx, srcPath, restoredPath)
	require.NoError(t, err)
	require.True(t, verifyResult.Identical)

	require.NoError(t, s.Close(ctx))
}

func TestStoreCompressDecompressRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStore(t)

	srcPath := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("aaaaabbbbccd"), 0o644))

	huffPath := filepath.Join(dir, "plain.huff")
	outPath := filepath.Join(dir, "plain.out")

	require.NoError(t, s.Compress(ctx, srcPath, huffPath))
	require.NoError(t, s.Decompress(ctx, huffPath, outPath))

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, "aaaaabbbbccd", string(out))
}
