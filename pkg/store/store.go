// Package store is the public entry point for the jewelbase storage
// engine, wrapping internal/engine.Engine with the numbered CLI
// operations spec.md §6's external interface names: load CSV; show first
// records; search product by file index; insert order; remove order;
// load in-memory indices; search product via B+ tree; search
// orders-by-product via hash; print index stats; analyze collisions; run
// benchmarks; compress; decompress; encrypt; decrypt; protect; restore;
// verify.
//
// Grounded on the teacher's pkg/ignite.Instance: a constructor modelled on
// its NewInstance(ctx, service, opts...) but taking no context
// (New(service, opts...)), the same
// single-struct-wrapping-one-engine layout, and the same Close(ctx) idiom.
package store

import (
	"context"

	"github.com/dataforge/jewelbase/internal/engine"
	"github.com/dataforge/jewelbase/internal/hashindex"
	"github.com/dataforge/jewelbase/internal/loader"
	"github.com/dataforge/jewelbase/internal/protect"
	"github.com/dataforge/jewelbase/internal/record"
	"github.com/dataforge/jewelbase/pkg/logger"
	"github.com/dataforge/jewelbase/pkg/options"
)

// Store is the primary entry point for interacting with a jewelbase
// dataset: one engine plus the configuration that built it.
type Store struct {
	engine  *engine.Engine
	options *options.Options
}

// New creates and initializes a new Store, applying opts over
// options.NewDefaultOptions().
func New(service string, opts ...options.OptionFunc) *Store {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	eng := engine.New(&engine.Config{Logger: log, Options: &defaultOpts})
	return &Store{engine: eng, options: &defaultOpts}
}

// Close gracefully shuts down the store, releasing the engine's in-memory
// indices.
func (s *Store) Close(_ context.Context) error {
	return s.engine.Close()
}

// 1. LoadCSV runs the bulk loader over csvPath.
func (s *Store) LoadCSV(_ context.Context, csvPath string) (loader.Result, error) {
	return s.engine.LoadCSV(csvPath)
}

// 2. ShowFirstRecords returns the first n products and orders on disk.
func (s *Store) ShowFirstRecords(_ context.Context, n int) ([]record.Product, []record.Order, error) {
	return s.engine.ShowFirstRecords(n)
}

// 3. SearchProductByFileIndex looks up a product via the sparse file index.
func (s *Store) SearchProductByFileIndex(_ context.Context, productID int64) (record.Product, bool, error) {
	return s.engine.SearchProductByFileIndex(productID)
}

// SearchOrderByFileIndex looks up an order via the sparse file index. Not
// itself one of spec.md §6's numbered actions but exercises the same
// sparse-index machinery symmetrically for orders; cmd/jewelctl's menu does
// not call it.
func (s *Store) SearchOrderByFileIndex(_ context.Context, orderID int64) (record.Order, bool, error) {
	return s.engine.SearchOrderByFileIndex(orderID)
}

// 4. InsertOrder appends a new order to orderHistory.dat's unsorted tail.
func (s *Store) InsertOrder(_ context.Context, o record.Order) error {
	return s.engine.InsertOrder(o)
}

// 5. RemoveOrder tombstones an order in place.
func (s *Store) RemoveOrder(_ context.Context, orderID int64) error {
	return s.engine.RemoveOrder(orderID)
}

// ShouldRebuild reports whether enough orders have been removed since the
// last LoadIndexes call to warrant re-running it (spec.md §9: advisory
// only, never automatic).
func (s *Store) ShouldRebuild(_ context.Context) bool {
	return s.engine.ShouldRebuild()
}

// 6. LoadIndexes rebuilds the in-memory B+ tree and hash index from disk.
func (s *Store) LoadIndexes(_ context.Context) error {
	return s.engine.LoadIndexes()
}

// 7. SearchProductByBTree looks up a product's file offset via the
// in-memory B+ tree.
func (s *Store) SearchProductByBTree(_ context.Context, productID int64) (int64, bool, error) {
	return s.engine.SearchProductByBTree(productID)
}

// 8. SearchOrdersByProductHash looks up every order for a product via the
// in-memory chained hash index.
func (s *Store) SearchOrdersByProductHash(_ context.Context, productID int64) ([]hashindex.Entry, error) {
	return s.engine.SearchOrdersByProductHash(productID)
}

// 9. PrintIndexStats returns both in-memory indices' current statistics.
func (s *Store) PrintIndexStats(_ context.Context) (btreeStats BTreeStats, hashStats hashindex.Stats, err error) {
	bt, err := s.engine.BTreeStats()
	if err != nil {
		return BTreeStats{}, hashindex.Stats{}, err
	}
	hs, err := s.engine.HashStats()
	if err != nil {
		return BTreeStats{}, hashindex.Stats{}, err
	}
	return BTreeStats(bt), hs, nil
}

// 10. AnalyzeCollisions returns the hash index's collision-count and
// chain-length distribution.
func (s *Store) AnalyzeCollisions(_ context.Context) (hashindex.Stats, error) {
	return s.engine.HashStats()
}

// 11. RunBenchmarks times the sparse-file-index, B+ tree and hash lookup
// paths over the dataset currently loaded in memory.
func (s *Store) RunBenchmarks(_ context.Context) (engine.BenchmarkResult, error) {
	return s.engine.RunBenchmarks()
}

// 12. Compress Huffman-encodes srcPath to dstPath.
func (s *Store) Compress(_ context.Context, srcPath, dstPath string) error {
	return protect.Compress(srcPath, dstPath)
}

// 13. Decompress reverses Compress.
func (s *Store) Decompress(_ context.Context, srcPath, dstPath string) error {
	return protect.Decompress(srcPath, dstPath)
}

// 14. Encrypt transposition-encrypts srcPath to dstPath under the
// configured TranspositionKey.
func (s *Store) Encrypt(_ context.Context, srcPath, dstPath string) error {
	return protect.Encrypt(srcPath, dstPath, s.options.TranspositionKey)
}

// 15. Decrypt reverses Encrypt.
func (s *Store) Decrypt(_ context.Context, srcPath, dstPath string) error {
	return protect.Decrypt(srcPath, dstPath, s.options.TranspositionKey)
}

// 16. Protect composes Compress and Encrypt into the at-rest pipeline.
func (s *Store) Protect(_ context.Context, srcPath, dstPath string) error {
	return protect.Protect(srcPath, dstPath, s.options.TranspositionKey)
}

// 17. Restore inverts Protect.
func (s *Store) Restore(_ context.Context, srcPath, dstPath string) error {
	return protect.Restore(srcPath, dstPath, s.options.TranspositionKey)
}

// 18. Verify compares two files byte-for-byte, reporting the first
// differing offset.
func (s *Store) Verify(_ context.Context, pathA, pathB string) (protect.VerifyResult, error) {
	return protect.Verify(pathA, pathB)
}

// Options exposes the store's resolved configuration, e.g. for
// cmd/jewelctl to echo the active data directory.
func (s *Store) Options() *options.Options { return s.options }

// BTreeStats mirrors internal/btree.Stats in this package so callers of
// PrintIndexStats don't need to import internal/btree directly.
type BTreeStats struct {
	Height         int
	NodeCount      int
	KeyCount       int
	MemoryEstimate int64
}
