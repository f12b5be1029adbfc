package engine

import (
	"time"
)

// BenchmarkResult compares the three product lookup paths spec.md §4.6
// names: the sparse file index (no memory structure required), the
// in-memory B+ tree, and — since the hash index is keyed by product-id
// too — the chained hash lookup. Durations are the total time to look up
// every sampled product-id once.
type BenchmarkResult struct {
	SampleSize    int
	FileIndex     time.Duration
	BTree         time.Duration
	Hash          time.Duration
	FileIndexHits int
	BTreeHits     int
	HashHits      int
}

// RunBenchmarks times the three product lookup paths over every distinct
// product-id currently present in the B+ tree (requires LoadIndexes to
// have been called). It is read-only and safe to call repeatedly.
func (e *Engine) RunBenchmarks() (BenchmarkResult, error) {
	if err := e.checkOpen(); err != nil {
		return BenchmarkResult{}, err
	}
	if e.tree == nil || e.hash == nil {
		return BenchmarkResult{}, ErrIndexesNotLoaded
	}

	entries := e.tree.Entries()
	res := BenchmarkResult{SampleSize: len(entries)}
	if len(entries) == 0 {
		return res, nil
	}

	start := time.Now()
	for _, ent := range entries {
		if _, found, err := e.SearchProductByFileIndex(ent.Key); err == nil && found {
			res.FileIndexHits++
		}
	}
	res.FileIndex = time.Since(start)

	start = time.Now()
	for _, ent := range entries {
		if _, found := e.tree.Search(ent.Key); found {
			res.BTreeHits++
		}
	}
	res.BTree = time.Since(start)

	start = time.Now()
	for _, ent := range entries {
		if hits := e.hash.Lookup(ent.Key); len(hits) > 0 {
			res.HashHits++
		}
	}
	res.Hash = time.Since(start)

	if e.log != nil {
		e.log.Infow("benchmark complete",
			"sample_size", res.SampleSize,
			"file_index_duration", res.FileIndex,
			"btree_duration", res.BTree,
			"hash_duration", res.Hash)
	}
	return res, nil
}
