// Package options provides data structures and functions for configuring
// the jewelbase storage engine. It defines the tunables that control bulk
// loading, the sparse indices, the in-memory B+ tree and hash index, and
// the at-rest protection pipeline, following the functional-options
// (OptionFunc) pattern.
package options

import (
	"strings"

	jerrors "github.com/dataforge/jewelbase/pkg/errors"
)

// Options defines the configuration parameters for the storage engine.
// Every field has a default (see defaults.go) matching spec.md §6's
// documented compile-time constants.
type Options struct {
	// DataDir is the working data directory all persisted files live under.
	//
	// Default: "./data"
	DataDir string `json:"dataDir"`

	// IndexGap is the sparse-index spacing G: one (key, offset) entry is
	// emitted every IndexGap records.
	//
	// Default: 1000
	IndexGap int `json:"indexGap"`

	// RunBudget is the maximum number of records held in each of the
	// loader's two in-memory buffers (L) before a run is flushed to disk.
	//
	// Default: 10000
	RunBudget int `json:"runBudget"`

	// BTreeFanout is the B+ tree's maximum keys per node (B) before a split.
	//
	// Default: 100
	BTreeFanout int `json:"bTreeFanout"`

	// HashBuckets is the chained hash index's fixed bucket count (T).
	//
	// Default: 50000
	HashBuckets int `json:"hashBuckets"`

	// TranspositionKey is the fixed ASCII key used by the columnar
	// transposition permuter. It must contain no repeated characters;
	// WithTranspositionKey validates this at configuration time.
	//
	// Default: "UNCOPYRIGHTABLE"
	TranspositionKey string `json:"transpositionKey"`

	// MaxCodeLen bounds the Huffman tree height (and therefore the maximum
	// bit-length of any symbol's code).
	//
	// Default: 256
	MaxCodeLen int `json:"maxCodeLen"`

	// RebuildThreshold is the tombstone count at which internal/rebuild's
	// advisory starts reporting ShouldRebuild() == true. It is never
	// enforced automatically — see spec.md §9's documented-but-unenforced
	// rebuild workflow.
	//
	// Default: 100
	RebuildThreshold int `json:"rebuildThreshold"`
}

// OptionFunc is a function that modifies the engine's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions resets every field to its documented default.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		*o = NewDefaultOptions()
	}
}

// WithDataDir sets the working data directory.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithIndexGap sets the sparse-index spacing G.
func WithIndexGap(gap int) OptionFunc {
	return func(o *Options) {
		if gap > 0 {
			o.IndexGap = gap
		}
	}
}

// WithRunBudget sets the loader's per-buffer record budget L.
func WithRunBudget(budget int) OptionFunc {
	return func(o *Options) {
		if budget > 0 {
			o.RunBudget = budget
		}
	}
}

// WithBTreeFanout sets the B+ tree fan-out B.
func WithBTreeFanout(fanout int) OptionFunc {
	return func(o *Options) {
		if fanout >= 3 {
			o.BTreeFanout = fanout
		}
	}
}

// WithHashBuckets sets the hash index's fixed bucket count T.
func WithHashBuckets(buckets int) OptionFunc {
	return func(o *Options) {
		if buckets > 0 {
			o.HashBuckets = buckets
		}
	}
}

// WithMaxCodeLen sets the Huffman tree height bound.
func WithMaxCodeLen(max int) OptionFunc {
	return func(o *Options) {
		if max > 0 {
			o.MaxCodeLen = max
		}
	}
}

// WithRebuildThreshold sets the tombstone-count rebuild advisory threshold.
func WithRebuildThreshold(threshold int) OptionFunc {
	return func(o *Options) {
		if threshold > 0 {
			o.RebuildThreshold = threshold
		}
	}
}

// WithTranspositionKey sets the columnar-transposition key, validating per
// spec.md §9's open question that the key has no repeated characters —
// a key with repeats yields an unstable permutation and a non-invertible
// pipeline, so this is rejected here rather than discovered later at
// decrypt time.
func WithTranspositionKey(key string) OptionFunc {
	return func(o *Options) {
		if err := ValidateTranspositionKey(key); err != nil {
			// Leave the previous (valid) key in place; callers that need to
			// observe the validation failure should call
			// ValidateTranspositionKey directly before applying the option.
			return
		}
		o.TranspositionKey = key
	}
}

// ValidateTranspositionKey reports whether key is non-empty and has no
// repeated characters, returning a *errors.ValidationError describing the
// violation otherwise — configuration validation is caught here, at
// options-construction time, rather than surfacing as a codec failure
// later at encrypt/decrypt time.
func ValidateTranspositionKey(key string) error {
	if key == "" {
		return jerrors.NewConfigurationValidationError("transpositionKey", "key must not be empty")
	}

	seen := make(map[byte]bool, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if seen[c] {
			return jerrors.NewConfigurationValidationError("transpositionKey", "key contains repeated characters")
		}
		seen[c] = true
	}

	return nil
}
