package options

const (
	// DefaultDataDir is the default working data directory.
	DefaultDataDir = "./data"

	// DefaultIndexGap is the default sparse-index spacing G.
	DefaultIndexGap = 1000

	// DefaultRunBudget is the default per-buffer record budget L for the
	// external merge-sort loader.
	DefaultRunBudget = 10000

	// DefaultBTreeFanout is the default B+ tree fan-out B.
	DefaultBTreeFanout = 100

	// DefaultHashBuckets is the default chained hash index bucket count T.
	DefaultHashBuckets = 50000

	// DefaultTranspositionKey is the default columnar-transposition key.
	// Its characters are pairwise distinct, which the permutation requires.
	DefaultTranspositionKey = "UNCOPYRIGHTABLE"

	// DefaultMaxCodeLen bounds the Huffman tree height / max code length.
	DefaultMaxCodeLen = 256

	// DefaultRebuildThreshold is the tombstone-count rebuild advisory.
	DefaultRebuildThreshold = 100
)

// defaultOptions holds the baseline configuration for a jewelbase engine.
var defaultOptions = Options{
	DataDir:          DefaultDataDir,
	IndexGap:         DefaultIndexGap,
	RunBudget:        DefaultRunBudget,
	BTreeFanout:      DefaultBTreeFanout,
	HashBuckets:      DefaultHashBuckets,
	TranspositionKey: DefaultTranspositionKey,
	MaxCodeLen:       DefaultMaxCodeLen,
	RebuildThreshold: DefaultRebuildThreshold,
}

// NewDefaultOptions returns a copy of the default configuration.
func NewDefaultOptions() Options {
	return defaultOptions
}
