// Package hashindex implements the in-memory chained hash index from
// product-id to order-record locations (spec.md §3/§4.5), grounded on the
// original source's hash table create/insert/lookup/remove/stats functions.
//
// The hash function is fixed exactly: h(k) = (k * 2654435761) mod T, the
// Knuth multiplicative hash on an unsigned widening of the key — this is a
// testable property (spec.md §8 item 4 depends on it indirectly through
// multi-valued lookup, and the hash itself must not be swapped for a
// library hash like xxhash, which would change which bucket a key lands
// in). collision_count is a historical counter: it increments whenever an
// insert lands in an already-occupied bucket and is never decremented by
// Remove, matching spec.md §9's documented (not a bug to fix) behavior.
package hashindex

// knuthMultiplier is Knuth's multiplicative hashing constant.
const knuthMultiplier = 2654435761

// Entry is one hash-bucket record: a product-to-order association plus the
// byte offset of the order record on disk.
type Entry struct {
	ProductID int64
	OrderID   int64
	Offset    int64
}

type chainNode struct {
	entry Entry
	next  *chainNode
}

// Index is a fixed-size chained hash table keyed by ProductID.
type Index struct {
	buckets        []*chainNode
	elementCount   int
	collisionCount int64
}

// New creates an empty index with the given fixed bucket count T (default
// 50000 per spec.md §4.5, configurable via options.HashBuckets).
func New(buckets int) *Index {
	if buckets <= 0 {
		buckets = 1
	}
	return &Index{buckets: make([]*chainNode, buckets)}
}

func (idx *Index) hash(productID int64) int {
	return int((uint64(productID) * knuthMultiplier) % uint64(len(idx.buckets)))
}

// Insert prepends a new entry to its bucket's chain. If the bucket was
// already occupied, collision_count is incremented — historically, forever;
// Remove never decrements it.
func (idx *Index) Insert(e Entry) {
	b := idx.hash(e.ProductID)
	if idx.buckets[b] != nil {
		idx.collisionCount++
	}
	idx.buckets[b] = &chainNode{entry: e, next: idx.buckets[b]}
	idx.elementCount++
}

// Lookup returns every entry whose ProductID matches productID, in chain
// order — the reverse of insertion order, since Insert prepends. Returns
// nil (not an error) if productID has no entries.
func (idx *Index) Lookup(productID int64) []Entry {
	b := idx.hash(productID)
	var out []Entry
	for n := idx.buckets[b]; n != nil; n = n.next {
		if n.entry.ProductID == productID {
			out = append(out, n.entry)
		}
	}
	return out
}

// Remove unlinks every entry matching productID from its bucket's chain
// and returns the count removed. It does not touch collision_count.
func (idx *Index) Remove(productID int64) int {
	b := idx.hash(productID)

	var removed int
	var prev *chainNode
	cur := idx.buckets[b]
	for cur != nil {
		if cur.entry.ProductID == productID {
			removed++
			idx.elementCount--
			if prev == nil {
				idx.buckets[b] = cur.next
			} else {
				prev.next = cur.next
			}
			cur = cur.next
			continue
		}
		prev = cur
		cur = cur.next
	}

	return removed
}

// ElementCount returns the number of entries currently in the index.
func (idx *Index) ElementCount() int { return idx.elementCount }

// CollisionCount returns the historical (never-decremented) collision
// counter.
func (idx *Index) CollisionCount() int64 { return idx.collisionCount }

// Stats summarizes bucket occupancy, load factor and chain-length
// distribution for operator-facing reporting (spec.md §4.5's "statistics
// and collision analysis").
type Stats struct {
	BucketCount    int
	ElementCount   int
	OccupiedCount  int
	LoadFactor     float64
	CollisionCount int64
	LongestChain   int
	// Histogram buckets chains by length: index 0 is length 1, ..., index 9
	// is length 10, index 10 ("11+") is the overflow bin for any chain of
	// length 11 or more.
	Histogram [11]int
}

// Stats walks every bucket once to compute the current distribution.
func (idx *Index) Stats() Stats {
	s := Stats{BucketCount: len(idx.buckets), ElementCount: idx.elementCount, CollisionCount: idx.collisionCount}

	for _, head := range idx.buckets {
		if head == nil {
			continue
		}
		s.OccupiedCount++

		length := 0
		for n := head; n != nil; n = n.next {
			length++
		}
		if length > s.LongestChain {
			s.LongestChain = length
		}

		bin := length - 1
		if bin > 10 {
			bin = 10
		}
		s.Histogram[bin]++
	}

	s.LoadFactor = float64(idx.elementCount) / float64(len(idx.buckets))
	return s
}
