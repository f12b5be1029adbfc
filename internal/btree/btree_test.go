package btree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchMiss(t *testing.T) {
	tr := New(4)
	_, found := tr.Search(42)
	require.False(t, found)
}

func TestInsertAndSearch(t *testing.T) {
	tr := New(4)
	for i := int64(1); i <= 20; i++ {
		tr.Insert(i, i*10)
	}

	for i := int64(1); i <= 20; i++ {
		offset, found := tr.Search(i)
		require.True(t, found, "key %d should be found", i)
		require.Equal(t, i*10, offset)
	}

	_, found := tr.Search(21)
	require.False(t, found)
}

func TestLeafListTraversalAscending(t *testing.T) {
	tr := New(4)
	keys := []int64{5, 3, 8, 1, 9, 2, 7, 4, 6}
	for _, k := range keys {
		tr.Insert(k, k)
	}

	entries := tr.Entries()
	require.Len(t, entries, len(keys))
	for i := 1; i < len(entries); i++ {
		require.Less(t, entries[i-1].Key, entries[i].Key)
	}
	require.Equal(t, int64(1), entries[0].Key)
	require.Equal(t, int64(9), entries[len(entries)-1].Key)
}

// TestS3SequentialInsertGrowsHeight mirrors spec.md's S3 scenario: inserting
// 1..250 in order with B=4 grows the tree to height 5.
func TestS3SequentialInsertGrowsHeight(t *testing.T) {
	tr := New(4)
	for i := int64(1); i <= 250; i++ {
		tr.Insert(i, i)
	}

	require.Equal(t, 5, tr.Height())

	offset, found := tr.Search(137)
	require.True(t, found)
	require.Equal(t, int64(137), offset)

	entries := tr.Entries()
	require.Len(t, entries, 250)
	for i, e := range entries {
		require.Equal(t, int64(i+1), e.Key)
	}
}

func TestInternalInvariantKeysSeparateChildren(t *testing.T) {
	tr := New(4)
	for i := int64(1); i <= 50; i++ {
		tr.Insert(i, i)
	}

	var walk func(idx int, minKey, maxKey *int64)
	walk = func(idx int, minKey, maxKey *int64) {
		n := tr.at(idx)
		if n.isLeaf {
			for _, k := range n.keys {
				if minKey != nil {
					require.GreaterOrEqual(t, k, *minKey)
				}
				if maxKey != nil {
					require.Less(t, k, *maxKey)
				}
			}
			return
		}

		for i := range n.children {
			var lo, hi *int64
			if i > 0 {
				lo = &n.keys[i-1]
			} else {
				lo = minKey
			}
			if i < len(n.keys) {
				hi = &n.keys[i]
			} else {
				hi = maxKey
			}
			walk(n.children[i], lo, hi)
		}
	}
	walk(tr.root, nil, nil)
}
