package hashindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMultiValuedLookup(t *testing.T) {
	idx := New(16)

	idx.Insert(Entry{ProductID: 7, OrderID: 1, Offset: 0})
	idx.Insert(Entry{ProductID: 7, OrderID: 2, Offset: 150})
	idx.Insert(Entry{ProductID: 7, OrderID: 3, Offset: 300})
	idx.Insert(Entry{ProductID: 8, OrderID: 4, Offset: 450})

	got := idx.Lookup(7)
	require.Len(t, got, 3)
	// Chain order is reverse of insertion order, since Insert prepends.
	require.Equal(t, []Entry{
		{ProductID: 7, OrderID: 3, Offset: 300},
		{ProductID: 7, OrderID: 2, Offset: 150},
		{ProductID: 7, OrderID: 1, Offset: 0},
	}, got)

	require.Empty(t, idx.Lookup(99))
}

func TestRemoveDoesNotDecrementCollisionCount(t *testing.T) {
	idx := New(1) // force every key into the same bucket

	idx.Insert(Entry{ProductID: 1, OrderID: 1})
	idx.Insert(Entry{ProductID: 2, OrderID: 2})
	idx.Insert(Entry{ProductID: 3, OrderID: 3})
	require.Equal(t, int64(2), idx.CollisionCount())

	removed := idx.Remove(2)
	require.Equal(t, 1, removed)
	require.Equal(t, int64(2), idx.CollisionCount(), "collision_count is historical and must not decrement")

	require.Empty(t, idx.Lookup(2))
	require.Len(t, idx.Lookup(1), 1)
}

func TestKnuthHashExact(t *testing.T) {
	idx := New(50000)
	got := idx.hash(12345)
	want := int((uint64(12345) * knuthMultiplier) % 50000)
	require.Equal(t, want, got)
}

func TestStatsHistogramAndOverflowBin(t *testing.T) {
	idx := New(1)
	for i := int64(0); i < 15; i++ {
		idx.Insert(Entry{ProductID: i})
	}

	stats := idx.Stats()
	require.Equal(t, 1, stats.OccupiedCount)
	require.Equal(t, 15, stats.LongestChain)
	require.Equal(t, 1, stats.Histogram[10], "chains of length >= 11 collapse into the overflow bin")
	require.Equal(t, 15, stats.ElementCount)
	require.InDelta(t, 15.0, stats.LoadFactor, 0.0001)
}
