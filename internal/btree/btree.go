// Package btree implements the in-memory B+ tree over product keys
// (spec.md §3/§4.4), grounded on the split arithmetic of the original
// source's inserirRecursivo/dividirFolha functions: leaf split point
// ceil((B+1)/2), internal split point floor(B/2) with the middle key
// promoted (not copied down).
//
// Nodes live in a node arena (tree.nodes), addressed by index rather than
// pointer — spec.md §9's design note calls out the original's owning child
// pointers plus a leaf-next back-pointer as an ownership ambiguity; an
// arena with integer handles sidesteps that question entirely, including
// for the leaf-linked list (a leaf's "next" is just another arena index).
// There is no delete operation, matching spec.md §4.4's explicit limit.
package btree

import "sort"

const noChild = -1

type node struct {
	isLeaf   bool
	keys     []int64
	values   []int64 // leaf only: the offset matching keys[i]
	children []int // internal only: len(children) == len(keys)+1
	next     int   // leaf only: arena index of the right sibling, or noChild
}

// Tree is an in-memory B+ tree with fan-out Fanout. The zero value is not
// usable; construct with New.
type Tree struct {
	Fanout int
	nodes  []*node
	root   int
	height int
	keys   int // total key slots across all leaves, duplicates included
}

// New creates an empty tree with the given fan-out B (default 100 per
// spec.md §3, but callers may configure it via options.BTreeFanout).
func New(fanout int) *Tree {
	t := &Tree{Fanout: fanout, height: 1}
	t.root = t.newLeaf()
	return t
}

func (t *Tree) newLeaf() int {
	t.nodes = append(t.nodes, &node{isLeaf: true, next: noChild})
	return len(t.nodes) - 1
}

func (t *Tree) newInternal() int {
	t.nodes = append(t.nodes, &node{isLeaf: false})
	return len(t.nodes) - 1
}

func (t *Tree) at(idx int) *node { return t.nodes[idx] }

// Search returns the offset stored for key, or (0, false) if absent.
func (t *Tree) Search(key int64) (int64, bool) {
	idx := t.root
	for {
		n := t.at(idx)
		if n.isLeaf {
			i := sort.Search(len(n.keys), func(i int) bool { return n.keys[i] >= key })
			if i < len(n.keys) && n.keys[i] == key {
				return n.values[i], true
			}
			return 0, false
		}

		i := sort.Search(len(n.keys), func(i int) bool { return key < n.keys[i] })
		idx = n.children[i]
	}
}

// Insert adds (key, offset) to the tree. Duplicate keys are not rejected —
// callers (the product loader) guarantee uniqueness; inserting a duplicate
// adds a second leaf entry rather than replacing the first, matching
// spec.md §4.4's documented duplicate-key behavior.
func (t *Tree) Insert(key, offset int64) {
	promoted, newIdx, split := t.insert(t.root, key, offset)
	if !split {
		return
	}

	newRoot := t.newInternal()
	r := t.at(newRoot)
	r.keys = []int64{promoted}
	r.children = []int{t.root, newIdx}
	t.root = newRoot
	t.height++
}

// insert descends to the correct leaf, inserts, and propagates any split
// back up the call stack. It returns (promotedKey, newSiblingIdx, true) if
// nodeIdx split during this insert.
func (t *Tree) insert(nodeIdx int, key, offset int64) (int64, int, bool) {
	n := t.at(nodeIdx)

	if n.isLeaf {
		i := sort.Search(len(n.keys), func(i int) bool { return n.keys[i] >= key })
		n.keys = append(n.keys, 0)
		copy(n.keys[i+1:], n.keys[i:])
		n.keys[i] = key
		n.values = append(n.values, 0)
		copy(n.values[i+1:], n.values[i:])
		n.values[i] = offset
		t.keys++

		if len(n.keys) <= t.Fanout {
			return 0, 0, false
		}
		return t.splitLeaf(nodeIdx)
	}

	i := sort.Search(len(n.keys), func(i int) bool { return key < n.keys[i] })
	childIdx := n.children[i]

	promoted, newChildIdx, childSplit := t.insert(childIdx, key, offset)
	if !childSplit {
		return 0, 0, false
	}

	n.keys = append(n.keys, 0)
	copy(n.keys[i+1:], n.keys[i:])
	n.keys[i] = promoted

	n.children = append(n.children, 0)
	copy(n.children[i+2:], n.children[i+1:])
	n.children[i+1] = newChildIdx

	if len(n.keys) <= t.Fanout {
		return 0, 0, false
	}
	return t.splitInternal(nodeIdx)
}

// splitLeaf splits an overflowing leaf (Fanout+1 keys) in two, keeping the
// first half in place and moving the upper half to a new leaf linked into
// the leaf list. The new leaf's first key is promoted (copied, not moved —
// leaves retain every key for range scans).
func (t *Tree) splitLeaf(nodeIdx int) (int64, int, bool) {
	n := t.at(nodeIdx)
	splitPoint := (len(n.keys) + 1) / 2 // ceil((B+1)/2) since len(keys) == B+1

	rightIdx := t.newLeaf()
	right := t.at(rightIdx)
	right.keys = append(right.keys, n.keys[splitPoint:]...)
	right.values = append(right.values, n.values[splitPoint:]...)
	right.next = n.next

	n.keys = n.keys[:splitPoint]
	n.values = n.values[:splitPoint]
	n.next = rightIdx

	return right.keys[0], rightIdx, true
}

// splitInternal splits an overflowing internal node (Fanout+1 keys,
// Fanout+2 children). The middle key at index floor(B/2) is promoted to
// the parent and removed from both halves, since internal nodes store
// separators rather than actual data.
func (t *Tree) splitInternal(nodeIdx int) (int64, int, bool) {
	n := t.at(nodeIdx)
	m := t.Fanout / 2 // floor(B/2)

	promoted := n.keys[m]

	rightIdx := t.newInternal()
	right := t.at(rightIdx)
	right.keys = append(right.keys, n.keys[m+1:]...)
	right.children = append(right.children, n.children[m+1:]...)

	n.keys = n.keys[:m]
	n.children = n.children[:m+1]

	return promoted, rightIdx, true
}

// Height returns the tree's current height (1 for a tree with only a root
// leaf).
func (t *Tree) Height() int { return t.height }

// Entry pairs a key with its stored offset, returned by Entries during a
// leaf-list range scan.
type Entry struct {
	Key    int64
	Offset int64
}

// Entries walks the leaf-linked list left to right, returning every
// (key, offset) pair in ascending order — testable property 3's
// "leaf-list traversal yields keys in ascending order" contract.
func (t *Tree) Entries() []Entry {
	idx := t.leftmostLeaf()
	var out []Entry
	for idx != noChild {
		n := t.at(idx)
		for i, k := range n.keys {
			out = append(out, Entry{Key: k, Offset: n.values[i]})
		}
		idx = n.next
	}
	return out
}

func (t *Tree) leftmostLeaf() int {
	idx := t.root
	for {
		n := t.at(idx)
		if n.isLeaf {
			return idx
		}
		idx = n.children[0]
	}
}

// Stats summarizes the tree's size for operator-facing reporting
// (spec.md §4.4's "height, total node count, total key count, memory
// estimate").
type Stats struct {
	Height         int
	NodeCount      int
	KeyCount       int
	MemoryEstimate int64
}

// nodeSizeEstimate is the fixed per-node overhead used by Stats. Stats adds
// Fanout+1 eight-byte slots to it for every node, whatever the node's kind
// or current occupancy; the result is a rough figure, not an upper bound.
const nodeSizeEstimate = 24 /* slice headers etc */

// Stats reports the tree's current statistics from its height, key counter
// and arena length; it does not walk the nodes.
func (t *Tree) Stats() Stats {
	s := Stats{Height: t.height, NodeCount: len(t.nodes), KeyCount: t.keys}

	perNode := int64(nodeSizeEstimate) + int64(8*(t.Fanout+1))
	s.MemoryEstimate = int64(len(t.nodes)) * perNode

	return s
}
