// pkg/bptree/tree.go
// Package bptree implements an in-memory, concurrent, ordered B+-tree
// index with three compared synchronization strategies — a single-
// threaded reference, optimistic lock coupling (OLC), and a hardware-
// transactional fast path falling back to OLC (HTM) — plus a coarse
// exclusive-locking variant kept only as a comparison baseline.
//
// All four variants share the node layout in node.go and the VersionLock
// primitive in lock.go; what differs is how each walks root-to-leaf and
// how it publishes a split. Keys must be totally ordered (cmp.Ordered);
// values are copied by value into leaves, so V should be a small,
// trivially-copyable type — the spec assumes int64 for both.
package bptree

import "cmp"

// Tree is the operation surface every variant implements (spec section 6).
type Tree[K cmp.Ordered, V any] interface {
	Insert(k K, v V)
	Lookup(k K, out *V) bool
	CheckTree() bool
	Clear()
	InsertFallbackTimes() int32
	LookupFallbackTimes() int32
	InsertRetries() *[RetryBuckets]uint32
	LookupRetries() *[RetryBuckets]uint32
}

// RetryBuckets is the width of the HTM abort-cause histogram (spec
// section 6). Non-HTM variants report a zeroed array of this size.
const RetryBuckets = 18

// Option configures a tree's node capacities at construction time.
type Option func(*capacities)

// WithLeafCapacity overrides LEAF_MAX (default 31 entries).
func WithLeafCapacity(n int) Option {
	return func(c *capacities) { c.leafMax = n }
}

// WithInnerCapacity overrides INNER_MAX (default 31 entries; the node is
// considered full at innerMax-1, reserving a slot for the pending insert).
func WithInnerCapacity(n int) Option {
	return func(c *capacities) { c.innerMax = n }
}

func applyOptions(opts []Option) capacities {
	c := defaultCapacities()
	for _, o := range opts {
		o(&c)
	}
	return c
}

// checkSubtree recursively verifies every leaf reachable from n is at the
// same depth, returning that depth and whether the subtree balances. It
// is shared by every variant since they all build on the same node type;
// callers must ensure no concurrent mutation is in flight (spec
// section 4.6 — checkTree is debug-only, quiescent-state only).
func checkSubtree[K cmp.Ordered, V any](n *node[K, V]) (depth int, ok bool) {
	if n.isLeaf() {
		return 1, true
	}
	if len(n.children) < 2 {
		return 0, false
	}
	depth = -1
	for i := range n.children {
		child := n.getChild(i)
		if child == nil {
			return 0, false
		}
		d, childOK := checkSubtree[K, V](child)
		if !childOK {
			return 0, false
		}
		if depth == -1 {
			depth = d
		} else if depth != d {
			return 0, false
		}
	}
	return depth + 1, true
}

// zeroRetries is shared by every variant without its own HTM histogram.
var zeroRetries [RetryBuckets]uint32

func noRetries() *[RetryBuckets]uint32 { return &zeroRetries }
