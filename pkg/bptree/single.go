// pkg/bptree/single.go
package bptree

import "cmp"

// SingleThreadedTree is the reference implementation: a plain top-down
// walk with eager preemptive split and no synchronization at all. Its
// observable behavior is the ground truth the OLC and HTM variants must
// match in a sequential trace (spec section 4.3). It must not be shared
// across goroutines.
type SingleThreadedTree[K cmp.Ordered, V any] struct {
	root *node[K, V]
	cap  capacities
}

// NewSingleThreadedTree creates an empty tree with a single empty leaf
// root.
func NewSingleThreadedTree[K cmp.Ordered, V any](opts ...Option) *SingleThreadedTree[K, V] {
	return &SingleThreadedTree[K, V]{
		root: newLeaf[K, V](),
		cap:  applyOptions(opts),
	}
}

// Insert upserts (k, v), splitting any full node encountered on the
// descent path before continuing (preemptive split) and restarting the
// walk from the root whenever a split changes the path it's on.
func (t *SingleThreadedTree[K, V]) Insert(k K, v V) {
	for !t.tryInsert(k, v) {
	}
}

func (t *SingleThreadedTree[K, V]) tryInsert(k K, v V) (done bool) {
	n := t.root
	var parent *node[K, V]

	for !n.isLeaf() {
		if n.isFull(t.cap) {
			t.splitAndReplace(n, parent, k)
			return false
		}
		parent = n
		n = n.getChild(lowerBound(n.keys, k))
	}

	if n.isFull(t.cap) {
		t.splitAndReplace(n, parent, k)
		return false
	}

	n.leafInsert(k, v, t.cap.leafMax)
	return true
}

// splitAndReplace splits the full node n, attaching the new sibling to
// parent (or making a new root if n was the root).
func (t *SingleThreadedTree[K, V]) splitAndReplace(n, parent *node[K, V], k K) {
	var sep K
	var right *node[K, V]
	if n.isLeaf() {
		sep, right = n.leafSplit()
	} else {
		sep, right = n.innerSplit()
	}
	if parent != nil {
		parent.innerInsert(sep, right)
	} else {
		t.makeNewRoot(sep, n, right)
	}
}

func (t *SingleThreadedTree[K, V]) makeNewRoot(sep K, left, right *node[K, V]) {
	root := newInner[K, V]()
	root.keys = append(root.keys, sep)
	root.children = append(root.children, nil, nil)
	root.setChild(0, left)
	root.setChild(1, right)
	t.root = root
}

// Lookup returns (true, payload-via-out) if k is present, else false.
func (t *SingleThreadedTree[K, V]) Lookup(k K, out *V) bool {
	n := t.root
	for !n.isLeaf() {
		n = n.getChild(lowerBound(n.keys, k))
	}
	pos, found := n.leafLookup(k)
	if found {
		*out = n.payloads[pos]
	}
	return found
}

// CheckTree verifies every leaf reachable from root is at equal depth.
func (t *SingleThreadedTree[K, V]) CheckTree() bool {
	_, ok := checkSubtree[K, V](t.root)
	return ok
}

// Clear discards every node and installs a fresh empty leaf as root.
func (t *SingleThreadedTree[K, V]) Clear() {
	t.root = newLeaf[K, V]()
}

func (t *SingleThreadedTree[K, V]) InsertFallbackTimes() int32 { return 0 }
func (t *SingleThreadedTree[K, V]) LookupFallbackTimes() int32 { return 0 }
func (t *SingleThreadedTree[K, V]) InsertRetries() *[RetryBuckets]uint32 { return noRetries() }
func (t *SingleThreadedTree[K, V]) LookupRetries() *[RetryBuckets]uint32 { return noRetries() }

var _ Tree[int64, int64] = (*SingleThreadedTree[int64, int64])(nil)
