// pkg/bptree/olc.go
package bptree

import (
	"cmp"
	"unsafe"

	"olctree/internal/cpupause"
)

// OLCTree is optimistic lock coupling over the shared node layout: readers
// validate a per-node version across the traversal instead of holding a
// lock, and restart on conflict; writers lock-couple bottom-up (parent
// before node, in descent order) to perform the one structural change a
// preemptive split requires (spec section 4.4).
type OLCTree[K cmp.Ordered, V any] struct {
	root    unsafe.Pointer // *node[K,V]
	cap     capacities
	epoch   *epochManager[K, V]
	reclaim ReclaimMode
}

// WithReclamation selects how a tree disposes of nodes dropped by Clear.
func WithReclamation(mode ReclaimMode) Option {
	return func(c *capacities) { c.reclaim = mode }
}

// NewOLCTree creates an empty tree with a single empty leaf root.
func NewOLCTree[K cmp.Ordered, V any](opts ...Option) *OLCTree[K, V] {
	c := applyOptions(opts)
	t := &OLCTree[K, V]{cap: c, reclaim: c.reclaim}
	if t.reclaim == ReclaimEpoch {
		t.epoch = newEpochManager[K, V]()
	}
	t.setRoot(newLeaf[K, V]())
	return t
}

func (t *OLCTree[K, V]) getRoot() *node[K, V] {
	return (*node[K, V])(atomicLoadPointer(&t.root))
}

func (t *OLCTree[K, V]) setRoot(n *node[K, V]) {
	atomicStorePointer(&t.root, unsafe.Pointer(n))
}

// Insert upserts (k, v). See tryInsert for the lock-coupled walk; this
// just re-enters on restart with a bounded backoff (spec section 5: the
// only suspension points are a CPU-pause hint and CAS contention).
func (t *OLCTree[K, V]) Insert(k K, v V) {
	var b cpupause.Backoff
	for !t.tryInsert(k, v) {
		b.Pause()
	}
}

// tryInsert is one attempt at the walk described in spec section 4.4.
// Returns true once the upsert has committed; false means "restart".
func (t *OLCTree[K, V]) tryInsert(k K, v V) bool {
	observedRoot := t.getRoot()
	n := observedRoot
	vN, restart := n.lock.readLockOrRestart()
	if restart || n != t.getRoot() {
		return false
	}

	var parent *node[K, V]
	var vP uint64

	for !n.isLeaf() {
		if n.isFull(t.cap) {
			t.splitFull(n, vN, parent, vP, observedRoot)
			return false
		}

		if parent != nil && parent.lock.readUnlockOrRestart(vP) {
			return false
		}
		parent, vP = n, vN

		childIdx := lowerBound(n.keys, k)
		child := n.getChild(childIdx)
		if n.lock.checkOrRestart(vN) || child == nil {
			return false
		}
		cv, r := child.lock.readLockOrRestart()
		if r {
			return false
		}
		n, vN = child, cv
	}

	if n.isFull(t.cap) {
		t.splitFull(n, vN, parent, vP, observedRoot)
		return false
	}

	if n.lock.upgradeToWriteLock(vN) {
		return false
	}
	if parent != nil && parent.lock.readUnlockOrRestart(vP) {
		n.lock.writeUnlock()
		return false
	}

	if !n.isSorted {
		n.restructure()
	}
	n.leafInsert(k, v, t.cap.leafMax)
	n.lock.writeUnlock()
	return true
}

// splitFull performs the bottom-up write-lock-coupled preemptive split:
// lock parent then node (descent order, never the reverse), verify
// nothing raced between the read and the lock, split, attach to the
// parent (or publish a new root), then unlock. Every path through this
// function ends with the caller restarting the whole operation — a
// restart performs at most one structural change (spec section 4.4).
func (t *OLCTree[K, V]) splitFull(n *node[K, V], vN uint64, parent *node[K, V], vP uint64, observedRoot *node[K, V]) {
	if parent != nil && parent.lock.upgradeToWriteLock(vP) {
		return
	}
	if n.lock.upgradeToWriteLock(vN) {
		if parent != nil {
			parent.lock.writeUnlock()
		}
		return
	}
	if parent == nil && n != t.getRoot() {
		// the root was replaced between our read and acquiring this lock
		n.lock.writeUnlock()
		return
	}

	var sep K
	var right *node[K, V]
	if n.isLeaf() {
		if !n.isSorted {
			n.restructure()
		}
		sep, right = n.leafSplit()
	} else {
		sep, right = n.innerSplit()
	}

	if parent != nil {
		parent.innerInsert(sep, right)
	} else {
		t.makeNewRoot(sep, n, right)
	}

	n.lock.writeUnlock()
	if parent != nil {
		parent.lock.writeUnlock()
	}
}

// makeNewRoot atomically publishes a fresh inner node as the tree's root.
// Both halves of the split root remain reachable as the new root's
// children, so — unlike a CoW replacement — nothing is retired here; an
// old root is only ever retired by Clear (spec section 4.4).
func (t *OLCTree[K, V]) makeNewRoot(sep K, left, right *node[K, V]) {
	root := newInner[K, V]()
	root.keys = append(root.keys, sep)
	root.children = append(root.children, nil, nil)
	root.setChild(0, left)
	root.setChild(1, right)
	t.setRoot(root)
}

// Lookup returns (true, payload-via-out) if k is present, else false.
func (t *OLCTree[K, V]) Lookup(k K, out *V) bool {
	var b cpupause.Backoff
	var guard *readerGuard[K, V]
	if t.epoch != nil {
		guard = t.epoch.enter()
		defer guard.leave()
	}
	for {
		payload, found, restart := t.tryLookup(k)
		if !restart {
			if found {
				*out = payload
			}
			return found
		}
		b.Pause()
	}
}

func (t *OLCTree[K, V]) tryLookup(k K) (payload V, found, restart bool) {
	observedRoot := t.getRoot()
	n := observedRoot
	vN, r := n.lock.readLockOrRestart()
	if r || n != t.getRoot() {
		return payload, false, true
	}

	var parent *node[K, V]
	var vP uint64

	for !n.isLeaf() {
		if parent != nil && parent.lock.readUnlockOrRestart(vP) {
			return payload, false, true
		}
		parent, vP = n, vN

		childIdx := lowerBound(n.keys, k)
		child := n.getChild(childIdx)
		if n.lock.checkOrRestart(vN) || child == nil {
			return payload, false, true
		}
		cv, rr := child.lock.readLockOrRestart()
		if rr {
			return payload, false, true
		}
		n, vN = child, cv
	}

	var ok bool
	var v V
	if n.isSorted {
		pos, f := n.leafLookup(k)
		ok = f
		if f {
			v = n.payloads[pos]
		}
	} else {
		v, ok = n.linearLookup(k)
	}

	if n.lock.readUnlockOrRestart(vN) {
		return payload, false, true
	}
	if parent != nil && parent.lock.readUnlockOrRestart(vP) {
		return payload, false, true
	}

	return v, ok, false
}

// CheckTree verifies every leaf reachable from root is at equal depth.
// Debug-only: callers must ensure no concurrent mutation is in flight.
func (t *OLCTree[K, V]) CheckTree() bool {
	_, ok := checkSubtree[K, V](t.getRoot())
	return ok
}

// Clear releases every node reachable from root and installs a fresh
// empty leaf as the new root. Callers must ensure no concurrent operation
// is in flight.
func (t *OLCTree[K, V]) Clear() {
	old := t.getRoot()
	t.setRoot(newLeaf[K, V]())
	if t.epoch != nil {
		t.epoch.retire(old)
		t.epoch.advance()
		t.epoch.tryReclaim()
	}
}

// Close drains in-flight readers before this tree is discarded, so a
// reader that was mid-traversal when the caller stopped issuing
// operations is never left holding a reference to memory that a
// subsequent Clear already tried to reclaim.
func (t *OLCTree[K, V]) Close() {
	if t.epoch != nil {
		t.epoch.drain()
	}
}

func (t *OLCTree[K, V]) InsertFallbackTimes() int32            { return 0 }
func (t *OLCTree[K, V]) LookupFallbackTimes() int32            { return 0 }
func (t *OLCTree[K, V]) InsertRetries() *[RetryBuckets]uint32  { return noRetries() }
func (t *OLCTree[K, V]) LookupRetries() *[RetryBuckets]uint32  { return noRetries() }

var _ Tree[int64, int64] = (*OLCTree[int64, int64])(nil)
