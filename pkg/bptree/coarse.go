// pkg/bptree/coarse.go
package bptree

import (
	"cmp"

	lock "github.com/viney-shih/go-lock"
)

// CoarseTree serializes every operation behind a single tree-wide
// reader/writer latch instead of per-node version locks — the baseline
// spec section 4.6 keeps around purely as a "what OLC buys you"
// comparison point, not part of the interesting core. It reuses the
// single-threaded walk verbatim since, once the latch is held, a writer
// is always alone in the tree; readers share the latch only with other
// read-only lookups.
type CoarseTree[K cmp.Ordered, V any] struct {
	latch lock.RWMutex
	inner *SingleThreadedTree[K, V]
}

// NewCoarseTree creates an empty tree guarded by a single exclusive
// latch, grounded on the postgres-postgres oltp_clients package's use of
// github.com/viney-shih/go-lock for row-latch coordination.
func NewCoarseTree[K cmp.Ordered, V any](opts ...Option) *CoarseTree[K, V] {
	return &CoarseTree[K, V]{
		latch: lock.NewCASMutex(),
		inner: NewSingleThreadedTree[K, V](opts...),
	}
}

func (t *CoarseTree[K, V]) Insert(k K, v V) {
	t.latch.Lock()
	defer t.latch.Unlock()
	t.inner.Insert(k, v)
}

func (t *CoarseTree[K, V]) Lookup(k K, out *V) bool {
	t.latch.RLock()
	defer t.latch.RUnlock()
	return t.inner.Lookup(k, out)
}

func (t *CoarseTree[K, V]) CheckTree() bool {
	t.latch.RLock()
	defer t.latch.RUnlock()
	return t.inner.CheckTree()
}

func (t *CoarseTree[K, V]) Clear() {
	t.latch.Lock()
	defer t.latch.Unlock()
	t.inner.Clear()
}

func (t *CoarseTree[K, V]) InsertFallbackTimes() int32                 { return 0 }
func (t *CoarseTree[K, V]) LookupFallbackTimes() int32                 { return 0 }
func (t *CoarseTree[K, V]) InsertRetries() *[RetryBuckets]uint32 { return noRetries() }
func (t *CoarseTree[K, V]) LookupRetries() *[RetryBuckets]uint32 { return noRetries() }

var _ Tree[int64, int64] = (*CoarseTree[int64, int64])(nil)
