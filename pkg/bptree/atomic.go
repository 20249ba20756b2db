// pkg/bptree/atomic.go
package bptree

import (
	"sync/atomic"
	"unsafe"
)

// atomicLoadPointer and atomicStorePointer wrap sync/atomic's raw pointer
// primitives so node.go reads as plain Go rather than repeating the
// unsafe.Pointer incantations at every call site — same technique the
// teacher's CoW tree uses for its child slots (pkg/cowbtree/node.go).
func atomicLoadPointer(addr *unsafe.Pointer) unsafe.Pointer {
	return atomic.LoadPointer(addr)
}

func atomicStorePointer(addr *unsafe.Pointer, val unsafe.Pointer) {
	atomic.StorePointer(addr, val)
}

func atomicCompareAndSwapPointer(addr *unsafe.Pointer, old, new unsafe.Pointer) bool {
	return atomic.CompareAndSwapPointer(addr, old, new)
}
