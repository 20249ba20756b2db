// pkg/bptree/lock.go
package bptree

import "sync/atomic"

// VersionLock is the per-node optimistic versioned lock described in the
// OLC literature: a single word packs a monotonically increasing version
// with a write-locked bit and an obsolete bit. Readers never block on it —
// they snapshot the word, read fields, and check the word is unchanged
// before trusting what they read. Writers take it exclusively with a CAS.
//
// Bit layout (low to high): obsolete(1) | locked(1) | version(62).
type VersionLock struct {
	word atomic.Uint64
}

const (
	obsoleteBit uint64 = 1 << 0
	lockedBit   uint64 = 1 << 1
	versionUnit uint64 = 1 << 2
)

// readLockOrRestart loads the current word. A locked or obsolete node is
// not safe to read through, so the caller must restart its whole
// operation rather than treat this as a retryable local failure.
func (l *VersionLock) readLockOrRestart() (version uint64, restart bool) {
	v := l.word.Load()
	if v&(lockedBit|obsoleteBit) != 0 {
		return 0, true
	}
	return v, false
}

// checkOrRestart reports whether the word has changed since version was
// observed. Used both mid-traversal (after dereferencing a child pointer)
// and at the end of a read (readUnlockOrRestart is the same check under a
// name that reads better at the point a lookup finishes).
func (l *VersionLock) checkOrRestart(version uint64) (restart bool) {
	return l.word.Load() != version
}

// readUnlockOrRestart is checkOrRestart under the name used when a reader
// is done with the node rather than about to descend through it.
func (l *VersionLock) readUnlockOrRestart(version uint64) (restart bool) {
	return l.checkOrRestart(version)
}

// upgradeToWriteLock attempts to move from an observed read version
// straight to the locked state. Fails if the word has moved since —
// another writer got there first, or a reader's snapshot is already stale.
func (l *VersionLock) upgradeToWriteLock(version uint64) (restart bool) {
	return !l.word.CompareAndSwap(version, version+lockedBit)
}

// writeLock reads and upgrades in one logical step, spinning/backing off
// on contention, for a caller with no outer restart loop to retry the
// whole walk. No tree variant calls it; the tree walks use
// upgradeToWriteLock inside their restart loops.
func (l *VersionLock) writeLock(pause func()) {
	for {
		v, restart := l.readLockOrRestart()
		if restart {
			pause()
			continue
		}
		if l.upgradeToWriteLock(v) {
			pause()
			continue
		}
		return
	}
}

// writeUnlock clears the locked bit and bumps the version in one atomic
// add, which is what invalidates any reader still holding the pre-write
// version.
func (l *VersionLock) writeUnlock() {
	l.word.Add(lockedBit)
}

// writeUnlockObsolete retires the node: same as writeUnlock but also sets
// the obsolete bit, so any reader that later loads a pointer to this node
// (e.g. through a parent slot not yet overwritten) is forced to restart.
func (l *VersionLock) writeUnlockObsolete() {
	l.word.Add(lockedBit | obsoleteBit)
}

// isObsolete reports whether a previously observed version word already
// carried the obsolete bit.
func isObsolete(version uint64) bool {
	return version&obsoleteBit != 0
}

// isLockedOrObsolete is the in-transaction check an HTM attempt makes
// instead of readLockOrRestart: a transaction has no version snapshot to
// validate later, so it must abort the instant it sees a node mid-write
// or being retired (spec section 4.5).
func (l *VersionLock) isLockedOrObsolete() bool {
	return l.word.Load()&(lockedBit|obsoleteBit) != 0
}
