package bptree

import "testing"

func TestVersionLockReadUnlockedNode(t *testing.T) {
	var l VersionLock
	v, restart := l.readLockOrRestart()
	if restart {
		t.Fatalf("readLockOrRestart on a fresh lock reported restart")
	}
	if l.checkOrRestart(v) {
		t.Fatalf("checkOrRestart reported a change with no writer")
	}
}

func TestVersionLockWriteExcludesReaders(t *testing.T) {
	var l VersionLock
	v, _ := l.readLockOrRestart()
	if l.upgradeToWriteLock(v) {
		t.Fatalf("upgradeToWriteLock failed on an uncontended lock")
	}

	if _, restart := l.readLockOrRestart(); !restart {
		t.Fatalf("readLockOrRestart succeeded while the lock was held")
	}

	l.writeUnlock()
	if _, restart := l.readLockOrRestart(); restart {
		t.Fatalf("readLockOrRestart still reports locked after writeUnlock")
	}
}

func TestVersionLockUnlockBumpsVersion(t *testing.T) {
	var l VersionLock
	before, _ := l.readLockOrRestart()
	l.upgradeToWriteLock(before)
	l.writeUnlock()
	after, _ := l.readLockOrRestart()
	if after == before {
		t.Fatalf("version did not change across a write")
	}
}

func TestVersionLockUpgradeFailsOnStaleVersion(t *testing.T) {
	var l VersionLock
	v, _ := l.readLockOrRestart()
	l.upgradeToWriteLock(v)
	l.writeUnlock()

	// v is now stale; a second writer racing from the same snapshot must
	// not be allowed to proceed.
	if !l.upgradeToWriteLock(v) {
		t.Fatalf("upgradeToWriteLock succeeded against a stale version")
	}
}

func TestVersionLockObsolete(t *testing.T) {
	var l VersionLock
	v, _ := l.readLockOrRestart()
	l.upgradeToWriteLock(v)
	l.writeUnlockObsolete()

	if _, restart := l.readLockOrRestart(); !restart {
		t.Fatalf("readLockOrRestart succeeded on an obsolete node")
	}
	if !l.isLockedOrObsolete() {
		t.Fatalf("isLockedOrObsolete false on an obsolete node")
	}
}

func TestVersionLockWriteLockBlocksUntilFree(t *testing.T) {
	var l VersionLock
	v, _ := l.readLockOrRestart()
	l.upgradeToWriteLock(v)

	done := make(chan struct{})
	go func() {
		l.writeLock(func() {})
		close(done)
		l.writeUnlock()
	}()

	l.writeUnlock()
	<-done
}
