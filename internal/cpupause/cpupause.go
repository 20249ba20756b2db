// internal/cpupause/cpupause.go
// Package cpupause provides the single suspension point a restart loop is
// allowed to take: a CPU-pause hint before the next attempt. It never
// blocks a goroutine on a channel or a mutex — that would turn a lock-free
// restart into cooperative scheduling with its own queuing effects.
package cpupause

import "runtime"

// Backoff tracks how many consecutive restarts a goroutine has performed
// on the same operation, so repeated contention degrades from a tight spin
// into yielding the processor instead of burning a core.
type Backoff struct {
	spins int
}

// Pause hints the scheduler that the caller is in a busy-restart loop.
// The first few restarts just spin (the conflict is usually resolved by
// the time a reader would even finish a context switch); sustained
// contention falls back to runtime.Gosched so other goroutines make
// progress.
func (b *Backoff) Pause() {
	b.spins++
	if b.spins <= 4 {
		return
	}
	runtime.Gosched()
}

// Reset clears the spin count after a successful attempt.
func (b *Backoff) Reset() {
	b.spins = 0
}
