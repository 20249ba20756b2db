// pkg/bptree/htm/htm.go
// Package htm abstracts hardware transactional memory behind
// begin/abort/commit (spec section 9), so the tree code above it never
// touches a platform intrinsic directly. Session is backed by a
// software-emulated implementation that always reports an abort — Go has
// no portable, non-cgo way to issue XBEGIN/XEND, and fabricating one
// behind a fake dependency would defeat the point of grounding this
// repo's stack in the example corpus (spec section 9 explicitly allows
// this). Capable() still probes the real CPU feature via
// golang.org/x/sys/cpu so a driver can report whether the hardware could
// have supported a real backend, even though this one never uses it.
package htm

import "golang.org/x/sys/cpu"

// AbortCode classifies why a transaction could not commit. The set below
// mirrors the status byte Intel RTM's XABORT/XBEGIN report (explicit,
// retry, conflict, capacity, debug, nested) widened with a few
// tree-protocol-specific causes this package's callers observe directly
// (a locked or obsolete node encountered mid-transaction) and rounded out
// to the 18-bucket histogram width spec section 6 requires of
// getInsertRetries/getLookupRetries.
type AbortCode uint8

const (
	AbortNone AbortCode = iota
	AbortExplicit
	AbortRetry
	AbortConflict
	AbortCapacity
	AbortDebug
	AbortNested
	AbortLockObserved
	AbortObsoleteObserved
	AbortUnknownNode
	AbortSplitRequired
	AbortReadValidationFailed
	AbortWriteSetOverflow
	AbortEmulatedAlwaysAbort
	AbortInterrupt
	AbortInit
	AbortInstructionFault
	AbortOther
)

// NumCodes is the histogram width spec section 6 fixes at 18.
const NumCodes = int(AbortOther) + 1

// Outcome is what Begin returns: either the transaction started, or it
// aborted immediately with a code (the emulated backend always takes the
// latter branch).
type Outcome struct {
	Started bool
	Code    AbortCode
}

// Session is one begin/abort/commit transaction attempt. A Session must
// not be reused across attempts — callers construct a fresh one per
// retry (see NewSession).
type Session interface {
	// Begin starts the transaction. If Started is false the transaction
	// never ran and Code explains why; the caller should not have made
	// any visible state changes before calling Begin.
	Begin() Outcome
	// Abort explicitly aborts a started transaction with code, undoing
	// any speculative writes. Safe to call only after a Started Begin.
	Abort(code AbortCode) Outcome
	// Commit attempts to commit a started transaction. Returns Started
	// true on success; on abort (e.g. a conflicting writer touched the
	// transaction's read set) returns Started false with a Code.
	Commit() Outcome
}

// NewSession returns the session backend this build was compiled with.
// There is exactly one backend (emulatedSession) because no real RTM
// backend exists in this port; the function exists as the seam a future
// platform-specific backend would hang off of.
func NewSession() Session {
	return &emulatedSession{}
}

// emulatedSession always reports that the transaction aborted, forcing
// every caller through its latched fallback path once its retry budget
// is spent. This keeps the retry/fallback/histogram machinery exercised
// end to end without pretending to run real hardware transactions.
type emulatedSession struct {
	started bool
}

func (s *emulatedSession) Begin() Outcome {
	s.started = false
	return Outcome{Started: false, Code: AbortEmulatedAlwaysAbort}
}

func (s *emulatedSession) Abort(code AbortCode) Outcome {
	s.started = false
	return Outcome{Started: false, Code: code}
}

func (s *emulatedSession) Commit() Outcome {
	return Outcome{Started: false, Code: AbortEmulatedAlwaysAbort}
}

// Capable reports whether the running CPU advertises restricted
// transactional memory (RTM). Informational only: it does not change
// which Session backend NewSession hands out.
func Capable() bool {
	return cpu.X86.HasRTM
}
