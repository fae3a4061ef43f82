package fat

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers, per the error taxonomy in spec.md §7.
var (
	// ErrInvalid is returned for a malformed call: a non-positive allocate
	// count, an unbound cursor operation, a disabled optional feature, or
	// an out-of-range starting entry passed to MarkRangeBad.
	ErrInvalid = errors.New("fat: invalid argument")
	// ErrIOError is returned when a block load, sync, or mirror write
	// fails, or when an out-of-range entry index reaches a cursor (an index
	// passed to ReadEntry, WriteEntry or FreeChain, or a chain link that
	// points out of range) — the latter is reported through the error
	// reporter first, per spec.md §7's treatment of an out-of-range index
	// as a flagged corruption rather than a plain argument error.
	ErrIOError = errors.New("fat: I/O error")
	// ErrNoSpace is returned when an allocation scan completes a full
	// revolution of the table without finding enough free entries.
	ErrNoSpace = errors.New("fat: no space left on device")
	// ErrOutOfMemory is returned when a mirror buffer cannot be obtained.
	ErrOutOfMemory = errors.New("fat: out of memory")
	// ErrCorrupt is returned when a read observes a FREE entry in the
	// middle of a chain, or other on-disk inconsistency the engine does
	// not attempt to repair.
	ErrCorrupt = errors.New("fat: corrupt file allocation table")
)

// MirrorError reports a partial failure of the mirror writer (C5): the
// primary FAT write already succeeded by the time mirroring runs, so a
// failure here does not roll anything back. It records which secondary
// copies were mirrored successfully before the first failure, so a caller
// that cares can narrow down which copies need a fsck pass; a caller that
// doesn't can still treat this like any other wrapped error.
type MirrorError struct {
	// Succeeded lists the FAT copy indices (1..N-1) that were fully
	// mirrored before the failure.
	Succeeded []int
	// FailedCopy is the copy index that failed.
	FailedCopy int
	// Err is the underlying error.
	Err error
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("fat: mirror to copy %d failed: %v", e.FailedCopy, e.Err)
}

func (e *MirrorError) Unwrap() error { return e.Err }
