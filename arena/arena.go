// Package arena implements the per-worker job allocator: a contiguous,
// power-of-two ring of job.Job records with no free operation. Records
// are recycled by overwrite once the index laps the ring.
//
// An Arena is owner-exclusive: only the worker that created it may call
// Allocate. Nothing in this package enforces that at runtime; it is a
// calling-convention invariant upheld by the scheduler.
package arena

import "github.com/go-foundations/jobsystem/job"

// DefaultSize is the default number of records per worker.
const DefaultSize = 4096

// Arena is a bump allocator over a fixed ring of job.Job records.
type Arena struct {
	records    []job.Job
	mask       uint64
	index      uint64
	generation uint32
}

// New creates an Arena with room for size records. size must be a
// power of two; a non-power-of-two size is a programmer precondition
// violation and panics immediately.
func New(size int) *Arena {
	if size <= 0 || size&(size-1) != 0 {
		panic("arena: size must be a positive power of two")
	}
	return &Arena{
		records: make([]job.Job, size),
		mask:    uint64(size - 1),
	}
}

// Size reports the number of records in the ring.
func (a *Arena) Size() int { return len(a.records) }

// Allocate returns the next slot in the ring, having reset it for a
// fresh job. Callers must ensure at most Size() allocations happen
// between two uses of the same slot without an intervening frame drain;
// Allocate itself performs no such check; violating the invariant
// silently reuses a slot a live Parent/Continuation still points at,
// which is undefined behavior by contract, not a runtime error.
func (a *Arena) Allocate() *job.Job {
	a.index++
	slot := &a.records[a.index&a.mask]
	// A full lap (index crossing a multiple of len(records)) bumps the
	// generation, so debug builds can detect a stale weak reference by
	// comparing job.Generation() against the value recorded at the time
	// the reference was taken.
	if a.index%uint64(len(a.records)) == 0 {
		a.generation++
	}
	slot.Reset(a.generation)
	return slot
}
