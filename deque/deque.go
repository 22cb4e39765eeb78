// Package deque implements the bounded Chase–Lev work-stealing deque:
// wait-free for the owner's Push, lock-free for Pop and for any number
// of concurrent Steal callers, built on sync/atomic's compare-and-swap
// primitives.
package deque

import (
	"sync/atomic"

	"github.com/go-foundations/jobsystem/job"
)

const cacheLineBytes = 64

// Deque is a fixed-capacity double-ended queue of *job.Job. The owner
// pushes and pops at the bottom; any other goroutine may steal from the
// top. Capacity must be sized so that a single frame's worth of jobs on
// one worker never overflows it: overflow is a programmer error, not a
// runtime condition.
type Deque struct {
	slots []*job.Job
	mask  uint64

	// Padding separates top and bottom onto distinct cache lines, so a
	// thief's CAS on top doesn't false-share with the owner's store to
	// bottom.
	_      [cacheLineBytes]byte
	top    atomic.Uint64
	_      [cacheLineBytes]byte
	bottom atomic.Uint64
}

// New creates a Deque with capacity rounded up to the next power of two.
func New(capacity int) *Deque {
	if capacity <= 0 {
		capacity = 1
	}
	size := nextPow2(capacity)
	return &Deque{
		slots: make([]*job.Job, size),
		mask:  uint64(size - 1),
	}
}

func nextPow2(n int) int {
	x := uint64(n - 1)
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	return int(x + 1)
}

// Push appends j at the bottom. Owner-only. Panics if the deque is at
// capacity; sizing the deque so this cannot happen within a frame is
// the caller's responsibility.
func (d *Deque) Push(j *job.Job) {
	b := d.bottom.Load()
	t := d.top.Load()
	if b-t >= uint64(len(d.slots)) {
		panic("deque: push on a full deque")
	}
	d.slots[b&d.mask] = j
	d.bottom.Store(b + 1)
}

// Pop removes and returns the job at the bottom. Owner-only. The last
// remaining element is resolved against a racing Steal with a CAS on
// top: the owner wins the CAS and returns the job, or loses it and
// returns (nil, false) because a thief already took it.
func (d *Deque) Pop() (*job.Job, bool) {
	b := d.bottom.Load()
	if b == 0 {
		return nil, false
	}
	b--
	d.bottom.Store(b)

	t := d.top.Load()
	if t > b {
		// Queue was already empty; restore the normalized empty state.
		d.bottom.Store(t)
		return nil, false
	}

	j := d.slots[b&d.mask]
	if t == b {
		// Last element: race a thief for it.
		if !d.top.CompareAndSwap(t, t+1) {
			d.bottom.Store(t + 1)
			return nil, false
		}
		d.bottom.Store(t + 1)
	}
	return j, true
}

// Steal removes and returns the job at the top. Safe to call from any
// number of non-owner goroutines concurrently. Returns (nil, false) on
// an empty deque or when a concurrent Steal/Pop won the race for the
// last element; both are normal control flow, not errors.
func (d *Deque) Steal() (*job.Job, bool) {
	t := d.top.Load()
	b := d.bottom.Load()
	if t >= b {
		return nil, false
	}
	j := d.slots[t&d.mask]
	if !d.top.CompareAndSwap(t, t+1) {
		return nil, false
	}
	return j, true
}

// Len reports the current logical size. Racy against concurrent
// Push/Pop/Steal by construction; intended for metrics and tests, not
// for control flow.
func (d *Deque) Len() int {
	b := int64(d.bottom.Load())
	t := int64(d.top.Load())
	if b < t {
		return 0
	}
	return int(b - t)
}

// IsEmpty reports whether Len() == 0, with the same raciness caveat.
func (d *Deque) IsEmpty() bool { return d.Len() == 0 }
