// Package job defines the fixed-shape job record shared by the arena,
// deque, scheduler and parallel-for packages.
//
// A Job is never allocated on its own; it is always a slot inside a
// worker's Arena (see package arena). Pointers into that slot (Parent,
// entries of Continuations) are weak references: they stay valid only
// as long as the frame-drain invariant documented on the Arena holds.
package job

import "sync/atomic"

const maxContinuations = 10

// Func is the callable invoked when a Job runs. It takes the worker
// executing it (so it can create children without any thread-local or
// package-level "current worker" state, see DESIGN.md), the job
// itself, and the opaque payload set at creation time. There are
// no closures captured over scheduler-internal state and no exceptions:
// state flows through Payload.
type Func func(w Spawner, j *Job, payload interface{})

// Job is a fixed-shape control block for one unit of work, sized to
// exactly two 64-byte cache lines (128 bytes on a 64-bit build) so one
// job's hot Unfinished/continuationCount counters never false-share
// the line of a neighboring slot in the same Arena. Fields are ordered
// to pack without compiler-inserted gaps: the two hot atomics and the
// generation counter lead, the explicit pad rounds that header up to
// 16 bytes, and the rarely-mutated Func/Parent/Payload/continuations
// fill the remaining 112 bytes.
type Job struct {
	Unfinished        atomic.Int32
	continuationCount atomic.Int32

	// generation guards against a recycled arena slot being mistaken for
	// the job that last occupied it; see arena.Arena. A uint32 wraps
	// only after four billion arena laps on this worker, which no run
	// reaches.
	generation uint32

	_ [4]byte // pad out to a 16-byte boundary before the pointer-sized fields

	Func    Func
	Parent  *Job
	Payload interface{}

	continuations [maxContinuations]*Job
}

// Reset reinitializes a slot for reuse by the owning Arena. Never call
// this directly; arena.Allocate does it before handing a slot back out.
func (j *Job) Reset(generation uint32) {
	j.Func = nil
	j.Parent = nil
	j.Payload = nil
	j.Unfinished.Store(1)
	j.continuationCount.Store(0)
	for i := range j.continuations {
		j.continuations[i] = nil
	}
	j.generation = generation
}

// Generation reports the slot generation this Job was last reset with,
// so a debug build can validate a weak back-reference (like Parent)
// against a recycled arena slot.
func (j *Job) Generation() uint32 { return j.generation }

// UserData returns the opaque payload associated with the job.
func (j *Job) UserData() interface{} { return j.Payload }

// SetUserData overwrites the opaque payload associated with the job.
func (j *Job) SetUserData(p interface{}) { j.Payload = p }

// IsComplete reports whether the job (and every live child) has
// finished: Unfinished == 0.
func (j *Job) IsComplete() bool { return j.Unfinished.Load() == 0 }

// AddContinuation registers successor to run after j completes.
// Continuations must be added before j reaches completion; adding one
// to an already-finished job reserves a slot but the successor will
// never be scheduled, since Finish has already walked the list.
//
// Returns false, without modifying j, once the fixed ten-slot capacity
// is exhausted; the successor is simply dropped.
func (j *Job) AddContinuation(successor *Job) bool {
	idx := j.continuationCount.Add(1) - 1
	if idx >= maxContinuations {
		j.continuationCount.Add(-1)
		return false
	}
	j.continuations[idx] = successor
	return true
}

// continuationsSnapshot returns the continuations registered so far.
// Only ever called from Finish, after Unfinished has reached zero, so
// no further AddContinuation can race in front of a well-behaved caller.
func (j *Job) continuationsSnapshot() []*Job {
	n := j.continuationCount.Load()
	if n > maxContinuations {
		n = maxContinuations
	}
	return j.continuations[:n]
}

// Runner submits jobs onto a worker's deque. Scheduler.Worker implements
// this; job.Run/Execute/Finish depend only on the interface so this
// package stays free of a dependency on the scheduler.
type Runner interface {
	Run(j *Job)
}

// Spawner is the view of a worker a running Job.Func is handed: it can
// submit jobs and create new (possibly child) jobs on the worker that is
// currently executing, without any ambient/thread-local state.
type Spawner interface {
	Runner
	CreateJob(fn Func, payload interface{}) *Job
	CreateChildJob(parent *Job, fn Func, payload interface{}) *Job
}

// Run submits job onto the given worker's deque.
func Run(r Runner, j *Job) { r.Run(j) }

// Execute invokes the job's function and then finishes it. The
// terminal decrement performed by Finish here is what makes the single
// Unfinished=1 initial value work: a job's own execution supplies one of
// the decrements, its children supply the rest.
func Execute(w Spawner, j *Job) {
	if j.Func != nil {
		j.Func(w, j, j.Payload)
	}
	Finish(w, j)
}

// Finish decrements j.Unfinished by one. When it reaches zero, every
// registered continuation is submitted via r and, if j has a parent,
// the parent is finished recursively (iteratively, here, to bound stack
// growth across deep parent chains).
func Finish(r Runner, j *Job) {
	for cur := j; cur != nil; {
		if cur.Unfinished.Add(-1) != 0 {
			return
		}
		for _, c := range cur.continuationsSnapshot() {
			if c != nil {
				Run(r, c)
			}
		}
		cur = cur.Parent
	}
}
