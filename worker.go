package jobsystem

import (
	"math/rand/v2"
	"time"

	"github.com/go-foundations/jobsystem/arena"
	"github.com/go-foundations/jobsystem/deque"
	"github.com/go-foundations/jobsystem/job"
)

// Worker is the explicit, per-worker view of a Scheduler: its own
// deque, its own arena, its own victim-selection PRNG. A Worker is
// handed to a running Job.Func as the job.Spawner argument, so spawning
// children never reaches for ambient or thread-local state.
type Worker struct {
	id    int
	sched *Scheduler
	deque *deque.Deque
	arena *arena.Arena
	rng   *rand.Rand
}

// ID returns the worker's index; 0 is always the goroutine that
// constructed the Scheduler.
func (w *Worker) ID() int { return w.id }

// Run submits j onto this worker's deque. Implements job.Runner.
func (w *Worker) Run(j *job.Job) {
	w.deque.Push(j)
}

// CreateJob allocates a new root job (no parent) from this worker's
// arena. Implements job.Spawner.
func (w *Worker) CreateJob(fn job.Func, payload interface{}) *job.Job {
	j := w.arena.Allocate()
	j.Func = fn
	j.Payload = payload
	w.sched.metrics.jobsCreated.Add(1)
	return j
}

// CreateChildJob allocates a new job as a child of parent, atomically
// incrementing parent's unfinished count first; the parent is already
// live, so this is safe regardless of which worker owns it; the
// parent's completion is serialized through the child's own finish.
// Implements job.Spawner.
//
// With Config.DebugAssertions set, it additionally panics when parent
// has already completed (Unfinished == 0), the state a Parent pointer
// held past its job's completion is in until the slot is recycled. It
// compares no generations: a slot already recycled into a new job
// passes the check.
func (w *Worker) CreateChildJob(parent *job.Job, fn job.Func, payload interface{}) *job.Job {
	if w.sched.cfg.DebugAssertions && parent.IsComplete() {
		panic("jobsystem: CreateChildJob on an already-finished parent; the Parent pointer is likely stale")
	}
	parent.Unfinished.Add(1)
	j := w.CreateJob(fn, payload)
	j.Parent = parent
	return j
}

// newWorker seeds the worker's PRNG from its index plus a time source:
// each worker owns its *rand.Rand outright, so there is no shared
// mutable RNG state on the hot victim-selection path.
func newWorker(id int, sched *Scheduler, dequeSize, arenaSize int) *Worker {
	seed := uint64(time.Now().UnixNano())
	return &Worker{
		id:    id,
		sched: sched,
		deque: deque.New(dequeSize),
		arena: arena.New(arenaSize),
		rng:   rand.New(rand.NewPCG(uint64(id)+1, seed^(uint64(id)*2654435761+1))),
	}
}
