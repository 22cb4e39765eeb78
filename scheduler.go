// Package jobsystem is a task scheduler for fine-grained, short-lived
// compute work: it decomposes a frame's worth of computation into many
// small jobs, runs them across a pool of worker goroutines, load-balances
// via Chase–Lev work stealing, and lets the calling goroutine contribute
// execution cycles while it waits on completion.
//
// See SPEC_FULL.md for the full design. In short: create a Scheduler
// once, build a job graph each frame with CreateJob/CreateChildJob/
// AddContinuation, submit roots with RunJob, and call Wait on each root
// you care about before starting the next frame.
package jobsystem

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-foundations/jobsystem/job"

	_ "go.uber.org/automaxprocs" // aligns GOMAXPROCS with the container CPU quota before we read it
)

// Scheduler owns a fixed pool of workers for the lifetime of the
// process (or until Shutdown). There is no module-level mutable state:
// every field a public method needs lives on the Scheduler or on the
// Worker it hands to a running job.
type Scheduler struct {
	cfg     Config
	workers []*Worker
	running atomic.Bool
	wg      sync.WaitGroup
	logger  zeroLogger
	metrics Metrics
}

// New constructs and starts a Scheduler with the given configuration.
// NumWorkers<=0 autodetects hardware concurrency via
// runtime.GOMAXPROCS(0) (after automaxprocs has aligned it with the
// container's CPU quota), falling back to 4 if that still reports zero.
//
// Worker 0 is always the goroutine that calls New; it must also be the
// only goroutine that later calls Wait/RunJob/CreateJob directly on the
// Scheduler (as opposed to via the job.Spawner handed to a running
// Job.Func), the same single "calling thread" convention a C job-system
// API built around thread-local state would assume.
func New(cfg Config) *Scheduler {
	cfg = cfg.withDefaults()

	h := cfg.NumWorkers
	if h <= 0 {
		h = runtime.GOMAXPROCS(0)
	}
	if h <= 0 {
		h = 4
	}

	s := &Scheduler{
		cfg:    cfg,
		logger: zeroLogger{cfg.Logger},
	}
	s.running.Store(true)

	s.workers = make([]*Worker, h)
	for i := 0; i < h; i++ {
		s.workers[i] = newWorker(i, s, cfg.DequeSize, cfg.JobsPerWorker)
	}

	for i := 1; i < h; i++ {
		s.wg.Add(1)
		go s.workerLoop(s.workers[i])
	}

	s.logger.debug("scheduler started", "workers", h)
	return s
}

// NumWorkers reports the number of workers, including worker 0.
func (s *Scheduler) NumWorkers() int { return len(s.workers) }

// Metrics returns a snapshot of the scheduler's lifetime counters.
func (s *Scheduler) Metrics() Snapshot { return s.metrics.Snapshot() }

// CreateJob allocates a new root job on worker 0's arena. Must be
// called from worker 0 (the goroutine that constructed the Scheduler);
// a job running on any worker should instead use the job.Spawner handle
// it was given.
func (s *Scheduler) CreateJob(fn job.Func, payload interface{}) *job.Job {
	return s.workers[0].CreateJob(fn, payload)
}

// CreateChildJob allocates a new job as a child of parent, on worker 0's
// arena. See CreateJob for the calling-goroutine requirement.
func (s *Scheduler) CreateChildJob(parent *job.Job, fn job.Func, payload interface{}) *job.Job {
	return s.workers[0].CreateChildJob(parent, fn, payload)
}

// RunJob submits j onto worker 0's deque.
func (s *Scheduler) RunJob(j *job.Job) {
	s.workers[0].Run(j)
}

// Run is an alias for RunJob so *Scheduler satisfies job.Runner and
// job.Spawner directly (useful when passing the scheduler itself into
// parallelfor.For from the frame-driving goroutine).
func (s *Scheduler) Run(j *job.Job) { s.RunJob(j) }

// AddContinuation registers successor to run after j completes. See
// job.Job.AddContinuation for the capacity and ordering caveats.
func (s *Scheduler) AddContinuation(j, successor *job.Job) bool {
	return j.AddContinuation(successor)
}

// WaitJob blocks the calling goroutine (which must be worker 0) until j
// completes, executing other jobs (its own or stolen) in the
// meantime. It never blocks on a channel or condition variable.
func (s *Scheduler) WaitJob(j *job.Job) {
	w := s.workers[0]
	for j.Unfinished.Load() != 0 {
		if next, ok := s.getJob(w); ok {
			s.execute(w, next)
		}
	}
}

// Wait is an alias for WaitJob.
func (s *Scheduler) Wait(j *job.Job) { s.WaitJob(j) }

// FrameStart is a no-op hook reserved for a future profiler integration.
func (s *Scheduler) FrameStart() {}

// FrameEnd is a synchronization point with the contract that the caller
// has already waited on every root it cares about. Arena indices are
// not reset here: slots are recycled implicitly as each worker's ring
// wraps.
func (s *Scheduler) FrameEnd() {}

// Shutdown stops the worker pool: running is cleared, every worker
// goroutine observes that at the top of its loop (or once its current
// job finishes) and returns, and Shutdown joins all of them before
// returning. Already-executing jobs are allowed to finish; pending
// deque entries are simply abandoned.
func (s *Scheduler) Shutdown() {
	s.running.Store(false)
	s.wg.Wait()
	s.logger.debug("scheduler stopped")
}

func (s *Scheduler) workerLoop(w *Worker) {
	defer s.wg.Done()
	s.logger.debug("worker spawned", "worker", w.id)
	for s.running.Load() {
		if j, ok := s.getJob(w); ok {
			s.execute(w, j)
		}
	}
	s.logger.debug("worker exiting", "worker", w.id)
}

// getJob tries a local pop first, then a uniformly random steal
// attempt against one peer. Both failure paths yield the CPU rather
// than spin.
func (s *Scheduler) getJob(w *Worker) (*job.Job, bool) {
	if j, ok := w.deque.Pop(); ok {
		return j, true
	}

	n := len(s.workers)
	if n <= 1 {
		runtime.Gosched()
		return nil, false
	}

	victim := w.rng.IntN(n)
	s.metrics.stealAttempts.Add(1)
	if victim == w.id {
		runtime.Gosched()
		return nil, false
	}

	if j, ok := s.workers[victim].deque.Steal(); ok {
		s.metrics.stealSuccesses.Add(1)
		return j, true
	}

	s.metrics.stealExhaustion.Add(1)
	runtime.Gosched()
	return nil, false
}

func (s *Scheduler) execute(w *Worker, j *job.Job) {
	s.cfg.Tracer.OnJobStart(j, w.id)
	job.Execute(w, j)
	s.metrics.jobsExecuted.Add(1)
	s.cfg.Tracer.OnJobEnd(j, w.id)
}
