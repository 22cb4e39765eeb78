package jobsystem

import (
	"reflect"

	"github.com/rs/zerolog"
)

// Config controls Scheduler construction. There is no file- or
// environment-variable-backed configuration layer: every field here is
// set explicitly by the embedding application.
type Config struct {
	// NumWorkers is the number of worker goroutines, including worker 0
	// (the calling goroutine). Zero means "autodetect": runtime.GOMAXPROCS(0)
	// after go.uber.org/automaxprocs has had a chance to align GOMAXPROCS
	// with the container's CPU quota, falling back to 4 if that reports
	// zero.
	NumWorkers int

	// JobsPerWorker is the size of each worker's Arena ring. Must be a
	// power of two.
	JobsPerWorker int

	// DequeSize is the capacity of each worker's work-stealing deque,
	// rounded up to the next power of two by deque.New. It should be at
	// least JobsPerWorker, since
	// the arena already bounds how many distinct jobs a worker can have
	// in flight within a frame.
	DequeSize int

	// ContinuationsPerJob is the fixed per-job continuation capacity.
	// This is compile-time-fixed in job.Job (a `[N]*Job` array, not a
	// slice, so every slot in the Arena ring has the same size); the
	// field exists so callers can see and assert the limit they are
	// building against, not to make it runtime-tunable. withDefaults
	// panics if it is set to anything but DefaultContinuationsPerJob.
	ContinuationsPerJob int

	// CacheLineBytes is the assumed cache line size used to pad the
	// deque's top/bottom atomics and the Job record apart from their
	// neighbors. Like ContinuationsPerJob, this documents a value baked
	// into deque.Deque and job.Job at compile time rather than
	// configuring it; withDefaults panics on any other value.
	CacheLineBytes int

	// JobRecordBytes is the size job.Job is laid out to reach:
	// ContinuationsPerJob continuation slots plus Func/Parent/Payload
	// and the completion counters, padded to two CacheLineBytes lines.
	// Asserted by job.TestJobRecordSize, surfaced here for the same
	// documentation purpose as the two fields above.
	JobRecordBytes int

	// DebugAssertions makes CreateChildJob panic when handed a parent
	// that has already completed. Generation counters are not compared,
	// so a parent slot already recycled into a new job is not detected.
	// Off by default: it adds a branch to a hot path
	// and is meant for catching arena-wrap bugs during development, not
	// for production frames.
	DebugAssertions bool

	// Logger receives structured lifecycle events (scheduler start,
	// worker spawn/exit, shutdown) at Debug level. Failed steals are only
	// counted in Metrics, not logged. Defaults to zerolog.Nop(), so a
	// library consumer pays nothing unless it opts in; never logged on
	// the Push/Pop/Steal hot path.
	Logger zerolog.Logger

	// Tracer receives job start/end notifications. This is the contract
	// boundary reserved for an external Chrome-tracing profiler; Tracer
	// itself is never implemented here. Defaults to a no-op.
	Tracer Tracer
}

// DefaultJobsPerWorker is the default Arena ring size per worker.
const DefaultJobsPerWorker = 4096

// DefaultContinuationsPerJob, DefaultCacheLineBytes and
// DefaultJobRecordBytes mirror the compile-time constants baked into
// job.Job and deque.Deque; see Config.ContinuationsPerJob.
const (
	DefaultContinuationsPerJob = 10
	DefaultCacheLineBytes      = 64
	DefaultJobRecordBytes      = 128
)

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		NumWorkers:          0,
		JobsPerWorker:       DefaultJobsPerWorker,
		DequeSize:           DefaultJobsPerWorker,
		ContinuationsPerJob: DefaultContinuationsPerJob,
		CacheLineBytes:      DefaultCacheLineBytes,
		JobRecordBytes:      DefaultJobRecordBytes,
		Logger:              zerolog.Nop(),
		Tracer:              noopTracer{},
	}
}

func (c Config) withDefaults() Config {
	if c.JobsPerWorker <= 0 {
		c.JobsPerWorker = DefaultJobsPerWorker
	}
	if c.DequeSize <= 0 {
		c.DequeSize = c.JobsPerWorker
	}
	if c.ContinuationsPerJob <= 0 {
		c.ContinuationsPerJob = DefaultContinuationsPerJob
	}
	if c.CacheLineBytes <= 0 {
		c.CacheLineBytes = DefaultCacheLineBytes
	}
	if c.JobRecordBytes <= 0 {
		c.JobRecordBytes = DefaultJobRecordBytes
	}
	if c.ContinuationsPerJob != DefaultContinuationsPerJob ||
		c.CacheLineBytes != DefaultCacheLineBytes ||
		c.JobRecordBytes != DefaultJobRecordBytes {
		panic("jobsystem: ContinuationsPerJob/CacheLineBytes/JobRecordBytes are compile-time layout constants of job.Job and deque.Deque, not runtime-tunable")
	}
	if c.Tracer == nil {
		c.Tracer = noopTracer{}
	}
	if reflect.DeepEqual(c.Logger, zerolog.Logger{}) {
		c.Logger = zerolog.Nop()
	}
	return c
}
