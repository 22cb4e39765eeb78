package jobsystem

import "sync/atomic"

// Metrics holds atomic, lock-free counters spanning a Scheduler's entire
// lifetime across many frames, rather than one closed batch of jobs.
type Metrics struct {
	jobsCreated     atomic.Int64
	jobsExecuted    atomic.Int64
	stealAttempts   atomic.Int64
	stealSuccesses  atomic.Int64
	stealExhaustion atomic.Int64
}

// Snapshot is a point-in-time copy of Metrics, safe to read without races.
type Snapshot struct {
	JobsCreated     int64
	JobsExecuted    int64
	StealAttempts   int64
	StealSuccesses  int64
	StealExhaustion int64
}

// Snapshot returns a copy of the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		JobsCreated:     m.jobsCreated.Load(),
		JobsExecuted:    m.jobsExecuted.Load(),
		StealAttempts:   m.stealAttempts.Load(),
		StealSuccesses:  m.stealSuccesses.Load(),
		StealExhaustion: m.stealExhaustion.Load(),
	}
}
