package jobsystem

import "github.com/go-foundations/jobsystem/job"

// Tracer receives job lifecycle notifications. It is the contract the
// core exposes to an external Chrome-tracing-format profiler; this
// module pins the interface and calls it, but implements no profiler
// of its own.
type Tracer interface {
	OnJobStart(j *job.Job, worker int)
	OnJobEnd(j *job.Job, worker int)
}

type noopTracer struct{}

func (noopTracer) OnJobStart(*job.Job, int) {}
func (noopTracer) OnJobEnd(*job.Job, int)   {}
