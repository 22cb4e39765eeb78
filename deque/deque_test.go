package deque

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-foundations/jobsystem/job"
)

func newJob(id int) *job.Job {
	j := &job.Job{}
	j.Reset(0)
	j.Payload = id
	return j
}

func TestPushPopLIFO(t *testing.T) {
	d := New(16)
	a, b, c := newJob(1), newJob(2), newJob(3)
	d.Push(a)
	d.Push(b)
	d.Push(c)

	got, ok := d.Pop()
	require.True(t, ok)
	assert.Same(t, c, got)

	got, ok = d.Pop()
	require.True(t, ok)
	assert.Same(t, b, got)

	got, ok = d.Pop()
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = d.Pop()
	assert.False(t, ok)
}

func TestStealFIFO(t *testing.T) {
	d := New(16)
	a, b := newJob(1), newJob(2)
	d.Push(a)
	d.Push(b)

	got, ok := d.Steal()
	require.True(t, ok)
	assert.Same(t, a, got)

	got, ok = d.Pop()
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestPushOnFullDequePanics(t *testing.T) {
	d := New(1)
	d.Push(newJob(1))
	assert.Panics(t, func() { d.Push(newJob(2)) })
}

// TestDequeSafetyUnderConcurrentStealing has one owner goroutine
// repeatedly pushing and popping while K thieves repeatedly steal;
// every submitted job must be observed exactly once across all
// pop+steal returns and no pointer must ever be returned twice.
func TestDequeSafetyUnderConcurrentStealing(t *testing.T) {
	const (
		numJobs    = 20000
		numThieves = 8
	)
	d := New(numJobs)
	jobs := make([]*job.Job, numJobs)
	for i := range jobs {
		jobs[i] = newJob(i)
	}

	var seen sync.Map // *job.Job -> struct{}
	var dupes int32

	var wg sync.WaitGroup
	done := make(chan struct{})

	for k := 0; k < numThieves; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					// Drain whatever is left before exiting.
					for {
						j, ok := d.Steal()
						if !ok {
							return
						}
						record(&seen, j, &dupes)
					}
				default:
					if j, ok := d.Steal(); ok {
						record(&seen, j, &dupes)
					}
				}
			}
		}()
	}

	popped := make([]*job.Job, 0, numJobs)
	for _, j := range jobs {
		d.Push(j)
		if got, ok := d.Pop(); ok {
			popped = append(popped, got)
		}
	}
	for {
		got, ok := d.Pop()
		if !ok {
			break
		}
		popped = append(popped, got)
	}
	close(done)
	wg.Wait()

	for _, j := range popped {
		record(&seen, j, &dupes)
	}

	assert.Zero(t, dupes, "no job observed twice across pop+steal")
	count := 0
	seen.Range(func(_, _ interface{}) bool { count++; return true })
	assert.Equal(t, numJobs, count, "every submitted job observed exactly once")
}

func record(seen *sync.Map, j *job.Job, dupes *int32) {
	if _, loaded := seen.LoadOrStore(j, struct{}{}); loaded {
		atomic.AddInt32(dupes, 1)
	}
}
