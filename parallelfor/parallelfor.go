// Package parallelfor decomposes a contiguous range into a balanced
// tree of jobs, each covering a disjoint contiguous sub-range, in both
// a flat batch-tree form and a halving-recursive form.
package parallelfor

import (
	"unsafe"

	"github.com/go-foundations/jobsystem/job"
)

// KernelFunc processes one contiguous sub-range: base points at the
// first element of the slice, count is the number of elements, and
// userData is the caller-supplied opaque payload threaded through
// unchanged.
type KernelFunc func(base unsafe.Pointer, count uint32, userData unsafe.Pointer)

// Splitter decides whether a range of count elements should be divided
// further, and the maximum batch size For() will hand to a single leaf
// once it stops dividing.
type Splitter interface {
	ShouldSplit(count uint32) bool
	// BatchSize is the largest leaf size this splitter will accept,
	// used by For to partition [0, count) into ⌈count / T⌉ contiguous
	// batches, where T is BatchSize().
	BatchSize() uint32
}

// CountSplitter splits whenever count exceeds Threshold elements.
type CountSplitter struct {
	Threshold uint32
}

// ShouldSplit implements Splitter.
func (c CountSplitter) ShouldSplit(count uint32) bool { return count > c.Threshold }

// BatchSize implements Splitter.
func (c CountSplitter) BatchSize() uint32 { return c.Threshold }

// DataSizeSplitter splits whenever count*ElementSize would exceed
// CacheBudget bytes: the cache-aware alternative to a raw element
// count.
type DataSizeSplitter struct {
	ElementSize uint64
	CacheBudget uint64 // defaults to 32 KiB (L1-sized) when zero
}

func (d DataSizeSplitter) budget() uint64 {
	if d.CacheBudget == 0 {
		return 32 * 1024
	}
	return d.CacheBudget
}

// ShouldSplit implements Splitter.
func (d DataSizeSplitter) ShouldSplit(count uint32) bool {
	return uint64(count)*d.ElementSize > d.budget()
}

// BatchSize implements Splitter: the most elements that fit in the
// cache budget, at least one.
func (d DataSizeSplitter) BatchSize() uint32 {
	if d.ElementSize == 0 {
		return 1
	}
	n := d.budget() / d.ElementSize
	if n == 0 {
		n = 1
	}
	return uint32(n)
}

type batchPayload struct {
	base     unsafe.Pointer
	count    uint32
	kernel   KernelFunc
	userData unsafe.Pointer
}

func runBatch(_ job.Spawner, _ *job.Job, payload interface{}) {
	p := payload.(*batchPayload)
	p.kernel(p.base, p.count, p.userData)
}

func offset(base unsafe.Pointer, index, elemSize uint32) unsafe.Pointer {
	return unsafe.Pointer(uintptr(base) + uintptr(index)*uintptr(elemSize))
}

// For submits the batch-tree variant: if count fits within splitter's
// threshold, kernel runs synchronously on the calling goroutine and the
// returned root job is already complete; otherwise [0, count) is
// partitioned into ⌈count / T⌉ contiguous batches of size ≤ T (the last
// may be smaller), each becomes a child job of a no-op root sentinel,
// and every child is submitted to the calling worker's deque
// immediately.
//
// Each batch's payload is a small Go value owned by this package and
// released by the garbage collector once the leaf job returns; the
// scheduler itself still performs no allocation or free on a job's
// behalf.
func For(sched job.Spawner, base unsafe.Pointer, count, elementSize uint32, kernel KernelFunc, userData unsafe.Pointer, splitter Splitter) *job.Job {
	if elementSize == 0 {
		panic("parallelfor: elementSize must be non-zero")
	}

	root := sched.CreateJob(func(job.Spawner, *job.Job, interface{}) {}, nil)

	if !splitter.ShouldSplit(count) {
		kernel(base, count, userData)
		sched.Run(root)
		return root
	}

	batchSize := splitter.BatchSize()
	if batchSize == 0 {
		batchSize = count
	}

	for start := uint32(0); start < count; start += batchSize {
		end := start + batchSize
		if end > count {
			end = count
		}
		p := &batchPayload{
			base:     offset(base, start, elementSize),
			count:    end - start,
			kernel:   kernel,
			userData: userData,
		}
		leaf := sched.CreateChildJob(root, runBatch, p)
		sched.Run(leaf)
	}

	sched.Run(root)
	return root
}

// ForRecursive builds the halving-recursive alternative to For: rather
// than flattening the split into a list of leaf batches up front and
// submitting them all from the calling goroutine, each split point
// becomes its own job that recurses further once it actually runs, so
// the splitting work itself is distributed across workers instead of
// done eagerly by the caller. Both variants produce disjoint contiguous
// coverage of [0, count) with each leaf invoked exactly once.
func ForRecursive(sched job.Spawner, base unsafe.Pointer, count, elementSize uint32, kernel KernelFunc, userData unsafe.Pointer, splitter Splitter) *job.Job {
	if elementSize == 0 {
		panic("parallelfor: elementSize must be non-zero")
	}

	type rangePayload struct {
		base  unsafe.Pointer
		count uint32
	}

	var splitFn job.Func
	splitFn = func(w job.Spawner, self *job.Job, payload interface{}) {
		rp := payload.(*rangePayload)
		if !splitter.ShouldSplit(rp.count) {
			kernel(rp.base, rp.count, userData)
			return
		}
		left := rp.count / 2
		right := rp.count - left

		leftJob := w.CreateChildJob(self, splitFn, &rangePayload{base: rp.base, count: left})
		w.Run(leftJob)

		rightJob := w.CreateChildJob(self, splitFn, &rangePayload{
			base:  offset(rp.base, left, elementSize),
			count: right,
		})
		w.Run(rightJob)
	}

	root := sched.CreateJob(splitFn, &rangePayload{base: base, count: count})
	sched.Run(root)
	return root
}
