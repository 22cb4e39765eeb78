package parallelfor

import (
	"unsafe"

	"github.com/go-foundations/jobsystem/job"
)

// SliceKernel processes one contiguous sub-slice of a typed Go slice.
type SliceKernel[T any] func(batch []T)

// ForSlice is a typed convenience an idiomatic Go caller wants on top
// of the untyped, pointer-and-count For: it derives elementSize from T
// via unsafe.Sizeof and base from the slice header, then drives For
// with a kernel that reconstructs a []T for each batch via
// unsafe.Slice. The underlying contract (For, operating in raw bytes)
// is unchanged; this is purely a wrapper.
func ForSlice[T any](sched job.Spawner, data []T, kernel SliceKernel[T], userData unsafe.Pointer, splitter Splitter) *job.Job {
	if len(data) == 0 {
		root := sched.CreateJob(func(job.Spawner, *job.Job, interface{}) {}, nil)
		sched.Run(root)
		return root
	}

	var zero T
	elemSize := uint32(unsafe.Sizeof(zero))
	base := unsafe.Pointer(&data[0])

	return For(sched, base, uint32(len(data)), elemSize, func(b unsafe.Pointer, count uint32, _ unsafe.Pointer) {
		batch := unsafe.Slice((*T)(b), count)
		kernel(batch)
	}, userData, splitter)
}
