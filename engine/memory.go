package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Allocation is one staging block the codec reserved in engine memory.
type Allocation struct {
	Ptr  uint32
	Size uint32
}

// AllocationList tracks staging allocations made during a single codec
// operation so they can be released together on every exit path.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 4)}
	},
}

func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 64

// Release returns to pool. Must call after Free(); list invalid after Release.
func (al *AllocationList) Release() {
	// Only pool small allocation lists to prevent memory bloat
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

// FreeAndRelease frees every tracked block and returns the list to the pool.
func (al *AllocationList) FreeAndRelease(ctx context.Context, eng Engine) {
	al.Free(ctx, eng)
	al.Release()
}

func (al *AllocationList) Add(ptr, size uint32) {
	al.allocations = append(al.allocations, Allocation{Ptr: ptr, Size: size})
}

// Free releases all tracked blocks. Failures are logged, not returned: by the
// time Free runs the operation's outcome is already decided.
func (al *AllocationList) Free(ctx context.Context, eng Engine) {
	if eng == nil {
		return
	}
	for _, a := range al.allocations {
		if a.Ptr == 0 {
			continue
		}
		if err := eng.Free(ctx, a.Ptr); err != nil {
			Logger().Warn("failed to free staging allocation",
				zap.Uint32("ptr", a.Ptr),
				zap.Uint32("size", a.Size),
				zap.Error(err))
		}
	}
}

func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

func (al *AllocationList) Count() int {
	return len(al.allocations)
}
