package flexarr_test

import (
	"unsafe"

	"github.com/flexkit/flexarr/alloc"
	"github.com/flexkit/flexarr/memutils"
)

// failAllocator refuses every request.
type failAllocator struct{}

var _ alloc.Allocator = failAllocator{}

func (failAllocator) Allocate(layout memutils.Layout) (unsafe.Pointer, error) {
	return nil, alloc.ErrAllocFailed
}

func (failAllocator) AllocateZeroed(layout memutils.Layout) (unsafe.Pointer, error) {
	return nil, alloc.ErrAllocFailed
}

func (failAllocator) Deallocate(ptr unsafe.Pointer, layout memutils.Layout) {
}

func (failAllocator) Grow(ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error) {
	return nil, alloc.ErrAllocFailed
}

func (failAllocator) GrowZeroed(ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error) {
	return nil, alloc.ErrAllocFailed
}

func (failAllocator) Shrink(ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error) {
	return nil, alloc.ErrAllocFailed
}

// countingAllocator permits a fixed number of successful allocations and fails afterward.
// Grow and Shrink count as allocations since they go through the fallback strategies.
type countingAllocator struct {
	limit int
	count int
	heap  *alloc.Heap
}

var _ alloc.Allocator = (*countingAllocator)(nil)

func newCountingAllocator(limit int) *countingAllocator {
	return &countingAllocator{
		limit: limit,
		heap:  alloc.NewHeap(alloc.HeapOptions{}),
	}
}

func (c *countingAllocator) Allocate(layout memutils.Layout) (unsafe.Pointer, error) {
	if c.count >= c.limit {
		return nil, alloc.ErrAllocFailed
	}
	c.count++
	return c.heap.Allocate(layout)
}

func (c *countingAllocator) AllocateZeroed(layout memutils.Layout) (unsafe.Pointer, error) {
	return c.Allocate(layout)
}

func (c *countingAllocator) Deallocate(ptr unsafe.Pointer, layout memutils.Layout) {
	c.heap.Deallocate(ptr, layout)
}

func (c *countingAllocator) Grow(ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error) {
	return alloc.GrowFallback(c, ptr, oldLayout, newLayout)
}

func (c *countingAllocator) GrowZeroed(ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error) {
	return alloc.GrowZeroedFallback(c, ptr, oldLayout, newLayout)
}

func (c *countingAllocator) Shrink(ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error) {
	return alloc.ShrinkFallback(c, ptr, oldLayout, newLayout)
}
