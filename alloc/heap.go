package alloc

import (
	"context"
	"sync"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"

	"github.com/flexkit/flexarr/memutils"
)

// Heap is the default Allocator, backed by the Go heap. Each live allocation pins its
// backing slice in a registry so the garbage collector does not reclaim it while raw
// pointers into it are outstanding. The memory handed out is untyped: the collector does
// not scan it for Go pointers, so values written into it do not keep their referents alive.
//
// Heap rejects zero-size requests with ErrAllocFailed. Callers are expected to
// short-circuit zero-sized elements before reaching the allocator.
//
// A Heap is safe for concurrent use. The registry is guarded by a mutex; the memory it
// hands out is not synchronized in any way.
type Heap struct {
	mutex  sync.Mutex
	pins   *swiss.Map[uintptr, []byte]
	logger *slog.Logger
}

// HeapOptions contains optional settings when creating a Heap
type HeapOptions struct {
	// Logger receives reports of unreleased allocations when the Heap is destroyed. When
	// nil, slog.Default() is used.
	Logger *slog.Logger
}

// NewHeap creates a standalone Heap. Most consumers can share the process-wide allocator
// returned by Global instead.
func NewHeap(options HeapOptions) *Heap {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Heap{
		pins:   swiss.NewMap[uintptr, []byte](64),
		logger: logger,
	}
}

var globalHeap = NewHeap(HeapOptions{})

// Global returns the process-wide Heap used by convenience constructors that do not take
// an explicit allocator.
func Global() *Heap {
	return globalHeap
}

var _ Allocator = (*Heap)(nil)

// Allocate returns fresh zero-filled memory of at least the requested layout, or an error
// wrapping ErrAllocFailed when the request is zero-size.
func (h *Heap) Allocate(layout memutils.Layout) (unsafe.Pointer, error) {
	size := layout.Size()
	if size == 0 {
		return nil, cerrors.Wrap(ErrAllocFailed, "zero-size allocation request")
	}

	align := layout.Align()
	memutils.DebugCheckPow2(align, "layout alignment")

	// Over-allocate so an aligned pointer can be carved out of the backing slice
	// regardless of where the Go heap placed it.
	buf := make([]byte, size+int(align)-1)
	base := uintptr(unsafe.Pointer(&buf[0]))

	offset := 0
	if misalign := int(base & uintptr(align-1)); misalign != 0 {
		offset = int(align) - misalign
	}
	ptr := unsafe.Pointer(&buf[offset])

	h.mutex.Lock()
	h.pins.Put(uintptr(ptr), buf)
	h.mutex.Unlock()

	return ptr, nil
}

// AllocateZeroed behaves exactly like Allocate: fresh Go heap memory is already
// zero-filled.
func (h *Heap) AllocateZeroed(layout memutils.Layout) (unsafe.Pointer, error) {
	return h.Allocate(layout)
}

// Deallocate unpins the allocation at ptr, allowing the garbage collector to reclaim its
// backing slice. It panics if ptr was not provided by this Heap or was already released.
func (h *Heap) Deallocate(ptr unsafe.Pointer, layout memutils.Layout) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.pins.Delete(uintptr(ptr)) {
		panic("attempting to deallocate a pointer this allocator did not provide")
	}
}

// Grow moves the allocation at ptr to a fresh, larger allocation, copying the old
// contents. The old allocation remains live if the new one cannot be made.
func (h *Heap) Grow(ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error) {
	return GrowFallback(h, ptr, oldLayout, newLayout)
}

// GrowZeroed behaves like Grow; the bytes beyond the old size are zero-filled because the
// fresh allocation starts out zeroed.
func (h *Heap) GrowZeroed(ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error) {
	return GrowFallback(h, ptr, oldLayout, newLayout)
}

// Shrink moves the allocation at ptr to a fresh, smaller allocation, copying the prefix
// that still fits.
func (h *Heap) Shrink(ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error) {
	return ShrinkFallback(h, ptr, oldLayout, newLayout)
}

// AllocationCount returns the number of live allocations pinned by this Heap.
func (h *Heap) AllocationCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.pins.Count()
}

// Destroy logs every allocation that is still live and unpins it. A correctly behaving
// consumer releases everything before destroying the allocator, so anything reported here
// is a leak.
func (h *Heap) Destroy() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.pins.Iter(func(ptr uintptr, backing []byte) bool {
		h.logger.LogAttrs(context.Background(), slog.LevelError,
			"[UNRELEASED MEMORY] unfreed allocation",
			slog.Uint64("pointer", uint64(ptr)),
			slog.Int("backingBytes", len(backing)))
		return false
	})

	h.pins = swiss.NewMap[uintptr, []byte](64)
}

// BuildStatsString populates a json writer with information about the live allocations
// pinned by this Heap.
func (h *Heap) BuildStatsString(writer *jwriter.Writer) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	obj := writer.Object()
	defer obj.End()

	obj.Name("AllocationCount").Int(h.pins.Count())

	arrState := obj.Name("Allocations").Array()
	defer arrState.End()

	h.pins.Iter(func(ptr uintptr, backing []byte) bool {
		allocObj := arrState.Object()
		allocObj.Name("BackingBytes").Int(len(backing))
		allocObj.End()
		return false
	})
}
