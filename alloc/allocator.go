package alloc

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/flexkit/flexarr/memutils"
)

// ErrAllocFailed is the error returned when an allocator refuses or is unable to satisfy a
// request. Allocation failure is binary: no further detail is carried beyond this sentinel,
// though implementations may wrap it with context.
var ErrAllocFailed error = errors.New("allocator failed to provide memory")

// Allocator is the capability memory is acquired through. Every request is keyed by a
// memutils.Layout, and memory must always be released with the same layout it was obtained
// with. The capability is deliberately minimal (no resize-in-place, no alignment
// negotiation) so it can be backed by anything from the process heap to a fixed arena.
//
// Implementations that have no specialized strategy for the zeroed, grow, or shrink
// operations can delegate to AllocateZeroedFallback, GrowFallback, GrowZeroedFallback, and
// ShrinkFallback.
type Allocator interface {
	// Allocate returns fresh memory of at least the requested layout, or an error wrapping
	// ErrAllocFailed. The returned pointer is aligned to layout.Align().
	Allocate(layout memutils.Layout) (unsafe.Pointer, error)

	// AllocateZeroed behaves like Allocate but the returned memory is zero-filled.
	AllocateZeroed(layout memutils.Layout) (unsafe.Pointer, error)

	// Deallocate releases memory previously obtained from this same allocator with this
	// exact layout. This is a precondition-only contract, not a fallible operation:
	// passing a pointer this allocator did not provide, or a mismatched layout, is
	// undefined behavior and implementations are free to panic.
	Deallocate(ptr unsafe.Pointer, layout memutils.Layout)

	// Grow moves the allocation at ptr from oldLayout to newLayout, which must be at least
	// as large. On failure the old allocation remains valid and unchanged; on success the
	// old allocation must be treated as released and only the returned pointer used.
	Grow(ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error)

	// GrowZeroed behaves like Grow, but bytes beyond oldLayout.Size() are zero-filled.
	GrowZeroed(ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error)

	// Shrink moves the allocation at ptr from oldLayout to newLayout, which must be no
	// larger. The failure and release semantics match Grow.
	Shrink(ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error)
}

// AllocateZeroedFallback implements Allocator.AllocateZeroed by allocating and then
// zero-filling the memory.
func AllocateZeroedFallback(a Allocator, layout memutils.Layout) (unsafe.Pointer, error) {
	ptr, err := a.Allocate(layout)
	if err != nil {
		return nil, err
	}

	zeroBytes(ptr, layout.Size())
	return ptr, nil
}

// GrowFallback implements Allocator.Grow by allocating the new layout, copying
// oldLayout.Size() bytes, and releasing the old allocation. The old allocation is left
// untouched when the new allocation fails.
func GrowFallback(a Allocator, ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error) {
	newPtr, err := a.Allocate(newLayout)
	if err != nil {
		return nil, err
	}

	copyBytes(newPtr, ptr, oldLayout.Size())
	a.Deallocate(ptr, oldLayout)
	return newPtr, nil
}

// GrowZeroedFallback implements Allocator.GrowZeroed in terms of AllocateZeroed.
func GrowZeroedFallback(a Allocator, ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error) {
	newPtr, err := a.AllocateZeroed(newLayout)
	if err != nil {
		return nil, err
	}

	copyBytes(newPtr, ptr, oldLayout.Size())
	a.Deallocate(ptr, oldLayout)
	return newPtr, nil
}

// ShrinkFallback implements Allocator.Shrink by allocating the new layout, copying
// newLayout.Size() bytes, and releasing the old allocation.
func ShrinkFallback(a Allocator, ptr unsafe.Pointer, oldLayout, newLayout memutils.Layout) (unsafe.Pointer, error) {
	newPtr, err := a.Allocate(newLayout)
	if err != nil {
		return nil, err
	}

	copyBytes(newPtr, ptr, newLayout.Size())
	a.Deallocate(ptr, oldLayout)
	return newPtr, nil
}

func copyBytes(dst, src unsafe.Pointer, size int) {
	if size == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(src), size))
}

func zeroBytes(ptr unsafe.Pointer, size int) {
	buf := unsafe.Slice((*byte)(ptr), size)
	for i := range buf {
		buf[i] = 0
	}
}
