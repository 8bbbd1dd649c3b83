package flexarr

import (
	"unsafe"

	"github.com/flexkit/flexarr/alloc"
	"github.com/flexkit/flexarr/memutils"
)

// IntoParts decomposes the container into its raw base pointer, length, capacity, and
// allocator, transferring ownership of the backing allocation to the caller. The container
// is left empty and disarmed: destroying it afterward will not release the returned
// allocation, so no double release can occur.
//
// The caller must either reconstruct a container with FromParts or release the memory
// manually through the returned allocator, using the layout of capacity elements of T.
// The base pointer is nil when nothing was ever allocated.
func (a *FlexArr[T, L]) IntoParts() (unsafe.Pointer, L, L, alloc.Allocator) {
	ptr := a.store.ptr
	length := a.length
	capacity := a.store.capacity
	allocator := a.store.allocator

	a.store.ptr = nil
	a.store.capacity = 0
	a.length = 0

	return ptr, length, capacity, allocator
}

// FromParts reconstructs a container from previously decomposed parts.
//
// The preconditions are caller-asserted: ptr must have been obtained from allocator with
// the layout of capacity elements of T, length must not exceed capacity, and ownership of
// the allocation must not be held anywhere else. Violating any of them is undefined
// behavior, not a recoverable error.
func FromParts[T any, L Length](ptr unsafe.Pointer, length, capacity L, allocator alloc.Allocator) *FlexArr[T, L] {
	arr := NewIn[T, L](allocator)
	arr.store.ptr = ptr
	arr.store.capacity = capacity
	arr.length = length

	memutils.DebugValidate(arr)
	return arr
}

// Destroy releases the backing allocation, if any, through the allocator and resets the
// container to an empty, usable state. Element values are not individually finalized; the
// garbage collector owns their cleanup. Destroying a container that was decomposed with
// IntoParts is a no-op.
func (a *FlexArr[T, L]) Destroy() {
	a.length = 0
	a.store.deallocate(memutils.LayoutOf[T]())
}
