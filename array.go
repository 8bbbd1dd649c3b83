// Package flexarr provides FlexArr, a growable contiguous-storage container with three
// properties the builtin slice machinery does not offer: allocation failures are reported
// as errors instead of aborting the process, the integer type used for length, capacity,
// and indexing is caller-selectable, and the memory source is abstracted behind the
// alloc.Allocator capability so the container works against arenas, fixed pools, or any
// other memory source.
//
// The backing buffer is untyped memory obtained from the allocator and is not scanned by
// the garbage collector. Element types that contain Go pointers must have their referents
// kept reachable elsewhere for as long as they live in the container.
//
// A FlexArr is not safe for concurrent use: mutation requires exclusive access.
package flexarr

import (
	"fmt"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"

	"github.com/flexkit/flexarr/alloc"
	"github.com/flexkit/flexarr/memutils"
)

// FlexArr is a growable array of T indexed by the unsigned integer type L. The zero value
// is not usable; construct with New, NewIn, WithCapacity, or WithCapacityIn.
//
// The invariant Len() <= Cap() holds at all times: the first Len() element slots hold live
// values and the slots beyond them are uninitialized memory. Every operation that can fail
// leaves the container exactly as it was on failure.
type FlexArr[T any, L Length] struct {
	store  store[L]
	length L
}

// NewIn creates an empty container that allocates through the provided allocator. No
// allocation is performed until the first element needs storage.
func NewIn[T any, L Length](allocator alloc.Allocator) *FlexArr[T, L] {
	return &FlexArr[T, L]{
		store: newStore[L](allocator),
	}
}

// New creates an empty container with the default uint32 length type, backed by the
// process-wide heap allocator.
func New[T any]() *FlexArr[T, uint32] {
	return NewIn[T, uint32](alloc.Global())
}

// WithCapacityIn creates a container with storage for capacity elements eagerly
// allocated from the provided allocator.
func WithCapacityIn[T any, L Length](allocator alloc.Allocator, capacity L) (*FlexArr[T, L], error) {
	arr := NewIn[T, L](allocator)
	if capacity > 0 {
		if err := arr.store.expandCapacityTo(capacity, memutils.LayoutOf[T]()); err != nil {
			return nil, err
		}
	}
	return arr, nil
}

// WithCapacity creates a container with eager storage, the default uint32 length type,
// and the process-wide heap allocator.
func WithCapacity[T any](capacity uint32) (*FlexArr[T, uint32], error) {
	return WithCapacityIn[T, uint32](alloc.Global(), capacity)
}

// Len returns the number of live elements.
func (a *FlexArr[T, L]) Len() L {
	return a.length
}

// Cap returns the element capacity. For zero-sized element types this is always the
// maximum value of L, since no storage backs them.
func (a *FlexArr[T, L]) Cap() L {
	return a.store.capacityFor(memutils.LayoutOf[T]().Size())
}

// IsEmpty returns true when the container holds no elements.
func (a *FlexArr[T, L]) IsEmpty() bool {
	return a.length == 0
}

// elemPtr returns a pointer to slot index. The caller must have established that index is
// in range and, for non-zero-sized elements, representable in an int.
func (a *FlexArr[T, L]) elemPtr(index int) *T {
	stride := memutils.LayoutOf[T]().PadToAlign().Size()
	if stride == 0 {
		var zero T
		return &zero
	}
	return (*T)(unsafe.Add(a.store.ptr, index*stride))
}

// ensureCapacity grows amortized until at least needed elements fit. Growth happens only
// when the needed capacity exceeds the current one.
func (a *FlexArr[T, L]) ensureCapacity(needed L) error {
	if needed <= a.store.capacityFor(memutils.LayoutOf[T]().Size()) {
		return nil
	}
	return a.store.expandCapacityAtLeast(needed, memutils.LayoutOf[T]())
}

// Reserve ensures capacity for at least additional more elements, growing amortized when
// the current capacity does not cover them.
func (a *FlexArr[T, L]) Reserve(additional L) error {
	needed, ok := checkedAdd(a.length, additional)
	if !ok {
		return cerrors.Wrapf(ErrCapacityOverflow, "length %d plus %d overflows the length type", uint64(a.length), uint64(additional))
	}
	return a.ensureCapacity(needed)
}

// ReserveExact grows to exactly the capacity needed for additional more elements instead
// of applying the amortized policy.
func (a *FlexArr[T, L]) ReserveExact(additional L) error {
	needed, ok := checkedAdd(a.length, additional)
	if !ok {
		return cerrors.Wrapf(ErrCapacityOverflow, "length %d plus %d overflows the length type", uint64(a.length), uint64(additional))
	}
	if needed <= a.store.capacityFor(memutils.LayoutOf[T]().Size()) {
		return nil
	}
	return a.store.expandCapacityTo(needed, memutils.LayoutOf[T]())
}

// ReserveInt behaves like Reserve with a native int count, failing with
// ErrCapacityOverflow when the count does not fit in the length type.
func (a *FlexArr[T, L]) ReserveInt(additional int) error {
	converted, ok := intToLength[L](additional)
	if !ok {
		return cerrors.Wrapf(ErrCapacityOverflow, "%d does not fit in the length type", additional)
	}
	return a.Reserve(converted)
}

// ShrinkToFit releases spare capacity, shrinking the backing allocation down to the
// current length. On failure the container is unchanged.
func (a *FlexArr[T, L]) ShrinkToFit() error {
	return a.store.shrinkCapacityTo(a.length, memutils.LayoutOf[T]())
}

// Push appends item, growing the backing buffer if needed. On failure the container is
// unchanged and the item is not stored.
func (a *FlexArr[T, L]) Push(item T) error {
	newLen, ok := checkedAdd(a.length, 1)
	if !ok {
		return cerrors.Wrapf(ErrCapacityOverflow, "container is at the length type's maximum %d", uint64(a.length))
	}
	if err := a.ensureCapacity(newLen); err != nil {
		return err
	}

	*a.elemPtr(int(a.length)) = item
	a.length = newLen

	memutils.DebugValidate(a)
	return nil
}

// Pop removes and returns the last element. It reports false when the container is empty.
// No deallocation occurs.
func (a *FlexArr[T, L]) Pop() (T, bool) {
	var zero T
	if a.length == 0 {
		return zero, false
	}

	a.length--
	return *a.elemPtr(int(a.length)), true
}

// Last returns the last element without removing it.
func (a *FlexArr[T, L]) Last() (T, bool) {
	var zero T
	if a.length == 0 {
		return zero, false
	}
	return *a.elemPtr(int(a.length - 1)), true
}

// Get returns the element at index, reporting false when index is out of range.
func (a *FlexArr[T, L]) Get(index L) (T, bool) {
	var zero T
	if index >= a.length {
		return zero, false
	}

	// In-range indexes of non-zero-sized elements always fit in an int because the
	// capacity was checked when it was allocated; for zero-sized elements the index is
	// never dereferenced.
	return *a.elemPtr(int(index)), true
}

// Set overwrites the element at index, reporting false when index is out of range.
func (a *FlexArr[T, L]) Set(index L, item T) bool {
	if index >= a.length {
		return false
	}

	*a.elemPtr(int(index)) = item
	return true
}

// At returns a pointer to the element at index, behaving like native slice indexing: it
// panics when the index is out of range or cannot be represented on the platform. The
// pointer remains valid until the next operation that reallocates or moves elements.
func (a *FlexArr[T, L]) At(index L) *T {
	if index >= a.length {
		panic(fmt.Sprintf("flexarr: index %d out of range with length %d", uint64(index), uint64(a.length)))
	}

	idx, ok := lengthToInt(index)
	if !ok {
		panic(fmt.Sprintf("flexarr: index %d is not representable on this platform", uint64(index)))
	}
	return a.elemPtr(idx)
}

// GetUnchecked returns a pointer to the element at index without bounds checking. The
// index must be less than Len(); anything else is undefined behavior.
func (a *FlexArr[T, L]) GetUnchecked(index L) *T {
	return a.elemPtr(int(index))
}

// Insert places item at index, shifting the elements in [index, Len()) one slot right
// with a byte move. It fails with ErrIndexOutOfBounds when index is strictly greater than
// the current length. Growth, when needed, precedes the shift.
func (a *FlexArr[T, L]) Insert(index L, item T) error {
	if index > a.length {
		return cerrors.Wrapf(ErrIndexOutOfBounds, "insert at %d with length %d", uint64(index), uint64(a.length))
	}

	newLen, ok := checkedAdd(a.length, 1)
	if !ok {
		return cerrors.Wrapf(ErrCapacityOverflow, "container is at the length type's maximum %d", uint64(a.length))
	}
	if err := a.ensureCapacity(newLen); err != nil {
		return err
	}

	stride := memutils.LayoutOf[T]().PadToAlign().Size()
	if stride != 0 && index < a.length {
		idx := int(index)
		src := unsafe.Add(a.store.ptr, idx*stride)
		dst := unsafe.Add(a.store.ptr, (idx+1)*stride)
		moveBytes(dst, src, (int(a.length)-idx)*stride)
	}

	*a.elemPtr(int(index)) = item
	a.length = newLen

	memutils.DebugValidate(a)
	return nil
}

// Remove takes out and returns the element at index, shifting the elements after it one
// slot left. The relative order of the remaining elements is preserved; cost is linear in
// the number of elements after index. It reports false when index is out of range.
func (a *FlexArr[T, L]) Remove(index L) (T, bool) {
	var zero T
	if index >= a.length {
		return zero, false
	}

	item := *a.elemPtr(int(index))

	stride := memutils.LayoutOf[T]().PadToAlign().Size()
	if stride != 0 {
		idx := int(index)
		last := int(a.length) - 1
		if idx < last {
			dst := unsafe.Add(a.store.ptr, idx*stride)
			src := unsafe.Add(a.store.ptr, (idx+1)*stride)
			moveBytes(dst, src, (last-idx)*stride)
		}
	}

	a.length--
	return item, true
}

// SwapRemove takes out and returns the element at index, moving the last element into its
// slot. Cost is constant; the relative order of the remaining elements is not preserved.
// It reports false when index is out of range.
func (a *FlexArr[T, L]) SwapRemove(index L) (T, bool) {
	var zero T
	if index >= a.length {
		return zero, false
	}

	item := *a.elemPtr(int(index))

	stride := memutils.LayoutOf[T]().PadToAlign().Size()
	if stride != 0 {
		last := int(a.length) - 1
		if int(index) != last {
			*a.elemPtr(int(index)) = *a.elemPtr(last)
		}
	}

	a.length--
	return item, true
}

// Truncate shortens the container to newLength elements, keeping the capacity. It is a
// no-op when newLength is not smaller than the current length. The dropped slots are
// simply forgotten; the garbage collector owns element cleanup.
func (a *FlexArr[T, L]) Truncate(newLength L) {
	if newLength >= a.length {
		return
	}
	a.length = newLength
}

// Clear removes every element, keeping the capacity.
func (a *FlexArr[T, L]) Clear() {
	a.Truncate(0)
}

// ExtendFromSlice bulk-appends items with a single byte copy, reserving capacity for all
// of them first. Every Go value is bit-copyable, so there is no constraint beyond the
// element type itself.
func (a *FlexArr[T, L]) ExtendFromSlice(items []T) error {
	if len(items) == 0 {
		return nil
	}

	additional, ok := intToLength[L](len(items))
	if !ok {
		return cerrors.Wrapf(ErrCapacityOverflow, "%d items do not fit in the length type", len(items))
	}
	newLen, ok := checkedAdd(a.length, additional)
	if !ok {
		return cerrors.Wrapf(ErrCapacityOverflow, "length %d plus %d items overflows the length type", uint64(a.length), len(items))
	}
	if err := a.ensureCapacity(newLen); err != nil {
		return err
	}

	stride := memutils.LayoutOf[T]().PadToAlign().Size()
	if stride != 0 {
		dst := unsafe.Add(a.store.ptr, int(a.length)*stride)
		moveBytes(dst, unsafe.Pointer(&items[0]), len(items)*stride)
	}
	a.length = newLen

	memutils.DebugValidate(a)
	return nil
}

// Slice returns a view over the live elements. The view shares memory with the container
// and is invalidated by any operation that grows, shrinks, or moves elements. For
// zero-sized element types the returned slice is a fresh header of the same length.
func (a *FlexArr[T, L]) Slice() []T {
	if a.length == 0 {
		return nil
	}

	if memutils.LayoutOf[T]().Size() == 0 {
		count, ok := lengthToInt(a.length)
		if !ok {
			panic(fmt.Sprintf("flexarr: length %d is not representable as a slice on this platform", uint64(a.length)))
		}
		return make([]T, count)
	}

	return unsafe.Slice((*T)(a.store.ptr), int(a.length))
}

// moveBytes copies size bytes from src to dst with memmove semantics, so the regions may
// overlap.
func moveBytes(dst, src unsafe.Pointer, size int) {
	if size == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(src), size))
}
