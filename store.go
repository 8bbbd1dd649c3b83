package flexarr

import (
	"math"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"

	"github.com/flexkit/flexarr/alloc"
	"github.com/flexkit/flexarr/memutils"
)

// store owns the raw buffer, its capacity, and the allocator instance it allocates
// through. It translates element counts into byte-accurate allocation requests and owns
// the growth policy. The store is element-type agnostic: the facade passes the element
// layout into every call.
//
// ptr is nil until the first allocation. Zero-capacity stores are never dereferenced, so
// no sentinel address is needed.
type store[L Length] struct {
	ptr       unsafe.Pointer
	allocator alloc.Allocator
	capacity  L
	reallocs  int
}

func newStore[L Length](allocator alloc.Allocator) store[L] {
	return store[L]{allocator: allocator}
}

// capacityFor returns the element capacity of the store. Zero-sized elements consume no
// storage, so their capacity is bounded only by the length type itself.
func (s *store[L]) capacityFor(elemSize int) L {
	if elemSize == 0 {
		return maxLength[L]()
	}
	return s.capacity
}

// expandCapacityAtLeast grows to hold at least target elements using the amortized
// policy: the new capacity is the largest of 1.5x the old capacity, the target, and 8.
// The 8-element floor avoids repeated tiny reallocations for small containers; the 1.5x
// factor keeps the cost of a growth sequence O(1) per element.
func (s *store[L]) expandCapacityAtLeast(target L, elem memutils.Layout) error {
	oldCap := s.capacityFor(elem.Size())

	// The 1.5x step may wrap; the max with target below still produces a usable
	// capacity when it does.
	newCap := oldCap + oldCap>>1
	if newCap < target {
		newCap = target
	}
	if newCap < 8 {
		newCap = 8
	}

	return s.expandCapacityTo(newCap, elem)
}

// expandCapacityTo grows (or initially allocates) to hold exactly target elements. When
// an allocation is live, target must exceed the current capacity. On failure the store is
// left exactly as it was.
func (s *store[L]) expandCapacityTo(target L, elem memutils.Layout) error {
	if elem.Size() == 0 {
		// Zero-sized elements are never backed by an allocation.
		return nil
	}

	count, ok := lengthToInt(target)
	if !ok {
		return cerrors.Wrapf(memutils.ErrSizeOverflow, "capacity %d does not fit in an int", uint64(target))
	}

	newLayout, err := elem.Repeat(count)
	if err != nil {
		return err
	}

	// Keep the buffer small enough that pointer arithmetic over it cannot overflow.
	if newLayout.Size() > math.MaxInt>>1 {
		return cerrors.Wrapf(memutils.ErrSizeOverflow, "buffer of %d bytes exceeds the allocation limit", newLayout.Size())
	}

	var newPtr unsafe.Pointer
	if oldLayout, live := s.currentLayout(elem); live {
		newPtr, err = s.allocator.Grow(s.ptr, oldLayout, newLayout)
	} else {
		newPtr, err = s.allocator.Allocate(newLayout)
	}
	if err != nil {
		return cerrors.Wrapf(err, "expanding to %d elements", count)
	}

	s.ptr = newPtr
	s.capacity = target
	s.reallocs++
	return nil
}

// shrinkCapacityTo reduces the live allocation to hold exactly target elements. A target
// of zero releases the allocation entirely. No-op for zero-sized elements and for targets
// at or above the current capacity.
func (s *store[L]) shrinkCapacityTo(target L, elem memutils.Layout) error {
	if elem.Size() == 0 {
		return nil
	}

	oldLayout, live := s.currentLayout(elem)
	if !live || target >= s.capacity {
		return nil
	}

	if target == 0 {
		s.allocator.Deallocate(s.ptr, oldLayout)
		s.ptr = nil
		s.capacity = 0
		return nil
	}

	// target is below the current capacity, which already fit in an int.
	count := int(target)

	newLayout, err := elem.Repeat(count)
	if err != nil {
		return err
	}

	newPtr, err := s.allocator.Shrink(s.ptr, oldLayout, newLayout)
	if err != nil {
		return cerrors.Wrapf(err, "shrinking to %d elements", count)
	}

	s.ptr = newPtr
	s.capacity = target
	s.reallocs++
	return nil
}

// currentLayout reconstructs the byte layout of the live allocation from the stored
// capacity. It reports false when nothing has ever been allocated.
func (s *store[L]) currentLayout(elem memutils.Layout) (memutils.Layout, bool) {
	if s.capacity == 0 {
		return memutils.Layout{}, false
	}

	padded := elem.PadToAlign()

	// The live allocation was validated when it was made, so this cannot fail.
	layout, err := memutils.NewLayout(padded.Size()*int(s.capacity), padded.Align())
	if err != nil {
		panic(err)
	}
	return layout, true
}

// deallocate releases the live allocation, if any.
func (s *store[L]) deallocate(elem memutils.Layout) {
	layout, live := s.currentLayout(elem)
	if !live {
		return
	}

	s.allocator.Deallocate(s.ptr, layout)
	s.ptr = nil
	s.capacity = 0
}
