package memutils

import (
	"math"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
)

// Layout describes a region of memory: a size in bytes and a power-of-two alignment.
// It is the unit all allocator requests are keyed by. The zero value describes a
// zero-size, byte-aligned region.
type Layout struct {
	size  int
	align uint
}

// NewLayout builds a Layout from a size in bytes and an alignment. It returns an error
// wrapping ErrLayoutInvalid if the alignment is not a power of two, the size is negative,
// or the size padded up to the alignment cannot be represented in an int.
func NewLayout(size int, align uint) (Layout, error) {
	if align == 0 || align&(align-1) != 0 {
		return Layout{}, cerrors.Wrapf(ErrLayoutInvalid, "alignment %d is not a power of two", align)
	}
	if size < 0 {
		return Layout{}, cerrors.Wrapf(ErrLayoutInvalid, "size %d is negative", size)
	}
	if size > math.MaxInt-int(align)+1 {
		return Layout{}, cerrors.Wrapf(ErrLayoutInvalid, "size %d cannot be padded to alignment %d", size, align)
	}
	return Layout{size: size, align: align}, nil
}

// LayoutOf returns the layout of the Go type T. Zero-sized types produce a
// zero-size layout with the type's natural alignment.
func LayoutOf[T any]() Layout {
	var zero T
	return Layout{
		size:  int(unsafe.Sizeof(zero)),
		align: uint(unsafe.Alignof(zero)),
	}
}

// Size returns the size of the region in bytes.
func (l Layout) Size() int {
	return l.size
}

// Align returns the alignment of the region in bytes.
func (l Layout) Align() uint {
	if l.align == 0 {
		return 1
	}
	return l.align
}

// PadToAlign returns a copy of this layout with the size rounded up to the nearest
// multiple of the alignment.
func (l Layout) PadToAlign() Layout {
	return Layout{
		size:  AlignUp(l.size, l.Align()),
		align: l.Align(),
	}
}

// Repeat computes the layout of count contiguous elements of this layout, with each
// element padded to its alignment. It returns an error wrapping ErrSizeOverflow if the
// combined byte size overflows the platform's int range.
func (l Layout) Repeat(count int) (Layout, error) {
	if count < 0 {
		return Layout{}, cerrors.Wrapf(ErrSizeOverflow, "element count %d is negative", count)
	}
	padded := l.PadToAlign().Size()
	if padded != 0 && count > math.MaxInt/padded {
		return Layout{}, cerrors.Wrapf(ErrSizeOverflow, "%d elements of %d bytes exceed the addressable range", count, padded)
	}
	return NewLayout(padded*count, l.Align())
}
