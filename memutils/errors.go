package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// ErrLayoutInvalid is returned when a (size, alignment) descriptor cannot describe a real
// region of memory: the alignment is zero or not a power of two, the size is negative, or
// the align-padded size cannot be represented.
var ErrLayoutInvalid error = errors.New("invalid memory layout")

// ErrSizeOverflow is returned when a byte-size computation overflows the platform's int
// range, or when a length value cannot be converted to or from int.
var ErrSizeOverflow error = errors.New("byte size is not representable on this platform")
