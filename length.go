package flexarr

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Length is the set of types usable for a container's length, capacity, and index values.
// Any builtin unsigned integer width satisfies it, as does any named type whose underlying
// type is an unsigned integer. The arithmetic below assumes the ordinary wrapping behavior
// of Go's unsigned integers.
type Length interface {
	constraints.Unsigned
}

// maxLength returns the largest value representable in L.
func maxLength[L Length]() L {
	var zero L
	return ^zero
}

func checkedAdd[L Length](a, b L) (L, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

func checkedSub[L Length](a, b L) (L, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

func checkedMul[L Length](a, b L) (L, bool) {
	if a == 0 {
		return 0, true
	}
	product := a * b
	if product/a != b {
		return 0, false
	}
	return product, true
}

// lengthToInt converts a length value to the platform's int, reporting false when the
// value does not fit. Paths that have already established representability convert with a
// plain int() instead.
func lengthToInt[L Length](value L) (int, bool) {
	if uint64(value) > uint64(math.MaxInt) {
		return 0, false
	}
	return int(value), true
}

// intToLength converts a native int to the length type, reporting false when the value is
// negative or does not fit.
func intToLength[L Length](value int) (L, bool) {
	if value < 0 {
		return 0, false
	}
	converted := L(value)
	if uint64(converted) != uint64(value) {
		return 0, false
	}
	return converted, true
}
