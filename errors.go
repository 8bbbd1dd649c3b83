package flexarr

import "github.com/pkg/errors"

// ErrCapacityOverflow is returned when a requested length or capacity exceeds the maximum
// value representable in the container's length type.
var ErrCapacityOverflow error = errors.New("requested capacity exceeds the length type's maximum")

// ErrIndexOutOfBounds is returned by Insert when the index is strictly greater than the
// current length.
var ErrIndexOutOfBounds error = errors.New("index is out of bounds")
