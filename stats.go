package flexarr

import (
	"math"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"

	"github.com/flexkit/flexarr/memutils"
)

// Stats is a point-in-time snapshot of a container's storage. Length and Capacity are
// clamped to the int range for reporting; only zero-sized element types can exceed it.
type Stats struct {
	Length         int
	Capacity       int
	ElementSize    int
	AllocatedBytes int
	Reallocations  int
}

// Stats returns a snapshot of the container's storage.
func (a *FlexArr[T, L]) Stats() Stats {
	layout := memutils.LayoutOf[T]()

	allocated := 0
	if current, live := a.store.currentLayout(layout); live {
		allocated = current.Size()
	}

	return Stats{
		Length:         clampToInt(a.length),
		Capacity:       clampToInt(a.store.capacityFor(layout.Size())),
		ElementSize:    layout.Size(),
		AllocatedBytes: allocated,
		Reallocations:  a.store.reallocs,
	}
}

// BuildStatsString populates a json writer with the container's storage statistics.
func (a *FlexArr[T, L]) BuildStatsString(writer *jwriter.Writer) {
	stats := a.Stats()

	obj := writer.Object()
	defer obj.End()

	obj.Name("Length").Int(stats.Length)
	obj.Name("Capacity").Int(stats.Capacity)
	obj.Name("ElementSize").Int(stats.ElementSize)
	obj.Name("AllocatedBytes").Int(stats.AllocatedBytes)
	obj.Name("Reallocations").Int(stats.Reallocations)
}

var _ memutils.Validatable = (*FlexArr[byte, uint32])(nil)

// Validate performs internal consistency checks on the container. When the implementation
// is functioning correctly, it should not be possible for this method to return an error.
func (a *FlexArr[T, L]) Validate() error {
	layout := memutils.LayoutOf[T]()

	if a.length > a.store.capacityFor(layout.Size()) {
		return errors.New("length exceeds capacity")
	}
	if layout.Size() != 0 && a.store.capacity > 0 && a.store.ptr == nil {
		return errors.New("live capacity with no backing allocation")
	}
	if layout.Size() == 0 && a.store.ptr != nil {
		return errors.New("zero-sized elements must not be backed by an allocation")
	}
	return nil
}

func clampToInt[L Length](value L) int {
	converted, ok := lengthToInt(value)
	if !ok {
		return math.MaxInt
	}
	return converted
}
