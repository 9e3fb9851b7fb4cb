package systems

import (
	gomath "math"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/math"
)

/**
 * @brief Hands out element indexed ranges of a fixed size buffer. Ranges are
 * never reused: the cursor only moves forward.
 */
type IndexAllocator struct {
	name     string
	capacity uint64
	cursor   uint64
}

func NewIndexAllocator(name string, capacity uint64) *IndexAllocator {
	return &IndexAllocator{name: name, capacity: capacity}
}

/**
 * @brief Reserves count elements of elementSize bytes. The returned index is
 * in units of elementSize, so the byte offset is index * elementSize.
 */
func (a *IndexAllocator) Allocate(elementSize, count uint32) (uint32, error) {
	if elementSize == 0 {
		return 0, errors.Errorf("%s: element size must be greater than zero", a.name)
	}
	start := math.AlignUp(a.cursor, uint64(elementSize))
	end := start + uint64(elementSize)*uint64(count)
	index := start / uint64(elementSize)
	if end > a.capacity || index > gomath.MaxUint32 {
		return 0, errors.Wrapf(core.ErrAllocatorExhausted, "%s: %d x %d bytes requested, %d of %d bytes used",
			a.name, count, elementSize, a.cursor, a.capacity)
	}
	a.cursor = end
	return uint32(index), nil
}

func (a *IndexAllocator) Used() uint64 {
	return a.cursor
}

func (a *IndexAllocator) Capacity() uint64 {
	return a.capacity
}
