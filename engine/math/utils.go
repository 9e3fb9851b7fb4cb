package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

// AlignUp rounds operand up to the next multiple of granularity.
// Unlike a mask based alignment the granularity does not need to be
// a power of two (a Vec3F16 element is 6 bytes wide).
func AlignUp[T constraints.Unsigned](operand, granularity T) T {
	if granularity == 0 {
		return operand
	}
	return (operand + granularity - 1) / granularity * granularity
}

// Modf splits f into its integer and fractional parts, both with the sign of f.
func Modf(f float32) (integer float32, frac float32) {
	i, fr := gomath.Modf(float64(f))
	return float32(i), float32(fr)
}
