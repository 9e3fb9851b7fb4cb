package resources

import (
	"github.com/spaghettifunk/anima-mesh/engine/math"
)

// EncodeUV flips the fractional part of v's y coordinate while keeping its
// integer part, so tiled coordinates wrap the same way after the flip, and
// stores the result as half floats.
func EncodeUV(v math.Vec2) math.Vec2F16 {
	return flipV(v).ToF16()
}

// DecodeUV undoes EncodeUV for coordinates with a non zero fractional part.
func DecodeUV(v math.Vec2F16) math.Vec2 {
	return flipV(v.ToVec2())
}

func flipV(v math.Vec2) math.Vec2 {
	integer, frac := math.Modf(v.Y)
	v.Y = 1 - frac + integer
	return v
}
