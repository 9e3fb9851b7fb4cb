package math

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/x448/float16"
)

// Vector 2
// ------------------------------------------

/**
 * @brief Creates and returns a new 2-element vector using the supplied values.
 */
func NewVec2(x, y float32) Vec2 {
	return Vec2{
		X: x,
		Y: y,
	}
}

/**
 * @brief Converts the vector to half precision.
 */
func (v Vec2) ToF16() Vec2F16 {
	return Vec2F16{
		X: float16.Fromfloat32(v.X).Bits(),
		Y: float16.Fromfloat32(v.Y).Bits(),
	}
}

func (v Vec2F16) ToVec2() Vec2 {
	return Vec2{
		X: float16.Frombits(v.X).Float32(),
		Y: float16.Frombits(v.Y).Float32(),
	}
}

// Vector 3
// ------------------------------------------

/**
 * @brief Creates and returns a new 3-element vector using the supplied values.
 */
func NewVec3(x, y, z float32) Vec3 {
	return Vec3{
		X: x,
		Y: y,
		Z: z,
	}
}

/**
 * @brief Creates and returns a 3-component vector with all components set to 0.0f.
 */
func NewVec3Zero() Vec3 {
	return Vec3{0.0, 0.0, 0.0}
}

/**
 * @brief Creates and returns a 3-component vector with all components set to 1.0f.
 */
func NewVec3One() Vec3 {
	return Vec3{1.0, 1.0, 1.0}
}

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

func (v Vec3) MulScalar(scalar float32) Vec3 {
	return Vec3{v.X * scalar, v.Y * scalar, v.Z * scalar}
}

/**
 * @brief Converts the vector to half precision.
 */
func (v Vec3) ToF16() Vec3F16 {
	return Vec3F16{
		X: float16.Fromfloat32(v.X).Bits(),
		Y: float16.Fromfloat32(v.Y).Bits(),
		Z: float16.Fromfloat32(v.Z).Bits(),
	}
}

func (v Vec3F16) ToVec3() Vec3 {
	return Vec3{
		X: float16.Frombits(v.X).Float32(),
		Y: float16.Frombits(v.Y).Float32(),
		Z: float16.Frombits(v.Z).Float32(),
	}
}

// Quaternion
// ------------------------------------------

func NewQuatIdentity() Quaternion {
	return Quaternion{0, 0, 0, 1.0}
}

/**
 * @brief Converts a mathgl quaternion (scalar + vector part) into the
 * x, y, z, w layout used on disk and on the GPU.
 */
func NewQuatFromMgl(q mgl32.Quat) Quaternion {
	return Quaternion{X: q.V[0], Y: q.V[1], Z: q.V[2], W: q.W}
}

func (q Quaternion) ToMgl() mgl32.Quat {
	return mgl32.Quat{W: q.W, V: mgl32.Vec3{q.X, q.Y, q.Z}}
}

func (q Quaternion) Normalize() Quaternion {
	return NewQuatFromMgl(q.ToMgl().Normalize())
}

/**
 * @brief Compares the two quaternions component wise. Since q and -q
 * describe the same orientation, both signs are accepted.
 */
func (q Quaternion) ApproxEqual(other Quaternion, tolerance float32) bool {
	a, b := q.ToMgl(), other.ToMgl()
	return a.ApproxEqualThreshold(b, tolerance) || a.ApproxEqualThreshold(b.Scale(-1), tolerance)
}
