package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/** @brief A quaternion, used to represent rotational orientation. */
type Quaternion Vec4

// Vec2Int represents a 2D vector of signed 32-bit components
type Vec2Int struct {
	X, Y int32
}

// Vec3Int represents a 3D vector of signed 32-bit components
type Vec3Int struct {
	X, Y, Z int32
}

// Vec4Int represents a 4D vector of signed 32-bit components
type Vec4Int struct {
	X, Y, Z, W int32
}

/**
 * @brief A 2D vector of IEEE 754 half precision components,
 * stored as their raw bit patterns.
 */
type Vec2F16 struct {
	X, Y uint16
}

/** @brief A 3D vector of half precision components. */
type Vec3F16 struct {
	X, Y, Z uint16
}

/** @brief A 4D vector of half precision components. */
type Vec4F16 struct {
	X, Y, Z, W uint16
}
