package metadata

import (
	"github.com/spaghettifunk/anima-mesh/engine/math"
)

/** @brief Marks an unset attribute offset in a uniform record. */
const InvalidOffset uint32 = 0xFFFFFFFF

/** @brief Bits of UniformMesh.UseU32Indices. Unset bits mean 16 bit indices. */
const (
	UseU32PointIndices uint32 = 1 << 0
	UseU32FaceIndices  uint32 = 1 << 1
)

/**
 * @brief The per scene record stored in the scene buffer. One is reserved
 * when the scene data is created.
 */
type UniformScene struct {
	AmbientLight  math.Vec3
	MeshCount     uint32
	MaterialCount uint32
	LightCount    uint32
	LightOffset   uint32
	Reserved      uint32
}

/**
 * @brief The per mesh record stored in the scene buffer. Offsets are element
 * indices into the attribute buffer, in units of each attribute's element size,
 * so compute stages can address a mesh without any host side lookups.
 */
type UniformMesh struct {
	PointCount             uint32
	FaceCount              uint32
	CornerCount            uint32
	PointOfCornerOffset    uint32
	PositionOffset         uint32
	NormalOffset           uint32
	NormalOfFaceOffset     uint32
	FaceOfPointOffset      uint32
	FaceIndexOfPointOffset uint32
	UseU32Indices          uint32
	UseF32Normals          uint32
	UvOffset               uint32
	TangentOffset          uint32
}

/** @brief The per material record stored in the scene buffer. */
type UniformMaterial struct {
	BaseColor     math.Vec4
	Metallic      float32
	Roughness     float32
	AlbedoTexture uint32
	NormalTexture uint32
}

/** @brief Push constants of the face normal, point normal and tangent kernels. */
type MeshPushConstants struct {
	MeshIndex     uint32
	CornerPerFace uint32
}

/** @brief Push constants of the shape key kernel. */
type ShapePushConstants struct {
	PositionOffset uint32
	PointCount     uint32
	ShapeOffset    uint32
	ShapeCount     uint32
	DeltaOffset    uint32
}
