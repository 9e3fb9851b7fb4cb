package metadata

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
)

/** @brief The mesh element kind an attribute is indexed by. */
type AttributeDomain uint8

const (
	AttributeDomainPoint AttributeDomain = iota
	AttributeDomainEdge
	AttributeDomainFace
	AttributeDomainCorner
)

/** @brief The value type stored per element of an attribute. */
type AttributeType uint8

const (
	AttributeTypeBoolean AttributeType = iota
	AttributeTypeUInt8
	AttributeTypeUInt16
	AttributeTypeUInt32
	AttributeTypeFloat
	AttributeTypeVec2
	AttributeTypeVec3
	AttributeTypeVec4
	AttributeTypeVec2Int
	AttributeTypeVec3Int
	AttributeTypeVec4Int
	AttributeTypeVec2F16
	AttributeTypeVec3F16
	AttributeTypeVec4F16
)

var attributeTypeSizes = [...]uint32{
	AttributeTypeBoolean: 1,
	AttributeTypeUInt8:   1,
	AttributeTypeUInt16:  2,
	AttributeTypeUInt32:  4,
	AttributeTypeFloat:   4,
	AttributeTypeVec2:    8,
	AttributeTypeVec3:    12,
	AttributeTypeVec4:    16,
	AttributeTypeVec2Int: 8,
	AttributeTypeVec3Int: 12,
	AttributeTypeVec4Int: 16,
	AttributeTypeVec2F16: 4,
	AttributeTypeVec3F16: 6,
	AttributeTypeVec4F16: 8,
}

var attributeTypeNames = [...]string{
	AttributeTypeBoolean: "Boolean",
	AttributeTypeUInt8:   "UInt8",
	AttributeTypeUInt16:  "UInt16",
	AttributeTypeUInt32:  "UInt32",
	AttributeTypeFloat:   "Float",
	AttributeTypeVec2:    "Vec2",
	AttributeTypeVec3:    "Vec3",
	AttributeTypeVec4:    "Vec4",
	AttributeTypeVec2Int: "Vec2Int",
	AttributeTypeVec3Int: "Vec3Int",
	AttributeTypeVec4Int: "Vec4Int",
	AttributeTypeVec2F16: "Vec2F16",
	AttributeTypeVec3F16: "Vec3F16",
	AttributeTypeVec4F16: "Vec4F16",
}

/**
 * @brief Returns the size in bytes of a single element of the given type.
 * Every component sizing or addressing an attribute buffer goes through here.
 */
func ByteSizeOf(t AttributeType) (uint32, error) {
	if int(t) >= len(attributeTypeSizes) {
		return 0, errors.Wrapf(core.ErrInvalidAttributeType, "value %d", t)
	}
	return attributeTypeSizes[t], nil
}

func (t AttributeType) Valid() bool {
	return int(t) < len(attributeTypeSizes)
}

func (t AttributeType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("AttributeType(%d)", uint8(t))
	}
	return attributeTypeNames[t]
}

func (d AttributeDomain) Valid() bool {
	return d <= AttributeDomainCorner
}

func (d AttributeDomain) String() string {
	switch d {
	case AttributeDomainPoint:
		return "Point"
	case AttributeDomainEdge:
		return "Edge"
	case AttributeDomainFace:
		return "Face"
	case AttributeDomainCorner:
		return "Corner"
	}
	return fmt.Sprintf("AttributeDomain(%d)", uint8(d))
}

/** @brief The element counts of a mesh, one per domain. */
type ElementCounts struct {
	Points  uint32
	Edges   uint32
	Faces   uint32
	Corners uint32
}

/** @brief Returns the number of elements an attribute on the given domain holds. */
func (c ElementCounts) Of(d AttributeDomain) (uint32, error) {
	switch d {
	case AttributeDomainPoint:
		return c.Points, nil
	case AttributeDomainEdge:
		return c.Edges, nil
	case AttributeDomainFace:
		return c.Faces, nil
	case AttributeDomainCorner:
		return c.Corners, nil
	}
	return 0, errors.Wrapf(core.ErrInvalidAttributeDomain, "value %d", d)
}

// Names used by the Blender exporter.
var (
	domainNames = map[string]AttributeDomain{
		"POINT":  AttributeDomainPoint,
		"EDGE":   AttributeDomainEdge,
		"FACE":   AttributeDomainFace,
		"CORNER": AttributeDomainCorner,
	}
	typeNames = map[string]AttributeType{
		"BOOLEAN":      AttributeTypeBoolean,
		"INT":          AttributeTypeUInt32,
		"INT32_2D":     AttributeTypeVec2Int,
		"FLOAT":        AttributeTypeFloat,
		"FLOAT2":       AttributeTypeVec2,
		"FLOAT_VECTOR": AttributeTypeVec3,
		"BYTE_COLOR":   AttributeTypeUInt32,
	}
)

func ParseAttributeDomain(name string) (AttributeDomain, error) {
	d, ok := domainNames[name]
	if !ok {
		return 0, errors.Wrapf(core.ErrInvalidAttributeDomain, "name %q", name)
	}
	return d, nil
}

func ParseAttributeType(name string) (AttributeType, error) {
	t, ok := typeNames[name]
	if !ok {
		return 0, errors.Wrapf(core.ErrInvalidAttributeType, "name %q", name)
	}
	return t, nil
}
