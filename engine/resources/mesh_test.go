package resources

import (
	"testing"

	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/math"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAttributeConvertsUVs(t *testing.T) {
	mf := testMesh(t)
	uv := mf.FindAttribute("UVMap")
	require.NotNil(t, uv)
	assert.Equal(t, metadata.AttributeTypeVec2F16, uv.Type)
	assert.Len(t, uv.Buffer, 6*4)
	assert.Equal(t, []uint32{2}, mf.UvIndices)

	maps, err := mf.UvMaps()
	require.NoError(t, err)
	require.Len(t, maps, 1)
	assert.Equal(t, "UVMap", maps[0].Name)

	values := fromBytes[math.Vec2F16](t, uv.Buffer)
	assert.Equal(t, EncodeUV(math.Vec2{X: 1, Y: 1}), values[2])
}

func TestAddAttributeNarrowsCornerVert(t *testing.T) {
	mf := testMesh(t)
	cv := mf.FindAttribute(AttributeCornerVert)
	require.NotNil(t, cv)
	assert.Equal(t, metadata.AttributeTypeUInt16, cv.Type)
	assert.Equal(t, []uint16{0, 1, 2, 0, 2, 3}, fromBytes[uint16](t, cv.Buffer))

	big := NewMeshFile("big", 70000, 0, 1, 3)
	require.NoError(t, big.AddAttribute(AttributeCornerVert, metadata.AttributeDomainCorner, metadata.AttributeTypeUInt32,
		toBytes[uint32](t, 0, 1, 69999), false))
	assert.Equal(t, metadata.AttributeTypeUInt32, big.FindAttribute(AttributeCornerVert).Type)
}

func TestAddAttributeValidates(t *testing.T) {
	mf := NewMeshFile("m", 2, 0, 1, 3)

	err := mf.AddAttribute("a", metadata.AttributeDomainPoint, metadata.AttributeTypeFloat, make([]byte, 4), false)
	assert.ErrorIs(t, err, core.ErrBufferSizeMismatch)

	err = mf.AddAttribute("a", metadata.AttributeDomain(9), metadata.AttributeTypeFloat, nil, false)
	assert.ErrorIs(t, err, core.ErrInvalidAttributeDomain)

	err = mf.AddAttribute("a", metadata.AttributeDomainPoint, metadata.AttributeType(42), nil, false)
	assert.ErrorIs(t, err, core.ErrInvalidAttributeType)

	err = mf.AddAttribute("uv", metadata.AttributeDomainPoint, metadata.AttributeTypeVec2, make([]byte, 16), true)
	assert.ErrorIs(t, err, core.ErrInvalidAttributeType)

	require.NoError(t, mf.AddAttribute("a", metadata.AttributeDomainPoint, metadata.AttributeTypeFloat, make([]byte, 8), false))
	err = mf.AddAttribute("a", metadata.AttributeDomainPoint, metadata.AttributeTypeFloat, make([]byte, 8), false)
	assert.ErrorIs(t, err, core.ErrAttributeExists)
}

func TestAddShapeKey(t *testing.T) {
	mf := NewMeshFile("m", 1, 0, 0, 0)
	err := mf.AddShapeKey("Key", "Basis", 0, 0, 1, make([]byte, 12))
	assert.ErrorIs(t, err, core.ErrAttributeNotFound)

	require.NoError(t, mf.AddAttribute(AttributePosition, metadata.AttributeDomainPoint, metadata.AttributeTypeVec3, make([]byte, 12), false))
	assert.ErrorIs(t, mf.AddShapeKey("Key", "Basis", 0, 0, 1, make([]byte, 8)), core.ErrBufferSizeMismatch)
	require.NoError(t, mf.AddShapeKey("Key", "Basis", 0.25, 0, 1, make([]byte, 12)))

	morphs := mf.FindAttribute(AttributePosition).Morphs
	require.Len(t, morphs, 1)
	assert.Equal(t, "Basis", morphs[0].BaseName)
	assert.Equal(t, float32(0.25), morphs[0].Value)
}

func TestCornersPerFace(t *testing.T) {
	cpf, err := NewMeshFile("quads", 4, 4, 2, 8).CornersPerFace()
	require.NoError(t, err)
	assert.Equal(t, uint32(4), cpf)

	_, err = NewMeshFile("mixed", 4, 4, 2, 7).CornersPerFace()
	assert.ErrorIs(t, err, core.ErrNonUniformTopology)
}

func TestUVWrapFix(t *testing.T) {
	enc := EncodeUV(math.Vec2{X: 0.5, Y: 1.3})
	stored := enc.ToVec2()
	integer, frac := math.Modf(stored.Y)
	assert.Equal(t, float32(1), integer)
	assert.InDelta(t, 0.7, frac, 1e-3)

	dec := DecodeUV(enc)
	assert.InDelta(t, 0.5, dec.X, 1e-3)
	assert.InDelta(t, 1.3, dec.Y, 1e-3)

	assert.InDelta(t, 0.75, EncodeUV(math.Vec2{Y: 0.25}).ToVec2().Y, 1e-3)
	assert.InDelta(t, 0.25, DecodeUV(EncodeUV(math.Vec2{Y: 0.25})).Y, 1e-3)
}
