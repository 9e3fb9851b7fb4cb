package resources

import (
	"testing"

	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fourTriangles builds 4 triangles with per face material ids and corner
// data equal to the corner index.
func fourTriangles(t *testing.T, ids ...uint32) *MeshFile {
	mf := NewMeshFile("tris", 3, 3, 4, 12)
	require.NoError(t, mf.AddAttribute(AttributePosition, metadata.AttributeDomainPoint, metadata.AttributeTypeFloat,
		toBytes[float32](t, 1, 2, 3), false))
	require.NoError(t, mf.AddAttribute("corner_id", metadata.AttributeDomainCorner, metadata.AttributeTypeUInt32,
		toBytes[uint32](t, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11), false))
	require.NoError(t, mf.AddAttribute(AttributeMaterialIndex, metadata.AttributeDomainFace, metadata.AttributeTypeUInt32,
		toBytes(t, ids...), false))
	return mf
}

func TestReorderMaterials(t *testing.T) {
	mf := fourTriangles(t, 2, 2, 1, 2)
	mf.AddMaterial(0)
	mf.AddMaterial(1)
	mf.AddMaterial(2)

	require.NoError(t, ReorderMaterials(mf))

	assert.Equal(t, []MeshFileMaterialRange{
		{MaterialIndex: 0, Offset: 0, Count: 0},
		{MaterialIndex: 1, Offset: 0, Count: 1},
		{MaterialIndex: 2, Offset: 1, Count: 3},
	}, mf.Materials)
	assert.Equal(t, []uint32{1, 2, 2, 2}, fromBytes[uint32](t, mf.FindAttribute(AttributeMaterialIndex).Buffer))
	assert.Equal(t, []uint32{6, 7, 8, 0, 1, 2, 3, 4, 5, 9, 10, 11}, fromBytes[uint32](t, mf.FindAttribute("corner_id").Buffer))
	// point data is never permuted
	assert.Equal(t, []float32{1, 2, 3}, fromBytes[float32](t, mf.FindAttribute(AttributePosition).Buffer))
}

func TestReorderMaterialsKeepsUnusedSlots(t *testing.T) {
	mf := fourTriangles(t, 2, 0, 2, 0)
	mf.AddMaterial(0)
	mf.AddMaterial(1)
	mf.AddMaterial(2)

	require.NoError(t, ReorderMaterials(mf))

	assert.Equal(t, []MeshFileMaterialRange{
		{MaterialIndex: 0, Offset: 0, Count: 2},
		{MaterialIndex: 1, Offset: 2, Count: 0},
		{MaterialIndex: 2, Offset: 2, Count: 2},
	}, mf.Materials)
	assert.Equal(t, []uint32{0, 0, 2, 2}, fromBytes[uint32](t, mf.FindAttribute(AttributeMaterialIndex).Buffer))
}

func TestReorderMaterialsIsIdempotent(t *testing.T) {
	mf := fourTriangles(t, 1, 0, 1, 0)
	mf.AddMaterial(7)
	mf.AddMaterial(9)

	require.NoError(t, ReorderMaterials(mf))
	attributes := cloneAttributes(mf.Attributes)
	materials := append([]MeshFileMaterialRange(nil), mf.Materials...)

	require.NoError(t, ReorderMaterials(mf))
	assert.Equal(t, attributes, mf.Attributes)
	assert.Equal(t, materials, mf.Materials)
	assert.Equal(t, []MeshFileMaterialRange{
		{MaterialIndex: 7, Offset: 0, Count: 2},
		{MaterialIndex: 9, Offset: 2, Count: 2},
	}, mf.Materials)
}

func TestReorderMaterialsNoop(t *testing.T) {
	single := fourTriangles(t, 0, 0, 0, 0)
	single.AddMaterial(0)
	before := cloneAttributes(single.Attributes)
	require.NoError(t, ReorderMaterials(single))
	assert.Equal(t, before, single.Attributes)
	assert.Equal(t, uint32(4), single.Materials[0].Count)

	missing := NewMeshFile("m", 0, 0, 2, 6)
	missing.AddMaterial(0)
	missing.AddMaterial(1)
	require.NoError(t, ReorderMaterials(missing))
	assert.Equal(t, uint32(2), missing.Materials[1].Count)
}

func TestReorderMaterialsOutOfRange(t *testing.T) {
	mf := fourTriangles(t, 0, 1, 5, 0)
	mf.AddMaterial(0)
	mf.AddMaterial(1)
	assert.ErrorIs(t, ReorderMaterials(mf), core.ErrMaterialOutOfRange)
}

func cloneAttributes(in []MeshFileAttribute) []MeshFileAttribute {
	out := make([]MeshFileAttribute, len(in))
	for i, at := range in {
		out[i] = at
		out[i].Buffer = append([]byte(nil), at.Buffer...)
	}
	return out
}
