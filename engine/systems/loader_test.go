package systems

import (
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/math"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/resources"
	"github.com/spaghettifunk/anima-mesh/engine/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toBytes[T any](t *testing.T, values ...T) []byte {
	t.Helper()
	b, err := serial.ToBytes(values)
	require.NoError(t, err)
	return b
}

var quadPositions = []math.Vec3{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}

// quadScene holds a quad whose second triangle uses material 0, an empty
// mesh and one object per mesh.
func quadScene(t *testing.T) *resources.SceneFile {
	t.Helper()
	mf := resources.NewMeshFile("quad", 4, 5, 2, 6)
	require.NoError(t, mf.AddAttribute(resources.AttributePosition, metadata.AttributeDomainPoint, metadata.AttributeTypeVec3,
		toBytes(t, quadPositions...), false))
	require.NoError(t, mf.AddAttribute(resources.AttributeCornerVert, metadata.AttributeDomainCorner, metadata.AttributeTypeUInt32,
		toBytes[uint32](t, 0, 1, 2, 0, 2, 3), false))
	require.NoError(t, mf.AddAttribute("UVMap", metadata.AttributeDomainCorner, metadata.AttributeTypeVec2,
		toBytes(t, math.Vec2{}, math.Vec2{X: 1}, math.Vec2{X: 1, Y: 1}, math.Vec2{}, math.Vec2{X: 1, Y: 1}, math.Vec2{Y: 1}), true))
	require.NoError(t, mf.AddAttribute(resources.AttributeMaterialIndex, metadata.AttributeDomainFace, metadata.AttributeTypeUInt32,
		toBytes[uint32](t, 1, 0), false))
	require.NoError(t, mf.AddShapeKey("Basis", "", 1, 0, 1, toBytes(t, quadPositions...)))
	require.NoError(t, mf.AddShapeKey("Lift", "Basis", 0.5, 0, 1,
		toBytes(t, math.Vec3{Z: 1}, math.Vec3{Z: 1}, math.Vec3{}, math.Vec3{})))
	mf.AddMaterial(0)
	mf.AddMaterial(1)

	sf := &resources.SceneFile{}
	_, err := sf.AddMesh(mf)
	require.NoError(t, err)
	_, err = sf.AddMesh(resources.NewMeshFile("empty", 0, 0, 0, 0))
	require.NoError(t, err)
	sf.AddMaterial("Red")
	sf.AddMaterial("Blue")
	for i, name := range []string{"Quad", "Empty"} {
		obj, err := resources.NewObjectInstance(name, uint32(i), math.Vec3{}, resources.RotationModeQuat,
			math.Vec3{}, math.Quaternion{W: 1}, math.NewVec3One())
		require.NoError(t, err)
		sf.AddObject(obj)
	}
	root := resources.NewCollection("Scene Collection")
	root.AddObject(0)
	root.AddObject(1)
	sf.SetCollection(root)
	return sf
}

func TestLoadSceneFile(t *testing.T) {
	sd, _ := newTestScene(t, 1<<20)
	path := filepath.Join(t.TempDir(), "quad.ksc")
	require.NoError(t, quadScene(t).Save(path))

	ls, err := LoadSceneFile(sd, path)
	require.NoError(t, err)

	require.Len(t, ls.Meshes, 2)
	assert.Nil(t, ls.Meshes[1])
	assert.Len(t, ls.Objects, 2)
	assert.Equal(t, []uint32{0, 1}, ls.Collection.Objects())
	assert.Equal(t, uint32(1), sd.Uniform.MeshCount)
	assert.Equal(t, uint32(2), sd.Uniform.MaterialCount)
	require.Len(t, ls.Materials, 2)
	assert.Equal(t, "Red", ls.Materials[0].Name)
	assert.Less(t, ls.Materials[0].Index, ls.Materials[1].Index)

	quad := ls.Meshes[0]
	assert.Equal(t, "quad", quad.Name)
	assert.Equal(t, uint32(3), quad.CornerPerFace())
	assert.Equal(t, []MaterialRange{{Offset: 0, Count: 1}, {Offset: 1, Count: 1}}, quad.MaterialRanges)

	points, err := quad.PointsOfCorners()
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2, 3, 0, 1, 2}, points)
	assert.Equal(t, toBytes(t, quadPositions...), quad.Position.Buffer)

	morphs := quad.Position.Morphs
	require.NotNil(t, morphs)
	assert.Equal(t, []MeshMorph{{Name: "Basis", Value: 1, Max: 1}, {Name: "Lift", Value: 0.5, Max: 1}}, morphs.Values)
	assert.Equal(t, toBytes(t, quadPositions...), morphs.Attribute.Buffer[:48])
	assert.Equal(t, toBytes(t, math.Vec3{Z: 1}, math.Vec3{Z: 1}, math.Vec3{}, math.Vec3{}), morphs.Attribute.Buffer[48:96])

	require.Len(t, quad.UvMaps(), 1)
	uv := quad.UvMaps()[0].Uv
	assert.Equal(t, "UVMap", uv.Name)
	assert.Equal(t, uv.IndexOffset, quad.Uniform.UvOffset)
	first := resources.EncodeUV(math.Vec2{})
	assert.Equal(t, toBytes(t, first), uv.Buffer[:4])
}

func TestUploadRunsEveryStage(t *testing.T) {
	sd, device := newTestScene(t, 1<<20)
	ls, err := LoadScene(sd, quadScene(t))
	require.NoError(t, err)

	require.NoError(t, ls.Upload(nil))

	var kernels []string
	for _, d := range device.Dispatches() {
		kernels = append(kernels, d.Kernel)
	}
	assert.Equal(t, []string{KernelUpdateShape, KernelNormalOfFaces, KernelNormalOfVertices, KernelTangentOfCorners}, kernels)

	quad := ls.Meshes[0]
	got := readAttribute(t, sd, quad.PointOfCorner.ByteOffset(), uint64(len(quad.PointOfCorner.Buffer)))
	assert.Equal(t, quad.PointOfCorner.Buffer, got)
	assert.NotEqual(t, metadata.InvalidOffset, quad.Uniform.FaceIndexOfPointOffset)
}

func TestLoadSceneRejectsBadMeshes(t *testing.T) {
	sd, _ := newTestScene(t, 1<<20)

	sf := &resources.SceneFile{Meshes: []resources.MeshFile{*resources.NewMeshFile("odd", 3, 0, 3, 7)}}
	_, err := LoadScene(sd, sf)
	assert.ErrorIs(t, err, core.ErrNonUniformTopology)

	mf := resources.NewMeshFile("no corners", 3, 3, 1, 3)
	require.NoError(t, mf.AddAttribute(resources.AttributePosition, metadata.AttributeDomainPoint, metadata.AttributeTypeVec3,
		toBytes(t, quadPositions[:3]...), false))
	sf = &resources.SceneFile{Meshes: []resources.MeshFile{*mf}}
	_, err = LoadScene(sd, sf)
	assert.ErrorIs(t, err, core.ErrAttributeNotFound)

	_, err = LoadSceneFile(sd, filepath.Join(t.TempDir(), "missing.ksc"))
	assert.Error(t, err)
}
