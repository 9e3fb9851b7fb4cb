package testbed

import (
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima-mesh/engine/renderer/headless"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/resources"
	"github.com/spaghettifunk/anima-mesh/engine/serial"
	"github.com/spaghettifunk/anima-mesh/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleScene(t *testing.T) {
	sf, err := SampleScene()
	require.NoError(t, err)

	require.Len(t, sf.Meshes, 1)
	cube := &sf.Meshes[0]
	assert.Equal(t, uint32(8), cube.PointCount)
	assert.Equal(t, uint32(12), cube.EdgeCount)
	assert.Equal(t, uint32(6), cube.FaceCount)
	assert.Equal(t, uint32(24), cube.CornerCount)

	// faces are grouped by material after AddMesh
	assert.Equal(t, []resources.MeshFileMaterialRange{
		{MaterialIndex: 0, Offset: 0, Count: 3},
		{MaterialIndex: 1, Offset: 3, Count: 3},
	}, cube.Materials)
	slots, err := serial.FromBytes[uint32](cube.FindAttribute(resources.AttributeMaterialIndex).Buffer)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 0, 0, 1, 1, 1}, slots)

	corners := cube.FindAttribute(resources.AttributeCornerVert)
	require.NotNil(t, corners)
	assert.Equal(t, metadata.AttributeTypeUInt16, corners.Type)
	idx, err := serial.FromBytes[uint16](corners.Buffer)
	require.NoError(t, err)
	// -Z, -Y, -X, then +Z, +Y, +X
	assert.Equal(t, []uint16{0, 3, 2, 1}, idx[0:4])
	assert.Equal(t, []uint16{4, 5, 6, 7}, idx[12:16])

	position := cube.FindAttribute(resources.AttributePosition)
	require.Len(t, position.Morphs, 2)
	assert.Equal(t, SampleInflateKey, position.Morphs[1].Name)

	require.Len(t, sf.Objects, 2)
	assert.Equal(t, resources.RotationModeXYZ, sf.Objects[0].RotationMode)
	assert.NotEqual(t, float32(1), sf.Objects[0].RotationQuat.W)
	require.NotNil(t, sf.Collection)
	require.Len(t, sf.Collection.Children, 1)
	assert.Equal(t, []uint32{0, 1}, sf.Collection.Children[0].Objects())
}

func TestSampleSceneLoadsOnDevice(t *testing.T) {
	sf, err := SampleScene()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), SampleFileName)
	require.NoError(t, sf.Save(path))

	device := headless.NewDevice(0)
	ks, err := systems.NewKernelSet(device, map[string][]uint32{
		systems.KernelNormalOfFaces:    nil,
		systems.KernelNormalOfVertices: nil,
		systems.KernelTangentOfCorners: nil,
		systems.KernelUpdateShape:      nil,
	})
	require.NoError(t, err)
	sd, err := systems.NewSceneData(device, &systems.SceneDataConfig{
		SceneBufferSize:     1 << 16,
		AttributeBufferSize: 1 << 20,
	}, ks)
	require.NoError(t, err)
	defer sd.Shutdown()

	ls, err := systems.LoadSceneFile(sd, path)
	require.NoError(t, err)
	require.Len(t, ls.Meshes, 1)
	assert.Equal(t, uint32(4), ls.Meshes[0].CornerPerFace())
	require.Len(t, ls.Meshes[0].MaterialRanges, 2)

	require.NoError(t, ls.Upload(nil))
	var kernels []string
	for _, d := range device.Dispatches() {
		kernels = append(kernels, d.Kernel)
	}
	assert.Equal(t, []string{
		systems.KernelUpdateShape,
		systems.KernelNormalOfFaces,
		systems.KernelNormalOfVertices,
		systems.KernelTangentOfCorners,
	}, kernels)
}
