package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/anima-mesh/engine"
	"github.com/spaghettifunk/anima-mesh/engine/resources"
	"github.com/spaghettifunk/anima-mesh/testbed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeSample(t *testing.T) string {
	dir := t.TempDir()
	path := filepath.Join(dir, testbed.SampleFileName)
	require.NoError(t, run([]string{"sample", path}, &bytes.Buffer{}))
	return path
}

func TestInfoFormats(t *testing.T) {
	path := writeSample(t)

	var text bytes.Buffer
	require.NoError(t, run([]string{"info", path}, &text))
	assert.Contains(t, text.String(), "1 meshes, 2 objects, 2 materials")
	assert.Contains(t, text.String(), `mesh "`+testbed.SampleMeshName+`"`)
	assert.Contains(t, text.String(), testbed.SampleInflateKey)

	var out bytes.Buffer
	require.NoError(t, run([]string{"info", "-format", "yaml", path}, &out))
	var info sceneInfo
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &info))
	require.Len(t, info.Meshes, 1)
	assert.Equal(t, uint32(8), info.Meshes[0].Points)
	assert.Equal(t, uint32(6), info.Meshes[0].Faces)
	assert.Equal(t, []string{"Paint", "Metal"}, info.Materials)
	require.Len(t, info.Objects, 2)
	assert.Equal(t, "QUATERNION", info.Objects[1].Rotation)
	require.NotNil(t, info.Collection)

	var dump bytes.Buffer
	require.NoError(t, run([]string{"info", "-format", "dump", path}, &dump))
	assert.Contains(t, dump.String(), "SceneFile")

	assert.Error(t, run([]string{"info", "-format", "xml", path}, &bytes.Buffer{}))
}

func TestReorderKeepsSortedScene(t *testing.T) {
	path := writeSample(t)
	out := filepath.Join(t.TempDir(), "sorted.ksc")
	require.NoError(t, run([]string{"reorder", path, out}, &bytes.Buffer{}))

	sf, err := resources.LoadSceneFile(out)
	require.NoError(t, err)
	require.Len(t, sf.Meshes, 1)
	ranges := sf.Meshes[0].Materials
	require.Len(t, ranges, 2)
	assert.Equal(t, resources.MeshFileMaterialRange{MaterialIndex: 0, Offset: 0, Count: 3}, ranges[0])
	assert.Equal(t, resources.MeshFileMaterialRange{MaterialIndex: 1, Offset: 3, Count: 3}, ranges[1])

	assert.Error(t, run([]string{"reorder", path, filepath.Join(t.TempDir(), "mesh.kmf")}, &bytes.Buffer{}))
}

func TestImportTriangle(t *testing.T) {
	dir := t.TempDir()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint32{0, 1, 2})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name:       "Tri",
		Primitives: []*gltf.Primitive{{Indices: gltf.Index(idx), Attributes: map[string]uint32{gltf.POSITION: pos}}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "TriObject", Mesh: gltf.Index(0), Scale: [3]float32{1, 1, 1}, Rotation: [4]float32{0, 0, 0, 1}})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	in := filepath.Join(dir, "tri.glb")
	require.NoError(t, gltf.SaveBinary(doc, in))

	out := filepath.Join(dir, "tri.ksc")
	require.NoError(t, run([]string{"import", in, out}, &bytes.Buffer{}))

	sf, err := resources.LoadSceneFile(out)
	require.NoError(t, err)
	require.Len(t, sf.Meshes, 1)
	assert.Equal(t, uint32(1), sf.Meshes[0].FaceCount)
	require.Len(t, sf.Objects, 1)
	assert.Equal(t, "TriObject", sf.Objects[0].Name)
}

func TestLoadOnHeadlessDevice(t *testing.T) {
	path := writeSample(t)

	cfg := engine.DefaultConfig()
	cfg.Assets.Dir = filepath.Dir(path)
	cfgPath := filepath.Join(t.TempDir(), "anima.toml")
	require.NoError(t, cfg.Save(cfgPath))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-config", cfgPath, "load", path}, &out))
	assert.Contains(t, out.String(), "1 meshes, 2 objects")
	assert.Contains(t, out.String(), "headless")
}

func TestUsageErrors(t *testing.T) {
	assert.ErrorIs(t, run(nil, &bytes.Buffer{}), errUsage)
	assert.ErrorIs(t, run([]string{"info"}, &bytes.Buffer{}), errUsage)
	assert.Error(t, run([]string{"explode"}, &bytes.Buffer{}))
	assert.Error(t, run([]string{"info", "scene.obj"}, &bytes.Buffer{}))
}
