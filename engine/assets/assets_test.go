package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima-mesh/engine/assets/loaders"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKernel(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte{0x03, 0x02, 0x23, 0x07}, 0o644))
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, metadata.ResourceTypeBinary, determineAssetType("kernels/normal.spv"))
	assert.Equal(t, metadata.ResourceTypeMesh, determineAssetType("cube.kmf"))
	assert.Equal(t, metadata.ResourceTypeScene, determineAssetType("level.KSC"))
	assert.Equal(t, metadata.ResourceTypeGLTF, determineAssetType("model.gltf"))
	assert.Equal(t, metadata.ResourceTypeGLTF, determineAssetType("model.glb"))
	assert.Equal(t, metadata.ResourceTypeNone, determineAssetType("notes.txt"))
}

func TestInitializeIndexesAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "kernels"), 0o755))
	writeKernel(t, filepath.Join(dir, "kernels", "update_shape.spv"))
	require.NoError(t, (&resources.SceneFile{}).Save(filepath.Join(dir, "empty.ksc")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("hi"), 0o644))

	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir, false))
	defer am.Shutdown()

	assert.Equal(t, []string{filepath.Join(dir, "empty.ksc"), filepath.Join(dir, "kernels", "update_shape.spv")}, am.Assets(metadata.ResourceTypeNone))
	assert.Equal(t, []string{filepath.Join(dir, "empty.ksc")}, am.Assets(metadata.ResourceTypeScene))

	res, err := am.LoadAsset(filepath.Join(dir, "kernels", "update_shape.spv"), map[string]string{"name": "UpdateShape"})
	require.NoError(t, err)
	assert.Equal(t, "UpdateShape", res.Name)
	assert.Equal(t, metadata.ResourceTypeBinary, res.Type)
	assert.Equal(t, []uint32{loaders.SpirvMagic}, res.Data)
	require.NoError(t, am.UnloadAsset(res))

	res, err = am.LoadAsset(filepath.Join(dir, "empty.ksc"), nil)
	require.NoError(t, err)
	assert.IsType(t, &resources.SceneFile{}, res.Data)

	_, err = am.LoadAsset(filepath.Join(dir, "missing.ksc"), nil)
	assert.ErrorIs(t, err, ErrAssetNotFound)
	_, err = am.LoadAsset(filepath.Join(dir, "readme.md"), nil)
	assert.ErrorIs(t, err, ErrNoLoader)
}

func TestLoadAssetIndexesNewFiles(t *testing.T) {
	dir := t.TempDir()
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir, false))
	defer am.Shutdown()

	path := filepath.Join(dir, "late.spv")
	writeKernel(t, path)
	_, err = am.LoadAsset(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, am.Assets(metadata.ResourceTypeBinary))
}

func TestWatchReportsChanges(t *testing.T) {
	dir := t.TempDir()
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir, true))

	path := filepath.Join(dir, "scene.ksc")
	require.NoError(t, (&resources.SceneFile{}).Save(path))

	select {
	case e := <-am.Events():
		assert.Equal(t, path, e.Path)
		assert.Equal(t, metadata.ResourceTypeScene, e.Type)
		assert.True(t, e.Op&(fsnotify.Create|fsnotify.Write) != 0)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for a new scene file")
	}
	assert.Contains(t, am.Assets(metadata.ResourceTypeScene), path)

	require.NoError(t, am.Shutdown())
	require.NoError(t, am.Shutdown())
	for range am.Events() {
	}
}
