package engine

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spaghettifunk/anima-mesh/engine/renderer/vulkan"
	"github.com/spaghettifunk/anima-mesh/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultApplicationName, cfg.Name)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "headless", cfg.Device.Backend)
	assert.Equal(t, systems.DefaultSceneBufferSize, cfg.Scene.SceneBufferSize)
	assert.Equal(t, systems.DefaultAttributeBufferSize, cfg.Scene.AttributeBufferSize)
	assert.Equal(t, vulkan.DefaultStagingSize, cfg.Device.StagingSize)
	assert.Equal(t, runtime.NumCPU(), cfg.Assets.Workers)
	assert.Empty(t, cfg.Kernels.Paths())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anima.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
name = "viewer"

[log]
level = "debug"

[scene]
attribute_buffer_size = 1048576

[assets]
dir = "content"
watch = true
workers = 2
scenes = ["level.ksc"]

[device]
backend = "vulkan"
validation = true

[kernels]
update_shape = "kernels/update_shape.spv"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "viewer", cfg.Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, uint64(1<<20), cfg.Scene.AttributeBufferSize)
	assert.Equal(t, systems.DefaultSceneBufferSize, cfg.Scene.SceneBufferSize)
	assert.Equal(t, "content", cfg.Assets.Dir)
	assert.True(t, cfg.Assets.Watch)
	assert.Equal(t, 2, cfg.Assets.Workers)
	assert.Equal(t, []string{"level.ksc"}, cfg.Assets.Scenes)
	assert.Equal(t, "vulkan", cfg.Device.Backend)
	assert.True(t, cfg.Device.Validation)
	assert.Equal(t, map[string]string{systems.KernelUpdateShape: "kernels/update_shape.spv"}, cfg.Kernels.Paths())

}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("[window]\nwidth = 800\n"), 0o644))
	_, err = LoadConfig(unknown)
	assert.Error(t, err)

	backend := filepath.Join(dir, "backend.toml")
	require.NoError(t, os.WriteFile(backend, []byte("[device]\nbackend = \"metal\"\n"), 0o644))
	_, err = LoadConfig(backend)
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anima.toml")
	cfg := DefaultConfig()
	cfg.Assets.Scenes = []string{"a.ksc", "b.glb"}
	cfg.Kernels.NormalOfFaces = "kernels/normal_of_faces.spv"
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
