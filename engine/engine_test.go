package engine_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/anima-mesh/engine"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/headless"
	"github.com/spaghettifunk/anima-mesh/engine/systems"
	"github.com/spaghettifunk/anima-mesh/testbed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *engine.ApplicationConfig {
	cfg := engine.DefaultConfig()
	cfg.Assets.Dir = t.TempDir()
	cfg.Assets.Workers = 2
	cfg.Scene.SceneBufferSize = 1 << 16
	cfg.Scene.AttributeBufferSize = 1 << 20
	return cfg
}

func TestEngineLoadsSceneSynchronously(t *testing.T) {
	cfg := testConfig(t)
	sf, err := testbed.SampleScene()
	require.NoError(t, err)
	path := filepath.Join(cfg.Assets.Dir, "cube.ksc")
	require.NoError(t, sf.Save(path))

	e, err := engine.New(&engine.Game{ApplicationConfig: cfg})
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	assert.Equal(t, engine.EngineStageInitialized, e.Stage())
	_, ok := e.Device().(*headless.Device)
	require.True(t, ok)

	ls, err := e.LoadScene(path)
	require.NoError(t, err)
	assert.Same(t, ls, e.Scene(path))
	require.Len(t, ls.Meshes, 1)
	assert.Equal(t, uint32(1), e.SceneData().Uniform.MeshCount)
	assert.NotEmpty(t, e.Device().(*headless.Device).Dispatches())

	_, err = e.LoadScene(filepath.Join(cfg.Assets.Dir, "missing.ksc"))
	assert.Error(t, err)

	require.NoError(t, e.Shutdown())
	assert.Equal(t, engine.EngineStageShutdown, e.Stage())
	require.NoError(t, e.Shutdown())
}

func TestEngineRunLoadsQueuedScenes(t *testing.T) {
	cfg := testConfig(t)
	game := testbed.NewTestGame(cfg)

	e, err := engine.New(game.Game)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	sample := filepath.Join(cfg.Assets.Dir, testbed.SampleFileName)
	_, err = os.Stat(sample)
	require.NoError(t, err, "the testbed writes the sample scene")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return game.LoadCount(sample) == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, engine.EngineStageRunning, e.Stage())
}

func TestEngineQueuesMoreScenesThanItBuffers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assets.Workers = 1
	cfg.Scene.AttributeBufferSize = 1 << 22
	sf, err := testbed.SampleScene()
	require.NoError(t, err)
	const sceneCount = 40
	for i := 0; i < sceneCount; i++ {
		name := fmt.Sprintf("cube%02d.ksc", i)
		require.NoError(t, sf.Save(filepath.Join(cfg.Assets.Dir, name)))
		cfg.Assets.Scenes = append(cfg.Assets.Scenes, name)
	}

	var loaded atomic.Int32
	e, err := engine.New(&engine.Game{
		ApplicationConfig: cfg,
		FnOnSceneLoaded: func(string, *systems.LoadedScene) error {
			loaded.Add(1)
			return nil
		},
	})
	require.NoError(t, err)

	initialized := make(chan error, 1)
	go func() { initialized <- e.Initialize() }()
	select {
	case err := <-initialized:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Initialize blocked on queued scenes")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return loaded.Load() == sceneCount }, 10*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.NoError(t, e.Shutdown())
	assert.Equal(t, int32(sceneCount), loaded.Load())
}

func TestEngineShutdownWithPendingScenes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assets.Workers = 1
	sf, err := testbed.SampleScene()
	require.NoError(t, err)
	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("cube%02d.ksc", i)
		require.NoError(t, sf.Save(filepath.Join(cfg.Assets.Dir, name)))
		cfg.Assets.Scenes = append(cfg.Assets.Scenes, name)
	}

	e, err := engine.New(&engine.Game{ApplicationConfig: cfg})
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	assert.NotPanics(t, func() { require.NoError(t, e.Shutdown()) })
	assert.Equal(t, engine.EngineStageShutdown, e.Stage())
}

func TestEngineRunRequiresInitialize(t *testing.T) {
	e, err := engine.New(nil)
	require.NoError(t, err)
	assert.Error(t, e.Run(context.Background()))
	require.NoError(t, e.Shutdown())
}

func TestEngineRejectsMissingKernelModule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kernels.UpdateShape = "kernels/update_shape.spv"

	e, err := engine.New(&engine.Game{ApplicationConfig: cfg})
	require.NoError(t, err)
	assert.Error(t, e.Initialize())
	require.NoError(t, e.Shutdown())
}

func TestKernelNamesMatchConfig(t *testing.T) {
	cfg := engine.KernelsConfig{
		NormalOfFaces:    "a.spv",
		NormalOfVertices: "b.spv",
		TangentOfCorners: "c.spv",
		UpdateShape:      "d.spv",
	}
	assert.Equal(t, map[string]string{
		systems.KernelNormalOfFaces:    "a.spv",
		systems.KernelNormalOfVertices: "b.spv",
		systems.KernelTangentOfCorners: "c.spv",
		systems.KernelUpdateShape:      "d.spv",
	}, cfg.Paths())
}
