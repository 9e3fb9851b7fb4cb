package testbed

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/spaghettifunk/anima-mesh/engine"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/systems"
)

// SampleFileName is the scene the testbed writes into an empty assets directory.
const SampleFileName = "sample.ksc"

type TestGame struct {
	*engine.Game
}

type gameState struct {
	mu     sync.Mutex
	loaded map[string]int
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State: &gameState{
				loaded: make(map[string]int),
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnOnSceneLoaded = tg.OnSceneLoaded
	tg.FnShutdown = tg.Shutdown

	return tg
}

// Initialize writes the sample scene when the assets directory has none and
// queues it.
func (g *TestGame) Initialize(e *engine.Engine) error {
	core.LogDebug("TestGame Initialize fn....")

	path := filepath.Join(e.Config().Assets.Dir, SampleFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		sf, err := SampleScene()
		if err != nil {
			return err
		}
		if err := sf.Save(path); err != nil {
			return err
		}
		core.LogInfo("sample scene written to %s", path)
	}
	e.QueueScene(path)
	return nil
}

func (g *TestGame) OnSceneLoaded(path string, scene *systems.LoadedScene) error {
	state := g.State.(*gameState)
	state.mu.Lock()
	state.loaded[path]++
	n := state.loaded[path]
	state.mu.Unlock()

	var points, faces uint32
	for _, m := range scene.Meshes {
		if m == nil {
			continue
		}
		points += m.PointCount()
		faces += m.FaceCount()
	}
	core.LogInfo("%s loaded (%d times): %d meshes, %d objects, %d points, %d faces",
		path, n, len(scene.Meshes), len(scene.Objects), points, faces)
	return nil
}

// LoadCount returns how many times the scene at path has been loaded.
func (g *TestGame) LoadCount(path string) int {
	state := g.State.(*gameState)
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.loaded[filepath.Clean(path)]
}

func (g *TestGame) Shutdown() error {
	core.LogDebug("TestGame Shutdown fn....")
	return nil
}
