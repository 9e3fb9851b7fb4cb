package engine

import (
	"github.com/spaghettifunk/anima-mesh/engine/systems"
)

/**
 * @brief The application hooks the engine calls. Every hook is optional and
 * runs on the goroutine that called Engine.Run or Engine.Initialize.
 */
type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnOnSceneLoaded   OnSceneLoaded
	FnShutdown        Shutdown
}

type Initialize func(e *Engine) error
type OnSceneLoaded func(path string, scene *systems.LoadedScene) error
type Shutdown func() error
