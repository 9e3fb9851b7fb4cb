package engine

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/assets"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/renderer"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/headless"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/vulkan"
	"github.com/spaghettifunk/anima-mesh/engine/resources"
	"github.com/spaghettifunk/anima-mesh/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released every resource
	EngineStageShutdown
)

// parsedQueueSize bounds the scenes parsed ahead of the main goroutine.
const parsedQueueSize = 16

type parsedScene struct {
	path  string
	scene *resources.SceneFile
	err   error
}

/**
 * @brief Wires a device, the scene data and the asset manager together.
 * Files are parsed on the job system, everything touching the device runs
 * on the goroutine calling Run.
 */
type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *ApplicationConfig
	clock        *core.Clock

	device       renderer.Device
	assetManager *assets.AssetManager
	jobSystem    *systems.JobSystem
	sceneData    *systems.SceneData

	scenes map[string]*systems.LoadedScene
	parsed chan parsedScene
}

func New(g *Game) (*Engine, error) {
	if g == nil {
		g = &Game{}
	}
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultConfig()
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       g.ApplicationConfig,
		clock:        core.NewClock(),
		assetManager: am,
		scenes:       make(map[string]*systems.LoadedScene),
		parsed:       make(chan parsedScene, parsedQueueSize),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageBooting
	cfg := e.config
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Log.Prefix != "" {
		core.SetLogPrefix(cfg.Log.Prefix)
	}

	device, err := e.createDevice()
	if err != nil {
		return err
	}
	e.device = device

	if err := e.assetManager.Initialize(cfg.Assets.Dir, cfg.Assets.Watch); err != nil {
		core.LogError(err.Error())
		return err
	}

	modules, err := e.loadKernels()
	if err != nil {
		return err
	}
	kernels, err := systems.NewKernelSet(e.device, modules)
	if err != nil {
		return err
	}

	e.sceneData, err = systems.NewSceneData(e.device, &systems.SceneDataConfig{
		SceneBufferSize:     cfg.Scene.SceneBufferSize,
		AttributeBufferSize: cfg.Scene.AttributeBufferSize,
	}, kernels)
	if err != nil {
		return err
	}

	e.jobSystem, err = systems.NewJobSystem(cfg.Assets.Workers, parsedQueueSize)
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	e.currentStage = EngineStageInitialized
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}

	for _, s := range cfg.Assets.Scenes {
		e.QueueScene(filepath.Join(cfg.Assets.Dir, s))
	}
	core.LogInfo("%s initialized on the %s backend", cfg.Name, cfg.Device.Backend)
	return nil
}

func (e *Engine) createDevice() (renderer.Device, error) {
	backend, err := renderer.ParseRendererType(e.config.Device.Backend)
	if err != nil {
		return nil, err
	}
	switch backend {
	case renderer.Vulkan:
		vb := vulkan.New(vulkan.Config{
			ApplicationName: e.config.Name,
			Validation:      e.config.Device.Validation,
			StagingSize:     e.config.Device.StagingSize,
			DescriptorSets:  e.config.Device.DescriptorSets,
		})
		if err := vb.Initialize(); err != nil {
			_ = vb.Shutdown()
			return nil, err
		}
		return vb, nil
	default:
		return headless.NewDevice(0), nil
	}
}

// loadKernels reads the configured SPIR-V modules. The headless device runs
// no bytecode, so there every kernel exists even without a module.
func (e *Engine) loadKernels() (map[string][]uint32, error) {
	modules := make(map[string][]uint32, 4)
	if _, ok := e.device.(*headless.Device); ok {
		for _, name := range []string{systems.KernelNormalOfFaces, systems.KernelNormalOfVertices, systems.KernelTangentOfCorners, systems.KernelUpdateShape} {
			modules[name] = nil
		}
	}
	for name, p := range e.config.Kernels.Paths() {
		res, err := e.assetManager.LoadAsset(filepath.Join(e.config.Assets.Dir, p), map[string]string{"name": name})
		if err != nil {
			return nil, errors.Wrapf(err, "kernel %s", name)
		}
		spirv, ok := res.Data.([]uint32)
		if !ok || res.Type != metadata.ResourceTypeBinary {
			return nil, errors.Errorf("kernel %s: %s is not a SPIR-V module", name, p)
		}
		modules[name] = spirv
	}
	return modules, nil
}

func (e *Engine) Device() renderer.Device                { return e.device }
func (e *Engine) SceneData() *systems.SceneData          { return e.sceneData }
func (e *Engine) AssetManager() *assets.AssetManager     { return e.assetManager }
func (e *Engine) Config() *ApplicationConfig             { return e.config }
func (e *Engine) Stage() Stage                           { return e.currentStage }
func (e *Engine) Scene(path string) *systems.LoadedScene { return e.scenes[filepath.Clean(path)] }

/**
 * @brief Parses the scene or glTF file at path on the job system. The result
 * is loaded onto the device by Run. Never blocks, so it is safe to call
 * before Run starts and from Run's own goroutine.
 */
func (e *Engine) QueueScene(path string) {
	path = filepath.Clean(path)
	var (
		sf     *resources.SceneFile
		jobErr error
	)
	e.jobSystem.AddWorkNonBlocking(metadata.JobTask{
		InputParams: path,
		OnStart: func(params interface{}, results chan<- interface{}) error {
			sf, jobErr = e.parseScene(params.(string))
			return jobErr
		},
		OnCompletionCallback: func() {
			e.parsed <- parsedScene{path: path, scene: sf, err: jobErr}
		},
	})
}

func (e *Engine) parseScene(path string) (*resources.SceneFile, error) {
	res, err := e.assetManager.LoadAsset(path, nil)
	if err != nil {
		return nil, err
	}
	sf, ok := res.Data.(*resources.SceneFile)
	if !ok {
		return nil, errors.Errorf("%s is a %s asset, not a scene", path, res.Type)
	}
	return sf, nil
}

/**
 * @brief Parses, loads and uploads a scene on the calling goroutine. Loading
 * a path again allocates fresh device storage, the previous allocation is
 * not reclaimed.
 */
func (e *Engine) LoadScene(path string) (*systems.LoadedScene, error) {
	sf, err := e.parseScene(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	return e.loadParsed(filepath.Clean(path), sf)
}

func (e *Engine) loadParsed(path string, sf *resources.SceneFile) (*systems.LoadedScene, error) {
	e.clock.Start()
	ls, err := systems.LoadScene(e.sceneData, sf)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	if err := ls.Upload(nil); err != nil {
		return nil, errors.Wrapf(err, "upload %s", path)
	}
	e.clock.Update()

	if _, reloaded := e.scenes[path]; reloaded {
		core.LogWarn("scene %s reloaded, %d attribute bytes in use", path, e.sceneData.AttributeAllocator().Used())
	}
	e.scenes[path] = ls
	core.LogInfo("scene %s ready in %s", path, e.clock.Elapsed())

	if e.gameInstance.FnOnSceneLoaded != nil {
		if err := e.gameInstance.FnOnSceneLoaded(path, ls); err != nil {
			return nil, err
		}
	}
	return ls, nil
}

/**
 * @brief Loads parsed scenes and reacts to asset changes until ctx is done.
 * Failed scenes are logged and skipped.
 */
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning

	events := e.assetManager.Events()
	errs := e.assetManager.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ps := <-e.parsed:
			if ps.err != nil {
				core.LogError("failed to parse %s: %s", ps.path, ps.err)
				continue
			}
			if _, err := e.loadParsed(ps.path, ps.scene); err != nil {
				core.LogError(err.Error())
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			e.onAssetEvent(ev)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			core.LogWarn("asset watcher: %s", err)
		}
	}
}

func (e *Engine) onAssetEvent(ev assets.AssetEvent) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		if _, ok := e.scenes[ev.Path]; ok {
			core.LogInfo("scene %s was removed, its device data stays resident", ev.Path)
		}
		return
	}
	switch ev.Type {
	case metadata.ResourceTypeScene, metadata.ResourceTypeGLTF:
		core.LogDebug("%s changed, reloading", ev.Path)
		e.QueueScene(ev.Path)
	case metadata.ResourceTypeBinary:
		core.LogWarn("kernel %s changed, restart to use it", ev.Path)
	}
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	if e.jobSystem != nil {
		// workers may be blocked handing over results
		go func() {
			for range e.parsed {
			}
		}()
		if err := e.jobSystem.Shutdown(); err != nil {
			return err
		}
		close(e.parsed)
	}
	if err := e.assetManager.Shutdown(); err != nil {
		return err
	}
	if e.sceneData != nil {
		e.sceneData.Shutdown()
	}
	if e.device != nil {
		if err := e.device.Shutdown(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageShutdown
	return nil
}
