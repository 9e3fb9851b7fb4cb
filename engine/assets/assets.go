package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/assets/loaders"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"golang.org/x/exp/slices"
)

// DefaultEventQueueSize is the number of events buffered before new ones are dropped.
const DefaultEventQueueSize = 64

var ErrWatcherClosed = errors.New("asset watcher already closed")
var ErrAssetNotFound = errors.New("asset not found")
var ErrNoLoader = errors.New("no loader registered for asset type")

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetEvent reports a change to an indexed asset.
type AssetEvent struct {
	Path string
	Type metadata.ResourceType
	Op   fsnotify.Op
}

type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	watching bool
	isClosed bool
	events   chan AssetEvent
	errors   chan error
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		events:   make(chan AssetEvent, DefaultEventQueueSize),
		errors:   make(chan error, DefaultEventQueueSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	// Register loaders
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(metadata.ResourceTypeMesh, &loaders.MeshLoader{})
	am.registerLoader(metadata.ResourceTypeScene, &loaders.SceneLoader{})
	am.registerLoader(metadata.ResourceTypeGLTF, &loaders.GLTFLoader{})

	return am, nil
}

/**
 * @brief Indexes every known asset under assetsDir. With watch set, the
 * directory tree is also watched and changes are reported on Events.
 */
func (am *AssetManager) Initialize(assetsDir string, watch bool) error {
	if am.isClosed {
		return ErrWatcherClosed
	}
	if watch {
		am.watching = true
		go am.start()
	}
	if err := am.walk(assetsDir, watch); err != nil {
		return errors.Wrapf(err, "index assets in %s", assetsDir)
	}
	core.LogInfo("indexed %d assets in %s", len(am.Assets(metadata.ResourceTypeNone)), assetsDir)
	return nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Events delivers create, write and remove notifications for indexed assets.
func (am *AssetManager) Events() <-chan AssetEvent {
	return am.events
}

func (am *AssetManager) Errors() <-chan error {
	return am.errors
}

/**
 * @brief Returns the indexed paths of the given type, sorted. ResourceTypeNone
 * returns every asset.
 */
func (am *AssetManager) Assets(assetType metadata.ResourceType) []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	paths := make([]string, 0, len(am.assets))
	for p, a := range am.assets {
		if assetType == metadata.ResourceTypeNone || a.Type == assetType {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)
	return paths
}

// Load an asset using the appropriate loader. Files that exist but were not
// indexed yet are indexed first.
func (am *AssetManager) LoadAsset(path string, params interface{}) (*metadata.Resource, error) {
	path = filepath.Clean(path)

	am.mutex.RLock()
	_, exists := am.assets[path]
	am.mutex.RUnlock()
	if !exists {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(ErrAssetNotFound, "%s", path)
		}
		am.handleFileEvent(path)
	}

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[path] = asset // Update the loaded time
	}
	am.mutex.Unlock()
	if !exists {
		return nil, errors.Wrapf(ErrNoLoader, "%s", path)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, errors.Wrapf(ErrNoLoader, "%s (%s)", path, asset.Type)
	}

	res, err := loader.Load(path, asset.Type, params)
	if err != nil {
		core.LogError("failed to load %s asset %s: %s", asset.Type, path, err)
		return nil, err
	}
	res.Type = asset.Type
	return res, nil
}

func (am *AssetManager) UnloadAsset(res *metadata.Resource) error {
	if res == nil {
		return nil
	}
	loader, ok := am.loaders[res.Type]
	if !ok {
		return errors.Wrapf(ErrNoLoader, "%s", res.Type)
	}
	return loader.Unload(res)
}

/**
 * @brief Stops the watcher and closes the event channels. Safe to call more
 * than once.
 */
func (am *AssetManager) Shutdown() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	if am.watching {
		<-am.stopped
		return nil
	}
	close(am.events)
	close(am.errors)
	return am.fsnotify.Close()
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {

		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleWatchEvent(e)

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())
			select {
			case am.errors <- e:
			default:
			}

		case <-am.done:
			am.fsnotify.Close()
			close(am.events)
			close(am.errors)
			return
		}
	}
}

func (am *AssetManager) handleWatchEvent(e fsnotify.Event) {
	path := filepath.Clean(e.Name)

	s, err := os.Stat(path)
	if err == nil && s != nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.walk(path, true); err != nil {
				core.LogWarn("failed to watch %s: %s", path, err)
			}
		}
		return
	}

	var assetType metadata.ResourceType
	switch {
	case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
		assetType = am.handleFileEvent(path)
	case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// Can't stat a deleted path, the index tells whether it was an asset.
		assetType = am.removeAsset(path)
		_ = am.fsnotify.Remove(path)
	}
	if assetType == metadata.ResourceTypeNone {
		return
	}

	select {
	case am.events <- AssetEvent{Path: path, Type: assetType, Op: e.Op}:
	default:
		core.LogWarn("asset event queue full, dropping %s %s", e.Op, path)
	}
}

// walk indexes every file under path and, with watch set, adds every directory
// to the watch list.
func (am *AssetManager) walk(path string, watch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if watch {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		am.handleFileEvent(filepath.Clean(walkPath))
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) metadata.ResourceType {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return assetType
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path: path,
		Type: assetType,
	}
	return assetType
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) metadata.ResourceType {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	a, ok := am.assets[path]
	if !ok {
		return metadata.ResourceTypeNone
	}
	delete(am.assets, path)
	return a.Type
}

func determineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return metadata.ResourceTypeBinary
	case ".kmf":
		return metadata.ResourceTypeMesh
	case ".ksc":
		return metadata.ResourceTypeScene
	case ".gltf", ".glb":
		return metadata.ResourceTypeGLTF
	default:
		return metadata.ResourceTypeNone
	}
}
