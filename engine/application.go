package engine

import (
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/renderer"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/vulkan"
	"github.com/spaghettifunk/anima-mesh/engine/systems"
)

const (
	DefaultApplicationName = "Anima Mesh"
	DefaultAssetsDir       = "assets"
	DefaultLogLevel        = "info"
)

type ApplicationConfig struct {
	// The application name, reported to the device.
	Name    string        `toml:"name"`
	Log     LogConfig     `toml:"log"`
	Scene   SceneConfig   `toml:"scene"`
	Assets  AssetsConfig  `toml:"assets"`
	Device  DeviceConfig  `toml:"device"`
	Kernels KernelsConfig `toml:"kernels"`
}

type LogConfig struct {
	// One of debug, info, warn, error, fatal.
	Level  string `toml:"level"`
	Prefix string `toml:"prefix"`
}

type SceneConfig struct {
	SceneBufferSize     uint64 `toml:"scene_buffer_size"`
	AttributeBufferSize uint64 `toml:"attribute_buffer_size"`
}

type AssetsConfig struct {
	Dir string `toml:"dir"`
	// Reload scenes when their files change.
	Watch bool `toml:"watch"`
	// Number of goroutines parsing scene files.
	Workers int `toml:"workers"`
	// Scenes loaded at startup, relative to Dir.
	Scenes []string `toml:"scenes"`
}

type DeviceConfig struct {
	// vulkan or headless.
	Backend        string `toml:"backend"`
	Validation     bool   `toml:"validation"`
	StagingSize    uint64 `toml:"staging_size"`
	DescriptorSets uint32 `toml:"descriptor_sets"`
}

// KernelsConfig names the SPIR-V file of each compute kernel, relative to
// the assets directory.
type KernelsConfig struct {
	NormalOfFaces    string `toml:"normal_of_faces"`
	NormalOfVertices string `toml:"normal_of_vertices"`
	TangentOfCorners string `toml:"tangent_of_corners"`
	UpdateShape      string `toml:"update_shape"`
}

// Paths maps kernel names to their configured files. Unset kernels are left out.
func (k KernelsConfig) Paths() map[string]string {
	paths := make(map[string]string, 4)
	for name, p := range map[string]string{
		systems.KernelNormalOfFaces:    k.NormalOfFaces,
		systems.KernelNormalOfVertices: k.NormalOfVertices,
		systems.KernelTangentOfCorners: k.TangentOfCorners,
		systems.KernelUpdateShape:      k.UpdateShape,
	} {
		if p != "" {
			paths[name] = p
		}
	}
	return paths
}

func DefaultConfig() *ApplicationConfig {
	cfg := &ApplicationConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a TOML configuration. Missing values get their defaults.
func LoadConfig(path string) (*ApplicationConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open config")
	}
	defer f.Close()

	cfg := &ApplicationConfig{}
	d := toml.NewDecoder(f)
	d.DisallowUnknownFields()
	if err := d.Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (cfg *ApplicationConfig) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create config")
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func (cfg *ApplicationConfig) Validate() error {
	if _, err := renderer.ParseRendererType(cfg.Device.Backend); err != nil {
		return err
	}
	if err := core.ValidateLogLevel(cfg.Log.Level); err != nil {
		return errors.Wrapf(err, "log level")
	}
	if cfg.Assets.Workers < 1 {
		return errors.Errorf("assets.workers must be at least 1, got %d", cfg.Assets.Workers)
	}
	return nil
}

func (cfg *ApplicationConfig) applyDefaults() {
	if cfg.Name == "" {
		cfg.Name = DefaultApplicationName
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Scene.SceneBufferSize == 0 {
		cfg.Scene.SceneBufferSize = systems.DefaultSceneBufferSize
	}
	if cfg.Scene.AttributeBufferSize == 0 {
		cfg.Scene.AttributeBufferSize = systems.DefaultAttributeBufferSize
	}
	if cfg.Assets.Dir == "" {
		cfg.Assets.Dir = DefaultAssetsDir
	}
	if cfg.Assets.Workers == 0 {
		cfg.Assets.Workers = runtime.NumCPU()
	}
	if cfg.Device.Backend == "" {
		cfg.Device.Backend = renderer.Headless.String()
	}
	if cfg.Device.StagingSize == 0 {
		cfg.Device.StagingSize = vulkan.DefaultStagingSize
	}
	if cfg.Device.DescriptorSets == 0 {
		cfg.Device.DescriptorSets = vulkan.DefaultDescriptorSets
	}
}
