package systems

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/renderer"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/serial"
)

const (
	DefaultSceneBufferSize     uint64 = 4 << 20
	DefaultAttributeBufferSize uint64 = 1 << 30
)

/** @brief Kernel names, as registered with the device. */
const (
	KernelNormalOfFaces    = "NormalOfFaces"
	KernelNormalOfVertices = "NormalOfVertices"
	KernelTangentOfCorners = "TangentOfCorners"
	KernelUpdateShape      = "UpdateShape"
)

type SceneDataConfig struct {
	/** @brief Size of the host visible buffer holding uniform records. */
	SceneBufferSize uint64
	/** @brief Size of the device buffer holding every mesh attribute. */
	AttributeBufferSize uint64
}

/** @brief The compute kernels the meshes dispatch. Any of them may be nil. */
type KernelSet struct {
	NormalOfFaces    renderer.Kernel
	NormalOfVertices renderer.Kernel
	TangentOfCorners renderer.Kernel
	UpdateShape      renderer.Kernel
}

/**
 * @brief Owns the scene and attribute buffers of one renderer, and the
 * allocators that carve them up. Not safe for concurrent use.
 */
type SceneData struct {
	ID uuid.UUID

	device  renderer.Device
	kernels KernelSet

	sceneBuffer     renderer.Buffer
	attributeBuffer renderer.Buffer

	sceneAllocator     *IndexAllocator
	attributeAllocator *IndexAllocator

	sceneIndex uint32
	Uniform    metadata.UniformScene
}

func NewSceneData(device renderer.Device, config *SceneDataConfig, kernels KernelSet) (*SceneData, error) {
	cfg := SceneDataConfig{
		SceneBufferSize:     DefaultSceneBufferSize,
		AttributeBufferSize: DefaultAttributeBufferSize,
	}
	if config != nil {
		if config.SceneBufferSize != 0 {
			cfg.SceneBufferSize = config.SceneBufferSize
		}
		if config.AttributeBufferSize != 0 {
			cfg.AttributeBufferSize = config.AttributeBufferSize
		}
	}

	sd := &SceneData{
		ID:      uuid.New(),
		device:  device,
		kernels: kernels,
	}

	var err error
	sd.sceneBuffer, err = device.CreateBuffer("SceneBuffer", cfg.SceneBufferSize,
		renderer.BufferUsageStorage|renderer.BufferUsageHostVisible|renderer.BufferUsageTransferDst)
	if err != nil {
		core.LogError("failed to create the scene buffer: %s", err)
		return nil, err
	}
	sd.attributeBuffer, err = device.CreateBuffer("AttributeBuffer", cfg.AttributeBufferSize,
		renderer.BufferUsageStorage|renderer.BufferUsageTransferDst)
	if err != nil {
		sd.sceneBuffer.Destroy()
		core.LogError("failed to create the attribute buffer: %s", err)
		return nil, err
	}
	sd.sceneAllocator = NewIndexAllocator("SceneAllocator", cfg.SceneBufferSize)
	sd.attributeAllocator = NewIndexAllocator("AttributeAllocator", cfg.AttributeBufferSize)

	if sd.sceneIndex, err = sd.sceneAllocator.Allocate(sizeOf[metadata.UniformScene](), 1); err != nil {
		sd.Shutdown()
		return nil, logged(err)
	}
	if err := sd.WriteUniform(nil); err != nil {
		sd.Shutdown()
		return nil, logged(err)
	}

	core.LogDebug("scene data %s created (scene buffer %d bytes, attribute buffer %d bytes)",
		sd.ID, cfg.SceneBufferSize, cfg.AttributeBufferSize)
	return sd, nil
}

func (sd *SceneData) Device() renderer.Device             { return sd.device }
func (sd *SceneData) Kernels() KernelSet                  { return sd.kernels }
func (sd *SceneData) SceneBuffer() renderer.Buffer        { return sd.sceneBuffer }
func (sd *SceneData) AttributeBuffer() renderer.Buffer    { return sd.attributeBuffer }
func (sd *SceneData) SceneAllocator() *IndexAllocator     { return sd.sceneAllocator }
func (sd *SceneData) AttributeAllocator() *IndexAllocator { return sd.attributeAllocator }

/** @brief Index of the scene record in the scene buffer, always 0. */
func (sd *SceneData) Index() uint32 {
	return sd.sceneIndex
}

// WriteUniform uploads the scene record.
func (sd *SceneData) WriteUniform(frame renderer.Frame) error {
	return sd.writeRecord(frame, sd.sceneIndex, &sd.Uniform)
}

func (sd *SceneData) allocateMesh() (uint32, error) {
	index, err := sd.sceneAllocator.Allocate(sizeOf[metadata.UniformMesh](), 1)
	if err != nil {
		return 0, err
	}
	sd.Uniform.MeshCount++
	return index, nil
}

/** @brief Allocates and uploads a material record, returning its index. */
func (sd *SceneData) AddMaterial(frame renderer.Frame, material metadata.UniformMaterial) (uint32, error) {
	index, err := sd.sceneAllocator.Allocate(sizeOf[metadata.UniformMaterial](), 1)
	if err != nil {
		return 0, logged(err)
	}
	sd.Uniform.MaterialCount++
	if err := sd.writeRecord(frame, index, &material); err != nil {
		return 0, logged(err)
	}
	return index, nil
}

// writeRecord writes v at index, in units of v's own size. A mapped scene
// buffer is written in place, otherwise the write is queued on frame.
func (sd *SceneData) writeRecord(frame renderer.Frame, index uint32, v any) error {
	offset := uint64(index) * uint64(binary.Size(v))
	if mapped := sd.sceneBuffer.Mapped(); mapped != nil {
		b, err := serial.Marshal(v)
		if err != nil {
			return err
		}
		if offset+uint64(len(b)) > uint64(len(mapped)) {
			return errors.Errorf("record at %d overflows the scene buffer", offset)
		}
		copy(mapped[offset:], b)
		return nil
	}
	return sd.device.ExecuteSingleTimeCommands(frame, func(f renderer.Frame) error {
		return renderer.QueueWriteValue(f, sd.sceneBuffer, offset, v)
	})
}

func (sd *SceneData) Shutdown() {
	if sd.attributeBuffer != nil {
		sd.attributeBuffer.Destroy()
	}
	if sd.sceneBuffer != nil {
		sd.sceneBuffer.Destroy()
	}
}

func sizeOf[T any]() uint32 {
	var v T
	return uint32(binary.Size(&v))
}

func logged(err error) error {
	core.LogError(err.Error())
	return err
}

func kernelOrErr(k renderer.Kernel, name string) (renderer.Kernel, error) {
	if k == nil {
		return nil, errors.Wrapf(core.ErrKernelUnavailable, "%s", name)
	}
	return k, nil
}

// KernelPushSize is the push constant block size of a named kernel, 0 for
// unknown names.
func KernelPushSize(name string) uint32 {
	switch name {
	case KernelNormalOfFaces, KernelNormalOfVertices, KernelTangentOfCorners:
		return sizeOf[metadata.MeshPushConstants]()
	case KernelUpdateShape:
		return sizeOf[metadata.ShapePushConstants]()
	}
	return 0
}

/**
 * @brief Creates the kernels found in modules, keyed by kernel name. Kernels
 * without a module stay nil and their dispatches fail.
 */
func NewKernelSet(device renderer.Device, modules map[string][]uint32) (KernelSet, error) {
	var ks KernelSet
	slots := []struct {
		name string
		k    *renderer.Kernel
	}{
		{KernelNormalOfFaces, &ks.NormalOfFaces},
		{KernelNormalOfVertices, &ks.NormalOfVertices},
		{KernelTangentOfCorners, &ks.TangentOfCorners},
		{KernelUpdateShape, &ks.UpdateShape},
	}
	for _, s := range slots {
		spirv, ok := modules[s.name]
		if !ok {
			core.LogWarn("kernel %s has no module, its dispatches will fail", s.name)
			continue
		}
		k, err := device.CreateKernel(s.name, spirv, KernelPushSize(s.name))
		if err != nil {
			core.LogError("failed to create kernel %s: %s", s.name, err)
			return KernelSet{}, err
		}
		*s.k = k
	}
	return ks, nil
}
