// Package headless implements the renderer device on the CPU. Buffers live in
// host memory and kernels are optional Go functions registered by name, so
// the attribute store can run without a GPU.
package headless

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/containers"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/renderer"
)

/** @brief The CPU side of a compute kernel. */
type KernelFunc func(push []byte, invocations uint32, bindings []*Buffer) error

/** @brief A dispatch as it was submitted, kept for inspection. */
type DispatchRecord struct {
	Kernel      string
	Push        []byte
	Invocations uint32
	Bindings    []string
}

type Device struct {
	queueSize  int
	buffers    []*Buffer
	kernels    map[string]KernelFunc
	dispatches []DispatchRecord
	shutdown   bool
}

func NewDevice(queueSize int) *Device {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Device{
		queueSize: queueSize,
		kernels:   make(map[string]KernelFunc),
	}
}

// RegisterKernel binds fn to every kernel created with name afterwards.
func (d *Device) RegisterKernel(name string, fn KernelFunc) {
	d.kernels[name] = fn
}

func (d *Device) CreateBuffer(name string, size uint64, usage renderer.BufferUsage) (renderer.Buffer, error) {
	if d.shutdown {
		return nil, errors.New("device is shut down")
	}
	if size == 0 {
		return nil, errors.Errorf("buffer %q: size must be greater than zero", name)
	}
	b := &Buffer{name: name, size: size, usage: usage}
	d.buffers = append(d.buffers, b)
	core.LogDebug("headless buffer %s created (%d bytes)", name, size)
	return b, nil
}

func (d *Device) CreateKernel(name string, spirv []uint32, pushSize uint32) (renderer.Kernel, error) {
	if d.shutdown {
		return nil, errors.New("device is shut down")
	}
	return &Kernel{name: name, pushSize: pushSize, fn: d.kernels[name]}, nil
}

func (d *Device) NewFrame() *Frame {
	return &Frame{
		device: d,
		queue:  containers.NewRingQueue[command](d.queueSize),
	}
}

func (d *Device) ExecuteSingleTimeCommands(frame renderer.Frame, fn func(renderer.Frame) error) error {
	if frame != nil {
		return fn(frame)
	}
	f := d.NewFrame()
	if err := fn(f); err != nil {
		return err
	}
	return f.WaitForCommands()
}

// Dispatches returns every dispatch executed so far.
func (d *Device) Dispatches() []DispatchRecord {
	return d.dispatches
}

func (d *Device) Shutdown() error {
	for _, b := range d.buffers {
		b.Destroy()
	}
	d.buffers = nil
	d.shutdown = true
	return nil
}

type Kernel struct {
	name     string
	pushSize uint32
	fn       KernelFunc
}

func (k *Kernel) Name() string {
	return k.name
}
