package renderer

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/serial"
)

type RendererType uint8

const (
	Vulkan RendererType = iota
	Headless
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	case Headless:
		return "headless"
	}
	return "unknown"
}

func ParseRendererType(name string) (RendererType, error) {
	switch strings.ToLower(name) {
	case "vulkan":
		return Vulkan, nil
	case "headless", "":
		return Headless, nil
	}
	return 0, errors.Errorf("unknown renderer backend %q", name)
}

// QueueWriteValue encodes v with the serial layout and queues it at offset.
func QueueWriteValue(f Frame, dst Buffer, offset uint64, v any) error {
	b, err := serial.Marshal(v)
	if err != nil {
		return err
	}
	return f.QueueWrite(dst, offset, b)
}

// DispatchWith encodes push as the kernel's push constant block.
func DispatchWith(f Frame, k Kernel, push any, invocations uint32, bindings ...Buffer) error {
	b, err := serial.Marshal(push)
	if err != nil {
		return err
	}
	return f.Dispatch(k, b, invocations, bindings...)
}
