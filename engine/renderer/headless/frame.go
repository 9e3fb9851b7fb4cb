package headless

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/containers"
	"github.com/spaghettifunk/anima-mesh/engine/renderer"
)

type command func() error

// Frame records commands in a ring queue and runs them when waited on. A
// full queue is drained before the next command is recorded.
type Frame struct {
	device *Device
	queue  *containers.RingQueue[command]
}

func (f *Frame) QueueWrite(dst renderer.Buffer, offset uint64, data []byte) error {
	b, ok := dst.(*Buffer)
	if !ok {
		return errors.Errorf("buffer %q does not belong to the headless device", dst.Name())
	}
	if err := b.check(offset, uint64(len(data))); err != nil {
		return err
	}
	staged := append([]byte(nil), data...)
	return f.enqueue(func() error {
		return b.Write(offset, staged)
	})
}

func (f *Frame) Dispatch(k renderer.Kernel, push []byte, invocations uint32, bindings ...renderer.Buffer) error {
	kernel, ok := k.(*Kernel)
	if !ok {
		return errors.Errorf("kernel %q does not belong to the headless device", k.Name())
	}
	if kernel.pushSize != 0 && uint32(len(push)) != kernel.pushSize {
		return errors.Errorf("kernel %q: push constants are %d bytes, expected %d", kernel.name, len(push), kernel.pushSize)
	}
	bound := make([]*Buffer, len(bindings))
	names := make([]string, len(bindings))
	for i, binding := range bindings {
		b, ok := binding.(*Buffer)
		if !ok {
			return errors.Errorf("buffer %q does not belong to the headless device", binding.Name())
		}
		bound[i] = b
		names[i] = b.name
	}
	record := DispatchRecord{
		Kernel:      kernel.name,
		Push:        append([]byte(nil), push...),
		Invocations: invocations,
		Bindings:    names,
	}
	return f.enqueue(func() error {
		f.device.dispatches = append(f.device.dispatches, record)
		if kernel.fn == nil {
			return nil
		}
		return kernel.fn(record.Push, invocations, bound)
	})
}

func (f *Frame) WaitForCommands() error {
	for !f.queue.IsEmpty() {
		cmd, err := f.queue.Dequeue()
		if err != nil {
			return err
		}
		if err := cmd(); err != nil {
			f.discard()
			return err
		}
	}
	return nil
}

func (f *Frame) enqueue(cmd command) error {
	if f.queue.IsFull() {
		if err := f.WaitForCommands(); err != nil {
			return err
		}
	}
	return f.queue.Enqueue(cmd)
}

func (f *Frame) discard() {
	for !f.queue.IsEmpty() {
		_, _ = f.queue.Dequeue()
	}
}
