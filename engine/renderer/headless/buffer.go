package headless

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/renderer"
)

// Buffer keeps its contents in host memory. The backing slice only grows as
// far as the highest byte written, so large device buffers stay cheap.
type Buffer struct {
	name      string
	size      uint64
	usage     renderer.BufferUsage
	data      []byte
	destroyed bool
}

func (b *Buffer) Name() string {
	return b.name
}

func (b *Buffer) Size() uint64 {
	return b.size
}

func (b *Buffer) Mapped() []byte {
	if b.destroyed || !b.usage.Has(renderer.BufferUsageHostVisible) {
		return nil
	}
	b.grow(b.size)
	return b.data
}

func (b *Buffer) Destroy() {
	b.data = nil
	b.destroyed = true
}

// Read returns a copy of size bytes at offset. Bytes never written read as zero.
func (b *Buffer) Read(offset, size uint64) ([]byte, error) {
	if err := b.check(offset, size); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if offset < uint64(len(b.data)) {
		copy(out, b.data[offset:])
	}
	return out, nil
}

func (b *Buffer) Write(offset uint64, data []byte) error {
	if err := b.check(offset, uint64(len(data))); err != nil {
		return err
	}
	b.grow(offset + uint64(len(data)))
	copy(b.data[offset:], data)
	return nil
}

func (b *Buffer) check(offset, size uint64) error {
	if b.destroyed {
		return errors.Errorf("buffer %q is destroyed", b.name)
	}
	if offset > b.size || size > b.size-offset {
		return errors.Errorf("buffer %q: range [%d, %d) exceeds size %d", b.name, offset, offset+size, b.size)
	}
	return nil
}

func (b *Buffer) grow(n uint64) {
	if n <= uint64(len(b.data)) {
		return
	}
	if n <= uint64(cap(b.data)) {
		b.data = b.data[:n]
		return
	}
	grown := make([]byte, n, max(n, min(2*uint64(cap(b.data)), b.size)))
	copy(grown, b.data)
	b.data = grown
}
