package headless

import (
	"testing"

	"github.com/spaghettifunk/anima-mesh/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuedWritesRunOnWait(t *testing.T) {
	d := NewDevice(4)
	buf, err := d.CreateBuffer("scene", 16, renderer.BufferUsageStorage|renderer.BufferUsageHostVisible)
	require.NoError(t, err)

	f := d.NewFrame()
	data := []byte{1, 2, 3, 4}
	require.NoError(t, f.QueueWrite(buf, 4, data))
	data[0] = 9
	assert.Equal(t, make([]byte, 16), buf.Mapped())

	require.NoError(t, f.WaitForCommands())
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4}, buf.Mapped()[:8])
}

func TestDeviceLocalBufferIsNotMapped(t *testing.T) {
	d := NewDevice(0)
	buf, err := d.CreateBuffer("attributes", 1<<30, renderer.BufferUsageStorage)
	require.NoError(t, err)
	assert.Nil(t, buf.Mapped())

	hb := buf.(*Buffer)
	require.NoError(t, hb.Write(1<<20, []byte{7}))
	got, err := hb.Read(1<<20, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0}, got)
	assert.Len(t, hb.data, 1<<20+1)
}

func TestWriteOutOfRange(t *testing.T) {
	d := NewDevice(0)
	buf, err := d.CreateBuffer("small", 8, renderer.BufferUsageStorage)
	require.NoError(t, err)
	f := d.NewFrame()
	assert.Error(t, f.QueueWrite(buf, 6, []byte{1, 2, 3}))
	assert.NoError(t, f.QueueWrite(buf, 5, []byte{1, 2, 3}))

	_, err = d.CreateBuffer("empty", 0, renderer.BufferUsageStorage)
	assert.Error(t, err)
}

func TestDispatchRunsRegisteredKernel(t *testing.T) {
	d := NewDevice(0)
	buf, err := d.CreateBuffer("data", 4, renderer.BufferUsageStorage)
	require.NoError(t, err)

	var calls int
	d.RegisterKernel("Fill", func(push []byte, invocations uint32, bindings []*Buffer) error {
		calls++
		for i := uint32(0); i < invocations; i++ {
			if err := bindings[0].Write(uint64(i), push[:1]); err != nil {
				return err
			}
		}
		return nil
	})
	k, err := d.CreateKernel("Fill", nil, 2)
	require.NoError(t, err)

	err = d.ExecuteSingleTimeCommands(nil, func(f renderer.Frame) error {
		return f.Dispatch(k, []byte{5, 0}, 3, buf)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	got, err := buf.(*Buffer).Read(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 5, 5, 0}, got)

	require.Len(t, d.Dispatches(), 1)
	assert.Equal(t, DispatchRecord{Kernel: "Fill", Push: []byte{5, 0}, Invocations: 3, Bindings: []string{"data"}}, d.Dispatches()[0])
}

func TestDispatchChecksPushSize(t *testing.T) {
	d := NewDevice(0)
	k, err := d.CreateKernel("K", nil, 8)
	require.NoError(t, err)
	assert.Error(t, d.NewFrame().Dispatch(k, []byte{1}, 1))
}

func TestFullQueueIsDrained(t *testing.T) {
	d := NewDevice(2)
	buf, err := d.CreateBuffer("data", 8, renderer.BufferUsageHostVisible)
	require.NoError(t, err)
	f := d.NewFrame()
	for i := 0; i < 5; i++ {
		require.NoError(t, f.QueueWrite(buf, uint64(i), []byte{byte(i + 1)}))
	}
	// the first four writes were flushed to make room
	assert.Equal(t, []byte{1, 2, 3, 4, 0}, buf.Mapped()[:5])
	require.NoError(t, f.WaitForCommands())
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, buf.Mapped()[:5])
}

func TestExecuteOnExistingFrameDoesNotWait(t *testing.T) {
	d := NewDevice(0)
	buf, err := d.CreateBuffer("data", 1, renderer.BufferUsageHostVisible)
	require.NoError(t, err)
	f := d.NewFrame()
	require.NoError(t, d.ExecuteSingleTimeCommands(f, func(fr renderer.Frame) error {
		return fr.QueueWrite(buf, 0, []byte{1})
	}))
	assert.Equal(t, []byte{0}, buf.Mapped())
	require.NoError(t, f.WaitForCommands())
	assert.Equal(t, []byte{1}, buf.Mapped())
}

func TestShutdown(t *testing.T) {
	d := NewDevice(0)
	buf, err := d.CreateBuffer("data", 1, renderer.BufferUsageHostVisible)
	require.NoError(t, err)
	require.NoError(t, d.Shutdown())
	assert.Nil(t, buf.Mapped())
	_, err = d.CreateBuffer("late", 1, renderer.BufferUsageStorage)
	assert.Error(t, err)
}
