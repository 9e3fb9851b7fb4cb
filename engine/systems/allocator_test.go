package systems

import (
	"testing"

	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexAllocatorAligns(t *testing.T) {
	a := NewIndexAllocator("test", 64)

	i, err := a.Allocate(1, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), i)

	// 3 bytes used, the next 4 byte element starts at byte 4
	i, err = a.Allocate(4, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), i)

	// 12 bytes used, a 6 byte element starts at byte 12
	i, err = a.Allocate(6, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), i)
	assert.Equal(t, uint64(18), a.Used())
}

func TestIndexAllocatorExhausted(t *testing.T) {
	a := NewIndexAllocator("test", 16)
	_, err := a.Allocate(4, 4)
	require.NoError(t, err)
	_, err = a.Allocate(1, 1)
	assert.ErrorIs(t, err, core.ErrAllocatorExhausted)
	assert.Equal(t, uint64(16), a.Used())

	_, err = a.Allocate(0, 1)
	assert.Error(t, err)
}
