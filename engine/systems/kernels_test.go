package systems

import (
	"testing"

	"github.com/spaghettifunk/anima-mesh/engine/renderer/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelPushSize(t *testing.T) {
	assert.Equal(t, uint32(8), KernelPushSize(KernelNormalOfFaces))
	assert.Equal(t, uint32(8), KernelPushSize(KernelNormalOfVertices))
	assert.Equal(t, uint32(8), KernelPushSize(KernelTangentOfCorners))
	assert.Equal(t, uint32(20), KernelPushSize(KernelUpdateShape))
	assert.Equal(t, uint32(0), KernelPushSize("Blur"))
}

func TestNewKernelSet(t *testing.T) {
	device := headless.NewDevice(0)
	ks, err := NewKernelSet(device, map[string][]uint32{
		KernelNormalOfFaces: nil,
		KernelUpdateShape:   nil,
	})
	require.NoError(t, err)
	require.NotNil(t, ks.NormalOfFaces)
	assert.Equal(t, KernelNormalOfFaces, ks.NormalOfFaces.Name())
	require.NotNil(t, ks.UpdateShape)
	assert.Nil(t, ks.NormalOfVertices)
	assert.Nil(t, ks.TangentOfCorners)
}
