package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/renderer"
)

type VulkanBuffer struct {
	context *VulkanContext

	name   string
	size   uint64
	usage  renderer.BufferUsage
	Handle vk.Buffer
	Memory vk.DeviceMemory
	mapped []byte
}

func bufferUsageFlags(usage renderer.BufferUsage) vk.BufferUsageFlagBits {
	var flags vk.BufferUsageFlagBits
	if usage.Has(renderer.BufferUsageStorage) {
		flags |= vk.BufferUsageStorageBufferBit
	}
	if usage.Has(renderer.BufferUsageTransferDst) {
		flags |= vk.BufferUsageTransferDstBit
	}
	return flags
}

func NewVulkanBuffer(context *VulkanContext, name string, size uint64, usage renderer.BufferUsage, flags vk.BufferUsageFlagBits) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, errors.Errorf("buffer %q: size must be greater than zero", name)
	}
	b := &VulkanBuffer{
		context: context,
		name:    name,
		size:    size,
		usage:   usage,
	}
	dev := context.Device.LogicalDevice

	err := context.Locks.SafeCall(BufferManagement, func() error {
		var buffer vk.Buffer
		if res := vk.CreateBuffer(dev, &vk.BufferCreateInfo{
			SType:       vk.StructureTypeBufferCreateInfo,
			Usage:       vk.BufferUsageFlags(flags | bufferUsageFlags(usage)),
			Size:        vk.DeviceSize(size),
			SharingMode: vk.SharingModeExclusive,
		}, context.Allocator, &buffer); res != vk.Success {
			return resultError("vkCreateBuffer", res)
		}
		b.Handle = buffer
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "buffer %q", name)
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, b.Handle, &memReqs)
	memReqs.Deref()

	props := vk.MemoryPropertyDeviceLocalBit
	if usage.Has(renderer.BufferUsageHostVisible) {
		props = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}
	memType := context.FindMemoryIndex(memReqs.MemoryTypeBits, props)
	if memType < 0 {
		b.Destroy()
		return nil, errors.Errorf("buffer %q: no memory type with properties %#x", name, props)
	}

	err = context.Locks.SafeCall(MemoryManagement, func() error {
		var memory vk.DeviceMemory
		if res := vk.AllocateMemory(dev, &vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  memReqs.Size,
			MemoryTypeIndex: uint32(memType),
		}, context.Allocator, &memory); res != vk.Success {
			return resultError("vkAllocateMemory", res)
		}
		b.Memory = memory
		if res := vk.BindBufferMemory(dev, b.Handle, memory, 0); res != vk.Success {
			return resultError("vkBindBufferMemory", res)
		}
		if !usage.Has(renderer.BufferUsageHostVisible) {
			return nil
		}
		var ptr unsafe.Pointer
		if res := vk.MapMemory(dev, memory, 0, vk.DeviceSize(size), 0, &ptr); res != vk.Success {
			return resultError("vkMapMemory", res)
		}
		b.mapped = unsafe.Slice((*byte)(ptr), size)
		return nil
	})
	if err != nil {
		b.Destroy()
		return nil, errors.Wrapf(err, "buffer %q", name)
	}

	core.LogDebug("Vulkan buffer %s created (%d bytes).", name, size)
	return b, nil
}

func (b *VulkanBuffer) Name() string {
	return b.name
}

func (b *VulkanBuffer) Size() uint64 {
	return b.size
}

func (b *VulkanBuffer) Mapped() []byte {
	return b.mapped
}

func (b *VulkanBuffer) Destroy() {
	dev := b.context.Device.LogicalDevice
	if b.mapped != nil {
		vk.UnmapMemory(dev, b.Memory)
		b.mapped = nil
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(dev, b.Memory, b.context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(dev, b.Handle, b.context.Allocator)
		b.Handle = vk.NullBuffer
	}
}
