package vulkan

import (
	gomath "math"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/renderer"
)

/**
 * @brief Records transfers and dispatches into one command buffer.
 * Writes go through a host visible staging buffer. The buffer is submitted
 * when waited on, or early when the staging buffer or the descriptor pool
 * runs out.
 */
type VulkanFrame struct {
	context *VulkanContext

	cmd     *VulkanCommandBuffer
	fence   *VulkanFence
	staging *VulkanBuffer
	cursor  uint64

	descriptorPool vk.DescriptorPool
	maxSets        uint32
	setsUsed       uint32

	recorded bool
}

func newVulkanFrame(context *VulkanContext, stagingSize uint64, maxSets uint32) (*VulkanFrame, error) {
	f := &VulkanFrame{context: context, maxSets: maxSets}

	var err error
	if f.staging, err = NewVulkanBuffer(context, "Staging", stagingSize, renderer.BufferUsageHostVisible, vk.BufferUsageTransferSrcBit); err != nil {
		return nil, err
	}
	if f.fence, err = NewFence(context, false); err != nil {
		f.Destroy()
		return nil, err
	}
	if f.cmd, err = NewVulkanCommandBuffer(context, context.Device.CommandPool); err != nil {
		f.Destroy()
		return nil, err
	}

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeStorageBuffer,
			DescriptorCount: maxSets * KernelMaxBindings,
		}},
	}, context.Allocator, &pool); res != vk.Success {
		f.Destroy()
		return nil, resultError("vkCreateDescriptorPool", res)
	}
	f.descriptorPool = pool

	if err := f.cmd.Begin(true); err != nil {
		f.Destroy()
		return nil, err
	}
	return f, nil
}

func (f *VulkanFrame) QueueWrite(dst renderer.Buffer, offset uint64, data []byte) error {
	b, ok := dst.(*VulkanBuffer)
	if !ok {
		return errors.Errorf("buffer %q does not belong to the vulkan device", dst.Name())
	}
	if offset > b.size || uint64(len(data)) > b.size-offset {
		return errors.Errorf("buffer %q: range [%d, %d) exceeds size %d", b.name, offset, offset+uint64(len(data)), b.size)
	}

	for len(data) > 0 {
		available := f.staging.size - f.cursor
		if available == 0 {
			if err := f.WaitForCommands(); err != nil {
				return err
			}
			continue
		}
		n := min(available, uint64(len(data)))
		copy(f.staging.mapped[f.cursor:], data[:n])

		f.barrier()
		vk.CmdCopyBuffer(f.cmd.Handle, f.staging.Handle, b.Handle, 1, []vk.BufferCopy{{
			SrcOffset: vk.DeviceSize(f.cursor),
			DstOffset: vk.DeviceSize(offset),
			Size:      vk.DeviceSize(n),
		}})
		f.recorded = true

		f.cursor += n
		offset += n
		data = data[n:]
	}
	return nil
}

func (f *VulkanFrame) Dispatch(k renderer.Kernel, push []byte, invocations uint32, bindings ...renderer.Buffer) error {
	kernel, ok := k.(*VulkanKernel)
	if !ok {
		return errors.Errorf("kernel %q does not belong to the vulkan device", k.Name())
	}
	if uint32(len(push)) != kernel.pushSize {
		return errors.Errorf("kernel %q: push constants are %d bytes, expected %d", kernel.name, len(push), kernel.pushSize)
	}
	if len(bindings) > KernelMaxBindings {
		return errors.Errorf("kernel %q: %d bindings, at most %d", kernel.name, len(bindings), KernelMaxBindings)
	}
	if invocations == 0 {
		return nil
	}
	if f.setsUsed == f.maxSets {
		if err := f.WaitForCommands(); err != nil {
			return err
		}
	}

	dev := f.context.Device.LogicalDevice
	var set vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(dev, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     f.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{kernel.SetLayout},
	}, &set); res != vk.Success {
		return resultError("vkAllocateDescriptorSets", res)
	}
	f.setsUsed++

	writes := make([]vk.WriteDescriptorSet, len(bindings))
	for i, binding := range bindings {
		b, ok := binding.(*VulkanBuffer)
		if !ok {
			return errors.Errorf("buffer %q does not belong to the vulkan device", binding.Name())
		}
		writes[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uint32(i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: b.Handle,
				Offset: 0,
				Range:  vk.DeviceSize(vk.WholeSize),
			}},
		}
	}
	if len(writes) > 0 {
		vk.UpdateDescriptorSets(dev, uint32(len(writes)), writes, 0, nil)
	}

	f.barrier()
	vk.CmdBindPipeline(f.cmd.Handle, vk.PipelineBindPointCompute, kernel.Pipeline)
	vk.CmdBindDescriptorSets(f.cmd.Handle, vk.PipelineBindPointCompute, kernel.PipelineLayout,
		0, 1, []vk.DescriptorSet{set}, 0, nil)
	if len(push) > 0 {
		vk.CmdPushConstants(f.cmd.Handle, kernel.PipelineLayout, vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			0, uint32(len(push)), unsafe.Pointer(&push[0]))
	}
	vk.CmdDispatch(f.cmd.Handle, groupCount(invocations), 1, 1)
	f.recorded = true
	return nil
}

// WaitForCommands submits everything recorded so far and blocks until the
// device is done with it. The frame is ready to record again afterwards.
func (f *VulkanFrame) WaitForCommands() error {
	if !f.recorded {
		return nil
	}
	if err := f.cmd.Submit(f.context, f.fence); err != nil {
		return err
	}
	if err := f.fence.Wait(f.context, gomath.MaxUint64); err != nil {
		return err
	}
	if err := f.fence.Reset(f.context); err != nil {
		return err
	}
	if res := vk.ResetDescriptorPool(f.context.Device.LogicalDevice, f.descriptorPool, 0); res != vk.Success {
		return resultError("vkResetDescriptorPool", res)
	}
	f.setsUsed = 0
	f.cursor = 0
	f.recorded = false

	if err := f.cmd.Reset(); err != nil {
		return err
	}
	return f.cmd.Begin(true)
}

// barrier orders every transfer and shader access recorded before it
// against those recorded after it.
func (f *VulkanFrame) barrier() {
	if !f.recorded {
		return
	}
	stages := vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit | vk.PipelineStageTransferBit)
	vk.CmdPipelineBarrier(f.cmd.Handle, stages, stages, vk.DependencyFlags(0), 1,
		[]vk.MemoryBarrier{{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(vk.AccessShaderWriteBit | vk.AccessTransferWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit | vk.AccessTransferWriteBit),
		}}, 0, nil, 0, nil)
}

func (f *VulkanFrame) Destroy() {
	if f.recorded {
		if err := f.WaitForCommands(); err != nil {
			core.LogWarn("discarding frame with pending commands: %s", err)
		}
	}
	if f.cmd != nil {
		f.cmd.Free(f.context, f.context.Device.CommandPool)
		f.cmd = nil
	}
	if f.fence != nil {
		f.fence.Destroy(f.context)
		f.fence = nil
	}
	if !isNull(f.descriptorPool) {
		vk.DestroyDescriptorPool(f.context.Device.LogicalDevice, f.descriptorPool, f.context.Allocator)
		var none vk.DescriptorPool
		f.descriptorPool = none
	}
	if f.staging != nil {
		f.staging.Destroy()
		f.staging = nil
	}
}
