package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
)

const (
	// KernelWorkgroupSize is the local_size_x every kernel is compiled with.
	KernelWorkgroupSize uint32 = 64
	// KernelMaxBindings is the number of storage buffers a kernel can bind,
	// at bindings 0 and up of set 0.
	KernelMaxBindings = 2
)

/** @brief A compute pipeline and the layouts it was built with. */
type VulkanKernel struct {
	name     string
	pushSize uint32

	Module         vk.ShaderModule
	SetLayout      vk.DescriptorSetLayout
	PipelineLayout vk.PipelineLayout
	Pipeline       vk.Pipeline
}

func NewVulkanKernel(context *VulkanContext, name string, spirv []uint32, pushSize uint32) (*VulkanKernel, error) {
	if len(spirv) == 0 {
		return nil, errors.Errorf("kernel %q: empty SPIR-V", name)
	}
	k := &VulkanKernel{name: name, pushSize: pushSize}
	dev := context.Device.LogicalDevice

	err := context.Locks.SafeCall(PipelineManagement, func() error {
		var module vk.ShaderModule
		if res := vk.CreateShaderModule(dev, &vk.ShaderModuleCreateInfo{
			SType:    vk.StructureTypeShaderModuleCreateInfo,
			CodeSize: uint(len(spirv) * 4),
			PCode:    spirv,
		}, context.Allocator, &module); res != vk.Success {
			return resultError("vkCreateShaderModule", res)
		}
		k.Module = module

		bindings := make([]vk.DescriptorSetLayoutBinding, KernelMaxBindings)
		for i := range bindings {
			bindings[i] = vk.DescriptorSetLayoutBinding{
				Binding:         uint32(i),
				DescriptorType:  vk.DescriptorTypeStorageBuffer,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			}
		}
		var setLayout vk.DescriptorSetLayout
		if res := vk.CreateDescriptorSetLayout(dev, &vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		}, context.Allocator, &setLayout); res != vk.Success {
			return resultError("vkCreateDescriptorSetLayout", res)
		}
		k.SetLayout = setLayout

		layoutInfo := vk.PipelineLayoutCreateInfo{
			SType:          vk.StructureTypePipelineLayoutCreateInfo,
			SetLayoutCount: 1,
			PSetLayouts:    []vk.DescriptorSetLayout{setLayout},
		}
		if pushSize > 0 {
			layoutInfo.PushConstantRangeCount = 1
			layoutInfo.PPushConstantRanges = []vk.PushConstantRange{{
				StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
				Offset:     0,
				Size:       pushSize,
			}}
		}
		var pipelineLayout vk.PipelineLayout
		if res := vk.CreatePipelineLayout(dev, &layoutInfo, context.Allocator, &pipelineLayout); res != vk.Success {
			return resultError("vkCreatePipelineLayout", res)
		}
		k.PipelineLayout = pipelineLayout

		pipelines := make([]vk.Pipeline, 1)
		if res := vk.CreateComputePipelines(dev, vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{{
			SType:  vk.StructureTypeComputePipelineCreateInfo,
			Layout: pipelineLayout,
			Stage: vk.PipelineShaderStageCreateInfo{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vk.ShaderStageComputeBit,
				Module: module,
				PName:  safeString("main"),
			},
		}}, context.Allocator, pipelines); res != vk.Success {
			return resultError("vkCreateComputePipelines", res)
		}
		k.Pipeline = pipelines[0]
		return nil
	})
	if err != nil {
		k.Destroy(context)
		core.LogError("failed to create kernel %s: %s", name, err)
		return nil, errors.Wrapf(err, "kernel %q", name)
	}

	core.LogDebug("Vulkan kernel %s created.", name)
	return k, nil
}

func (k *VulkanKernel) Name() string {
	return k.name
}

func (k *VulkanKernel) Destroy(context *VulkanContext) {
	dev := context.Device.LogicalDevice
	if !isNull(k.Pipeline) {
		vk.DestroyPipeline(dev, k.Pipeline, context.Allocator)
	}
	if !isNull(k.PipelineLayout) {
		vk.DestroyPipelineLayout(dev, k.PipelineLayout, context.Allocator)
	}
	if !isNull(k.SetLayout) {
		vk.DestroyDescriptorSetLayout(dev, k.SetLayout, context.Allocator)
	}
	if !isNull(k.Module) {
		vk.DestroyShaderModule(dev, k.Module, context.Allocator)
	}
	*k = VulkanKernel{name: k.name, pushSize: k.pushSize}
}

// groupCount returns the number of workgroups covering invocations.
func groupCount(invocations uint32) uint32 {
	return (invocations + KernelWorkgroupSize - 1) / KernelWorkgroupSize
}
