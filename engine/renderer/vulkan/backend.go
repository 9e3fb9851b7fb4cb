// Package vulkan implements the renderer device on a Vulkan compute queue.
// Buffers are storage buffers, kernels are compute pipelines built from
// SPIR-V, and frames record into a single command buffer.
package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/renderer"
)

const (
	DefaultStagingSize    uint64 = 16 << 20
	DefaultDescriptorSets uint32 = 256
)

type Config struct {
	ApplicationName string
	/** @brief Enables VK_LAYER_KHRONOS_validation and the debug report callback. */
	Validation bool
	/** @brief Size of the staging buffer of every frame. */
	StagingSize uint64
	/** @brief Dispatches a frame can record before it is flushed. */
	DescriptorSets uint32
}

type Backend struct {
	config  Config
	context *VulkanContext

	glfwInitialized bool
	buffers         []*VulkanBuffer
	kernels         []*VulkanKernel
}

func New(config Config) *Backend {
	if config.ApplicationName == "" {
		config.ApplicationName = "anima-mesh"
	}
	if config.StagingSize == 0 {
		config.StagingSize = DefaultStagingSize
	}
	if config.DescriptorSets == 0 {
		config.DescriptorSets = DefaultDescriptorSets
	}
	return &Backend{
		config: config,
		context: &VulkanContext{
			Device: &VulkanDevice{ComputeQueueIndex: -1},
			Locks:  NewVulkanLockPool(),
		},
	}
}

// Initialize loads Vulkan, then creates the instance and a compute device.
// It must run on the main thread when the loader comes from glfw.
func (vr *Backend) Initialize() error {
	if err := vr.loadVulkan(); err != nil {
		core.LogError("failed to load vulkan: %s", err)
		return err
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   safeString(vr.config.ApplicationName),
		PEngineName:        safeString("Anima Engine"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	var extensions []string
	if runtime.GOOS == "darwin" {
		extensions = append(extensions, "VK_KHR_portability_enumeration", "VK_KHR_get_physical_device_properties2")
		createInfo.Flags |= 1 // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	}
	var layers []string
	if vr.config.Validation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		layers = append(layers, "VK_LAYER_KHRONOS_validation")
		if err := checkLayers(layers); err != nil {
			core.LogError(err.Error())
			return err
		}
		core.LogInfo("Validation layers enabled.")
	}
	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = safeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = safeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &instance); res != vk.Success {
		err := resultError("vkCreateInstance", res)
		core.LogError(err.Error())
		return err
	}
	vr.context.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if vr.config.Validation {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vr.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	if err := DeviceCreate(vr.context); err != nil {
		core.LogError("Failed to create device: %s", err)
		return err
	}

	core.LogInfo("Vulkan compute backend initialized successfully.")
	return nil
}

// loadVulkan takes the loader from glfw when a display is available and
// falls back to the system loader otherwise.
func (vr *Backend) loadVulkan() error {
	if err := glfw.Init(); err == nil {
		vr.glfwInitialized = true
		if glfw.VulkanSupported() {
			vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
			return vk.Init()
		}
	} else {
		core.LogDebug("glfw unavailable, using the default vulkan loader: %s", err)
	}
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return err
	}
	return vk.Init()
}

func checkLayers(required []string) error {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return resultError("vkEnumerateInstanceLayerProperties", res)
	}
	for _, name := range required {
		found := false
		for i := range available {
			available[i].Deref()
			if vk.ToString(available[i].LayerName[:]) == name {
				found = true
				break
			}
		}
		if !found {
			return errors.Errorf("required validation layer is missing: %s", name)
		}
	}
	return nil
}

func (vr *Backend) CreateBuffer(name string, size uint64, usage renderer.BufferUsage) (renderer.Buffer, error) {
	b, err := NewVulkanBuffer(vr.context, name, size, usage, 0)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	vr.buffers = append(vr.buffers, b)
	return b, nil
}

func (vr *Backend) CreateKernel(name string, spirv []uint32, pushSize uint32) (renderer.Kernel, error) {
	k, err := NewVulkanKernel(vr.context, name, spirv, pushSize)
	if err != nil {
		return nil, err
	}
	vr.kernels = append(vr.kernels, k)
	return k, nil
}

func (vr *Backend) NewFrame() (*VulkanFrame, error) {
	return newVulkanFrame(vr.context, vr.config.StagingSize, vr.config.DescriptorSets)
}

func (vr *Backend) ExecuteSingleTimeCommands(frame renderer.Frame, fn func(renderer.Frame) error) error {
	if frame != nil {
		return fn(frame)
	}
	f, err := vr.NewFrame()
	if err != nil {
		return err
	}
	defer f.Destroy()
	if err := fn(f); err != nil {
		return err
	}
	return f.WaitForCommands()
}

func (vr *Backend) Shutdown() error {
	if dev := vr.context.Device.LogicalDevice; dev != nil {
		vk.DeviceWaitIdle(dev)
		for _, k := range vr.kernels {
			k.Destroy(vr.context)
		}
		for _, b := range vr.buffers {
			b.Destroy()
		}
		vr.kernels, vr.buffers = nil, nil

		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(vr.context)
	}

	if vr.context.Instance != nil {
		if vr.config.Validation && vr.context.debugMessenger != vk.NullDebugReportCallback {
			core.LogDebug("Destroying Vulkan debugger...")
			vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		}
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
	}

	if vr.glfwInitialized {
		glfw.Terminate()
		vr.glfwInitialized = false
	}
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
