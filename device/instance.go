package device

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
)

// ValidationLayer is enabled on debug instances.
const ValidationLayer = "VK_LAYER_KHRONOS_validation"

// InstanceConfiguration is the configuration of a Vulkan instance.
type InstanceConfiguration struct {
	Debug      bool
	Extensions []string
	Layers     []string
}

// Instance wraps a Vulkan instance along with its physical devices.
type Instance struct {
	configuration    InstanceConfiguration
	instance         vk.Instance
	availableDevices []vk.PhysicalDevice
}

// NewInstance loads Vulkan and creates an instance.
func NewInstance(appInfo *vk.ApplicationInfo, procAddr unsafe.Pointer, cfg InstanceConfiguration) (*Instance, error) {
	if cfg.Debug {
		cfg.Layers = append(cfg.Layers, ValidationLayer)
	}

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, fmt.Errorf("vk.SetDefaultGetInstanceProcAddr(): %s", err)
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vk.Init(): %s", err)
	}

	extensions := safeStrings(cfg.Extensions)
	layers := safeStrings(cfg.Layers)
	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, fmt.Errorf("vk.CreateInstance(): %s", err)
	}
	vk.InitInstance(instance)

	physicalDevices, err := enumerateDevices(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, fmt.Errorf("device.enumerateDevices(): %s", err)
	}

	return &Instance{
		configuration:    cfg,
		instance:         instance,
		availableDevices: physicalDevices,
	}, nil
}

func enumerateDevices(instance vk.Instance) ([]vk.PhysicalDevice, error) {
	var deviceCount uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, nil)); err != nil {
		return nil, err
	}
	if deviceCount == 0 {
		return nil, errors.New("no physical devices")
	}
	devices := make([]vk.PhysicalDevice, deviceCount)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &deviceCount, devices)); err != nil {
		return nil, err
	}
	return devices, nil
}

// PhysicalDevicesInfo describes every physical device of the instance.
func (i *Instance) PhysicalDevicesInfo() []PhysicalDeviceInfo {
	pdi := make([]PhysicalDeviceInfo, len(i.availableDevices))
	for idx, pd := range i.availableDevices {
		pdi[idx] = physicalDeviceInfo(pd)
	}
	return pdi
}

func physicalDeviceInfo(pd vk.PhysicalDevice) PhysicalDeviceInfo {
	var info PhysicalDeviceInfo

	var numExtensions uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numExtensions, nil)); err != nil {
		info.Invalid = true
	}
	extensions := make([]vk.ExtensionProperties, numExtensions)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &numExtensions, extensions)); err != nil {
		info.Invalid = true
	}
	for _, ext := range extensions {
		ext.Deref()
		info.Extensions = append(info.Extensions, vk.ToString(ext.ExtensionName[:]))
	}

	var numLayers uint32
	if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numLayers, nil)); err != nil {
		info.Invalid = true
	}
	layers := make([]vk.LayerProperties, numLayers)
	if err := vk.Error(vk.EnumerateDeviceLayerProperties(pd, &numLayers, layers)); err != nil {
		info.Invalid = true
	}
	for _, layer := range layers {
		layer.Deref()
		info.Layers = append(info.Layers, vk.ToString(layer.LayerName[:]))
	}

	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memoryProperties)
	memoryProperties.Deref()
	for iMem := uint32(0); iMem < memoryProperties.MemoryHeapCount; iMem++ {
		memoryProperties.MemoryHeaps[iMem].Deref()
		info.Memory += uint64(memoryProperties.MemoryHeaps[iMem].Size)
	}

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &properties)
	properties.Deref()
	info.ID = int(properties.DeviceID)
	info.VendorID = int(properties.VendorID)
	info.Name = vk.ToString(properties.DeviceName[:])
	info.DriverVersion = int(properties.DriverVersion)
	return info
}

// Handle returns the vk.Instance.
func (i *Instance) Handle() vk.Instance {
	return i.instance
}

// Destroy destroys the instance.
func (i *Instance) Destroy() {
	if i == nil {
		return
	}
	i.availableDevices = nil
	vk.DestroyInstance(i.instance, nil)
}
