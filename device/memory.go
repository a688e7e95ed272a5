package device

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
)

// ErrNoMemoryType is returned when no memory type satisfies an allocation.
var ErrNoMemoryType = errors.New("suitable memory type not found")

// Memory is one device memory allocation.
type Memory struct {
	mapped bool
	size   uint32
	device vk.Device
	memory vk.DeviceMemory
}

// Map maps the allocation and returns the host view of it.
func (m *Memory) Map() ([]byte, error) {
	var ptr unsafe.Pointer
	if err := vk.Error(vk.MapMemory(m.device, m.memory, 0, vk.DeviceSize(m.size), 0, &ptr)); err != nil {
		return nil, fmt.Errorf("vk.MapMemory(): %s", err)
	}
	m.mapped = true
	return unsafe.Slice((*byte)(ptr), m.size), nil
}

// Unmap removes the memory mapping if it was mapped.
func (m *Memory) Unmap() {
	if m.mapped {
		vk.UnmapMemory(m.device, m.memory)
		m.mapped = false
	}
}

// Release frees memory after unmapping it if previously mapped.
func (m *Memory) Release() {
	m.Unmap()
	vk.FreeMemory(m.device, m.memory, nil)
}

// MemoryAllocator hands out memory for the resources of a logical device.
type MemoryAllocator struct {
	device        vk.Device
	memProperties vk.PhysicalDeviceMemoryProperties
}

// NewMemoryAllocator reads the memory properties of the physical device
// and allocates for the logical one.
func NewMemoryAllocator(device vk.Device, physical vk.PhysicalDevice) *MemoryAllocator {
	var memProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physical, &memProperties)
	memProperties.Deref()
	for idx := uint32(0); idx < memProperties.MemoryTypeCount; idx++ {
		memProperties.MemoryTypes[idx].Deref()
	}

	return &MemoryAllocator{
		device:        device,
		memProperties: memProperties,
	}
}

// Malloc allocates memory satisfying the requirements and properties.
func (ma *MemoryAllocator) Malloc(req vk.MemoryRequirements, prop vk.MemoryPropertyFlagBits) (*Memory, error) {
	req.Deref()
	memTypeIdx, err := ma.findMemoryType(req.MemoryTypeBits, vk.MemoryPropertyFlags(prop))
	if err != nil {
		return nil, err
	}

	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memTypeIdx,
	}

	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(ma.device, &mai, nil, &memory)); err != nil {
		return nil, fmt.Errorf("vk.AllocateMemory(): %s", err)
	}

	return &Memory{
		size:   uint32(req.Size),
		device: ma.device,
		memory: memory,
	}, nil
}

func (ma *MemoryAllocator) findMemoryType(filter uint32, prop vk.MemoryPropertyFlags) (uint32, error) {
	for idx := uint32(0); idx < ma.memProperties.MemoryTypeCount; idx++ {
		if filter&(1<<idx) != 0 && (ma.memProperties.MemoryTypes[idx].PropertyFlags&prop) == prop {
			return idx, nil
		}
	}
	return 0, ErrNoMemoryType
}
