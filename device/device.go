// Package device implements the gfx interfaces on top of Vulkan.
package device

import (
	"fmt"
	"unsafe"

	vk "github.com/devblok/vulkan"
	"github.com/devblok/ffp/gfx"
	log "github.com/sirupsen/logrus"
)

// DefaultApplicationInfo is passed to every instance the Backend creates.
var DefaultApplicationInfo = &vk.ApplicationInfo{
	SType:              vk.StructureTypeApplicationInfo,
	ApiVersion:         vk.MakeVersion(1, 0, 0),
	ApplicationVersion: vk.MakeVersion(1, 0, 0),
	PApplicationName:   "ffp\x00",
	PEngineName:        "ffp\x00",
}

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int      `json:"id"`
	VendorID      int      `json:"vendorId"`
	DriverVersion int      `json:"driverVersion"`
	Name          string   `json:"name"`
	Invalid       bool     `json:"invalid"`
	Extensions    []string `json:"extensions"`
	Layers        []string `json:"layers"`
	Memory        uint64   `json:"memory"`
}

// Window is a gfx.Window that is able to host a Vulkan surface.
// The SDL window of package window satisfies it.
type Window interface {
	gfx.Window

	// DrawableSize returns the size of the window in pixels.
	DrawableSize() (width, height int32)

	// VulkanCreateSurface creates a surface for the given vk.Instance.
	VulkanCreateSurface(instance interface{}) (unsafe.Pointer, error)
}

// Backend creates Vulkan devices.
type Backend struct {
	procAddr   unsafe.Pointer
	extensions []string
}

// NewBackend returns a backend that loads Vulkan through procAddr and
// enables the given instance extensions on every device. A nil procAddr
// loads the system Vulkan library.
func NewBackend(procAddr unsafe.Pointer, extensions []string) *Backend {
	return &Backend{
		procAddr:   procAddr,
		extensions: extensions,
	}
}

// CreateDevice implements gfx.Backend
func (b *Backend) CreateDevice(format gfx.ShaderFormat, debug bool) (gfx.Device, error) {
	if format != gfx.ShaderFormatSPIRV {
		return nil, gfx.ErrUnsupportedFormat
	}

	instance, err := NewInstance(DefaultApplicationInfo, b.procAddr, InstanceConfiguration{
		Debug:      debug,
		Extensions: b.extensions,
	})
	if err != nil {
		return nil, err
	}

	dev, err := newDevice(instance)
	if err != nil {
		instance.Destroy()
		return nil, err
	}

	log.WithFields(log.Fields{
		"device": dev.info.Name,
		"memory": dev.info.Memory,
		"debug":  debug,
	}).Info("vulkan device created")
	return dev, nil
}

// PhysicalDevices lists the devices visible to a fresh instance.
func (b *Backend) PhysicalDevices() ([]PhysicalDeviceInfo, error) {
	instance, err := NewInstance(DefaultApplicationInfo, b.procAddr, InstanceConfiguration{
		Extensions: b.extensions,
	})
	if err != nil {
		return nil, fmt.Errorf("device.NewInstance(): %s", err)
	}
	defer instance.Destroy()
	return instance.PhysicalDevicesInfo(), nil
}
