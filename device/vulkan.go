package device

import (
	"errors"
	"fmt"
	"math"

	vk "github.com/devblok/vulkan"
	"github.com/devblok/ffp/gfx"
	log "github.com/sirupsen/logrus"
)

// ErrNoSuitableDevice is returned when no physical device has a graphics queue.
var ErrNoSuitableDevice = errors.New("no physical device with a graphics queue")

// Device is a gfx.Device backed by one Vulkan logical device and a
// single graphics queue. Submissions are synchronous.
type Device struct {
	instance *Instance
	info     PhysicalDeviceInfo

	physicalDevice vk.PhysicalDevice
	logicalDevice  vk.Device
	queue          vk.Queue
	queueIndex     uint32
	commandPool    vk.CommandPool
	fence          vk.Fence
	allocator      *MemoryAllocator

	renderPasses map[renderPassKey]vk.RenderPass
	claims       map[gfx.Window]*claim
}

func newDevice(instance *Instance) (*Device, error) {
	physical, queueIndex, err := pickPhysicalDevice(instance.availableDevices)
	if err != nil {
		return nil, err
	}

	requiredExtensions := safeStrings([]string{vk.KhrSwapchainExtensionName})
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: queueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1},
	}}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: requiredExtensions,
	}

	var logicalDevice vk.Device
	if err := vk.Error(vk.CreateDevice(physical, &dci, nil, &logicalDevice)); err != nil {
		return nil, fmt.Errorf("vk.CreateDevice(): %s", err)
	}

	d := &Device{
		instance:       instance,
		info:           physicalDeviceInfo(physical),
		physicalDevice: physical,
		logicalDevice:  logicalDevice,
		queueIndex:     queueIndex,
		allocator:      NewMemoryAllocator(logicalDevice, physical),
		renderPasses:   make(map[renderPassKey]vk.RenderPass),
		claims:         make(map[gfx.Window]*claim),
	}

	var queue vk.Queue
	vk.GetDeviceQueue(logicalDevice, queueIndex, 0, &queue)
	d.queue = queue

	if err := d.createCommandPool(); err != nil {
		vk.DestroyDevice(logicalDevice, nil)
		return nil, err
	}
	if err := d.createFence(); err != nil {
		vk.DestroyCommandPool(logicalDevice, d.commandPool, nil)
		vk.DestroyDevice(logicalDevice, nil)
		return nil, err
	}
	return d, nil
}

// pickPhysicalDevice returns the first device with a graphics queue family.
// Presentation support is checked when a window is claimed.
func pickPhysicalDevice(devices []vk.PhysicalDevice) (vk.PhysicalDevice, uint32, error) {
	for _, pd := range devices {
		var queueFamilyCount uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, nil)
		queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(pd, &queueFamilyCount, queueFamilies)

		for idx := uint32(0); idx < queueFamilyCount; idx++ {
			queueFamilies[idx].Deref()
			if queueFamilies[idx].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
				return pd, idx, nil
			}
		}
	}
	return nil, 0, ErrNoSuitableDevice
}

func (d *Device) createCommandPool() error {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
		QueueFamilyIndex: d.queueIndex,
	}

	var commandPool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(d.logicalDevice, &cpci, nil, &commandPool)); err != nil {
		return fmt.Errorf("vk.CreateCommandPool(): %s", err)
	}
	d.commandPool = commandPool
	return nil
}

func (d *Device) createFence() error {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}

	var fence vk.Fence
	if err := vk.Error(vk.CreateFence(d.logicalDevice, &fci, nil, &fence)); err != nil {
		return fmt.Errorf("vk.CreateFence(): %s", err)
	}
	d.fence = fence
	return nil
}

// Info describes the physical device in use.
func (d *Device) Info() PhysicalDeviceInfo {
	return d.info
}

// ClaimWindow implements gfx.Device
func (d *Device) ClaimWindow(w gfx.Window) error {
	if _, ok := d.claims[w]; ok {
		return gfx.ErrAlreadyClaimed
	}
	vw, ok := w.(Window)
	if !ok {
		return errors.New("window cannot host a vulkan surface")
	}

	c, err := d.newClaim(vw)
	if err != nil {
		return err
	}
	d.claims[w] = c

	log.WithFields(log.Fields{
		"format": c.format,
		"images": len(c.images),
		"width":  c.extent.Width,
		"height": c.extent.Height,
	}).Debug("window claimed")
	return nil
}

// ReleaseWindow implements gfx.Device
func (d *Device) ReleaseWindow(w gfx.Window) {
	c, ok := d.claims[w]
	if !ok {
		return
	}
	if err := d.WaitIdle(); err != nil {
		log.WithError(err).Warn("wait before window release failed")
	}
	c.destroy()
	delete(d.claims, w)
}

// SwapchainTextureFormat implements gfx.Device
func (d *Device) SwapchainTextureFormat(w gfx.Window) gfx.TextureFormat {
	c, ok := d.claims[w]
	if !ok {
		return gfx.FormatInvalid
	}
	return c.format
}

// WaitIdle implements gfx.Device
func (d *Device) WaitIdle() error {
	if err := vk.Error(vk.DeviceWaitIdle(d.logicalDevice)); err != nil {
		return fmt.Errorf("vk.DeviceWaitIdle(): %s", err)
	}
	return nil
}

// submit hands one command buffer to the queue and blocks until it completes.
func (d *Device) submit(info vk.SubmitInfo) error {
	if err := vk.Error(vk.QueueSubmit(d.queue, 1, []vk.SubmitInfo{info}, d.fence)); err != nil {
		return fmt.Errorf("vk.QueueSubmit(): %s", err)
	}
	return nil
}

func (d *Device) waitFence() error {
	fences := []vk.Fence{d.fence}
	if err := vk.Error(vk.WaitForFences(d.logicalDevice, 1, fences, vk.True, math.MaxUint64)); err != nil {
		return fmt.Errorf("vk.WaitForFences(): %s", err)
	}
	if err := vk.Error(vk.ResetFences(d.logicalDevice, 1, fences)); err != nil {
		return fmt.Errorf("vk.ResetFences(): %s", err)
	}
	return nil
}

// Destroy implements gfx.Device
func (d *Device) Destroy() {
	if d == nil {
		return
	}
	if err := d.WaitIdle(); err != nil {
		log.WithError(err).Warn("wait before device destruction failed")
	}

	for w, c := range d.claims {
		log.Warn("window still claimed at device destruction")
		c.destroy()
		delete(d.claims, w)
	}
	for key, rp := range d.renderPasses {
		vk.DestroyRenderPass(d.logicalDevice, rp, nil)
		delete(d.renderPasses, key)
	}

	vk.DestroyFence(d.logicalDevice, d.fence, nil)
	vk.DestroyCommandPool(d.logicalDevice, d.commandPool, nil)
	vk.DestroyDevice(d.logicalDevice, nil)
	d.instance.Destroy()
}
