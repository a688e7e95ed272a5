package device

import (
	"errors"
	"fmt"
	"math"

	vk "github.com/devblok/vulkan"
	"github.com/devblok/ffp/gfx"
)

// ErrPresentUnsupported is returned when the graphics queue cannot present
// to a window's surface.
var ErrPresentUnsupported = errors.New("graphics queue cannot present to the surface")

// preferredFormats are searched in order among the surface formats.
var preferredFormats = []vk.Format{
	vk.FormatB8g8r8a8Unorm,
	vk.FormatR8g8b8a8Unorm,
	vk.FormatB8g8r8a8Srgb,
	vk.FormatR8g8b8a8Srgb,
}

func textureFormat(f vk.Format) gfx.TextureFormat {
	switch f {
	case vk.FormatB8g8r8a8Unorm:
		return gfx.FormatB8G8R8A8Unorm
	case vk.FormatR8g8b8a8Unorm:
		return gfx.FormatR8G8B8A8Unorm
	case vk.FormatB8g8r8a8Srgb:
		return gfx.FormatB8G8R8A8UnormSRGB
	case vk.FormatR8g8b8a8Srgb:
		return gfx.FormatR8G8B8A8UnormSRGB
	}
	return gfx.FormatInvalid
}

func vulkanFormat(f gfx.TextureFormat) vk.Format {
	switch f {
	case gfx.FormatB8G8R8A8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case gfx.FormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case gfx.FormatB8G8R8A8UnormSRGB:
		return vk.FormatB8g8r8a8Srgb
	case gfx.FormatR8G8B8A8UnormSRGB:
		return vk.FormatR8g8b8a8Srgb
	}
	return vk.FormatUndefined
}

// claim is the presentation state of one window.
type claim struct {
	device *Device
	window Window

	surface     vk.Surface
	format      gfx.TextureFormat
	imageFormat vk.Format
	colorSpace  vk.ColorSpace

	swapchain    vk.Swapchain
	extent       vk.Extent2D
	drawable     [2]int32
	images       []vk.Image
	views        []vk.ImageView
	framebuffers []vk.Framebuffer

	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore

	// outdated is set when the swapchain must be rebuilt before the next acquire.
	outdated bool
}

func (d *Device) newClaim(w Window) (*claim, error) {
	surfacePtr, err := w.VulkanCreateSurface(d.instance.Handle())
	if err != nil {
		return nil, fmt.Errorf("window.VulkanCreateSurface(): %s", err)
	}

	c := &claim{
		device:  d,
		window:  w,
		surface: vk.SurfaceFromPointer(uintptr(surfacePtr)),
	}

	if err := c.init(); err != nil {
		c.destroy()
		return nil, err
	}
	return c, nil
}

func (c *claim) init() error {
	d := c.device

	var supported vk.Bool32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(d.physicalDevice, d.queueIndex, c.surface, &supported)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceSupport(): %s", err)
	}
	if !supported.B() {
		return ErrPresentUnsupported
	}

	if err := c.chooseFormat(); err != nil {
		return err
	}

	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	if err := vk.Error(vk.CreateSemaphore(d.logicalDevice, &sci, nil, &c.imageAvailable)); err != nil {
		return fmt.Errorf("vk.CreateSemaphore(): %s", err)
	}
	if err := vk.Error(vk.CreateSemaphore(d.logicalDevice, &sci, nil, &c.renderFinished)); err != nil {
		return fmt.Errorf("vk.CreateSemaphore(): %s", err)
	}

	return c.createSwapchain()
}

func (c *claim) chooseFormat() error {
	d := c.device

	var surfaceFormatCount uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(d.physicalDevice, c.surface, &surfaceFormatCount, nil)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %s", err)
	}
	surfaceFormats := make([]vk.SurfaceFormat, surfaceFormatCount)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(d.physicalDevice, c.surface, &surfaceFormatCount, surfaceFormats)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %s", err)
	}
	for idx := range surfaceFormats {
		surfaceFormats[idx].Deref()
	}

	// a single undefined format leaves the choice to us
	if len(surfaceFormats) == 1 && surfaceFormats[0].Format == vk.FormatUndefined {
		c.imageFormat = vk.FormatB8g8r8a8Unorm
		c.colorSpace = surfaceFormats[0].ColorSpace
		c.format = gfx.FormatB8G8R8A8Unorm
		return nil
	}

	for _, preferred := range preferredFormats {
		for _, sf := range surfaceFormats {
			if sf.Format == preferred {
				c.imageFormat = sf.Format
				c.colorSpace = sf.ColorSpace
				c.format = textureFormat(sf.Format)
				return nil
			}
		}
	}
	return fmt.Errorf("surface formats: %w", gfx.ErrUnsupportedFormat)
}

// createSwapchain builds the swapchain for the current surface extent,
// replacing any previous one. A zero extent leaves the claim without
// images and marked outdated.
func (c *claim) createSwapchain() error {
	d := c.device
	// cleared once images, views and framebuffers all exist
	c.outdated = true

	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(d.physicalDevice, c.surface, &caps)); err != nil {
		return fmt.Errorf("vk.GetPhysicalDeviceSurfaceCapabilities(): %s", err)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	w, h := c.window.DrawableSize()
	c.drawable = [2]int32{w, h}
	extent := caps.CurrentExtent
	if extent.Width == math.MaxUint32 {
		extent.Width = clamp(uint32(max(w, 0)), caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
		extent.Height = clamp(uint32(max(h, 0)), caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	}

	c.destroySwapchainImages()
	if extent.Width == 0 || extent.Height == 0 {
		c.extent = extent
		return nil
	}

	minImageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && minImageCount > caps.MaxImageCount {
		minImageCount = caps.MaxImageCount
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(flag) != 0 {
			compositeAlpha = flag
			break
		}
	}

	oldSwapchain := c.swapchain
	scci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          c.surface,
		MinImageCount:    minImageCount,
		ImageFormat:      c.imageFormat,
		ImageColorSpace:  c.colorSpace,
		ImageExtent:      extent,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldSwapchain,
	}

	var swapchain vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(d.logicalDevice, &scci, nil, &swapchain)); err != nil {
		return fmt.Errorf("vk.CreateSwapchain(): %s", err)
	}
	if oldSwapchain != vk.NullSwapchain {
		vk.DestroySwapchain(d.logicalDevice, oldSwapchain, nil)
	}
	c.swapchain = swapchain
	c.extent = extent

	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(d.logicalDevice, c.swapchain, &numImages, nil)); err != nil {
		return fmt.Errorf("vk.GetSwapchainImages(num): %s", err)
	}
	c.images = make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(d.logicalDevice, c.swapchain, &numImages, c.images)); err != nil {
		return fmt.Errorf("vk.GetSwapchainImages(images): %s", err)
	}

	if err := c.createImageViews(); err != nil {
		return err
	}
	if err := c.createFramebuffers(); err != nil {
		return err
	}
	c.outdated = false
	return nil
}

func (c *claim) createImageViews() error {
	for idx, image := range c.images {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   c.imageFormat,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: colorSubresourceRange,
		}

		var view vk.ImageView
		if err := vk.Error(vk.CreateImageView(c.device.logicalDevice, &ivci, nil, &view)); err != nil {
			return fmt.Errorf("vk.CreateImageView(%d): %s", idx, err)
		}
		c.views = append(c.views, view)
	}
	return nil
}

// createFramebuffers creates one framebuffer per image. Every render pass
// of a format is compatible with them regardless of its load op.
func (c *claim) createFramebuffers() error {
	renderPass, err := c.device.renderPass(c.imageFormat, gfx.LoadOpClear)
	if err != nil {
		return err
	}

	for idx, view := range c.views {
		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           c.extent.Width,
			Height:          c.extent.Height,
			Layers:          1,
		}

		var framebuffer vk.Framebuffer
		if err := vk.Error(vk.CreateFramebuffer(c.device.logicalDevice, &fci, nil, &framebuffer)); err != nil {
			return fmt.Errorf("vk.CreateFramebuffer(%d): %s", idx, err)
		}
		c.framebuffers = append(c.framebuffers, framebuffer)
	}
	return nil
}

// recreate rebuilds the swapchain once the device is idle.
func (c *claim) recreate() error {
	if err := c.device.WaitIdle(); err != nil {
		return err
	}
	return c.createSwapchain()
}

// framebuffer returns the framebuffer of an acquired image.
func (c *claim) framebuffer(index uint32) (vk.Framebuffer, error) {
	if int(index) >= len(c.framebuffers) {
		return vk.Framebuffer(vk.NullHandle), errOutOfDate
	}
	return c.framebuffers[index], nil
}

// stale reports whether the swapchain no longer matches the window.
func (c *claim) stale() bool {
	if c.outdated {
		return true
	}
	w, h := c.window.DrawableSize()
	return c.drawable != [2]int32{w, h}
}

func (c *claim) destroySwapchainImages() {
	dev := c.device.logicalDevice
	for _, fb := range c.framebuffers {
		vk.DestroyFramebuffer(dev, fb, nil)
	}
	for _, view := range c.views {
		vk.DestroyImageView(dev, view, nil)
	}
	c.framebuffers = nil
	c.views = nil
	c.images = nil
}

func (c *claim) destroy() {
	dev := c.device.logicalDevice
	c.destroySwapchainImages()
	if c.swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(dev, c.swapchain, nil)
		c.swapchain = vk.NullSwapchain
	}
	if c.imageAvailable != vk.Semaphore(vk.NullHandle) {
		vk.DestroySemaphore(dev, c.imageAvailable, nil)
	}
	if c.renderFinished != vk.Semaphore(vk.NullHandle) {
		vk.DestroySemaphore(dev, c.renderFinished, nil)
	}
	vk.DestroySurface(c.device.instance.Handle(), c.surface, nil)
}

// swapchainTexture is an acquired swapchain image.
type swapchainTexture struct {
	claim *claim
	index uint32
}

func (t *swapchainTexture) Width() uint32             { return t.claim.extent.Width }
func (t *swapchainTexture) Height() uint32            { return t.claim.extent.Height }
func (t *swapchainTexture) Format() gfx.TextureFormat { return t.claim.format }

// Release does nothing, swapchain images are owned by the window claim.
func (t *swapchainTexture) Release() {}

var colorSubresourceRange = vk.ImageSubresourceRange{
	AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	LevelCount: 1,
	LayerCount: 1,
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
