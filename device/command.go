package device

import (
	"errors"
	"fmt"
	"math"
	"unsafe"

	vk "github.com/devblok/vulkan"
	"github.com/devblok/ffp/gfx"
	log "github.com/sirupsen/logrus"
)

// package errors
var (
	ErrAlreadyAcquired = errors.New("swapchain texture already acquired by the command buffer")
	ErrRenderTarget    = errors.New("only swapchain textures can be render targets")

	errOutOfDate = errors.New("swapchain is out of date")
)

// commandBuffer records into a primary one time submit buffer.
type commandBuffer struct {
	device *Device
	cmd    vk.CommandBuffer
	done   bool

	claim      *claim
	imageIndex uint32
	rendered   bool

	pipeline *pipeline
	uniforms map[uint32][]byte
}

// AcquireCommandBuffer implements gfx.Device
func (d *Device) AcquireCommandBuffer() (gfx.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}

	cmds := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(d.logicalDevice, &cbai, cmds)); err != nil {
		return nil, fmt.Errorf("vk.AllocateCommandBuffers(): %s", err)
	}

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(cmds[0], &cbbi)); err != nil {
		vk.FreeCommandBuffers(d.logicalDevice, d.commandPool, 1, cmds)
		return nil, fmt.Errorf("vk.BeginCommandBuffer(): %s", err)
	}

	return &commandBuffer{
		device:   d,
		cmd:      cmds[0],
		uniforms: make(map[uint32][]byte),
	}, nil
}

func (cb *commandBuffer) free() {
	vk.FreeCommandBuffers(cb.device.logicalDevice, cb.device.commandPool, 1, []vk.CommandBuffer{cb.cmd})
	cb.done = true
}

// WaitAndAcquireSwapchainTexture implements gfx.CommandBuffer
func (cb *commandBuffer) WaitAndAcquireSwapchainTexture(w gfx.Window) (gfx.Texture, error) {
	c, ok := cb.device.claims[w]
	if !ok {
		return nil, gfx.ErrNotClaimed
	}
	if cb.claim != nil {
		return nil, ErrAlreadyAcquired
	}

	if width, height := c.window.DrawableSize(); width <= 0 || height <= 0 {
		return nil, nil
	}
	if c.stale() {
		if err := c.recreate(); err != nil {
			return nil, err
		}
	}
	if c.outdated {
		return nil, nil
	}

	idx, err := cb.acquire(c)
	if err == errOutOfDate {
		if err := c.recreate(); err != nil {
			return nil, err
		}
		if c.outdated {
			return nil, nil
		}
		idx, err = cb.acquire(c)
	}
	if err != nil {
		return nil, err
	}

	cb.claim = c
	cb.imageIndex = idx
	return &swapchainTexture{claim: c, index: idx}, nil
}

func (cb *commandBuffer) acquire(c *claim) (uint32, error) {
	var idx uint32
	res := vk.AcquireNextImage(cb.device.logicalDevice, c.swapchain, math.MaxUint64,
		c.imageAvailable, vk.Fence(vk.NullHandle), &idx)
	switch res {
	case vk.Success:
	case vk.Suboptimal:
		c.outdated = true
	case vk.ErrorOutOfDate:
		return 0, errOutOfDate
	default:
		return 0, fmt.Errorf("vk.AcquireNextImage(): %s", vk.Error(res))
	}
	return idx, nil
}

// PushVertexUniformData implements gfx.CommandBuffer
func (cb *commandBuffer) PushVertexUniformData(slot uint32, data []byte) {
	cb.uniforms[slot] = append([]byte(nil), data...)
	if cb.pipeline != nil {
		cb.pushUniform(slot)
	}
}

func (cb *commandBuffer) pushUniform(slot uint32) {
	data := cb.uniforms[slot]
	p := cb.pipeline
	offset := slot * p.uniformSize
	size := uint32(len(data))
	if size > p.uniformSize {
		size = p.uniformSize
	}
	if size == 0 || offset+size > p.pushSize {
		log.WithField("slot", slot).Warn("vertex uniform slot is not used by the pipeline")
		return
	}
	vk.CmdPushConstants(cb.cmd, p.layout, vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		offset, size, unsafe.Pointer(&data[0]))
}

// BeginCopyPass implements gfx.CommandBuffer
func (cb *commandBuffer) BeginCopyPass() (gfx.CopyPass, error) {
	if cb.done {
		return nil, gfx.ErrSubmitted
	}
	return &copyPass{cb: cb}, nil
}

// BeginRenderPass implements gfx.CommandBuffer
func (cb *commandBuffer) BeginRenderPass(targets []gfx.ColorTargetInfo) (gfx.RenderPass, error) {
	if cb.done {
		return nil, gfx.ErrSubmitted
	}
	if len(targets) != 1 {
		return nil, fmt.Errorf("%d color targets: %w", len(targets), gfx.ErrUnsupportedFormat)
	}
	target, ok := targets[0].Texture.(*swapchainTexture)
	if !ok || target.claim != cb.claim {
		return nil, ErrRenderTarget
	}
	if err := cb.beginRenderPass(target, targets[0].ClearColor, targets[0].LoadOp); err != nil {
		return nil, err
	}
	return &renderPass{cb: cb}, nil
}

func (cb *commandBuffer) beginRenderPass(target *swapchainTexture, color gfx.Color, loadOp gfx.LoadOp) error {
	c := target.claim
	framebuffer, err := c.framebuffer(target.index)
	if err != nil {
		c.outdated = true
		return err
	}
	rp, err := cb.device.renderPass(c.imageFormat, loadOp)
	if err != nil {
		return err
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor([]float32{color.R, color.G, color.B, color.A})

	vk.CmdBeginRenderPass(cb.cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: c.extent,
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}, vk.SubpassContentsInline)

	vk.CmdSetViewport(cb.cmd, 0, 1, []vk.Viewport{{
		Width:    float32(c.extent.Width),
		Height:   float32(c.extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}})
	vk.CmdSetScissor(cb.cmd, 0, 1, []vk.Rect2D{{
		Extent: c.extent,
	}})
	cb.rendered = true
	return nil
}

// Submit implements gfx.CommandBuffer. It blocks until the GPU has
// finished the work and the acquired image, if any, has been queued
// for presentation.
func (cb *commandBuffer) Submit() error {
	if cb.done {
		return gfx.ErrSubmitted
	}
	defer cb.free()

	// an acquired image must leave in the present layout
	if cb.claim != nil && !cb.rendered {
		target := &swapchainTexture{claim: cb.claim, index: cb.imageIndex}
		if err := cb.beginRenderPass(target, gfx.Color{}, gfx.LoadOpClear); err != nil {
			return err
		}
		vk.CmdEndRenderPass(cb.cmd)
	}

	if err := vk.Error(vk.EndCommandBuffer(cb.cmd)); err != nil {
		return fmt.Errorf("vk.EndCommandBuffer(): %s", err)
	}

	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.cmd},
	}
	if c := cb.claim; c != nil {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = []vk.Semaphore{c.imageAvailable}
		info.PWaitDstStageMask = []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		}
		info.SignalSemaphoreCount = 1
		info.PSignalSemaphores = []vk.Semaphore{c.renderFinished}
	}

	if err := cb.device.submit(info); err != nil {
		if cb.claim != nil {
			cb.claim.outdated = true
		}
		return err
	}

	var presentErr error
	if c := cb.claim; c != nil {
		res := vk.QueuePresent(cb.device.queue, &vk.PresentInfo{
			SType:              vk.StructureTypePresentInfo,
			WaitSemaphoreCount: 1,
			PWaitSemaphores:    []vk.Semaphore{c.renderFinished},
			SwapchainCount:     1,
			PSwapchains:        []vk.Swapchain{c.swapchain},
			PImageIndices:      []uint32{cb.imageIndex},
		})
		switch res {
		case vk.Success:
		case vk.Suboptimal, vk.ErrorOutOfDate:
			c.outdated = true
		default:
			presentErr = fmt.Errorf("vk.QueuePresent(): %s", vk.Error(res))
		}
	}

	if err := cb.device.waitFence(); err != nil {
		return err
	}
	return presentErr
}

// Cancel implements gfx.CommandBuffer. A command buffer holding a
// swapchain image is submitted instead, so the image is returned to
// the presentation engine.
func (cb *commandBuffer) Cancel() {
	if cb.done {
		return
	}
	if cb.claim != nil {
		log.Error("command buffer cancelled after acquiring a swapchain texture")
		if err := cb.Submit(); err != nil {
			log.WithError(err).Error("submit of cancelled command buffer failed")
		}
		return
	}
	vk.EndCommandBuffer(cb.cmd)
	cb.free()
}

type copyPass struct {
	cb *commandBuffer
}

// UploadToBuffer implements gfx.CopyPass
func (p *copyPass) UploadToBuffer(src gfx.TransferBufferLocation, dst gfx.BufferRegion, cycle bool) {
	tb, ok := src.TransferBuffer.(*transferBuffer)
	if !ok {
		log.WithError(ErrForeignObject).Error("buffer upload skipped")
		return
	}
	b, ok := dst.Buffer.(*buffer)
	if !ok {
		log.WithError(ErrForeignObject).Error("buffer upload skipped")
		return
	}

	vk.CmdCopyBuffer(p.cb.cmd, tb.buffer, b.buffer, 1, []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(src.Offset),
		DstOffset: vk.DeviceSize(dst.Offset),
		Size:      vk.DeviceSize(dst.Size),
	}})
}

// UploadToTexture implements gfx.CopyPass. The texture ends up ready
// for sampling.
func (p *copyPass) UploadToTexture(src gfx.TextureTransferInfo, dst gfx.TextureRegion, cycle bool) {
	tb, ok := src.TransferBuffer.(*transferBuffer)
	if !ok {
		log.WithError(ErrForeignObject).Error("texture upload skipped")
		return
	}
	tex, ok := dst.Texture.(*texture)
	if !ok {
		log.WithError(ErrForeignObject).Error("texture upload skipped")
		return
	}

	p.transition(tex, vk.ImageLayoutTransferDstOptimal,
		vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit,
		0, vk.AccessTransferWriteBit)

	vk.CmdCopyBufferToImage(p.cb.cmd, tb.buffer, tex.image, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
		BufferOffset: vk.DeviceSize(src.Offset),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageOffset: vk.Offset3D{X: int32(dst.X), Y: int32(dst.Y)},
		ImageExtent: vk.Extent3D{Width: dst.W, Height: dst.H, Depth: 1},
	}})

	p.transition(tex, vk.ImageLayoutShaderReadOnlyOptimal,
		vk.PipelineStageTransferBit, vk.PipelineStageFragmentShaderBit,
		vk.AccessTransferWriteBit, vk.AccessShaderReadBit)
}

func (p *copyPass) transition(tex *texture, layout vk.ImageLayout,
	srcStage, dstStage vk.PipelineStageFlagBits, srcAccess, dstAccess vk.AccessFlagBits) {

	vk.CmdPipelineBarrier(p.cb.cmd,
		vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(srcAccess),
			DstAccessMask:       vk.AccessFlags(dstAccess),
			OldLayout:           tex.layout,
			NewLayout:           layout,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               tex.image,
			SubresourceRange:    colorSubresourceRange,
		}})
	tex.layout = layout
}

// End implements gfx.CopyPass. Buffer writes are made visible to the
// vertex input of later submissions.
func (p *copyPass) End() {
	vk.CmdPipelineBarrier(p.cb.cmd,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
		0, 1, []vk.MemoryBarrier{{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccessMask: vk.AccessFlags(vk.AccessVertexAttributeReadBit | vk.AccessIndexReadBit),
		}}, 0, nil, 0, nil)
}

type renderPass struct {
	cb *commandBuffer
}

// BindGraphicsPipeline implements gfx.RenderPass. Uniforms pushed
// earlier in the command buffer are pushed again for the new layout.
func (p *renderPass) BindGraphicsPipeline(gp gfx.GraphicsPipeline) {
	pl, ok := gp.(*pipeline)
	if !ok {
		log.WithError(ErrForeignObject).Error("pipeline bind skipped")
		return
	}
	vk.CmdBindPipeline(p.cb.cmd, vk.PipelineBindPointGraphics, pl.pipeline)
	p.cb.pipeline = pl
	for slot := range p.cb.uniforms {
		p.cb.pushUniform(slot)
	}
}

// BindVertexBuffers implements gfx.RenderPass
func (p *renderPass) BindVertexBuffers(firstSlot uint32, bindings ...gfx.BufferBinding) {
	buffers := make([]vk.Buffer, 0, len(bindings))
	offsets := make([]vk.DeviceSize, 0, len(bindings))
	for _, binding := range bindings {
		b, ok := binding.Buffer.(*buffer)
		if !ok {
			log.WithError(ErrForeignObject).Error("vertex buffer bind skipped")
			return
		}
		buffers = append(buffers, b.buffer)
		offsets = append(offsets, vk.DeviceSize(binding.Offset))
	}
	vk.CmdBindVertexBuffers(p.cb.cmd, firstSlot, uint32(len(buffers)), buffers, offsets)
}

// BindIndexBuffer implements gfx.RenderPass
func (p *renderPass) BindIndexBuffer(binding gfx.BufferBinding, size gfx.IndexElementSize) {
	b, ok := binding.Buffer.(*buffer)
	if !ok {
		log.WithError(ErrForeignObject).Error("index buffer bind skipped")
		return
	}
	indexType := vk.IndexTypeUint16
	if size == gfx.IndexElementSize32Bit {
		indexType = vk.IndexTypeUint32
	}
	vk.CmdBindIndexBuffer(p.cb.cmd, b.buffer, vk.DeviceSize(binding.Offset), indexType)
}

// DrawPrimitives implements gfx.RenderPass
func (p *renderPass) DrawPrimitives(numVertices, numInstances, firstVertex, firstInstance uint32) {
	vk.CmdDraw(p.cb.cmd, numVertices, numInstances, firstVertex, firstInstance)
}

// DrawIndexedPrimitives implements gfx.RenderPass
func (p *renderPass) DrawIndexedPrimitives(numIndices, numInstances, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(p.cb.cmd, numIndices, numInstances, firstIndex, vertexOffset, firstInstance)
}

// End implements gfx.RenderPass
func (p *renderPass) End() {
	vk.CmdEndRenderPass(p.cb.cmd)
	p.cb.pipeline = nil
}
