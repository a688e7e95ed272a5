package gfxtest

import (
	"errors"

	"github.com/devblok/ffp/gfx"
)

// Frame is a submitted command buffer that acquired a swapchain texture.
type Frame struct {

	// Skipped is set when the window had no drawable area.
	Skipped bool
	Passes  []Pass
}

// Pass is a recorded render pass.
type Pass struct {
	Target     gfx.Texture
	ClearColor gfx.Color
	LoadOp     gfx.LoadOp
	Draws      []Draw
}

// Draw is a recorded draw call.
type Draw struct {
	Pipeline      gfx.GraphicsPipeline
	VertexBuffers []gfx.BufferBinding
	IndexBuffer   *gfx.BufferBinding
	IndexSize     gfx.IndexElementSize
	Indexed       bool
	Count         uint32
	Instances     uint32

	// Uniform is a copy of vertex uniform slot 0 at the time of the draw.
	Uniform []byte
}

type copyOp struct {
	src    *transferBuffer
	offset uint32
	buffer *buffer
	dstOff uint32
	size   uint32
	tex    *texture
}

type commandBuffer struct {
	*resource
	device   *device
	done     bool
	acquired bool
	skipped  bool
	copies   []copyOp
	passes   []Pass
	uniforms map[uint32][]byte
	inPass   bool
}

func (c *commandBuffer) BeginCopyPass() (gfx.CopyPass, error) {
	if c.done {
		return nil, gfx.ErrSubmitted
	}
	if c.inPass {
		return nil, errors.New("gfxtest: pass already in progress")
	}
	c.inPass = true
	return &copyPass{cmd: c}, nil
}

func (c *commandBuffer) BeginRenderPass(targets []gfx.ColorTargetInfo) (gfx.RenderPass, error) {
	if c.done {
		return nil, gfx.ErrSubmitted
	}
	if err := c.device.backend.attempt(OpBeginRenderPass); err != nil {
		return nil, err
	}
	if c.inPass {
		return nil, errors.New("gfxtest: pass already in progress")
	}
	if len(targets) == 0 || targets[0].Texture == nil {
		return nil, errors.New("gfxtest: render pass without color target")
	}
	c.inPass = true
	c.passes = append(c.passes, Pass{
		Target:     targets[0].Texture,
		ClearColor: targets[0].ClearColor,
		LoadOp:     targets[0].LoadOp,
	})
	return &renderPass{cmd: c, pass: &c.passes[len(c.passes)-1]}, nil
}

func (c *commandBuffer) WaitAndAcquireSwapchainTexture(w gfx.Window) (gfx.Texture, error) {
	if c.done {
		return nil, gfx.ErrSubmitted
	}
	if err := c.device.backend.attempt(OpAcquireSwapchain); err != nil {
		return nil, err
	}
	if _, ok := c.device.claims[w]; !ok {
		return nil, gfx.ErrNotClaimed
	}
	width, height, err := w.Size()
	if err != nil {
		return nil, err
	}
	c.acquired = true
	if width <= 0 || height <= 0 {
		c.skipped = true
		return nil, nil
	}
	return &SwapchainTexture{
		backend: c.device.backend,
		width:   uint32(width),
		height:  uint32(height),
		format:  c.device.backend.SwapchainFormat,
	}, nil
}

func (c *commandBuffer) PushVertexUniformData(slot uint32, data []byte) {
	c.uniforms[slot] = append([]byte(nil), data...)
}

func (c *commandBuffer) Submit() error {
	if c.done {
		c.device.backend.misuse("submit of finished command buffer")
		return gfx.ErrSubmitted
	}
	c.done = true
	defer c.resource.Release()

	if c.inPass {
		c.device.backend.misuse("submit with an open pass")
	}
	if err := c.device.backend.attempt(OpSubmit); err != nil {
		return err
	}

	b := c.device.backend
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for _, op := range c.copies {
		data := op.src.data[op.offset : op.offset+op.size]
		if op.buffer != nil {
			copy(op.buffer.data[op.dstOff:], data)
		} else {
			copy(op.tex.data[op.dstOff:], data)
		}
	}
	if c.acquired {
		b.frames = append(b.frames, Frame{
			Skipped: c.skipped,
			Passes:  c.passes,
		})
	}
	return nil
}

func (c *commandBuffer) Cancel() {
	if c.done {
		c.device.backend.misuse("cancel of finished command buffer")
		return
	}
	if c.acquired {
		c.device.backend.misuse("cancel after swapchain acquisition")
	}
	c.done = true
	c.resource.Release()
}

type copyPass struct {
	cmd *commandBuffer
}

func (p *copyPass) UploadToBuffer(src gfx.TransferBufferLocation, dst gfx.BufferRegion, cycle bool) {
	tb, ok := src.TransferBuffer.(*transferBuffer)
	buf, ok2 := dst.Buffer.(*buffer)
	if !ok || !ok2 {
		p.cmd.device.backend.misuse("upload with foreign buffers")
		return
	}
	if src.Offset+dst.Size > tb.Size() || dst.Offset+dst.Size > buf.Size() {
		p.cmd.device.backend.misuse("upload out of bounds")
		return
	}
	if tb.mapped {
		p.cmd.device.backend.misuse("upload from mapped transfer buffer")
	}
	p.cmd.copies = append(p.cmd.copies, copyOp{
		src:    tb,
		offset: src.Offset,
		buffer: buf,
		dstOff: dst.Offset,
		size:   dst.Size,
	})
}

func (p *copyPass) UploadToTexture(src gfx.TextureTransferInfo, dst gfx.TextureRegion, cycle bool) {
	tb, ok := src.TransferBuffer.(*transferBuffer)
	tex, ok2 := dst.Texture.(*texture)
	if !ok || !ok2 {
		p.cmd.device.backend.misuse("texture upload with foreign handles")
		return
	}
	bpp := tex.format.BytesPerPixel()
	size := dst.W * dst.H * bpp
	if dst.X+dst.W > tex.width || dst.Y+dst.H > tex.height || src.Offset+size > tb.Size() {
		p.cmd.device.backend.misuse("texture upload out of bounds")
		return
	}
	if dst.X != 0 || dst.W != tex.width {
		// partial rows are not tracked
		p.cmd.device.backend.misuse("partial row texture upload")
		return
	}
	p.cmd.copies = append(p.cmd.copies, copyOp{
		src:    tb,
		offset: src.Offset,
		tex:    tex,
		dstOff: dst.Y * tex.width * bpp,
		size:   size,
	})
}

func (p *copyPass) End() {
	p.cmd.inPass = false
}

type renderPass struct {
	cmd      *commandBuffer
	pass     *Pass
	pipeline gfx.GraphicsPipeline
	vertex   []gfx.BufferBinding
	index    *gfx.BufferBinding
	size     gfx.IndexElementSize
}

func (p *renderPass) BindGraphicsPipeline(pipeline gfx.GraphicsPipeline) {
	p.pipeline = pipeline
}

func (p *renderPass) BindVertexBuffers(firstSlot uint32, bindings ...gfx.BufferBinding) {
	for len(p.vertex) < int(firstSlot)+len(bindings) {
		p.vertex = append(p.vertex, gfx.BufferBinding{})
	}
	copy(p.vertex[firstSlot:], bindings)
}

func (p *renderPass) BindIndexBuffer(binding gfx.BufferBinding, size gfx.IndexElementSize) {
	p.index = &binding
	p.size = size
}

func (p *renderPass) DrawPrimitives(numVertices, numInstances, firstVertex, firstInstance uint32) {
	p.draw(false, numVertices, numInstances)
}

func (p *renderPass) DrawIndexedPrimitives(numIndices, numInstances, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if p.index == nil {
		p.cmd.device.backend.misuse("indexed draw without index buffer")
	}
	p.draw(true, numIndices, numInstances)
}

func (p *renderPass) draw(indexed bool, count, instances uint32) {
	if p.pipeline == nil {
		p.cmd.device.backend.misuse("draw without pipeline")
	}
	d := Draw{
		Pipeline:      p.pipeline,
		VertexBuffers: append([]gfx.BufferBinding(nil), p.vertex...),
		IndexSize:     p.size,
		Indexed:       indexed,
		Count:         count,
		Instances:     instances,
		Uniform:       append([]byte(nil), p.cmd.uniforms[0]...),
	}
	if indexed && p.index != nil {
		binding := *p.index
		d.IndexBuffer = &binding
	}
	p.pass.Draws = append(p.pass.Draws, d)
}

func (p *renderPass) End() {
	p.cmd.inPass = false
}
