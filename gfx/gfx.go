// Package gfx defines the GPU features that rendering backends must implement.
// The shape follows an explicit GPU API: a device hands out buffers, transfer
// buffers, textures, shaders and pipelines, and all work is recorded into
// command buffers that are submitted once per operation.
package gfx

import "errors"

// package errors
var (
	ErrNotClaimed        = errors.New("window is not claimed by the device")
	ErrAlreadyClaimed    = errors.New("window is already claimed by a device")
	ErrUnsupportedFormat = errors.New("format is not supported by the backend")
	ErrSubmitted         = errors.New("command buffer was already submitted or cancelled")
)

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Window is the part of a window a renderer needs to know about.
type Window interface {

	// Size returns the current size of the window in screen coordinates.
	Size() (width, height int32, err error)
}

// Backend creates devices.
type Backend interface {

	// CreateDevice creates a device that consumes shaders of the given format.
	CreateDevice(format ShaderFormat, debug bool) (Device, error)
}

// Device is a GPU context. Every resource it creates must be released
// before the device is destroyed.
type Device interface {

	// ClaimWindow binds the window's swapchain to the device.
	ClaimWindow(Window) error

	// ReleaseWindow unbinds a previously claimed window.
	ReleaseWindow(Window)

	// SwapchainTextureFormat returns the color format of a claimed
	// window's swapchain, FormatInvalid if the window is not claimed.
	SwapchainTextureFormat(Window) TextureFormat

	CreateBuffer(BufferCreateInfo) (Buffer, error)
	CreateTransferBuffer(TransferBufferCreateInfo) (TransferBuffer, error)
	CreateTexture(TextureCreateInfo) (Texture, error)
	CreateShader(ShaderCreateInfo) (Shader, error)
	CreateGraphicsPipeline(GraphicsPipelineCreateInfo) (GraphicsPipeline, error)

	// AcquireCommandBuffer returns a command buffer ready for recording.
	// It must be either submitted or cancelled.
	AcquireCommandBuffer() (CommandBuffer, error)

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle() error

	// Destroy destroys the device.
	Destroy()
}

// Buffer is device local memory used as a vertex or index source.
type Buffer interface {
	Releasable
	Size() uint32
}

// TransferBuffer is host visible memory used to stage uploads.
type TransferBuffer interface {
	Releasable
	Size() uint32

	// Map returns the host view of the whole buffer. The slice is valid
	// until Unmap is called. With cycle set, the backend may hand out
	// fresh memory if the previous contents are still in flight.
	Map(cycle bool) ([]byte, error)

	// Unmap ends the host view.
	Unmap()
}

// Texture is an image on the GPU.
type Texture interface {
	Releasable
	Width() uint32
	Height() uint32
	Format() TextureFormat
}

// Shader is a compiled shader stage.
type Shader interface {
	Releasable
	Stage() ShaderStage
}

// GraphicsPipeline is the fixed configuration of shaders, vertex layout and
// output format used for drawing.
type GraphicsPipeline interface {
	Releasable
}

// CommandBuffer records GPU work.
type CommandBuffer interface {

	// BeginCopyPass starts recording transfer commands.
	BeginCopyPass() (CopyPass, error)

	// BeginRenderPass starts recording draw commands into the color targets.
	BeginRenderPass(targets []ColorTargetInfo) (RenderPass, error)

	// WaitAndAcquireSwapchainTexture blocks until the next swapchain image of
	// the window is available. A nil texture with a nil error means the
	// window currently has no drawable area and the frame should be skipped.
	WaitAndAcquireSwapchainTexture(Window) (Texture, error)

	// PushVertexUniformData sets the uniform data of a vertex shader slot
	// for all subsequent draws of this command buffer.
	PushVertexUniformData(slot uint32, data []byte)

	// Submit hands the recorded work to the GPU, presenting any acquired
	// swapchain image.
	Submit() error

	// Cancel drops the recorded work. It must not be called after a
	// swapchain texture was acquired.
	Cancel()
}

// CopyPass records uploads from transfer buffers.
type CopyPass interface {
	UploadToBuffer(src TransferBufferLocation, dst BufferRegion, cycle bool)
	UploadToTexture(src TextureTransferInfo, dst TextureRegion, cycle bool)
	End()
}

// RenderPass records draw commands.
type RenderPass interface {
	BindGraphicsPipeline(GraphicsPipeline)
	BindVertexBuffers(firstSlot uint32, bindings ...BufferBinding)
	BindIndexBuffer(binding BufferBinding, size IndexElementSize)
	DrawPrimitives(numVertices, numInstances, firstVertex, firstInstance uint32)
	DrawIndexedPrimitives(numIndices, numInstances, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	End()
}
