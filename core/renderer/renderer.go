// Package renderer draws one fixed primitive per frame through a gfx device.
package renderer

import (
	"errors"
	"fmt"
	"image"

	"github.com/devblok/ffp/assets"
	"github.com/devblok/ffp/gfx"
	"github.com/devblok/ffp/model"
	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

// package errors
var (
	ErrPrimitiveMismatch = errors.New("primitive does not match the vertex layout")
	ErrInvalidFov        = errors.New("field of view must be in (0, pi)")
	ErrWindowSize        = errors.New("window has no drawable area")
	ErrEmptyImage        = errors.New("image has no pixels")
	ErrDestroyed         = errors.New("renderer is destroyed")
)

// Uniform slot counts of the fixed shaders
const (
	vertexUniforms   = 1
	fragmentUniforms = 0
)

// uniformSize is the size of the projection matrix pushed each frame.
const uniformSize = 16 * 4

// Renderer owns a device, its claim on the window and every
// resource needed to draw one primitive.
type Renderer struct {
	device  gfx.Device
	window  gfx.Window
	claimed bool

	layout     model.Layout
	clearColor gfx.Color

	vertexBuffer gfx.Buffer
	indexBuffer  gfx.Buffer
	transfer     gfx.TransferBuffer
	pipeline     gfx.GraphicsPipeline
	textures     []gfx.Texture

	fov        float32
	projection glm.Mat4
}

// New acquires everything the renderer needs from the backend. On failure
// the resources acquired so far are released again.
func New(backend gfx.Backend, window gfx.Window, cfg Configuration) (*Renderer, error) {
	if !ValidFov(cfg.Fov) {
		return nil, ErrInvalidFov
	}
	if cfg.Layout.VertexCount == 0 {
		return nil, fmt.Errorf("layout %q: %w", cfg.Layout.Name, ErrPrimitiveMismatch)
	}
	src := cfg.Assets
	if src == nil {
		src = assets.Dir("")
	}

	device, err := backend.CreateDevice(gfx.ShaderFormatSPIRV, cfg.Debug)
	if err != nil {
		log.WithError(err).Error("failed to create device")
		return nil, fmt.Errorf("create device: %w", err)
	}

	r := &Renderer{
		device:     device,
		window:     window,
		layout:     cfg.Layout,
		clearColor: cfg.ClearColor,
		fov:        cfg.Fov,
		projection: glm.Ident4(),
	}
	if err := r.init(src, cfg); err != nil {
		r.Destroy()
		return nil, err
	}

	log.WithFields(log.Fields{
		"layout": r.layout.Name,
		"fov":    r.fov,
	}).Debug("renderer created")
	return r, nil
}

func (r *Renderer) init(src assets.Source, cfg Configuration) error {
	if err := r.device.ClaimWindow(r.window); err != nil {
		log.WithError(err).Error("failed to claim window")
		return fmt.Errorf("claim window: %w", err)
	}
	r.claimed = true

	var err error
	r.vertexBuffer, err = r.device.CreateBuffer(gfx.BufferCreateInfo{
		Usage: gfx.BufferUsageVertex,
		Size:  r.layout.VertexBufferSize(),
	})
	if err != nil {
		log.WithError(err).Error("failed to create vertex buffer")
		return fmt.Errorf("create vertex buffer: %w", err)
	}

	if r.layout.Indexed() {
		r.indexBuffer, err = r.device.CreateBuffer(gfx.BufferCreateInfo{
			Usage: gfx.BufferUsageIndex,
			Size:  r.layout.IndexBufferSize(),
		})
		if err != nil {
			log.WithError(err).Error("failed to create index buffer")
			return fmt.Errorf("create index buffer: %w", err)
		}
	}

	r.transfer, err = r.device.CreateTransferBuffer(gfx.TransferBufferCreateInfo{
		Size: r.layout.VertexBufferSize() + r.layout.IndexBufferSize(),
	})
	if err != nil {
		log.WithError(err).Error("failed to create transfer buffer")
		return fmt.Errorf("create transfer buffer: %w", err)
	}

	vertexShader, err := r.createShader(src, cfg.VertexShader, gfx.VertexStage, vertexUniforms)
	if err != nil {
		return err
	}
	defer vertexShader.Release()

	fragmentShader, err := r.createShader(src, cfg.FragmentShader, gfx.FragmentStage, fragmentUniforms)
	if err != nil {
		return err
	}
	defer fragmentShader.Release()

	r.pipeline, err = r.device.CreateGraphicsPipeline(gfx.GraphicsPipelineCreateInfo{
		VertexShader:   vertexShader,
		FragmentShader: fragmentShader,
		VertexBuffers: []gfx.VertexBufferDescription{
			{Slot: 0, Pitch: r.layout.Stride},
		},
		VertexAttributes: r.layout.VertexAttributes(),
		ColorTargets: []gfx.ColorTargetDescription{
			{Format: r.device.SwapchainTextureFormat(r.window)},
		},
		VertexUniformSize: uniformSize,
	})
	if err != nil {
		log.WithError(err).Error("failed to create pipeline")
		return fmt.Errorf("create pipeline: %w", err)
	}
	return nil
}

func (r *Renderer) createShader(src assets.Source, path string, stage gfx.ShaderStage, uniforms uint32) (gfx.Shader, error) {
	info, err := assets.LoadShader(src, path, uniforms)
	if err != nil {
		log.WithError(err).WithField("shader", path).Error("failed to load shader")
		return nil, fmt.Errorf("load shader: %w", err)
	}
	if info.Stage != stage {
		log.WithField("shader", path).Errorf("expected a %s shader, got %s", stage, info.Stage)
		return nil, fmt.Errorf("%s: %w", path, assets.ErrShaderStage)
	}

	shader, err := r.device.CreateShader(info)
	if err != nil {
		log.WithError(err).WithField("shader", path).Error("failed to create shader")
		return nil, fmt.Errorf("create %s shader: %w", stage, err)
	}
	return shader, nil
}

// Fov returns the field of view in radians.
func (r *Renderer) Fov() float32 {
	return r.fov
}

// SetFov sets the field of view used from the next Draw on.
func (r *Renderer) SetFov(fov float32) {
	r.fov = fov
}

// Projection returns the matrix computed by the last Draw.
func (r *Renderer) Projection() glm.Mat4 {
	return r.projection
}

// Layout returns the vertex layout the renderer was created with.
func (r *Renderer) Layout() model.Layout {
	return r.layout
}

// Upload copies the vertices of p, and the index list of an indexed
// layout, into device memory.
func (r *Renderer) Upload(p model.Primitive) error {
	if r.device == nil {
		return ErrDestroyed
	}
	vertices := p.Vertices()
	if uint32(len(vertices)) != r.layout.VertexCount {
		return fmt.Errorf("%d vertices for layout %q: %w", len(vertices), r.layout.Name, ErrPrimitiveMismatch)
	}

	data, err := r.transfer.Map(true)
	if err != nil {
		log.WithError(err).Error("failed to map transfer buffer")
		return fmt.Errorf("map transfer buffer: %w", err)
	}
	n := copy(data, model.EncodeVertices(vertices))
	if r.layout.Indexed() {
		copy(data[n:], model.EncodeIndices(r.layout.Indices))
	}
	r.transfer.Unmap()

	cmd, err := r.device.AcquireCommandBuffer()
	if err != nil {
		log.WithError(err).Error("failed to acquire command buffer")
		return fmt.Errorf("acquire command buffer: %w", err)
	}
	pass, err := cmd.BeginCopyPass()
	if err != nil {
		cmd.Cancel()
		return fmt.Errorf("begin copy pass: %w", err)
	}
	pass.UploadToBuffer(
		gfx.TransferBufferLocation{TransferBuffer: r.transfer},
		gfx.BufferRegion{Buffer: r.vertexBuffer, Size: r.layout.VertexBufferSize()},
		false,
	)
	if r.layout.Indexed() {
		pass.UploadToBuffer(
			gfx.TransferBufferLocation{TransferBuffer: r.transfer, Offset: r.layout.VertexBufferSize()},
			gfx.BufferRegion{Buffer: r.indexBuffer, Size: r.layout.IndexBufferSize()},
			false,
		)
	}
	pass.End()

	if err := cmd.Submit(); err != nil {
		log.WithError(err).Error("failed to submit command buffer")
		return fmt.Errorf("submit upload: %w", err)
	}
	return nil
}

// UploadImage creates a sampler texture holding img. The texture
// belongs to the renderer and is released by Destroy.
func (r *Renderer) UploadImage(img image.Image) (gfx.Texture, error) {
	if r.device == nil {
		return nil, ErrDestroyed
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, ErrEmptyImage
	}
	width, height := uint32(bounds.Dx()), uint32(bounds.Dy())
	pixels := assets.Pixels(img)

	texture, err := r.device.CreateTexture(gfx.TextureCreateInfo{
		Format: gfx.FormatR8G8B8A8Unorm,
		Usage:  gfx.TextureUsageSampler,
		Width:  width,
		Height: height,
	})
	if err != nil {
		log.WithError(err).Error("failed to create texture")
		return nil, fmt.Errorf("create texture: %w", err)
	}
	if err := r.uploadPixels(texture, pixels); err != nil {
		texture.Release()
		return nil, err
	}

	r.textures = append(r.textures, texture)
	return texture, nil
}

func (r *Renderer) uploadPixels(texture gfx.Texture, pixels []byte) error {
	staging, err := r.device.CreateTransferBuffer(gfx.TransferBufferCreateInfo{
		Size: uint32(len(pixels)),
	})
	if err != nil {
		log.WithError(err).Error("failed to create texture transfer buffer")
		return fmt.Errorf("create texture transfer buffer: %w", err)
	}
	defer staging.Release()

	data, err := staging.Map(false)
	if err != nil {
		log.WithError(err).Error("failed to map texture transfer buffer")
		return fmt.Errorf("map texture transfer buffer: %w", err)
	}
	copy(data, pixels)
	staging.Unmap()

	cmd, err := r.device.AcquireCommandBuffer()
	if err != nil {
		log.WithError(err).Error("failed to acquire command buffer")
		return fmt.Errorf("acquire command buffer: %w", err)
	}
	pass, err := cmd.BeginCopyPass()
	if err != nil {
		cmd.Cancel()
		return fmt.Errorf("begin copy pass: %w", err)
	}
	pass.UploadToTexture(
		gfx.TextureTransferInfo{TransferBuffer: staging},
		gfx.TextureRegion{Texture: texture, W: texture.Width(), H: texture.Height()},
		false,
	)
	pass.End()

	if err := cmd.Submit(); err != nil {
		log.WithError(err).Error("failed to submit command buffer")
		return fmt.Errorf("submit texture upload: %w", err)
	}
	return nil
}

// updateProjection recomputes the projection matrix. A window without
// area or an invalid field of view keeps the previous matrix.
func (r *Renderer) updateProjection() error {
	width, height, err := r.window.Size()
	if err != nil {
		log.WithError(err).Error("failed to query window size")
		return fmt.Errorf("window size: %w", err)
	}
	m, err := Perspective(r.fov, width, height)
	if err != nil {
		if err != ErrWindowSize {
			log.WithError(err).WithField("fov", r.fov).Warn("keeping projection")
		}
		return nil
	}
	r.projection = m
	return nil
}

// Draw renders one frame. A window without drawable area skips the frame.
func (r *Renderer) Draw() error {
	if r.device == nil {
		return ErrDestroyed
	}
	if err := r.updateProjection(); err != nil {
		return err
	}

	cmd, err := r.device.AcquireCommandBuffer()
	if err != nil {
		log.WithError(err).Error("failed to acquire command buffer")
		return fmt.Errorf("acquire command buffer: %w", err)
	}

	target, err := cmd.WaitAndAcquireSwapchainTexture(r.window)
	if err != nil {
		log.WithError(err).Error("failed to acquire swapchain texture")
		cmd.Cancel()
		return fmt.Errorf("acquire swapchain texture: %w", err)
	}
	if target == nil {
		return r.submit(cmd)
	}

	cmd.PushVertexUniformData(0, uniformBytes(r.projection))

	pass, err := cmd.BeginRenderPass([]gfx.ColorTargetInfo{{
		Texture:    target,
		ClearColor: r.clearColor,
		LoadOp:     gfx.LoadOpClear,
	}})
	if err != nil {
		log.WithError(err).Error("failed to begin render pass")
		// an acquired swapchain image has to be presented
		r.submit(cmd)
		return fmt.Errorf("begin render pass: %w", err)
	}

	pass.BindGraphicsPipeline(r.pipeline)
	pass.BindVertexBuffers(0, gfx.BufferBinding{Buffer: r.vertexBuffer})
	if r.layout.Indexed() {
		pass.BindIndexBuffer(gfx.BufferBinding{Buffer: r.indexBuffer}, gfx.IndexElementSize16Bit)
		pass.DrawIndexedPrimitives(r.layout.DrawCount(), 1, 0, 0, 0)
	} else {
		pass.DrawPrimitives(r.layout.DrawCount(), 1, 0, 0)
	}
	pass.End()

	return r.submit(cmd)
}

func (r *Renderer) submit(cmd gfx.CommandBuffer) error {
	if err := cmd.Submit(); err != nil {
		log.WithError(err).Error("failed to submit command buffer")
		return fmt.Errorf("submit frame: %w", err)
	}
	return nil
}

// Destroy releases everything in reverse order of acquisition.
// It is safe to call more than once.
func (r *Renderer) Destroy() {
	if r.device == nil {
		return
	}
	if err := r.device.WaitIdle(); err != nil {
		log.WithError(err).Warn("device did not become idle")
	}

	for i := len(r.textures) - 1; i >= 0; i-- {
		r.textures[i].Release()
	}
	r.textures = nil
	if r.pipeline != nil {
		r.pipeline.Release()
		r.pipeline = nil
	}
	if r.transfer != nil {
		r.transfer.Release()
		r.transfer = nil
	}
	if r.indexBuffer != nil {
		r.indexBuffer.Release()
		r.indexBuffer = nil
	}
	if r.vertexBuffer != nil {
		r.vertexBuffer.Release()
		r.vertexBuffer = nil
	}
	if r.claimed {
		r.device.ReleaseWindow(r.window)
		r.claimed = false
	}
	r.device.Destroy()
	r.device = nil
	log.Debug("renderer destroyed")
}
