package gfxtest

import (
	"errors"

	"github.com/devblok/ffp/gfx"
)

type device struct {
	*resource
	backend *Backend
	format  gfx.ShaderFormat
	claims  map[gfx.Window]*resource
}

func (d *device) ClaimWindow(w gfx.Window) error {
	if err := d.backend.attempt(OpClaimWindow); err != nil {
		return err
	}
	if _, ok := d.claims[w]; ok {
		return gfx.ErrAlreadyClaimed
	}
	d.claims[w] = d.backend.acquire("window claim")
	return nil
}

func (d *device) ReleaseWindow(w gfx.Window) {
	claim, ok := d.claims[w]
	if !ok {
		d.backend.misuse("release of unclaimed window")
		return
	}
	delete(d.claims, w)
	claim.Release()
}

func (d *device) SwapchainTextureFormat(w gfx.Window) gfx.TextureFormat {
	if _, ok := d.claims[w]; !ok {
		return gfx.FormatInvalid
	}
	return d.backend.SwapchainFormat
}

func (d *device) CreateBuffer(info gfx.BufferCreateInfo) (gfx.Buffer, error) {
	if err := d.backend.attempt(OpCreateBuffer); err != nil {
		return nil, err
	}
	if info.Size == 0 {
		return nil, errors.New("gfxtest: zero sized buffer")
	}
	return &buffer{
		resource: d.backend.acquire("buffer"),
		usage:    info.Usage,
		data:     make([]byte, info.Size),
	}, nil
}

func (d *device) CreateTransferBuffer(info gfx.TransferBufferCreateInfo) (gfx.TransferBuffer, error) {
	if err := d.backend.attempt(OpCreateTransferBuffer); err != nil {
		return nil, err
	}
	if info.Size == 0 {
		return nil, errors.New("gfxtest: zero sized transfer buffer")
	}
	return &transferBuffer{
		resource: d.backend.acquire("transfer buffer"),
		data:     make([]byte, info.Size),
	}, nil
}

func (d *device) CreateTexture(info gfx.TextureCreateInfo) (gfx.Texture, error) {
	if err := d.backend.attempt(OpCreateTexture); err != nil {
		return nil, err
	}
	bpp := info.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, gfx.ErrUnsupportedFormat
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, errors.New("gfxtest: zero sized texture")
	}
	return &texture{
		resource: d.backend.acquire("texture"),
		width:    info.Width,
		height:   info.Height,
		format:   info.Format,
		data:     make([]byte, info.Width*info.Height*bpp),
	}, nil
}

func (d *device) CreateShader(info gfx.ShaderCreateInfo) (gfx.Shader, error) {
	if err := d.backend.attempt(OpCreateShader); err != nil {
		return nil, err
	}
	if info.Format != d.format {
		return nil, gfx.ErrUnsupportedFormat
	}
	if len(info.Code) == 0 {
		return nil, errors.New("gfxtest: empty shader code")
	}
	return &shader{
		resource: d.backend.acquire("shader"),
		stage:    info.Stage,
		uniforms: info.NumUniformBuffers,
	}, nil
}

func (d *device) CreateGraphicsPipeline(info gfx.GraphicsPipelineCreateInfo) (gfx.GraphicsPipeline, error) {
	if err := d.backend.attempt(OpCreatePipeline); err != nil {
		return nil, err
	}
	vs, ok := info.VertexShader.(*shader)
	if !ok || vs.isReleased() || vs.stage != gfx.VertexStage {
		return nil, errors.New("gfxtest: invalid vertex shader")
	}
	fs, ok := info.FragmentShader.(*shader)
	if !ok || fs.isReleased() || fs.stage != gfx.FragmentStage {
		return nil, errors.New("gfxtest: invalid fragment shader")
	}
	if len(info.ColorTargets) == 0 || info.ColorTargets[0].Format == gfx.FormatInvalid {
		return nil, gfx.ErrUnsupportedFormat
	}
	return &Pipeline{
		resource: d.backend.acquire("pipeline"),
		Info:     info,
	}, nil
}

func (d *device) AcquireCommandBuffer() (gfx.CommandBuffer, error) {
	if err := d.backend.attempt(OpAcquireCommandBuffer); err != nil {
		return nil, err
	}
	return &commandBuffer{
		resource: d.backend.acquire("command buffer"),
		device:   d,
		uniforms: make(map[uint32][]byte),
	}, nil
}

func (d *device) WaitIdle() error {
	return nil
}

func (d *device) Destroy() {
	if len(d.claims) > 0 {
		d.backend.misuse("device destroyed with %d claimed windows", len(d.claims))
	}
	d.resource.Release()
}

type buffer struct {
	*resource
	usage gfx.BufferUsage
	data  []byte
}

func (b *buffer) Size() uint32 {
	return uint32(len(b.data))
}

type transferBuffer struct {
	*resource
	data   []byte
	mapped bool
}

func (t *transferBuffer) Size() uint32 {
	return uint32(len(t.data))
}

func (t *transferBuffer) Map(cycle bool) ([]byte, error) {
	if err := t.backend.attempt(OpMap); err != nil {
		return nil, err
	}
	if t.mapped {
		return nil, errors.New("gfxtest: transfer buffer already mapped")
	}
	t.mapped = true
	return t.data, nil
}

func (t *transferBuffer) Unmap() {
	if !t.mapped {
		t.backend.misuse("unmap of unmapped transfer buffer")
	}
	t.mapped = false
}

type texture struct {
	*resource
	width, height uint32
	format        gfx.TextureFormat
	data          []byte
}

func (t *texture) Width() uint32             { return t.width }
func (t *texture) Height() uint32            { return t.height }
func (t *texture) Format() gfx.TextureFormat { return t.format }

// SwapchainTexture is the texture handed out for a claimed window. It is
// owned by the window and must not be released.
type SwapchainTexture struct {
	backend       *Backend
	width, height uint32
	format        gfx.TextureFormat
}

func (t *SwapchainTexture) Width() uint32             { return t.width }
func (t *SwapchainTexture) Height() uint32            { return t.height }
func (t *SwapchainTexture) Format() gfx.TextureFormat { return t.format }

// Release implements gfx.Releasable, swapchain textures cannot be released.
func (t *SwapchainTexture) Release() {
	t.backend.misuse("release of swapchain texture")
}

type shader struct {
	*resource
	stage    gfx.ShaderStage
	uniforms uint32
}

func (s *shader) Stage() gfx.ShaderStage {
	return s.stage
}

// Pipeline is the pipeline type created by the backend, exported so that
// tests can inspect how it was described.
type Pipeline struct {
	*resource
	Info gfx.GraphicsPipelineCreateInfo
}
