package device

import (
	"errors"
	"fmt"

	vk "github.com/devblok/vulkan"
	"github.com/devblok/ffp/gfx"
	log "github.com/sirupsen/logrus"
)

// package errors
var (
	ErrZeroSize      = errors.New("resource size must not be zero")
	ErrMapped        = errors.New("transfer buffer is already mapped")
	ErrShaderStage   = errors.New("shader does not match the pipeline stage")
	ErrForeignObject = errors.New("object was not created by a vulkan device")
)

func (d *Device) createBuffer(size uint32, usage vk.BufferUsageFlagBits, prop vk.MemoryPropertyFlagBits) (vk.Buffer, *Memory, error) {
	if size == 0 {
		return vk.NullBuffer, nil, ErrZeroSize
	}

	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	if err := vk.Error(vk.CreateBuffer(d.logicalDevice, &bci, nil, &buffer)); err != nil {
		return vk.NullBuffer, nil, fmt.Errorf("vk.CreateBuffer(): %s", err)
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.logicalDevice, buffer, &req)
	memory, err := d.allocator.Malloc(req, prop)
	if err != nil {
		vk.DestroyBuffer(d.logicalDevice, buffer, nil)
		return vk.NullBuffer, nil, err
	}

	if err := vk.Error(vk.BindBufferMemory(d.logicalDevice, buffer, memory.memory, 0)); err != nil {
		memory.Release()
		vk.DestroyBuffer(d.logicalDevice, buffer, nil)
		return vk.NullBuffer, nil, fmt.Errorf("vk.BindBufferMemory(): %s", err)
	}
	return buffer, memory, nil
}

// buffer is device local storage of vertices or indices.
type buffer struct {
	device *Device
	buffer vk.Buffer
	memory *Memory
	size   uint32
}

// CreateBuffer implements gfx.Device
func (d *Device) CreateBuffer(info gfx.BufferCreateInfo) (gfx.Buffer, error) {
	usage := vk.BufferUsageTransferDstBit
	if info.Usage&gfx.BufferUsageVertex != 0 {
		usage |= vk.BufferUsageVertexBufferBit
	}
	if info.Usage&gfx.BufferUsageIndex != 0 {
		usage |= vk.BufferUsageIndexBufferBit
	}

	buf, mem, err := d.createBuffer(info.Size, usage, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}
	return &buffer{
		device: d,
		buffer: buf,
		memory: mem,
		size:   info.Size,
	}, nil
}

func (b *buffer) Size() uint32 {
	return b.size
}

func (b *buffer) Release() {
	if b.buffer == vk.NullBuffer {
		return
	}
	vk.DestroyBuffer(b.device.logicalDevice, b.buffer, nil)
	b.memory.Release()
	b.buffer = vk.NullBuffer
}

// transferBuffer is host visible staging memory.
type transferBuffer struct {
	device *Device
	buffer vk.Buffer
	memory *Memory
	size   uint32
	mapped bool
}

// CreateTransferBuffer implements gfx.Device
func (d *Device) CreateTransferBuffer(info gfx.TransferBufferCreateInfo) (gfx.TransferBuffer, error) {
	buf, mem, err := d.createBuffer(info.Size, vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	return &transferBuffer{
		device: d,
		buffer: buf,
		memory: mem,
		size:   info.Size,
	}, nil
}

func (t *transferBuffer) Size() uint32 {
	return t.size
}

// Map implements gfx.TransferBuffer. Submissions complete before Submit
// returns, so the memory is never in flight and cycle has no effect.
func (t *transferBuffer) Map(cycle bool) ([]byte, error) {
	if t.mapped {
		return nil, ErrMapped
	}
	data, err := t.memory.Map()
	if err != nil {
		return nil, err
	}
	t.mapped = true
	return data[:t.size:t.size], nil
}

func (t *transferBuffer) Unmap() {
	if !t.mapped {
		log.Warn("unmap of a transfer buffer that is not mapped")
		return
	}
	t.memory.Unmap()
	t.mapped = false
}

func (t *transferBuffer) Release() {
	if t.buffer == vk.NullBuffer {
		return
	}
	vk.DestroyBuffer(t.device.logicalDevice, t.buffer, nil)
	t.memory.Release()
	t.buffer = vk.NullBuffer
}

// texture is a device local optimal tiling image.
type texture struct {
	device *Device
	image  vk.Image
	memory *Memory
	info   gfx.TextureCreateInfo
	layout vk.ImageLayout
}

// CreateTexture implements gfx.Device
func (d *Device) CreateTexture(info gfx.TextureCreateInfo) (gfx.Texture, error) {
	if info.Width == 0 || info.Height == 0 {
		return nil, ErrZeroSize
	}
	format := vulkanFormat(info.Format)
	if format == vk.FormatUndefined {
		return nil, gfx.ErrUnsupportedFormat
	}

	usage := vk.ImageUsageTransferDstBit
	if info.Usage&gfx.TextureUsageSampler != 0 {
		usage |= vk.ImageUsageSampledBit
	}
	if info.Usage&gfx.TextureUsageColorTarget != 0 {
		usage |= vk.ImageUsageColorAttachmentBit
	}

	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var image vk.Image
	if err := vk.Error(vk.CreateImage(d.logicalDevice, &ici, nil, &image)); err != nil {
		return nil, fmt.Errorf("vk.CreateImage(): %s", err)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.logicalDevice, image, &req)
	memory, err := d.allocator.Malloc(req, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(d.logicalDevice, image, nil)
		return nil, err
	}
	if err := vk.Error(vk.BindImageMemory(d.logicalDevice, image, memory.memory, 0)); err != nil {
		memory.Release()
		vk.DestroyImage(d.logicalDevice, image, nil)
		return nil, fmt.Errorf("vk.BindImageMemory(): %s", err)
	}

	return &texture{
		device: d,
		image:  image,
		memory: memory,
		info:   info,
		layout: vk.ImageLayoutUndefined,
	}, nil
}

func (t *texture) Width() uint32             { return t.info.Width }
func (t *texture) Height() uint32            { return t.info.Height }
func (t *texture) Format() gfx.TextureFormat { return t.info.Format }

func (t *texture) Release() {
	if t.image == vk.NullImage {
		return
	}
	vk.DestroyImage(t.device.logicalDevice, t.image, nil)
	t.memory.Release()
	t.image = vk.NullImage
}

type shader struct {
	device     *Device
	module     vk.ShaderModule
	stage      gfx.ShaderStage
	entryPoint string
	uniforms   uint32
}

// CreateShader implements gfx.Device
func (d *Device) CreateShader(info gfx.ShaderCreateInfo) (gfx.Shader, error) {
	if info.Format != gfx.ShaderFormatSPIRV {
		return nil, gfx.ErrUnsupportedFormat
	}
	if len(info.Code) == 0 || len(info.Code)%4 != 0 {
		return nil, fmt.Errorf("shader code of %d bytes is not SPIR-V", len(info.Code))
	}

	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(info.Code)),
		PCode:    SliceUint32(info.Code),
	}

	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(d.logicalDevice, &smci, nil, &module)); err != nil {
		return nil, fmt.Errorf("vk.CreateShaderModule(%s): %s", info.Stage, err)
	}

	entryPoint := info.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}
	return &shader{
		device:     d,
		module:     module,
		stage:      info.Stage,
		entryPoint: entryPoint,
		uniforms:   info.NumUniformBuffers,
	}, nil
}

func (s *shader) Stage() gfx.ShaderStage {
	return s.stage
}

func (s *shader) Release() {
	if s.module == nil {
		return
	}
	vk.DestroyShaderModule(s.device.logicalDevice, s.module, nil)
	s.module = nil
}

func (s *shader) stageInfo() vk.PipelineShaderStageCreateInfo {
	stage := vk.ShaderStageVertexBit
	if s.stage == gfx.FragmentStage {
		stage = vk.ShaderStageFragmentBit
	}
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: s.module,
		PName:  safeString(s.entryPoint),
	}
}

// pipeline is a graphics pipeline whose vertex uniform slots are push
// constant ranges of uniformSize bytes each.
type pipeline struct {
	device      *Device
	pipeline    vk.Pipeline
	layout      vk.PipelineLayout
	uniformSize uint32
	pushSize    uint32
}

func vertexFormat(f gfx.VertexElementFormat) vk.Format {
	switch f {
	case gfx.VertexElementFloat2:
		return vk.FormatR32g32Sfloat
	case gfx.VertexElementFloat3:
		return vk.FormatR32g32b32Sfloat
	case gfx.VertexElementFloat4:
		return vk.FormatR32g32b32a32Sfloat
	}
	return vk.FormatUndefined
}

// CreateGraphicsPipeline implements gfx.Device
func (d *Device) CreateGraphicsPipeline(info gfx.GraphicsPipelineCreateInfo) (gfx.GraphicsPipeline, error) {
	vs, ok := info.VertexShader.(*shader)
	if !ok {
		return nil, ErrForeignObject
	}
	fs, ok := info.FragmentShader.(*shader)
	if !ok {
		return nil, ErrForeignObject
	}
	if vs.stage != gfx.VertexStage || fs.stage != gfx.FragmentStage {
		return nil, ErrShaderStage
	}
	if len(info.ColorTargets) != 1 {
		return nil, fmt.Errorf("%d color targets: %w", len(info.ColorTargets), gfx.ErrUnsupportedFormat)
	}
	colorFormat := vulkanFormat(info.ColorTargets[0].Format)
	if colorFormat == vk.FormatUndefined {
		return nil, gfx.ErrUnsupportedFormat
	}

	bindings := make([]vk.VertexInputBindingDescription, len(info.VertexBuffers))
	for idx, vb := range info.VertexBuffers {
		bindings[idx] = vk.VertexInputBindingDescription{
			Binding:   vb.Slot,
			Stride:    vb.Pitch,
			InputRate: vk.VertexInputRateVertex,
		}
	}
	attributes := make([]vk.VertexInputAttributeDescription, len(info.VertexAttributes))
	for idx, attr := range info.VertexAttributes {
		format := vertexFormat(attr.Format)
		if format == vk.FormatUndefined {
			return nil, fmt.Errorf("vertex attribute %d: %w", attr.Location, gfx.ErrUnsupportedFormat)
		}
		attributes[idx] = vk.VertexInputAttributeDescription{
			Location: attr.Location,
			Binding:  attr.BufferSlot,
			Format:   format,
			Offset:   attr.Offset,
		}
	}

	p := &pipeline{
		device:      d,
		uniformSize: info.VertexUniformSize,
		pushSize:    info.VertexUniformSize * vs.uniforms,
	}

	plci := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	if p.pushSize > 0 {
		plci.PushConstantRangeCount = 1
		plci.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
			Offset:     0,
			Size:       p.pushSize,
		}}
	}
	if err := vk.Error(vk.CreatePipelineLayout(d.logicalDevice, &plci, nil, &p.layout)); err != nil {
		return nil, fmt.Errorf("vk.CreatePipelineLayout(): %s", err)
	}

	renderPass, err := d.renderPass(colorFormat, gfx.LoadOpClear)
	if err != nil {
		vk.DestroyPipelineLayout(d.logicalDevice, p.layout, nil)
		return nil, err
	}

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: 2,
		PStages:    []vk.PipelineShaderStageCreateInfo{vs.stageInfo(), fs.stageInfo()},
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeNone),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: 0xF,
				BlendEnable:    vk.False,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateScissor,
				vk.DynamicStateViewport,
			},
		},
		Layout:     p.layout,
		RenderPass: renderPass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := vk.Error(vk.CreateGraphicsPipelines(d.logicalDevice, vk.PipelineCache(vk.NullHandle), uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		vk.DestroyPipelineLayout(d.logicalDevice, p.layout, nil)
		return nil, fmt.Errorf("vk.CreateGraphicsPipelines(): %s", err)
	}
	p.pipeline = pipelines[0]
	return p, nil
}

func (p *pipeline) Release() {
	if p.pipeline == nil {
		return
	}
	vk.DestroyPipeline(p.device.logicalDevice, p.pipeline, nil)
	vk.DestroyPipelineLayout(p.device.logicalDevice, p.layout, nil)
	p.pipeline = nil
}

type renderPassKey struct {
	format vk.Format
	loadOp gfx.LoadOp
}

// renderPass returns the single subpass render pass that draws into a
// presentable image of the given format. Passes are cached per device.
func (d *Device) renderPass(format vk.Format, loadOp gfx.LoadOp) (vk.RenderPass, error) {
	key := renderPassKey{format, loadOp}
	if rp, ok := d.renderPasses[key]; ok {
		return rp, nil
	}

	var load vk.AttachmentLoadOp
	switch loadOp {
	case gfx.LoadOpClear:
		load = vk.AttachmentLoadOpClear
	case gfx.LoadOpDontCare:
		load = vk.AttachmentLoadOpDontCare
	default:
		return nil, fmt.Errorf("load op %d: %w", loadOp, gfx.ErrUnsupportedFormat)
	}

	attachments := []vk.AttachmentDescription{{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         load,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorAttachmentRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpassDependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorAttachmentRef)),
		PColorAttachments:    colorAttachmentRef,
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{subpassDependency},
	}

	var rp vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(d.logicalDevice, &rpci, nil, &rp)); err != nil {
		return nil, fmt.Errorf("vk.CreateRenderPass(): %s", err)
	}
	d.renderPasses[key] = rp
	return rp, nil
}
