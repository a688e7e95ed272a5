package gfx

// ShaderFormat identifies shader bytecode formats.
type ShaderFormat uint32

// Supported shader formats
const (
	ShaderFormatInvalid ShaderFormat = 0
	ShaderFormatSPIRV   ShaderFormat = 1
)

// ShaderStage identifies the pipeline stage a shader runs at.
type ShaderStage int

// Shader stages
const (
	VertexStage ShaderStage = iota
	FragmentStage
)

func (s ShaderStage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	}
	return "unknown"
}

// BufferUsage tells how a Buffer will be bound.
type BufferUsage uint32

// Buffer usages
const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
)

// TextureUsage tells how a Texture will be used.
type TextureUsage uint32

// Texture usages
const (
	TextureUsageSampler TextureUsage = 1 << iota
	TextureUsageColorTarget
)

// TextureFormat is the pixel format of a texture.
type TextureFormat int

// Texture formats
const (
	FormatInvalid TextureFormat = iota
	FormatR8G8B8A8Unorm
	FormatB8G8R8A8Unorm
	FormatR8G8B8A8UnormSRGB
	FormatB8G8R8A8UnormSRGB
)

// BytesPerPixel returns the size of one texel, 0 for unknown formats.
func (f TextureFormat) BytesPerPixel() uint32 {
	switch f {
	case FormatR8G8B8A8Unorm, FormatB8G8R8A8Unorm, FormatR8G8B8A8UnormSRGB, FormatB8G8R8A8UnormSRGB:
		return 4
	}
	return 0
}

// VertexElementFormat is the type of a vertex attribute.
type VertexElementFormat int

// Vertex element formats
const (
	VertexElementInvalid VertexElementFormat = iota
	VertexElementFloat2
	VertexElementFloat3
	VertexElementFloat4
)

// Size returns the size of the element in bytes.
func (f VertexElementFormat) Size() uint32 {
	switch f {
	case VertexElementFloat2:
		return 8
	case VertexElementFloat3:
		return 12
	case VertexElementFloat4:
		return 16
	}
	return 0
}

// IndexElementSize is the width of one index.
type IndexElementSize int

// Index sizes
const (
	IndexElementSize16Bit IndexElementSize = iota
	IndexElementSize32Bit
)

// LoadOp is what happens to a color target when a render pass begins.
type LoadOp int

// Load operations
const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

// Color is a floating point RGBA color.
type Color struct {
	R, G, B, A float32
}

// BufferCreateInfo describes a Buffer.
type BufferCreateInfo struct {
	Usage BufferUsage
	Size  uint32
}

// TransferBufferCreateInfo describes an upload TransferBuffer.
type TransferBufferCreateInfo struct {
	Size uint32
}

// TextureCreateInfo describes a 2D Texture.
type TextureCreateInfo struct {
	Format TextureFormat
	Usage  TextureUsage
	Width  uint32
	Height uint32
}

// ShaderCreateInfo describes a Shader.
type ShaderCreateInfo struct {
	Code       []byte
	EntryPoint string
	Format     ShaderFormat
	Stage      ShaderStage

	// NumUniformBuffers is the number of uniform slots the stage reads.
	NumUniformBuffers uint32
}

// VertexBufferDescription describes one bound vertex buffer.
type VertexBufferDescription struct {
	Slot  uint32
	Pitch uint32
}

// VertexAttribute describes one shader input.
type VertexAttribute struct {
	Location   uint32
	BufferSlot uint32
	Format     VertexElementFormat
	Offset     uint32
}

// ColorTargetDescription describes one pipeline output.
type ColorTargetDescription struct {
	Format TextureFormat
}

// GraphicsPipelineCreateInfo describes a GraphicsPipeline.
type GraphicsPipelineCreateInfo struct {
	VertexShader   Shader
	FragmentShader Shader

	VertexBuffers    []VertexBufferDescription
	VertexAttributes []VertexAttribute
	ColorTargets     []ColorTargetDescription

	// VertexUniformSize is the size of one vertex uniform slot in bytes.
	VertexUniformSize uint32
}

// TransferBufferLocation is a position in a TransferBuffer.
type TransferBufferLocation struct {
	TransferBuffer TransferBuffer
	Offset         uint32
}

// BufferRegion is a range of a Buffer.
type BufferRegion struct {
	Buffer Buffer
	Offset uint32
	Size   uint32
}

// BufferBinding binds a Buffer at an offset.
type BufferBinding struct {
	Buffer Buffer
	Offset uint32
}

// TextureTransferInfo is the source of a texture upload.
type TextureTransferInfo struct {
	TransferBuffer TransferBuffer
	Offset         uint32
}

// TextureRegion is an area of a Texture.
type TextureRegion struct {
	Texture Texture
	X, Y    uint32
	W, H    uint32
}

// ColorTargetInfo is a color attachment of a render pass.
type ColorTargetInfo struct {
	Texture    Texture
	ClearColor Color
	LoadOp     LoadOp
}
