// Package model holds the geometry the renderer draws: vertices,
// the fixed primitives built from them and their GPU vertex layouts.
package model

import (
	"unsafe"

	"github.com/devblok/ffp/gfx"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Vertex is a colored model vertex
type Vertex struct {
	Pos   glm.Vec3
	Color glm.Vec4
}

// VertexSize is the size of one encoded Vertex in bytes.
const VertexSize = uint32(unsafe.Sizeof(Vertex{}))

// QuadIndices is the fixed index list a Quad is drawn with.
var QuadIndices = []uint16{0, 1, 2, 2, 1, 3}

// Primitive is static geometry drawn every frame.
type Primitive interface {

	// Vertices returns a copy of the primitive's vertices,
	// so it has to match the layout exactly
	Vertices() []Vertex
}

// Triangle is three vertices drawn without indices.
type Triangle struct {
	A, B, C Vertex
}

// Vertices implements interface
func (t Triangle) Vertices() []Vertex {
	return []Vertex{t.A, t.B, t.C}
}

// Quad is four vertices drawn as two triangles through QuadIndices.
type Quad struct {
	A, B, C, D Vertex
}

// Vertices implements interface
func (q Quad) Vertices() []Vertex {
	return []Vertex{q.A, q.B, q.C, q.D}
}

// Attribute is one vertex shader input of a Layout.
type Attribute struct {
	Location uint32
	Format   gfx.VertexElementFormat
	Offset   uint32
}

// Layout describes how a primitive is laid out in GPU buffers and drawn.
// Buffers are sized from it once, so every primitive uploaded through
// a Layout must have exactly VertexCount vertices.
type Layout struct {
	Name        string
	Stride      uint32
	Attributes  []Attribute
	VertexCount uint32

	// Indices is the fixed index list, nil for non-indexed drawing.
	Indices []uint16
}

// Indexed reports whether the layout draws through an index buffer.
func (l Layout) Indexed() bool {
	return len(l.Indices) > 0
}

// VertexBufferSize is the exact size of the vertex buffer.
func (l Layout) VertexBufferSize() uint32 {
	return l.Stride * l.VertexCount
}

// IndexBufferSize is the exact size of the index buffer, 0 if not indexed.
func (l Layout) IndexBufferSize() uint32 {
	return uint32(len(l.Indices)) * 2
}

// DrawCount is the number of vertices or indices a draw call consumes.
func (l Layout) DrawCount() uint32 {
	if l.Indexed() {
		return uint32(len(l.Indices))
	}
	return l.VertexCount
}

// VertexAttributes converts the layout attributes into pipeline inputs
// read from buffer slot 0.
func (l Layout) VertexAttributes() []gfx.VertexAttribute {
	attrs := make([]gfx.VertexAttribute, 0, len(l.Attributes))
	for _, a := range l.Attributes {
		attrs = append(attrs, gfx.VertexAttribute{
			Location:   a.Location,
			BufferSlot: 0,
			Format:     a.Format,
			Offset:     a.Offset,
		})
	}
	return attrs
}

var colorAttributes = []Attribute{
	{
		Location: 0,
		Format:   gfx.VertexElementFloat3,
		Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
	},
	{
		Location: 1,
		Format:   gfx.VertexElementFloat4,
		Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
	},
}

// Predefined layouts
var (
	TriangleLayout = Layout{
		Name:        "triangle",
		Stride:      VertexSize,
		Attributes:  colorAttributes,
		VertexCount: 3,
	}

	QuadLayout = Layout{
		Name:        "quad",
		Stride:      VertexSize,
		Attributes:  colorAttributes,
		VertexCount: 4,
		Indices:     QuadIndices,
	}
)

// LayoutByName returns one of the predefined layouts.
func LayoutByName(name string) (Layout, bool) {
	switch name {
	case TriangleLayout.Name:
		return TriangleLayout, true
	case QuadLayout.Name:
		return QuadLayout, true
	}
	return Layout{}, false
}
