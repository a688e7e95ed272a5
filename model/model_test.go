package model_test

import (
	"testing"

	"github.com/devblok/ffp/gfx"
	"github.com/devblok/ffp/model"
	qt "github.com/frankban/quicktest"
	glm "github.com/go-gl/mathgl/mgl32"
)

func TestLayoutSizes(t *testing.T) {
	c := qt.New(t)

	c.Assert(model.VertexSize, qt.Equals, uint32(28))

	c.Assert(model.TriangleLayout.Indexed(), qt.IsFalse)
	c.Assert(model.TriangleLayout.VertexBufferSize(), qt.Equals, uint32(3*28))
	c.Assert(model.TriangleLayout.IndexBufferSize(), qt.Equals, uint32(0))
	c.Assert(model.TriangleLayout.DrawCount(), qt.Equals, uint32(3))

	c.Assert(model.QuadLayout.Indexed(), qt.IsTrue)
	c.Assert(model.QuadLayout.VertexBufferSize(), qt.Equals, uint32(4*28))
	c.Assert(model.QuadLayout.IndexBufferSize(), qt.Equals, uint32(12))
	c.Assert(model.QuadLayout.DrawCount(), qt.Equals, uint32(6))
	c.Assert(model.QuadLayout.Indices, qt.DeepEquals, []uint16{0, 1, 2, 2, 1, 3})
}

func TestLayoutAttributes(t *testing.T) {
	attrs := model.QuadLayout.VertexAttributes()
	qt.Assert(t, attrs, qt.DeepEquals, []gfx.VertexAttribute{
		{Location: 0, BufferSlot: 0, Format: gfx.VertexElementFloat3, Offset: 0},
		{Location: 1, BufferSlot: 0, Format: gfx.VertexElementFloat4, Offset: 12},
	})
}

func TestLayoutByName(t *testing.T) {
	c := qt.New(t)
	l, ok := model.LayoutByName("triangle")
	c.Assert(ok, qt.IsTrue)
	c.Assert(l.VertexCount, qt.Equals, uint32(3))

	_, ok = model.LayoutByName("hexagon")
	c.Assert(ok, qt.IsFalse)
}

func TestEncodeVertices(t *testing.T) {
	c := qt.New(t)
	vertices := model.DefaultQuad.Vertices()

	data := model.EncodeVertices(vertices)
	c.Assert(data, qt.HasLen, 4*28)
	// -0.5 as little endian float32
	c.Assert(data[:4], qt.DeepEquals, []byte{0x00, 0x00, 0x00, 0xbf})

	decoded, err := model.DecodeVertices(data)
	c.Assert(err, qt.IsNil)
	c.Assert(decoded, qt.DeepEquals, vertices)

	_, err = model.DecodeVertices(data[:27])
	c.Assert(err, qt.ErrorMatches, "vertex data of 27 bytes is not a multiple of 28")
}

func TestEncodeIndices(t *testing.T) {
	qt.Assert(t, model.EncodeIndices(model.QuadIndices), qt.DeepEquals,
		[]byte{0, 0, 1, 0, 2, 0, 2, 0, 1, 0, 3, 0})
}

func TestVerticesAreCopies(t *testing.T) {
	q := model.DefaultQuad
	v := q.Vertices()
	v[0].Pos = glm.Vec3{9, 9, 9}
	qt.Assert(t, q.A.Pos, qt.Equals, glm.Vec3{-0.5, 0.5, -1.0})
}

func TestDefaultPrimitive(t *testing.T) {
	c := qt.New(t)
	p, err := model.DefaultPrimitive(model.QuadLayout)
	c.Assert(err, qt.IsNil)
	c.Assert(p, qt.Equals, model.Primitive(model.DefaultQuad))

	p, err = model.DefaultPrimitive(model.TriangleLayout)
	c.Assert(err, qt.IsNil)
	c.Assert(p.Vertices(), qt.HasLen, 3)

	_, err = model.DefaultPrimitive(model.Layout{VertexCount: 5})
	c.Assert(err, qt.Not(qt.IsNil))
}
