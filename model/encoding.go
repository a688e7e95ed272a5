package model

import (
	"bytes"
	"encoding/binary"
	"fmt"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Demo geometry, facing the camera one unit away.
var (
	DefaultTriangle = Triangle{
		A: Vertex{Pos: glm.Vec3{-0.5, -0.5, -1.0}, Color: glm.Vec4{1.0, 0.0, 0.0, 1.0}},
		B: Vertex{Pos: glm.Vec3{0.5, -0.5, -1.0}, Color: glm.Vec4{0.0, 1.0, 0.0, 1.0}},
		C: Vertex{Pos: glm.Vec3{0.0, 0.5, -1.0}, Color: glm.Vec4{0.0, 0.0, 1.0, 1.0}},
	}

	DefaultQuad = Quad{
		A: Vertex{Pos: glm.Vec3{-0.5, 0.5, -1.0}, Color: glm.Vec4{1.0, 0.0, 0.0, 1.0}},
		B: Vertex{Pos: glm.Vec3{0.5, 0.5, -1.0}, Color: glm.Vec4{0.0, 1.0, 0.0, 1.0}},
		C: Vertex{Pos: glm.Vec3{-0.5, -0.5, -1.0}, Color: glm.Vec4{0.0, 0.0, 1.0, 1.0}},
		D: Vertex{Pos: glm.Vec3{0.5, -0.5, -1.0}, Color: glm.Vec4{1.0, 1.0, 1.0, 1.0}},
	}
)

// DefaultPrimitive returns the demo geometry matching the layout.
func DefaultPrimitive(l Layout) (Primitive, error) {
	switch l.VertexCount {
	case 3:
		return DefaultTriangle, nil
	case 4:
		return DefaultQuad, nil
	}
	return nil, fmt.Errorf("no default primitive with %d vertices", l.VertexCount)
}

// EncodeVertices lays vertices out the way the GPU reads them:
// tightly packed little endian float32s.
func EncodeVertices(vertices []Vertex) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(vertices)*int(VertexSize)))
	// Writing fixed size values into a bytes.Buffer cannot fail
	_ = binary.Write(buf, binary.LittleEndian, vertices)
	return buf.Bytes()
}

// DecodeVertices is the inverse of EncodeVertices.
func DecodeVertices(data []byte) ([]Vertex, error) {
	if len(data)%int(VertexSize) != 0 {
		return nil, fmt.Errorf("vertex data of %d bytes is not a multiple of %d", len(data), VertexSize)
	}
	vertices := make([]Vertex, len(data)/int(VertexSize))
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, vertices); err != nil {
		return nil, err
	}
	return vertices, nil
}

// EncodeIndices lays out 16 bit indices for an index buffer.
func EncodeIndices(indices []uint16) []byte {
	out := make([]byte, len(indices)*2)
	for i, idx := range indices {
		binary.LittleEndian.PutUint16(out[i*2:], idx)
	}
	return out
}
