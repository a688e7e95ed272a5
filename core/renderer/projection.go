package renderer

import (
	"encoding/binary"
	"math"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Clipping planes of the projection
const (
	Near float32 = 0.1
	Far  float32 = 100.0
)

// ValidFov reports whether fov can be used to build a projection.
func ValidFov(fov float32) bool {
	return fov > 0 && fov < math.Pi
}

// Perspective builds the projection matrix for a window of the given size.
func Perspective(fov float32, width, height int32) (glm.Mat4, error) {
	if !ValidFov(fov) {
		return glm.Mat4{}, ErrInvalidFov
	}
	if width <= 0 || height <= 0 {
		return glm.Mat4{}, ErrWindowSize
	}
	return glm.Perspective(fov, float32(width)/float32(height), Near, Far), nil
}

// uniformBytes lays out a matrix the way the vertex shader reads it,
// column major little endian floats.
func uniformBytes(m glm.Mat4) []byte {
	data := make([]byte, len(m)*4)
	for i, v := range m {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return data
}
