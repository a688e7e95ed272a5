package renderer

import (
	"math"

	"github.com/devblok/ffp/assets"
	"github.com/devblok/ffp/gfx"
	"github.com/devblok/ffp/model"
)

// Configuration describes the renderer configuration
type Configuration struct {

	// Fov is the vertical field of view in radians.
	Fov float32

	// Layout decides the vertex format and the primitive that is drawn.
	Layout model.Layout

	// Compiled shader paths, resolved through Assets.
	VertexShader   string
	FragmentShader string

	ClearColor gfx.Color

	// Debug enables backend validation.
	Debug bool

	// Assets is where shaders are read from, the working
	// directory when nil.
	Assets assets.Source
}

// DefaultConfiguration draws the colored quad with a 60 degree field
// of view onto a gray background.
func DefaultConfiguration() Configuration {
	return Configuration{
		Fov:            60.0 / 180.0 * math.Pi,
		Layout:         model.QuadLayout,
		VertexShader:   "./shader.vert.spv",
		FragmentShader: "./shader.frag.spv",
		ClearColor:     gfx.Color{R: 0.25, G: 0.25, B: 0.25, A: 1.0},
	}
}
