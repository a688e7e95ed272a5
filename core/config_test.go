package core

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/devblok/ffp/gfx"
	"github.com/devblok/ffp/model"
	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/envy"
	log "github.com/sirupsen/logrus"
)

func withEnv(c *qt.C, vars map[string]string, f func()) {
	envy.Temp(func() {
		for k, v := range vars {
			envy.Set(k, v)
		}
		f()
	})
}

func TestDefaultConfiguration(t *testing.T) {
	c := qt.New(t)
	withEnv(c, nil, func() {
		cfg, err := LoadConfiguration()
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Window.Title, qt.Equals, "SDL_GPU")
		c.Assert(cfg.Window.Width, qt.Equals, int32(800))
		c.Assert(cfg.Window.Height, qt.Equals, int32(600))
		c.Assert(cfg.Renderer.Fov, qt.Equals, float32(60.0/180.0*math.Pi))
		c.Assert(cfg.Renderer.Layout.Name, qt.Equals, model.QuadLayout.Name)
		c.Assert(cfg.Renderer.VertexShader, qt.Equals, "./shader.vert.spv")
		c.Assert(cfg.Renderer.FragmentShader, qt.Equals, "./shader.frag.spv")
		c.Assert(cfg.Renderer.ClearColor, qt.Equals, gfx.Color{R: 0.25, G: 0.25, B: 0.25, A: 1})
		c.Assert(cfg.Time.FramesPerSecond, qt.Equals, 60)
		c.Assert(cfg.Time.MaxFrameFailures, qt.Equals, 0)
		c.Assert(cfg.LogLevel, qt.Equals, log.InfoLevel)
		c.Assert(cfg.Assets, qt.Equals, AssetsConfiguration{})
	})
}

func TestOverrides(t *testing.T) {
	c := qt.New(t)
	withEnv(c, map[string]string{
		EnvTitle:            "demo",
		EnvWidth:            "1024",
		EnvHeight:           " 768 ",
		EnvFovDegrees:       "90",
		EnvLayout:           "triangle",
		EnvClearColor:       "0, 0.5, 1",
		EnvDebug:            "true",
		EnvImage:            "./img.png",
		EnvGeometry:         "./cube.dae",
		EnvArchive:          "./assets.kar",
		EnvFps:              "0",
		EnvMaxFrameFailures: "5",
		EnvLogLevel:         "debug",
	}, func() {
		cfg, err := LoadConfiguration()
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Window.Title, qt.Equals, "demo")
		c.Assert(cfg.Window.Width, qt.Equals, int32(1024))
		c.Assert(cfg.Window.Height, qt.Equals, int32(768))
		c.Assert(cfg.Renderer.Fov, qt.Equals, float32(math.Pi/2))
		c.Assert(cfg.Renderer.Layout.Name, qt.Equals, model.TriangleLayout.Name)
		c.Assert(cfg.Renderer.VertexShader, qt.Equals, TriangleVertexShader)
		c.Assert(cfg.Renderer.FragmentShader, qt.Equals, TriangleFragmentShader)
		c.Assert(cfg.Renderer.ClearColor, qt.Equals, gfx.Color{R: 0, G: 0.5, B: 1, A: 1})
		c.Assert(cfg.Renderer.Debug, qt.IsTrue)
		c.Assert(cfg.Assets, qt.Equals, AssetsConfiguration{
			Archive:  "./assets.kar",
			Image:    "./img.png",
			Geometry: "./cube.dae",
		})
		c.Assert(cfg.Time.FramesPerSecond, qt.Equals, 0)
		c.Assert(cfg.Time.MaxFrameFailures, qt.Equals, 5)
		c.Assert(cfg.LogLevel, qt.Equals, log.DebugLevel)
	})
}

func TestShaderOverrideWinsOverLayout(t *testing.T) {
	c := qt.New(t)
	withEnv(c, map[string]string{
		EnvLayout:       "triangle",
		EnvVertexShader: "./mine.vert.spv",
	}, func() {
		cfg, err := LoadConfiguration()
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Renderer.VertexShader, qt.Equals, "./mine.vert.spv")
		c.Assert(cfg.Renderer.FragmentShader, qt.Equals, TriangleFragmentShader)
	})
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		key, value, err string
	}{
		{EnvWidth, "wide", `FFP_WIDTH: .*invalid syntax`},
		{EnvHeight, "-1", `window size 800x-1 must be positive`},
		{EnvFovDegrees, "180", `FFP_FOV_DEGREES: .*`},
		{EnvFovDegrees, "0", `FFP_FOV_DEGREES: .*`},
		{EnvLayout, "hexagon", `FFP_LAYOUT: unknown layout "hexagon"`},
		{EnvClearColor, "1,1", `FFP_CLEAR_COLOR: color "1,1" needs 3 or 4 components`},
		{EnvClearColor, "1,1,2", `FFP_CLEAR_COLOR: color component 2 out of range`},
		{EnvDebug, "maybe", `FFP_DEBUG: .*`},
		{EnvFps, "-3", `FFP_FPS: -3 is negative`},
		{EnvMaxFrameFailures, "many", `FFP_MAX_FRAME_FAILURES: .*`},
		{EnvLogLevel, "loud", `FFP_LOG_LEVEL: .*`},
	}
	c := qt.New(t)
	for _, test := range tests {
		c.Run(test.key+"="+test.value, func(c *qt.C) {
			withEnv(c, map[string]string{test.key: test.value}, func() {
				_, err := LoadConfiguration()
				c.Assert(err, qt.ErrorMatches, test.err)
			})
		})
	}
}

func TestEnvFile(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	file := filepath.Join(dir, "ffp.env")
	err := os.WriteFile(file, []byte("FFP_TITLE=from file\nFFP_WIDTH=640\n"), 0644)
	c.Assert(err, qt.IsNil)

	withEnv(c, map[string]string{EnvWidth: "320"}, func() {
		cfg, err := LoadConfiguration(file)
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Window.Title, qt.Equals, "from file")
		// set variables win over the file
		c.Assert(cfg.Window.Width, qt.Equals, int32(320))
	})

	withEnv(c, nil, func() {
		_, err := LoadConfiguration(filepath.Join(dir, "missing.env"))
		c.Assert(err, qt.ErrorMatches, "godotenv.Read.*")
	})
}

func TestParseColor(t *testing.T) {
	c := qt.New(t)
	color, err := parseColor("0.1,0.2,0.3,0.4")
	c.Assert(err, qt.IsNil)
	c.Assert(color, qt.Equals, gfx.Color{R: 0.1, G: 0.2, B: 0.3, A: 0.4})

	_, err = parseColor("a,b,c")
	c.Assert(err, qt.Not(qt.IsNil))
}
