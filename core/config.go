package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/devblok/ffp/core/renderer"
	"github.com/devblok/ffp/gfx"
	"github.com/devblok/ffp/model"
	"github.com/devblok/ffp/window"
	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Environment variables read by LoadConfiguration
const (
	EnvTitle            = "FFP_TITLE"
	EnvWidth            = "FFP_WIDTH"
	EnvHeight           = "FFP_HEIGHT"
	EnvFovDegrees       = "FFP_FOV_DEGREES"
	EnvLayout           = "FFP_LAYOUT"
	EnvVertexShader     = "FFP_VERTEX_SHADER"
	EnvFragmentShader   = "FFP_FRAGMENT_SHADER"
	EnvImage            = "FFP_IMAGE"
	EnvGeometry         = "FFP_GEOMETRY"
	EnvArchive          = "FFP_ARCHIVE"
	EnvFps              = "FFP_FPS"
	EnvMaxFrameFailures = "FFP_MAX_FRAME_FAILURES"
	EnvClearColor       = "FFP_CLEAR_COLOR"
	EnvLogLevel         = "FFP_LOG_LEVEL"
	EnvDebug            = "FFP_DEBUG"
)

// Configuration defines a global application configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Window   window.Configuration
	Renderer renderer.Configuration
	Assets   AssetsConfiguration
	LogLevel log.Level
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// MaxFrameFailures aborts the loop after that many failed frames
	// in a row, 0 never aborts.
	MaxFrameFailures int
}

// AssetsConfiguration names optional content loaded at startup.
type AssetsConfiguration struct {
	// Archive is a kar archive searched before the working directory.
	Archive string

	// Image is uploaded as a texture when set.
	Image string

	// Geometry is a Collada file replacing the built-in primitive.
	Geometry string
}

// Shaders of the non-indexed triangle layout
const (
	TriangleVertexShader   = "./triangle.vert.spv"
	TriangleFragmentShader = "./triangle.frag.spv"
)

// DefaultConfiguration is the configuration without any overrides:
// a colored quad in an 800x600 window at 60 frames per second.
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond:  60,
			MaxFrameFailures: 0,
		},
		Window:   window.DefaultConfiguration(),
		Renderer: renderer.DefaultConfiguration(),
		LogLevel: log.InfoLevel,
	}
}

// LoadConfiguration reads the given .env files, without overriding
// variables already set, and applies the FFP_* overrides to the defaults.
func LoadConfiguration(files ...string) (Configuration, error) {
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			return Configuration{}, fmt.Errorf("godotenv.Read(%s): %s", file, err)
		}
		for key, value := range values {
			if _, err := envy.MustGet(key); err != nil {
				envy.Set(key, value)
			}
		}
	}
	return configurationFromEnv()
}

func configurationFromEnv() (Configuration, error) {
	cfg := DefaultConfiguration()
	var err error

	cfg.Window.Title = envy.Get(EnvTitle, cfg.Window.Title)
	if cfg.Window.Width, err = envInt32(EnvWidth, cfg.Window.Width); err != nil {
		return cfg, err
	}
	if cfg.Window.Height, err = envInt32(EnvHeight, cfg.Window.Height); err != nil {
		return cfg, err
	}
	if cfg.Window.Width <= 0 || cfg.Window.Height <= 0 {
		return cfg, fmt.Errorf("window size %dx%d must be positive", cfg.Window.Width, cfg.Window.Height)
	}

	if v, ok := lookup(EnvFovDegrees); ok {
		degrees, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return cfg, fmt.Errorf("%s: %s", EnvFovDegrees, err)
		}
		cfg.Renderer.Fov = float32(degrees / 180.0 * math.Pi)
		if !renderer.ValidFov(cfg.Renderer.Fov) {
			return cfg, fmt.Errorf("%s: %w", EnvFovDegrees, renderer.ErrInvalidFov)
		}
	}

	if v, ok := lookup(EnvLayout); ok {
		layout, found := model.LayoutByName(v)
		if !found {
			return cfg, fmt.Errorf("%s: unknown layout %q", EnvLayout, v)
		}
		cfg.Renderer.Layout = layout
		if !layout.Indexed() {
			cfg.Renderer.VertexShader = TriangleVertexShader
			cfg.Renderer.FragmentShader = TriangleFragmentShader
		}
	}
	cfg.Renderer.VertexShader = envy.Get(EnvVertexShader, cfg.Renderer.VertexShader)
	cfg.Renderer.FragmentShader = envy.Get(EnvFragmentShader, cfg.Renderer.FragmentShader)

	if v, ok := lookup(EnvClearColor); ok {
		color, err := parseColor(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %s", EnvClearColor, err)
		}
		cfg.Renderer.ClearColor = color
	}

	if v, ok := lookup(EnvDebug); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %s", EnvDebug, err)
		}
		cfg.Renderer.Debug = debug
	}

	cfg.Assets.Image = envy.Get(EnvImage, cfg.Assets.Image)
	cfg.Assets.Geometry = envy.Get(EnvGeometry, cfg.Assets.Geometry)
	cfg.Assets.Archive = envy.Get(EnvArchive, cfg.Assets.Archive)

	if cfg.Time.FramesPerSecond, err = envNonNegative(EnvFps, cfg.Time.FramesPerSecond); err != nil {
		return cfg, err
	}
	if cfg.Time.MaxFrameFailures, err = envNonNegative(EnvMaxFrameFailures, cfg.Time.MaxFrameFailures); err != nil {
		return cfg, err
	}

	if v, ok := lookup(EnvLogLevel); ok {
		level, err := log.ParseLevel(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %s", EnvLogLevel, err)
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}

// lookup returns a variable that is set and not blank.
func lookup(key string) (string, bool) {
	v, err := envy.MustGet(key)
	if err != nil {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func envInt32(key string, def int32) (int32, error) {
	v, ok := lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return def, fmt.Errorf("%s: %s", key, err)
	}
	return int32(n), nil
}

func envNonNegative(key string, def int) (int, error) {
	v, ok := lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %s", key, err)
	}
	if n < 0 {
		return def, fmt.Errorf("%s: %d is negative", key, n)
	}
	return n, nil
}

// parseColor reads "r,g,b" or "r,g,b,a" with components in [0, 1].
func parseColor(s string) (gfx.Color, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return gfx.Color{}, fmt.Errorf("color %q needs 3 or 4 components", s)
	}
	c := [4]float32{0, 0, 0, 1}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return gfx.Color{}, err
		}
		if v < 0 || v > 1 {
			return gfx.Color{}, fmt.Errorf("color component %v out of range", v)
		}
		c[i] = float32(v)
	}
	return gfx.Color{R: c[0], G: c[1], B: c[2], A: c[3]}, nil
}
