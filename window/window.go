// Package window owns the SDL2 window the renderer presents to.
package window

import (
	"fmt"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

// Configuration describes the window to create
type Configuration struct {
	Title  string
	Width  int32
	Height int32

	Resizable bool
}

// DefaultConfiguration is a resizable 800x600 window.
func DefaultConfiguration() Configuration {
	return Configuration{
		Title:     "SDL_GPU",
		Width:     800,
		Height:    600,
		Resizable: true,
	}
}

// Init initialises SDL video and events and loads the Vulkan library.
// It must be called from the main thread before New.
func Init() error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("sdl.Init(): %s", err)
	}
	if err := sdl.VulkanLoadLibrary(""); err != nil {
		sdl.Quit()
		return fmt.Errorf("sdl.VulkanLoadLibrary(): %s", err)
	}
	return nil
}

// Quit undoes Init.
func Quit() {
	sdl.VulkanUnloadLibrary()
	sdl.Quit()
}

// ProcAddr returns the vkGetInstanceProcAddr loaded by Init.
func ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

// Window is an SDL window with Vulkan support.
type Window struct {
	window *sdl.Window
}

// New creates and shows a window.
func New(cfg Configuration) (*Window, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid window size %dx%d", cfg.Width, cfg.Height)
	}

	flags := uint32(sdl.WINDOW_VULKAN | sdl.WINDOW_SHOWN)
	if cfg.Resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}

	window, err := sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		cfg.Width,
		cfg.Height,
		flags)
	if err != nil {
		return nil, fmt.Errorf("sdl.CreateWindow(): %s", err)
	}

	log.WithFields(log.Fields{
		"title":  cfg.Title,
		"width":  cfg.Width,
		"height": cfg.Height,
	}).Debug("window created")
	return &Window{window: window}, nil
}

// Size returns the window size in screen coordinates, zero while
// the window is minimized.
func (w *Window) Size() (int32, int32, error) {
	if w.minimized() {
		return 0, 0, nil
	}
	width, height := w.window.GetSize()
	return width, height, nil
}

// DrawableSize returns the size of the Vulkan drawable in pixels, zero
// while the window is minimized.
func (w *Window) DrawableSize() (int32, int32) {
	if w.minimized() {
		return 0, 0
	}
	return w.window.VulkanGetDrawableSize()
}

func (w *Window) minimized() bool {
	return w.window.GetFlags()&sdl.WINDOW_MINIMIZED != 0
}

// VulkanCreateSurface creates a surface for a vk.Instance.
func (w *Window) VulkanCreateSurface(instance interface{}) (unsafe.Pointer, error) {
	return w.window.VulkanCreateSurface(instance)
}

// InstanceExtensions lists the instance extensions the window needs
// to present.
func (w *Window) InstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// PollEvents drains the event queue and reports whether the user asked
// to quit.
func (w *Window) PollEvents() bool {
	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if quitRequested(event) {
			quit = true
		}
	}
	return quit
}

func quitRequested(event sdl.Event) bool {
	switch et := event.(type) {
	case *sdl.QuitEvent:
		return true
	case *sdl.KeyboardEvent:
		return et.Type == sdl.KEYDOWN && et.Keysym.Sym == sdl.K_ESCAPE
	}
	return false
}

// Destroy destroys the window.
func (w *Window) Destroy() {
	if w == nil || w.window == nil {
		return
	}
	if err := w.window.Destroy(); err != nil {
		log.WithError(err).Warn("window destruction failed")
	}
	w.window = nil
}
