package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/devblok/ffp/assets"
	"github.com/devblok/ffp/core"
	"github.com/devblok/ffp/core/renderer"
	"github.com/devblok/ffp/device"
	"github.com/devblok/ffp/model"
	"github.com/devblok/ffp/window"
	"github.com/gobuffalo/packr"
	log "github.com/sirupsen/logrus"
)

func init() {
	runtime.LockOSThread()
}

// Profiling
var (
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
	debug        = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	envFile      = flag.String("env", "", "Load configuration overrides from a .env file")
)

// builtinShaders are the compiled shaders of the shaders directory,
// used when neither the archive nor the working directory has them.
var builtinShaders = packr.NewBox("../../shaders")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.WithError(err).Error("ffp failed")
		os.Exit(1)
	}
}

func run() error {
	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := core.LoadConfiguration(files...)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	core.SetupLogging(cfg.LogLevel)
	if *debug {
		cfg.Renderer.Debug = true
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := trace.Start(f); err != nil {
			return err
		}
		defer trace.Stop()
	}

	src, closeAssets, err := openAssets(cfg.Assets)
	if err != nil {
		return err
	}
	defer closeAssets()
	cfg.Renderer.Assets = src

	if err := window.Init(); err != nil {
		return err
	}
	defer window.Quit()

	win, err := window.New(cfg.Window)
	if err != nil {
		return err
	}
	defer win.Destroy()

	backend := device.NewBackend(window.ProcAddr(), win.InstanceExtensions())
	r, err := renderer.New(backend, win, cfg.Renderer)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	defer r.Destroy()

	if err := uploadContent(r, src, cfg); err != nil {
		return err
	}

	timeService := core.NewTime(cfg.Time)
	defer timeService.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	stats, err := core.RunLoop(ctx, timeService, win, r, cfg.Time.MaxFrameFailures)
	log.WithFields(log.Fields{
		"frames": stats.Frames,
		"failed": stats.Failed,
	}).Info("event loop exited")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return err
		}
	}
	return nil
}

// openAssets chains the configured archive, the working directory and
// the built-in shaders, in that order.
func openAssets(cfg core.AssetsConfiguration) (assets.Source, func(), error) {
	chain := assets.Chain{}
	closer := func() {}

	if cfg.Archive != "" {
		archive, err := assets.OpenArchive(cfg.Archive)
		if err != nil {
			return nil, nil, fmt.Errorf("archive %s: %w", cfg.Archive, err)
		}
		chain = append(chain, archive)
		closer = func() {
			if err := archive.Close(); err != nil {
				log.WithError(err).Warn("archive close failed")
			}
		}
	}

	chain = append(chain, assets.Dir(""), assets.NewBox(builtinShaders))
	return chain, closer, nil
}

func uploadContent(r *renderer.Renderer, src assets.Source, cfg core.Configuration) error {
	var (
		primitive model.Primitive
		err       error
	)
	if cfg.Assets.Geometry != "" {
		data, err := src.ReadFile(cfg.Assets.Geometry)
		if err != nil {
			return fmt.Errorf("geometry %s: %w", cfg.Assets.Geometry, err)
		}
		if primitive, err = model.ImportCollada(data, r.Layout()); err != nil {
			return fmt.Errorf("geometry %s: %w", cfg.Assets.Geometry, err)
		}
	} else if primitive, err = model.DefaultPrimitive(r.Layout()); err != nil {
		return err
	}

	if err := r.Upload(primitive); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if cfg.Assets.Image != "" {
		img, err := assets.LoadImage(src, cfg.Assets.Image)
		if err != nil {
			return fmt.Errorf("image %s: %w", cfg.Assets.Image, err)
		}
		if _, err := r.UploadImage(img); err != nil {
			return fmt.Errorf("image upload: %w", err)
		}
	}
	return nil
}
