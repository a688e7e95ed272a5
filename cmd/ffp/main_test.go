package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/devblok/ffp/core"
	"github.com/devblok/ffp/core/renderer"
	"github.com/devblok/ffp/gfx/gfxtest"
	"github.com/devblok/ffp/model"
	"github.com/devblok/ffp/utility/kar"
	qt "github.com/frankban/quicktest"
)

var spirv = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

const triangleDocument = `<COLLADA>
  <library_geometries>
    <geometry id="Tri-mesh" name="Tri">
      <mesh>
        <source id="Tri-mesh-positions">
          <float_array id="Tri-mesh-positions-array" count="9">0 1 0 -1 -1 0 1 -1 0</float_array>
        </source>
      </mesh>
    </geometry>
  </library_geometries>
</COLLADA>`

func pngBytes(c *qt.C) []byte {
	var buf bytes.Buffer
	c.Assert(png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))), qt.IsNil)
	return buf.Bytes()
}

// writeArchive packs the files into a kar archive under the relative
// names the kar tool stores, and returns its path.
func writeArchive(c *qt.C, files map[string][]byte) string {
	b, err := kar.NewBuilder(kar.Header{Author: "test", Version: 1})
	c.Assert(err, qt.IsNil)
	defer b.Close()
	for name, data := range files {
		c.Assert(b.Add(name, bytes.NewReader(data)), qt.IsNil)
	}

	path := filepath.Join(c.TempDir(), "assets.kar")
	f, err := os.Create(path)
	c.Assert(err, qt.IsNil)
	defer f.Close()
	_, err = b.WriteTo(f)
	c.Assert(err, qt.IsNil)
	return path
}

func TestOpenAssetsMissingArchive(t *testing.T) {
	c := qt.New(t)
	_, _, err := openAssets(core.AssetsConfiguration{Archive: filepath.Join(c.TempDir(), "none.kar")})
	c.Assert(err, qt.ErrorMatches, "archive .*none.kar: .*")
}

func TestArchiveContent(t *testing.T) {
	c := qt.New(t)
	cfg := core.DefaultConfiguration()
	cfg.Renderer.Layout = model.TriangleLayout
	cfg.Renderer.VertexShader = core.TriangleVertexShader
	cfg.Renderer.FragmentShader = core.TriangleFragmentShader
	cfg.Assets = core.AssetsConfiguration{
		Archive: writeArchive(c, map[string][]byte{
			"triangle.vert.spv": spirv,
			"triangle.frag.spv": spirv,
			"tri.dae":           []byte(triangleDocument),
			"img.png":           pngBytes(c),
		}),
		Geometry: "./tri.dae",
		Image:    "./img.png",
	}

	src, closeAssets, err := openAssets(cfg.Assets)
	c.Assert(err, qt.IsNil)
	defer closeAssets()
	cfg.Renderer.Assets = src

	backend := gfxtest.NewBackend()
	r, err := renderer.New(backend, &gfxtest.Window{W: 800, H: 600}, cfg.Renderer)
	c.Assert(err, qt.IsNil)

	c.Assert(uploadContent(r, src, cfg), qt.IsNil)
	c.Assert(r.Draw(), qt.IsNil)
	frames := backend.Frames()
	c.Assert(frames, qt.HasLen, 1)
	c.Assert(frames[0].Passes[0].Draws[0].Count, qt.Equals, uint32(3))
	c.Assert(backend.LiveKinds(), qt.Contains, "texture")

	r.Destroy()
	c.Assert(backend.Live(), qt.Equals, 0)
}

func TestUploadContentErrors(t *testing.T) {
	c := qt.New(t)
	src, closeAssets, err := openAssets(core.AssetsConfiguration{
		Archive: writeArchive(c, map[string][]byte{
			"shader.vert.spv": spirv,
			"shader.frag.spv": spirv,
			"tri.dae":         []byte(triangleDocument),
			"broken.png":      []byte("not an image"),
		}),
	})
	c.Assert(err, qt.IsNil)
	defer closeAssets()

	cfg := core.DefaultConfiguration()
	cfg.Renderer.Assets = src
	backend := gfxtest.NewBackend()
	r, err := renderer.New(backend, &gfxtest.Window{W: 800, H: 600}, cfg.Renderer)
	c.Assert(err, qt.IsNil)
	defer r.Destroy()

	tests := []struct {
		name   string
		assets core.AssetsConfiguration
		err    string
	}{
		{"missing geometry", core.AssetsConfiguration{Geometry: "./none.dae"}, "geometry ./none.dae: .*"},
		{"layout mismatch", core.AssetsConfiguration{Geometry: "./tri.dae"}, "geometry ./tri.dae: .*"},
		{"broken image", core.AssetsConfiguration{Image: "./broken.png"}, "image ./broken.png: .*"},
	}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			cfg.Assets = test.assets
			c.Assert(uploadContent(r, src, cfg), qt.ErrorMatches, test.err)
		})
	}
}
