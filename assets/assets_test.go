package assets_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/devblok/ffp/assets"
	"github.com/devblok/ffp/gfx"
	"github.com/devblok/ffp/utility/kar"
	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/packr"
)

var testBox = packr.NewBox("./testdata")

type memSource map[string][]byte

func (m memSource) ReadFile(name string) ([]byte, error) {
	if data, ok := m[name]; ok {
		return data, nil
	}
	return nil, os.ErrNotExist
}

func TestShaderStage(t *testing.T) {
	c := qt.New(t)
	for name, want := range map[string]gfx.ShaderStage{
		"shader.vert.spv":                gfx.VertexStage,
		"./triangle.frag.spv":            gfx.FragmentStage,
		"shaders/textured.quad.vert.spv": gfx.VertexStage,
	} {
		stage, err := assets.ShaderStage(name)
		c.Assert(err, qt.IsNil, qt.Commentf(name))
		c.Assert(stage, qt.Equals, want, qt.Commentf(name))
	}

	for _, name := range []string{"shader.geom.spv", "shader.vert", "shader.spv", "vert.spv"} {
		_, err := assets.ShaderStage(name)
		c.Assert(err, qt.Equals, assets.ErrShaderStage, qt.Commentf(name))
	}
}

func TestLoadShader(t *testing.T) {
	c := qt.New(t)
	src := assets.NewBox(testBox)

	info, err := assets.LoadShader(src, "shader.vert.spv", 1)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Stage, qt.Equals, gfx.VertexStage)
	c.Assert(info.EntryPoint, qt.Equals, "main")
	c.Assert(info.Format, qt.Equals, gfx.ShaderFormatSPIRV)
	c.Assert(info.NumUniformBuffers, qt.Equals, uint32(1))
	c.Assert(info.Code, qt.HasLen, 12)

	info, err = assets.LoadShader(src, "shader.frag.spv", 0)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Stage, qt.Equals, gfx.FragmentStage)
	c.Assert(info.NumUniformBuffers, qt.Equals, uint32(0))
}

func TestLoadShaderInvalid(t *testing.T) {
	c := qt.New(t)
	src := assets.Dir("testdata")

	_, err := assets.LoadShader(src, "broken.frag.spv", 0)
	c.Assert(errors.Is(err, assets.ErrShaderCode), qt.IsTrue)

	_, err = assets.LoadShader(src, "bad.vert.spv", 0)
	c.Assert(errors.Is(err, assets.ErrShaderCode), qt.IsTrue)

	_, err = assets.LoadShader(src, "missing.vert.spv", 0)
	c.Assert(os.IsNotExist(err), qt.IsTrue)

	_, err = assets.LoadShader(src, "img.png", 0)
	c.Assert(errors.Is(err, assets.ErrShaderStage), qt.IsTrue)
}

func TestChain(t *testing.T) {
	c := qt.New(t)
	chain := assets.Chain{
		memSource{"a": []byte("first")},
		memSource{"a": []byte("second"), "b": []byte("only")},
	}

	data, err := chain.ReadFile("a")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "first")

	data, err = chain.ReadFile("b")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "only")

	_, err = chain.ReadFile("c")
	c.Assert(os.IsNotExist(err), qt.IsTrue)

	_, err = assets.Chain{}.ReadFile("a")
	c.Assert(err, qt.Equals, assets.ErrNoSource)
}

func TestArchiveSource(t *testing.T) {
	c := qt.New(t)
	builder, err := kar.NewBuilder(kar.Header{Author: "test"})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	code, err := ioutil.ReadFile(filepath.Join("testdata", "shader.vert.spv"))
	c.Assert(err, qt.IsNil)
	c.Assert(builder.Add("shader.vert.spv", bytes.NewReader(code)), qt.IsNil)

	dir, err := ioutil.TempDir("", "assets")
	c.Assert(err, qt.IsNil)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "assets.kar")
	f, err := os.Create(path)
	c.Assert(err, qt.IsNil)
	_, err = builder.WriteTo(f)
	c.Assert(err, qt.IsNil)
	c.Assert(f.Close(), qt.IsNil)

	ar, err := assets.OpenArchive(path)
	c.Assert(err, qt.IsNil)
	defer ar.Close()

	info, err := assets.LoadShader(ar, "shader.vert.spv", 1)
	c.Assert(err, qt.IsNil)
	c.Assert(info.Code, qt.DeepEquals, code)

	_, err = assets.OpenArchive(filepath.Join(dir, "nope.kar"))
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestLoadImage(t *testing.T) {
	c := qt.New(t)
	img, err := assets.LoadImage(assets.NewBox(testBox), "img.png")
	c.Assert(err, qt.IsNil)
	c.Assert(img.Bounds().Dx(), qt.Equals, 4)
	c.Assert(img.Bounds().Dy(), qt.Equals, 2)

	pix := assets.Pixels(img)
	c.Assert(pix, qt.HasLen, 4*2*4)
	c.Assert(pix[:8], qt.DeepEquals, []uint8{255, 0, 0, 255, 0, 255, 0, 255})

	_, err = assets.LoadImage(assets.Dir("testdata"), "shader.vert.spv")
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestPixelsOffsetBounds(t *testing.T) {
	c := qt.New(t)
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.Set(2, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	sub := src.SubImage(image.Rect(2, 2, 4, 4))

	pix := assets.Pixels(sub)
	c.Assert(pix, qt.HasLen, 2*2*4)
	c.Assert(pix[:4], qt.DeepEquals, []uint8{10, 20, 30, 255})
}

func BenchmarkPixels(b *testing.B) {
	img, err := assets.LoadImage(assets.NewBox(testBox), "img.png")
	if err != nil {
		b.Fatal(err)
	}
	for idx := 0; idx < b.N; idx++ {
		assets.Pixels(img)
	}
}
