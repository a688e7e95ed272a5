// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/devblok/ffp/utility/kar"
	qt "github.com/frankban/quicktest"
)

func writeTree(c *qt.C, root string, files map[string]string) {
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		c.Assert(os.MkdirAll(filepath.Dir(path), 0755), qt.IsNil)
		c.Assert(os.WriteFile(path, []byte(content), 0644), qt.IsNil)
	}
}

func TestCompressListExtract(t *testing.T) {
	c := qt.New(t)
	src := c.TempDir()
	files := map[string]string{
		"shader.vert.spv":  "vertex",
		"shader.frag.spv":  "fragment",
		"models/cube.dae":  "<COLLADA/>",
		"models/empty.dae": "",
	}
	writeTree(c, src, files)

	archivePath := filepath.Join(c.TempDir(), "out.kar")
	err := compressFiles(src, archivePath, kar.Header{Author: "tester", Version: 3})
	c.Assert(err, qt.IsNil)

	err = compressFiles(src, archivePath, kar.Header{})
	c.Assert(err, qt.Equals, errExists)

	var listing bytes.Buffer
	c.Assert(listFiles(archivePath, &listing), qt.IsNil)
	c.Assert(listing.String(), qt.Matches, `(?s)author: tester\nversion: 3\n.*models/cube.dae\n.*shader.vert.spv\n`)

	dst := c.TempDir()
	c.Assert(extractFiles(archivePath, dst), qt.IsNil)
	for name, content := range files {
		data, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
		c.Assert(err, qt.IsNil)
		c.Assert(string(data), qt.Equals, content)
	}

	err = extractFiles(archivePath, dst)
	c.Assert(errors.Is(err, errExists), qt.IsTrue)
}

func TestCompressSingleFile(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	writeTree(c, dir, map[string]string{"img.png": "png"})

	archivePath := filepath.Join(dir, "one.kar")
	c.Assert(compressFiles(filepath.Join(dir, "img.png"), archivePath, kar.Header{}), qt.IsNil)

	archive, err := kar.OpenFile(archivePath)
	c.Assert(err, qt.IsNil)
	defer archive.Close()
	c.Assert(archive.Names(), qt.DeepEquals, []string{"img.png"})
}

func TestExtractPath(t *testing.T) {
	c := qt.New(t)
	p, err := extractPath("out", "models/cube.dae")
	c.Assert(err, qt.IsNil)
	c.Assert(p, qt.Equals, filepath.Join("out", "models", "cube.dae"))

	for _, name := range []string{"../escape", "/etc/passwd", "a/../../b", ".."} {
		_, err := extractPath("out", name)
		c.Assert(err, qt.Equals, errUnsafePath, qt.Commentf(name))
	}
}

func TestCompressedShadersByRelativePath(t *testing.T) {
	c := qt.New(t)
	src := c.TempDir()
	writeTree(c, src, map[string]string{
		"shader.vert.spv": "vertex",
		"shader.frag.spv": "fragment",
	})

	archivePath := filepath.Join(c.TempDir(), "shaders.kar")
	c.Assert(compressFiles(src, archivePath, kar.Header{}), qt.IsNil)

	archive, err := kar.OpenFile(archivePath)
	c.Assert(err, qt.IsNil)
	defer archive.Close()

	data, err := archive.ReadFile("./shader.vert.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "vertex")
	data, err = archive.ReadFile("./shader.frag.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "fragment")
}
