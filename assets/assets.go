// Package assets loads shaders and images from the filesystem,
// a packr box or a kar archive.
package assets

import (
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/devblok/ffp/utility/kar"
	"github.com/gobuffalo/packr"
)

// ErrNoSource is returned by an empty Chain.
var ErrNoSource = errors.New("no asset source configured")

// Source is anything that can provide named files.
type Source interface {
	ReadFile(name string) ([]byte, error)
}

var _ Source = (*kar.Archive)(nil)

// Dir reads files relative to a directory. An empty Dir is
// the working directory.
type Dir string

// ReadFile implements Source.
func (d Dir) ReadFile(name string) ([]byte, error) {
	if filepath.IsAbs(name) || d == "" {
		return ioutil.ReadFile(name)
	}
	return ioutil.ReadFile(filepath.Join(string(d), name))
}

// Box serves files from a packr box, so they can be built into the binary.
type Box struct {
	box packr.Box
}

// NewBox wraps a packr box.
func NewBox(box packr.Box) Box {
	return Box{box: box}
}

// ReadFile implements Source.
func (b Box) ReadFile(name string) ([]byte, error) {
	return b.box.Find(filepath.ToSlash(filepath.Clean(name)))
}

// OpenArchive memory maps a kar archive for use as a Source.
// The caller closes it.
func OpenArchive(path string) (*kar.Archive, error) {
	ar, err := kar.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return ar, nil
}

// Chain asks every source in turn, the first one that has the file wins.
type Chain []Source

// ReadFile implements Source. When no source has the file, the error
// of the first source is returned.
func (c Chain) ReadFile(name string) ([]byte, error) {
	if len(c) == 0 {
		return nil, ErrNoSource
	}
	var first error
	for _, src := range c {
		data, err := src.ReadFile(name)
		if err == nil {
			return data, nil
		}
		if first == nil {
			first = err
		}
	}
	return nil, first
}
