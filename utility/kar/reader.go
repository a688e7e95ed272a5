// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar

import (
	"fmt"
	"io"
	"io/ioutil"

	"github.com/pierrec/lz4"
	"golang.org/x/exp/mmap"
)

// Open reads the header of an archive. The archive keeps reading
// from r as files are opened, so r must stay valid while it is in use.
func Open(r io.ReaderAt) (*Archive, error) {
	magicBytes := make([]byte, MagicLength)
	if num, err := r.ReadAt(magicBytes, 0); err != nil || num < MagicLength {
		return nil, ErrFileFormat
	} else if string(magicBytes) != string(magic[:]) {
		return nil, ErrFileFormat
	}

	headerSizeBytes := make([]byte, HeaderSizeNumberLength)
	if num, err := r.ReadAt(headerSizeBytes, MagicLength); err != nil || num < HeaderSizeNumberLength {
		return nil, ErrFileFormat
	}

	headerSize, err := binaryToint64(headerSizeBytes)
	if err != nil || headerSize <= 0 {
		return nil, ErrFileFormat
	}

	headerBytes := make([]byte, headerSize)
	if num, err := r.ReadAt(headerBytes, MagicLength+HeaderSizeNumberLength); int64(num) < headerSize {
		if err == nil {
			err = ErrFileFormat
		}
		return nil, fmt.Errorf("kar header: %s", err)
	}

	var header Header
	if err := gobDecode(&header, headerBytes); err != nil {
		return nil, ErrFileFormat
	}

	return &Archive{
		reader:     r,
		header:     header,
		dataOffset: MagicLength + HeaderSizeNumberLength + headerSize,
	}, nil
}

// OpenFile memory maps the archive at path and opens it.
func OpenFile(path string) (*Archive, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	ar, err := Open(m)
	if err != nil {
		m.Close()
		return nil, err
	}
	ar.closer = m
	return ar, nil
}

// Archive is an opened kar archive.
type Archive struct {
	reader     io.ReaderAt
	closer     io.Closer
	header     Header
	dataOffset int64
}

// Header returns the archive header, including the index.
func (a *Archive) Header() Header {
	return a.header
}

// Names lists the files in the archive in the order they were added.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.header.Index))
	for _, e := range a.header.Index {
		names = append(names, e.Name)
	}
	return names
}

// Stat returns the index entry of a file.
func (a *Archive) Stat(name string) (IndexEntry, error) {
	e, ok := a.header.find(name)
	if !ok {
		return IndexEntry{}, ErrNotFound
	}
	return e, nil
}

// Open returns a reader that decompresses the named file.
func (a *Archive) Open(name string) (io.Reader, error) {
	e, err := a.Stat(name)
	if err != nil {
		return nil, err
	}
	section := io.NewSectionReader(a.reader, a.dataOffset+e.Offset, e.CompressedSize)
	return lz4.NewReader(section), nil
}

// ReadAll reads and decompresses the named file.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	e, err := a.Stat(name)
	if err != nil {
		return nil, err
	}
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != e.Size {
		return nil, ErrFileFormat
	}
	return data, nil
}

// ReadFile is ReadAll, so that an Archive can serve as an asset source.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	return a.ReadAll(name)
}

// Close releases the memory mapping of archives opened with OpenFile.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}
