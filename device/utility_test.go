// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSliceUint32(t *testing.T) {
	c := qt.New(t)
	data := make([]byte, 10)
	binary.LittleEndian.PutUint32(data, 0x07230203)
	binary.LittleEndian.PutUint32(data[4:], 42)

	words := SliceUint32(data)
	c.Assert(words, qt.HasLen, 2)
	c.Assert(words[0], qt.Equals, uint32(0x07230203))
	c.Assert(words[1], qt.Equals, uint32(42))
	c.Assert(SliceUint32(data[:3]), qt.IsNil)
}

func TestSafeStrings(t *testing.T) {
	c := qt.New(t)
	c.Assert(safeString("main"), qt.Equals, "main\x00")
	c.Assert(safeString("main\x00"), qt.Equals, "main\x00")
	c.Assert(safeStrings([]string{"a", "b\x00"}), qt.DeepEquals, []string{"a\x00", "b\x00"})
	c.Assert(safeStrings(nil), qt.HasLen, 0)
}

func TestFormats(t *testing.T) {
	c := qt.New(t)
	for _, f := range preferredFormats {
		c.Assert(vulkanFormat(textureFormat(f)), qt.Equals, f)
	}
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		SliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		SliceUint32(data)
	}
}
