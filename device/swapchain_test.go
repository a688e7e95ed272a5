package device

import (
	"testing"
	"unsafe"

	vk "github.com/devblok/vulkan"
	qt "github.com/frankban/quicktest"
)

type sizedWindow struct {
	w, h int32
}

func (s sizedWindow) Size() (int32, int32, error) { return s.w, s.h, nil }
func (s sizedWindow) DrawableSize() (int32, int32) { return s.w, s.h }
func (s sizedWindow) VulkanCreateSurface(interface{}) (unsafe.Pointer, error) {
	return nil, nil
}

// A claim whose rebuild stopped after its images were destroyed keeps
// the size it was rebuilt for but has no framebuffers left.
func TestFailedRebuildStaysStale(t *testing.T) {
	c := qt.New(t)
	cl := &claim{
		window:   sizedWindow{800, 600},
		drawable: [2]int32{800, 600},
		outdated: true,
	}
	c.Assert(cl.stale(), qt.IsTrue)

	_, err := cl.framebuffer(0)
	c.Assert(err, qt.Equals, errOutOfDate)
}

func TestFramebuffer(t *testing.T) {
	c := qt.New(t)
	cl := &claim{
		window:       sizedWindow{800, 600},
		drawable:     [2]int32{800, 600},
		framebuffers: make([]vk.Framebuffer, 2),
	}
	c.Assert(cl.stale(), qt.IsFalse)

	_, err := cl.framebuffer(1)
	c.Assert(err, qt.IsNil)
	_, err = cl.framebuffer(2)
	c.Assert(err, qt.Equals, errOutOfDate)

	cl.window = sizedWindow{1024, 768}
	c.Assert(cl.stale(), qt.IsTrue)
}
