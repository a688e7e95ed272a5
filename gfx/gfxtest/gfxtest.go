// Package gfxtest is an in-memory gfx backend. It keeps buffer contents so
// they can be read back, records every submitted frame, counts live and
// invalidly released handles, and fails chosen operations on demand.
package gfxtest

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/devblok/ffp/gfx"
)

// ErrInjected is returned by operations made to fail with Backend.Fail.
var ErrInjected = errors.New("gfxtest: injected failure")

// Op names a fallible backend operation.
type Op int

// Fallible operations
const (
	OpCreateDevice Op = iota
	OpClaimWindow
	OpCreateBuffer
	OpCreateTransferBuffer
	OpCreateShader
	OpCreatePipeline
	OpCreateTexture
	OpMap
	OpAcquireCommandBuffer
	OpAcquireSwapchain
	OpBeginRenderPass
	OpSubmit
)

var opNames = map[Op]string{
	OpCreateDevice:         "CreateDevice",
	OpClaimWindow:          "ClaimWindow",
	OpCreateBuffer:         "CreateBuffer",
	OpCreateTransferBuffer: "CreateTransferBuffer",
	OpCreateShader:         "CreateShader",
	OpCreatePipeline:       "CreateGraphicsPipeline",
	OpCreateTexture:        "CreateTexture",
	OpMap:                  "Map",
	OpAcquireCommandBuffer: "AcquireCommandBuffer",
	OpAcquireSwapchain:     "WaitAndAcquireSwapchainTexture",
	OpBeginRenderPass:      "BeginRenderPass",
	OpSubmit:               "Submit",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Ops lists every fallible operation.
func Ops() []Op {
	ops := make([]Op, 0, len(opNames))
	for op := range opNames {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Window is a fake window of a given size. Err, when set, is returned by Size.
type Window struct {
	W, H int32
	Err  error
}

// Size implements gfx.Window.
func (w *Window) Size() (int32, int32, error) {
	if w.Err != nil {
		return 0, 0, w.Err
	}
	return w.W, w.H, nil
}

// Backend implements gfx.Backend.
type Backend struct {

	// SwapchainFormat is the format reported for claimed windows.
	SwapchainFormat gfx.TextureFormat

	mutex    sync.Mutex
	calls    map[Op]int
	failures map[Op]int
	live     map[*resource]struct{}
	invalid  []string
	frames   []Frame
}

// NewBackend creates an empty backend.
func NewBackend() *Backend {
	return &Backend{
		SwapchainFormat: gfx.FormatB8G8R8A8Unorm,
		calls:           make(map[Op]int),
		failures:        make(map[Op]int),
		live:            make(map[*resource]struct{}),
	}
}

// Fail makes the nth call of op, counted from the creation of the
// backend and starting at 1, return ErrInjected.
func (b *Backend) Fail(op Op, nth int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.failures[op] = nth
}

// Calls returns how many times op was attempted.
func (b *Backend) Calls(op Op) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.calls[op]
}

// Live returns the number of handles that were acquired but not released.
func (b *Backend) Live() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.live)
}

// LiveKinds describes the live handles, for test failure messages.
func (b *Backend) LiveKinds() []string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	var kinds []string
	for r := range b.live {
		kinds = append(kinds, r.kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Invalid returns the misuses seen so far, such as releasing a handle twice.
func (b *Backend) Invalid() []string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]string(nil), b.invalid...)
}

// Frames returns the submitted command buffers that acquired a swapchain texture.
func (b *Backend) Frames() []Frame {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]Frame(nil), b.frames...)
}

// BufferData returns a copy of the device side contents of a buffer
// created by this backend.
func (b *Backend) BufferData(buf gfx.Buffer) []byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if fb, ok := buf.(*buffer); ok {
		return append([]byte(nil), fb.data...)
	}
	return nil
}

// TextureData returns a copy of the contents of a texture created by this backend.
func (b *Backend) TextureData(tex gfx.Texture) []byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if ft, ok := tex.(*texture); ok {
		return append([]byte(nil), ft.data...)
	}
	return nil
}

// CreateDevice implements gfx.Backend.
func (b *Backend) CreateDevice(format gfx.ShaderFormat, debug bool) (gfx.Device, error) {
	if err := b.attempt(OpCreateDevice); err != nil {
		return nil, err
	}
	if format != gfx.ShaderFormatSPIRV {
		return nil, gfx.ErrUnsupportedFormat
	}
	d := &device{
		backend: b,
		format:  format,
		claims:  make(map[gfx.Window]*resource),
	}
	d.resource = b.acquire("device")
	return d, nil
}

func (b *Backend) attempt(op Op) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.calls[op]++
	if n, ok := b.failures[op]; ok && n == b.calls[op] {
		return fmt.Errorf("%s: %w", op, ErrInjected)
	}
	return nil
}

func (b *Backend) acquire(kind string) *resource {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	r := &resource{backend: b, kind: kind}
	b.live[r] = struct{}{}
	return r
}

func (b *Backend) misuse(format string, args ...interface{}) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.invalid = append(b.invalid, fmt.Sprintf(format, args...))
}

type resource struct {
	backend  *Backend
	kind     string
	released bool
}

func (r *resource) Release() {
	b := r.backend
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if r.released {
		b.invalid = append(b.invalid, "release of released "+r.kind)
		return
	}
	r.released = true
	delete(b.live, r)
}

func (r *resource) isReleased() bool {
	r.backend.mutex.Lock()
	defer r.backend.mutex.Unlock()
	return r.released
}
