// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// SoftwareBackend is the pure CPU rendering backend.
//
// Frame buffers and textures are image.RGBA; texture sampling and
// scaling use golang.org/x/image/draw. The backend is always available
// and serves as the fallback when no GPU backend is registered.
type SoftwareBackend struct {
	mu      sync.Mutex
	current *softwareContext
	closed  bool
}

// NewSoftware creates a software backend.
func NewSoftware() *SoftwareBackend {
	return &SoftwareBackend{}
}

// Name returns "software".
func (b *SoftwareBackend) Name() string { return "software" }

// Init initializes the backend. The software backend has no device
// state to acquire.
func (b *SoftwareBackend) Init() error {
	b.mu.Lock()
	b.closed = false
	b.mu.Unlock()
	return nil
}

// NewContext creates a CPU-backed rendering context.
func (b *SoftwareBackend) NewContext(width, height int) (Context, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return &softwareContext{
		backend: b,
		back:    image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// Close releases the backend. Any current context is unbound.
func (b *SoftwareBackend) Close() {
	b.mu.Lock()
	b.current = nil
	b.closed = true
	b.mu.Unlock()
}

// makeCurrent binds c, unbinding the previously current context.
func (b *SoftwareBackend) makeCurrent(c *softwareContext) {
	b.mu.Lock()
	b.current = c
	b.mu.Unlock()
}

// isCurrent reports whether c is the backend's current context.
func (b *SoftwareBackend) isCurrent(c *softwareContext) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current == c
}

// unbind removes c from the current slot if it holds it.
func (b *SoftwareBackend) unbind(c *softwareContext) {
	b.mu.Lock()
	if b.current == c {
		b.current = nil
	}
	b.mu.Unlock()
}

// softwareContext is a CPU frame buffer with present semantics.
type softwareContext struct {
	backend *SoftwareBackend

	mu        sync.Mutex
	back      *image.RGBA // draw target
	front     *image.RGBA // last presented frame
	sink      func(*image.RGBA)
	destroyed bool
}

// Width returns the frame buffer width.
func (c *softwareContext) Width() int { return c.back.Bounds().Dx() }

// Height returns the frame buffer height.
func (c *softwareContext) Height() int { return c.back.Bounds().Dy() }

// MakeCurrent binds this context as the backend's current context.
func (c *softwareContext) MakeCurrent() error {
	c.mu.Lock()
	destroyed := c.destroyed
	c.mu.Unlock()
	if destroyed {
		return ErrContextDestroyed
	}
	c.backend.makeCurrent(c)
	return nil
}

// IsCurrent reports whether this context is current.
func (c *softwareContext) IsCurrent() bool {
	return c.backend.isCurrent(c)
}

// requireCurrent validates the draw-path preconditions.
func (c *softwareContext) requireCurrent() error {
	c.mu.Lock()
	destroyed := c.destroyed
	c.mu.Unlock()
	if destroyed {
		return ErrContextDestroyed
	}
	if !c.IsCurrent() {
		return ErrNotCurrent
	}
	return nil
}

// CreateTexture allocates a stream-input texture.
func (c *softwareContext) CreateTexture(width, height int) (Texture, error) {
	if err := c.requireCurrent(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return &softwareTexture{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// Clear fills the frame buffer with the given color.
func (c *softwareContext) Clear(col color.Color) error {
	if err := c.requireCurrent(); err != nil {
		return err
	}
	c.mu.Lock()
	draw.Draw(c.back, c.back.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
	c.mu.Unlock()
	return nil
}

// Blit samples tex, applies the rotation and scales the result into
// dst. Overlay regions overwrite the background (camera frames are
// opaque).
func (c *softwareContext) Blit(tex Texture, dst image.Rectangle, rot Rotation) error {
	if err := c.requireCurrent(); err != nil {
		return err
	}
	st, ok := tex.(*softwareTexture)
	if !ok {
		return fmt.Errorf("gpu: software context cannot sample %T", tex)
	}

	src, err := st.snapshot()
	if err != nil {
		return err
	}
	if rot == Rotate90 {
		src = rotate90(src)
	}

	c.mu.Lock()
	xdraw.ApproxBiLinear.Scale(c.back, dst, src, src.Bounds(), xdraw.Src, nil)
	c.mu.Unlock()
	return nil
}

// Present copies the drawn frame into the presented slot and notifies
// the sink.
func (c *softwareContext) Present() error {
	if err := c.requireCurrent(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.front == nil || c.front.Bounds() != c.back.Bounds() {
		c.front = image.NewRGBA(c.back.Bounds())
	}
	copy(c.front.Pix, c.back.Pix)
	front := c.front
	sink := c.sink
	c.mu.Unlock()

	if sink != nil {
		sink(front)
	}
	return nil
}

// SetPresentSink installs the presented-frame callback.
func (c *softwareContext) SetPresentSink(sink func(*image.RGBA)) {
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
}

// Snapshot returns a copy of the most recently presented frame.
func (c *softwareContext) Snapshot() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.front == nil {
		return nil
	}
	out := image.NewRGBA(c.front.Bounds())
	copy(out.Pix, c.front.Pix)
	return out
}

// Destroy releases the context. Idempotent.
func (c *softwareContext) Destroy() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true
	c.sink = nil
	c.mu.Unlock()

	c.backend.unbind(c)
	return nil
}

// softwareTexture holds the latest uploaded frame.
type softwareTexture struct {
	mu        sync.Mutex
	img       *image.RGBA
	destroyed bool
}

// Width returns the current frame width.
func (t *softwareTexture) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.img.Bounds().Dx()
}

// Height returns the current frame height.
func (t *softwareTexture) Height() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.img.Bounds().Dy()
}

// Upload replaces the texture contents. The pixel data is copied.
func (t *softwareTexture) Upload(width, height int, pix []byte) error {
	if width <= 0 || height <= 0 || len(pix) != width*height*4 {
		return fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidSize, width, height, len(pix))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return ErrTextureDestroyed
	}
	if b := t.img.Bounds(); b.Dx() != width || b.Dy() != height {
		t.img = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	copy(t.img.Pix, pix)
	return nil
}

// snapshot returns a stable copy for sampling.
func (t *softwareTexture) snapshot() (*image.RGBA, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return nil, ErrTextureDestroyed
	}
	out := image.NewRGBA(t.img.Bounds())
	copy(out.Pix, t.img.Pix)
	return out, nil
}

// Destroy releases the texture. Idempotent.
func (t *softwareTexture) Destroy() error {
	t.mu.Lock()
	t.destroyed = true
	t.mu.Unlock()
	return nil
}

// rotate90 rotates src 90 degrees clockwise.
func rotate90(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(h-1-y, x, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// Ensure interfaces are implemented.
var (
	_ Backend = (*SoftwareBackend)(nil)
	_ Context = (*softwareContext)(nil)
	_ Texture = (*softwareTexture)(nil)
)

func init() {
	Register("software", 10, func() (Backend, error) {
		return NewSoftware(), nil
	}, nil)
}
