// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"image"
	"image/color"
)

// GPU errors.
var (
	// ErrNotCurrent is returned by draw-path calls when the context is
	// not the thread-current context of its backend.
	ErrNotCurrent = errors.New("gpu: context not current")

	// ErrContextDestroyed is returned when operating on a destroyed
	// context.
	ErrContextDestroyed = errors.New("gpu: context destroyed")

	// ErrTextureDestroyed is returned when operating on a destroyed
	// texture.
	ErrTextureDestroyed = errors.New("gpu: texture destroyed")

	// ErrInvalidSize is returned for non-positive dimensions or a pixel
	// buffer that does not match the declared frame size.
	ErrInvalidSize = errors.New("gpu: invalid size")
)

// Rotation is the composite rotation applied when sampling a texture.
type Rotation uint8

const (
	// Rotate0 samples the texture as-is.
	Rotate0 Rotation = iota

	// Rotate90 rotates the sampled content 90 degrees clockwise,
	// compensating a sensor-vs-display orientation mismatch.
	Rotate90
)

// String returns a human-readable name for the rotation.
func (r Rotation) String() string {
	switch r {
	case Rotate0:
		return "0°"
	case Rotate90:
		return "90°"
	default:
		return "0°"
	}
}

// Backend is one rendering technology (software, wgpu).
//
// A backend tracks which of its contexts is current; the pipeline
// switches the current context explicitly between surfaces within one
// render pass.
type Backend interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Init initializes the backend. Must be called before NewContext.
	Init() error

	// NewContext creates a rendering context with a presentable frame
	// buffer of the given size. The context is not current until
	// MakeCurrent.
	NewContext(width, height int) (Context, error)

	// Close releases all backend resources. Contexts created by the
	// backend must be destroyed first.
	Close()
}

// Context is one presentable rendering target and its drawing state.
//
// All methods except MakeCurrent and Destroy require the context to be
// current and are only legal on the render thread.
type Context interface {
	// Width returns the frame buffer width in pixels.
	Width() int

	// Height returns the frame buffer height in pixels.
	Height() int

	// MakeCurrent binds this context as its backend's current context,
	// unbinding whichever context was current before. Calling
	// MakeCurrent on a destroyed context fails with
	// ErrContextDestroyed.
	MakeCurrent() error

	// IsCurrent reports whether this context is the backend's current
	// context.
	IsCurrent() bool

	// CreateTexture allocates a stream-input texture. Textures receive
	// frames asynchronously via Upload and are read-only for drawing.
	CreateTexture(width, height int) (Texture, error)

	// Clear fills the frame buffer with the given color.
	Clear(c color.Color) error

	// Blit samples the texture's current contents, applies the
	// rotation, scales to dst and writes it into the frame buffer.
	Blit(tex Texture, dst image.Rectangle, rot Rotation) error

	// Present completes the frame: the drawn contents become the
	// latest presented frame, observable via Snapshot and delivered to
	// the present sink if one is set.
	Present() error

	// SetPresentSink installs a callback invoked with each presented
	// frame. The image passed to the sink is owned by the context and
	// valid only for the duration of the call. Pass nil to remove.
	SetPresentSink(sink func(*image.RGBA))

	// Snapshot returns a copy of the most recently presented frame, or
	// nil if nothing has been presented yet.
	Snapshot() *image.RGBA

	// Destroy releases the context. Idempotent; safe on a context that
	// was never current. A destroyed current context is unbound.
	Destroy() error
}

// Texture is a GPU-backed stream-input texture.
//
// Upload is safe to call from capture goroutines while the render
// thread reads the texture; implementations synchronize internally.
type Texture interface {
	// Width returns the width of the most recently uploaded frame, or
	// the allocation width before the first upload.
	Width() int

	// Height returns the height of the most recently uploaded frame,
	// or the allocation height before the first upload.
	Height() int

	// Upload replaces the texture contents with an RGBA frame of the
	// given size. The pixel slice is copied; the caller keeps
	// ownership.
	Upload(width, height int, pix []byte) error

	// Destroy releases the texture. Idempotent.
	Destroy() error
}
