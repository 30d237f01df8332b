// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/duocam/config"
	"github.com/gogpu/duocam/gpu"
)

// Compositor errors.
var (
	// ErrAlreadySetup is returned by a second Setup call on the same
	// compositor.
	ErrAlreadySetup = errors.New("render: compositor already set up")

	// ErrNotSetup is returned by Draw before Setup has succeeded.
	ErrNotSetup = errors.New("render: compositor not set up")
)

// Compositor composites two camera streams into the owning surface's
// frame: the main stream full-frame, the sub stream as a
// picture-in-picture overlay anchored at the bottom-right corner.
//
// Rotation and overlay geometry are fixed at construction from the
// pipeline configuration.
type Compositor struct {
	ctx gpu.Context
	rot gpu.Rotation

	capWidth  int
	capHeight int
	fraction  float64
	margin    int

	mu    sync.Mutex
	main  gpu.Texture
	sub   gpu.Texture
	ready bool
}

// NewCompositor creates a compositor drawing into ctx. The context
// must have been created at cfg.OutputSize().
func NewCompositor(ctx gpu.Context, cfg config.Config) *Compositor {
	rot := gpu.Rotate0
	if cfg.Orientation == config.Portrait {
		rot = gpu.Rotate90
	}
	return &Compositor{
		ctx:       ctx,
		rot:       rot,
		capWidth:  cfg.Width,
		capHeight: cfg.Height,
		fraction:  cfg.OverlayFraction,
		margin:    cfg.OverlayMargin,
	}
}

// Setup allocates the two stream-input textures. Must be called
// exactly once, with the owning surface current. A second call fails
// with ErrAlreadySetup and allocates nothing.
func (c *Compositor) Setup() (main, sub gpu.Texture, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil, nil, ErrAlreadySetup
	}

	main, err = c.ctx.CreateTexture(c.capWidth, c.capHeight)
	if err != nil {
		return nil, nil, fmt.Errorf("render: create main texture: %w", err)
	}
	sub, err = c.ctx.CreateTexture(c.capWidth, c.capHeight)
	if err != nil {
		main.Destroy()
		return nil, nil, fmt.Errorf("render: create sub texture: %w", err)
	}

	c.main, c.sub = main, sub
	c.ready = true
	slogger().Debug("render: compositor textures allocated",
		"size", fmt.Sprintf("%dx%d", c.capWidth, c.capHeight),
		"rotation", c.rot,
	)
	return main, sub, nil
}

// Draw runs one composite pass: clear, main stream full-frame, sub
// stream into the overlay rectangle. Deterministic for fixed texture
// contents.
func (c *Compositor) Draw() error {
	c.mu.Lock()
	main, sub, ready := c.main, c.sub, c.ready
	c.mu.Unlock()
	if !ready {
		return ErrNotSetup
	}

	if err := c.ctx.Clear(color.Black); err != nil {
		return err
	}
	outW, outH := c.ctx.Width(), c.ctx.Height()
	if err := c.ctx.Blit(main, image.Rect(0, 0, outW, outH), c.rot); err != nil {
		return err
	}
	return c.ctx.Blit(sub, c.overlayRect(outW, outH), c.rot)
}

// overlayRect computes the picture-in-picture rectangle: fraction of
// the output width, source aspect preserved after rotation, inset
// margin pixels from the bottom-right corner.
func (c *Compositor) overlayRect(outW, outH int) image.Rectangle {
	w := int(float64(outW) * c.fraction)
	if w < 1 {
		w = 1
	}
	// Aspect after rotation: a 90° rotated stream displays with its
	// capture axes swapped.
	srcW, srcH := c.capWidth, c.capHeight
	if c.rot == gpu.Rotate90 {
		srcW, srcH = srcH, srcW
	}
	h := w * srcH / srcW
	if h < 1 {
		h = 1
	}
	x1 := outW - c.margin
	y1 := outH - c.margin
	return image.Rect(x1-w, y1-h, x1, y1)
}

// release destroys the stream textures. Idempotent; called by the
// owning surface.
func (c *Compositor) release() error {
	c.mu.Lock()
	main, sub := c.main, c.sub
	c.main, c.sub = nil, nil
	c.ready = false
	c.mu.Unlock()

	var first error
	if main != nil {
		first = main.Destroy()
	}
	if sub != nil {
		if err := sub.Destroy(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
