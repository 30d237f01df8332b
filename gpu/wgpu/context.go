// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	types "github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/duocam/gpu"
)

// fenceTimeoutNS bounds GPU waits at 5 seconds.
const fenceTimeoutNS = 5_000_000_000

// drawOp is one recorded composite operation, executed at Present.
type drawOp struct {
	tex   *texture // nil for clear
	dst   image.Rectangle
	mode  uint32 // 0 = rotate 0°, 1 = rotate 90°, 2 = clear
	clear [4]float32
}

// context is a wgpu rendering context: one frame storage buffer of
// packed RGBA8 pixels plus the recorded operations of the frame being
// built.
type context struct {
	backend *Backend
	width   int
	height  int

	mu        sync.Mutex
	frame     hal.Buffer
	dummy     hal.Texture
	dummyView hal.TextureView
	ops       []drawOp
	front     *image.RGBA
	sink      func(*image.RGBA)
	destroyed bool
}

// newContext allocates the frame storage buffer and a 1x1 dummy
// texture bound as the sample source of clear passes.
// Caller holds the backend lock.
func newContext(b *Backend, width, height int) (*context, error) {
	frame, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "duocam_frame",
		Size:  uint64(width * height * 4),
		Usage: types.BufferUsageStorage | types.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create frame buffer: %w", err)
	}

	dummy, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label: "duocam_dummy",
		Size: hal.Extent3D{
			Width:              1,
			Height:             1,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     types.TextureDimension2D,
		Format:        types.TextureFormatRGBA8Unorm,
		Usage:         types.TextureUsageTextureBinding,
	})
	if err != nil {
		b.device.DestroyBuffer(frame)
		return nil, fmt.Errorf("wgpu: create dummy texture: %w", err)
	}
	view, err := b.device.CreateTextureView(dummy, defaultViewDescriptor("duocam_dummy view"))
	if err != nil {
		b.device.DestroyTexture(dummy)
		b.device.DestroyBuffer(frame)
		return nil, fmt.Errorf("wgpu: create dummy view: %w", err)
	}

	return &context{
		backend:   b,
		width:     width,
		height:    height,
		frame:     frame,
		dummy:     dummy,
		dummyView: view,
	}, nil
}

// defaultViewDescriptor builds a view descriptor that inherits format
// and dimension from its texture.
func defaultViewDescriptor(label string) *hal.TextureViewDescriptor {
	return &hal.TextureViewDescriptor{
		Label:           label,
		Format:          types.TextureFormatUndefined,
		Dimension:       types.TextureViewDimensionUndefined,
		Aspect:          types.TextureAspectAll,
		BaseMipLevel:    0,
		MipLevelCount:   0,
		BaseArrayLayer:  0,
		ArrayLayerCount: 0,
	}
}

// Width returns the frame width in pixels.
func (c *context) Width() int { return c.width }

// Height returns the frame height in pixels.
func (c *context) Height() int { return c.height }

// MakeCurrent binds this context as the backend's current context.
// wgpu has no thread-bound context state of its own; the binding is
// tracked so the one-current-context invariant still holds.
func (c *context) MakeCurrent() error {
	c.mu.Lock()
	destroyed := c.destroyed
	c.mu.Unlock()
	if destroyed {
		return gpu.ErrContextDestroyed
	}

	c.backend.mu.Lock()
	c.backend.current = c
	c.backend.mu.Unlock()
	return nil
}

// IsCurrent reports whether this context is current.
func (c *context) IsCurrent() bool {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	return c.backend.current == c
}

// requireCurrent validates draw-path preconditions.
func (c *context) requireCurrent() error {
	c.mu.Lock()
	destroyed := c.destroyed
	c.mu.Unlock()
	if destroyed {
		return gpu.ErrContextDestroyed
	}
	if !c.IsCurrent() {
		return gpu.ErrNotCurrent
	}
	return nil
}

// CreateTexture allocates a stream-input texture.
func (c *context) CreateTexture(width, height int) (gpu.Texture, error) {
	if err := c.requireCurrent(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", gpu.ErrInvalidSize, width, height)
	}
	return newTexture(c.backend, width, height)
}

// Clear records a full-frame clear.
func (c *context) Clear(col color.Color) error {
	if err := c.requireCurrent(); err != nil {
		return err
	}
	r, g, b, a := col.RGBA()
	c.mu.Lock()
	c.ops = append(c.ops, drawOp{
		dst:  image.Rect(0, 0, c.width, c.height),
		mode: 2,
		clear: [4]float32{
			float32(r) / 0xffff,
			float32(g) / 0xffff,
			float32(b) / 0xffff,
			float32(a) / 0xffff,
		},
	})
	c.mu.Unlock()
	return nil
}

// Blit records a rotated, scaled texture copy into dst.
func (c *context) Blit(tex gpu.Texture, dst image.Rectangle, rot gpu.Rotation) error {
	if err := c.requireCurrent(); err != nil {
		return err
	}
	t, ok := tex.(*texture)
	if !ok {
		return fmt.Errorf("wgpu: context cannot sample %T", tex)
	}
	mode := uint32(0)
	if rot == gpu.Rotate90 {
		mode = 1
	}
	c.mu.Lock()
	c.ops = append(c.ops, drawOp{tex: t, dst: dst.Intersect(image.Rect(0, 0, c.width, c.height)), mode: mode})
	c.mu.Unlock()
	return nil
}

// Present executes the recorded operations in one submission, waits
// for the GPU, reads the frame back and publishes it.
func (c *context) Present() error {
	if err := c.requireCurrent(); err != nil {
		return err
	}

	c.mu.Lock()
	ops := c.ops
	c.ops = nil
	c.mu.Unlock()

	b := c.backend
	b.mu.Lock()
	device, queue, shader := b.device, b.queue, b.shader
	b.mu.Unlock()
	if device == nil || shader == nil {
		return ErrNotInitialized
	}

	if len(ops) > 0 {
		if err := c.dispatch(device, queue, shader, ops); err != nil {
			return err
		}
	}

	pix, err := c.readback(device, queue)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.front == nil {
		c.front = image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	}
	copy(c.front.Pix, pix)
	front := c.front
	sink := c.sink
	c.mu.Unlock()

	if sink != nil {
		sink(front)
	}
	return nil
}

// dispatch encodes one compute pass per recorded operation and submits
// them as a single command buffer.
func (c *context) dispatch(device hal.Device, queue hal.Queue, shader *compositeShader, ops []drawOp) error {
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "duocam_present",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("duocam_present"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	outputGroup, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "composite_output",
		Layout: shader.outputLayout,
		Entries: []types.BindGroupEntry{
			{Binding: 0, Resource: types.BufferBinding{
				Buffer: c.frame.NativeHandle(),
				Offset: 0,
				Size:   uint64(c.width * c.height * 4),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create output bind group: %w", err)
	}
	defer device.DestroyBindGroup(outputGroup)

	var cleanup []func()
	defer func() {
		for _, f := range cleanup {
			f()
		}
	}()

	for i := range ops {
		op := &ops[i]
		params, inputGroup, err := c.prepareOp(device, queue, shader, op)
		if err != nil {
			return err
		}
		cleanup = append(cleanup,
			func() { device.DestroyBuffer(params) },
			func() { device.DestroyBindGroup(inputGroup) },
		)

		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "composite"})
		pass.SetPipeline(shader.pipeline)
		pass.SetBindGroup(0, inputGroup, nil)
		pass.SetBindGroup(1, outputGroup, nil)
		groupsX := uint32(math.Ceil(float64(op.dst.Dx()) / 8))
		groupsY := uint32(math.Ceil(float64(op.dst.Dy()) / 8))
		pass.Dispatch(groupsX, groupsY, 1)
		pass.End()
	}

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer cmd.Destroy()

	fence, err := device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer device.DestroyFence(fence)

	if err := queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	if _, err := device.Wait(fence, 1, fenceTimeoutNS); err != nil {
		return fmt.Errorf("wgpu: wait: %w", err)
	}
	return nil
}

// prepareOp uploads the op's uniform parameters and builds its input
// bind group. Clears bind the 1x1 dummy texture as the sample source;
// the shader never reads it in clear mode.
func (c *context) prepareOp(device hal.Device, queue hal.Queue, shader *compositeShader, op *drawOp) (hal.Buffer, hal.BindGroup, error) {
	srcW, srcH := 1, 1
	srcView := c.dummyView
	if op.tex != nil {
		op.tex.mu.Lock()
		srcW, srcH = op.tex.width, op.tex.height
		srcView = op.tex.view
		op.tex.mu.Unlock()
	}

	data := make([]byte, paramsSize)
	le := binary.LittleEndian
	le.PutUint32(data[0:], uint32(op.dst.Min.X))
	le.PutUint32(data[4:], uint32(op.dst.Min.Y))
	le.PutUint32(data[8:], uint32(op.dst.Max.X))
	le.PutUint32(data[12:], uint32(op.dst.Max.Y))
	le.PutUint32(data[16:], uint32(srcW))
	le.PutUint32(data[20:], uint32(srcH))
	le.PutUint32(data[24:], uint32(c.width))
	le.PutUint32(data[28:], op.mode)
	for i, f := range op.clear {
		le.PutUint32(data[32+i*4:], math.Float32bits(f))
	}

	params, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "composite_params",
		Size:  paramsSize,
		Usage: types.BufferUsageUniform | types.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wgpu: create params buffer: %w", err)
	}
	queue.WriteBuffer(params, 0, data)

	inputGroup, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "composite_input",
		Layout: shader.inputLayout,
		Entries: []types.BindGroupEntry{
			{Binding: 0, Resource: types.BufferBinding{Buffer: params.NativeHandle(), Offset: 0, Size: paramsSize}},
			{Binding: 1, Resource: types.TextureViewBinding{TextureView: srcView.NativeHandle()}},
		},
	})
	if err != nil {
		device.DestroyBuffer(params)
		return nil, nil, fmt.Errorf("wgpu: create input bind group: %w", err)
	}
	return params, inputGroup, nil
}

// readback copies the frame buffer into a mappable staging buffer and
// reads it back through the queue.
func (c *context) readback(device hal.Device, queue hal.Queue) ([]byte, error) {
	size := uint64(c.width * c.height * 4)

	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "duocam_readback",
		Size:  size,
		Usage: types.BufferUsageMapRead | types.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer device.DestroyBuffer(staging)

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "duocam_readback",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if err := encoder.BeginEncoding("duocam_readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	encoder.CopyBufferToBuffer(c.frame, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer cmd.Destroy()

	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer device.DestroyFence(fence)

	if err := queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		return nil, fmt.Errorf("wgpu: submit readback: %w", err)
	}
	if _, err := device.Wait(fence, 1, fenceTimeoutNS); err != nil {
		return nil, fmt.Errorf("wgpu: wait readback: %w", err)
	}

	pix := make([]byte, size)
	if err := queue.ReadBuffer(staging, 0, pix); err != nil {
		return nil, fmt.Errorf("wgpu: read staging buffer: %w", err)
	}
	return pix, nil
}

// SetPresentSink installs the presented-frame callback.
func (c *context) SetPresentSink(sink func(*image.RGBA)) {
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
}

// Snapshot returns a copy of the most recently presented frame.
func (c *context) Snapshot() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.front == nil {
		return nil
	}
	out := image.NewRGBA(c.front.Bounds())
	copy(out.Pix, c.front.Pix)
	return out
}

// Destroy releases GPU resources. Idempotent.
func (c *context) Destroy() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true
	frame, dummy, view := c.frame, c.dummy, c.dummyView
	c.frame, c.dummy, c.dummyView = nil, nil, nil
	c.sink = nil
	c.mu.Unlock()

	b := c.backend
	b.mu.Lock()
	if b.current == c {
		b.current = nil
	}
	device := b.device
	b.mu.Unlock()

	if device != nil {
		if view != nil {
			device.DestroyTextureView(view)
		}
		if dummy != nil {
			device.DestroyTexture(dummy)
		}
		if frame != nil {
			device.DestroyBuffer(frame)
		}
	}
	return nil
}

// texture is a device texture fed by camera frames.
type texture struct {
	backend *Backend

	mu        sync.Mutex
	tex       hal.Texture
	view      hal.TextureView
	width     int
	height    int
	destroyed bool
}

// newTexture allocates a sampled texture of the given size.
func newTexture(b *Backend, width, height int) (*texture, error) {
	b.mu.Lock()
	device := b.device
	b.mu.Unlock()
	if device == nil {
		return nil, ErrNotInitialized
	}

	t := &texture{backend: b, width: width, height: height}
	if err := t.allocate(device, width, height); err != nil {
		return nil, err
	}
	return t, nil
}

// allocate creates the hal texture and its view. Caller holds t.mu or
// has exclusive access.
func (t *texture) allocate(device hal.Device, width, height int) error {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: "duocam_input",
		Size: hal.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     types.TextureDimension2D,
		Format:        types.TextureFormatRGBA8Unorm,
		Usage:         types.TextureUsageCopyDst | types.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create input texture: %w", err)
	}
	view, err := device.CreateTextureView(tex, defaultViewDescriptor("duocam_input view"))
	if err != nil {
		device.DestroyTexture(tex)
		return fmt.Errorf("wgpu: create input view: %w", err)
	}
	t.tex, t.view = tex, view
	t.width, t.height = width, height
	return nil
}

// Width returns the current frame width.
func (t *texture) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

// Height returns the current frame height.
func (t *texture) Height() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.height
}

// Upload writes an RGBA frame into the texture, reallocating if the
// incoming frame size changed.
func (t *texture) Upload(width, height int, pix []byte) error {
	if width <= 0 || height <= 0 || len(pix) != width*height*4 {
		return fmt.Errorf("%w: %dx%d with %d bytes", gpu.ErrInvalidSize, width, height, len(pix))
	}

	b := t.backend
	b.mu.Lock()
	device, queue := b.device, b.queue
	b.mu.Unlock()
	if device == nil {
		return ErrNotInitialized
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return gpu.ErrTextureDestroyed
	}
	if width != t.width || height != t.height {
		device.DestroyTextureView(t.view)
		device.DestroyTexture(t.tex)
		if err := t.allocate(device, width, height); err != nil {
			return err
		}
	}

	queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: 0, Y: 0, Z: 0},
			Aspect:   types.TextureAspectAll,
		},
		pix,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(width * 4),
			RowsPerImage: uint32(height),
		},
		&hal.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// Destroy releases the texture. Idempotent.
func (t *texture) Destroy() error {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return nil
	}
	t.destroyed = true
	tex, view := t.tex, t.view
	t.tex, t.view = nil, nil
	t.mu.Unlock()

	b := t.backend
	b.mu.Lock()
	device := b.device
	b.mu.Unlock()
	if device != nil {
		if view != nil {
			device.DestroyTextureView(view)
		}
		if tex != nil {
			device.DestroyTexture(tex)
		}
	}
	return nil
}

// Ensure interfaces are implemented.
var (
	_ gpu.Context = (*context)(nil)
	_ gpu.Texture = (*texture)(nil)
)
