// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

// solidFrame builds a width*height RGBA frame of one color.
func solidFrame(width, height int, c color.RGBA) []byte {
	pix := make([]byte, width*height*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i+0] = c.R
		pix[i+1] = c.G
		pix[i+2] = c.B
		pix[i+3] = c.A
	}
	return pix
}

func newCurrentContext(t *testing.T, width, height int) (*SoftwareBackend, Context) {
	t.Helper()
	b := NewSoftware()
	if err := b.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	ctx, err := b.NewContext(width, height)
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	if err := ctx.MakeCurrent(); err != nil {
		t.Fatalf("MakeCurrent failed: %v", err)
	}
	return b, ctx
}

func TestContextRequiresCurrent(t *testing.T) {
	b := NewSoftware()
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	ctx, err := b.NewContext(8, 8)
	if err != nil {
		t.Fatal(err)
	}

	if err := ctx.Clear(color.Black); !errors.Is(err, ErrNotCurrent) {
		t.Errorf("Clear before MakeCurrent = %v, want ErrNotCurrent", err)
	}
	if err := ctx.Present(); !errors.Is(err, ErrNotCurrent) {
		t.Errorf("Present before MakeCurrent = %v, want ErrNotCurrent", err)
	}
	if _, err := ctx.CreateTexture(4, 4); !errors.Is(err, ErrNotCurrent) {
		t.Errorf("CreateTexture before MakeCurrent = %v, want ErrNotCurrent", err)
	}
}

func TestMakeCurrentInvalidatesPrevious(t *testing.T) {
	b, a := newCurrentContext(t, 8, 8)
	c, err := b.NewContext(8, 8)
	if err != nil {
		t.Fatal(err)
	}

	if !a.IsCurrent() {
		t.Fatal("context a not current after MakeCurrent")
	}
	if err := c.MakeCurrent(); err != nil {
		t.Fatal(err)
	}
	if a.IsCurrent() {
		t.Error("context a still current after binding context c")
	}
	if !c.IsCurrent() {
		t.Error("context c not current after MakeCurrent")
	}
	if err := a.Clear(color.Black); !errors.Is(err, ErrNotCurrent) {
		t.Errorf("Clear on unbound context = %v, want ErrNotCurrent", err)
	}
}

func TestTextureUploadAndBlit(t *testing.T) {
	_, ctx := newCurrentContext(t, 16, 8)

	tex, err := ctx.CreateTexture(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	red := color.RGBA{R: 255, A: 255}
	if err := tex.Upload(4, 4, solidFrame(4, 4, red)); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if err := ctx.Clear(color.Black); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Blit(tex, image.Rect(0, 0, 16, 8), Rotate0); err != nil {
		t.Fatalf("Blit failed: %v", err)
	}
	if err := ctx.Present(); err != nil {
		t.Fatal(err)
	}

	snap := ctx.Snapshot()
	if snap == nil {
		t.Fatal("Snapshot nil after Present")
	}
	if got := snap.RGBAAt(8, 4); got != red {
		t.Errorf("pixel = %v, want %v", got, red)
	}
}

func TestUploadSizeMismatch(t *testing.T) {
	_, ctx := newCurrentContext(t, 8, 8)
	tex, err := ctx.CreateTexture(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := tex.Upload(4, 4, make([]byte, 7)); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Upload short buffer = %v, want ErrInvalidSize", err)
	}
}

func TestSnapshotBeforePresent(t *testing.T) {
	_, ctx := newCurrentContext(t, 8, 8)
	if snap := ctx.Snapshot(); snap != nil {
		t.Error("Snapshot before Present non-nil, want nil")
	}
}

func TestPresentSink(t *testing.T) {
	_, ctx := newCurrentContext(t, 8, 8)

	var presented int
	ctx.SetPresentSink(func(img *image.RGBA) {
		presented++
		if img.Bounds().Dx() != 8 {
			t.Errorf("sink width = %d, want 8", img.Bounds().Dx())
		}
	})

	if err := ctx.Clear(color.White); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Present(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Present(); err != nil {
		t.Fatal(err)
	}
	if presented != 2 {
		t.Errorf("sink called %d times, want 2", presented)
	}
}

func TestRotate90(t *testing.T) {
	// 2x1: [red, blue] rotates clockwise into 1x2: [red; blue].
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	src.SetRGBA(0, 0, red)
	src.SetRGBA(1, 0, blue)

	dst := rotate90(src)
	if b := dst.Bounds(); b.Dx() != 1 || b.Dy() != 2 {
		t.Fatalf("rotated bounds = %v, want 1x2", b)
	}
	if got := dst.RGBAAt(0, 0); got != red {
		t.Errorf("top pixel = %v, want red", got)
	}
	if got := dst.RGBAAt(0, 1); got != blue {
		t.Errorf("bottom pixel = %v, want blue", got)
	}
}

func TestDestroyIdempotent(t *testing.T) {
	b, ctx := newCurrentContext(t, 8, 8)
	tex, err := ctx.CreateTexture(4, 4)
	if err != nil {
		t.Fatal(err)
	}

	if err := tex.Destroy(); err != nil {
		t.Errorf("first texture Destroy = %v", err)
	}
	if err := tex.Destroy(); err != nil {
		t.Errorf("second texture Destroy = %v", err)
	}
	if err := ctx.Destroy(); err != nil {
		t.Errorf("first context Destroy = %v", err)
	}
	if err := ctx.Destroy(); err != nil {
		t.Errorf("second context Destroy = %v", err)
	}
	if ctx.IsCurrent() {
		t.Error("destroyed context still current")
	}
	if err := ctx.MakeCurrent(); !errors.Is(err, ErrContextDestroyed) {
		t.Errorf("MakeCurrent on destroyed = %v, want ErrContextDestroyed", err)
	}
	b.Close()
}

func TestRegistryDefaultSoftware(t *testing.T) {
	backend, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	// Only software is registered in this test binary.
	if backend.Name() != "software" {
		t.Errorf("Default backend = %q, want software", backend.Name())
	}
}
