// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"image/color"
	"testing"

	"github.com/gogpu/duocam/config"
	"github.com/gogpu/duocam/gpu"
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

// newTestSurface builds a current software-backed surface for cfg.
func newTestSurface(t *testing.T, cfg config.Config, role Role) *Surface {
	t.Helper()
	backend := gpu.NewSoftware()
	if err := backend.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	w, h := cfg.OutputSize()
	ctx, err := backend.NewContext(w, h)
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	if err := ctx.MakeCurrent(); err != nil {
		t.Fatalf("MakeCurrent failed: %v", err)
	}
	return NewSurface(ctx, role, NewCompositor(ctx, cfg))
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Width = 16
	cfg.Height = 8
	cfg.OverlayFraction = 0.25
	cfg.OverlayMargin = 1
	return cfg
}

func TestCompositeLandscape(t *testing.T) {
	cfg := testConfig()
	s := newTestSurface(t, cfg, RolePreview)

	main, sub, err := s.Compositor().Setup()
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := main.Upload(16, 8, solidFrame(16, 8, red)); err != nil {
		t.Fatal(err)
	}
	if err := sub.Upload(16, 8, solidFrame(16, 8, blue)); err != nil {
		t.Fatal(err)
	}

	if err := s.Draw(); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if err := s.Swap(); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}

	snap := s.Context().Snapshot()
	if snap == nil {
		t.Fatal("no frame after Swap")
	}
	if b := snap.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Fatalf("output = %dx%d, want 16x8", b.Dx(), b.Dy())
	}

	// Overlay: 4 px wide, aspect-matched 2 px tall, inset 1 px from
	// the bottom-right corner of the 16x8 frame.
	if got := snap.RGBAAt(2, 2); got != red {
		t.Errorf("main region pixel = %v, want red", got)
	}
	if got := snap.RGBAAt(13, 6); got != blue {
		t.Errorf("overlay pixel = %v, want blue", got)
	}
	if got := snap.RGBAAt(15, 7); got != red {
		t.Errorf("margin pixel = %v, want red", got)
	}
}

func TestCompositePortrait(t *testing.T) {
	cfg := testConfig()
	cfg.Orientation = config.Portrait
	s := newTestSurface(t, cfg, RolePreview)

	main, sub, err := s.Compositor().Setup()
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := main.Upload(16, 8, solidFrame(16, 8, red)); err != nil {
		t.Fatal(err)
	}
	if err := sub.Upload(16, 8, solidFrame(16, 8, blue)); err != nil {
		t.Fatal(err)
	}

	if err := s.Draw(); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if err := s.Swap(); err != nil {
		t.Fatalf("Swap failed: %v", err)
	}

	snap := s.Context().Snapshot()
	if b := snap.Bounds(); b.Dx() != 8 || b.Dy() != 16 {
		t.Fatalf("portrait output = %dx%d, want 8x16", b.Dx(), b.Dy())
	}

	// Overlay: 2 px wide, 4 px tall (rotated aspect), inset 1 px.
	if got := snap.RGBAAt(3, 3); got != red {
		t.Errorf("main region pixel = %v, want red", got)
	}
	if got := snap.RGBAAt(5, 13); got != blue {
		t.Errorf("overlay pixel = %v, want blue", got)
	}
}

func TestSetupTwice(t *testing.T) {
	s := newTestSurface(t, testConfig(), RolePreview)

	if _, _, err := s.Compositor().Setup(); err != nil {
		t.Fatalf("first Setup failed: %v", err)
	}
	main, sub, err := s.Compositor().Setup()
	if !errors.Is(err, ErrAlreadySetup) {
		t.Fatalf("second Setup = %v, want ErrAlreadySetup", err)
	}
	if main != nil || sub != nil {
		t.Error("second Setup leaked textures")
	}
}

func TestDrawBeforeSetup(t *testing.T) {
	s := newTestSurface(t, testConfig(), RolePreview)
	if err := s.Draw(); !errors.Is(err, ErrNotSetup) {
		t.Errorf("Draw before Setup = %v, want ErrNotSetup", err)
	}
}

func TestStillLatest(t *testing.T) {
	s := newTestSurface(t, testConfig(), RoleStill)

	if s.Latest() != nil {
		t.Error("Latest non-nil before first pass")
	}

	main, sub, err := s.Compositor().Setup()
	if err != nil {
		t.Fatal(err)
	}
	if err := main.Upload(16, 8, solidFrame(16, 8, red)); err != nil {
		t.Fatal(err)
	}
	if err := sub.Upload(16, 8, solidFrame(16, 8, blue)); err != nil {
		t.Fatal(err)
	}
	if err := s.Draw(); err != nil {
		t.Fatal(err)
	}
	if err := s.Swap(); err != nil {
		t.Fatal(err)
	}

	latest := s.Latest()
	if latest == nil {
		t.Fatal("Latest nil after completed pass")
	}
	if got := latest.RGBAAt(2, 2); got != red {
		t.Errorf("still frame pixel = %v, want red", got)
	}
}

func TestPreviewHasNoLatest(t *testing.T) {
	s := newTestSurface(t, testConfig(), RolePreview)
	if _, _, err := s.Compositor().Setup(); err != nil {
		t.Fatal(err)
	}
	if err := s.Draw(); err != nil {
		t.Fatal(err)
	}
	if err := s.Swap(); err != nil {
		t.Fatal(err)
	}
	if s.Latest() != nil {
		t.Error("preview surface stored a still frame")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	s := newTestSurface(t, testConfig(), RolePreview)
	if _, _, err := s.Compositor().Setup(); err != nil {
		t.Fatal(err)
	}

	if err := s.Release(); err != nil {
		t.Errorf("first Release = %v", err)
	}
	if err := s.Release(); err != nil {
		t.Errorf("second Release = %v", err)
	}
	if err := s.Draw(); !errors.Is(err, ErrReleased) {
		t.Errorf("Draw after Release = %v, want ErrReleased", err)
	}
	if err := s.MakeCurrent(); !errors.Is(err, ErrReleased) {
		t.Errorf("MakeCurrent after Release = %v, want ErrReleased", err)
	}
}

func TestReleaseNeverCurrent(t *testing.T) {
	backend := gpu.NewSoftware()
	if err := backend.Init(); err != nil {
		t.Fatal(err)
	}
	ctx, err := backend.NewContext(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSurface(ctx, RolePreview, NewCompositor(ctx, testConfig()))
	if err := s.Release(); err != nil {
		t.Errorf("Release on never-current surface = %v", err)
	}
}
