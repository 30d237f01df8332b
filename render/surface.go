// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"image"
	"sync"

	"github.com/gogpu/duocam/gpu"
)

// ErrReleased is returned by surface operations after Release.
var ErrReleased = errors.New("render: surface released")

// Role distinguishes what a surface's frames are for.
type Role int

const (
	// RolePreview presents composited frames on screen.
	RolePreview Role = iota

	// RoleStill keeps the latest completed frame for still capture.
	RoleStill
)

// String returns a human-readable role name.
func (r Role) String() string {
	switch r {
	case RolePreview:
		return "preview"
	case RoleStill:
		return "still"
	default:
		return "unknown"
	}
}

// Surface owns one rendering context and the compositor drawing into
// it. The binding to a presentable target happens at context creation
// and is never rebound.
//
// The render loop serializes MakeCurrent, Draw and Swap per surface
// within one pass. Release may be called from any goroutine.
type Surface struct {
	ctx  gpu.Context
	role Role
	comp *Compositor

	mu       sync.Mutex
	latest   *image.RGBA
	released bool
}

// NewSurface wraps ctx and its compositor as a surface of the given
// role.
func NewSurface(ctx gpu.Context, role Role, comp *Compositor) *Surface {
	return &Surface{ctx: ctx, role: role, comp: comp}
}

// Role returns the surface role.
func (s *Surface) Role() Role { return s.role }

// Context returns the surface's rendering context.
func (s *Surface) Context() gpu.Context { return s.ctx }

// Compositor returns the compositor drawing into this surface.
func (s *Surface) Compositor() *Compositor { return s.comp }

// MakeCurrent binds the surface's context as the current context of
// its backend, invalidating whichever surface was current before.
func (s *Surface) MakeCurrent() error {
	if s.isReleased() {
		return ErrReleased
	}
	return s.ctx.MakeCurrent()
}

// Draw runs the compositor's draw pass. The surface must be current.
func (s *Surface) Draw() error {
	if s.isReleased() {
		return ErrReleased
	}
	return s.comp.Draw()
}

// Swap completes the frame. Preview surfaces present it; still
// surfaces store it as the latest completed frame.
func (s *Surface) Swap() error {
	if s.isReleased() {
		return ErrReleased
	}
	if err := s.ctx.Present(); err != nil {
		return err
	}
	if s.role == RoleStill {
		snap := s.ctx.Snapshot()
		s.mu.Lock()
		s.latest = snap
		s.mu.Unlock()
	}
	return nil
}

// Latest returns the most recent completed frame of a still surface,
// or nil before the first completed pass and for preview surfaces.
func (s *Surface) Latest() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Release destroys the compositor textures and the context binding.
// Idempotent; safe on a surface that was never current.
func (s *Surface) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	s.mu.Unlock()

	err := s.comp.release()
	if derr := s.ctx.Destroy(); derr != nil && err == nil {
		err = derr
	}
	slogger().Debug("render: surface released", "role", s.role)
	return err
}

func (s *Surface) isReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
