// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package duocam

import "sync/atomic"

// FrameClock is the shared frame-ready signal between the capture
// callbacks and the render loop.
//
// Every camera frame arrival ticks the clock; the render loop compares
// generations between polls and performs one composite pass per
// observed change. Any number of ticks between two polls coalesce into
// exactly one pass.
//
// The clock is monotonically nondecreasing. It is a change signal, not
// an inter-camera ordering primitive: a generation says "at least one
// new frame exists", never which camera produced it.
type FrameClock struct {
	gen atomic.Int64
}

// Tick signals that a new frame is ready. Safe from any goroutine.
func (c *FrameClock) Tick() {
	c.gen.Add(1)
}

// Gen returns the current clock generation.
func (c *FrameClock) Gen() int64 {
	return c.gen.Load()
}
