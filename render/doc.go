// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render manages the presentable surfaces and the composite
// draw pass of the duocam pipeline.
//
// A Surface owns one rendering context and one Compositor. The
// pipeline's render loop serializes MakeCurrent, Draw and Swap per
// surface within one pass; surfaces themselves never draw
// concurrently.
//
// The Compositor composites two camera streams into one frame: the
// main stream sampled full-frame and the sub stream scaled into a
// small overlay near the bottom-right corner. Orientation is fixed at
// construction; portrait output rotates both streams 90 degrees.
package render
