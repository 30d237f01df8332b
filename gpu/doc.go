// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu defines the rendering backend abstraction used by the
// compositing pipeline: a Backend creates Contexts, a Context owns one
// presentable frame buffer and the textures drawn into it.
//
// Contexts are thread-affine. Exactly one context per backend may be
// current at a time; MakeCurrent on another context invalidates the
// previous binding. The pipeline serializes all context calls on a
// single render goroutine locked to its OS thread.
//
// Backends register themselves in a priority registry. The built-in
// software backend (pure CPU, image.RGBA) is always available; the
// wgpu backend in the gpu/wgpu sub-package registers itself when
// imported:
//
//	import _ "github.com/gogpu/duocam/gpu/wgpu"
//
//	backend, err := gpu.Default()
package gpu
