// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu provides the GPU rendering backend for duocam using
// gogpu/wgpu's hardware abstraction layer.
//
// The backend opens a Vulkan device through hal, keeps camera frames in
// device textures, and composites them with a WGSL compute shader
// compiled at init time via gogpu/naga. Presented frames are read back
// through a staging buffer for the present sink and Snapshot.
//
// Importing the package registers the backend with priority 100:
//
//	import _ "github.com/gogpu/duocam/gpu/wgpu"
//
// If no Vulkan adapter is available the backend reports itself
// unavailable and selection falls back to the software backend.
package wgpu
