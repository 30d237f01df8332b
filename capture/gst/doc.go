// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gst provides a GStreamer-backed capture driver for V4L2
// cameras.
//
// Each device runs its own pipeline:
//
//	v4l2src → videoconvert → videoscale → capsfilter(RGBA) → appsink
//
// Frames are pulled from the appsink callback, copied out of the
// GStreamer buffer and fanned out to the capture targets. Pipeline bus
// errors are classified and surfaced on the device fault channel.
//
// Importing the package registers the driver with priority 100:
//
//	import _ "github.com/gogpu/duocam/capture/gst"
//
// The driver reports itself unavailable when no /dev/video* node
// exists, so selection falls back to lower-priority drivers.
package gst
