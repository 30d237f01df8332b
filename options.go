// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package duocam

import (
	"image"

	"github.com/gogpu/duocam/capture"
	"github.com/gogpu/duocam/gpu"
)

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithDriver selects the capture driver. Without this option the
// pipeline picks the best available registered driver at Start.
func WithDriver(d capture.Driver) Option {
	return func(p *Pipeline) {
		p.driver = d
	}
}

// WithBackend selects the rendering backend. Without this option the
// pipeline picks the best available registered backend at Start.
func WithBackend(b gpu.Backend) Option {
	return func(p *Pipeline) {
		p.backend = b
	}
}

// WithPreviewSink installs a callback receiving every presented
// preview frame. The image is owned by the pipeline and valid only for
// the duration of the call; sinks that keep pixels must copy.
//
// The sink runs on the render thread; a slow sink stalls the loop.
func WithPreviewSink(sink func(*image.RGBA)) Option {
	return func(p *Pipeline) {
		p.previewSink = sink
	}
}
