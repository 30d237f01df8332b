// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gst

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/gogpu/duocam/capture"
)

// Default capture resolution requested from each camera.
const (
	defaultWidth  = 640
	defaultHeight = 480
)

// Option configures a Driver.
type Option func(*Driver)

// WithSize sets the per-camera capture resolution. The pipeline scales
// whatever the sensor delivers to this size.
func WithSize(width, height int) Option {
	return func(d *Driver) {
		d.width = width
		d.height = height
	}
}

// Driver opens V4L2 cameras through GStreamer pipelines.
type Driver struct {
	width  int
	height int
}

// NewDriver creates a GStreamer capture driver.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{width: defaultWidth, height: defaultHeight}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns "gst".
func (d *Driver) Name() string { return "gst" }

// Enumerate scans /dev for video nodes. The lowest-numbered node is
// reported as the back (main) camera, the next as the front camera.
func (d *Driver) Enumerate() (capture.Layout, error) {
	nodes, err := videoNodes()
	if err != nil {
		return capture.Layout{}, fmt.Errorf("gst: enumerate: %w", err)
	}
	if len(nodes) == 0 {
		return capture.Layout{}, fmt.Errorf("gst: %w: no video devices", capture.ErrDeviceUnavailable)
	}

	layout := capture.Layout{Back: nodes[0]}
	if len(nodes) > 1 {
		layout.Front = nodes[1]
	}
	capture.Slogger().Debug("gst: enumerated devices", "back", layout.Back, "front", layout.Front)
	return layout, nil
}

// Open builds and starts the capture pipeline for the given device
// node, suspending the caller until the pipeline reaches PLAYING or
// ctx is done.
func (d *Driver) Open(ctx context.Context, id string) (capture.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(id); err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("gst: open %s: %w", id, capture.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("gst: open %s: %w", id, capture.ErrDeviceUnavailable)
	}
	return openDevice(ctx, id, d.width, d.height)
}

// videoNodes lists /dev/video* entries sorted by name.
func videoNodes() ([]string, error) {
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return nil, err
	}
	var nodes []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "video") {
			nodes = append(nodes, filepath.Join("/dev", e.Name()))
		}
	}
	sort.Strings(nodes)
	return nodes, nil
}

// available reports whether at least one video node exists.
func available() bool {
	nodes, err := videoNodes()
	return err == nil && len(nodes) > 0
}

// Ensure Driver implements capture.Driver.
var _ capture.Driver = (*Driver)(nil)

func init() {
	// gst.Init is safe to call more than once.
	capture.Register("gst", 100, func() (capture.Driver, error) {
		gst.Init(nil)
		return NewDriver(), nil
	}, available)
}
