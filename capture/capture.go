// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package capture

import (
	"context"
	"time"
)

// Frame is a single decoded camera frame with metadata.
//
// Data holds tightly packed RGBA pixels (Width*Height*4 bytes). The
// slice is owned by the producer and is only valid for the duration of
// the Target.WriteFrame call; targets that keep pixels must copy.
type Frame struct {
	// Seq is the per-device monotonic sequence number.
	Seq uint64

	// Timestamp is when the frame was captured or decoded.
	Timestamp time.Time

	// Width in pixels.
	Width int

	// Height in pixels.
	Height int

	// Data contains the RGBA frame data.
	Data []byte

	// DeviceID identifies the producing device.
	DeviceID string

	// TraceID is a unique identifier for tracing a frame through the
	// pipeline.
	TraceID string
}

// Target receives frames from a capture session.
//
// WriteFrame is called on a goroutine the core does not control and
// must return quickly; it must not perform rendering work.
type Target interface {
	WriteFrame(Frame) error
}

// Fault reports a steady-state device failure to the pipeline.
type Fault struct {
	// DeviceID identifies the faulting device.
	DeviceID string

	// Err classifies the failure, typically wrapping ErrDeviceLost.
	Err error

	// Time is when the fault was observed.
	Time time.Time
}

// Device is one open camera.
//
// A device streams to the fixed set of targets given to StartCapture.
// Targets must be created before StartCapture and must outlive the
// device's open lifetime.
type Device interface {
	// ID returns the device identity used to open it.
	ID() string

	// StartCapture creates one capture session that continuously
	// streams frames to all listed targets simultaneously. The device
	// produces frames until Close. Returns ErrConfiguration if the
	// session cannot be configured and ErrNoTargets for an empty
	// target list.
	StartCapture(targets ...Target) error

	// Faults returns the channel on which mid-session device failures
	// are reported. The channel is buffered; a reader that falls
	// behind loses older faults rather than blocking the device.
	Faults() <-chan Fault

	// Close stops capture and releases the hardware handle.
	// Idempotent; safe to call even if open never completed.
	Close() error
}

// Layout names the enumerated camera roles.
type Layout struct {
	// Back is the device id of the rear-facing (main) camera.
	Back string

	// Front is the device id of the front-facing (sub) camera.
	Front string
}

// Driver opens capture devices for one capture technology.
type Driver interface {
	// Name returns the driver identifier (e.g., "gst", "fake").
	Name() string

	// Enumerate reports the back/front device ids available to this
	// driver.
	Enumerate() (Layout, error)

	// Open acquires the device with the given id. Open suspends the
	// caller until the device reports ready, the open fails, or ctx
	// is done. Failure modes: ErrDeviceUnavailable, ErrPermissionDenied,
	// ErrDeviceDisconnected, or the context error.
	Open(ctx context.Context, id string) (Device, error)
}
