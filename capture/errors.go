// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package capture

import "errors"

// Capture errors.
var (
	// ErrDeviceUnavailable is returned by Open when another process or
	// session holds the device.
	ErrDeviceUnavailable = errors.New("capture: device unavailable")

	// ErrPermissionDenied is returned by Open when capture permission
	// was revoked between the caller's check and the open.
	ErrPermissionDenied = errors.New("capture: permission denied")

	// ErrDeviceDisconnected is returned by Open when the hardware is
	// removed mid-open.
	ErrDeviceDisconnected = errors.New("capture: device disconnected")

	// ErrDeviceLost signals on the fault channel that an open device
	// disconnected or reported a hardware error mid-session.
	ErrDeviceLost = errors.New("capture: device lost")

	// ErrConfiguration is returned by StartCapture when the capture
	// session cannot be configured for the requested targets.
	ErrConfiguration = errors.New("capture: session configuration failed")

	// ErrNoTargets is returned by StartCapture when no target is given.
	ErrNoTargets = errors.New("capture: no capture targets")

	// ErrClosed is returned when operating on a closed device.
	ErrClosed = errors.New("capture: device closed")
)

// DriverNotFoundError indicates a named driver is not registered.
type DriverNotFoundError struct {
	Name string
}

func (e *DriverNotFoundError) Error() string {
	return "capture: driver not found: " + e.Name
}

// DriverUnavailableError indicates a driver exists but is not available
// on this system.
type DriverUnavailableError struct {
	Name string
}

func (e *DriverUnavailableError) Error() string {
	return "capture: driver unavailable: " + e.Name
}
