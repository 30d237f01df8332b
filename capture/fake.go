// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package capture

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FakeDriver is an in-memory capture driver for tests and demos.
//
// Devices are declared up front; frames are injected with
// FakeDevice.Push, which delivers synchronously on the calling
// goroutine, modeling the hardware callback thread.
type FakeDriver struct {
	mu      sync.Mutex
	devices map[string]*FakeDevice
	layout  Layout
}

// NewFakeDriver creates a fake driver with a back camera "0" and a
// front camera "1".
func NewFakeDriver() *FakeDriver {
	d := &FakeDriver{
		devices: make(map[string]*FakeDevice),
		layout:  Layout{Back: "0", Front: "1"},
	}
	d.AddDevice("0")
	d.AddDevice("1")
	return d
}

// Name returns "fake".
func (d *FakeDriver) Name() string { return "fake" }

// AddDevice declares a device id, replacing any existing declaration.
// The returned device is not open until Open succeeds for its id.
func (d *FakeDriver) AddDevice(id string) *FakeDevice {
	dev := &FakeDevice{
		id:     id,
		faults: make(chan Fault, 4),
	}
	d.mu.Lock()
	d.devices[id] = dev
	d.mu.Unlock()
	return dev
}

// Device returns the declared device with the given id, or nil.
func (d *FakeDriver) Device(id string) *FakeDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.devices[id]
}

// SetLayout overrides the enumerated back/front ids.
func (d *FakeDriver) SetLayout(l Layout) {
	d.mu.Lock()
	d.layout = l
	d.mu.Unlock()
}

// Enumerate reports the configured layout.
func (d *FakeDriver) Enumerate() (Layout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.layout, nil
}

// Open acquires a declared device. Unknown ids fail with
// ErrDeviceUnavailable; opening an already-open device fails the same
// way, matching exclusive hardware ownership. A device marked with
// DenyPermission fails with ErrPermissionDenied.
func (d *FakeDriver) Open(ctx context.Context, id string) (Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	dev, ok := d.devices[id]
	d.mu.Unlock()
	if !ok {
		return nil, ErrDeviceUnavailable
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()
	switch {
	case dev.denied:
		return nil, ErrPermissionDenied
	case dev.disconnected:
		return nil, ErrDeviceDisconnected
	case dev.open:
		return nil, ErrDeviceUnavailable
	}
	dev.open = true
	dev.closed = false
	slogger().Info("fake: device opened", "id", id)
	return dev, nil
}

// FakeDevice is the device implementation behind FakeDriver.
//
// The zero value is not usable; obtain devices through the driver.
type FakeDevice struct {
	id     string
	faults chan Fault

	mu           sync.Mutex
	open         bool
	closed       bool
	capturing    bool
	denied       bool
	disconnected bool
	failStart    bool
	targets      []Target
	seq          uint64

	// counters for assertions
	startCalls int
	closeCalls int
}

// ID returns the device identity.
func (d *FakeDevice) ID() string { return d.id }

// DenyPermission makes the next Open fail with ErrPermissionDenied.
func (d *FakeDevice) DenyPermission() {
	d.mu.Lock()
	d.denied = true
	d.mu.Unlock()
}

// FailConfiguration makes the next StartCapture fail with
// ErrConfiguration.
func (d *FakeDevice) FailConfiguration() {
	d.mu.Lock()
	d.failStart = true
	d.mu.Unlock()
}

// StartCapture records the target set and begins accepting Push calls.
func (d *FakeDevice) StartCapture(targets ...Target) error {
	if len(targets) == 0 {
		return ErrNoTargets
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.startCalls++
	if d.closed || !d.open {
		return ErrClosed
	}
	if d.failStart {
		return ErrConfiguration
	}
	d.capturing = true
	d.targets = append([]Target(nil), targets...)
	return nil
}

// Push injects one frame, delivering it synchronously to every capture
// target. Frames pushed while not capturing are dropped, matching a
// sensor that is running but unobserved.
func (d *FakeDevice) Push(width, height int, data []byte) {
	d.mu.Lock()
	if !d.capturing || d.closed {
		d.mu.Unlock()
		return
	}
	d.seq++
	frame := Frame{
		Seq:       d.seq,
		Timestamp: time.Now(),
		Width:     width,
		Height:    height,
		Data:      data,
		DeviceID:  d.id,
		TraceID:   uuid.NewString(),
	}
	targets := d.targets
	d.mu.Unlock()

	for _, t := range targets {
		if err := t.WriteFrame(frame); err != nil {
			slogger().Warn("fake: target rejected frame", "id", d.id, "seq", frame.Seq, "error", err)
		}
	}
}

// Disconnect simulates hardware removal mid-session: capture stops and
// an ErrDeviceLost fault is reported.
func (d *FakeDevice) Disconnect() {
	d.mu.Lock()
	d.capturing = false
	d.disconnected = true
	d.mu.Unlock()

	d.reportFault(ErrDeviceLost)
}

// Faults returns the device fault channel.
func (d *FakeDevice) Faults() <-chan Fault { return d.faults }

// Close stops capture and releases the device. Idempotent.
func (d *FakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeCalls++
	if d.closed {
		return nil
	}
	d.closed = true
	d.open = false
	d.capturing = false
	d.targets = nil
	return nil
}

// StartCalls returns how many times StartCapture was invoked.
func (d *FakeDevice) StartCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.startCalls
}

// CloseCalls returns how many times Close was invoked.
func (d *FakeDevice) CloseCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeCalls
}

// reportFault delivers a fault without ever blocking the caller.
func (d *FakeDevice) reportFault(err error) {
	f := Fault{DeviceID: d.id, Err: err, Time: time.Now()}
	select {
	case d.faults <- f:
	default:
		slogger().Warn("fake: fault dropped, channel full", "id", d.id, "error", err)
	}
}

// Ensure interfaces are implemented.
var (
	_ Driver = (*FakeDriver)(nil)
	_ Device = (*FakeDevice)(nil)
)

func init() {
	Register("fake", 10, func() (Driver, error) {
		return NewFakeDriver(), nil
	}, nil)
}
