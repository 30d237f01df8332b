// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package capture

import (
	"context"
	"errors"
	"testing"
)

// recordingTarget collects the frames it receives.
type recordingTarget struct {
	frames []Frame
}

func (t *recordingTarget) WriteFrame(f Frame) error {
	t.frames = append(t.frames, f)
	return nil
}

func TestFakeDriverEnumerate(t *testing.T) {
	d := NewFakeDriver()
	layout, err := d.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if layout.Back != "0" || layout.Front != "1" {
		t.Errorf("layout = %+v, want back=0 front=1", layout)
	}
}

func TestOpenUnknownDevice(t *testing.T) {
	d := NewFakeDriver()
	_, err := d.Open(context.Background(), "42")
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Open(42) = %v, want ErrDeviceUnavailable", err)
	}
}

func TestOpenExclusive(t *testing.T) {
	d := NewFakeDriver()
	dev, err := d.Open(context.Background(), "0")
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	defer dev.Close()

	if _, err := d.Open(context.Background(), "0"); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("second Open = %v, want ErrDeviceUnavailable", err)
	}
}

func TestOpenPermissionDenied(t *testing.T) {
	d := NewFakeDriver()
	d.AddDevice("2").DenyPermission()

	_, err := d.Open(context.Background(), "2")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Open = %v, want ErrPermissionDenied", err)
	}
}

func TestOpenCancelledContext(t *testing.T) {
	d := NewFakeDriver()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Open(ctx, "0"); !errors.Is(err, context.Canceled) {
		t.Errorf("Open = %v, want context.Canceled", err)
	}
}

func TestStartCaptureFansOut(t *testing.T) {
	d := NewFakeDriver()
	dev, err := d.Open(context.Background(), "0")
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	a := &recordingTarget{}
	b := &recordingTarget{}
	if err := dev.StartCapture(a, b); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}

	fake := dev.(*FakeDevice)
	fake.Push(4, 2, make([]byte, 4*2*4))
	fake.Push(4, 2, make([]byte, 4*2*4))

	if len(a.frames) != 2 || len(b.frames) != 2 {
		t.Fatalf("frames = %d/%d, want 2/2", len(a.frames), len(b.frames))
	}
	if a.frames[0].Seq != 1 || a.frames[1].Seq != 2 {
		t.Errorf("sequence = %d,%d, want 1,2", a.frames[0].Seq, a.frames[1].Seq)
	}
	if a.frames[0].DeviceID != "0" {
		t.Errorf("DeviceID = %q, want 0", a.frames[0].DeviceID)
	}
	if a.frames[0].TraceID == "" {
		t.Error("TraceID empty, want uuid")
	}
}

func TestStartCaptureNoTargets(t *testing.T) {
	d := NewFakeDriver()
	dev, err := d.Open(context.Background(), "0")
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	if err := dev.StartCapture(); !errors.Is(err, ErrNoTargets) {
		t.Errorf("StartCapture() = %v, want ErrNoTargets", err)
	}
}

func TestStartCaptureConfigurationFailure(t *testing.T) {
	d := NewFakeDriver()
	fake := d.AddDevice("2")
	fake.FailConfiguration()

	dev, err := d.Open(context.Background(), "2")
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	if err := dev.StartCapture(&recordingTarget{}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("StartCapture = %v, want ErrConfiguration", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	d := NewFakeDriver()
	dev, err := d.Open(context.Background(), "0")
	if err != nil {
		t.Fatal(err)
	}

	if err := dev.Close(); err != nil {
		t.Errorf("first Close = %v, want nil", err)
	}
	if err := dev.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestPushAfterCloseDropped(t *testing.T) {
	d := NewFakeDriver()
	dev, err := d.Open(context.Background(), "0")
	if err != nil {
		t.Fatal(err)
	}

	target := &recordingTarget{}
	if err := dev.StartCapture(target); err != nil {
		t.Fatal(err)
	}
	dev.Close()

	dev.(*FakeDevice).Push(4, 2, make([]byte, 4*2*4))
	if len(target.frames) != 0 {
		t.Errorf("frames after close = %d, want 0", len(target.frames))
	}
}

func TestDisconnectReportsFault(t *testing.T) {
	d := NewFakeDriver()
	dev, err := d.Open(context.Background(), "0")
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	target := &recordingTarget{}
	if err := dev.StartCapture(target); err != nil {
		t.Fatal(err)
	}

	fake := dev.(*FakeDevice)
	fake.Disconnect()

	select {
	case f := <-dev.Faults():
		if !errors.Is(f.Err, ErrDeviceLost) {
			t.Errorf("fault = %v, want ErrDeviceLost", f.Err)
		}
		if f.DeviceID != "0" {
			t.Errorf("fault device = %q, want 0", f.DeviceID)
		}
	default:
		t.Fatal("no fault reported after disconnect")
	}

	// Frames after disconnect are dropped.
	fake.Push(4, 2, make([]byte, 4*2*4))
	if len(target.frames) != 0 {
		t.Errorf("frames after disconnect = %d, want 0", len(target.frames))
	}
}
