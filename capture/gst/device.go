// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gst

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/gogpu/duocam/capture"
)

// busPollInterval bounds bus monitor shutdown latency.
const busPollInterval = 50 * time.Millisecond

// faultBuffer is the fault channel capacity. A reader that falls
// behind loses older faults rather than blocking the bus monitor.
const faultBuffer = 4

// device is one open V4L2 camera with its GStreamer pipeline.
type device struct {
	id     string
	width  int
	height int

	pipeline *gst.Pipeline
	appsink  *app.Sink

	faults chan capture.Fault
	seq    atomic.Uint64

	mu      sync.Mutex
	targets []capture.Target
	started bool
	closed  bool

	stopBus chan struct{}
	busDone chan struct{}
}

// openDevice builds the capture pipeline and brings it to PLAYING.
//
// Pipeline structure:
//
//	v4l2src → videoconvert → videoscale → capsfilter(RGBA) → appsink
func openDevice(ctx context.Context, id string, width, height int) (*device, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("gst: create pipeline: %w", err)
	}

	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return nil, fmt.Errorf("gst: %w: v4l2src: %v", capture.ErrDeviceUnavailable, err)
	}
	src.SetProperty("device", id)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("gst: create videoconvert: %w", err)
	}
	converter.SetProperty("n-threads", 0)

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("gst: create videoscale: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("gst: create capsfilter: %w", err)
	}
	capsStr := fmt.Sprintf("video/x-raw,format=RGBA,width=%d,height=%d", width, height)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("gst: create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)

	pipeline.AddMany(src, converter, scaler, capsfilter, appsink.Element)
	if err := gst.ElementLinkMany(src, converter, scaler, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("gst: %w: link pipeline: %v", capture.ErrConfiguration, err)
	}

	d := &device{
		id:       id,
		width:    width,
		height:   height,
		pipeline: pipeline,
		appsink:  appsink,
		faults:   make(chan capture.Fault, faultBuffer),
		stopBus:  make(chan struct{}),
		busDone:  make(chan struct{}),
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("gst: open %s: %w", id, classifyOpenError(err))
	}
	if err := d.awaitPlaying(ctx); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, err
	}

	capture.Slogger().Info("gst: device opened", "device", id, "size", capsStr)
	return d, nil
}

// awaitPlaying blocks until the pipeline reports PLAYING, an error, or
// ctx is done.
func (d *device) awaitPlaying(ctx context.Context) error {
	bus := d.pipeline.GetPipelineBus()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			return fmt.Errorf("gst: open %s: %w: %s", d.id, classifyError(gerr), gerr.Error())
		case gst.MessageEOS:
			return fmt.Errorf("gst: open %s: %w", d.id, capture.ErrDeviceDisconnected)
		case gst.MessageStateChanged:
			if msg.Source() != d.pipeline.GetName() {
				continue
			}
			if _, state := msg.ParseStateChanged(); state == gst.StatePlaying {
				return nil
			}
		}
	}
}

// ID returns the device node path.
func (d *device) ID() string { return d.id }

// StartCapture installs the appsink callback streaming to targets and
// starts the bus monitor.
func (d *device) StartCapture(targets ...capture.Target) error {
	if len(targets) == 0 {
		return capture.ErrNoTargets
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return capture.ErrClosed
	}
	if d.started {
		return fmt.Errorf("gst: %w: capture already started", capture.ErrConfiguration)
	}
	d.targets = targets
	d.started = true

	d.appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: d.onNewSample,
	})
	go d.monitorBus()
	return nil
}

// onNewSample copies one frame out of the appsink and fans it out to
// all targets.
func (d *device) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		// A single failed pull should not kill the stream.
		capture.Slogger().Warn("gst: failed to pull sample, skipping frame", "device", d.id)
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		capture.Slogger().Warn("gst: sample without buffer, skipping frame", "device", d.id)
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		capture.Slogger().Warn("gst: empty buffer received", "device", d.id)
		return gst.FlowOK
	}
	pix := make([]byte, len(data))
	copy(pix, data)
	buffer.Unmap()

	frame := capture.Frame{
		Seq:       d.seq.Add(1),
		Timestamp: time.Now(),
		Width:     d.width,
		Height:    d.height,
		Data:      pix,
		DeviceID:  d.id,
		TraceID:   uuid.NewString(),
	}

	d.mu.Lock()
	targets := d.targets
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return gst.FlowEOS
	}

	for _, t := range targets {
		if err := t.WriteFrame(frame); err != nil {
			capture.Slogger().Warn("gst: target rejected frame",
				"device", d.id,
				"seq", frame.Seq,
				"trace_id", frame.TraceID,
				"error", err,
			)
		}
	}
	return gst.FlowOK
}

// monitorBus watches the pipeline bus and converts errors into faults.
func (d *device) monitorBus() {
	defer close(d.busDone)
	bus := d.pipeline.GetPipelineBus()

	for {
		select {
		case <-d.stopBus:
			return
		default:
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			d.fault(fmt.Errorf("%w: end of stream", capture.ErrDeviceLost))
			return
		case gst.MessageError:
			gerr := msg.ParseError()
			capture.Slogger().Error("gst: pipeline error",
				"device", d.id,
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
			d.fault(fmt.Errorf("%w: %s", classifyError(gerr), gerr.Error()))
			return
		}
	}
}

// fault publishes a device failure without blocking.
func (d *device) fault(err error) {
	f := capture.Fault{DeviceID: d.id, Err: err, Time: time.Now()}
	select {
	case d.faults <- f:
	default:
		select {
		case <-d.faults:
		default:
		}
		select {
		case d.faults <- f:
		default:
		}
	}
}

// Faults returns the device fault channel.
func (d *device) Faults() <-chan capture.Fault { return d.faults }

// Close tears the pipeline down. Idempotent.
func (d *device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	started := d.started
	d.targets = nil
	d.mu.Unlock()

	close(d.stopBus)
	if started {
		<-d.busDone
	}

	if err := d.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("gst: close %s: %w", d.id, err)
	}
	capture.Slogger().Info("gst: device closed", "device", d.id)
	return nil
}

// Ensure device implements capture.Device.
var _ capture.Device = (*device)(nil)
