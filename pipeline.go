// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package duocam

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/gogpu/duocam/capture"
	"github.com/gogpu/duocam/config"
	"github.com/gogpu/duocam/gpu"
	"github.com/gogpu/duocam/render"
)

// Pipeline errors.
var (
	// ErrAlreadyStarted is returned by Start on a running pipeline.
	ErrAlreadyStarted = errors.New("duocam: pipeline already started")

	// ErrNoFrontDevice is returned when no sub-stream camera can be
	// resolved from configuration or enumeration.
	ErrNoFrontDevice = errors.New("duocam: no front device available")
)

// pipelineFaultBuffer is the pipeline fault channel capacity.
const pipelineFaultBuffer = 8

// Pipeline owns one complete capture-and-composite run: two open
// devices, one rendering context per output target and the render
// loop binding them.
//
// A Pipeline is single-shot per Start: Stop tears everything down and
// a later Start performs full setup again. No entity is individually
// recreated without that full restart.
type Pipeline struct {
	cfg     config.Config
	gate    *DisplayGate
	clock   FrameClock
	faults  chan capture.Fault
	driver  capture.Driver
	backend gpu.Backend

	previewSink func(*image.RGBA)

	mu       sync.Mutex
	running  bool
	starting bool
	cancel   context.CancelFunc
	done     chan struct{}
	devices  []capture.Device
	surfaces []*render.Surface
	still    *render.Surface
}

// New creates a pipeline for the given configuration.
func New(cfg config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		gate:   NewDisplayGate(),
		faults: make(chan capture.Fault, pipelineFaultBuffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Display returns the display gate the UI layer resolves once the
// native target becomes valid.
func (p *Pipeline) Display() *DisplayGate { return p.gate }

// Faults returns the channel on which device loss and capture-session
// failures surface. The channel is buffered; a reader that falls
// behind loses older faults.
func (p *Pipeline) Faults() <-chan capture.Fault { return p.faults }

// Clock returns the shared frame clock.
func (p *Pipeline) Clock() *FrameClock { return &p.clock }

// Still returns the most recent completed still frame, or nil before
// the first completed pass or when still capture is disabled.
// Encoding and persistence are the caller's concern.
func (p *Pipeline) Still() *image.RGBA {
	p.mu.Lock()
	still := p.still
	p.mu.Unlock()
	if still == nil {
		return nil
	}
	return still.Latest()
}

// Start performs the full pipeline setup and starts the render loop.
//
// Start suspends until the display gate resolves, then opens the two
// devices, creates the surfaces, runs compositor setup on the render
// thread, attaches the stream textures as capture targets and starts
// capture. Any setup failure aborts Start with an error and releases
// everything acquired so far.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running || p.starting {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	// Held for the whole setup so a concurrent Start cannot
	// double-initialize and orphan this run's cancel handle.
	p.starting = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.starting = false
		p.mu.Unlock()
	}()

	if err := p.gate.Wait(ctx); err != nil {
		return err
	}

	driver, backend, err := p.resolveStack()
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("duocam: backend init: %w", err)
	}

	mainDev, subDev, err := p.openDevices(ctx, driver)
	if err != nil {
		backend.Close()
		return err
	}
	devices := []capture.Device{mainDev, subDev}

	surfaces, still, err := p.createSurfaces(backend)
	if err != nil {
		closeDevices(devices)
		backend.Close()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	setup := make(chan setupResult, 1)
	go p.run(loopCtx, done, surfaces, setup)
	res := <-setup
	if res.err != nil {
		cancel()
		<-done
		releaseSurfaces(surfaces)
		closeDevices(devices)
		backend.Close()
		return fmt.Errorf("duocam: surface setup: %w", res.err)
	}

	mainTarget := &textureTarget{textures: res.mainTextures, clock: &p.clock}
	subTarget := &textureTarget{textures: res.subTextures, clock: &p.clock}
	if err := mainDev.StartCapture(mainTarget); err != nil {
		err = fmt.Errorf("duocam: start capture %s: %w", mainDev.ID(), err)
		cancel()
		<-done
		releaseSurfaces(surfaces)
		closeDevices(devices)
		backend.Close()
		return err
	}
	if err := subDev.StartCapture(subTarget); err != nil {
		err = fmt.Errorf("duocam: start capture %s: %w", subDev.ID(), err)
		cancel()
		<-done
		releaseSurfaces(surfaces)
		closeDevices(devices)
		backend.Close()
		return err
	}

	for _, d := range devices {
		go p.forwardFaults(loopCtx, d)
	}

	p.mu.Lock()
	p.running = true
	p.cancel = cancel
	p.done = done
	p.devices = devices
	p.surfaces = surfaces
	p.still = still
	p.mu.Unlock()

	Logger().Info("duocam: pipeline started",
		"main", mainDev.ID(),
		"sub", subDev.ID(),
		"surfaces", len(surfaces),
		"backend", backend.Name(),
	)
	return nil
}

// Stop tears the pipeline down: cancel the loop and wait for it,
// release surfaces and textures, then close the devices. Idempotent.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	cancel, done := p.cancel, p.done
	devices, surfaces := p.devices, p.surfaces
	p.cancel, p.done = nil, nil
	p.devices, p.surfaces, p.still = nil, nil, nil
	backend := p.backend
	p.mu.Unlock()

	cancel()
	<-done

	var first error
	for _, s := range surfaces {
		if err := s.Release(); err != nil && first == nil {
			first = err
		}
	}
	for _, d := range devices {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	if backend != nil {
		backend.Close()
	}

	Logger().Info("duocam: pipeline stopped")
	return first
}

// resolveStack fills in the driver and backend from the registries
// when no explicit option was given.
func (p *Pipeline) resolveStack() (capture.Driver, gpu.Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.driver == nil {
		d, err := capture.NewDriver()
		if err != nil {
			return nil, nil, fmt.Errorf("duocam: resolve driver: %w", err)
		}
		p.driver = d
	}
	if p.backend == nil {
		b, err := gpu.Default()
		if err != nil {
			return nil, nil, fmt.Errorf("duocam: resolve backend: %w", err)
		}
		p.backend = b
	}
	return p.driver, p.backend, nil
}

// openDevices resolves the main and sub device ids and opens both.
func (p *Pipeline) openDevices(ctx context.Context, driver capture.Driver) (main, sub capture.Device, err error) {
	mainID, subID := p.cfg.MainDevice, p.cfg.SubDevice
	if mainID == "" || subID == "" {
		layout, err := driver.Enumerate()
		if err != nil {
			return nil, nil, fmt.Errorf("duocam: enumerate devices: %w", err)
		}
		if mainID == "" {
			mainID = layout.Back
		}
		if subID == "" {
			subID = layout.Front
		}
	}
	if subID == "" {
		return nil, nil, ErrNoFrontDevice
	}

	main, err = driver.Open(ctx, mainID)
	if err != nil {
		return nil, nil, fmt.Errorf("duocam: open main device %s: %w", mainID, err)
	}
	sub, err = driver.Open(ctx, subID)
	if err != nil {
		main.Close()
		return nil, nil, fmt.Errorf("duocam: open sub device %s: %w", subID, err)
	}
	return main, sub, nil
}

// createSurfaces builds the preview surface and, when configured, the
// off-screen still surface.
func (p *Pipeline) createSurfaces(backend gpu.Backend) ([]*render.Surface, *render.Surface, error) {
	outW, outH := p.cfg.OutputSize()

	previewCtx, err := backend.NewContext(outW, outH)
	if err != nil {
		return nil, nil, fmt.Errorf("duocam: create preview context: %w", err)
	}
	if p.previewSink != nil {
		previewCtx.SetPresentSink(p.previewSink)
	}
	preview := render.NewSurface(previewCtx, render.RolePreview, render.NewCompositor(previewCtx, p.cfg))
	surfaces := []*render.Surface{preview}

	var still *render.Surface
	if p.cfg.EnableStill {
		stillCtx, err := backend.NewContext(outW, outH)
		if err != nil {
			preview.Release()
			return nil, nil, fmt.Errorf("duocam: create still context: %w", err)
		}
		still = render.NewSurface(stillCtx, render.RoleStill, render.NewCompositor(stillCtx, p.cfg))
		surfaces = append(surfaces, still)
	}
	return surfaces, still, nil
}

// setupResult carries the render-thread setup outcome back to Start.
type setupResult struct {
	mainTextures []gpu.Texture
	subTextures  []gpu.Texture
	err          error
}

// run is the render goroutine: compositor setup, then the poll loop.
// All context binds, draws and presents happen here, on one locked OS
// thread.
func (p *Pipeline) run(ctx context.Context, done chan struct{}, surfaces []*render.Surface, setup chan<- setupResult) {
	defer close(done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var res setupResult
	for _, s := range surfaces {
		if err := s.MakeCurrent(); err != nil {
			res.err = err
			break
		}
		main, sub, err := s.Compositor().Setup()
		if err != nil {
			res.err = err
			break
		}
		res.mainTextures = append(res.mainTextures, main)
		res.subTextures = append(res.subTextures, sub)
	}
	setup <- res
	if res.err != nil {
		return
	}

	Logger().Debug("duocam: render loop started", "surfaces", len(surfaces))
	p.loop(ctx, surfaces)
	Logger().Debug("duocam: render loop stopped")
}

// loop polls the frame clock and runs one composite-and-present pass
// across all surfaces per observed generation change. With no ticks
// the loop parks in its idle back-off; zero ticks means zero passes.
func (p *Pipeline) loop(ctx context.Context, surfaces []*render.Surface) {
	// The clock outlives Stop/Start; baseline on its current generation
	// so a restarted loop only reacts to this run's frames.
	last := p.clock.Gen()
	backoff := p.cfg.IdleBackoff

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		gen := p.clock.Gen()
		if gen == last {
			if backoff > 0 {
				time.Sleep(backoff)
			}
			continue
		}
		// Read before drawing: ticks arriving mid-pass trigger one
		// more pass instead of being lost.
		last = gen

		for _, s := range surfaces {
			if err := p.pass(s); err != nil {
				Logger().Error("duocam: composite pass failed",
					"role", s.Role(),
					"error", err,
				)
			}
		}
	}
}

// pass runs makeCurrent → draw → swap on one surface.
func (p *Pipeline) pass(s *render.Surface) error {
	if err := s.MakeCurrent(); err != nil {
		return err
	}
	if err := s.Draw(); err != nil {
		return err
	}
	return s.Swap()
}

// forwardFaults relays one device's faults onto the pipeline channel.
func (p *Pipeline) forwardFaults(ctx context.Context, d capture.Device) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-d.Faults():
			if !ok {
				return
			}
			Logger().Error("duocam: device fault",
				"device", f.DeviceID,
				"error", f.Err,
			)
			select {
			case p.faults <- f:
			default:
			}
		}
	}
}

// textureTarget uploads each incoming frame to the stream textures of
// every surface and ticks the frame clock.
type textureTarget struct {
	textures []gpu.Texture
	clock    *FrameClock
}

// WriteFrame implements capture.Target.
func (t *textureTarget) WriteFrame(f capture.Frame) error {
	for _, tex := range t.textures {
		if err := tex.Upload(f.Width, f.Height, f.Data); err != nil {
			return err
		}
	}
	t.clock.Tick()
	return nil
}

// Ensure textureTarget implements capture.Target.
var _ capture.Target = (*textureTarget)(nil)

// closeDevices closes all devices, keeping going on errors.
func closeDevices(devices []capture.Device) {
	for _, d := range devices {
		if err := d.Close(); err != nil {
			Logger().Warn("duocam: device close failed", "device", d.ID(), "error", err)
		}
	}
}

// releaseSurfaces releases all surfaces, keeping going on errors.
func releaseSurfaces(surfaces []*render.Surface) {
	for _, s := range surfaces {
		if err := s.Release(); err != nil {
			Logger().Warn("duocam: surface release failed", "role", s.Role(), "error", err)
		}
	}
}
