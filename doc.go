// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package duocam drives two independent camera capture devices and
// composites their live streams into a single picture-in-picture frame
// in real time, for both on-screen preview and still capture.
//
// # Overview
//
// A Pipeline owns the whole capture-and-composite run: it opens two
// capture devices (main and sub roles), creates one rendering context
// per output target (preview, optionally still capture), allocates a
// pair of stream-input textures per target, and wires every camera
// frame-ready signal to a shared FrameClock. A dedicated render
// goroutine, locked to its OS thread, polls the clock and performs
// exactly one composite-and-present pass across all active surfaces
// per observed change, coalescing bursts from the two independently
// clocked cameras into bounded GPU work.
//
// # Quick Start
//
//	cfg := config.Default()
//	p, err := duocam.New(cfg,
//	    duocam.WithDriver(driver),   // e.g. gst.NewDriver()
//	    duocam.WithBackend(backend), // e.g. gpu.Default()
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p.Display().Ready() // UI layer: native target is valid
//	if err := p.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Stop()
//
//	// On a user capture action:
//	img := p.Still()
//
// # Threading Model
//
// Capture callbacks arrive on goroutines the core does not control and
// perform only an atomic clock tick. All context binds, draws and
// presents happen on the single render goroutine. Device open/close
// are context-governed and never block the render thread.
//
// # Architecture
//
// The module is organized into:
//   - duocam (root): Pipeline, FrameClock, render loop, DisplayGate
//   - config: resolution, orientation, device and loop settings
//   - capture: device boundary, drivers (GStreamer, fake)
//   - gpu: rendering backend abstraction (software, wgpu)
//   - render: RenderSurface and the picture-in-picture Compositor
package duocam
