// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command duocam runs the dual-camera picture-in-picture pipeline and
// writes a composited still frame to a PNG file.
//
// With -fake the pipeline runs on the in-memory fake driver and
// synthetic frames, useful on machines without cameras.
package main

import (
	"context"
	"flag"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/duocam"
	"github.com/gogpu/duocam/capture"
	"github.com/gogpu/duocam/config"

	_ "github.com/gogpu/duocam/capture/gst"
	_ "github.com/gogpu/duocam/gpu/wgpu"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "YAML configuration file")
		output   = flag.String("output", "still.png", "output PNG file")
		runFor   = flag.Duration("run", 2*time.Second, "capture duration before the still is taken")
		useFake  = flag.Bool("fake", false, "use the in-memory fake driver with synthetic frames")
		verbose  = flag.Bool("v", false, "enable debug logging")
		portrait = flag.Bool("portrait", false, "portrait orientation")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	duocam.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	cfg.EnableStill = true
	if *portrait {
		cfg.Orientation = config.Portrait
	}

	opts := []duocam.Option{}
	var fakeDriver *capture.FakeDriver
	if *useFake {
		fakeDriver = capture.NewFakeDriver()
		opts = append(opts, duocam.WithDriver(fakeDriver))
	}

	p, err := duocam.New(cfg, opts...)
	if err != nil {
		log.Fatalf("create pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// No windowing layer here: the target is valid immediately.
	p.Display().Ready()
	if err := p.Start(ctx); err != nil {
		log.Fatalf("start pipeline: %v", err)
	}
	defer p.Stop()

	go func() {
		for f := range p.Faults() {
			log.Printf("device fault: %s: %v", f.DeviceID, f.Err)
		}
	}()

	if fakeDriver != nil {
		go pushSynthetic(ctx, fakeDriver, cfg)
	}

	select {
	case <-time.After(*runFor):
	case <-ctx.Done():
	}

	still := p.Still()
	if still == nil {
		log.Fatal("no still frame captured")
	}
	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("create %s: %v", *output, err)
	}
	defer f.Close()
	if err := png.Encode(f, still); err != nil {
		log.Fatalf("encode PNG: %v", err)
	}
	b := still.Bounds()
	log.Printf("still saved to %s (%dx%d)", *output, b.Dx(), b.Dy())
}

// pushSynthetic feeds the fake cameras at ~30 fps: a red main stream
// and a blue sub stream.
func pushSynthetic(ctx context.Context, driver *capture.FakeDriver, cfg config.Config) {
	red := solidFrame(cfg.Width, cfg.Height, color.RGBA{R: 220, G: 60, B: 40, A: 255})
	blue := solidFrame(cfg.Width, cfg.Height, color.RGBA{R: 40, G: 90, B: 220, A: 255})

	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			driver.Device("0").Push(cfg.Width, cfg.Height, red)
			driver.Device("1").Push(cfg.Width, cfg.Height, blue)
		}
	}
}

// solidFrame builds a width*height RGBA frame of one color.
func solidFrame(width, height int, c color.RGBA) []byte {
	pix := make([]byte, width*height*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i+0] = c.R
		pix[i+1] = c.G
		pix[i+2] = c.B
		pix[i+3] = c.A
	}
	return pix
}
