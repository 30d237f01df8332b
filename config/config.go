// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config holds the pipeline configuration: capture resolution,
// display orientation, device selection and render-loop tuning.
//
// Configuration is plain data. Load reads a YAML file; Default returns
// the built-in settings used when no file is provided.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Orientation is the display orientation the composited frame
// compensates for.
type Orientation uint8

const (
	// Landscape keeps the configured capture resolution as-is.
	Landscape Orientation = iota

	// Portrait swaps output width and height and rotates the composite
	// by 90 degrees so the frame displays un-distorted on rotated
	// hardware.
	Portrait
)

// String returns a human-readable name for the orientation.
func (o Orientation) String() string {
	switch o {
	case Landscape:
		return "landscape"
	case Portrait:
		return "portrait"
	default:
		return "landscape"
	}
}

// UnmarshalYAML implements yaml.Unmarshaler for orientation names.
func (o *Orientation) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "landscape", "":
		*o = Landscape
	case "portrait":
		*o = Portrait
	default:
		return fmt.Errorf("config: unknown orientation %q", s)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (o Orientation) MarshalYAML() (any, error) {
	return o.String(), nil
}

// Config aggregates all pipeline configuration.
type Config struct {
	// Width is the capture width in pixels (landscape reference).
	Width int `yaml:"width"`

	// Height is the capture height in pixels (landscape reference).
	Height int `yaml:"height"`

	// Orientation selects the composite rotation and output aspect.
	Orientation Orientation `yaml:"orientation"`

	// MainDevice is the device id for the full-frame stream.
	// Empty selects the enumerated back camera.
	MainDevice string `yaml:"main_device"`

	// SubDevice is the device id for the overlay stream.
	// Empty selects the enumerated front camera.
	SubDevice string `yaml:"sub_device"`

	// EnableStill adds an off-screen still-capture surface alongside
	// the on-screen preview surface.
	EnableStill bool `yaml:"enable_still"`

	// IdleBackoff is how long the render loop sleeps per iteration
	// while no frame signal has arrived. Zero means a tight poll.
	IdleBackoff time.Duration `yaml:"idle_backoff"`

	// OverlayFraction is the overlay width as a fraction of the output
	// width. The overlay keeps the capture aspect ratio.
	OverlayFraction float64 `yaml:"overlay_fraction"`

	// OverlayMargin is the inset in pixels from the bottom-right corner
	// of the output frame to the overlay.
	OverlayMargin int `yaml:"overlay_margin"`
}

// Default returns the built-in configuration: 1280x720 landscape,
// preview only, quarter-width overlay with a 16px margin and a 200µs
// idle back-off.
func Default() Config {
	return Config{
		Width:           1280,
		Height:          720,
		Orientation:     Landscape,
		IdleBackoff:     200 * time.Microsecond,
		OverlayFraction: 0.25,
		OverlayMargin:   16,
	}
}

// Load reads a YAML configuration file. Fields absent from the file
// keep their Default values. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for out-of-range values.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: capture resolution must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.OverlayFraction <= 0 || c.OverlayFraction >= 1 {
		return fmt.Errorf("config: overlay fraction must be in (0, 1), got %g", c.OverlayFraction)
	}
	if c.OverlayMargin < 0 {
		return fmt.Errorf("config: overlay margin must be non-negative, got %d", c.OverlayMargin)
	}
	if c.IdleBackoff < 0 {
		return fmt.Errorf("config: idle back-off must be non-negative, got %s", c.IdleBackoff)
	}
	return nil
}

// OutputSize returns the composited frame dimensions: the capture
// resolution as configured for landscape, swapped for portrait.
func (c Config) OutputSize() (width, height int) {
	if c.Orientation == Portrait {
		return c.Height, c.Width
	}
	return c.Width, c.Height
}
