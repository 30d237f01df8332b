// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("Default resolution = %dx%d, want 1280x720", cfg.Width, cfg.Height)
	}
	if cfg.Orientation != Landscape {
		t.Errorf("Default orientation = %v, want landscape", cfg.Orientation)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
}

func TestOutputSize(t *testing.T) {
	tests := []struct {
		name        string
		orientation Orientation
		wantW       int
		wantH       int
	}{
		{"landscape", Landscape, 1280, 720},
		{"portrait", Portrait, 720, 1280},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Orientation = tt.orientation
			w, h := cfg.OutputSize()
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("OutputSize() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "duocam.yaml")
	data := []byte(`
width: 1920
height: 1080
orientation: portrait
main_device: "0"
sub_device: "1"
enable_still: true
idle_backoff: 1ms
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Errorf("resolution = %dx%d, want 1920x1080", cfg.Width, cfg.Height)
	}
	if cfg.Orientation != Portrait {
		t.Errorf("orientation = %v, want portrait", cfg.Orientation)
	}
	if cfg.MainDevice != "0" || cfg.SubDevice != "1" {
		t.Errorf("devices = %q/%q, want 0/1", cfg.MainDevice, cfg.SubDevice)
	}
	if !cfg.EnableStill {
		t.Error("EnableStill = false, want true")
	}
	if cfg.IdleBackoff != time.Millisecond {
		t.Errorf("IdleBackoff = %s, want 1ms", cfg.IdleBackoff)
	}
	// Fields absent from the file keep defaults.
	if cfg.OverlayFraction != 0.25 {
		t.Errorf("OverlayFraction = %g, want default 0.25", cfg.OverlayFraction)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"default", func(*Config) {}, true},
		{"zero width", func(c *Config) { c.Width = 0 }, false},
		{"negative height", func(c *Config) { c.Height = -1 }, false},
		{"overlay too large", func(c *Config) { c.OverlayFraction = 1.0 }, false},
		{"overlay zero", func(c *Config) { c.OverlayFraction = 0 }, false},
		{"negative margin", func(c *Config) { c.OverlayMargin = -1 }, false},
		{"negative backoff", func(c *Config) { c.IdleBackoff = -time.Second }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

// yamlScalar builds a scalar yaml.Node holding the given string.
func yamlScalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: s}
}

func TestOrientationYAML(t *testing.T) {
	var o Orientation
	if err := o.UnmarshalYAML(yamlScalar("portrait")); err != nil {
		t.Fatalf("UnmarshalYAML(portrait) failed: %v", err)
	}
	if o != Portrait {
		t.Errorf("orientation = %v, want portrait", o)
	}
	if err := o.UnmarshalYAML(yamlScalar("sideways")); err == nil {
		t.Error("UnmarshalYAML(sideways) succeeded, want error")
	}
}
