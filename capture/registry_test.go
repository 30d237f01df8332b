// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package capture

import (
	"errors"
	"testing"
)

func TestRegistryPriorityOrder(t *testing.T) {
	r := &Registry{}
	r.Register("low", 10, func() (Driver, error) { return NewFakeDriver(), nil }, nil)
	r.Register("high", 100, func() (Driver, error) { return NewFakeDriver(), nil }, nil)

	names := r.Available()
	if len(names) != 2 || names[0] != "high" || names[1] != "low" {
		t.Errorf("Available() = %v, want [high low]", names)
	}
}

func TestRegistrySkipsUnavailable(t *testing.T) {
	r := &Registry{}
	r.Register("gone", 100, func() (Driver, error) { return NewFakeDriver(), nil }, func() bool { return false })
	r.Register("here", 10, func() (Driver, error) { return NewFakeDriver(), nil }, nil)

	names := r.Available()
	if len(names) != 1 || names[0] != "here" {
		t.Errorf("Available() = %v, want [here]", names)
	}

	if _, err := r.NewDriverByName("gone"); err == nil {
		t.Error("NewDriverByName(gone) succeeded, want unavailable error")
	}
	var unavailable *DriverUnavailableError
	_, err := r.NewDriverByName("gone")
	if !errors.As(err, &unavailable) {
		t.Errorf("error type = %T, want *DriverUnavailableError", err)
	}
}

func TestRegistryNotFound(t *testing.T) {
	r := &Registry{}
	_, err := r.NewDriverByName("missing")
	var notFound *DriverNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("error = %v, want *DriverNotFoundError", err)
	}
}

func TestRegistryEmpty(t *testing.T) {
	r := &Registry{}
	if _, err := r.NewDriver(); !errors.Is(err, ErrNoDriverAvailable) {
		t.Errorf("NewDriver = %v, want ErrNoDriverAvailable", err)
	}
}

func TestGlobalFakeRegistered(t *testing.T) {
	d, err := NewDriverByName("fake")
	if err != nil {
		t.Fatalf("fake driver not registered: %v", err)
	}
	if d.Name() != "fake" {
		t.Errorf("Name() = %q, want fake", d.Name())
	}
}
