// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package capture

import (
	"errors"
	"sort"
	"sync"
)

// DriverFactory creates a new driver instance.
type DriverFactory func() (Driver, error)

// RegistryEntry represents a registered capture driver.
type RegistryEntry struct {
	// Name is the unique identifier for this driver.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: hardware drivers (GStreamer)
	//   - 10: in-memory fakes for tests and demos
	Priority int

	// Factory creates driver instances.
	Factory DriverFactory

	// Available reports if the driver is usable on this system.
	Available func() bool
}

// globalRegistry is the default registry.
var globalRegistry = &Registry{}

// Registry manages registered capture drivers.
//
// The registry lets capture technologies register themselves from
// init() functions without the core importing them.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// Register adds a driver to the global registry.
// If available is nil, the driver is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(name string, priority int, factory DriverFactory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a driver from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// Available returns names of all available drivers sorted by priority.
func Available() []string {
	return globalRegistry.Available()
}

// NewDriver creates a driver using the best available entry.
func NewDriver() (Driver, error) {
	return globalRegistry.NewDriver()
}

// NewDriverByName creates a driver using a specific named entry.
func NewDriverByName(name string) (Driver, error) {
	return globalRegistry.NewDriverByName(name)
}

// Register adds a driver to this registry.
func (r *Registry) Register(name string, priority int, factory DriverFactory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*RegistryEntry)
	}
	if available == nil {
		available = func() bool { return true }
	}
	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a driver from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// Available returns names of all available drivers sorted by priority
// (highest first).
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type entry struct {
		name     string
		priority int
	}
	entries := make([]entry, 0, len(r.entries))
	for name, e := range r.entries {
		if !e.Available() {
			continue
		}
		entries = append(entries, entry{name: name, priority: e.Priority})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].priority > entries[j].priority
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// NewDriver creates a driver using the best available entry.
func (r *Registry) NewDriver() (Driver, error) {
	available := r.Available()
	if len(available) == 0 {
		return nil, ErrNoDriverAvailable
	}

	var lastErr error
	for _, name := range available {
		d, err := r.NewDriverByName(name)
		if err == nil {
			return d, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoDriverAvailable
}

// NewDriverByName creates a driver using a specific entry.
func (r *Registry) NewDriverByName(name string) (Driver, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &DriverNotFoundError{Name: name}
	}
	if !entry.Available() {
		return nil, &DriverUnavailableError{Name: name}
	}
	return entry.Factory()
}

// ErrNoDriverAvailable is returned when no capture drivers are
// registered or available on the current system.
var ErrNoDriverAvailable = errors.New("capture: no driver available")
