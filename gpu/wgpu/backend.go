// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/duocam/gpu"
)

// Backend errors.
var (
	// ErrNoAdapter is returned when no usable GPU adapter is found.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter available")

	// ErrNotInitialized is returned when NewContext is called before
	// Init.
	ErrNotInitialized = errors.New("wgpu: backend not initialized")
)

// Backend is the wgpu-backed rendering backend.
//
// A Backend owns one hal device and queue shared by all its contexts.
// The device is either opened standalone (Init) or received from a
// host application via NewWithProvider, following the principle that
// an embedded renderer receives the device rather than creating one.
type Backend struct {
	mu       sync.Mutex
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	shader   *compositeShader
	current  *context
	external bool // device owned by the host, not by us
	ready    bool
}

// New creates an uninitialized wgpu backend. Call Init before use.
func New() *Backend {
	return &Backend{}
}

// NewWithProvider creates a backend on a device shared by the host
// application (gpucontext ecosystem). The provider keeps ownership of
// the device; Close will not release it.
func NewWithProvider(p gpucontext.DeviceProvider) (*Backend, error) {
	if p == nil {
		return nil, fmt.Errorf("wgpu: nil device provider")
	}
	b := &Backend{external: true}
	if d, ok := p.Device().(hal.Device); ok {
		b.device = d
	}
	if q, ok := p.Queue().(hal.Queue); ok {
		b.queue = q
	}
	if b.device == nil || b.queue == nil {
		return nil, fmt.Errorf("wgpu: provider does not expose a hal device")
	}
	return b, nil
}

// Name returns "wgpu".
func (b *Backend) Name() string { return "wgpu" }

// Init opens a standalone Vulkan device and compiles the composite
// shader. Safe to call on a provider-backed backend; only the shader
// is built in that case.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		return nil
	}
	if b.device == nil {
		if err := b.openDevice(); err != nil {
			return err
		}
	}

	shader, err := newCompositeShader(b.device)
	if err != nil {
		b.releaseDeviceLocked()
		return fmt.Errorf("wgpu: shader setup: %w", err)
	}
	b.shader = shader
	b.ready = true
	return nil
}

// openDevice acquires a standalone device, preferring discrete and
// integrated GPUs. Mirrors the compute-only acquisition path used
// across the gogpu ecosystem.
func (b *Backend) openDevice() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return ErrNoAdapter
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return ErrNoAdapter
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("wgpu: open device: %w", err)
	}

	b.instance = instance
	b.device = openDev.Device
	b.queue = openDev.Queue
	gpu.Slogger().Info("wgpu: device opened", "adapter", selected.Info.Name)
	return nil
}

// NewContext creates a wgpu rendering context.
func (b *Backend) NewContext(width, height int) (gpu.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return nil, ErrNotInitialized
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", gpu.ErrInvalidSize, width, height)
	}
	return newContext(b, width, height)
}

// Close releases the shader and, for standalone devices, the device
// itself. Contexts must be destroyed first.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shader != nil {
		b.shader.destroy(b.device)
		b.shader = nil
	}
	b.releaseDeviceLocked()
	b.current = nil
	b.ready = false
}

// releaseDeviceLocked drops standalone device resources.
// Provider-owned devices are left untouched.
func (b *Backend) releaseDeviceLocked() {
	if b.external {
		return
	}
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
	b.device = nil
	b.queue = nil
}

// available reports whether a Vulkan adapter exists on this system.
func available() bool {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return false
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return false
	}
	defer instance.Destroy()
	return len(instance.EnumerateAdapters(nil)) > 0
}

// Ensure Backend implements gpu.Backend.
var _ gpu.Backend = (*Backend)(nil)

func init() {
	gpu.Register("wgpu", 100, func() (gpu.Backend, error) {
		return New(), nil
	}, available)
}
