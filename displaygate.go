// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package duocam

import (
	"context"
	"sync"
)

// DisplayGate is the one-shot readiness handshake between the UI layer
// and the pipeline.
//
// A native display target that is not yet valid is a wait, not an
// error: Start suspends on Wait until the UI layer calls Ready once
// the target exists. Ready may be called before Start; further calls
// are no-ops.
type DisplayGate struct {
	once  sync.Once
	ready chan struct{}
}

// NewDisplayGate creates an unresolved gate.
func NewDisplayGate() *DisplayGate {
	return &DisplayGate{ready: make(chan struct{})}
}

// Ready resolves the gate. Idempotent; safe from any goroutine.
func (g *DisplayGate) Ready() {
	g.once.Do(func() { close(g.ready) })
}

// Wait suspends until Ready has been called or ctx is done.
func (g *DisplayGate) Wait(ctx context.Context) error {
	select {
	case <-g.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
