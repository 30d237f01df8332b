// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package duocam

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDisplayGateReadyBeforeWait(t *testing.T) {
	g := NewDisplayGate()
	g.Ready()
	if err := g.Wait(context.Background()); err != nil {
		t.Errorf("Wait after Ready = %v", err)
	}
}

func TestDisplayGateReadyIdempotent(t *testing.T) {
	g := NewDisplayGate()
	g.Ready()
	g.Ready()
	if err := g.Wait(context.Background()); err != nil {
		t.Errorf("Wait = %v", err)
	}
}

func TestDisplayGateWaitCancelled(t *testing.T) {
	g := NewDisplayGate()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait on cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestDisplayGateResolvesWaiter(t *testing.T) {
	g := NewDisplayGate()
	done := make(chan error, 1)
	go func() {
		done <- g.Wait(context.Background())
	}()

	g.Ready()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not resolve after Ready")
	}
}
