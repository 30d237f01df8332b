// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package capture defines the camera capture boundary: drivers that
// enumerate and open hardware devices, devices that stream frames into
// a fixed set of targets, and the fault channel that surfaces device
// loss instead of freezing silently on stale frames.
//
// Implementations must guarantee:
//   - Open is governed by its context and never blocks indefinitely
//     once the context is done
//   - StartCapture streams every produced frame to all targets
//     simultaneously until Close
//   - Close is idempotent and safe even if Open never completed
//   - Faults() delivery never blocks the producing callback
//
// Frame delivery happens on goroutines the caller does not control.
// Targets must therefore do minimal work per frame; anything expensive
// belongs on the consumer side.
package capture
