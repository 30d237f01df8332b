// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package duocam

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/duocam/capture"
	"github.com/gogpu/duocam/gpu"
	"github.com/gogpu/duocam/render"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine,
// including capture callback goroutines.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for duocam and all its sub-packages.
// By default, duocam produces no log output. Call SetLogger to enable it.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by duocam:
//   - [slog.LevelDebug]: internal diagnostics (per-pass timings, tick counts)
//   - [slog.LevelInfo]: lifecycle events (devices opened, loop started)
//   - [slog.LevelWarn]: non-fatal issues (dropped frames, release errors)
//   - [slog.LevelError]: faults surfaced on the pipeline fault channel
//
// Example:
//
//	duocam.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	capture.SetLogger(l)
	gpu.SetLogger(l)
	render.SetLogger(l)
}

// Logger returns the current logger used by duocam.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
