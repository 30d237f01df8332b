// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gst

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/gogpu/duocam/capture"
)

// classifyError maps a GStreamer error onto a capture sentinel.
//
// go-gst's GError does not expose the error domain, so classification
// relies on message heuristics.
func classifyError(gerr *gst.GError) error {
	if gerr == nil {
		return capture.ErrDeviceLost
	}
	return classifyMessage(gerr.Error(), gerr.DebugString())
}

// classifyMessage classifies by error and debug text.
func classifyMessage(errMsg, debugMsg string) error {
	msg := strings.ToLower(errMsg)
	debug := strings.ToLower(debugMsg)

	switch {
	case containsAny(msg, debug, "permission denied", "not authorized", "access denied"):
		return capture.ErrPermissionDenied
	case containsAny(msg, debug, "no such device", "device removed", "unplugged", "disconnected"):
		return capture.ErrDeviceLost
	case containsAny(msg, debug, "busy", "could not open", "cannot open", "not found"):
		return capture.ErrDeviceUnavailable
	case containsAny(msg, debug, "negotiat", "format", "caps"):
		return capture.ErrConfiguration
	default:
		return capture.ErrDeviceLost
	}
}

// classifyOpenError maps a state-change failure during open.
func classifyOpenError(err error) error {
	if err == nil {
		return capture.ErrDeviceUnavailable
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") {
		return capture.ErrPermissionDenied
	}
	return capture.ErrDeviceUnavailable
}

// containsAny reports whether any keyword occurs in either string.
func containsAny(msg, debug string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(msg, k) || strings.Contains(debug, k) {
			return true
		}
	}
	return false
}
