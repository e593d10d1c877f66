// SPDX-License-Identifier: MIT
package audio

import "errors"

// Sentinel errors for the control-path API. Match with errors.Is; the
// wrapped form carries device or driver detail.
var (
	// ErrDeviceNotFound is returned when a device ID does not identify
	// any known input device.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrStreamOpen is returned when the OS audio layer rejects the
	// stream configuration (rate mismatch, device busy, permissions).
	ErrStreamOpen = errors.New("failed to open stream")

	// ErrNoInputAvailable is returned when a recording is requested
	// while no input stream is running. Recording never auto-starts a
	// device; the caller must call StartInput first.
	ErrNoInputAvailable = errors.New("no input stream available")
)
