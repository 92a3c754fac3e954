// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package device

import "errors"

var (
	// ErrNoBackendAvailable is returned when no graphics backend is
	// registered or available on the current system.
	ErrNoBackendAvailable = errors.New("device: no backend available")

	// ErrContextLost is returned by Draw when the device stopped
	// responding. The owner should treat its context as lost.
	ErrContextLost = errors.New("device: context lost")

	// ErrCompile is returned by Build when the shader program cannot be
	// compiled or linked.
	ErrCompile = errors.New("device: shader compilation failed")

	// ErrNotBuilt is returned by Draw before a successful Build.
	ErrNotBuilt = errors.New("device: program not built")

	// ErrDestroyed is returned by operations on a destroyed context.
	ErrDestroyed = errors.New("device: context destroyed")
)

// BackendNotFoundError indicates a named backend is not registered.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "device: backend not found: " + e.Name
}

// BackendUnavailableError indicates a backend exists but is not available.
type BackendUnavailableError struct {
	Name string
}

func (e *BackendUnavailableError) Error() string {
	return "device: backend unavailable: " + e.Name
}
