// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"

	"github.com/gogpu/maxwell/host"
)

// Backend name constants.
const (
	// BackendWgpu is the name of the GPU backend (gogpu/wgpu HAL).
	BackendWgpu = "wgpu"
	// BackendNull is the name of the in-memory synchronous backend.
	BackendNull = "null"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNoAdapter is returned when the backend finds no usable GPU adapter.
	ErrNoAdapter = errors.New("backend: no adapter found")
)

// Backend constructs host devices for one device family. Open may be
// called more than once; each call yields an independent device.
type Backend interface {
	// Name returns the backend identifier (e.g. "wgpu", "null").
	Name() string

	// Open creates a device. The caller owns it and must call Destroy.
	Open() (host.Device, error)
}
