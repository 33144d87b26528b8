// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package maxwell

import (
	"github.com/gogpu/maxwell/gmem"
	"github.com/gogpu/maxwell/host"
)

// Option configures a GPU during creation.
//
// Example:
//
//	// Best available backend, default sizing
//	gpu, err := maxwell.New(ram)
//
//	// Headless tests
//	gpu, err := maxwell.New(ram, maxwell.WithBackend(backend.BackendNull))
type Option func(*options)

// options holds optional configuration for GPU creation.
type options struct {
	backendName string
	device      host.Device
	streamSize  uint64
	tracker     *gmem.PageTracker
}

// WithBackend selects a registered backend by name instead of the
// priority default.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backendName = name
	}
}

// WithDevice injects an already opened host device. The caller keeps
// ownership; Destroy leaves it alive.
func WithDevice(dev host.Device) Option {
	return func(o *options) {
		o.device = dev
	}
}

// WithStreamSize sets the stream buffer capacity in bytes. Zero selects
// buffer.DefaultStreamSize; small values clamp to buffer.MinStreamSize.
func WithStreamSize(size uint64) Option {
	return func(o *options) {
		o.streamSize = size
	}
}

// WithPageTracker shares the embedding emulator's page residency
// tracker so CPU-side memory code can observe cached GPU pages.
func WithPageTracker(t *gmem.PageTracker) Option {
	return func(o *options) {
		o.tracker = t
	}
}
