// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements the host device on top of gogpu/wgpu's HAL.
// Resources are tracked in ID-to-handle maps so the caches above never
// touch backend objects directly.
package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/maxwell/backend"
	"github.com/gogpu/maxwell/host"
)

func init() {
	backend.Register(backend.BackendWgpu, func() backend.Backend {
		return &Backend{}
	})
}

var (
	// ErrNoVulkan is returned when the Vulkan HAL backend is unavailable.
	ErrNoVulkan = errors.New("wgpu: vulkan backend not available")
)

// Backend constructs devices over gogpu/wgpu's Vulkan HAL.
type Backend struct{}

// Name returns the backend identifier.
func (*Backend) Name() string { return backend.BackendWgpu }

// Open selects an adapter and creates a device. Discrete and integrated
// GPUs are preferred over software rasterizers.
func (*Backend) Open() (host.Device, error) {
	hb, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoVulkan
	}
	instance, err := hb.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, backend.ErrNoAdapter
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
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}
	return newDevice(openDev.Device, openDev.Queue), nil
}
