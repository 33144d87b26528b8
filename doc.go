// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package maxwell translates the GPU command state of a Maxwell-family
// game console into host GPU work.
//
// A frontend decodes the guest command stream into the engine register
// file, then drives the GPU object: Clear and Draw consume the register
// state, Flush submits the recorded batch. Shaders are decompiled on
// first use, pipelines, surfaces and buffers are cached against guest
// memory, and guest writes invalidate the affected entries.
//
// The host boundary is the host.Device interface; backends register
// themselves under backend/ (gogpu/wgpu for real GPUs, an in-memory
// null device for tests and tools).
//
// By default the package produces no log output; see SetLogger.
package maxwell
