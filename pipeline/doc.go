// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pipeline caches translated shaders and compiled render
// pipelines.
//
// Shaders are cached by the CPU address of their guest code; pipelines by
// a composite key of per-stage shader addresses plus the fixed-function
// state baked into a host pipeline. Both caches compile at most once per
// key. Invalidation over a guest memory range removes the shaders whose
// code lives there and every pipeline referencing them.
//
// Each cached shader owns a fence-protected arena of descriptor sets so
// per-draw bindings never reuse a set the GPU may still be reading.
package pipeline
