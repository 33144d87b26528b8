// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader translates Maxwell shader programs into SPIR-V modules.
//
// Translation runs in two passes over the instruction stream. The control
// flow pass classifies how every reachable region of the program
// terminates and collects branch targets as labels. The code generation
// pass then walks the labelled regions in order and emits WGSL, which is
// compiled to SPIR-V with gogpu/naga. Alongside the module, translation
// produces a Manifest describing the constant buffers and attributes the
// program touches, which the pipeline layer uses to build descriptor
// bindings and vertex state.
//
// Guest registers are 32-bit and untyped; the generated WGSL models them
// as a private f32 array and bitcasts at each integer operation.
package shader
