// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package engine models the guest 3D engine register file: render target
// and depth buffer configuration, vertex input layout, fixed-function
// state, shader stage configuration and clear parameters. The register
// values are the input vocabulary for every cache key downstream.
package engine
