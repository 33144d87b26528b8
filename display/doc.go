// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package display hands finished frames to an embedding frontend.
//
// A Presenter resolves the surface rendered at the guest framebuffer
// address, reads it back to RGBA, scales it to the output extent and
// draws it through a gpucontext.TextureDrawer. The frontend texture is
// created once and updated in place on subsequent frames.
package display
