// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package texture caches guest surfaces as host images.
//
// Surfaces are keyed by the CPU address of their guest bytes. Lookup
// enumerates overlaps: no overlap creates a surface (optionally loading
// the guest contents, de-tiling block-linear layouts and converting
// depth formats in software), an exact match is returned as-is, and any
// other overlap flushes and evicts the old surfaces before allocating
// fresh. Registered surfaces never overlap one another.
//
// Registration reports the covered pages to a gmem.PageTracker so the
// embedding emulator can tell which CPU writes must invalidate here.
package texture
