// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gmem models the guest GPU memory system: a page-table MMU
// translating GPU virtual addresses to CPU addresses, block read/write
// access to backing guest memory, and page-granular tracking of which
// guest ranges are shadowed by host caches.
package gmem
