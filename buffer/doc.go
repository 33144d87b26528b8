// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package buffer streams guest memory into host GPU buffers.
//
// A StreamBuffer is one large host buffer consumed as a per-frame linear
// allocator; when the cursor wraps, every cached offset is dropped.
// Cache copies guest ranges to the stream and remembers the offsets of
// large uploads so repeated draws over unchanged guest data skip the
// copy. GlobalRegionCache holds guest-addressed regions in dedicated
// host buffers with fence watches guarding reuse.
package buffer
