// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package diskcache persists guest shaders between runs.
//
// The transferable cache is an append-only file of zlib-compressed
// records behind a versioned header: raw records carry guest shader
// code keyed by a content hash, usage records carry the pipeline
// configurations seen for those shaders. A frontend loads the file at
// boot and warms the pipeline cache before the first draw.
package diskcache
