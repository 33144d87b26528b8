// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package maxwell

import "errors"

var (
	// ErrNoBackend reports that no host backend could be opened.
	ErrNoBackend = errors.New("maxwell: no backend available")

	// ErrNoRenderTargets reports a draw or clear with no color target
	// and no depth buffer bound.
	ErrNoRenderTargets = errors.New("maxwell: no render targets bound")

	// ErrConstBufferUnbound reports a shader reading a constant buffer
	// slot with no guest buffer bound to it.
	ErrConstBufferUnbound = errors.New("maxwell: constant buffer not bound")

	// ErrVertexArrayDisabled reports a pipeline fed by a vertex array
	// slot the guest has not enabled.
	ErrVertexArrayDisabled = errors.New("maxwell: vertex array disabled")

	// ErrNoIndexBuffer reports an indexed draw with no index buffer
	// bound.
	ErrNoIndexBuffer = errors.New("maxwell: no index buffer bound")
)
