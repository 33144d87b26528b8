// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package host defines the boundary between the guest command translation
// layer and the host graphics API: opaque resource handles, descriptor
// structs over the gputypes vocabulary, and the Device/CommandEncoder
// interfaces a backend implements. Caches key and invalidate resources in
// these terms without knowing which backend serves them.
package host
