// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend selects and constructs host devices.
//
// Backends register themselves via Register (typically from init
// functions in their packages) and are selected by name with Get or by
// priority with Default. Two backends ship with the module: "wgpu",
// which drives a real GPU through gogpu/wgpu's HAL, and "null", an
// in-memory device that executes copies synchronously and is used by
// tests and headless tools.
package backend
