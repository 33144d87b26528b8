// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package sched batches host command recording and tracks in-flight work.
// The Scheduler pipelines CPU recording against GPU execution: Flush
// submits the current batch with a fresh fence and immediately reopens
// recording, so callers never block on submission. Fences are the only
// cross-timeline primitive; resources written by batch N are not reused
// until fence N is observed complete.
package sched
