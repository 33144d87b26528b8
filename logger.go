// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package maxwell

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the package logger. By default no log output is
// produced. Pass nil to restore the silent default.
//
// The logger applies to GPU objects created afterwards; an existing GPU
// picks it up via (*GPU).SetLogger.
//
// Log levels used:
//   - [slog.LevelDebug]: cache traffic (surface eviction, shader compiles)
//   - [slog.LevelInfo]: lifecycle events (backend selected)
//   - [slog.LevelWarn]: recoverable maintenance (flush retries, cache drops)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by subsystems that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a subsystem if it accepts one.
func propagateLogger(v any, l *slog.Logger) {
	if ls, ok := v.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
