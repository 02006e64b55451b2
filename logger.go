// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gfx/hal"
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

// liveBackends holds the backends of live instances so SetLogger can
// reach them.
var (
	liveMu       sync.Mutex
	liveBackends = make(map[*Instance]hal.Backend)
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for gfx and every backend in use.
// By default, gfx produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by gfx:
//   - [slog.LevelDebug]: resource creation, submissions, state transitions
//   - [slog.LevelInfo]: lifecycle events (instance created, device opened)
//   - [slog.LevelWarn]: non-fatal issues (device lost, failed waits on destroy)
//
// Example:
//
//	gfx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	liveMu.Lock()
	defer liveMu.Unlock()
	for _, b := range liveBackends {
		propagateLogger(b, l)
	}
}

// Logger returns the current logger used by gfx.
// Backends call this through their own SetLogger hook, which keeps them
// free of an import on this package.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a backend if it implements the
// loggerSetter interface.
func propagateLogger(b hal.Backend, l *slog.Logger) {
	if ls, ok := b.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

func trackInstance(i *Instance) {
	liveMu.Lock()
	defer liveMu.Unlock()
	liveBackends[i] = i.backend
	propagateLogger(i.backend, Logger())
}

func untrackInstance(i *Instance) {
	liveMu.Lock()
	defer liveMu.Unlock()
	delete(liveBackends, i)
}
