// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import "github.com/gogpu/gfx/hal"

// Option configures an Instance during creation.
//
// Example:
//
//	// Best registered backend
//	inst, err := gfx.CreateInstance("app", 1)
//
//	// A specific backend by name
//	inst, err := gfx.CreateInstance("app", 1, gfx.WithBackend("software"))
type Option func(*options)

// options holds optional configuration for CreateInstance.
type options struct {
	backendName string
	backend     hal.Backend
}

// defaultOptions returns the default instance options.
func defaultOptions() options {
	return options{
		backendName: "", // Resolved with hal.Default when empty
	}
}

// WithBackend selects a registered backend by name.
// CreateInstance fails with *UnsupportedBackendError when no backend of
// that name is registered.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backendName = name
	}
}

// WithHALBackend uses b directly, bypassing the registry.
// Use this to inject a configured backend, for example a software backend
// created with non-default options.
func WithHALBackend(b hal.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}
