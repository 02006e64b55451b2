// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gfx/window"
)

var errNotRegistered = errors.New("not registered")

// Instance is an initialized backend. It is the entry point for adapter
// enumeration and surface creation.
type Instance struct {
	backend   hal.Backend
	raw       hal.Instance
	destroyed atomic.Bool

	mu       sync.Mutex
	adapters map[hal.PhysicalDevice]*Adapter
}

// CreateInstance initializes a backend. Without options the highest
// priority registered backend is used (see hal.Default).
//
// It fails with *UnsupportedBackendError, which matches
// ErrUnsupportedBackend, when no backend can be created.
func CreateInstance(name string, version uint32, opts ...Option) (*Instance, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b := o.backend
	if b == nil {
		var err error
		if o.backendName != "" {
			var ok bool
			if b, ok = hal.GetBackend(o.backendName); !ok {
				return nil, &UnsupportedBackendError{Name: o.backendName, Err: errNotRegistered}
			}
		} else if b, err = hal.Default(); err != nil {
			return nil, &UnsupportedBackendError{Err: err}
		}
	}

	raw, err := b.CreateInstance(hal.InstanceDesc{Name: name, Version: version})
	if err != nil {
		return nil, &UnsupportedBackendError{Name: b.Name(), Err: err}
	}
	inst := &Instance{
		backend:  b,
		raw:      raw,
		adapters: make(map[hal.PhysicalDevice]*Adapter),
	}
	trackInstance(inst)
	Logger().Info("gfx: instance created", "backend", b.Name(), "app", name)
	return inst, nil
}

// Backend returns the name of the backend the instance runs on.
func (i *Instance) Backend() string { return i.backend.Name() }

// EnumerateAdapters queries the backend for adapters. Each call asks the
// backend again; the set of adapters is stable within a session, and the
// same physical device is always returned as the same *Adapter.
func (i *Instance) EnumerateAdapters() []*Adapter {
	if i.destroyed.Load() {
		return nil
	}
	exposed := i.raw.EnumerateAdapters()

	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]*Adapter, 0, len(exposed))
	for _, e := range exposed {
		a, ok := i.adapters[e.PhysicalDevice]
		if !ok {
			a = newAdapter(i, e)
			i.adapters[e.PhysicalDevice] = a
		}
		out = append(out, a)
	}
	return out
}

// CreateSurface creates a presentation surface for a host window.
func (i *Instance) CreateSurface(h window.Handle) (*Surface, error) {
	if i.destroyed.Load() {
		return nil, ErrDestroyed
	}
	raw, err := i.raw.CreateSurface(h)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}
	return &Surface{instance: i, raw: raw}, nil
}

// DestroySurface destroys s. Swapchains created for s must be destroyed
// first.
func (i *Instance) DestroySurface(s *Surface) {
	if s == nil || s.instance != i || s.destroyed.Swap(true) {
		return
	}
	i.raw.DestroySurface(s.raw)
}

// Destroy releases the instance. Every device opened from its adapters
// must be destroyed first. Destroy is idempotent.
func (i *Instance) Destroy() {
	if i.destroyed.Swap(true) {
		return
	}
	untrackInstance(i)
	i.raw.Destroy()
	Logger().Info("gfx: instance destroyed", "backend", i.backend.Name())
}

// Surface is a presentation target created from a host window.
type Surface struct {
	instance  *Instance
	raw       hal.Surface
	destroyed atomic.Bool
}

// Capabilities reports the swapchains a can create for the surface.
func (s *Surface) Capabilities(a *Adapter) window.SurfaceCapabilities {
	return s.raw.Capabilities(a.raw)
}

// SupportsQueueFamily reports whether queues of family can present to s.
func (s *Surface) SupportsQueueFamily(family queue.FamilyID) bool {
	return s.raw.SupportsQueueFamily(family)
}
