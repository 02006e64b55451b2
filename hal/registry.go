// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"fmt"
	"sort"
	"sync"
)

// Backend names known to the registry.
const (
	BackendWGPU     = "wgpu"
	BackendSoftware = "software"
)

// Factory creates a backend.
type Factory func() Backend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for Default (first registered wins).
	backendPriority = []string{BackendWGPU, BackendSoftware}
)

// Register registers a backend factory under name. It is called from
// init in backend packages. Registering a name again replaces it.
func Register(name string, factory Factory) {
	if factory == nil {
		panic("hal: Register factory is nil")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend. It is meant for tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Backends returns the sorted names of registered backends.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetBackend returns a new backend by name.
func GetBackend(name string) (Backend, bool) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, false
	}
	b := factory()
	return b, b != nil
}

// Default returns the best registered backend.
// Priority order: wgpu > software, then any other in name order.
func Default() (Backend, error) {
	for _, name := range backendPriority {
		if b, ok := GetBackend(name); ok {
			return b, nil
		}
	}
	for _, name := range Backends() {
		if b, ok := GetBackend(name); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: no backend registered", ErrUnsupportedBackend)
}
