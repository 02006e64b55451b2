// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	wgpuhal "github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/hal"
)

func init() {
	hal.Register(hal.BackendWGPU, func() hal.Backend { return New() })
}

// DefaultWaitTimeout bounds every wait on a native fence.
const DefaultWaitTimeout = 5 * time.Second

// DefaultBindGroupCache is the number of bind groups a device keeps alive
// between dispatches.
const DefaultBindGroupCache = 64

// InstanceFactory creates the native WebGPU HAL instance.
type InstanceFactory func() (wgpuhal.Instance, error)

// Option configures a Backend.
type Option func(*options)

type options struct {
	factory    InstanceFactory
	spirv      bool
	timeout    time.Duration
	bindGroups int
}

func defaultOptions() options {
	return options{
		factory:    vulkanInstance,
		timeout:    DefaultWaitTimeout,
		bindGroups: DefaultBindGroupCache,
	}
}

// WithInstanceFactory replaces the native instance. Tests pass the noop
// HAL here.
func WithInstanceFactory(f InstanceFactory) Option {
	return func(o *options) { o.factory = f }
}

// WithSPIRV compiles WGSL shaders to SPIR-V with naga before handing them
// to the driver.
func WithSPIRV() Option {
	return func(o *options) { o.spirv = true }
}

// WithWaitTimeout bounds waits on native fences. A native wait that times
// out loses the device.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithBindGroupCache sets how many bind groups each device caches. A bind
// group is reused while its descriptor set is unchanged.
func WithBindGroupCache(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bindGroups = n
		}
	}
}

// vulkanInstance opens the Vulkan HAL, registered by the native backends
// the module links in.
func vulkanInstance() (wgpuhal.Instance, error) {
	b, ok := wgpuhal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan HAL not linked: %w", hal.ErrUnsupportedBackend)
	}
	return b.CreateInstance(&wgpuhal.InstanceDescriptor{Flags: 0})
}

// Backend is the WebGPU HAL backend.
type Backend struct {
	opts options
}

var _ hal.Backend = (*Backend)(nil)

// New returns a wgpu backend.
func New(opts ...Option) *Backend {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Backend{opts: o}
}

// Name returns "wgpu".
func (b *Backend) Name() string { return hal.BackendWGPU }

// CreateInstance opens the native instance. It fails with an error
// wrapping hal.ErrUnsupportedBackend when no native API is available.
func (b *Backend) CreateInstance(desc hal.InstanceDesc) (hal.Instance, error) {
	raw, err := b.opts.factory()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w: %w", hal.ErrUnsupportedBackend, err)
	}
	slogger().Debug("wgpu: instance created", "app", desc.Name, "version", desc.Version)
	return newInstance(b, raw), nil
}
