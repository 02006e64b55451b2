// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"runtime"
	"sync"

	"github.com/gogpu/gfx/hal"
)

func init() {
	hal.Register(hal.BackendSoftware, func() hal.Backend { return New() })
}

// Default heap sizes.
const (
	DefaultDeviceHeapSize = 256 << 20
	DefaultHostHeapSize   = 256 << 20
)

// Option configures a Backend.
type Option func(*options)

type options struct {
	adapterName string
	deviceHeap  uint64
	hostHeap    uint64
	manual      bool
	workers     int
	drawHook    DrawHook
	features    *hal.Features
	limits      func(*hal.Limits)
}

func defaultOptions() options {
	return options{
		adapterName: "Software Rasterizer",
		deviceHeap:  DefaultDeviceHeapSize,
		hostHeap:    DefaultHostHeapSize,
		workers:     runtime.GOMAXPROCS(0),
	}
}

// WithAdapterName sets the name the adapter reports.
func WithAdapterName(name string) Option {
	return func(o *options) { o.adapterName = name }
}

// WithHeapSizes sets the budgets of the device local and host heaps.
// Allocations beyond a budget fail with hal.ErrOutOfDeviceMemory.
func WithHeapSizes(device, host uint64) Option {
	return func(o *options) {
		o.deviceHeap = device
		o.hostHeap = host
	}
}

// WithManualCompletion holds every submission at its queue until Advance
// releases it, so tests decide when work completes.
func WithManualCompletion() Option {
	return func(o *options) { o.manual = true }
}

// WithWorkers sets the number of goroutines compute dispatches run on.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithDrawHook installs a function called for every executed draw.
func WithDrawHook(h DrawHook) Option {
	return func(o *options) { o.drawHook = h }
}

// WithFeatures restricts the features the adapter reports.
func WithFeatures(f hal.Features) Option {
	return func(o *options) { o.features = &f }
}

// WithLimits lets fn adjust the limits the adapter reports.
func WithLimits(fn func(*hal.Limits)) Option {
	return func(o *options) { o.limits = fn }
}

// Backend is the software backend. The zero value is not usable; call New.
type Backend struct {
	opts options

	mu      sync.Mutex
	devices map[*device]struct{}
}

var _ hal.Backend = (*Backend)(nil)

// New returns a software backend.
func New(opts ...Option) *Backend {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Backend{opts: o, devices: make(map[*device]struct{})}
}

// Name returns "software".
func (b *Backend) Name() string { return hal.BackendSoftware }

// CreateInstance creates an instance. It never fails.
func (b *Backend) CreateInstance(desc hal.InstanceDesc) (hal.Instance, error) {
	slogger().Debug("software: instance created", "app", desc.Name, "version", desc.Version)
	return &instance{backend: b, adapter: newPhysicalDevice(b)}, nil
}

// Advance releases n held submissions on every device opened from the
// backend. It only has an effect with WithManualCompletion.
func (b *Backend) Advance(n int) {
	for _, d := range b.liveDevices() {
		d.advance(n)
	}
}

// Held reports how many submissions wait for Advance across all devices.
func (b *Backend) Held() int {
	n := 0
	for _, d := range b.liveDevices() {
		n += d.held()
	}
	return n
}

// LoseDevices marks every device opened from the backend as lost.
func (b *Backend) LoseDevices() {
	for _, d := range b.liveDevices() {
		d.lose()
	}
}

func (b *Backend) liveDevices() []*device {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*device, 0, len(b.devices))
	for d := range b.devices {
		out = append(out, d)
	}
	return out
}

func (b *Backend) track(d *device) {
	b.mu.Lock()
	b.devices[d] = struct{}{}
	b.mu.Unlock()
}

func (b *Backend) untrack(d *device) {
	b.mu.Lock()
	delete(b.devices, d)
	b.mu.Unlock()
}
