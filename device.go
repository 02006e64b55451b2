// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gpucontext"
)

// WaitForever is a timeout that never elapses.
const WaitForever = hal.WaitForever

// Device is a logical device. It creates every resource and owns them
// until they are destroyed explicitly.
//
// Once the backend reports ErrDeviceLost, every later operation of the
// device and its queues fails fast with ErrDeviceLost.
type Device struct {
	adapter  *Adapter
	raw      hal.Device
	features hal.Features
	limits   hal.Limits
	queues   []*Queue

	lost      atomic.Bool
	destroyed atomic.Bool

	memoryCount  atomic.Int64
	samplerCount atomic.Int64
}

var _ gpucontext.Device = (*Device)(nil)

func newDevice(a *Adapter, raw hal.Device, features hal.Features) *Device {
	return &Device{
		adapter:  a,
		raw:      raw,
		features: features,
		limits:   a.limits,
	}
}

// Adapter returns the adapter the device was opened from.
func (d *Device) Adapter() *Adapter { return d.adapter }

// Features returns the features the device was opened with.
func (d *Device) Features() hal.Features { return d.features }

// Limits returns the limits of the device's adapter.
func (d *Device) Limits() hal.Limits { return d.limits }

// IsLost reports whether the device has been lost.
func (d *Device) IsLost() bool { return d.lost.Load() }

// alive fails when the device can no longer be used.
func (d *Device) alive() error {
	if d.destroyed.Load() {
		return ErrDestroyed
	}
	if d.lost.Load() {
		return hal.ErrDeviceLost
	}
	return nil
}

// observe records device loss reported by a backend and returns err.
func (d *Device) observe(err error) error {
	if err != nil && errors.Is(err, hal.ErrDeviceLost) && !d.lost.Swap(true) {
		Logger().Warn("gfx: device lost", "adapter", d.adapter.info.Name, "err", err)
	}
	return err
}

func (d *Device) require(f hal.Features, what string) error {
	if !d.features.Contains(f) {
		return fmt.Errorf("%s: %w: %v", what, ErrMissingFeature, d.features.Missing(f))
	}
	return nil
}

// resource is the state shared by every device object.
type resource struct {
	device    *Device
	label     string
	destroyed atomic.Bool
}

// Label returns the debug label given at creation.
func (r *resource) Label() string { return r.label }

// owned is implemented by every device object.
type owned interface {
	base() *resource
}

// use checks that every object belongs to d and is alive.
func (d *Device) use(objs ...owned) error {
	for _, o := range objs {
		r := o.base()
		if r == nil {
			return fmt.Errorf("%w: nil %T", ErrInvalidDesc, o)
		}
		if r.device != d {
			return fmt.Errorf("%w: %T", ErrForeignResource, o)
		}
		if r.destroyed.Load() {
			return fmt.Errorf("%w: %T %q", ErrDestroyed, o, r.label)
		}
	}
	return nil
}

// release marks r destroyed and reports whether the caller should free
// the backend object.
func (d *Device) release(r *resource) bool {
	if r == nil || r.device != d {
		return false
	}
	return !r.destroyed.Swap(true)
}

// WaitIdle blocks until every queue of the device is idle. Every pending
// command buffer completes.
func (d *Device) WaitIdle() error {
	if err := d.alive(); err != nil {
		return err
	}
	if err := d.observe(d.raw.WaitIdle()); err != nil {
		return fmt.Errorf("wait idle: %w", err)
	}
	for _, q := range d.queues {
		q.completeAll()
	}
	return nil
}

// WaitForFences blocks until all (or, when all is false, any) of fences are
// signaled. It returns ErrTimeout when timeout elapses first; use
// WaitForever to wait without limit.
func (d *Device) WaitForFences(fences []*Fence, all bool, timeout time.Duration) error {
	if err := d.alive(); err != nil {
		return err
	}
	if len(fences) == 0 {
		return nil
	}
	raws := make([]hal.Fence, len(fences))
	for i, f := range fences {
		if err := d.use(f); err != nil {
			return fmt.Errorf("wait for fences: %w", err)
		}
		raws[i] = f.raw
	}
	ok, err := d.raw.WaitForFences(raws, all, timeout)
	if err != nil {
		return fmt.Errorf("wait for fences: %w", d.observe(err))
	}
	if !ok {
		return hal.ErrTimeout
	}
	if all {
		for _, f := range fences {
			f.signaled()
		}
		return nil
	}
	for _, f := range fences {
		if _, err := f.Status(); err != nil {
			return err
		}
	}
	return nil
}

// Poll completes the command buffers of every submission whose fence the
// backend reports signaled. With wait set it first blocks until the device
// is idle. Poll implements gpucontext.Device.
func (d *Device) Poll(wait bool) {
	if d.alive() != nil {
		return
	}
	if wait {
		if err := d.WaitIdle(); err != nil {
			Logger().Warn("gfx: poll wait failed", "err", err)
		}
		return
	}
	for _, q := range d.queues {
		q.poll()
	}
}

// Destroy waits for the device to become idle and releases it. Objects
// created by the device must be destroyed first. Destroy is idempotent.
func (d *Device) Destroy() {
	if d.destroyed.Load() {
		return
	}
	if !d.lost.Load() {
		if err := d.raw.WaitIdle(); err != nil {
			Logger().Warn("gfx: wait idle on destroy failed", "err", err)
		}
	}
	if d.destroyed.Swap(true) {
		return
	}
	d.raw.Destroy()
	Logger().Info("gfx: device destroyed", "adapter", d.adapter.info.Name)
}
