// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/adapter"
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gpucontext"
)

// Provider exposes a device and one of its queues to hosts that accept a
// gpucontext.DeviceProvider, such as the gogpu windowing layer.
type Provider struct {
	device  *Device
	queue   *Queue
	surface format.Format
}

var _ gpucontext.DeviceProvider = (*Provider)(nil)

// NewProvider returns a provider for q with the given surface format.
func NewProvider(q *Queue, surface format.Format) *Provider {
	return &Provider{device: q.device, queue: q, surface: surface}
}

// Device returns the device.
func (p *Provider) Device() gpucontext.Device { return p.device }

// Queue returns the queue.
func (p *Provider) Queue() gpucontext.Queue { return p.queue }

// Adapter returns the adapter the device was opened from.
func (p *Provider) Adapter() gpucontext.Adapter { return p.device.adapter }

// AdapterInfo returns the name and class of the adapter. CPU adapters
// report AdapterTypeSoftware; virtual and other devices are unknown.
func (p *Provider) AdapterInfo() gpucontext.AdapterInfo {
	info := p.device.adapter.Info()
	return gpucontext.AdapterInfo{Name: info.Name, Type: adapterType(info.DeviceType)}
}

func adapterType(t adapter.DeviceType) gpucontext.AdapterType {
	switch t {
	case adapter.DiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case adapter.IntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case adapter.CPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

// SurfaceFormat returns the surface format as a gputypes texture format,
// or TextureFormatUndefined when it has no equivalent.
func (p *Provider) SurfaceFormat() gputypes.TextureFormat {
	tf, ok := format.ToTextureFormat(p.surface)
	if !ok {
		return gputypes.TextureFormatUndefined
	}
	return tf
}

// GPU returns the device and queue of p for callers that know the
// provider came from this package.
func (p *Provider) GPU() (*Device, *Queue) { return p.device, p.queue }
