// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/adapter"
	"github.com/gogpu/gfx/backend/software"
	"github.com/gogpu/gfx/format"
)

func TestProvider(t *testing.T) {
	td := newTestDevice(t, software.WithAdapterName("provider-test"))
	var p gpucontext.DeviceProvider = NewProvider(td.general, format.RGBA8Unorm)

	info := p.AdapterInfo()
	if info.Name != "provider-test" {
		t.Errorf("AdapterInfo().Name = %q, want provider-test", info.Name)
	}
	if info.Type != gpucontext.AdapterTypeSoftware {
		t.Errorf("AdapterInfo().Type = %v, want Software", info.Type)
	}
	if got := p.SurfaceFormat(); got != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("SurfaceFormat() = %v, want RGBA8Unorm", got)
	}
	if p.Device() != gpucontext.Device(td.device) || p.Queue() != gpucontext.Queue(td.general) {
		t.Error("provider does not expose the device and queue it was built from")
	}
}

func TestAdapterType(t *testing.T) {
	tests := []struct {
		in   adapter.DeviceType
		want gpucontext.AdapterType
	}{
		{adapter.DiscreteGPU, gpucontext.AdapterTypeDiscrete},
		{adapter.IntegratedGPU, gpucontext.AdapterTypeIntegrated},
		{adapter.CPU, gpucontext.AdapterTypeSoftware},
		{adapter.VirtualGPU, gpucontext.AdapterTypeUnknown},
		{adapter.Other, gpucontext.AdapterTypeUnknown},
	}
	for _, tt := range tests {
		if got := adapterType(tt.in); got != tt.want {
			t.Errorf("adapterType(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
