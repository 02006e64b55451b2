// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gputypes"
	wgpuhal "github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/adapter"
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gfx/window"
)

// ErrNoPresentation is returned by CreateSurface. The backend renders
// off screen only.
var ErrNoPresentation = errors.New("wgpu: presentation is not supported")

// FamilyGeneral is the only queue family. Its single queue accepts compute
// and transfer work.
const FamilyGeneral queue.FamilyID = 0

// Memory types of a wgpu adapter.
const (
	MemoryDeviceLocal hal.MemoryTypeID = iota
	MemoryHostCoherent
)

// Heap budgets reported to the front layer.
const (
	deviceHeapSize = 1 << 30
	hostHeapSize   = 1 << 30
)

type instance struct {
	backend *Backend
	raw     wgpuhal.Instance

	once     sync.Once
	adapters []hal.ExposedAdapter
}

func newInstance(b *Backend, raw wgpuhal.Instance) *instance {
	return &instance{backend: b, raw: raw}
}

// EnumerateAdapters asks the native instance once and caches the result,
// so each physical device keeps its identity across calls.
func (i *instance) EnumerateAdapters() []hal.ExposedAdapter {
	i.once.Do(func() {
		for idx, ea := range i.raw.EnumerateAdapters(nil) {
			pd := newPhysicalDevice(i.backend, ea, idx)
			i.adapters = append(i.adapters, hal.ExposedAdapter{
				Info:           pd.info,
				PhysicalDevice: pd,
				QueueFamilies: []queue.Family{
					{ID: FamilyGeneral, Type: queue.Compute, MaxQueues: 1},
				},
			})
		}
		slogger().Debug("wgpu: adapters enumerated", "count", len(i.adapters))
	})
	return i.adapters
}

func (i *instance) CreateSurface(window.Handle) (hal.Surface, error) {
	return nil, fmt.Errorf("%w: %w", ErrNoPresentation, hal.ErrSurfaceLost)
}

func (i *instance) DestroySurface(hal.Surface) {}

func (i *instance) Destroy() {
	i.raw.Destroy()
}

// physicalDevice wraps one native adapter.
type physicalDevice struct {
	backend *Backend
	raw     wgpuhal.Adapter
	info    adapter.Info
	limits  hal.Limits
	layout  memory.Layout
}

func newPhysicalDevice(b *Backend, ea wgpuhal.ExposedAdapter, index int) *physicalDevice {
	info := adapter.Info{
		Name:       ea.Info.Name,
		DeviceType: deviceType(ea.Info.DeviceType),
		Backend:    hal.BackendWGPU,
	}
	info.UUID = adapter.StableUUID(hal.BackendWGPU, info.Name, 0, 0, index)
	return &physicalDevice{
		backend: b,
		raw:     ea.Adapter,
		info:    info,
		limits:  limitsFrom(gputypes.DefaultLimits()),
		layout: memory.Layout{
			Types: []memory.Type{
				MemoryDeviceLocal:  {Properties: memory.DeviceLocal, HeapIndex: 0},
				MemoryHostCoherent: {Properties: memory.CPUVisible | memory.Coherent, HeapIndex: 1},
			},
			Heaps: []memory.Heap{
				{Size: deviceHeapSize, Flags: memory.HeapDeviceLocal},
				{Size: hostHeapSize},
			},
		},
	}
}

func deviceType(t gputypes.DeviceType) adapter.DeviceType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return adapter.DiscreteGPU
	case gputypes.DeviceTypeIntegratedGPU:
		return adapter.IntegratedGPU
	default:
		return adapter.Other
	}
}

// limitsFrom translates WebGPU limits. Image and graphics limits are zero
// because neither is supported.
func limitsFrom(l gputypes.Limits) hal.Limits {
	return hal.Limits{
		MaxBufferSize:         l.MaxBufferSize,
		MaxUniformBufferRange: 1 << 16,
		MaxStorageBufferRange: min(l.MaxBufferSize, 1<<27),

		MaxMemoryAllocationCount: 4096,

		MaxBoundDescriptorSets:         4,
		MaxDescriptorSetUniformBuffers: 12,
		MaxDescriptorSetStorageBuffers: 8,

		MaxComputeSharedMemorySize: 16384,
		MaxComputeWorkGroupCount:   hal.WorkGroupCount{65535, 65535, 65535},
		MaxComputeWorkGroupSize: [3]uint32{
			l.MaxComputeWorkgroupSizeX,
			l.MaxComputeWorkgroupSizeY,
			l.MaxComputeWorkgroupSizeZ,
		},
		MaxDrawIndexedIndexValue: math.MaxUint32,

		MinBufferCopyOffsetAlignment:     4,
		MinBufferCopyPitchAlignment:      256,
		MinUniformBufferOffsetAlignment:  256,
		MinStorageBufferOffsetAlignment:  256,
		MinTexelBufferOffsetAlignment:    256,
		NonCoherentAtomSize:              4,
		OptimalBufferCopyOffsetAlignment: 256,
		OptimalBufferCopyPitchAlignment:  256,

		TimestampPeriod: 1,
	}
}

func (pd *physicalDevice) Open(families []hal.FamilyRequest, features hal.Features) (hal.OpenDevice, error) {
	od, err := pd.raw.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return hal.OpenDevice{}, fmt.Errorf("wgpu: open device: %w", err)
	}
	d, err := newDevice(pd, od.Device, od.Queue)
	if err != nil {
		od.Device.Destroy()
		return hal.OpenDevice{}, err
	}
	out := hal.OpenDevice{Device: d}
	for _, req := range families {
		group := hal.QueueGroup{Family: req.Family}
		for range req.Priorities {
			group.Queues = append(group.Queues, d.newQueue())
		}
		out.QueueGroups = append(out.QueueGroups, group)
	}
	slogger().Info("wgpu: device opened", "adapter", pd.info.Name, "features", features)
	return out, nil
}

// FormatProperties reports no features: images are not supported.
func (pd *physicalDevice) FormatProperties(format.Format) format.Properties {
	return format.Properties{}
}

func (pd *physicalDevice) MemoryProperties() memory.Layout { return pd.layout.Clone() }

// Features reports robust buffer access and timestamps, which WebGPU
// guarantees and the queue emulates.
func (pd *physicalDevice) Features() hal.Features {
	return hal.FeatureRobustBufferAccess | hal.FeatureTimestampQuery
}

func (pd *physicalDevice) Hints() hal.Hints { return 0 }

func (pd *physicalDevice) Limits() hal.Limits { return pd.limits }
