// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gfx/adapter"
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gfx/window"
)

// ErrUnsupportedHandle is returned by CreateSurface for window handles
// whose Target is not a *HeadlessWindow.
var ErrUnsupportedHandle = errors.New("software: window handle is not a headless window")

// Queue families of the software adapter.
const (
	FamilyGeneral  queue.FamilyID = 0
	FamilyCompute  queue.FamilyID = 1
	FamilyTransfer queue.FamilyID = 2
)

// Memory types of the software adapter.
const (
	MemoryDeviceLocal hal.MemoryTypeID = iota
	MemoryHostCoherent
	MemoryHostCached
)

type instance struct {
	backend *Backend
	adapter *physicalDevice
}

func (i *instance) EnumerateAdapters() []hal.ExposedAdapter {
	return []hal.ExposedAdapter{{
		Info:           i.adapter.info,
		PhysicalDevice: i.adapter,
		QueueFamilies: []queue.Family{
			{ID: FamilyGeneral, Type: queue.General, MaxQueues: 2},
			{ID: FamilyCompute, Type: queue.Compute, MaxQueues: 1},
			{ID: FamilyTransfer, Type: queue.Transfer, MaxQueues: 1},
		},
	}}
}

func (i *instance) CreateSurface(h window.Handle) (hal.Surface, error) {
	w, ok := h.Target.(*HeadlessWindow)
	if !ok || w == nil {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedHandle, h.Target)
	}
	return &surface{window: w}, nil
}

func (i *instance) DestroySurface(hal.Surface) {}

func (i *instance) Destroy() {}

const allFeatures = hal.FeatureRobustBufferAccess | hal.FeatureFullDrawIndexU32 |
	hal.FeatureImageCubeArray | hal.FeatureIndependentBlending | hal.FeatureGeometryShader |
	hal.FeatureTessellationShader | hal.FeatureSampleRateShading | hal.FeatureDualSrcBlending |
	hal.FeatureLogicOp | hal.FeatureMultiDrawIndirect | hal.FeatureDrawIndirectFirstInstance |
	hal.FeatureDepthClamp | hal.FeatureDepthBiasClamp | hal.FeatureNonFillPolygonMode |
	hal.FeatureDepthBounds | hal.FeatureLineWidth | hal.FeaturePointSize |
	hal.FeatureSamplerAnisotropy | hal.FeatureOcclusionQueryPrecise |
	hal.FeaturePipelineStatisticsQuery | hal.FeatureVertexStoresAndAtomics |
	hal.FeatureFragmentStoresAndAtomics | hal.FeatureShaderFloat64 | hal.FeatureShaderInt64 |
	hal.FeatureShaderInt16 | hal.FeatureTimestampQuery

// physicalDevice is the single adapter of the backend.
type physicalDevice struct {
	backend  *Backend
	info     adapter.Info
	features hal.Features
	limits   hal.Limits
	layout   memory.Layout
}

func newPhysicalDevice(b *Backend) *physicalDevice {
	features := allFeatures
	if b.opts.features != nil {
		features = *b.opts.features & allFeatures
	}
	limits := defaultLimits()
	if b.opts.limits != nil {
		b.opts.limits(&limits)
	}
	return &physicalDevice{
		backend: b,
		info: adapter.Info{
			Name:       b.opts.adapterName,
			DeviceType: adapter.CPU,
			Backend:    hal.BackendSoftware,
			UUID:       adapter.StableUUID(hal.BackendSoftware, b.opts.adapterName, 0, 0, 0),
		},
		features: features,
		limits:   limits,
		layout: memory.Layout{
			Types: []memory.Type{
				MemoryDeviceLocal:  {Properties: memory.DeviceLocal, HeapIndex: 0},
				MemoryHostCoherent: {Properties: memory.CPUVisible | memory.Coherent, HeapIndex: 1},
				MemoryHostCached:   {Properties: memory.CPUVisible | memory.Coherent | memory.CPUCached, HeapIndex: 1},
			},
			Heaps: []memory.Heap{
				{Size: b.opts.deviceHeap, Flags: memory.HeapDeviceLocal},
				{Size: b.opts.hostHeap},
			},
		},
	}
}

func defaultLimits() hal.Limits {
	return hal.Limits{
		MaxImage1DSize:      16384,
		MaxImage2DSize:      16384,
		MaxImage3DSize:      2048,
		MaxImageCubeSize:    16384,
		MaxImageArrayLayers: 2048,
		MaxTexelElements:    1 << 27,

		MaxBufferSize:         1 << 31,
		MaxUniformBufferRange: 1 << 16,
		MaxStorageBufferRange: 1 << 30,
		MaxPushConstantsSize:  256,

		MaxMemoryAllocationCount:  4096,
		MaxSamplerAllocationCount: 4000,
		MaxSamplerAnisotropy:      16,

		MaxBoundDescriptorSets:           8,
		MaxDescriptorSetUniformBuffers:   72,
		MaxDescriptorSetStorageBuffers:   72,
		MaxDescriptorSetSampledImages:    1024,
		MaxDescriptorSetStorageImages:    64,
		MaxPerStageDescriptorSamplers:    64,
		MaxDescriptorSetInputAttachments: 8,

		MaxVertexInputAttributes:      32,
		MaxVertexInputBindings:        32,
		MaxVertexInputAttributeOffset: 2047,
		MaxVertexInputBindingStride:   2048,

		MaxFramebufferExtent:      [2]uint32{16384, 16384},
		MaxFramebufferLayers:      2048,
		MaxFramebufferAttachments: 16,
		MaxColorAttachments:       8,
		MaxSubpasses:              16,
		FramebufferColorSamples:   1 | 4,
		FramebufferDepthSamples:   1 | 4,

		MaxViewports:          16,
		MaxViewportDimensions: [2]uint32{16384, 16384},

		MaxComputeSharedMemorySize: 32768,
		MaxComputeWorkGroupCount:   hal.WorkGroupCount{65535, 65535, 65535},
		MaxComputeWorkGroupSize:    [3]uint32{1024, 1024, 64},
		MaxDrawIndexedIndexValue:   math.MaxUint32,
		MaxDrawIndirectCount:       math.MaxUint32,

		MinBufferCopyOffsetAlignment:     1,
		MinBufferCopyPitchAlignment:      1,
		MinTexelBufferOffsetAlignment:    16,
		MinUniformBufferOffsetAlignment:  16,
		MinStorageBufferOffsetAlignment:  16,
		NonCoherentAtomSize:              1,
		OptimalBufferCopyOffsetAlignment: 16,
		OptimalBufferCopyPitchAlignment:  16,

		TimestampPeriod: 1,
	}
}

func (pd *physicalDevice) Open(families []hal.FamilyRequest, features hal.Features) (hal.OpenDevice, error) {
	d := newDevice(pd, features)
	out := hal.OpenDevice{Device: d}
	for _, req := range families {
		group := hal.QueueGroup{Family: req.Family}
		for range req.Priorities {
			q := d.newQueue(req.Family)
			group.Queues = append(group.Queues, q)
		}
		out.QueueGroups = append(out.QueueGroups, group)
	}
	pd.backend.track(d)
	slogger().Info("software: device opened", "queues", len(d.queues), "features", features)
	return out, nil
}

func (pd *physicalDevice) FormatProperties(f format.Format) format.Properties {
	return format.DefaultProperties(f)
}

func (pd *physicalDevice) MemoryProperties() memory.Layout { return pd.layout.Clone() }
func (pd *physicalDevice) Features() hal.Features         { return pd.features }

func (pd *physicalDevice) Hints() hal.Hints {
	return hal.HintBaseVertexInstanceDrawing | hal.HintUnifiedMemory
}

func (pd *physicalDevice) Limits() hal.Limits { return pd.limits }
