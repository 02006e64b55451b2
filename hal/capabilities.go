// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"math/bits"
	"strings"
)

// Features is a bitmask of optional device capabilities. A device only
// exposes the features requested when it was opened.
type Features uint64

// Optional features.
const (
	FeatureRobustBufferAccess Features = 1 << iota
	FeatureFullDrawIndexU32
	FeatureImageCubeArray
	FeatureIndependentBlending
	FeatureGeometryShader
	FeatureTessellationShader
	FeatureSampleRateShading
	FeatureDualSrcBlending
	FeatureLogicOp
	FeatureMultiDrawIndirect
	FeatureDrawIndirectFirstInstance
	FeatureDepthClamp
	FeatureDepthBiasClamp
	FeatureNonFillPolygonMode
	FeatureDepthBounds
	FeatureLineWidth
	FeaturePointSize
	FeatureSamplerAnisotropy
	FeatureFormatBC
	FeatureOcclusionQueryPrecise
	FeaturePipelineStatisticsQuery
	FeatureVertexStoresAndAtomics
	FeatureFragmentStoresAndAtomics
	FeatureShaderFloat64
	FeatureShaderInt64
	FeatureShaderInt16
	FeatureTimestampQuery

	featureCount = iota
)

var featureNames = [featureCount]string{
	"RobustBufferAccess", "FullDrawIndexU32", "ImageCubeArray", "IndependentBlending",
	"GeometryShader", "TessellationShader", "SampleRateShading", "DualSrcBlending",
	"LogicOp", "MultiDrawIndirect", "DrawIndirectFirstInstance", "DepthClamp",
	"DepthBiasClamp", "NonFillPolygonMode", "DepthBounds", "LineWidth", "PointSize",
	"SamplerAnisotropy", "FormatBC", "OcclusionQueryPrecise", "PipelineStatisticsQuery",
	"VertexStoresAndAtomics", "FragmentStoresAndAtomics", "ShaderFloat64", "ShaderInt64",
	"ShaderInt16", "TimestampQuery",
}

// Contains reports whether every feature of other is in f.
func (f Features) Contains(other Features) bool {
	return f&other == other
}

// Missing returns the features of want that f lacks.
func (f Features) Missing(want Features) Features {
	return want &^ f
}

func (f Features) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for v := uint64(f); v != 0; v &= v - 1 {
		i := bits.TrailingZeros64(v)
		if i < featureCount {
			names = append(names, featureNames[i])
		} else {
			names = append(names, "Unknown")
		}
	}
	return strings.Join(names, "|")
}

// Hints are performance characteristics that do not change behavior.
type Hints uint32

// Hints.
const (
	// HintBaseVertexInstanceDrawing marks native support for base vertex
	// and base instance in draws.
	HintBaseVertexInstanceDrawing Hints = 1 << iota
	// HintUnifiedMemory marks adapters whose device memory is host memory.
	HintUnifiedMemory
	// HintNativeCommandBuffers marks backends that record directly into
	// native command buffers instead of deferring.
	HintNativeCommandBuffers
)

// Contains reports whether every hint of other is in h.
func (h Hints) Contains(other Hints) bool {
	return h&other == other
}

// SampleCounts is a bitmask of supported sample counts. Bit n is set when
// 1<<n samples are supported.
type SampleCounts uint8

// Supports reports whether n samples are supported.
func (s SampleCounts) Supports(n uint8) bool {
	if n == 0 || n&(n-1) != 0 {
		return false
	}
	return s&SampleCounts(n) != 0
}

// Limits are numeric ceilings of an adapter. Every creation or recording
// call that exceeds one is rejected.
type Limits struct {
	MaxImage1DSize      uint32
	MaxImage2DSize      uint32
	MaxImage3DSize      uint32
	MaxImageCubeSize    uint32
	MaxImageArrayLayers uint16
	MaxTexelElements    uint32

	MaxBufferSize         uint64
	MaxUniformBufferRange uint64
	MaxStorageBufferRange uint64
	MaxPushConstantsSize  uint32

	MaxMemoryAllocationCount  uint32
	MaxSamplerAllocationCount uint32
	MaxSamplerAnisotropy      float32

	MaxBoundDescriptorSets           int
	MaxDescriptorSetUniformBuffers   uint32
	MaxDescriptorSetStorageBuffers   uint32
	MaxDescriptorSetSampledImages    uint32
	MaxDescriptorSetStorageImages    uint32
	MaxPerStageDescriptorSamplers    uint32
	MaxDescriptorSetInputAttachments uint32

	MaxVertexInputAttributes      uint32
	MaxVertexInputBindings        uint32
	MaxVertexInputAttributeOffset uint32
	MaxVertexInputBindingStride   uint32

	MaxFramebufferExtent      [2]uint32
	MaxFramebufferLayers      uint16
	MaxFramebufferAttachments int
	MaxColorAttachments       int
	MaxSubpasses              int
	FramebufferColorSamples   SampleCounts
	FramebufferDepthSamples   SampleCounts

	MaxViewports          uint32
	MaxViewportDimensions [2]uint32

	MaxComputeSharedMemorySize uint32
	MaxComputeWorkGroupCount   WorkGroupCount
	MaxComputeWorkGroupSize    [3]uint32
	MaxDrawIndexedIndexValue   uint32
	MaxDrawIndirectCount       uint32

	MinBufferCopyOffsetAlignment     uint64
	MinBufferCopyPitchAlignment      uint64
	MinTexelBufferOffsetAlignment    uint64
	MinUniformBufferOffsetAlignment  uint64
	MinStorageBufferOffsetAlignment  uint64
	NonCoherentAtomSize              uint64
	OptimalBufferCopyOffsetAlignment uint64
	OptimalBufferCopyPitchAlignment  uint64

	// TimestampPeriod is the number of nanoseconds per timestamp tick.
	TimestampPeriod float32
}

// MaxImageSize returns the largest extent of an image with dims
// dimensions.
func (l Limits) MaxImageSize(dims int) uint32 {
	switch dims {
	case 1:
		return l.MaxImage1DSize
	case 3:
		return l.MaxImage3DSize
	default:
		return l.MaxImage2DSize
	}
}
