// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"time"

	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gfx/window"
)

// Backend objects. Each is a handle whose concrete type is chosen by the
// backend; only the backend that created a handle may consume it.
type (
	// Memory is a device memory allocation.
	Memory interface{}
	// Buffer is a linear resource.
	Buffer interface{}
	// Image is a texel resource.
	Image interface{}
	// ImageView is a typed view of image subresources.
	ImageView interface{}
	// Sampler holds texture sampling state.
	Sampler interface{}
	// RenderPass is a created render pass.
	RenderPass interface{}
	// Framebuffer binds image views to render pass attachments.
	Framebuffer interface{}
	// ShaderModule holds compiled shader code.
	ShaderModule interface{}
	// DescriptorSetLayout describes the bindings of a descriptor set.
	DescriptorSetLayout interface{}
	// DescriptorSet is a set of resource bindings.
	DescriptorSet interface{}
	// PipelineLayout describes the descriptor sets and push constants
	// visible to a pipeline.
	PipelineLayout interface{}
	// GraphicsPipeline is an immutable graphics pipeline.
	GraphicsPipeline interface{}
	// ComputePipeline is an immutable compute pipeline.
	ComputePipeline interface{}
	// Fence is a CPU observable completion signal.
	Fence interface{}
	// Semaphore orders work between queues on the GPU.
	Semaphore interface{}
	// QueryPool is a pool of queries.
	QueryPool interface{}
)

// DescriptorPool allocates descriptor sets.
type DescriptorPool interface {
	// AllocateSet allocates one set with the given layout. It fails with
	// ErrOutOfPoolMemory when the pool is exhausted.
	AllocateSet(layout DescriptorSetLayout) (DescriptorSet, error)

	// FreeSets returns sets to the pool.
	FreeSets(sets []DescriptorSet)

	// Reset frees every set allocated from the pool.
	Reset()
}

// Descriptor is one resource written into a descriptor set. The fields
// used depend on the binding's descriptor type.
type Descriptor struct {
	Buffer    Buffer
	Range     buffer.SubRange
	ImageView ImageView
	Layout    image.Layout
	Sampler   Sampler
}

// DescriptorSetWrite updates consecutive array elements of one binding.
type DescriptorSetWrite struct {
	Set         DescriptorSet
	Binding     uint32
	ArrayOffset uint32
	Descriptors []Descriptor
}

// GraphicsShaderSet lists the entry points of a graphics pipeline.
// Vertex is mandatory; the other stages are optional.
type GraphicsShaderSet struct {
	Vertex   pso.EntryPoint[ShaderModule]
	Hull     *pso.EntryPoint[ShaderModule]
	Domain   *pso.EntryPoint[ShaderModule]
	Geometry *pso.EntryPoint[ShaderModule]
	Fragment *pso.EntryPoint[ShaderModule]
}

// Subpass names one subpass of a render pass.
type Subpass struct {
	Index int
	Main  RenderPass
}

// GraphicsPipelineDesc describes a graphics pipeline.
type GraphicsPipelineDesc struct {
	Label          string
	Shaders        GraphicsShaderSet
	Rasterizer     pso.Rasterizer
	VertexBuffers  []pso.VertexBufferDesc
	Attributes     []pso.AttributeDesc
	InputAssembler pso.InputAssemblerDesc
	Blender        pso.BlendDesc
	DepthStencil   pso.DepthStencilDesc
	Multisampling  *pso.Multisampling
	BakedStates    pso.BakedStates
	Layout         PipelineLayout
	Subpass        Subpass
	Flags          pso.CreationFlags
}

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	Label  string
	Shader pso.EntryPoint[ShaderModule]
	Layout PipelineLayout
	Flags  pso.CreationFlags
}

// Surface is a presentation target created from a host window.
type Surface interface {
	// Capabilities reports the swapchains pd can create for the surface.
	Capabilities(pd PhysicalDevice) window.SurfaceCapabilities

	// SupportsQueueFamily reports whether queues of family can present.
	SupportsQueueFamily(family queue.FamilyID) bool
}

// Swapchain is a series of presentable images.
type Swapchain interface {
	// AcquireImage returns the index of the next image. semaphore and
	// fence, when non-nil, are signaled once the image is ready. It
	// returns ErrTimeout when no image becomes available in time and
	// ErrOutOfDate when the swapchain must be recreated.
	AcquireImage(timeout time.Duration, semaphore Semaphore, fence Fence) (uint32, error)
}
