// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"time"

	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pass"
	"github.com/gogpu/gfx/pool"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gfx/window"
)

// WaitForever is a timeout that never elapses.
const WaitForever = time.Duration(-1)

// Device creates and destroys every GPU resource.
//
// Resources are never collected implicitly: each object created by a
// device stays alive until its Destroy or Free call. Destroying an object
// that pending command buffers still reference is undefined.
type Device interface {
	// AllocateMemory allocates size bytes of memory type typ. It fails with
	// ErrOutOfDeviceMemory, ErrOutOfMemory or ErrTooManyObjects.
	AllocateMemory(typ MemoryTypeID, size uint64) (Memory, error)
	FreeMemory(m Memory)

	// MapMemory maps a segment of host visible memory and returns its
	// bytes. The slice is valid until UnmapMemory.
	MapMemory(m Memory, seg memory.Segment) ([]byte, error)
	UnmapMemory(m Memory)

	// FlushMemory makes host writes to non-coherent memory visible.
	FlushMemory(m Memory, seg memory.Segment) error
	// InvalidateMemory makes device writes to non-coherent memory visible.
	InvalidateMemory(m Memory, seg memory.Segment) error

	CreateBuffer(desc buffer.Desc) (Buffer, error)
	BufferRequirements(b Buffer) memory.Requirements
	BindBufferMemory(m Memory, offset uint64, b Buffer) error
	DestroyBuffer(b Buffer)

	CreateImage(desc image.Desc) (Image, error)
	ImageRequirements(img Image) memory.Requirements
	BindImageMemory(m Memory, offset uint64, img Image) error
	DestroyImage(img Image)

	CreateImageView(img Image, desc image.ViewDesc) (ImageView, error)
	DestroyImageView(v ImageView)

	CreateSampler(desc image.SamplerDesc) (Sampler, error)
	DestroySampler(s Sampler)

	CreateRenderPass(desc pass.Desc) (RenderPass, error)
	DestroyRenderPass(rp RenderPass)

	CreateFramebuffer(rp RenderPass, attachments []ImageView, extent image.Extent) (Framebuffer, error)
	DestroyFramebuffer(fb Framebuffer)

	CreateShaderModule(src pso.ShaderSource) (ShaderModule, error)
	DestroyShaderModule(m ShaderModule)

	CreateDescriptorSetLayout(bindings []pso.DescriptorSetLayoutBinding) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(l DescriptorSetLayout)

	CreateDescriptorPool(maxSets int, ranges []pso.DescriptorRangeDesc, flags pso.DescriptorPoolCreateFlags) (DescriptorPool, error)
	DestroyDescriptorPool(p DescriptorPool)

	WriteDescriptorSets(writes []DescriptorSetWrite)

	CreatePipelineLayout(sets []DescriptorSetLayout, pushConstants []pso.PushConstantRange) (PipelineLayout, error)
	DestroyPipelineLayout(l PipelineLayout)

	CreateGraphicsPipeline(desc *GraphicsPipelineDesc) (GraphicsPipeline, error)
	DestroyGraphicsPipeline(p GraphicsPipeline)

	CreateComputePipeline(desc *ComputePipelineDesc) (ComputePipeline, error)
	DestroyComputePipeline(p ComputePipeline)

	CreateCommandPool(family queue.FamilyID, flags pool.CreateFlags) (CommandPool, error)
	DestroyCommandPool(p CommandPool)

	CreateFence(signaled bool) (Fence, error)
	ResetFence(f Fence) error
	// FenceStatus reports whether f is signaled. It returns ErrDeviceLost
	// once the device is lost.
	FenceStatus(f Fence) (bool, error)
	// WaitForFences blocks until all (or any) fences are signaled or
	// timeout elapses. It reports false without error on timeout.
	WaitForFences(fences []Fence, all bool, timeout time.Duration) (bool, error)
	DestroyFence(f Fence)

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(s Semaphore)

	CreateQueryPool(desc query.Desc) (QueryPool, error)
	DestroyQueryPool(p QueryPool)
	// QueryPoolResults copies results of r into data with the given
	// stride. It reports false when results are not yet available and
	// query.Wait is not set.
	QueryPoolResults(p QueryPool, r query.Range, data []byte, stride int, flags query.ResultFlags) (bool, error)

	// CreateSwapchain creates a swapchain for surface and returns its
	// images. old, when non-nil, is retired.
	CreateSwapchain(surface Surface, cfg window.SwapchainConfig, old Swapchain) (Swapchain, []Image, error)
	DestroySwapchain(sc Swapchain)

	// WaitIdle blocks until every queue of the device is idle.
	WaitIdle() error

	// Destroy releases the device. Every queue must be idle.
	Destroy()
}
