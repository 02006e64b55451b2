// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
	"github.com/gogpu/gfx/queue"
)

// CommandPool allocates command buffers for one queue family.
type CommandPool interface {
	// Allocate returns n new buffers of the given level in Initial state.
	Allocate(n int, level command.Level) ([]CommandBuffer, error)

	// Free releases buffers back to the pool.
	Free(bufs []CommandBuffer)

	// Reset resets every buffer of the pool.
	Reset(releaseResources bool)
}

// InheritanceInfo is the render pass state a secondary buffer continues.
type InheritanceInfo struct {
	RenderPass  RenderPass
	Subpass     int
	Framebuffer Framebuffer
}

// BufferBarrier is a memory dependency on a buffer range.
type BufferBarrier struct {
	Buffer               Buffer
	Range                buffer.SubRange
	SrcAccess, DstAccess buffer.Access
	// Families, when non-nil, transfers ownership between queue families.
	Families *[2]queue.FamilyID
}

// ImageBarrier is a memory dependency and layout transition on image
// subresources.
type ImageBarrier struct {
	Image                Image
	Range                image.SubresourceRange
	SrcAccess, DstAccess image.Access
	OldLayout, NewLayout image.Layout
	Families             *[2]queue.FamilyID
}

// VertexBufferBinding binds a buffer to a vertex input slot.
type VertexBufferBinding struct {
	Buffer Buffer
	Offset uint64
}

// CommandBuffer records commands for later submission.
//
// Every recording method appends to the buffer; nothing executes until the
// buffer is submitted. The buffer must be between Begin and Finish.
type CommandBuffer interface {
	Begin(flags command.UsageFlags, inheritance *InheritanceInfo)
	Finish()
	Reset(releaseResources bool)

	PipelineBarrier(src, dst pso.PipelineStage, deps memory.Dependencies, buffers []BufferBarrier, images []ImageBarrier)

	FillBuffer(buf Buffer, r buffer.SubRange, data uint32)
	UpdateBuffer(buf Buffer, offset uint64, data []byte)
	CopyBuffer(src, dst Buffer, regions []command.BufferCopy)
	CopyImage(src Image, srcLayout image.Layout, dst Image, dstLayout image.Layout, regions []command.ImageCopy)
	CopyBufferToImage(src Buffer, dst Image, dstLayout image.Layout, regions []command.BufferImageCopy)
	CopyImageToBuffer(src Image, srcLayout image.Layout, dst Buffer, regions []command.BufferImageCopy)
	ClearColorImage(img Image, layout image.Layout, r image.SubresourceRange, value command.ClearColor)
	ClearDepthStencilImage(img Image, layout image.Layout, r image.SubresourceRange, value command.ClearDepthStencil)

	BeginRenderPass(rp RenderPass, fb Framebuffer, area pso.Rect, clears []command.ClearValue, contents command.SubpassContents)
	NextSubpass(contents command.SubpassContents)
	EndRenderPass()

	BindGraphicsPipeline(p GraphicsPipeline)
	BindComputePipeline(p ComputePipeline)
	BindGraphicsDescriptorSets(layout PipelineLayout, first int, sets []DescriptorSet, dynamicOffsets []uint32)
	BindComputeDescriptorSets(layout PipelineLayout, first int, sets []DescriptorSet, dynamicOffsets []uint32)
	BindVertexBuffers(first uint32, bindings []VertexBufferBinding)
	BindIndexBuffer(buf Buffer, offset uint64, ty IndexType)

	SetViewports(first uint32, viewports []pso.Viewport)
	SetScissors(first uint32, rects []pso.Rect)
	SetBlendConstants(c [4]float32)

	PushGraphicsConstants(layout PipelineLayout, stages pso.ShaderStageFlags, offset uint32, data []uint32)
	PushComputeConstants(layout PipelineLayout, offset uint32, data []uint32)

	Draw(vertexCount VertexCount, instanceCount InstanceCount, firstVertex VertexCount, firstInstance InstanceCount)
	DrawIndexed(indexCount IndexCount, instanceCount InstanceCount, firstIndex IndexCount, baseVertex VertexOffset, firstInstance InstanceCount)
	DrawIndirect(buf Buffer, offset uint64, drawCount DrawCount, stride uint32)
	DrawIndexedIndirect(buf Buffer, offset uint64, drawCount DrawCount, stride uint32)
	Dispatch(count WorkGroupCount)
	DispatchIndirect(buf Buffer, offset uint64)

	ResetQueryPool(p QueryPool, r query.Range)
	BeginQuery(p QueryPool, id query.ID, flags query.ControlFlags)
	EndQuery(p QueryPool, id query.ID)
	WriteTimestamp(stage pso.PipelineStage, p QueryPool, id query.ID)
	CopyQueryPoolResults(p QueryPool, r query.Range, dst Buffer, offset uint64, stride uint64, flags query.ResultFlags)

	ExecuteCommands(bufs []CommandBuffer)
}

// SemaphoreWait makes a submission wait for a semaphore before the given
// stages run.
type SemaphoreWait struct {
	Semaphore Semaphore
	Stages    pso.PipelineStage
}

// Submission is a batch of command buffers submitted together.
type Submission struct {
	CommandBuffers   []CommandBuffer
	WaitSemaphores   []SemaphoreWait
	SignalSemaphores []Semaphore
}

// Queue executes submissions in submission order.
type Queue interface {
	// Submit enqueues work without blocking. fence, when non-nil, is
	// signaled after every command buffer of the submission completes.
	// It returns ErrDeviceLost once the device is lost.
	Submit(s Submission, fence Fence) error

	// Present queues swapchain image index for presentation after waits.
	Present(sc Swapchain, index uint32, waits []Semaphore) error

	// WaitIdle blocks until all work submitted to the queue completes.
	WaitIdle() error
}
