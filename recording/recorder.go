// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"slices"

	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
)

// Recorder captures command buffer operations as commands.
// It implements every method of hal.CommandBuffer, so a backend type that
// embeds it is a complete command buffer.
//
// Slices passed to recording methods are copied; the caller may reuse
// them after the call returns.
//
// The Recorder is not safe for concurrent use.
type Recorder struct {
	commands    []Command
	flags       command.UsageFlags
	inheritance *hal.InheritanceInfo
	recording   bool
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Begin discards previous commands and starts recording.
func (r *Recorder) Begin(flags command.UsageFlags, inheritance *hal.InheritanceInfo) {
	r.commands = make([]Command, 0, 64)
	r.flags = flags
	r.inheritance = nil
	if inheritance != nil {
		inh := *inheritance
		r.inheritance = &inh
	}
	r.recording = true
}

// Finish stops recording. Commands stay available until Begin or Reset.
func (r *Recorder) Finish() {
	r.recording = false
}

// Reset discards every command.
func (r *Recorder) Reset(bool) {
	r.commands = nil
	r.flags = 0
	r.inheritance = nil
	r.recording = false
}

// IsRecording reports whether the Recorder is between Begin and Finish.
func (r *Recorder) IsRecording() bool {
	return r.recording
}

// Flags returns the usage flags passed to Begin.
func (r *Recorder) Flags() command.UsageFlags {
	return r.flags
}

// Inheritance returns the inheritance info passed to Begin, if any.
func (r *Recorder) Inheritance() *hal.InheritanceInfo {
	return r.inheritance
}

// Commands returns the recorded commands.
func (r *Recorder) Commands() []Command {
	return r.commands
}

// Len returns the number of recorded commands.
func (r *Recorder) Len() int {
	return len(r.commands)
}

func (r *Recorder) push(c Command) {
	r.commands = append(r.commands, c)
}

// --------------------------------------------------------------------------
// Synchronization and Transfer
// --------------------------------------------------------------------------

// PipelineBarrier records a pipeline barrier.
func (r *Recorder) PipelineBarrier(src, dst pso.PipelineStage, deps memory.Dependencies, buffers []hal.BufferBarrier, images []hal.ImageBarrier) {
	r.push(PipelineBarrierCommand{
		Src: src, Dst: dst, Deps: deps,
		Buffers: slices.Clone(buffers),
		Images:  slices.Clone(images),
	})
}

// FillBuffer records a buffer fill.
func (r *Recorder) FillBuffer(buf hal.Buffer, rng buffer.SubRange, data uint32) {
	r.push(FillBufferCommand{Buffer: buf, Range: rng, Data: data})
}

// UpdateBuffer records an inline buffer update.
func (r *Recorder) UpdateBuffer(buf hal.Buffer, offset uint64, data []byte) {
	r.push(UpdateBufferCommand{Buffer: buf, Offset: offset, Data: slices.Clone(data)})
}

// CopyBuffer records a buffer to buffer copy.
func (r *Recorder) CopyBuffer(src, dst hal.Buffer, regions []command.BufferCopy) {
	r.push(CopyBufferCommand{Src: src, Dst: dst, Regions: slices.Clone(regions)})
}

// CopyImage records an image to image copy.
func (r *Recorder) CopyImage(src hal.Image, srcLayout image.Layout, dst hal.Image, dstLayout image.Layout, regions []command.ImageCopy) {
	r.push(CopyImageCommand{Src: src, SrcLayout: srcLayout, Dst: dst, DstLayout: dstLayout, Regions: slices.Clone(regions)})
}

// CopyBufferToImage records a buffer to image copy.
func (r *Recorder) CopyBufferToImage(src hal.Buffer, dst hal.Image, dstLayout image.Layout, regions []command.BufferImageCopy) {
	r.push(CopyBufferToImageCommand{Src: src, Dst: dst, DstLayout: dstLayout, Regions: slices.Clone(regions)})
}

// CopyImageToBuffer records an image to buffer copy.
func (r *Recorder) CopyImageToBuffer(src hal.Image, srcLayout image.Layout, dst hal.Buffer, regions []command.BufferImageCopy) {
	r.push(CopyImageToBufferCommand{Src: src, SrcLayout: srcLayout, Dst: dst, Regions: slices.Clone(regions)})
}

// ClearColorImage records a color image clear.
func (r *Recorder) ClearColorImage(img hal.Image, layout image.Layout, rng image.SubresourceRange, value command.ClearColor) {
	r.push(ClearColorImageCommand{Image: img, Layout: layout, Range: rng, Value: value})
}

// ClearDepthStencilImage records a depth-stencil image clear.
func (r *Recorder) ClearDepthStencilImage(img hal.Image, layout image.Layout, rng image.SubresourceRange, value command.ClearDepthStencil) {
	r.push(ClearDepthStencilImageCommand{Image: img, Layout: layout, Range: rng, Value: value})
}

// --------------------------------------------------------------------------
// Render Passes
// --------------------------------------------------------------------------

// BeginRenderPass records the start of a render pass.
func (r *Recorder) BeginRenderPass(rp hal.RenderPass, fb hal.Framebuffer, area pso.Rect, clears []command.ClearValue, contents command.SubpassContents) {
	r.push(BeginRenderPassCommand{RenderPass: rp, Framebuffer: fb, Area: area, Clears: slices.Clone(clears), Contents: contents})
}

// NextSubpass records a subpass transition.
func (r *Recorder) NextSubpass(contents command.SubpassContents) {
	r.push(NextSubpassCommand{Contents: contents})
}

// EndRenderPass records the end of a render pass.
func (r *Recorder) EndRenderPass() {
	r.push(EndRenderPassCommand{})
}

// --------------------------------------------------------------------------
// State
// --------------------------------------------------------------------------

// BindGraphicsPipeline records a graphics pipeline bind.
func (r *Recorder) BindGraphicsPipeline(p hal.GraphicsPipeline) {
	r.push(BindGraphicsPipelineCommand{Pipeline: p})
}

// BindComputePipeline records a compute pipeline bind.
func (r *Recorder) BindComputePipeline(p hal.ComputePipeline) {
	r.push(BindComputePipelineCommand{Pipeline: p})
}

// BindGraphicsDescriptorSets records descriptor set binds for graphics.
func (r *Recorder) BindGraphicsDescriptorSets(layout hal.PipelineLayout, first int, sets []hal.DescriptorSet, dynamicOffsets []uint32) {
	r.push(BindDescriptorSetsCommand{Layout: layout, First: first, Sets: slices.Clone(sets), DynamicOffsets: slices.Clone(dynamicOffsets)})
}

// BindComputeDescriptorSets records descriptor set binds for compute.
func (r *Recorder) BindComputeDescriptorSets(layout hal.PipelineLayout, first int, sets []hal.DescriptorSet, dynamicOffsets []uint32) {
	r.push(BindDescriptorSetsCommand{Compute: true, Layout: layout, First: first, Sets: slices.Clone(sets), DynamicOffsets: slices.Clone(dynamicOffsets)})
}

// BindVertexBuffers records vertex buffer binds.
func (r *Recorder) BindVertexBuffers(first uint32, bindings []hal.VertexBufferBinding) {
	r.push(BindVertexBuffersCommand{First: first, Bindings: slices.Clone(bindings)})
}

// BindIndexBuffer records an index buffer bind.
func (r *Recorder) BindIndexBuffer(buf hal.Buffer, offset uint64, ty hal.IndexType) {
	r.push(BindIndexBufferCommand{Buffer: buf, Offset: offset, IndexType: ty})
}

// SetViewports records dynamic viewports.
func (r *Recorder) SetViewports(first uint32, viewports []pso.Viewport) {
	r.push(SetViewportsCommand{First: first, Viewports: slices.Clone(viewports)})
}

// SetScissors records dynamic scissors.
func (r *Recorder) SetScissors(first uint32, rects []pso.Rect) {
	r.push(SetScissorsCommand{First: first, Rects: slices.Clone(rects)})
}

// SetBlendConstants records the blend constant color.
func (r *Recorder) SetBlendConstants(c [4]float32) {
	r.push(SetBlendConstantsCommand{Color: c})
}

// PushGraphicsConstants records a graphics push constant update.
func (r *Recorder) PushGraphicsConstants(layout hal.PipelineLayout, stages pso.ShaderStageFlags, offset uint32, data []uint32) {
	r.push(PushConstantsCommand{Layout: layout, Stages: stages, Offset: offset, Data: slices.Clone(data)})
}

// PushComputeConstants records a compute push constant update.
func (r *Recorder) PushComputeConstants(layout hal.PipelineLayout, offset uint32, data []uint32) {
	r.push(PushConstantsCommand{Compute: true, Layout: layout, Stages: pso.StageCompute, Offset: offset, Data: slices.Clone(data)})
}

// --------------------------------------------------------------------------
// Work
// --------------------------------------------------------------------------

// Draw records a non-indexed draw.
func (r *Recorder) Draw(vertexCount hal.VertexCount, instanceCount hal.InstanceCount, firstVertex hal.VertexCount, firstInstance hal.InstanceCount) {
	r.push(DrawCommand{VertexCount: vertexCount, InstanceCount: instanceCount, FirstVertex: firstVertex, FirstInstance: firstInstance})
}

// DrawIndexed records an indexed draw.
func (r *Recorder) DrawIndexed(indexCount hal.IndexCount, instanceCount hal.InstanceCount, firstIndex hal.IndexCount, baseVertex hal.VertexOffset, firstInstance hal.InstanceCount) {
	r.push(DrawIndexedCommand{IndexCount: indexCount, InstanceCount: instanceCount, FirstIndex: firstIndex, BaseVertex: baseVertex, FirstInstance: firstInstance})
}

// DrawIndirect records an indirect draw.
func (r *Recorder) DrawIndirect(buf hal.Buffer, offset uint64, drawCount hal.DrawCount, stride uint32) {
	r.push(DrawIndirectCommand{Buffer: buf, Offset: offset, DrawCount: drawCount, Stride: stride})
}

// DrawIndexedIndirect records an indexed indirect draw.
func (r *Recorder) DrawIndexedIndirect(buf hal.Buffer, offset uint64, drawCount hal.DrawCount, stride uint32) {
	r.push(DrawIndirectCommand{Indexed: true, Buffer: buf, Offset: offset, DrawCount: drawCount, Stride: stride})
}

// Dispatch records a compute dispatch.
func (r *Recorder) Dispatch(count hal.WorkGroupCount) {
	r.push(DispatchCommand{Count: count})
}

// DispatchIndirect records an indirect compute dispatch.
func (r *Recorder) DispatchIndirect(buf hal.Buffer, offset uint64) {
	r.push(DispatchIndirectCommand{Buffer: buf, Offset: offset})
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// ResetQueryPool records a query reset.
func (r *Recorder) ResetQueryPool(p hal.QueryPool, rng query.Range) {
	r.push(ResetQueryPoolCommand{Pool: p, Range: rng})
}

// BeginQuery records the start of a query.
func (r *Recorder) BeginQuery(p hal.QueryPool, id query.ID, flags query.ControlFlags) {
	r.push(BeginQueryCommand{Pool: p, ID: id, Flags: flags})
}

// EndQuery records the end of a query.
func (r *Recorder) EndQuery(p hal.QueryPool, id query.ID) {
	r.push(EndQueryCommand{Pool: p, ID: id})
}

// WriteTimestamp records a timestamp write.
func (r *Recorder) WriteTimestamp(stage pso.PipelineStage, p hal.QueryPool, id query.ID) {
	r.push(WriteTimestampCommand{Stage: stage, Pool: p, ID: id})
}

// CopyQueryPoolResults records a query result copy.
func (r *Recorder) CopyQueryPoolResults(p hal.QueryPool, rng query.Range, dst hal.Buffer, offset, stride uint64, flags query.ResultFlags) {
	r.push(CopyQueryPoolResultsCommand{Pool: p, Range: rng, Dst: dst, Offset: offset, Stride: stride, Flags: flags})
}

// ExecuteCommands records execution of secondary buffers.
func (r *Recorder) ExecuteCommands(bufs []hal.CommandBuffer) {
	r.push(ExecuteCommandsCommand{Buffers: slices.Clone(bufs)})
}
