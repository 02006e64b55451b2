// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import "github.com/gogpu/gfx/hal"

// Playback replays cmds into dst, which must be recording.
// Begin, Finish and Reset are not part of a recording and are not called.
func Playback(cmds []Command, dst hal.CommandBuffer) {
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case PipelineBarrierCommand:
			dst.PipelineBarrier(c.Src, c.Dst, c.Deps, c.Buffers, c.Images)
		case FillBufferCommand:
			dst.FillBuffer(c.Buffer, c.Range, c.Data)
		case UpdateBufferCommand:
			dst.UpdateBuffer(c.Buffer, c.Offset, c.Data)
		case CopyBufferCommand:
			dst.CopyBuffer(c.Src, c.Dst, c.Regions)
		case CopyImageCommand:
			dst.CopyImage(c.Src, c.SrcLayout, c.Dst, c.DstLayout, c.Regions)
		case CopyBufferToImageCommand:
			dst.CopyBufferToImage(c.Src, c.Dst, c.DstLayout, c.Regions)
		case CopyImageToBufferCommand:
			dst.CopyImageToBuffer(c.Src, c.SrcLayout, c.Dst, c.Regions)
		case ClearColorImageCommand:
			dst.ClearColorImage(c.Image, c.Layout, c.Range, c.Value)
		case ClearDepthStencilImageCommand:
			dst.ClearDepthStencilImage(c.Image, c.Layout, c.Range, c.Value)
		case BeginRenderPassCommand:
			dst.BeginRenderPass(c.RenderPass, c.Framebuffer, c.Area, c.Clears, c.Contents)
		case NextSubpassCommand:
			dst.NextSubpass(c.Contents)
		case EndRenderPassCommand:
			dst.EndRenderPass()
		case BindGraphicsPipelineCommand:
			dst.BindGraphicsPipeline(c.Pipeline)
		case BindComputePipelineCommand:
			dst.BindComputePipeline(c.Pipeline)
		case BindDescriptorSetsCommand:
			if c.Compute {
				dst.BindComputeDescriptorSets(c.Layout, c.First, c.Sets, c.DynamicOffsets)
			} else {
				dst.BindGraphicsDescriptorSets(c.Layout, c.First, c.Sets, c.DynamicOffsets)
			}
		case BindVertexBuffersCommand:
			dst.BindVertexBuffers(c.First, c.Bindings)
		case BindIndexBufferCommand:
			dst.BindIndexBuffer(c.Buffer, c.Offset, c.IndexType)
		case SetViewportsCommand:
			dst.SetViewports(c.First, c.Viewports)
		case SetScissorsCommand:
			dst.SetScissors(c.First, c.Rects)
		case SetBlendConstantsCommand:
			dst.SetBlendConstants(c.Color)
		case PushConstantsCommand:
			if c.Compute {
				dst.PushComputeConstants(c.Layout, c.Offset, c.Data)
			} else {
				dst.PushGraphicsConstants(c.Layout, c.Stages, c.Offset, c.Data)
			}
		case DrawCommand:
			dst.Draw(c.VertexCount, c.InstanceCount, c.FirstVertex, c.FirstInstance)
		case DrawIndexedCommand:
			dst.DrawIndexed(c.IndexCount, c.InstanceCount, c.FirstIndex, c.BaseVertex, c.FirstInstance)
		case DrawIndirectCommand:
			if c.Indexed {
				dst.DrawIndexedIndirect(c.Buffer, c.Offset, c.DrawCount, c.Stride)
			} else {
				dst.DrawIndirect(c.Buffer, c.Offset, c.DrawCount, c.Stride)
			}
		case DispatchCommand:
			dst.Dispatch(c.Count)
		case DispatchIndirectCommand:
			dst.DispatchIndirect(c.Buffer, c.Offset)
		case ResetQueryPoolCommand:
			dst.ResetQueryPool(c.Pool, c.Range)
		case BeginQueryCommand:
			dst.BeginQuery(c.Pool, c.ID, c.Flags)
		case EndQueryCommand:
			dst.EndQuery(c.Pool, c.ID)
		case WriteTimestampCommand:
			dst.WriteTimestamp(c.Stage, c.Pool, c.ID)
		case CopyQueryPoolResultsCommand:
			dst.CopyQueryPoolResults(c.Pool, c.Range, c.Dst, c.Offset, c.Stride, c.Flags)
		case ExecuteCommandsCommand:
			dst.ExecuteCommands(c.Buffers)
		}
	}
}

// Compile-time check that Recorder is a complete command buffer.
var _ hal.CommandBuffer = (*Recorder)(nil)
