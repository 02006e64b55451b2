// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
)

// CommandType identifies the type of a command.
type CommandType uint8

const (
	// Synchronization and transfer commands
	CmdPipelineBarrier CommandType = iota
	CmdFillBuffer
	CmdUpdateBuffer
	CmdCopyBuffer
	CmdCopyImage
	CmdCopyBufferToImage
	CmdCopyImageToBuffer
	CmdClearColorImage
	CmdClearDepthStencilImage

	// Render pass commands
	CmdBeginRenderPass
	CmdNextSubpass
	CmdEndRenderPass

	// State commands
	CmdBindGraphicsPipeline
	CmdBindComputePipeline
	CmdBindGraphicsDescriptorSets
	CmdBindComputeDescriptorSets
	CmdBindVertexBuffers
	CmdBindIndexBuffer
	CmdSetViewports
	CmdSetScissors
	CmdSetBlendConstants
	CmdPushGraphicsConstants
	CmdPushComputeConstants

	// Work commands
	CmdDraw
	CmdDrawIndexed
	CmdDrawIndirect
	CmdDrawIndexedIndirect
	CmdDispatch
	CmdDispatchIndirect

	// Query commands
	CmdResetQueryPool
	CmdBeginQuery
	CmdEndQuery
	CmdWriteTimestamp
	CmdCopyQueryPoolResults

	CmdExecuteCommands
)

var commandTypeNames = [...]string{
	CmdPipelineBarrier:            "PipelineBarrier",
	CmdFillBuffer:                 "FillBuffer",
	CmdUpdateBuffer:               "UpdateBuffer",
	CmdCopyBuffer:                 "CopyBuffer",
	CmdCopyImage:                  "CopyImage",
	CmdCopyBufferToImage:          "CopyBufferToImage",
	CmdCopyImageToBuffer:          "CopyImageToBuffer",
	CmdClearColorImage:            "ClearColorImage",
	CmdClearDepthStencilImage:     "ClearDepthStencilImage",
	CmdBeginRenderPass:            "BeginRenderPass",
	CmdNextSubpass:                "NextSubpass",
	CmdEndRenderPass:              "EndRenderPass",
	CmdBindGraphicsPipeline:       "BindGraphicsPipeline",
	CmdBindComputePipeline:        "BindComputePipeline",
	CmdBindGraphicsDescriptorSets: "BindGraphicsDescriptorSets",
	CmdBindComputeDescriptorSets:  "BindComputeDescriptorSets",
	CmdBindVertexBuffers:          "BindVertexBuffers",
	CmdBindIndexBuffer:            "BindIndexBuffer",
	CmdSetViewports:               "SetViewports",
	CmdSetScissors:                "SetScissors",
	CmdSetBlendConstants:          "SetBlendConstants",
	CmdPushGraphicsConstants:      "PushGraphicsConstants",
	CmdPushComputeConstants:       "PushComputeConstants",
	CmdDraw:                       "Draw",
	CmdDrawIndexed:                "DrawIndexed",
	CmdDrawIndirect:               "DrawIndirect",
	CmdDrawIndexedIndirect:        "DrawIndexedIndirect",
	CmdDispatch:                   "Dispatch",
	CmdDispatchIndirect:           "DispatchIndirect",
	CmdResetQueryPool:             "ResetQueryPool",
	CmdBeginQuery:                 "BeginQuery",
	CmdEndQuery:                   "EndQuery",
	CmdWriteTimestamp:             "WriteTimestamp",
	CmdCopyQueryPoolResults:       "CopyQueryPoolResults",
	CmdExecuteCommands:            "ExecuteCommands",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is implemented by all command types.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// --------------------------------------------------------------------------
// Synchronization and Transfer Commands
// --------------------------------------------------------------------------

// PipelineBarrierCommand inserts a memory and execution dependency.
type PipelineBarrierCommand struct {
	Src, Dst pso.PipelineStage
	Deps     memory.Dependencies
	Buffers  []hal.BufferBarrier
	Images   []hal.ImageBarrier
}

// Type implements Command.
func (PipelineBarrierCommand) Type() CommandType { return CmdPipelineBarrier }

// FillBufferCommand fills a buffer range with a repeated 32-bit word.
type FillBufferCommand struct {
	Buffer hal.Buffer
	Range  buffer.SubRange
	Data   uint32
}

// Type implements Command.
func (FillBufferCommand) Type() CommandType { return CmdFillBuffer }

// UpdateBufferCommand writes inline data into a buffer.
type UpdateBufferCommand struct {
	Buffer hal.Buffer
	Offset uint64
	// Data is owned by the command.
	Data []byte
}

// Type implements Command.
func (UpdateBufferCommand) Type() CommandType { return CmdUpdateBuffer }

// CopyBufferCommand copies regions between buffers.
type CopyBufferCommand struct {
	Src, Dst hal.Buffer
	Regions  []command.BufferCopy
}

// Type implements Command.
func (CopyBufferCommand) Type() CommandType { return CmdCopyBuffer }

// CopyImageCommand copies regions between images.
type CopyImageCommand struct {
	Src       hal.Image
	SrcLayout image.Layout
	Dst       hal.Image
	DstLayout image.Layout
	Regions   []command.ImageCopy
}

// Type implements Command.
func (CopyImageCommand) Type() CommandType { return CmdCopyImage }

// CopyBufferToImageCommand copies buffer data into an image.
type CopyBufferToImageCommand struct {
	Src       hal.Buffer
	Dst       hal.Image
	DstLayout image.Layout
	Regions   []command.BufferImageCopy
}

// Type implements Command.
func (CopyBufferToImageCommand) Type() CommandType { return CmdCopyBufferToImage }

// CopyImageToBufferCommand copies image texels into a buffer.
type CopyImageToBufferCommand struct {
	Src       hal.Image
	SrcLayout image.Layout
	Dst       hal.Buffer
	Regions   []command.BufferImageCopy
}

// Type implements Command.
func (CopyImageToBufferCommand) Type() CommandType { return CmdCopyImageToBuffer }

// ClearColorImageCommand clears color image subresources.
type ClearColorImageCommand struct {
	Image  hal.Image
	Layout image.Layout
	Range  image.SubresourceRange
	Value  command.ClearColor
}

// Type implements Command.
func (ClearColorImageCommand) Type() CommandType { return CmdClearColorImage }

// ClearDepthStencilImageCommand clears depth-stencil image subresources.
type ClearDepthStencilImageCommand struct {
	Image  hal.Image
	Layout image.Layout
	Range  image.SubresourceRange
	Value  command.ClearDepthStencil
}

// Type implements Command.
func (ClearDepthStencilImageCommand) Type() CommandType { return CmdClearDepthStencilImage }

// --------------------------------------------------------------------------
// Render Pass Commands
// --------------------------------------------------------------------------

// BeginRenderPassCommand starts a render pass instance.
type BeginRenderPassCommand struct {
	RenderPass  hal.RenderPass
	Framebuffer hal.Framebuffer
	Area        pso.Rect
	Clears      []command.ClearValue
	Contents    command.SubpassContents
}

// Type implements Command.
func (BeginRenderPassCommand) Type() CommandType { return CmdBeginRenderPass }

// NextSubpassCommand advances to the next subpass.
type NextSubpassCommand struct {
	Contents command.SubpassContents
}

// Type implements Command.
func (NextSubpassCommand) Type() CommandType { return CmdNextSubpass }

// EndRenderPassCommand ends the current render pass instance.
type EndRenderPassCommand struct{}

// Type implements Command.
func (EndRenderPassCommand) Type() CommandType { return CmdEndRenderPass }

// --------------------------------------------------------------------------
// State Commands
// --------------------------------------------------------------------------

// BindGraphicsPipelineCommand binds a graphics pipeline.
type BindGraphicsPipelineCommand struct {
	Pipeline hal.GraphicsPipeline
}

// Type implements Command.
func (BindGraphicsPipelineCommand) Type() CommandType { return CmdBindGraphicsPipeline }

// BindComputePipelineCommand binds a compute pipeline.
type BindComputePipelineCommand struct {
	Pipeline hal.ComputePipeline
}

// Type implements Command.
func (BindComputePipelineCommand) Type() CommandType { return CmdBindComputePipeline }

// BindDescriptorSetsCommand binds descriptor sets starting at First.
// Compute is true for the compute bind point.
type BindDescriptorSetsCommand struct {
	Compute        bool
	Layout         hal.PipelineLayout
	First          int
	Sets           []hal.DescriptorSet
	DynamicOffsets []uint32
}

// Type implements Command.
func (c BindDescriptorSetsCommand) Type() CommandType {
	if c.Compute {
		return CmdBindComputeDescriptorSets
	}
	return CmdBindGraphicsDescriptorSets
}

// BindVertexBuffersCommand binds vertex buffers to consecutive slots.
type BindVertexBuffersCommand struct {
	First    uint32
	Bindings []hal.VertexBufferBinding
}

// Type implements Command.
func (BindVertexBuffersCommand) Type() CommandType { return CmdBindVertexBuffers }

// BindIndexBufferCommand binds the index buffer.
type BindIndexBufferCommand struct {
	Buffer    hal.Buffer
	Offset    uint64
	IndexType hal.IndexType
}

// Type implements Command.
func (BindIndexBufferCommand) Type() CommandType { return CmdBindIndexBuffer }

// SetViewportsCommand sets dynamic viewports.
type SetViewportsCommand struct {
	First     uint32
	Viewports []pso.Viewport
}

// Type implements Command.
func (SetViewportsCommand) Type() CommandType { return CmdSetViewports }

// SetScissorsCommand sets dynamic scissor rectangles.
type SetScissorsCommand struct {
	First uint32
	Rects []pso.Rect
}

// Type implements Command.
func (SetScissorsCommand) Type() CommandType { return CmdSetScissors }

// SetBlendConstantsCommand sets the blend constant color.
type SetBlendConstantsCommand struct {
	Color [4]float32
}

// Type implements Command.
func (SetBlendConstantsCommand) Type() CommandType { return CmdSetBlendConstants }

// PushConstantsCommand updates push constants. Compute is true for the
// compute bind point, in which case Stages is StageCompute.
type PushConstantsCommand struct {
	Compute bool
	Layout  hal.PipelineLayout
	Stages  pso.ShaderStageFlags
	Offset  uint32
	Data    []uint32
}

// Type implements Command.
func (c PushConstantsCommand) Type() CommandType {
	if c.Compute {
		return CmdPushComputeConstants
	}
	return CmdPushGraphicsConstants
}

// --------------------------------------------------------------------------
// Work Commands
// --------------------------------------------------------------------------

// DrawCommand draws non-indexed primitives.
type DrawCommand struct {
	VertexCount   hal.VertexCount
	InstanceCount hal.InstanceCount
	FirstVertex   hal.VertexCount
	FirstInstance hal.InstanceCount
}

// Type implements Command.
func (DrawCommand) Type() CommandType { return CmdDraw }

// DrawIndexedCommand draws indexed primitives.
type DrawIndexedCommand struct {
	IndexCount    hal.IndexCount
	InstanceCount hal.InstanceCount
	FirstIndex    hal.IndexCount
	BaseVertex    hal.VertexOffset
	FirstInstance hal.InstanceCount
}

// Type implements Command.
func (DrawIndexedCommand) Type() CommandType { return CmdDrawIndexed }

// DrawIndirectCommand draws with parameters read from a buffer.
type DrawIndirectCommand struct {
	Indexed   bool
	Buffer    hal.Buffer
	Offset    uint64
	DrawCount hal.DrawCount
	Stride    uint32
}

// Type implements Command.
func (c DrawIndirectCommand) Type() CommandType {
	if c.Indexed {
		return CmdDrawIndexedIndirect
	}
	return CmdDrawIndirect
}

// DispatchCommand dispatches compute work groups.
type DispatchCommand struct {
	Count hal.WorkGroupCount
}

// Type implements Command.
func (DispatchCommand) Type() CommandType { return CmdDispatch }

// DispatchIndirectCommand dispatches with counts read from a buffer.
type DispatchIndirectCommand struct {
	Buffer hal.Buffer
	Offset uint64
}

// Type implements Command.
func (DispatchIndirectCommand) Type() CommandType { return CmdDispatchIndirect }

// --------------------------------------------------------------------------
// Query Commands
// --------------------------------------------------------------------------

// ResetQueryPoolCommand resets a range of queries.
type ResetQueryPoolCommand struct {
	Pool  hal.QueryPool
	Range query.Range
}

// Type implements Command.
func (ResetQueryPoolCommand) Type() CommandType { return CmdResetQueryPool }

// BeginQueryCommand starts a query.
type BeginQueryCommand struct {
	Pool  hal.QueryPool
	ID    query.ID
	Flags query.ControlFlags
}

// Type implements Command.
func (BeginQueryCommand) Type() CommandType { return CmdBeginQuery }

// EndQueryCommand ends a query.
type EndQueryCommand struct {
	Pool hal.QueryPool
	ID   query.ID
}

// Type implements Command.
func (EndQueryCommand) Type() CommandType { return CmdEndQuery }

// WriteTimestampCommand writes a timestamp once Stage completes.
type WriteTimestampCommand struct {
	Stage pso.PipelineStage
	Pool  hal.QueryPool
	ID    query.ID
}

// Type implements Command.
func (WriteTimestampCommand) Type() CommandType { return CmdWriteTimestamp }

// CopyQueryPoolResultsCommand copies query results into a buffer.
type CopyQueryPoolResultsCommand struct {
	Pool   hal.QueryPool
	Range  query.Range
	Dst    hal.Buffer
	Offset uint64
	Stride uint64
	Flags  query.ResultFlags
}

// Type implements Command.
func (CopyQueryPoolResultsCommand) Type() CommandType { return CmdCopyQueryPoolResults }

// ExecuteCommandsCommand executes secondary command buffers.
type ExecuteCommandsCommand struct {
	Buffers []hal.CommandBuffer
}

// Type implements Command.
func (ExecuteCommandsCommand) Type() CommandType { return CmdExecuteCommands }
