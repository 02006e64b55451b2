// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package command holds the plain data used when recording command
// buffers: levels, usage flags, clear values, and copy regions.
package command

import (
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/pso"
)

// Level is the level of a command buffer.
type Level uint8

// Command buffer levels.
const (
	// Primary buffers are submitted to queues.
	Primary Level = iota
	// Secondary buffers are executed from primary buffers.
	Secondary
)

func (l Level) String() string {
	if l == Secondary {
		return "Secondary"
	}
	return "Primary"
}

// UsageFlags describe how a command buffer will be submitted.
type UsageFlags uint8

// Command buffer usage flags.
const (
	// OneTimeSubmit invalidates the buffer once its submission completes.
	OneTimeSubmit UsageFlags = 1 << iota
	// RenderPassContinue marks a secondary buffer executed inside a pass.
	RenderPassContinue
	// SimultaneousUse allows resubmitting the buffer while it is pending.
	SimultaneousUse
)

// Contains reports whether every bit of other is set in f.
func (f UsageFlags) Contains(other UsageFlags) bool {
	return f&other == other
}

// ClearColor is a color clear value. The field matching the channel type
// of the cleared format is used.
type ClearColor struct {
	Float32 [4]float32
	Uint32  [4]uint32
	Sint32  [4]int32
}

// ClearFloat returns a floating point clear color.
func ClearFloat(r, g, b, a float32) ClearColor {
	return ClearColor{Float32: [4]float32{r, g, b, a}}
}

// ClearDepthStencil is a depth-stencil clear value.
type ClearDepthStencil struct {
	Depth   float32
	Stencil uint32
}

// ClearValue clears one render pass attachment.
type ClearValue struct {
	Color        ClearColor
	DepthStencil ClearDepthStencil
}

// BufferCopy is a region copied between buffers.
type BufferCopy struct {
	Src  uint64
	Dst  uint64
	Size uint64
}

// ImageCopy is a region copied between images.
type ImageCopy struct {
	SrcSubresource image.SubresourceLayers
	SrcOffset      image.Offset
	DstSubresource image.SubresourceLayers
	DstOffset      image.Offset
	Extent         image.Extent
}

// BufferImageCopy is a region copied between a buffer and an image.
type BufferImageCopy struct {
	BufferOffset uint64
	// BufferWidth is the row length in texels; zero means tightly packed.
	BufferWidth uint32
	// BufferHeight is the image height in rows; zero means tightly packed.
	BufferHeight uint32
	ImageLayers  image.SubresourceLayers
	ImageOffset  image.Offset
	ImageExtent  image.Extent
}

// RowLength returns the effective buffer row length in texels.
func (c BufferImageCopy) RowLength() uint32 {
	if c.BufferWidth == 0 {
		return c.ImageExtent.Width
	}
	return c.BufferWidth
}

// ImageHeight returns the effective buffer image height in rows.
func (c BufferImageCopy) ImageHeight() uint32 {
	if c.BufferHeight == 0 {
		return c.ImageExtent.Height
	}
	return c.BufferHeight
}

// ClearRect is a region cleared inside a render pass.
type ClearRect struct {
	Rect       pso.Rect
	LayerStart uint16
	LayerCount uint16
}

// SubpassContents selects where the commands of a subpass are recorded.
type SubpassContents uint8

// Subpass contents.
const (
	Inline SubpassContents = iota
	SecondaryBuffers
)
