// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/pso"
)

// DrawHook observes every draw the backend executes. The backend does not
// rasterize; a hook may write into the color targets of the call to
// emulate one.
type DrawHook func(call *DrawCall)

// Target is one color or depth attachment of the current subpass.
type Target struct {
	Format format.Format
	Extent image.Extent
	// Pixels aliases level 0, layer 0 of the attached image, rows tightly
	// packed.
	Pixels []byte
}

// DrawCall describes one executed draw.
type DrawCall struct {
	Pipeline *hal.GraphicsPipelineDesc
	Subpass  int
	Area     pso.Rect

	Colors       []Target
	DepthStencil *Target

	Viewports []pso.Viewport
	Scissors  []pso.Rect
	Blend     [4]float32

	// VertexBuffers holds the bytes bound to each vertex input slot from
	// its binding offset on.
	VertexBuffers map[uint32][]byte
	// Indices holds the index values for indexed draws, nil otherwise.
	Indices []uint32

	FirstVertex   uint32
	VertexCount   uint32
	BaseVertex    int32
	FirstInstance uint32
	InstanceCount uint32

	PushConstants []uint32

	// Samples is the sample count occlusion queries report for the draw.
	// It starts as the number of vertices processed; a hook may change it.
	Samples uint64
}

// primitives returns how many primitives n vertices form under p.
func primitives(p pso.Primitive, n uint64) uint64 {
	switch p {
	case pso.LineList:
		return n / 2
	case pso.LineStrip:
		if n < 2 {
			return 0
		}
		return n - 1
	case pso.TriangleList:
		return n / 3
	case pso.TriangleStrip:
		if n < 3 {
			return 0
		}
		return n - 2
	}
	return n
}
