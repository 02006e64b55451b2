// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package image describes images, image views, and samplers.
package image

import (
	"math/bits"

	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/pso"
)

// Extent is the size of an image in texels.
type Extent struct {
	Width, Height, Depth uint32
}

// Level returns the extent of mip level l, clamped to one texel per axis.
func (e Extent) Level(l uint8) Extent {
	shrink := func(v uint32) uint32 {
		v >>= l
		if v == 0 {
			return 1
		}
		return v
	}
	return Extent{shrink(e.Width), shrink(e.Height), shrink(e.Depth)}
}

// Texels returns the number of texels covered by e.
func (e Extent) Texels() uint64 {
	return uint64(e.Width) * uint64(e.Height) * uint64(e.Depth)
}

// IsEmpty reports whether any dimension is zero.
func (e Extent) IsEmpty() bool {
	return e.Width == 0 || e.Height == 0 || e.Depth == 0
}

// Offset is a texel offset inside an image.
type Offset struct {
	X, Y, Z int32
}

// Dimensions is the dimensionality of an image.
type Dimensions uint8

// Image dimensionalities.
const (
	D1 Dimensions = iota + 1
	D2
	D3
)

// Kind is the shape of an image: its dimensionality, extent, array layers
// and sample count. Construct with Kind1D, Kind2D or Kind3D.
type Kind struct {
	Dim     Dimensions
	Width   uint32
	Height  uint32
	Depth   uint32
	Layers  uint16
	Samples uint8
}

// Kind1D returns a one-dimensional image kind.
func Kind1D(width uint32, layers uint16) Kind {
	return Kind{Dim: D1, Width: width, Height: 1, Depth: 1, Layers: layers, Samples: 1}
}

// Kind2D returns a two-dimensional image kind.
func Kind2D(width, height uint32, layers uint16, samples uint8) Kind {
	return Kind{Dim: D2, Width: width, Height: height, Depth: 1, Layers: layers, Samples: samples}
}

// Kind3D returns a three-dimensional image kind.
func Kind3D(width, height, depth uint32) Kind {
	return Kind{Dim: D3, Width: width, Height: height, Depth: depth, Layers: 1, Samples: 1}
}

// Extent returns the base level extent.
func (k Kind) Extent() Extent {
	return Extent{k.Width, k.Height, k.Depth}
}

// NumLayers returns the number of array layers, at least one.
func (k Kind) NumLayers() uint16 {
	if k.Layers == 0 {
		return 1
	}
	return k.Layers
}

// NumSamples returns the sample count, at least one.
func (k Kind) NumSamples() uint8 {
	if k.Samples == 0 {
		return 1
	}
	return k.Samples
}

// MaxMipLevels returns the length of a full mip chain for k.
func (k Kind) MaxMipLevels() uint8 {
	return MaxMipLevels(k.Extent())
}

// MaxMipLevels returns the number of levels in a full mip chain for e.
func MaxMipLevels(e Extent) uint8 {
	m := e.Width
	if e.Height > m {
		m = e.Height
	}
	if e.Depth > m {
		m = e.Depth
	}
	if m == 0 {
		return 0
	}
	return uint8(bits.Len32(m))
}

// Usage is a bitmask of the ways an image may be used.
type Usage uint32

// Image usage flags.
const (
	TransferSrc Usage = 1 << iota
	TransferDst
	Sampled
	Storage
	ColorAttachment
	DepthStencilAttachment
	TransientAttachment
	InputAttachment
)

// Contains reports whether every bit of other is set in u.
func (u Usage) Contains(other Usage) bool {
	return u&other == other
}

// Layout is the arrangement of image data required by an operation.
type Layout uint8

// Image layouts.
const (
	LayoutUndefined Layout = iota
	LayoutGeneral
	LayoutColorAttachmentOptimal
	LayoutDepthStencilAttachmentOptimal
	LayoutDepthStencilReadOnlyOptimal
	LayoutShaderReadOnlyOptimal
	LayoutTransferSrcOptimal
	LayoutTransferDstOptimal
	LayoutPreinitialized
	LayoutPresent
)

var layoutNames = [...]string{
	"Undefined", "General", "ColorAttachmentOptimal", "DepthStencilAttachmentOptimal",
	"DepthStencilReadOnlyOptimal", "ShaderReadOnlyOptimal", "TransferSrcOptimal",
	"TransferDstOptimal", "Preinitialized", "Present",
}

func (l Layout) String() string {
	if int(l) < len(layoutNames) {
		return layoutNames[l]
	}
	return "Layout(?)"
}

// Access is a bitmask of image access types used in barriers.
type Access uint32

// Image access flags.
const (
	InputAttachmentRead Access = 1 << iota
	ShaderRead
	ShaderWrite
	ColorAttachmentRead
	ColorAttachmentWrite
	DepthStencilAttachmentRead
	DepthStencilAttachmentWrite
	TransferRead
	TransferWrite
	HostRead
	HostWrite
	MemoryRead
	MemoryWrite
)

// Tiling is the arrangement of texels in memory.
type Tiling uint8

// Tilings.
const (
	TilingOptimal Tiling = iota
	TilingLinear
)

// ViewCapabilities is a bitmask of extra view kinds an image allows.
type ViewCapabilities uint8

// View capabilities.
const (
	ViewMutableFormat ViewCapabilities = 1 << iota
	ViewKindCube
	ViewKind2DArray
)

// Desc describes an image to create.
type Desc struct {
	Label string
	Kind  Kind
	// MipLevels is the number of mip levels; zero is treated as one.
	MipLevels uint8
	Format    format.Format
	Tiling    Tiling
	Usage     Usage
	ViewCaps  ViewCapabilities
}

// NumLevels returns the number of mip levels, at least one.
func (d Desc) NumLevels() uint8 {
	if d.MipLevels == 0 {
		return 1
	}
	return d.MipLevels
}

// SubresourceRange selects mip levels and array layers of an image.
// A zero LevelCount or LayerCount selects all remaining levels or layers.
type SubresourceRange struct {
	Aspects    format.Aspects
	LevelStart uint8
	LevelCount uint8
	LayerStart uint16
	LayerCount uint16
}

// Resolve returns concrete level and layer counts for an image with the
// given number of levels and layers. ok is false when r is out of range.
func (r SubresourceRange) Resolve(levels uint8, layers uint16) (levelCount uint8, layerCount uint16, ok bool) {
	if r.LevelStart >= levels || r.LayerStart >= layers {
		return 0, 0, false
	}
	levelCount = r.LevelCount
	if levelCount == 0 {
		levelCount = levels - r.LevelStart
	}
	layerCount = r.LayerCount
	if layerCount == 0 {
		layerCount = layers - r.LayerStart
	}
	if int(r.LevelStart)+int(levelCount) > int(levels) || int(r.LayerStart)+int(layerCount) > int(layers) {
		return 0, 0, false
	}
	return levelCount, layerCount, true
}

// SubresourceLayers selects array layers of one mip level, used by copies.
type SubresourceLayers struct {
	Aspects    format.Aspects
	Level      uint8
	LayerStart uint16
	LayerCount uint16
}

// ViewKind is the shape of an image view.
type ViewKind uint8

// View kinds.
const (
	View1D ViewKind = iota
	View1DArray
	View2D
	View2DArray
	View3D
	ViewCube
	ViewCubeArray
)

// ViewDesc describes an image view to create.
type ViewDesc struct {
	Label  string
	Kind   ViewKind
	Format format.Format
	Range  SubresourceRange
}

// Filter is a texture filtering mode.
type Filter uint8

// Filters.
const (
	FilterNearest Filter = iota
	FilterLinear
)

// WrapMode selects how coordinates outside [0, 1] are handled.
type WrapMode uint8

// Wrap modes.
const (
	WrapTile WrapMode = iota
	WrapMirror
	WrapClamp
	WrapBorder
)

// SamplerDesc describes a sampler.
type SamplerDesc struct {
	Label     string
	MinFilter Filter
	MagFilter Filter
	MipFilter Filter
	Wrap      [3]WrapMode
	LodBias   float32
	LodMin    float32
	LodMax    float32
	// Comparison enables depth comparison sampling when non-nil.
	Comparison *pso.Comparison
	// Anisotropy is the maximum anisotropy; zero or one disables it.
	Anisotropy uint8
}

// NewSamplerDesc returns a sampler using filter for all filtering stages
// and wrap on every axis.
func NewSamplerDesc(filter Filter, wrap WrapMode) SamplerDesc {
	return SamplerDesc{
		MinFilter: filter,
		MagFilter: filter,
		MipFilter: filter,
		Wrap:      [3]WrapMode{wrap, wrap, wrap},
		LodMax:    1000,
	}
}
