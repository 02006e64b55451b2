// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pso

import "github.com/gogpu/gfx/format"

// PolygonMode selects how polygons are rasterized.
type PolygonMode uint8

// Polygon modes.
const (
	PolygonFill PolygonMode = iota
	PolygonLine
	PolygonPoint
)

// Face is a bitmask of polygon faces.
type Face uint8

// Faces.
const (
	FaceNone  Face = 0
	FaceFront Face = 1 << 0
	FaceBack  Face = 1 << 1
)

// FrontFace is the winding order considered front facing.
type FrontFace uint8

// Winding orders.
const (
	CounterClockwise FrontFace = iota
	Clockwise
)

// DepthBias configures depth value offsets.
type DepthBias struct {
	ConstFactor float32
	Clamp       float32
	SlopeFactor float32
}

// Rasterizer is the rasterization state.
type Rasterizer struct {
	PolygonMode   PolygonMode
	CullFace      Face
	FrontFace     FrontFace
	DepthClamping bool
	DepthBias     *DepthBias
	Conservative  bool
	LineWidth     float32
}

// RasterizerFill is a filled, non-culled rasterizer.
var RasterizerFill = Rasterizer{PolygonMode: PolygonFill, LineWidth: 1}

// DepthTest is the depth test state.
type DepthTest struct {
	Fun   Comparison
	Write bool
}

// StencilOp is an operation applied to the stencil buffer.
type StencilOp uint8

// Stencil operations.
const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncrementClamp
	StencilDecrementClamp
	StencilInvert
	StencilIncrementWrap
	StencilDecrementWrap
)

// StencilFace is the stencil state for one polygon face.
type StencilFace struct {
	Fun         Comparison
	OpFail      StencilOp
	OpDepthFail StencilOp
	OpPass      StencilOp
}

// Sided holds a value for front and back faces.
type Sided[T any] struct {
	Front, Back T
}

// NewSided returns a Sided with v on both faces.
func NewSided[T any](v T) Sided[T] {
	return Sided[T]{Front: v, Back: v}
}

// StencilTest is the stencil test state.
type StencilTest struct {
	Faces           Sided[StencilFace]
	ReadMasks       Sided[uint32]
	WriteMasks      Sided[uint32]
	ReferenceValues Sided[uint32]
}

// DepthStencilDesc is the depth and stencil state. A nil test is disabled.
type DepthStencilDesc struct {
	Depth       *DepthTest
	DepthBounds bool
	Stencil     *StencilTest
}

// UsesDepth reports whether any depth state is enabled.
func (d DepthStencilDesc) UsesDepth() bool {
	return d.Depth != nil || d.DepthBounds
}

// UsesStencil reports whether the stencil test is enabled.
func (d DepthStencilDesc) UsesStencil() bool {
	return d.Stencil != nil
}

// BlendFactor is a blend equation factor.
type BlendFactor uint8

// Blend factors.
const (
	FactorZero BlendFactor = iota
	FactorOne
	FactorSrcColor
	FactorOneMinusSrcColor
	FactorDstColor
	FactorOneMinusDstColor
	FactorSrcAlpha
	FactorOneMinusSrcAlpha
	FactorDstAlpha
	FactorOneMinusDstAlpha
	FactorConstColor
	FactorOneMinusConstColor
)

// BlendOp combines the weighted source and destination.
type BlendOp uint8

// Blend operations.
const (
	BlendAdd BlendOp = iota
	BlendSubtract
	BlendReverseSubtract
	BlendMin
	BlendMax
)

// BlendComponent is the blend equation of the color or alpha channel.
type BlendComponent struct {
	Src BlendFactor
	Dst BlendFactor
	Op  BlendOp
}

// BlendState is the blend equation of one color target.
type BlendState struct {
	Color BlendComponent
	Alpha BlendComponent
}

// Common blend states.
var (
	BlendReplace = BlendState{
		Color: BlendComponent{Src: FactorOne, Dst: FactorZero, Op: BlendAdd},
		Alpha: BlendComponent{Src: FactorOne, Dst: FactorZero, Op: BlendAdd},
	}
	BlendPremultipliedAlpha = BlendState{
		Color: BlendComponent{Src: FactorOne, Dst: FactorOneMinusSrcAlpha, Op: BlendAdd},
		Alpha: BlendComponent{Src: FactorOne, Dst: FactorOneMinusSrcAlpha, Op: BlendAdd},
	}
)

// ColorMask is a bitmask of color channels written by a target.
type ColorMask uint8

// Color masks.
const (
	MaskRed ColorMask = 1 << iota
	MaskGreen
	MaskBlue
	MaskAlpha

	MaskColor = MaskRed | MaskGreen | MaskBlue
	MaskAll   = MaskColor | MaskAlpha
	MaskNone  ColorMask = 0
)

// ColorBlendDesc is the blend state of one color target.
// A nil Blend writes the source unchanged.
type ColorBlendDesc struct {
	Mask  ColorMask
	Blend *BlendState
}

// LogicOp is a bitwise framebuffer operation.
type LogicOp uint8

// Logic operations.
const (
	LogicClear LogicOp = iota
	LogicAnd
	LogicCopy
	LogicNoOp
	LogicXor
	LogicOr
	LogicSet
)

// BlendDesc is the blend state of every color target of a subpass.
type BlendDesc struct {
	LogicOp *LogicOp
	Targets []ColorBlendDesc
}

// Primitive is the primitive topology.
type Primitive uint8

// Primitive topologies.
const (
	PointList Primitive = iota
	LineList
	LineStrip
	TriangleList
	TriangleStrip
)

// InputAssemblerDesc is the input assembler state.
type InputAssemblerDesc struct {
	Primitive        Primitive
	PrimitiveRestart bool
}

// VertexInputRate selects per-vertex or per-instance stepping.
type VertexInputRate uint8

// Vertex input rates.
const (
	RateVertex VertexInputRate = iota
	RateInstance
)

// VertexBufferDesc describes one vertex buffer binding.
type VertexBufferDesc struct {
	Binding uint32
	Stride  uint32
	Rate    VertexInputRate
	// Divisor applies to RateInstance; zero is treated as one.
	Divisor uint32
}

// AttributeDesc describes one vertex attribute.
type AttributeDesc struct {
	Location uint32
	Binding  uint32
	Format   format.Format
	Offset   uint32
}

// Multisampling is the multisample state.
type Multisampling struct {
	RasterizationSamples uint8
	SampleShading        *float32
	SampleMask           uint64
	AlphaCoverage        bool
	AlphaToOne           bool
}

// BakedStates are states fixed at pipeline creation. A nil field is set
// dynamically at record time.
type BakedStates struct {
	Viewport    *Viewport
	Scissor     *Rect
	BlendColor  *[4]float32
	DepthBounds *[2]float32
}
