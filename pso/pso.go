// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pso describes pipeline state objects: shader entry points,
// specialization constants, fixed-function state, and resource layouts.
//
// Everything here is plain data. Pipelines themselves are created by a
// device from these descriptions and are immutable afterwards.
package pso

// ShaderStageFlags is a bitmask of shader stages.
type ShaderStageFlags uint32

// Shader stages.
const (
	StageVertex ShaderStageFlags = 1 << iota
	StageHull
	StageDomain
	StageGeometry
	StageFragment
	StageCompute

	StageGraphics = StageVertex | StageHull | StageDomain | StageGeometry | StageFragment
	StageAll      = StageGraphics | StageCompute
)

// Contains reports whether every bit of other is set in s.
func (s ShaderStageFlags) Contains(other ShaderStageFlags) bool {
	return s&other == other
}

// PipelineStage is a bitmask of pipeline stages used in barriers and
// timestamp writes.
type PipelineStage uint32

// Pipeline stages in execution order.
const (
	TopOfPipe PipelineStage = 1 << iota
	DrawIndirect
	VertexInput
	VertexShader
	HullShader
	DomainShader
	GeometryShader
	FragmentShader
	EarlyFragmentTests
	LateFragmentTests
	ColorAttachmentOutput
	ComputeShader
	Transfer
	BottomOfPipe
	Host
)

// EntryPoint is a shader entry point in a module of type M.
// Backends instantiate it with their shader module handle.
type EntryPoint[M any] struct {
	// Entry is the name of the entry function.
	Entry string
	// Module holds the compiled shader.
	Module M
	// Specialization supplies values for specialization constants.
	Specialization Specialization
}

// ShaderSource is the code of a shader module. Backends accept the forms
// they understand and reject the rest.
type ShaderSource struct {
	Label string
	// SPIRV is a SPIR-V binary.
	SPIRV []uint32
	// WGSL is WebGPU shading language source.
	WGSL string
	// Native is a backend specific shader value, such as a Go kernel.
	Native any
}

// IsEmpty reports whether s carries no code.
func (s ShaderSource) IsEmpty() bool {
	return len(s.SPIRV) == 0 && s.WGSL == "" && s.Native == nil
}

// Rect is an integer rectangle.
type Rect struct {
	X, Y int32
	W, H int32
}

// Viewport maps normalized device coordinates to the framebuffer.
type Viewport struct {
	Rect     Rect
	MinDepth float32
	MaxDepth float32
}

// Comparison is a comparison function used by depth, stencil and sampler
// compare operations.
type Comparison uint8

// Comparison functions.
const (
	Never Comparison = iota
	Less
	Equal
	LessEqual
	Greater
	NotEqual
	GreaterEqual
	Always
)

// Compare applies c to a and b.
func (c Comparison) Compare(a, b float32) bool {
	switch c {
	case Less:
		return a < b
	case Equal:
		return a == b
	case LessEqual:
		return a <= b
	case Greater:
		return a > b
	case NotEqual:
		return a != b
	case GreaterEqual:
		return a >= b
	case Always:
		return true
	default:
		return false
	}
}

// CreationFlags control pipeline creation.
type CreationFlags uint8

// Pipeline creation flags.
const (
	DisableOptimization CreationFlags = 1 << iota
	AllowDerivatives
)
