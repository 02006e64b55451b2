// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"slices"

	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/pass"
	"github.com/gogpu/gfx/pso"
)

// EntryPoint is a shader entry point in a module created by a Device.
type EntryPoint = pso.EntryPoint[*ShaderModule]

// GraphicsShaderSet lists the entry points of a graphics pipeline.
// Vertex is mandatory; the other stages are optional.
type GraphicsShaderSet struct {
	Vertex   EntryPoint
	Hull     *EntryPoint
	Domain   *EntryPoint
	Geometry *EntryPoint
	Fragment *EntryPoint
}

// GraphicsPipelineDesc describes a graphics pipeline. The pipeline is
// created for subpass Subpass of RenderPass and may be used with any
// compatible pass.
type GraphicsPipelineDesc struct {
	Label          string
	Shaders        GraphicsShaderSet
	Rasterizer     pso.Rasterizer
	VertexBuffers  []pso.VertexBufferDesc
	Attributes     []pso.AttributeDesc
	InputAssembler pso.InputAssemblerDesc
	Blender        pso.BlendDesc
	DepthStencil   pso.DepthStencilDesc
	Multisampling  *pso.Multisampling
	BakedStates    pso.BakedStates
	Layout         *PipelineLayout
	RenderPass     *RenderPass
	Subpass        int
	Flags          pso.CreationFlags
}

// GraphicsPipeline is an immutable graphics pipeline.
type GraphicsPipeline struct {
	resource
	raw     hal.GraphicsPipeline
	layout  *PipelineLayout
	pass    pass.Desc
	subpass int
	vbufs   []pso.VertexBufferDesc
	baked   pso.BakedStates
}

func (p *GraphicsPipeline) base() *resource {
	if p == nil {
		return nil
	}
	return &p.resource
}

// Layout returns the pipeline layout.
func (p *GraphicsPipeline) Layout() *PipelineLayout { return p.layout }

// CompatibleWith reports whether p may be used in subpass sp of rp.
func (p *GraphicsPipeline) CompatibleWith(rp *RenderPass, sp int) bool {
	return pass.Compatible(p.pass, p.subpass, rp.desc, sp)
}

// resolveEntry checks an entry point and converts it for the backend.
func (d *Device) resolveEntry(stage string, e EntryPoint) (pso.EntryPoint[hal.ShaderModule], error) {
	if e.Entry == "" {
		return pso.EntryPoint[hal.ShaderModule]{}, fmt.Errorf("%w: %s stage without entry name", ErrInvalidDesc, stage)
	}
	if err := d.use(e.Module); err != nil {
		return pso.EntryPoint[hal.ShaderModule]{}, fmt.Errorf("%s stage: %w", stage, err)
	}
	if err := e.Specialization.Validate(); err != nil {
		return pso.EntryPoint[hal.ShaderModule]{}, fmt.Errorf("%s stage: %w: %w", stage, ErrInvalidDesc, err)
	}
	return pso.EntryPoint[hal.ShaderModule]{
		Entry:          e.Entry,
		Module:         e.Module.raw,
		Specialization: e.Specialization.Clone(),
	}, nil
}

func (d *Device) resolveOptionalEntry(stage string, e *EntryPoint, feature hal.Features) (*pso.EntryPoint[hal.ShaderModule], error) {
	if e == nil {
		return nil, nil
	}
	if feature != 0 {
		if err := d.require(feature, stage+" stage"); err != nil {
			return nil, err
		}
	}
	raw, err := d.resolveEntry(stage, *e)
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

// CreateGraphicsPipeline creates a graphics pipeline.
//
// The blend targets must match the subpass color attachments one to one,
// depth-stencil state requires a depth-stencil attachment, and vertex
// input must fit the adapter limits.
func (d *Device) CreateGraphicsPipeline(desc *GraphicsPipelineDesc) (*GraphicsPipeline, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	raw, err := d.buildGraphicsPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("create graphics pipeline %q: %w", desc.Label, err)
	}
	p, err := d.raw.CreateGraphicsPipeline(raw)
	if err != nil {
		return nil, fmt.Errorf("create graphics pipeline %q: %w", desc.Label, d.observe(err))
	}
	Logger().Debug("gfx: graphics pipeline created", "label", desc.Label, "subpass", desc.Subpass)
	return &GraphicsPipeline{
		resource: resource{device: d, label: desc.Label},
		raw:      p,
		layout:   desc.Layout,
		pass:     desc.RenderPass.desc,
		subpass:  desc.Subpass,
		vbufs:    slices.Clone(desc.VertexBuffers),
		baked:    desc.BakedStates,
	}, nil
}

func (d *Device) buildGraphicsPipeline(desc *GraphicsPipelineDesc) (*hal.GraphicsPipelineDesc, error) {
	if err := d.use(desc.Layout, desc.RenderPass); err != nil {
		return nil, err
	}
	rp := desc.RenderPass
	if desc.Subpass < 0 || desc.Subpass >= len(rp.desc.Subpasses) {
		return nil, fmt.Errorf("%w: subpass %d of %d", ErrInvalidSubpass, desc.Subpass, len(rp.desc.Subpasses))
	}
	sp := rp.desc.Subpasses[desc.Subpass]

	if len(desc.Blender.Targets) != len(sp.Colors) {
		return nil, fmt.Errorf("%w: %d blend targets for %d color attachments", ErrInvalidDesc, len(desc.Blender.Targets), len(sp.Colors))
	}
	if desc.Blender.LogicOp != nil {
		if err := d.require(hal.FeatureLogicOp, "logic op"); err != nil {
			return nil, err
		}
	}
	if !d.features.Contains(hal.FeatureIndependentBlending) {
		for _, t := range desc.Blender.Targets[min(1, len(desc.Blender.Targets)):] {
			if !sameBlend(t, desc.Blender.Targets[0]) {
				return nil, fmt.Errorf("independent blending: %w", ErrMissingFeature)
			}
		}
	}
	if (desc.DepthStencil.UsesDepth() || desc.DepthStencil.UsesStencil() || desc.DepthStencil.DepthBounds) && sp.DepthStencil == nil {
		return nil, fmt.Errorf("%w: depth-stencil state for subpass without depth-stencil attachment", ErrInvalidDesc)
	}
	if desc.DepthStencil.DepthBounds {
		if err := d.require(hal.FeatureDepthBounds, "depth bounds"); err != nil {
			return nil, err
		}
	}

	r := desc.Rasterizer
	if r.PolygonMode != pso.PolygonFill {
		if err := d.require(hal.FeatureNonFillPolygonMode, "polygon mode"); err != nil {
			return nil, err
		}
	}
	if r.DepthClamping {
		if err := d.require(hal.FeatureDepthClamp, "depth clamping"); err != nil {
			return nil, err
		}
	}
	if r.LineWidth != 0 && r.LineWidth != 1 {
		if err := d.require(hal.FeatureLineWidth, "line width"); err != nil {
			return nil, err
		}
	}

	if err := d.checkVertexInput(desc.VertexBuffers, desc.Attributes); err != nil {
		return nil, err
	}
	if ms := desc.Multisampling; ms != nil {
		if n := max(ms.RasterizationSamples, 1); n != rp.desc.Samples(desc.Subpass) {
			return nil, fmt.Errorf("%w: %d samples for subpass with %d", ErrInvalidDesc, n, rp.desc.Samples(desc.Subpass))
		}
		if ms.SampleShading != nil {
			if err := d.require(hal.FeatureSampleRateShading, "sample shading"); err != nil {
				return nil, err
			}
		}
	}
	if vp := desc.BakedStates.Viewport; vp != nil && vp.MinDepth > vp.MaxDepth {
		return nil, fmt.Errorf("%w: baked viewport depth range", ErrInvalidDesc)
	}

	vs, err := d.resolveEntry("vertex", desc.Shaders.Vertex)
	if err != nil {
		return nil, err
	}
	shaders := hal.GraphicsShaderSet{Vertex: vs}
	if shaders.Hull, err = d.resolveOptionalEntry("hull", desc.Shaders.Hull, hal.FeatureTessellationShader); err != nil {
		return nil, err
	}
	if shaders.Domain, err = d.resolveOptionalEntry("domain", desc.Shaders.Domain, hal.FeatureTessellationShader); err != nil {
		return nil, err
	}
	if (shaders.Hull == nil) != (shaders.Domain == nil) {
		return nil, fmt.Errorf("%w: hull and domain stages must be used together", ErrInvalidDesc)
	}
	if shaders.Geometry, err = d.resolveOptionalEntry("geometry", desc.Shaders.Geometry, hal.FeatureGeometryShader); err != nil {
		return nil, err
	}
	if shaders.Fragment, err = d.resolveOptionalEntry("fragment", desc.Shaders.Fragment, 0); err != nil {
		return nil, err
	}

	return &hal.GraphicsPipelineDesc{
		Label:          desc.Label,
		Shaders:        shaders,
		Rasterizer:     r,
		VertexBuffers:  slices.Clone(desc.VertexBuffers),
		Attributes:     slices.Clone(desc.Attributes),
		InputAssembler: desc.InputAssembler,
		Blender:        pso.BlendDesc{LogicOp: desc.Blender.LogicOp, Targets: slices.Clone(desc.Blender.Targets)},
		DepthStencil:   desc.DepthStencil,
		Multisampling:  desc.Multisampling,
		BakedStates:    desc.BakedStates,
		Layout:         desc.Layout.raw,
		Subpass:        hal.Subpass{Index: desc.Subpass, Main: rp.raw},
		Flags:          desc.Flags,
	}, nil
}

func sameBlend(a, b pso.ColorBlendDesc) bool {
	if a.Mask != b.Mask || (a.Blend == nil) != (b.Blend == nil) {
		return false
	}
	return a.Blend == nil || *a.Blend == *b.Blend
}

func (d *Device) checkVertexInput(bufs []pso.VertexBufferDesc, attrs []pso.AttributeDesc) error {
	l := d.limits
	if l.MaxVertexInputBindings > 0 && len(bufs) > int(l.MaxVertexInputBindings) {
		return fmt.Errorf("%w: %d vertex bindings exceed %d", ErrLimitExceeded, len(bufs), l.MaxVertexInputBindings)
	}
	if l.MaxVertexInputAttributes > 0 && len(attrs) > int(l.MaxVertexInputAttributes) {
		return fmt.Errorf("%w: %d vertex attributes exceed %d", ErrLimitExceeded, len(attrs), l.MaxVertexInputAttributes)
	}
	bindings := make(map[uint32]bool, len(bufs))
	for _, b := range bufs {
		if bindings[b.Binding] {
			return fmt.Errorf("%w: vertex binding %d declared twice", ErrInvalidDesc, b.Binding)
		}
		bindings[b.Binding] = true
		if l.MaxVertexInputBindingStride > 0 && b.Stride > l.MaxVertexInputBindingStride {
			return fmt.Errorf("%w: vertex stride %d exceeds %d", ErrLimitExceeded, b.Stride, l.MaxVertexInputBindingStride)
		}
	}
	locations := make(map[uint32]bool, len(attrs))
	for _, a := range attrs {
		if !bindings[a.Binding] {
			return fmt.Errorf("%w: attribute %d references unknown binding %d", ErrInvalidDesc, a.Location, a.Binding)
		}
		if locations[a.Location] {
			return fmt.Errorf("%w: attribute location %d declared twice", ErrInvalidDesc, a.Location)
		}
		locations[a.Location] = true
		if !a.Format.Valid() {
			return fmt.Errorf("%w: attribute %d format %v", ErrInvalidDesc, a.Location, a.Format)
		}
		if l.MaxVertexInputAttributeOffset > 0 && a.Offset > l.MaxVertexInputAttributeOffset {
			return fmt.Errorf("%w: attribute offset %d exceeds %d", ErrLimitExceeded, a.Offset, l.MaxVertexInputAttributeOffset)
		}
	}
	return nil
}

// DestroyGraphicsPipeline destroys p.
func (d *Device) DestroyGraphicsPipeline(p *GraphicsPipeline) {
	if d.release(p.base()) {
		d.raw.DestroyGraphicsPipeline(p.raw)
	}
}

// Destroy destroys the pipeline.
func (p *GraphicsPipeline) Destroy() { p.device.DestroyGraphicsPipeline(p) }

// ComputePipelineDesc describes a compute pipeline.
type ComputePipelineDesc struct {
	Label  string
	Shader EntryPoint
	Layout *PipelineLayout
	Flags  pso.CreationFlags
}

// ComputePipeline is an immutable compute pipeline.
type ComputePipeline struct {
	resource
	raw    hal.ComputePipeline
	layout *PipelineLayout
}

func (p *ComputePipeline) base() *resource {
	if p == nil {
		return nil
	}
	return &p.resource
}

// Layout returns the pipeline layout.
func (p *ComputePipeline) Layout() *PipelineLayout { return p.layout }

// CreateComputePipeline creates a compute pipeline.
func (d *Device) CreateComputePipeline(desc *ComputePipelineDesc) (*ComputePipeline, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if err := d.use(desc.Layout); err != nil {
		return nil, fmt.Errorf("create compute pipeline %q: %w", desc.Label, err)
	}
	cs, err := d.resolveEntry("compute", desc.Shader)
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline %q: %w", desc.Label, err)
	}
	raw, err := d.raw.CreateComputePipeline(&hal.ComputePipelineDesc{
		Label:  desc.Label,
		Shader: cs,
		Layout: desc.Layout.raw,
		Flags:  desc.Flags,
	})
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline %q: %w", desc.Label, d.observe(err))
	}
	Logger().Debug("gfx: compute pipeline created", "label", desc.Label, "entry", desc.Shader.Entry)
	return &ComputePipeline{resource: resource{device: d, label: desc.Label}, raw: raw, layout: desc.Layout}, nil
}

// DestroyComputePipeline destroys p.
func (d *Device) DestroyComputePipeline(p *ComputePipeline) {
	if d.release(p.base()) {
		d.raw.DestroyComputePipeline(p.raw)
	}
}

// Destroy destroys the pipeline.
func (p *ComputePipeline) Destroy() { p.device.DestroyComputePipeline(p) }
