// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pass describes render passes: attachments, subpasses, and the
// dependencies between them.
package pass

import (
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pso"
)

// LoadOp is applied to an attachment when a render pass begins.
type LoadOp uint8

// Load operations.
const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

// StoreOp is applied to an attachment when a render pass ends.
type StoreOp uint8

// Store operations.
const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

// AttachmentOps pairs a load and a store operation.
type AttachmentOps struct {
	Load  LoadOp
	Store StoreOp
}

// Common attachment operations.
var (
	OpsDontCare = AttachmentOps{Load: LoadOpDontCare, Store: StoreOpDontCare}
	OpsPreserve = AttachmentOps{Load: LoadOpLoad, Store: StoreOpStore}
	OpsClear    = AttachmentOps{Load: LoadOpClear, Store: StoreOpStore}
)

// Attachment describes one image used by a render pass.
type Attachment struct {
	Format  format.Format
	Samples uint8
	// Ops applies to color and depth aspects.
	Ops AttachmentOps
	// StencilOps applies to the stencil aspect.
	StencilOps    AttachmentOps
	InitialLayout image.Layout
	FinalLayout   image.Layout
}

// AttachmentID indexes Desc.Attachments.
type AttachmentID int

// AttachmentRef is a reference to an attachment from a subpass together
// with the layout the subpass requires.
type AttachmentRef struct {
	Attachment AttachmentID
	Layout     image.Layout
}

// SubpassDesc lists the attachments one subpass uses.
type SubpassDesc struct {
	Colors       []AttachmentRef
	DepthStencil *AttachmentRef
	Inputs       []AttachmentRef
	// Resolves is empty or has one entry per color reference.
	Resolves  []AttachmentRef
	Preserves []AttachmentID
}

// SubpassRef names a subpass in a dependency. External refers to work
// outside the render pass.
type SubpassRef int

// External refers to commands before or after the render pass.
const External SubpassRef = -1

// SubpassDependency orders two subpasses.
type SubpassDependency struct {
	Src, Dst             SubpassRef
	SrcStages, DstStages pso.PipelineStage
	SrcAccess, DstAccess image.Access
	Flags                memory.Dependencies
}

// Desc describes a render pass.
type Desc struct {
	Label        string
	Attachments  []Attachment
	Subpasses    []SubpassDesc
	Dependencies []SubpassDependency
}

// Clone returns a deep copy of d.
func (d Desc) Clone() Desc {
	c := Desc{
		Label:        d.Label,
		Attachments:  append([]Attachment(nil), d.Attachments...),
		Dependencies: append([]SubpassDependency(nil), d.Dependencies...),
	}
	if d.Subpasses != nil {
		c.Subpasses = make([]SubpassDesc, len(d.Subpasses))
		for i, sp := range d.Subpasses {
			c.Subpasses[i] = sp.clone()
		}
	}
	return c
}

func (s SubpassDesc) clone() SubpassDesc {
	c := SubpassDesc{
		Colors:    append([]AttachmentRef(nil), s.Colors...),
		Inputs:    append([]AttachmentRef(nil), s.Inputs...),
		Resolves:  append([]AttachmentRef(nil), s.Resolves...),
		Preserves: append([]AttachmentID(nil), s.Preserves...),
	}
	if s.DepthStencil != nil {
		ds := *s.DepthStencil
		c.DepthStencil = &ds
	}
	return c
}

// ColorFormats returns the formats of the color attachments of subpass sp.
func (d Desc) ColorFormats(sp int) []format.Format {
	if sp < 0 || sp >= len(d.Subpasses) {
		return nil
	}
	out := make([]format.Format, 0, len(d.Subpasses[sp].Colors))
	for _, r := range d.Subpasses[sp].Colors {
		out = append(out, d.attachmentFormat(r.Attachment))
	}
	return out
}

// DepthStencilFormat returns the depth-stencil format of subpass sp, or
// format.Undefined when it has none.
func (d Desc) DepthStencilFormat(sp int) format.Format {
	if sp < 0 || sp >= len(d.Subpasses) || d.Subpasses[sp].DepthStencil == nil {
		return format.Undefined
	}
	return d.attachmentFormat(d.Subpasses[sp].DepthStencil.Attachment)
}

// Samples returns the sample count used by subpass sp, taken from its
// first color or depth attachment. It returns 1 when sp has neither.
func (d Desc) Samples(sp int) uint8 {
	if sp < 0 || sp >= len(d.Subpasses) {
		return 1
	}
	s := d.Subpasses[sp]
	var id AttachmentID = -1
	if len(s.Colors) > 0 {
		id = s.Colors[0].Attachment
	} else if s.DepthStencil != nil {
		id = s.DepthStencil.Attachment
	}
	if id < 0 || int(id) >= len(d.Attachments) || d.Attachments[id].Samples == 0 {
		return 1
	}
	return d.Attachments[id].Samples
}

func (d Desc) attachmentFormat(id AttachmentID) format.Format {
	if id < 0 || int(id) >= len(d.Attachments) {
		return format.Undefined
	}
	return d.Attachments[id].Format
}
