// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pass

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned by Validate for structurally invalid descriptions.
var ErrInvalid = errors.New("pass: invalid render pass description")

// Validate checks the structure of d: every reference names an existing
// attachment of a matching aspect, resolve lists match color lists, and
// dependencies name existing subpasses in forward order.
// Device limits are checked by the device, not here.
func (d Desc) Validate() error {
	if len(d.Subpasses) == 0 {
		return fmt.Errorf("%w: no subpasses", ErrInvalid)
	}
	for i, a := range d.Attachments {
		if !a.Format.Valid() {
			return fmt.Errorf("%w: attachment %d has invalid format %v", ErrInvalid, i, a.Format)
		}
	}
	for i, sp := range d.Subpasses {
		if err := d.validateSubpass(i, sp); err != nil {
			return err
		}
	}
	for i, dep := range d.Dependencies {
		if err := d.validateDependency(dep); err != nil {
			return fmt.Errorf("dependency %d: %w", i, err)
		}
	}
	return nil
}

func (d Desc) validateSubpass(i int, sp SubpassDesc) error {
	check := func(kind string, r AttachmentRef) error {
		if r.Attachment < 0 || int(r.Attachment) >= len(d.Attachments) {
			return fmt.Errorf("%w: subpass %d %s reference %d out of range", ErrInvalid, i, kind, r.Attachment)
		}
		return nil
	}
	for _, r := range sp.Colors {
		if err := check("color", r); err != nil {
			return err
		}
		if !d.Attachments[r.Attachment].Format.IsColor() {
			return fmt.Errorf("%w: subpass %d color reference %d is not a color format", ErrInvalid, i, r.Attachment)
		}
	}
	if sp.DepthStencil != nil {
		if err := check("depth-stencil", *sp.DepthStencil); err != nil {
			return err
		}
		f := d.Attachments[sp.DepthStencil.Attachment].Format
		if !f.IsDepth() && !f.IsStencil() {
			return fmt.Errorf("%w: subpass %d depth-stencil reference %d is not a depth or stencil format",
				ErrInvalid, i, sp.DepthStencil.Attachment)
		}
	}
	for _, r := range sp.Inputs {
		if err := check("input", r); err != nil {
			return err
		}
	}
	if len(sp.Resolves) != 0 && len(sp.Resolves) != len(sp.Colors) {
		return fmt.Errorf("%w: subpass %d has %d resolves for %d colors", ErrInvalid, i, len(sp.Resolves), len(sp.Colors))
	}
	for _, r := range sp.Resolves {
		if err := check("resolve", r); err != nil {
			return err
		}
	}
	for _, id := range sp.Preserves {
		if id < 0 || int(id) >= len(d.Attachments) {
			return fmt.Errorf("%w: subpass %d preserve %d out of range", ErrInvalid, i, id)
		}
	}
	return nil
}

func (d Desc) validateDependency(dep SubpassDependency) error {
	n := SubpassRef(len(d.Subpasses))
	if dep.Src == External && dep.Dst == External {
		return fmt.Errorf("%w: both ends external", ErrInvalid)
	}
	if dep.Src != External && (dep.Src < 0 || dep.Src >= n) {
		return fmt.Errorf("%w: source subpass %d out of range", ErrInvalid, dep.Src)
	}
	if dep.Dst != External && (dep.Dst < 0 || dep.Dst >= n) {
		return fmt.Errorf("%w: destination subpass %d out of range", ErrInvalid, dep.Dst)
	}
	if dep.Src != External && dep.Dst != External && dep.Src > dep.Dst {
		return fmt.Errorf("%w: source subpass %d after destination %d", ErrInvalid, dep.Src, dep.Dst)
	}
	return nil
}

// Compatible reports whether subpass as of a and subpass bs of b are
// compatible: a pipeline or framebuffer built for one may be used with the
// other. Corresponding color, resolve, input and depth-stencil references
// must name attachments of equal format and sample count. Load/store
// operations and layouts do not affect compatibility.
func Compatible(a Desc, as int, b Desc, bs int) bool {
	if as < 0 || as >= len(a.Subpasses) || bs < 0 || bs >= len(b.Subpasses) {
		return false
	}
	if len(a.Subpasses) != len(b.Subpasses) {
		return false
	}
	sa, sb := a.Subpasses[as], b.Subpasses[bs]
	if !refsCompatible(a, sa.Colors, b, sb.Colors) ||
		!refsCompatible(a, sa.Inputs, b, sb.Inputs) ||
		!refsCompatible(a, sa.Resolves, b, sb.Resolves) {
		return false
	}
	if (sa.DepthStencil == nil) != (sb.DepthStencil == nil) {
		return false
	}
	if sa.DepthStencil != nil && !attachmentsCompatible(a, sa.DepthStencil.Attachment, b, sb.DepthStencil.Attachment) {
		return false
	}
	return true
}

func refsCompatible(a Desc, ra []AttachmentRef, b Desc, rb []AttachmentRef) bool {
	if len(ra) != len(rb) {
		return false
	}
	for i := range ra {
		if !attachmentsCompatible(a, ra[i].Attachment, b, rb[i].Attachment) {
			return false
		}
	}
	return true
}

func attachmentsCompatible(a Desc, ia AttachmentID, b Desc, ib AttachmentID) bool {
	if ia < 0 || int(ia) >= len(a.Attachments) || ib < 0 || int(ib) >= len(b.Attachments) {
		return false
	}
	x, y := a.Attachments[ia], b.Attachments[ib]
	return x.Format == y.Format && samples(x.Samples) == samples(y.Samples)
}

func samples(s uint8) uint8 {
	if s == 0 {
		return 1
	}
	return s
}
