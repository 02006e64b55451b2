// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"

	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/pass"
)

// RenderPass is an immutable render pass.
type RenderPass struct {
	resource
	raw  hal.RenderPass
	desc pass.Desc
}

func (rp *RenderPass) base() *resource {
	if rp == nil {
		return nil
	}
	return &rp.resource
}

// Desc returns a deep copy of the description the pass was created with.
func (rp *RenderPass) Desc() pass.Desc { return rp.desc.Clone() }

// NumSubpasses returns the number of subpasses.
func (rp *RenderPass) NumSubpasses() int { return len(rp.desc.Subpasses) }

// CreateRenderPass creates a render pass from desc. The pass keeps its own
// copy of desc.
func (d *Device) CreateRenderPass(desc pass.Desc) (*RenderPass, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("create render pass %q: %w: %w", desc.Label, ErrInvalidDesc, err)
	}
	if err := d.checkPassLimits(desc); err != nil {
		return nil, fmt.Errorf("create render pass %q: %w", desc.Label, err)
	}
	desc = desc.Clone()
	raw, err := d.raw.CreateRenderPass(desc)
	if err != nil {
		return nil, fmt.Errorf("create render pass %q: %w", desc.Label, d.observe(err))
	}
	Logger().Debug("gfx: render pass created", "label", desc.Label,
		"attachments", len(desc.Attachments), "subpasses", len(desc.Subpasses))
	return &RenderPass{resource: resource{device: d, label: desc.Label}, raw: raw, desc: desc}, nil
}

func (d *Device) checkPassLimits(desc pass.Desc) error {
	l := d.limits
	if l.MaxFramebufferAttachments > 0 && len(desc.Attachments) > l.MaxFramebufferAttachments {
		return fmt.Errorf("%w: %d attachments exceed %d", hal.ErrTooManyObjects, len(desc.Attachments), l.MaxFramebufferAttachments)
	}
	if l.MaxSubpasses > 0 && len(desc.Subpasses) > l.MaxSubpasses {
		return fmt.Errorf("%w: %d subpasses exceed %d", hal.ErrTooManyObjects, len(desc.Subpasses), l.MaxSubpasses)
	}
	for i, sp := range desc.Subpasses {
		if l.MaxColorAttachments > 0 && len(sp.Colors) > l.MaxColorAttachments {
			return fmt.Errorf("%w: subpass %d uses %d color attachments, max %d", hal.ErrTooManyObjects, i, len(sp.Colors), l.MaxColorAttachments)
		}
	}
	for i, a := range desc.Attachments {
		props := d.adapter.FormatProperties(a.Format).OptimalTiling
		want := format.ImageColorAttachment
		if a.Format.IsDepthStencil() {
			want = format.ImageDepthStencilAttachment
		}
		if !props.Contains(want) {
			return fmt.Errorf("%w: attachment %d format %v cannot be rendered to", hal.ErrUnsupportedFormat, i, a.Format)
		}
		if a.Samples > 1 {
			counts := l.FramebufferColorSamples
			if a.Format.IsDepthStencil() {
				counts = l.FramebufferDepthSamples
			}
			if !counts.Supports(a.Samples) {
				return fmt.Errorf("%w: attachment %d with %d samples", hal.ErrUnsupportedFormat, i, a.Samples)
			}
		}
	}
	return nil
}

// DestroyRenderPass destroys rp.
func (d *Device) DestroyRenderPass(rp *RenderPass) {
	if d.release(rp.base()) {
		d.raw.DestroyRenderPass(rp.raw)
	}
}

// Destroy destroys the render pass.
func (rp *RenderPass) Destroy() { rp.device.DestroyRenderPass(rp) }

// Framebuffer binds image views to the attachments of a render pass.
type Framebuffer struct {
	resource
	raw    hal.Framebuffer
	pass   *RenderPass
	views  []*ImageView
	extent image.Extent
}

func (fb *Framebuffer) base() *resource {
	if fb == nil {
		return nil
	}
	return &fb.resource
}

// Extent returns the framebuffer extent; Depth is the layer count.
func (fb *Framebuffer) Extent() image.Extent { return fb.extent }

// CreateFramebuffer creates a framebuffer for rp. views holds one view per
// attachment of rp, in order; extent.Depth is the number of layers.
func (d *Device) CreateFramebuffer(rp *RenderPass, views []*ImageView, extent image.Extent) (*Framebuffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if err := d.use(rp); err != nil {
		return nil, fmt.Errorf("create framebuffer: %w", err)
	}
	if len(views) != len(rp.desc.Attachments) {
		return nil, fmt.Errorf("create framebuffer: %w: %d views for %d attachments", ErrInvalidDesc, len(views), len(rp.desc.Attachments))
	}
	if extent.IsEmpty() {
		return nil, fmt.Errorf("create framebuffer: %w: empty extent", ErrInvalidDesc)
	}
	l := d.limits
	if (l.MaxFramebufferExtent[0] > 0 && extent.Width > l.MaxFramebufferExtent[0]) ||
		(l.MaxFramebufferExtent[1] > 0 && extent.Height > l.MaxFramebufferExtent[1]) ||
		(l.MaxFramebufferLayers > 0 && extent.Depth > uint32(l.MaxFramebufferLayers)) {
		return nil, fmt.Errorf("create framebuffer: %w: extent %dx%dx%d", ErrLimitExceeded, extent.Width, extent.Height, extent.Depth)
	}
	raws := make([]hal.ImageView, len(views))
	for i, v := range views {
		if err := d.use(v); err != nil {
			return nil, fmt.Errorf("create framebuffer: attachment %d: %w", i, err)
		}
		if v.desc.Format != rp.desc.Attachments[i].Format {
			return nil, fmt.Errorf("create framebuffer: %w: attachment %d is %v, view is %v",
				ErrInvalidDesc, i, rp.desc.Attachments[i].Format, v.desc.Format)
		}
		e := v.image.desc.Kind.Extent().Level(v.desc.Range.LevelStart)
		if e.Width < extent.Width || e.Height < extent.Height {
			return nil, fmt.Errorf("create framebuffer: %w: attachment %d smaller than framebuffer", ErrInvalidDesc, i)
		}
		raws[i] = v.raw
	}
	raw, err := d.raw.CreateFramebuffer(rp.raw, raws, extent)
	if err != nil {
		return nil, fmt.Errorf("create framebuffer: %w", d.observe(err))
	}
	return &Framebuffer{
		resource: resource{device: d},
		raw:      raw,
		pass:     rp,
		views:    append([]*ImageView(nil), views...),
		extent:   extent,
	}, nil
}

// DestroyFramebuffer destroys fb.
func (d *Device) DestroyFramebuffer(fb *Framebuffer) {
	if d.release(fb.base()) {
		d.raw.DestroyFramebuffer(fb.raw)
	}
}

// Destroy destroys the framebuffer.
func (fb *Framebuffer) Destroy() { fb.device.DestroyFramebuffer(fb) }
