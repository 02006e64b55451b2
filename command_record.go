// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"

	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pass"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
	"github.com/gogpu/gfx/queue"
)

// BufferBarrier is a memory barrier for a buffer range.
type BufferBarrier struct {
	Buffer               *Buffer
	Range                buffer.SubRange
	SrcAccess, DstAccess buffer.Access
	// Families transfers ownership from the first to the second family.
	Families *[2]queue.FamilyID
}

// ImageBarrier is a memory barrier and layout transition for image
// subresources.
type ImageBarrier struct {
	Image                *Image
	Range                image.SubresourceRange
	SrcAccess, DstAccess image.Access
	OldLayout, NewLayout image.Layout
	Families             *[2]queue.FamilyID
}

// VertexBufferBinding binds a buffer at an offset to a vertex binding.
type VertexBufferBinding struct {
	Buffer *Buffer
	Offset uint64
}

// PipelineBarrier inserts an execution and memory dependency.
func (cb *CommandBuffer) PipelineBarrier(src, dst pso.PipelineStage, deps memory.Dependencies, buffers []BufferBarrier, images []ImageBarrier) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("pipeline barrier: %w", err)
	}
	if src == 0 || dst == 0 {
		return fmt.Errorf("pipeline barrier: %w: empty stage mask", ErrInvalidDesc)
	}
	d := cb.device()
	rawBufs := make([]hal.BufferBarrier, len(buffers))
	for i, b := range buffers {
		if err := d.use(b.Buffer); err != nil {
			return fmt.Errorf("pipeline barrier: %w", err)
		}
		if err := checkRange(b.Buffer, b.Range); err != nil {
			return fmt.Errorf("pipeline barrier: %w", err)
		}
		rawBufs[i] = hal.BufferBarrier{
			Buffer: b.Buffer.raw, Range: b.Range,
			SrcAccess: b.SrcAccess, DstAccess: b.DstAccess,
			Families: b.Families,
		}
	}
	rawImgs := make([]hal.ImageBarrier, len(images))
	for i, b := range images {
		if err := d.use(b.Image); err != nil {
			return fmt.Errorf("pipeline barrier: %w", err)
		}
		if err := checkSubresource(b.Image, b.Range); err != nil {
			return fmt.Errorf("pipeline barrier: %w", err)
		}
		if b.NewLayout == image.LayoutUndefined || b.NewLayout == image.LayoutPreinitialized {
			return fmt.Errorf("pipeline barrier: %w: transition to %v", ErrInvalidDesc, b.NewLayout)
		}
		rawImgs[i] = hal.ImageBarrier{
			Image: b.Image.raw, Range: b.Range,
			SrcAccess: b.SrcAccess, DstAccess: b.DstAccess,
			OldLayout: b.OldLayout, NewLayout: b.NewLayout,
			Families: b.Families,
		}
	}
	cb.raw.PipelineBarrier(src, dst, deps, rawBufs, rawImgs)
	return nil
}

// FillBuffer fills r of buf with repeated copies of data. Offset and size
// must be multiples of 4.
func (cb *CommandBuffer) FillBuffer(buf *Buffer, r buffer.SubRange, data uint32) error {
	if err := cb.outsidePass("fill buffer"); err != nil {
		return err
	}
	if err := cb.device().checkBuffer(buf, buffer.TransferDst); err != nil {
		return fmt.Errorf("fill buffer: %w", err)
	}
	start, end, ok := r.Resolve(buf.desc.Size)
	if !ok || start%4 != 0 || (r.Size != buffer.WholeSize && (end-start)%4 != 0) {
		return fmt.Errorf("fill buffer: %w: range %d+%d", ErrInvalidDesc, r.Offset, r.Size)
	}
	cb.raw.FillBuffer(buf.raw, r, data)
	return nil
}

// maxUpdateSize is the largest inline buffer update.
const maxUpdateSize = 65536

// UpdateBuffer writes data into buf at offset from the command stream.
// Offset and length must be multiples of 4 and data at most 64 KiB.
func (cb *CommandBuffer) UpdateBuffer(buf *Buffer, offset uint64, data []byte) error {
	if err := cb.outsidePass("update buffer"); err != nil {
		return err
	}
	if err := cb.device().checkBuffer(buf, buffer.TransferDst); err != nil {
		return fmt.Errorf("update buffer: %w", err)
	}
	n := uint64(len(data))
	if n == 0 || n > maxUpdateSize || n%4 != 0 || offset%4 != 0 {
		return fmt.Errorf("update buffer: %w: %d bytes at %d", ErrInvalidDesc, n, offset)
	}
	if err := checkRange(buf, buffer.SubRange{Offset: offset, Size: n}); err != nil {
		return fmt.Errorf("update buffer: %w", err)
	}
	cb.raw.UpdateBuffer(buf.raw, offset, data)
	return nil
}

// CopyBuffer copies regions from src to dst.
func (cb *CommandBuffer) CopyBuffer(src, dst *Buffer, regions []command.BufferCopy) error {
	if err := cb.outsidePass("copy buffer"); err != nil {
		return err
	}
	d := cb.device()
	if err := d.checkBuffer(src, buffer.TransferSrc); err != nil {
		return fmt.Errorf("copy buffer: %w", err)
	}
	if err := d.checkBuffer(dst, buffer.TransferDst); err != nil {
		return fmt.Errorf("copy buffer: %w", err)
	}
	for _, r := range regions {
		if r.Size == 0 {
			return fmt.Errorf("copy buffer: %w: empty region", ErrInvalidDesc)
		}
		if err := checkRange(src, buffer.SubRange{Offset: r.Src, Size: r.Size}); err != nil {
			return fmt.Errorf("copy buffer: source: %w", err)
		}
		if err := checkRange(dst, buffer.SubRange{Offset: r.Dst, Size: r.Size}); err != nil {
			return fmt.Errorf("copy buffer: destination: %w", err)
		}
		if src == dst && r.Src < r.Dst+r.Size && r.Dst < r.Src+r.Size {
			return fmt.Errorf("copy buffer: %w: overlapping regions", ErrInvalidDesc)
		}
	}
	cb.raw.CopyBuffer(src.raw, dst.raw, regions)
	return nil
}

// checkImageRegion validates a copy region of img.
func checkImageRegion(img *Image, l image.SubresourceLayers, off image.Offset, e image.Extent) error {
	if err := checkLayers(img, l); err != nil {
		return err
	}
	lvl := img.desc.Kind.Extent().Level(l.Level)
	if off.X < 0 || off.Y < 0 || off.Z < 0 ||
		uint64(off.X)+uint64(e.Width) > uint64(lvl.Width) ||
		uint64(off.Y)+uint64(e.Height) > uint64(lvl.Height) ||
		uint64(off.Z)+uint64(e.Depth) > uint64(lvl.Depth) {
		return fmt.Errorf("%w: region outside level %d of image %q", ErrInvalidDesc, l.Level, img.label)
	}
	return nil
}

// CopyImage copies regions between images of compatible formats.
func (cb *CommandBuffer) CopyImage(src *Image, srcLayout image.Layout, dst *Image, dstLayout image.Layout, regions []command.ImageCopy) error {
	if err := cb.outsidePass("copy image"); err != nil {
		return err
	}
	d := cb.device()
	if err := d.checkImage(src, image.TransferSrc); err != nil {
		return fmt.Errorf("copy image: %w", err)
	}
	if err := d.checkImage(dst, image.TransferDst); err != nil {
		return fmt.Errorf("copy image: %w", err)
	}
	if src.desc.Format.Desc().Bits != dst.desc.Format.Desc().Bits {
		return fmt.Errorf("copy image: %w: %v to %v", hal.ErrUnsupportedFormat, src.desc.Format, dst.desc.Format)
	}
	if src.desc.Kind.NumSamples() != dst.desc.Kind.NumSamples() {
		return fmt.Errorf("copy image: %w: sample counts differ", ErrInvalidDesc)
	}
	for _, r := range regions {
		if err := checkImageRegion(src, r.SrcSubresource, r.SrcOffset, r.Extent); err != nil {
			return fmt.Errorf("copy image: source: %w", err)
		}
		if err := checkImageRegion(dst, r.DstSubresource, r.DstOffset, r.Extent); err != nil {
			return fmt.Errorf("copy image: destination: %w", err)
		}
	}
	cb.raw.CopyImage(src.raw, srcLayout, dst.raw, dstLayout, regions)
	return nil
}

// checkBufferImageRegion validates the buffer side of a buffer-image copy.
func checkBufferImageRegion(buf *Buffer, img *Image, r command.BufferImageCopy) error {
	if err := checkImageRegion(img, r.ImageLayers, r.ImageOffset, r.ImageExtent); err != nil {
		return err
	}
	texel := uint64(img.desc.Format.Desc().BytesPerTexel())
	if texel == 0 {
		return fmt.Errorf("%w: format %v", hal.ErrUnsupportedFormat, img.desc.Format)
	}
	// Depth and stencil copies align to 4 bytes, color copies to a texel.
	align := texel
	if img.desc.Format.IsDepthStencil() {
		align = 4
	}
	if r.BufferOffset%align != 0 {
		return fmt.Errorf("%w: buffer offset %d not a multiple of %d", ErrInvalidDesc, r.BufferOffset, align)
	}
	if (r.BufferWidth != 0 && r.BufferWidth < r.ImageExtent.Width) ||
		(r.BufferHeight != 0 && r.BufferHeight < r.ImageExtent.Height) {
		return fmt.Errorf("%w: buffer rows shorter than the image region", ErrInvalidDesc)
	}
	row := uint64(r.RowLength()) * texel
	slice := row * uint64(r.ImageHeight())
	layers := uint64(max(r.ImageLayers.LayerCount, 1))
	e := r.ImageExtent
	if e.Width == 0 || e.Height == 0 || e.Depth == 0 {
		return fmt.Errorf("%w: empty image region", ErrInvalidDesc)
	}
	size := slice*(uint64(e.Depth)*layers-1) + row*uint64(e.Height-1) + uint64(e.Width)*texel
	return checkRange(buf, buffer.SubRange{Offset: r.BufferOffset, Size: size})
}

// CopyBufferToImage copies texel data from src into regions of dst.
func (cb *CommandBuffer) CopyBufferToImage(src *Buffer, dst *Image, dstLayout image.Layout, regions []command.BufferImageCopy) error {
	if err := cb.outsidePass("copy buffer to image"); err != nil {
		return err
	}
	d := cb.device()
	if err := d.checkBuffer(src, buffer.TransferSrc); err != nil {
		return fmt.Errorf("copy buffer to image: %w", err)
	}
	if err := d.checkImage(dst, image.TransferDst); err != nil {
		return fmt.Errorf("copy buffer to image: %w", err)
	}
	for _, r := range regions {
		if err := checkBufferImageRegion(src, dst, r); err != nil {
			return fmt.Errorf("copy buffer to image: %w", err)
		}
	}
	cb.raw.CopyBufferToImage(src.raw, dst.raw, dstLayout, regions)
	return nil
}

// CopyImageToBuffer copies regions of src into dst.
func (cb *CommandBuffer) CopyImageToBuffer(src *Image, srcLayout image.Layout, dst *Buffer, regions []command.BufferImageCopy) error {
	if err := cb.outsidePass("copy image to buffer"); err != nil {
		return err
	}
	d := cb.device()
	if err := d.checkImage(src, image.TransferSrc); err != nil {
		return fmt.Errorf("copy image to buffer: %w", err)
	}
	if err := d.checkBuffer(dst, buffer.TransferDst); err != nil {
		return fmt.Errorf("copy image to buffer: %w", err)
	}
	for _, r := range regions {
		if err := checkBufferImageRegion(dst, src, r); err != nil {
			return fmt.Errorf("copy image to buffer: %w", err)
		}
	}
	cb.raw.CopyImageToBuffer(src.raw, srcLayout, dst.raw, regions)
	return nil
}

// ClearColorImage clears subresources of a color image.
func (cb *CommandBuffer) ClearColorImage(img *Image, layout image.Layout, r image.SubresourceRange, value command.ClearColor) error {
	if err := cb.outsidePass("clear color image"); err != nil {
		return err
	}
	if err := cb.device().checkImage(img, image.TransferDst); err != nil {
		return fmt.Errorf("clear color image: %w", err)
	}
	if !img.desc.Format.IsColor() {
		return fmt.Errorf("clear color image: %w: %v is not a color format", ErrInvalidDesc, img.desc.Format)
	}
	if err := checkSubresource(img, r); err != nil {
		return fmt.Errorf("clear color image: %w", err)
	}
	cb.raw.ClearColorImage(img.raw, layout, r, value)
	return nil
}

// ClearDepthStencilImage clears subresources of a depth-stencil image.
func (cb *CommandBuffer) ClearDepthStencilImage(img *Image, layout image.Layout, r image.SubresourceRange, value command.ClearDepthStencil) error {
	if err := cb.outsidePass("clear depth stencil image"); err != nil {
		return err
	}
	if err := cb.device().checkImage(img, image.TransferDst); err != nil {
		return fmt.Errorf("clear depth stencil image: %w", err)
	}
	if !img.desc.Format.IsDepthStencil() {
		return fmt.Errorf("clear depth stencil image: %w: %v is not a depth-stencil format", ErrInvalidDesc, img.desc.Format)
	}
	if value.Depth < 0 || value.Depth > 1 {
		return fmt.Errorf("clear depth stencil image: %w: depth %v outside [0, 1]", ErrInvalidDesc, value.Depth)
	}
	if err := checkSubresource(img, r); err != nil {
		return fmt.Errorf("clear depth stencil image: %w", err)
	}
	cb.raw.ClearDepthStencilImage(img.raw, layout, r, value)
	return nil
}

// BeginRenderPass begins rp on fb over area. clears holds one value per
// attachment up to the last one that is cleared on load.
func (cb *CommandBuffer) BeginRenderPass(rp *RenderPass, fb *Framebuffer, area pso.Rect, clears []command.ClearValue, contents command.SubpassContents) error {
	if err := cb.outsidePass("begin render pass"); err != nil {
		return err
	}
	if cb.level != command.Primary {
		return fmt.Errorf("begin render pass: %w: secondary buffer", ErrInvalidLevel)
	}
	d := cb.device()
	if err := d.use(rp, fb); err != nil {
		return fmt.Errorf("begin render pass: %w", err)
	}
	if fb.pass != rp && !passesCompatible(fb.pass.desc, rp.desc) {
		return fmt.Errorf("begin render pass: %w: framebuffer created for an incompatible pass", ErrInvalidDesc)
	}
	if area.X < 0 || area.Y < 0 || area.W <= 0 || area.H <= 0 ||
		uint64(area.X)+uint64(area.W) > uint64(fb.extent.Width) ||
		uint64(area.Y)+uint64(area.H) > uint64(fb.extent.Height) {
		return fmt.Errorf("begin render pass: %w: render area outside framebuffer", ErrInvalidDesc)
	}
	for i, a := range rp.desc.Attachments {
		if (a.Ops.Load == pass.LoadOpClear || a.StencilOps.Load == pass.LoadOpClear) && i >= len(clears) {
			return fmt.Errorf("begin render pass: %w: no clear value for attachment %d", ErrInvalidDesc, i)
		}
	}
	cb.raw.BeginRenderPass(rp.raw, fb.raw, area, clears, contents)
	cb.rec.pass = rp
	cb.rec.framebuffer = fb
	cb.rec.subpass = 0
	cb.rec.contents = contents
	cb.rec.graphicsOK = false
	return nil
}

func passesCompatible(a, b pass.Desc) bool {
	if len(a.Subpasses) != len(b.Subpasses) {
		return false
	}
	for i := range a.Subpasses {
		if !pass.Compatible(a, i, b, i) {
			return false
		}
	}
	return true
}

// NextSubpass advances to the next subpass of the active render pass.
func (cb *CommandBuffer) NextSubpass(contents command.SubpassContents) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("next subpass: %w", err)
	}
	if cb.rec.pass == nil || cb.rec.continues {
		return fmt.Errorf("next subpass: %w", ErrOutsideRenderPass)
	}
	if cb.rec.subpass+1 >= cb.rec.pass.NumSubpasses() {
		return fmt.Errorf("next subpass: %w: already in last subpass %d", ErrInvalidSubpass, cb.rec.subpass)
	}
	cb.raw.NextSubpass(contents)
	cb.rec.subpass++
	cb.rec.contents = contents
	cb.rec.graphicsOK = false
	return nil
}

// EndRenderPass ends the active render pass, which must be in its last
// subpass.
func (cb *CommandBuffer) EndRenderPass() error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("end render pass: %w", err)
	}
	if cb.rec.pass == nil || cb.rec.continues {
		return fmt.Errorf("end render pass: %w", ErrOutsideRenderPass)
	}
	if cb.rec.subpass != cb.rec.pass.NumSubpasses()-1 {
		return fmt.Errorf("end render pass: %w: in subpass %d of %d", ErrInvalidSubpass, cb.rec.subpass, cb.rec.pass.NumSubpasses())
	}
	cb.raw.EndRenderPass()
	cb.rec.pass = nil
	cb.rec.framebuffer = nil
	cb.rec.graphicsOK = false
	return nil
}

// BindGraphicsPipeline binds p for subsequent draws. Inside a render pass
// p must be compatible with the active subpass; outside one the check is
// made at the next draw.
func (cb *CommandBuffer) BindGraphicsPipeline(p *GraphicsPipeline) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("bind graphics pipeline: %w", err)
	}
	if err := cb.device().use(p); err != nil {
		return fmt.Errorf("bind graphics pipeline: %w", err)
	}
	ok := false
	if cb.rec.pass != nil {
		if !p.CompatibleWith(cb.rec.pass, cb.rec.subpass) {
			return fmt.Errorf("bind graphics pipeline %q: %w", p.label, ErrIncompatiblePipeline)
		}
		ok = true
	}
	cb.raw.BindGraphicsPipeline(p.raw)
	cb.rec.graphics = p
	cb.rec.graphicsOK = ok
	return nil
}

// BindComputePipeline binds p for subsequent dispatches.
func (cb *CommandBuffer) BindComputePipeline(p *ComputePipeline) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("bind compute pipeline: %w", err)
	}
	if err := cb.device().use(p); err != nil {
		return fmt.Errorf("bind compute pipeline: %w", err)
	}
	cb.raw.BindComputePipeline(p.raw)
	cb.rec.compute = p
	return nil
}

func (cb *CommandBuffer) descriptorSets(op string, layout *PipelineLayout, first int, sets []*DescriptorSet, dynamicOffsets []uint32) ([]hal.DescriptorSet, error) {
	if err := cb.recording(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d := cb.device()
	if err := d.use(layout); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if first < 0 || first+len(sets) > len(layout.sets) {
		return nil, fmt.Errorf("%s: %w: sets %d..%d of layout with %d", op, ErrInvalidDesc, first, first+len(sets), len(layout.sets))
	}
	raws := make([]hal.DescriptorSet, len(sets))
	dynamic := 0
	for i, s := range sets {
		if err := d.use(s); err != nil {
			return nil, fmt.Errorf("%s: set %d: %w", op, first+i, err)
		}
		if s.layout != layout.sets[first+i] {
			return nil, fmt.Errorf("%s: %w: set %d has a different layout", op, ErrInvalidDesc, first+i)
		}
		for _, b := range s.layout.bindings {
			if b.Type == pso.DescUniformBufferDynamic || b.Type == pso.DescStorageBufferDynamic {
				dynamic += int(b.Count)
			}
		}
		raws[i] = s.raw
	}
	if dynamic != len(dynamicOffsets) {
		return nil, fmt.Errorf("%s: %w: %d dynamic offsets for %d dynamic descriptors", op, ErrInvalidDesc, len(dynamicOffsets), dynamic)
	}
	return raws, nil
}

// BindGraphicsDescriptorSets binds sets starting at index first of layout
// for graphics pipelines.
func (cb *CommandBuffer) BindGraphicsDescriptorSets(layout *PipelineLayout, first int, sets []*DescriptorSet, dynamicOffsets []uint32) error {
	raws, err := cb.descriptorSets("bind graphics descriptor sets", layout, first, sets, dynamicOffsets)
	if err != nil {
		return err
	}
	cb.raw.BindGraphicsDescriptorSets(layout.raw, first, raws, dynamicOffsets)
	return nil
}

// BindComputeDescriptorSets binds sets starting at index first of layout
// for compute pipelines.
func (cb *CommandBuffer) BindComputeDescriptorSets(layout *PipelineLayout, first int, sets []*DescriptorSet, dynamicOffsets []uint32) error {
	raws, err := cb.descriptorSets("bind compute descriptor sets", layout, first, sets, dynamicOffsets)
	if err != nil {
		return err
	}
	cb.raw.BindComputeDescriptorSets(layout.raw, first, raws, dynamicOffsets)
	return nil
}

// BindVertexBuffers binds vertex buffers to consecutive bindings starting
// at first.
func (cb *CommandBuffer) BindVertexBuffers(first uint32, bindings []VertexBufferBinding) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("bind vertex buffers: %w", err)
	}
	d := cb.device()
	end := uint64(first) + uint64(len(bindings))
	if limit := d.limits.MaxVertexInputBindings; (limit > 0 && end > uint64(limit)) || end > 64 {
		return fmt.Errorf("bind vertex buffers: %w: bindings up to %d", ErrLimitExceeded, end)
	}
	raws := make([]hal.VertexBufferBinding, len(bindings))
	for i, b := range bindings {
		if err := d.checkBuffer(b.Buffer, buffer.Vertex); err != nil {
			return fmt.Errorf("bind vertex buffers: %w", err)
		}
		if b.Offset >= b.Buffer.desc.Size {
			return fmt.Errorf("bind vertex buffers: %w: offset %d past buffer end", ErrInvalidDesc, b.Offset)
		}
		raws[i] = hal.VertexBufferBinding{Buffer: b.Buffer.raw, Offset: b.Offset}
	}
	cb.raw.BindVertexBuffers(first, raws)
	for i := range bindings {
		cb.rec.vertex |= 1 << (uint64(first) + uint64(i))
	}
	return nil
}

// BindIndexBuffer binds buf at offset as the index buffer.
func (cb *CommandBuffer) BindIndexBuffer(buf *Buffer, offset uint64, ty hal.IndexType) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("bind index buffer: %w", err)
	}
	if err := cb.device().checkBuffer(buf, buffer.Index); err != nil {
		return fmt.Errorf("bind index buffer: %w", err)
	}
	if ty != hal.IndexU16 && ty != hal.IndexU32 {
		return fmt.Errorf("bind index buffer: %w: index type %d", ErrInvalidDesc, ty)
	}
	if offset >= buf.desc.Size || offset%ty.Size() != 0 {
		return fmt.Errorf("bind index buffer: %w: offset %d", ErrInvalidDesc, offset)
	}
	cb.raw.BindIndexBuffer(buf.raw, offset, ty)
	cb.rec.index = &ty
	return nil
}

func (cb *CommandBuffer) checkViewportRange(op string, first uint32, n int) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	limit := uint64(max(cb.device().limits.MaxViewports, 1))
	if n == 0 || uint64(first)+uint64(n) > limit {
		return fmt.Errorf("%s: %w: %d from %d, max %d", op, ErrLimitExceeded, n, first, limit)
	}
	return nil
}

// SetViewports sets dynamic viewports starting at index first.
func (cb *CommandBuffer) SetViewports(first uint32, viewports []pso.Viewport) error {
	if err := cb.checkViewportRange("set viewports", first, len(viewports)); err != nil {
		return err
	}
	maxDims := cb.device().limits.MaxViewportDimensions
	for _, vp := range viewports {
		if vp.Rect.W <= 0 || vp.Rect.H <= 0 || vp.MinDepth < 0 || vp.MaxDepth > 1 || vp.MinDepth > vp.MaxDepth {
			return fmt.Errorf("set viewports: %w: %+v", ErrInvalidDesc, vp)
		}
		if (maxDims[0] > 0 && uint32(vp.Rect.W) > maxDims[0]) || (maxDims[1] > 0 && uint32(vp.Rect.H) > maxDims[1]) {
			return fmt.Errorf("set viewports: %w: %dx%d", ErrLimitExceeded, vp.Rect.W, vp.Rect.H)
		}
	}
	cb.raw.SetViewports(first, viewports)
	return nil
}

// SetScissors sets dynamic scissor rectangles starting at index first.
func (cb *CommandBuffer) SetScissors(first uint32, rects []pso.Rect) error {
	if err := cb.checkViewportRange("set scissors", first, len(rects)); err != nil {
		return err
	}
	for _, r := range rects {
		if r.X < 0 || r.Y < 0 || r.W < 0 || r.H < 0 {
			return fmt.Errorf("set scissors: %w: %+v", ErrInvalidDesc, r)
		}
	}
	cb.raw.SetScissors(first, rects)
	return nil
}

// SetBlendConstants sets the constant blend color.
func (cb *CommandBuffer) SetBlendConstants(c [4]float32) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("set blend constants: %w", err)
	}
	cb.raw.SetBlendConstants(c)
	return nil
}

// PushGraphicsConstants updates push constants of graphics stages.
func (cb *CommandBuffer) PushGraphicsConstants(layout *PipelineLayout, stages pso.ShaderStageFlags, offset uint32, data []uint32) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("push graphics constants: %w", err)
	}
	if err := cb.device().use(layout); err != nil {
		return fmt.Errorf("push graphics constants: %w", err)
	}
	if stages == 0 || stages&pso.StageCompute != 0 {
		return fmt.Errorf("push graphics constants: %w: stages %#x", ErrInvalidDesc, stages)
	}
	if err := layout.checkPush(stages, offset, len(data)); err != nil {
		return fmt.Errorf("push graphics constants: %w", err)
	}
	cb.raw.PushGraphicsConstants(layout.raw, stages, offset, data)
	return nil
}

// PushComputeConstants updates push constants of the compute stage.
func (cb *CommandBuffer) PushComputeConstants(layout *PipelineLayout, offset uint32, data []uint32) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("push compute constants: %w", err)
	}
	if err := cb.device().use(layout); err != nil {
		return fmt.Errorf("push compute constants: %w", err)
	}
	if err := layout.checkPush(pso.StageCompute, offset, len(data)); err != nil {
		return fmt.Errorf("push compute constants: %w", err)
	}
	cb.raw.PushComputeConstants(layout.raw, offset, data)
	return nil
}

// drawable checks the state every draw needs.
func (cb *CommandBuffer) drawable(op string) error {
	if err := cb.insidePass(op); err != nil {
		return err
	}
	p := cb.rec.graphics
	if p == nil {
		return fmt.Errorf("%s: %w", op, ErrNoPipeline)
	}
	if err := cb.device().use(p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !cb.rec.graphicsOK {
		if !p.CompatibleWith(cb.rec.pass, cb.rec.subpass) {
			return fmt.Errorf("%s: pipeline %q: %w", op, p.label, ErrIncompatiblePipeline)
		}
		cb.rec.graphicsOK = true
	}
	for _, vb := range p.vbufs {
		if vb.Binding >= 64 || cb.rec.vertex&(1<<vb.Binding) == 0 {
			return fmt.Errorf("%s: %w: vertex binding %d not bound", op, ErrInvalidDesc, vb.Binding)
		}
	}
	return nil
}

// Draw draws vertexCount vertices of instanceCount instances.
func (cb *CommandBuffer) Draw(vertexCount hal.VertexCount, instanceCount hal.InstanceCount, firstVertex hal.VertexCount, firstInstance hal.InstanceCount) error {
	if err := cb.drawable("draw"); err != nil {
		return err
	}
	if firstInstance != 0 && !cb.device().adapter.hints.Contains(hal.HintBaseVertexInstanceDrawing) {
		return fmt.Errorf("draw: %w: first instance %d", ErrMissingFeature, firstInstance)
	}
	cb.raw.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

// DrawIndexed draws indexCount indices from the bound index buffer.
func (cb *CommandBuffer) DrawIndexed(indexCount hal.IndexCount, instanceCount hal.InstanceCount, firstIndex hal.IndexCount, baseVertex hal.VertexOffset, firstInstance hal.InstanceCount) error {
	if err := cb.drawable("draw indexed"); err != nil {
		return err
	}
	if cb.rec.index == nil {
		return fmt.Errorf("draw indexed: %w", ErrNoIndexBuffer)
	}
	if (baseVertex != 0 || firstInstance != 0) && !cb.device().adapter.hints.Contains(hal.HintBaseVertexInstanceDrawing) {
		return fmt.Errorf("draw indexed: %w: base vertex or instance", ErrMissingFeature)
	}
	cb.raw.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	return nil
}

func (cb *CommandBuffer) checkIndirect(op string, buf *Buffer, offset uint64, drawCount hal.DrawCount, stride, minStride uint32) error {
	d := cb.device()
	if err := d.checkBuffer(buf, buffer.Indirect); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if offset%4 != 0 {
		return fmt.Errorf("%s: %w: offset %d not a multiple of 4", op, ErrInvalidDesc, offset)
	}
	if drawCount > 1 {
		if err := d.require(hal.FeatureMultiDrawIndirect, op); err != nil {
			return err
		}
		if stride < minStride || stride%4 != 0 {
			return fmt.Errorf("%s: %w: stride %d", op, ErrInvalidDesc, stride)
		}
	}
	if limit := d.limits.MaxDrawIndirectCount; limit > 0 && drawCount > limit {
		return fmt.Errorf("%s: %w: %d draws exceed %d", op, ErrLimitExceeded, drawCount, limit)
	}
	if drawCount == 0 {
		return nil
	}
	size := uint64(stride)*uint64(drawCount-1) + uint64(minStride)
	if err := checkRange(buf, buffer.SubRange{Offset: offset, Size: size}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// drawIndirectSize and drawIndexedIndirectSize are the sizes of the
// indirect argument records.
const (
	drawIndirectSize        = 16
	drawIndexedIndirectSize = 20
	dispatchIndirectSize    = 12
)

// DrawIndirect draws with arguments read from buf.
func (cb *CommandBuffer) DrawIndirect(buf *Buffer, offset uint64, drawCount hal.DrawCount, stride uint32) error {
	if err := cb.drawable("draw indirect"); err != nil {
		return err
	}
	if err := cb.checkIndirect("draw indirect", buf, offset, drawCount, stride, drawIndirectSize); err != nil {
		return err
	}
	cb.raw.DrawIndirect(buf.raw, offset, drawCount, stride)
	return nil
}

// DrawIndexedIndirect draws indexed with arguments read from buf.
func (cb *CommandBuffer) DrawIndexedIndirect(buf *Buffer, offset uint64, drawCount hal.DrawCount, stride uint32) error {
	if err := cb.drawable("draw indexed indirect"); err != nil {
		return err
	}
	if cb.rec.index == nil {
		return fmt.Errorf("draw indexed indirect: %w", ErrNoIndexBuffer)
	}
	if err := cb.checkIndirect("draw indexed indirect", buf, offset, drawCount, stride, drawIndexedIndirectSize); err != nil {
		return err
	}
	cb.raw.DrawIndexedIndirect(buf.raw, offset, drawCount, stride)
	return nil
}

// dispatchable checks the state every dispatch needs.
func (cb *CommandBuffer) dispatchable(op string) error {
	if err := cb.outsidePass(op); err != nil {
		return err
	}
	if cb.rec.compute == nil {
		return fmt.Errorf("%s: %w", op, ErrNoPipeline)
	}
	if err := cb.device().use(cb.rec.compute); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Dispatch runs the bound compute pipeline over count work groups.
func (cb *CommandBuffer) Dispatch(count hal.WorkGroupCount) error {
	if err := cb.dispatchable("dispatch"); err != nil {
		return err
	}
	limit := cb.device().limits.MaxComputeWorkGroupCount
	for i, n := range count {
		if limit[i] > 0 && n > limit[i] {
			return fmt.Errorf("dispatch: %w: %v work groups, max %v", ErrLimitExceeded, count, limit)
		}
	}
	cb.raw.Dispatch(count)
	return nil
}

// DispatchIndirect dispatches with the work group count read from buf.
func (cb *CommandBuffer) DispatchIndirect(buf *Buffer, offset uint64) error {
	if err := cb.dispatchable("dispatch indirect"); err != nil {
		return err
	}
	if err := cb.device().checkBuffer(buf, buffer.Indirect); err != nil {
		return fmt.Errorf("dispatch indirect: %w", err)
	}
	if offset%4 != 0 {
		return fmt.Errorf("dispatch indirect: %w: offset %d not a multiple of 4", ErrInvalidDesc, offset)
	}
	if err := checkRange(buf, buffer.SubRange{Offset: offset, Size: dispatchIndirectSize}); err != nil {
		return fmt.Errorf("dispatch indirect: %w", err)
	}
	cb.raw.DispatchIndirect(buf.raw, offset)
	return nil
}

// ResetQueryPool resets queries r of p to unavailable.
func (cb *CommandBuffer) ResetQueryPool(p *QueryPool, r query.Range) error {
	if err := cb.outsidePass("reset query pool"); err != nil {
		return err
	}
	if err := cb.device().checkQueries(p, r); err != nil {
		return fmt.Errorf("reset query pool: %w", err)
	}
	cb.raw.ResetQueryPool(p.raw, r)
	return nil
}

// BeginQuery begins an occlusion or pipeline statistics query.
func (cb *CommandBuffer) BeginQuery(p *QueryPool, id query.ID, flags query.ControlFlags) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("begin query: %w", err)
	}
	d := cb.device()
	if err := d.checkQueries(p, query.Range{Start: id, Count: 1}); err != nil {
		return fmt.Errorf("begin query: %w", err)
	}
	if p.desc.Type == query.Timestamp {
		return fmt.Errorf("begin query: %w: timestamp pools are written, not begun", ErrInvalidUsage)
	}
	if flags&query.Precise != 0 {
		if p.desc.Type != query.Occlusion {
			return fmt.Errorf("begin query: %w: precise flag on %v pool", ErrInvalidDesc, p.desc.Type)
		}
		if err := d.require(hal.FeatureOcclusionQueryPrecise, "begin query"); err != nil {
			return err
		}
	}
	key := queryKey{pool: p, id: uint32(id)}
	if _, ok := cb.rec.queries[key]; ok {
		return fmt.Errorf("begin query: %w: %d", ErrQueryActive, id)
	}
	for k := range cb.rec.queries {
		if k.pool.desc.Type == p.desc.Type {
			return fmt.Errorf("begin query: %w: another %v query is active", ErrQueryActive, p.desc.Type)
		}
	}
	cb.raw.BeginQuery(p.raw, id, flags)
	if cb.rec.queries == nil {
		cb.rec.queries = make(map[queryKey]struct{})
	}
	cb.rec.queries[key] = struct{}{}
	return nil
}

// EndQuery ends an active query.
func (cb *CommandBuffer) EndQuery(p *QueryPool, id query.ID) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("end query: %w", err)
	}
	key := queryKey{pool: p, id: uint32(id)}
	if _, ok := cb.rec.queries[key]; !ok {
		return fmt.Errorf("end query: %w: %d", ErrQueryNotActive, id)
	}
	cb.raw.EndQuery(p.raw, id)
	delete(cb.rec.queries, key)
	return nil
}

// WriteTimestamp writes a timestamp to query id of p once every prior
// command reaches stage.
func (cb *CommandBuffer) WriteTimestamp(stage pso.PipelineStage, p *QueryPool, id query.ID) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("write timestamp: %w", err)
	}
	if err := cb.device().checkQueries(p, query.Range{Start: id, Count: 1}); err != nil {
		return fmt.Errorf("write timestamp: %w", err)
	}
	if p.desc.Type != query.Timestamp {
		return fmt.Errorf("write timestamp: %w: %v pool", ErrInvalidUsage, p.desc.Type)
	}
	cb.raw.WriteTimestamp(stage, p.raw, id)
	return nil
}

// CopyQueryPoolResults copies results of r into dst at offset.
func (cb *CommandBuffer) CopyQueryPoolResults(p *QueryPool, r query.Range, dst *Buffer, offset, stride uint64, flags query.ResultFlags) error {
	if err := cb.outsidePass("copy query pool results"); err != nil {
		return err
	}
	d := cb.device()
	if err := d.checkQueries(p, r); err != nil {
		return fmt.Errorf("copy query pool results: %w", err)
	}
	if err := d.checkBuffer(dst, buffer.TransferDst); err != nil {
		return fmt.Errorf("copy query pool results: %w", err)
	}
	align := uint64(flags.ValueSize())
	minStride := uint64(flags.Stride(p.desc))
	if offset%align != 0 || stride%align != 0 || stride < minStride {
		return fmt.Errorf("copy query pool results: %w: offset %d stride %d", ErrInvalidDesc, offset, stride)
	}
	if r.Count > 0 {
		size := stride*uint64(r.Count-1) + minStride
		if err := checkRange(dst, buffer.SubRange{Offset: offset, Size: size}); err != nil {
			return fmt.Errorf("copy query pool results: %w", err)
		}
	}
	cb.raw.CopyQueryPoolResults(p.raw, r, dst.raw, offset, stride, flags)
	return nil
}

// ExecuteCommands runs secondary command buffers. Inside a render pass the
// subpass must have been begun with command.SecondaryBuffers and the
// secondaries must continue a compatible pass.
func (cb *CommandBuffer) ExecuteCommands(bufs ...*CommandBuffer) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("execute commands: %w", err)
	}
	if cb.level != command.Primary {
		return fmt.Errorf("execute commands: %w: secondary buffer", ErrInvalidLevel)
	}
	inPass := cb.rec.pass != nil
	if inPass && cb.rec.contents != command.SecondaryBuffers {
		return fmt.Errorf("execute commands: %w: subpass contents are inline", ErrInvalidLevel)
	}
	raws := make([]hal.CommandBuffer, len(bufs))
	seen := make(map[*CommandBuffer]bool, len(cb.rec.secondaries)+len(bufs))
	for _, sb := range cb.rec.secondaries {
		seen[sb] = true
	}
	for i, sb := range bufs {
		if sb == nil || sb.pool.device != cb.pool.device {
			return fmt.Errorf("execute commands: %w", ErrForeignResource)
		}
		if sb.level != command.Secondary {
			return fmt.Errorf("execute commands: %w: primary buffer", ErrInvalidLevel)
		}
		if err := sb.submittable(); err != nil {
			return fmt.Errorf("execute commands: %w", err)
		}
		if err := claimOnce(seen, sb); err != nil {
			return fmt.Errorf("execute commands: secondary %d executed twice: %w", i, err)
		}
		if inPass != sb.rec.continues {
			return fmt.Errorf("execute commands: %w: render pass continuation mismatch", ErrInvalidDesc)
		}
		if inPass && (sb.rec.subpass != cb.rec.subpass || !passesCompatible(sb.rec.pass.desc, cb.rec.pass.desc)) {
			return fmt.Errorf("execute commands: %w: secondary continues another subpass", ErrInvalidDesc)
		}
		raws[i] = sb.raw
	}
	cb.raw.ExecuteCommands(raws)
	cb.rec.secondaries = append(cb.rec.secondaries, bufs...)
	return nil
}
