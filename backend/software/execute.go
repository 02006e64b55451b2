// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"encoding/binary"

	"github.com/loov/hrtime"

	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/internal/color"
	"github.com/gogpu/gfx/pass"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
	"github.com/gogpu/gfx/recording"
)

// pushWords is the number of push constant words, MaxPushConstantsSize / 4.
const pushWords = 64

// execState is the state of one primary command buffer while it runs.
type execState struct {
	d *device

	pass    *renderPass
	fb      *framebuffer
	subpass int
	area    pso.Rect

	graphics     *graphicsPipeline
	compute      *computePipeline
	graphicsSets []boundSet
	computeSets  []boundSet
	graphicsPush [pushWords]uint32
	computePush  [pushWords]uint32

	vertex      map[uint32]hal.VertexBufferBinding
	index       *buf
	indexOffset uint64
	indexType   hal.IndexType

	viewports []pso.Viewport
	scissors  []pso.Rect
	blend     [4]float32

	active []*activeQuery
}

type activeQuery struct {
	pool   *queryPool
	id     query.ID
	values []uint64
}

func (d *device) execute(cb *commandBuffer) {
	st := &execState{d: d, vertex: make(map[uint32]hal.VertexBufferBinding)}
	st.run(cb.Commands())
}

func (st *execState) run(cmds []recording.Command) {
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case recording.PipelineBarrierCommand:
			// Commands run in order on one goroutine.
		case recording.FillBufferCommand:
			fillBuffer(c)
		case recording.UpdateBufferCommand:
			copy(c.Buffer.(*buf).bytes()[c.Offset:], c.Data)
		case recording.CopyBufferCommand:
			src, dst := c.Src.(*buf).bytes(), c.Dst.(*buf).bytes()
			for _, r := range c.Regions {
				copy(dst[r.Dst:r.Dst+r.Size], src[r.Src:r.Src+r.Size])
			}
		case recording.CopyImageCommand:
			copyImage(c.Src.(*texelImage), c.Dst.(*texelImage), c.Regions)
		case recording.CopyBufferToImageCommand:
			copyBufferImage(c.Src.(*buf), c.Dst.(*texelImage), c.Regions, true)
		case recording.CopyImageToBufferCommand:
			copyBufferImage(c.Dst.(*buf), c.Src.(*texelImage), c.Regions, false)
		case recording.ClearColorImageCommand:
			img := c.Image.(*texelImage)
			clearRange(img, c.Range, color.EncodeColor(img.desc.Format, c.Value))
		case recording.ClearDepthStencilImageCommand:
			img := c.Image.(*texelImage)
			aspects := c.Range.Aspects
			if aspects == 0 {
				aspects = img.desc.Format.Aspects()
			}
			clearDepthRange(img, c.Range, aspects, c.Value)

		case recording.BeginRenderPassCommand:
			st.beginPass(c)
		case recording.NextSubpassCommand:
			st.resolve()
			st.subpass++
		case recording.EndRenderPassCommand:
			st.resolve()
			st.pass, st.fb = nil, nil

		case recording.BindGraphicsPipelineCommand:
			st.graphics = c.Pipeline.(*graphicsPipeline)
		case recording.BindComputePipelineCommand:
			st.compute = c.Pipeline.(*computePipeline)
		case recording.BindDescriptorSetsCommand:
			if c.Compute {
				st.computeSets = bindSets(st.computeSets, c)
			} else {
				st.graphicsSets = bindSets(st.graphicsSets, c)
			}
		case recording.BindVertexBuffersCommand:
			for i, b := range c.Bindings {
				st.vertex[c.First+uint32(i)] = b
			}
		case recording.BindIndexBufferCommand:
			st.index, st.indexOffset, st.indexType = c.Buffer.(*buf), c.Offset, c.IndexType
		case recording.SetViewportsCommand:
			st.viewports = place(st.viewports, c.First, c.Viewports)
		case recording.SetScissorsCommand:
			st.scissors = place(st.scissors, c.First, c.Rects)
		case recording.SetBlendConstantsCommand:
			st.blend = c.Color
		case recording.PushConstantsCommand:
			push := st.graphicsPush[:]
			if c.Compute {
				push = st.computePush[:]
			}
			copy(push[c.Offset/4:], c.Data)

		case recording.DrawCommand:
			st.draw(c.VertexCount, c.InstanceCount, c.FirstVertex, 0, c.FirstInstance, nil)
		case recording.DrawIndexedCommand:
			st.draw(c.IndexCount, c.InstanceCount, 0, c.BaseVertex, c.FirstInstance, st.indices(c.FirstIndex, c.IndexCount))
		case recording.DrawIndirectCommand:
			st.drawIndirect(c)
		case recording.DispatchCommand:
			st.dispatch(c.Count)
		case recording.DispatchIndirectCommand:
			data := c.Buffer.(*buf).bytes()[c.Offset:]
			st.dispatch(hal.WorkGroupCount{
				binary.LittleEndian.Uint32(data),
				binary.LittleEndian.Uint32(data[4:]),
				binary.LittleEndian.Uint32(data[8:]),
			})

		case recording.ResetQueryPoolCommand:
			c.Pool.(*queryPool).reset(c.Range)
		case recording.BeginQueryCommand:
			p := c.Pool.(*queryPool)
			st.active = append(st.active, &activeQuery{pool: p, id: c.ID, values: make([]uint64, p.desc.ValuesPerQuery())})
		case recording.EndQueryCommand:
			st.endQuery(c.Pool.(*queryPool), c.ID)
		case recording.WriteTimestampCommand:
			c.Pool.(*queryPool).write(c.ID, []uint64{uint64(hrtime.Now())})
		case recording.CopyQueryPoolResultsCommand:
			vals, avail := c.Pool.(*queryPool).snapshot(c.Range)
			query.EncodeResults(c.Dst.(*buf).bytes()[c.Offset:], c.Stride, vals, avail, c.Flags)

		case recording.ExecuteCommandsCommand:
			for _, sec := range c.Buffers {
				st.run(sec.(*commandBuffer).Commands())
			}
		}
	}
}

func place[T any](dst []T, first uint32, src []T) []T {
	if need := int(first) + len(src); len(dst) < need {
		dst = append(dst, make([]T, need-len(dst))...)
	}
	copy(dst[first:], src)
	return dst
}

func bindSets(bound []boundSet, c recording.BindDescriptorSetsCommand) []boundSet {
	if need := c.First + len(c.Sets); len(bound) < need {
		bound = append(bound, make([]boundSet, need-len(bound))...)
	}
	offsets := c.DynamicOffsets
	for i, s := range c.Sets {
		bound[c.First+i], offsets = bindSet(s.(*descriptorSet), offsets)
	}
	return bound
}

// ---- Transfer ----

func fillBuffer(c recording.FillBufferCommand) {
	data := c.Buffer.(*buf).bytes()
	start, end, ok := c.Range.Resolve(uint64(len(data)))
	if !ok {
		return
	}
	end -= (end - start) % 4
	for o := start; o < end; o += 4 {
		binary.LittleEndian.PutUint32(data[o:], c.Data)
	}
}

// texelOffset returns the byte offset of texel (x, y, z) inside one layer
// of level.
func (img *texelImage) texelOffset(level uint8, x, y, z uint32) uint64 {
	e := img.levels[level].extent
	return ((uint64(z)*uint64(e.Height)+uint64(y))*uint64(e.Width) + uint64(x)) * img.texel
}

func layerCount(l image.SubresourceLayers) uint16 {
	return max(l.LayerCount, 1)
}

func copyImage(src, dst *texelImage, regions []command.ImageCopy) {
	for _, r := range regions {
		row := uint64(r.Extent.Width) * src.texel
		for l := range layerCount(r.SrcSubresource) {
			s := src.subresource(r.SrcSubresource.Level, r.SrcSubresource.LayerStart+l)
			d := dst.subresource(r.DstSubresource.Level, r.DstSubresource.LayerStart+l)
			for z := range r.Extent.Depth {
				for y := range r.Extent.Height {
					so := src.texelOffset(r.SrcSubresource.Level, uint32(r.SrcOffset.X), uint32(r.SrcOffset.Y)+y, uint32(r.SrcOffset.Z)+z)
					do := dst.texelOffset(r.DstSubresource.Level, uint32(r.DstOffset.X), uint32(r.DstOffset.Y)+y, uint32(r.DstOffset.Z)+z)
					copy(d[do:do+row], s[so:so+row])
				}
			}
		}
	}
}

// copyBufferImage copies between b and img; toImage selects the direction.
func copyBufferImage(b *buf, img *texelImage, regions []command.BufferImageCopy, toImage bool) {
	data := b.bytes()
	for _, r := range regions {
		pitch := uint64(r.RowLength()) * img.texel
		slice := pitch * uint64(r.ImageHeight())
		row := uint64(r.ImageExtent.Width) * img.texel
		level := r.ImageLayers.Level
		for l := range layerCount(r.ImageLayers) {
			sub := img.subresource(level, r.ImageLayers.LayerStart+l)
			for z := range r.ImageExtent.Depth {
				for y := range r.ImageExtent.Height {
					bo := r.BufferOffset + (uint64(l)*uint64(r.ImageExtent.Depth)+uint64(z))*slice + uint64(y)*pitch
					io := img.texelOffset(level, uint32(r.ImageOffset.X), uint32(r.ImageOffset.Y)+y, uint32(r.ImageOffset.Z)+z)
					if toImage {
						copy(sub[io:io+row], data[bo:bo+row])
					} else {
						copy(data[bo:bo+row], sub[io:io+row])
					}
				}
			}
		}
	}
}

// subresources calls fn for every level and layer selected by r.
func subresources(img *texelImage, r image.SubresourceRange, fn func(level uint8, layer uint16)) {
	levels, layers, ok := r.Resolve(img.desc.NumLevels(), img.desc.Kind.NumLayers())
	if !ok {
		return
	}
	for lv := range levels {
		for ly := range layers {
			fn(r.LevelStart+lv, r.LayerStart+ly)
		}
	}
}

func clearRange(img *texelImage, r image.SubresourceRange, texel []byte) {
	if len(texel) == 0 {
		return
	}
	subresources(img, r, func(level uint8, layer uint16) {
		fillTexels(img.subresource(level, layer), texel)
	})
}

func clearDepthRange(img *texelImage, r image.SubresourceRange, aspects format.Aspects, v command.ClearDepthStencil) {
	subresources(img, r, func(level uint8, layer uint16) {
		sub := img.subresource(level, layer)
		for o := uint64(0); o+img.texel <= uint64(len(sub)); o += img.texel {
			color.WriteDepthStencil(sub[o:o+img.texel], img.desc.Format, aspects, v)
		}
	})
}

// fillTexels repeats texel over dst, doubling the copied span each step.
func fillTexels(dst, texel []byte) {
	if len(dst) == 0 {
		return
	}
	n := copy(dst, texel)
	for n < len(dst) {
		n += copy(dst[n:], dst[:n])
	}
}

// ---- Render passes ----

func (st *execState) beginPass(c recording.BeginRenderPassCommand) {
	st.pass = c.RenderPass.(*renderPass)
	st.fb = c.Framebuffer.(*framebuffer)
	st.subpass = 0
	st.area = c.Area
	for i, a := range st.pass.desc.Attachments {
		if i >= len(st.fb.views) || i >= len(c.Clears) {
			break
		}
		var aspects format.Aspects
		if a.Ops.Load == pass.LoadOpClear {
			aspects |= (format.AspectColor | format.AspectDepth) & a.Format.Aspects()
		}
		if a.StencilOps.Load == pass.LoadOpClear {
			aspects |= format.AspectStencil & a.Format.Aspects()
		}
		if aspects == 0 {
			continue
		}
		st.clearAttachment(st.fb.views[i], aspects, c.Clears[i])
	}
}

// clearAttachment clears the render area of every layer of v.
func (st *execState) clearAttachment(v *imageView, aspects format.Aspects, value command.ClearValue) {
	img := v.img
	f := img.desc.Format
	var texel []byte
	if f.IsColor() {
		texel = color.EncodeColor(f, value.Color)
	}
	r := v.desc.Range
	r.LevelCount = 1
	subresources(img, r, func(level uint8, layer uint16) {
		sub := img.subresource(level, layer)
		e := img.levels[level].extent
		x0, y0 := clampCoord(st.area.X, e.Width), clampCoord(st.area.Y, e.Height)
		x1, y1 := clampCoord(st.area.X+st.area.W, e.Width), clampCoord(st.area.Y+st.area.H, e.Height)
		for y := y0; y < y1; y++ {
			start, end := img.texelOffset(level, x0, y, 0), img.texelOffset(level, x1, y, 0)
			if texel != nil {
				fillTexels(sub[start:end], texel)
				continue
			}
			for o := start; o < end; o += img.texel {
				color.WriteDepthStencil(sub[o:o+img.texel], f, aspects, value.DepthStencil)
			}
		}
	})
}

func clampCoord(v int32, size uint32) uint32 {
	if v < 0 {
		return 0
	}
	return min(uint32(v), size)
}

// resolve copies each color attachment of the current subpass into its
// resolve attachment.
func (st *execState) resolve() {
	if st.pass == nil || st.subpass >= len(st.pass.desc.Subpasses) {
		return
	}
	sp := st.pass.desc.Subpasses[st.subpass]
	for i, res := range sp.Resolves {
		if i >= len(sp.Colors) {
			break
		}
		src, dst := st.view(sp.Colors[i].Attachment), st.view(res.Attachment)
		if src == nil || dst == nil {
			continue
		}
		copy(dst.img.subresource(dst.desc.Range.LevelStart, dst.desc.Range.LayerStart),
			src.img.subresource(src.desc.Range.LevelStart, src.desc.Range.LayerStart))
	}
}

func (st *execState) view(id pass.AttachmentID) *imageView {
	if st.fb == nil || id < 0 || int(id) >= len(st.fb.views) {
		return nil
	}
	return st.fb.views[id]
}

func (st *execState) target(id pass.AttachmentID) *Target {
	v := st.view(id)
	if v == nil {
		return nil
	}
	level := v.desc.Range.LevelStart
	return &Target{
		Format: v.img.desc.Format,
		Extent: v.img.levels[level].extent,
		Pixels: v.img.subresource(level, v.desc.Range.LayerStart),
	}
}

// ---- Draws and dispatches ----

func (st *execState) indices(first, count uint32) []uint32 {
	if st.index == nil {
		return nil
	}
	data := st.index.bytes()
	size := st.indexType.Size()
	out := make([]uint32, 0, count)
	for i := range uint64(count) {
		o := st.indexOffset + (uint64(first)+i)*size
		if o+size > uint64(len(data)) {
			break
		}
		if size == 4 {
			out = append(out, binary.LittleEndian.Uint32(data[o:]))
		} else {
			out = append(out, uint32(binary.LittleEndian.Uint16(data[o:])))
		}
	}
	return out
}

func (st *execState) draw(count, instances, firstVertex uint32, baseVertex int32, firstInstance uint32, indices []uint32) {
	if st.graphics == nil || count == 0 || instances == 0 {
		return
	}
	call := &DrawCall{
		Pipeline:      &st.graphics.desc,
		Subpass:       st.subpass,
		Area:          st.area,
		Viewports:     st.viewports,
		Scissors:      st.scissors,
		Blend:         st.blend,
		VertexBuffers: make(map[uint32][]byte, len(st.vertex)),
		Indices:       indices,
		FirstVertex:   firstVertex,
		VertexCount:   count,
		BaseVertex:    baseVertex,
		FirstInstance: firstInstance,
		InstanceCount: instances,
		PushConstants: st.graphicsPush[:],
		Samples:       uint64(count) * uint64(instances),
	}
	for slot, b := range st.vertex {
		if data := b.Buffer.(*buf).bytes(); b.Offset <= uint64(len(data)) {
			call.VertexBuffers[slot] = data[b.Offset:]
		}
	}
	if st.pass != nil && st.subpass < len(st.pass.desc.Subpasses) {
		sp := st.pass.desc.Subpasses[st.subpass]
		for _, ref := range sp.Colors {
			if t := st.target(ref.Attachment); t != nil {
				call.Colors = append(call.Colors, *t)
			}
		}
		if sp.DepthStencil != nil {
			call.DepthStencil = st.target(sp.DepthStencil.Attachment)
		}
	}
	if st.d.drawHook != nil {
		st.d.drawHook(call)
	}
	st.countDraw(call)
}

func (st *execState) countDraw(call *DrawCall) {
	shaders := call.Pipeline.Shaders
	vertices := uint64(call.VertexCount) * uint64(call.InstanceCount)
	prims := primitives(call.Pipeline.InputAssembler.Primitive, uint64(call.VertexCount)) * uint64(call.InstanceCount)
	for _, q := range st.active {
		switch q.pool.desc.Type {
		case query.Occlusion:
			q.values[0] += call.Samples
		case query.PipelineStatistics:
			q.add(query.InputAssemblyVertices, vertices)
			q.add(query.InputAssemblyPrimitives, prims)
			q.add(query.VertexShaderInvocations, vertices)
			q.add(query.ClippingInvocations, prims)
			q.add(query.ClippingPrimitives, prims)
			if shaders.Geometry != nil {
				q.add(query.GeometryShaderInvocations, prims)
				q.add(query.GeometryShaderPrimitives, prims)
			}
			if shaders.Hull != nil {
				q.add(query.HullShaderPatches, prims)
			}
			if shaders.Domain != nil {
				q.add(query.DomainShaderInvocations, vertices)
			}
			if shaders.Fragment != nil {
				q.add(query.FragmentShaderInvocations, call.Samples)
			}
		}
	}
}

func (q *activeQuery) add(c query.PipelineStatistic, n uint64) {
	if i := q.pool.desc.Statistics.Index(c); i >= 0 {
		q.values[i] += n
	}
}

func (st *execState) drawIndirect(c recording.DrawIndirectCommand) {
	data := c.Buffer.(*buf).bytes()
	u32 := func(o uint64) uint32 { return binary.LittleEndian.Uint32(data[o:]) }
	for i := range uint64(c.DrawCount) {
		o := c.Offset + i*uint64(c.Stride)
		if c.Indexed {
			count, first := u32(o), u32(o+8)
			//nolint:gosec // G115: vertex offsets are signed in the record
			st.draw(count, u32(o+4), 0, int32(u32(o+12)), u32(o+16), st.indices(first, count))
		} else {
			st.draw(u32(o), u32(o+4), u32(o+8), 0, u32(o+12), nil)
		}
	}
}

func (st *execState) dispatch(count hal.WorkGroupCount) {
	p := st.compute
	if p == nil {
		return
	}
	env := &dispatchEnv{sets: st.computeSets, push: st.computePush[:], spec: p.spec}
	st.d.runDispatch(p.kernel, count, env)
	for _, q := range st.active {
		if q.pool.desc.Type == query.PipelineStatistics {
			q.add(query.ComputeShaderInvocations, count.Total())
		}
	}
}

// ---- Queries ----

func (st *execState) endQuery(p *queryPool, id query.ID) {
	for i, q := range st.active {
		if q.pool == p && q.id == id {
			p.write(id, q.values)
			st.active = append(st.active[:i], st.active[i+1:]...)
			return
		}
	}
}
