// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	wgpuhal "github.com/gogpu/wgpu/hal"
	"github.com/loov/hrtime"

	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/query"
	"github.com/gogpu/gfx/recording"
)

// execState encodes the commands of one submission into native command
// encoders. Commands that the WebGPU queue performs itself (buffer writes,
// timestamps) split the encoding: pending native work is submitted and
// waited for first, so every command observes the ones before it.
type execState struct {
	d   *device
	enc wgpuhal.CommandEncoder
	err error

	pipeline *computePipeline
	sets     []*descriptorSet

	// touched lists buffers in first use order; host visible ones were
	// uploaded on first use and are read back at the end.
	touched []*buf
	seen    map[*buf]bool
}

// execute runs the command buffers of one submission and blocks until the
// native device has finished them. An error loses the device.
func (d *device) execute(cbs []*commandBuffer) error {
	d.execMu.Lock()
	defer d.execMu.Unlock()
	defer d.destroyRetired()
	st := &execState{d: d, seen: make(map[*buf]bool)}
	for _, cb := range cbs {
		st.run(cb.Commands())
	}
	st.flush()
	st.readback()
	return st.err
}

func (st *execState) run(cmds []recording.Command) {
	for _, cmd := range cmds {
		if st.err != nil {
			return
		}
		switch c := cmd.(type) {
		case recording.FillBufferCommand:
			b := c.Buffer.(*buf)
			start, end, ok := c.Range.Resolve(b.desc.Size)
			if !ok {
				continue
			}
			data := make([]byte, alignUp(end-start, copyAlignment))
			for o := 0; o+4 <= len(data); o += 4 {
				binary.LittleEndian.PutUint32(data[o:], c.Data)
			}
			st.write(b, start, data)
		case recording.UpdateBufferCommand:
			st.write(c.Buffer.(*buf), c.Offset, c.Data)
		case recording.CopyBufferCommand:
			src, dst := c.Src.(*buf), c.Dst.(*buf)
			st.touch(src)
			st.touch(dst)
			regions := make([]wgpuhal.BufferCopy, len(c.Regions))
			for i, r := range c.Regions {
				regions[i] = wgpuhal.BufferCopy{SrcOffset: r.Src, DstOffset: r.Dst, Size: r.Size}
			}
			if enc := st.encoder(); enc != nil {
				enc.CopyBufferToBuffer(src.raw, dst.raw, regions)
			}
		case recording.BindComputePipelineCommand:
			st.pipeline = c.Pipeline.(*computePipeline)
		case recording.BindDescriptorSetsCommand:
			if !c.Compute {
				continue
			}
			for len(st.sets) < c.First+len(c.Sets) {
				st.sets = append(st.sets, nil)
			}
			for i, s := range c.Sets {
				st.sets[c.First+i] = s.(*descriptorSet)
			}
		case recording.DispatchCommand:
			st.dispatch(c.Count[0], c.Count[1], c.Count[2])
		case recording.DispatchIndirectCommand:
			args := st.fetch(c.Buffer.(*buf), c.Offset, 12)
			if args != nil {
				st.dispatch(binary.LittleEndian.Uint32(args),
					binary.LittleEndian.Uint32(args[4:]),
					binary.LittleEndian.Uint32(args[8:]))
			}
		case recording.ResetQueryPoolCommand:
			c.Pool.(*queryPool).reset(c.Range)
		case recording.WriteTimestampCommand:
			st.flush()
			c.Pool.(*queryPool).write(c.ID, uint64(hrtime.Now()))
		case recording.CopyQueryPoolResultsCommand:
			vals, avail := c.Pool.(*queryPool).snapshot(c.Range)
			data := make([]byte, alignUp(uint64(c.Range.Count)*c.Stride, copyAlignment))
			query.EncodeResults(data, c.Stride, vals, avail, c.Flags)
			st.write(c.Dst.(*buf), c.Offset, data)
		case recording.ExecuteCommandsCommand:
			for _, sec := range c.Buffers {
				st.run(sec.(*commandBuffer).Commands())
			}
		}
	}
}

func (st *execState) fail(err error) {
	if st.err == nil {
		st.err = err
	}
}

// encoder returns the open native encoder, beginning one if needed.
func (st *execState) encoder() wgpuhal.CommandEncoder {
	if st.enc != nil || st.err != nil {
		return st.enc
	}
	enc, err := st.d.raw.CreateCommandEncoder(&wgpuhal.CommandEncoderDescriptor{Label: "gfx"})
	if err != nil {
		st.fail(fmt.Errorf("wgpu: create command encoder: %w", err))
		return nil
	}
	if err := enc.BeginEncoding("gfx"); err != nil {
		st.fail(fmt.Errorf("wgpu: begin encoding: %w", err))
		return nil
	}
	st.enc = enc
	return enc
}

// flush submits the open encoder and waits for it.
func (st *execState) flush() {
	if st.enc == nil {
		return
	}
	enc := st.enc
	st.enc = nil
	if st.err != nil {
		enc.DiscardEncoding()
		return
	}
	cmd, err := enc.EndEncoding()
	if err != nil {
		st.fail(fmt.Errorf("wgpu: end encoding: %w", err))
		return
	}
	defer st.d.raw.FreeCommandBuffer(cmd)
	if err := st.d.submitNative(cmd); err != nil {
		st.fail(err)
	}
}

// touch uploads the shadow of a host visible buffer the first time the
// submission uses it. Queue writes land before any later submission, and
// no pending command has used b yet, so the upload is ordered correctly.
func (st *execState) touch(b *buf) {
	if st.seen[b] {
		return
	}
	st.seen[b] = true
	st.touched = append(st.touched, b)
	if b.mem.hostVisible() {
		st.d.rawQueue.WriteBuffer(b.raw, 0, b.shadow())
	}
}

// write performs a queue write after all pending native work.
func (st *execState) write(b *buf, offset uint64, data []byte) {
	st.touch(b)
	st.flush()
	if st.err == nil {
		st.d.rawQueue.WriteBuffer(b.raw, offset, data)
	}
}

func (st *execState) dispatch(x, y, z uint32) {
	p := st.pipeline
	if p == nil {
		return
	}
	enc := st.encoder()
	if enc == nil {
		return
	}
	groups := make([]wgpuhal.BindGroup, 0, len(p.layout.sets))
	for i, layout := range p.layout.sets {
		if i >= len(st.sets) || st.sets[i] == nil {
			st.fail(fmt.Errorf("wgpu: pipeline %q: set %d not bound", p.label, i))
			return
		}
		g, err := st.bindGroup(layout, st.sets[i])
		if err != nil {
			st.fail(err)
			return
		}
		groups = append(groups, g)
	}

	cp := enc.BeginComputePass(&wgpuhal.ComputePassDescriptor{Label: p.label})
	cp.SetPipeline(p.raw)
	for i, g := range groups {
		cp.SetBindGroup(uint32(i), g, nil)
	}
	cp.Dispatch(x, y, z)
	cp.End()
}

// bindGroup returns a bind group for the current descriptors of set,
// reusing the cached one while set is unchanged. Every buffer it binds is
// touched either way.
func (st *execState) bindGroup(layout *descriptorSetLayout, set *descriptorSet) (wgpuhal.BindGroup, error) {
	key := groupKey{set: set, layout: layout, gen: set.generation()}
	entries := make([]gputypes.BindGroupEntry, 0, len(layout.bindings))
	for _, lb := range layout.bindings {
		desc, ok := set.descriptor(lb.Binding)
		if !ok || desc.Buffer == nil {
			return nil, fmt.Errorf("wgpu: binding %d is not written", lb.Binding)
		}
		b := desc.Buffer.(*buf)
		start, end, ok := desc.Range.Resolve(b.desc.Size)
		if !ok {
			return nil, fmt.Errorf("wgpu: binding %d range outside buffer", lb.Binding)
		}
		st.touch(b)
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: lb.Binding,
			Resource: gputypes.BufferBinding{
				Buffer: b.raw.NativeHandle(),
				Offset: start,
				Size:   end - start,
			},
		})
	}
	return st.d.groups.GetOrCreate(key, func() (wgpuhal.BindGroup, error) {
		g, err := st.d.raw.CreateBindGroup(&wgpuhal.BindGroupDescriptor{
			Label:   "gfx",
			Layout:  layout.raw,
			Entries: entries,
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: create bind group: %w", err)
		}
		return g, nil
	})
}

// fetch reads size bytes of b after all pending native work.
func (st *execState) fetch(b *buf, offset, size uint64) []byte {
	st.touch(b)
	st.flush()
	if st.err != nil {
		return nil
	}
	out, err := st.copyOut([]*buf{b}, []uint64{offset}, []uint64{size})
	if err != nil {
		st.fail(err)
		return nil
	}
	return out[0]
}

// readback copies every host visible buffer the submission touched back
// into its shadow.
func (st *execState) readback() {
	if st.err != nil {
		return
	}
	var bufs []*buf
	var offsets, sizes []uint64
	for _, b := range st.touched {
		if b.mem.hostVisible() {
			bufs = append(bufs, b)
			offsets = append(offsets, 0)
			sizes = append(sizes, b.size)
		}
	}
	if len(bufs) == 0 {
		return
	}
	data, err := st.copyOut(bufs, offsets, sizes)
	if err != nil {
		st.fail(err)
		return
	}
	for i, b := range bufs {
		copy(b.shadow(), data[i])
	}
}

// copyOut copies ranges of native buffers into staging buffers, waits,
// and reads the staging buffers back.
func (st *execState) copyOut(bufs []*buf, offsets, sizes []uint64) ([][]byte, error) {
	d := st.d
	staging := make([]wgpuhal.Buffer, 0, len(bufs))
	defer func() {
		for _, s := range staging {
			d.raw.DestroyBuffer(s)
		}
	}()
	enc := st.encoder()
	if enc == nil {
		return nil, st.err
	}
	for i, b := range bufs {
		s, err := d.raw.CreateBuffer(&wgpuhal.BufferDescriptor{
			Label: "gfx-readback",
			Size:  sizes[i],
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			st.flush()
			return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
		}
		staging = append(staging, s)
		enc.CopyBufferToBuffer(b.raw, s, []wgpuhal.BufferCopy{{SrcOffset: offsets[i], DstOffset: 0, Size: sizes[i]}})
	}
	st.flush()
	if st.err != nil {
		return nil, st.err
	}
	out := make([][]byte, len(bufs))
	for i, s := range staging {
		out[i] = make([]byte, sizes[i])
		if err := d.rawQueue.ReadBuffer(s, 0, out[i]); err != nil {
			return nil, fmt.Errorf("wgpu: read back: %w", err)
		}
	}
	return out, nil
}

var _ hal.CommandBuffer = (*commandBuffer)(nil)
