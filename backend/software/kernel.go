// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"encoding/binary"

	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/pso"
)

// Kernel is a compute shader written in Go. A dispatch calls it once per
// work group, concurrently for different groups. Groups of one dispatch
// must write disjoint bytes.
//
// Pass a Kernel as pso.ShaderSource.Native to create a shader module.
type Kernel func(g *WorkGroup)

// Program is a shader module holding several kernels keyed by entry point
// name.
type Program map[string]Kernel

// WorkGroup is the view a Kernel has of one work group.
type WorkGroup struct {
	id    [3]uint32
	count hal.WorkGroupCount
	env   *dispatchEnv
}

// dispatchEnv is the state shared by every group of one dispatch.
type dispatchEnv struct {
	sets []boundSet
	push []uint32
	spec pso.Specialization
}

// ID returns the coordinates of the group in the dispatch.
func (g *WorkGroup) ID() [3]uint32 { return g.id }

// Count returns the number of groups of the dispatch.
func (g *WorkGroup) Count() hal.WorkGroupCount { return g.count }

// Index returns the linear index of the group, x varying fastest.
func (g *WorkGroup) Index() uint64 {
	return uint64(g.id[0]) + uint64(g.count[0])*(uint64(g.id[1])+uint64(g.count[1])*uint64(g.id[2]))
}

// Buffer returns the bytes of the buffer bound at element 0 of binding in
// set, after its range and dynamic offset are applied. It returns nil
// when nothing is bound there.
func (g *WorkGroup) Buffer(set, binding uint32) []byte {
	return g.BufferAt(set, binding, 0)
}

// BufferAt is Buffer for array element index.
func (g *WorkGroup) BufferAt(set, binding, index uint32) []byte {
	if int(set) >= len(g.env.sets) {
		return nil
	}
	return g.env.sets[set].buffer(binding, index)
}

// Uint32 reads the little-endian word at word index i of a bound buffer.
func (g *WorkGroup) Uint32(set, binding uint32, i int) uint32 {
	return binary.LittleEndian.Uint32(g.Buffer(set, binding)[i*4:])
}

// PutUint32 writes v at word index i of a bound buffer.
func (g *WorkGroup) PutUint32(set, binding uint32, i int, v uint32) {
	binary.LittleEndian.PutUint32(g.Buffer(set, binding)[i*4:], v)
}

// PushConstants returns the push constant words of the dispatch.
func (g *WorkGroup) PushConstants() []uint32 { return g.env.push }

// SpecConstant returns the bytes of specialization constant id of the
// pipeline.
func (g *WorkGroup) SpecConstant(id uint32) ([]byte, bool) {
	return g.env.spec.Value(id)
}

// boundSet is a descriptor set bound to a bind point together with the
// dynamic offsets of its dynamic buffer bindings.
type boundSet struct {
	set     *descriptorSet
	dynamic map[uint32][]uint32
}

func bindSet(s *descriptorSet, offsets []uint32) (boundSet, []uint32) {
	b := boundSet{set: s}
	for _, lb := range s.layout.sortedBindings() {
		if lb.Type != pso.DescUniformBufferDynamic && lb.Type != pso.DescStorageBufferDynamic {
			continue
		}
		n := min(int(lb.Count), len(offsets))
		if b.dynamic == nil {
			b.dynamic = make(map[uint32][]uint32)
		}
		b.dynamic[lb.Binding] = offsets[:n]
		offsets = offsets[n:]
	}
	return b, offsets
}

func (b boundSet) buffer(binding, index uint32) []byte {
	if b.set == nil {
		return nil
	}
	desc, ok := b.set.descriptor(binding, index)
	if !ok {
		return nil
	}
	bf, ok := desc.Buffer.(*buf)
	if !ok || bf.mem == nil {
		return nil
	}
	data := bf.bytes()
	start, end, ok := desc.Range.Resolve(uint64(len(data)))
	if !ok {
		return nil
	}
	if dyn := b.dynamic[binding]; int(index) < len(dyn) {
		start += uint64(dyn[index])
		if desc.Range.Size == 0 || desc.Range.Size == ^uint64(0) {
			end = uint64(len(data))
		} else {
			end = start + desc.Range.Size
		}
		if start > end || end > uint64(len(data)) {
			return nil
		}
	}
	return data[start:end]
}

// runDispatch calls k for every group of count on the worker pool.
func (d *device) runDispatch(k Kernel, count hal.WorkGroupCount, env *dispatchEnv) {
	total := count.Total()
	if total == 0 || k == nil {
		return
	}
	d.pool.Range(int(total), func(lo, hi int) {
		g := WorkGroup{count: count, env: env}
		for i := lo; i < hi; i++ {
			n := uint32(i)
			g.id = [3]uint32{n % count[0], n / count[0] % count[1], n / (count[0] * count[1])}
			k(&g)
		}
	})
}
