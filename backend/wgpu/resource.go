// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"maps"
	"sync"

	"github.com/gogpu/gputypes"
	wgpuhal "github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
)

// copyAlignment is the granularity of WebGPU buffer sizes and copies.
const copyAlignment = 4

func alignUp(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}

// deviceMemory is an emulated allocation. data shadows the buffers bound
// to host visible memory.
type deviceMemory struct {
	data  []byte
	heap  int
	props memory.Properties
}

func (m *deviceMemory) hostVisible() bool {
	return m.props.Contains(memory.CPUVisible)
}

type buf struct {
	desc   buffer.Desc
	mem    *deviceMemory
	offset uint64
	// size is desc.Size rounded to copyAlignment.
	size uint64
	raw  wgpuhal.Buffer
}

// shadow returns the host bytes of the buffer, size bytes long.
func (b *buf) shadow() []byte {
	return b.mem.data[b.offset : b.offset+b.size]
}

// bufferUsage maps buffer usage to WebGPU usage. Copies are always
// allowed: uploads and readbacks go through them.
func bufferUsage(u buffer.Usage) gputypes.BufferUsage {
	out := gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	if u&(buffer.Storage|buffer.StorageTexel|buffer.Indirect) != 0 {
		out |= gputypes.BufferUsageStorage
	}
	if u&(buffer.Uniform|buffer.UniformTexel) != 0 {
		out |= gputypes.BufferUsageUniform
	}
	if u&buffer.Vertex != 0 {
		out |= gputypes.BufferUsageVertex
	}
	return out
}

type shaderModule struct {
	raw wgpuhal.ShaderModule
}

type descriptorSetLayout struct {
	bindings []pso.DescriptorSetLayoutBinding
	raw      wgpuhal.BindGroupLayout
}

type descriptorPool struct {
	d       *device
	maxSets int

	mu   sync.Mutex
	sets map[*descriptorSet]struct{}
}

var _ hal.DescriptorPool = (*descriptorPool)(nil)

func (p *descriptorPool) AllocateSet(layout hal.DescriptorSetLayout) (hal.DescriptorSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sets) >= p.maxSets {
		return nil, hal.ErrOutOfPoolMemory
	}
	s := &descriptorSet{layout: layout.(*descriptorSetLayout), bindings: make(map[uint32]hal.Descriptor)}
	p.sets[s] = struct{}{}
	return s, nil
}

func (p *descriptorPool) FreeSets(sets []hal.DescriptorSet) {
	p.mu.Lock()
	freed := make(map[*descriptorSet]bool, len(sets))
	for _, s := range sets {
		ds := s.(*descriptorSet)
		delete(p.sets, ds)
		freed[ds] = true
	}
	p.mu.Unlock()
	p.d.forgetGroups(func(k groupKey) bool { return freed[k.set] })
}

func (p *descriptorPool) Reset() {
	p.mu.Lock()
	owned := maps.Clone(p.sets)
	clear(p.sets)
	p.mu.Unlock()
	p.d.forgetGroups(func(k groupKey) bool {
		_, ok := owned[k.set]
		return ok
	})
}

// descriptorSet holds one buffer descriptor per binding. Bind groups are
// built from it when a dispatch runs. gen counts writes.
type descriptorSet struct {
	layout *descriptorSetLayout

	mu       sync.RWMutex
	bindings map[uint32]hal.Descriptor
	gen      uint64
}

func (s *descriptorSet) descriptor(binding uint32) (hal.Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.bindings[binding]
	return d, ok
}

func (s *descriptorSet) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

func (s *descriptorSet) uses(b *buf) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.bindings {
		if d.Buffer == hal.Buffer(b) {
			return true
		}
	}
	return false
}

// groupKey identifies a cached bind group: one set, as written at gen,
// bound through one layout.
type groupKey struct {
	set    *descriptorSet
	layout *descriptorSetLayout
	gen    uint64
}

type pipelineLayout struct {
	sets []*descriptorSetLayout
	raw  wgpuhal.PipelineLayout
}

type computePipeline struct {
	label  string
	layout *pipelineLayout
	raw    wgpuhal.ComputePipeline
}

type fence struct {
	signaled bool
}

type semaphore struct {
	signaled bool
}

// queryPool stores host timestamps.
type queryPool struct {
	desc query.Desc

	mu        sync.Mutex
	values    []uint64
	available []bool
}

func newQueryPool(desc query.Desc) *queryPool {
	return &queryPool{
		desc:      desc,
		values:    make([]uint64, desc.Count),
		available: make([]bool, desc.Count),
	}
}

func (p *queryPool) reset(r query.Range) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := uint64(r.Start); i < r.End(); i++ {
		p.values[i] = 0
		p.available[i] = false
	}
}

func (p *queryPool) write(id query.ID, v uint64) {
	p.mu.Lock()
	p.values[id] = v
	p.available[id] = true
	p.mu.Unlock()
}

func (p *queryPool) snapshot(r query.Range) ([][]uint64, []bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	vals := make([][]uint64, r.Count)
	avail := make([]bool, r.Count)
	for i := range vals {
		id := int(r.Start) + i
		vals[i] = []uint64{p.values[id]}
		avail[i] = p.available[id]
	}
	return vals, avail
}
