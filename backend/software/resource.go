// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"cmp"
	"slices"
	"sync"

	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pass"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
)

// allTypes accepts every memory type of the adapter.
const allTypes = 1<<MemoryDeviceLocal | 1<<MemoryHostCoherent | 1<<MemoryHostCached

// resourceAlignment is the alignment of every buffer and image.
const resourceAlignment = 16

func alignUp(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}

// deviceMemory is an allocation backed by a byte slice.
type deviceMemory struct {
	data  []byte
	heap  int
	props memory.Properties
}

type buf struct {
	desc   buffer.Desc
	mem    *deviceMemory
	offset uint64
}

// bytes returns the storage of the buffer.
func (b *buf) bytes() []byte {
	return b.mem.data[b.offset : b.offset+b.desc.Size]
}

// texelImage stores every level and layer tightly packed, level major.
type texelImage struct {
	desc   image.Desc
	texel  uint64
	levels []levelLayout
	size   uint64

	mem    *deviceMemory
	offset uint64
	// own is set for swapchain images, which carry their storage.
	own []byte
}

type levelLayout struct {
	extent image.Extent
	offset uint64
	// slice is the size of one layer of the level.
	slice uint64
}

func newTexelImage(desc image.Desc) *texelImage {
	img := &texelImage{desc: desc, texel: uint64(desc.Format.Desc().BytesPerTexel())}
	base := desc.Kind.Extent()
	layers := uint64(desc.Kind.NumLayers())
	for l := range desc.NumLevels() {
		e := base.Level(l)
		slice := e.Texels() * img.texel
		img.levels = append(img.levels, levelLayout{extent: e, offset: img.size, slice: slice})
		img.size += slice * layers
	}
	return img
}

func (img *texelImage) bytes() []byte {
	if img.own != nil {
		return img.own
	}
	return img.mem.data[img.offset : img.offset+img.size]
}

// subresource returns the bytes of one layer of one level.
func (img *texelImage) subresource(level uint8, layer uint16) []byte {
	lv := img.levels[level]
	start := lv.offset + uint64(layer)*lv.slice
	return img.bytes()[start : start+lv.slice]
}

// rowPitch returns the size of one row of level.
func (img *texelImage) rowPitch(level uint8) uint64 {
	return uint64(img.levels[level].extent.Width) * img.texel
}

type imageView struct {
	img  *texelImage
	desc image.ViewDesc
}

type sampler struct {
	desc image.SamplerDesc
}

type renderPass struct {
	desc pass.Desc
}

type framebuffer struct {
	pass   *renderPass
	views  []*imageView
	extent image.Extent
}

type shaderModule struct {
	src     pso.ShaderSource
	program Program
}

type descriptorSetLayout struct {
	bindings []pso.DescriptorSetLayoutBinding
}

// sortedBindings returns the bindings ordered by binding number, the order
// dynamic offsets are consumed in.
func (l *descriptorSetLayout) sortedBindings() []pso.DescriptorSetLayoutBinding {
	out := slices.Clone(l.bindings)
	slices.SortFunc(out, func(a, b pso.DescriptorSetLayoutBinding) int {
		return cmp.Compare(a.Binding, b.Binding)
	})
	return out
}

type descriptorSet struct {
	layout *descriptorSetLayout
	pool   *descriptorPool

	mu       sync.RWMutex
	bindings map[uint32][]hal.Descriptor
}

func (s *descriptorSet) descriptor(binding, index uint32) (hal.Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds := s.bindings[binding]
	if int(index) >= len(ds) {
		return hal.Descriptor{}, false
	}
	return ds[index], true
}

type descriptorPool struct {
	maxSets int
	flags   pso.DescriptorPoolCreateFlags

	mu   sync.Mutex
	sets map[*descriptorSet]struct{}
}

func (p *descriptorPool) AllocateSet(layout hal.DescriptorSetLayout) (hal.DescriptorSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sets) >= p.maxSets {
		return nil, hal.ErrOutOfPoolMemory
	}
	s := &descriptorSet{layout: layout.(*descriptorSetLayout), pool: p, bindings: make(map[uint32][]hal.Descriptor)}
	p.sets[s] = struct{}{}
	return s, nil
}

func (p *descriptorPool) FreeSets(sets []hal.DescriptorSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range sets {
		delete(p.sets, s.(*descriptorSet))
	}
}

func (p *descriptorPool) Reset() {
	p.mu.Lock()
	clear(p.sets)
	p.mu.Unlock()
}

type pipelineLayout struct {
	sets []*descriptorSetLayout
	push []pso.PushConstantRange
}

type graphicsPipeline struct {
	desc hal.GraphicsPipelineDesc
}

type computePipeline struct {
	label  string
	kernel Kernel
	spec   pso.Specialization
	layout *pipelineLayout
}

// queryPool stores one result row per query.
type queryPool struct {
	desc query.Desc

	mu        sync.Mutex
	values    [][]uint64
	available []bool
}

func newQueryPool(desc query.Desc) *queryPool {
	p := &queryPool{
		desc:      desc,
		values:    make([][]uint64, desc.Count),
		available: make([]bool, desc.Count),
	}
	for i := range p.values {
		p.values[i] = make([]uint64, desc.ValuesPerQuery())
	}
	return p
}

func (p *queryPool) reset(r query.Range) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := uint64(r.Start); i < r.End(); i++ {
		clear(p.values[i])
		p.available[i] = false
	}
}

func (p *queryPool) write(id query.ID, values []uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copy(p.values[id], values)
	p.available[id] = true
}

// snapshot returns a copy of the results of r and their availability.
func (p *queryPool) snapshot(r query.Range) ([][]uint64, []bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	vals := make([][]uint64, r.Count)
	avail := slices.Clone(p.available[r.Start:r.End()])
	for i := range vals {
		vals[i] = slices.Clone(p.values[uint64(r.Start)+uint64(i)])
	}
	return vals, avail
}

var _ hal.DescriptorPool = (*descriptorPool)(nil)
