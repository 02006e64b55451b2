// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/pso"
)

// ShaderModule holds shader code.
type ShaderModule struct {
	resource
	raw hal.ShaderModule
}

func (m *ShaderModule) base() *resource {
	if m == nil {
		return nil
	}
	return &m.resource
}

// CreateShaderModule creates a shader module from src.
func (d *Device) CreateShaderModule(src pso.ShaderSource) (*ShaderModule, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if src.IsEmpty() {
		return nil, fmt.Errorf("create shader module %q: %w: no code", src.Label, ErrInvalidDesc)
	}
	raw, err := d.raw.CreateShaderModule(src)
	if err != nil {
		return nil, fmt.Errorf("create shader module %q: %w", src.Label, d.observe(err))
	}
	return &ShaderModule{resource: resource{device: d, label: src.Label}, raw: raw}, nil
}

// DestroyShaderModule destroys m.
func (d *Device) DestroyShaderModule(m *ShaderModule) {
	if d.release(m.base()) {
		d.raw.DestroyShaderModule(m.raw)
	}
}

// Destroy destroys the shader module.
func (m *ShaderModule) Destroy() { m.device.DestroyShaderModule(m) }

// DescriptorSetLayout describes the bindings of a descriptor set.
type DescriptorSetLayout struct {
	resource
	raw      hal.DescriptorSetLayout
	bindings []pso.DescriptorSetLayoutBinding
}

func (l *DescriptorSetLayout) base() *resource {
	if l == nil {
		return nil
	}
	return &l.resource
}

// Bindings returns a copy of the layout's bindings.
func (l *DescriptorSetLayout) Bindings() []pso.DescriptorSetLayoutBinding {
	return slices.Clone(l.bindings)
}

func (l *DescriptorSetLayout) binding(n uint32) (pso.DescriptorSetLayoutBinding, bool) {
	for _, b := range l.bindings {
		if b.Binding == n {
			return b, true
		}
	}
	return pso.DescriptorSetLayoutBinding{}, false
}

// CreateDescriptorSetLayout creates a layout. Binding numbers must be
// unique and every binding needs at least one descriptor.
func (d *Device) CreateDescriptorSetLayout(bindings []pso.DescriptorSetLayoutBinding) (*DescriptorSetLayout, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	seen := make(map[uint32]bool, len(bindings))
	for _, b := range bindings {
		if seen[b.Binding] {
			return nil, fmt.Errorf("create descriptor set layout: %w: binding %d declared twice", ErrInvalidDesc, b.Binding)
		}
		seen[b.Binding] = true
		if b.Count == 0 {
			return nil, fmt.Errorf("create descriptor set layout: %w: binding %d has no descriptors", ErrInvalidDesc, b.Binding)
		}
		if b.Stages == 0 {
			return nil, fmt.Errorf("create descriptor set layout: %w: binding %d has no stages", ErrInvalidDesc, b.Binding)
		}
	}
	bindings = slices.Clone(bindings)
	raw, err := d.raw.CreateDescriptorSetLayout(bindings)
	if err != nil {
		return nil, fmt.Errorf("create descriptor set layout: %w", d.observe(err))
	}
	return &DescriptorSetLayout{resource: resource{device: d}, raw: raw, bindings: bindings}, nil
}

// DestroyDescriptorSetLayout destroys l.
func (d *Device) DestroyDescriptorSetLayout(l *DescriptorSetLayout) {
	if d.release(l.base()) {
		d.raw.DestroyDescriptorSetLayout(l.raw)
	}
}

// Destroy destroys the layout.
func (l *DescriptorSetLayout) Destroy() { l.device.DestroyDescriptorSetLayout(l) }

// DescriptorPool allocates descriptor sets.
type DescriptorPool struct {
	resource
	raw   hal.DescriptorPool
	flags pso.DescriptorPoolCreateFlags

	mu   sync.Mutex
	sets map[*DescriptorSet]struct{}
}

func (p *DescriptorPool) base() *resource {
	if p == nil {
		return nil
	}
	return &p.resource
}

// CreateDescriptorPool creates a pool for up to maxSets sets drawing from
// ranges.
func (d *Device) CreateDescriptorPool(maxSets int, ranges []pso.DescriptorRangeDesc, flags pso.DescriptorPoolCreateFlags) (*DescriptorPool, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if maxSets <= 0 {
		return nil, fmt.Errorf("create descriptor pool: %w: max sets %d", ErrInvalidDesc, maxSets)
	}
	raw, err := d.raw.CreateDescriptorPool(maxSets, slices.Clone(ranges), flags)
	if err != nil {
		return nil, fmt.Errorf("create descriptor pool: %w", d.observe(err))
	}
	return &DescriptorPool{
		resource: resource{device: d},
		raw:      raw,
		flags:    flags,
		sets:     make(map[*DescriptorSet]struct{}),
	}, nil
}

// AllocateSet allocates a set with layout l. It fails with
// ErrOutOfPoolMemory when the pool is exhausted.
func (p *DescriptorPool) AllocateSet(l *DescriptorSetLayout) (*DescriptorSet, error) {
	d := p.device
	if err := d.alive(); err != nil {
		return nil, err
	}
	if err := d.use(p, l); err != nil {
		return nil, fmt.Errorf("allocate descriptor set: %w", err)
	}
	raw, err := p.raw.AllocateSet(l.raw)
	if err != nil {
		return nil, fmt.Errorf("allocate descriptor set: %w", d.observe(err))
	}
	s := &DescriptorSet{resource: resource{device: d}, raw: raw, layout: l, pool: p}
	p.mu.Lock()
	p.sets[s] = struct{}{}
	p.mu.Unlock()
	return s, nil
}

// FreeSets returns sets to the pool. The pool must have been created with
// pso.FreeDescriptorSet.
func (p *DescriptorPool) FreeSets(sets ...*DescriptorSet) error {
	if p.flags&pso.FreeDescriptorSet == 0 {
		return fmt.Errorf("free descriptor sets: %w: pool created without FreeDescriptorSet", ErrInvalidUsage)
	}
	raws := make([]hal.DescriptorSet, 0, len(sets))
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range sets {
		if s == nil || s.pool != p {
			return fmt.Errorf("free descriptor sets: %w: set of another pool", ErrForeignResource)
		}
		if _, ok := p.sets[s]; !ok {
			continue
		}
		delete(p.sets, s)
		s.destroyed.Store(true)
		raws = append(raws, s.raw)
	}
	p.raw.FreeSets(raws)
	return nil
}

// Reset frees every set allocated from the pool.
func (p *DescriptorPool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for s := range p.sets {
		s.destroyed.Store(true)
	}
	clear(p.sets)
	p.raw.Reset()
}

// DestroyDescriptorPool destroys p and every set allocated from it.
func (d *Device) DestroyDescriptorPool(p *DescriptorPool) {
	if !d.release(p.base()) {
		return
	}
	p.mu.Lock()
	for s := range p.sets {
		s.destroyed.Store(true)
	}
	clear(p.sets)
	p.mu.Unlock()
	d.raw.DestroyDescriptorPool(p.raw)
}

// Destroy destroys the pool.
func (p *DescriptorPool) Destroy() { p.device.DestroyDescriptorPool(p) }

// DescriptorSet is a set of resource bindings allocated from a pool.
type DescriptorSet struct {
	resource
	raw    hal.DescriptorSet
	layout *DescriptorSetLayout
	pool   *DescriptorPool
}

func (s *DescriptorSet) base() *resource {
	if s == nil {
		return nil
	}
	return &s.resource
}

// Layout returns the layout the set was allocated with.
func (s *DescriptorSet) Layout() *DescriptorSetLayout { return s.layout }

// Descriptor is one resource written into a descriptor set. The fields
// used depend on the binding's descriptor type.
type Descriptor struct {
	Buffer    *Buffer
	Range     buffer.SubRange
	ImageView *ImageView
	Layout    image.Layout
	Sampler   *Sampler
}

// BufferDescriptor returns a descriptor for r of b.
func BufferDescriptor(b *Buffer, r buffer.SubRange) Descriptor {
	return Descriptor{Buffer: b, Range: r}
}

// ImageDescriptor returns a descriptor for v in layout.
func ImageDescriptor(v *ImageView, layout image.Layout) Descriptor {
	return Descriptor{ImageView: v, Layout: layout}
}

// SamplerDescriptor returns a descriptor for s.
func SamplerDescriptor(s *Sampler) Descriptor {
	return Descriptor{Sampler: s}
}

// DescriptorSetWrite updates consecutive array elements of one binding.
type DescriptorSetWrite struct {
	Set         *DescriptorSet
	Binding     uint32
	ArrayOffset uint32
	Descriptors []Descriptor
}

// WriteDescriptorSets updates descriptor sets. Every write is validated
// before any is applied.
func (d *Device) WriteDescriptorSets(writes []DescriptorSetWrite) error {
	if err := d.alive(); err != nil {
		return err
	}
	raws := make([]hal.DescriptorSetWrite, len(writes))
	for i, w := range writes {
		if err := d.use(w.Set); err != nil {
			return fmt.Errorf("write descriptor sets: %w", err)
		}
		lb, ok := w.Set.layout.binding(w.Binding)
		if !ok {
			return fmt.Errorf("write descriptor sets: %w: binding %d not in layout", ErrInvalidDesc, w.Binding)
		}
		if uint64(w.ArrayOffset)+uint64(len(w.Descriptors)) > uint64(lb.Count) {
			return fmt.Errorf("write descriptor sets: %w: %d descriptors at %d overflow binding %d of %d",
				ErrInvalidDesc, len(w.Descriptors), w.ArrayOffset, w.Binding, lb.Count)
		}
		descs := make([]hal.Descriptor, len(w.Descriptors))
		for j, desc := range w.Descriptors {
			raw, err := d.descriptor(lb.Type, desc)
			if err != nil {
				return fmt.Errorf("write descriptor sets: binding %d[%d]: %w", w.Binding, int(w.ArrayOffset)+j, err)
			}
			descs[j] = raw
		}
		raws[i] = hal.DescriptorSetWrite{
			Set:         w.Set.raw,
			Binding:     w.Binding,
			ArrayOffset: w.ArrayOffset,
			Descriptors: descs,
		}
	}
	d.raw.WriteDescriptorSets(raws)
	return nil
}

func (d *Device) descriptor(ty pso.DescriptorType, desc Descriptor) (hal.Descriptor, error) {
	var raw hal.Descriptor
	switch {
	case ty.IsBuffer(), ty == pso.DescUniformTexelBuffer, ty == pso.DescStorageTexelBuffer:
		usage := buffer.Storage
		switch ty {
		case pso.DescUniformBuffer, pso.DescUniformBufferDynamic:
			usage = buffer.Uniform
		case pso.DescUniformTexelBuffer:
			usage = buffer.UniformTexel
		case pso.DescStorageTexelBuffer:
			usage = buffer.StorageTexel
		}
		if err := d.checkBuffer(desc.Buffer, usage); err != nil {
			return raw, fmt.Errorf("%v: %w", ty, err)
		}
		if err := checkRange(desc.Buffer, desc.Range); err != nil {
			return raw, err
		}
		raw.Buffer, raw.Range = desc.Buffer.raw, desc.Range
	case ty == pso.DescSampler:
		if err := d.use(desc.Sampler); err != nil {
			return raw, fmt.Errorf("%v: %w", ty, err)
		}
		raw.Sampler = desc.Sampler.raw
	default:
		usage := image.Sampled
		switch ty {
		case pso.DescStorageImage:
			usage = image.Storage
		case pso.DescInputAttachment:
			usage = image.InputAttachment
		}
		if err := d.use(desc.ImageView); err != nil {
			return raw, fmt.Errorf("%v: %w", ty, err)
		}
		if err := d.checkImage(desc.ImageView.image, usage); err != nil {
			return raw, fmt.Errorf("%v: %w", ty, err)
		}
		raw.ImageView, raw.Layout = desc.ImageView.raw, desc.Layout
		if ty == pso.DescCombinedImageSampler {
			if err := d.use(desc.Sampler); err != nil {
				return raw, fmt.Errorf("%v: %w", ty, err)
			}
			raw.Sampler = desc.Sampler.raw
		}
	}
	return raw, nil
}

// PipelineLayout describes the descriptor sets and push constants visible
// to a pipeline.
type PipelineLayout struct {
	resource
	raw           hal.PipelineLayout
	sets          []*DescriptorSetLayout
	pushConstants []pso.PushConstantRange
}

func (l *PipelineLayout) base() *resource {
	if l == nil {
		return nil
	}
	return &l.resource
}

// NumSets returns the number of descriptor set layouts.
func (l *PipelineLayout) NumSets() int { return len(l.sets) }

// CreatePipelineLayout creates a pipeline layout.
//
// More sets than Limits.MaxBoundDescriptorSets or push constants beyond
// Limits.MaxPushConstantsSize fail with ErrLimitExceeded.
func (d *Device) CreatePipelineLayout(sets []*DescriptorSetLayout, pushConstants []pso.PushConstantRange) (*PipelineLayout, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if limit := d.limits.MaxBoundDescriptorSets; limit > 0 && len(sets) > limit {
		return nil, fmt.Errorf("create pipeline layout: %w: %d sets exceed %d", ErrLimitExceeded, len(sets), limit)
	}
	raws := make([]hal.DescriptorSetLayout, len(sets))
	for i, s := range sets {
		if err := d.use(s); err != nil {
			return nil, fmt.Errorf("create pipeline layout: set %d: %w", i, err)
		}
		raws[i] = s.raw
	}
	for _, pc := range pushConstants {
		if pc.Offset%4 != 0 || pc.Size%4 != 0 || pc.Size == 0 {
			return nil, fmt.Errorf("create pipeline layout: %w: push constant range %d+%d not a multiple of 4", ErrInvalidDesc, pc.Offset, pc.Size)
		}
		if pc.End() > d.limits.MaxPushConstantsSize {
			return nil, fmt.Errorf("create pipeline layout: %w: push constants end at %d, max %d", ErrLimitExceeded, pc.End(), d.limits.MaxPushConstantsSize)
		}
		if pc.Stages == 0 {
			return nil, fmt.Errorf("create pipeline layout: %w: push constant range without stages", ErrInvalidDesc)
		}
	}
	pushConstants = slices.Clone(pushConstants)
	raw, err := d.raw.CreatePipelineLayout(raws, pushConstants)
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", d.observe(err))
	}
	return &PipelineLayout{
		resource:      resource{device: d},
		raw:           raw,
		sets:          slices.Clone(sets),
		pushConstants: pushConstants,
	}, nil
}

// checkPush validates a push of words 32-bit values at offset for stages.
func (l *PipelineLayout) checkPush(stages pso.ShaderStageFlags, offset uint32, words int) error {
	if offset%4 != 0 {
		return fmt.Errorf("%w: push constant offset %d not a multiple of 4", ErrInvalidDesc, offset)
	}
	end := uint64(offset) + 4*uint64(words)
	for _, pc := range l.pushConstants {
		if pc.Stages&stages != 0 && uint64(pc.Offset) <= uint64(offset) && end <= uint64(pc.End()) {
			return nil
		}
	}
	return fmt.Errorf("%w: push constants %d..%d not declared for stages %#x", ErrInvalidDesc, offset, end, stages)
}

// DestroyPipelineLayout destroys l.
func (d *Device) DestroyPipelineLayout(l *PipelineLayout) {
	if d.release(l.base()) {
		d.raw.DestroyPipelineLayout(l.raw)
	}
}

// Destroy destroys the layout.
func (l *PipelineLayout) Destroy() { l.device.DestroyPipelineLayout(l) }
