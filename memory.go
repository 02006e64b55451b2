// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"sync"

	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/memory"
)

// Memory is a device memory allocation.
type Memory struct {
	resource
	raw   hal.Memory
	typ   MemoryTypeID
	props memory.Properties
	size  uint64

	mu     sync.Mutex
	mapped bool
}

func (m *Memory) base() *resource {
	if m == nil {
		return nil
	}
	return &m.resource
}

// Size returns the allocation size in bytes.
func (m *Memory) Size() uint64 { return m.size }

// Type returns the memory type of the allocation.
func (m *Memory) Type() MemoryTypeID { return m.typ }

// Properties returns the properties of the allocation's memory type.
func (m *Memory) Properties() memory.Properties { return m.props }

// AllocateMemory allocates size bytes of memory type typ.
//
// It fails with ErrTooManyObjects once MaxMemoryAllocationCount
// allocations are live and with ErrOutOfDeviceMemory when size exceeds
// the type's heap.
func (d *Device) AllocateMemory(typ MemoryTypeID, size uint64) (*Memory, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if typ.adapter != d.adapter {
		return nil, fmt.Errorf("allocate memory: %w: memory type of another adapter", ErrForeignResource)
	}
	types := d.adapter.memory.Types
	idx := typ.Index()
	if idx >= len(types) {
		return nil, fmt.Errorf("allocate memory: %w: memory type %v", ErrInvalidDesc, typ)
	}
	if size == 0 {
		return nil, fmt.Errorf("allocate memory: %w: zero size", ErrInvalidDesc)
	}
	heap := types[idx].HeapIndex
	if heap >= 0 && heap < len(d.adapter.memory.Heaps) && size > d.adapter.memory.Heaps[heap].Size {
		return nil, fmt.Errorf("allocate memory: %w: %d bytes exceed heap %d", hal.ErrOutOfDeviceMemory, size, heap)
	}
	if limit := d.limits.MaxMemoryAllocationCount; limit > 0 {
		if n := d.memoryCount.Add(1); n > int64(limit) {
			d.memoryCount.Add(-1)
			return nil, fmt.Errorf("allocate memory: %w: %d allocations", hal.ErrTooManyObjects, limit)
		}
	} else {
		d.memoryCount.Add(1)
	}

	raw, err := d.raw.AllocateMemory(typ.id, size)
	if err != nil {
		d.memoryCount.Add(-1)
		return nil, fmt.Errorf("allocate memory: %w", d.observe(err))
	}
	Logger().Debug("gfx: memory allocated", "type", typ, "size", size)
	return &Memory{
		resource: resource{device: d},
		raw:      raw,
		typ:      typ,
		props:    types[idx].Properties,
		size:     size,
	}, nil
}

// FreeMemory releases m. Resources bound to m must be destroyed first.
func (d *Device) FreeMemory(m *Memory) {
	if !d.release(m.base()) {
		return
	}
	d.memoryCount.Add(-1)
	d.raw.FreeMemory(m.raw)
}

// MapMemory maps a segment of host visible memory. The returned slice is
// valid until UnmapMemory. Only one mapping per allocation may exist.
func (d *Device) MapMemory(m *Memory, seg memory.Segment) ([]byte, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if err := d.use(m); err != nil {
		return nil, fmt.Errorf("map memory: %w", err)
	}
	if !m.props.Contains(memory.CPUVisible) {
		return nil, fmt.Errorf("map memory: %w", hal.ErrNotHostVisible)
	}
	if _, _, ok := seg.Resolve(m.size); !ok {
		return nil, fmt.Errorf("map memory: %w: segment outside %d byte allocation", ErrInvalidDesc, m.size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mapped {
		return nil, fmt.Errorf("map memory: %w", ErrAlreadyMapped)
	}
	data, err := d.raw.MapMemory(m.raw, seg)
	if err != nil {
		return nil, fmt.Errorf("map memory: %w", d.observe(err))
	}
	m.mapped = true
	return data, nil
}

// UnmapMemory unmaps m.
func (d *Device) UnmapMemory(m *Memory) error {
	if err := d.use(m); err != nil {
		return fmt.Errorf("unmap memory: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mapped {
		return fmt.Errorf("unmap memory: %w", ErrNotMapped)
	}
	d.raw.UnmapMemory(m.raw)
	m.mapped = false
	return nil
}

// FlushMemory makes host writes to a mapped segment visible to the device.
// It is a no-op for coherent memory.
func (d *Device) FlushMemory(m *Memory, seg memory.Segment) error {
	return d.syncMemory("flush memory", m, seg, d.raw.FlushMemory)
}

// InvalidateMemory makes device writes visible to host reads of a mapped
// segment. It is a no-op for coherent memory.
func (d *Device) InvalidateMemory(m *Memory, seg memory.Segment) error {
	return d.syncMemory("invalidate memory", m, seg, d.raw.InvalidateMemory)
}

func (d *Device) syncMemory(op string, m *Memory, seg memory.Segment, fn func(hal.Memory, memory.Segment) error) error {
	if err := d.alive(); err != nil {
		return err
	}
	if err := d.use(m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, _, ok := seg.Resolve(m.size); !ok {
		return fmt.Errorf("%s: %w: segment outside allocation", op, ErrInvalidDesc)
	}
	m.mu.Lock()
	mapped := m.mapped
	m.mu.Unlock()
	if !mapped {
		return fmt.Errorf("%s: %w", op, ErrNotMapped)
	}
	if m.props.Contains(memory.Coherent) {
		return nil
	}
	if err := fn(m.raw, seg); err != nil {
		return fmt.Errorf("%s: %w", op, d.observe(err))
	}
	return nil
}

// checkBinding validates binding a resource with requirements req to m at
// offset.
func checkBinding(req memory.Requirements, m *Memory, offset uint64) error {
	if !req.Accepts(m.typ.Index()) {
		return fmt.Errorf("%w: memory type %v not in mask %#x", ErrInvalidMemoryBinding, m.typ, req.TypeMask)
	}
	if req.Alignment > 1 && offset%req.Alignment != 0 {
		return fmt.Errorf("%w: offset %d not aligned to %d", ErrInvalidMemoryBinding, offset, req.Alignment)
	}
	if end := offset + req.Size; end < offset || end > m.size {
		return fmt.Errorf("%w: %d bytes at %d overflow %d byte allocation", ErrInvalidMemoryBinding, req.Size, offset, m.size)
	}
	return nil
}
