// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"sync"

	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/memory"
)

// Buffer is a linear resource. Memory must be bound before the buffer is
// used by commands.
type Buffer struct {
	resource
	raw  hal.Buffer
	desc buffer.Desc
	req  memory.Requirements

	mu     sync.Mutex
	mem    *Memory
	offset uint64
}

func (b *Buffer) base() *resource {
	if b == nil {
		return nil
	}
	return &b.resource
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.desc.Size }

// Usage returns the usage the buffer was created with.
func (b *Buffer) Usage() buffer.Usage { return b.desc.Usage }

// Requirements returns the memory requirements of the buffer.
func (b *Buffer) Requirements() memory.Requirements { return b.req }

// Memory returns the bound memory and its offset, or nil when unbound.
func (b *Buffer) Memory() (*Memory, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mem, b.offset
}

func (b *Buffer) bound() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mem != nil
}

// CreateBuffer creates an unbound buffer.
//
// A zero size fails with ErrInvalidDesc and a size above
// Limits.MaxBufferSize with ErrOutOfDeviceMemory.
func (d *Device) CreateBuffer(desc buffer.Desc) (*Buffer, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if desc.Size == 0 {
		return nil, fmt.Errorf("create buffer %q: %w: zero size", desc.Label, ErrInvalidDesc)
	}
	if desc.Usage == 0 {
		return nil, fmt.Errorf("create buffer %q: %w: no usage", desc.Label, ErrInvalidUsage)
	}
	if limit := d.limits.MaxBufferSize; limit > 0 && desc.Size > limit {
		return nil, fmt.Errorf("create buffer %q: %w: %d bytes exceed limit %d", desc.Label, hal.ErrOutOfDeviceMemory, desc.Size, limit)
	}
	raw, err := d.raw.CreateBuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", desc.Label, d.observe(err))
	}
	Logger().Debug("gfx: buffer created", "label", desc.Label, "size", desc.Size)
	return &Buffer{
		resource: resource{device: d, label: desc.Label},
		raw:      raw,
		desc:     desc,
		req:      d.raw.BufferRequirements(raw),
	}, nil
}

// BindBufferMemory binds m at offset to b. A buffer is bound exactly once.
func (d *Device) BindBufferMemory(m *Memory, offset uint64, b *Buffer) error {
	if err := d.alive(); err != nil {
		return err
	}
	if err := d.use(m, b); err != nil {
		return fmt.Errorf("bind buffer memory: %w", err)
	}
	if err := checkBinding(b.req, m, offset); err != nil {
		return fmt.Errorf("bind buffer memory %q: %w", b.label, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mem != nil {
		return fmt.Errorf("bind buffer memory %q: %w", b.label, ErrAlreadyBound)
	}
	if err := d.raw.BindBufferMemory(m.raw, offset, b.raw); err != nil {
		return fmt.Errorf("bind buffer memory %q: %w", b.label, d.observe(err))
	}
	b.mem, b.offset = m, offset
	return nil
}

// CreateBoundBuffer creates a buffer and binds it to a dedicated
// allocation of the first memory type with props.
func (d *Device) CreateBoundBuffer(desc buffer.Desc, props memory.Properties) (*Buffer, *Memory, error) {
	b, err := d.CreateBuffer(desc)
	if err != nil {
		return nil, nil, err
	}
	typ, ok := d.adapter.FindMemoryType(b.req, props)
	if !ok {
		d.DestroyBuffer(b)
		return nil, nil, fmt.Errorf("create buffer %q: %w: no memory type with %v", desc.Label, ErrInvalidMemoryBinding, props)
	}
	m, err := d.AllocateMemory(typ, b.req.Size)
	if err != nil {
		d.DestroyBuffer(b)
		return nil, nil, err
	}
	if err := d.BindBufferMemory(m, 0, b); err != nil {
		d.DestroyBuffer(b)
		d.FreeMemory(m)
		return nil, nil, err
	}
	return b, m, nil
}

// DestroyBuffer destroys b.
func (d *Device) DestroyBuffer(b *Buffer) {
	if d.release(b.base()) {
		d.raw.DestroyBuffer(b.raw)
	}
}

// Destroy destroys the buffer.
func (b *Buffer) Destroy() { b.device.DestroyBuffer(b) }

// checkBuffer validates that b is usable for a command needing usage.
func (d *Device) checkBuffer(b *Buffer, usage buffer.Usage) error {
	if err := d.use(b); err != nil {
		return err
	}
	if !b.desc.Usage.Contains(usage) {
		return fmt.Errorf("%w: buffer %q lacks %#x", ErrInvalidUsage, b.label, usage)
	}
	if !b.bound() {
		return fmt.Errorf("%w: buffer %q", ErrUnbound, b.label)
	}
	return nil
}

// checkRange validates r against b.
func checkRange(b *Buffer, r buffer.SubRange) error {
	if _, _, ok := r.Resolve(b.desc.Size); !ok {
		return fmt.Errorf("%w: range %d+%d outside buffer %q of %d bytes", ErrInvalidDesc, r.Offset, r.Size, b.label, b.desc.Size)
	}
	return nil
}
