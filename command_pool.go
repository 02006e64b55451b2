// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"sync"

	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/pool"
	"github.com/gogpu/gfx/queue"
)

// CommandPool allocates command buffers for one queue family. A pool and
// its buffers must not be used from several goroutines at once.
type CommandPool struct {
	resource
	raw    hal.CommandPool
	family queue.FamilyID
	flags  pool.CreateFlags

	mu      sync.Mutex
	buffers map[*CommandBuffer]struct{}
}

func (p *CommandPool) base() *resource {
	if p == nil {
		return nil
	}
	return &p.resource
}

// Family returns the queue family the pool allocates for.
func (p *CommandPool) Family() queue.FamilyID { return p.family }

// Flags returns the flags the pool was created with.
func (p *CommandPool) Flags() pool.CreateFlags { return p.flags }

// CreateCommandPool creates a pool for buffers submitted to queues of
// family, which must have been opened with the device.
func (d *Device) CreateCommandPool(family queue.FamilyID, flags pool.CreateFlags) (*CommandPool, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if !d.hasFamily(family) {
		return nil, fmt.Errorf("create command pool: %w: family %d not opened", ErrWrongQueueFamily, family)
	}
	raw, err := d.raw.CreateCommandPool(family, flags)
	if err != nil {
		return nil, fmt.Errorf("create command pool: %w", d.observe(err))
	}
	return &CommandPool{
		resource: resource{device: d},
		raw:      raw,
		family:   family,
		flags:    flags,
		buffers:  make(map[*CommandBuffer]struct{}),
	}, nil
}

func (d *Device) hasFamily(family queue.FamilyID) bool {
	for _, q := range d.queues {
		if q.family.ID == family {
			return true
		}
	}
	return false
}

// Allocate allocates n command buffers of the given level in the Initial
// state.
func (p *CommandPool) Allocate(n int, level command.Level) ([]*CommandBuffer, error) {
	if err := p.device.alive(); err != nil {
		return nil, err
	}
	if err := p.device.use(p); err != nil {
		return nil, fmt.Errorf("allocate command buffers: %w", err)
	}
	if n <= 0 {
		return nil, fmt.Errorf("allocate command buffers: %w: count %d", ErrInvalidDesc, n)
	}
	if level != command.Primary && level != command.Secondary {
		return nil, fmt.Errorf("allocate command buffers: %w: %v", ErrInvalidLevel, level)
	}
	raws, err := p.raw.Allocate(n, level)
	if err != nil {
		return nil, fmt.Errorf("allocate command buffers: %w", p.device.observe(err))
	}
	out := make([]*CommandBuffer, len(raws))
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, raw := range raws {
		cb := &CommandBuffer{pool: p, raw: raw, level: level}
		p.buffers[cb] = struct{}{}
		out[i] = cb
	}
	return out, nil
}

// AllocateOne allocates a single command buffer.
func (p *CommandPool) AllocateOne(level command.Level) (*CommandBuffer, error) {
	bufs, err := p.Allocate(1, level)
	if err != nil {
		return nil, err
	}
	return bufs[0], nil
}

// Free releases command buffers. Pending buffers cannot be freed.
// Freeing a buffer twice is a no-op.
func (p *CommandPool) Free(bufs ...*CommandBuffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cb := range bufs {
		if cb == nil || cb.pool != p {
			return fmt.Errorf("free command buffers: %w: buffer of another pool", ErrForeignResource)
		}
		if cb.State() == StatePending {
			return fmt.Errorf("free command buffers: %w", ErrPending)
		}
	}
	raws := make([]hal.CommandBuffer, 0, len(bufs))
	for _, cb := range bufs {
		if _, ok := p.buffers[cb]; !ok {
			continue
		}
		delete(p.buffers, cb)
		cb.mu.Lock()
		cb.freed = true
		cb.epoch++
		cb.mu.Unlock()
		raws = append(raws, cb.raw)
	}
	if len(raws) > 0 {
		p.raw.Free(raws)
	}
	return nil
}

// Reset invalidates every buffer of the pool, whatever its state. The
// buffers must be begun again. Buffers the device may still execute must
// not be reset.
func (p *CommandPool) Reset(releaseResources bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for cb := range p.buffers {
		cb.mu.Lock()
		cb.state = StateInvalid
		cb.pending = 0
		cb.epoch++
		cb.mu.Unlock()
	}
	p.raw.Reset(releaseResources)
}

// DestroyCommandPool destroys p and frees every buffer allocated from it.
func (d *Device) DestroyCommandPool(p *CommandPool) {
	if !d.release(p.base()) {
		return
	}
	p.mu.Lock()
	for cb := range p.buffers {
		cb.mu.Lock()
		cb.freed = true
		cb.epoch++
		cb.mu.Unlock()
	}
	clear(p.buffers)
	p.mu.Unlock()
	d.raw.DestroyCommandPool(p.raw)
}

// Destroy destroys the pool.
func (p *CommandPool) Destroy() { p.device.DestroyCommandPool(p) }
