// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"sync"

	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pool"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gpucontext"
)

// SemaphoreWait makes a submission wait for a semaphore before Stages run.
type SemaphoreWait struct {
	Semaphore *Semaphore
	Stages    pso.PipelineStage
}

// Submission is a batch of primary command buffers executed in order.
type Submission struct {
	CommandBuffers   []*CommandBuffer
	WaitSemaphores   []SemaphoreWait
	SignalSemaphores []*Semaphore
}

// Queue executes submissions in the order they were made. Submissions to
// one queue complete in order; there is no ordering between queues unless
// semaphores impose one.
type Queue struct {
	device *Device
	family queue.Family
	index  int
	raw    hal.Queue

	mu      sync.Mutex
	seq     uint64
	pending []*submission
}

var _ gpucontext.Queue = (*Queue)(nil)

// submission is work handed to the backend and not yet known complete.
type submission struct {
	seq     uint64
	buffers []*CommandBuffer
	epochs  []uint64
	fence   *Fence
}

func newQueue(d *Device, family queue.Family, index int, raw hal.Queue) *Queue {
	return &Queue{device: d, family: family, index: index, raw: raw}
}

// Family returns the queue family of the queue.
func (q *Queue) Family() queue.Family { return q.family }

// Index returns the position of the queue within its family.
func (q *Queue) Index() int { return q.index }

// Device returns the device that owns the queue.
func (q *Queue) Device() *Device { return q.device }

// Submit hands s to the device without waiting for it. Every command
// buffer must be a primary buffer in the Executable state (or Pending with
// command.SimultaneousUse) allocated from a pool of the queue's family.
// The buffers, and the secondaries they execute, become Pending until the
// submission is known complete. fence, when non-nil, must be unsignaled
// and is signaled once the submission completes.
func (q *Queue) Submit(s Submission, fence *Fence) error {
	d := q.device
	if err := d.alive(); err != nil {
		return err
	}
	var bufs []*CommandBuffer
	rawBufs := make([]hal.CommandBuffer, len(s.CommandBuffers))
	seen := make(map[*CommandBuffer]bool, len(s.CommandBuffers))
	for i, cb := range s.CommandBuffers {
		if cb == nil || cb.pool.device != d {
			return fmt.Errorf("submit: %w: command buffer %d", ErrForeignResource, i)
		}
		if cb.level != command.Primary {
			return fmt.Errorf("submit: %w: command buffer %d is secondary", ErrInvalidLevel, i)
		}
		if cb.pool.family != q.family.ID {
			return fmt.Errorf("submit: %w: command buffer %d belongs to family %d, queue to %d",
				ErrWrongQueueFamily, i, cb.pool.family, q.family.ID)
		}
		if err := cb.submittable(); err != nil {
			return fmt.Errorf("submit: command buffer %d: %w", i, err)
		}
		if err := claimOnce(seen, cb); err != nil {
			return fmt.Errorf("submit: command buffer %d listed twice: %w", i, err)
		}
		for _, sb := range cb.rec.secondaries {
			if err := sb.submittable(); err != nil {
				return fmt.Errorf("submit: secondary of command buffer %d: %w", i, err)
			}
			if err := claimOnce(seen, sb); err != nil {
				return fmt.Errorf("submit: secondary of command buffer %d executed twice: %w", i, err)
			}
		}
		rawBufs[i] = cb.raw
		bufs = append(bufs, cb)
		bufs = append(bufs, cb.rec.secondaries...)
	}
	raw := hal.Submission{
		CommandBuffers:   rawBufs,
		WaitSemaphores:   make([]hal.SemaphoreWait, len(s.WaitSemaphores)),
		SignalSemaphores: make([]hal.Semaphore, len(s.SignalSemaphores)),
	}
	for i, w := range s.WaitSemaphores {
		if err := d.use(w.Semaphore); err != nil {
			return fmt.Errorf("submit: wait semaphore %d: %w", i, err)
		}
		raw.WaitSemaphores[i] = hal.SemaphoreWait{Semaphore: w.Semaphore.raw, Stages: w.Stages}
	}
	for i, sem := range s.SignalSemaphores {
		if err := d.use(sem); err != nil {
			return fmt.Errorf("submit: signal semaphore %d: %w", i, err)
		}
		raw.SignalSemaphores[i] = sem.raw
	}
	var rawFence hal.Fence
	if fence != nil {
		if err := d.use(fence); err != nil {
			return fmt.Errorf("submit: %w", err)
		}
		rawFence = fence.raw
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if fence != nil {
		fence.mu.Lock()
		defer fence.mu.Unlock()
		if err := fence.arm(); err != nil {
			return fmt.Errorf("submit: fence: %w", err)
		}
	}
	if err := q.raw.Submit(raw, rawFence); err != nil {
		return fmt.Errorf("submit: %w", d.observe(err))
	}
	q.seq++
	sub := &submission{seq: q.seq, buffers: bufs, epochs: make([]uint64, len(bufs)), fence: fence}
	for i, cb := range bufs {
		sub.epochs[i] = cb.markPending()
	}
	if fence != nil {
		fence.queue = q
		fence.seq = q.seq
		fence.queued = true
	}
	q.pending = append(q.pending, sub)
	return nil
}

// Present queues image index of sc for presentation once waits are
// signaled. It returns ErrOutOfDate when the swapchain must be recreated.
func (q *Queue) Present(sc *Swapchain, index uint32, waits []*Semaphore) error {
	d := q.device
	if err := d.alive(); err != nil {
		return err
	}
	if err := d.use(sc); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	if int(index) >= len(sc.images) {
		return fmt.Errorf("present: %w: image %d of %d", ErrInvalidDesc, index, len(sc.images))
	}
	if !sc.surface.SupportsQueueFamily(q.family.ID) {
		return fmt.Errorf("present: %w: family %d cannot present", ErrWrongQueueFamily, q.family.ID)
	}
	raws := make([]hal.Semaphore, len(waits))
	for i, s := range waits {
		if err := d.use(s); err != nil {
			return fmt.Errorf("present: wait semaphore %d: %w", i, err)
		}
		raws[i] = s.raw
	}
	if err := q.raw.Present(sc.raw, index, raws); err != nil {
		return fmt.Errorf("present: %w", d.observe(err))
	}
	return nil
}

// WaitIdle blocks until every submission to the queue completes.
func (q *Queue) WaitIdle() error {
	d := q.device
	if err := d.alive(); err != nil {
		return err
	}
	if err := q.raw.WaitIdle(); err != nil {
		return fmt.Errorf("queue wait idle: %w", d.observe(err))
	}
	q.completeAll()
	return nil
}

// completeThrough completes every submission up to and including seq.
func (q *Queue) completeThrough(seq uint64) {
	q.mu.Lock()
	n := 0
	for n < len(q.pending) && q.pending[n].seq <= seq {
		n++
	}
	done := make([]*submission, n)
	copy(done, q.pending[:n])
	q.pending = append(q.pending[:0], q.pending[n:]...)
	q.mu.Unlock()
	q.finish(done)
}

func (q *Queue) completeAll() {
	q.mu.Lock()
	done := q.pending
	q.pending = nil
	q.mu.Unlock()
	q.finish(done)
}

func (q *Queue) finish(done []*submission) {
	for _, s := range done {
		for i, cb := range s.buffers {
			cb.complete(s.epochs[i])
		}
		if s.fence != nil {
			s.fence.markDone(q, s.seq)
		}
	}
}

// poll completes submissions whose fences the backend reports signaled.
// The latest signaled fence completes every submission before it.
func (q *Queue) poll() {
	q.mu.Lock()
	var fences []*Fence
	for _, s := range q.pending {
		if s.fence != nil {
			fences = append(fences, s.fence)
		}
	}
	q.mu.Unlock()
	for i := len(fences) - 1; i >= 0; i-- {
		if ok, err := fences[i].Status(); err != nil || ok {
			return
		}
	}
}

// WriteBuffer copies data into buf at offset and waits for the copy to
// complete. Host visible memory is written through a mapping; otherwise
// the data goes through a staging buffer and buf needs buffer.TransferDst
// usage.
func (q *Queue) WriteBuffer(buf *Buffer, offset uint64, data []byte) error {
	return q.transfer("write buffer", buf, offset, data, true)
}

// ReadBuffer copies len(data) bytes of buf at offset into data once the
// device is done with them. Memory that is not host visible is read
// through a staging buffer and buf needs buffer.TransferSrc usage.
func (q *Queue) ReadBuffer(buf *Buffer, offset uint64, data []byte) error {
	return q.transfer("read buffer", buf, offset, data, false)
}

func (q *Queue) transfer(op string, buf *Buffer, offset uint64, data []byte, write bool) error {
	d := q.device
	if err := d.alive(); err != nil {
		return err
	}
	if err := d.checkBuffer(buf, 0); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(data) == 0 {
		return nil
	}
	size := uint64(len(data))
	if err := checkRange(buf, buffer.SubRange{Offset: offset, Size: size}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	mem, memOffset := buf.Memory()
	if mem.props.Contains(memory.CPUVisible) {
		return d.copyMapped(op, mem, memOffset+offset, data, write)
	}

	usage, stagingUsage := buffer.TransferDst, buffer.TransferSrc
	if !write {
		usage, stagingUsage = buffer.TransferSrc, buffer.TransferDst
	}
	if !buf.desc.Usage.Contains(usage) {
		return fmt.Errorf("%s: %w: staging copy needs usage %#x", op, ErrInvalidUsage, usage)
	}
	staging, smem, err := d.CreateBoundBuffer(buffer.Desc{Label: "staging", Size: size, Usage: stagingUsage}, memory.CPUVisible)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer d.FreeMemory(smem)
	defer d.DestroyBuffer(staging)
	if write {
		if err := d.copyMapped(op, smem, 0, data, true); err != nil {
			return err
		}
	}

	cp, err := d.CreateCommandPool(q.family.ID, pool.Transient)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer d.DestroyCommandPool(cp)
	cb, err := cp.AllocateOne(command.Primary)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := cb.Begin(command.OneTimeSubmit, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	region := []command.BufferCopy{{Src: 0, Dst: offset, Size: size}}
	if write {
		err = cb.CopyBuffer(staging, buf, region)
	} else {
		region[0].Src, region[0].Dst = offset, 0
		err = cb.CopyBuffer(buf, staging, region)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := cb.End(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	fence, err := d.CreateFence(false)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer d.DestroyFence(fence)
	if err := q.Submit(Submission{CommandBuffers: []*CommandBuffer{cb}}, fence); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := fence.Wait(WaitForever); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !write {
		return d.copyMapped(op, smem, 0, data, false)
	}
	return nil
}

// copyMapped copies between data and host visible memory at offset.
func (d *Device) copyMapped(op string, m *Memory, offset uint64, data []byte, write bool) error {
	seg := memory.SegmentOf(offset, uint64(len(data)))
	mapped, err := d.MapMemory(m, seg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = d.UnmapMemory(m) }()
	if write {
		copy(mapped, data)
		return d.FlushMemory(m, seg)
	}
	if err := d.InvalidateMemory(m, seg); err != nil {
		return err
	}
	copy(data, mapped)
	return nil
}
