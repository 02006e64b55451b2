// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gfx/hal"
)

// Fence is signaled by the device when a submission completes and can be
// observed from the host.
//
// Observing a fence signaled completes its submission and every earlier
// submission of the same queue: their command buffers leave the Pending
// state.
type Fence struct {
	resource
	raw hal.Fence

	mu   sync.Mutex
	done bool
	// queue and seq identify the submission the fence was last given to.
	queue  *Queue
	seq    uint64
	queued bool
}

func (f *Fence) base() *resource {
	if f == nil {
		return nil
	}
	return &f.resource
}

// CreateFence creates a fence, optionally in the signaled state.
func (d *Device) CreateFence(signaled bool) (*Fence, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	raw, err := d.raw.CreateFence(signaled)
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", d.observe(err))
	}
	return &Fence{resource: resource{device: d}, raw: raw, done: signaled}, nil
}

// Status reports whether the fence is signaled without blocking.
func (f *Fence) Status() (bool, error) {
	d := f.device
	if err := d.alive(); err != nil {
		return false, err
	}
	if err := d.use(f); err != nil {
		return false, fmt.Errorf("fence status: %w", err)
	}
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return true, nil
	}
	f.mu.Unlock()
	ok, err := d.raw.FenceStatus(f.raw)
	if err != nil {
		return false, fmt.Errorf("fence status: %w", d.observe(err))
	}
	if ok {
		f.signaled()
	}
	return ok, nil
}

// Wait blocks until the fence is signaled or timeout elapses, in which
// case it returns ErrTimeout.
func (f *Fence) Wait(timeout time.Duration) error {
	return f.device.WaitForFences([]*Fence{f}, true, timeout)
}

// Reset returns the fence to the unsignaled state. A fence whose
// submission has not completed cannot be reset.
func (f *Fence) Reset() error {
	d := f.device
	if err := d.alive(); err != nil {
		return err
	}
	if err := d.use(f); err != nil {
		return fmt.Errorf("reset fence: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queued && !f.done {
		return fmt.Errorf("reset fence: %w", ErrPending)
	}
	if err := d.raw.ResetFence(f.raw); err != nil {
		return fmt.Errorf("reset fence: %w", d.observe(err))
	}
	f.done = false
	f.queued = false
	f.queue = nil
	return nil
}

// signaled records that the backend reported the fence signaled and
// completes its submission.
func (f *Fence) signaled() {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	q, seq, queued := f.queue, f.seq, f.queued
	f.queued = false
	f.mu.Unlock()
	if queued && q != nil {
		q.completeThrough(seq)
	}
}

// markDone records completion of submission seq of q, found through
// another fence or an idle wait.
func (f *Fence) markDone(q *Queue, seq uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queued && f.queue == q && f.seq == seq {
		f.done = true
		f.queued = false
	}
}

// arm checks that the fence can be given to a submission. The caller holds
// f.mu.
func (f *Fence) arm() error {
	if f.done {
		return ErrFenceSignaled
	}
	if f.queued {
		return ErrPending
	}
	return nil
}

// DestroyFence destroys f. Destroying a fence of pending work is not
// checked.
func (d *Device) DestroyFence(f *Fence) {
	if !d.release(f.base()) {
		return
	}
	d.raw.DestroyFence(f.raw)
}

// Destroy destroys the fence.
func (f *Fence) Destroy() { f.device.DestroyFence(f) }

// Semaphore orders work between submissions and presentation on the
// device. It cannot be observed from the host.
type Semaphore struct {
	resource
	raw hal.Semaphore
}

func (s *Semaphore) base() *resource {
	if s == nil {
		return nil
	}
	return &s.resource
}

// CreateSemaphore creates a semaphore.
func (d *Device) CreateSemaphore() (*Semaphore, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	raw, err := d.raw.CreateSemaphore()
	if err != nil {
		return nil, fmt.Errorf("create semaphore: %w", d.observe(err))
	}
	return &Semaphore{resource: resource{device: d}, raw: raw}, nil
}

// DestroySemaphore destroys s.
func (d *Device) DestroySemaphore(s *Semaphore) {
	if !d.release(s.base()) {
		return
	}
	d.raw.DestroySemaphore(s.raw)
}

// Destroy destroys the semaphore.
func (s *Semaphore) Destroy() { s.device.DestroySemaphore(s) }
