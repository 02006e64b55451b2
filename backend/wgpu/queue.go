// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"github.com/gogpu/gfx/hal"
)

// job is one submission waiting on a queue.
type job struct {
	buffers []*commandBuffer
	waits   []*semaphore
	signals []*semaphore
	fence   *fence
}

// cmdQueue runs its jobs in order on one goroutine.
type cmdQueue struct {
	dev *device
	// jobs is guarded by dev.mu. The head stays in place while it runs.
	jobs []*job
}

var _ hal.Queue = (*cmdQueue)(nil)

func (d *device) newQueue() *cmdQueue {
	q := &cmdQueue{dev: d}
	d.queues = append(d.queues, q)
	d.workers.Add(1)
	go q.run()
	return q
}

func (q *cmdQueue) Submit(s hal.Submission, f hal.Fence) error {
	j := &job{}
	for _, cb := range s.CommandBuffers {
		j.buffers = append(j.buffers, cb.(*commandBuffer))
	}
	for _, w := range s.WaitSemaphores {
		j.waits = append(j.waits, w.Semaphore.(*semaphore))
	}
	for _, sem := range s.SignalSemaphores {
		j.signals = append(j.signals, sem.(*semaphore))
	}
	if f != nil {
		j.fence = f.(*fence)
	}

	d := q.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return hal.ErrDeviceLost
	}
	q.jobs = append(q.jobs, j)
	d.cond.Broadcast()
	return nil
}

func (q *cmdQueue) Present(hal.Swapchain, uint32, []hal.Semaphore) error {
	return ErrNoPresentation
}

func (q *cmdQueue) WaitIdle() error {
	d := q.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.waitUntil(hal.WaitForever, func() bool { return len(q.jobs) == 0 })
	return err
}

func (q *cmdQueue) run() {
	d := q.dev
	defer d.workers.Done()
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		for len(q.jobs) == 0 && !d.closed {
			d.cond.Wait()
		}
		if d.closed {
			return
		}
		j := q.jobs[0]
		for !d.closed && !d.lost && !ready(j.waits) {
			d.cond.Wait()
		}
		if d.closed {
			return
		}
		lost := d.lost
		if !lost {
			for _, s := range j.waits {
				s.signaled = false
			}
		}

		d.mu.Unlock()
		var err error
		if !lost {
			err = d.execute(j.buffers)
		}
		if err != nil {
			d.lose(err)
		}
		d.mu.Lock()

		q.jobs = q.jobs[1:]
		if !d.lost {
			for _, s := range j.signals {
				s.signaled = true
			}
			if j.fence != nil {
				j.fence.signaled = true
			}
		}
		d.cond.Broadcast()
	}
}

func ready(waits []*semaphore) bool {
	for _, s := range waits {
		if !s.signaled {
			return false
		}
	}
	return true
}
