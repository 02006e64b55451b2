// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/queue"
)

// job is one submission or presentation waiting on a queue.
type job struct {
	buffers []*commandBuffer
	waits   []*semaphore
	signals []*semaphore
	fence   *fence
	// gated jobs wait for advance in manual completion mode.
	gated bool

	present *swapchain
	index   uint32
}

// cmdQueue runs its jobs in order on one goroutine.
type cmdQueue struct {
	dev    *device
	family queue.FamilyID
	// jobs is guarded by dev.mu. The head stays in place while it runs.
	jobs []*job
}

var _ hal.Queue = (*cmdQueue)(nil)

func (d *device) newQueue(family queue.FamilyID) *cmdQueue {
	q := &cmdQueue{dev: d, family: family}
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
	return q.enqueue(j)
}

func (q *cmdQueue) Present(sc hal.Swapchain, index uint32, waits []hal.Semaphore) error {
	swap := sc.(*swapchain)
	j := &job{present: swap, index: index}
	for _, w := range waits {
		j.waits = append(j.waits, w.(*semaphore))
	}
	if err := q.enqueue(j); err != nil {
		return err
	}
	if swap.outOfDate() {
		return hal.ErrOutOfDate
	}
	return nil
}

func (q *cmdQueue) enqueue(j *job) error {
	d := q.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return hal.ErrDeviceLost
	}
	if d.manual && j.present == nil {
		j.gated = true
		d.holding++
	}
	q.jobs = append(q.jobs, j)
	d.cond.Broadcast()
	return nil
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
		if j.gated {
			for !d.closed && !d.lost && d.tokens == 0 {
				d.cond.Wait()
			}
			if d.closed {
				return
			}
			d.holding--
			d.tokens = max(d.tokens-1, 0)
		}
		lost := d.lost
		if !lost {
			for _, s := range j.waits {
				s.signaled = false
			}
		}

		d.mu.Unlock()
		if !lost {
			q.execute(j)
		}
		d.mu.Lock()

		q.jobs = q.jobs[1:]
		if !lost {
			for _, s := range j.signals {
				s.signaled = true
			}
			if j.fence != nil {
				j.fence.signaled = true
			}
		}
		if j.present != nil {
			j.present.release(j.index)
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

func (q *cmdQueue) execute(j *job) {
	if j.present != nil {
		j.present.show(j.index)
		return
	}
	for _, cb := range j.buffers {
		q.dev.execute(cb)
	}
}
