// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"sync"

	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/pool"
)

// State is the lifecycle state of a command buffer.
type State uint8

// Command buffer states.
const (
	// StateInitial buffers are freshly allocated or reset.
	StateInitial State = iota
	// StateRecording buffers accept commands.
	StateRecording
	// StateExecutable buffers have finished recording and can be submitted.
	StateExecutable
	// StatePending buffers have been submitted and not yet completed.
	StatePending
	// StateInvalid buffers must be begun again before use.
	StateInvalid
)

var stateNames = [...]string{"Initial", "Recording", "Executable", "Pending", "Invalid"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// InheritanceInfo describes the render pass a secondary command buffer
// continues.
type InheritanceInfo struct {
	RenderPass *RenderPass
	Subpass    int
	// Framebuffer is optional.
	Framebuffer *Framebuffer
}

// CommandBuffer records commands for submission to a queue.
//
// Every recording method returns ErrNotRecording unless the buffer is in
// the Recording state, and checks its arguments before anything reaches
// the backend. A buffer must be recorded by one goroutine at a time.
type CommandBuffer struct {
	pool  *CommandPool
	raw   hal.CommandBuffer
	level command.Level

	// mu guards the lifecycle fields, which queues update on completion.
	mu      sync.Mutex
	state   State
	flags   command.UsageFlags
	freed   bool
	epoch   uint64
	pending int

	rec recordState
}

// recordState tracks what has been recorded since Begin.
type recordState struct {
	continues   bool
	pass        *RenderPass
	framebuffer *Framebuffer
	subpass     int
	contents    command.SubpassContents

	graphics   *GraphicsPipeline
	graphicsOK bool
	compute    *ComputePipeline
	index      *hal.IndexType
	vertex     uint64

	queries     map[queryKey]struct{}
	secondaries []*CommandBuffer
}

type queryKey struct {
	pool *QueryPool
	id   uint32
}

// Level returns the level the buffer was allocated with.
func (cb *CommandBuffer) Level() command.Level { return cb.level }

// Pool returns the pool the buffer was allocated from.
func (cb *CommandBuffer) Pool() *CommandPool { return cb.pool }

// State returns the current lifecycle state.
func (cb *CommandBuffer) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CommandBuffer) device() *Device { return cb.pool.device }

// Begin starts recording.
//
// Initial and Invalid buffers start recording directly. Executable
// buffers are reset implicitly, which requires pool.ResetIndividual.
// Secondary buffers that continue a render pass pass its inheritance;
// primary buffers must pass nil.
func (cb *CommandBuffer) Begin(flags command.UsageFlags, inheritance *InheritanceInfo) error {
	var rawInh *hal.InheritanceInfo
	rec := recordState{}
	if inheritance != nil || flags.Contains(command.RenderPassContinue) {
		if cb.level != command.Secondary {
			return fmt.Errorf("begin: %w: inheritance on a primary buffer", ErrInvalidLevel)
		}
	}
	if flags.Contains(command.RenderPassContinue) {
		if inheritance == nil {
			return fmt.Errorf("begin: %w: render pass continuation without inheritance", ErrInvalidDesc)
		}
		d := cb.device()
		if err := d.use(inheritance.RenderPass); err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		if inheritance.Subpass < 0 || inheritance.Subpass >= inheritance.RenderPass.NumSubpasses() {
			return fmt.Errorf("begin: %w: subpass %d", ErrInvalidSubpass, inheritance.Subpass)
		}
		rawInh = &hal.InheritanceInfo{RenderPass: inheritance.RenderPass.raw, Subpass: inheritance.Subpass}
		if fb := inheritance.Framebuffer; fb != nil {
			if err := d.use(fb); err != nil {
				return fmt.Errorf("begin: %w", err)
			}
			rawInh.Framebuffer = fb.raw
		}
		rec.continues = true
		rec.pass = inheritance.RenderPass
		rec.subpass = inheritance.Subpass
		rec.framebuffer = inheritance.Framebuffer
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.freed {
		return fmt.Errorf("begin: %w", ErrFreed)
	}
	switch cb.state {
	case StateRecording:
		return fmt.Errorf("begin: %w", ErrAlreadyRecording)
	case StatePending:
		return fmt.Errorf("begin: %w", ErrPending)
	case StateExecutable:
		if !cb.pool.flags.Contains(pool.ResetIndividual) {
			return fmt.Errorf("begin: %w: implicit reset of an executable buffer", ErrResetNotAllowed)
		}
	}
	cb.raw.Begin(flags, rawInh)
	cb.state = StateRecording
	cb.flags = flags
	cb.epoch++
	cb.pending = 0
	cb.rec = rec
	return nil
}

// End finishes recording and makes the buffer Executable.
func (cb *CommandBuffer) End() error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("end: %w", err)
	}
	if cb.rec.pass != nil && !cb.rec.continues {
		return fmt.Errorf("end: %w", ErrInsideRenderPass)
	}
	if len(cb.rec.queries) > 0 {
		return fmt.Errorf("end: %w: %d queries not ended", ErrQueryActive, len(cb.rec.queries))
	}
	cb.raw.Finish()
	cb.mu.Lock()
	cb.state = StateExecutable
	cb.mu.Unlock()
	return nil
}

// Reset returns the buffer to the Initial state. The pool must have been
// created with pool.ResetIndividual.
func (cb *CommandBuffer) Reset(releaseResources bool) error {
	if !cb.pool.flags.Contains(pool.ResetIndividual) {
		return fmt.Errorf("reset: %w", ErrResetNotAllowed)
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.freed {
		return fmt.Errorf("reset: %w", ErrFreed)
	}
	if cb.state == StatePending {
		return fmt.Errorf("reset: %w", ErrPending)
	}
	cb.raw.Reset(releaseResources)
	cb.state = StateInitial
	cb.epoch++
	cb.pending = 0
	cb.rec = recordState{}
	return nil
}

// recording fails unless the buffer accepts commands.
func (cb *CommandBuffer) recording() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.freed {
		return ErrFreed
	}
	if cb.state != StateRecording {
		return fmt.Errorf("%w: state %v", ErrNotRecording, cb.state)
	}
	return nil
}

// outsidePass fails unless the buffer is recording outside a render pass.
func (cb *CommandBuffer) outsidePass(op string) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cb.rec.pass != nil {
		return fmt.Errorf("%s: %w", op, ErrInsideRenderPass)
	}
	return nil
}

// insidePass fails unless the buffer is recording inline commands inside
// a render pass.
func (cb *CommandBuffer) insidePass(op string) error {
	if err := cb.recording(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cb.rec.pass == nil {
		return fmt.Errorf("%s: %w", op, ErrOutsideRenderPass)
	}
	if !cb.rec.continues && cb.rec.contents == command.SecondaryBuffers {
		return fmt.Errorf("%s: %w: subpass contents are secondary buffers", op, ErrInvalidLevel)
	}
	return nil
}

// markPending moves the buffer to Pending for one more submission and
// returns the epoch completion must match.
func (cb *CommandBuffer) markPending() uint64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StatePending
	cb.pending++
	return cb.epoch
}

// complete ends one submission of the buffer recorded at epoch.
func (cb *CommandBuffer) complete(epoch uint64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.epoch != epoch || cb.state != StatePending {
		return
	}
	cb.pending--
	if cb.pending > 0 {
		return
	}
	if cb.flags.Contains(command.OneTimeSubmit) {
		cb.state = StateInvalid
	} else {
		cb.state = StateExecutable
	}
}

// simultaneous reports whether the buffer was begun with
// command.SimultaneousUse and may be pending more than once.
func (cb *CommandBuffer) simultaneous() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.flags.Contains(command.SimultaneousUse)
}

// claimOnce records cb in seen and fails with ErrPending when it was
// already there and cannot be pending twice.
func claimOnce(seen map[*CommandBuffer]bool, cb *CommandBuffer) error {
	if seen[cb] && !cb.simultaneous() {
		return ErrPending
	}
	seen[cb] = true
	return nil
}

// submittable reports why the buffer cannot be submitted, or nil.
func (cb *CommandBuffer) submittable() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.freed {
		return ErrFreed
	}
	switch cb.state {
	case StateExecutable:
		return nil
	case StatePending:
		if cb.flags.Contains(command.SimultaneousUse) {
			return nil
		}
		return ErrPending
	default:
		return fmt.Errorf("%w: state %v", ErrNotExecutable, cb.state)
	}
}
