// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gfx/backend/software"
	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pool"
	"github.com/gogpu/gfx/queue"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateInitial, "Initial"},
		{StateRecording, "Recording"},
		{StateExecutable, "Executable"},
		{StatePending, "Pending"},
		{StateInvalid, "Invalid"},
		{State(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestCommandBufferLifecycle(t *testing.T) {
	td := newTestDevice(t, software.WithManualCompletion())
	cb, err := td.pool(t, software.FamilyGeneral, pool.ResetIndividual).AllocateOne(command.Primary)
	if err != nil {
		t.Fatalf("AllocateOne: %v", err)
	}
	dst := td.buffer(t, 16)

	step := func(name string, err error, want State) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got := cb.State(); got != want {
			t.Fatalf("after %s state = %v, want %v", name, got, want)
		}
	}

	step("allocate", nil, StateInitial)
	step("begin", cb.Begin(0, nil), StateRecording)
	step("fill", cb.FillBuffer(dst, buffer.Whole, 1), StateRecording)
	step("end", cb.End(), StateExecutable)

	f, err := td.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	step("submit", td.general.Submit(Submission{CommandBuffers: []*CommandBuffer{cb}}, f), StatePending)

	if err := cb.Reset(false); !errors.Is(err, ErrPending) {
		t.Errorf("Reset while pending = %v, want ErrPending", err)
	}
	if err := cb.Begin(0, nil); !errors.Is(err, ErrPending) {
		t.Errorf("Begin while pending = %v, want ErrPending", err)
	}
	if err := td.general.Submit(Submission{CommandBuffers: []*CommandBuffer{cb}}, nil); !errors.Is(err, ErrPending) {
		t.Errorf("resubmit without simultaneous use = %v, want ErrPending", err)
	}

	td.backend.Advance(1)
	step("wait", f.Wait(5*time.Second), StateExecutable)
	step("reset", cb.Reset(false), StateInitial)

	// Begin on an executable buffer resets it implicitly.
	step("begin", cb.Begin(command.OneTimeSubmit, nil), StateRecording)
	step("end", cb.End(), StateExecutable)
	step("begin again", cb.Begin(0, nil), StateRecording)
	if err := cb.Begin(0, nil); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("Begin while recording = %v, want ErrAlreadyRecording", err)
	}
}

func TestRecordingOutsideRecordingState(t *testing.T) {
	td := newTestDevice(t)
	cb, err := td.pool(t, software.FamilyGeneral, 0).AllocateOne(command.Primary)
	if err != nil {
		t.Fatalf("AllocateOne: %v", err)
	}
	dst := td.buffer(t, 16)

	record := []struct {
		name string
		fn   func() error
	}{
		{"fill", func() error { return cb.FillBuffer(dst, buffer.Whole, 0) }},
		{"update", func() error { return cb.UpdateBuffer(dst, 0, []byte{1, 2, 3, 4}) }},
		{"copy", func() error { return cb.CopyBuffer(dst, dst, []command.BufferCopy{{Src: 0, Dst: 8, Size: 4}}) }},
		{"end", cb.End},
	}
	for _, r := range record {
		if err := r.fn(); !errors.Is(err, ErrNotRecording) {
			t.Errorf("%s in Initial state = %v, want ErrNotRecording", r.name, err)
		}
	}
	if err := td.general.Submit(Submission{CommandBuffers: []*CommandBuffer{cb}}, nil); !errors.Is(err, ErrNotExecutable) {
		t.Errorf("submit of initial buffer = %v, want ErrNotExecutable", err)
	}

	if err := cb.Begin(0, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := cb.FillBuffer(dst, buffer.Whole, 0); !errors.Is(err, ErrNotRecording) {
		t.Errorf("fill in Executable state = %v, want ErrNotRecording", err)
	}
}

func TestResetNotAllowed(t *testing.T) {
	td := newTestDevice(t)
	cb, err := td.pool(t, software.FamilyGeneral, 0).AllocateOne(command.Primary)
	if err != nil {
		t.Fatalf("AllocateOne: %v", err)
	}
	if err := cb.Reset(false); !errors.Is(err, ErrResetNotAllowed) {
		t.Errorf("Reset() = %v, want ErrResetNotAllowed", err)
	}
	if err := cb.Begin(0, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := cb.Begin(0, nil); !errors.Is(err, ErrResetNotAllowed) {
		t.Errorf("implicit reset = %v, want ErrResetNotAllowed", err)
	}
}

func TestPoolResetInvalidatesBuffers(t *testing.T) {
	td := newTestDevice(t)
	p := td.pool(t, software.FamilyGeneral, 0)
	bufs, err := p.Allocate(3, command.Primary)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	// Leave the buffers in three different states.
	if err := bufs[1].Begin(0, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := bufs[2].Begin(0, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := bufs[2].End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	p.Reset(false)

	dst := td.buffer(t, 4)
	for i, cb := range bufs {
		if s := cb.State(); s != StateInvalid {
			t.Errorf("buffer %d state = %v, want Invalid", i, s)
		}
		if err := cb.FillBuffer(dst, buffer.Whole, 0); !errors.Is(err, ErrNotRecording) {
			t.Errorf("buffer %d records after pool reset: %v", i, err)
		}
		if err := td.general.Submit(Submission{CommandBuffers: []*CommandBuffer{cb}}, nil); !errors.Is(err, ErrNotExecutable) {
			t.Errorf("buffer %d submits after pool reset: %v", i, err)
		}
		if err := cb.Begin(0, nil); err != nil {
			t.Errorf("buffer %d cannot begin after pool reset: %v", i, err)
		}
	}
}

func TestFreedBuffer(t *testing.T) {
	td := newTestDevice(t)
	p := td.pool(t, software.FamilyGeneral, pool.ResetIndividual)
	cb, err := p.AllocateOne(command.Primary)
	if err != nil {
		t.Fatalf("AllocateOne: %v", err)
	}
	if err := p.Free(cb); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := p.Free(cb); err != nil {
		t.Errorf("second Free = %v, want nil", err)
	}
	if err := cb.Begin(0, nil); !errors.Is(err, ErrFreed) {
		t.Errorf("Begin after Free = %v, want ErrFreed", err)
	}
}

func TestSecondaryLevel(t *testing.T) {
	td := newTestDevice(t)
	p := td.pool(t, software.FamilyGeneral, 0)
	secondary, err := p.AllocateOne(command.Secondary)
	if err != nil {
		t.Fatalf("AllocateOne: %v", err)
	}
	primary, err := p.AllocateOne(command.Primary)
	if err != nil {
		t.Fatalf("AllocateOne: %v", err)
	}
	if err := primary.Begin(command.RenderPassContinue, &InheritanceInfo{}); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("inheritance on primary = %v, want ErrInvalidLevel", err)
	}

	dst := td.buffer(t, 8)
	if err := secondary.Begin(0, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := secondary.FillBuffer(dst, buffer.Whole, 5); err != nil {
		t.Fatalf("FillBuffer: %v", err)
	}
	if err := secondary.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := td.general.Submit(Submission{CommandBuffers: []*CommandBuffer{secondary}}, nil); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("submitting a secondary = %v, want ErrInvalidLevel", err)
	}

	if err := primary.Begin(0, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := primary.ExecuteCommands(secondary); err != nil {
		t.Fatalf("ExecuteCommands: %v", err)
	}
	if err := primary.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	f, err := td.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	if err := td.general.Submit(Submission{CommandBuffers: []*CommandBuffer{primary}}, f); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := f.Wait(5 * time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	got := make([]byte, 8)
	if err := td.general.ReadBuffer(dst, 0, got); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if got[0] != 5 || got[4] != 5 {
		t.Errorf("secondary commands did not run: %v", got)
	}
	if s := secondary.State(); s != StateExecutable {
		t.Errorf("secondary state after completion = %v, want Executable", s)
	}
}

func BenchmarkRecordFill(b *testing.B) {
	bk := software.New()
	inst, err := CreateInstance("bench", 1, WithHALBackend(bk))
	if err != nil {
		b.Fatal(err)
	}
	defer inst.Destroy()
	a := inst.EnumerateAdapters()[0]
	gpu, err := a.Open([]QueueRequest{{Family: software.FamilyGeneral, Priorities: []queue.Priority{1}}}, 0)
	if err != nil {
		b.Fatal(err)
	}
	defer gpu.Device.Destroy()
	d := gpu.Device
	dst, _, err := d.CreateBoundBuffer(buffer.Desc{Size: 256, Usage: buffer.TransferDst}, 0)
	if err != nil {
		b.Fatal(err)
	}
	p, err := d.CreateCommandPool(software.FamilyGeneral, pool.ResetIndividual)
	if err != nil {
		b.Fatal(err)
	}
	cb, err := p.AllocateOne(command.Primary)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for b.Loop() {
		_ = cb.Begin(0, nil)
		for range 16 {
			_ = cb.FillBuffer(dst, buffer.Whole, 0)
		}
		_ = cb.End()
	}
}

func (cb *CommandBuffer) pendingCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return int(cb.pending)
}

func TestDuplicateSubmission(t *testing.T) {
	tests := []struct {
		name    string
		flags   command.UsageFlags
		wantErr error
		// state and pending after the submit.
		state   State
		pending int
	}{
		{name: "single use", wantErr: ErrPending, state: StateExecutable, pending: 0},
		{name: "simultaneous use", flags: command.SimultaneousUse, state: StatePending, pending: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := newTestDevice(t, software.WithManualCompletion())
			cb, err := td.pool(t, software.FamilyGeneral, 0).AllocateOne(command.Primary)
			if err != nil {
				t.Fatalf("AllocateOne: %v", err)
			}
			dst := td.buffer(t, 16)
			if err := cb.Begin(tt.flags, nil); err != nil {
				t.Fatalf("Begin: %v", err)
			}
			if err := cb.FillBuffer(dst, buffer.Whole, 9); err != nil {
				t.Fatalf("FillBuffer: %v", err)
			}
			if err := cb.End(); err != nil {
				t.Fatalf("End: %v", err)
			}
			f, err := td.device.CreateFence(false)
			if err != nil {
				t.Fatalf("CreateFence: %v", err)
			}

			err = td.general.Submit(Submission{CommandBuffers: []*CommandBuffer{cb, cb}}, f)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Submit(cb, cb) = %v, want %v", err, tt.wantErr)
			}
			if s := cb.State(); s != tt.state {
				t.Errorf("state = %v, want %v", s, tt.state)
			}
			if n := cb.pendingCount(); n != tt.pending {
				t.Errorf("pending = %d, want %d", n, tt.pending)
			}
			if err != nil {
				return
			}
			td.backend.Advance(td.backend.Held())
			if err := f.Wait(5 * time.Second); err != nil {
				t.Fatalf("Wait: %v", err)
			}
			if s := cb.State(); s != StateExecutable {
				t.Errorf("state after completion = %v, want Executable", s)
			}
		})
	}
}

func TestDuplicateSecondary(t *testing.T) {
	td := newTestDevice(t)
	p := td.pool(t, software.FamilyGeneral, 0)
	dst := td.buffer(t, 8)
	secondary := func(flags command.UsageFlags) *CommandBuffer {
		t.Helper()
		sb, err := p.AllocateOne(command.Secondary)
		if err != nil {
			t.Fatalf("AllocateOne: %v", err)
		}
		if err := sb.Begin(flags, nil); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if err := sb.FillBuffer(dst, buffer.Whole, 1); err != nil {
			t.Fatalf("FillBuffer: %v", err)
		}
		if err := sb.End(); err != nil {
			t.Fatalf("End: %v", err)
		}
		return sb
	}
	primary := func() *CommandBuffer {
		t.Helper()
		cb, err := p.AllocateOne(command.Primary)
		if err != nil {
			t.Fatalf("AllocateOne: %v", err)
		}
		if err := cb.Begin(0, nil); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		return cb
	}

	once := secondary(0)
	cb := primary()
	if err := cb.ExecuteCommands(once, once); !errors.Is(err, ErrPending) {
		t.Errorf("ExecuteCommands(sb, sb) = %v, want ErrPending", err)
	}
	if err := cb.ExecuteCommands(once); err != nil {
		t.Fatalf("ExecuteCommands: %v", err)
	}
	if err := cb.ExecuteCommands(once); !errors.Is(err, ErrPending) {
		t.Errorf("second ExecuteCommands(sb) = %v, want ErrPending", err)
	}

	// Two primaries sharing one single use secondary cannot go together.
	other := primary()
	if err := other.ExecuteCommands(once); err != nil {
		t.Fatalf("ExecuteCommands: %v", err)
	}
	for _, b := range []*CommandBuffer{cb, other} {
		if err := b.End(); err != nil {
			t.Fatalf("End: %v", err)
		}
	}
	if err := td.general.Submit(Submission{CommandBuffers: []*CommandBuffer{cb, other}}, nil); !errors.Is(err, ErrPending) {
		t.Errorf("Submit of primaries sharing a secondary = %v, want ErrPending", err)
	}
	if s := once.State(); s != StateExecutable {
		t.Errorf("secondary state = %v, want Executable", s)
	}

	shared := secondary(command.SimultaneousUse)
	cb = primary()
	if err := cb.ExecuteCommands(shared, shared); err != nil {
		t.Errorf("ExecuteCommands of a simultaneous use secondary twice = %v", err)
	}
}

func TestBufferImageOffsetAlignment(t *testing.T) {
	td := newTestDevice(t)
	src, _, err := td.device.CreateBoundBuffer(buffer.Desc{Size: 4096, Usage: buffer.TransferSrc}, memory.CPUVisible)
	if err != nil {
		t.Fatalf("CreateBoundBuffer: %v", err)
	}
	tests := []struct {
		format  format.Format
		aspects format.Aspects
		offset  uint64
		ok      bool
	}{
		{format.RGBA8Unorm, format.AspectColor, 4, true},
		{format.RGBA8Unorm, format.AspectColor, 2, false},
		{format.RGBA16Float, format.AspectColor, 8, true},
		{format.RGBA16Float, format.AspectColor, 4, false},
		{format.RGBA32Float, format.AspectColor, 8, false},
		{format.RGBA32Float, format.AspectColor, 32, true},
		{format.D16Unorm, format.AspectDepth, 2, false},
		{format.D16Unorm, format.AspectDepth, 4, true},
	}
	for _, tt := range tests {
		img, _, err := td.device.CreateBoundImage(image.Desc{
			Kind:      image.Kind2D(4, 4, 1, 1),
			MipLevels: 1,
			Format:    tt.format,
			Usage:     image.TransferDst,
		}, memory.DeviceLocal)
		if err != nil {
			t.Fatalf("CreateBoundImage(%v): %v", tt.format, err)
		}
		r := command.BufferImageCopy{
			BufferOffset: tt.offset,
			ImageLayers:  image.SubresourceLayers{Aspects: tt.aspects, LayerCount: 1},
			ImageExtent:  image.Extent{Width: 4, Height: 4, Depth: 1},
		}
		err = checkBufferImageRegion(src, img, r)
		if tt.ok && err != nil {
			t.Errorf("%v offset %d: %v", tt.format, tt.offset, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidDesc) {
			t.Errorf("%v offset %d = %v, want ErrInvalidDesc", tt.format, tt.offset, err)
		}
	}
}
