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
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pass"
	"github.com/gogpu/gfx/pool"
	"github.com/gogpu/gfx/queue"
)

type testDevice struct {
	backend *software.Backend
	inst    *Instance
	adapter *Adapter
	gpu     *Gpu
	device  *Device
	general *Queue
}

// newTestDevice opens a software device with one general and one
// transfer queue.
func newTestDevice(t *testing.T, opts ...software.Option) *testDevice {
	t.Helper()
	b := software.New(opts...)
	inst, err := CreateInstance("gfx-test", 1, WithHALBackend(b))
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	a := inst.EnumerateAdapters()[0]
	gpu, err := a.Open([]QueueRequest{
		{Family: software.FamilyGeneral, Priorities: []queue.Priority{1}},
		{Family: software.FamilyTransfer, Priorities: []queue.Priority{0.5}},
	}, a.Features())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	td := &testDevice{
		backend: b,
		inst:    inst,
		adapter: a,
		gpu:     gpu,
		device:  gpu.Device,
		general: gpu.QueueGroup(software.FamilyGeneral).Queues[0],
	}
	t.Cleanup(func() {
		td.backend.Advance(td.backend.Held())
		td.device.Destroy()
		inst.Destroy()
	})
	return td
}

func (td *testDevice) pool(t *testing.T, family queue.FamilyID, flags pool.CreateFlags) *CommandPool {
	t.Helper()
	p, err := td.device.CreateCommandPool(family, flags)
	if err != nil {
		t.Fatalf("CreateCommandPool: %v", err)
	}
	return p
}

func (td *testDevice) buffer(t *testing.T, size uint64) *Buffer {
	t.Helper()
	b, _, err := td.device.CreateBoundBuffer(buffer.Desc{Size: size, Usage: buffer.TransferSrc | buffer.TransferDst}, memory.CPUVisible)
	if err != nil {
		t.Fatalf("CreateBoundBuffer: %v", err)
	}
	return b
}

func TestEnumerateAdaptersIdempotent(t *testing.T) {
	td := newTestDevice(t)
	first := td.inst.EnumerateAdapters()
	second := td.inst.EnumerateAdapters()
	if len(first) != len(second) {
		t.Fatalf("adapter count changed: %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("adapter %d is a new object on re-enumeration", i)
		}
	}
}

func TestOpenValidation(t *testing.T) {
	td := newTestDevice(t)
	a := td.adapter

	tests := []struct {
		name     string
		requests []QueueRequest
		features hal.Features
		want     error
	}{
		{"no queues", nil, 0, ErrInvalidQueueRequest},
		{"unknown family", []QueueRequest{{Family: 42, Priorities: []queue.Priority{1}}}, 0, ErrInvalidQueueRequest},
		{"duplicate family", []QueueRequest{
			{Family: software.FamilyGeneral, Priorities: []queue.Priority{1}},
			{Family: software.FamilyGeneral, Priorities: []queue.Priority{1}},
		}, 0, ErrInvalidQueueRequest},
		{"priority out of range", []QueueRequest{{Family: software.FamilyGeneral, Priorities: []queue.Priority{2}}}, 0, ErrInvalidQueueRequest},
		{"zero queues", []QueueRequest{{Family: software.FamilyGeneral}}, 0, ErrInvalidQueueRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gpu, err := a.Open(tt.requests, tt.features)
			if err == nil {
				gpu.Device.Destroy()
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Open() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenMissingFeature(t *testing.T) {
	b := software.New(software.WithFeatures(0))
	inst, err := CreateInstance("gfx-test", 1, WithHALBackend(b))
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	t.Cleanup(inst.Destroy)
	a := inst.EnumerateAdapters()[0]
	_, err = a.Open([]QueueRequest{{Family: software.FamilyGeneral, Priorities: []queue.Priority{1}}}, hal.FeatureGeometryShader)
	if !errors.Is(err, ErrMissingFeature) {
		t.Errorf("Open() = %v, want ErrMissingFeature", err)
	}
}

func TestImageLimits(t *testing.T) {
	td := newTestDevice(t, software.WithLimits(func(l *hal.Limits) {
		l.MaxImage2DSize = 64
		l.MaxImageArrayLayers = 4
	}))

	tests := []struct {
		name string
		desc image.Desc
		want error
	}{
		{"fits", image.Desc{Kind: image.Kind2D(64, 64, 4, 1), Format: format.RGBA8Unorm, Usage: image.Sampled}, nil},
		{"too wide", image.Desc{Kind: image.Kind2D(65, 1, 1, 1), Format: format.RGBA8Unorm, Usage: image.Sampled}, ErrUnsupportedFormat},
		{"too many layers", image.Desc{Kind: image.Kind2D(8, 8, 5, 1), Format: format.RGBA8Unorm, Usage: image.Sampled}, ErrUnsupportedFormat},
		{"too many levels", image.Desc{Kind: image.Kind2D(8, 8, 1, 1), MipLevels: 5, Format: format.RGBA8Unorm, Usage: image.Sampled}, ErrUnsupportedFormat},
		{"no usage", image.Desc{Kind: image.Kind2D(8, 8, 1, 1), Format: format.RGBA8Unorm}, ErrInvalidUsage},
		{"empty", image.Desc{Kind: image.Kind2D(0, 8, 1, 1), Format: format.RGBA8Unorm, Usage: image.Sampled}, ErrInvalidDesc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := td.device.CreateImage(tt.desc)
			if !errors.Is(err, tt.want) {
				t.Errorf("CreateImage() = %v, want %v", err, tt.want)
			}
			if err == nil {
				td.device.DestroyImage(img)
			}
		})
	}
}

func TestMemoryBinding(t *testing.T) {
	td := newTestDevice(t)
	d := td.device

	b, err := d.CreateBuffer(buffer.Desc{Size: 100, Usage: buffer.Storage})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	req := b.Requirements()
	if req.Size < 100 {
		t.Errorf("requirements size %d < buffer size", req.Size)
	}
	typ, ok := td.adapter.FindMemoryType(req, memory.CPUVisible)
	if !ok {
		t.Fatal("no host visible memory type")
	}
	mem, err := d.AllocateMemory(typ, req.Size*2)
	if err != nil {
		t.Fatalf("AllocateMemory: %v", err)
	}
	if err := d.BindBufferMemory(mem, 1, b); !errors.Is(err, ErrInvalidMemoryBinding) {
		t.Errorf("misaligned bind = %v, want ErrInvalidMemoryBinding", err)
	}
	if err := d.BindBufferMemory(mem, 0, b); err != nil {
		t.Fatalf("BindBufferMemory: %v", err)
	}
	if err := d.BindBufferMemory(mem, 0, b); !errors.Is(err, ErrAlreadyBound) {
		t.Errorf("second bind = %v, want ErrAlreadyBound", err)
	}

	data, err := d.MapMemory(mem, memory.WholeSegment())
	if err != nil {
		t.Fatalf("MapMemory: %v", err)
	}
	if uint64(len(data)) != mem.Size() {
		t.Errorf("mapping has %d bytes, want %d", len(data), mem.Size())
	}
	if _, err := d.MapMemory(mem, memory.WholeSegment()); !errors.Is(err, ErrAlreadyMapped) {
		t.Errorf("second map = %v, want ErrAlreadyMapped", err)
	}
	if err := d.UnmapMemory(mem); err != nil {
		t.Errorf("UnmapMemory: %v", err)
	}
	if err := d.UnmapMemory(mem); !errors.Is(err, ErrNotMapped) {
		t.Errorf("second unmap = %v, want ErrNotMapped", err)
	}
}

func TestRenderPassDescRoundTrip(t *testing.T) {
	td := newTestDevice(t)
	desc := pass.Desc{
		Label: "main",
		Attachments: []pass.Attachment{
			{Format: format.RGBA8Unorm, Samples: 1, Ops: pass.OpsClear, StencilOps: pass.OpsDontCare, FinalLayout: image.LayoutPresent},
			{Format: format.D32Float, Samples: 1, Ops: pass.OpsClear, StencilOps: pass.OpsDontCare, FinalLayout: image.LayoutDepthStencilAttachmentOptimal},
		},
		Subpasses: []pass.SubpassDesc{{
			Colors:       []pass.AttachmentRef{{Attachment: 0, Layout: image.LayoutColorAttachmentOptimal}},
			DepthStencil: &pass.AttachmentRef{Attachment: 1, Layout: image.LayoutDepthStencilAttachmentOptimal},
		}},
	}
	rp, err := td.device.CreateRenderPass(desc)
	if err != nil {
		t.Fatalf("CreateRenderPass: %v", err)
	}
	got := rp.Desc()
	if got.Label != desc.Label || len(got.Attachments) != 2 || len(got.Subpasses) != 1 {
		t.Fatalf("Desc() = %+v, want %+v", got, desc)
	}
	if got.Attachments[1] != desc.Attachments[1] {
		t.Errorf("attachment 1 = %+v, want %+v", got.Attachments[1], desc.Attachments[1])
	}
	if *got.Subpasses[0].DepthStencil != *desc.Subpasses[0].DepthStencil {
		t.Errorf("depth reference = %+v", *got.Subpasses[0].DepthStencil)
	}

	// The returned description is a copy.
	got.Subpasses[0].Colors[0].Attachment = 1
	if rp.Desc().Subpasses[0].Colors[0].Attachment != 0 {
		t.Error("mutating Desc() changed the render pass")
	}
}

func TestDeviceLost(t *testing.T) {
	td := newTestDevice(t)
	td.backend.LoseDevices()

	f, err := td.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	if _, err := f.Status(); !errors.Is(err, ErrDeviceLost) {
		t.Errorf("Status() = %v, want ErrDeviceLost", err)
	}
	if !td.device.IsLost() {
		t.Error("IsLost() = false after the backend reported loss")
	}
	if _, err := td.device.CreateFence(false); !errors.Is(err, ErrDeviceLost) {
		t.Errorf("CreateFence() on lost device = %v, want ErrDeviceLost", err)
	}
}

func TestWaitForFencesAny(t *testing.T) {
	td := newTestDevice(t, software.WithManualCompletion())
	d := td.device

	signaled, err := d.CreateFence(true)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	pending, err := d.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	if err := d.WaitForFences([]*Fence{pending, signaled}, false, 0); err != nil {
		t.Errorf("WaitForFences(any) = %v, want nil", err)
	}
	if err := d.WaitForFences([]*Fence{pending, signaled}, true, 10*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("WaitForFences(all) = %v, want ErrTimeout", err)
	}
}

func TestSubmitSignaledFence(t *testing.T) {
	td := newTestDevice(t)
	f, err := td.device.CreateFence(true)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	if err := td.general.Submit(Submission{}, f); !errors.Is(err, ErrFenceSignaled) {
		t.Errorf("Submit() = %v, want ErrFenceSignaled", err)
	}
}

func TestQueueFamilyMismatch(t *testing.T) {
	td := newTestDevice(t)
	p := td.pool(t, software.FamilyTransfer, 0)
	cb, err := p.AllocateOne(command.Primary)
	if err != nil {
		t.Fatalf("AllocateOne: %v", err)
	}
	if err := cb.Begin(0, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	err = td.general.Submit(Submission{CommandBuffers: []*CommandBuffer{cb}}, nil)
	if !errors.Is(err, ErrWrongQueueFamily) {
		t.Errorf("Submit() = %v, want ErrWrongQueueFamily", err)
	}
	if _, err := td.device.CreateCommandPool(software.FamilyCompute, 0); !errors.Is(err, ErrWrongQueueFamily) {
		t.Errorf("pool for unopened family = %v, want ErrWrongQueueFamily", err)
	}
}
