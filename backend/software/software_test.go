// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/backend/software"
	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pass"
	"github.com/gogpu/gfx/pool"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gfx/window"
)

type testGPU struct {
	backend *software.Backend
	inst    *gfx.Instance
	adapter *gfx.Adapter
	device  *gfx.Device
	queue   *gfx.Queue
}

// open creates an instance on a fresh software backend and opens one
// general queue with every adapter feature enabled.
func open(t *testing.T, opts ...software.Option) *testGPU {
	t.Helper()
	b := software.New(opts...)
	inst, err := gfx.CreateInstance("software-test", 1, gfx.WithHALBackend(b))
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	adapters := inst.EnumerateAdapters()
	if len(adapters) != 1 {
		t.Fatalf("EnumerateAdapters returned %d adapters, want 1", len(adapters))
	}
	a := adapters[0]
	gpu, err := a.Open([]gfx.QueueRequest{{Family: software.FamilyGeneral, Priorities: []queue.Priority{1}}}, a.Features())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	g := &testGPU{
		backend: b,
		inst:    inst,
		adapter: a,
		device:  gpu.Device,
		queue:   gpu.QueueGroup(software.FamilyGeneral).Queues[0],
	}
	t.Cleanup(func() {
		g.device.Destroy()
		inst.Destroy()
	})
	return g
}

func (g *testGPU) buffer(t *testing.T, size uint64, usage buffer.Usage) *gfx.Buffer {
	t.Helper()
	b, _, err := g.device.CreateBoundBuffer(buffer.Desc{Size: size, Usage: usage}, memory.CPUVisible)
	if err != nil {
		t.Fatalf("CreateBoundBuffer: %v", err)
	}
	return b
}

func (g *testGPU) record(t *testing.T, fn func(cb *gfx.CommandBuffer) error) *gfx.CommandBuffer {
	t.Helper()
	cp, err := g.device.CreateCommandPool(software.FamilyGeneral, pool.ResetIndividual)
	if err != nil {
		t.Fatalf("CreateCommandPool: %v", err)
	}
	cb, err := cp.AllocateOne(command.Primary)
	if err != nil {
		t.Fatalf("AllocateOne: %v", err)
	}
	if err := cb.Begin(command.OneTimeSubmit, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := fn(cb); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	return cb
}

// run submits cb and waits for it.
func (g *testGPU) run(t *testing.T, cb *gfx.CommandBuffer) {
	t.Helper()
	f, err := g.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	if err := g.queue.Submit(gfx.Submission{CommandBuffers: []*gfx.CommandBuffer{cb}}, f); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := f.Wait(5 * time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func words(vs ...uint32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

func TestAdapter(t *testing.T) {
	g := open(t, software.WithAdapterName("Test CPU"))

	info := g.adapter.Info()
	if info.Name != "Test CPU" {
		t.Errorf("Name = %q, want %q", info.Name, "Test CPU")
	}
	families := g.adapter.QueueFamilies()
	if len(families) != 3 {
		t.Fatalf("got %d queue families, want 3", len(families))
	}
	if _, ok := g.adapter.FindMemoryType(memory.Requirements{Size: 64, Alignment: 16, TypeMask: ^uint32(0)}, memory.CPUVisible); !ok {
		t.Error("no host visible memory type")
	}
	again := g.inst.EnumerateAdapters()
	if len(again) != 1 || again[0].Info().UUID != info.UUID {
		t.Error("enumeration is not stable")
	}
}

func TestHeapBudget(t *testing.T) {
	g := open(t, software.WithHeapSizes(1024, 1<<20))

	tests := []struct {
		name  string
		props memory.Properties
		size  uint64
		want  error
	}{
		{"fits", memory.DeviceLocal, 512, nil},
		{"device heap exhausted", memory.DeviceLocal, 4096, gfx.ErrOutOfDeviceMemory},
		{"host heap", memory.CPUVisible, 4096, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := g.device.CreateBoundBuffer(buffer.Desc{Size: tt.size, Usage: buffer.Storage}, tt.props)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMapDeviceLocal(t *testing.T) {
	g := open(t)
	_, mem, err := g.device.CreateBoundBuffer(buffer.Desc{Size: 64, Usage: buffer.Storage}, memory.DeviceLocal)
	if err != nil {
		t.Fatalf("CreateBoundBuffer: %v", err)
	}
	if _, err := g.device.MapMemory(mem, memory.WholeSegment()); !errors.Is(err, gfx.ErrNotHostVisible) {
		t.Errorf("MapMemory err = %v, want ErrNotHostVisible", err)
	}
}

func TestTransfers(t *testing.T) {
	g := open(t)
	usage := buffer.TransferSrc | buffer.TransferDst
	src := g.buffer(t, 16, usage)
	dst := g.buffer(t, 32, usage)

	if err := g.queue.WriteBuffer(src, 0, words(1, 2, 3, 4)); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	cb := g.record(t, func(cb *gfx.CommandBuffer) error {
		if err := cb.FillBuffer(dst, buffer.Whole, 0xAAAAAAAA); err != nil {
			return err
		}
		if err := cb.CopyBuffer(src, dst, []command.BufferCopy{{Src: 4, Dst: 8, Size: 8}}); err != nil {
			return err
		}
		return cb.UpdateBuffer(dst, 24, words(7))
	})
	g.run(t, cb)

	got := make([]byte, 32)
	if err := g.queue.ReadBuffer(dst, 0, got); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	want := words(0xAAAAAAAA, 0xAAAAAAAA, 2, 3, 0xAAAAAAAA, 0xAAAAAAAA, 7, 0xAAAAAAAA)
	if !bytes.Equal(got, want) {
		t.Errorf("dst = %x, want %x", got, want)
	}
	if s := cb.State(); s != gfx.StateInvalid {
		t.Errorf("one-time buffer state after completion = %v, want Invalid", s)
	}
}

func TestDeviceLocalStaging(t *testing.T) {
	g := open(t)
	b, _, err := g.device.CreateBoundBuffer(buffer.Desc{Size: 8, Usage: buffer.TransferSrc | buffer.TransferDst}, memory.DeviceLocal)
	if err != nil {
		t.Fatalf("CreateBoundBuffer: %v", err)
	}
	if err := g.queue.WriteBuffer(b, 0, words(5, 6)); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	got := make([]byte, 8)
	if err := g.queue.ReadBuffer(b, 0, got); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if !bytes.Equal(got, words(5, 6)) {
		t.Errorf("got %x", got)
	}
}

func collatz(n uint32) uint32 {
	var steps uint32
	for n > 1 {
		if n%2 == 0 {
			n /= 2
		} else {
			n = 3*n + 1
		}
		steps++
	}
	return steps
}

func TestComputeDispatch(t *testing.T) {
	g := open(t, software.WithWorkers(4))
	d := g.device

	input := []uint32{1, 2, 3, 4, 27, 97, 871, 6171}
	data := g.buffer(t, uint64(4*len(input)), buffer.Storage|buffer.TransferSrc|buffer.TransferDst)
	if err := g.queue.WriteBuffer(data, 0, words(input...)); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}

	module, err := d.CreateShaderModule(pso.ShaderSource{
		Label: "collatz",
		Native: software.Kernel(func(wg *software.WorkGroup) {
			i := int(wg.ID()[0])
			wg.PutUint32(0, 0, i, collatz(wg.Uint32(0, 0, i)))
		}),
	})
	if err != nil {
		t.Fatalf("CreateShaderModule: %v", err)
	}
	setLayout, err := d.CreateDescriptorSetLayout([]pso.DescriptorSetLayoutBinding{
		{Binding: 0, Type: pso.DescStorageBuffer, Count: 1, Stages: pso.StageCompute},
	})
	if err != nil {
		t.Fatalf("CreateDescriptorSetLayout: %v", err)
	}
	layout, err := d.CreatePipelineLayout([]*gfx.DescriptorSetLayout{setLayout}, nil)
	if err != nil {
		t.Fatalf("CreatePipelineLayout: %v", err)
	}
	pipeline, err := d.CreateComputePipeline(&gfx.ComputePipelineDesc{
		Label:  "collatz",
		Shader: gfx.EntryPoint{Entry: "main", Module: module},
		Layout: layout,
	})
	if err != nil {
		t.Fatalf("CreateComputePipeline: %v", err)
	}
	descPool, err := d.CreateDescriptorPool(1, []pso.DescriptorRangeDesc{{Type: pso.DescStorageBuffer, Count: 1}}, 0)
	if err != nil {
		t.Fatalf("CreateDescriptorPool: %v", err)
	}
	set, err := descPool.AllocateSet(setLayout)
	if err != nil {
		t.Fatalf("AllocateSet: %v", err)
	}
	if _, err := descPool.AllocateSet(setLayout); !errors.Is(err, gfx.ErrOutOfPoolMemory) {
		t.Errorf("second AllocateSet err = %v, want ErrOutOfPoolMemory", err)
	}
	err = d.WriteDescriptorSets([]gfx.DescriptorSetWrite{{
		Set:         set,
		Binding:     0,
		Descriptors: []gfx.Descriptor{gfx.BufferDescriptor(data, buffer.Whole)},
	}})
	if err != nil {
		t.Fatalf("WriteDescriptorSets: %v", err)
	}

	cb := g.record(t, func(cb *gfx.CommandBuffer) error {
		if err := cb.BindComputePipeline(pipeline); err != nil {
			return err
		}
		if err := cb.BindComputeDescriptorSets(layout, 0, []*gfx.DescriptorSet{set}, nil); err != nil {
			return err
		}
		//nolint:gosec // G115: small test input
		return cb.Dispatch([3]uint32{uint32(len(input)), 1, 1})
	})
	g.run(t, cb)

	got := make([]byte, 4*len(input))
	if err := g.queue.ReadBuffer(data, 0, got); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	for i, n := range input {
		if v := binary.LittleEndian.Uint32(got[4*i:]); v != collatz(n) {
			t.Errorf("steps(%d) = %d, want %d", n, v, collatz(n))
		}
	}
}

func TestManualCompletion(t *testing.T) {
	g := open(t, software.WithManualCompletion())
	dst := g.buffer(t, 4, buffer.TransferDst)

	cb := g.record(t, func(cb *gfx.CommandBuffer) error {
		return cb.FillBuffer(dst, buffer.Whole, 9)
	})
	f, err := g.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	if err := g.queue.Submit(gfx.Submission{CommandBuffers: []*gfx.CommandBuffer{cb}}, f); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if n := g.backend.Held(); n != 1 {
		t.Errorf("Held = %d, want 1", n)
	}
	if err := f.Wait(0); !errors.Is(err, gfx.ErrTimeout) {
		t.Errorf("Wait(0) before Advance = %v, want ErrTimeout", err)
	}
	if ok, _ := f.Status(); ok {
		t.Error("fence signaled before Advance")
	}
	if s := cb.State(); s != gfx.StatePending {
		t.Errorf("state = %v, want Pending", s)
	}
	if err := f.Reset(); !errors.Is(err, gfx.ErrPending) {
		t.Errorf("Reset of pending fence = %v, want ErrPending", err)
	}

	g.backend.Advance(1)
	if err := f.Wait(5 * time.Second); err != nil {
		t.Fatalf("Wait after Advance: %v", err)
	}
	if n := g.backend.Held(); n != 0 {
		t.Errorf("Held after Advance = %d, want 0", n)
	}
	if err := f.Reset(); err != nil {
		t.Errorf("Reset: %v", err)
	}
}

func TestSubmissionOrder(t *testing.T) {
	g := open(t, software.WithManualCompletion())
	dst := g.buffer(t, 4, buffer.TransferDst|buffer.TransferSrc)

	var fences []*gfx.Fence
	for v := range uint32(3) {
		cb := g.record(t, func(cb *gfx.CommandBuffer) error {
			return cb.FillBuffer(dst, buffer.Whole, v+1)
		})
		f, err := g.device.CreateFence(false)
		if err != nil {
			t.Fatalf("CreateFence: %v", err)
		}
		if err := g.queue.Submit(gfx.Submission{CommandBuffers: []*gfx.CommandBuffer{cb}}, f); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		fences = append(fences, f)
	}

	g.backend.Advance(1)
	if err := fences[0].Wait(5 * time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if ok, _ := fences[2].Status(); ok {
		t.Error("last submission completed before the second")
	}
	g.backend.Advance(2)
	if err := g.device.WaitForFences(fences, true, 5*time.Second); err != nil {
		t.Fatalf("WaitForFences: %v", err)
	}
	got := make([]byte, 4)
	if err := g.queue.ReadBuffer(dst, 0, got); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if v := binary.LittleEndian.Uint32(got); v != 3 {
		t.Errorf("final value = %d, want 3", v)
	}
}

func TestDeviceLoss(t *testing.T) {
	g := open(t, software.WithManualCompletion())
	dst := g.buffer(t, 4, buffer.TransferDst)
	cb := g.record(t, func(cb *gfx.CommandBuffer) error {
		return cb.FillBuffer(dst, buffer.Whole, 1)
	})
	f, err := g.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	if err := g.queue.Submit(gfx.Submission{CommandBuffers: []*gfx.CommandBuffer{cb}}, f); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	g.backend.LoseDevices()

	if err := f.Wait(gfx.WaitForever); !errors.Is(err, gfx.ErrDeviceLost) {
		t.Errorf("Wait = %v, want ErrDeviceLost", err)
	}
	if !g.device.IsLost() {
		t.Error("IsLost = false after a wait reported loss")
	}
	if err := g.queue.Submit(gfx.Submission{}, nil); !errors.Is(err, gfx.ErrDeviceLost) {
		t.Errorf("Submit after loss = %v, want ErrDeviceLost", err)
	}
}

func TestQueries(t *testing.T) {
	g := open(t)
	d := g.device

	timestamps, err := d.CreateQueryPool(query.Desc{Type: query.Timestamp, Count: 2})
	if err != nil {
		t.Fatalf("CreateQueryPool: %v", err)
	}
	results := g.buffer(t, 32, buffer.TransferDst)
	cb := g.record(t, func(cb *gfx.CommandBuffer) error {
		if err := cb.ResetQueryPool(timestamps, query.Range{Count: 2}); err != nil {
			return err
		}
		if err := cb.WriteTimestamp(pso.TopOfPipe, timestamps, 0); err != nil {
			return err
		}
		if err := cb.WriteTimestamp(pso.BottomOfPipe, timestamps, 1); err != nil {
			return err
		}
		return cb.CopyQueryPoolResults(timestamps, query.Range{Count: 2}, results, 0, 16, query.Bits64|query.WithAvailability)
	})
	g.run(t, cb)

	data := make([]byte, 32)
	ok, err := d.QueryPoolResults(timestamps, query.Range{Count: 2}, data, 8, query.Bits64|query.Wait)
	if err != nil || !ok {
		t.Fatalf("QueryPoolResults = %v, %v", ok, err)
	}
	t0, t1 := binary.LittleEndian.Uint64(data), binary.LittleEndian.Uint64(data[8:])
	if t1 < t0 {
		t.Errorf("timestamps decrease: %d then %d", t0, t1)
	}

	copied := make([]byte, 32)
	if err := g.queue.ReadBuffer(results, 0, copied); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	for i := range 2 {
		if avail := binary.LittleEndian.Uint64(copied[16*i+8:]); avail != 1 {
			t.Errorf("query %d availability = %d, want 1", i, avail)
		}
	}
}

// renderTarget builds a one subpass pass over a 4x4 RGBA8 image.
func renderTarget(t *testing.T, g *testGPU, ops pass.AttachmentOps) (*gfx.RenderPass, *gfx.Framebuffer, *gfx.Image) {
	t.Helper()
	d := g.device
	img, _, err := d.CreateBoundImage(image.Desc{
		Kind:   image.Kind2D(4, 4, 1, 1),
		Format: format.RGBA8Unorm,
		Usage:  image.ColorAttachment | image.TransferSrc,
	}, memory.DeviceLocal)
	if err != nil {
		t.Fatalf("CreateBoundImage: %v", err)
	}
	view, err := d.CreateImageView(img, image.ViewDesc{
		Kind:   image.View2D,
		Format: format.RGBA8Unorm,
		Range:  image.SubresourceRange{Aspects: format.AspectColor},
	})
	if err != nil {
		t.Fatalf("CreateImageView: %v", err)
	}
	rp, err := d.CreateRenderPass(pass.Desc{
		Attachments: []pass.Attachment{{
			Format:      format.RGBA8Unorm,
			Samples:     1,
			Ops:         ops,
			StencilOps:  pass.OpsDontCare,
			FinalLayout: image.LayoutTransferSrcOptimal,
		}},
		Subpasses: []pass.SubpassDesc{{
			Colors: []pass.AttachmentRef{{Attachment: 0, Layout: image.LayoutColorAttachmentOptimal}},
		}},
	})
	if err != nil {
		t.Fatalf("CreateRenderPass: %v", err)
	}
	fb, err := d.CreateFramebuffer(rp, []*gfx.ImageView{view}, image.Extent{Width: 4, Height: 4, Depth: 1})
	if err != nil {
		t.Fatalf("CreateFramebuffer: %v", err)
	}
	return rp, fb, img
}

func TestRenderPassClearAndDraw(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []software.DrawCall
	)
	g := open(t, software.WithDrawHook(func(call *software.DrawCall) {
		// Paint the first texel white to show the hook sees the target.
		copy(call.Colors[0].Pixels, []byte{255, 255, 255, 255})
		call.Samples = 42
		mu.Lock()
		calls = append(calls, *call)
		mu.Unlock()
	}))
	d := g.device
	rp, fb, img := renderTarget(t, g, pass.OpsClear)

	module, err := d.CreateShaderModule(pso.ShaderSource{WGSL: "@vertex fn vs() -> @builtin(position) vec4f { return vec4f(); }"})
	if err != nil {
		t.Fatalf("CreateShaderModule: %v", err)
	}
	layout, err := d.CreatePipelineLayout(nil, nil)
	if err != nil {
		t.Fatalf("CreatePipelineLayout: %v", err)
	}
	pipeline, err := d.CreateGraphicsPipeline(&gfx.GraphicsPipelineDesc{
		Label:          "triangle",
		Shaders:        gfx.GraphicsShaderSet{Vertex: gfx.EntryPoint{Entry: "vs", Module: module}},
		InputAssembler: pso.InputAssemblerDesc{Primitive: pso.TriangleList},
		Blender:        pso.BlendDesc{Targets: []pso.ColorBlendDesc{{Mask: pso.MaskAll}}},
		Layout:         layout,
		RenderPass:     rp,
	})
	if err != nil {
		t.Fatalf("CreateGraphicsPipeline: %v", err)
	}
	occlusion, err := d.CreateQueryPool(query.Desc{Type: query.Occlusion, Count: 1})
	if err != nil {
		t.Fatalf("CreateQueryPool: %v", err)
	}
	stats, err := d.CreateQueryPool(query.Desc{
		Type:       query.PipelineStatistics,
		Count:      1,
		Statistics: query.InputAssemblyVertices | query.InputAssemblyPrimitives,
	})
	if err != nil {
		t.Fatalf("CreateQueryPool: %v", err)
	}
	readback := g.buffer(t, 64, buffer.TransferDst)

	cb := g.record(t, func(cb *gfx.CommandBuffer) error {
		for _, p := range []*gfx.QueryPool{occlusion, stats} {
			if err := cb.ResetQueryPool(p, query.Range{Count: 1}); err != nil {
				return err
			}
		}
		clears := []command.ClearValue{{Color: command.ClearFloat(1, 0, 0, 1)}}
		if err := cb.BeginRenderPass(rp, fb, pso.Rect{W: 4, H: 4}, clears, command.Inline); err != nil {
			return err
		}
		if err := cb.BindGraphicsPipeline(pipeline); err != nil {
			return err
		}
		if err := cb.BeginQuery(occlusion, 0, 0); err != nil {
			return err
		}
		if err := cb.BeginQuery(stats, 0, 0); err != nil {
			return err
		}
		if err := cb.Draw(6, 2, 0, 0); err != nil {
			return err
		}
		if err := cb.EndQuery(stats, 0); err != nil {
			return err
		}
		if err := cb.EndQuery(occlusion, 0); err != nil {
			return err
		}
		if err := cb.EndRenderPass(); err != nil {
			return err
		}
		return cb.CopyImageToBuffer(img, image.LayoutTransferSrcOptimal, readback, []command.BufferImageCopy{{
			ImageLayers: image.SubresourceLayers{Aspects: format.AspectColor, LayerCount: 1},
			ImageExtent: image.Extent{Width: 4, Height: 4, Depth: 1},
		}})
	})
	g.run(t, cb)

	mu.Lock()
	if len(calls) != 1 {
		t.Fatalf("draw hook called %d times, want 1", len(calls))
	}
	call := calls[0]
	mu.Unlock()
	if call.VertexCount != 6 || call.InstanceCount != 2 {
		t.Errorf("draw = %d vertices x %d instances, want 6 x 2", call.VertexCount, call.InstanceCount)
	}

	pixels := make([]byte, 64)
	if err := g.queue.ReadBuffer(readback, 0, pixels); err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if !bytes.Equal(pixels[:4], []byte{255, 255, 255, 255}) {
		t.Errorf("texel 0 = %v, want hook output", pixels[:4])
	}
	if !bytes.Equal(pixels[4:8], []byte{255, 0, 0, 255}) {
		t.Errorf("texel 1 = %v, want clear color", pixels[4:8])
	}

	var samples [8]byte
	if ok, err := d.QueryPoolResults(occlusion, query.Range{Count: 1}, samples[:], 8, query.Bits64|query.Wait); err != nil || !ok {
		t.Fatalf("occlusion results = %v, %v", ok, err)
	}
	if n := binary.LittleEndian.Uint64(samples[:]); n != 42 {
		t.Errorf("occlusion samples = %d, want 42", n)
	}
	var counters [8]byte
	if ok, err := d.QueryPoolResults(stats, query.Range{Count: 1}, counters[:], 8, query.Wait); err != nil || !ok {
		t.Fatalf("statistics results = %v, %v", ok, err)
	}
	if v := binary.LittleEndian.Uint32(counters[:]); v != 12 {
		t.Errorf("input assembly vertices = %d, want 12", v)
	}
	if p := binary.LittleEndian.Uint32(counters[4:]); p != 4 {
		t.Errorf("input assembly primitives = %d, want 4", p)
	}
}

func TestSwapchain(t *testing.T) {
	g := open(t)
	d := g.device
	w := software.NewHeadlessWindow(8, 6)
	surface, err := g.inst.CreateSurface(w.Handle())
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	t.Cleanup(func() { g.inst.DestroySurface(surface) })
	if !surface.SupportsQueueFamily(software.FamilyGeneral) || surface.SupportsQueueFamily(software.FamilyTransfer) {
		t.Error("only the general family presents")
	}

	caps := surface.Capabilities(g.adapter)
	cfg := window.FromCapabilities(caps, window.Extent2D{Width: 8, Height: 6}, format.RGBA8Unorm)
	cfg.ImageUsage |= image.TransferDst
	sc, err := d.CreateSwapchain(surface, cfg, nil)
	if err != nil {
		t.Fatalf("CreateSwapchain: %v", err)
	}
	t.Cleanup(sc.Destroy)

	acquired, err := d.CreateSemaphore()
	if err != nil {
		t.Fatalf("CreateSemaphore: %v", err)
	}
	rendered, err := d.CreateSemaphore()
	if err != nil {
		t.Fatalf("CreateSemaphore: %v", err)
	}
	idx, err := sc.AcquireImage(time.Second, acquired, nil)
	if err != nil {
		t.Fatalf("AcquireImage: %v", err)
	}

	cb := g.record(t, func(cb *gfx.CommandBuffer) error {
		return cb.ClearColorImage(sc.Images()[idx], image.LayoutTransferDstOptimal,
			image.SubresourceRange{Aspects: format.AspectColor}, command.ClearFloat(0, 1, 0, 1))
	})
	err = g.queue.Submit(gfx.Submission{
		CommandBuffers:   []*gfx.CommandBuffer{cb},
		WaitSemaphores:   []gfx.SemaphoreWait{{Semaphore: acquired, Stages: pso.Transfer}},
		SignalSemaphores: []*gfx.Semaphore{rendered},
	}, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := g.queue.Present(sc, idx, []*gfx.Semaphore{rendered}); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if err := g.queue.WaitIdle(); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}

	if w.Frames() != 1 {
		t.Fatalf("Frames = %d, want 1", w.Frames())
	}
	frame, ok := w.LastFrame()
	if !ok {
		t.Fatal("LastFrame reported no frame")
	}
	if got := frame.RGBAAt(7, 5); got.G != 255 || got.R != 0 || got.A != 255 {
		t.Errorf("pixel = %v, want opaque green", got)
	}

	w.Resize(16, 12)
	if _, err := sc.AcquireImage(time.Second, nil, nil); !errors.Is(err, gfx.ErrOutOfDate) {
		t.Errorf("AcquireImage after resize = %v, want ErrOutOfDate", err)
	}
}
