// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu_test

import (
	"errors"
	"slices"
	"testing"
	"time"

	wgpuhal "github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/backend/wgpu"
	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gfx/window"
)

const doubleWGSL = `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] * 2u;
}
`

func noopInstance() (wgpuhal.Instance, error) {
	api := noop.API{}
	return api.CreateInstance(nil)
}

type testDevice struct {
	pd     hal.PhysicalDevice
	device hal.Device
	queue  hal.Queue
}

// open opens the first noop adapter through the raw backend contract.
func open(t *testing.T, opts ...wgpu.Option) *testDevice {
	t.Helper()
	b := wgpu.New(append([]wgpu.Option{wgpu.WithInstanceFactory(noopInstance)}, opts...)...)
	inst, err := b.CreateInstance(hal.InstanceDesc{Name: "wgpu-test", Version: 1})
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	adapters := inst.EnumerateAdapters()
	if len(adapters) == 0 {
		inst.Destroy()
		t.Fatal("no adapters")
	}
	od, err := adapters[0].PhysicalDevice.Open([]hal.FamilyRequest{
		{Family: wgpu.FamilyGeneral, Priorities: []queue.Priority{1}},
	}, 0)
	if err != nil {
		inst.Destroy()
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		od.Device.Destroy()
		inst.Destroy()
	})
	return &testDevice{
		pd:     adapters[0].PhysicalDevice,
		device: od.Device,
		queue:  od.QueueGroups[0].Queues[0],
	}
}

func (td *testDevice) buffer(t *testing.T, size uint64, typ hal.MemoryTypeID) (hal.Buffer, hal.Memory) {
	t.Helper()
	b, err := td.device.CreateBuffer(buffer.Desc{Size: size, Usage: buffer.Storage | buffer.TransferDst | buffer.TransferSrc})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	req := td.device.BufferRequirements(b)
	m, err := td.device.AllocateMemory(typ, req.Size)
	if err != nil {
		t.Fatalf("AllocateMemory: %v", err)
	}
	if err := td.device.BindBufferMemory(m, 0, b); err != nil {
		t.Fatalf("BindBufferMemory: %v", err)
	}
	t.Cleanup(func() {
		td.device.DestroyBuffer(b)
		td.device.FreeMemory(m)
	})
	return b, m
}

// submit records fn into a fresh command buffer, submits it and waits.
func (td *testDevice) submit(t *testing.T, fn func(cb hal.CommandBuffer)) error {
	t.Helper()
	p, err := td.device.CreateCommandPool(wgpu.FamilyGeneral, 0)
	if err != nil {
		t.Fatalf("CreateCommandPool: %v", err)
	}
	cbs, err := p.Allocate(1, command.Primary)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	cb := cbs[0]
	cb.Begin(command.OneTimeSubmit, nil)
	fn(cb)
	cb.Finish()

	f, err := td.device.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	if err := td.queue.Submit(hal.Submission{CommandBuffers: []hal.CommandBuffer{cb}}, f); err != nil {
		return err
	}
	ok, err := td.device.WaitForFences([]hal.Fence{f}, true, 5*time.Second)
	if err != nil {
		return err
	}
	if !ok {
		t.Fatal("fence not signaled after 5s")
	}
	return nil
}

func TestRegistered(t *testing.T) {
	if !slices.Contains(hal.Backends(), hal.BackendWGPU) {
		t.Fatalf("Backends() = %v, want %q registered", hal.Backends(), hal.BackendWGPU)
	}
}

func TestInstanceFailure(t *testing.T) {
	cause := errors.New("no driver")
	b := wgpu.New(wgpu.WithInstanceFactory(func() (wgpuhal.Instance, error) { return nil, cause }))
	_, err := gfx.CreateInstance("wgpu-test", 1, gfx.WithHALBackend(b))
	if !errors.Is(err, gfx.ErrUnsupportedBackend) {
		t.Errorf("CreateInstance() = %v, want ErrUnsupportedBackend", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("CreateInstance() = %v, want the driver error wrapped", err)
	}
}

func TestAdapter(t *testing.T) {
	b := wgpu.New(wgpu.WithInstanceFactory(noopInstance))
	inst, err := b.CreateInstance(hal.InstanceDesc{Name: "wgpu-test"})
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	t.Cleanup(inst.Destroy)

	first := inst.EnumerateAdapters()
	second := inst.EnumerateAdapters()
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("adapter counts %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].PhysicalDevice != second[i].PhysicalDevice {
			t.Errorf("adapter %d changed identity between enumerations", i)
		}
		if first[i].Info.UUID != second[i].Info.UUID {
			t.Errorf("adapter %d UUID changed", i)
		}
	}

	a := first[0]
	if a.Info.Backend != hal.BackendWGPU {
		t.Errorf("Backend = %q, want %q", a.Info.Backend, hal.BackendWGPU)
	}
	if len(a.QueueFamilies) != 1 || !a.QueueFamilies[0].Type.SupportsCompute() {
		t.Errorf("QueueFamilies = %+v, want one compute family", a.QueueFamilies)
	}
	if p := a.PhysicalDevice.FormatProperties(format.RGBA8Unorm); p != (format.Properties{}) {
		t.Errorf("FormatProperties = %+v, want none", p)
	}
	if !a.PhysicalDevice.Features().Contains(hal.FeatureTimestampQuery) {
		t.Error("timestamps not reported")
	}
	if l := a.PhysicalDevice.Limits(); l.MaxBufferSize == 0 || l.MaxComputeWorkGroupSize[0] == 0 {
		t.Errorf("limits not translated: %+v", l)
	}

	if _, err := inst.CreateSurface(window.Handle{}); !errors.Is(err, wgpu.ErrNoPresentation) {
		t.Errorf("CreateSurface() = %v, want ErrNoPresentation", err)
	}
}

func TestMemory(t *testing.T) {
	td := open(t)
	host, err := td.device.AllocateMemory(wgpu.MemoryHostCoherent, 64)
	if err != nil {
		t.Fatalf("AllocateMemory: %v", err)
	}
	defer td.device.FreeMemory(host)
	data, err := td.device.MapMemory(host, memory.SegmentOf(16, 16))
	if err != nil {
		t.Fatalf("MapMemory: %v", err)
	}
	if len(data) != 16 {
		t.Errorf("mapped %d bytes, want 16", len(data))
	}
	if _, err := td.device.MapMemory(host, memory.SegmentOf(60, 8)); err == nil {
		t.Error("mapping past the allocation succeeded")
	}

	local, err := td.device.AllocateMemory(wgpu.MemoryDeviceLocal, 64)
	if err != nil {
		t.Fatalf("AllocateMemory: %v", err)
	}
	defer td.device.FreeMemory(local)
	if _, err := td.device.MapMemory(local, memory.WholeSegment()); !errors.Is(err, hal.ErrNotHostVisible) {
		t.Errorf("MapMemory(device local) = %v, want ErrNotHostVisible", err)
	}

	if _, err := td.device.AllocateMemory(wgpu.MemoryDeviceLocal, 1<<40); !errors.Is(err, hal.ErrOutOfDeviceMemory) {
		t.Errorf("huge allocation = %v, want ErrOutOfDeviceMemory", err)
	}
	if _, err := td.device.AllocateMemory(hal.MemoryTypeID(9), 4); err == nil {
		t.Error("allocation from unknown memory type succeeded")
	}
}

func TestBufferRequirements(t *testing.T) {
	td := open(t)
	b, err := td.device.CreateBuffer(buffer.Desc{Size: 10, Usage: buffer.Uniform})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	req := td.device.BufferRequirements(b)
	if req.Size != 12 {
		t.Errorf("Size = %d, want 12", req.Size)
	}
	for _, typ := range []hal.MemoryTypeID{wgpu.MemoryDeviceLocal, wgpu.MemoryHostCoherent} {
		if !req.Accepts(typ.Index()) {
			t.Errorf("memory type %d not accepted", typ)
		}
	}
}

func TestDescriptorLayouts(t *testing.T) {
	td := open(t)
	tests := []struct {
		name     string
		bindings []pso.DescriptorSetLayoutBinding
		wantErr  bool
	}{
		{"storage", []pso.DescriptorSetLayoutBinding{{Binding: 0, Type: pso.DescStorageBuffer, Count: 1, Stages: pso.StageCompute}}, false},
		{"uniform", []pso.DescriptorSetLayoutBinding{{Binding: 1, Type: pso.DescUniformBuffer, Count: 1, Stages: pso.StageCompute}}, false},
		{"sampler", []pso.DescriptorSetLayoutBinding{{Binding: 0, Type: pso.DescSampler, Count: 1, Stages: pso.StageCompute}}, true},
		{"array", []pso.DescriptorSetLayoutBinding{{Binding: 0, Type: pso.DescStorageBuffer, Count: 4, Stages: pso.StageCompute}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := td.device.CreateDescriptorSetLayout(tt.bindings)
			if tt.wantErr {
				if !errors.Is(err, wgpu.ErrUnsupportedBinding) {
					t.Errorf("CreateDescriptorSetLayout() = %v, want ErrUnsupportedBinding", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateDescriptorSetLayout() = %v", err)
			}
			td.device.DestroyDescriptorSetLayout(l)
		})
	}

	if _, err := td.device.CreatePipelineLayout(nil, []pso.PushConstantRange{{Stages: pso.StageCompute, Size: 4}}); !errors.Is(err, wgpu.ErrUnsupportedBinding) {
		t.Errorf("push constants = %v, want ErrUnsupportedBinding", err)
	}
}

func TestGraphicsUnsupported(t *testing.T) {
	td := open(t)
	_, err := td.device.CreateImage(image.Desc{
		Kind:      image.Kind2D(4, 4, 1, 1),
		MipLevels: 1,
		Format:    format.RGBA8Unorm,
		Usage:     image.Sampled,
	})
	if !errors.Is(err, wgpu.ErrGraphics) || !errors.Is(err, hal.ErrUnsupportedFormat) {
		t.Errorf("CreateImage() = %v, want ErrGraphics and ErrUnsupportedFormat", err)
	}
	if _, err := td.device.CreateQueryPool(query.Desc{Type: query.Occlusion, Count: 1}); err == nil {
		t.Error("occlusion query pool created")
	}
	if err := td.queue.Present(nil, 0, nil); !errors.Is(err, wgpu.ErrNoPresentation) {
		t.Errorf("Present() = %v, want ErrNoPresentation", err)
	}
}

func TestShaderModules(t *testing.T) {
	tests := []struct {
		name    string
		opts    []wgpu.Option
		src     pso.ShaderSource
		wantErr bool
	}{
		{"wgsl", nil, pso.ShaderSource{Label: "double", WGSL: doubleWGSL}, false},
		{"wgsl to spirv", []wgpu.Option{wgpu.WithSPIRV()}, pso.ShaderSource{Label: "double", WGSL: doubleWGSL}, false},
		{"empty", nil, pso.ShaderSource{Label: "empty"}, true},
		{"native only", nil, pso.ShaderSource{Label: "go", Native: func() {}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := open(t, tt.opts...)
			m, err := td.device.CreateShaderModule(tt.src)
			if tt.wantErr {
				if !errors.Is(err, hal.ErrUnsupportedShader) {
					t.Errorf("CreateShaderModule() = %v, want ErrUnsupportedShader", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateShaderModule() = %v", err)
			}
			td.device.DestroyShaderModule(m)
		})
	}
}

func TestCompileWGSL(t *testing.T) {
	words, err := wgpu.CompileWGSL(doubleWGSL)
	if err != nil {
		t.Fatalf("CompileWGSL() = %v", err)
	}
	const spirvMagic = 0x07230203
	if len(words) == 0 || words[0] != spirvMagic {
		t.Errorf("SPIR-V does not start with the magic number: %x", words[:min(len(words), 1)])
	}
	if _, err := wgpu.CompileWGSL("fn broken( {"); !errors.Is(err, hal.ErrUnsupportedShader) {
		t.Errorf("CompileWGSL(invalid) = %v, want ErrUnsupportedShader", err)
	}
}

// computeSetup builds a one-binding compute pipeline and a set pointing at
// the buffer.
func computeSetup(t *testing.T, td *testDevice, b hal.Buffer) (hal.ComputePipeline, hal.PipelineLayout, hal.DescriptorSet) {
	t.Helper()
	d := td.device
	sl, err := d.CreateDescriptorSetLayout([]pso.DescriptorSetLayoutBinding{
		{Binding: 0, Type: pso.DescStorageBuffer, Count: 1, Stages: pso.StageCompute},
	})
	if err != nil {
		t.Fatalf("CreateDescriptorSetLayout: %v", err)
	}
	pl, err := d.CreatePipelineLayout([]hal.DescriptorSetLayout{sl}, nil)
	if err != nil {
		t.Fatalf("CreatePipelineLayout: %v", err)
	}
	m, err := d.CreateShaderModule(pso.ShaderSource{Label: "double", WGSL: doubleWGSL})
	if err != nil {
		t.Fatalf("CreateShaderModule: %v", err)
	}
	p, err := d.CreateComputePipeline(&hal.ComputePipelineDesc{
		Label:  "double",
		Shader: pso.EntryPoint[hal.ShaderModule]{Entry: "main", Module: m},
		Layout: pl,
	})
	if err != nil {
		t.Fatalf("CreateComputePipeline: %v", err)
	}
	dp, err := d.CreateDescriptorPool(1, []pso.DescriptorRangeDesc{{Type: pso.DescStorageBuffer, Count: 1}}, 0)
	if err != nil {
		t.Fatalf("CreateDescriptorPool: %v", err)
	}
	set, err := dp.AllocateSet(sl)
	if err != nil {
		t.Fatalf("AllocateSet: %v", err)
	}
	if _, err := dp.AllocateSet(sl); !errors.Is(err, hal.ErrOutOfPoolMemory) {
		t.Errorf("second AllocateSet = %v, want ErrOutOfPoolMemory", err)
	}
	d.WriteDescriptorSets([]hal.DescriptorSetWrite{{
		Set:         set,
		Binding:     0,
		Descriptors: []hal.Descriptor{{Buffer: b, Range: buffer.Whole}},
	}})
	t.Cleanup(func() {
		d.DestroyComputePipeline(p)
		d.DestroyShaderModule(m)
		d.DestroyPipelineLayout(pl)
		d.DestroyDescriptorSetLayout(sl)
	})
	return p, pl, set
}

func TestComputeSubmission(t *testing.T) {
	td := open(t)
	data, _ := td.buffer(t, 256, wgpu.MemoryHostCoherent)
	scratch, _ := td.buffer(t, 256, wgpu.MemoryDeviceLocal)
	p, pl, set := computeSetup(t, td, data)

	qp, err := td.device.CreateQueryPool(query.Desc{Type: query.Timestamp, Count: 2})
	if err != nil {
		t.Fatalf("CreateQueryPool: %v", err)
	}
	err = td.submit(t, func(cb hal.CommandBuffer) {
		cb.ResetQueryPool(qp, query.Range{Start: 0, Count: 2})
		cb.WriteTimestamp(pso.TopOfPipe, qp, 0)
		cb.FillBuffer(scratch, buffer.Whole, 3)
		cb.CopyBuffer(scratch, data, []command.BufferCopy{{Src: 0, Dst: 0, Size: 256}})
		cb.BindComputePipeline(p)
		cb.BindComputeDescriptorSets(pl, 0, []hal.DescriptorSet{set}, nil)
		cb.Dispatch(hal.WorkGroupCount{1, 1, 1})
		cb.UpdateBuffer(data, 0, []byte{1, 2, 3, 4})
		cb.WriteTimestamp(pso.BottomOfPipe, qp, 1)
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	out := make([]byte, 32)
	ok, err := td.device.QueryPoolResults(qp, query.Range{Start: 0, Count: 2}, out, 16, query.Bits64|query.WithAvailability)
	if err != nil || !ok {
		t.Fatalf("QueryPoolResults() = %v, %v; want results available", ok, err)
	}
	start := leUint64(out[0:])
	end := leUint64(out[16:])
	if end < start {
		t.Errorf("timestamps go backwards: %d then %d", start, end)
	}
}

func TestBindGroupReuse(t *testing.T) {
	td := open(t, wgpu.WithBindGroupCache(1))
	first, _ := td.buffer(t, 64, wgpu.MemoryHostCoherent)
	second, _ := td.buffer(t, 64, wgpu.MemoryHostCoherent)
	p, pl, set := computeSetup(t, td, first)

	dispatch := func(cb hal.CommandBuffer) {
		cb.BindComputePipeline(p)
		cb.BindComputeDescriptorSets(pl, 0, []hal.DescriptorSet{set}, nil)
		cb.Dispatch(hal.WorkGroupCount{1, 1, 1})
	}
	for i := range 3 {
		if err := td.submit(t, dispatch); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	td.device.WriteDescriptorSets([]hal.DescriptorSetWrite{{
		Set:         set,
		Binding:     0,
		Descriptors: []hal.Descriptor{{Buffer: second, Range: buffer.Whole}},
	}})
	if err := td.submit(t, dispatch); err != nil {
		t.Fatalf("submit after rewrite: %v", err)
	}

	td.device.DestroyBuffer(first)
	if err := td.submit(t, dispatch); err != nil {
		t.Fatalf("submit after destroying the old buffer: %v", err)
	}
}

func TestSecondaryCommands(t *testing.T) {
	td := open(t)
	dst, _ := td.buffer(t, 16, wgpu.MemoryDeviceLocal)
	p, err := td.device.CreateCommandPool(wgpu.FamilyGeneral, 0)
	if err != nil {
		t.Fatalf("CreateCommandPool: %v", err)
	}
	secs, err := p.Allocate(1, command.Secondary)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	secs[0].Begin(0, nil)
	secs[0].FillBuffer(dst, buffer.Whole, 9)
	secs[0].Finish()

	err = td.submit(t, func(cb hal.CommandBuffer) {
		cb.ExecuteCommands(secs)
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestUnboundSetLosesDevice(t *testing.T) {
	td := open(t)
	data, _ := td.buffer(t, 64, wgpu.MemoryDeviceLocal)
	p, _, _ := computeSetup(t, td, data)

	err := td.submit(t, func(cb hal.CommandBuffer) {
		cb.BindComputePipeline(p)
		cb.Dispatch(hal.WorkGroupCount{1, 1, 1})
	})
	if !errors.Is(err, hal.ErrDeviceLost) {
		t.Fatalf("dispatch without sets = %v, want ErrDeviceLost", err)
	}
	if err := td.queue.Submit(hal.Submission{}, nil); !errors.Is(err, hal.ErrDeviceLost) {
		t.Errorf("Submit after loss = %v, want ErrDeviceLost", err)
	}
	if _, err := td.device.FenceStatus(mustFence(t, td.device)); !errors.Is(err, hal.ErrDeviceLost) {
		t.Errorf("FenceStatus after loss = %v, want ErrDeviceLost", err)
	}
}

func TestFrontLayer(t *testing.T) {
	b := wgpu.New(wgpu.WithInstanceFactory(noopInstance))
	inst, err := gfx.CreateInstance("wgpu-front", 1, gfx.WithHALBackend(b))
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	t.Cleanup(inst.Destroy)
	if inst.Backend() != hal.BackendWGPU {
		t.Errorf("Backend() = %q", inst.Backend())
	}
	a := inst.EnumerateAdapters()[0]
	g, err := a.Open([]gfx.QueueRequest{{Family: wgpu.FamilyGeneral, Priorities: []queue.Priority{1}}}, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	d := g.Device
	t.Cleanup(d.Destroy)

	buf, _, err := d.CreateBoundBuffer(buffer.Desc{Size: 64, Usage: buffer.Storage | buffer.TransferDst}, memory.CPUVisible)
	if err != nil {
		t.Fatalf("CreateBoundBuffer: %v", err)
	}
	pool, err := d.CreateCommandPool(wgpu.FamilyGeneral, 0)
	if err != nil {
		t.Fatalf("CreateCommandPool: %v", err)
	}
	cb, err := pool.AllocateOne(command.Primary)
	if err != nil {
		t.Fatalf("AllocateOne: %v", err)
	}
	if err := cb.Begin(command.OneTimeSubmit, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := cb.FillBuffer(buf, buffer.Whole, 7); err != nil {
		t.Fatalf("FillBuffer: %v", err)
	}
	if err := cb.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	f, err := d.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	q := g.QueueGroup(wgpu.FamilyGeneral).Queues[0]
	if err := q.Submit(gfx.Submission{CommandBuffers: []*gfx.CommandBuffer{cb}}, f); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := f.Wait(5 * time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if s := cb.State(); s != gfx.StateInvalid {
		t.Errorf("one time buffer state = %v, want Invalid", s)
	}
}

func mustFence(t *testing.T, d hal.Device) hal.Fence {
	t.Helper()
	f, err := d.CreateFence(false)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}
	return f
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
