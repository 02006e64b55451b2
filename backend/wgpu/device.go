// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	wgpuhal "github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/internal/cache"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pass"
	"github.com/gogpu/gfx/pool"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gfx/recording"
	"github.com/gogpu/gfx/window"
)

// Errors for work the WebGPU mapping cannot express.
var (
	// ErrGraphics is returned when creating images, render passes or
	// graphics pipelines.
	ErrGraphics = errors.New("wgpu: graphics is not supported")

	// ErrUnsupportedBinding is returned for descriptor layouts with
	// bindings other than single uniform or storage buffers, and for
	// push constants.
	ErrUnsupportedBinding = errors.New("wgpu: unsupported binding")
)

// device is a logical device over one native device and queue. Host
// synchronization state is guarded by mu; every change broadcasts on cond.
type device struct {
	pd       *physicalDevice
	raw      wgpuhal.Device
	rawQueue wgpuhal.Queue
	timeout  time.Duration

	// submitMu serializes native submissions on the native fence.
	submitMu   sync.Mutex
	native     wgpuhal.Fence
	fenceValue uint64

	// execMu serializes command execution. Bind groups leaving the cache
	// are retired and destroyed under execMu once no encoder uses them.
	execMu   sync.Mutex
	groups   *cache.LRU[groupKey, wgpuhal.BindGroup]
	retireMu sync.Mutex
	retired  []wgpuhal.BindGroup

	mu     sync.Mutex
	cond   *sync.Cond
	lost   bool
	closed bool

	heapUsed    []uint64
	allocations int

	queues  []*cmdQueue
	workers sync.WaitGroup
}

var _ hal.Device = (*device)(nil)

func newDevice(pd *physicalDevice, raw wgpuhal.Device, q wgpuhal.Queue) (*device, error) {
	f, err := raw.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	d := &device{
		pd:       pd,
		raw:      raw,
		rawQueue: q,
		timeout:  pd.backend.opts.timeout,
		native:   f,
		heapUsed: make([]uint64, len(pd.layout.Heaps)),
	}
	d.cond = sync.NewCond(&d.mu)
	d.groups = cache.New(pd.backend.opts.bindGroups, func(_ groupKey, g wgpuhal.BindGroup) {
		d.retireMu.Lock()
		d.retired = append(d.retired, g)
		d.retireMu.Unlock()
	})
	return d, nil
}

// forgetGroups drops the cached bind groups whose key matches.
func (d *device) forgetGroups(match func(groupKey) bool) {
	d.groups.DeleteFunc(func(k groupKey, _ wgpuhal.BindGroup) bool { return match(k) })
}

// destroyRetired destroys bind groups that left the cache. The caller
// holds execMu.
func (d *device) destroyRetired() {
	d.retireMu.Lock()
	retired := d.retired
	d.retired = nil
	d.retireMu.Unlock()
	for _, g := range retired {
		d.raw.DestroyBindGroup(g)
	}
}

func (d *device) lose(cause error) {
	d.mu.Lock()
	already := d.lost
	d.lost = true
	d.cond.Broadcast()
	d.mu.Unlock()
	if !already {
		slogger().Error("wgpu: device lost", "error", cause)
	}
}

// waitUntil blocks on cond until done reports true, the device is lost,
// or timeout elapses. The caller holds mu.
func (d *device) waitUntil(timeout time.Duration, done func() bool) (bool, error) {
	expired := false
	if timeout > 0 {
		t := time.AfterFunc(timeout, func() {
			d.mu.Lock()
			expired = true
			d.cond.Broadcast()
			d.mu.Unlock()
		})
		defer t.Stop()
	}
	for {
		if d.lost {
			return false, hal.ErrDeviceLost
		}
		if done() {
			return true, nil
		}
		if expired || timeout == 0 {
			return false, nil
		}
		d.cond.Wait()
	}
}

// submitNative submits cmd and waits for the native fence.
func (d *device) submitNative(cmd wgpuhal.CommandBuffer) error {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	d.fenceValue++
	if err := d.rawQueue.Submit([]wgpuhal.CommandBuffer{cmd}, d.native, d.fenceValue); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := d.raw.Wait(d.native, d.fenceValue, d.timeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait: %w", err)
	}
	if !ok {
		return fmt.Errorf("wgpu: submission %d did not finish in %v", d.fenceValue, d.timeout)
	}
	return nil
}

// ---- Memory ----

func (d *device) AllocateMemory(typ hal.MemoryTypeID, size uint64) (hal.Memory, error) {
	layout := d.pd.layout
	if typ.Index() >= len(layout.Types) {
		return nil, fmt.Errorf("wgpu: %v: %w", typ, hal.ErrOutOfDeviceMemory)
	}
	t := layout.Types[typ.Index()]
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.allocations >= int(d.pd.limits.MaxMemoryAllocationCount) {
		return nil, fmt.Errorf("wgpu: %d allocations: %w", d.allocations, hal.ErrTooManyObjects)
	}
	if d.heapUsed[t.HeapIndex]+size > layout.Heaps[t.HeapIndex].Size {
		err := hal.ErrOutOfDeviceMemory
		if !t.Properties.Contains(memory.DeviceLocal) {
			err = hal.ErrOutOfMemory
		}
		return nil, fmt.Errorf("wgpu: heap %d exhausted: %w", t.HeapIndex, err)
	}
	d.heapUsed[t.HeapIndex] += size
	d.allocations++
	return &deviceMemory{data: make([]byte, size), heap: t.HeapIndex, props: t.Properties}, nil
}

func (d *device) FreeMemory(m hal.Memory) {
	mem := m.(*deviceMemory)
	d.mu.Lock()
	d.heapUsed[mem.heap] -= uint64(len(mem.data))
	d.allocations--
	d.mu.Unlock()
}

func (d *device) MapMemory(m hal.Memory, seg memory.Segment) ([]byte, error) {
	mem := m.(*deviceMemory)
	if !mem.hostVisible() {
		return nil, hal.ErrNotHostVisible
	}
	start, end, ok := seg.Resolve(uint64(len(mem.data)))
	if !ok {
		return nil, fmt.Errorf("wgpu: map segment outside %d bytes: %w", len(mem.data), hal.ErrOutOfMemory)
	}
	return mem.data[start:end:end], nil
}

func (d *device) UnmapMemory(hal.Memory) {}

func (d *device) FlushMemory(m hal.Memory, seg memory.Segment) error {
	return checkSegment(m, seg)
}

func (d *device) InvalidateMemory(m hal.Memory, seg memory.Segment) error {
	return checkSegment(m, seg)
}

func checkSegment(m hal.Memory, seg memory.Segment) error {
	mem := m.(*deviceMemory)
	if _, _, ok := seg.Resolve(uint64(len(mem.data))); !ok {
		return fmt.Errorf("wgpu: segment outside %d bytes: %w", len(mem.data), hal.ErrOutOfMemory)
	}
	return nil
}

// ---- Buffers ----

func (d *device) CreateBuffer(desc buffer.Desc) (hal.Buffer, error) {
	return &buf{desc: desc, size: alignUp(max(desc.Size, copyAlignment), copyAlignment)}, nil
}

func (d *device) BufferRequirements(b hal.Buffer) memory.Requirements {
	return memory.Requirements{
		Size:      b.(*buf).size,
		Alignment: copyAlignment,
		TypeMask:  1<<MemoryDeviceLocal | 1<<MemoryHostCoherent,
	}
}

// BindBufferMemory creates the native buffer.
func (d *device) BindBufferMemory(m hal.Memory, offset uint64, b hal.Buffer) error {
	bf := b.(*buf)
	raw, err := d.raw.CreateBuffer(&wgpuhal.BufferDescriptor{
		Label: bf.desc.Label,
		Size:  bf.size,
		Usage: bufferUsage(bf.desc.Usage),
	})
	if err != nil {
		return fmt.Errorf("wgpu: create buffer: %w: %w", hal.ErrOutOfDeviceMemory, err)
	}
	bf.mem, bf.offset, bf.raw = m.(*deviceMemory), offset, raw
	return nil
}

func (d *device) DestroyBuffer(b hal.Buffer) {
	bf := b.(*buf)
	d.forgetGroups(func(k groupKey) bool { return k.set.uses(bf) })
	d.execMu.Lock()
	defer d.execMu.Unlock()
	d.destroyRetired()
	if bf.raw != nil {
		d.raw.DestroyBuffer(bf.raw)
		bf.raw = nil
	}
}

// ---- Images and render passes ----

func (d *device) CreateImage(desc image.Desc) (hal.Image, error) {
	return nil, fmt.Errorf("wgpu: image %v: %w: %w", desc.Format, ErrGraphics, hal.ErrUnsupportedFormat)
}

func (d *device) ImageRequirements(hal.Image) memory.Requirements { return memory.Requirements{} }

func (d *device) BindImageMemory(hal.Memory, uint64, hal.Image) error { return ErrGraphics }

func (d *device) DestroyImage(hal.Image) {}

func (d *device) CreateImageView(hal.Image, image.ViewDesc) (hal.ImageView, error) {
	return nil, ErrGraphics
}

func (d *device) DestroyImageView(hal.ImageView) {}

func (d *device) CreateSampler(image.SamplerDesc) (hal.Sampler, error) {
	return nil, ErrGraphics
}

func (d *device) DestroySampler(hal.Sampler) {}

func (d *device) CreateRenderPass(pass.Desc) (hal.RenderPass, error) {
	return nil, ErrGraphics
}

func (d *device) DestroyRenderPass(hal.RenderPass) {}

func (d *device) CreateFramebuffer(hal.RenderPass, []hal.ImageView, image.Extent) (hal.Framebuffer, error) {
	return nil, ErrGraphics
}

func (d *device) DestroyFramebuffer(hal.Framebuffer) {}

// ---- Shaders and pipelines ----

func (d *device) CreateShaderModule(src pso.ShaderSource) (hal.ShaderModule, error) {
	var code wgpuhal.ShaderSource
	switch {
	case src.WGSL != "" && d.pd.backend.opts.spirv:
		words, err := CompileWGSL(src.WGSL)
		if err != nil {
			return nil, err
		}
		code.SPIRV = words
	case src.WGSL != "":
		code.WGSL = src.WGSL
	case len(src.SPIRV) != 0:
		code.SPIRV = src.SPIRV
	default:
		return nil, fmt.Errorf("wgpu: shader %q has no WGSL or SPIR-V: %w", src.Label, hal.ErrUnsupportedShader)
	}
	raw, err := d.raw.CreateShaderModule(&wgpuhal.ShaderModuleDescriptor{Label: src.Label, Source: code})
	if err != nil {
		return nil, fmt.Errorf("wgpu: shader %q: %w: %w", src.Label, hal.ErrUnsupportedShader, err)
	}
	return &shaderModule{raw: raw}, nil
}

func (d *device) DestroyShaderModule(m hal.ShaderModule) {
	d.raw.DestroyShaderModule(m.(*shaderModule).raw)
}

func (d *device) CreateDescriptorSetLayout(bindings []pso.DescriptorSetLayoutBinding) (hal.DescriptorSetLayout, error) {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(bindings))
	for _, b := range bindings {
		e := gputypes.BindGroupLayoutEntry{Binding: b.Binding}
		switch {
		case b.Count > 1:
			return nil, fmt.Errorf("wgpu: binding %d is an array: %w", b.Binding, ErrUnsupportedBinding)
		case b.Type == pso.DescUniformBuffer:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		case b.Type == pso.DescStorageBuffer:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
		default:
			return nil, fmt.Errorf("wgpu: binding %d of type %v: %w", b.Binding, b.Type, ErrUnsupportedBinding)
		}
		if b.Stages&pso.StageCompute != 0 {
			e.Visibility |= gputypes.ShaderStageCompute
		}
		if b.Stages&pso.StageVertex != 0 {
			e.Visibility |= gputypes.ShaderStageVertex
		}
		if b.Stages&pso.StageFragment != 0 {
			e.Visibility |= gputypes.ShaderStageFragment
		}
		entries = append(entries, e)
	}
	raw, err := d.raw.CreateBindGroupLayout(&wgpuhal.BindGroupLayoutDescriptor{Label: "gfx", Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create bind group layout: %w", err)
	}
	return &descriptorSetLayout{bindings: append([]pso.DescriptorSetLayoutBinding(nil), bindings...), raw: raw}, nil
}

func (d *device) DestroyDescriptorSetLayout(l hal.DescriptorSetLayout) {
	sl := l.(*descriptorSetLayout)
	d.forgetGroups(func(k groupKey) bool { return k.layout == sl })
	d.raw.DestroyBindGroupLayout(sl.raw)
}

func (d *device) CreateDescriptorPool(maxSets int, _ []pso.DescriptorRangeDesc, _ pso.DescriptorPoolCreateFlags) (hal.DescriptorPool, error) {
	return &descriptorPool{d: d, maxSets: maxSets, sets: make(map[*descriptorSet]struct{})}, nil
}

func (d *device) DestroyDescriptorPool(p hal.DescriptorPool) {
	p.(*descriptorPool).Reset()
}

// WriteDescriptorSets stores the first descriptor of each write; bindings
// are never arrays.
func (d *device) WriteDescriptorSets(writes []hal.DescriptorSetWrite) {
	for _, w := range writes {
		if w.ArrayOffset != 0 || len(w.Descriptors) == 0 {
			continue
		}
		s := w.Set.(*descriptorSet)
		s.mu.Lock()
		s.bindings[w.Binding] = w.Descriptors[0]
		s.gen++
		s.mu.Unlock()
		d.forgetGroups(func(k groupKey) bool { return k.set == s })
	}
}

func (d *device) CreatePipelineLayout(sets []hal.DescriptorSetLayout, pushConstants []pso.PushConstantRange) (hal.PipelineLayout, error) {
	if len(pushConstants) != 0 {
		return nil, fmt.Errorf("wgpu: push constants: %w", ErrUnsupportedBinding)
	}
	l := &pipelineLayout{}
	raws := make([]wgpuhal.BindGroupLayout, 0, len(sets))
	for _, s := range sets {
		sl := s.(*descriptorSetLayout)
		l.sets = append(l.sets, sl)
		raws = append(raws, sl.raw)
	}
	raw, err := d.raw.CreatePipelineLayout(&wgpuhal.PipelineLayoutDescriptor{Label: "gfx", BindGroupLayouts: raws})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	l.raw = raw
	return l, nil
}

func (d *device) DestroyPipelineLayout(l hal.PipelineLayout) {
	d.raw.DestroyPipelineLayout(l.(*pipelineLayout).raw)
}

func (d *device) CreateGraphicsPipeline(*hal.GraphicsPipelineDesc) (hal.GraphicsPipeline, error) {
	return nil, ErrGraphics
}

func (d *device) DestroyGraphicsPipeline(hal.GraphicsPipeline) {}

func (d *device) CreateComputePipeline(desc *hal.ComputePipelineDesc) (hal.ComputePipeline, error) {
	layout := desc.Layout.(*pipelineLayout)
	raw, err := d.raw.CreateComputePipeline(&wgpuhal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.raw,
		Compute: wgpuhal.ComputeState{
			Module:     desc.Shader.Module.(*shaderModule).raw,
			EntryPoint: desc.Shader.Entry,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: compute pipeline %q: %w: %w", desc.Label, hal.ErrUnsupportedShader, err)
	}
	return &computePipeline{label: desc.Label, layout: layout, raw: raw}, nil
}

func (d *device) DestroyComputePipeline(p hal.ComputePipeline) {
	d.raw.DestroyComputePipeline(p.(*computePipeline).raw)
}

// ---- Command pools ----

type commandPool struct {
	mu      sync.Mutex
	buffers map[*commandBuffer]struct{}
}

type commandBuffer struct {
	recording.Recorder
	level command.Level
}

func (p *commandPool) Allocate(n int, level command.Level) ([]hal.CommandBuffer, error) {
	out := make([]hal.CommandBuffer, n)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range out {
		cb := &commandBuffer{level: level}
		p.buffers[cb] = struct{}{}
		out[i] = cb
	}
	return out, nil
}

func (p *commandPool) Free(bufs []hal.CommandBuffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range bufs {
		delete(p.buffers, b.(*commandBuffer))
	}
}

func (p *commandPool) Reset(releaseResources bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for cb := range p.buffers {
		cb.Reset(releaseResources)
	}
}

func (d *device) CreateCommandPool(queue.FamilyID, pool.CreateFlags) (hal.CommandPool, error) {
	return &commandPool{buffers: make(map[*commandBuffer]struct{})}, nil
}

func (d *device) DestroyCommandPool(hal.CommandPool) {}

// ---- Synchronization ----

func (d *device) CreateFence(signaled bool) (hal.Fence, error) {
	return &fence{signaled: signaled}, nil
}

func (d *device) ResetFence(f hal.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return hal.ErrDeviceLost
	}
	f.(*fence).signaled = false
	return nil
}

func (d *device) FenceStatus(f hal.Fence) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return false, hal.ErrDeviceLost
	}
	return f.(*fence).signaled, nil
}

func (d *device) WaitForFences(fences []hal.Fence, all bool, timeout time.Duration) (bool, error) {
	fs := make([]*fence, len(fences))
	for i, f := range fences {
		fs[i] = f.(*fence)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waitUntil(timeout, func() bool {
		for _, f := range fs {
			if f.signaled != all {
				return !all
			}
		}
		return all
	})
}

func (d *device) DestroyFence(hal.Fence) {}

func (d *device) CreateSemaphore() (hal.Semaphore, error) {
	return &semaphore{}, nil
}

func (d *device) DestroySemaphore(hal.Semaphore) {}

// ---- Queries ----

// CreateQueryPool supports timestamp pools only.
func (d *device) CreateQueryPool(desc query.Desc) (hal.QueryPool, error) {
	if desc.Type != query.Timestamp {
		return nil, fmt.Errorf("wgpu: %v queries: %w", desc.Type, ErrGraphics)
	}
	return newQueryPool(desc), nil
}

func (d *device) DestroyQueryPool(hal.QueryPool) {}

func (d *device) QueryPoolResults(p hal.QueryPool, r query.Range, data []byte, stride int, flags query.ResultFlags) (bool, error) {
	qp := p.(*queryPool)
	if flags&query.Wait != 0 {
		d.mu.Lock()
		_, err := d.waitUntil(hal.WaitForever, func() bool {
			_, avail := qp.snapshot(r)
			for _, a := range avail {
				if !a {
					return false
				}
			}
			return true
		})
		d.mu.Unlock()
		if err != nil {
			return false, err
		}
	}
	vals, avail := qp.snapshot(r)
	return query.EncodeResults(data, uint64(stride), vals, avail, flags), nil
}

// ---- Swapchains ----

func (d *device) CreateSwapchain(hal.Surface, window.SwapchainConfig, hal.Swapchain) (hal.Swapchain, []hal.Image, error) {
	return nil, nil, ErrNoPresentation
}

func (d *device) DestroySwapchain(hal.Swapchain) {}

// ---- Lifetime ----

func (d *device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.waitUntil(hal.WaitForever, func() bool {
		for _, q := range d.queues {
			if len(q.jobs) != 0 {
				return false
			}
		}
		return true
	})
	return err
}

func (d *device) Destroy() {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
	d.workers.Wait()
	d.groups.Purge()
	d.execMu.Lock()
	d.destroyRetired()
	d.execMu.Unlock()
	d.raw.DestroyFence(d.native)
	d.raw.Destroy()
	slogger().Debug("wgpu: device destroyed")
}
