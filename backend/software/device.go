// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/internal/parallel"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pass"
	"github.com/gogpu/gfx/pool"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gfx/recording"
	"github.com/gogpu/gfx/window"
)

// device is a logical device. Queue state, fences, semaphores and the
// completion gate are guarded by mu; every change broadcasts on cond.
type device struct {
	pd       *physicalDevice
	features hal.Features
	pool     *parallel.WorkerPool
	drawHook DrawHook
	manual   bool

	mu   sync.Mutex
	cond *sync.Cond
	// lost is permanent once set.
	lost   bool
	closed bool
	// holding counts gated submissions that have not run yet; tokens of
	// them are released by advance.
	holding int
	tokens  int

	heapUsed    []uint64
	allocations int

	queues  []*cmdQueue
	workers sync.WaitGroup
}

var _ hal.Device = (*device)(nil)

func newDevice(pd *physicalDevice, features hal.Features) *device {
	o := pd.backend.opts
	d := &device{
		pd:       pd,
		features: features,
		pool:     parallel.NewWorkerPool(o.workers),
		drawHook: o.drawHook,
		manual:   o.manual,
		heapUsed: make([]uint64, len(pd.layout.Heaps)),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

func (d *device) advance(n int) {
	d.mu.Lock()
	d.tokens = min(d.tokens+n, d.holding)
	d.cond.Broadcast()
	d.mu.Unlock()
}

func (d *device) held() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.holding - d.tokens
}

func (d *device) lose() {
	d.mu.Lock()
	d.lost = true
	d.cond.Broadcast()
	d.mu.Unlock()
	slogger().Warn("software: device lost")
}

// waitUntil blocks on cond until done reports true, the device is lost,
// or timeout elapses. It reports whether done held. The caller holds mu.
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

// ---- Memory ----

func (d *device) AllocateMemory(typ hal.MemoryTypeID, size uint64) (hal.Memory, error) {
	layout := d.pd.layout
	if typ.Index() >= len(layout.Types) {
		return nil, fmt.Errorf("software: %v: %w", typ, hal.ErrOutOfDeviceMemory)
	}
	t := layout.Types[typ.Index()]
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.allocations >= int(d.pd.limits.MaxMemoryAllocationCount) {
		return nil, fmt.Errorf("software: %d allocations: %w", d.allocations, hal.ErrTooManyObjects)
	}
	if d.heapUsed[t.HeapIndex]+size > layout.Heaps[t.HeapIndex].Size {
		err := hal.ErrOutOfDeviceMemory
		if !t.Properties.Contains(memory.DeviceLocal) {
			err = hal.ErrOutOfMemory
		}
		return nil, fmt.Errorf("software: heap %d: %d of %d bytes used: %w",
			t.HeapIndex, d.heapUsed[t.HeapIndex], layout.Heaps[t.HeapIndex].Size, err)
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
	if !mem.props.Contains(memory.CPUVisible) {
		return nil, hal.ErrNotHostVisible
	}
	start, end, ok := seg.Resolve(uint64(len(mem.data)))
	if !ok {
		return nil, fmt.Errorf("software: map segment outside %d bytes: %w", len(mem.data), hal.ErrOutOfMemory)
	}
	return mem.data[start:end:end], nil
}

func (d *device) UnmapMemory(hal.Memory) {}

// Memory is coherent: flushes and invalidations only check their range.
func (d *device) FlushMemory(m hal.Memory, seg memory.Segment) error {
	return checkSegment(m, seg)
}

func (d *device) InvalidateMemory(m hal.Memory, seg memory.Segment) error {
	return checkSegment(m, seg)
}

func checkSegment(m hal.Memory, seg memory.Segment) error {
	mem := m.(*deviceMemory)
	if _, _, ok := seg.Resolve(uint64(len(mem.data))); !ok {
		return fmt.Errorf("software: segment outside %d bytes: %w", len(mem.data), hal.ErrOutOfMemory)
	}
	return nil
}

// ---- Buffers and images ----

func (d *device) CreateBuffer(desc buffer.Desc) (hal.Buffer, error) {
	return &buf{desc: desc}, nil
}

func (d *device) BufferRequirements(b hal.Buffer) memory.Requirements {
	return memory.Requirements{
		Size:      alignUp(b.(*buf).desc.Size, 4),
		Alignment: resourceAlignment,
		TypeMask:  allTypes,
	}
}

func (d *device) BindBufferMemory(m hal.Memory, offset uint64, b hal.Buffer) error {
	bf := b.(*buf)
	bf.mem, bf.offset = m.(*deviceMemory), offset
	return nil
}

func (d *device) DestroyBuffer(hal.Buffer) {}

func (d *device) CreateImage(desc image.Desc) (hal.Image, error) {
	if desc.Format.Desc().BytesPerTexel() == 0 {
		return nil, fmt.Errorf("software: %v: %w", desc.Format, hal.ErrUnsupportedFormat)
	}
	return newTexelImage(desc), nil
}

func (d *device) ImageRequirements(img hal.Image) memory.Requirements {
	return memory.Requirements{
		Size:      alignUp(img.(*texelImage).size, resourceAlignment),
		Alignment: resourceAlignment,
		TypeMask:  allTypes,
	}
}

func (d *device) BindImageMemory(m hal.Memory, offset uint64, img hal.Image) error {
	ti := img.(*texelImage)
	ti.mem, ti.offset = m.(*deviceMemory), offset
	return nil
}

func (d *device) DestroyImage(hal.Image) {}

func (d *device) CreateImageView(img hal.Image, desc image.ViewDesc) (hal.ImageView, error) {
	return &imageView{img: img.(*texelImage), desc: desc}, nil
}

func (d *device) DestroyImageView(hal.ImageView) {}

func (d *device) CreateSampler(desc image.SamplerDesc) (hal.Sampler, error) {
	return &sampler{desc: desc}, nil
}

func (d *device) DestroySampler(hal.Sampler) {}

// ---- Render passes ----

func (d *device) CreateRenderPass(desc pass.Desc) (hal.RenderPass, error) {
	return &renderPass{desc: desc.Clone()}, nil
}

func (d *device) DestroyRenderPass(hal.RenderPass) {}

func (d *device) CreateFramebuffer(rp hal.RenderPass, attachments []hal.ImageView, extent image.Extent) (hal.Framebuffer, error) {
	fb := &framebuffer{pass: rp.(*renderPass), extent: extent}
	for _, a := range attachments {
		fb.views = append(fb.views, a.(*imageView))
	}
	return fb, nil
}

func (d *device) DestroyFramebuffer(hal.Framebuffer) {}

// ---- Shaders and pipelines ----

// CreateShaderModule accepts a Kernel, a func(*WorkGroup) or a Program as
// src.Native. SPIR-V and WGSL modules are accepted for graphics stages,
// which never run; compute pipelines need a kernel.
func (d *device) CreateShaderModule(src pso.ShaderSource) (hal.ShaderModule, error) {
	m := &shaderModule{src: src}
	switch n := src.Native.(type) {
	case Kernel:
		m.program = Program{"": n}
	case func(*WorkGroup):
		m.program = Program{"": n}
	case Program:
		m.program = n
	case nil:
		if len(src.SPIRV) == 0 && src.WGSL == "" {
			return nil, fmt.Errorf("software: empty shader %q: %w", src.Label, hal.ErrUnsupportedShader)
		}
	default:
		return nil, fmt.Errorf("software: native shader of type %T: %w", n, hal.ErrUnsupportedShader)
	}
	return m, nil
}

func (d *device) DestroyShaderModule(hal.ShaderModule) {}

func (d *device) CreateDescriptorSetLayout(bindings []pso.DescriptorSetLayoutBinding) (hal.DescriptorSetLayout, error) {
	return &descriptorSetLayout{bindings: append([]pso.DescriptorSetLayoutBinding(nil), bindings...)}, nil
}

func (d *device) DestroyDescriptorSetLayout(hal.DescriptorSetLayout) {}

func (d *device) CreateDescriptorPool(maxSets int, _ []pso.DescriptorRangeDesc, flags pso.DescriptorPoolCreateFlags) (hal.DescriptorPool, error) {
	return &descriptorPool{maxSets: maxSets, flags: flags, sets: make(map[*descriptorSet]struct{})}, nil
}

func (d *device) DestroyDescriptorPool(hal.DescriptorPool) {}

func (d *device) WriteDescriptorSets(writes []hal.DescriptorSetWrite) {
	for _, w := range writes {
		s := w.Set.(*descriptorSet)
		s.mu.Lock()
		ds := s.bindings[w.Binding]
		if need := int(w.ArrayOffset) + len(w.Descriptors); len(ds) < need {
			ds = append(ds, make([]hal.Descriptor, need-len(ds))...)
		}
		copy(ds[w.ArrayOffset:], w.Descriptors)
		s.bindings[w.Binding] = ds
		s.mu.Unlock()
	}
}

func (d *device) CreatePipelineLayout(sets []hal.DescriptorSetLayout, pushConstants []pso.PushConstantRange) (hal.PipelineLayout, error) {
	l := &pipelineLayout{push: append([]pso.PushConstantRange(nil), pushConstants...)}
	for _, s := range sets {
		l.sets = append(l.sets, s.(*descriptorSetLayout))
	}
	return l, nil
}

func (d *device) DestroyPipelineLayout(hal.PipelineLayout) {}

func (d *device) CreateGraphicsPipeline(desc *hal.GraphicsPipelineDesc) (hal.GraphicsPipeline, error) {
	return &graphicsPipeline{desc: *desc}, nil
}

func (d *device) DestroyGraphicsPipeline(hal.GraphicsPipeline) {}

func (d *device) CreateComputePipeline(desc *hal.ComputePipelineDesc) (hal.ComputePipeline, error) {
	m := desc.Shader.Module.(*shaderModule)
	k, ok := m.program[desc.Shader.Entry]
	if !ok && len(m.program) == 1 {
		k, ok = m.program[""]
	}
	if !ok {
		return nil, fmt.Errorf("software: no kernel for entry point %q: %w", desc.Shader.Entry, hal.ErrUnsupportedShader)
	}
	return &computePipeline{
		label:  desc.Label,
		kernel: k,
		spec:   desc.Shader.Specialization.Clone(),
		layout: desc.Layout.(*pipelineLayout),
	}, nil
}

func (d *device) DestroyComputePipeline(hal.ComputePipeline) {}

// ---- Command pools ----

type commandPool struct {
	family queue.FamilyID
	flags  pool.CreateFlags

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

func (d *device) CreateCommandPool(family queue.FamilyID, flags pool.CreateFlags) (hal.CommandPool, error) {
	return &commandPool{family: family, flags: flags, buffers: make(map[*commandBuffer]struct{})}, nil
}

func (d *device) DestroyCommandPool(hal.CommandPool) {}

// ---- Synchronization ----

type fence struct {
	signaled bool
}

type semaphore struct {
	signaled bool
}

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

func (d *device) CreateQueryPool(desc query.Desc) (hal.QueryPool, error) {
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

func (d *device) CreateSwapchain(s hal.Surface, cfg window.SwapchainConfig, old hal.Swapchain) (hal.Swapchain, []hal.Image, error) {
	sf := s.(*surface)
	if old != nil {
		old.(*swapchain).retire()
	}
	sc := newSwapchain(d, sf.window, cfg)
	out := make([]hal.Image, len(sc.images))
	for i, img := range sc.images {
		out[i] = img
	}
	slogger().Debug("software: swapchain created", "images", len(out), "format", cfg.Format)
	return sc, out, nil
}

func (d *device) DestroySwapchain(sc hal.Swapchain) {
	sc.(*swapchain).retire()
}

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
	d.pool.Close()
	d.pd.backend.untrack(d)
	slogger().Debug("software: device destroyed")
}
