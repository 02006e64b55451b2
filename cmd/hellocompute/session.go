// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/backend/software"
	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pool"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
	"github.com/gogpu/gfx/queue"
)

type result struct {
	steps []uint32
	// elapsed is zero when the adapter lacks timestamp queries.
	elapsed time.Duration
	// invocations counts compute shader invocations, or is zero when the
	// adapter lacks pipeline statistics.
	invocations uint64
}

// queryFeatures are the optional features the sample measures with.
const queryFeatures = hal.FeatureTimestampQuery | hal.FeaturePipelineStatisticsQuery

// queries holds the query pools of one session; either may be nil.
type queries struct {
	timestamps *gfx.QueryPool
	stats      *gfx.QueryPool
}

// collatz is the kernel: each work group replaces one number with its
// step count.
func collatz(wg *software.WorkGroup) {
	i := int(wg.ID()[0])
	n := wg.Uint32(0, 0, i)
	var steps uint32
	for n > 1 {
		if n%2 == 0 {
			n /= 2
		} else {
			n = 3*n + 1
		}
		steps++
	}
	wg.PutUint32(0, 0, i, steps)
}

// run opens a software device, dispatches the kernel over numbers and
// reads the results back. opts configure the software backend beyond its
// worker count.
func run(numbers []uint32, workers int, opts ...software.Option) (res result, err error) {
	if len(numbers) == 0 {
		return result{}, errors.New("no numbers")
	}
	inst, err := gfx.CreateInstance("hellocompute", 1, gfx.WithHALBackend(software.New(append(opts, software.WithWorkers(workers))...)))
	if err != nil {
		return result{}, err
	}
	defer inst.Destroy()

	adapter := inst.EnumerateAdapters()[0]
	features := adapter.Features() & queryFeatures
	gpu, err := adapter.Open([]gfx.QueueRequest{{Family: software.FamilyGeneral, Priorities: []queue.Priority{1}}}, features)
	if err != nil {
		return result{}, err
	}
	d := gpu.Device
	defer d.Destroy()
	q := gpu.QueueGroup(software.FamilyGeneral).Queues[0]

	size := uint64(4 * len(numbers))
	data, mem, err := d.CreateBoundBuffer(buffer.Desc{
		Label: "numbers",
		Size:  size,
		Usage: buffer.Storage | buffer.TransferSrc | buffer.TransferDst,
	}, memory.DeviceLocal)
	if err != nil {
		return result{}, err
	}
	defer d.FreeMemory(mem)
	defer d.DestroyBuffer(data)

	input := make([]byte, size)
	for i, n := range numbers {
		binary.LittleEndian.PutUint32(input[4*i:], n)
	}
	if err := q.WriteBuffer(data, 0, input); err != nil {
		return result{}, err
	}

	module, err := d.CreateShaderModule(pso.ShaderSource{Label: "collatz", Native: software.Kernel(collatz)})
	if err != nil {
		return result{}, err
	}
	defer d.DestroyShaderModule(module)
	setLayout, err := d.CreateDescriptorSetLayout([]pso.DescriptorSetLayoutBinding{
		{Binding: 0, Type: pso.DescStorageBuffer, Count: 1, Stages: pso.StageCompute},
	})
	if err != nil {
		return result{}, err
	}
	defer d.DestroyDescriptorSetLayout(setLayout)
	layout, err := d.CreatePipelineLayout([]*gfx.DescriptorSetLayout{setLayout}, nil)
	if err != nil {
		return result{}, err
	}
	defer d.DestroyPipelineLayout(layout)
	pipeline, err := d.CreateComputePipeline(&gfx.ComputePipelineDesc{
		Label:  "collatz",
		Shader: gfx.EntryPoint{Entry: "main", Module: module},
		Layout: layout,
	})
	if err != nil {
		return result{}, err
	}
	defer d.DestroyComputePipeline(pipeline)

	descPool, err := d.CreateDescriptorPool(1, []pso.DescriptorRangeDesc{{Type: pso.DescStorageBuffer, Count: 1}}, 0)
	if err != nil {
		return result{}, err
	}
	defer d.DestroyDescriptorPool(descPool)
	set, err := descPool.AllocateSet(setLayout)
	if err != nil {
		return result{}, err
	}
	if err := d.WriteDescriptorSets([]gfx.DescriptorSetWrite{{
		Set:         set,
		Binding:     0,
		Descriptors: []gfx.Descriptor{gfx.BufferDescriptor(data, buffer.Whole)},
	}}); err != nil {
		return result{}, err
	}

	var qs queries
	if features.Contains(hal.FeatureTimestampQuery) {
		qs.timestamps, err = d.CreateQueryPool(query.Desc{Type: query.Timestamp, Count: 2})
		if err != nil {
			return result{}, err
		}
		defer d.DestroyQueryPool(qs.timestamps)
	}
	if features.Contains(hal.FeaturePipelineStatisticsQuery) {
		qs.stats, err = d.CreateQueryPool(query.Desc{
			Type:       query.PipelineStatistics,
			Count:      1,
			Statistics: query.ComputeShaderInvocations,
		})
		if err != nil {
			return result{}, err
		}
		defer d.DestroyQueryPool(qs.stats)
	}

	cmdPool, err := d.CreateCommandPool(software.FamilyGeneral, pool.Transient)
	if err != nil {
		return result{}, err
	}
	defer d.DestroyCommandPool(cmdPool)
	cb, err := cmdPool.AllocateOne(command.Primary)
	if err != nil {
		return result{}, err
	}
	if err := record(cb, pipeline, layout, set, qs, uint32(len(numbers))); err != nil {
		return result{}, fmt.Errorf("record: %w", err)
	}

	fence, err := d.CreateFence(false)
	if err != nil {
		return result{}, err
	}
	defer d.DestroyFence(fence)
	if err := q.Submit(gfx.Submission{CommandBuffers: []*gfx.CommandBuffer{cb}}, fence); err != nil {
		return result{}, err
	}
	if err := fence.Wait(gfx.WaitForever); err != nil {
		return result{}, err
	}

	out := make([]byte, size)
	if err := q.ReadBuffer(data, 0, out); err != nil {
		return result{}, err
	}
	res.steps = make([]uint32, len(numbers))
	for i := range res.steps {
		res.steps[i] = binary.LittleEndian.Uint32(out[4*i:])
	}

	if qs.timestamps != nil {
		ticks := make([]byte, 16)
		if _, err := d.QueryPoolResults(qs.timestamps, query.Range{Start: 0, Count: 2}, ticks, 8, query.Bits64|query.Wait); err != nil {
			return result{}, err
		}
		start := binary.LittleEndian.Uint64(ticks)
		end := binary.LittleEndian.Uint64(ticks[8:])
		period := float64(adapter.Limits().TimestampPeriod)
		res.elapsed = time.Duration(float64(end-start) * period)
	}
	if qs.stats != nil {
		count := make([]byte, 8)
		if _, err := d.QueryPoolResults(qs.stats, query.Range{Start: 0, Count: 1}, count, 8, query.Bits64|query.Wait); err != nil {
			return result{}, err
		}
		res.invocations = binary.LittleEndian.Uint64(count)
	}
	return res, nil
}

func record(cb *gfx.CommandBuffer, p *gfx.ComputePipeline, layout *gfx.PipelineLayout, set *gfx.DescriptorSet, qs queries, groups uint32) error {
	if err := cb.Begin(command.OneTimeSubmit, nil); err != nil {
		return err
	}
	if qs.timestamps != nil {
		if err := cb.ResetQueryPool(qs.timestamps, query.Range{Start: 0, Count: 2}); err != nil {
			return err
		}
		if err := cb.WriteTimestamp(pso.TopOfPipe, qs.timestamps, 0); err != nil {
			return err
		}
	}
	if qs.stats != nil {
		if err := cb.ResetQueryPool(qs.stats, query.Range{Start: 0, Count: 1}); err != nil {
			return err
		}
		if err := cb.BeginQuery(qs.stats, 0, 0); err != nil {
			return err
		}
	}
	if err := cb.BindComputePipeline(p); err != nil {
		return err
	}
	if err := cb.BindComputeDescriptorSets(layout, 0, []*gfx.DescriptorSet{set}, nil); err != nil {
		return err
	}
	if err := cb.Dispatch([3]uint32{groups, 1, 1}); err != nil {
		return err
	}
	if qs.stats != nil {
		if err := cb.EndQuery(qs.stats, 0); err != nil {
			return err
		}
	}
	if qs.timestamps != nil {
		if err := cb.WriteTimestamp(pso.BottomOfPipe, qs.timestamps, 1); err != nil {
			return err
		}
	}
	return cb.End()
}
