// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"reflect"
	"testing"

	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/pso"
	"github.com/gogpu/gfx/query"
)

type handle struct{ name string }

func recordSample(r *Recorder) {
	src, dst := &handle{"src"}, &handle{"dst"}
	r.CopyBuffer(src, dst, []command.BufferCopy{{Src: 0, Dst: 16, Size: 16}})
	r.FillBuffer(dst, buffer.Whole, 0xdeadbeef)
	r.UpdateBuffer(dst, 4, []byte{1, 2, 3, 4})
	r.BindComputePipeline(&handle{"pipeline"})
	r.BindComputeDescriptorSets(&handle{"layout"}, 0, []hal.DescriptorSet{&handle{"set"}}, nil)
	r.PushComputeConstants(&handle{"layout"}, 0, []uint32{7})
	r.Dispatch(hal.WorkGroupCount{4, 1, 1})
	r.ResetQueryPool(&handle{"queries"}, query.Range{Start: 0, Count: 1})
	r.WriteTimestamp(pso.BottomOfPipe, &handle{"queries"}, 0)
}

func TestRecorderLifecycle(t *testing.T) {
	r := NewRecorder()
	if r.IsRecording() {
		t.Fatal("new Recorder is recording")
	}
	r.Begin(command.OneTimeSubmit, nil)
	if !r.IsRecording() || r.Flags() != command.OneTimeSubmit {
		t.Fatalf("after Begin: recording=%v flags=%v", r.IsRecording(), r.Flags())
	}
	recordSample(r)
	r.Finish()
	if r.IsRecording() {
		t.Error("still recording after Finish")
	}
	if r.Len() != 9 {
		t.Fatalf("Len() = %d, want 9", r.Len())
	}
	want := []CommandType{
		CmdCopyBuffer, CmdFillBuffer, CmdUpdateBuffer, CmdBindComputePipeline,
		CmdBindComputeDescriptorSets, CmdPushComputeConstants, CmdDispatch,
		CmdResetQueryPool, CmdWriteTimestamp,
	}
	for i, c := range r.Commands() {
		if c.Type() != want[i] {
			t.Errorf("Commands()[%d] = %v, want %v", i, c.Type(), want[i])
		}
	}

	r.Begin(0, nil)
	if r.Len() != 0 {
		t.Errorf("Begin did not discard commands: Len() = %d", r.Len())
	}
	r.Reset(false)
	if r.Len() != 0 || r.IsRecording() {
		t.Error("Reset did not clear the Recorder")
	}
}

func TestRecorderCopiesInputs(t *testing.T) {
	r := NewRecorder()
	r.Begin(0, nil)
	data := []byte{1, 2, 3}
	regions := []command.BufferCopy{{Size: 4}}
	r.UpdateBuffer(&handle{}, 0, data)
	r.CopyBuffer(&handle{}, &handle{}, regions)
	data[0] = 9
	regions[0].Size = 99

	if got := r.Commands()[0].(UpdateBufferCommand).Data[0]; got != 1 {
		t.Errorf("UpdateBuffer data aliased caller slice: %d", got)
	}
	if got := r.Commands()[1].(CopyBufferCommand).Regions[0].Size; got != 4 {
		t.Errorf("CopyBuffer regions aliased caller slice: %d", got)
	}
}

func TestRecorderInheritance(t *testing.T) {
	r := NewRecorder()
	inh := hal.InheritanceInfo{RenderPass: &handle{"rp"}, Subpass: 1}
	r.Begin(command.RenderPassContinue, &inh)
	inh.Subpass = 5
	if r.Inheritance() == nil || r.Inheritance().Subpass != 1 {
		t.Errorf("Inheritance() = %+v, want subpass 1", r.Inheritance())
	}
}

func TestPlayback(t *testing.T) {
	src := NewRecorder()
	src.Begin(0, nil)
	recordSample(src)
	src.BeginRenderPass(&handle{"rp"}, &handle{"fb"}, pso.Rect{W: 4, H: 4}, nil, command.Inline)
	src.BindGraphicsPipeline(&handle{"gp"})
	src.SetViewports(0, []pso.Viewport{{Rect: pso.Rect{W: 4, H: 4}, MaxDepth: 1}})
	src.BindVertexBuffers(0, []hal.VertexBufferBinding{{Buffer: &handle{"vb"}}})
	src.BindIndexBuffer(&handle{"ib"}, 0, hal.IndexU16)
	src.DrawIndexed(6, 1, 0, 0, 0)
	src.Draw(3, 1, 0, 0)
	src.DrawIndexedIndirect(&handle{"ind"}, 0, 1, 20)
	src.EndRenderPass()
	src.Finish()

	dst := NewRecorder()
	dst.Begin(0, nil)
	Playback(src.Commands(), dst)
	dst.Finish()

	if !reflect.DeepEqual(src.Commands(), dst.Commands()) {
		t.Errorf("Playback produced a different command list:\n got %v\nwant %v", dst.Commands(), src.Commands())
	}
}

func BenchmarkRecorderDispatch(b *testing.B) {
	r := NewRecorder()
	p := &handle{"p"}
	for b.Loop() {
		r.Begin(0, nil)
		for range 64 {
			r.BindComputePipeline(p)
			r.Dispatch(hal.WorkGroupCount{8, 8, 1})
		}
		r.Finish()
	}
}
