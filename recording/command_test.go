// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recording

import (
	"testing"
)

func TestCommandType_String(t *testing.T) {
	tests := []struct {
		ct   CommandType
		want string
	}{
		{CmdPipelineBarrier, "PipelineBarrier"},
		{CmdCopyBuffer, "CopyBuffer"},
		{CmdBeginRenderPass, "BeginRenderPass"},
		{CmdBindComputeDescriptorSets, "BindComputeDescriptorSets"},
		{CmdDrawIndexedIndirect, "DrawIndexedIndirect"},
		{CmdDispatch, "Dispatch"},
		{CmdCopyQueryPoolResults, "CopyQueryPoolResults"},
		{CmdExecuteCommands, "ExecuteCommands"},
		{CommandType(254), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.ct.String(); got != tt.want {
				t.Errorf("CommandType.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommandTypeNamesComplete(t *testing.T) {
	for ct := CmdPipelineBarrier; ct <= CmdExecuteCommands; ct++ {
		if commandTypeNames[ct] == "" {
			t.Errorf("CommandType %d has no name", ct)
		}
	}
}

func TestBindPointTypes(t *testing.T) {
	tests := []struct {
		cmd  Command
		want CommandType
	}{
		{BindDescriptorSetsCommand{}, CmdBindGraphicsDescriptorSets},
		{BindDescriptorSetsCommand{Compute: true}, CmdBindComputeDescriptorSets},
		{PushConstantsCommand{}, CmdPushGraphicsConstants},
		{PushConstantsCommand{Compute: true}, CmdPushComputeConstants},
		{DrawIndirectCommand{}, CmdDrawIndirect},
		{DrawIndirectCommand{Indexed: true}, CmdDrawIndexedIndirect},
	}
	for _, tt := range tests {
		if got := tt.cmd.Type(); got != tt.want {
			t.Errorf("%T.Type() = %v, want %v", tt.cmd, got, tt.want)
		}
	}
}
