// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package recording provides a deferred command recorder for backends.
//
// Backends that cannot record into native command buffers directly embed a
// Recorder in their command buffer type. The Recorder implements every
// recording method of hal.CommandBuffer by appending typed Command values;
// at submission the backend walks Commands and executes them.
//
// Commands are plain structs so they can be inspected in tests and
// replayed into any other hal.CommandBuffer with Playback.
//
// # Example
//
//	type commandBuffer struct {
//	    recording.Recorder
//	}
//
//	func (q *queue) execute(cb *commandBuffer) {
//	    for _, cmd := range cb.Commands() {
//	        switch c := cmd.(type) {
//	        case recording.CopyBufferCommand:
//	            // ...
//	        case recording.DispatchCommand:
//	            // ...
//	        }
//	    }
//	}
//
// A Recorder is not safe for concurrent use. Once finished, its commands
// are immutable until the next Begin or Reset, so several goroutines may
// read them concurrently.
package recording
