// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software is a pure Go reference backend.
//
// It implements the hal contract on the CPU: memory is Go byte slices,
// command buffers are deferred recordings, and every queue executes its
// submissions in order on a goroutine of its own. Transfer, clear and
// query commands run for real. Compute pipelines run Go kernels supplied
// as pso.ShaderSource.Native; draws do not rasterize but are reported to
// an optional DrawHook, and render pass load operations clear their
// attachments.
//
// The backend registers itself as "software":
//
//	import _ "github.com/gogpu/gfx/backend/software"
//
//	inst, err := gfx.CreateInstance("app", 1, gfx.WithBackend("software"))
//
// Tests usually construct it directly to control execution:
//
//	b := software.New(software.WithManualCompletion())
//	inst, err := gfx.CreateInstance("test", 1, gfx.WithHALBackend(b))
//	...
//	b.Advance(1) // let one queued submission run
//
// # Device loss
//
// Backend.LoseDevices simulates a lost device: queued work is dropped,
// waits return hal.ErrDeviceLost and every later submission fails.
package software
