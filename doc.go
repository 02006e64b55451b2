// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gfx is a validated graphics hardware abstraction layer.
//
// gfx exposes one API over every backend registered with package hal.
// A session starts from an Instance, picks an Adapter, and opens a
// Device together with its queues:
//
//	inst, err := gfx.CreateInstance("hello", 1, gfx.WithBackend("software"))
//	if err != nil {
//	    return err
//	}
//	defer inst.Destroy()
//
//	adapters := inst.EnumerateAdapters()
//	family := adapters[0].QueueFamilies()[0]
//	gpu, err := adapters[0].Open([]gfx.QueueRequest{{Family: family.ID, Priorities: []queue.Priority{1}}}, 0)
//
// The Device creates memory, buffers, images, render passes, pipelines,
// descriptor sets, command pools, fences, semaphores, query pools and
// swapchains. Every object lives until its Destroy method is called.
//
// # Command buffers
//
// Command buffers follow a strict lifecycle:
//
//	Initial -> Recording -> Executable -> Pending -> Executable
//	                                              -> Invalid (OneTimeSubmit)
//
// Recording into a buffer that is not recording, submitting one that is
// not executable, or resetting one that is pending returns an error
// instead of corrupting state. A pending buffer completes when the fence
// of its submission (or a later one on the same queue) is observed
// signaled, or after Queue.WaitIdle or Device.WaitIdle.
//
// # Errors
//
// Every contract violation is reported as an error wrapping one of the
// sentinels in this package, and backend failures wrap the hal sentinels
// re-exported here (ErrOutOfDeviceMemory, ErrDeviceLost, ErrTimeout, ...).
// Once ErrDeviceLost is observed every later device operation fails fast
// with it. ErrTimeout is not fatal.
//
// # Concurrency
//
// A command buffer must be recorded by one goroutine at a time; command
// pools are externally synchronized. Different pools, queues and devices
// may be used concurrently. Submit never blocks; only fence waits do.
package gfx
