// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu is a compute and transfer backend running on the Pure Go
// WebGPU HAL of github.com/gogpu/wgpu.
//
// The package registers itself as "wgpu" when imported:
//
//	import _ "github.com/gogpu/gfx/backend/wgpu"
//
// # Mapping
//
// The WebGPU HAL has no explicit memory, so the backend emulates it:
//
//   - Memory allocations are host byte slices. Device local memory never
//     reaches the host; host visible memory shadows the native buffers
//     bound to it.
//   - Each buffer owns a native buffer created when it is bound. Host
//     visible buffers are uploaded before a command buffer first touches
//     them and read back through a staging buffer once it completes.
//   - Descriptor sets become bind groups at dispatch time, so writes made
//     after recording are honored. Bind groups are cached per device and
//     reused until their set is written, freed or its buffers destroyed.
//   - Fences and semaphores are host objects signaled by the queue
//     goroutine after the native fence of a submission completes.
//   - Timestamps are host timestamps taken between native submissions.
//
// Images, render passes, graphics pipelines and presentation are not
// available: the adapter reports no format features and surface creation
// fails. Push constants and dynamic descriptor offsets are not supported.
//
// # Shaders
//
// Shader modules take WGSL or SPIR-V. With WithSPIRV, WGSL is compiled to
// SPIR-V by naga before it reaches the driver.
package wgpu
