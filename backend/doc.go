// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend groups the hal implementations shipped with gfx.
//
// Each backend lives in its own subpackage and registers itself with the
// hal registry from init, so importing a backend for its side effect is
// enough to make it selectable by name:
//
//	import (
//		_ "github.com/gogpu/gfx/backend/software"
//		_ "github.com/gogpu/gfx/backend/wgpu"
//	)
//
//	inst, err := gfx.CreateInstance("app", 1, gfx.WithBackend("software"))
//
// # Available Backends
//
//   - "software": a CPU device with explicit memory, compute kernels
//     written in Go and draw hooks in place of rasterization. It is always
//     available and is the reference for conformance tests.
//   - "wgpu": compute and transfer on the Pure Go WebGPU HAL of
//     github.com/gogpu/wgpu. It reports ErrUnsupportedBackend when no
//     native API can be opened.
//
// A backend may also be passed directly with gfx.WithHALBackend, which
// skips the registry.
package backend
