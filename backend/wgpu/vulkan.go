// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

// The Vulkan HAL registers itself with the WebGPU HAL registry.
import _ "github.com/gogpu/wgpu/hal/vulkan"
