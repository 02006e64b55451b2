// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import "errors"

// Errors reported by backends. Backends wrap them with detail; callers
// match with errors.Is.
var (
	// ErrUnsupportedBackend is returned when the platform cannot host a
	// backend at all.
	ErrUnsupportedBackend = errors.New("hal: unsupported backend")

	// ErrOutOfMemory is returned when host memory is exhausted.
	ErrOutOfMemory = errors.New("hal: out of host memory")

	// ErrOutOfDeviceMemory is returned when device memory is exhausted.
	ErrOutOfDeviceMemory = errors.New("hal: out of device memory")

	// ErrTooManyObjects is returned when an object count limit is reached.
	ErrTooManyObjects = errors.New("hal: too many objects")

	// ErrUnsupportedFormat is returned when a format, extent, or usage
	// combination cannot be created.
	ErrUnsupportedFormat = errors.New("hal: unsupported format")

	// ErrOutOfPoolMemory is returned when a descriptor pool is exhausted.
	ErrOutOfPoolMemory = errors.New("hal: out of descriptor pool memory")

	// ErrDeviceLost is returned once a device is lost. It is fatal:
	// every later operation on the device fails with it.
	ErrDeviceLost = errors.New("hal: device lost")

	// ErrTimeout is returned when a wait or acquire times out. It is not
	// fatal.
	ErrTimeout = errors.New("hal: timeout")

	// ErrOutOfDate is returned when a swapchain no longer matches its
	// surface.
	ErrOutOfDate = errors.New("hal: swapchain out of date")

	// ErrSurfaceLost is returned when a surface is no longer usable.
	ErrSurfaceLost = errors.New("hal: surface lost")

	// ErrUnsupportedShader is returned for shader code a backend cannot
	// consume.
	ErrUnsupportedShader = errors.New("hal: unsupported shader source")

	// ErrNotHostVisible is returned when mapping memory that is not
	// CPU visible.
	ErrNotHostVisible = errors.New("hal: memory not host visible")
)
