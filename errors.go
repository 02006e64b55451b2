// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"errors"
	"fmt"

	"github.com/gogpu/gfx/hal"
)

// Errors reported by backends. They are re-exported so callers can match
// them with errors.Is without importing hal.
var (
	ErrUnsupportedBackend = hal.ErrUnsupportedBackend
	ErrOutOfMemory        = hal.ErrOutOfMemory
	ErrOutOfDeviceMemory  = hal.ErrOutOfDeviceMemory
	ErrTooManyObjects     = hal.ErrTooManyObjects
	ErrUnsupportedFormat  = hal.ErrUnsupportedFormat
	ErrOutOfPoolMemory    = hal.ErrOutOfPoolMemory
	ErrDeviceLost         = hal.ErrDeviceLost
	ErrTimeout            = hal.ErrTimeout
	ErrOutOfDate          = hal.ErrOutOfDate
	ErrSurfaceLost        = hal.ErrSurfaceLost
	ErrNotHostVisible     = hal.ErrNotHostVisible
)

// Contract violations detected by the front layer.
var (
	// ErrNotRecording is returned when recording into a command buffer
	// that is not in the Recording state.
	ErrNotRecording = errors.New("gfx: command buffer is not recording")

	// ErrAlreadyRecording is returned by Begin on a recording buffer.
	ErrAlreadyRecording = errors.New("gfx: command buffer is already recording")

	// ErrNotExecutable is returned when submitting a buffer that has not
	// finished recording.
	ErrNotExecutable = errors.New("gfx: command buffer is not executable")

	// ErrPending is returned when an object is used while the device may
	// still be executing work that references it.
	ErrPending = errors.New("gfx: object is pending execution")

	// ErrResetNotAllowed is returned when resetting a single command
	// buffer whose pool lacks pool.ResetIndividual.
	ErrResetNotAllowed = errors.New("gfx: individual reset not allowed by pool")

	// ErrFreed is returned when using a command buffer after it was freed.
	ErrFreed = errors.New("gfx: command buffer freed")

	// ErrInvalidLevel is returned when a command buffer of the wrong level
	// is used (secondaries submitted directly, primaries executed).
	ErrInvalidLevel = errors.New("gfx: invalid command buffer level")

	// ErrInvalidDesc is returned for malformed descriptions.
	ErrInvalidDesc = errors.New("gfx: invalid description")

	// ErrInvalidUsage is returned when a resource lacks the usage flag an
	// operation requires.
	ErrInvalidUsage = errors.New("gfx: resource usage does not allow operation")

	// ErrLimitExceeded is returned when a value exceeds an adapter limit.
	ErrLimitExceeded = errors.New("gfx: adapter limit exceeded")

	// ErrMissingFeature is returned when an operation needs a feature the
	// device was not opened with.
	ErrMissingFeature = errors.New("gfx: feature not enabled")

	// ErrInvalidQueueRequest is returned by Adapter.Open for unknown
	// families or too many queues.
	ErrInvalidQueueRequest = errors.New("gfx: invalid queue request")

	// ErrWrongQueueFamily is returned when work is submitted to a queue of
	// another family than its command pool.
	ErrWrongQueueFamily = errors.New("gfx: wrong queue family")

	// ErrDestroyed is returned when using a destroyed object.
	ErrDestroyed = errors.New("gfx: object destroyed")

	// ErrForeignResource is returned when an object created by another
	// device or backend is passed to a device.
	ErrForeignResource = errors.New("gfx: resource belongs to another device")

	// ErrUnbound is returned when a buffer or image without memory is used.
	ErrUnbound = errors.New("gfx: resource has no memory bound")

	// ErrInvalidMemoryBinding is returned for memory bindings that violate
	// the resource's requirements.
	ErrInvalidMemoryBinding = errors.New("gfx: invalid memory binding")

	// ErrAlreadyBound is returned when binding memory to a bound resource.
	ErrAlreadyBound = errors.New("gfx: resource memory already bound")

	// ErrAlreadyMapped is returned when mapping mapped memory.
	ErrAlreadyMapped = errors.New("gfx: memory already mapped")

	// ErrNotMapped is returned when unmapping or flushing unmapped memory.
	ErrNotMapped = errors.New("gfx: memory not mapped")

	// ErrInsideRenderPass is returned for commands that are only valid
	// outside a render pass.
	ErrInsideRenderPass = errors.New("gfx: command not allowed inside a render pass")

	// ErrOutsideRenderPass is returned for commands that are only valid
	// inside a render pass.
	ErrOutsideRenderPass = errors.New("gfx: command requires an active render pass")

	// ErrInvalidSubpass is returned when advancing past the last subpass or
	// ending a pass before its last subpass.
	ErrInvalidSubpass = errors.New("gfx: invalid subpass")

	// ErrNoPipeline is returned when drawing or dispatching without a
	// bound pipeline.
	ErrNoPipeline = errors.New("gfx: no pipeline bound")

	// ErrNoIndexBuffer is returned by indexed draws without an index buffer.
	ErrNoIndexBuffer = errors.New("gfx: no index buffer bound")

	// ErrIncompatiblePipeline is returned when binding a graphics pipeline
	// whose render pass is not compatible with the active one.
	ErrIncompatiblePipeline = errors.New("gfx: pipeline incompatible with render pass")

	// ErrQueryActive is returned when beginning an active query.
	ErrQueryActive = errors.New("gfx: query already active")

	// ErrQueryNotActive is returned when ending a query that is not active.
	ErrQueryNotActive = errors.New("gfx: query not active")

	// ErrFenceSignaled is returned when submitting with a signaled fence.
	ErrFenceSignaled = errors.New("gfx: fence already signaled")
)

// UnsupportedBackendError is returned by CreateInstance when no usable
// backend could be created.
type UnsupportedBackendError struct {
	// Name is the requested backend, or empty for the default.
	Name string
	// Err is the underlying cause.
	Err error
}

func (e *UnsupportedBackendError) Error() string {
	name := e.Name
	if name == "" {
		name = "default"
	}
	if e.Err == nil {
		return fmt.Sprintf("gfx: unsupported backend %q", name)
	}
	return fmt.Sprintf("gfx: unsupported backend %q: %v", name, e.Err)
}

// Is reports whether target is hal.ErrUnsupportedBackend.
func (e *UnsupportedBackendError) Is(target error) bool {
	return target == hal.ErrUnsupportedBackend
}

func (e *UnsupportedBackendError) Unwrap() error { return e.Err }
