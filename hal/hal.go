// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package hal defines the contract every graphics backend implements.
//
// A backend binds one concrete type to each object kind (instance,
// physical device, device, queue, command buffer, buffer, image, pipeline,
// fence, semaphore, ...). Objects of different backends must never be mixed.
//
// The contract is raw: calls that violate it (recording into a buffer that
// is not recording, using a destroyed resource, exceeding a limit) have
// undefined results. The validated front layer in package gfx performs
// those checks before calling into a backend, so backends may assume a
// well-behaved caller.
//
// # Registration
//
// Backends register a factory from init, following the database/sql
// driver pattern:
//
//	func init() {
//	    hal.Register("software", func() hal.Backend { return New() })
//	}
//
// Callers pick a backend by name with GetBackend or the best available
// one with Default.
package hal

import (
	"github.com/gogpu/gfx/adapter"
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gfx/window"
)

// Backend is a native graphics API binding.
type Backend interface {
	// Name returns the registry name of the backend.
	Name() string

	// CreateInstance initializes the native API. It fails with an error
	// wrapping ErrUnsupportedBackend when the platform cannot host it.
	CreateInstance(desc InstanceDesc) (Instance, error)
}

// InstanceDesc identifies the application creating an instance.
type InstanceDesc struct {
	Name    string
	Version uint32
}

// Instance is an initialized backend.
type Instance interface {
	// EnumerateAdapters queries the platform for physical devices. The
	// content is stable within a process; the order is backend defined.
	EnumerateAdapters() []ExposedAdapter

	// CreateSurface creates a presentation surface for a host window.
	CreateSurface(h window.Handle) (Surface, error)

	// DestroySurface destroys a surface created by this instance.
	DestroySurface(s Surface)

	// Destroy releases the instance. Every device must be destroyed first.
	Destroy()
}

// ExposedAdapter is a physical device together with its static
// description.
type ExposedAdapter struct {
	Info           adapter.Info
	PhysicalDevice PhysicalDevice
	QueueFamilies  []queue.Family
}

// PhysicalDevice is one adapter. Every query returns the same value for
// the lifetime of the adapter.
type PhysicalDevice interface {
	// Open creates a logical device with queues from the requested
	// families. features must be a subset of Features.
	Open(families []FamilyRequest, features Features) (OpenDevice, error)

	// FormatProperties reports the features supported for f.
	FormatProperties(f format.Format) format.Properties

	// MemoryProperties reports the memory types and heaps.
	MemoryProperties() memory.Layout

	Features() Features
	Hints() Hints
	Limits() Limits
}

// FamilyRequest asks for one queue per priority from a family.
type FamilyRequest struct {
	Family     queue.FamilyID
	Priorities []queue.Priority
}

// OpenDevice is the result of PhysicalDevice.Open.
type OpenDevice struct {
	Device      Device
	QueueGroups []QueueGroup
}

// QueueGroup holds the queues opened from one family.
type QueueGroup struct {
	Family queue.FamilyID
	Queues []Queue
}
