// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package memory describes the properties of memory allocated for
// gfx resources.
package memory

import "strings"

// Properties is a bitmask of memory type properties.
type Properties uint16

// Memory properties.
const (
	// DeviceLocal memory is the most efficient for device access.
	DeviceLocal Properties = 1 << iota
	// CPUVisible memory can be mapped into host address space.
	CPUVisible
	// Coherent host writes are visible to the device without flushing.
	Coherent
	// CPUCached memory is cached on the host; reads are fast.
	CPUCached
	// LazilyAllocated memory may only be committed on demand.
	LazilyAllocated
)

// Contains reports whether every bit of other is set in p.
func (p Properties) Contains(other Properties) bool {
	return p&other == other
}

// String lists the set property names joined by '|'.
func (p Properties) String() string {
	if p == 0 {
		return "none"
	}
	names := []string{"DeviceLocal", "CPUVisible", "Coherent", "CPUCached", "LazilyAllocated"}
	var parts []string
	for i, n := range names {
		if p&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// HeapFlags is a bitmask of heap properties.
type HeapFlags uint8

// Heap flags.
const (
	HeapDeviceLocal HeapFlags = 1 << iota
)

// Heap describes one memory heap of a device.
type Heap struct {
	Size  uint64
	Flags HeapFlags
}

// Type describes one memory type exposed by a device.
type Type struct {
	Properties Properties
	// HeapIndex is the index into Layout.Heaps this type allocates from.
	HeapIndex int
}

// Layout lists the memory types and heaps of an adapter.
type Layout struct {
	Types []Type
	Heaps []Heap
}

// Clone returns a deep copy of l.
func (l Layout) Clone() Layout {
	return Layout{
		Types: append([]Type(nil), l.Types...),
		Heaps: append([]Heap(nil), l.Heaps...),
	}
}

// Requirements describes what memory a resource needs.
type Requirements struct {
	// Size is the number of bytes needed.
	Size uint64
	// Alignment is the required offset alignment within an allocation.
	Alignment uint64
	// TypeMask has bit i set if memory type i is acceptable.
	TypeMask uint32
}

// Accepts reports whether memory type index i satisfies r.
func (r Requirements) Accepts(i int) bool {
	return i >= 0 && i < 32 && r.TypeMask&(1<<uint(i)) != 0
}

// Segment is a range of a memory allocation.
// A nil Size extends to the end of the allocation.
type Segment struct {
	Offset uint64
	Size   *uint64
}

// WholeSegment returns the segment covering an entire allocation.
func WholeSegment() Segment { return Segment{} }

// SegmentOf returns a segment of the given offset and size.
func SegmentOf(offset, size uint64) Segment {
	return Segment{Offset: offset, Size: &size}
}

// Resolve returns the absolute [start, end) of s within an allocation of
// total bytes. ok is false when the segment does not fit.
func (s Segment) Resolve(total uint64) (start, end uint64, ok bool) {
	if s.Offset > total {
		return 0, 0, false
	}
	if s.Size == nil {
		return s.Offset, total, true
	}
	end = s.Offset + *s.Size
	if end < s.Offset || end > total {
		return 0, 0, false
	}
	return s.Offset, end, true
}

// Dependencies are flags for memory dependencies between subpasses and barriers.
type Dependencies uint8

// Dependency flags.
const (
	// ByRegion restricts the dependency to framebuffer-local regions.
	ByRegion Dependencies = 1 << iota
	// ViewLocal applies the dependency per view in multiview passes.
	ViewLocal
)
