// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package buffer describes linear memory buffers.
package buffer

// Usage is a bitmask of the ways a buffer may be used.
// Usage is fixed at creation time.
type Usage uint32

// Buffer usage flags.
const (
	TransferSrc Usage = 1 << iota
	TransferDst
	UniformTexel
	StorageTexel
	Uniform
	Storage
	Index
	Vertex
	Indirect
)

// Contains reports whether every bit of other is set in u.
func (u Usage) Contains(other Usage) bool {
	return u&other == other
}

// Access is a bitmask of buffer access types used in barriers.
type Access uint32

// Buffer access flags.
const (
	IndirectCommandRead Access = 1 << iota
	IndexBufferRead
	VertexBufferRead
	UniformRead
	ShaderRead
	ShaderWrite
	TransferRead
	TransferWrite
	HostRead
	HostWrite
	MemoryRead
	MemoryWrite
)

// WholeSize selects the remainder of a buffer starting at an offset.
const WholeSize = ^uint64(0)

// SubRange is a byte range inside a buffer.
type SubRange struct {
	Offset uint64
	// Size is the number of bytes, or WholeSize for the remainder.
	Size uint64
}

// Whole is the sub-range covering an entire buffer.
var Whole = SubRange{Offset: 0, Size: WholeSize}

// Resolve returns the absolute [start, end) of r within a buffer of the
// given size. ok is false when r does not fit.
func (r SubRange) Resolve(size uint64) (start, end uint64, ok bool) {
	if r.Offset > size {
		return 0, 0, false
	}
	if r.Size == WholeSize {
		return r.Offset, size, true
	}
	end = r.Offset + r.Size
	if end < r.Offset || end > size {
		return 0, 0, false
	}
	return r.Offset, end, true
}

// Desc describes a buffer to create.
type Desc struct {
	// Label is an optional debug label.
	Label string
	// Size is the buffer size in bytes. Must be non-zero.
	Size uint64
	// Usage declares every way the buffer will be used.
	Usage Usage
}
