// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import "strconv"

// MemoryTypeID indexes the memory types of one physical device. It is a
// distinct type so raw integers cannot be passed by accident.
type MemoryTypeID uint32

// Index returns the position of the type in memory.Layout.Types.
func (id MemoryTypeID) Index() int {
	return int(id)
}

// Bit returns the bit of id in memory.Requirements.TypeMask.
func (id MemoryTypeID) Bit() uint32 {
	return 1 << id
}

func (id MemoryTypeID) String() string {
	return "MemoryTypeID(" + strconv.Itoa(int(id)) + ")"
}

// IndexType is the size of the indices in an index buffer.
type IndexType uint8

// Index types.
const (
	IndexU16 IndexType = iota
	IndexU32
)

// Size returns the size of one index in bytes.
func (t IndexType) Size() uint64 {
	if t == IndexU32 {
		return 4
	}
	return 2
}

// Draw and dispatch counts.
type (
	// VertexCount is a number of vertices or a vertex index.
	VertexCount = uint32
	// VertexOffset is added to each index before fetching vertices.
	VertexOffset = int32
	// IndexCount is a number of indices or an index position.
	IndexCount = uint32
	// InstanceCount is a number of instances or an instance index.
	InstanceCount = uint32
	// DrawCount is a number of indirect draws.
	DrawCount = uint32
)

// WorkGroupCount is the number of compute work groups per dimension.
type WorkGroupCount [3]uint32

// Total returns the number of work groups.
func (c WorkGroupCount) Total() uint64 {
	return uint64(c[0]) * uint64(c[1]) * uint64(c[2])
}
