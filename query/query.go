// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package query describes occlusion, pipeline statistics, and timestamp
// queries.
package query

import (
	"encoding/binary"
	"math/bits"
)

// Type is the kind of a query pool.
type Type uint8

// Query types.
const (
	Occlusion Type = iota
	PipelineStatistics
	Timestamp
)

var typeNames = [...]string{"Occlusion", "PipelineStatistics", "Timestamp"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Type(?)"
}

// PipelineStatistic is a bitmask of counters collected by a pipeline
// statistics query. Results are written in bit order.
type PipelineStatistic uint32

// Pipeline statistics.
const (
	InputAssemblyVertices PipelineStatistic = 1 << iota
	InputAssemblyPrimitives
	VertexShaderInvocations
	GeometryShaderInvocations
	GeometryShaderPrimitives
	ClippingInvocations
	ClippingPrimitives
	FragmentShaderInvocations
	HullShaderPatches
	DomainShaderInvocations
	ComputeShaderInvocations
)

// Count returns the number of counters selected by s.
func (s PipelineStatistic) Count() int {
	return bits.OnesCount32(uint32(s))
}

// Index returns the position of counter c in the results of s, or -1 when
// s does not collect c.
func (s PipelineStatistic) Index(c PipelineStatistic) int {
	if s&c == 0 || bits.OnesCount32(uint32(c)) != 1 {
		return -1
	}
	return bits.OnesCount32(uint32(s) & (uint32(c) - 1))
}

// Desc describes a query pool.
type Desc struct {
	Type Type
	// Count is the number of queries in the pool.
	Count uint32
	// Statistics selects counters for PipelineStatistics pools.
	Statistics PipelineStatistic
}

// ValuesPerQuery returns the number of result values one query produces.
func (d Desc) ValuesPerQuery() int {
	if d.Type == PipelineStatistics {
		return d.Statistics.Count()
	}
	return 1
}

// ControlFlags modify how a query is begun.
type ControlFlags uint8

// Control flags.
const (
	// Precise requests exact occlusion sample counts.
	Precise ControlFlags = 1 << iota
)

// ResultFlags control how query results are returned.
type ResultFlags uint8

// Result flags.
const (
	// Bits64 writes 64-bit values instead of 32-bit values.
	Bits64 ResultFlags = 1 << iota
	// Wait blocks until results are available.
	Wait
	// WithAvailability appends an availability value to each query.
	WithAvailability
	// Partial permits writing partial results.
	Partial
)

// ValueSize returns the size in bytes of one result value.
func (f ResultFlags) ValueSize() int {
	if f&Bits64 != 0 {
		return 8
	}
	return 4
}

// Stride returns the minimal stride for queries of d under f.
func (f ResultFlags) Stride(d Desc) int {
	n := d.ValuesPerQuery()
	if f&WithAvailability != 0 {
		n++
	}
	return n * f.ValueSize()
}

// ID is the index of a query in a pool.
type ID uint32

// Range is a contiguous range of queries.
type Range struct {
	Start ID
	Count uint32
}

// End returns the first ID past r.
func (r Range) End() uint64 {
	return uint64(r.Start) + uint64(r.Count)
}

// Within reports whether r lies inside a pool of n queries.
func (r Range) Within(n uint32) bool {
	return r.End() <= uint64(n)
}

// EncodeResults writes one row of values per query into data at the given
// stride, honoring the size, availability and partial flags. It reports
// whether every query was available.
func EncodeResults(data []byte, stride uint64, vals [][]uint64, avail []bool, flags ResultFlags) bool {
	size := flags.ValueSize()
	all := true
	for i, row := range vals {
		out := data[uint64(i)*stride:]
		if !avail[i] {
			all = false
		}
		if avail[i] || flags&Partial != 0 {
			for j, v := range row {
				putValue(out[j*size:], v, size)
			}
		}
		if flags&WithAvailability != 0 {
			var a uint64
			if avail[i] {
				a = 1
			}
			putValue(out[len(row)*size:], a, size)
		}
	}
	return all
}

func putValue(dst []byte, v uint64, size int) {
	if size == 8 {
		binary.LittleEndian.PutUint64(dst, v)
		return
	}
	binary.LittleEndian.PutUint32(dst, uint32(v))
}
