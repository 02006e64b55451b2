// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pso

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidSpecialization is returned when specialization constants do not
// fit their data block or reuse an ID.
var ErrInvalidSpecialization = errors.New("pso: invalid specialization")

// SpecConst locates one specialization constant inside Specialization.Data.
type SpecConst struct {
	ID     uint32
	Offset uint16
	Size   uint16
}

// Specialization is a set of specialization constants and their packed
// little-endian data.
type Specialization struct {
	Constants []SpecConst
	Data      []byte
}

// IsEmpty reports whether s carries no constants.
func (s Specialization) IsEmpty() bool {
	return len(s.Constants) == 0
}

// Validate checks that every constant lies inside Data and that IDs are
// unique.
func (s Specialization) Validate() error {
	seen := make(map[uint32]struct{}, len(s.Constants))
	for _, c := range s.Constants {
		if c.Size == 0 {
			return fmt.Errorf("%w: constant %d has zero size", ErrInvalidSpecialization, c.ID)
		}
		if int(c.Offset)+int(c.Size) > len(s.Data) {
			return fmt.Errorf("%w: constant %d [%d, %d) exceeds %d data bytes",
				ErrInvalidSpecialization, c.ID, c.Offset, int(c.Offset)+int(c.Size), len(s.Data))
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate constant id %d", ErrInvalidSpecialization, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// Value returns the bytes of the constant with the given id.
func (s Specialization) Value(id uint32) ([]byte, bool) {
	for _, c := range s.Constants {
		if c.ID == id {
			end := int(c.Offset) + int(c.Size)
			if end > len(s.Data) {
				return nil, false
			}
			return s.Data[c.Offset:end], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of s.
func (s Specialization) Clone() Specialization {
	return Specialization{
		Constants: append([]SpecConst(nil), s.Constants...),
		Data:      append([]byte(nil), s.Data...),
	}
}

// SpecConstList builds a Specialization from typed values.
// Values must be fixed-size (bool, numeric types, or arrays and structs of
// them) and are packed little-endian in insertion order.
//
//	spec, err := pso.NewSpecConstList().
//	    Add(0, uint32(64)).
//	    Add(1, float32(0.5)).
//	    Build()
type SpecConstList struct {
	spec Specialization
	err  error
}

// NewSpecConstList returns an empty list.
func NewSpecConstList() *SpecConstList {
	return &SpecConstList{}
}

// Add appends the constant id with value v.
func (l *SpecConstList) Add(id uint32, v any) *SpecConstList {
	if l.err != nil {
		return l
	}
	offset := len(l.spec.Data)
	data, err := binary.Append(l.spec.Data, binary.LittleEndian, v)
	if err != nil {
		l.err = fmt.Errorf("%w: constant %d: %w", ErrInvalidSpecialization, id, err)
		return l
	}
	size := len(data) - offset
	if len(data) > 0xFFFF {
		l.err = fmt.Errorf("%w: data exceeds 64 KiB", ErrInvalidSpecialization)
		return l
	}
	l.spec.Data = data
	l.spec.Constants = append(l.spec.Constants, SpecConst{
		ID:     id,
		Offset: uint16(offset),
		Size:   uint16(size),
	})
	return l
}

// Build returns the accumulated Specialization, or the first error.
func (l *SpecConstList) Build() (Specialization, error) {
	if l.err != nil {
		return Specialization{}, l.err
	}
	spec := l.spec.Clone()
	if err := spec.Validate(); err != nil {
		return Specialization{}, err
	}
	return spec, nil
}

// SpecConsts builds a Specialization assigning ids 0, 1, 2, ... to values
// in order.
func SpecConsts(values ...any) (Specialization, error) {
	l := NewSpecConstList()
	for i, v := range values {
		l.Add(uint32(i), v)
	}
	return l.Build()
}
