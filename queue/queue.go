// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package queue describes queue families and queue capabilities.
package queue

// Type is the capability class of a queue family.
type Type uint8

// Queue types.
const (
	// General queues support graphics, compute and transfer.
	General Type = iota
	Graphics
	Compute
	Transfer
)

var typeNames = [...]string{"General", "Graphics", "Compute", "Transfer"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Type(?)"
}

// SupportsGraphics reports whether queues of type t accept graphics work.
func (t Type) SupportsGraphics() bool {
	return t == General || t == Graphics
}

// SupportsCompute reports whether queues of type t accept compute work.
func (t Type) SupportsCompute() bool {
	return t == General || t == Graphics || t == Compute
}

// SupportsTransfer reports whether queues of type t accept transfer work.
// Every queue type does.
func (t Type) SupportsTransfer() bool {
	return t <= Transfer
}

// FamilyID identifies a queue family of an adapter.
type FamilyID uint32

// Family describes a queue family.
type Family struct {
	ID        FamilyID
	Type      Type
	MaxQueues int
}

// Priority is a queue priority in [0, 1].
type Priority float32
