// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pool holds command pool creation flags.
package pool

// CreateFlags control command pool behavior.
type CreateFlags uint8

// Command pool flags.
const (
	// Transient hints that buffers are short lived.
	Transient CreateFlags = 1 << iota
	// ResetIndividual allows buffers to be reset one at a time. Without it
	// only the whole pool may be reset.
	ResetIndividual
)

// Contains reports whether every bit of other is set in f.
func (f CreateFlags) Contains(other CreateFlags) bool {
	return f&other == other
}
