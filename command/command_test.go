// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package command

import (
	"testing"

	"github.com/gogpu/gfx/image"
)

func TestBufferImageCopyPacking(t *testing.T) {
	c := BufferImageCopy{ImageExtent: image.Extent{Width: 16, Height: 8, Depth: 1}}
	if c.RowLength() != 16 || c.ImageHeight() != 8 {
		t.Errorf("tightly packed = (%d, %d), want (16, 8)", c.RowLength(), c.ImageHeight())
	}
	c.BufferWidth, c.BufferHeight = 32, 10
	if c.RowLength() != 32 || c.ImageHeight() != 10 {
		t.Errorf("explicit = (%d, %d), want (32, 10)", c.RowLength(), c.ImageHeight())
	}
}

func TestUsageFlags(t *testing.T) {
	f := OneTimeSubmit | SimultaneousUse
	if !f.Contains(SimultaneousUse) || f.Contains(RenderPassContinue) {
		t.Errorf("Contains mismatch for %#x", f)
	}
	if Primary.String() != "Primary" || Secondary.String() != "Secondary" {
		t.Error("Level.String mismatch")
	}
}
