// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package format

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestFormatDesc(t *testing.T) {
	tests := []struct {
		f       Format
		bytes   uint32
		aspects Aspects
		color   bool
		depth   bool
		stencil bool
	}{
		{R8Unorm, 1, AspectColor, true, false, false},
		{RGBA8Unorm, 4, AspectColor, true, false, false},
		{RGBA16Float, 8, AspectColor, true, false, false},
		{RGBA32Float, 16, AspectColor, true, false, false},
		{D32Float, 4, AspectDepth, false, true, false},
		{D24UnormS8Uint, 4, AspectDepth | AspectStencil, false, true, true},
		{S8Uint, 1, AspectStencil, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			if got := tt.f.Desc().BytesPerTexel(); got != tt.bytes {
				t.Errorf("BytesPerTexel() = %d, want %d", got, tt.bytes)
			}
			if got := tt.f.Aspects(); got != tt.aspects {
				t.Errorf("Aspects() = %b, want %b", got, tt.aspects)
			}
			if tt.f.IsColor() != tt.color || tt.f.IsDepth() != tt.depth || tt.f.IsStencil() != tt.stencil {
				t.Errorf("aspect predicates mismatch for %v", tt.f)
			}
		})
	}
}

func TestFormatValid(t *testing.T) {
	if Undefined.Valid() {
		t.Error("Undefined.Valid() = true")
	}
	if Format(9999).Valid() {
		t.Error("out of range format reported valid")
	}
	for _, f := range All() {
		if !f.Valid() {
			t.Errorf("%v.Valid() = false", f)
		}
		if f.Desc().Bits == 0 {
			t.Errorf("%v has zero bits", f)
		}
	}
	if got := Format(9999).String(); got != "Format(9999)" {
		t.Errorf("String() = %q", got)
	}
}

func TestDefaultProperties(t *testing.T) {
	p := DefaultProperties(RGBA8Unorm)
	if !p.OptimalTiling.Contains(ImageColorAttachment | ImageSampled | ImageTransferDst) {
		t.Errorf("RGBA8Unorm optimal features missing: %b", p.OptimalTiling)
	}
	if p.OptimalTiling.Contains(ImageDepthStencilAttachment) {
		t.Error("color format reports depth-stencil attachment support")
	}

	d := DefaultProperties(D32Float)
	if !d.OptimalTiling.Contains(ImageDepthStencilAttachment) {
		t.Error("D32Float lacks depth-stencil attachment support")
	}
	if d.OptimalTiling.Contains(ImageColorAttachment) {
		t.Error("depth format reports color attachment support")
	}

	if s := DefaultProperties(RGBA8Srgb); s.OptimalTiling.Contains(ImageStorage) {
		t.Error("sRGB format reports storage support")
	}
	if u := DefaultProperties(Undefined); u != (Properties{}) {
		t.Errorf("Undefined properties = %+v, want zero", u)
	}
}

func TestTextureFormatConversion(t *testing.T) {
	tf, ok := ToTextureFormat(BGRA8Unorm)
	if !ok || tf != gputypes.TextureFormatBGRA8Unorm {
		t.Fatalf("ToTextureFormat(BGRA8Unorm) = %v, %v", tf, ok)
	}
	if got := FromTextureFormat(tf); got != BGRA8Unorm {
		t.Errorf("FromTextureFormat round trip = %v", got)
	}
	if _, ok := ToTextureFormat(RGB32Float); ok {
		t.Error("RGB32Float should have no texture counterpart")
	}
	if got := FromTextureFormat(gputypes.TextureFormatUndefined); got != Undefined {
		t.Errorf("FromTextureFormat(Undefined) = %v", got)
	}
	if vf, ok := ToVertexFormat(RG32Float); !ok || vf != gputypes.VertexFormatFloat32x2 {
		t.Errorf("ToVertexFormat(RG32Float) = %v, %v", vf, ok)
	}
}
