// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package image

import "testing"

func TestMaxMipLevels(t *testing.T) {
	tests := []struct {
		e    Extent
		want uint8
	}{
		{Extent{1, 1, 1}, 1},
		{Extent{2, 1, 1}, 2},
		{Extent{256, 256, 1}, 9},
		{Extent{255, 16, 1}, 8},
		{Extent{1, 1, 1024}, 11},
		{Extent{0, 0, 0}, 0},
	}
	for _, tt := range tests {
		if got := MaxMipLevels(tt.e); got != tt.want {
			t.Errorf("MaxMipLevels(%+v) = %d, want %d", tt.e, got, tt.want)
		}
	}
}

func TestExtentLevel(t *testing.T) {
	e := Extent{Width: 64, Height: 16, Depth: 1}
	got := e.Level(3)
	want := Extent{Width: 8, Height: 2, Depth: 1}
	if got != want {
		t.Errorf("Level(3) = %+v, want %+v", got, want)
	}
	if got := e.Level(10); got != (Extent{1, 1, 1}) {
		t.Errorf("Level(10) = %+v, want 1x1x1", got)
	}
}

func TestKindConstructors(t *testing.T) {
	k := Kind2D(640, 480, 0, 0)
	if k.NumLayers() != 1 || k.NumSamples() != 1 {
		t.Errorf("zero layers/samples not normalized: %d, %d", k.NumLayers(), k.NumSamples())
	}
	if k.Extent() != (Extent{640, 480, 1}) {
		t.Errorf("Extent() = %+v", k.Extent())
	}
	if Kind1D(8, 4).Extent() != (Extent{8, 1, 1}) {
		t.Error("Kind1D extent mismatch")
	}
	if Kind3D(4, 4, 4).Dim != D3 {
		t.Error("Kind3D dimension mismatch")
	}
}

func TestSubresourceRangeResolve(t *testing.T) {
	tests := []struct {
		name   string
		r      SubresourceRange
		levels uint8
		layers uint16
		lc     uint8
		yc     uint16
		ok     bool
	}{
		{"all", SubresourceRange{}, 4, 2, 4, 2, true},
		{"tail", SubresourceRange{LevelStart: 1, LayerStart: 1}, 4, 2, 3, 1, true},
		{"explicit", SubresourceRange{LevelStart: 1, LevelCount: 2, LayerCount: 1}, 4, 2, 2, 1, true},
		{"level overflow", SubresourceRange{LevelStart: 3, LevelCount: 2}, 4, 2, 0, 0, false},
		{"start beyond", SubresourceRange{LayerStart: 2}, 4, 2, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc, yc, ok := tt.r.Resolve(tt.levels, tt.layers)
			if lc != tt.lc || yc != tt.yc || ok != tt.ok {
				t.Errorf("Resolve = (%d, %d, %v), want (%d, %d, %v)", lc, yc, ok, tt.lc, tt.yc, tt.ok)
			}
		})
	}
}
