// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package window

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/image"
)

func testCaps() SurfaceCapabilities {
	return SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  3,
		MinExtent:      Extent2D{1, 1},
		MaxExtent:      Extent2D{4096, 4096},
		MaxImageLayers: 1,
		Usage:          image.ColorAttachment | image.TransferSrc,
		PresentModes:   Fifo | Immediate,
		CompositeAlpha: AlphaOpaque,
		Formats:        []format.Format{format.BGRA8Unorm, format.RGBA8Unorm},
	}
}

func TestFromCapabilities(t *testing.T) {
	caps := testCaps()
	cfg := FromCapabilities(caps, Extent2D{8000, 600}, format.RGBA8Unorm)
	if cfg.Extent != (Extent2D{4096, 600}) {
		t.Errorf("Extent = %+v, want clamped 4096x600", cfg.Extent)
	}
	if cfg.ImageCount != 3 || cfg.PresentMode != Fifo || cfg.CompositeAlpha != AlphaOpaque {
		t.Errorf("cfg = %+v", cfg)
	}
	if err := cfg.Validate(caps); err != nil {
		t.Errorf("Validate(FromCapabilities) = %v", err)
	}

	fixed := Extent2D{640, 480}
	caps.CurrentExtent = &fixed
	if got := FromCapabilities(caps, Extent2D{1, 1}, format.RGBA8Unorm).Extent; got != fixed {
		t.Errorf("CurrentExtent ignored: %+v", got)
	}
}

func TestValidate(t *testing.T) {
	caps := testCaps()
	base := FromCapabilities(caps, Extent2D{100, 100}, format.BGRA8Unorm)
	tests := []struct {
		name   string
		mutate func(*SwapchainConfig)
	}{
		{"too many images", func(c *SwapchainConfig) { c.ImageCount = 4 }},
		{"empty extent", func(c *SwapchainConfig) { c.Extent = Extent2D{} }},
		{"present mode", func(c *SwapchainConfig) { c.PresentMode = Mailbox }},
		{"format", func(c *SwapchainConfig) { c.Format = format.R8Unorm }},
		{"usage", func(c *SwapchainConfig) { c.ImageUsage |= image.Storage }},
		{"layers", func(c *SwapchainConfig) { c.ImageLayers = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(caps); !errors.Is(err, ErrUnsupportedConfig) {
				t.Errorf("Validate() = %v, want ErrUnsupportedConfig", err)
			}
		})
	}
}

type testDevice struct{}

func (testDevice) Poll(bool) {}
func (testDevice) Destroy()  {}

type testProvider struct{ format gputypes.TextureFormat }

func (p testProvider) Device() gpucontext.Device             { return testDevice{} }
func (p testProvider) Queue() gpucontext.Queue               { return nil }
func (p testProvider) Adapter() gpucontext.Adapter           { return nil }
func (p testProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p testProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "test", Type: gpucontext.AdapterTypeUnknown}
}

func TestConfigFromProvider(t *testing.T) {
	caps := testCaps()
	cfg := ConfigFromProvider(testProvider{gputypes.TextureFormatRGBA8Unorm}, caps, Extent2D{320, 240})
	if cfg.Format != format.RGBA8Unorm {
		t.Errorf("Format = %v, want RGBA8Unorm", cfg.Format)
	}
	cfg = ConfigFromProvider(testProvider{gputypes.TextureFormatUndefined}, caps, Extent2D{320, 240})
	if cfg.Format != format.BGRA8Unorm {
		t.Errorf("fallback Format = %v, want BGRA8Unorm", cfg.Format)
	}
}
