// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package window describes presentation surfaces and swapchains.
//
// Creating windows is out of scope. Hosts pass an opaque Handle to an
// instance, which turns it into a backend surface.
package window

import (
	"errors"
	"fmt"

	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/image"
)

// Handle is an opaque reference to a host window. Display and Window carry
// native handles; Target carries a backend specific value such as a
// headless window.
type Handle struct {
	Display uintptr
	Window  uintptr
	Target  any
}

// Extent2D is a surface size in pixels.
type Extent2D struct {
	Width, Height uint32
}

// ToExtent returns e as a single-layer image extent.
func (e Extent2D) ToExtent() image.Extent {
	return image.Extent{Width: e.Width, Height: e.Height, Depth: 1}
}

// PresentMode is a bitmask of presentation modes.
type PresentMode uint8

// Present modes.
const (
	Immediate PresentMode = 1 << iota
	Mailbox
	Fifo
	Relaxed
)

// CompositeAlpha is a bitmask of alpha compositing modes.
type CompositeAlpha uint8

// Composite alpha modes.
const (
	AlphaOpaque CompositeAlpha = 1 << iota
	AlphaPreMultiplied
	AlphaPostMultiplied
	AlphaInherit
)

// SurfaceCapabilities describe what swapchains a surface supports.
type SurfaceCapabilities struct {
	MinImageCount uint32
	MaxImageCount uint32
	// CurrentExtent is the fixed size of the surface, if any.
	CurrentExtent  *Extent2D
	MinExtent      Extent2D
	MaxExtent      Extent2D
	MaxImageLayers uint16
	Usage          image.Usage
	PresentModes   PresentMode
	CompositeAlpha CompositeAlpha
	Formats        []format.Format
}

// SwapchainConfig configures a swapchain.
type SwapchainConfig struct {
	PresentMode    PresentMode
	CompositeAlpha CompositeAlpha
	Format         format.Format
	Extent         Extent2D
	ImageCount     uint32
	ImageLayers    uint16
	ImageUsage     image.Usage
}

// ErrUnsupportedConfig is returned when a swapchain configuration is not
// supported by a surface.
var ErrUnsupportedConfig = errors.New("window: unsupported swapchain configuration")

// FromCapabilities picks a configuration supported by caps with the
// requested extent and format. Fifo is preferred, then Mailbox. The image
// count is one above the minimum, clamped to the maximum.
func FromCapabilities(caps SurfaceCapabilities, extent Extent2D, f format.Format) SwapchainConfig {
	cfg := SwapchainConfig{
		Format:      f,
		Extent:      clampExtent(caps, extent),
		ImageCount:  caps.MinImageCount + 1,
		ImageLayers: 1,
		ImageUsage:  image.ColorAttachment,
	}
	if caps.MaxImageCount != 0 && cfg.ImageCount > caps.MaxImageCount {
		cfg.ImageCount = caps.MaxImageCount
	}
	for _, m := range []PresentMode{Fifo, Mailbox, Relaxed, Immediate} {
		if caps.PresentModes&m != 0 {
			cfg.PresentMode = m
			break
		}
	}
	for _, a := range []CompositeAlpha{AlphaOpaque, AlphaInherit, AlphaPreMultiplied, AlphaPostMultiplied} {
		if caps.CompositeAlpha&a != 0 {
			cfg.CompositeAlpha = a
			break
		}
	}
	return cfg
}

func clampExtent(caps SurfaceCapabilities, e Extent2D) Extent2D {
	if caps.CurrentExtent != nil {
		return *caps.CurrentExtent
	}
	clamp := func(v, lo, hi uint32) uint32 {
		if v < lo {
			return lo
		}
		if hi != 0 && v > hi {
			return hi
		}
		return v
	}
	return Extent2D{
		Width:  clamp(e.Width, caps.MinExtent.Width, caps.MaxExtent.Width),
		Height: clamp(e.Height, caps.MinExtent.Height, caps.MaxExtent.Height),
	}
}

// Validate checks cfg against caps.
func (cfg SwapchainConfig) Validate(caps SurfaceCapabilities) error {
	if cfg.ImageCount < caps.MinImageCount || (caps.MaxImageCount != 0 && cfg.ImageCount > caps.MaxImageCount) {
		return fmt.Errorf("%w: image count %d outside [%d, %d]",
			ErrUnsupportedConfig, cfg.ImageCount, caps.MinImageCount, caps.MaxImageCount)
	}
	if cfg.Extent.Width == 0 || cfg.Extent.Height == 0 ||
		cfg.Extent.Width < caps.MinExtent.Width || cfg.Extent.Height < caps.MinExtent.Height ||
		(caps.MaxExtent.Width != 0 && cfg.Extent.Width > caps.MaxExtent.Width) ||
		(caps.MaxExtent.Height != 0 && cfg.Extent.Height > caps.MaxExtent.Height) {
		return fmt.Errorf("%w: extent %dx%d", ErrUnsupportedConfig, cfg.Extent.Width, cfg.Extent.Height)
	}
	if cfg.ImageLayers == 0 || (caps.MaxImageLayers != 0 && cfg.ImageLayers > caps.MaxImageLayers) {
		return fmt.Errorf("%w: %d image layers", ErrUnsupportedConfig, cfg.ImageLayers)
	}
	if caps.PresentModes&cfg.PresentMode == 0 || cfg.PresentMode == 0 {
		return fmt.Errorf("%w: present mode %#x", ErrUnsupportedConfig, cfg.PresentMode)
	}
	if caps.CompositeAlpha&cfg.CompositeAlpha == 0 || cfg.CompositeAlpha == 0 {
		return fmt.Errorf("%w: composite alpha %#x", ErrUnsupportedConfig, cfg.CompositeAlpha)
	}
	if !caps.Usage.Contains(cfg.ImageUsage) {
		return fmt.Errorf("%w: image usage %#x", ErrUnsupportedConfig, cfg.ImageUsage)
	}
	if len(caps.Formats) > 0 {
		found := false
		for _, f := range caps.Formats {
			if f == cfg.Format {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: format %v", ErrUnsupportedConfig, cfg.Format)
		}
	}
	return nil
}
