// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/window"
)

// Swapchain is a series of presentable images of a surface.
type Swapchain struct {
	resource
	raw     hal.Swapchain
	surface *Surface
	cfg     window.SwapchainConfig
	images  []*Image
	retired atomic.Bool
}

func (sc *Swapchain) base() *resource {
	if sc == nil {
		return nil
	}
	return &sc.resource
}

// Config returns the configuration the swapchain was created with.
func (sc *Swapchain) Config() window.SwapchainConfig { return sc.cfg }

// Images returns the presentable images. They are owned by the swapchain
// and must not be destroyed or bound to memory.
func (sc *Swapchain) Images() []*Image { return sc.images }

// CreateSwapchain creates a swapchain for s. When old is non-nil it is
// retired: acquiring from it fails with ErrOutOfDate, and it must still be
// destroyed.
func (d *Device) CreateSwapchain(s *Surface, cfg window.SwapchainConfig, old *Swapchain) (*Swapchain, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if s == nil || s.destroyed.Load() {
		return nil, fmt.Errorf("create swapchain: %w: surface", ErrDestroyed)
	}
	if s.instance != d.adapter.instance {
		return nil, fmt.Errorf("create swapchain: %w: surface of another instance", ErrForeignResource)
	}
	caps := s.Capabilities(d.adapter)
	if err := cfg.Validate(caps); err != nil {
		return nil, fmt.Errorf("create swapchain: %w", err)
	}
	var rawOld hal.Swapchain
	if old != nil {
		if err := d.use(old); err != nil {
			return nil, fmt.Errorf("create swapchain: old: %w", err)
		}
		if old.surface != s {
			return nil, fmt.Errorf("create swapchain: %w: old swapchain of another surface", ErrInvalidDesc)
		}
		rawOld = old.raw
	}
	raw, rawImages, err := d.raw.CreateSwapchain(s.raw, cfg, rawOld)
	if err != nil {
		return nil, fmt.Errorf("create swapchain: %w", d.observe(err))
	}
	if old != nil {
		old.retired.Store(true)
	}
	sc := &Swapchain{resource: resource{device: d}, raw: raw, surface: s, cfg: cfg}
	desc := image.Desc{
		Label:     "swapchain",
		Kind:      image.Kind2D(cfg.Extent.Width, cfg.Extent.Height, cfg.ImageLayers, 1),
		MipLevels: 1,
		Format:    cfg.Format,
		Tiling:    image.TilingOptimal,
		Usage:     cfg.ImageUsage,
	}
	sc.images = make([]*Image, len(rawImages))
	for i, ri := range rawImages {
		sc.images[i] = &Image{
			resource:  resource{device: d, label: fmt.Sprintf("swapchain image %d", i)},
			raw:       ri,
			desc:      desc,
			swapchain: sc,
		}
	}
	Logger().Debug("gfx: swapchain created",
		"extent", fmt.Sprintf("%dx%d", cfg.Extent.Width, cfg.Extent.Height),
		"format", cfg.Format, "images", len(rawImages))
	return sc, nil
}

// AcquireImage returns the index of the next image to render into.
// semaphore and fence, either of which may be nil, are signaled once the
// image can be used. It returns ErrTimeout when no image becomes available
// in time and ErrOutOfDate when the swapchain must be recreated.
func (sc *Swapchain) AcquireImage(timeout time.Duration, semaphore *Semaphore, fence *Fence) (uint32, error) {
	d := sc.device
	if err := d.alive(); err != nil {
		return 0, err
	}
	if err := d.use(sc); err != nil {
		return 0, fmt.Errorf("acquire image: %w", err)
	}
	if sc.retired.Load() {
		return 0, fmt.Errorf("acquire image: %w", hal.ErrOutOfDate)
	}
	var rawSem hal.Semaphore
	if semaphore != nil {
		if err := d.use(semaphore); err != nil {
			return 0, fmt.Errorf("acquire image: %w", err)
		}
		rawSem = semaphore.raw
	}
	var rawFence hal.Fence
	if fence != nil {
		if err := d.use(fence); err != nil {
			return 0, fmt.Errorf("acquire image: %w", err)
		}
		fence.mu.Lock()
		err := fence.arm()
		fence.mu.Unlock()
		if err != nil {
			return 0, fmt.Errorf("acquire image: fence: %w", err)
		}
		rawFence = fence.raw
	}
	index, err := sc.raw.AcquireImage(timeout, rawSem, rawFence)
	if err != nil {
		return 0, fmt.Errorf("acquire image: %w", d.observe(err))
	}
	return index, nil
}

// DestroySwapchain destroys sc and its images.
func (d *Device) DestroySwapchain(sc *Swapchain) {
	if !d.release(sc.base()) {
		return
	}
	for _, img := range sc.images {
		img.destroyed.Store(true)
	}
	d.raw.DestroySwapchain(sc.raw)
}

// Destroy destroys the swapchain.
func (sc *Swapchain) Destroy() { sc.device.DestroySwapchain(sc) }
