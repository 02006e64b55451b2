// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	goimage "image"
	"sync"
	"time"

	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/internal/color"
	"github.com/gogpu/gfx/queue"
	"github.com/gogpu/gfx/window"
)

// HeadlessWindow is an offscreen window surfaces of this backend present
// into. Pass Handle() to gfx.Instance.CreateSurface.
type HeadlessWindow struct {
	mu     sync.Mutex
	size   window.Extent2D
	frame  []byte
	format format.Format
	extent window.Extent2D
	frames int
}

// NewHeadlessWindow returns a window of the given size.
func NewHeadlessWindow(width, height uint32) *HeadlessWindow {
	return &HeadlessWindow{size: window.Extent2D{Width: width, Height: height}}
}

// Handle returns the window handle of w.
func (w *HeadlessWindow) Handle() window.Handle {
	return window.Handle{Target: w}
}

// Resize changes the window size. Swapchains of other sizes become out of
// date.
func (w *HeadlessWindow) Resize(width, height uint32) {
	w.mu.Lock()
	w.size = window.Extent2D{Width: width, Height: height}
	w.mu.Unlock()
}

// Size returns the window size.
func (w *HeadlessWindow) Size() window.Extent2D {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Frames returns the number of images presented so far.
func (w *HeadlessWindow) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// LastFrame returns a copy of the last presented image as RGBA. It
// reports false before the first present or when the swapchain format has
// no RGBA conversion.
func (w *HeadlessWindow) LastFrame() (*goimage.RGBA, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.frame == nil {
		return nil, false
	}
	img := goimage.NewRGBA(goimage.Rect(0, 0, int(w.extent.Width), int(w.extent.Height)))
	if !color.ToRGBA8(img.Pix, w.frame, w.format) {
		return nil, false
	}
	return img, true
}

func (w *HeadlessWindow) present(pixels []byte, f format.Format, extent window.Extent2D) {
	w.mu.Lock()
	w.frame = append(w.frame[:0], pixels...)
	w.format = f
	w.extent = extent
	w.frames++
	w.mu.Unlock()
}

type surface struct {
	window *HeadlessWindow
}

var _ hal.Surface = (*surface)(nil)

func (s *surface) Capabilities(hal.PhysicalDevice) window.SurfaceCapabilities {
	size := s.window.Size()
	return window.SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  8,
		CurrentExtent:  &size,
		MinExtent:      window.Extent2D{Width: 1, Height: 1},
		MaxExtent:      window.Extent2D{Width: 16384, Height: 16384},
		MaxImageLayers: 1,
		Usage:          image.ColorAttachment | image.TransferSrc | image.TransferDst | image.Sampled | image.Storage,
		PresentModes:   window.Fifo | window.Mailbox | window.Immediate,
		CompositeAlpha: window.AlphaOpaque | window.AlphaPreMultiplied,
		Formats:        []format.Format{format.BGRA8Unorm, format.BGRA8Srgb, format.RGBA8Unorm, format.RGBA8Srgb},
	}
}

// SupportsQueueFamily reports true for the general family only.
func (s *surface) SupportsQueueFamily(family queue.FamilyID) bool {
	return family == FamilyGeneral
}

// swapchain owns its images. acquired, next and retired are guarded by
// dev.mu.
type swapchain struct {
	dev    *device
	window *HeadlessWindow
	cfg    window.SwapchainConfig
	images []*texelImage

	acquired []bool
	next     int
	retired  bool
}

var _ hal.Swapchain = (*swapchain)(nil)

func newSwapchain(d *device, w *HeadlessWindow, cfg window.SwapchainConfig) *swapchain {
	sc := &swapchain{dev: d, window: w, cfg: cfg, acquired: make([]bool, cfg.ImageCount)}
	desc := image.Desc{
		Label:     "swapchain",
		Kind:      image.Kind2D(cfg.Extent.Width, cfg.Extent.Height, cfg.ImageLayers, 1),
		MipLevels: 1,
		Format:    cfg.Format,
		Tiling:    image.TilingOptimal,
		Usage:     cfg.ImageUsage,
	}
	for range cfg.ImageCount {
		img := newTexelImage(desc)
		img.own = make([]byte, img.size)
		sc.images = append(sc.images, img)
	}
	return sc
}

func (sc *swapchain) retire() {
	sc.dev.mu.Lock()
	sc.retired = true
	sc.dev.cond.Broadcast()
	sc.dev.mu.Unlock()
}

func (sc *swapchain) outOfDate() bool {
	return sc.window.Size() != sc.cfg.Extent
}

func (sc *swapchain) AcquireImage(timeout time.Duration, sem hal.Semaphore, f hal.Fence) (uint32, error) {
	d := sc.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if sc.retired || sc.outOfDate() {
		return 0, hal.ErrOutOfDate
	}
	idx := -1
	ok, err := d.waitUntil(timeout, func() bool {
		idx = sc.free()
		return idx >= 0 || sc.retired
	})
	switch {
	case err != nil:
		return 0, err
	case !ok:
		return 0, hal.ErrTimeout
	case sc.retired:
		return 0, hal.ErrOutOfDate
	}
	sc.acquired[idx] = true
	sc.next = (idx + 1) % len(sc.images)
	if sem != nil {
		sem.(*semaphore).signaled = true
	}
	if f != nil {
		f.(*fence).signaled = true
	}
	d.cond.Broadcast()
	return uint32(idx), nil
}

// free returns the first image not acquired, searching from next, or -1.
func (sc *swapchain) free() int {
	for i := range sc.images {
		idx := (sc.next + i) % len(sc.images)
		if !sc.acquired[idx] {
			return idx
		}
	}
	return -1
}

// release returns image index to the swapchain. The caller holds dev.mu.
func (sc *swapchain) release(index uint32) {
	if int(index) < len(sc.acquired) {
		sc.acquired[index] = false
	}
}

func (sc *swapchain) show(index uint32) {
	sc.window.present(sc.images[index].subresource(0, 0), sc.cfg.Format, sc.cfg.Extent)
}
