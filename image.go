// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"sync"

	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
)

// Image is a texel resource. Images created by the device need memory
// bound before use; swapchain images are bound by the swapchain.
type Image struct {
	resource
	raw       hal.Image
	desc      image.Desc
	req       memory.Requirements
	swapchain *Swapchain

	mu     sync.Mutex
	mem    *Memory
	offset uint64
}

func (img *Image) base() *resource {
	if img == nil {
		return nil
	}
	return &img.resource
}

// Desc returns the description the image was created with.
func (img *Image) Desc() image.Desc { return img.desc }

// Requirements returns the memory requirements of the image.
func (img *Image) Requirements() memory.Requirements { return img.req }

func (img *Image) bound() bool {
	if img.swapchain != nil {
		return true
	}
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.mem != nil
}

// usageFeatures maps image usage to the format features it needs.
var usageFeatures = []struct {
	usage   image.Usage
	feature format.ImageFeature
}{
	{image.TransferSrc, format.ImageTransferSrc},
	{image.TransferDst, format.ImageTransferDst},
	{image.Sampled, format.ImageSampled},
	{image.Storage, format.ImageStorage},
	{image.ColorAttachment, format.ImageColorAttachment},
	{image.DepthStencilAttachment, format.ImageDepthStencilAttachment},
}

// validateImage checks desc against the adapter limits and the features of
// its format. Violations are reported as ErrUnsupportedFormat.
func (d *Device) validateImage(desc image.Desc) error {
	k := desc.Kind
	if k.Width == 0 || k.Height == 0 || k.Depth == 0 {
		return fmt.Errorf("%w: empty extent %dx%dx%d", ErrInvalidDesc, k.Width, k.Height, k.Depth)
	}
	if desc.Usage == 0 {
		return fmt.Errorf("%w: no usage", ErrInvalidUsage)
	}
	if !desc.Format.Valid() {
		return fmt.Errorf("%w: %v", hal.ErrUnsupportedFormat, desc.Format)
	}
	if limit := d.limits.MaxImageSize(int(k.Dim)); limit > 0 {
		if k.Width > limit || k.Height > limit || k.Depth > limit {
			return fmt.Errorf("%w: extent %dx%dx%d exceeds %d", hal.ErrUnsupportedFormat, k.Width, k.Height, k.Depth, limit)
		}
	}
	if limit := d.limits.MaxImageArrayLayers; limit > 0 && k.NumLayers() > limit {
		return fmt.Errorf("%w: %d layers exceed %d", hal.ErrUnsupportedFormat, k.NumLayers(), limit)
	}
	if desc.NumLevels() > k.MaxMipLevels() {
		return fmt.Errorf("%w: %d mip levels exceed full chain of %d", hal.ErrUnsupportedFormat, desc.NumLevels(), k.MaxMipLevels())
	}
	if n := k.NumSamples(); n > 1 {
		counts := d.limits.FramebufferColorSamples
		if desc.Format.IsDepthStencil() {
			counts = d.limits.FramebufferDepthSamples
		}
		if !counts.Supports(n) || k.Dim != image.D2 || desc.NumLevels() != 1 {
			return fmt.Errorf("%w: %d samples", hal.ErrUnsupportedFormat, n)
		}
	}

	props := d.adapter.FormatProperties(desc.Format)
	features := props.OptimalTiling
	if desc.Tiling == image.TilingLinear {
		features = props.LinearTiling
	}
	for _, uf := range usageFeatures {
		if desc.Usage.Contains(uf.usage) && !features.Contains(uf.feature) {
			return fmt.Errorf("%w: %v does not support usage %#x", hal.ErrUnsupportedFormat, desc.Format, uf.usage)
		}
	}
	return nil
}

// CreateImage creates an unbound image.
//
// Extents, layer counts, mip levels or sample counts beyond the adapter
// limits and usages the format does not support fail with
// ErrUnsupportedFormat.
func (d *Device) CreateImage(desc image.Desc) (*Image, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if err := d.validateImage(desc); err != nil {
		return nil, fmt.Errorf("create image %q: %w", desc.Label, err)
	}
	raw, err := d.raw.CreateImage(desc)
	if err != nil {
		return nil, fmt.Errorf("create image %q: %w", desc.Label, d.observe(err))
	}
	Logger().Debug("gfx: image created", "label", desc.Label, "format", desc.Format,
		"width", desc.Kind.Width, "height", desc.Kind.Height)
	return &Image{
		resource: resource{device: d, label: desc.Label},
		raw:      raw,
		desc:     desc,
		req:      d.raw.ImageRequirements(raw),
	}, nil
}

// BindImageMemory binds m at offset to img. An image is bound exactly once.
func (d *Device) BindImageMemory(m *Memory, offset uint64, img *Image) error {
	if err := d.alive(); err != nil {
		return err
	}
	if err := d.use(m, img); err != nil {
		return fmt.Errorf("bind image memory: %w", err)
	}
	if img.swapchain != nil {
		return fmt.Errorf("bind image memory %q: %w: swapchain image", img.label, ErrAlreadyBound)
	}
	if err := checkBinding(img.req, m, offset); err != nil {
		return fmt.Errorf("bind image memory %q: %w", img.label, err)
	}

	img.mu.Lock()
	defer img.mu.Unlock()
	if img.mem != nil {
		return fmt.Errorf("bind image memory %q: %w", img.label, ErrAlreadyBound)
	}
	if err := d.raw.BindImageMemory(m.raw, offset, img.raw); err != nil {
		return fmt.Errorf("bind image memory %q: %w", img.label, d.observe(err))
	}
	img.mem, img.offset = m, offset
	return nil
}

// CreateBoundImage creates an image and binds it to a dedicated
// allocation of the first memory type with props.
func (d *Device) CreateBoundImage(desc image.Desc, props memory.Properties) (*Image, *Memory, error) {
	img, err := d.CreateImage(desc)
	if err != nil {
		return nil, nil, err
	}
	typ, ok := d.adapter.FindMemoryType(img.req, props)
	if !ok {
		d.DestroyImage(img)
		return nil, nil, fmt.Errorf("create image %q: %w: no memory type with %v", desc.Label, ErrInvalidMemoryBinding, props)
	}
	m, err := d.AllocateMemory(typ, img.req.Size)
	if err != nil {
		d.DestroyImage(img)
		return nil, nil, err
	}
	if err := d.BindImageMemory(m, 0, img); err != nil {
		d.DestroyImage(img)
		d.FreeMemory(m)
		return nil, nil, err
	}
	return img, m, nil
}

// DestroyImage destroys img. Swapchain images are owned by their
// swapchain and are not destroyed.
func (d *Device) DestroyImage(img *Image) {
	if img == nil || img.swapchain != nil {
		return
	}
	if d.release(img.base()) {
		d.raw.DestroyImage(img.raw)
	}
}

// Destroy destroys the image.
func (img *Image) Destroy() { img.device.DestroyImage(img) }

// checkImage validates that img is usable for a command needing usage.
func (d *Device) checkImage(img *Image, usage image.Usage) error {
	if err := d.use(img); err != nil {
		return err
	}
	if !img.desc.Usage.Contains(usage) {
		return fmt.Errorf("%w: image %q lacks %#x", ErrInvalidUsage, img.label, usage)
	}
	if !img.bound() {
		return fmt.Errorf("%w: image %q", ErrUnbound, img.label)
	}
	return nil
}

// checkSubresource validates r against img.
func checkSubresource(img *Image, r image.SubresourceRange) error {
	if _, _, ok := r.Resolve(img.desc.NumLevels(), img.desc.Kind.NumLayers()); !ok {
		return fmt.Errorf("%w: subresource range outside image %q", ErrInvalidDesc, img.label)
	}
	if r.Aspects == 0 || img.desc.Format.Aspects()&r.Aspects != r.Aspects {
		return fmt.Errorf("%w: aspects %#x not in format %v", ErrInvalidDesc, r.Aspects, img.desc.Format)
	}
	return nil
}

// checkLayers validates copy layers l against img.
func checkLayers(img *Image, l image.SubresourceLayers) error {
	return checkSubresource(img, image.SubresourceRange{
		Aspects:    l.Aspects,
		LevelStart: l.Level,
		LevelCount: 1,
		LayerStart: l.LayerStart,
		LayerCount: max(l.LayerCount, 1),
	})
}

// ImageView is a typed view of image subresources.
type ImageView struct {
	resource
	raw   hal.ImageView
	image *Image
	desc  image.ViewDesc
}

func (v *ImageView) base() *resource {
	if v == nil {
		return nil
	}
	return &v.resource
}

// Image returns the viewed image.
func (v *ImageView) Image() *Image { return v.image }

// Desc returns the description the view was created with.
func (v *ImageView) Desc() image.ViewDesc { return v.desc }

// CreateImageView creates a view of img.
func (d *Device) CreateImageView(img *Image, desc image.ViewDesc) (*ImageView, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if err := d.use(img); err != nil {
		return nil, fmt.Errorf("create image view %q: %w", desc.Label, err)
	}
	if !desc.Format.Valid() {
		return nil, fmt.Errorf("create image view %q: %w: %v", desc.Label, hal.ErrUnsupportedFormat, desc.Format)
	}
	if desc.Format != img.desc.Format && img.desc.ViewCaps&image.ViewMutableFormat == 0 {
		return nil, fmt.Errorf("create image view %q: %w: format %v of image %v without mutable format",
			desc.Label, hal.ErrUnsupportedFormat, desc.Format, img.desc.Format)
	}
	if err := checkSubresource(img, desc.Range); err != nil {
		return nil, fmt.Errorf("create image view %q: %w", desc.Label, err)
	}
	if err := checkViewKind(img.desc, desc); err != nil {
		return nil, fmt.Errorf("create image view %q: %w", desc.Label, err)
	}
	raw, err := d.raw.CreateImageView(img.raw, desc)
	if err != nil {
		return nil, fmt.Errorf("create image view %q: %w", desc.Label, d.observe(err))
	}
	return &ImageView{resource: resource{device: d, label: desc.Label}, raw: raw, image: img, desc: desc}, nil
}

func checkViewKind(id image.Desc, vd image.ViewDesc) error {
	_, layers, _ := vd.Range.Resolve(id.NumLevels(), id.Kind.NumLayers())
	switch vd.Kind {
	case image.View1D, image.View1DArray:
		if id.Kind.Dim != image.D1 {
			return fmt.Errorf("%w: 1D view of %dD image", ErrInvalidDesc, id.Kind.Dim)
		}
	case image.View2D, image.View2DArray:
		if id.Kind.Dim == image.D3 && id.ViewCaps&image.ViewKind2DArray == 0 {
			return fmt.Errorf("%w: 2D view of 3D image", ErrInvalidDesc)
		}
		if id.Kind.Dim == image.D1 {
			return fmt.Errorf("%w: 2D view of 1D image", ErrInvalidDesc)
		}
	case image.View3D:
		if id.Kind.Dim != image.D3 {
			return fmt.Errorf("%w: 3D view of %dD image", ErrInvalidDesc, id.Kind.Dim)
		}
	case image.ViewCube, image.ViewCubeArray:
		if id.ViewCaps&image.ViewKindCube == 0 || id.Kind.Width != id.Kind.Height {
			return fmt.Errorf("%w: cube view of image without cube capability", ErrInvalidDesc)
		}
		if layers%6 != 0 || (vd.Kind == image.ViewCube && layers != 6) {
			return fmt.Errorf("%w: cube view of %d layers", ErrInvalidDesc, layers)
		}
	}
	if (vd.Kind == image.View1D || vd.Kind == image.View2D || vd.Kind == image.View3D) && layers != 1 {
		return fmt.Errorf("%w: non-array view of %d layers", ErrInvalidDesc, layers)
	}
	return nil
}

// DestroyImageView destroys v.
func (d *Device) DestroyImageView(v *ImageView) {
	if d.release(v.base()) {
		d.raw.DestroyImageView(v.raw)
	}
}

// Destroy destroys the view.
func (v *ImageView) Destroy() { v.device.DestroyImageView(v) }

// Sampler holds texture sampling state.
type Sampler struct {
	resource
	raw  hal.Sampler
	desc image.SamplerDesc
}

func (s *Sampler) base() *resource {
	if s == nil {
		return nil
	}
	return &s.resource
}

// Desc returns the description the sampler was created with.
func (s *Sampler) Desc() image.SamplerDesc { return s.desc }

// CreateSampler creates a sampler. It fails with ErrTooManyObjects once
// MaxSamplerAllocationCount samplers are live.
func (d *Device) CreateSampler(desc image.SamplerDesc) (*Sampler, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if desc.Anisotropy > 1 {
		if err := d.require(hal.FeatureSamplerAnisotropy, "create sampler"); err != nil {
			return nil, err
		}
		if limit := d.limits.MaxSamplerAnisotropy; limit > 0 && float32(desc.Anisotropy) > limit {
			return nil, fmt.Errorf("create sampler %q: %w: anisotropy %d > %v", desc.Label, ErrLimitExceeded, desc.Anisotropy, limit)
		}
	}
	if desc.LodMin > desc.LodMax {
		return nil, fmt.Errorf("create sampler %q: %w: lod range %v > %v", desc.Label, ErrInvalidDesc, desc.LodMin, desc.LodMax)
	}
	if limit := d.limits.MaxSamplerAllocationCount; limit > 0 {
		if n := d.samplerCount.Add(1); n > int64(limit) {
			d.samplerCount.Add(-1)
			return nil, fmt.Errorf("create sampler %q: %w: %d samplers", desc.Label, hal.ErrTooManyObjects, limit)
		}
	} else {
		d.samplerCount.Add(1)
	}
	raw, err := d.raw.CreateSampler(desc)
	if err != nil {
		d.samplerCount.Add(-1)
		return nil, fmt.Errorf("create sampler %q: %w", desc.Label, d.observe(err))
	}
	return &Sampler{resource: resource{device: d, label: desc.Label}, raw: raw, desc: desc}, nil
}

// DestroySampler destroys s.
func (d *Device) DestroySampler(s *Sampler) {
	if d.release(s.base()) {
		d.samplerCount.Add(-1)
		d.raw.DestroySampler(s.raw)
	}
}

// Destroy destroys the sampler.
func (s *Sampler) Destroy() { s.device.DestroySampler(s) }
