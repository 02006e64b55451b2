// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texture

import (
	"fmt"
	goimage "image"

	"github.com/gogpu/gfx"
	"github.com/gogpu/gfx/buffer"
	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/pool"
	"github.com/gogpu/gfx/pso"
)

// Upload copies src into mip level level, layer 0, of dst through a
// staging buffer and waits for the copy. The previous contents of the
// level are discarded and it is left in LayoutShaderReadOnlyOptimal.
// dst needs image.TransferDst usage.
func Upload(q *gfx.Queue, dst *gfx.Image, level uint8, src goimage.Image) error {
	desc := dst.Desc()
	ext := desc.Kind.Extent().Level(level)
	b := src.Bounds()
	if uint32(b.Dx()) != ext.Width || uint32(b.Dy()) != ext.Height {
		return fmt.Errorf("texture: upload %dx%d into level %d of %dx%d: %w",
			b.Dx(), b.Dy(), level, ext.Width, ext.Height, ErrSize)
	}
	data, err := Pack(src, desc.Format)
	if err != nil {
		return err
	}

	d := q.Device()
	staging, mem, err := d.CreateBoundBuffer(buffer.Desc{
		Label: "texture upload",
		Size:  uint64(len(data)),
		Usage: buffer.TransferSrc,
	}, memory.CPUVisible)
	if err != nil {
		return fmt.Errorf("texture: upload: %w", err)
	}
	defer d.FreeMemory(mem)
	defer d.DestroyBuffer(staging)
	if err := q.WriteBuffer(staging, 0, data); err != nil {
		return fmt.Errorf("texture: upload: %w", err)
	}

	rng := levelRange(level)
	return submitOnce(q, func(cb *gfx.CommandBuffer) error {
		if err := cb.PipelineBarrier(pso.TopOfPipe, pso.Transfer, 0, nil, []gfx.ImageBarrier{{
			Image:     dst,
			Range:     rng,
			DstAccess: image.TransferWrite,
			OldLayout: image.LayoutUndefined,
			NewLayout: image.LayoutTransferDstOptimal,
		}}); err != nil {
			return err
		}
		if err := cb.CopyBufferToImage(staging, dst, image.LayoutTransferDstOptimal, []command.BufferImageCopy{
			copyRegion(level, ext),
		}); err != nil {
			return err
		}
		return cb.PipelineBarrier(pso.Transfer, pso.FragmentShader|pso.ComputeShader, 0, nil, []gfx.ImageBarrier{{
			Image:     dst,
			Range:     rng,
			SrcAccess: image.TransferWrite,
			DstAccess: image.ShaderRead,
			OldLayout: image.LayoutTransferDstOptimal,
			NewLayout: image.LayoutShaderReadOnlyOptimal,
		}})
	})
}

// Readback copies mip level level, layer 0, of src into a new image and
// waits for the copy. layout is the current layout of the level; it is
// restored afterwards unless it is LayoutUndefined, in which case the level
// is left in LayoutTransferSrcOptimal. src needs image.TransferSrc usage.
func Readback(q *gfx.Queue, src *gfx.Image, level uint8, layout image.Layout) (*goimage.NRGBA, error) {
	desc := src.Desc()
	if !Supported(desc.Format) {
		return nil, fmt.Errorf("texture: read back %v: %w", desc.Format, hal.ErrUnsupportedFormat)
	}
	ext := desc.Kind.Extent().Level(level)
	size := uint64(ext.Width) * uint64(ext.Height) * uint64(desc.Format.Desc().BytesPerTexel())

	d := q.Device()
	staging, mem, err := d.CreateBoundBuffer(buffer.Desc{
		Label: "texture readback",
		Size:  size,
		Usage: buffer.TransferDst,
	}, memory.CPUVisible)
	if err != nil {
		return nil, fmt.Errorf("texture: read back: %w", err)
	}
	defer d.FreeMemory(mem)
	defer d.DestroyBuffer(staging)

	rng := levelRange(level)
	err = submitOnce(q, func(cb *gfx.CommandBuffer) error {
		if err := cb.PipelineBarrier(pso.BottomOfPipe, pso.Transfer, 0, nil, []gfx.ImageBarrier{{
			Image:     src,
			Range:     rng,
			SrcAccess: image.MemoryWrite,
			DstAccess: image.TransferRead,
			OldLayout: layout,
			NewLayout: image.LayoutTransferSrcOptimal,
		}}); err != nil {
			return err
		}
		if err := cb.CopyImageToBuffer(src, image.LayoutTransferSrcOptimal, staging, []command.BufferImageCopy{
			copyRegion(level, ext),
		}); err != nil {
			return err
		}
		if layout == image.LayoutUndefined || layout == image.LayoutPreinitialized {
			return nil
		}
		return cb.PipelineBarrier(pso.Transfer, pso.BottomOfPipe, 0, nil, []gfx.ImageBarrier{{
			Image:     src,
			Range:     rng,
			SrcAccess: image.TransferRead,
			OldLayout: image.LayoutTransferSrcOptimal,
			NewLayout: layout,
		}})
	})
	if err != nil {
		return nil, err
	}

	data := make([]byte, size)
	if err := q.ReadBuffer(staging, 0, data); err != nil {
		return nil, fmt.Errorf("texture: read back: %w", err)
	}
	return Unpack(data, int(ext.Width), int(ext.Height), desc.Format)
}

// UploadMips uploads a full chain generated from src into every level of
// dst. src must match level 0.
func UploadMips(q *gfx.Queue, dst *gfx.Image, src goimage.Image) error {
	levels := int(dst.Desc().NumLevels())
	for l, img := range MipChain(src, levels) {
		if err := Upload(q, dst, uint8(l), img); err != nil {
			return err
		}
	}
	return nil
}

func levelRange(level uint8) image.SubresourceRange {
	return image.SubresourceRange{
		Aspects:    format.AspectColor,
		LevelStart: level,
		LevelCount: 1,
		LayerCount: 1,
	}
}

func copyRegion(level uint8, ext image.Extent) command.BufferImageCopy {
	return command.BufferImageCopy{
		ImageLayers: image.SubresourceLayers{Aspects: format.AspectColor, Level: level, LayerCount: 1},
		ImageExtent: image.Extent{Width: ext.Width, Height: ext.Height, Depth: 1},
	}
}

// submitOnce records one command buffer with record, submits it to q and
// waits for it.
func submitOnce(q *gfx.Queue, record func(cb *gfx.CommandBuffer) error) error {
	d := q.Device()
	cp, err := d.CreateCommandPool(q.Family().ID, pool.Transient)
	if err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	defer d.DestroyCommandPool(cp)
	cb, err := cp.AllocateOne(command.Primary)
	if err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	if err := cb.Begin(command.OneTimeSubmit, nil); err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	if err := record(cb); err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	if err := cb.End(); err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	fence, err := d.CreateFence(false)
	if err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	defer d.DestroyFence(fence)
	if err := q.Submit(gfx.Submission{CommandBuffers: []*gfx.CommandBuffer{cb}}, fence); err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	if err := fence.Wait(gfx.WaitForever); err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	return nil
}
