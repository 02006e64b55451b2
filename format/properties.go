// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package format

// ImageFeature is a bitmask of operations an image of a given format supports.
type ImageFeature uint32

// Image features.
const (
	ImageSampled ImageFeature = 1 << iota
	ImageStorage
	ImageStorageAtomic
	ImageColorAttachment
	ImageColorAttachmentBlend
	ImageDepthStencilAttachment
	ImageBlitSrc
	ImageBlitDst
	ImageSampledLinear
	ImageTransferSrc
	ImageTransferDst
)

// Contains reports whether all bits of other are set in f.
func (f ImageFeature) Contains(other ImageFeature) bool {
	return f&other == other
}

// BufferFeature is a bitmask of operations a buffer view of a given format supports.
type BufferFeature uint32

// Buffer features.
const (
	BufferUniformTexel BufferFeature = 1 << iota
	BufferStorageTexel
	BufferStorageTexelAtomic
	BufferVertex
)

// Contains reports whether all bits of other are set in f.
func (f BufferFeature) Contains(other BufferFeature) bool {
	return f&other == other
}

// Properties lists the features supported for a format with linear and
// optimal tiling, and as buffer data.
type Properties struct {
	LinearTiling  ImageFeature
	OptimalTiling ImageFeature
	Buffer        BufferFeature
}

// DefaultProperties returns the feature set a conforming device is expected
// to support for f. Backends report their own properties; this is the
// baseline used by reference implementations.
func DefaultProperties(f Format) Properties {
	if !f.Valid() {
		return Properties{}
	}
	transfer := ImageTransferSrc | ImageTransferDst | ImageBlitSrc | ImageBlitDst
	if f.IsDepthStencil() {
		return Properties{
			OptimalTiling: transfer | ImageSampled | ImageDepthStencilAttachment,
		}
	}
	d := f.Desc()
	optimal := transfer | ImageSampled | ImageColorAttachment
	if d.Type == ChannelUnorm || d.Type == ChannelSrgb || d.Type == ChannelFloat {
		optimal |= ImageColorAttachmentBlend | ImageSampledLinear
	}
	if d.Type != ChannelSrgb {
		optimal |= ImageStorage
	}
	if f == R32Uint || f == R32Sint {
		optimal |= ImageStorageAtomic
	}
	buf := BufferVertex | BufferUniformTexel
	if d.Type != ChannelSrgb {
		buf |= BufferStorageTexel
	}
	return Properties{
		LinearTiling:  transfer | ImageSampled,
		OptimalTiling: optimal,
		Buffer:        buf,
	}
}
