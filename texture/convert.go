// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package texture converts between Go images and the tightly packed texel
// data that gfx images hold, and moves images to and from the device.
//
// Channel values are copied without color space conversion: 8-bit sRGB
// formats receive the bytes of the Go image unchanged, and float formats
// receive each channel divided by 255.
package texture

import (
	"encoding/binary"
	"errors"
	"fmt"
	goimage "image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/image"
	"github.com/gogpu/gfx/internal/color"
)

// ErrSize is returned when an image does not match the extent it is
// copied to.
var ErrSize = errors.New("texture: size mismatch")

// Supported reports whether Pack and Unpack handle f.
func Supported(f format.Format) bool {
	switch f {
	case format.RGBA8Unorm, format.RGBA8Srgb, format.RGBA8Uint,
		format.BGRA8Unorm, format.BGRA8Srgb, format.R8Unorm,
		format.RGBA16Float, format.RGBA32Float:
		return true
	}
	return false
}

// NRGBA returns src as a non-premultiplied image with its origin at zero.
// src is returned as is when it already has that form.
func NRGBA(src goimage.Image) *goimage.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*goimage.NRGBA); ok && b.Min == (goimage.Point{}) && n.Stride == 4*b.Dx() {
		return n
	}
	dst := goimage.NewNRGBA(goimage.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst
}

// Pack converts src into tightly packed texels of format f, row by row
// from the top.
func Pack(src goimage.Image, f format.Format) ([]byte, error) {
	b := src.Bounds()
	if f == format.R8Unorm {
		g := goimage.NewGray(goimage.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Draw(g, g.Bounds(), src, b.Min, xdraw.Src)
		return g.Pix, nil
	}

	pix := NRGBA(src).Pix
	switch f {
	case format.RGBA8Unorm, format.RGBA8Srgb, format.RGBA8Uint:
		return pix, nil
	case format.BGRA8Unorm, format.BGRA8Srgb:
		out := make([]byte, len(pix))
		for i := 0; i < len(pix); i += 4 {
			out[i], out[i+1], out[i+2], out[i+3] = pix[i+2], pix[i+1], pix[i], pix[i+3]
		}
		return out, nil
	case format.RGBA16Float:
		out := make([]byte, len(pix)*2)
		for i, v := range pix {
			binary.LittleEndian.PutUint16(out[i*2:], color.Float16(float32(v)/255))
		}
		return out, nil
	case format.RGBA32Float:
		out := make([]byte, len(pix)*4)
		for i, v := range pix {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)/255))
		}
		return out, nil
	}
	return nil, fmt.Errorf("texture: pack %v: %w", f, hal.ErrUnsupportedFormat)
}

// Unpack converts width by height texels of format f into an image.
func Unpack(data []byte, width, height int, f format.Format) (*goimage.NRGBA, error) {
	if !Supported(f) {
		return nil, fmt.Errorf("texture: unpack %v: %w", f, hal.ErrUnsupportedFormat)
	}
	need := width * height * int(f.Desc().BytesPerTexel())
	if width < 0 || height < 0 || len(data) < need {
		return nil, fmt.Errorf("texture: unpack %dx%d %v from %d bytes: %w", width, height, f, len(data), ErrSize)
	}
	dst := goimage.NewNRGBA(goimage.Rect(0, 0, width, height))
	color.ToRGBA8(dst.Pix, data[:need], f)
	return dst, nil
}

// Resize scales src to width by height with Catmull-Rom filtering.
func Resize(src goimage.Image, width, height int) *goimage.NRGBA {
	dst := goimage.NewNRGBA(goimage.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// MipChain returns levels images starting with src, each half the size of
// the one before and never smaller than one texel. levels is clamped to
// the length of a full chain.
func MipChain(src goimage.Image, levels int) []*goimage.NRGBA {
	b := src.Bounds()
	full := int(image.MaxMipLevels(image.Extent{Width: uint32(b.Dx()), Height: uint32(b.Dy()), Depth: 1}))
	levels = min(max(levels, 1), full)
	if full == 0 {
		return nil
	}

	chain := make([]*goimage.NRGBA, levels)
	chain[0] = NRGBA(src)
	for l := 1; l < levels; l++ {
		prev := chain[l-1].Bounds()
		w, h := max(prev.Dx()/2, 1), max(prev.Dy()/2, 1)
		next := goimage.NewNRGBA(goimage.Rect(0, 0, w, h))
		xdraw.BiLinear.Scale(next, next.Bounds(), chain[l-1], prev, xdraw.Src, nil)
		chain[l] = next
	}
	return chain
}
