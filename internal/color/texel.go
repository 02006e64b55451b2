// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package color

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gfx/command"
	"github.com/gogpu/gfx/format"
)

// swizzled reports whether f stores its first and third channels swapped.
func swizzled(f format.Format) bool {
	return f == format.BGRA8Unorm || f == format.BGRA8Srgb
}

// EncodeColor returns one texel of color format f holding c. The Float32,
// Uint32 or Sint32 field of c is used according to the channel type of f.
// It returns nil for formats without a color aspect.
func EncodeColor(f format.Format, c command.ClearColor) []byte {
	d := f.Desc()
	if !f.IsColor() || d.Channels == 0 {
		return nil
	}
	out := make([]byte, d.BytesPerTexel())
	size := int(d.Bits) / int(d.Channels) / 8
	for i := range int(d.Channels) {
		src := i
		if swizzled(f) && i != 3 {
			src = 2 - i
		}
		dst := out[i*size : (i+1)*size]
		switch d.Type {
		case format.ChannelUnorm:
			putUnorm(dst, c.Float32[src])
		case format.ChannelSrgb:
			if src == 3 {
				putUnorm(dst, c.Float32[src])
			} else {
				dst[0] = LinearToSRGB(c.Float32[src])
			}
		case format.ChannelUint:
			putUint(dst, uint64(c.Uint32[src]))
		case format.ChannelSint:
			//nolint:gosec // G115: two's complement truncation is intended
			putUint(dst, uint64(int64(c.Sint32[src])))
		case format.ChannelFloat:
			if size == 2 {
				binary.LittleEndian.PutUint16(dst, Float16(c.Float32[src]))
			} else {
				binary.LittleEndian.PutUint32(dst, math.Float32bits(c.Float32[src]))
			}
		}
	}
	return out
}

func putUnorm(dst []byte, v float32) {
	v = min(max(v, 0), 1)
	switch len(dst) {
	case 1:
		dst[0] = uint8(v*255 + 0.5)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(v*65535+0.5))
	}
}

func putUint(dst []byte, v uint64) {
	switch len(dst) {
	case 1:
		dst[0] = uint8(v)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(v))
	}
}

// WriteDepthStencil stores the aspects of v selected by aspects into the
// depth-stencil texel dst of format f. Unselected aspects keep their bits.
func WriteDepthStencil(dst []byte, f format.Format, aspects format.Aspects, v command.ClearDepthStencil) {
	depth := aspects&format.AspectDepth != 0
	stencil := aspects&format.AspectStencil != 0
	d := min(max(v.Depth, 0), 1)
	switch f {
	case format.D16Unorm:
		if depth {
			binary.LittleEndian.PutUint16(dst, uint16(d*65535+0.5))
		}
	case format.D32Float:
		if depth {
			binary.LittleEndian.PutUint32(dst, math.Float32bits(v.Depth))
		}
	case format.D24UnormS8Uint:
		word := binary.LittleEndian.Uint32(dst)
		if depth {
			word = word&0xFF000000 | uint32(d*0xFFFFFF+0.5)
		}
		if stencil {
			word = word&0x00FFFFFF | (v.Stencil&0xFF)<<24
		}
		binary.LittleEndian.PutUint32(dst, word)
	case format.D32FloatS8Uint:
		if depth {
			binary.LittleEndian.PutUint32(dst, math.Float32bits(v.Depth))
		}
		if stencil {
			dst[4] = uint8(v.Stencil)
		}
	case format.S8Uint:
		if stencil {
			dst[0] = uint8(v.Stencil)
		}
	}
}

// ToRGBA8 converts texels of format f in src to 8-bit RGBA in dst, which
// must hold four bytes per texel. It reports false for formats it cannot
// convert. sRGB data is copied without decoding.
func ToRGBA8(dst, src []byte, f format.Format) bool {
	texel := int(f.Desc().BytesPerTexel())
	if texel == 0 {
		return false
	}
	n := len(src) / texel
	switch f {
	case format.RGBA8Unorm, format.RGBA8Srgb, format.RGBA8Uint:
		copy(dst, src[:n*4])
	case format.BGRA8Unorm, format.BGRA8Srgb:
		for i := range n {
			s, d := src[i*4:i*4+4], dst[i*4:i*4+4]
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], s[3]
		}
	case format.R8Unorm:
		for i := range n {
			dst[i*4], dst[i*4+1], dst[i*4+2], dst[i*4+3] = src[i], src[i], src[i], 0xFF
		}
	case format.RGBA16Float:
		for i := range n {
			for c := range 4 {
				h := binary.LittleEndian.Uint16(src[i*8+c*2:])
				dst[i*4+c] = uint8(min(max(Float32(h), 0), 1)*255 + 0.5)
			}
		}
	case format.RGBA32Float:
		for i := range n {
			for c := range 4 {
				v := math.Float32frombits(binary.LittleEndian.Uint32(src[i*16+c*4:]))
				dst[i*4+c] = uint8(min(max(v, 0), 1)*255 + 0.5)
			}
		}
	default:
		return false
	}
	return true
}

// Float16 converts f to IEEE 754 half precision, rounding to nearest even.
func Float16(f float32) uint16 {
	b := math.Float32bits(f)
	sign := uint16(b>>16) & 0x8000
	exp := int32(b>>23&0xFF) - 127 + 15
	mant := b & 0x7FFFFF
	switch {
	case b&0x7FFFFFFF == 0:
		return sign
	case b>>23&0xFF == 0xFF:
		if mant != 0 {
			return sign | 0x7E00
		}
		return sign | 0x7C00
	case exp >= 0x1F:
		return sign | 0x7C00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - exp)
		half := mant >> shift
		rem := mant & (1<<shift - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || (rem == mid && half&1 != 0) {
			half++
		}
		return sign | uint16(half)
	}
	half := uint32(exp)<<10 | mant>>13
	rem := mant & 0x1FFF
	if rem > 0x1000 || (rem == 0x1000 && half&1 != 0) {
		half++
	}
	return sign | uint16(half)
}

// Float32 converts an IEEE 754 half precision value to float32.
func Float32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1F
	mant := uint32(h & 0x3FF)
	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		v := float32(mant) / 1024 / 16384
		if sign != 0 {
			return -v
		}
		return v
	case 0x1F:
		return math.Float32frombits(sign | 0x7F800000 | mant<<13)
	}
	return math.Float32frombits(sign | (exp+127-15)<<23 | mant<<13)
}
