// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package format describes pixel and vertex formats shared by images,
// image views, and vertex buffers.
package format

import "fmt"

// Format is a universal data format.
// The zero value is Undefined and is never valid for resource creation.
type Format uint16

// Formats.
const (
	Undefined Format = iota

	R8Unorm
	R8Uint
	RG8Unorm
	RGBA8Unorm
	RGBA8Srgb
	RGBA8Uint
	BGRA8Unorm
	BGRA8Srgb

	R16Uint
	R16Float
	RG16Float
	RGBA16Float

	R32Uint
	R32Sint
	R32Float
	RG32Uint
	RG32Float
	RGB32Float
	RGBA32Uint
	RGBA32Float

	D16Unorm
	D32Float
	D24UnormS8Uint
	D32FloatS8Uint
	S8Uint

	formatCount
)

// Aspects is a bitmask of the aspects a format carries.
type Aspects uint8

// Aspect flags.
const (
	AspectColor Aspects = 1 << iota
	AspectDepth
	AspectStencil
)

// ChannelType is the numeric interpretation of a format's channels.
type ChannelType uint8

// Channel types.
const (
	ChannelUnorm ChannelType = iota
	ChannelSrgb
	ChannelUint
	ChannelSint
	ChannelFloat
)

// Desc describes the memory layout of a format.
type Desc struct {
	// Name is the human readable name of the format.
	Name string
	// Bits is the number of bits per texel.
	Bits uint16
	// Channels is the number of components.
	Channels uint8
	// Aspects lists the aspects present in the format.
	Aspects Aspects
	// Type is the channel interpretation.
	Type ChannelType
}

// BytesPerTexel returns the size of one texel in bytes.
func (d Desc) BytesPerTexel() uint32 {
	return uint32(d.Bits) / 8
}

var descs = [formatCount]Desc{
	Undefined:      {Name: "Undefined"},
	R8Unorm:        {"R8Unorm", 8, 1, AspectColor, ChannelUnorm},
	R8Uint:         {"R8Uint", 8, 1, AspectColor, ChannelUint},
	RG8Unorm:       {"RG8Unorm", 16, 2, AspectColor, ChannelUnorm},
	RGBA8Unorm:     {"RGBA8Unorm", 32, 4, AspectColor, ChannelUnorm},
	RGBA8Srgb:      {"RGBA8Srgb", 32, 4, AspectColor, ChannelSrgb},
	RGBA8Uint:      {"RGBA8Uint", 32, 4, AspectColor, ChannelUint},
	BGRA8Unorm:     {"BGRA8Unorm", 32, 4, AspectColor, ChannelUnorm},
	BGRA8Srgb:      {"BGRA8Srgb", 32, 4, AspectColor, ChannelSrgb},
	R16Uint:        {"R16Uint", 16, 1, AspectColor, ChannelUint},
	R16Float:       {"R16Float", 16, 1, AspectColor, ChannelFloat},
	RG16Float:      {"RG16Float", 32, 2, AspectColor, ChannelFloat},
	RGBA16Float:    {"RGBA16Float", 64, 4, AspectColor, ChannelFloat},
	R32Uint:        {"R32Uint", 32, 1, AspectColor, ChannelUint},
	R32Sint:        {"R32Sint", 32, 1, AspectColor, ChannelSint},
	R32Float:       {"R32Float", 32, 1, AspectColor, ChannelFloat},
	RG32Uint:       {"RG32Uint", 64, 2, AspectColor, ChannelUint},
	RG32Float:      {"RG32Float", 64, 2, AspectColor, ChannelFloat},
	RGB32Float:     {"RGB32Float", 96, 3, AspectColor, ChannelFloat},
	RGBA32Uint:     {"RGBA32Uint", 128, 4, AspectColor, ChannelUint},
	RGBA32Float:    {"RGBA32Float", 128, 4, AspectColor, ChannelFloat},
	D16Unorm:       {"D16Unorm", 16, 1, AspectDepth, ChannelUnorm},
	D32Float:       {"D32Float", 32, 1, AspectDepth, ChannelFloat},
	D24UnormS8Uint: {"D24UnormS8Uint", 32, 2, AspectDepth | AspectStencil, ChannelUnorm},
	D32FloatS8Uint: {"D32FloatS8Uint", 64, 2, AspectDepth | AspectStencil, ChannelFloat},
	S8Uint:         {"S8Uint", 8, 1, AspectStencil, ChannelUint},
}

// Valid reports whether f names a defined, non-undefined format.
func (f Format) Valid() bool {
	return f > Undefined && f < formatCount
}

// Desc returns the layout description of f.
// Undefined and out-of-range values return the zero Desc.
func (f Format) Desc() Desc {
	if f >= formatCount {
		return Desc{}
	}
	return descs[f]
}

// Aspects returns the aspects of f.
func (f Format) Aspects() Aspects {
	return f.Desc().Aspects
}

// IsColor reports whether f is a color format.
func (f Format) IsColor() bool {
	return f.Aspects()&AspectColor != 0
}

// IsDepth reports whether f has a depth aspect.
func (f Format) IsDepth() bool {
	return f.Aspects()&AspectDepth != 0
}

// IsStencil reports whether f has a stencil aspect.
func (f Format) IsStencil() bool {
	return f.Aspects()&AspectStencil != 0
}

// IsDepthStencil reports whether f has a depth or stencil aspect.
func (f Format) IsDepthStencil() bool {
	return f.Aspects()&(AspectDepth|AspectStencil) != 0
}

// IsSrgb reports whether f stores color in the sRGB transfer function.
func (f Format) IsSrgb() bool {
	return f.Desc().Type == ChannelSrgb
}

// String returns the format name.
func (f Format) String() string {
	if f >= formatCount {
		return fmt.Sprintf("Format(%d)", uint16(f))
	}
	return descs[f].Name
}

// All returns every defined format, excluding Undefined.
func All() []Format {
	out := make([]Format, 0, formatCount-1)
	for f := Undefined + 1; f < formatCount; f++ {
		out = append(out, f)
	}
	return out
}
