// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package format

import "github.com/gogpu/gputypes"

// textureFormats maps formats that have a WebGPU texture equivalent.
var textureFormats = map[Format]gputypes.TextureFormat{
	R8Unorm:        gputypes.TextureFormatR8Unorm,
	RGBA8Unorm:     gputypes.TextureFormatRGBA8Unorm,
	BGRA8Unorm:     gputypes.TextureFormatBGRA8Unorm,
	D24UnormS8Uint: gputypes.TextureFormatDepth24PlusStencil8,
}

// vertexFormats maps formats usable as WebGPU vertex attributes.
var vertexFormats = map[Format]gputypes.VertexFormat{
	R32Float:    gputypes.VertexFormatFloat32,
	RG32Float:   gputypes.VertexFormatFloat32x2,
	RGBA32Float: gputypes.VertexFormatFloat32x4,
}

// ToTextureFormat returns the gputypes texture format for f.
// The second result is false when f has no WebGPU counterpart.
func ToTextureFormat(f Format) (gputypes.TextureFormat, bool) {
	tf, ok := textureFormats[f]
	return tf, ok
}

// FromTextureFormat is the inverse of ToTextureFormat.
// Unknown formats, including TextureFormatUndefined, map to Undefined.
func FromTextureFormat(tf gputypes.TextureFormat) Format {
	if tf == gputypes.TextureFormatUndefined {
		return Undefined
	}
	for f, v := range textureFormats {
		if v == tf {
			return f
		}
	}
	return Undefined
}

// ToVertexFormat returns the gputypes vertex format for f.
func ToVertexFormat(f Format) (gputypes.VertexFormat, bool) {
	vf, ok := vertexFormats[f]
	return vf, ok
}
