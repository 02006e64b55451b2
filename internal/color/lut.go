// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package color converts between clear colors and the texel encodings of
// image formats.
//
// sRGB formats store gamma encoded channels; lookup tables make the
// conversion in both directions a single array access.
package color

import "math"

// srgbToLinearLUT maps an encoded sRGB byte to a linear value in [0, 1].
var srgbToLinearLUT [256]float32

// linearToSRGBLUT maps a linear value quantized to 12 bits to an sRGB byte.
var linearToSRGBLUT [4096]uint8

func init() {
	for i := range srgbToLinearLUT {
		srgbToLinearLUT[i] = float32(srgbToLinear(float64(i) / 255))
	}
	for i := range linearToSRGBLUT {
		s := linearToSRGB(float64(i) / 4095)
		//nolint:gosec // G115: clamped to [0, 255]
		linearToSRGBLUT[i] = uint8(min(max(int(s*255+0.5), 0), 255))
	}
}

func srgbToLinear(s float64) float64 {
	if s <= 0.04045 {
		return s / 12.92
	}
	return math.Pow((s+0.055)/1.055, 2.4)
}

func linearToSRGB(l float64) float64 {
	if l <= 0.0031308 {
		return l * 12.92
	}
	return 1.055*math.Pow(l, 1/2.4) - 0.055
}

// SRGBToLinear decodes an sRGB byte.
func SRGBToLinear(s uint8) float32 {
	return srgbToLinearLUT[s]
}

// LinearToSRGB encodes a linear value as an sRGB byte. l is clamped to
// [0, 1].
func LinearToSRGB(l float32) uint8 {
	l = min(max(l, 0), 1)
	return linearToSRGBLUT[int(l*4095+0.5)]
}
