// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package window

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/gfx/format"
)

// ConfigFromProvider builds a swapchain configuration for a host that
// exposes its GPU context as a gpucontext.DeviceProvider. The surface
// format of the host is used when it has an equivalent format; otherwise
// the first format of caps is used.
func ConfigFromProvider(p gpucontext.DeviceProvider, caps SurfaceCapabilities, extent Extent2D) SwapchainConfig {
	f := format.FromTextureFormat(p.SurfaceFormat())
	if f == format.Undefined && len(caps.Formats) > 0 {
		f = caps.Formats[0]
	}
	return FromCapabilities(caps, extent, f)
}
