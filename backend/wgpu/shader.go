// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/gfx/hal"
)

// CompileWGSL compiles WGSL source to SPIR-V words with naga.
func CompileWGSL(src string) ([]uint32, error) {
	code, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile WGSL: %w: %w", hal.ErrUnsupportedShader, err)
	}
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("wgpu: SPIR-V of %d bytes is not word aligned: %w", len(code), hal.ErrUnsupportedShader)
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words, nil
}
