// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pso

// DescriptorType is the type of a descriptor binding.
type DescriptorType uint8

// Descriptor types.
const (
	DescSampler DescriptorType = iota
	DescSampledImage
	DescCombinedImageSampler
	DescStorageImage
	DescUniformTexelBuffer
	DescStorageTexelBuffer
	DescUniformBuffer
	DescStorageBuffer
	DescUniformBufferDynamic
	DescStorageBufferDynamic
	DescInputAttachment
)

var descriptorTypeNames = [...]string{
	"Sampler", "SampledImage", "CombinedImageSampler", "StorageImage",
	"UniformTexelBuffer", "StorageTexelBuffer", "UniformBuffer", "StorageBuffer",
	"UniformBufferDynamic", "StorageBufferDynamic", "InputAttachment",
}

func (t DescriptorType) String() string {
	if int(t) < len(descriptorTypeNames) {
		return descriptorTypeNames[t]
	}
	return "DescriptorType(?)"
}

// IsBuffer reports whether t binds a buffer range.
func (t DescriptorType) IsBuffer() bool {
	switch t {
	case DescUniformBuffer, DescStorageBuffer, DescUniformBufferDynamic, DescStorageBufferDynamic:
		return true
	}
	return false
}

// IsImage reports whether t binds an image view.
func (t DescriptorType) IsImage() bool {
	switch t {
	case DescSampledImage, DescCombinedImageSampler, DescStorageImage, DescInputAttachment:
		return true
	}
	return false
}

// DescriptorSetLayoutBinding is one binding of a descriptor set layout.
type DescriptorSetLayoutBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStageFlags
	// ImmutableSamplers marks sampler bindings fixed at layout creation.
	ImmutableSamplers bool
}

// DescriptorRangeDesc sizes a descriptor pool for one descriptor type.
type DescriptorRangeDesc struct {
	Type  DescriptorType
	Count uint32
}

// DescriptorPoolCreateFlags control descriptor pool behavior.
type DescriptorPoolCreateFlags uint8

// Descriptor pool flags.
const (
	// FreeDescriptorSet allows individual sets to be freed.
	FreeDescriptorSet DescriptorPoolCreateFlags = 1 << iota
)

// PushConstantRange is a range of push constant space visible to stages.
// Offset and Size are in bytes and must be multiples of four.
type PushConstantRange struct {
	Stages ShaderStageFlags
	Offset uint32
	Size   uint32
}

// End returns the first byte past r.
func (r PushConstantRange) End() uint32 {
	return r.Offset + r.Size
}
