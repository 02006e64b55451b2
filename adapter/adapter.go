// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package adapter describes physical devices reported by an instance.
package adapter

import (
	"fmt"

	"github.com/google/uuid"
)

// DeviceType is the class of a physical device.
type DeviceType uint8

// Device types.
const (
	Other DeviceType = iota
	IntegratedGPU
	DiscreteGPU
	VirtualGPU
	CPU
)

var deviceTypeNames = [...]string{"Other", "IntegratedGPU", "DiscreteGPU", "VirtualGPU", "CPU"}

func (t DeviceType) String() string {
	if int(t) < len(deviceTypeNames) {
		return deviceTypeNames[t]
	}
	return "DeviceType(?)"
}

// Info is the static description of an adapter.
type Info struct {
	// Name is the driver reported device name.
	Name string
	// Vendor is the PCI vendor id, or zero.
	Vendor uint32
	// Device is the PCI device id, or zero.
	Device     uint32
	DeviceType DeviceType
	// Backend is the name of the backend that reported the adapter.
	Backend string
	// UUID identifies the adapter across enumerations. Backends without a
	// native identifier derive it with StableUUID.
	UUID uuid.UUID
}

// adapterNamespace scopes adapter UUIDs derived by StableUUID.
var adapterNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("github.com/gogpu/gfx/adapter"))

// StableUUID derives a deterministic UUID from the identifying fields of
// an adapter, so repeated enumerations report the same value.
func StableUUID(backend, name string, vendor, device uint32, index int) uuid.UUID {
	key := fmt.Sprintf("%s/%s/%04x:%04x/%d", backend, name, vendor, device, index)
	return uuid.NewSHA1(adapterNamespace, []byte(key))
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%s, %s)", i.Name, i.DeviceType, i.Backend)
}
