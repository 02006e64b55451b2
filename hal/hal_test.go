// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hal

import (
	"errors"
	"testing"
)

type fakeBackend struct{ name string }

func (b fakeBackend) Name() string { return b.name }
func (b fakeBackend) CreateInstance(InstanceDesc) (Instance, error) {
	return nil, ErrUnsupportedBackend
}

func registerFake(t *testing.T, name string) {
	t.Helper()
	Register(name, func() Backend { return fakeBackend{name} })
	t.Cleanup(func() { Unregister(name) })
}

func TestRegistryPriority(t *testing.T) {
	registerFake(t, "zz-test")
	registerFake(t, BackendSoftware)

	b, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if b.Name() != BackendSoftware {
		t.Errorf("Default().Name() = %q, want %q", b.Name(), BackendSoftware)
	}

	registerFake(t, BackendWGPU)
	b, err = Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if b.Name() != BackendWGPU {
		t.Errorf("Default().Name() = %q, want %q", b.Name(), BackendWGPU)
	}
}

func TestGetBackend(t *testing.T) {
	registerFake(t, "test-get")
	b, ok := GetBackend("test-get")
	if !ok || b.Name() != "test-get" {
		t.Fatalf("GetBackend = %v, %v", b, ok)
	}
	if _, ok := GetBackend("missing"); ok {
		t.Error("GetBackend(missing) reported ok")
	}
	found := false
	for _, n := range Backends() {
		if n == "test-get" {
			found = true
		}
	}
	if !found {
		t.Errorf("Backends() = %v, missing test-get", Backends())
	}
}

func TestDefaultEmpty(t *testing.T) {
	for _, n := range Backends() {
		f := backends[n]
		Unregister(n)
		t.Cleanup(func() { Register(n, f) })
	}
	if _, err := Default(); !errors.Is(err, ErrUnsupportedBackend) {
		t.Errorf("Default() error = %v, want ErrUnsupportedBackend", err)
	}
}

func TestFeatures(t *testing.T) {
	f := FeatureGeometryShader | FeatureTimestampQuery
	if !f.Contains(FeatureTimestampQuery) {
		t.Error("Contains(TimestampQuery) = false")
	}
	if got := f.Missing(FeatureGeometryShader | FeatureDepthClamp); got != FeatureDepthClamp {
		t.Errorf("Missing = %v, want DepthClamp", got)
	}
	if got := f.String(); got != "GeometryShader|TimestampQuery" {
		t.Errorf("String() = %q", got)
	}
	if Features(0).String() != "none" {
		t.Errorf("zero String() = %q", Features(0).String())
	}
}

func TestSampleCounts(t *testing.T) {
	s := SampleCounts(1 | 4)
	for n, want := range map[uint8]bool{1: true, 2: false, 4: true, 3: false, 0: false} {
		if got := s.Supports(n); got != want {
			t.Errorf("Supports(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestIndexTypeAndCounts(t *testing.T) {
	if IndexU16.Size() != 2 || IndexU32.Size() != 4 {
		t.Error("IndexType.Size mismatch")
	}
	if got := (WorkGroupCount{2, 3, 4}).Total(); got != 24 {
		t.Errorf("Total() = %d, want 24", got)
	}
	if MemoryTypeID(3).Bit() != 8 || MemoryTypeID(3).Index() != 3 {
		t.Error("MemoryTypeID bit/index mismatch")
	}
}
