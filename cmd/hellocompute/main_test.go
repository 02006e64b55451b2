// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"slices"
	"testing"

	"github.com/gogpu/gfx/backend/software"
)

func TestParseNumbers(t *testing.T) {
	got, err := parseNumbers([]string{"1", "27", "4294967295"})
	if err != nil {
		t.Fatalf("parseNumbers() = %v", err)
	}
	if want := []uint32{1, 27, 4294967295}; !slices.Equal(got, want) {
		t.Errorf("parseNumbers() = %v, want %v", got, want)
	}
	for _, bad := range []string{"-1", "x", "4294967296"} {
		if _, err := parseNumbers([]string{bad}); err == nil {
			t.Errorf("parseNumbers(%q) succeeded", bad)
		}
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		opts     []software.Option
		measured bool
	}{
		{name: "with queries", measured: true},
		{name: "without query features", opts: []software.Option{software.WithFeatures(0)}},
	}
	numbers := []uint32{1, 2, 3, 4, 27, 97}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := run(numbers, 2, tt.opts...)
			if err != nil {
				t.Fatalf("run() = %v", err)
			}
			if want := []uint32{0, 1, 7, 2, 111, 118}; !slices.Equal(res.steps, want) {
				t.Errorf("steps = %v, want %v", res.steps, want)
			}
			if res.elapsed < 0 {
				t.Errorf("elapsed = %v", res.elapsed)
			}
			wantInvocations := uint64(0)
			if tt.measured {
				wantInvocations = uint64(len(numbers))
			}
			if res.invocations != wantInvocations {
				t.Errorf("invocations = %d, want %d", res.invocations, wantInvocations)
			}
			if !tt.measured && res.elapsed != 0 {
				t.Errorf("elapsed = %v without timestamp queries", res.elapsed)
			}
		})
	}
}

func TestRunSessions(t *testing.T) {
	results, err := runSessions(context.Background(), []uint32{6, 7, 8}, 4, 1)
	if err != nil {
		t.Fatalf("runSessions() = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for i, r := range results {
		if want := []uint32{8, 16, 3}; !slices.Equal(r.steps, want) {
			t.Errorf("session %d steps = %v, want %v", i, r.steps, want)
		}
	}
}

func TestRunSessionsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runSessions(ctx, []uint32{1}, 2, 1); err == nil {
		t.Error("runSessions() with a canceled context succeeded")
	}
}
