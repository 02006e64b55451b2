// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command gfxinfo lists the registered backends and, for each, the
// adapters it exposes with their queue families, memory and limits.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gfx"
	_ "github.com/gogpu/gfx/backend/software"
	_ "github.com/gogpu/gfx/backend/wgpu"
	"github.com/gogpu/gfx/hal"
)

func main() {
	var (
		backend = flag.String("backend", "", "only describe this backend")
		limits  = flag.Bool("limits", false, "print adapter limits")
		verbose = flag.Bool("v", false, "log backend activity to stderr")
	)
	flag.Parse()

	if *verbose {
		gfx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	names := hal.Backends()
	if *backend != "" {
		names = []string{*backend}
	}
	failed := 0
	for _, name := range names {
		if err := describe(os.Stdout, name, *limits); err != nil {
			if errors.Is(err, gfx.ErrUnsupportedBackend) {
				fmt.Printf("%s: unavailable: %v\n\n", name, err)
			} else {
				log.Printf("%s: %v", name, err)
			}
			failed++
		}
	}
	if failed == len(names) {
		os.Exit(1)
	}
}

func describe(w io.Writer, name string, withLimits bool) error {
	inst, err := gfx.CreateInstance("gfxinfo", 1, gfx.WithBackend(name))
	if err != nil {
		return err
	}
	defer inst.Destroy()

	adapters := inst.EnumerateAdapters()
	fmt.Fprintf(w, "%s: %d adapter(s)\n", inst.Backend(), len(adapters))
	for i, a := range adapters {
		info := a.Info()
		fmt.Fprintf(w, "  [%d] %s\n", i, info)
		fmt.Fprintf(w, "      uuid:     %s\n", info.UUID)
		fmt.Fprintf(w, "      features: %v\n", a.Features())
		for _, f := range a.QueueFamilies() {
			fmt.Fprintf(w, "      family %d: %v, %d queue(s)\n", f.ID, f.Type, f.MaxQueues)
		}
		for _, mt := range a.MemoryTypes() {
			fmt.Fprintf(w, "      memory %d: %v, heap %d (%d MiB)\n", mt.ID.Index(), mt.Properties, mt.HeapIndex, mt.HeapSize>>20)
		}
		if withLimits {
			printLimits(w, a.Limits())
		}
	}
	fmt.Fprintln(w)
	return nil
}

func printLimits(w io.Writer, l hal.Limits) {
	rows := []struct {
		name  string
		value any
	}{
		{"max image 2D size", l.MaxImage2DSize},
		{"max image array layers", l.MaxImageArrayLayers},
		{"max buffer size", l.MaxBufferSize},
		{"max uniform buffer range", l.MaxUniformBufferRange},
		{"max storage buffer range", l.MaxStorageBufferRange},
		{"max push constants size", l.MaxPushConstantsSize},
		{"max memory allocations", l.MaxMemoryAllocationCount},
		{"max bound descriptor sets", l.MaxBoundDescriptorSets},
		{"max color attachments", l.MaxColorAttachments},
		{"max compute work group count", l.MaxComputeWorkGroupCount},
		{"max compute work group size", l.MaxComputeWorkGroupSize},
		{"timestamp period (ns)", l.TimestampPeriod},
	}
	fmt.Fprintln(w, "      limits:")
	for _, r := range rows {
		fmt.Fprintf(w, "        %-30s %v\n", r.name, r.value)
	}
}
