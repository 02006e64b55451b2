// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command hellocompute counts the Collatz steps of its arguments with a
// compute kernel on the software backend.
//
//	hellocompute 1 2 3 27 97
//
// With -parallel N it runs N independent sessions at once and checks that
// they agree.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		parallel = flag.Int("parallel", 1, "number of concurrent sessions")
		workers  = flag.Int("workers", 0, "kernel goroutines per session (0 = GOMAXPROCS)")
	)
	flag.Parse()

	numbers, err := parseNumbers(flag.Args())
	if err != nil {
		log.Fatal(err)
	}
	if len(numbers) == 0 {
		numbers = []uint32{1, 2, 3, 4}
	}

	results, err := runSessions(context.Background(), numbers, *parallel, *workers)
	if err != nil {
		log.Fatalf("hellocompute: %v", err)
	}
	for i, n := range numbers {
		fmt.Fprintf(os.Stdout, "%d: %d steps\n", n, results[0].steps[i])
	}
	for i, r := range results {
		fmt.Fprintf(os.Stdout, "session %d: dispatch took %v, %d invocations\n", i, r.elapsed.Round(time.Microsecond), r.invocations)
	}
}

func parseNumbers(args []string) ([]uint32, error) {
	out := make([]uint32, 0, len(args))
	for _, a := range args {
		n, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", a, err)
		}
		out = append(out, uint32(n))
	}
	return out, nil
}

// runSessions runs n sessions concurrently and fails if any fails or if
// their step counts differ.
func runSessions(ctx context.Context, numbers []uint32, n, workers int) ([]result, error) {
	n = max(n, 1)
	results := make([]result, n)
	g, ctx := errgroup.WithContext(ctx)
	for i := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := run(numbers, workers)
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i := 1; i < n; i++ {
		if !slices.Equal(results[i].steps, results[0].steps) {
			return nil, fmt.Errorf("session %d disagrees with session 0", i)
		}
	}
	return results, nil
}
