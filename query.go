// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"

	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/query"
)

// QueryPool holds occlusion, pipeline statistics or timestamp queries.
type QueryPool struct {
	resource
	raw  hal.QueryPool
	desc query.Desc
}

func (p *QueryPool) base() *resource {
	if p == nil {
		return nil
	}
	return &p.resource
}

// Desc returns the description the pool was created with.
func (p *QueryPool) Desc() query.Desc { return p.desc }

// CreateQueryPool creates a pool of desc.Count queries.
func (d *Device) CreateQueryPool(desc query.Desc) (*QueryPool, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if desc.Count == 0 {
		return nil, fmt.Errorf("create query pool: %w: zero queries", ErrInvalidDesc)
	}
	switch desc.Type {
	case query.Occlusion:
	case query.PipelineStatistics:
		if err := d.require(hal.FeaturePipelineStatisticsQuery, "create query pool"); err != nil {
			return nil, err
		}
		if desc.Statistics == 0 {
			return nil, fmt.Errorf("create query pool: %w: no statistics selected", ErrInvalidDesc)
		}
	case query.Timestamp:
		if err := d.require(hal.FeatureTimestampQuery, "create query pool"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("create query pool: %w: type %v", ErrInvalidDesc, desc.Type)
	}
	raw, err := d.raw.CreateQueryPool(desc)
	if err != nil {
		return nil, fmt.Errorf("create query pool: %w", d.observe(err))
	}
	return &QueryPool{resource: resource{device: d}, raw: raw, desc: desc}, nil
}

// checkQueries validates that r lies inside p.
func (d *Device) checkQueries(p *QueryPool, r query.Range) error {
	if err := d.use(p); err != nil {
		return err
	}
	if r.Count == 0 || !r.Within(p.desc.Count) {
		return fmt.Errorf("%w: queries %d..%d of %d", ErrInvalidDesc, r.Start, r.End(), p.desc.Count)
	}
	return nil
}

// QueryPoolResults copies the results of r into data, one query every
// stride bytes. It reports false when some results were not yet available
// and flags lacks query.Wait; with query.Partial the available values are
// written anyway.
func (d *Device) QueryPoolResults(p *QueryPool, r query.Range, data []byte, stride int, flags query.ResultFlags) (bool, error) {
	if err := d.alive(); err != nil {
		return false, err
	}
	if err := d.checkQueries(p, r); err != nil {
		return false, fmt.Errorf("query pool results: %w", err)
	}
	minStride := flags.Stride(p.desc)
	if stride < minStride || stride%flags.ValueSize() != 0 {
		return false, fmt.Errorf("query pool results: %w: stride %d, need at least %d", ErrInvalidDesc, stride, minStride)
	}
	if need := stride*(int(r.Count)-1) + minStride; len(data) < need {
		return false, fmt.Errorf("query pool results: %w: %d bytes, need %d", ErrInvalidDesc, len(data), need)
	}
	ok, err := d.raw.QueryPoolResults(p.raw, r, data, stride, flags)
	if err != nil {
		return false, fmt.Errorf("query pool results: %w", d.observe(err))
	}
	return ok, nil
}

// DestroyQueryPool destroys p.
func (d *Device) DestroyQueryPool(p *QueryPool) {
	if !d.release(p.base()) {
		return
	}
	d.raw.DestroyQueryPool(p.raw)
}

// Destroy destroys the pool.
func (p *QueryPool) Destroy() { p.device.DestroyQueryPool(p) }
