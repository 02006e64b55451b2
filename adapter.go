// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"slices"

	"github.com/gogpu/gfx/adapter"
	"github.com/gogpu/gfx/format"
	"github.com/gogpu/gfx/hal"
	"github.com/gogpu/gfx/memory"
	"github.com/gogpu/gfx/queue"
)

// Adapter is a physical device. Its description is captured when the
// adapter is first enumerated and never changes.
type Adapter struct {
	instance *Instance
	raw      hal.PhysicalDevice

	info     adapter.Info
	features hal.Features
	hints    hal.Hints
	limits   hal.Limits
	memory   memory.Layout
	families []queue.Family
}

func newAdapter(i *Instance, e hal.ExposedAdapter) *Adapter {
	return &Adapter{
		instance: i,
		raw:      e.PhysicalDevice,
		info:     e.Info,
		features: e.PhysicalDevice.Features(),
		hints:    e.PhysicalDevice.Hints(),
		limits:   e.PhysicalDevice.Limits(),
		memory:   e.PhysicalDevice.MemoryProperties().Clone(),
		families: slices.Clone(e.QueueFamilies),
	}
}

// Info returns the adapter description.
func (a *Adapter) Info() adapter.Info { return a.info }

// Features returns every feature the adapter supports.
func (a *Adapter) Features() hal.Features { return a.features }

// Hints returns the adapter's performance hints.
func (a *Adapter) Hints() hal.Hints { return a.hints }

// Limits returns the adapter limits.
func (a *Adapter) Limits() hal.Limits { return a.limits }

// MemoryLayout returns a copy of the adapter's memory types and heaps.
func (a *Adapter) MemoryLayout() memory.Layout { return a.memory.Clone() }

// QueueFamilies returns a copy of the adapter's queue families.
func (a *Adapter) QueueFamilies() []queue.Family { return slices.Clone(a.families) }

// FormatProperties reports the features supported for f.
func (a *Adapter) FormatProperties(f format.Format) format.Properties {
	return a.raw.FormatProperties(f)
}

// MemoryTypeID identifies a memory type of one adapter. IDs of different
// adapters are never interchangeable.
type MemoryTypeID struct {
	adapter *Adapter
	id      hal.MemoryTypeID
}

// Index returns the index of the type in the adapter's memory layout.
func (id MemoryTypeID) Index() int { return id.id.Index() }

func (id MemoryTypeID) String() string { return id.id.String() }

// MemoryType is one memory type of an adapter.
type MemoryType struct {
	ID         MemoryTypeID
	Properties memory.Properties
	HeapIndex  int
	HeapSize   uint64
}

// MemoryTypes returns the memory types of the adapter in index order.
func (a *Adapter) MemoryTypes() []MemoryType {
	out := make([]MemoryType, len(a.memory.Types))
	for i, t := range a.memory.Types {
		out[i] = MemoryType{
			ID:         MemoryTypeID{adapter: a, id: hal.MemoryTypeID(i)},
			Properties: t.Properties,
			HeapIndex:  t.HeapIndex,
		}
		if t.HeapIndex >= 0 && t.HeapIndex < len(a.memory.Heaps) {
			out[i].HeapSize = a.memory.Heaps[t.HeapIndex].Size
		}
	}
	return out
}

// FindMemoryType returns the first memory type accepted by req whose
// properties contain props.
func (a *Adapter) FindMemoryType(req memory.Requirements, props memory.Properties) (MemoryTypeID, bool) {
	for i, t := range a.memory.Types {
		if req.Accepts(i) && t.Properties.Contains(props) {
			return MemoryTypeID{adapter: a, id: hal.MemoryTypeID(i)}, true
		}
	}
	return MemoryTypeID{}, false
}

// QueueRequest asks for one queue per priority from a family.
type QueueRequest struct {
	Family     queue.FamilyID
	Priorities []queue.Priority
}

// Gpu is an opened device together with its queues.
type Gpu struct {
	Device      *Device
	QueueGroups []*QueueGroup
}

// QueueGroup returns the group opened from family, or nil.
func (g *Gpu) QueueGroup(family queue.FamilyID) *QueueGroup {
	for _, qg := range g.QueueGroups {
		if qg.Family.ID == family {
			return qg
		}
	}
	return nil
}

// QueueGroup holds the queues opened from one family.
type QueueGroup struct {
	Family queue.Family
	Queues []*Queue
}

// Open creates a logical device with the requested queues and features.
//
// features must be a subset of Features (ErrMissingFeature). Every request
// must name a distinct family of the adapter and ask for at least one and
// at most Family.MaxQueues queues (ErrInvalidQueueRequest).
func (a *Adapter) Open(requests []QueueRequest, features hal.Features) (*Gpu, error) {
	if a.instance.destroyed.Load() {
		return nil, ErrDestroyed
	}
	if missing := a.features.Missing(features); missing != 0 {
		return nil, fmt.Errorf("open %s: %w: %v", a.info.Name, ErrMissingFeature, missing)
	}
	if len(requests) == 0 {
		return nil, fmt.Errorf("open %s: %w: no queues requested", a.info.Name, ErrInvalidQueueRequest)
	}

	families := make(map[queue.FamilyID]queue.Family, len(requests))
	raws := make([]hal.FamilyRequest, 0, len(requests))
	for _, r := range requests {
		fam, ok := a.family(r.Family)
		if !ok {
			return nil, fmt.Errorf("open %s: %w: unknown family %d", a.info.Name, ErrInvalidQueueRequest, r.Family)
		}
		if _, dup := families[r.Family]; dup {
			return nil, fmt.Errorf("open %s: %w: family %d requested twice", a.info.Name, ErrInvalidQueueRequest, r.Family)
		}
		if len(r.Priorities) == 0 || len(r.Priorities) > fam.MaxQueues {
			return nil, fmt.Errorf("open %s: %w: %d queues from family %d (max %d)",
				a.info.Name, ErrInvalidQueueRequest, len(r.Priorities), r.Family, fam.MaxQueues)
		}
		for _, p := range r.Priorities {
			if p < 0 || p > 1 {
				return nil, fmt.Errorf("open %s: %w: priority %v out of [0, 1]", a.info.Name, ErrInvalidQueueRequest, p)
			}
		}
		families[r.Family] = fam
		raws = append(raws, hal.FamilyRequest{Family: r.Family, Priorities: slices.Clone(r.Priorities)})
	}

	od, err := a.raw.Open(raws, features)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.info.Name, err)
	}

	d := newDevice(a, od.Device, features)
	gpu := &Gpu{Device: d}
	for _, g := range od.QueueGroups {
		qg := &QueueGroup{Family: families[g.Family]}
		for i, rq := range g.Queues {
			q := newQueue(d, qg.Family, i, rq)
			qg.Queues = append(qg.Queues, q)
			d.queues = append(d.queues, q)
		}
		gpu.QueueGroups = append(gpu.QueueGroups, qg)
	}
	Logger().Info("gfx: device opened",
		"adapter", a.info.Name,
		"backend", a.info.Backend,
		"queues", len(d.queues),
		"features", features)
	return gpu, nil
}

func (a *Adapter) family(id queue.FamilyID) (queue.Family, bool) {
	for _, f := range a.families {
		if f.ID == id {
			return f, true
		}
	}
	return queue.Family{}, false
}
