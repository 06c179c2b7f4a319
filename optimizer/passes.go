// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package optimizer

import (
	"slices"

	"github.com/gogpu/rendering/surface"
	"github.com/gogpu/rendering/task"
)

// Common returns the backend-independent optimizers, in registration
// order.
func Common() []Optimizer {
	return []Optimizer{
		&ClipTarget{},
		&RemoveEmpty{},
		&BlendSimplify{},
		&Linearize{},
		&ListSplit{},
		&SurfaceDestroy{},
	}
}

// ClipTarget intersects target rectangles with the bounds of their
// surfaces.
type ClipTarget struct{}

// Info implements Optimizer.
func (*ClipTarget) Info() Info {
	return Info{
		Name:     "clip-target",
		Category: CategoryIDCoords,
		ForTask:  true,
	}
}

// Run implements Optimizer.
func (o *ClipTarget) Run(p *RunParams) {
	b := p.Ref.TaskBase()
	if b.Target == nil {
		return
	}
	r := b.TargetRect.Intersect(b.Target.Bounds())
	if r == b.TargetRect {
		return
	}
	c := p.Ref.Clone()
	c.TaskBase().TargetRect = r
	p.Replace(c)
}

// RemoveEmpty deletes tasks that target a surface but an empty region.
type RemoveEmpty struct{}

// Info implements Optimizer.
func (*RemoveEmpty) Info() Info {
	return Info{
		Name:     "remove-empty",
		Category: CategoryIDCoords,
		ForTask:  true,
	}
}

// Run implements Optimizer.
func (o *RemoveEmpty) Run(p *RunParams) {
	b := p.Ref.TaskBase()
	if b.Target != nil && b.TargetRect.Empty() {
		p.Remove()
	}
}

// BlendSimplify drops blends that have nothing to blend.
//
// A blend without a source, or with zero amount, leaves its destination
// unchanged: it becomes its destination input when that input writes the
// same region, or disappears when there is no destination input.
type BlendSimplify struct{}

// Info implements Optimizer.
func (*BlendSimplify) Info() Info {
	return Info{
		Name:      "blend-simplify",
		Category:  CategoryIDConvert,
		DependsOn: CategoryCoords,
		Mode:      ModeRepeatParent,
		DeepFirst: true,
		ForTask:   true,
	}
}

// Run implements Optimizer.
func (o *BlendSimplify) Run(p *RunParams) {
	b, ok := p.Ref.(*task.Blend)
	if !ok {
		return
	}
	if b.Source() != nil && b.Amount != 0 {
		return
	}

	dst := b.Dest()
	if dst == nil {
		p.Remove()
		return
	}
	db := dst.TaskBase()
	if db.Target == b.Target && db.TargetRect == b.TargetRect {
		p.Replace(dst)
	}
}

// Linearize flattens nested sequences.
type Linearize struct{}

// Info implements Optimizer.
func (*Linearize) Info() Info {
	return Info{
		Name:      "linearize",
		Category:  CategoryIDLinear,
		Mode:      ModeRepeatLast,
		DeepFirst: true,
		ForTask:   true,
	}
}

// Run implements Optimizer.
func (o *Linearize) Run(p *RunParams) {
	seq, ok := p.Ref.(*task.Sequence)
	if !ok {
		return
	}

	changed := false
	var subs task.List
	for _, t := range seq.SubTasks {
		switch s := t.(type) {
		case nil:
			changed = true
		case *task.Sequence:
			subs = appendFlat(subs, s)
			changed = true
		default:
			subs = append(subs, t)
		}
	}

	switch len(subs) {
	case 0:
		p.Remove()
	case 1:
		p.Replace(subs[0])
	default:
		if !changed {
			return
		}
		c := seq.Clone()
		c.TaskBase().SubTasks = subs
		p.Replace(c)
	}
}

// ListSplit replaces root sequences by their sub-tasks so that they can be
// scheduled separately.
type ListSplit struct{}

// Info implements Optimizer.
func (*ListSplit) Info() Info {
	return Info{
		Name:      "list-split",
		Category:  CategoryIDList,
		DependsOn: CategoryLinear,
		ForList:   true,
	}
}

// Run implements Optimizer.
func (o *ListSplit) Run(p *RunParams) {
	if !slices.ContainsFunc(p.List, isSequence) {
		return
	}

	out := make(task.List, 0, len(p.List))
	for _, t := range p.List {
		if seq, ok := t.(*task.Sequence); ok {
			out = appendFlat(out, seq)
			continue
		}
		if t != nil {
			out = append(out, t)
		}
	}
	p.ReplaceList(out)
}

func isSequence(t task.Task) bool {
	_, ok := t.(*task.Sequence)
	return ok
}

// appendFlat appends the non-nil sub-tasks of seq to out, expanding nested
// sequences. seq itself is not modified.
func appendFlat(out task.List, seq *task.Sequence) task.List {
	for _, t := range seq.SubTasks {
		switch s := t.(type) {
		case nil:
		case *task.Sequence:
			out = appendFlat(out, s)
		default:
			out = append(out, t)
		}
	}
	return out
}

// SurfaceDestroy releases temporary surfaces once nothing reads them.
//
// For every temporary surface referenced by the list, a Release task is
// inserted right after the last root task that references it. The release
// carries one probe per root task that uses the surface below root level,
// so the dependency builder orders it after all of them. Surfaces used
// below a root task without a valid target are never released, since
// nothing could order the release after that task.
type SurfaceDestroy struct{}

// Info implements Optimizer.
func (*SurfaceDestroy) Info() Info {
	return Info{
		Name:      "surface-destroy",
		Category:  CategoryIDList,
		DependsOn: CategoryLinear,
		ForList:   true,
	}
}

type surfaceUse struct {
	last      int
	consumers []task.Task
	pinned    bool
}

// Run implements Optimizer.
func (o *SurfaceDestroy) Run(p *RunParams) {
	released := make(map[surface.Surface]bool)
	uses := make(map[surface.Surface]*surfaceUse)
	var order []surface.Surface

	use := func(s surface.Surface, j int) *surfaceUse {
		u, ok := uses[s]
		if !ok {
			u = &surfaceUse{}
			uses[s] = u
			order = append(order, s)
		}
		u.last = j
		return u
	}

	for j, t := range p.List {
		if t == nil {
			continue
		}
		b := t.TaskBase()
		if _, ok := t.(*task.Release); ok {
			released[b.Target] = true
			continue
		}
		if b.Target != nil && surface.Temporary(b.Target) {
			use(b.Target, j)
		}

		seen := make(map[surface.Surface]bool)
		walk(b.SubTasks, func(sub task.Task) {
			s := sub.TaskBase().Target
			if s == nil || !surface.Temporary(s) || seen[s] {
				return
			}
			seen[s] = true
			u := use(s, j)
			if b.ValidTarget() {
				u.consumers = append(u.consumers, t)
			} else {
				u.pinned = true
			}
		})
	}

	inserts := make(map[int]task.List)
	for _, s := range order {
		u := uses[s]
		if released[s] || u.pinned {
			continue
		}
		r := &task.Release{Base: task.Base{Target: s, TargetRect: s.Bounds()}}
		for _, c := range u.consumers {
			r.SubTasks = append(r.SubTasks, task.NewProbe(c))
		}
		inserts[u.last] = append(inserts[u.last], r)
	}
	if len(inserts) == 0 {
		return
	}

	out := make(task.List, 0, len(p.List)+len(inserts))
	for j, t := range p.List {
		out = append(out, t)
		out = append(out, inserts[j]...)
	}
	p.ReplaceList(out)
}

// walk calls fn for every non-nil task below list, depth first.
func walk(list task.List, fn func(task.Task)) {
	for _, t := range list {
		if t == nil {
			continue
		}
		fn(t)
		walk(t.TaskBase().SubTasks, fn)
	}
}
