// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package task

import (
	"image"
	"image/color"
)

// Fill paints a premultiplied color over TargetRect with source-over.
// It is abstract: a backend must specialize it before it can run.
type Fill struct {
	Base
	Color color.RGBA
}

// Clone returns a copy of t.
func (t *Fill) Clone() Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Run reports failure; Fill has no implementation of its own.
func (t *Fill) Run(RunParams) bool { return false }

// BlendMethod selects how Blend combines its inputs.
type BlendMethod uint8

const (
	BlendComposite BlendMethod = iota
	BlendStraight
	BlendOnto
	BlendBehind
	BlendAdd
	BlendMultiply
	BlendAlphaOver
)

var blendMethodNames = [...]string{
	BlendComposite: "composite",
	BlendStraight:  "straight",
	BlendOnto:      "onto",
	BlendBehind:    "behind",
	BlendAdd:       "add",
	BlendMultiply:  "multiply",
	BlendAlphaOver: "alpha-over",
}

// String returns the method name.
func (m BlendMethod) String() string {
	if int(m) < len(blendMethodNames) {
		return blendMethodNames[m]
	}
	return "unknown"
}

// ParseBlendMethod returns the method with the given name.
func ParseBlendMethod(name string) (BlendMethod, bool) {
	for i, n := range blendMethodNames {
		if n == name {
			return BlendMethod(i), true
		}
	}
	return 0, false
}

// Blend combines two inputs into TargetRect.
//
// Sub-task 0 is the destination content and may be nil, which blends onto
// whatever the target already holds. Sub-task 1 is the source. Both inputs
// share the coordinate space of the target.
type Blend struct {
	Base
	Method BlendMethod
	Amount float64
}

// Clone returns a copy of t.
func (t *Blend) Clone() Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Dest returns the destination input.
func (t *Blend) Dest() Task { return t.SubTask(0) }

// Source returns the source input.
func (t *Blend) Source() Task { return t.SubTask(1) }

// Check reports whether the inputs are well-formed.
func (t *Blend) Check() bool {
	return len(t.SubTasks) <= 2 && t.Amount >= 0 && t.Base.Check()
}

// Run reports failure; Blend has no implementation of its own.
func (t *Blend) Run(RunParams) bool { return false }

// Interpolation selects the resampling filter.
type Interpolation uint8

const (
	InterpolationNearest Interpolation = iota
	InterpolationLinear
	InterpolationCubic
)

// Resample scales the target rectangle of sub-task 0 into Dst, clipped to
// TargetRect.
type Resample struct {
	Base
	Dst           image.Rectangle
	Interpolation Interpolation
}

// Clone returns a copy of t.
func (t *Resample) Clone() Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Source returns the resampled input.
func (t *Resample) Source() Task { return t.SubTask(0) }

// Check reports whether the task has exactly one input with a target.
func (t *Resample) Check() bool {
	src := t.Source()
	return len(t.SubTasks) == 1 && src != nil && src.TaskBase().ValidTarget() && t.Base.Check()
}

// Run reports failure; Resample has no implementation of its own.
func (t *Resample) Run(RunParams) bool { return false }

// Sequence runs its sub-tasks in order. The sub-tasks normally share the
// target of the sequence.
type Sequence struct {
	Base
}

// Clone returns a copy of t.
func (t *Sequence) Clone() Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Run runs the sub-tasks.
func (t *Sequence) Run(p RunParams) bool { return RunSubTasks(t, p) }

// Release discards the contents of its target surface. Its sub-tasks are
// probes naming the regions that must be consumed first; they are not run.
type Release struct {
	Base
}

// Clone returns a copy of t.
func (t *Release) Clone() Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Run releases the target.
func (t *Release) Run(RunParams) bool {
	if t.Target != nil {
		t.Target.Release()
	}
	return true
}

// Probe does nothing. It carries a surface region into dependency analysis.
type Probe struct {
	Base
}

// NewProbe returns a probe for the given region.
func NewProbe(t Task) *Probe {
	b := t.TaskBase()
	return &Probe{Base: Base{Target: b.Target, TargetRect: b.TargetRect}}
}

// Clone returns a copy of t.
func (t *Probe) Clone() Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Run does nothing.
func (t *Probe) Run(RunParams) bool { return true }

// Callback runs a function.
type Callback struct {
	Base
	Func func(p RunParams) bool
}

// Clone returns a copy of t.
func (t *Callback) Clone() Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Run calls Func. A nil Func succeeds.
func (t *Callback) Run(p RunParams) bool {
	if t.Func == nil {
		return true
	}
	return t.Func(p)
}
