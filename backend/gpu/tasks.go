//go:build !nogpu

package gpu

import (
	"github.com/gogpu/rendering/backend"
	"github.com/gogpu/rendering/backend/software"
	"github.com/gogpu/rendering/surface"
	"github.com/gogpu/rendering/task"
)

// Fill is the GPU implementation of task.Fill.
type Fill struct {
	software.Fill
	backend *Backend
}

// GPU implements task.GPUBound.
func (*Fill) GPU() bool { return true }

// Clone returns a copy of t.
func (t *Fill) Clone() task.Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Run produces the sub-tasks, dispatches the fill kernel, then fills the
// staging image.
func (t *Fill) Run(p task.RunParams) bool {
	if !task.RunSubTasks(t, p) {
		return false
	}
	err := t.backend.dispatch(kernelFill, params{
		Rect:   t.TargetRect,
		Color:  unitColor(t.Color),
		Amount: 1,
		Width:  uint32(t.Target.Bounds().Dx()),
	}, t.Target, nil)
	if err != nil {
		logDispatchError(t, err)
		return false
	}
	return t.Fill.Apply()
}

// Blend is the GPU implementation of task.Blend.
type Blend struct {
	software.Blend
	backend *Backend
}

// GPU implements task.GPUBound.
func (*Blend) GPU() bool { return true }

// Clone returns a copy of t.
func (t *Blend) Clone() task.Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Run produces both inputs, dispatches the blend kernel, then blends into
// the staging image.
func (t *Blend) Run(p task.RunParams) bool {
	if !task.RunSubTasks(t, p) {
		return false
	}
	pr := params{
		Rect:   t.TargetRect,
		Amount: float32(t.Amount),
		Mode:   uint32(t.Method),
		Width:  uint32(t.Target.Bounds().Dx()),
	}
	src := sourceOf(t.Source(), &pr)
	if err := t.backend.dispatch(kernelBlend, pr, t.Target, src); err != nil {
		logDispatchError(t, err)
		return false
	}
	return t.Blend.Apply()
}

// Resample is the GPU implementation of task.Resample.
type Resample struct {
	software.Resample
	backend *Backend
}

// GPU implements task.GPUBound.
func (*Resample) GPU() bool { return true }

// Clone returns a copy of t.
func (t *Resample) Clone() task.Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Run produces the source, dispatches the resample kernel, then resamples
// into the staging image.
func (t *Resample) Run(p task.RunParams) bool {
	if !task.RunSubTasks(t, p) {
		return false
	}
	pr := params{
		Rect:   t.Dst.Intersect(t.TargetRect),
		Amount: 1,
		Mode:   uint32(t.Interpolation),
		Width:  uint32(t.Target.Bounds().Dx()),
	}
	src := sourceOf(t.Source(), &pr)
	if err := t.backend.dispatch(kernelResample, pr, t.Target, src); err != nil {
		logDispatchError(t, err)
		return false
	}
	return t.Resample.Apply()
}

// sourceOf returns the surface written by s and records its rectangle in pr.
func sourceOf(s task.Task, pr *params) surface.Surface {
	if s == nil || s.TaskBase().Target == nil {
		return nil
	}
	pr.Source = s.TaskBase().TargetRect
	pr.SourceWidth = uint32(s.TaskBase().Target.Bounds().Dx())
	return s.TaskBase().Target
}

func logDispatchError(t task.Task, err error) {
	backend.Logger().Warn("gpu: dispatch failed",
		"task", task.TypeName(t),
		"err", err)
}

// onTexture reports whether t writes into a texture.
func onTexture(t task.Task) bool {
	_, ok := t.TaskBase().Target.(*surface.Texture)
	return ok
}
