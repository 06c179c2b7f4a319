// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package task defines the rendering task graph.
//
// A task is one rendering operation. It owns an ordered list of sub-tasks
// whose output it consumes, and writes its own result into a rectangle of a
// target surface. Sibling order is painter's order.
//
// Tasks are immutable once they are handed to a renderer, except for the
// runtime fields the scheduler maintains (index, dependency count,
// back-dependencies and success flag). Optimizers that need to change a
// task clone it first with Clone.
package task

import (
	"fmt"
	"image"

	"github.com/gogpu/rendering/surface"
)

// RunParams is passed to Task.Run by the scheduler.
type RunParams struct {
	// Worker is the index of the worker running the task. Worker 0 is the
	// GPU worker.
	Worker int
}

// Task is a node of the rendering task graph.
type Task interface {
	// TaskBase returns the shared task state.
	TaskBase() *Base

	// Clone returns a copy that owns its own sub-task list. The sub-tasks
	// themselves are shared until they are cloned too.
	Clone() Task

	// Check reports whether the task is well-formed. It has no side effects.
	Check() bool

	// Run executes the task and reports success.
	Run(p RunParams) bool
}

// GPUBound is implemented by tasks that must run on the GPU worker.
type GPUBound interface {
	GPU() bool
}

// IsGPU reports whether t must be scheduled on the GPU worker.
func IsGPU(t Task) bool {
	g, ok := t.(GPUBound)
	return ok && g.GPU()
}

// List is an ordered sequence of tasks. Nil entries are allowed while a
// list is being optimized and mean "deleted".
type List []Task

// Compact returns l without nil entries. It reuses the backing array.
func (l List) Compact() List {
	out := l[:0]
	for _, t := range l {
		if t != nil {
			out = append(out, t)
		}
	}
	clear(l[len(out):])
	return out
}

// Clone returns a shallow copy of l.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

// Base is embedded by every task.
type Base struct {
	// SubTasks are the inputs of the task, in painter's order.
	SubTasks List

	// Target is the surface the task writes into.
	Target surface.Surface

	// TargetRect is the region of Target the task writes.
	TargetRect image.Rectangle

	index     int
	depsCount int
	backDeps  []Task
	backSet   map[Task]struct{}
	success   bool
	params    RunParams
}

// TaskBase returns b. It lets types embedding Base satisfy Task.
func (b *Base) TaskBase() *Base { return b }

// ValidTarget reports whether the task writes into a non-empty region of
// a surface.
func (b *Base) ValidTarget() bool {
	return b.Target != nil && !b.TargetRect.Empty()
}

// Check reports whether every sub-task checks.
func (b *Base) Check() bool {
	for _, t := range b.SubTasks {
		if t != nil && !t.Check() {
			return false
		}
	}
	return true
}

// Copy returns a copy of b with its own sub-task slice and cleared runtime
// state.
func (b *Base) Copy() Base {
	return Base{
		SubTasks:   b.SubTasks.Clone(),
		Target:     b.Target,
		TargetRect: b.TargetRect,
	}
}

// SubTask returns the i-th sub-task, or nil when out of range.
func (b *Base) SubTask(i int) Task {
	if i < 0 || i >= len(b.SubTasks) {
		return nil
	}
	return b.SubTasks[i]
}

// ResetRuntime clears the scheduler state.
func (b *Base) ResetRuntime() {
	b.index = 0
	b.depsCount = 0
	b.backDeps = nil
	b.backSet = nil
	b.success = true
	b.params = RunParams{}
}

// Index returns the 1-based position assigned by the dependency builder,
// or 0 when the task is not scheduled.
func (b *Base) Index() int { return b.index }

// SetIndex assigns the scheduling position.
func (b *Base) SetIndex(i int) { b.index = i }

// DepsCount returns the number of unfinished prerequisites.
func (b *Base) DepsCount() int { return b.depsCount }

// IncDeps records one more prerequisite.
func (b *Base) IncDeps() { b.depsCount++ }

// DecDeps records a finished prerequisite and reports whether the task is
// now ready. The count never goes below zero.
func (b *Base) DecDeps() bool {
	if b.depsCount > 0 {
		b.depsCount--
	}
	return b.depsCount == 0
}

// AddBackDep registers t as waiting on this task. It returns false if t was
// already registered.
func (b *Base) AddBackDep(t Task) bool {
	if b.backSet == nil {
		b.backSet = make(map[Task]struct{})
	}
	if _, ok := b.backSet[t]; ok {
		return false
	}
	b.backSet[t] = struct{}{}
	b.backDeps = append(b.backDeps, t)
	return true
}

// BackDeps returns the waiting tasks in registration order.
func (b *Base) BackDeps() []Task { return b.backDeps }

// ClearBackDeps forgets all waiting tasks.
func (b *Base) ClearBackDeps() {
	b.backDeps = nil
	b.backSet = nil
}

// Prepare stores the run parameters and marks the task successful until
// Run says otherwise.
func (b *Base) Prepare(p RunParams) {
	b.params = p
	b.success = true
}

// Params returns the parameters of the last run.
func (b *Base) Params() RunParams { return b.params }

// Success reports whether the last run succeeded.
func (b *Base) Success() bool { return b.success }

// SetSuccess records the outcome of a run.
func (b *Base) SetSuccess(ok bool) { b.success = ok }

// RunSubTasks runs every sub-task of t in order and reports whether all of
// them succeeded. It stops at the first failure.
func RunSubTasks(t Task, p RunParams) bool {
	for _, sub := range t.TaskBase().SubTasks {
		if sub != nil && !sub.Run(p) {
			return false
		}
	}
	return true
}

// TypeName returns a short type name for logs, such as "software.Fill".
func TypeName(t Task) string {
	if t == nil {
		return "<nil>"
	}
	s := fmt.Sprintf("%T", t)
	if len(s) > 0 && s[0] == '*' {
		s = s[1:]
	}
	return s
}
