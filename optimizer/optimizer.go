// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package optimizer rewrites task lists before they are scheduled.
//
// An Optimizer is a stateless rewrite rule. It belongs to one Category and
// declares which categories must be stable before it may run. The Driver
// applies registered optimizers until no category is affected any more.
//
// # Categories
//
// Categories are processed in numeric order:
//
//	Coords      resolve target rectangles
//	Convert     rewrite tasks into simpler equivalents
//	Specialize  replace abstract tasks with backend tasks
//	Linear      flatten nested sequences
//	List        rewrite the root list
//
// Optimizers of a simultaneous category run together in a single traversal.
// Optimizers of other categories run one at a time.
//
// # Modes
//
// When an optimizer replaces a task, its Mode tells the driver what to do
// next:
//
//	ModeRepeatLast    optimize the replaced slot again
//	ModeRepeatParent  also optimize the parent slot again
//	ModeRepeatBranch  optimize every ancestor slot again
//	ModeRecursive     repeat with a full descent instead of one level
package optimizer

import (
	"github.com/gogpu/rendering/task"
)

// CategoryID is the position of a category in processing order.
type CategoryID int

const (
	CategoryIDCoords CategoryID = iota
	CategoryIDConvert
	CategoryIDSpecialize
	CategoryIDLinear
	CategoryIDList

	CategoryIDCount
)

var categoryNames = [CategoryIDCount]string{
	CategoryIDCoords:     "coords",
	CategoryIDConvert:    "convert",
	CategoryIDSpecialize: "specialize",
	CategoryIDLinear:     "linear",
	CategoryIDList:       "list",
}

// String returns the category name.
func (id CategoryID) String() string {
	if id >= 0 && id < CategoryIDCount {
		return categoryNames[id]
	}
	return "unknown"
}

// Category returns the mask bit of id.
func (id CategoryID) Category() Category {
	return 1 << Category(id)
}

// Simultaneous reports whether all optimizers of the category run in one
// traversal.
func (id CategoryID) Simultaneous() bool {
	return id == CategoryIDCoords || id == CategoryIDConvert
}

// Category is a set of categories.
type Category uint32

const (
	CategoryCoords     = Category(1 << CategoryIDCoords)
	CategoryConvert    = Category(1 << CategoryIDConvert)
	CategorySpecialize = Category(1 << CategoryIDSpecialize)
	CategoryLinear     = Category(1 << CategoryIDLinear)
	CategoryList       = Category(1 << CategoryIDList)

	CategoryAll = Category(1<<CategoryIDCount - 1)
)

// Mode controls how the driver continues after a replacement.
type Mode uint8

const (
	ModeRepeatLast   Mode = 1
	ModeRepeatParent Mode = 2 | ModeRepeatLast
	ModeRepeatBranch Mode = 4 | ModeRepeatParent
	ModeRecursive    Mode = 8
)

// Has reports whether every bit of f is set in m.
func (m Mode) Has(f Mode) bool { return m&f == f }

// Info describes an optimizer.
type Info struct {
	// Name is used in logs.
	Name string

	// Category is the category the optimizer belongs to.
	Category CategoryID

	// DependsOn lists the categories that must be stable before the
	// optimizer runs. Only categories before Category are honoured.
	DependsOn Category

	// AffectsTo lists the categories invalidated by a change.
	AffectsTo Category

	// Mode is applied to the frame when the optimizer replaces a task.
	Mode Mode

	// DeepFirst runs the optimizer after the sub-tasks have been optimized.
	DeepFirst bool

	// ForList runs the optimizer once over the whole root list.
	ForList bool

	// ForTask runs the optimizer on every task of the tree.
	ForTask bool

	// ForRootTask runs the optimizer on root tasks only.
	ForRootTask bool
}

// Optimizer is a rewrite rule.
//
// Implementations must be comparable and must not keep state between
// calls; everything they need is in RunParams.
type Optimizer interface {
	Info() Info
	Run(p *RunParams)
}

// RunParams is the frame an optimizer works on.
//
// A task optimizer inspects Ref and calls Replace or Remove. A list
// optimizer inspects List and calls ReplaceList.
type RunParams struct {
	// List is the root task list being optimized.
	List task.List

	// DependsOn is the set of categories whose change aborts the frame.
	DependsOn Category

	// Orig is the task the frame started with.
	Orig task.Task

	// Ref is the current task. Nil means the task was removed.
	Ref task.Task

	// AffectsTo accumulates invalidated categories.
	AffectsTo Category

	// Mode accumulates repeat requests.
	Mode Mode

	// Parent is the frame of the parent task, or nil at root level.
	Parent *RunParams

	info        Info
	listChanged bool
}

// Sub returns a fresh frame for a sub-task of p.Ref.
func (p *RunParams) Sub(t task.Task) RunParams {
	return RunParams{
		List:      p.List,
		DependsOn: p.DependsOn,
		Orig:      t,
		Ref:       t,
		Parent:    p,
	}
}

// Replace substitutes t for the current task.
func (p *RunParams) Replace(t task.Task) {
	if t == p.Ref {
		return
	}
	p.Ref = t
	p.AffectsTo |= p.info.AffectsTo
	p.Mode |= p.info.Mode
}

// Remove deletes the current task.
func (p *RunParams) Remove() {
	p.Replace(nil)
}

// ReplaceList substitutes the root list.
func (p *RunParams) ReplaceList(l task.List) {
	p.List = l
	p.AffectsTo |= p.info.AffectsTo
	p.listChanged = true
}

// Level returns the depth of the frame; root tasks are at level 0.
func (p *RunParams) Level() int {
	n := 0
	for q := p.Parent; q != nil; q = q.Parent {
		n++
	}
	return n
}

// Stack returns the frames from the root down to p.
func (p *RunParams) Stack() []*RunParams {
	out := make([]*RunParams, p.Level()+1)
	for i, q := len(out)-1, p; q != nil; i, q = i-1, q.Parent {
		out[i] = q
	}
	return out
}
