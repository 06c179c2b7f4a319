// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package optimizer

import (
	"log/slog"
	"math"
	"slices"

	"github.com/gogpu/rendering/task"
)

// Default convergence bounds.
const (
	DefaultMaxRepeats = 64
	DefaultMaxSweeps  = 1024
)

// Stats counts optimizer invocations.
type Stats struct {
	// Calls is the number of optimizer runs.
	Calls int

	// Changes is the number of runs that replaced or removed a task.
	Changes int
}

func (s *Stats) add(o Stats) {
	s.Calls += o.Calls
	s.Changes += o.Changes
}

// Driver applies a Set of optimizers to a task list until it reaches a
// fixed point.
//
// A Driver is single-threaded; Optimize must not be called concurrently on
// the same Driver.
type Driver struct {
	// Set holds the optimizers to apply.
	Set *Set

	// MaxRepeats bounds how often one slot is optimized again in a row.
	// Zero means DefaultMaxRepeats.
	MaxRepeats int

	// MaxSweeps bounds how often processing restarts from the first
	// category. Zero means DefaultMaxSweeps.
	MaxSweeps int

	// Logger receives per-category counters and convergence errors.
	// Nil disables logging.
	Logger *slog.Logger

	// OnChange, if set, is called for every replacement with the frame
	// after the change.
	OnChange func(info Info, p *RunParams)
}

// NewDriver returns a driver for set with default bounds.
func NewDriver(set *Set) *Driver {
	return &Driver{Set: set}
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

func (d *Driver) maxRepeats() int {
	if d.MaxRepeats <= 0 {
		return DefaultMaxRepeats
	}
	return d.MaxRepeats
}

func (d *Driver) maxSweeps() int {
	if d.MaxSweeps <= 0 {
		return DefaultMaxSweeps
	}
	return d.MaxSweeps
}

// Optimize returns an optimized copy of list. The input slice is not
// modified, but tasks it shares with the result are.
func (d *Driver) Optimize(list task.List) (task.List, Stats) {
	list = list.Clone()
	if d.Set == nil {
		return list.Compact(), Stats{}
	}

	log := d.logger()
	var total Stats

	categoryID := CategoryID(0)
	index := 0
	var affected Category
	toProcess := CategoryAll
	sweeps := 0

	restart := func() {
		categoryID, index, affected = 0, 0, 0
		sweeps++
	}

	for toProcess&CategoryAll != 0 {
		if sweeps > d.maxSweeps() {
			log.Error("optimizer: list did not converge",
				"sweeps", sweeps,
				"pending", toProcess)
			break
		}

		if categoryID >= CategoryIDCount {
			restart()
			continue
		}

		bit := categoryID.Category()
		if toProcess&bit == 0 {
			categoryID++
			index, affected = 0, 0
			continue
		}

		all := d.Set.lists[categoryID]
		if index >= len(all) {
			toProcess &^= bit
			toProcess |= affected
			categoryID++
			index, affected = 0, 0
			continue
		}

		current := all
		if !categoryID.Simultaneous() {
			current = all[index : index+1]
			if affected&bit&current[0].Info().DependsOn != 0 {
				restart()
				continue
			}
		}

		var dependsOn Category
		var forList, forTask, forRootTask bool
		for _, o := range current {
			info := o.Info()
			dependsOn |= (bit - 1) & info.DependsOn
			forList = forList || info.ForList
			forTask = forTask || info.ForTask
			forRootTask = forRootTask || info.ForRootTask
		}

		if forList {
			for _, o := range current {
				if toProcess&dependsOn != 0 {
					break
				}
				info := o.Info()
				if !info.ForList {
					continue
				}
				p := RunParams{List: list, DependsOn: dependsOn, info: info}
				o.Run(&p)
				total.Calls++
				if p.listChanged {
					total.Changes++
					list = p.List
					if d.OnChange != nil {
						d.OnChange(info, &p)
					}
				}
				affected |= p.AffectsTo
				toProcess |= affected
			}
		}

		if forTask || forRootTask {
			r := run{driver: d, log: log}
			maxLevel := 0
			if forTask {
				maxLevel = math.MaxInt
			}

			nonrecursive := false
			repeats := 0
			for j := 0; toProcess&dependsOn == 0 && j < len(list); {
				t := list[j]
				if t == nil {
					list = slices.Delete(list, j, j+1)
					continue
				}

				level := maxLevel
				if forTask && nonrecursive {
					level = 1
				}
				p := r.recursive(current, RunParams{List: list, DependsOn: dependsOn, Orig: t, Ref: t}, level)
				nonrecursive = false

				switch {
				case p.Ref == t:
					j++
					repeats = 0
				case p.Ref == nil:
					list = slices.Delete(list, j, j+1)
					repeats = 0
				default:
					list[j] = p.Ref
					if p.Mode.Has(ModeRepeatLast) && r.repeat(&repeats, p.Ref) {
						nonrecursive = p.Mode&ModeRecursive == 0
					} else {
						j++
						repeats = 0
					}
				}

				affected |= p.AffectsTo
				toProcess |= affected
			}

			log.Debug("optimizer: category pass",
				"category", categoryID,
				"index", index,
				"calls", r.stats.Calls,
				"changes", r.stats.Changes)
			total.add(r.stats)
		}

		if toProcess&dependsOn != 0 {
			restart()
			continue
		}

		index += len(current)
	}

	return list.Compact(), total
}

// run is the state of one task traversal.
type run struct {
	driver *Driver
	log    *slog.Logger
	stats  Stats
}

// repeat counts one more repetition of a slot and reports whether it is
// still within bounds.
func (r *run) repeat(n *int, t task.Task) bool {
	if *n >= r.driver.maxRepeats() {
		r.log.Error("optimizer: slot did not converge",
			"task", task.TypeName(t),
			"repeats", *n)
		return false
	}
	*n++
	return true
}

// recursive optimizes p.Ref and its sub-tasks and returns the final frame.
func (r *run) recursive(passes []Optimizer, p RunParams, maxLevel int) RunParams {
	if p.Ref == nil || p.AffectsTo&p.DependsOn != 0 {
		return p
	}

	var ok bool
	if p, ok = r.runPasses(passes, p, false); !ok {
		return p
	}

	if maxLevel > 0 {
		cloned := false
		nonrecursive, recursive := false, false
		repeats := 0
		initial := p

		for i := 0; i < len(p.Ref.TaskBase().SubTasks); {
			sub := p.Ref.TaskBase().SubTasks[i]
			if sub == nil {
				i++
				continue
			}

			level := maxLevel - 1
			switch {
			case nonrecursive:
				level = 1
			case recursive:
				level = math.MaxInt
			}
			initial.Ref = p.Ref
			sp := r.recursive(passes, initial.Sub(sub), level)
			nonrecursive, recursive = false, false

			if sp.Ref != sub {
				if !cloned {
					p.Ref = p.Ref.Clone()
					cloned = true
				}
				p.Ref.TaskBase().SubTasks[i] = sp.Ref

				if sp.Mode.Has(ModeRepeatLast) && sp.Ref != nil && r.repeat(&repeats, sp.Ref) {
					if sp.Mode&ModeRecursive != 0 {
						recursive = true
					} else {
						nonrecursive = true
					}
				} else {
					i++
					repeats = 0
				}
			} else {
				i++
				repeats = 0
			}

			p.AffectsTo |= sp.AffectsTo
			switch {
			case sp.Mode.Has(ModeRepeatBranch):
				p.Mode |= ModeRepeatBranch | sp.Mode&ModeRecursive
			case sp.Mode.Has(ModeRepeatParent):
				p.Mode |= ModeRepeatLast | sp.Mode&ModeRecursive
			}

			if p.AffectsTo&p.DependsOn != 0 {
				return p
			}
		}
	}

	p, _ = r.runPasses(passes, p, true)
	return p
}

// runPasses runs the task optimizers with the given DeepFirst flag on
// p.Ref. It reports false when the frame must stop.
func (r *run) runPasses(passes []Optimizer, p RunParams, deepFirst bool) (RunParams, bool) {
	for _, o := range passes {
		info := o.Info()
		if info.DeepFirst != deepFirst {
			continue
		}
		if !info.ForTask && !(info.ForRootTask && p.Parent == nil) {
			continue
		}

		q := p
		q.AffectsTo, q.Mode = 0, 0
		q.info = info
		o.Run(&q)
		r.stats.Calls++

		if q.Ref != p.Ref {
			r.stats.Changes++
			if r.driver.OnChange != nil {
				r.driver.OnChange(info, &q)
			}
		}

		p.AffectsTo |= q.AffectsTo
		p.Mode |= q.Mode
		p.Ref = q.Ref

		if p.Ref == nil {
			return p, false
		}
		if !p.Ref.Check() {
			r.log.Warn("optimizer: produced invalid task",
				"optimizer", info.Name,
				"task", task.TypeName(p.Ref))
		}
		if p.AffectsTo&p.DependsOn != 0 {
			return p, false
		}
	}
	return p, true
}
