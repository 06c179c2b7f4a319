// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendering

import (
	"github.com/gogpu/rendering/task"
)

// buildDeps prepares list for scheduling: it clears the runtime state of
// every task, assigns 1-based indices in list order and links each task
// to the earlier tasks it must wait for.
//
// A task waits for an earlier task when both have valid targets on the
// same surface and the target rectangles intersect. The same test is
// applied to each sub-task with a valid target, so a task also waits for
// earlier writers of the regions its inputs read. Tasks without a valid
// target take part on neither side.
func buildDeps(list task.List) {
	for _, t := range list {
		t.TaskBase().ResetRuntime()
	}

	for i, t := range list {
		b := t.TaskBase()
		b.SetIndex(i + 1)
		if !b.ValidTarget() {
			continue
		}
		for _, sub := range b.SubTasks {
			if sub != nil && sub.TaskBase().ValidTarget() {
				linkEarlier(list[:i], t, sub.TaskBase())
			}
		}
		linkEarlier(list[:i], t, b)
	}
}

// linkEarlier makes t wait for every task of earlier, scanned backward,
// whose target overlaps the target of region.
func linkEarlier(earlier task.List, t task.Task, region *task.Base) {
	for k := len(earlier) - 1; k >= 0; k-- {
		e := earlier[k]
		eb := e.TaskBase()
		if e == t || !eb.ValidTarget() || !sameSurface(eb, region) {
			continue
		}
		if !eb.TargetRect.Overlaps(region.TargetRect) {
			continue
		}
		if eb.AddBackDep(t) {
			t.TaskBase().IncDeps()
		}
	}
}

func sameSurface(a, b *task.Base) bool {
	return a.Target.ID() == b.Target.ID()
}

// uniqueTasks drops repeated entries of list, keeping the first.
func uniqueTasks(list task.List) (task.List, int) {
	seen := make(map[task.Task]struct{}, len(list))
	out := list[:0]
	dropped := 0
	for _, t := range list {
		if _, ok := seen[t]; ok {
			dropped++
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, dropped
}
