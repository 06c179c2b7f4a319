// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendering

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/rendering/optimizer"
	"github.com/gogpu/rendering/task"
)

const logRule = "-------------------------------------------"

// printer formats counters with digit grouping.
var printer = message.NewPrinter(language.English)

// writeTaskList writes list in a human readable form, one task per line
// and sub-tasks indented below their parent.
//
// Each line shows, when set: the index, the number of unfinished
// prerequisites, the indices of the waiting tasks in parentheses, the task
// type and the target. When stack is given, tasks of the optimization
// path are replaced by their current version and marked with '*'.
func writeTaskList(w io.Writer, list task.List, name string, stack *optimizer.RunParams) {
	fmt.Fprintln(w, header(name))
	var frames []*optimizer.RunParams
	if stack != nil {
		frames = stack.Stack()
	}
	for _, t := range list {
		writeTask(w, t, frames, 0)
	}
	fmt.Fprintln(w, logRule)
}

func header(name string) string {
	h := "---- " + name + " "
	if len(h) < len(logRule) {
		h += logRule[len(h):]
	}
	return h
}

func writeTask(w io.Writer, t task.Task, frames []*optimizer.RunParams, level int) {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("  ", level))

	onStack := level < len(frames) && frames[level].Orig == t
	if onStack {
		sb.WriteByte('*')
		t = frames[level].Ref
	} else {
		frames = nil
	}

	if t == nil {
		sb.WriteString("NULL")
		fmt.Fprintln(w, sb.String())
		return
	}

	b := t.TaskBase()
	if b.Index() != 0 {
		fmt.Fprintf(&sb, "#%d ", b.Index())
	}
	if b.DepsCount() != 0 {
		fmt.Fprintf(&sb, "%d ", b.DepsCount())
	}
	if deps := b.BackDeps(); len(deps) > 0 {
		idx := make([]string, 0, len(deps))
		sorted := make([]int, 0, len(deps))
		for _, d := range deps {
			sorted = append(sorted, d.TaskBase().Index())
		}
		slices.Sort(sorted)
		for _, i := range sorted {
			idx = append(idx, fmt.Sprint(i))
		}
		fmt.Fprintf(&sb, "(%s) ", strings.Join(idx, " "))
	}
	sb.WriteString(task.TypeName(t))
	if b.ValidTarget() {
		r := b.TargetRect
		s := b.Target
		fmt.Fprintf(&sb, " target (%d, %d)-(%d, %d) surface %s (%dx%d) id %d",
			r.Min.X, r.Min.Y, r.Max.X, r.Max.Y,
			surfaceKind(s), s.Bounds().Dx(), s.Bounds().Dy(), s.ID())
	}
	fmt.Fprintln(w, sb.String())

	for _, sub := range b.SubTasks {
		writeTask(w, sub, frames, level+1)
	}
}

func surfaceKind(s any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", s), "*")
}

// writeStats writes the optimizer counters of a run.
func writeStats(w io.Writer, stats optimizer.Stats) {
	printer.Fprintf(w, "optimizer: %d calls, %d changes\n", stats.Calls, stats.Changes)
}

// appendLog appends the output of write to the file at path.
func appendLog(path string, write func(w io.Writer)) (err error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("rendering: open task log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	write(bw)
	return bw.Flush()
}

// stackPath returns the task types from the root frame down to p.
func stackPath(p *optimizer.RunParams) string {
	frames := p.Stack()
	names := make([]string, len(frames))
	for i, f := range frames {
		names[i] = task.TypeName(f.Orig)
	}
	return strings.Join(names, " > ")
}
