// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package optimizer

import (
	"bytes"
	"image"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/rendering/surface"
	"github.com/gogpu/rendering/task"
)

// recorder is a configurable optimizer for tests.
type recorder struct {
	info Info
	fn   func(p *RunParams)
}

func (r *recorder) Info() Info { return r.info }

func (r *recorder) Run(p *RunParams) {
	if r.fn != nil {
		r.fn(p)
	}
}

func mustDriver(t *testing.T, opts ...Optimizer) *Driver {
	t.Helper()
	s, err := NewSet(opts...)
	if err != nil {
		t.Fatalf("NewSet() error = %v", err)
	}
	return NewDriver(s)
}

func fill(s surface.Surface, r image.Rectangle) *task.Fill {
	return &task.Fill{Base: task.Base{Target: s, TargetRect: r}}
}

func seq(subs ...task.Task) *task.Sequence {
	return &task.Sequence{Base: task.Base{SubTasks: subs}}
}

// ============================================================================
// Basic behaviour
// ============================================================================

func TestOptimizeRemovesEmptyTasks(t *testing.T) {
	s := surface.NewImage(100, 100)
	a := fill(s, image.Rect(0, 0, 10, 10))
	empty := fill(s, image.Rect(5, 5, 5, 20))
	b := fill(s, image.Rect(20, 20, 30, 30))

	d := mustDriver(t, &RemoveEmpty{})
	got, stats := d.Optimize(task.List{a, empty, b})

	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("Optimize() = %v, want [a b]", got)
	}
	if stats.Changes != 1 {
		t.Errorf("Changes = %d, want 1", stats.Changes)
	}
}

func TestOptimizeDoesNotModifyInput(t *testing.T) {
	s := surface.NewImage(10, 10)
	in := task.List{fill(s, image.Rect(0, 0, 0, 0)), nil}

	d := mustDriver(t, &RemoveEmpty{})
	got, _ := d.Optimize(in)

	if len(got) != 0 {
		t.Errorf("Optimize() = %v, want empty", got)
	}
	if in[0] == nil {
		t.Error("Optimize() modified the input list")
	}
}

func TestOptimizeWithoutSet(t *testing.T) {
	d := &Driver{}
	got, stats := d.Optimize(task.List{nil, &task.Probe{}})
	if len(got) != 1 || stats.Calls != 0 {
		t.Errorf("Optimize() = %v, %+v", got, stats)
	}
}

func TestDeepFirstOrder(t *testing.T) {
	b := seq()
	a := seq(b)
	c := seq()
	root := seq(a, c)
	names := map[task.Task]string{root: "root", a: "a", b: "b", c: "c"}

	var visits []string
	pre := &recorder{
		info: Info{Name: "pre", Category: CategoryIDCoords, ForTask: true},
		fn:   func(p *RunParams) { visits = append(visits, "pre:"+names[p.Ref]) },
	}
	post := &recorder{
		info: Info{Name: "post", Category: CategoryIDCoords, ForTask: true, DeepFirst: true},
		fn:   func(p *RunParams) { visits = append(visits, "post:"+names[p.Ref]) },
	}

	mustDriver(t, pre, post).Optimize(task.List{root})

	want := "pre:root pre:a pre:b post:b post:a pre:c post:c post:root"
	if got := strings.Join(visits, " "); got != want {
		t.Errorf("visit order = %q, want %q", got, want)
	}
}

func TestRootTaskOnly(t *testing.T) {
	calls := 0
	o := &recorder{
		info: Info{Name: "root", Category: CategoryIDSpecialize, ForRootTask: true},
		fn: func(p *RunParams) {
			calls++
			if p.Parent != nil {
				t.Errorf("root-only optimizer called at level %d", p.Level())
			}
		},
	}

	mustDriver(t, o).Optimize(task.List{seq(seq()), seq()})
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestListOptimizerReplacesList(t *testing.T) {
	extra := &task.Probe{}
	o := &recorder{
		info: Info{Name: "append", Category: CategoryIDList, ForList: true},
		fn: func(p *RunParams) {
			if len(p.List) == 1 {
				p.ReplaceList(append(p.List.Clone(), extra))
			}
		},
	}

	got, stats := mustDriver(t, o).Optimize(task.List{&task.Probe{}})
	if len(got) != 2 || got[1] != extra {
		t.Errorf("Optimize() = %v, want appended probe", got)
	}
	if stats.Changes != 1 {
		t.Errorf("Changes = %d, want 1", stats.Changes)
	}
}

func TestFrameStack(t *testing.T) {
	leaf := seq()
	root := seq(seq(leaf))
	var depth int
	var top task.Task
	o := &recorder{
		info: Info{Name: "stack", Category: CategoryIDCoords, ForTask: true},
		fn: func(p *RunParams) {
			if p.Ref == leaf {
				depth = p.Level()
				top = p.Stack()[0].Ref
			}
		},
	}

	mustDriver(t, o).Optimize(task.List{root})
	if depth != 2 {
		t.Errorf("Level() = %d, want 2", depth)
	}
	if top != root {
		t.Error("Stack()[0] is not the root frame")
	}
}

// ============================================================================
// Copy-on-write
// ============================================================================

func TestReplacementClonesParent(t *testing.T) {
	old := &task.Probe{}
	repl := &task.Probe{}
	root := seq(old)

	o := &recorder{
		info: Info{Name: "swap", Category: CategoryIDCoords, ForTask: true},
		fn: func(p *RunParams) {
			if p.Ref == old {
				p.Replace(repl)
			}
		},
	}

	got, _ := mustDriver(t, o).Optimize(task.List{root})

	if got[0] == task.Task(root) {
		t.Fatal("parent was mutated in place instead of cloned")
	}
	if root.SubTasks[0] != old {
		t.Error("original parent lost its sub-task")
	}
	if got[0].TaskBase().SubTasks[0] != repl {
		t.Error("clone does not hold the replacement")
	}
}

// ============================================================================
// Repeat modes
// ============================================================================

// repeatTree builds a chain of sequences of the given depth ending in a
// marker probe, and returns the root and the marker.
func repeatTree(depth int) (task.Task, task.Task) {
	marker := &task.Probe{}
	var t task.Task = marker
	for range depth {
		t = seq(t)
	}
	return t, marker
}

func rootVisits(t *testing.T, depth int, mode Mode) int {
	t.Helper()
	root, marker := repeatTree(depth)

	visits := 0
	count := &recorder{
		info: Info{Name: "count", Category: CategoryIDConvert, ForTask: true},
		fn: func(p *RunParams) {
			if p.Parent == nil {
				visits++
			}
		},
	}
	swap := &recorder{
		info: Info{Name: "swap", Category: CategoryIDConvert, ForTask: true, DeepFirst: true, Mode: mode},
		fn: func(p *RunParams) {
			if p.Ref == marker {
				p.Replace(&task.Probe{})
			}
		},
	}

	mustDriver(t, count, swap).Optimize(task.List{root})
	return visits
}

func TestRepeatModes(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		mode  Mode
		want  int
	}{
		{"no repeat", 1, 0, 1},
		{"repeat last stays local", 1, ModeRepeatLast, 1},
		{"repeat parent reaches parent", 1, ModeRepeatParent, 2},
		{"repeat parent stops one level up", 2, ModeRepeatParent, 1},
		{"repeat branch reaches root", 2, ModeRepeatBranch, 2},
		{"repeat branch deep", 4, ModeRepeatBranch, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rootVisits(t, tt.depth, tt.mode); got != tt.want {
				t.Errorf("root visits = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRepeatLastReoptimizesSlot(t *testing.T) {
	first := &task.Probe{}
	second := &task.Probe{}
	final := &task.Probe{}
	o := &recorder{
		info: Info{Name: "chain", Category: CategoryIDSpecialize, ForTask: true, Mode: ModeRepeatLast},
		fn: func(p *RunParams) {
			switch p.Ref {
			case first:
				p.Replace(second)
			case second:
				p.Replace(final)
			}
		},
	}

	got, stats := mustDriver(t, o).Optimize(task.List{first})
	if got[0] != final {
		t.Errorf("Optimize() = %v, want final probe", got)
	}
	if stats.Changes != 2 {
		t.Errorf("Changes = %d, want 2", stats.Changes)
	}
}

// ============================================================================
// Category ordering and convergence
// ============================================================================

func TestCategoryOrdering(t *testing.T) {
	s := surface.NewImage(10, 10)
	list := task.List{
		fill(s, image.Rect(-5, -5, 5, 5)),
		seq(fill(s, image.Rect(8, 8, 20, 20))),
	}

	unclipped := 0
	check := &recorder{
		info: Info{Name: "check", Category: CategoryIDConvert, DependsOn: CategoryCoords, ForTask: true},
		fn: func(p *RunParams) {
			b := p.Ref.TaskBase()
			if b.Target != nil && !b.TargetRect.In(b.Target.Bounds()) {
				unclipped++
			}
		},
	}

	mustDriver(t, check, &ClipTarget{}).Optimize(list)
	if unclipped != 0 {
		t.Errorf("convert pass saw %d unclipped tasks", unclipped)
	}
}

func TestAffectedCategoryRestarts(t *testing.T) {
	coordsRuns := 0
	coords := &recorder{
		info: Info{Name: "coords", Category: CategoryIDCoords, ForRootTask: true},
		fn:   func(*RunParams) { coordsRuns++ },
	}
	done := false
	invalidate := &recorder{
		info: Info{Name: "invalidate", Category: CategoryIDLinear, ForRootTask: true, AffectsTo: CategoryCoords},
		fn: func(p *RunParams) {
			if !done {
				done = true
				p.Replace(&task.Probe{})
			}
		},
	}

	mustDriver(t, coords, invalidate).Optimize(task.List{&task.Probe{}})
	if coordsRuns != 2 {
		t.Errorf("coords runs = %d, want 2", coordsRuns)
	}
}

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestMaxRepeatsBound(t *testing.T) {
	o := &recorder{
		info: Info{Name: "forever", Category: CategoryIDSpecialize, ForTask: true, Mode: ModeRepeatLast},
		fn:   func(p *RunParams) { p.Replace(&task.Probe{}) },
	}
	d := mustDriver(t, o)
	d.MaxRepeats = 3
	log, buf := captureLogger()
	d.Logger = log

	_, stats := d.Optimize(task.List{&task.Probe{}})

	if stats.Changes != 4 {
		t.Errorf("Changes = %d, want 4", stats.Changes)
	}
	if !strings.Contains(buf.String(), "slot did not converge") {
		t.Errorf("missing convergence error in log: %s", buf.String())
	}
}

func TestMaxSweepsBound(t *testing.T) {
	o := &recorder{
		info: Info{Name: "self", Category: CategoryIDLinear, ForTask: true, AffectsTo: CategoryLinear},
		fn:   func(p *RunParams) { p.Replace(&task.Probe{}) },
	}
	d := mustDriver(t, o)
	d.MaxSweeps = 5
	log, buf := captureLogger()
	d.Logger = log

	got, _ := d.Optimize(task.List{&task.Probe{}})

	if len(got) != 1 {
		t.Errorf("Optimize() = %v, want one task", got)
	}
	if !strings.Contains(buf.String(), "list did not converge") {
		t.Errorf("missing convergence error in log: %s", buf.String())
	}
}

func TestOnChange(t *testing.T) {
	s := surface.NewImage(10, 10)
	var names []string
	d := mustDriver(t, &ClipTarget{}, &RemoveEmpty{})
	d.OnChange = func(info Info, p *RunParams) { names = append(names, info.Name) }

	d.Optimize(task.List{fill(s, image.Rect(20, 20, 30, 30))})

	if got := strings.Join(names, ","); got != "clip-target,remove-empty" {
		t.Errorf("changes = %q, want clip-target,remove-empty", got)
	}
}
