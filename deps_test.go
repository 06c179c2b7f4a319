package rendering

import (
	"image"
	"testing"

	"github.com/gogpu/rendering/surface"
	"github.com/gogpu/rendering/task"
)

func rectTask(s surface.Surface, r image.Rectangle) *task.Callback {
	return &task.Callback{Base: task.Base{Target: s, TargetRect: r}}
}

func backIndices(t task.Task) []int {
	var out []int
	for _, d := range t.TaskBase().BackDeps() {
		out = append(out, d.TaskBase().Index())
	}
	return out
}

func TestBuildDeps_Overlap(t *testing.T) {
	s := surface.NewImage(40, 40)
	a := rectTask(s, image.Rect(0, 0, 10, 10))
	b := rectTask(s, image.Rect(5, 5, 15, 15))
	c := rectTask(s, image.Rect(20, 20, 30, 30))

	buildDeps(task.List{a, b, c})

	for i, tk := range []task.Task{a, b, c} {
		if got := tk.TaskBase().Index(); got != i+1 {
			t.Errorf("task %d Index() = %d, want %d", i, got, i+1)
		}
	}
	if a.DepsCount() != 0 || b.DepsCount() != 1 || c.DepsCount() != 0 {
		t.Errorf("DepsCount() = %d, %d, %d, want 0, 1, 0", a.DepsCount(), b.DepsCount(), c.DepsCount())
	}
	if got := backIndices(a); len(got) != 1 || got[0] != 2 {
		t.Errorf("a back deps = %v, want [2]", got)
	}
	if len(b.BackDeps()) != 0 || len(c.BackDeps()) != 0 {
		t.Error("unexpected back deps on b or c")
	}
}

func TestBuildDeps_TouchingRectsIndependent(t *testing.T) {
	s := surface.NewImage(40, 40)
	a := rectTask(s, image.Rect(0, 0, 10, 10))
	b := rectTask(s, image.Rect(10, 0, 20, 10))

	buildDeps(task.List{a, b})

	if b.DepsCount() != 0 {
		t.Errorf("DepsCount() = %d, want 0 for adjacent rects", b.DepsCount())
	}
}

func TestBuildDeps_DifferentSurfaces(t *testing.T) {
	r := image.Rect(0, 0, 10, 10)
	a := rectTask(surface.NewImage(10, 10), r)
	b := rectTask(surface.NewImage(10, 10), r)

	buildDeps(task.List{a, b})

	if b.DepsCount() != 0 {
		t.Errorf("DepsCount() = %d, want 0 across surfaces", b.DepsCount())
	}
}

func TestBuildDeps_SubTaskReads(t *testing.T) {
	out := surface.NewImage(10, 10)
	tmp := surface.NewImage(10, 10)
	r := image.Rect(0, 0, 10, 10)

	producer := rectTask(tmp, r)
	consumer := &task.Callback{Base: task.Base{
		Target:     out,
		TargetRect: r,
		SubTasks:   task.List{nil, task.NewProbe(rectTask(tmp, image.Rect(2, 2, 4, 4)))},
	}}

	buildDeps(task.List{producer, consumer})

	if consumer.DepsCount() != 1 {
		t.Fatalf("DepsCount() = %d, want 1", consumer.DepsCount())
	}
	if got := backIndices(producer); len(got) != 1 || got[0] != 2 {
		t.Errorf("producer back deps = %v, want [2]", got)
	}
}

func TestBuildDeps_ReadAndWriteSameRegionCountOnce(t *testing.T) {
	s := surface.NewImage(10, 10)
	r := image.Rect(0, 0, 10, 10)
	first := rectTask(s, r)
	second := &task.Callback{Base: task.Base{
		Target:     s,
		TargetRect: r,
		SubTasks:   task.List{rectTask(s, r)},
	}}

	buildDeps(task.List{first, second})

	if second.DepsCount() != 1 {
		t.Errorf("DepsCount() = %d, want 1", second.DepsCount())
	}
}

func TestBuildDeps_NoTarget(t *testing.T) {
	s := surface.NewImage(10, 10)
	r := image.Rect(0, 0, 10, 10)
	a := rectTask(s, r)
	logical := &task.Callback{}
	b := rectTask(s, r)

	buildDeps(task.List{a, logical, b})

	if logical.Index() != 2 {
		t.Errorf("Index() = %d, want 2", logical.Index())
	}
	if logical.DepsCount() != 0 || len(logical.BackDeps()) != 0 {
		t.Error("task without target must not take part in dependencies")
	}
	if got := backIndices(a); len(got) != 1 || got[0] != 3 {
		t.Errorf("a back deps = %v, want [3]", got)
	}
}

func TestBuildDeps_ResetsRuntime(t *testing.T) {
	s := surface.NewImage(10, 10)
	r := image.Rect(0, 0, 10, 10)
	a, b := rectTask(s, r), rectTask(s, r)

	buildDeps(task.List{a, b})
	buildDeps(task.List{a, b})

	if b.DepsCount() != 1 || len(a.BackDeps()) != 1 {
		t.Errorf("second build: DepsCount() = %d, back deps = %d, want 1, 1",
			b.DepsCount(), len(a.BackDeps()))
	}
}

func TestUniqueTasks(t *testing.T) {
	a, b := &task.Callback{}, &task.Callback{}

	got, dropped := uniqueTasks(task.List{a, b, a, a})

	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("uniqueTasks() = %v, want [a b]", got)
	}
}
