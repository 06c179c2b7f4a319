package parallel

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/rendering/task"
)

// link makes t wait for prereq.
func link(prereq, t task.Task) {
	if prereq.TaskBase().AddBackDep(t) {
		t.TaskBase().IncDeps()
	}
}

// runBatch enqueues list plus a completion task depending on every entry
// and waits for it.
func runBatch(t *testing.T, q *Queue, list task.List) {
	t.Helper()
	finished := make(chan struct{})
	join := &task.Callback{Func: func(task.RunParams) bool {
		close(finished)
		return true
	}}
	for _, tk := range list {
		link(tk, join)
	}
	q.Enqueue(append(list.Clone(), join))

	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("batch did not complete")
	}
}

type gpuCallback struct {
	task.Callback
}

func (*gpuCallback) GPU() bool { return true }

// =============================================================================
// Queue Creation Tests
// =============================================================================

func TestQueue_Create(t *testing.T) {
	q := NewQueue(4, nil, nil)
	defer q.Stop()

	if q.Threads() != 4 {
		t.Errorf("Threads() = %d, want 4", q.Threads())
	}
}

func TestQueue_Clamp(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-3, MinThreads},
		{0, MinThreads},
		{1, MinThreads},
		{3, 3},
		{100000, MaxThreads},
	}
	for _, tt := range tests {
		q := NewQueue(tt.in, nil, nil)
		if q.Threads() != tt.want {
			t.Errorf("NewQueue(%d).Threads() = %d, want %d", tt.in, q.Threads(), tt.want)
		}
		q.Stop()
	}
}

func TestQueue_StopIdempotent(t *testing.T) {
	q := NewQueue(3, nil, nil)
	q.Stop()
	q.Stop()

	// Enqueue after stop must not run anything or block.
	ran := false
	q.Enqueue(task.List{&task.Callback{Func: func(task.RunParams) bool { ran = true; return true }}})
	time.Sleep(10 * time.Millisecond)
	if ran {
		t.Error("task ran on stopped queue")
	}
}

// =============================================================================
// Execution Tests
// =============================================================================

func TestQueue_RunsIndependentTasks(t *testing.T) {
	q := NewQueue(8, nil, nil)
	defer q.Stop()

	var counter atomic.Int64
	list := make(task.List, 200)
	for i := range list {
		list[i] = &task.Callback{Func: func(task.RunParams) bool {
			counter.Add(1)
			return true
		}}
	}

	runBatch(t, q, list)

	if counter.Load() != 200 {
		t.Errorf("counter = %d, want 200", counter.Load())
	}
	if ready, waiting := q.Pending(); ready != 0 || waiting != 0 {
		t.Errorf("Pending() = %d, %d, want 0, 0", ready, waiting)
	}
}

func TestQueue_DependencyOrder(t *testing.T) {
	q := NewQueue(8, nil, nil)
	defer q.Stop()

	var mu sync.Mutex
	var order []int
	mk := func(i int) task.Task {
		return &task.Callback{Func: func(task.RunParams) bool {
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return true
		}}
	}

	a, b, c, d := mk(1), mk(2), mk(3), mk(4)
	link(a, b)
	link(b, c)
	link(a, d)
	link(c, d)

	runBatch(t, q, task.List{d, c, b, a})

	want := []int{1, 2, 3, 4}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestQueue_DiamondDecrementsOnce(t *testing.T) {
	q := NewQueue(4, nil, nil)
	defer q.Stop()

	var runs atomic.Int32
	top := &task.Callback{}
	left := &task.Callback{}
	right := &task.Callback{}
	bottom := &task.Callback{Func: func(task.RunParams) bool {
		runs.Add(1)
		return true
	}}
	link(top, left)
	link(top, right)
	link(left, bottom)
	link(right, bottom)
	link(left, bottom) // duplicate, must be ignored

	if bottom.DepsCount() != 2 {
		t.Fatalf("DepsCount() = %d, want 2", bottom.DepsCount())
	}

	runBatch(t, q, task.List{top, left, right, bottom})

	if runs.Load() != 1 {
		t.Errorf("bottom ran %d times, want 1", runs.Load())
	}
}

func TestQueue_GPUWorker(t *testing.T) {
	q := NewQueue(6, nil, nil)
	defer q.Stop()

	var active, maxActive, wrongWorker atomic.Int32
	var list task.List
	for range 20 {
		g := &gpuCallback{}
		g.Func = func(p task.RunParams) bool {
			if p.Worker != 0 {
				wrongWorker.Add(1)
			}
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(100 * time.Microsecond)
			active.Add(-1)
			return true
		}
		list = append(list, g)

		list = append(list, &task.Callback{Func: func(p task.RunParams) bool {
			if p.Worker == 0 {
				wrongWorker.Add(1)
			}
			return true
		}})
	}

	runBatch(t, q, list)

	if wrongWorker.Load() != 0 {
		t.Errorf("%d tasks ran on the wrong worker", wrongWorker.Load())
	}
	if maxActive.Load() != 1 {
		t.Errorf("max concurrent GPU tasks = %d, want 1", maxActive.Load())
	}
}

func TestQueue_GPUDependsOnGeneral(t *testing.T) {
	q := NewQueue(2, nil, nil)
	defer q.Stop()

	var order []string
	var mu sync.Mutex
	record := func(s string) func(task.RunParams) bool {
		return func(task.RunParams) bool {
			mu.Lock()
			order = append(order, s)
			mu.Unlock()
			return true
		}
	}

	general := &task.Callback{Func: record("general")}
	g := &gpuCallback{}
	g.Func = record("gpu")
	after := &task.Callback{Func: record("after")}
	link(general, g)
	link(g, after)

	runBatch(t, q, task.List{after, g, general})

	if len(order) != 3 || order[0] != "general" || order[1] != "gpu" || order[2] != "after" {
		t.Errorf("order = %v, want [general gpu after]", order)
	}
}

// =============================================================================
// Failure Tests
// =============================================================================

func TestQueue_FailureStillReleasesDependents(t *testing.T) {
	q := NewQueue(4, nil, nil)
	defer q.Stop()

	failing := &task.Callback{Func: func(task.RunParams) bool { return false }}
	var ran atomic.Bool
	dependent := &task.Callback{Func: func(task.RunParams) bool {
		ran.Store(true)
		return true
	}}
	independent := &task.Callback{}
	link(failing, dependent)

	runBatch(t, q, task.List{failing, dependent, independent})

	if !ran.Load() {
		t.Error("dependent of failed task did not run")
	}
	if failing.Success() {
		t.Error("failed task reports success")
	}
	if !dependent.Success() || !independent.Success() {
		t.Error("healthy tasks report failure")
	}
}

func TestQueue_PanicIsFailure(t *testing.T) {
	q := NewQueue(2, nil, nil)
	defer q.Stop()

	bad := &task.Callback{Func: func(task.RunParams) bool { panic("boom") }}
	runBatch(t, q, task.List{bad})

	if bad.Success() {
		t.Error("panicking task reports success")
	}
}

// =============================================================================
// Observer Tests
// =============================================================================

type countingObserver struct {
	started, finished, failed, gpu atomic.Int32
}

func (o *countingObserver) TaskStarted(gpu bool) {
	o.started.Add(1)
	if gpu {
		o.gpu.Add(1)
	}
}

func (o *countingObserver) TaskFinished(gpu, ok bool, d time.Duration) {
	o.finished.Add(1)
	if !ok {
		o.failed.Add(1)
	}
}

func TestQueue_Observer(t *testing.T) {
	obs := &countingObserver{}
	q := NewQueue(3, nil, obs)
	defer q.Stop()

	runBatch(t, q, task.List{
		&task.Callback{},
		&task.Callback{Func: func(task.RunParams) bool { return false }},
		&gpuCallback{},
	})

	// The join task is counted too; wait for its TaskFinished call.
	deadline := time.Now().Add(5 * time.Second)
	for obs.finished.Load() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if obs.started.Load() != 4 || obs.finished.Load() != 4 {
		t.Errorf("started/finished = %d/%d, want 4/4", obs.started.Load(), obs.finished.Load())
	}
	if obs.failed.Load() != 1 {
		t.Errorf("failed = %d, want 1", obs.failed.Load())
	}
	if obs.gpu.Load() != 1 {
		t.Errorf("gpu = %d, want 1", obs.gpu.Load())
	}
}
