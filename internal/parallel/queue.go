// Package parallel runs task graphs on a fixed pool of worker goroutines.
//
// Worker 0 is reserved for GPU-bound tasks, which therefore run strictly one
// at a time. All other workers share the general ready queue.
package parallel

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/rendering/task"
)

// Thread count bounds.
const (
	MinThreads = 2
	MaxThreads = 256
)

// Observer receives scheduling events. Methods are called from worker
// goroutines and must be safe for concurrent use.
type Observer interface {
	TaskStarted(gpu bool)
	TaskFinished(gpu, ok bool, d time.Duration)
}

// Queue schedules tasks whose dependencies have been computed.
//
// A task is ready when its dependency count is zero. When a task finishes,
// every task in its back-dependency set has its count decremented; tasks
// reaching zero become ready. A failed task still completes.
//
// Thread safety: Queue is safe for concurrent use.
type Queue struct {
	threads  int
	logger   *slog.Logger
	observer Observer

	// mu guards everything below, including the runtime fields of queued
	// tasks.
	mu         sync.Mutex
	cond       *sync.Cond
	condGPU    *sync.Cond
	ready      []task.Task
	readyGPU   []task.Task
	waiting    map[task.Task]struct{}
	waitingGPU map[task.Task]struct{}
	inProcess  map[task.Task]int
	running    bool

	// lifecycle serializes Stop.
	lifecycle sync.Mutex
	wg        sync.WaitGroup
}

// NewQueue starts a queue with the given number of workers, clamped to
// [MinThreads, MaxThreads]. Logger and observer may be nil.
func NewQueue(threads int, logger *slog.Logger, observer Observer) *Queue {
	threads = max(MinThreads, min(threads, MaxThreads))
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	q := &Queue{
		threads:    threads,
		logger:     logger,
		observer:   observer,
		waiting:    make(map[task.Task]struct{}),
		waitingGPU: make(map[task.Task]struct{}),
		inProcess:  make(map[task.Task]int),
		running:    true,
	}
	q.cond = sync.NewCond(&q.mu)
	q.condGPU = sync.NewCond(&q.mu)

	q.wg.Add(threads)
	for i := range threads {
		go q.worker(i)
	}

	q.logger.Debug("parallel: queue started", "threads", threads)
	return q
}

// Threads returns the number of workers, including the GPU worker.
func (q *Queue) Threads() int {
	return q.threads
}

// Enqueue adds a batch of tasks. Tasks with no outstanding dependencies
// become ready at once; the others wait for their prerequisites.
//
// Dependencies must be fully linked before Enqueue is called.
func (q *Queue) Enqueue(list task.List) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		q.logger.Warn("parallel: enqueue on stopped queue", "tasks", len(list))
		return
	}

	readyGPU, ready := 0, 0
	for _, t := range list {
		if t == nil {
			continue
		}
		gpu := task.IsGPU(t)
		if t.TaskBase().DepsCount() == 0 {
			q.push(t, gpu)
			if gpu {
				readyGPU++
			} else {
				ready++
			}
			continue
		}
		if gpu {
			q.waitingGPU[t] = struct{}{}
		} else {
			q.waiting[t] = struct{}{}
		}
	}

	if readyGPU > 0 {
		q.condGPU.Signal()
	}
	for range min(ready, q.threads-1) {
		q.cond.Signal()
	}
}

// push appends t to its ready queue. Must be called with mu held.
func (q *Queue) push(t task.Task, gpu bool) {
	if gpu {
		q.readyGPU = append(q.readyGPU, t)
	} else {
		q.ready = append(q.ready, t)
	}
}

// Pending returns the number of ready and waiting tasks.
func (q *Queue) Pending() (ready, waiting int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready) + len(q.readyGPU), len(q.waiting) + len(q.waitingGPU)
}

// InProcess returns the number of tasks currently running.
func (q *Queue) InProcess() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inProcess)
}

// Stop stops the workers and waits for them to exit. Running tasks finish
// normally; queued tasks are not started. Stop is safe to call multiple
// times.
func (q *Queue) Stop() {
	q.lifecycle.Lock()
	defer q.lifecycle.Unlock()

	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cond.Broadcast()
	q.condGPU.Broadcast()
	dropped := len(q.ready) + len(q.readyGPU) + len(q.waiting) + len(q.waitingGPU)
	q.mu.Unlock()

	q.wg.Wait()
	if dropped > 0 {
		q.logger.Warn("parallel: queue stopped with pending tasks", "tasks", dropped)
	}
	q.logger.Debug("parallel: queue stopped")
}

// worker is the main loop for each worker goroutine.
func (q *Queue) worker(id int) {
	defer q.wg.Done()

	gpu := id == 0
	for {
		t := q.get(id, gpu)
		if t == nil {
			return
		}
		ok, d := q.execute(t, id, gpu)
		q.done(t, ok, gpu)
		if q.observer != nil {
			q.observer.TaskFinished(gpu, ok, d)
		}
	}
}

// get blocks until a task of the worker's class is ready or the queue
// stops. It returns nil on stop.
func (q *Queue) get(id int, gpu bool) task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	ready, cond := &q.ready, q.cond
	if gpu {
		ready, cond = &q.readyGPU, q.condGPU
	}

	for {
		if !q.running {
			return nil
		}
		if len(*ready) > 0 {
			t := (*ready)[0]
			(*ready)[0] = nil
			*ready = (*ready)[1:]
			q.inProcess[t] = id
			t.TaskBase().Prepare(task.RunParams{Worker: id})
			return t
		}
		cond.Wait()
	}
}

// execute runs t and reports its result and duration. A panic counts as a
// failure.
func (q *Queue) execute(t task.Task, id int, gpu bool) (ok bool, d time.Duration) {
	if q.observer != nil {
		q.observer.TaskStarted(gpu)
	}
	start := time.Now()
	defer func() {
		d = time.Since(start)
		if r := recover(); r != nil {
			q.logger.Warn("parallel: task panicked",
				"task", task.TypeName(t),
				"worker", id,
				"panic", r)
			ok = false
		}
	}()
	return t.Run(task.RunParams{Worker: id}), 0
}

// done records the result of t and releases the tasks waiting on it.
func (q *Queue) done(t task.Task, ok, gpu bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	b := t.TaskBase()
	b.SetSuccess(ok)
	delete(q.inProcess, t)
	if !ok {
		q.logger.Debug("parallel: task failed", "task", task.TypeName(t), "index", b.Index())
	}

	// The finishing worker picks up the first newly ready task of its own
	// class on its next get, so that one needs no signal.
	claimed := false
	for _, dep := range b.BackDeps() {
		db := dep.TaskBase()
		if db.DepsCount() == 0 {
			q.logger.Error("parallel: dependency count underflow", "task", task.TypeName(dep))
			continue
		}
		if !db.DecDeps() {
			continue
		}

		depGPU := task.IsGPU(dep)
		if depGPU {
			delete(q.waitingGPU, dep)
		} else {
			delete(q.waiting, dep)
		}
		q.push(dep, depGPU)

		switch {
		case depGPU == gpu && !claimed:
			claimed = true
		case depGPU:
			q.condGPU.Signal()
		default:
			q.cond.Signal()
		}
	}
	b.ClearBackDeps()
}
