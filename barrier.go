package rendering

import (
	"sync"

	"github.com/gogpu/rendering/task"
)

// barrier is the last task of a run. It depends on every other task of
// the batch and wakes the caller blocked in wait when it runs.
type barrier struct {
	task.Base

	mu   sync.Mutex
	cond *sync.Cond
	done bool
}

func newBarrier() *barrier {
	b := &barrier{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Clone returns a new barrier; barriers are never shared between runs.
func (b *barrier) Clone() task.Task { return newBarrier() }

func (b *barrier) Run(task.RunParams) bool {
	b.mu.Lock()
	b.done = true
	b.mu.Unlock()
	b.cond.Broadcast()
	return true
}

// wait blocks until the barrier has run.
func (b *barrier) wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for !b.done {
		b.cond.Wait()
	}
}
