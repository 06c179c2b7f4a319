// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendering

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/rendering/backend"
	"github.com/gogpu/rendering/optimizer"
	"github.com/gogpu/rendering/task"
)

// Renderer turns task lists into pixels. It owns a set of optimizers and
// runs optimized lists on the worker pool of the System it is registered
// with.
//
// Thread safety: Renderer is safe for concurrent use. Concurrent Run calls
// must not share tasks.
type Renderer struct {
	name    string
	backend backend.Backend

	mu  sync.RWMutex
	set *optimizer.Set

	// system is set while the renderer is registered.
	sysMu  sync.RWMutex
	system *System
}

// NewRenderer returns an unregistered renderer with the given optimizers.
func NewRenderer(name string, optimizers ...optimizer.Optimizer) (*Renderer, error) {
	set, err := optimizer.NewSet(optimizers...)
	if err != nil {
		return nil, fmt.Errorf("rendering: renderer %q: %w", name, err)
	}
	return &Renderer{name: name, set: set}, nil
}

// newBackendRenderer returns a renderer for an initialized backend.
func newBackendRenderer(b backend.Backend) (*Renderer, error) {
	r, err := NewRenderer(b.Name(), b.Optimizers()...)
	if err != nil {
		return nil, err
	}
	r.backend = b
	return r, nil
}

// Name returns the renderer name.
func (r *Renderer) Name() string { return r.name }

// Backend returns the backend the renderer was created for, or nil.
func (r *Renderer) Backend() backend.Backend { return r.backend }

// RegisterOptimizer adds o to the renderer.
func (r *Renderer) RegisterOptimizer(o optimizer.Optimizer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set.Register(o)
}

// UnregisterOptimizer removes o. It reports whether o was registered.
func (r *Renderer) UnregisterOptimizer(o optimizer.Optimizer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set.Unregister(o)
}

// IsOptimizerRegistered reports whether o is registered.
func (r *Renderer) IsOptimizerRegistered(o optimizer.Optimizer) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set.IsRegistered(o)
}

// MaxSimultaneousThreads returns the number of tasks that may run at the
// same time, not counting the GPU worker. It is zero when the renderer is
// not registered with a System.
func (r *Renderer) MaxSimultaneousThreads() int {
	s := r.attached()
	if s == nil {
		return 0
	}
	return s.Threads() - 1
}

// Optimize returns the optimized form of list without running it. The
// input slice is not modified.
func (r *Renderer) Optimize(list task.List) task.List {
	out, _ := r.optimize(list)
	return out
}

func (r *Renderer) optimize(list task.List) (task.List, optimizer.Stats) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := Logger()
	d := optimizer.NewDriver(r.set)
	d.Logger = log
	if log.Enabled(context.Background(), slog.LevelDebug) {
		d.OnChange = func(info optimizer.Info, p *optimizer.RunParams) {
			log.Debug("rendering: optimized",
				"renderer", r.name,
				"optimizer", info.Name,
				"path", stackPath(p))
		}
	}
	return d.Optimize(list)
}

// Run optimizes list, computes the dependencies of the result and executes
// it on the worker pool. It blocks until every task has finished and
// reports whether all of them succeeded.
//
// A failed task does not stop the run; tasks depending on it still run.
func (r *Renderer) Run(list task.List) bool {
	s := r.attached()
	if s == nil {
		Logger().Error("rendering: renderer is not registered", "renderer", r.name)
		return false
	}
	return s.run(r, list)
}

func (r *Renderer) attached() *System {
	r.sysMu.RLock()
	defer r.sysMu.RUnlock()
	return r.system
}

func (r *Renderer) attach(s *System) bool {
	r.sysMu.Lock()
	defer r.sysMu.Unlock()
	if r.system != nil && r.system != s {
		return false
	}
	r.system = s
	return true
}

func (r *Renderer) detach() {
	r.sysMu.Lock()
	r.system = nil
	r.sysMu.Unlock()
}
