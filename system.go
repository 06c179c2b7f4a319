// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendering

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/gogpu/rendering/backend"
	"github.com/gogpu/rendering/internal/parallel"
	"github.com/gogpu/rendering/surface"
	"github.com/gogpu/rendering/task"
)

// Errors returned by System.
var (
	// ErrAlreadyInitialized is returned by Initialize when the default
	// system exists.
	ErrAlreadyInitialized = errors.New("rendering: already initialized")

	// ErrNotInitialized is returned when the system is closed or was never
	// created.
	ErrNotInitialized = errors.New("rendering: not initialized")

	// ErrRendererNotFound is returned for unknown renderer names.
	ErrRendererNotFound = errors.New("rendering: renderer not found")

	// ErrRendererInUse is returned when a renderer is registered with
	// another system.
	ErrRendererInUse = errors.New("rendering: renderer registered with another system")
)

// RendererExistsError is returned when a renderer name is taken.
type RendererExistsError struct {
	Name string
}

func (e *RendererExistsError) Error() string {
	return fmt.Sprintf("rendering: renderer %q already registered", e.Name)
}

// System is the rendering context: it owns the worker pool, the
// renderers and the backends they were created for.
//
// A System is created with NewSystem, or as the process-wide default with
// Initialize. Close stops the workers; it must not be called while a Run
// is in progress on one of its renderers, and waits for such runs to
// return.
type System struct {
	opts  Options
	queue *parallel.Queue

	mu        sync.RWMutex
	renderers map[string]*Renderer
	backends  []backend.Backend
	closed    bool

	// runMu is held for reading by every run and for writing by Close.
	runMu sync.RWMutex
}

// NewSystem starts a system: it starts the worker pool and registers a
// renderer for every backend that initializes. A backend that fails to
// initialize is skipped.
func NewSystem(opts Options) *System {
	opts = resolveOptions(opts)
	log := Logger()

	s := &System{
		opts:      opts,
		queue:     parallel.NewQueue(opts.threads(), log, opts.Observer),
		renderers: make(map[string]*Renderer),
	}
	s.initBackends()

	log.Info("rendering: system started",
		"threads", s.queue.Threads(),
		"renderers", s.Renderers())
	return s
}

func (s *System) initBackends() {
	log := Logger()
	for _, name := range backend.Available() {
		b, err := backend.New(name)
		if err != nil {
			log.Warn("rendering: backend unavailable", "backend", name, "error", err)
			continue
		}
		if err := b.Init(); err != nil {
			log.Warn("rendering: backend init failed", "backend", name, "error", err)
			continue
		}
		r, err := newBackendRenderer(b)
		if err != nil {
			log.Warn("rendering: backend renderer", "backend", name, "error", err)
			b.Close()
			continue
		}
		if err := s.RegisterRenderer(r); err != nil {
			log.Warn("rendering: backend renderer", "backend", name, "error", err)
			b.Close()
			continue
		}
		s.backends = append(s.backends, b)
	}
}

// Close stops the worker pool, detaches every renderer and closes the
// backends. It returns ErrNotInitialized when the system is already
// closed.
func (s *System) Close() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	s.closed = true
	renderers := s.renderers
	backends := s.backends
	s.renderers = make(map[string]*Renderer)
	s.backends = nil
	s.mu.Unlock()

	s.queue.Stop()
	for _, r := range renderers {
		r.detach()
	}
	for _, b := range backends {
		b.Close()
	}
	Logger().Info("rendering: system stopped")
	return nil
}

// RegisterRenderer adds r under its name.
func (s *System) RegisterRenderer(r *Renderer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrNotInitialized
	}
	if _, ok := s.renderers[r.Name()]; ok {
		return &RendererExistsError{Name: r.Name()}
	}
	if !r.attach(s) {
		return fmt.Errorf("%w: %q", ErrRendererInUse, r.Name())
	}
	s.renderers[r.Name()] = r
	return nil
}

// UnregisterRenderer removes the renderer with the given name.
func (s *System) UnregisterRenderer(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.renderers[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRendererNotFound, name)
	}
	delete(s.renderers, name)
	r.detach()
	return nil
}

// Renderer returns the renderer with the given name.
func (s *System) Renderer(name string) (*Renderer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.renderers[name]
	return r, ok
}

// Renderers returns the sorted names of the registered renderers.
func (s *System) Renderers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.renderers))
	for name := range s.renderers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Threads returns the number of workers, including the GPU worker.
func (s *System) Threads() int { return s.queue.Threads() }

// Options returns the options in effect, environment overrides included.
func (s *System) Options() Options { return s.opts }

// run executes list for r. See Renderer.Run.
func (s *System) run(r *Renderer, list task.List) bool {
	s.runMu.RLock()
	defer s.runMu.RUnlock()

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		Logger().Error("rendering: run on closed system", "renderer", r.Name())
		return false
	}

	log := Logger()
	dbg := s.opts.Debug

	for _, t := range list {
		if t != nil && !t.Check() {
			log.Warn("rendering: task failed check", "renderer", r.Name(), "task", task.TypeName(t))
		}
	}
	if dbg.TaskListLog != "" {
		s.dump(dbg.TaskListLog, func(w io.Writer) {
			writeTaskList(w, list, r.Name()+" input", nil)
		})
	}

	optimized, stats := r.optimize(list)
	optimized, dropped := uniqueTasks(optimized)
	if dropped > 0 {
		log.Warn("rendering: duplicate tasks dropped", "renderer", r.Name(), "tasks", dropped)
	}
	buildDeps(optimized)

	if dbg.TaskListOptimizedLog != "" {
		s.dump(dbg.TaskListOptimizedLog, func(w io.Writer) {
			writeTaskList(w, optimized, r.Name()+" optimized", nil)
			writeStats(w, stats)
		})
	}

	b := newBarrier()
	for _, t := range optimized {
		if t.TaskBase().AddBackDep(b) {
			b.IncDeps()
		}
	}
	s.queue.Enqueue(append(optimized, b))
	b.wait()

	ok := true
	for _, t := range optimized {
		if !t.TaskBase().Success() {
			ok = false
		}
	}

	if dbg.ResultImage != "" {
		s.saveResult(dbg.ResultImage, optimized)
	}

	log.Debug("rendering: run finished",
		"renderer", r.Name(),
		"tasks", len(list),
		"optimized", len(optimized),
		"calls", stats.Calls,
		"changes", stats.Changes,
		"ok", ok)
	return ok
}

func (s *System) dump(path string, write func(w io.Writer)) {
	if err := appendLog(path, write); err != nil {
		Logger().Warn("rendering: task list log", "path", path, "error", err)
	}
}

// saveResult saves the target of the last task of list.
func (s *System) saveResult(path string, list task.List) {
	var target surface.Surface
	if n := len(list); n > 0 && list[n-1] != nil {
		target = list[n-1].TaskBase().Target
	}
	if target == nil {
		Logger().Warn("rendering: no result surface to save", "path", path)
		return
	}
	if err := surface.Save(target, path); err != nil {
		Logger().Warn("rendering: save result image", "path", path, "error", err)
	}
}

// Process-wide default system.
var (
	defaultMu     sync.Mutex
	defaultSystem *System
)

// Initialize creates the default system. It returns ErrAlreadyInitialized
// when the default system exists.
func Initialize(opts Options) (*System, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSystem != nil {
		return nil, ErrAlreadyInitialized
	}
	defaultSystem = NewSystem(opts)
	return defaultSystem, nil
}

// Deinitialize closes the default system. It returns ErrNotInitialized
// when there is none.
func Deinitialize() error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultSystem == nil {
		return ErrNotInitialized
	}
	err := defaultSystem.Close()
	defaultSystem = nil
	return err
}

// Default returns the default system, or nil before Initialize.
func Default() *System {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultSystem
}
