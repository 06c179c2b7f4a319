// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendering

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/rendering/task"
)

func newTestSystem(t *testing.T, opts Options) *System {
	t.Helper()
	s := NewSystem(opts)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestNewSystem(t *testing.T) {
	s := newTestSystem(t, Options{Threads: 3})

	if s.Threads() != 3 {
		t.Errorf("Threads() = %d, want 3", s.Threads())
	}
	names := s.Renderers()
	for _, want := range []string{"safe", "software"} {
		if !slices.Contains(names, want) {
			t.Errorf("Renderers() = %v, missing %q", names, want)
		}
	}
	if slices.Contains(names, "gpu") {
		t.Error("gpu renderer registered without a device")
	}
}

func TestSystemClose(t *testing.T) {
	s := NewSystem(Options{Threads: 2})
	r, _ := s.Renderer("software")

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("second Close() error = %v, want ErrNotInitialized", err)
	}
	if len(s.Renderers()) != 0 {
		t.Errorf("Renderers() = %v after Close", s.Renderers())
	}
	if r.Run(task.List{&task.Callback{}}) {
		t.Error("Run() = true on closed system")
	}
	if err := s.RegisterRenderer(mustRenderer(t, "late")); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("RegisterRenderer() error = %v, want ErrNotInitialized", err)
	}
}

func TestInitialize(t *testing.T) {
	s, err := Initialize(Options{Threads: 2})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { _ = Deinitialize() })

	if Default() != s {
		t.Error("Default() does not return the initialized system")
	}
	if _, err := Initialize(Options{}); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize() error = %v, want ErrAlreadyInitialized", err)
	}

	if err := Deinitialize(); err != nil {
		t.Fatalf("Deinitialize() error = %v", err)
	}
	if Default() != nil {
		t.Error("Default() != nil after Deinitialize")
	}
	if err := Deinitialize(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("second Deinitialize() error = %v, want ErrNotInitialized", err)
	}
}

// =============================================================================
// Renderer registry
// =============================================================================

func mustRenderer(t *testing.T, name string) *Renderer {
	t.Helper()
	r, err := NewRenderer(name)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}

func TestRegisterRenderer(t *testing.T) {
	s := newTestSystem(t, Options{Threads: 2})
	r := mustRenderer(t, "custom")

	if err := s.RegisterRenderer(r); err != nil {
		t.Fatalf("RegisterRenderer() error = %v", err)
	}
	if got, ok := s.Renderer("custom"); !ok || got != r {
		t.Errorf("Renderer(custom) = %v, %v", got, ok)
	}

	err := s.RegisterRenderer(mustRenderer(t, "custom"))
	var exists *RendererExistsError
	if !errors.As(err, &exists) || exists.Name != "custom" {
		t.Errorf("duplicate RegisterRenderer() error = %v, want RendererExistsError", err)
	}
}

func TestRegisterRendererTwoSystems(t *testing.T) {
	a := newTestSystem(t, Options{Threads: 2})
	b := newTestSystem(t, Options{Threads: 2})
	r := mustRenderer(t, "shared")

	if err := a.RegisterRenderer(r); err != nil {
		t.Fatalf("RegisterRenderer() error = %v", err)
	}
	if err := b.RegisterRenderer(r); !errors.Is(err, ErrRendererInUse) {
		t.Errorf("RegisterRenderer() on second system error = %v, want ErrRendererInUse", err)
	}
}

func TestUnregisterRenderer(t *testing.T) {
	s := newTestSystem(t, Options{Threads: 2})
	r := mustRenderer(t, "custom")
	if err := s.RegisterRenderer(r); err != nil {
		t.Fatal(err)
	}

	if err := s.UnregisterRenderer("custom"); err != nil {
		t.Fatalf("UnregisterRenderer() error = %v", err)
	}
	if _, ok := s.Renderer("custom"); ok {
		t.Error("renderer still registered")
	}
	if r.MaxSimultaneousThreads() != 0 {
		t.Error("unregistered renderer still attached")
	}
	if err := s.UnregisterRenderer("custom"); !errors.Is(err, ErrRendererNotFound) {
		t.Errorf("second UnregisterRenderer() error = %v, want ErrRendererNotFound", err)
	}
}

func TestSystemOptionsFromEnv(t *testing.T) {
	t.Setenv(EnvThreads, "4")
	s := newTestSystem(t, Options{Threads: 2})

	if s.Threads() != 5 {
		t.Errorf("Threads() = %d, want 5", s.Threads())
	}
	if s.Options().Threads != 5 {
		t.Errorf("Options().Threads = %d, want 5", s.Options().Threads)
	}
}
