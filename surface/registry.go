// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"sort"
	"sync"
)

// Factory creates a new Surface with the given options.
type Factory func(opts Options) (Surface, error)

// RegistryEntry represents a registered surface kind.
type RegistryEntry struct {
	// Name is the unique identifier for this kind.
	Name string

	// Priority determines selection order (higher = preferred).
	Priority int

	// Factory creates surface instances.
	Factory Factory

	// Available reports if the kind can be created on this system.
	Available func() bool
}

var globalRegistry = NewRegistry()

// Registry manages named surface kinds.
//
// Scene files refer to surface kinds by name; a surface without a kind
// gets the best available one.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*RegistryEntry),
	}
}

// Register adds a kind to the global registry.
// If available is nil, the kind is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(name string, priority int, factory Factory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Available returns names of all available kinds sorted by priority.
func Available() []string {
	return globalRegistry.Available()
}

// NewSurfaceWithOptions creates a surface of the best available kind.
func NewSurfaceWithOptions(opts Options) (Surface, error) {
	return globalRegistry.NewSurface(opts)
}

// NewSurfaceByNameWithOptions creates a surface of a specific kind.
func NewSurfaceByNameWithOptions(name string, opts Options) (Surface, error) {
	return globalRegistry.NewSurfaceByName(name, opts)
}

// Register adds a kind to this registry.
func (r *Registry) Register(name string, priority int, factory Factory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if available == nil {
		available = func() bool { return true }
	}

	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Available returns names of all available kinds sorted by priority.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(true)
}

// NewSurface creates a surface of the best available kind.
func (r *Registry) NewSurface(opts Options) (Surface, error) {
	r.mu.RLock()
	available := r.sortedNames(true)
	r.mu.RUnlock()

	var lastErr error
	for _, name := range available {
		s, err := r.NewSurfaceByName(name, opts)
		if err == nil {
			return s, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoKindAvailable
}

// NewSurfaceByName creates a surface of a specific kind.
func (r *Registry) NewSurfaceByName(name string, opts Options) (Surface, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &KindNotFoundError{Name: name}
	}
	if !entry.Available() {
		return nil, &KindUnavailableError{Name: name}
	}
	return entry.Factory(opts)
}

// sortedNames returns kind names sorted by priority (highest first), then
// by name. Must be called with lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	if len(r.entries) == 0 {
		return nil
	}

	entries := make([]*RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Errors.
var (
	// ErrNoKindAvailable is returned when no surface kinds are registered
	// or available.
	ErrNoKindAvailable = errors.New("surface: no surface kind available")
)

// KindNotFoundError indicates a named kind is not registered.
type KindNotFoundError struct {
	Name string
}

func (e *KindNotFoundError) Error() string {
	return "surface: kind not found: " + e.Name
}

// KindUnavailableError indicates a kind exists but is not available.
type KindUnavailableError struct {
	Name string
}

func (e *KindUnavailableError) Error() string {
	return "surface: kind unavailable: " + e.Name
}

func init() {
	Register("image", 100, func(opts Options) (Surface, error) {
		var o []Option
		if opts.Temporary {
			o = append(o, WithTemporary())
		}
		return NewImage(opts.Width, opts.Height, o...), nil
	}, nil)
	Register("texture", 50, func(opts Options) (Surface, error) {
		var o []Option
		if opts.Temporary {
			o = append(o, WithTemporary())
		}
		tex, err := NewTexture(opts.Width, opts.Height, opts.Format, o...)
		if err != nil {
			return nil, err
		}
		return tex, nil
	}, nil)
}
