package backend

import (
	"fmt"
	"slices"
	"sync"
)

// Factory creates a new backend instance.
type Factory func() Backend

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	// GPU > Software > Safe (Safe exists for verification only).
	backendPriority = []string{NameGPU, NameSoftware, NameSafe}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// It panics if the name is empty, the factory is nil or the name is
// already registered.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if name == "" || factory == nil {
		panic("backend: Register called with empty name or nil factory")
	}
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("backend: Register called twice for %q", name))
	}
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names, known backends first in
// priority order, then any others sorted by name.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for _, name := range backendPriority {
		if _, ok := backends[name]; ok {
			names = append(names, name)
		}
	}
	var rest []string
	for name := range backends {
		if !slices.Contains(backendPriority, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns a backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) Backend {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil
	}
	return factory()
}

// New returns a backend instance by name, or a *NotFoundError.
func New(name string) (Backend, error) {
	b := Get(name)
	if b == nil {
		return nil, &NotFoundError{Name: name}
	}
	return b, nil
}
