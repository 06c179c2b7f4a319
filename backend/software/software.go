// Package software implements the CPU rendering backend.
//
// The backend specializes the abstract tasks of package task into tasks
// that draw into the RGBA pixels of raster surfaces. Blending uses the
// premultiplied operators of internal/blend; copying and resampling use
// golang.org/x/image/draw.
//
// Importing the package registers the backend under backend.NameSoftware.
package software

import (
	"github.com/gogpu/rendering/backend"
	"github.com/gogpu/rendering/optimizer"
)

// init registers the software backend on package import.
func init() {
	backend.Register(backend.NameSoftware, func() backend.Backend {
		return New()
	})
}

// Backend is the CPU backend.
type Backend struct {
	initialized bool
}

// New creates a software backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backend.NameSoftware
}

// Init initializes the backend. The software backend has no resources to
// acquire, so Init never fails.
func (b *Backend) Init() error {
	b.initialized = true
	backend.Logger().Debug("software: backend initialized")
	return nil
}

// Close releases the backend.
func (b *Backend) Close() {
	b.initialized = false
}

// Optimizers returns the common passes plus software specialization.
func (b *Backend) Optimizers() []optimizer.Optimizer {
	return append(optimizer.Common(), &Specialize{})
}
