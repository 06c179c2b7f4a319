// Package safe implements the verification backend.
//
// It runs the software tasks with nothing but the specialization pass, so
// the task list executes almost exactly as it was built. Comparing its
// output with another renderer's is the way to check optimizer passes.
package safe

import (
	"github.com/gogpu/rendering/backend"
	"github.com/gogpu/rendering/backend/software"
	"github.com/gogpu/rendering/optimizer"
)

func init() {
	backend.Register(backend.NameSafe, func() backend.Backend {
		return &Backend{}
	})
}

// Backend is the verification backend.
type Backend struct{}

// Name returns backend.NameSafe.
func (*Backend) Name() string { return backend.NameSafe }

// Init does nothing.
func (*Backend) Init() error { return nil }

// Close does nothing.
func (*Backend) Close() {}

// Optimizers returns only the software specialization pass.
func (*Backend) Optimizers() []optimizer.Optimizer {
	return []optimizer.Optimizer{&software.Specialize{}}
}
