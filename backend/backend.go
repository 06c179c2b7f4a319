package backend

import (
	"fmt"

	"github.com/gogpu/rendering/optimizer"
)

// Backend name constants.
const (
	// NameSoftware is the CPU backend built on golang.org/x/image/draw.
	NameSoftware = "software"
	// NameGPU is the GPU backend running on a wgpu HAL device.
	NameGPU = "gpu"
	// NameSafe is the verification backend: software tasks with only the
	// passes needed to run them.
	NameSafe = "safe"
)

// NotFoundError is returned by New for an unknown backend name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("backend: %q not registered", e.Name)
}

// Backend is the interface implemented by rendering backends.
type Backend interface {
	// Name returns the backend identifier (e.g., "software", "gpu").
	Name() string

	// Init acquires the backend's resources. A backend whose Init fails
	// is not used.
	Init() error

	// Close releases all backend resources.
	// The backend must not be used after Close is called.
	Close()

	// Optimizers returns the passes of a renderer built on this backend,
	// usually optimizer.Common() plus a specialization pass. It is called
	// only after a successful Init.
	Optimizers() []optimizer.Optimizer
}
