//go:build !nogpu

package gpu

import (
	"github.com/gogpu/rendering/backend/software"
	"github.com/gogpu/rendering/optimizer"
)

// Specialize replaces abstract tasks that write into textures with GPU
// tasks, and all other abstract tasks with software tasks.
type Specialize struct {
	backend *Backend
}

// Info implements optimizer.Optimizer.
func (*Specialize) Info() optimizer.Info {
	return optimizer.Info{
		Name:      "gpu-specialize",
		Category:  optimizer.CategoryIDSpecialize,
		DependsOn: optimizer.CategoryCoords | optimizer.CategoryConvert,
		ForTask:   true,
	}
}

// Run implements optimizer.Optimizer.
func (o *Specialize) Run(p *optimizer.RunParams) {
	sw := software.Specialized(p.Ref)
	if sw == nil {
		return
	}
	if !onTexture(p.Ref) {
		p.Replace(sw)
		return
	}

	switch t := sw.(type) {
	case *software.Fill:
		p.Replace(&Fill{Fill: *t, backend: o.backend})
	case *software.Blend:
		p.Replace(&Blend{Blend: *t, backend: o.backend})
	case *software.Resample:
		p.Replace(&Resample{Resample: *t, backend: o.backend})
	default:
		p.Replace(sw)
	}
}
