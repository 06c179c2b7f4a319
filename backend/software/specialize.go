package software

import (
	"github.com/gogpu/rendering/optimizer"
	"github.com/gogpu/rendering/task"
)

// Specialize replaces abstract tasks with their software implementations.
type Specialize struct{}

// Info implements optimizer.Optimizer.
func (*Specialize) Info() optimizer.Info {
	return optimizer.Info{
		Name:      "software-specialize",
		Category:  optimizer.CategoryIDSpecialize,
		DependsOn: optimizer.CategoryCoords | optimizer.CategoryConvert,
		ForTask:   true,
	}
}

// Run implements optimizer.Optimizer.
func (*Specialize) Run(p *optimizer.RunParams) {
	if t := Specialized(p.Ref); t != nil {
		p.Replace(t)
	}
}

// Specialized returns a software task equivalent to t, or nil when t is
// not an abstract task this backend implements.
func Specialized(t task.Task) task.Task {
	switch t := t.(type) {
	case *task.Fill:
		return &Fill{Fill: *t.Clone().(*task.Fill)}
	case *task.Blend:
		return &Blend{Blend: *t.Clone().(*task.Blend)}
	case *task.Resample:
		return &Resample{Resample: *t.Clone().(*task.Resample)}
	}
	return nil
}
