package scene

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/gogpu/rendering/surface"
	"github.com/gogpu/rendering/task"
)

// Frame is a scene ready to render.
type Frame struct {
	// Surfaces holds the created surfaces by name.
	Surfaces map[string]surface.Surface

	// Tasks is the task list of the scene.
	Tasks task.List

	// Output is the surface the scene renders to. It is nil when the
	// scene has only temporary surfaces.
	Output surface.Surface
}

// Release releases every surface of the frame.
func (f *Frame) Release() {
	for _, s := range f.Surfaces {
		s.Release()
	}
}

var interpolations = map[string]task.Interpolation{
	"":        task.InterpolationNearest,
	"nearest": task.InterpolationNearest,
	"linear":  task.InterpolationLinear,
	"cubic":   task.InterpolationCubic,
}

// Build creates the surfaces of s and its task list.
func (s *Scene) Build() (*Frame, error) {
	f := &Frame{Surfaces: make(map[string]surface.Surface, len(s.Surfaces))}

	var firstOutput surface.Surface
	for _, def := range s.Surfaces {
		if _, ok := f.Surfaces[def.Name]; ok {
			f.Release()
			return nil, fmt.Errorf("scene: duplicate surface %q", def.Name)
		}
		surf, err := newSurface(def)
		if err != nil {
			f.Release()
			return nil, err
		}
		f.Surfaces[def.Name] = surf
		if firstOutput == nil && !def.Temporary {
			firstOutput = surf
		}
	}

	f.Output = firstOutput
	if s.Output != "" {
		out, ok := f.Surfaces[s.Output]
		if !ok {
			f.Release()
			return nil, fmt.Errorf("scene: output: unknown surface %q", s.Output)
		}
		f.Output = out
	}

	b := builder{surfaces: f.Surfaces}
	for i := range s.Tasks {
		t, err := b.task(&s.Tasks[i], nil)
		if err != nil {
			f.Release()
			return nil, fmt.Errorf("scene: task %d: %w", i, err)
		}
		f.Tasks = append(f.Tasks, t)
	}
	return f, nil
}

func newSurface(def SurfaceDef) (surface.Surface, error) {
	if def.Width <= 0 || def.Height <= 0 {
		return nil, fmt.Errorf("scene: surface %q: invalid size %dx%d", def.Name, def.Width, def.Height)
	}
	opts := surface.Options{
		Width:     def.Width,
		Height:    def.Height,
		Temporary: def.Temporary,
	}
	var (
		surf surface.Surface
		err  error
	)
	if def.Kind == "" {
		surf, err = surface.NewSurfaceWithOptions(opts)
	} else {
		surf, err = surface.NewSurfaceByNameWithOptions(def.Kind, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("scene: surface %q: %w", def.Name, err)
	}
	return surf, nil
}

type builder struct {
	surfaces map[string]surface.Surface
}

// task builds def. Parent is the base of the enclosing task, or nil at
// root level.
func (b *builder) task(def *TaskDef, parent *task.Base) (task.Task, error) {
	base, err := b.base(def, parent)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(def.Type) {
	case "fill":
		c, err := parseColor(def.Color)
		if err != nil {
			return nil, err
		}
		return &task.Fill{Base: base, Color: c}, nil

	case "blend":
		method := task.BlendComposite
		if def.Method != "" {
			m, ok := task.ParseBlendMethod(def.Method)
			if !ok {
				return nil, fmt.Errorf("unknown blend method %q", def.Method)
			}
			method = m
		}
		amount := 1.0
		if def.Amount != nil {
			amount = *def.Amount
		}
		dest, err := b.optional(def.Dest, &base)
		if err != nil {
			return nil, fmt.Errorf("dest: %w", err)
		}
		src, err := b.optional(def.Source, &base)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		base.SubTasks = task.List{dest, src}
		return &task.Blend{Base: base, Method: method, Amount: amount}, nil

	case "resample":
		if def.Source == nil {
			return nil, fmt.Errorf("resample without source")
		}
		interp, ok := interpolations[strings.ToLower(def.Interpolation)]
		if !ok {
			return nil, fmt.Errorf("unknown interpolation %q", def.Interpolation)
		}
		dst := base.TargetRect
		if def.Dst != nil {
			if dst, err = parseRect(def.Dst); err != nil {
				return nil, fmt.Errorf("dst: %w", err)
			}
		}
		src, err := b.task(def.Source, &base)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		base.SubTasks = task.List{src}
		return &task.Resample{Base: base, Dst: dst, Interpolation: interp}, nil

	case "read":
		return &task.Probe{Base: base}, nil

	case "sequence":
		for i := range def.Tasks {
			sub, err := b.task(&def.Tasks[i], &base)
			if err != nil {
				return nil, fmt.Errorf("sequence %d: %w", i, err)
			}
			base.SubTasks = append(base.SubTasks, sub)
		}
		return &task.Sequence{Base: base}, nil

	default:
		return nil, fmt.Errorf("unknown task type %q", def.Type)
	}
}

func (b *builder) optional(def *TaskDef, parent *task.Base) (task.Task, error) {
	if def == nil {
		return nil, nil
	}
	return b.task(def, parent)
}

// base resolves the target and rect of def.
func (b *builder) base(def *TaskDef, parent *task.Base) (task.Base, error) {
	var base task.Base
	switch {
	case def.Target != "":
		s, ok := b.surfaces[def.Target]
		if !ok {
			return base, fmt.Errorf("unknown surface %q", def.Target)
		}
		base.Target = s
	case parent != nil:
		base.Target = parent.Target
	}

	switch {
	case def.Rect != nil:
		r, err := parseRect(def.Rect)
		if err != nil {
			return base, fmt.Errorf("rect: %w", err)
		}
		base.TargetRect = r
	case base.Target != nil:
		base.TargetRect = base.Target.Bounds()
	}
	return base, nil
}

func parseRect(v []int) (image.Rectangle, error) {
	if len(v) != 4 {
		return image.Rectangle{}, fmt.Errorf("want [x0, y0, x1, y1], got %d values", len(v))
	}
	return image.Rect(v[0], v[1], v[2], v[3]), nil
}

// parseColor parses "#rrggbb" or "#rrggbbaa" and returns the color
// premultiplied by its alpha.
func parseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}

	a := uint32(v & 0xff)
	pre := func(c uint32) uint8 { return uint8((c*a + 127) / 255) }
	return color.RGBA{
		R: pre(uint32(v>>24) & 0xff),
		G: pre(uint32(v>>16) & 0xff),
		B: pre(uint32(v>>8) & 0xff),
		A: uint8(a),
	}, nil
}
