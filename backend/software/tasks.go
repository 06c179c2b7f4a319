package software

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/rendering/internal/blend"
	"github.com/gogpu/rendering/surface"
	"github.com/gogpu/rendering/task"
)

// Fill is the software implementation of task.Fill.
type Fill struct {
	task.Fill
}

// Clone returns a copy of t.
func (t *Fill) Clone() task.Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Run paints the color over the target rectangle.
func (t *Fill) Run(p task.RunParams) bool {
	return task.RunSubTasks(t, p) && t.Apply()
}

// Apply paints the color without running the sub-tasks.
func (t *Fill) Apply() bool {
	dst, r, ok := targetPixels(&t.Base)
	if !ok {
		return false
	}

	c := [4]byte{t.Color.R, t.Color.G, t.Color.B, t.Color.A}
	fn := blend.GetFunc(blend.ModeComposite)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := dst.PixOffset(r.Min.X, y)
		blend.Fill(dst.Pix[i:i+4*r.Dx()], c, fn, 255)
	}
	touch(t.Target)
	return true
}

// Blend is the software implementation of task.Blend.
type Blend struct {
	task.Blend
}

// Clone returns a copy of t.
func (t *Blend) Clone() task.Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Run produces both inputs, copies the destination input into the target
// when it lives elsewhere, then blends the source over it.
func (t *Blend) Run(p task.RunParams) bool {
	return task.RunSubTasks(t, p) && t.Apply()
}

// Apply blends the already produced inputs.
func (t *Blend) Apply() bool {
	dst, r, ok := targetPixels(&t.Base)
	if !ok {
		return false
	}

	if d := t.Dest(); d != nil && d.TaskBase().Target != t.Target {
		if !copyInto(dst, r, d.TaskBase()) {
			return false
		}
	}

	if s := t.Source(); s != nil {
		sb := s.TaskBase()
		src, ok := surface.RasterOf(sb.Target)
		if !ok {
			return false
		}
		br := r.Intersect(sb.TargetRect).Intersect(src.Bounds())
		fn := blend.GetFunc(blendMode(t.Method))
		amount := blend.Amount(t.Amount)
		n := 4 * br.Dx()
		for y := br.Min.Y; y < br.Max.Y; y++ {
			di := dst.PixOffset(br.Min.X, y)
			si := src.PixOffset(br.Min.X, y)
			blend.Row(dst.Pix[di:di+n], src.Pix[si:si+n], fn, amount)
		}
	}
	touch(t.Target)
	return true
}

// Resample is the software implementation of task.Resample.
type Resample struct {
	task.Resample
}

// Clone returns a copy of t.
func (t *Resample) Clone() task.Task {
	c := *t
	c.Base = t.Base.Copy()
	return &c
}

// Run scales the source region into Dst, composited over the target.
func (t *Resample) Run(p task.RunParams) bool {
	return task.RunSubTasks(t, p) && t.Apply()
}

// Apply scales the already produced source.
func (t *Resample) Apply() bool {
	dst, r, ok := targetPixels(&t.Base)
	if !ok {
		return false
	}
	s := t.Source()
	if s == nil {
		return false
	}
	sb := s.TaskBase()
	src, ok := surface.RasterOf(sb.Target)
	if !ok {
		return false
	}

	sr := sb.TargetRect.Intersect(src.Bounds())
	if sr.Empty() || t.Dst.Empty() || r.Empty() {
		return true
	}
	clipped, ok := dst.SubImage(r).(*image.RGBA)
	if !ok {
		return false
	}
	interpolator(t.Interpolation).Scale(clipped, t.Dst, src, sr, xdraw.Over, nil)
	touch(t.Target)
	return true
}

// targetPixels returns the raster of b's target and the target rectangle
// clipped to it.
func targetPixels(b *task.Base) (*image.RGBA, image.Rectangle, bool) {
	img, ok := surface.RasterOf(b.Target)
	if !ok {
		return nil, image.Rectangle{}, false
	}
	return img, b.TargetRect.Intersect(img.Bounds()), true
}

// copyInto replaces the pixels of dst inside r with the output of src.
func copyInto(dst *image.RGBA, r image.Rectangle, src *task.Base) bool {
	img, ok := surface.RasterOf(src.Target)
	if !ok {
		return false
	}
	cr := r.Intersect(src.TargetRect).Intersect(img.Bounds())
	if !cr.Empty() {
		xdraw.Copy(dst, cr.Min, img, cr, xdraw.Src, nil)
	}
	return true
}

// touch records a CPU modification of a texture's staging image.
func touch(s surface.Surface) {
	if tex, ok := s.(*surface.Texture); ok {
		tex.Touch()
	}
}

var blendModes = [...]blend.Mode{
	task.BlendComposite: blend.ModeComposite,
	task.BlendStraight:  blend.ModeStraight,
	task.BlendOnto:      blend.ModeOnto,
	task.BlendBehind:    blend.ModeBehind,
	task.BlendAdd:       blend.ModeAdd,
	task.BlendMultiply:  blend.ModeMultiply,
	task.BlendAlphaOver: blend.ModeAlphaOver,
}

func blendMode(m task.BlendMethod) blend.Mode {
	if int(m) < len(blendModes) {
		return blendModes[m]
	}
	return blend.ModeComposite
}

func interpolator(i task.Interpolation) xdraw.Interpolator {
	switch i {
	case task.InterpolationLinear:
		return xdraw.BiLinear
	case task.InterpolationCubic:
		return xdraw.CatmullRom
	default:
		return xdraw.NearestNeighbor
	}
}
