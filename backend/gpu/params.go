//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
)

// paramsSize is the size of the WGSL Params struct shared by all kernels.
const paramsSize = 64

// params mirrors the WGSL Params struct.
type params struct {
	Rect        image.Rectangle
	Source      image.Rectangle
	Color       [4]float32
	Amount      float32
	Mode        uint32
	Width       uint32
	SourceWidth uint32
}

// toBytes serializes params in little-endian format.
// Layout: rect i32x4, source i32x4, color f32x4, amount f32, mode u32,
// width u32, source_width u32.
func (p params) toBytes() []byte {
	buf := make([]byte, paramsSize)
	le := binary.LittleEndian
	putRect(buf[0:16], p.Rect)
	putRect(buf[16:32], p.Source)
	for i, c := range p.Color {
		le.PutUint32(buf[32+4*i:], math.Float32bits(c))
	}
	le.PutUint32(buf[48:52], math.Float32bits(p.Amount))
	le.PutUint32(buf[52:56], p.Mode)
	le.PutUint32(buf[56:60], p.Width)
	le.PutUint32(buf[60:64], p.SourceWidth)
	return buf
}

func putRect(buf []byte, r image.Rectangle) {
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], uint32(int32(r.Min.X)))
	le.PutUint32(buf[4:8], uint32(int32(r.Min.Y)))
	le.PutUint32(buf[8:12], uint32(int32(r.Max.X)))
	le.PutUint32(buf[12:16], uint32(int32(r.Max.Y)))
}

// unitColor converts a premultiplied color to [0, 1] components.
func unitColor(c color.RGBA) [4]float32 {
	return [4]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
	}
}
