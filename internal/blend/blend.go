// Package blend implements the compositing operators used by the blend and
// fill tasks.
//
// All operations work with premultiplied alpha values in the range 0-255,
// the layout of image.RGBA.
//
// References:
//   - Porter-Duff: "Compositing Digital Images" (1984)
//   - W3C Compositing and Blending Level 1: https://www.w3.org/TR/compositing-1/
package blend

// Mode selects a compositing operator.
type Mode uint8

const (
	ModeComposite Mode = iota // S + D*(1-Sa)
	ModeStraight              // S
	ModeOnto                  // S*Da + D*(1-Sa), alpha of D
	ModeBehind                // S*(1-Da) + D
	ModeAdd                   // S + D, clamped
	ModeMultiply              // S*D + S*(1-Da) + D*(1-Sa)
	ModeAlphaOver             // D*(1-Sa)
)

var modeNames = [...]string{
	ModeComposite: "composite",
	ModeStraight:  "straight",
	ModeOnto:      "onto",
	ModeBehind:    "behind",
	ModeAdd:       "add",
	ModeMultiply:  "multiply",
	ModeAlphaOver: "alpha-over",
}

// String returns the operator name.
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// Func is the signature for blend operations.
// All values are premultiplied alpha, 0-255.
type Func func(sr, sg, sb, sa, dr, dg, db, da byte) (r, g, b, a byte)

// GetFunc returns the blend function for the given mode.
// Returns the composite operator for unknown modes.
func GetFunc(mode Mode) Func {
	switch mode {
	case ModeStraight:
		return blendStraight
	case ModeOnto:
		return blendOnto
	case ModeBehind:
		return blendBehind
	case ModeAdd:
		return blendAdd
	case ModeMultiply:
		return blendMultiply
	case ModeAlphaOver:
		return blendAlphaOver
	default:
		return blendComposite
	}
}

// Row blends src over dst pixel by pixel, then mixes the result with the
// original dst by amount (255 keeps the blended value).
// Both slices hold RGBA quadruples; the shorter one bounds the work.
func Row(dst, src []byte, fn Func, amount byte) {
	n := min(len(dst), len(src)) &^ 3
	for i := 0; i < n; i += 4 {
		d := dst[i : i+4 : i+4]
		s := src[i : i+4 : i+4]
		r, g, b, a := fn(s[0], s[1], s[2], s[3], d[0], d[1], d[2], d[3])
		if amount != 255 {
			r, g, b, a = mix(d[0], r, amount), mix(d[1], g, amount), mix(d[2], b, amount), mix(d[3], a, amount)
		}
		d[0], d[1], d[2], d[3] = r, g, b, a
	}
}

// Fill blends a single premultiplied color over every pixel of dst.
func Fill(dst []byte, c [4]byte, fn Func, amount byte) {
	n := len(dst) &^ 3
	for i := 0; i < n; i += 4 {
		d := dst[i : i+4 : i+4]
		r, g, b, a := fn(c[0], c[1], c[2], c[3], d[0], d[1], d[2], d[3])
		if amount != 255 {
			r, g, b, a = mix(d[0], r, amount), mix(d[1], g, amount), mix(d[2], b, amount), mix(d[3], a, amount)
		}
		d[0], d[1], d[2], d[3] = r, g, b, a
	}
}

func blendComposite(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	inv := inv255(sa)
	return addClamp(sr, mulDiv255(dr, inv)),
		addClamp(sg, mulDiv255(dg, inv)),
		addClamp(sb, mulDiv255(db, inv)),
		addClamp(sa, mulDiv255(da, inv))
}

func blendStraight(sr, sg, sb, sa, _, _, _, _ byte) (byte, byte, byte, byte) {
	return sr, sg, sb, sa
}

func blendOnto(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	inv := inv255(sa)
	return addClamp(mulDiv255(sr, da), mulDiv255(dr, inv)),
		addClamp(mulDiv255(sg, da), mulDiv255(dg, inv)),
		addClamp(mulDiv255(sb, da), mulDiv255(db, inv)),
		da
}

func blendBehind(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	inv := inv255(da)
	return addClamp(mulDiv255(sr, inv), dr),
		addClamp(mulDiv255(sg, inv), dg),
		addClamp(mulDiv255(sb, inv), db),
		addClamp(mulDiv255(sa, inv), da)
}

func blendAdd(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return addClamp(sr, dr), addClamp(sg, dg), addClamp(sb, db), addClamp(sa, da)
}

func blendMultiply(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	invSa, invDa := inv255(sa), inv255(da)
	ch := func(s, d byte) byte {
		return clamp255(uint16(mulDiv255(s, d)) + uint16(mulDiv255(s, invDa)) + uint16(mulDiv255(d, invSa)))
	}
	return ch(sr, dr), ch(sg, dg), ch(sb, db), addClamp(sa, mulDiv255(da, invSa))
}

func blendAlphaOver(_, _, _, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	inv := inv255(sa)
	return mulDiv255(dr, inv), mulDiv255(dg, inv), mulDiv255(db, inv), mulDiv255(da, inv)
}
