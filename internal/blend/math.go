package blend

// div255 divides x by 255 with rounding, without using division.
//
// Formula: ((x + 128) + ((x + 128) >> 8)) >> 8 (Alvy Ray Smith).
// Exact for every product of two bytes.
func div255(x uint16) uint16 {
	t := x + 128
	return (t + (t >> 8)) >> 8
}

// mulDiv255 multiplies two bytes and divides by 255.
func mulDiv255(a, b byte) byte {
	return byte(div255(uint16(a) * uint16(b)))
}

// inv255 computes 255 - x (inverse alpha).
func inv255(x byte) byte {
	return 255 - x
}

// clamp255 clamps a uint16 to byte range [0, 255].
func clamp255(x uint16) byte {
	if x > 255 {
		return 255
	}
	return byte(x)
}

// addClamp adds two bytes and clamps to 255.
func addClamp(a, b byte) byte {
	return clamp255(uint16(a) + uint16(b))
}

// mix interpolates from d toward r by amount/255.
func mix(d, r, amount byte) byte {
	return byte(int(d) + (int(r)-int(d))*int(amount)/255)
}

// Amount converts a [0, 1] opacity into a byte amount.
func Amount(f float64) byte {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 255
	default:
		return byte(f*255 + 0.5)
	}
}
