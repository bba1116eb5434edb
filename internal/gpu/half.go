package gpu

import "math"

// half is an IEEE 754-2008 binary16 value as stored in half-float textures.
type half uint16

// toHalf rounds f to the nearest binary16 value, ties to even. Overflow
// saturates to infinity and values below half the smallest subnormal flush
// to signed zero.
func toHalf(f float32) half {
	bits := math.Float32bits(f)
	sign := half((bits >> 16) & 0x8000)
	exp := int((bits >> 23) & 0xff)
	mant := bits & 0x7fffff

	switch {
	case exp == 0xff:
		if mant == 0 {
			return sign | 0x7c00
		}
		// Keep NaN a NaN after truncating the payload.
		return sign | 0x7c00 | half(max(mant>>13, 1))
	case exp == 0 && mant == 0:
		return sign
	}

	e := exp - 127 + 15
	if e >= 0x1f {
		return sign | 0x7c00
	}
	shift := uint(13)
	if e <= 0 {
		// Subnormal: the implicit bit moves into the mantissa.
		shift = uint(14 - e)
		if shift > 24 {
			return sign
		}
		mant |= 0x800000
		e = 0
	}
	out := uint32(e)<<10 | mant>>shift
	rem := mant & (1<<shift - 1)
	halfway := uint32(1) << (shift - 1)
	if rem > halfway || rem == halfway && out&1 == 1 {
		// A carry out of the mantissa bumps the exponent, up to infinity.
		out++
	}
	return sign | half(out)
}

// float32 expands h to single precision exactly.
func (h half) float32() float32 {
	sign := uint32(h>>15) << 31
	exp := int((h >> 10) & 0x1f)
	mant := uint32(h & 0x3ff)

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		exp = -14
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		mant &= 0x3ff
		return math.Float32frombits(sign | uint32(exp+127)<<23 | mant<<13)
	case 0x1f:
		bits := sign | 0x7f800000 | mant<<13
		if mant != 0 {
			bits |= 1
		}
		return math.Float32frombits(bits)
	}
	return math.Float32frombits(sign | uint32(exp-15+127)<<23 | mant<<13)
}
