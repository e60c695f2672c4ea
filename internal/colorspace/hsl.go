// Package colorspace converts single pixels between RGB and HSL.
package colorspace

import "math"

// max3 returns the maximum of three float64 values.
func max3(a, b, c float64) float64 {
	if a < b {
		a = b
	}
	if a < c {
		a = c
	}
	return a
}

// min3 returns the minimum of three float64 values.
func min3(a, b, c float64) float64 {
	if a > b {
		a = b
	}
	if a > c {
		a = c
	}
	return a
}

// clampU8 rounds x to the nearest integer and clamps it to [0, 255].
func clampU8(x float64) uint8 {
	v := math.Round(x)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// RGBToHSL converts RGB (0–255) to HSL.
// Hue is returned in [0, 1) as a fraction of a full turn, S and L in [0, 1].
// Achromatic input (r == g == b) yields h = 0 and s = 0.
func RGBToHSL(r, g, b uint8) (h, s, l float64) {
	rf := float64(r) / 255
	gf := float64(g) / 255
	bf := float64(b) / 255

	maxv := max3(rf, gf, bf)
	minv := min3(rf, gf, bf)

	l = (maxv + minv) / 2

	if maxv == minv {
		return 0, 0, l
	}

	d := maxv - minv
	if l > 0.5 {
		s = d / (2 - maxv - minv)
	} else {
		s = d / (maxv + minv)
	}

	switch maxv {
	case rf:
		// sector 0 or 5
		h = (gf - bf) / d
		if gf < bf {
			h += 6
		}
	case gf:
		h = (bf-rf)/d + 2
	case bf:
		h = (rf-gf)/d + 4
	}

	h /= 6
	return h, s, l
}

// HueDegrees returns the hue of an RGB color in degrees [0, 360).
func HueDegrees(r, g, b uint8) float64 {
	h, _, _ := RGBToHSL(r, g, b)
	return h * 360
}

// HSLToRGB converts HSL back to 8-bit RGB.
// h is a fraction of a turn (values slightly outside [0, 1) wrap once), s and l are in [0, 1].
func HSLToRGB(h, s, l float64) (r, g, b uint8) {
	// Achromatic (gray)
	if s == 0 {
		v := clampU8(l * 255)
		return v, v, v
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	r = clampU8(hueToChannel(p, q, h+1.0/3) * 255)
	g = clampU8(hueToChannel(p, q, h) * 255)
	b = clampU8(hueToChannel(p, q, h-1.0/3) * 255)
	return r, g, b
}

// hueToChannel maps a hue offset t onto the piecewise-linear channel ramp between p and q.
func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}

	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}
