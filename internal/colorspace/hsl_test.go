package colorspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestRGBToHSL_KnownColors(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		wantH   float64 // degrees
		wantS   float64
		wantL   float64
	}{
		{"pure red", 255, 0, 0, 0, 1, 0.5},
		{"pure green", 0, 255, 0, 120, 1, 0.5},
		{"pure blue", 0, 0, 255, 240, 1, 0.5},
		{"yellow", 255, 255, 0, 60, 1, 0.5},
		{"cyan", 0, 255, 255, 180, 1, 0.5},
		{"magenta", 255, 0, 255, 300, 1, 0.5},
		{"orange", 200, 120, 40, 30, 2.0 / 3, 120.0 / 255},
		{"red with blue tint", 252, 0, 42, 350, 1, 126.0 / 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, l := RGBToHSL(tt.r, tt.g, tt.b)
			assert.InDelta(t, tt.wantH, h*360, 1e-9, "hue")
			assert.InDelta(t, tt.wantS, s, 1e-9, "saturation")
			assert.InDelta(t, tt.wantL, l, 1e-9, "lightness")
			assert.GreaterOrEqual(t, h, 0.0)
			assert.Less(t, h, 1.0)
		})
	}
}

func TestRGBToHSL_Achromatic(t *testing.T) {
	for v := 0; v <= 255; v++ {
		h, s, l := RGBToHSL(uint8(v), uint8(v), uint8(v))
		require.Zero(t, h, "gray %d hue", v)
		require.Zero(t, s, "gray %d saturation", v)
		require.InDelta(t, float64(v)/255, l, 1e-12)

		r, g, b := HSLToRGB(h, s, l)
		require.Equal(t, [3]uint8{uint8(v), uint8(v), uint8(v)}, [3]uint8{r, g, b}, "gray %d round trip", v)
	}
}

func TestHSLToRGB_Primaries(t *testing.T) {
	tests := []struct {
		name string
		h    float64
		want [3]uint8
	}{
		{"red", 0, [3]uint8{255, 0, 0}},
		{"green", 1.0 / 3, [3]uint8{0, 255, 0}},
		{"blue", 2.0 / 3, [3]uint8{0, 0, 255}},
		{"cyan", 0.5, [3]uint8{0, 255, 255}},
		{"full turn wraps to red", 1, [3]uint8{255, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := HSLToRGB(tt.h, 1, 0.5)
			assert.Equal(t, tt.want, [3]uint8{r, g, b})
		})
	}
}

func TestHSLToRGB_Extremes(t *testing.T) {
	r, g, b := HSLToRGB(0.25, 1, 0)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b}, "zero lightness is black")

	r, g, b = HSLToRGB(0.25, 1, 1)
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b}, "full lightness is white")
}

func TestRoundTrip(t *testing.T) {
	step := 3
	if testing.Short() {
		step = 15
	}

	check := func(r, g, b uint8) {
		h, s, l := RGBToHSL(r, g, b)
		r2, g2, b2 := HSLToRGB(h, s, l)
		if absDiff(r, r2) > 1 || absDiff(g, g2) > 1 || absDiff(b, b2) > 1 {
			t.Fatalf("round trip (%d,%d,%d) -> (%d,%d,%d)", r, g, b, r2, g2, b2)
		}
	}

	for r := 0; r <= 255; r += step {
		for g := 0; g <= 255; g += step {
			for b := 0; b <= 255; b += step {
				check(uint8(r), uint8(g), uint8(b))
			}
		}
	}

	// Edges of the cube are not always hit by the stride.
	for v := 0; v <= 255; v++ {
		check(uint8(v), 255, 0)
		check(255, uint8(v), 0)
		check(0, 255, uint8(v))
		check(uint8(v), 0, 255)
		check(255, 0, uint8(v))
	}
}

func TestHueDegrees(t *testing.T) {
	assert.InDelta(t, 5.0, HueDegrees(252, 21, 0), 1e-9)
	assert.InDelta(t, 10.0, HueDegrees(252, 42, 0), 1e-9)
	assert.Zero(t, HueDegrees(128, 128, 128))
}

func BenchmarkRoundTrip(b *testing.B) {
	for i := 0; i < b.N; i++ {
		c := uint8(i)
		h, s, l := RGBToHSL(c, 255-c, c/2)
		_, _, _ = HSLToRGB(h, s, l)
	}
}
