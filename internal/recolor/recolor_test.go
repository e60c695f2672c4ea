package recolor

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/hueswap/internal/colorspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pixels builds a buffer from RGBA quadruples.
func pixels(px ...[4]uint8) []byte {
	buf := make([]byte, 0, len(px)*BytesPerPixel)
	for _, p := range px {
		buf = append(buf, p[0], p[1], p[2], p[3])
	}
	return buf
}

func pixelAt(buf []byte, i int) [4]uint8 {
	o := i * BytesPerPixel
	return [4]uint8{buf[o], buf[o+1], buf[o+2], buf[o+3]}
}

func TestRecolor_AlphaGate(t *testing.T) {
	buf := pixels(
		[4]uint8{255, 0, 0, 150}, // translucent red
		[4]uint8{255, 0, 0, 220}, // mostly opaque red
		[4]uint8{255, 0, 0, 199}, // just below the threshold
		[4]uint8{255, 0, 0, 200}, // exactly the threshold
	)

	out, err := Recolor(buf, Rule{From: 0, To: 120})
	require.NoError(t, err)

	assert.Equal(t, [4]uint8{255, 0, 0, 150}, pixelAt(out, 0), "alpha 150 must stay untouched")
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, pixelAt(out, 1), "alpha 220 is recolored and made opaque")
	assert.Equal(t, [4]uint8{255, 0, 0, 199}, pixelAt(out, 2))
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, pixelAt(out, 3))
}

func TestRecolor_BandBoundary(t *testing.T) {
	rule := Rule{From: 0, To: 180, Range: 10}

	tests := []struct {
		name    string
		px      [4]uint8
		hue     float64
		matches bool
	}{
		{"hue 5 inside", [4]uint8{252, 21, 0, 255}, 5, true},
		{"hue 10 on the edge", [4]uint8{252, 42, 0, 255}, 10, false},
		{"hue 350 does not wrap", [4]uint8{252, 0, 42, 255}, 350, false},
		{"hue 0", [4]uint8{252, 0, 0, 255}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.hue, colorspace.HueDegrees(tt.px[0], tt.px[1], tt.px[2]), 1e-9)

			buf := pixels(tt.px)
			_, err := Recolor(buf, rule)
			require.NoError(t, err)

			if tt.matches {
				assert.Equal(t, [4]uint8{0, 252, 252, 255}, pixelAt(buf, 0))
			} else {
				assert.Equal(t, tt.px, pixelAt(buf, 0))
			}
		})
	}
}

func TestRecolor_WrapMode(t *testing.T) {
	buf := pixels(
		[4]uint8{252, 0, 42, 255}, // 350°
		[4]uint8{252, 0, 21, 255}, // 355°
		[4]uint8{0, 0, 255, 255},  // 240°
	)

	_, err := Recolor(buf, Rule{From: 0, To: 180, Range: 15, Wrap: true})
	require.NoError(t, err)

	assert.Equal(t, [4]uint8{0, 252, 252, 255}, pixelAt(buf, 0))
	assert.Equal(t, [4]uint8{0, 252, 252, 255}, pixelAt(buf, 1))
	assert.Equal(t, [4]uint8{0, 0, 255, 255}, pixelAt(buf, 2))
}

func TestRecolor_RuleSequencing(t *testing.T) {
	buf := pixels([4]uint8{255, 0, 0, 255})

	_, err := Recolor(buf, Rule{From: 0, To: 120}, Rule{From: 120, To: 240})
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{0, 0, 255, 255}, pixelAt(buf, 0), "second rule sees the first rule's green")

	// The first rule alone stops at green.
	buf = pixels([4]uint8{255, 0, 0, 255})
	_, err = Recolor(buf, Rule{From: 0, To: 120})
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, pixelAt(buf, 0))
}

func TestRecolor_NoMatchPassthrough(t *testing.T) {
	buf := pixels(
		[4]uint8{0, 0, 255, 255},
		[4]uint8{128, 128, 128, 255}, // gray: hue 0 but unchanged by an identity-preserving repaint
	)
	orig := append([]byte(nil), buf...)

	_, err := Recolor(buf, Rule{From: 0, To: 180, Range: 10})
	require.NoError(t, err)

	assert.Equal(t, orig[:4], buf[:4], "blue is outside the red band")
	// Gray has hue 0 and matches, but with zero saturation the new hue changes nothing.
	assert.Equal(t, orig[4:], buf[4:])
}

func TestRecolor_IdentityRule(t *testing.T) {
	samples := [][4]uint8{
		{200, 120, 40, 255},
		{12, 200, 99, 230},
		{90, 30, 250, 255},
		{255, 254, 1, 201},
	}

	for _, px := range samples {
		hue := colorspace.HueDegrees(px[0], px[1], px[2])
		buf := pixels(px)

		_, err := Recolor(buf, Rule{From: hue, To: hue, Range: 5})
		require.NoError(t, err)

		got := pixelAt(buf, 0)
		for c := 0; c < 3; c++ {
			assert.InDelta(t, px[c], got[c], 1, "channel %d of %v", c, px)
		}
		assert.Equal(t, uint8(255), got[3])
	}
}

func TestRecolor_PreservesSaturationAndLightness(t *testing.T) {
	buf := pixels([4]uint8{200, 120, 40, 255})
	_, s0, l0 := colorspace.RGBToHSL(200, 120, 40)

	_, err := Recolor(buf, Rule{From: 30, To: 210})
	require.NoError(t, err)

	h, s, l := colorspace.RGBToHSL(buf[0], buf[1], buf[2])
	assert.InDelta(t, 210, h*360, 1)
	assert.InDelta(t, s0, s, 0.01)
	assert.InDelta(t, l0, l, 0.01)
}

func TestRecolor_DefaultRange(t *testing.T) {
	// 19° is inside the default 20° band, 21° is not.
	in := pixels(
		[4]uint8{255, 81, 0, 255},
		[4]uint8{255, 89, 0, 255},
	)
	require.Less(t, colorspace.HueDegrees(255, 81, 0), 20.0)
	require.Greater(t, colorspace.HueDegrees(255, 89, 0), 20.0)

	_, err := Recolor(in, Rule{From: 0, To: 120})
	require.NoError(t, err)

	assert.Equal(t, [4]uint8{0, 255, 0, 255}, pixelAt(in, 0))
	assert.Equal(t, [4]uint8{255, 89, 0, 255}, pixelAt(in, 1))
}

func TestRecolor_EmptyInputs(t *testing.T) {
	out, err := Recolor(nil, Rule{From: 0, To: 120})
	require.NoError(t, err)
	assert.Empty(t, out)

	buf := pixels([4]uint8{255, 0, 0, 255})
	out, err = Recolor(buf)
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, pixelAt(out, 0))
}

func TestRecolor_InvalidBuffer(t *testing.T) {
	buf := []byte{255, 0, 0, 255, 1, 2}

	_, err := Recolor(buf, Rule{From: 0, To: 120})
	require.Error(t, err)

	var bufErr *InvalidBufferError
	require.True(t, errors.As(err, &bufErr))
	assert.Equal(t, 6, bufErr.Len)
	assert.Equal(t, []byte{255, 0, 0, 255, 1, 2}, buf, "nothing is written on error")
}

func TestRecolor_InvalidRuleLeavesBufferUntouched(t *testing.T) {
	buf := pixels([4]uint8{255, 0, 0, 255})

	_, err := Recolor(buf, Rule{From: 0, To: 120}, Rule{From: 0, To: 240, Range: -5})
	require.Error(t, err)

	var ruleErr *InvalidRuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, 1, ruleErr.Index)
	assert.Contains(t, ruleErr.Error(), "negative")
	assert.Equal(t, [4]uint8{255, 0, 0, 255}, pixelAt(buf, 0), "first rule must not have been applied")
}

func TestRecolor_NormalizesOutOfRangeDegrees(t *testing.T) {
	buf := pixels([4]uint8{255, 0, 0, 255})

	// 360 folds to 0 and 480 folds to 120.
	_, err := Recolor(buf, Rule{From: 360, To: 480})
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, pixelAt(buf, 0))

	buf = pixels([4]uint8{0, 255, 0, 255})
	_, err = Recolor(buf, Rule{From: -240, To: -120})
	require.NoError(t, err)
	assert.Equal(t, [4]uint8{0, 0, 255, 255}, pixelAt(buf, 0))
}

func TestRecolorImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	img.SetNRGBA(1, 1, color.NRGBA{B: 255, A: 255})

	require.NoError(t, RecolorImage(img, Rule{From: 0, To: 120}))

	assert.Equal(t, color.NRGBA{G: 255, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, img.NRGBAAt(3, 2))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(1, 1))
}

func TestRecolorImage_SubImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}

	sub := img.SubImage(image.Rect(1, 1, 3, 3)).(*image.NRGBA)
	require.NoError(t, RecolorImage(sub, Rule{From: 0, To: 240}))

	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(2, 2))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.NRGBAAt(0, 0), "outside the sub-image")
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.NRGBAAt(3, 1), "row padding of the sub-image")
}

func TestRecolorImage_InvalidRule(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	err := RecolorImage(img, Rule{Range: -1})

	var ruleErr *InvalidRuleError
	assert.True(t, errors.As(err, &ruleErr))
}
