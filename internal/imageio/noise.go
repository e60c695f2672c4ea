package imageio

import (
	"image"
	"image/color"
	"math"

	"github.com/MeKo-Tech/hueswap/internal/colorspace"
	"github.com/aquilax/go-perlin"
)

// NoiseImage generates a deterministic test image whose hue follows Perlin noise.
// Roughly a fifth of the pixels get an alpha below the recolor threshold, so a
// sample exercises the transparency gate as well as every hue band.
//
// scale controls the frequency of the noise (smaller = more detail).
func NoiseImage(width, height int, scale float64, seed int64) *image.NRGBA {
	if scale <= 0 {
		scale = 64
	}

	// alpha: persistence, beta: lacunarity, n: octaves
	hues := perlin.NewPerlin(2.0, 2.0, 3, seed)
	alphas := perlin.NewPerlin(2.0, 2.0, 2, seed+1)

	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			nx := float64(x) / scale
			ny := float64(y) / scale

			// Noise is roughly in [-1, 1]; stretch it so the full hue circle is covered.
			h := math.Mod((hues.Noise2D(nx, ny)+1)*0.75, 1)
			if h < 0 {
				h++
			}
			r, g, b := colorspace.HSLToRGB(h, 0.85, 0.5)

			a := uint8(255)
			if alphas.Noise2D(nx*2, ny*2) < -0.25 {
				a = 120
			}

			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: a})
		}
	}

	return img
}
