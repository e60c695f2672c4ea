package imageio

import (
	"image"

	"github.com/disintegration/gift"
)

// Downscale shrinks img so neither side exceeds maxDim, keeping the aspect ratio.
// Images already within bounds, and a non-positive maxDim, return img unchanged.
func Downscale(img *image.NRGBA, maxDim int) *image.NRGBA {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img
	}

	g := gift.New(gift.ResizeToFit(maxDim, maxDim, gift.LanczosResampling))

	dst := image.NewNRGBA(g.Bounds(b))
	g.Draw(dst, img)

	return dst
}
