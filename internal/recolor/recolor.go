// Package recolor replaces hue bands in RGBA pixel buffers.
//
// A pixel buffer is a flat, row-major sequence of non-premultiplied RGBA bytes, the
// layout of image.NRGBA.Pix and of a browser canvas ImageData. Rules are applied in
// order and each rule scans the whole buffer, so a later rule sees the pixels earlier
// rules repainted.
//
// Pixels with alpha below AlphaThreshold are never touched. A matched pixel keeps its
// saturation and lightness, takes the rule's target hue and becomes fully opaque.
package recolor

import (
	"image"

	"github.com/MeKo-Tech/hueswap/internal/colorspace"
)

// BytesPerPixel is the number of bytes of one RGBA pixel.
const BytesPerPixel = 4

// Recolor applies rules to buf in order and returns buf.
// buf is modified in place. Nothing is written when the buffer or any rule is invalid.
func Recolor(buf []byte, rules ...Rule) ([]byte, error) {
	if err := checkBuffer(buf); err != nil {
		return nil, err
	}

	prepared, err := prepareRules(rules)
	if err != nil {
		return nil, err
	}

	for _, r := range prepared {
		applyRule(buf, r)
	}

	return buf, nil
}

// RecolorImage applies rules to the pixels of img in place.
// Row padding beyond the image width (Stride > 4*width) is left untouched.
func RecolorImage(img *image.NRGBA, rules ...Rule) error {
	prepared, err := prepareRules(rules)
	if err != nil {
		return err
	}

	b := img.Bounds()
	rowBytes := b.Dx() * BytesPerPixel

	for _, r := range prepared {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := img.PixOffset(b.Min.X, y)
			applyRule(img.Pix[off:off+rowBytes], r)
		}
	}

	return nil
}

func checkBuffer(buf []byte) error {
	if len(buf)%BytesPerPixel != 0 {
		return &InvalidBufferError{Len: len(buf)}
	}
	return nil
}

// applyRule runs one normalized rule over a pixel-aligned slice.
// It returns the number of repainted pixels and the number skipped by the alpha gate.
func applyRule(pix []byte, r Rule) (matched, skipped int) {
	for i := 0; i+BytesPerPixel <= len(pix); i += BytesPerPixel {
		p := pix[i : i+BytesPerPixel : i+BytesPerPixel]

		// Transparent and semi-transparent pixels keep their color.
		if p[3] < AlphaThreshold {
			skipped++
			continue
		}

		h, s, l := colorspace.RGBToHSL(p[0], p[1], p[2])
		if !r.Matches(h * 360) {
			continue
		}

		p[0], p[1], p[2] = colorspace.HSLToRGB(r.To/360, s, l)
		p[3] = 255
		matched++
	}
	return matched, skipped
}
