// Package imageio moves images between files, streams and the RGBA pixel buffers
// the recolor package works on.
//
// Every decoded image is converted to *image.NRGBA: non-premultiplied, 8 bits per
// channel, which is the buffer layout a browser canvas hands out.
package imageio

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Load opens and decodes an image file (PNG, JPEG, GIF, BMP, TIFF, WebP).
// JPEG EXIF orientation is applied.
func Load(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return ToNRGBA(img), nil
}

// Decode decodes an image from r.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return ToNRGBA(img), nil
}

// DefaultMaxPixels caps decoded images at 40 megapixels.
const DefaultMaxPixels = 40_000_000

// TooManyPixelsError reports an image whose header declares more pixels than allowed.
type TooManyPixelsError struct {
	Width, Height int
	MaxPixels     int64
}

func (e *TooManyPixelsError) Error() string {
	return fmt.Sprintf("image is %dx%d, more than %d pixels", e.Width, e.Height, e.MaxPixels)
}

// CheckDimensions reads only the image header from r and fails with
// *TooManyPixelsError when width*height exceeds maxPixels.
// The pixel data is never decoded, so the check is cheap for any declared size.
func CheckDimensions(r io.Reader, maxPixels int64) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return image.Config{}, fmt.Errorf("failed to read image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return cfg, &TooManyPixelsError{Width: cfg.Width, Height: cfg.Height, MaxPixels: maxPixels}
	}
	return cfg, nil
}

// ToNRGBA returns img as a tightly packed *image.NRGBA with its origin at (0, 0).
// An image that already has that form is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		b := n.Bounds()
		if b.Min == (image.Point{}) && n.Stride == b.Dx()*4 {
			return n
		}
	}
	return imaging.Clone(img)
}

// FromPix wraps a raw RGBA pixel buffer of the given width as an image without copying.
func FromPix(pix []byte, width int) (*image.NRGBA, error) {
	if width <= 0 {
		return nil, fmt.Errorf("width must be positive, got %d", width)
	}
	rowBytes := width * 4
	if len(pix)%rowBytes != 0 {
		return nil, fmt.Errorf("buffer length %d is not a whole number of %d-pixel rows", len(pix), width)
	}
	return &image.NRGBA{
		Pix:    pix,
		Stride: rowBytes,
		Rect:   image.Rect(0, 0, width, len(pix)/rowBytes),
	}, nil
}
