package imageio

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ParsePNGCompression maps a compression name (default, speed, best, none) to a png level.
func ParsePNGCompression(name string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return png.DefaultCompression, nil
	case "speed", "fast":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	case "none":
		return png.NoCompression, nil
	default:
		return 0, fmt.Errorf("invalid png compression %q: must be default, speed, best or none", name)
	}
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image, level png.CompressionLevel) error {
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// Save writes img to path. The format follows the file extension; PNG output uses level.
// Parent directories are created as needed.
func Save(path string, img image.Image, level png.CompressionLevel) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := imaging.Save(img, path, imaging.PNGCompressionLevel(level), imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}
