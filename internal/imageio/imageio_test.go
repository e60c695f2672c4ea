package imageio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.png")

	src := solid(8, 5, color.NRGBA{R: 10, G: 200, B: 30, A: 210})
	src.SetNRGBA(3, 2, color.NRGBA{R: 255, A: 0})

	require.NoError(t, Save(path, src, png.BestSpeed))
	require.FileExists(t, path)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), got.Bounds())
	assert.Equal(t, src.NRGBAAt(0, 0), got.NRGBAAt(0, 0))
	assert.Equal(t, uint8(0), got.NRGBAAt(3, 2).A)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, solid(3, 2, color.NRGBA{B: 255, A: 255}), png.DefaultCompression))

	img, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(2, 1))

	_, err = Decode(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestToNRGBA(t *testing.T) {
	t.Run("premultiplied input is converted", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(0, 0, 2, 2))
		src.SetRGBA(1, 1, color.RGBA{R: 128, A: 128})

		got := ToNRGBA(src)
		assert.Equal(t, color.NRGBA{R: 255, A: 128}, got.NRGBAAt(1, 1))
	})

	t.Run("packed nrgba is reused", func(t *testing.T) {
		src := solid(2, 2, color.NRGBA{G: 1, A: 255})
		assert.Same(t, src, ToNRGBA(src))
	})

	t.Run("sub-image is repacked", func(t *testing.T) {
		src := solid(4, 4, color.NRGBA{G: 1, A: 255})
		sub := src.SubImage(image.Rect(1, 1, 3, 3))

		got := ToNRGBA(sub)
		assert.NotSame(t, src, got)
		assert.Equal(t, image.Rect(0, 0, 2, 2), got.Bounds())
		assert.Equal(t, 8, got.Stride)
	})
}

func TestFromPix(t *testing.T) {
	pix := make([]byte, 3*2*4)
	img, err := FromPix(pix, 3)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())

	img.SetNRGBA(2, 1, color.NRGBA{R: 9, A: 255})
	assert.Equal(t, byte(9), pix[len(pix)-4], "image shares the buffer")

	_, err = FromPix(make([]byte, 10), 3)
	assert.Error(t, err)
	_, err = FromPix(pix, 0)
	assert.Error(t, err)
}

func TestDownscale(t *testing.T) {
	src := solid(200, 100, color.NRGBA{R: 255, A: 255})

	got := Downscale(src, 50)
	assert.Equal(t, 50, got.Bounds().Dx())
	assert.Equal(t, 25, got.Bounds().Dy())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, got.NRGBAAt(10, 10))

	assert.Same(t, src, Downscale(src, 0))
	assert.Same(t, src, Downscale(src, 200))
}

func TestParsePNGCompression(t *testing.T) {
	tests := []struct {
		input   string
		want    png.CompressionLevel
		wantErr bool
	}{
		{"", png.DefaultCompression, false},
		{"default", png.DefaultCompression, false},
		{"speed", png.BestSpeed, false},
		{"BEST", png.BestCompression, false},
		{"none", png.NoCompression, false},
		{"ultra", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePNGCompression(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNoiseImage(t *testing.T) {
	a := NoiseImage(64, 48, 16, 1337)
	b := NoiseImage(64, 48, 16, 1337)

	assert.Equal(t, image.Rect(0, 0, 64, 48), a.Bounds())
	assert.Equal(t, a.Pix, b.Pix, "same seed, same image")

	for i := 3; i < len(a.Pix); i += 4 {
		if a.Pix[i] != 255 && a.Pix[i] != 120 {
			t.Fatalf("unexpected alpha %d at byte %d", a.Pix[i], i)
		}
	}
}

func TestSave_JPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jpg")
	require.NoError(t, Save(path, solid(4, 4, color.NRGBA{R: 200, A: 255}), png.DefaultCompression))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestCheckDimensions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(4, 4, color.NRGBA{R: 255, A: 255})))

	cfg, err := CheckDimensions(bytes.NewReader(buf.Bytes()), 16)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Width)
	assert.Equal(t, 4, cfg.Height)

	_, err = CheckDimensions(bytes.NewReader(buf.Bytes()), 15)
	var tooMany *TooManyPixelsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 4, tooMany.Width)
	assert.Equal(t, int64(15), tooMany.MaxPixels)

	_, err = CheckDimensions(bytes.NewReader([]byte("not an image")), 16)
	assert.Error(t, err)
	assert.NotErrorAs(t, err, &tooMany)
}
