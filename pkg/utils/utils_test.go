package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeToJPG_ResizesPNG(t *testing.T) {
	out, err := NormalizeToJPG(pngBytes(t, 200, 100), 50, 80)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())
}

func TestNormalizeToJPG_KeepsSmallImages(t *testing.T) {
	out, err := NormalizeToJPG(pngBytes(t, 40, 30), 512, 0)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestNormalizeToJPG_Rejects(t *testing.T) {
	_, err := NormalizeToJPG(nil, 0, 80)
	assert.Error(t, err)

	_, err = NormalizeToJPG([]byte("definitely not an image"), 0, 80)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestApplyOrientation(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	marker := color.RGBA{R: 255, A: 255}
	src.Set(0, 0, marker)

	tests := []struct {
		ori          int
		w, h         int
		markX, markY int
	}{
		{ori: 1, w: 3, h: 2, markX: 0, markY: 0},
		{ori: 2, w: 3, h: 2, markX: 2, markY: 0},
		{ori: 3, w: 3, h: 2, markX: 2, markY: 1},
		{ori: 4, w: 3, h: 2, markX: 0, markY: 1},
		{ori: 5, w: 2, h: 3, markX: 0, markY: 0},
		{ori: 6, w: 2, h: 3, markX: 1, markY: 0},
		{ori: 7, w: 2, h: 3, markX: 1, markY: 2},
		{ori: 8, w: 2, h: 3, markX: 0, markY: 2},
	}
	for _, tt := range tests {
		out := applyOrientation(src, tt.ori)
		assert.Equal(t, tt.w, out.Bounds().Dx(), "ori %d", tt.ori)
		assert.Equal(t, tt.h, out.Bounds().Dy(), "ori %d", tt.ori)
		r, _, _, _ := out.At(tt.markX, tt.markY).RGBA()
		assert.Equal(t, uint32(0xffff), r, "ori %d", tt.ori)
	}
}

func TestReadAllLimit(t *testing.T) {
	b, err := ReadAllLimit(strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	_, err = ReadAllLimit(strings.NewReader("hello!"), 5)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}
