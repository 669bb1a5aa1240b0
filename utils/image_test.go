package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func TestEncodePng(t *testing.T) {
	data, err := EncodePng(testImage(64, 48))
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Bounds().Dx())
	assert.Equal(t, 48, decoded.Bounds().Dy())
}

func TestConvertPngToJpeg(t *testing.T) {
	pngData, err := EncodePng(testImage(64, 48))
	require.NoError(t, err)

	jpegData, err := ConvertPngToJpeg(pngData, 80)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(jpegData))
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Bounds().Dx())
	assert.Equal(t, 48, decoded.Bounds().Dy())
}

func TestConvertPngToJpeg_InvalidInput(t *testing.T) {
	_, err := ConvertPngToJpeg([]byte("not a png"), 80)
	assert.Error(t, err)
}
