package gpu_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/devblok/torero/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPicture() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 2, color.NRGBA{B: 255, A: 255})
	return img
}

func TestPixels(t *testing.T) {
	out := gpu.Pixels(testPicture(), false)
	require.Equal(t, 2, out.Width)
	require.Equal(t, 3, out.Height)
	require.Len(t, out.Pix, 2*3*4)

	assert.Equal(t, []uint8{255, 0, 0, 255}, out.Pix[0:4])
	last := (2*out.Pitch() + 4)
	assert.Equal(t, []uint8{0, 0, 255, 255}, out.Pix[last:last+4])
}

func TestPixelsFlip(t *testing.T) {
	out := gpu.Pixels(testPicture(), true)
	// red moved to the last row, blue to the first
	assert.Equal(t, []uint8{0, 0, 255, 255}, out.Pix[4:8])
	first := 2 * out.Pitch()
	assert.Equal(t, []uint8{255, 0, 0, 255}, out.Pix[first:first+4])
}

func TestPixelsOffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 14, 12))
	out := gpu.Pixels(img, false)
	assert.Equal(t, 4, out.Width)
	assert.Equal(t, 2, out.Height)
	assert.False(t, out.Empty())
}

func TestLayout(t *testing.T) {
	layout := gpu.Layout{
		{Location: gpu.Position, Components: 3},
		{Location: gpu.NormalVector, Components: 3},
		{Location: gpu.UV, Components: 2},
	}
	assert.Equal(t, 32, layout.Stride())
	assert.Equal(t, 0, layout.Offset(gpu.Position))
	assert.Equal(t, 24, layout.Offset(gpu.UV))
	assert.Equal(t, -1, layout.Offset(gpu.Tangent))
}

func BenchmarkPixelsNoFlip(b *testing.B) {
	img := image.NewRGBA(image.Rect(0, 0, 512, 512))
	for idx := 0; idx < b.N; idx++ {
		gpu.Pixels(img, false)
	}
}

func BenchmarkPixelsFlip(b *testing.B) {
	img := image.NewRGBA(image.Rect(0, 0, 512, 512))
	for idx := 0; idx < b.N; idx++ {
		gpu.Pixels(img, true)
	}
}
