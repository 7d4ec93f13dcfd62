package gpu

import (
	"image"

	"golang.org/x/image/draw"
)

// Image is a decoded picture ready for upload, tightly packed RGBA.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// Empty reports whether the image has no pixels.
func (i *Image) Empty() bool {
	return i == nil || i.Width == 0 || i.Height == 0 || len(i.Pix) == 0
}

// Pitch returns the length of one row in bytes.
func (i *Image) Pitch() int {
	return i.Width * 4
}

// Pixels transforms a given image into the right arrangement of pixels
// by drawing the decoded image onto a controlled RGBA canvas. When flip
// is set the rows are reversed, putting the origin at the bottom left
// as texture coordinates expect it.
func Pixels(img image.Image, flip bool) *Image {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)

	if flip {
		pitch := canvas.Stride
		row := make([]uint8, pitch)
		for top, bottom := 0, canvas.Bounds().Dy()-1; top < bottom; top, bottom = top+1, bottom-1 {
			t := canvas.Pix[top*pitch : (top+1)*pitch]
			b := canvas.Pix[bottom*pitch : (bottom+1)*pitch]
			copy(row, t)
			copy(t, b)
			copy(b, row)
		}
	}

	return &Image{
		Width:  canvas.Bounds().Dx(),
		Height: canvas.Bounds().Dy(),
		Pix:    canvas.Pix,
	}
}
