package resource

import (
	"fmt"
	"image"
	_ "image/jpeg" // texture formats
	_ "image/png"

	"github.com/devblok/torero/gpu"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// DecodeImage reads the named picture into RGBA pixels. Textures are
// flipped so their first row is the bottom one.
func DecodeImage(src Source, name string, flip bool) (*gpu.Image, error) {
	r, err := src.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return gpu.Pixels(img, flip), nil
}

// OptionalImage decodes the named picture if the source has it,
// a missing picture yields nil without error.
func OptionalImage(src Source, name string, flip bool) (*gpu.Image, error) {
	if !src.Exists(name) {
		return nil, nil
	}
	return DecodeImage(src, name, flip)
}
