// Package text loads distance-field fonts: a BMFont text description
// and the atlas picture it points at.
package text

import (
	"context"
	"fmt"
	"path"

	"github.com/devblok/torero/gpu"
	"github.com/devblok/torero/resource"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

// Font is a distance-field font, the body of a resource.Loader.
type Font struct {
	// Description is the BMFont text file.
	Description string

	// Atlas is the distance-field picture. When empty, the page named
	// by the description is looked up next to it.
	Atlas string

	metrics    Metrics
	characters map[rune]Character
	atlas      *gpu.Image
	texture    gpu.Texture
}

// Load implements interface
func (f *Font) Load(ctx context.Context, src resource.Source) error {
	r, err := src.Open(f.Description)
	if err != nil {
		return err
	}
	metrics, characters, err := ParseBMFont(r)
	r.Close()
	if err != nil {
		return err
	}

	atlas := f.Atlas
	if atlas == "" {
		if metrics.Page == "" {
			return fmt.Errorf("%w: %s names no atlas page", resource.ErrMalformed, f.Description)
		}
		atlas = path.Join(path.Dir(f.Description), metrics.Page)
	}

	img, err := resource.DecodeImage(src, atlas, false)
	if err != nil {
		return err
	}

	f.metrics = metrics
	f.characters = characters
	f.atlas = img
	return nil
}

// Upload implements interface
func (f *Font) Upload(dev gpu.Device) error {
	texture, err := dev.CreateTexture(gpu.Distance, f.atlas)
	if err != nil {
		return err
	}
	f.texture = texture
	f.atlas = nil
	return nil
}

// Draw implements interface. A font has nothing to draw on its own,
// text is drawn with its Texture bound.
func (f *Font) Draw(dev gpu.Device) {}

// Release implements interface
func (f *Font) Release() {
	if f.texture != nil {
		f.texture.Release()
		f.texture = nil
	}
	f.atlas = nil
}

// Metrics returns the font-wide values of the description.
func (f *Font) Metrics() Metrics {
	return f.metrics
}

// Characters returns the glyphs keyed by code point.
func (f *Font) Characters() map[rune]Character {
	return f.characters
}

// Character returns the glyph of r.
func (f *Font) Character(r rune) (Character, bool) {
	c, ok := f.characters[r]
	if !ok || !c.Valid() {
		return Character{}, false
	}
	return c, true
}

// Measure returns the advance of s in font size units. The string is
// composed to NFC first, so a letter followed by a combining mark
// measures as the precomposed glyph. Runes missing from the font are
// skipped.
func (f *Font) Measure(s string) float32 {
	var width float32
	for _, r := range norm.NFC.String(s) {
		if c, ok := f.Character(r); ok {
			width += c.Advance
		}
	}
	return width
}

// Texture returns the uploaded atlas.
func (f *Font) Texture() gpu.Texture {
	return f.texture
}

// NewLoader creates the loader of a font described by description.
func NewLoader(description, atlas string, src resource.Source, dev gpu.Device, log logrus.FieldLogger) *resource.Loader[*Font] {
	return resource.NewLoader("font:"+description, &Font{Description: description, Atlas: atlas}, src, dev, log)
}
