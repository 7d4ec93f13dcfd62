package resource

import (
	"context"

	"github.com/devblok/torero/gpu"
	"github.com/sirupsen/logrus"
)

// Picture decodes an image in the background and hands it to Done on
// the foreground goroutine. It creates nothing on the device, so the
// receiver decides what the pixels become: a window icon, a cursor or
// a texture made later.
type Picture struct {
	Name string
	Flip bool
	Done func(*gpu.Image)

	image *gpu.Image
}

// Load implements interface
func (p *Picture) Load(ctx context.Context, src Source) error {
	img, err := DecodeImage(src, p.Name, p.Flip)
	if err != nil {
		return err
	}
	p.image = img
	return nil
}

// Upload implements interface. The image is handed over and no
// longer held by the picture.
func (p *Picture) Upload(dev gpu.Device) error {
	img := p.image
	p.image = nil
	if p.Done != nil {
		p.Done(img)
	}
	return nil
}

// Draw implements interface
func (p *Picture) Draw(dev gpu.Device) {}

// Release implements interface
func (p *Picture) Release() {
	p.image = nil
}

// LoadImage creates the loader of a picture whose pixels are passed to
// done once the loader is finalized. A picture that fails to load is
// logged and done is never called.
func LoadImage(name string, flip bool, src Source, dev gpu.Device, log logrus.FieldLogger, done func(*gpu.Image)) *Loader[*Picture] {
	return NewLoader("image:"+name, &Picture{Name: name, Flip: flip, Done: done}, src, dev, log)
}
