// Package device draws resources with the SDL2 renderer. It projects
// vertices on the CPU and rasterises them as lines and points, which
// is enough to inspect loaded scenes on any machine SDL supports.
package device

import (
	"unsafe"

	"github.com/devblok/torero/gpu"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

// RGBA channel masks of gpu.Image pixels
const (
	redMask   = 0x000000ff
	greenMask = 0x0000ff00
	blueMask  = 0x00ff0000
	alphaMask = 0xff000000
)

// SDL implements gpu.Device on top of an sdl.Renderer. Like the
// renderer it must only be used from the goroutine that created it.
type SDL struct {
	renderer *sdl.Renderer
	camera   Camera
	log      logrus.FieldLogger
}

// NewSDL creates a device drawing through renderer.
func NewSDL(renderer *sdl.Renderer, camera Camera, log logrus.FieldLogger) *SDL {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SDL{
		renderer: renderer,
		camera:   camera,
		log:      log.WithField("component", "device"),
	}
}

// Camera returns the camera used for projection.
func (d *SDL) Camera() *Camera {
	return &d.camera
}

// CreateBuffer implements interface
func (d *SDL) CreateBuffer(layout gpu.Layout, data []byte, count int) (gpu.Buffer, error) {
	vertices, err := decodeVertices(layout, data, count)
	if err != nil {
		return nil, err
	}
	return vertices, nil
}

// CreateTexture implements interface
func (d *SDL) CreateTexture(slot gpu.TextureSlot, img *gpu.Image) (gpu.Texture, error) {
	if img.Empty() {
		return nil, gpu.ErrEmptyTexture
	}

	surface, err := Surface(img)
	if err != nil {
		return nil, err
	}
	defer surface.Free()

	texture, err := d.renderer.CreateTextureFromSurface(surface)
	if err != nil {
		return nil, err
	}
	return &sdlTexture{
		texture: texture,
		slot:    slot,
		width:   img.Width,
		height:  img.Height,
	}, nil
}

// Surface wraps the pixels of img without copying them, img must
// outlive the surface.
func Surface(img *gpu.Image) (*sdl.Surface, error) {
	if img.Empty() {
		return nil, gpu.ErrEmptyTexture
	}
	return sdl.CreateRGBSurfaceFrom(unsafe.Pointer(&img.Pix[0]),
		int32(img.Width), int32(img.Height), 32, img.Pitch(),
		redMask, greenMask, blueMask, alphaMask)
}

// Draw implements interface
func (d *SDL) Draw(p gpu.Primitive, b gpu.Buffer, textures ...gpu.Texture) {
	v, ok := b.(*vertices)
	if !ok || v.Len() == 0 {
		return
	}

	w, h, err := d.renderer.GetOutputSize()
	if err != nil {
		d.log.WithError(err).Warn("output size unavailable")
		return
	}
	projected := d.camera.Project(v.positions, int(w), int(h))

	switch p {
	case gpu.Points:
		for i, pt := range projected {
			if !pt.visible {
				continue
			}
			level := uint8(255)
			if v.intensity != nil {
				level = intensityLevel(v.intensity[i])
			}
			d.renderer.SetDrawColor(level, level, 255, 255)
			d.renderer.DrawPoint(pt.x, pt.y)
		}
	case gpu.Lines:
		d.renderer.SetDrawColor(255, 255, 0, 255)
		for i := 0; i+1 < len(projected); i += 2 {
			d.line(projected[i], projected[i+1])
		}
	case gpu.Triangles:
		d.renderer.SetDrawColor(200, 200, 200, 255)
		for i := 0; i+2 < len(projected); i += 3 {
			d.line(projected[i], projected[i+1])
			d.line(projected[i+1], projected[i+2])
			d.line(projected[i+2], projected[i])
		}
	}
}

func (d *SDL) line(a, b screenPoint) {
	if a.visible && b.visible {
		d.renderer.DrawLine(a.x, a.y, b.x, b.y)
	}
}

// Clear starts a new frame.
func (d *SDL) Clear() {
	d.renderer.SetDrawColor(16, 16, 24, 255)
	d.renderer.Clear()
}

// Present shows the frame.
func (d *SDL) Present() {
	d.renderer.Present()
}

func intensityLevel(i float32) uint8 {
	switch {
	case i <= 0:
		return 0
	case i >= 1:
		return 255
	}
	return uint8(i * 255)
}

type sdlTexture struct {
	texture       *sdl.Texture
	slot          gpu.TextureSlot
	width, height int
}

func (t *sdlTexture) Slot() gpu.TextureSlot { return t.slot }
func (t *sdlTexture) Size() (int, int)      { return t.width, t.height }

func (t *sdlTexture) Release() {
	if t.texture != nil {
		t.texture.Destroy()
		t.texture = nil
	}
}
