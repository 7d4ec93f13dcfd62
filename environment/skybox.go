// Package environment loads what surrounds a scene: the skybox drawn
// behind every model.
package environment

import (
	"context"
	"fmt"
	"path"
	"unsafe"

	"github.com/devblok/torero/gpu"
	"github.com/devblok/torero/resource"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
)

// Faces are the file names of the six cubemap faces without extension,
// in the order they are stacked: +X, -X, +Y, -Y, +Z, -Z.
var Faces = [6]string{"right", "left", "top", "bottom", "front", "back"}

// Extensions are tried in order for every face.
var Extensions = []string{".png", ".jpg"}

// CubeLayout is the vertex layout of the skybox cube.
var CubeLayout = gpu.Layout{{Location: gpu.Position, Components: 3}}

// DefaultExtent is the half size of the skybox cube.
const DefaultExtent = 200

// Skybox is a cubemap drawn on a cube around the scene, the body of a
// resource.Loader.
type Skybox struct {
	Folder string

	// Extent is the half size of the cube, DefaultExtent when zero.
	Extent float32

	hidden  bool
	faces   *gpu.Image
	cube    gpu.Buffer
	cubemap gpu.Texture
}

// Load implements interface
func (s *Skybox) Load(ctx context.Context, src resource.Source) error {
	var faces [6]*gpu.Image
	for i, face := range Faces {
		name, err := facePath(src, s.Folder, face)
		if err != nil {
			return err
		}
		img, err := resource.DecodeImage(src, name, false)
		if err != nil {
			return err
		}
		if img.Width != img.Height {
			return fmt.Errorf("%w: %s is %dx%d, cubemap faces are square", resource.ErrMalformed, name, img.Width, img.Height)
		}
		if i > 0 && img.Width != faces[0].Width {
			return fmt.Errorf("%w: %s is %d wide, %s is %d", resource.ErrMalformed, name, img.Width, Faces[0], faces[0].Width)
		}
		faces[i] = img
	}
	s.faces = Stack(faces[:])
	return nil
}

func facePath(src resource.Source, folder, face string) (string, error) {
	for _, ext := range Extensions {
		if name := path.Join(folder, face+ext); src.Exists(name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: skybox face %s in %s", resource.ErrNotFound, face, folder)
}

// Stack joins same sized images top to bottom.
func Stack(images []*gpu.Image) *gpu.Image {
	if len(images) == 0 {
		return nil
	}
	out := &gpu.Image{Width: images[0].Width}
	for _, img := range images {
		out.Height += img.Height
		out.Pix = append(out.Pix, img.Pix...)
	}
	return out
}

// Upload implements interface
func (s *Skybox) Upload(dev gpu.Device) error {
	vertices := Cube(s.extent())
	cube, err := dev.CreateBuffer(CubeLayout, packVec3(vertices), len(vertices))
	if err != nil {
		return err
	}
	s.cube = cube

	cubemap, err := dev.CreateTexture(gpu.Cubemap, s.faces)
	if err != nil {
		return err
	}
	s.cubemap = cubemap
	s.faces = nil
	return nil
}

// Draw implements interface
func (s *Skybox) Draw(dev gpu.Device) {
	if s.hidden {
		return
	}
	dev.Draw(gpu.Triangles, s.cube, s.cubemap)
}

// Release implements interface
func (s *Skybox) Release() {
	if s.cubemap != nil {
		s.cubemap.Release()
		s.cubemap = nil
	}
	if s.cube != nil {
		s.cube.Release()
		s.cube = nil
	}
	s.faces = nil
}

// SetVisible shows or hides the skybox.
func (s *Skybox) SetVisible(visible bool) {
	s.hidden = !visible
}

// Visible reports whether the skybox is drawn.
func (s *Skybox) Visible() bool {
	return !s.hidden
}

func (s *Skybox) extent() float32 {
	if s.Extent <= 0 {
		return DefaultExtent
	}
	return s.Extent
}

// Cube returns the 36 corners of the triangles of a cube centered at
// the origin. Faces come in the order back, front, left, right,
// bottom, top.
func Cube(extent float32) []glm.Vec3 {
	corner := func(x, y, z float32) glm.Vec3 {
		return glm.Vec3{x * extent, y * extent, z * extent}
	}
	quads := [6][4]glm.Vec3{
		{corner(-1, -1, -1), corner(1, -1, -1), corner(1, 1, -1), corner(-1, 1, -1)},
		{corner(-1, -1, 1), corner(-1, 1, 1), corner(1, 1, 1), corner(1, -1, 1)},
		{corner(-1, -1, -1), corner(-1, 1, -1), corner(-1, 1, 1), corner(-1, -1, 1)},
		{corner(1, -1, -1), corner(1, -1, 1), corner(1, 1, 1), corner(1, 1, -1)},
		{corner(-1, -1, -1), corner(-1, -1, 1), corner(1, -1, 1), corner(1, -1, -1)},
		{corner(-1, 1, -1), corner(1, 1, -1), corner(1, 1, 1), corner(-1, 1, 1)},
	}

	vertices := make([]glm.Vec3, 0, 36)
	for _, q := range quads {
		vertices = append(vertices, q[0], q[1], q[2], q[2], q[3], q[0])
	}
	return vertices
}

func packVec3(vertices []glm.Vec3) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*int(unsafe.Sizeof(glm.Vec3{})))
}

// NewLoader creates the loader of the skybox whose faces are in folder.
func NewLoader(folder string, src resource.Source, dev gpu.Device, log logrus.FieldLogger) *resource.Loader[*Skybox] {
	return resource.NewLoader("skybox:"+folder, &Skybox{Folder: folder}, src, dev, log)
}
