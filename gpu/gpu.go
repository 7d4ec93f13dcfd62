// Package gpu defines the rendering features a device must provide to
// resource loaders. Every method of a Device must be called from the
// goroutine that owns the rendering context.
package gpu

import "errors"

// package errors
var (
	ErrEmptyBuffer  = errors.New("buffer has no vertices")
	ErrEmptyTexture = errors.New("texture has no pixels")
)

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Buffer is a vertex buffer living in device memory.
type Buffer interface {
	Releasable

	// Len returns the number of vertices in the buffer.
	Len() int

	// Layout returns the vertex layout the buffer was created with.
	Layout() Layout
}

// Texture is an image living in device memory.
type Texture interface {
	Releasable

	// Slot returns the sampler slot the texture binds to.
	Slot() TextureSlot

	// Size returns width and height in pixels.
	Size() (int, int)
}

// Device is the GPU collaborator. It is not safe for concurrent use.
type Device interface {

	// CreateBuffer uploads count vertices of the given layout.
	CreateBuffer(layout Layout, data []byte, count int) (Buffer, error)

	// CreateTexture uploads an RGBA image into the given slot.
	CreateTexture(slot TextureSlot, img *Image) (Texture, error)

	// Draw issues a draw call for the buffer with textures bound.
	Draw(p Primitive, b Buffer, textures ...Texture)
}

// Primitive is the way vertices of a buffer are assembled.
type Primitive int

// Primitives supported by devices
const (
	Triangles Primitive = iota
	Lines
	Points
)

// TextureSlot identifies the sampler a texture binds to.
type TextureSlot int

// Texture slots shared by all shaders
const (
	Albedo TextureSlot = iota
	Normal
	PBREmission
	Distance

	// Cubemap holds six square faces stacked top to bottom in the
	// order +X, -X, +Y, -Y, +Z, -Z.
	Cubemap
)

func (s TextureSlot) String() string {
	switch s {
	case Albedo:
		return "albedo"
	case Normal:
		return "normal"
	case PBREmission:
		return "pbr_emission"
	case Distance:
		return "distance"
	case Cubemap:
		return "cubemap"
	}
	return "unknown"
}

// Location is a shader attribute location.
type Location uint32

// Attribute locations shared by all shaders
const (
	Position Location = iota
	NormalVector
	UV
	Tangent
	Intensity
	Color
)

// Attribute describes one float32 vector inside a vertex.
type Attribute struct {
	Location   Location
	Components int
}

// Layout describes how vertices are laid out in a buffer.
type Layout []Attribute

// Stride returns the size of one vertex in bytes.
func (l Layout) Stride() int {
	var size int
	for _, a := range l {
		size += a.Components * 4
	}
	return size
}

// Offset returns the byte offset of the attribute at loc,
// or -1 if the layout does not carry it.
func (l Layout) Offset(loc Location) int {
	var offset int
	for _, a := range l {
		if a.Location == loc {
			return offset
		}
		offset += a.Components * 4
	}
	return -1
}
