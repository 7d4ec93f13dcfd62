// Package model loads textured 3D models. A model lives in a folder
// holding its geometry, model.obj or model.dae, and optional material
// pictures named after resource.MaterialFiles.
package model

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

// Geometry file names looked up inside a model folder, in order.
const (
	OBJFile     = "model.obj"
	ColladaFile = "model.dae"
)

// Vertex is a model vertex, its memory layout matches Layout.
type Vertex struct {
	Position glm.Vec3
	Normal   glm.Vec3
	UV       glm.Vec2
	Tangent  glm.Vec3
}

// Layout describes Vertex to the device.
var Layout = gpu.Layout{
	{Location: gpu.Position, Components: 3},
	{Location: gpu.NormalVector, Components: 3},
	{Location: gpu.UV, Components: 2},
	{Location: gpu.Tangent, Components: 3},
}

// ComputeTangents fills the tangent of every vertex with the tangent of
// the triangle it belongs to. Triangles whose texture coordinates are
// degenerate get a zero tangent.
func ComputeTangents(vertices []Vertex) {
	for i := 2; i < len(vertices); i += 3 {
		v0, v1, v2 := &vertices[i], &vertices[i-1], &vertices[i-2]

		dP1 := v1.Position.Sub(v0.Position)
		dP2 := v2.Position.Sub(v0.Position)
		dUV1 := v1.UV.Sub(v0.UV)
		dUV2 := v2.UV.Sub(v0.UV)

		var tangent glm.Vec3
		if det := dUV1.X()*dUV2.Y() - dUV1.Y()*dUV2.X(); det != 0 {
			r := 1 / det
			tangent = dP1.Mul(dUV2.Y()).Sub(dP2.Mul(dUV1.Y())).Mul(r)
		}
		v0.Tangent, v1.Tangent, v2.Tangent = tangent, tangent, tangent
	}
}

// Pack returns the vertices as the raw bytes uploaded to the device.
func Pack(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	size := len(vertices) * int(unsafe.Sizeof(Vertex{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), size)
}

// ReadGeometry loads the triangles of the model in folder, preferring
// model.obj over model.dae, and computes their tangents.
func ReadGeometry(src resource.Source, folder string) ([]Vertex, error) {
	var (
		vertices []Vertex
		err      error
	)

	switch obj, dae := path.Join(folder, OBJFile), path.Join(folder, ColladaFile); {
	case src.Exists(obj):
		r, openErr := src.Open(obj)
		if openErr != nil {
			return nil, openErr
		}
		vertices, err = ParseOBJ(r)
		r.Close()
	case src.Exists(dae):
		data, readErr := resource.ReadAll(src, dae)
		if readErr != nil {
			return nil, readErr
		}
		vertices, err = ImportCollada(data)
	default:
		return nil, fmt.Errorf("%w: no %s or %s in %q", resource.ErrNotFound, OBJFile, ColladaFile, folder)
	}
	if err != nil {
		return nil, err
	}
	if len(vertices) == 0 {
		return nil, fmt.Errorf("%w: %q has no triangles", resource.ErrMalformed, folder)
	}

	ComputeTangents(vertices)
	return vertices, nil
}

// Mesh is a textured model, the body of a resource.Loader.
type Mesh struct {
	Folder string

	vertices []Vertex
	count    int
	textures resource.Textures
	buffer   gpu.Buffer
}

// Load implements interface
func (m *Mesh) Load(ctx context.Context, src resource.Source) error {
	vertices, err := ReadGeometry(src, m.Folder)
	if err != nil {
		return err
	}
	m.vertices = vertices
	m.count = len(vertices)
	return m.textures.Load(src, m.Folder, resource.MaterialFiles, true)
}

// Upload implements interface
func (m *Mesh) Upload(dev gpu.Device) error {
	buffer, err := dev.CreateBuffer(Layout, Pack(m.vertices), len(m.vertices))
	if err != nil {
		return err
	}
	m.buffer = buffer
	m.vertices = nil
	return m.textures.Upload(dev)
}

// Draw implements interface
func (m *Mesh) Draw(dev gpu.Device) {
	dev.Draw(gpu.Triangles, m.buffer, m.textures.Bound()...)
}

// Release implements interface
func (m *Mesh) Release() {
	if m.buffer != nil {
		m.buffer.Release()
		m.buffer = nil
	}
	m.textures.Release()
	m.vertices = nil
}

// Vertices returns the loaded vertices, they are dropped once uploaded.
func (m *Mesh) Vertices() []Vertex {
	return m.vertices
}

// Len returns the number of vertices of the model.
func (m *Mesh) Len() int {
	return m.count
}

// Textures returns the number of material textures found for the model.
func (m *Mesh) Textures() int {
	return m.textures.Len()
}

// NewLoader creates the loader of the model stored in folder.
func NewLoader(folder string, src resource.Source, dev gpu.Device, log logrus.FieldLogger) *resource.Loader[*Mesh] {
	return resource.NewLoader("model:"+folder, &Mesh{Folder: folder}, src, dev, log)
}
