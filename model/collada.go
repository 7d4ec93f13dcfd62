package model

import (
	"encoding/xml"
	"fmt"

	"github.com/devblok/torero/resource"
	"github.com/devblok/torero/util/collada"
	glm "github.com/go-gl/mathgl/mgl32"
)

// ImportCollada converts the triangles and polygons of every geometry
// of a Collada (.dae) document into vertices.
func ImportCollada(fileContents []byte) ([]Vertex, error) {
	var colladaModel collada.Collada
	if err := xml.Unmarshal(fileContents, &colladaModel); err != nil {
		return nil, fmt.Errorf("%w: collada: %v", resource.ErrMalformed, err)
	}
	if len(colladaModel.Geometries) == 0 {
		return nil, fmt.Errorf("%w: collada: no geometry", resource.ErrMalformed)
	}

	var vertices []Vertex
	for _, geometry := range colladaModel.Geometries {
		mesh := geometry.Mesh
		for _, primitive := range mesh.Primitives() {
			v, err := importPrimitive(&mesh, primitive)
			if err != nil {
				return nil, fmt.Errorf("geometry %q: %w", geometry.ID, err)
			}
			vertices = append(vertices, v...)
		}
	}
	return vertices, nil
}

// channel is one input of a primitive resolved to its data.
type channel struct {
	offset int
	source collada.Source
}

func importPrimitive(mesh *collada.Mesh, primitive collada.Primitive) ([]Vertex, error) {
	var position, normal, uv *channel

	resolve := func(input collada.Input, ref string) (*channel, error) {
		source, ok := mesh.Source(ref)
		if !ok {
			return nil, fmt.Errorf("%w: collada: source %q not found", resource.ErrMalformed, ref)
		}
		return &channel{int(input.Offset), source}, nil
	}

	var err error
	for _, input := range primitive.Inputs {
		switch input.Semantic {
		case "VERTEX":
			// VERTEX points at <vertices>, which holds the POSITION
			// and possibly the NORMAL of the shared vertices.
			for _, vi := range mesh.Vertices.Inputs {
				switch vi.Semantic {
				case "POSITION":
					position, err = resolve(input, vi.Source)
				case "NORMAL":
					normal, err = resolve(input, vi.Source)
				}
				if err != nil {
					return nil, err
				}
			}
		case "NORMAL":
			normal, err = resolve(input, input.Source)
		case "TEXCOORD":
			if uv == nil || input.Set == 0 {
				uv, err = resolve(input, input.Source)
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if position == nil {
		return nil, fmt.Errorf("%w: collada: primitive without positions", resource.ErrMalformed)
	}
	index, err := primitive.Triangulate()
	if err != nil {
		return nil, fmt.Errorf("%w: collada: %v", resource.ErrMalformed, err)
	}

	stride := primitive.Stride()
	vertices := make([]Vertex, 0, len(index)/stride)
	for i := 0; i < len(index); i += stride {
		corner := index[i : i+stride]

		var vert Vertex
		p, err := element(position, corner, 3)
		if err != nil {
			return nil, err
		}
		vert.Position = glm.Vec3{p[0], p[1], p[2]}
		if normal != nil {
			n, err := element(normal, corner, 3)
			if err != nil {
				return nil, err
			}
			vert.Normal = glm.Vec3{n[0], n[1], n[2]}
		}
		if uv != nil {
			t, err := element(uv, corner, 2)
			if err != nil {
				return nil, err
			}
			vert.UV = glm.Vec2{t[0], t[1]}
		}
		vertices = append(vertices, vert)
	}
	return vertices, nil
}

func element(c *channel, corner []int, n int) ([]float32, error) {
	data, ok := c.source.Element(corner[c.offset], n)
	if !ok {
		return nil, fmt.Errorf("%w: collada: index %d outside %q", resource.ErrMalformed, corner[c.offset], c.source.ID)
	}
	return data, nil
}
