package model

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/devblok/torero/resource"
	glm "github.com/go-gl/mathgl/mgl32"
)

// objIndex is one corner of a face: positions, texture coordinates
// and normals, 0-based, -1 when absent.
type objIndex struct {
	v, vt, vn int
}

type objParser struct {
	line      int
	positions []glm.Vec3
	uvs       []glm.Vec2
	normals   []glm.Vec3
	vertices  []Vertex
}

// ParseOBJ reads Wavefront OBJ geometry and returns de-indexed triangle
// vertices. Polygons are fanned into triangles, a corner without a
// texture coordinate or a normal gets a zero one. Tangents are not filled,
// see ComputeTangents.
func ParseOBJ(r io.Reader) ([]Vertex, error) {
	var p objParser
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		p.line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		var err error
		switch fields[0] {
		case "v":
			var v glm.Vec3
			err = p.floats(fields[1:], v[:])
			p.positions = append(p.positions, v)
		case "vt":
			var uv glm.Vec2
			err = p.floats(fields[1:], uv[:])
			p.uvs = append(p.uvs, uv)
		case "vn":
			var n glm.Vec3
			err = p.floats(fields[1:], n[:])
			p.normals = append(p.normals, n)
		case "f":
			err = p.face(fields[1:])
		}
		if err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: obj: %v", resource.ErrMalformed, err)
	}
	return p.vertices, nil
}

func (p *objParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: obj line %d: %s", resource.ErrMalformed, p.line, fmt.Sprintf(format, args...))
}

func (p *objParser) floats(fields []string, out []float32) error {
	if len(fields) < len(out) {
		return p.errorf("expected %d numbers, got %d", len(out), len(fields))
	}
	for i := range out {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return p.errorf("%v", err)
		}
		out[i] = float32(f)
	}
	return nil
}

func (p *objParser) face(fields []string) error {
	if len(fields) < 3 {
		return p.errorf("face has %d corners", len(fields))
	}

	corners := make([]objIndex, len(fields))
	for i, field := range fields {
		c, err := p.corner(field)
		if err != nil {
			return err
		}
		corners[i] = c
	}

	for i := 1; i+1 < len(corners); i++ {
		p.vertices = append(p.vertices,
			p.vertex(corners[0]),
			p.vertex(corners[i]),
			p.vertex(corners[i+1]))
	}
	return nil
}

// corner parses v, v/vt, v//vn or v/vt/vn.
func (p *objParser) corner(field string) (objIndex, error) {
	parts := strings.Split(field, "/")
	c := objIndex{v: -1, vt: -1, vn: -1}

	var err error
	if c.v, err = p.index(parts[0], len(p.positions)); err != nil {
		return c, err
	}
	if c.v < 0 {
		return c, p.errorf("corner %q has no position", field)
	}
	if len(parts) > 1 {
		if c.vt, err = p.index(parts[1], len(p.uvs)); err != nil {
			return c, err
		}
	}
	if len(parts) > 2 {
		if c.vn, err = p.index(parts[2], len(p.normals)); err != nil {
			return c, err
		}
	}
	return c, nil
}

// index converts a 1-based or negative relative reference.
func (p *objParser) index(s string, count int) (int, error) {
	if s == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1, p.errorf("bad index %q", s)
	}
	switch {
	case n > 0 && n <= count:
		return n - 1, nil
	case n < 0 && -n <= count:
		return count + n, nil
	}
	return -1, p.errorf("index %d out of range (%d defined)", n, count)
}

func (p *objParser) vertex(c objIndex) Vertex {
	v := Vertex{Position: p.positions[c.v]}
	if c.vt >= 0 {
		v.UV = p.uvs[c.vt]
	}
	if c.vn >= 0 {
		v.Normal = p.normals[c.vn]
	}
	return v
}
