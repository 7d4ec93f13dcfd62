// Package collada decodes the geometry part of Collada (.dae) documents.
package collada

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// package errors
var (
	ErrIndexCount = errors.New("index count does not match the primitive")
)

// Collada is the top-level Collada object
type Collada struct {
	UpAxis     string     `xml:"asset>up_axis"`
	Geometries []Geometry `xml:"library_geometries>geometry"`
}

// Geometry represents Collada's geometry
type Geometry struct {
	Mesh Mesh   `xml:"mesh"`
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

// Mesh holds the data sources of a geometry and the primitives
// indexing into them.
type Mesh struct {
	Sources   []Source    `xml:"source"`
	Vertices  Vertices    `xml:"vertices"`
	Triangles []Primitive `xml:"triangles"`
	Polylists []Primitive `xml:"polylist"`
}

// Source finds a source by its id, ref may carry the leading '#'.
func (m *Mesh) Source(ref string) (Source, bool) {
	id := strings.TrimPrefix(ref, "#")
	for _, s := range m.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}

// Primitives returns the triangle lists followed by the polygon lists.
func (m *Mesh) Primitives() []Primitive {
	out := make([]Primitive, 0, len(m.Triangles)+len(m.Polylists))
	out = append(out, m.Triangles...)
	return append(out, m.Polylists...)
}

// Source is a float array with its accessor
type Source struct {
	ID       string   `xml:"id,attr"`
	Floats   Floats   `xml:"float_array"`
	Accessor Accessor `xml:"technique_common>accessor"`
}

// Element returns element i of the source as n floats. The accessor
// stride is used when set, otherwise elements are n wide.
func (s Source) Element(i, n int) ([]float32, bool) {
	stride := s.Accessor.Stride
	if stride < n {
		stride = n
	}
	start := i * stride
	if i < 0 || start+n > len(s.Floats.Data) {
		return nil, false
	}
	return s.Floats.Data[start : start+n], true
}

// Accessor tells how a source array splits into elements
type Accessor struct {
	Count  int `xml:"count,attr"`
	Stride int `xml:"stride,attr"`
}

// Floats is the array of floats
type Floats struct {
	ID   string
	Data []float32
}

// UnmarshalXML unmarshals the array of floats
func (f *Floats) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "id" {
			f.ID = attr.Value
		}
	}
	var raw string
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	for _, r := range strings.Fields(raw) {
		num, err := strconv.ParseFloat(r, 32)
		if err != nil {
			return err
		}
		f.Data = append(f.Data, float32(num))
	}
	return nil
}

// Vertices contains the list of vertices
type Vertices struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

// Primitive is a <triangles> or <polylist> element. Counts holds the
// corner count of every polygon and stays empty for triangles.
type Primitive struct {
	Count    int
	Material string
	Inputs   []Input
	Counts   []int
	Index    []int
}

// UnmarshalXML parses the inputs, the polygon sizes and the index list
func (p *Primitive) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "count":
			num, err := strconv.Atoi(attr.Value)
			if err != nil {
				return err
			}
			p.Count = num
		case "material":
			p.Material = attr.Value
		}
	}

	for {
		token, err := d.Token()
		if err != nil {
			return err
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "input":
				var input Input
				if err := d.DecodeElement(&input, &el); err != nil {
					return err
				}
				p.Inputs = append(p.Inputs, input)
			case "vcount":
				if p.Counts, err = decodeInts(d, el); err != nil {
					return err
				}
			case "p":
				if p.Index, err = decodeInts(d, el); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if el == start.End() {
				return nil
			}
		}
	}
}

func decodeInts(d *xml.Decoder, el xml.StartElement) ([]int, error) {
	var raw string
	if err := d.DecodeElement(&raw, &el); err != nil {
		return nil, err
	}
	fields := strings.Fields(raw)
	ints := make([]int, 0, len(fields))
	for _, r := range fields {
		num, err := strconv.Atoi(r)
		if err != nil {
			return nil, err
		}
		ints = append(ints, num)
	}
	return ints, nil
}

// Stride is the number of indices per corner: the highest input
// offset plus one.
func (p *Primitive) Stride() int {
	var stride int
	for _, in := range p.Inputs {
		if int(in.Offset)+1 > stride {
			stride = int(in.Offset) + 1
		}
	}
	return stride
}

// Triangulate returns the index list as triangles, each corner Stride
// indices wide. Polygons are fanned around their first corner.
func (p *Primitive) Triangulate() ([]int, error) {
	stride := p.Stride()
	if stride == 0 {
		return nil, fmt.Errorf("%w: no inputs", ErrIndexCount)
	}

	if len(p.Counts) == 0 {
		if len(p.Index)%(stride*3) != 0 {
			return nil, fmt.Errorf("%w: %d indices for %d inputs", ErrIndexCount, len(p.Index), stride)
		}
		return p.Index, nil
	}

	var out []int
	at := 0
	for _, n := range p.Counts {
		if n < 3 || at+n*stride > len(p.Index) {
			return nil, fmt.Errorf("%w: polygon of %d corners at index %d", ErrIndexCount, n, at)
		}
		corner := func(c int) []int {
			return p.Index[at+c*stride : at+(c+1)*stride]
		}
		for c := 1; c+1 < n; c++ {
			out = append(out, corner(0)...)
			out = append(out, corner(c)...)
			out = append(out, corner(c+1)...)
		}
		at += n * stride
	}
	if at != len(p.Index) {
		return nil, fmt.Errorf("%w: %d indices left over", ErrIndexCount, len(p.Index)-at)
	}
	return out, nil
}

// Input is Collada'a input type
type Input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   uint   `xml:"offset,attr"`
	Set      uint   `xml:"set,attr"`
}
