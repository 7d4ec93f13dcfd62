// Package gui loads composite instruments such as a speedometer or a
// compass: one folder of shared material pictures and a subfolder of
// geometry per moving part.
package gui

import (
	"context"
	"path"

	"github.com/devblok/torero/gpu"
	"github.com/devblok/torero/model"
	"github.com/devblok/torero/resource"
	"github.com/sirupsen/logrus"
)

// Parts of the instruments shipped with the visualizer.
var (
	SpeedometerParts = []string{"background", "marker", "needle"}
	CompassParts     = []string{"background", "needle"}
)

type part struct {
	name     string
	vertices []model.Vertex
	count    int
	buffer   gpu.Buffer
}

// Instrument is a composite widget, the body of a resource.Loader.
// Every part must be present for the instrument to load.
type Instrument struct {
	Folder string
	Parts  []string

	parts    []part
	textures resource.Textures
}

// Load implements interface
func (in *Instrument) Load(ctx context.Context, src resource.Source) error {
	parts := make([]part, 0, len(in.Parts))
	for _, name := range in.Parts {
		vertices, err := model.ReadGeometry(src, path.Join(in.Folder, name))
		if err != nil {
			return err
		}
		parts = append(parts, part{name: name, vertices: vertices, count: len(vertices)})
	}
	in.parts = parts
	return in.textures.Load(src, in.Folder, resource.MaterialFiles, true)
}

// Upload implements interface
func (in *Instrument) Upload(dev gpu.Device) error {
	for i := range in.parts {
		p := &in.parts[i]
		buffer, err := dev.CreateBuffer(model.Layout, model.Pack(p.vertices), len(p.vertices))
		if err != nil {
			return err
		}
		p.buffer = buffer
		p.vertices = nil
	}
	return in.textures.Upload(dev)
}

// Draw implements interface
func (in *Instrument) Draw(dev gpu.Device) {
	for _, p := range in.parts {
		dev.Draw(gpu.Triangles, p.buffer, in.textures.Bound()...)
	}
}

// Release implements interface
func (in *Instrument) Release() {
	for i := range in.parts {
		if in.parts[i].buffer != nil {
			in.parts[i].buffer.Release()
		}
	}
	in.parts = nil
	in.textures.Release()
}

// Part returns the number of vertices of the named part.
func (in *Instrument) Part(name string) (int, bool) {
	for _, p := range in.parts {
		if p.name == name {
			return p.count, true
		}
	}
	return 0, false
}

// NewLoader creates the loader of the instrument stored in folder.
func NewLoader(folder string, parts []string, src resource.Source, dev gpu.Device, log logrus.FieldLogger) *resource.Loader[*Instrument] {
	body := &Instrument{Folder: folder, Parts: parts}
	return resource.NewLoader("gui:"+folder, body, src, dev, log)
}
