package device

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/devblok/torero/gpu"
	glm "github.com/go-gl/mathgl/mgl32"
)

// vertices is a buffer kept in host memory, only the attributes the
// device rasterises are decoded.
type vertices struct {
	layout    gpu.Layout
	positions []glm.Vec3
	intensity []float32
}

func (v *vertices) Len() int           { return len(v.positions) }
func (v *vertices) Layout() gpu.Layout { return v.layout }

func (v *vertices) Release() {
	v.positions = nil
	v.intensity = nil
}

func decodeVertices(layout gpu.Layout, data []byte, count int) (*vertices, error) {
	if count <= 0 {
		return nil, gpu.ErrEmptyBuffer
	}
	stride := layout.Stride()
	if stride == 0 || len(data) < stride*count {
		return nil, fmt.Errorf("buffer of %d bytes cannot hold %d vertices of %d bytes", len(data), count, stride)
	}

	position := layout.Offset(gpu.Position)
	if position < 0 {
		return nil, fmt.Errorf("layout has no position")
	}
	components := 0
	for _, a := range layout {
		if a.Location == gpu.Position {
			components = a.Components
		}
	}
	if components > 3 {
		components = 3
	}

	v := &vertices{
		layout:    layout,
		positions: make([]glm.Vec3, count),
	}
	intensity := layout.Offset(gpu.Intensity)
	if intensity >= 0 {
		v.intensity = make([]float32, count)
	}

	for i := 0; i < count; i++ {
		vertex := data[i*stride : (i+1)*stride]
		for c := 0; c < components; c++ {
			v.positions[i][c] = readFloat(vertex, position+4*c)
		}
		if intensity >= 0 {
			v.intensity[i] = readFloat(vertex, intensity)
		}
	}
	return v, nil
}

func readFloat(b []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[offset:]))
}
