// Package pointcloud loads KITTI velodyne frames: flat little-endian
// records of float32 x, y, z and reflectance.
package pointcloud

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"path"
	"unsafe"

	"github.com/devblok/torero/gpu"
	"github.com/devblok/torero/resource"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"
)

// RecordSize is the size in bytes of one point on disk.
const RecordSize = 16

// Point is one laser return, its memory layout matches Layout.
type Point struct {
	Position  glm.Vec3
	Intensity float32
}

// Layout describes Point to the device.
var Layout = gpu.Layout{
	{Location: gpu.Position, Components: 3},
	{Location: gpu.Intensity, Components: 1},
}

// FrameName returns the file of frame n inside a KITTI sequence.
func FrameName(sequence string, n int) string {
	return path.Join(sequence, "velodyne_points", "data", fmt.Sprintf("%010d.bin", n))
}

// Decode parses a velodyne frame.
func Decode(data []byte) ([]Point, error) {
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("%w: point cloud of %d bytes has a partial record", resource.ErrMalformed, len(data))
	}

	points := make([]Point, len(data)/RecordSize)
	for i := range points {
		record := data[i*RecordSize : (i+1)*RecordSize]
		points[i] = Point{
			Position: glm.Vec3{
				math.Float32frombits(binary.LittleEndian.Uint32(record[0:])),
				math.Float32frombits(binary.LittleEndian.Uint32(record[4:])),
				math.Float32frombits(binary.LittleEndian.Uint32(record[8:])),
			},
			Intensity: math.Float32frombits(binary.LittleEndian.Uint32(record[12:])),
		}
	}
	return points, nil
}

// Bounds returns the corners of the box holding every point.
func Bounds(points []Point) (min, max glm.Vec3) {
	if len(points) == 0 {
		return
	}
	min, max = points[0].Position, points[0].Position
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			min[i] = float32(math.Min(float64(min[i]), float64(p.Position[i])))
			max[i] = float32(math.Max(float64(max[i]), float64(p.Position[i])))
		}
	}
	return min, max
}

// Cloud is a point cloud frame, the body of a resource.Loader.
type Cloud struct {
	File string

	points   []Point
	count    int
	min, max glm.Vec3
	buffer   gpu.Buffer
}

// Load implements interface
func (c *Cloud) Load(ctx context.Context, src resource.Source) error {
	data, err := resource.ReadAll(src, c.File)
	if err != nil {
		return err
	}
	points, err := Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", c.File, err)
	}
	c.points = points
	c.count = len(points)
	c.min, c.max = Bounds(points)
	return nil
}

// Upload implements interface. An empty frame creates no buffer.
func (c *Cloud) Upload(dev gpu.Device) error {
	if len(c.points) == 0 {
		return nil
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(&c.points[0])), len(c.points)*int(unsafe.Sizeof(Point{})))
	buffer, err := dev.CreateBuffer(Layout, data, len(c.points))
	if err != nil {
		return err
	}
	c.buffer = buffer
	c.points = nil
	return nil
}

// Draw implements interface
func (c *Cloud) Draw(dev gpu.Device) {
	if c.buffer != nil {
		dev.Draw(gpu.Points, c.buffer)
	}
}

// Release implements interface
func (c *Cloud) Release() {
	if c.buffer != nil {
		c.buffer.Release()
		c.buffer = nil
	}
	c.points = nil
}

// Points returns the decoded points, they are dropped once uploaded.
func (c *Cloud) Points() []Point {
	return c.points
}

// Len returns the number of points of the frame.
func (c *Cloud) Len() int {
	return c.count
}

// Bounds returns the box holding the frame.
func (c *Cloud) Bounds() (min, max glm.Vec3) {
	return c.min, c.max
}

// NewLoader creates the loader of a velodyne frame.
func NewLoader(file string, src resource.Source, dev gpu.Device, log logrus.FieldLogger) *resource.Loader[*Cloud] {
	return resource.NewLoader("cloud:"+file, &Cloud{File: file}, src, dev, log)
}
