package device

import (
	glm "github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective camera looking at Center from Eye.
type Camera struct {
	Eye    glm.Vec3
	Center glm.Vec3
	Up     glm.Vec3

	// FieldOfView is the vertical angle in degrees
	FieldOfView float32
	Near, Far   float32
}

// DefaultCamera looks at the origin from behind and above a vehicle.
func DefaultCamera() Camera {
	return Camera{
		Eye:         glm.Vec3{-12, 0, 6},
		Center:      glm.Vec3{0, 0, 0},
		Up:          glm.Vec3{0, 0, 1},
		FieldOfView: 45,
		Near:        0.1,
		Far:         500,
	}
}

// Orbit turns the eye around the center by yaw radians.
func (c *Camera) Orbit(yaw float32) {
	offset := c.Eye.Sub(c.Center)
	c.Eye = c.Center.Add(glm.HomogRotate3D(yaw, c.Up).Mul4x1(offset.Vec4(1)).Vec3())
}

// Zoom moves the eye towards the center by factor, 0.5 halves the distance.
func (c *Camera) Zoom(factor float32) {
	if factor <= 0 {
		return
	}
	c.Eye = c.Center.Add(c.Eye.Sub(c.Center).Mul(factor))
}

type screenPoint struct {
	x, y    int32
	visible bool
}

// Project maps positions to window pixels, top-left origin.
func (c *Camera) Project(positions []glm.Vec3, width, height int) []screenPoint {
	if width <= 0 || height <= 0 {
		return nil
	}
	view := glm.LookAtV(c.Eye, c.Center, c.Up)
	projection := glm.Perspective(glm.DegToRad(c.FieldOfView), float32(width)/float32(height), c.Near, c.Far)

	points := make([]screenPoint, len(positions))
	for i, p := range positions {
		clip := projection.Mul4(view).Mul4x1(p.Vec4(1))
		if clip.W() <= 0 {
			continue
		}
		win := glm.Project(p, view, projection, 0, 0, width, height)
		if win.Z() < 0 || win.Z() > 1 {
			continue
		}
		points[i] = screenPoint{
			x:       int32(win.X()),
			y:       int32(float32(height) - win.Y()),
			visible: true,
		}
	}
	return points
}
