package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type CameraState struct {
	Position       mgl32.Vec3
	ViewportHeight float32
	FocalLength    float32
	// Direction is expected to be unit length; nothing renormalizes it.
	Direction mgl32.Vec3
}

func NewCameraState() CameraState {
	return CameraState{
		Position:       mgl32.Vec3{0, -1, 1},
		ViewportHeight: 2.0,
		FocalLength:    1.0,
		Direction:      mgl32.Vec3{0, 0, -1},
	}
}

func (c *CameraState) Translate(dx, dy, dz float32) {
	c.Position[0] += dx
	c.Position[1] += dy
	c.Position[2] += dz
}

// DirectionFromAngles returns the unit forward vector for a yaw/pitch pair
// in radians. Yaw 0 looks down -z, y is up.
func DirectionFromAngles(yaw, pitch float32) mgl32.Vec3 {
	cp := math.Cos(float64(pitch))
	return mgl32.Vec3{
		float32(cp * math.Sin(float64(yaw))),
		float32(math.Sin(float64(pitch))),
		float32(-cp * math.Cos(float64(yaw))),
	}
}

// Basis returns the right and up vectors of the view for the current
// direction, using +y as the world up.
func (c *CameraState) Basis() (right, up mgl32.Vec3) {
	worldUp := mgl32.Vec3{0, 1, 0}
	right = c.Direction.Cross(worldUp)
	if right.Len() < 1e-6 {
		right = mgl32.Vec3{1, 0, 0}
	}
	right = right.Normalize()
	up = right.Cross(c.Direction)
	return right, up
}
