package app

import (
	"math"

	"github.com/gekko3d/rtdemo/rt/core"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

const maxPitch = 89.0 * math.Pi / 180.0

// KeyState reports whether a key is currently held.
type KeyState func(key glfw.Key) bool

// WindowKeys polls the key state of a glfw window.
func WindowKeys(w *glfw.Window) KeyState {
	return func(key glfw.Key) bool {
		action := w.GetKey(key)
		return action == glfw.Press || action == glfw.Repeat
	}
}

// CameraMover is the part of the tracer the controller drives.
type CameraMover interface {
	Camera() core.CameraState
	Translate(dx, dy, dz float32)
	SetDirection(d mgl32.Vec3)
}

// Controller is a fly camera: WASD moves in the view plane, Space and
// LeftControl move along world y and the arrow keys turn.
type Controller struct {
	Speed    float32 // units per second
	TurnRate float32 // radians per second
	Yaw      float32
	Pitch    float32
}

// NewController starts from the yaw and pitch of dir.
func NewController(dir mgl32.Vec3, speed, turnRate float32) *Controller {
	d := dir.Normalize()
	return &Controller{
		Speed:    speed,
		TurnRate: turnRate,
		Yaw:      float32(math.Atan2(float64(d[0]), float64(-d[2]))),
		Pitch:    float32(math.Asin(float64(mgl32.Clamp(d[1], -1, 1)))),
	}
}

// Update applies one frame of input held for dt seconds. It reports whether
// the camera changed.
func (c *Controller) Update(cam CameraMover, keys KeyState, dt float32) bool {
	changed := false

	turn := c.TurnRate * dt
	turned := false
	if keys(glfw.KeyLeft) {
		c.Yaw -= turn
		turned = true
	}
	if keys(glfw.KeyRight) {
		c.Yaw += turn
		turned = true
	}
	if keys(glfw.KeyUp) {
		c.Pitch += turn
		turned = true
	}
	if keys(glfw.KeyDown) {
		c.Pitch -= turn
		turned = true
	}
	if turned {
		c.Pitch = mgl32.Clamp(c.Pitch, -maxPitch, maxPitch)
		cam.SetDirection(core.DirectionFromAngles(c.Yaw, c.Pitch))
		changed = true
	}

	state := cam.Camera()
	right, _ := state.Basis()
	forward := state.Direction

	var move mgl32.Vec3
	if keys(glfw.KeyW) {
		move = move.Add(forward)
	}
	if keys(glfw.KeyS) {
		move = move.Sub(forward)
	}
	if keys(glfw.KeyD) {
		move = move.Add(right)
	}
	if keys(glfw.KeyA) {
		move = move.Sub(right)
	}
	if keys(glfw.KeySpace) {
		move[1]++
	}
	if keys(glfw.KeyLeftControl) {
		move[1]--
	}
	if move.Len() > 0 {
		move = move.Mul(c.Speed * dt)
		cam.Translate(move[0], move[1], move[2])
		changed = true
	}

	return changed
}
