package core

import "github.com/go-gl/mathgl/mgl32"

// DirectionalLight is the GPU representation of the sun.
// Direction.xyz points towards the light; w is passed through to the kernel
// (the shipped kernel reads it as intensity).
type DirectionalLight struct {
	Direction mgl32.Vec4
}

func DefaultSun() DirectionalLight {
	return DirectionalLight{Direction: mgl32.Vec4{0.5, 1, 0, 0.5}}
}
