package core

import "github.com/go-gl/mathgl/mgl32"

// Material is the per-sphere shading input. The fourth components are not
// interpreted on the host; they are forwarded to the kernel untouched.
type Material struct {
	Specular mgl32.Vec4
	Albedo   mgl32.Vec4
}

var palette = [...]Material{
	{Specular: mgl32.Vec4{1, 0, 0, 0}, Albedo: mgl32.Vec4{1, 0, 0, 0}},
	{Specular: mgl32.Vec4{0, 1, 0, 0}, Albedo: mgl32.Vec4{0, 1, 0, 0}},
	{Specular: mgl32.Vec4{0, 0, 1, 0}, Albedo: mgl32.Vec4{0, 0, 1, 0}},
	{Specular: mgl32.Vec4{0, 0, 0.4, 0}, Albedo: mgl32.Vec4{0, 0, 0.8, 0}},
	{Specular: mgl32.Vec4{0.4, 0, 0.4, 0}, Albedo: mgl32.Vec4{0.6, 0, 0.6, 0}},
}

// PaletteMaterial cycles through the fixed palette.
func PaletteMaterial(i int) Material {
	return palette[i%len(palette)]
}

func PaletteSize() int {
	return len(palette)
}

func GroundMaterial() Material {
	return Material{
		Specular: mgl32.Vec4{0.1, 0.1, 0.1, 0},
		Albedo:   mgl32.Vec4{0.5, 0.5, 0.5, 0},
	}
}
