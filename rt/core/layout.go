package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Byte sizes of the kernel's storage-buffer structs.
const (
	SceneDataSize  = 32
	CameraDataSize = 32
	SphereDataSize = MaxSpheres * (16 + 16 + 16)
	PixelSize      = 4
)

func putF32(buf []byte, offset int, v float32) {
	binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
}

func getF32(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}

// SceneBytes encodes the scene header:
//
//	struct SceneData {
//	  sun: vec4<f32>,      -- 0
//	  width: u32,          -- 16
//	  height: u32,         -- 20
//	  sphere_count: u32,   -- 24
//	  _pad: u32,           -- 28
//	} -> 32 bytes
func (s *SceneDescriptor) SceneBytes() []byte {
	buf := make([]byte, SceneDataSize)
	for i := 0; i < 4; i++ {
		putF32(buf, i*4, s.Sun.Direction[i])
	}
	binary.LittleEndian.PutUint32(buf[16:], s.Width)
	binary.LittleEndian.PutUint32(buf[20:], s.Height)
	binary.LittleEndian.PutUint32(buf[24:], uint32(len(s.Spheres)))
	return buf
}

// SphereBytes encodes the fixed-capacity sphere arena:
//
//	struct SphereData {
//	  spheres: array<Sphere, 64>,       -- 0    (center vec3 + radius)
//	  specular: array<vec4<f32>, 64>,   -- 1024
//	  albedo: array<vec4<f32>, 64>,     -- 2048
//	} -> 3072 bytes
//
// Slots past len(Spheres) stay zeroed.
func (s *SceneDescriptor) SphereBytes() []byte {
	buf := make([]byte, SphereDataSize)
	const specBase = MaxSpheres * 16
	const albedoBase = 2 * MaxSpheres * 16

	for i, sp := range s.Spheres {
		if i >= MaxSpheres {
			break
		}
		off := i * 16
		putF32(buf, off, sp.Center[0])
		putF32(buf, off+4, sp.Center[1])
		putF32(buf, off+8, sp.Center[2])
		putF32(buf, off+12, sp.Radius)
	}
	for i, m := range s.Materials {
		if i >= MaxSpheres {
			break
		}
		for c := 0; c < 4; c++ {
			putF32(buf, specBase+i*16+c*4, m.Specular[c])
			putF32(buf, albedoBase+i*16+c*4, m.Albedo[c])
		}
	}
	return buf
}

// Bytes encodes the camera:
//
//	struct CameraData {
//	  position: vec3<f32>,   -- 0
//	  viewport_height: f32,  -- 12
//	  direction: vec3<f32>,  -- 16
//	  focal_length: f32,     -- 28
//	} -> 32 bytes
func (c *CameraState) Bytes() []byte {
	buf := make([]byte, CameraDataSize)
	c.PutBytes(buf)
	return buf
}

// PutBytes writes the camera into buf, which must hold CameraDataSize bytes.
func (c *CameraState) PutBytes(buf []byte) {
	putF32(buf, 0, c.Position[0])
	putF32(buf, 4, c.Position[1])
	putF32(buf, 8, c.Position[2])
	putF32(buf, 12, c.ViewportHeight)
	putF32(buf, 16, c.Direction[0])
	putF32(buf, 20, c.Direction[1])
	putF32(buf, 24, c.Direction[2])
	putF32(buf, 28, c.FocalLength)
}

// DecodeCamera is the inverse of Bytes.
func DecodeCamera(buf []byte) CameraState {
	return CameraState{
		Position:       mgl32.Vec3{getF32(buf, 0), getF32(buf, 4), getF32(buf, 8)},
		ViewportHeight: getF32(buf, 12),
		Direction:      mgl32.Vec3{getF32(buf, 16), getF32(buf, 20), getF32(buf, 24)},
		FocalLength:    getF32(buf, 28),
	}
}

// DecodePixels unpacks little-endian packed pixels from src into dst.
func DecodePixels(dst []uint32, src []byte) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(src[i*PixelSize:])
	}
}

// PackColor matches the kernel's packing: 0x00RRGGBB.
func PackColor(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func UnpackColor(p uint32) (r, g, b uint8) {
	return uint8(p >> 16), uint8(p >> 8), uint8(p)
}
