package core

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxSpheres is the fixed capacity of the sphere arena shared with the kernel.
	MaxSpheres = 64

	DefaultWidth   = 800
	DefaultHeight  = 600
	DefaultSpheres = 5
)

var (
	ErrSphereCount = errors.New("core: sphere count out of range")
	ErrMaterials   = errors.New("core: sphere and material counts differ")
	ErrDimensions  = errors.New("core: frame dimensions must be non-zero")
)

type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// SceneDescriptor is everything the kernel needs besides the camera.
// Width and Height are recorded for the kernel and never changed by the host.
type SceneDescriptor struct {
	Spheres   []Sphere
	Materials []Material
	Sun       DirectionalLight
	Width     uint32
	Height    uint32
}

func (s *SceneDescriptor) Validate() error {
	if len(s.Spheres) < 1 || len(s.Spheres) > MaxSpheres {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrSphereCount, len(s.Spheres), MaxSpheres)
	}
	if len(s.Spheres) != len(s.Materials) {
		return fmt.Errorf("%w: %d spheres, %d materials", ErrMaterials, len(s.Spheres), len(s.Materials))
	}
	if s.Width == 0 || s.Height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrDimensions, s.Width, s.Height)
	}
	return nil
}

func (s *SceneDescriptor) PixelCount() int {
	return int(s.Width) * int(s.Height)
}

// Clone returns a deep copy; the descriptor owns its slices.
func (s SceneDescriptor) Clone() SceneDescriptor {
	out := s
	out.Spheres = append([]Sphere(nil), s.Spheres...)
	out.Materials = append([]Material(nil), s.Materials...)
	return out
}

type ScenePolicy uint8

const (
	// PolicyLine places every sphere on a line receding along -x.
	PolicyLine ScenePolicy = iota
	// PolicyGround replaces the last sphere with a huge one acting as the ground plane.
	PolicyGround
)

func (p ScenePolicy) String() string {
	switch p {
	case PolicyLine:
		return "line"
	case PolicyGround:
		return "ground"
	}
	return fmt.Sprintf("ScenePolicy(%d)", uint8(p))
}

func ParseScenePolicy(s string) (ScenePolicy, error) {
	switch s {
	case "line", "":
		return PolicyLine, nil
	case "ground":
		return PolicyGround, nil
	}
	return 0, fmt.Errorf("core: unknown scene policy %q", s)
}

var (
	groundCenter = mgl32.Vec3{0, -101.5, -1}
	groundRadius = float32(100)
)

// BuildScene is a pure function of its arguments: two calls with the same
// inputs produce identical descriptors.
func BuildScene(policy ScenePolicy, n int, width, height uint32) (SceneDescriptor, error) {
	if n < 1 || n > MaxSpheres {
		return SceneDescriptor{}, fmt.Errorf("%w: %d (want 1..%d)", ErrSphereCount, n, MaxSpheres)
	}
	if policy == PolicyGround && n < 2 {
		return SceneDescriptor{}, fmt.Errorf("%w: ground scene needs at least 2 spheres, got %d", ErrSphereCount, n)
	}

	desc := SceneDescriptor{
		Spheres:   make([]Sphere, n),
		Materials: make([]Material, n),
		Sun:       DefaultSun(),
		Width:     width,
		Height:    height,
	}

	for i := 0; i < n; i++ {
		desc.Spheres[i] = Sphere{Center: mgl32.Vec3{0, -1, -1}, Radius: 0.5}
		if i > 0 {
			desc.Spheres[i].Center[0] = -1 - float32(i)*1.5
		}
		desc.Materials[i] = PaletteMaterial(i)
	}

	if policy == PolicyGround {
		desc.Spheres[n-1] = Sphere{Center: groundCenter, Radius: groundRadius}
		desc.Materials[n-1] = GroundMaterial()
	}

	if err := desc.Validate(); err != nil {
		return SceneDescriptor{}, err
	}
	return desc, nil
}

func DefaultScene() SceneDescriptor {
	desc, err := BuildScene(PolicyLine, DefaultSpheres, DefaultWidth, DefaultHeight)
	if err != nil {
		panic(err)
	}
	return desc
}
