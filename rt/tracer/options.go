package tracer

import (
	"fmt"

	"github.com/gekko3d/rtdemo/rt/core"
)

// SceneBufferPolicy decides whether the scene and sphere buffers can be
// rewritten by the host after creation.
type SceneBufferPolicy uint8

const (
	// Immutable buffers are uploaded once at creation. A rebuild allocates
	// fresh buffers and a fresh binding.
	Immutable SceneBufferPolicy = iota
	// HostWritable buffers are rewritten in place on rebuild.
	HostWritable
)

func (p SceneBufferPolicy) String() string {
	switch p {
	case Immutable:
		return "immutable"
	case HostWritable:
		return "host"
	}
	return fmt.Sprintf("SceneBufferPolicy(%d)", uint8(p))
}

func ParseSceneBufferPolicy(s string) (SceneBufferPolicy, error) {
	switch s {
	case "immutable", "":
		return Immutable, nil
	case "host", "host-writable":
		return HostWritable, nil
	}
	return 0, fmt.Errorf("tracer: unknown scene buffer policy %q", s)
}

type Options struct {
	Width   uint32
	Height  uint32
	Spheres int

	Scene       core.ScenePolicy
	SceneBuffer SceneBufferPolicy

	// Camera is the initial camera.
	Camera core.CameraState
}

func DefaultOptions() Options {
	return Options{
		Width:       core.DefaultWidth,
		Height:      core.DefaultHeight,
		Spheres:     core.DefaultSpheres,
		Scene:       core.PolicyLine,
		SceneBuffer: Immutable,
		Camera:      core.NewCameraState(),
	}
}

func (o Options) Validate() error {
	if o.Width == 0 || o.Height == 0 {
		return fmt.Errorf("tracer: %w: %dx%d", core.ErrDimensions, o.Width, o.Height)
	}
	if o.SceneBuffer > HostWritable {
		return fmt.Errorf("tracer: invalid scene buffer policy %s", o.SceneBuffer)
	}
	return nil
}

func (o Options) PixelCount() int {
	return int(o.Width) * int(o.Height)
}

// BuildScene constructs the scene these options describe.
func (o Options) BuildScene() (core.SceneDescriptor, error) {
	return core.BuildScene(o.Scene, o.Spheres, o.Width, o.Height)
}
