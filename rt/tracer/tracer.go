// Package tracer drives the sphere-tracing kernel: it owns the scene, the
// camera and every device buffer the kernel binds, and turns each Compute
// call into one dispatch, one fence-wait and one framebuffer readback.
package tracer

import (
	"errors"
	"fmt"
	"time"

	"github.com/gekko3d/rtdemo/rt/core"
	"github.com/gekko3d/rtdemo/rt/device"
	"github.com/gekko3d/rtdemo/rt/kernel"
	"github.com/gekko3d/rtdemo/rt/logging"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Layout is the binding order the tracer and the kernel agree on.
var Layout = []kernel.Slot{
	kernel.SlotFramebuffer,
	kernel.SlotScene,
	kernel.SlotCamera,
	kernel.SlotSpheres,
}

type Stats struct {
	Frames    uint64
	LastFrame time.Duration
	Total     time.Duration
}

func (s Stats) AverageFrame() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Frames)
}

// Tracer is not safe for concurrent use. The device, pipeline and binding
// are shared read-only state between frames; only the camera moves.
type Tracer struct {
	id   uuid.UUID
	log  logging.Logger
	dev  device.Device
	prog *kernel.Program
	opts Options

	scene       core.SceneDescriptor
	camera      core.CameraState
	cameraDirty bool
	cameraBytes []byte

	framebuffer device.Buffer
	sceneBuf    device.Buffer
	cameraBuf   device.Buffer
	spheresBuf  device.Buffer

	pipeline device.Pipeline
	binding  device.Binding
	grid     device.Grid

	scratch []byte
	stats   Stats
	closed  bool
}

// New checks the kernel against Layout, uploads the scene and camera, and
// builds the pipeline and binding the tracer reuses for its whole lifetime.
func New(dev device.Device, prog *kernel.Program, opts Options, log logging.Logger) (*Tracer, error) {
	if err := opts.Validate(); err != nil {
		return nil, initError(StageBufferAllocation, err)
	}
	if prog == nil {
		return nil, initError(StageKernelLoad, errors.New("no kernel program"))
	}
	if err := prog.Validate(Layout); err != nil {
		return nil, initError(StageKernelLoad, err)
	}

	scene, err := opts.BuildScene()
	if err != nil {
		return nil, initError(StageBufferAllocation, err)
	}

	t := &Tracer{
		id:          uuid.New(),
		log:         logging.OrNop(log),
		dev:         dev,
		prog:        prog,
		opts:        opts,
		scene:       scene,
		camera:      opts.Camera,
		cameraBytes: make([]byte, core.CameraDataSize),
		scratch:     make([]byte, opts.PixelCount()*core.PixelSize),
	}
	if t.camera == (core.CameraState{}) {
		t.camera = core.NewCameraState()
	}

	if err := t.init(); err != nil {
		t.Close()
		return nil, err
	}

	t.log.Infof("Tracer %s ready: %dx%d, %d spheres (%s), scene buffers %s, grid %dx%dx%d on %s",
		t.shortID(), opts.Width, opts.Height, len(scene.Spheres), opts.Scene, opts.SceneBuffer,
		t.grid.X, t.grid.Y, t.grid.Z, dev.Name())
	return t, nil
}

func (t *Tracer) init() error {
	limits := t.dev.Limits()
	fbSize := uint64(len(t.scratch))
	if limits.MaxStorageBufferBindingSize != 0 && limits.MaxStorageBufferBindingSize < fbSize {
		return initError(StageBufferAllocation, fmt.Errorf("%w: framebuffer of %d bytes exceeds %d",
			device.ErrCapability, fbSize, limits.MaxStorageBufferBindingSize))
	}

	grid, err := device.GridFor(uint32(t.opts.PixelCount()), t.prog.InvocationsPerWorkgroup(), limits.MaxComputeWorkgroupsPerDimension)
	if err != nil {
		return initError(StagePipelineBuild, err)
	}
	t.grid = grid

	t.framebuffer, err = t.dev.CreateBuffer(device.BufferDesc{
		Label: t.label("Framebuffer"),
		Size:  fbSize,
		Usage: device.UsageHostRead,
	})
	if err != nil {
		return initError(StageBufferAllocation, err)
	}

	t.camera.PutBytes(t.cameraBytes)
	t.cameraBuf, err = t.dev.CreateBuffer(device.BufferDesc{
		Label:    t.label("Camera"),
		Size:     core.CameraDataSize,
		Contents: t.cameraBytes,
		Usage:    device.UsageHostWrite,
	})
	if err != nil {
		return initError(StageBufferAllocation, err)
	}

	t.sceneBuf, t.spheresBuf, err = t.createSceneBuffers(&t.scene)
	if err != nil {
		return initError(StageBufferAllocation, err)
	}

	t.pipeline, err = t.dev.CreatePipeline(t.prog)
	if err != nil {
		return initError(StagePipelineBuild, err)
	}

	t.binding, err = t.dev.CreateBinding(t.pipeline, t.buffers())
	if err != nil {
		return initError(StagePipelineBuild, err)
	}
	return nil
}

func (t *Tracer) createSceneBuffers(scene *core.SceneDescriptor) (sceneBuf, spheresBuf device.Buffer, err error) {
	var usage device.Usage
	if t.opts.SceneBuffer == HostWritable {
		usage = device.UsageHostWrite
	}

	sceneBuf, err = t.dev.CreateBuffer(device.BufferDesc{
		Label:    t.label("Scene"),
		Size:     core.SceneDataSize,
		Contents: scene.SceneBytes(),
		Usage:    usage,
	})
	if err != nil {
		return nil, nil, err
	}
	spheresBuf, err = t.dev.CreateBuffer(device.BufferDesc{
		Label:    t.label("Spheres"),
		Size:     core.SphereDataSize,
		Contents: scene.SphereBytes(),
		Usage:    usage,
	})
	if err != nil {
		sceneBuf.Release()
		return nil, nil, err
	}
	return sceneBuf, spheresBuf, nil
}

// buffers returns the bound buffers in Layout order.
func (t *Tracer) buffers() []device.Buffer {
	return []device.Buffer{t.framebuffer, t.sceneBuf, t.cameraBuf, t.spheresBuf}
}

func (t *Tracer) label(name string) string {
	return fmt.Sprintf("Tracer %s %s", t.shortID(), name)
}

func (t *Tracer) shortID() string {
	return t.id.String()[:8]
}

func (t *Tracer) ID() uuid.UUID            { return t.id }
func (t *Tracer) Options() Options         { return t.opts }
func (t *Tracer) Width() uint32            { return t.opts.Width }
func (t *Tracer) Height() uint32           { return t.opts.Height }
func (t *Tracer) PixelCount() int          { return t.opts.PixelCount() }
func (t *Tracer) Grid() device.Grid        { return t.grid }
func (t *Tracer) Stats() Stats             { return t.stats }
func (t *Tracer) Camera() core.CameraState { return t.camera }

// Scene returns a copy of the uploaded scene.
func (t *Tracer) Scene() core.SceneDescriptor { return t.scene.Clone() }

// SetPosition overwrites the camera position. Nothing is validated and
// nothing reaches the device until the next Compute.
func (t *Tracer) SetPosition(p mgl32.Vec3) {
	t.camera.Position = p
	t.cameraDirty = true
}

func (t *Tracer) Translate(dx, dy, dz float32) {
	t.camera.Translate(dx, dy, dz)
	t.cameraDirty = true
}

// SetDirection stores d as given. Callers pass a unit vector.
func (t *Tracer) SetDirection(d mgl32.Vec3) {
	t.camera.Direction = d
	t.cameraDirty = true
}

// RebuildScene re-uploads a new scene of the same dimensions. Under the
// Immutable policy the scene buffers and the binding are replaced; under
// HostWritable they are rewritten in place.
func (t *Tracer) RebuildScene(desc core.SceneDescriptor) error {
	if t.closed {
		return initError(StageBufferAllocation, errors.New("tracer is closed"))
	}
	if err := desc.Validate(); err != nil {
		return err
	}
	if desc.Width != t.opts.Width || desc.Height != t.opts.Height {
		return fmt.Errorf("tracer: %w: rebuild to %dx%d, framebuffer is %dx%d",
			core.ErrDimensions, desc.Width, desc.Height, t.opts.Width, t.opts.Height)
	}
	desc = desc.Clone()

	if t.opts.SceneBuffer == HostWritable {
		if err := t.dev.WriteBuffer(t.sceneBuf, desc.SceneBytes()); err != nil {
			return initError(StageBufferAllocation, err)
		}
		if err := t.dev.WriteBuffer(t.spheresBuf, desc.SphereBytes()); err != nil {
			return initError(StageBufferAllocation, err)
		}
		t.scene = desc
		t.log.Debugf("Tracer %s: scene rewritten in place, %d spheres", t.shortID(), len(desc.Spheres))
		return nil
	}

	sceneBuf, spheresBuf, err := t.createSceneBuffers(&desc)
	if err != nil {
		return initError(StageBufferAllocation, err)
	}
	binding, err := t.dev.CreateBinding(t.pipeline, []device.Buffer{t.framebuffer, sceneBuf, t.cameraBuf, spheresBuf})
	if err != nil {
		sceneBuf.Release()
		spheresBuf.Release()
		return initError(StagePipelineBuild, err)
	}

	t.binding.Release()
	t.sceneBuf.Release()
	t.spheresBuf.Release()
	t.binding, t.sceneBuf, t.spheresBuf = binding, sceneBuf, spheresBuf
	t.scene = desc
	t.log.Debugf("Tracer %s: scene reallocated, %d spheres", t.shortID(), len(desc.Spheres))
	return nil
}

// Compute renders one frame and returns it as packed 0x00RRGGBB pixels,
// row 0 at the top.
func (t *Tracer) Compute() ([]uint32, error) {
	pixels := make([]uint32, t.PixelCount())
	if err := t.ComputeInto(pixels); err != nil {
		return nil, err
	}
	return pixels, nil
}

// ComputeInto renders one frame into dst, which must hold exactly
// Width*Height pixels.
func (t *Tracer) ComputeInto(dst []uint32) error {
	if t.closed {
		return dispatchError(StageDispatch, errors.New("tracer is closed"))
	}
	if len(dst) != t.PixelCount() {
		return fmt.Errorf("%w: got %d, want %d", ErrFrameSize, len(dst), t.PixelCount())
	}

	start := time.Now()

	if t.cameraDirty {
		t.camera.PutBytes(t.cameraBytes)
		if err := t.dev.WriteBuffer(t.cameraBuf, t.cameraBytes); err != nil {
			return dispatchError(StageDispatch, err)
		}
		t.cameraDirty = false
	}

	if err := t.dev.Dispatch(t.pipeline, t.binding, t.grid); err != nil {
		return dispatchError(StageDispatch, err)
	}

	if err := t.dev.ReadBuffer(t.framebuffer, t.scratch); err != nil {
		if errors.Is(err, device.ErrMapFailed) {
			return dispatchError(StageFenceWait, err)
		}
		return dispatchError(StageReadback, err)
	}
	core.DecodePixels(dst, t.scratch)

	elapsed := time.Since(start)
	t.stats.Frames++
	t.stats.LastFrame = elapsed
	t.stats.Total += elapsed
	if t.log.DebugEnabled() && t.stats.Frames%120 == 0 {
		t.log.Debugf("Tracer %s: %d frames, avg %s", t.shortID(), t.stats.Frames, t.stats.AverageFrame())
	}
	return nil
}

// Close releases the binding, pipeline and buffers. The device stays open.
func (t *Tracer) Close() {
	if t.closed {
		return
	}
	t.closed = true
	if t.binding != nil {
		t.binding.Release()
		t.binding = nil
	}
	if t.pipeline != nil {
		t.pipeline.Release()
		t.pipeline = nil
	}
	for _, b := range []*device.Buffer{&t.framebuffer, &t.sceneBuf, &t.cameraBuf, &t.spheresBuf} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
}
