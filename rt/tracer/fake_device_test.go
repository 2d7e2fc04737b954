package tracer

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/gekko3d/rtdemo/rt/core"
	"github.com/gekko3d/rtdemo/rt/device"
	"github.com/go-gl/mathgl/mgl32"
)

// fakeDevice is an in-memory device.Device. Dispatch runs traceReference,
// a host port of raytrace.wgsl, over the bound buffers.
type fakeDevice struct {
	limits device.Limits

	buffers   []*fakeBuffer
	writes    map[string]int
	pipelines int
	bindings  int
	dispatch  int
	// invocations is the launch size of the last dispatch.
	invocations uint64

	failCreate   string
	failWrite    error
	failPipeline error
	failDispatch error
	failRead     error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		limits: device.Limits{
			MaxStorageBufferBindingSize:       128 << 20,
			MaxStorageBuffersPerShaderStage:   8,
			MaxComputeWorkgroupsPerDimension:  65535,
			MaxComputeInvocationsPerWorkgroup: 256,
		},
		writes: map[string]int{},
	}
}

type fakeBuffer struct {
	owner    *fakeDevice
	label    string
	usage    device.Usage
	data     []byte
	released bool
}

func (b *fakeBuffer) Label() string       { return b.label }
func (b *fakeBuffer) Size() uint64        { return uint64(len(b.data)) }
func (b *fakeBuffer) Usage() device.Usage { return b.usage }
func (b *fakeBuffer) Release()            { b.released = true }

type fakePipeline struct {
	owner    *fakeDevice
	released bool
}

func (p *fakePipeline) Release() { p.released = true }

type fakeBinding struct {
	owner    *fakeDevice
	bufs     []*fakeBuffer
	released bool
}

func (b *fakeBinding) Release() { b.released = true }

func (d *fakeDevice) Name() string          { return "fake" }
func (d *fakeDevice) Limits() device.Limits { return d.limits }
func (d *fakeDevice) Release()              {}

func (d *fakeDevice) CreateBuffer(desc device.BufferDesc) (device.Buffer, error) {
	if d.failCreate != "" && strings.HasSuffix(desc.Label, d.failCreate) {
		return nil, fmt.Errorf("out of memory for %s", desc.Label)
	}
	if uint64(len(desc.Contents)) > desc.Size {
		return nil, device.ErrBufferSize
	}
	b := &fakeBuffer{owner: d, label: desc.Label, usage: desc.Usage, data: make([]byte, desc.Size)}
	copy(b.data, desc.Contents)
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *fakeDevice) own(buf device.Buffer) (*fakeBuffer, error) {
	b, ok := buf.(*fakeBuffer)
	if !ok || b.owner != d || b.released {
		return nil, device.ErrForeignHandle
	}
	return b, nil
}

func (d *fakeDevice) WriteBuffer(buf device.Buffer, data []byte) error {
	if d.failWrite != nil {
		return d.failWrite
	}
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if !b.usage.Has(device.UsageHostWrite) {
		return fmt.Errorf("%w: %s", device.ErrImmutable, b.label)
	}
	if len(data) > len(b.data) {
		return device.ErrBufferSize
	}
	copy(b.data, data)
	d.writes[b.label]++
	return nil
}

func (d *fakeDevice) ReadBuffer(buf device.Buffer, dst []byte) error {
	if d.failRead != nil {
		return d.failRead
	}
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if !b.usage.Has(device.UsageHostRead) {
		return device.ErrNotReadable
	}
	copy(dst, b.data)
	return nil
}

func (d *fakeDevice) CreatePipeline(prog device.Program) (device.Pipeline, error) {
	if d.failPipeline != nil {
		return nil, d.failPipeline
	}
	d.pipelines++
	return &fakePipeline{owner: d}, nil
}

func (d *fakeDevice) CreateBinding(p device.Pipeline, bufs []device.Buffer) (device.Binding, error) {
	if fp, ok := p.(*fakePipeline); !ok || fp.owner != d {
		return nil, device.ErrForeignHandle
	}
	bound := make([]*fakeBuffer, len(bufs))
	for i, buf := range bufs {
		b, err := d.own(buf)
		if err != nil {
			return nil, err
		}
		bound[i] = b
	}
	d.bindings++
	return &fakeBinding{owner: d, bufs: bound}, nil
}

func (d *fakeDevice) Dispatch(p device.Pipeline, b device.Binding, grid device.Grid) error {
	if d.failDispatch != nil {
		return d.failDispatch
	}
	fb, ok := b.(*fakeBinding)
	if !ok || fb.owner != d || fb.released {
		return device.ErrForeignHandle
	}
	for _, buf := range fb.bufs {
		if buf.released {
			return fmt.Errorf("%w: %s released", device.ErrForeignHandle, buf.label)
		}
	}
	d.dispatch++
	d.invocations = grid.Invocations(64)
	traceReference(fb.bufs[0].data, fb.bufs[1].data, fb.bufs[2].data, fb.bufs[3].data, d.invocations)
	return nil
}

// live counts buffers whose label ends with suffix and are not released.
func (d *fakeDevice) live(suffix string) int {
	n := 0
	for _, b := range d.buffers {
		if strings.HasSuffix(b.label, suffix) && !b.released {
			n++
		}
	}
	return n
}

func (d *fakeDevice) created(suffix string) int {
	n := 0
	for _, b := range d.buffers {
		if strings.HasSuffix(b.label, suffix) {
			n++
		}
	}
	return n
}

func (d *fakeDevice) writesTo(suffix string) int {
	n := 0
	for label, c := range d.writes {
		if strings.HasSuffix(label, suffix) {
			n += c
		}
	}
	return n
}

func u32At(b []byte, off int) uint32  { return binary.LittleEndian.Uint32(b[off:]) }
func f32At(b []byte, off int) float32 { return math.Float32frombits(u32At(b, off)) }

func vec3At(b []byte, off int) mgl32.Vec3 {
	return mgl32.Vec3{f32At(b, off), f32At(b, off+4), f32At(b, off+8)}
}

const (
	refTMin      = 0.001
	refTMax      = 100.0
	refAmbient   = 0.1
	refShininess = 32.0
)

type refScene struct {
	sun           mgl32.Vec4
	width, height uint32
	centers       []mgl32.Vec3
	radii         []float32
	specular      []mgl32.Vec3
	albedo        []mgl32.Vec3
}

func decodeRefScene(scene, spheres []byte) refScene {
	s := refScene{
		sun:    mgl32.Vec4{f32At(scene, 0), f32At(scene, 4), f32At(scene, 8), f32At(scene, 12)},
		width:  u32At(scene, 16),
		height: u32At(scene, 20),
	}
	count := int(u32At(scene, 24))
	if count > core.MaxSpheres {
		count = core.MaxSpheres
	}
	for i := 0; i < count; i++ {
		s.centers = append(s.centers, vec3At(spheres, i*16))
		s.radii = append(s.radii, f32At(spheres, i*16+12))
		s.specular = append(s.specular, vec3At(spheres, core.MaxSpheres*16+i*16))
		s.albedo = append(s.albedo, vec3At(spheres, 2*core.MaxSpheres*16+i*16))
	}
	return s
}

func refHit(origin, dir, center mgl32.Vec3, radius, tMax float32) float32 {
	oc := origin.Sub(center)
	a := dir.Dot(dir)
	halfB := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := halfB*halfB - a*c
	if disc < 0 {
		return -1
	}
	sq := float32(math.Sqrt(float64(disc)))
	root := (-halfB - sq) / a
	if root < refTMin || root > tMax {
		root = (-halfB + sq) / a
		if root < refTMin || root > tMax {
			return -1
		}
	}
	return root
}

func refSky(dir mgl32.Vec3) mgl32.Vec3 {
	t := 0.5 * (dir.Normalize().Y() + 1)
	return mgl32.Vec3{1, 1, 1}.Mul(1 - t).Add(mgl32.Vec3{0, 0.8, 1}.Mul(t))
}

func refShade(s *refScene, origin, dir mgl32.Vec3) (mgl32.Vec3, bool) {
	closest := float32(refTMax)
	hit := -1
	for i := range s.centers {
		if t := refHit(origin, dir, s.centers[i], s.radii[i], closest); t > 0 {
			closest = t
			hit = i
		}
	}
	if hit < 0 {
		return refSky(dir), false
	}

	p := origin.Add(dir.Mul(closest))
	n := p.Sub(s.centers[hit]).Mul(1 / s.radii[hit])
	l := s.sun.Vec3().Normalize()
	diffuse := float32(math.Max(float64(n.Dot(l)), 0))
	h := l.Sub(dir.Normalize()).Normalize()
	highlight := float32(math.Pow(math.Max(float64(n.Dot(h)), 0), refShininess))

	return s.albedo[hit].Mul(refAmbient + diffuse).Add(s.specular[hit].Mul(highlight * s.sun.W())), true
}

func refPack(c mgl32.Vec3) uint32 {
	q := func(v float32) uint32 {
		return uint32(mgl32.Clamp(v, 0, 0.999) * 256)
	}
	return q(c[0])<<16 | q(c[1])<<8 | q(c[2])
}

// refRay is the primary ray through the center of pixel (x, y).
func refRay(cam core.CameraState, width, height, x, y uint32) mgl32.Vec3 {
	aspect := float32(width) / float32(height)
	vh := cam.ViewportHeight
	vw := aspect * vh
	right, up := cam.Basis()
	u := (float32(x)+0.5)/float32(width) - 0.5
	v := 0.5 - (float32(y)+0.5)/float32(height)
	return cam.Direction.Mul(cam.FocalLength).Add(right.Mul(u * vw)).Add(up.Mul(v * vh))
}

func traceReference(fb, scene, camera, spheres []byte, invocations uint64) {
	s := decodeRefScene(scene, spheres)
	cam := core.DecodeCamera(camera)
	pixels := uint64(s.width) * uint64(s.height)

	for index := uint64(0); index < invocations; index++ {
		if index >= pixels {
			break
		}
		x := uint32(index % uint64(s.width))
		y := uint32(index / uint64(s.width))
		color, _ := refShade(&s, cam.Position, refRay(cam, s.width, s.height, x, y))
		binary.LittleEndian.PutUint32(fb[index*4:], refPack(color))
	}
}

// skyPixel is what the kernel writes for pixel (x, y) on a miss.
func skyPixel(cam core.CameraState, width, height, x, y uint32) uint32 {
	return refPack(refSky(refRay(cam, width, height, x, y)))
}
