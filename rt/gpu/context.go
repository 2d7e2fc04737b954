// Package gpu implements device.Device on top of WebGPU.
package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/rtdemo/rt/device"
	"github.com/gekko3d/rtdemo/rt/logging"
)

// MinStorageBuffers is the number of storage buffers the tracer binds to a
// single compute stage.
const MinStorageBuffers = 4

type Options struct {
	// Width and Height size the largest buffer the device must bind.
	Width  uint32
	Height uint32
	// Surface, when set, restricts adapter selection to one that can present
	// to it. The context takes ownership of the surface it creates.
	Surface *wgpu.SurfaceDescriptor
	// LowPower prefers an integrated adapter.
	LowPower bool
}

// Context owns the instance, adapter, device and queue. It is not safe for
// concurrent use.
type Context struct {
	log logging.Logger

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	name   string
	limits device.Limits
}

var _ device.Device = (*Context)(nil)

// Acquire selects an adapter, checks that it can hold a width x height
// framebuffer in one storage binding and opens a device with the limits the
// tracer needs.
func Acquire(opts Options, log logging.Logger) (*Context, error) {
	log = logging.OrNop(log)
	c := &Context{log: log}

	c.instance = wgpu.CreateInstance(nil)
	if opts.Surface != nil {
		c.surface = c.instance.CreateSurface(opts.Surface)
	}

	power := wgpu.PowerPreferenceHighPerformance
	if opts.LowPower {
		power = wgpu.PowerPreferenceLowPower
	}
	adapter, err := c.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: c.surface,
		PowerPreference:   power,
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("%w: %v", device.ErrNoAdapter, err)
	}
	c.adapter = adapter

	info := adapter.GetInfo()
	c.name = info.Name
	if c.name == "" {
		c.name = "unknown adapter"
	}
	supported := adapter.GetLimits().Limits
	log.Infof("Adapter: %s (backend %v)", c.name, info.BackendType)

	if err := checkLimits(toLimits(supported), opts.Width, opts.Height); err != nil {
		c.Release()
		return nil, err
	}

	limits := requiredLimits(supported)
	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Tracer Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("%w: %s: %v", device.ErrDeviceRejected, c.name, err)
	}
	c.device = dev
	c.queue = dev.GetQueue()
	c.limits = toLimits(limits)

	log.Debugf("Device limits: storage binding %d bytes, %d storage buffers per stage",
		c.limits.MaxStorageBufferBindingSize, c.limits.MaxStorageBuffersPerShaderStage)
	return c, nil
}

// QueryLimits reports what the preferred adapter supports without opening a
// device.
func QueryLimits(lowPower bool) (string, device.Limits, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	power := wgpu.PowerPreferenceHighPerformance
	if lowPower {
		power = wgpu.PowerPreferenceLowPower
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{PowerPreference: power})
	if err != nil {
		return "", device.Limits{}, fmt.Errorf("%w: %v", device.ErrNoAdapter, err)
	}
	defer adapter.Release()

	return adapter.GetInfo().Name, toLimits(adapter.GetLimits().Limits), nil
}

// requiredLimits is what the device is opened with. Limits reported by
// Context.Limits are taken from it, so grids sized against them are valid on
// the device.
func requiredLimits(supported wgpu.Limits) wgpu.Limits {
	limits := wgpu.DefaultLimits()
	limits.MaxStorageBufferBindingSize = supported.MaxStorageBufferBindingSize
	limits.MaxBufferSize = supported.MaxBufferSize
	limits.MaxComputeWorkgroupsPerDimension = supported.MaxComputeWorkgroupsPerDimension
	limits.MaxComputeInvocationsPerWorkgroup = supported.MaxComputeInvocationsPerWorkgroup
	if limits.MaxStorageBuffersPerShaderStage < MinStorageBuffers {
		limits.MaxStorageBuffersPerShaderStage = MinStorageBuffers
	}
	return limits
}

func toLimits(l wgpu.Limits) device.Limits {
	return device.Limits{
		MaxStorageBufferBindingSize:       l.MaxStorageBufferBindingSize,
		MaxStorageBuffersPerShaderStage:   l.MaxStorageBuffersPerShaderStage,
		MaxComputeWorkgroupsPerDimension:  l.MaxComputeWorkgroupsPerDimension,
		MaxComputeInvocationsPerWorkgroup: l.MaxComputeInvocationsPerWorkgroup,
	}
}

// checkLimits fails when the framebuffer cannot be bound as one storage
// buffer or when the stage cannot see all tracer buffers.
func checkLimits(l device.Limits, width, height uint32) error {
	need := uint64(width) * uint64(height) * 4
	if l.MaxStorageBufferBindingSize < need {
		return fmt.Errorf("%w: framebuffer needs %d bytes, max storage binding is %d",
			device.ErrCapability, need, l.MaxStorageBufferBindingSize)
	}
	if l.MaxStorageBuffersPerShaderStage < MinStorageBuffers {
		return fmt.Errorf("%w: %d storage buffers per stage, need %d",
			device.ErrCapability, l.MaxStorageBuffersPerShaderStage, MinStorageBuffers)
	}
	return nil
}

func (c *Context) Name() string          { return c.name }
func (c *Context) Limits() device.Limits { return c.limits }

func (c *Context) Adapter() *wgpu.Adapter { return c.adapter }
func (c *Context) Device() *wgpu.Device   { return c.device }
func (c *Context) Queue() *wgpu.Queue     { return c.queue }

// Surface is nil unless Options.Surface was set.
func (c *Context) Surface() *wgpu.Surface { return c.surface }

func (c *Context) Release() {
	if c.queue != nil {
		c.queue.Release()
		c.queue = nil
	}
	if c.device != nil {
		c.device.Release()
		c.device = nil
	}
	if c.adapter != nil {
		c.adapter.Release()
		c.adapter = nil
	}
	if c.surface != nil {
		c.surface.Release()
		c.surface = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}
