package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/rtdemo/rt/device"
)

type Pipeline struct {
	owner    *Context
	label    string
	pipeline *wgpu.ComputePipeline
}

func (p *Pipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}

type Binding struct {
	owner     *Context
	pipeline  *Pipeline
	bindGroup *wgpu.BindGroup
}

func (b *Binding) Release() {
	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}
}

// CreatePipeline compiles the program's WGSL and builds a compute pipeline
// with an automatic layout.
func (c *Context) CreatePipeline(prog device.Program) (device.Pipeline, error) {
	module, err := c.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          prog.Label(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: prog.Source()},
	})
	if err != nil {
		return nil, fmt.Errorf("shader module %s: %w", prog.Label(), err)
	}
	defer module.Release()

	label := prog.Label() + " Pipeline"
	pipeline, err := c.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: label,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: prog.EntryPoint(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compute pipeline %s: %w", label, err)
	}
	return &Pipeline{owner: c, label: label, pipeline: pipeline}, nil
}

func (c *Context) ownPipeline(p device.Pipeline) (*Pipeline, error) {
	pp, ok := p.(*Pipeline)
	if !ok || pp.owner != c || pp.pipeline == nil {
		return nil, fmt.Errorf("%w: pipeline", device.ErrForeignHandle)
	}
	return pp, nil
}

func (c *Context) CreateBinding(p device.Pipeline, bufs []device.Buffer) (device.Binding, error) {
	pp, err := c.ownPipeline(p)
	if err != nil {
		return nil, err
	}

	entries := make([]wgpu.BindGroupEntry, len(bufs))
	for i, buf := range bufs {
		b, err := c.own(buf)
		if err != nil {
			return nil, err
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: uint32(i),
			Buffer:  b.buf,
			Size:    b.size,
		}
	}

	layout := pp.pipeline.GetBindGroupLayout(0)
	defer layout.Release()

	bg, err := c.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   pp.label + " BG0",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group %s: %w", pp.label, err)
	}
	return &Binding{owner: c, pipeline: pp, bindGroup: bg}, nil
}

// Dispatch encodes a single compute pass, submits it and blocks until the
// queue drains.
func (c *Context) Dispatch(p device.Pipeline, b device.Binding, grid device.Grid) error {
	pp, err := c.ownPipeline(p)
	if err != nil {
		return err
	}
	bb, ok := b.(*Binding)
	if !ok || bb.owner != c || bb.bindGroup == nil {
		return fmt.Errorf("%w: binding", device.ErrForeignHandle)
	}
	if grid.Groups() == 0 {
		return nil
	}

	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("dispatch encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pp.pipeline)
	pass.SetBindGroup(0, bb.bindGroup, nil)
	pass.DispatchWorkgroups(grid.X, grid.Y, grid.Z)
	err = pass.End()
	pass.Release()
	if err != nil {
		return fmt.Errorf("compute pass: %w", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("dispatch finish: %w", err)
	}
	c.queue.Submit(cmd)
	cmd.Release()

	c.device.Poll(true, nil)
	return nil
}
