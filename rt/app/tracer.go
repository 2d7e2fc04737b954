package app

import (
	"github.com/gekko3d/rtdemo/rt/gpu"
	"github.com/gekko3d/rtdemo/rt/kernel"
	"github.com/gekko3d/rtdemo/rt/logging"
	"github.com/gekko3d/rtdemo/rt/tracer"
)

// NewTracer acquires a headless device, loads the embedded kernel and builds
// a tracer on them. The caller closes the tracer before releasing the
// context.
func NewTracer(opts tracer.Options, log logging.Logger) (*gpu.Context, *tracer.Tracer, error) {
	return newTracer(opts, gpu.Options{Width: opts.Width, Height: opts.Height}, log)
}

func newTracer(opts tracer.Options, gopts gpu.Options, log logging.Logger) (*gpu.Context, *tracer.Tracer, error) {
	log = logging.OrNop(log)

	ctx, err := gpu.Acquire(gopts, log)
	if err != nil {
		return nil, nil, tracer.DeviceError(err)
	}

	prog, err := kernel.Default()
	if err != nil {
		ctx.Release()
		return nil, nil, tracer.KernelError(err)
	}
	if prog.CompileErr != nil {
		log.Warnf("Kernel %s: naga could not compile it (%v); interface read from source", prog.Label(), prog.CompileErr)
	} else {
		log.Debugf("Kernel %s: %d bytes of SPIR-V, workgroup %v", prog.Label(), len(prog.SPIRV), prog.WorkgroupSize)
	}

	tr, err := tracer.New(ctx, prog, opts, log)
	if err != nil {
		ctx.Release()
		return nil, nil, err
	}
	return ctx, tr, nil
}
