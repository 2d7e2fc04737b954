package cmd

import (
	"fmt"

	"github.com/gekko3d/rtdemo/rt/core"
	"github.com/gekko3d/rtdemo/rt/tracer"
	"github.com/urfave/cli"
)

// SceneFlags configure the tracer for every command that renders.
var SceneFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "width",
		Value: core.DefaultWidth,
		Usage: "frame width",
	},
	cli.IntFlag{
		Name:  "height",
		Value: core.DefaultHeight,
		Usage: "frame height",
	},
	cli.IntFlag{
		Name:  "spheres, n",
		Value: core.DefaultSpheres,
		Usage: "number of spheres in the scene",
	},
	cli.StringFlag{
		Name:  "scene",
		Value: core.PolicyLine.String(),
		Usage: "scene layout: line or ground",
	},
	cli.StringFlag{
		Name:  "scene-buffer",
		Value: tracer.Immutable.String(),
		Usage: "scene buffer policy: immutable or host",
	},
}

func tracerOptions(ctx *cli.Context) (tracer.Options, error) {
	opts := tracer.DefaultOptions()

	if ctx.Int("width") < 0 || ctx.Int("height") < 0 {
		return opts, fmt.Errorf("%w: %dx%d", core.ErrDimensions, ctx.Int("width"), ctx.Int("height"))
	}
	opts.Width = uint32(ctx.Int("width"))
	opts.Height = uint32(ctx.Int("height"))
	opts.Spheres = ctx.Int("spheres")

	var err error
	if opts.Scene, err = core.ParseScenePolicy(ctx.String("scene")); err != nil {
		return opts, err
	}
	if opts.SceneBuffer, err = tracer.ParseSceneBufferPolicy(ctx.String("scene-buffer")); err != nil {
		return opts, err
	}
	if err = opts.Validate(); err != nil {
		return opts, err
	}
	_, err = opts.BuildScene()
	return opts, err
}
