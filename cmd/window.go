package cmd

import (
	"github.com/gekko3d/rtdemo/rt/app"
	"github.com/urfave/cli"
)

// RunWindow opens a window and traces the scene into it every frame until
// the window is closed. It must run on the main OS thread.
func RunWindow(ctx *cli.Context) error {
	setupLogging(ctx)

	topts, err := tracerOptions(ctx)
	if err != nil {
		return err
	}

	opts := app.DefaultOptions()
	opts.Drift = ctx.Bool("drift")
	opts.Debug = ctx.Bool("debug")
	opts.Speed = float32(ctx.Float64("speed"))
	if ctx.Bool("debug") {
		traceLogger.SetDebug(true)
	}

	window, err := app.NewWindow(int(topts.Width), int(topts.Height), opts.Title)
	if err != nil {
		return err
	}
	defer app.CloseWindow(window)

	a, err := app.New(window, opts, topts, traceLogger)
	if err != nil {
		return err
	}
	defer a.Release()

	logger.Infof("tracing %dx%d on %s; WASD/Space/Ctrl move, arrows turn, P dumps the profile, Esc quits",
		topts.Width, topts.Height, a.Context.Name())
	if err := a.Run(); err != nil {
		return err
	}

	stats := a.Tracer.Stats()
	logger.Infof("traced %d frame(s), %s average", stats.Frames, stats.AverageFrame())
	return nil
}
