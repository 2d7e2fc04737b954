package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gekko3d/rtdemo/rt/app"
	"github.com/gekko3d/rtdemo/rt/tracer"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// RenderFrame traces a single frame without a window and writes it to disk.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	opts, err := tracerOptions(ctx)
	if err != nil {
		return err
	}
	out := ctx.String("out")
	frames := ctx.Int("frames")
	if frames < 1 {
		frames = 1
	}

	gctx, tr, err := app.NewTracer(opts, traceLogger)
	if err != nil {
		return err
	}
	defer gctx.Release()
	defer tr.Close()

	logger.Infof("tracing %dx%d frame with %d sphere(s) on %s", opts.Width, opts.Height, opts.Spheres, gctx.Name())
	var pixels []uint32
	for i := 0; i < frames; i++ {
		if pixels, err = tr.Compute(); err != nil {
			return err
		}
	}

	start := time.Now()
	if err = app.WriteImage(out, app.Snapshot(pixels, int(opts.Width), int(opts.Height))); err != nil {
		return fmt.Errorf("error writing frame: %w", err)
	}
	logger.Infof("wrote frame to %s in %d ms", out, time.Since(start).Nanoseconds()/1000000)

	logger.Infof("frame statistics\n%s", statsTable(gctx.Name(), tr))
	return nil
}

func statsTable(deviceName string, tr *tracer.Tracer) string {
	stats := tr.Stats()
	grid := tr.Grid()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Device", "Frame", "Grid", "Frames", "Last frame"})
	table.Append([]string{
		deviceName,
		fmt.Sprintf("%dx%d", tr.Width(), tr.Height()),
		fmt.Sprintf("%dx%dx%d", grid.X, grid.Y, grid.Z),
		fmt.Sprintf("%d", stats.Frames),
		stats.LastFrame.String(),
	})
	table.SetFooter([]string{"", "", "", "AVERAGE", stats.AverageFrame().String()})
	table.Render()
	return buf.String()
}
