package main

import (
	"os"
	"runtime"

	"github.com/gekko3d/rtdemo/cmd"
	"github.com/urfave/cli"
)

func init() {
	// glfw and the surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	app := cli.NewApp()
	app.Name = "rtdemo"
	app.Usage = "trace spheres on the GPU"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "window",
			Usage: "trace the scene into a window every frame",
			Description: `
Open a window and trace the scene into it once per frame. WASD moves the
camera in the view plane, Space and Left Ctrl move it up and down and the
arrow keys turn it. P logs the frame profile and Esc quits.`,
			Flags: append(append([]cli.Flag{}, cmd.SceneFlags...),
				cli.BoolFlag{
					Name:  "drift",
					Usage: "translate the camera by -0.01 along x every frame",
				},
				cli.BoolFlag{
					Name:  "debug",
					Usage: "show FPS in the title and log per-frame profiles",
				},
				cli.Float64Flag{
					Name:  "speed",
					Value: 2.0,
					Usage: "camera movement speed in units per second",
				},
			),
			Action: cmd.RunWindow,
		},
		{
			Name:  "frame",
			Usage: "trace a single frame without a window and save it",
			Description: `
Trace the scene once on the default adapter and write the framebuffer to an
image. The format follows the file extension: png, bmp, tif/tiff or gif.`,
			Flags: append(append([]cli.Flag{}, cmd.SceneFlags...),
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the traced frame",
				},
				cli.IntFlag{
					Name:  "frames",
					Value: 1,
					Usage: "number of frames to trace before saving the last one",
				},
			),
			Action: cmd.RenderFrame,
		},
		{
			Name:  "limits",
			Usage: "print the adapter limits the tracer depends on",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "low-power",
					Usage: "query the low-power adapter instead",
				},
			},
			Action: cmd.ListLimits,
		},
	}

	if err := app.Run(os.Args); err != nil {
		cmd.Fatal(err)
	}
}
