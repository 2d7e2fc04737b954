package app

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/rtdemo/rt/gpu"
	"github.com/gekko3d/rtdemo/rt/logging"
	"github.com/gekko3d/rtdemo/rt/tracer"
	"github.com/go-gl/glfw/v3.3/glfw"
)

//go:embed fullscreen.wgsl
var fullscreenWGSL string

// DriftPerFrame is the x translation applied every frame when drift is on.
const DriftPerFrame = -0.01

type Options struct {
	Title string
	Debug bool

	// Drift translates the camera by DriftPerFrame along x every frame.
	Drift    bool
	Speed    float32
	TurnRate float32
}

func DefaultOptions() Options {
	return Options{
		Title:    "rtdemo",
		Speed:    2.0,
		TurnRate: 1.5,
	}
}

type App struct {
	Window  *glfw.Window
	Context *gpu.Context
	Tracer  *tracer.Tracer
	Config  *wgpu.SurfaceConfiguration

	RenderPipeline *wgpu.RenderPipeline
	FrameTexture   *wgpu.Texture
	FrameView      *wgpu.TextureView
	Sampler        *wgpu.Sampler
	RenderBG       *wgpu.BindGroup

	Controller *Controller
	Profiler   *Profiler

	opts   Options
	log    logging.Logger
	pixels []uint32

	LastTime       float64
	LastRenderTime float64
	FrameCount     int
	FPS            float64
	FPSTime        float64
}

// New acquires a device compatible with the window's surface, builds the
// tracer on it and sets up the blit that presents the framebuffer.
func New(window *glfw.Window, opts Options, topts tracer.Options, log logging.Logger) (*App, error) {
	log = logging.OrNop(log)

	ctx, tr, err := newTracer(topts, gpu.Options{
		Width:   topts.Width,
		Height:  topts.Height,
		Surface: wgpuglfw.GetSurfaceDescriptor(window),
	}, log)
	if err != nil {
		return nil, err
	}

	cam := tr.Camera()
	a := &App{
		Window:     window,
		Context:    ctx,
		Tracer:     tr,
		Controller: NewController(cam.Direction, opts.Speed, opts.TurnRate),
		Profiler:   NewProfiler(),
		opts:       opts,
		log:        log,
		pixels:     make([]uint32, tr.PixelCount()),
	}
	if err := a.init(); err != nil {
		a.Release()
		return nil, err
	}

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		a.Resize(width, height)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyP:
			a.log.Infof("Frame profile:\n%s", a.Profiler.StatsString())
		}
	})

	return a, nil
}

func (a *App) init() error {
	dev := a.Context.Device()
	adapter := a.Context.Adapter()
	surface := a.Context.Surface()
	if surface == nil {
		return fmt.Errorf("app: device context has no surface")
	}

	width, height := a.Window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 {
		return fmt.Errorf("app: surface reports no formats")
	}
	format := caps.Formats[0]
	for _, f := range caps.Formats {
		if f == wgpu.TextureFormatBGRA8Unorm {
			format = f
			break
		}
	}

	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, dev, a.Config)

	module, err := dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Fullscreen VS/FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: fullscreenWGSL},
	})
	if err != nil {
		return fmt.Errorf("app: blit shader: %w", err)
	}
	defer module.Release()

	a.RenderPipeline, err = dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Blit Pipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("app: blit pipeline: %w", err)
	}

	a.Sampler, err = dev.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("app: sampler: %w", err)
	}

	// The framebuffer's little-endian 0x00RRGGBB words are BGRX bytes.
	a.FrameTexture, err = dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Frame Tex",
		Size:          wgpu.Extent3D{Width: a.Tracer.Width(), Height: a.Tracer.Height(), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatBGRA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("app: frame texture: %w", err)
	}
	a.FrameView, err = a.FrameTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("app: frame view: %w", err)
	}

	layout := a.RenderPipeline.GetBindGroupLayout(0)
	defer layout.Release()

	a.RenderBG, err = dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Blit BG0",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: a.FrameView},
			{Binding: 1, Sampler: a.Sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("app: blit bind group: %w", err)
	}

	a.Profiler.SetCount("Spheres", len(a.Tracer.Scene().Spheres))
	a.Profiler.SetCount("Pixels", a.Tracer.PixelCount())

	a.LastTime = glfw.GetTime()
	return nil
}

// Resize reconfigures the surface. The traced frame keeps its size and is
// stretched by the blit.
func (a *App) Resize(w, h int) {
	if w > 0 && h > 0 {
		a.Config.Width = uint32(w)
		a.Config.Height = uint32(h)
		a.Context.Surface().Configure(a.Context.Adapter(), a.Context.Device(), a.Config)
	}
}

// Run drives the frame loop until the window is closed or a frame fails.
func (a *App) Run() error {
	for !a.Window.ShouldClose() {
		glfw.PollEvents()
		a.Update()
		if err := a.Render(); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) Update() {
	now := glfw.GetTime()
	dt := float32(now - a.LastTime)
	a.LastTime = now

	a.Profiler.Reset()
	a.Profiler.BeginScope("Input")
	a.Controller.Update(a.Tracer, WindowKeys(a.Window), dt)
	if a.opts.Drift {
		a.Tracer.Translate(DriftPerFrame, 0, 0)
	}
	a.Profiler.EndScope("Input")
}

// Render traces one frame and presents it. Only tracer failures are
// returned; presentation problems skip the frame.
func (a *App) Render() error {
	// Minimized.
	if fw, fh := a.Window.GetFramebufferSize(); fw == 0 || fh == 0 {
		return nil
	}

	a.Profiler.BeginScope("Trace")
	err := a.Tracer.ComputeInto(a.pixels)
	a.Profiler.EndScope("Trace")
	if err != nil {
		return err
	}
	a.Profiler.RecordTracer(a.Tracer.Stats())

	a.Profiler.BeginScope("Upload")
	w, h := a.Tracer.Width(), a.Tracer.Height()
	err = a.Context.Queue().WriteTexture(a.FrameTexture.AsImageCopy(), PixelBytes(a.pixels), &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  w * 4,
		RowsPerImage: h,
	}, &wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1})
	a.Profiler.EndScope("Upload")
	if err != nil {
		a.log.Errorf("WriteTexture failed: %v", err)
		return nil
	}

	a.Profiler.BeginScope("Present")
	a.present()
	a.Profiler.EndScope("Present")

	a.updateFPS()
	return nil
}

func (a *App) present() {
	nextTexture, err := a.Context.Surface().GetCurrentTexture()
	if err != nil {
		a.log.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.log.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	encoder, err := a.Context.Device().CreateCommandEncoder(nil)
	if err != nil {
		a.log.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}
	defer encoder.Release()

	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{0, 0, 0, 1},
		}},
	})
	rPass.SetPipeline(a.RenderPipeline)
	rPass.SetBindGroup(0, a.RenderBG, nil)
	rPass.Draw(3, 1, 0, 0)
	if err := rPass.End(); err != nil {
		a.log.Errorf("Render pass End failed: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.log.Errorf("Encoder Finish failed: %v", err)
		return
	}
	defer cmd.Release()
	a.Context.Queue().Submit(cmd)
	a.Context.Surface().Present()
}

func (a *App) updateFPS() {
	now := glfw.GetTime()
	if a.LastRenderTime > 0 {
		a.FrameCount++
		a.FPSTime += now - a.LastRenderTime
		if a.FPSTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.FPSTime
			a.FrameCount = 0
			a.FPSTime = 0
			if a.opts.Debug {
				a.Window.SetTitle(fmt.Sprintf("%s - %.1f FPS", a.opts.Title, a.FPS))
				a.log.Debugf("%.1f FPS\n%s", a.FPS, a.Profiler.StatsString())
			}
		}
	}
	a.LastRenderTime = now
}

// Release frees the blit resources, then the tracer, then the device.
func (a *App) Release() {
	if a.RenderBG != nil {
		a.RenderBG.Release()
		a.RenderBG = nil
	}
	if a.FrameView != nil {
		a.FrameView.Release()
		a.FrameView = nil
	}
	if a.FrameTexture != nil {
		a.FrameTexture.Release()
		a.FrameTexture = nil
	}
	if a.Sampler != nil {
		a.Sampler.Release()
		a.Sampler = nil
	}
	if a.RenderPipeline != nil {
		a.RenderPipeline.Release()
		a.RenderPipeline = nil
	}
	if a.Tracer != nil {
		a.Tracer.Close()
		a.Tracer = nil
	}
	if a.Context != nil {
		a.Context.Release()
		a.Context = nil
	}
}
