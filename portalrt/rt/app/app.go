package app

import (
	"github.com/gekko3d/prp"
	"github.com/gekko3d/prp/portalrt/rt/camera"
	"github.com/gekko3d/prp/portalrt/rt/gpu"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// uniformSlots bounds the draws of one frame.
const uniformSlots = 4096

// profileWindow is how many frames the profiler averages.
const profileWindow = 60

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	DepthTexture *wgpu.Texture
	DepthView    *wgpu.TextureView

	Pass     *gpu.PortalPass
	Pipeline *prp.Pipeline
	Camera   *FlyingCamera
	Profiler *Profiler
	// Extra are drawn after the flying camera each frame.
	Extra []camera.Pose

	Move          mgl32.Vec3
	Look          mgl32.Vec2
	MouseCaptured bool
	DebugMode     bool

	log            prp.Logger
	previous       mgl32.Vec3
	LastTime       float64
	LastRenderTime float64
	FrameCount     int
	FPS            float64
	FPSTime        float64
}

func NewApp(window *glfw.Window, pipeline *prp.Pipeline, start camera.Pose, log prp.Logger) *App {
	if log == nil {
		log = prp.NewNopLogger()
	}
	cam := NewFlyingCamera(start)
	return &App{
		Window:   window,
		Pipeline: pipeline,
		Camera:   cam,
		Profiler: NewProfiler(profileWindow),
		log:      log,
		previous: cam.Position,
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return err
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return err
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(adapter, a.Device, a.Config)

	if err := a.setupDepth(width, height); err != nil {
		return err
	}

	a.Pass, err = gpu.NewPortalPass(a.Device, a.Config.Format, uniformSlots)
	if err != nil {
		return err
	}

	a.LastTime = glfw.GetTime()
	return nil
}

// setupDepth creates the depth and region counter attachment.
func (a *App) setupDepth(w, h int) error {
	if w == 0 || h == 0 {
		return nil
	}
	if a.DepthView != nil {
		a.DepthView.Release()
	}
	if a.DepthTexture != nil {
		a.DepthTexture.Release()
	}

	var err error
	a.DepthTexture, err = a.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth Stencil",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        gpu.DepthStencilFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}
	a.DepthView, err = a.DepthTexture.CreateView(nil)
	return err
}

func (a *App) Resize(w, h int) {
	if w > 0 && h > 0 {
		a.Config.Width = uint32(w)
		a.Config.Height = uint32(h)
		a.Surface.Configure(a.Adapter, a.Device, a.Config)
		if err := a.setupDepth(w, h); err != nil {
			a.log.Errorf("resize: %v", err)
		}
	}
}

// Update moves the camera and carries it through any portal it crossed
// during the last frame.
func (a *App) Update() {
	now := glfw.GetTime()
	dt := float32(now - a.LastTime)
	a.LastTime = now

	a.readKeys()
	look := a.Look
	if !a.MouseCaptured {
		look = mgl32.Vec2{}
	}
	a.Camera.Update(a.Move, look, dt)
	a.Look = mgl32.Vec2{}

	if frame := a.Pipeline.LastFrame(); frame != nil {
		if h, ok := frame.SegmentCrossed(a.previous, a.Camera.Position); ok {
			entry, _ := frame.Get(h)
			a.Camera.Teleport(entry.Link)
			a.log.Debugf("camera went through %s", entry.Portal.Name)
		}
	}
	a.previous = a.Camera.Position
}

func (a *App) readKeys() {
	pressed := func(k glfw.Key) float32 {
		if a.Window.GetKey(k) == glfw.Press {
			return 1
		}
		return 0
	}
	a.Move = mgl32.Vec3{
		pressed(glfw.KeyD) - pressed(glfw.KeyA),
		pressed(glfw.KeySpace) - pressed(glfw.KeyLeftControl),
		pressed(glfw.KeyW) - pressed(glfw.KeyS),
	}
}

func (a *App) aspect() float32 {
	if a.Config.Height == 0 {
		return 1
	}
	return float32(a.Config.Width) / float32(a.Config.Height)
}

func (a *App) Render() {
	nextTexture, err := a.Surface.GetCurrentTexture()
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

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		a.log.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}

	poses := append([]camera.Pose{a.Camera.Pose(a.aspect())}, a.Extra...)

	a.Profiler.BeginFrame()
	a.Pass.Begin(encoder, view, a.DepthView)
	stats := a.Pipeline.Frame(poses, a.Pass)
	a.Profiler.EndFrame(stats, a.Pipeline.CloneCount())
	if err := a.Pass.Err(); err != nil {
		a.log.Errorf("portal pass: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.log.Errorf("Encoder Finish failed: %v", err)
		return
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()

	now := glfw.GetTime()
	if a.LastRenderTime > 0 {
		a.FrameCount++
		a.FPSTime += now - a.LastRenderTime
		if a.FPSTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.FPSTime
			a.FrameCount = 0
			a.FPSTime = 0
			if a.DebugMode {
				a.log.Debugf("%.1f fps, %d cached meshes\n%s", a.FPS, a.Pass.Meshes(), a.Profiler)
			}
		}
	}
	a.LastRenderTime = now
}

func (a *App) Release() {
	if a.Pass != nil {
		a.Pass.Release()
	}
	if a.DepthView != nil {
		a.DepthView.Release()
	}
	if a.DepthTexture != nil {
		a.DepthTexture.Release()
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if a.Adapter != nil {
		a.Adapter.Release()
	}
	if a.Surface != nil {
		a.Surface.Release()
	}
	if a.Instance != nil {
		a.Instance.Release()
	}
}
