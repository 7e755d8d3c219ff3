package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/gekko3d/prp"
	"github.com/gekko3d/prp/portalrt/rt/app"
	"github.com/gekko3d/prp/portalrt/rt/camera"
	"github.com/gekko3d/prp/portalrt/rt/stencil"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "TOML config file")
	scenePath := flag.String("scene", "", "YAML scene file")
	debug := flag.Bool("debug", false, "Log and record every portal layer")
	out := flag.String("out", "", "Render one frame per scene camera to PNG files with this prefix and exit")
	width := flag.Int("width", 1280, "Image or window width")
	height := flag.Int("height", 720, "Image or window height")
	flag.Parse()

	cfg := prp.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = prp.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *debug {
		cfg.Debug = true
	}
	log := prp.NewDefaultLogger(cfg.LogPrefix, cfg.Debug)

	pipeline, err := prp.NewPipeline(cfg, log)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	var cameras []camera.Pose
	if *scenePath != "" {
		def, err := prp.LoadScene(*scenePath)
		if err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
		loaded, err := def.Build(pipeline)
		if err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
		cameras = loaded.Cameras
	}
	if len(cameras) == 0 {
		cameras = []camera.Pose{camera.LookAt(mgl32.Vec3{0, 1, 5}, mgl32.Vec3{0, 1, 0})}
	}

	if *out != "" {
		if err := renderImages(pipeline, cameras, *out, *width, *height, log); err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
		return
	}

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(*width, *height, "Portal RT", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	application := app.NewApp(window, pipeline, cameras[0], log)
	application.DebugMode = cfg.Debug
	application.Extra = cameras[1:]
	if err := application.Init(); err != nil {
		panic(err)
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	var lastX, lastY float64
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if application.MouseCaptured {
			application.Look = application.Look.Add(mgl32.Vec2{float32(xpos - lastX), float32(ypos - lastY)})
		}
		lastX, lastY = xpos, ypos
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyTab && action == glfw.Press {
			application.MouseCaptured = !application.MouseCaptured
			if application.MouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		}
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Update()
		application.Render()
	}
}

// renderImages steps the scene once, then draws each camera on the CPU and
// writes <prefix>-<i>.png.
func renderImages(p *prp.Pipeline, cameras []camera.Pose, prefix string, w, h int, log prp.Logger) error {
	p.Step()
	for i, pose := range cameras {
		pose.Aspect = float32(w) / float32(h)
		target := stencil.NewTarget(w, h)
		stats := p.Render([]camera.Pose{pose}, target)

		name := fmt.Sprintf("%s-%d.png", prefix, i)
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		if err := target.WritePNG(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Infof("%s: %d layers, depth %d", name, stats.LayersDrawn, stats.MaxDepth)
	}
	return nil
}
