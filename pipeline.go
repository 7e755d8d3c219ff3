package prp

import (
	"github.com/gekko3d/prp/portalrt/rt/camera"
	"github.com/gekko3d/prp/portalrt/rt/debug"
	"github.com/gekko3d/prp/portalrt/rt/portal"
	"github.com/gekko3d/prp/portalrt/rt/portalable"
	"github.com/gekko3d/prp/portalrt/rt/render"
)

// Pipeline owns the portal registry, the scene and the renderer, and runs
// them in frame order.
type Pipeline struct {
	Config   Config
	Registry *portal.Registry
	Scene    *render.SceneCuller
	Renderer *render.Renderer
	// Recorder is set when Config.Debug is on.
	Recorder *debug.Recorder

	log       Logger
	trackers  []*portalable.Tracker
	statics   []*portalable.Object
	lastFrame *portal.Frame
}

func NewPipeline(cfg Config, log Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = NewNopLogger()
	}
	scene := render.NewSceneCuller()
	r := render.NewRenderer(scene, cfg.MaxDepth, log.With("render"))
	r.DynamicBatching = cfg.DynamicBatching
	r.Instancing = cfg.Instancing

	p := &Pipeline{
		Config:   cfg,
		Registry: portal.NewRegistry(),
		Scene:    scene,
		Renderer: r,
		log:      log,
	}
	if cfg.Debug {
		log.SetDebug(true)
		p.Recorder = debug.NewRecorder()
		r.Observer = p.Recorder
	}
	return p, nil
}

func (p *Pipeline) AddPortal(portals ...*portal.Portal) {
	for _, pt := range portals {
		p.Registry.Register(pt)
	}
}

func (p *Pipeline) RemovePortal(pt *portal.Portal) {
	p.Registry.Unregister(pt)
}

func (p *Pipeline) AddLight(l render.Light) {
	p.Scene.AddLight(l)
}

// AddObject puts the object's renderables in the scene and tracks it
// against portals.
func (p *Pipeline) AddObject(obj *portalable.Object) *portalable.Tracker {
	for _, r := range obj.Renderables {
		p.Scene.Add(r)
	}
	t := portalable.NewTracker(obj, p.Scene, nil, p.log.With("portalable"))
	p.trackers = append(p.trackers, t)
	return t
}

// AddStatic puts the object's renderables in the scene without tracking
// it. Static objects are never cloned or sliced at portals.
func (p *Pipeline) AddStatic(obj *portalable.Object) {
	for _, r := range obj.Renderables {
		p.Scene.Add(r)
	}
	p.statics = append(p.statics, obj)
}

// RemoveObject drops the object, its clones and its renderables.
func (p *Pipeline) RemoveObject(obj *portalable.Object) bool {
	for i, s := range p.statics {
		if s != obj {
			continue
		}
		for _, r := range obj.Renderables {
			p.Scene.Remove(r)
		}
		p.statics = append(p.statics[:i], p.statics[i+1:]...)
		return true
	}
	for i, t := range p.trackers {
		if t.Object != obj {
			continue
		}
		t.Release()
		for _, r := range obj.Renderables {
			p.Scene.Remove(r)
		}
		p.trackers = append(p.trackers[:i], p.trackers[i+1:]...)
		return true
	}
	return false
}

func (p *Pipeline) Trackers() []*portalable.Tracker { return p.trackers }

// CloneCount is the number of live portal clones over all tracked objects.
func (p *Pipeline) CloneCount() int {
	n := 0
	for _, t := range p.trackers {
		n += len(t.Clones())
	}
	return n
}

// LastFrame is the snapshot set of the latest Step.
func (p *Pipeline) LastFrame() *portal.Frame { return p.lastFrame }

// Frame runs Step then renders each camera into sink.
func (p *Pipeline) Frame(poses []camera.Pose, sink render.CommandSink) render.FrameStats {
	p.Step()
	return p.Render(poses, sink)
}

// Step synchronizes every portal and moves tracked objects through them. It
// runs once per simulated frame however many targets are drawn.
func (p *Pipeline) Step() *portal.Frame {
	frame := p.Registry.Synchronize()
	p.lastFrame = frame
	for _, t := range p.trackers {
		t.Update(frame)
	}
	return frame
}

// Render draws poses into sink against the snapshots of the latest Step.
// Nothing moves, so it can be called again for other targets.
func (p *Pipeline) Render(poses []camera.Pose, sink render.CommandSink) render.FrameStats {
	frame := p.lastFrame
	if frame == nil {
		frame = p.Step()
	}
	if p.Recorder != nil {
		p.Recorder.Reset()
	}
	stats := p.Renderer.RenderFrame(frame, poses, sink)
	if stats.SkippedCameras > 0 {
		p.log.Debugf("frame %d: %d of %d cameras skipped", frame.Epoch, stats.SkippedCameras, stats.Cameras)
	}
	return stats
}
