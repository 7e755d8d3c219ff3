package render

import (
	"github.com/gekko3d/prp/portalrt/rt/camera"
	"github.com/gekko3d/prp/portalrt/rt/portal"
)

// CommandSink receives the draw stream of a frame. Region ops and draws use
// the camera of the latest SetupCamera call.
type CommandSink interface {
	SetupCamera(cam *camera.VirtualCamera)
	ClearTarget()
	UploadLights(lights PackedLights)
	// FillRegion applies RegionIncrease or RegionDecrease to the whole target.
	FillRegion(op RegionOp)
	// DrawRegionMesh applies RegionCarve or RegionDepthOnly inside the
	// portal surface.
	DrawRegionMesh(p *portal.Snapshot, op RegionOp)
	DrawRenderers(cam *camera.VirtualCamera, visible VisibleSet, settings DrawSettings)
	DrawSkybox(cam *camera.VirtualCamera, masked bool)
	Submit()
}

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}

// LayerObserver is told about every virtual camera derived through a portal.
type LayerObserver interface {
	ObserveLayer(cam *camera.VirtualCamera, entry *portal.Snapshot)
}

// FrameStats counts the work of the last RenderFrame.
type FrameStats struct {
	Cameras        int
	SkippedCameras int
	// LayersDrawn counts scene draws, base layers included.
	LayersDrawn int
	// LayerCalls counts renderLayer invocations.
	LayerCalls int
	// MaxDepth is the deepest virtual camera built.
	MaxDepth int
}

// Renderer draws host cameras and everything visible through portals, depth
// first, into a CommandSink.
type Renderer struct {
	// MaxDepth counts layers including the base one. 1 disables portals.
	MaxDepth        int
	DynamicBatching bool
	Instancing      bool
	Culler          Culler
	Observer        LayerObserver

	log   Logger
	stats FrameStats
}

func NewRenderer(culler Culler, maxDepth int, log Logger) *Renderer {
	if log == nil {
		log = nopLogger{}
	}
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &Renderer{MaxDepth: maxDepth, Culler: culler, log: log}
}

func (r *Renderer) Stats() FrameStats { return r.stats }

// RenderFrame renders every camera against the portal snapshots of frame.
func (r *Renderer) RenderFrame(frame *portal.Frame, poses []camera.Pose, sink CommandSink) FrameStats {
	r.stats = FrameStats{}
	for _, pose := range poses {
		r.RenderCamera(frame, pose, sink)
	}
	return r.stats
}

// RenderCamera renders one host camera. It returns false when the camera was
// skipped.
func (r *Renderer) RenderCamera(frame *portal.Frame, pose camera.Pose, sink CommandSink) bool {
	r.stats.Cameras++
	params, ok := r.Culler.CullingParameters(pose)
	if !ok {
		r.stats.SkippedCameras++
		r.log.Warnf("no culling parameters for camera %q, skipping", pose.Name)
		return false
	}

	base := camera.New(pose)
	sink.SetupCamera(base)
	sink.ClearTarget()
	lights := PackLights(r.Culler.Lights())
	if lights.Dropped > 0 {
		r.log.Debugf("%d lights over the limit of %d ignored", lights.Dropped, MaxLights)
	}
	sink.UploadLights(lights)

	visible := frame.VisibleInFrustum(base.Frustum, portal.Handle{}, base.Position)
	if len(visible) > 0 && r.MaxDepth > 1 {
		r.renderLayer(frame, params, sink, 0, base, visible)
		sink.SetupCamera(base)
	}

	r.drawScene(sink, base, r.Culler.Cull(params, base.Frustum), false)
	sink.Submit()
	return true
}

// renderLayer draws what viewer sees through each visible portal. Children
// resolve completely before the parent releases the portal's region, so
// sibling portals can reuse the counter.
func (r *Renderer) renderLayer(frame *portal.Frame, params CullingParameters, sink CommandSink, depth int, viewer *camera.VirtualCamera, visible []portal.Handle) {
	r.stats.LayerCalls++
	for _, h := range visible {
		if h == viewer.Output {
			continue
		}
		entry, ok := frame.Get(h)
		if !ok || !entry.Output.Valid() {
			continue
		}

		sink.SetupCamera(viewer)
		sink.FillRegion(RegionIncrease)
		sink.DrawRegionMesh(entry, RegionCarve)

		next := viewer.Next(entry)
		if next.Depth > r.stats.MaxDepth {
			r.stats.MaxDepth = next.Depth
		}
		if r.Observer != nil {
			r.Observer.ObserveLayer(next, entry)
		}

		nextVisible := frame.VisibleInFrustum(next.Frustum, entry.Output, next.Position)
		if depth+2 < r.MaxDepth && len(nextVisible) > 0 {
			r.renderLayer(frame, params, sink, depth+1, next, nextVisible)
		}

		sink.SetupCamera(next)
		r.drawScene(sink, next, r.Culler.Cull(params, next.Frustum), true)

		sink.SetupCamera(viewer)
		sink.FillRegion(RegionDecrease)
		sink.DrawRegionMesh(entry, RegionDepthOnly)
	}
}

// drawScene issues opaque, skybox and transparent draws for one layer.
func (r *Renderer) drawScene(sink CommandSink, cam *camera.VirtualCamera, visible VisibleSet, masked bool) {
	r.stats.LayersDrawn++
	settings := DrawSettings{
		Queue:           QueueOpaque,
		Sort:            SortFrontToBack,
		Masked:          masked,
		DynamicBatching: r.DynamicBatching,
		Instancing:      r.Instancing,
	}
	sink.DrawRenderers(cam, visible, settings)
	sink.DrawSkybox(cam, masked)
	settings.Queue = QueueTransparent
	settings.Sort = SortBackToFront
	sink.DrawRenderers(cam, visible, settings)
}
