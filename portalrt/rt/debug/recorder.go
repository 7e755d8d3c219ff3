package debug

import (
	"github.com/gekko3d/prp/portalrt/rt/camera"
	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/gekko3d/prp/portalrt/rt/portal"
	"github.com/go-gl/mathgl/mgl32"
)

// Layer is what one virtual camera looked like when it was built.
type Layer struct {
	Depth    int
	Entry    string
	Position mgl32.Vec3
	Corners  core.FrustumCorners
	Planes   core.Frustum
	Narrowed [4]bool
	// EntryPlane is the plane of the portal the layer is seen through.
	EntryPlane core.Plane
}

// Line is a colored segment for a gizmo pass.
type Line struct {
	P1, P2 mgl32.Vec3
	Color  [4]float32
}

// Recorder keeps every layer of the frames since the last Reset. It
// satisfies render.LayerObserver.
type Recorder struct {
	// MaxLayers bounds memory when Reset is never called. 0 means 1024.
	MaxLayers int

	layers  []Layer
	dropped int
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) ObserveLayer(cam *camera.VirtualCamera, entry *portal.Snapshot) {
	limit := r.MaxLayers
	if limit <= 0 {
		limit = 1024
	}
	if len(r.layers) >= limit {
		r.dropped++
		return
	}
	l := Layer{
		Depth:    cam.Depth,
		Position: cam.Position,
		Corners:  cam.Frustum.Corners(),
		Planes:   cam.Frustum,
		Narrowed: cam.Narrowed,
	}
	if entry != nil {
		l.Entry = entry.Portal.Name
		l.EntryPlane = entry.Plane
	}
	r.layers = append(r.layers, l)
}

func (r *Recorder) Layers() []Layer { return r.layers }

// Dropped counts layers past MaxLayers.
func (r *Recorder) Dropped() int { return r.dropped }

func (r *Recorder) Reset() {
	r.layers = r.layers[:0]
	r.dropped = 0
}

// palette cycles by depth.
var palette = [][4]float32{
	{1, 0.2, 0.2, 1},
	{0.2, 1, 0.2, 1},
	{0.3, 0.5, 1, 1},
	{1, 1, 0.2, 1},
}

// Lines returns the 12 frustum edges of every recorded layer.
func (r *Recorder) Lines() []Line {
	var out []Line
	for _, l := range r.layers {
		color := palette[(l.Depth-1+len(palette))%len(palette)]
		c := l.Corners
		edges := [12][2]mgl32.Vec3{
			{c.TopNearLeft, c.TopNearRight}, {c.TopNearRight, c.BotNearRight},
			{c.BotNearRight, c.BotNearLeft}, {c.BotNearLeft, c.TopNearLeft},
			{c.TopFarLeft, c.TopFarRight}, {c.TopFarRight, c.BotFarRight},
			{c.BotFarRight, c.BotFarLeft}, {c.BotFarLeft, c.TopFarLeft},
			{c.TopNearLeft, c.TopFarLeft}, {c.TopNearRight, c.TopFarRight},
			{c.BotNearLeft, c.BotFarLeft}, {c.BotNearRight, c.BotFarRight},
		}
		for _, e := range edges {
			out = append(out, Line{P1: e[0], P2: e[1], Color: color})
		}
	}
	return out
}
