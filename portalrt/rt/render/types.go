package render

import (
	"sort"

	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/gekko3d/prp/portalrt/rt/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type Queue uint8

const (
	QueueOpaque Queue = iota
	QueueTransparent
)

type SortMode uint8

const (
	SortFrontToBack SortMode = iota
	SortBackToFront
)

// RegionOp is one step of the per-pixel region counter that restricts a
// layer to a portal's silhouette.
type RegionOp uint8

const (
	// RegionIncrease adds 1 everywhere, saturating at 255.
	RegionIncrease RegionOp = iota
	// RegionCarve subtracts 1 inside the portal mesh where the counter is 1.
	RegionCarve
	// RegionDecrease subtracts 1 everywhere, saturating at 0.
	RegionDecrease
	// RegionDepthOnly writes the portal mesh depth where the counter is 0.
	RegionDepthOnly
)

func (op RegionOp) String() string {
	switch op {
	case RegionIncrease:
		return "increase"
	case RegionCarve:
		return "carve"
	case RegionDecrease:
		return "decrease"
	case RegionDepthOnly:
		return "depth-only"
	}
	return "unknown"
}

// DrawSettings filter and order one DrawRenderers call. Masked draws only
// pass where the region counter equals StencilRef.
type DrawSettings struct {
	Queue           Queue
	Sort            SortMode
	Masked          bool
	StencilRef      uint8
	DynamicBatching bool
	Instancing      bool
}

type Material struct {
	Name        string
	Color       mgl32.Vec4
	Transparent bool
}

// Renderable is a mesh drawn at a transform.
type Renderable struct {
	ID        string
	Name      string
	Mesh      *mesh.Mesh
	Transform *core.Transform
	Material  Material
	// Layer is a bit index tested against the culling mask.
	Layer   uint8
	Enabled bool
}

func NewRenderable(name string, m *mesh.Mesh, t *core.Transform, mat Material) *Renderable {
	if t == nil {
		t = core.NewTransform()
	}
	return &Renderable{
		ID:        uuid.NewString(),
		Name:      name,
		Mesh:      m,
		Transform: t,
		Material:  mat,
		Enabled:   true,
	}
}

func (r *Renderable) WorldBounds() core.AABB {
	return r.Mesh.Bounds().Transform(r.Transform.ObjectToWorld())
}

func (r *Renderable) Queue() Queue {
	if r.Material.Transparent {
		return QueueTransparent
	}
	return QueueOpaque
}

// VisibleSet is the result of culling one layer.
type VisibleSet struct {
	Renderables []*Renderable
}

// Filter returns the renderables of queue ordered by mode relative to eye.
func (v VisibleSet) Filter(queue Queue, mode SortMode, eye mgl32.Vec3) []*Renderable {
	out := make([]*Renderable, 0, len(v.Renderables))
	for _, r := range v.Renderables {
		if r.Queue() == queue {
			out = append(out, r)
		}
	}
	dist := func(r *Renderable) float32 {
		d := r.WorldBounds().Center().Sub(eye)
		return d.Dot(d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if mode == SortBackToFront {
			return dist(out[i]) > dist(out[j])
		}
		return dist(out[i]) < dist(out[j])
	})
	return out
}
