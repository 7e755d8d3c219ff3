package portal

import (
	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/gekko3d/prp/portalrt/rt/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// DefaultThickness is the depth of the touch volume along Forward.
const DefaultThickness float32 = 0.5

// Portal is one side of a pair. Forward (local -Z) points into the portal
// surface, the visible face looks back along -Forward.
type Portal struct {
	ID        string
	Name      string
	Transform *core.Transform
	// Output is where things entering this portal come out. Nil means the
	// portal is drawn but never traversed.
	Output *Portal
	// Surface is a 4-vertex quad in local space.
	Surface *mesh.Mesh
	// Volume is the local-space touch and crossing box.
	Volume core.AABB
}

// New builds a width x height portal at transform.
func New(name string, transform *core.Transform, width, height float32) *Portal {
	if transform == nil {
		transform = core.NewTransform()
	}
	return &Portal{
		ID:        uuid.NewString(),
		Name:      name,
		Transform: transform,
		Surface:   mesh.NewQuad(width, height),
		Volume:    core.AABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{width / 2, height / 2, DefaultThickness / 2}),
	}
}

// Pair links a and b in both directions.
func Pair(a, b *Portal) {
	a.Output = b
	b.Output = a
}

func (p *Portal) Traversable() bool {
	return p != nil && p.Output != nil
}

// LocalCorners returns the first 4 surface vertices.
func (p *Portal) LocalCorners() [4]mgl32.Vec3 {
	var c [4]mgl32.Vec3
	copy(c[:], p.Surface.Vertices)
	return c
}

// Snapshot is the frozen world state of a portal for one frame.
type Snapshot struct {
	Portal  *Portal
	Corners [4]mgl32.Vec3
	Center  mgl32.Vec3
	// Plane faces the viewer side: positive distance is in front of the
	// visible face.
	Plane        core.Plane
	Forward      mgl32.Vec3
	Bounds       core.AABB
	LocalToWorld mgl32.Mat4
	WorldToLocal mgl32.Mat4
	Link         Link
	Output       Handle
	// ExitPlane is the Plane of the output snapshot. Only set when Output
	// is valid.
	ExitPlane core.Plane
}

func snapshot(p *Portal) Snapshot {
	l2w := p.Transform.ObjectToWorld()
	s := Snapshot{
		Portal:       p,
		Center:       p.Transform.Position,
		Forward:      p.Transform.Forward(),
		Bounds:       p.Volume.Transform(l2w),
		LocalToWorld: l2w,
		WorldToLocal: p.Transform.WorldToObject(),
	}
	for i, c := range p.LocalCorners() {
		s.Corners[i] = core.MulPoint(l2w, c)
	}
	s.Plane = core.NewPlane(s.Forward.Mul(-1), s.Center)
	if p.Output != nil {
		s.Link = NewLink(p.Transform, p.Output.Transform)
	}
	return s
}
