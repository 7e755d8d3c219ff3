package portalable

import (
	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/gekko3d/prp/portalrt/rt/mesh"
	"github.com/gekko3d/prp/portalrt/rt/render"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type RigidBody struct {
	Velocity        mgl32.Vec3
	AngularVelocity mgl32.Vec3
	Mass            float32
	IsStatic        bool
	// DetectCollisions is switched off while the object straddles a portal.
	DetectCollisions bool
}

func NewRigidBody(mass float32) *RigidBody {
	return &RigidBody{Mass: mass, DetectCollisions: true}
}

func (rb *RigidBody) ApplyImpulse(impulse mgl32.Vec3) {
	if rb.IsStatic {
		return
	}
	if rb.Mass > 0 {
		rb.Velocity = rb.Velocity.Add(impulse.Mul(1.0 / rb.Mass))
	} else {
		rb.Velocity = rb.Velocity.Add(impulse)
	}
}

// Collisions is the physics side the tracker talks to.
type Collisions interface {
	SetDetectCollisions(body *RigidBody, enabled bool)
}

// BodyCollisions flips the flag on the body itself.
type BodyCollisions struct{}

func (BodyCollisions) SetDetectCollisions(body *RigidBody, enabled bool) {
	body.DetectCollisions = enabled
}

// Scene receives the clones. *render.SceneCuller satisfies it.
type Scene interface {
	Add(r *render.Renderable)
	Remove(r *render.Renderable) bool
}

// Object is something that can travel through portals. Its reference point
// is Transform.Position. Renderables may share Transform or carry their own.
type Object struct {
	Name        string
	Transform   *core.Transform
	Body        *RigidBody
	Renderables []*render.Renderable
}

func NewObject(name string, transform *core.Transform, renderables ...*render.Renderable) *Object {
	if transform == nil {
		transform = core.NewTransform()
	}
	return &Object{Name: name, Transform: transform, Renderables: renderables}
}

// transforms lists every distinct transform of o, the root first.
func (o *Object) transforms() []*core.Transform {
	out := []*core.Transform{o.Transform}
	for _, r := range o.Renderables {
		if r.Transform == nil {
			continue
		}
		seen := false
		for _, t := range out {
			if t == r.Transform {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, r.Transform)
		}
	}
	return out
}

// CloneDescriptor is everything needed to build the mirror of a renderable
// on the other side of a portal.
type CloneDescriptor struct {
	Name     string
	Mesh     *mesh.Mesh
	Material render.Material
	Layer    uint8
	Scale    mgl32.Vec3
}

// Describe captures r with m standing in for its mesh.
func Describe(r *render.Renderable, m *mesh.Mesh) CloneDescriptor {
	scale := mgl32.Vec3{1, 1, 1}
	if r.Transform != nil {
		scale = r.Transform.Scale
	}
	return CloneDescriptor{
		Name:     r.Name + " (portaled)",
		Mesh:     m,
		Material: r.Material,
		Layer:    r.Layer,
		Scale:    scale,
	}
}

// Clone is a renderable mirroring an original through a portal.
type Clone struct {
	ID         string
	Renderable *render.Renderable
	Slicable   *mesh.Slicable
}

func (d CloneDescriptor) Instantiate() *Clone {
	t := core.NewTransform()
	t.Scale = d.Scale
	r := render.NewRenderable(d.Name, d.Mesh, t, d.Material)
	r.Layer = d.Layer
	return &Clone{
		ID:         uuid.NewString(),
		Renderable: r,
		Slicable:   mesh.NewSlicable(d.Mesh),
	}
}
