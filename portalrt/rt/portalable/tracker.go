package portalable

import (
	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/gekko3d/prp/portalrt/rt/mesh"
	"github.com/gekko3d/prp/portalrt/rt/portal"
	"github.com/gekko3d/prp/portalrt/rt/render"
	"github.com/go-gl/mathgl/mgl32"
)

type Logger interface {
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

type Stats struct {
	Teleports       int
	ClonesCreated   int
	ClonesDestroyed int
	Slices          int
}

// element is one renderable of an object seen against one portal.
type element struct {
	renderable *render.Renderable
	original   *mesh.Slicable
	clone      *Clone
	context    mesh.Context
}

// portaledCopy exists while an object touches a portal.
type portaledCopy struct {
	portal   *portal.Portal
	elements []*element
}

// Tracker moves one object through portals and keeps its clones. Call
// Update once per frame after the registry was synchronized.
type Tracker struct {
	Object     *Object
	Scene      Scene
	Collisions Collisions

	log      Logger
	previous mgl32.Vec3
	slicers  map[*render.Renderable]*mesh.Slicable
	copies   map[*portal.Portal]*portaledCopy
	order    []*portal.Portal
	stats    Stats
}

func NewTracker(obj *Object, scene Scene, collisions Collisions, log Logger) *Tracker {
	if log == nil {
		log = nopLogger{}
	}
	if collisions == nil {
		collisions = BodyCollisions{}
	}
	return &Tracker{
		Object:     obj,
		Scene:      scene,
		Collisions: collisions,
		log:        log,
		previous:   obj.Transform.Position,
		slicers:    make(map[*render.Renderable]*mesh.Slicable),
		copies:     make(map[*portal.Portal]*portaledCopy),
	}
}

func (t *Tracker) Stats() Stats { return t.stats }

// Touching lists the portals the object currently has copies for.
func (t *Tracker) Touching() []*portal.Portal {
	return append([]*portal.Portal(nil), t.order...)
}

// Clones returns the live clones in touch order.
func (t *Tracker) Clones() []*Clone {
	var out []*Clone
	for _, p := range t.order {
		for _, e := range t.copies[p].elements {
			if e.clone != nil {
				out = append(out, e.clone)
			}
		}
	}
	return out
}

func (t *Tracker) Update(frame *portal.Frame) {
	t.teleport(frame)
	t.updateTouching(frame)
	for _, p := range t.order {
		t.updateCopy(frame, t.copies[p])
	}
}

func (t *Tracker) teleport(frame *portal.Frame) {
	current := t.Object.Transform.Position
	if h, ok := frame.SegmentCrossed(t.previous, current); ok {
		entry, _ := frame.Get(h)
		link := entry.Link
		for _, tr := range t.Object.transforms() {
			tr.SetPose(link.Point(tr.Position), link.Rotation(tr.Rotation))
		}
		if t.Object.Body != nil {
			t.Object.Body.Velocity = link.Direction(t.Object.Body.Velocity)
			t.Object.Body.AngularVelocity = link.Direction(t.Object.Body.AngularVelocity)
		}
		t.stats.Teleports++
		t.log.Debugf("%s went through %s", t.Object.Name, entry.Portal.Name)
		current = t.Object.Transform.Position
	}
	t.previous = current
}

func (t *Tracker) slicer(r *render.Renderable) *mesh.Slicable {
	s, ok := t.slicers[r]
	if !ok {
		s = mesh.NewSlicable(r.Mesh)
		t.slicers[r] = s
	}
	return s
}

func (t *Tracker) updateTouching(frame *portal.Frame) {
	touched := map[*portal.Portal]bool{}
	var touchOrder []*portal.Portal
	for _, r := range t.Object.Renderables {
		if r.Mesh == nil || r.Transform == nil {
			continue
		}
		h, ok := frame.Touching(worldBounds(t.slicer(r), r))
		if !ok {
			continue
		}
		s, _ := frame.Get(h)
		if !touched[s.Portal] {
			touched[s.Portal] = true
			touchOrder = append(touchOrder, s.Portal)
		}
	}

	kept := t.order[:0]
	for _, p := range t.order {
		if touched[p] {
			kept = append(kept, p)
			continue
		}
		t.destroyCopy(t.copies[p])
		delete(t.copies, p)
		t.log.Debugf("%s stopped touching %s", t.Object.Name, p.Name)
	}
	t.order = kept

	for _, p := range touchOrder {
		if _, ok := t.copies[p]; ok {
			continue
		}
		c := &portaledCopy{portal: p}
		for _, r := range t.Object.Renderables {
			if r.Mesh == nil || r.Transform == nil {
				continue
			}
			c.elements = append(c.elements, &element{renderable: r, original: t.slicer(r)})
		}
		t.copies[p] = c
		t.order = append(t.order, p)
		t.log.Debugf("%s touches %s", t.Object.Name, p.Name)
	}

	if t.Object.Body != nil {
		t.Collisions.SetDetectCollisions(t.Object.Body, len(t.order) == 0)
	}
}

func (t *Tracker) destroyCopy(c *portaledCopy) {
	for _, e := range c.elements {
		t.destroyClone(e)
		e.context = mesh.Nominal
	}
}

func (t *Tracker) createClone(e *element) {
	e.clone = Describe(e.renderable, e.original.Pristine()).Instantiate()
	if t.Scene != nil {
		t.Scene.Add(e.clone.Renderable)
	}
	t.stats.ClonesCreated++
}

func (t *Tracker) destroyClone(e *element) {
	if e.clone == nil {
		return
	}
	e.original.Revert()
	e.renderable.Enabled = true
	if t.Scene != nil {
		t.Scene.Remove(e.clone.Renderable)
	}
	e.clone = nil
	t.stats.ClonesDestroyed++
}

func (t *Tracker) updateCopy(frame *portal.Frame, c *portaledCopy) {
	h, ok := frame.Lookup(c.portal)
	if !ok {
		return
	}
	entry, ok := frame.Get(h)
	if !ok {
		return
	}
	exit, ok := frame.Get(entry.Output)
	if !ok {
		return
	}
	for _, e := range c.elements {
		t.updateElement(e, entry, exit)
	}
}

// updateElement runs the Nominal/Between/Portaled machine of one element.
// Nominal is the viewer side of the entry, Portaled is past it.
func (t *Tracker) updateElement(e *element, entry, exit *portal.Snapshot) {
	r := e.renderable
	localPlane := entry.Plane.Transform(r.Transform.WorldToObject())
	next := e.original.Classify(localPlane)

	if next != e.context {
		switch next {
		case mesh.Nominal:
			t.destroyClone(e)
			r.Enabled = true
		case mesh.Between:
			if e.clone == nil {
				t.createClone(e)
			}
			r.Enabled = true
		case mesh.Portaled:
			if e.clone == nil {
				t.createClone(e)
			}
			e.clone.Slicable.Revert()
			e.original.Revert()
			r.Enabled = false
		}
		e.context = next
	}

	if e.clone == nil {
		return
	}
	ct := e.clone.Renderable.Transform
	ct.SetPose(entry.Link.Point(r.Transform.Position), entry.Link.Rotation(r.Transform.Rotation))
	ct.Scale = r.Transform.Scale

	if e.context == mesh.Between {
		clonePlane := exit.Plane.Transform(ct.WorldToObject())
		if err := e.clone.Slicable.Slice(clonePlane); err == nil {
			t.stats.Slices++
		}
		if err := e.original.Slice(localPlane); err == nil {
			t.stats.Slices++
		}
	}
}

// Release drops every clone and restores the object's meshes.
func (t *Tracker) Release() {
	for _, p := range t.order {
		t.destroyCopy(t.copies[p])
		delete(t.copies, p)
	}
	t.order = nil
	for _, s := range t.slicers {
		s.Revert()
	}
	if t.Object.Body != nil {
		t.Collisions.SetDetectCollisions(t.Object.Body, true)
	}
}

var _ Scene = (*render.SceneCuller)(nil)

// worldBounds is the unclipped box of r in world space.
func worldBounds(s *mesh.Slicable, r *render.Renderable) core.AABB {
	return s.Bounds().Transform(r.Transform.ObjectToWorld())
}
