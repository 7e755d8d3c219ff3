package portalable

import (
	"testing"

	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/gekko3d/prp/portalrt/rt/mesh"
	"github.com/gekko3d/prp/portalrt/rt/portal"
	"github.com/gekko3d/prp/portalrt/rt/render"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vecClose(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], 1e-4, "component %d of %v", i, got)
	}
}

type world struct {
	registry *portal.Registry
	scene    *render.SceneCuller
	a, b     *portal.Portal
}

// newWorld pairs a, facing +Z at z=-10, with b, facing +X at x=20.
func newWorld() *world {
	a := portal.New("a", core.NewTransformAt(mgl32.Vec3{0, 0, -10}, mgl32.QuatIdent()), 2, 3)
	b := portal.New("b", core.NewTransformAt(mgl32.Vec3{20, 0, 0}, core.YawRotation(mgl32.DegToRad(90))), 2, 3)
	portal.Pair(a, b)
	reg := portal.NewRegistry()
	reg.Register(a)
	reg.Register(b)
	return &world{registry: reg, scene: render.NewSceneCuller(), a: a, b: b}
}

func (w *world) object(pos mgl32.Vec3, half float32) (*Object, *render.Renderable) {
	tr := core.NewTransformAt(pos, mgl32.QuatIdent())
	r := render.NewRenderable("crate", mesh.NewBox(mgl32.Vec3{half, half, half}), tr, render.Material{Name: "crate"})
	w.scene.Add(r)
	obj := NewObject("crate", tr, r)
	obj.Body = NewRigidBody(1)
	return obj, r
}

func (w *world) step(tr *Tracker) {
	tr.Update(w.registry.Synchronize())
}

func TestUntouchedObjectDoesNothing(t *testing.T) {
	w := newWorld()
	obj, r := w.object(mgl32.Vec3{5, 0, 0}, 0.5)
	tr := NewTracker(obj, w.scene, nil, nil)

	for i := 0; i < 5; i++ {
		obj.Transform.Position = obj.Transform.Position.Add(mgl32.Vec3{0, 0.1, 0})
		w.step(tr)
	}

	assert.Equal(t, Stats{}, tr.Stats())
	assert.Empty(t, tr.Clones())
	assert.Empty(t, tr.Touching())
	assert.True(t, r.Enabled)
	assert.True(t, obj.Body.DetectCollisions)
	assert.Len(t, w.scene.Objects, 1)
}

func TestCrossingRemapsPoseAndVelocity(t *testing.T) {
	w := newWorld()
	obj, _ := w.object(mgl32.Vec3{0, 0, -9.8}, 0.05)
	obj.Body.Velocity = mgl32.Vec3{0, 0, -1}
	tr := NewTracker(obj, w.scene, nil, nil)
	w.step(tr)

	obj.Transform.Position = mgl32.Vec3{0, 0, -10.2}
	w.step(tr)

	assert.Equal(t, 1, tr.Stats().Teleports)
	vecClose(t, mgl32.Vec3{20.2, 0, 0}, obj.Transform.Position)
	vecClose(t, mgl32.Vec3{1, 0, 0}, obj.Body.Velocity)
	vecClose(t, mgl32.Vec3{1, 0, 0}, obj.Transform.Forward())

	// Moving on from the exit does not cross again.
	obj.Transform.Position = mgl32.Vec3{21, 0, 0}
	w.step(tr)
	assert.Equal(t, 1, tr.Stats().Teleports)
}

func TestMovingBackwardsDoesNotCross(t *testing.T) {
	w := newWorld()
	obj, _ := w.object(mgl32.Vec3{0, 0, -10.2}, 0.05)
	tr := NewTracker(obj, w.scene, nil, nil)
	w.step(tr)

	obj.Transform.Position = mgl32.Vec3{0, 0, -9.8}
	w.step(tr)
	assert.Zero(t, tr.Stats().Teleports)
}

func TestBetweenSlicesOriginalAndClone(t *testing.T) {
	w := newWorld()
	obj, r := w.object(mgl32.Vec3{0, 0, -10}, 0.5)
	tr := NewTracker(obj, w.scene, nil, nil)
	w.step(tr)

	require.Len(t, tr.Clones(), 1)
	clone := tr.Clones()[0]
	assert.NotEmpty(t, clone.ID)
	assert.Equal(t, []*portal.Portal{w.a}, tr.Touching())
	assert.Equal(t, 1, tr.Stats().ClonesCreated)
	assert.Equal(t, 2, tr.Stats().Slices)
	assert.True(t, r.Enabled)
	assert.False(t, obj.Body.DetectCollisions)
	assert.Len(t, w.scene.Objects, 2)

	// The original keeps the viewer side of a.
	for _, i := range r.Mesh.Indices {
		assert.GreaterOrEqual(t, core.MulPoint(r.Transform.ObjectToWorld(), r.Mesh.Vertices[i]).Z(), float32(-10-1e-4))
	}

	// The clone sits at b and keeps what sticks out of b's face.
	vecClose(t, mgl32.Vec3{20, 0, 0}, clone.Renderable.Transform.Position)
	cloneToWorld := clone.Renderable.Transform.ObjectToWorld()
	cm := clone.Renderable.Mesh
	for _, i := range cm.Indices {
		assert.GreaterOrEqual(t, core.MulPoint(cloneToWorld, cm.Vertices[i]).X(), float32(20-1e-4))
	}
}

func TestPortaledHidesOriginal(t *testing.T) {
	w := newWorld()
	obj, r := w.object(mgl32.Vec3{0, 0, -10.2}, 0.1)
	tr := NewTracker(obj, w.scene, nil, nil)
	w.step(tr)

	require.Len(t, tr.Clones(), 1)
	assert.False(t, r.Enabled)
	assert.Zero(t, tr.Stats().Slices)
	assert.Equal(t, 36, len(tr.Clones()[0].Renderable.Mesh.Indices), "clone shows the whole box")
}

func TestTouchEndCleansUp(t *testing.T) {
	w := newWorld()
	obj, r := w.object(mgl32.Vec3{0, 0, -10}, 0.5)
	pristine := r.Mesh.Clone()
	tr := NewTracker(obj, w.scene, nil, nil)
	w.step(tr)
	require.Len(t, tr.Clones(), 1)

	obj.Transform.Position = mgl32.Vec3{0, 0, -5}
	w.step(tr)

	assert.Empty(t, tr.Clones())
	assert.Empty(t, tr.Touching())
	assert.Equal(t, 1, tr.Stats().ClonesDestroyed)
	assert.Equal(t, pristine.Vertices, r.Mesh.Vertices)
	assert.Equal(t, pristine.Indices, r.Mesh.Indices)
	assert.True(t, r.Enabled)
	assert.True(t, obj.Body.DetectCollisions)
	assert.Len(t, w.scene.Objects, 1)
}

func TestBetweenToPortaledAndBack(t *testing.T) {
	w := newWorld()
	obj, r := w.object(mgl32.Vec3{0, 0, -9.95}, 0.1)
	tr := NewTracker(obj, w.scene, nil, nil)
	w.step(tr)
	require.Len(t, tr.Clones(), 1)
	assert.True(t, r.Enabled)

	// Resetting previous skips the crossing check; only the context changes.
	obj.Transform.Position = mgl32.Vec3{0, 0, -10.15}
	tr.previous = obj.Transform.Position
	w.step(tr)
	assert.False(t, r.Enabled)
	assert.Equal(t, 36, len(r.Mesh.Indices), "reverted when fully past the surface")

	obj.Transform.Position = mgl32.Vec3{0, 0, -9.95}
	tr.previous = obj.Transform.Position
	w.step(tr)
	assert.True(t, r.Enabled)
	assert.Equal(t, 1, tr.Stats().ClonesCreated, "the clone lives as long as the touch")
}

func TestReleaseRestoresEverything(t *testing.T) {
	w := newWorld()
	obj, r := w.object(mgl32.Vec3{0, 0, -10}, 0.5)
	pristine := r.Mesh.Clone()
	tr := NewTracker(obj, w.scene, nil, nil)
	w.step(tr)

	tr.Release()
	assert.Empty(t, tr.Clones())
	assert.Equal(t, pristine.Vertices, r.Mesh.Vertices)
	assert.True(t, obj.Body.DetectCollisions)
	assert.Len(t, w.scene.Objects, 1)
}

func TestApplyImpulse(t *testing.T) {
	rb := NewRigidBody(2)
	rb.ApplyImpulse(mgl32.Vec3{4, 0, 0})
	assert.Equal(t, mgl32.Vec3{2, 0, 0}, rb.Velocity)

	rb.IsStatic = true
	rb.ApplyImpulse(mgl32.Vec3{4, 0, 0})
	assert.Equal(t, mgl32.Vec3{2, 0, 0}, rb.Velocity)
}
