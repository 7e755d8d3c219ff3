package prp

import (
	"bytes"
	"image/color"
	"strings"
	"testing"

	"github.com/gekko3d/prp/portalrt/rt/camera"
	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/gekko3d/prp/portalrt/rt/mesh"
	"github.com/gekko3d/prp/portalrt/rt/portal"
	"github.com/gekko3d/prp/portalrt/rt/portalable"
	"github.com/gekko3d/prp/portalrt/rt/render"
	"github.com/gekko3d/prp/portalrt/rt/stencil"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forward() []camera.Pose {
	return []camera.Pose{camera.LookAt(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})}
}

// facingPair puts a in front of the camera and b behind it, facing each
// other, so every layer sees the next one.
func facingPair(p *Pipeline) (*portal.Portal, *portal.Portal) {
	a := portal.New("a", core.NewTransformAt(mgl32.Vec3{0, 0, -10}, mgl32.QuatIdent()), 2, 3)
	b := portal.New("b", core.NewTransformAt(mgl32.Vec3{0, 0, 10}, core.YawRotation(mgl32.DegToRad(180))), 2, 3)
	portal.Pair(a, b)
	p.AddPortal(a, b)
	return a, b
}

func crate(name string, pos mgl32.Vec3, half float32, c mgl32.Vec4) *portalable.Object {
	tr := core.NewTransformAt(pos, mgl32.QuatIdent())
	r := render.NewRenderable(name, mesh.NewBox(mgl32.Vec3{half, half, half}), tr, render.Material{Name: name, Color: c})
	obj := portalable.NewObject(name, tr, r)
	obj.Body = portalable.NewRigidBody(1)
	return obj
}

func TestNewPipelineRejectsZeroDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 0
	_, err := NewPipeline(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidMaxDepth)
}

func TestFrameRecordsLayersInDebug(t *testing.T) {
	var out, errOut bytes.Buffer
	cfg := DefaultConfig()
	cfg.Debug = true
	p, err := NewPipeline(cfg, NewWriterLogger(&out, &errOut, "prp", false))
	require.NoError(t, err)
	require.NotNil(t, p.Recorder)
	facingPair(p)

	stats := p.Frame(forward(), stencil.NewTarget(32, 18))
	assert.Equal(t, 1, stats.Cameras)
	assert.Equal(t, cfg.MaxDepth, stats.LayersDrawn)
	assert.Equal(t, cfg.MaxDepth-1, stats.MaxDepth)
	require.Len(t, p.Recorder.Layers(), cfg.MaxDepth-1)
	assert.Equal(t, "a", p.Recorder.Layers()[0].Entry)

	// Layers do not pile up across frames.
	p.Frame(forward(), stencil.NewTarget(32, 18))
	assert.Len(t, p.Recorder.Layers(), cfg.MaxDepth-1)
}

func TestFrameWithoutDebugHasNoRecorder(t *testing.T) {
	p, err := NewPipeline(DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Nil(t, p.Recorder)
	assert.Nil(t, p.Renderer.Observer)
}

func TestFrameDrawsThroughPortal(t *testing.T) {
	p, err := NewPipeline(DefaultConfig(), nil)
	require.NoError(t, err)

	a := portal.New("a", core.NewTransformAt(mgl32.Vec3{0, 0, -10}, mgl32.QuatIdent()), 2, 3)
	b := portal.New("b", core.NewTransformAt(mgl32.Vec3{50, 0, 0}, mgl32.QuatIdent()), 2, 3)
	portal.Pair(a, b)
	p.AddPortal(a, b)
	p.AddObject(crate("green", mgl32.Vec3{0, 0, -20}, 1, mgl32.Vec4{0, 1, 0, 1}))
	p.AddObject(crate("red", mgl32.Vec3{50, 0, 5}, 1, mgl32.Vec4{1, 0, 0, 1}))

	target := stencil.NewTarget(64, 36)
	target.Ambient = 1
	stats := p.Frame(forward(), target)

	assert.Equal(t, 2, stats.LayersDrawn)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, target.At(32, 18))
	assert.Equal(t, target.SkyColor, target.At(2, 2))
	assert.Equal(t, 2, p.LastFrame().Len())
}

func TestFrameTeleportsTrackedObjects(t *testing.T) {
	p, err := NewPipeline(DefaultConfig(), nil)
	require.NoError(t, err)
	a, _ := facingPair(p)

	obj := crate("crate", mgl32.Vec3{0, 0, -9.8}, 0.05, mgl32.Vec4{1, 1, 1, 1})
	tr := p.AddObject(obj)
	p.Frame(nil, nil)

	obj.Transform.Position = mgl32.Vec3{0, 0, -10.2}
	p.Frame(nil, nil)
	assert.Equal(t, 1, tr.Stats().Teleports)
	// b faces -Z at z=10, so the crate comes out just in front of it.
	assert.InDelta(t, 9.8, obj.Transform.Position.Z(), 1e-4)

	// A moved portal is seen by the tracker in the same frame.
	a.Transform.Position = mgl32.Vec3{0, 0, -30}
	obj.Transform.Position = mgl32.Vec3{0, 0, -29.8}
	p.Frame(nil, nil)
	obj.Transform.Position = mgl32.Vec3{0, 0, -30.2}
	p.Frame(nil, nil)
	assert.Equal(t, 2, tr.Stats().Teleports)
}

func TestRenderDoesNotStep(t *testing.T) {
	p, err := NewPipeline(DefaultConfig(), nil)
	require.NoError(t, err)
	facingPair(p)

	obj := crate("crate", mgl32.Vec3{0, 0, -9.8}, 0.05, mgl32.Vec4{1, 1, 1, 1})
	tr := p.AddObject(obj)
	first := p.Step()
	obj.Transform.Position = mgl32.Vec3{0, 0, -10.2}

	poses := []camera.Pose{
		camera.LookAt(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}),
		camera.LookAt(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, -1}),
	}
	for _, pose := range poses {
		stats := p.Render([]camera.Pose{pose}, stencil.NewTarget(16, 9))
		assert.Equal(t, 1, stats.Cameras)
	}
	assert.Same(t, first, p.LastFrame())
	assert.Zero(t, tr.Stats().Teleports, "rendering never moves objects")

	p.Step()
	assert.Equal(t, 1, tr.Stats().Teleports)
	assert.Greater(t, p.LastFrame().Epoch, first.Epoch)
}

func TestRenderBeforeStep(t *testing.T) {
	p, err := NewPipeline(DefaultConfig(), nil)
	require.NoError(t, err)
	facingPair(p)

	stats := p.Render(forward(), stencil.NewTarget(16, 9))
	require.NotNil(t, p.LastFrame())
	assert.Equal(t, 2, p.LastFrame().Len())
	assert.Equal(t, 1, stats.Cameras)
}

func TestRemoveObjectDropsClones(t *testing.T) {
	p, err := NewPipeline(DefaultConfig(), nil)
	require.NoError(t, err)
	facingPair(p)

	obj := crate("crate", mgl32.Vec3{0, 0, -10}, 0.5, mgl32.Vec4{1, 1, 1, 1})
	tr := p.AddObject(obj)
	p.Frame(nil, nil)
	require.Len(t, tr.Clones(), 1)
	assert.Len(t, p.Scene.Objects, 2)

	assert.True(t, p.RemoveObject(obj))
	assert.Empty(t, p.Scene.Objects)
	assert.Empty(t, p.Trackers())
	assert.False(t, p.RemoveObject(obj))
}

func TestSkippedCamerasAreLogged(t *testing.T) {
	var out, errOut bytes.Buffer
	cfg := DefaultConfig()
	cfg.Debug = true
	p, err := NewPipeline(cfg, NewWriterLogger(&out, &errOut, "prp", false))
	require.NoError(t, err)

	broken := camera.NewPose(mgl32.Vec3{}, mgl32.QuatIdent())
	broken.Name = "broken"
	broken.Near = 0
	stats := p.Frame([]camera.Pose{broken}, stencil.NewTarget(8, 8))

	assert.Equal(t, 1, stats.SkippedCameras)
	assert.True(t, strings.Contains(out.String()+errOut.String(), "broken"))
}
