package stencil

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/gekko3d/prp/portalrt/rt/camera"
	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/gekko3d/prp/portalrt/rt/mesh"
	"github.com/gekko3d/prp/portalrt/rt/portal"
	"github.com/gekko3d/prp/portalrt/rt/render"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = mgl32.Vec4{1, 0, 0, 1}
	green = mgl32.Vec4{0, 1, 0, 1}
)

func box(name string, pos mgl32.Vec3, c mgl32.Vec4) *render.Renderable {
	return render.NewRenderable(name, mesh.NewBox(mgl32.Vec3{1, 1, 1}),
		core.NewTransformAt(pos, mgl32.QuatIdent()), render.Material{Name: name, Color: c})
}

// scene puts a green box straight behind portal a and a red box behind its
// exit b. Looking through a must show red.
func scene(t *testing.T) (*portal.Frame, *render.SceneCuller) {
	t.Helper()
	a := portal.New("a", core.NewTransformAt(mgl32.Vec3{0, 0, -10}, mgl32.QuatIdent()), 2, 3)
	b := portal.New("b", core.NewTransformAt(mgl32.Vec3{50, 0, 0}, mgl32.QuatIdent()), 2, 3)
	portal.Pair(a, b)
	reg := portal.NewRegistry()
	reg.Register(a)
	reg.Register(b)

	cull := render.NewSceneCuller()
	cull.Add(box("green", mgl32.Vec3{0, 0, -20}, green))
	cull.Add(box("red", mgl32.Vec3{50, 0, 5}, red))
	return reg.Synchronize(), cull
}

func render64(t *testing.T, frame *portal.Frame, cull *render.SceneCuller, maxDepth int) *Target {
	t.Helper()
	target := NewTarget(64, 36)
	target.Ambient = 1
	r := render.NewRenderer(cull, maxDepth, nil)
	stats := r.RenderFrame(frame, []camera.Pose{camera.LookAt(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})}, target)
	require.Zero(t, stats.SkippedCameras)
	return target
}

func countColor(target *Target, c color.RGBA) int {
	n := 0
	for y := 0; y < target.Height; y++ {
		for x := 0; x < target.Width; x++ {
			if target.At(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestPortalShowsExitSide(t *testing.T) {
	frame, cull := scene(t)
	target := render64(t, frame, cull, 2)

	assert.Equal(t, color.RGBA{255, 0, 0, 255}, target.At(32, 18), "center looks through a")
	assert.Equal(t, target.SkyColor, target.At(2, 2))
	assert.Zero(t, countColor(target, color.RGBA{0, 255, 0, 255}), "the box behind a stays hidden")
	assert.Less(t, target.Depth(32, 18), float32(1), "portal depth is written")
	assert.Equal(t, float32(1), target.Depth(2, 2))
	assert.Equal(t, 1, target.Stats.Submits)

	for y := 0; y < target.Height; y++ {
		for x := 0; x < target.Width; x++ {
			require.Zero(t, target.Counter(x, y), "counter released at %d,%d", x, y)
		}
	}
}

func TestWithoutPortalsTheBoxBehindShows(t *testing.T) {
	frame, cull := scene(t)
	target := render64(t, frame, cull, 1)

	assert.Equal(t, color.RGBA{0, 255, 0, 255}, target.At(32, 18))
	assert.Zero(t, countColor(target, color.RGBA{255, 0, 0, 255}))
}

func TestRegionOps(t *testing.T) {
	target := NewTarget(16, 16)
	target.FillRegion(render.RegionDecrease)
	assert.Zero(t, target.Counter(0, 0), "decrease clamps at zero")

	for i := 0; i < 300; i++ {
		target.FillRegion(render.RegionIncrease)
	}
	assert.Equal(t, uint8(255), target.Counter(8, 8), "increase clamps at 255")

	target.ClearTarget()
	target.FillRegion(render.RegionIncrease)

	p := portal.New("p", core.NewTransformAt(mgl32.Vec3{0, 0, -2}, mgl32.QuatIdent()), 2, 2)
	reg := portal.NewRegistry()
	reg.Register(p)
	frame := reg.Synchronize()
	h, ok := frame.Lookup(p)
	require.True(t, ok)
	snap, ok := frame.Get(h)
	require.True(t, ok)

	pose := camera.LookAt(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})
	pose.Aspect = 1
	target.SetupCamera(camera.New(pose))
	target.DrawRegionMesh(snap, render.RegionCarve)

	assert.Zero(t, target.Counter(8, 8), "carved inside the portal")
	assert.Equal(t, uint8(1), target.Counter(0, 0))

	target.FillRegion(render.RegionDecrease)
	target.DrawRegionMesh(snap, render.RegionDepthOnly)
	assert.Less(t, target.Depth(8, 8), float32(1))
	assert.Equal(t, float32(1), target.Depth(0, 0))
}

func TestClipNearPlane(t *testing.T) {
	tri := []mgl32.Vec4{{0, 0, -2, 1}, {1, 0, 1, 1}, {0, 1, 1, 1}}
	out := clipNearPlane(tri)
	require.Len(t, out, 4, "one vertex behind near turns the triangle into a quad")
	for _, v := range out {
		assert.GreaterOrEqual(t, v.Z()+v.W(), float32(0))
	}
	assert.Empty(t, clipNearPlane([]mgl32.Vec4{{0, 0, -3, 1}, {1, 0, -3, 1}, {0, 1, -3, 1}}))
}

func TestWritePNG(t *testing.T) {
	target := NewTarget(4, 3)
	var buf bytes.Buffer
	require.NoError(t, target.WritePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())
}
