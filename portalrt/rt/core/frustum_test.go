package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func lookDownZ() (mgl32.Mat4, mgl32.Mat4) {
	// Camera at origin looking down -Z, 90 deg FOV, aspect 1, near 1, far 100.
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0)
	view := mgl32.LookAtV(
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 0, -1},
		mgl32.Vec3{0, 1, 0},
	)
	return proj, view
}

func TestFrustumCulling(t *testing.T) {
	proj, view := lookDownZ()
	planes := ExtractFrustum(proj.Mul4(view))

	tests := []struct {
		name     string
		aabbMin  mgl32.Vec3
		aabbMax  mgl32.Vec3
		expected bool
	}{
		{"Inside (center)", mgl32.Vec3{-1, -1, -10}, mgl32.Vec3{1, 1, -5}, true},
		{"Outside (Left)", mgl32.Vec3{-20, -1, -10}, mgl32.Vec3{-15, 1, -5}, false},
		{"Outside (Right)", mgl32.Vec3{15, -1, -10}, mgl32.Vec3{20, 1, -5}, false},
		{"Outside (Behind/Near)", mgl32.Vec3{-1, -1, 2}, mgl32.Vec3{1, 1, 5}, false},
		{"Outside (Far)", mgl32.Vec3{-1, -1, -200}, mgl32.Vec3{1, 1, -150}, false},
		{"Intersecting (Left Plane)", mgl32.Vec3{-15, -1, -10}, mgl32.Vec3{-5, 1, -5}, true},
		{"Encompassing (Huge box)", mgl32.Vec3{-1000, -1000, -1000}, mgl32.Vec3{1000, 1000, 1000}, true},
	}

	for _, tc := range tests {
		visible := planes.IntersectsAABB(AABB{Min: tc.aabbMin, Max: tc.aabbMax})
		if visible != tc.expected {
			t.Errorf("Test %s failed: expected %v, got %v", tc.name, tc.expected, visible)
			for i, p := range planes {
				t.Logf("  plane %d: %v %f", i, p.Normal, p.D)
			}
		}
	}
}

func TestFrustumPlanesNormalised(t *testing.T) {
	proj, view := lookDownZ()
	planes := ExtractFrustum(proj.Mul4(view))
	for i, p := range planes {
		if !closeEnough(p.Normal.Len(), 1, 1e-4) {
			t.Errorf("plane %d normal length %f", i, p.Normal.Len())
		}
	}
	if !closeEnough(planes[PlaneNear].Distance(mgl32.Vec3{0, 0, -1}), 0, 1e-4) {
		t.Errorf("near plane should pass through z=-1")
	}
	if !planes.ContainsPoint(mgl32.Vec3{0, 0, -50}) {
		t.Errorf("point on the view axis should be inside")
	}
	if planes.ContainsPoint(mgl32.Vec3{0, 0, 50}) {
		t.Errorf("point behind the camera should be outside")
	}
}

func TestFrustumCorners(t *testing.T) {
	proj, view := lookDownZ()
	c := ExtractFrustum(proj.Mul4(view)).Corners()

	// 90 deg FOV: at distance d the half width is d.
	want := map[string][2]mgl32.Vec3{
		"TopNearLeft":  {c.TopNearLeft, {-1, 1, -1}},
		"BotNearRight": {c.BotNearRight, {1, -1, -1}},
		"TopFarRight":  {c.TopFarRight, {100, 100, -100}},
		"BotFarLeft":   {c.BotFarLeft, {-100, -100, -100}},
	}
	for name, pair := range want {
		if !vecClose(pair[0], pair[1], 0.05) {
			t.Errorf("%s: got %v want %v", name, pair[0], pair[1])
		}
	}
}

func TestTransformRoundTrip(t *testing.T) {
	tr := NewTransformAt(mgl32.Vec3{3, -2, 7}, YawRotation(mgl32.DegToRad(30)))
	tr.Scale = mgl32.Vec3{2, 2, 2}

	identity := tr.ObjectToWorld().Mul4(tr.WorldToObject())
	for i := 0; i < 4; i++ {
		if !closeEnough(identity.At(i, i), 1.0, 0.001) {
			t.Errorf("diagonal %d = %f", i, identity.At(i, i))
		}
	}

	p := mgl32.Vec3{1, 2, 3}
	back := MulPoint(tr.WorldToObject(), tr.TransformPoint(p))
	if !vecClose(back, p, 1e-4) {
		t.Errorf("round trip: got %v want %v", back, p)
	}

	if !vecClose(NewTransform().Forward(), mgl32.Vec3{0, 0, -1}, 1e-6) {
		t.Errorf("identity forward should be -Z")
	}
}

func closeEnough(a, b, epsilon float32) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < epsilon
}

func vecClose(a, b mgl32.Vec3, epsilon float32) bool {
	return closeEnough(a.X(), b.X(), epsilon) &&
		closeEnough(a.Y(), b.Y(), epsilon) &&
		closeEnough(a.Z(), b.Z(), epsilon)
}

func matClose(a, b mgl32.Mat4, epsilon float32) bool {
	for i := range a {
		if !closeEnough(a[i], b[i], epsilon) {
			return false
		}
	}
	return true
}
