package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func quadAt(z, halfW, halfH float32) [4]mgl32.Vec3 {
	// Deliberately unordered.
	return [4]mgl32.Vec3{
		{halfW, -halfH, z},
		{-halfW, halfH, z},
		{halfW, halfH, z},
		{-halfW, -halfH, z},
	}
}

func TestOrganizeCorners(t *testing.T) {
	proj, view := lookDownZ()
	corners := quadAt(-5, 1, 1)

	q := OrganizeCorners(view, proj.Mul4(view), corners, mgl32.Vec3{0, 0, -5})

	if !vecClose(q.BotLeft, mgl32.Vec3{-1, -1, -5}, 1e-5) {
		t.Errorf("BotLeft = %v", q.BotLeft)
	}
	if !vecClose(q.TopLeft, mgl32.Vec3{-1, 1, -5}, 1e-5) {
		t.Errorf("TopLeft = %v", q.TopLeft)
	}
	if !vecClose(q.TopRight, mgl32.Vec3{1, 1, -5}, 1e-5) {
		t.Errorf("TopRight = %v", q.TopRight)
	}
	if !vecClose(q.BotRight, mgl32.Vec3{1, -1, -5}, 1e-5) {
		t.Errorf("BotRight = %v", q.BotRight)
	}
}

func TestOrganizeCornersRotatedCamera(t *testing.T) {
	// Camera looking down +X; its right axis is world +Z.
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1.0, 0.1, 100.0)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0})
	corners := [4]mgl32.Vec3{
		{5, 1, 1}, {5, -1, -1}, {5, 1, -1}, {5, -1, 1},
	}

	q := OrganizeCorners(view, proj.Mul4(view), corners, mgl32.Vec3{5, 0, 0})

	// Camera space: x right, y up. Left corners have negative x.
	if q.TopLeft.Y() <= 0 || q.TopRight.Y() <= 0 || q.BotLeft.Y() >= 0 || q.BotRight.Y() >= 0 {
		t.Fatalf("top/bottom split wrong: %+v", q)
	}
	if q.TopLeft.X() >= q.TopRight.X() || q.BotLeft.X() >= q.BotRight.X() {
		t.Fatalf("left/right split wrong: %+v", q)
	}
}

func TestNarrowFrustumTightens(t *testing.T) {
	proj, view := lookDownZ()
	vp := proj.Mul4(view)
	base := ExtractFrustum(vp)

	q := OrganizeCorners(view, vp, quadAt(-5, 1, 1), mgl32.Vec3{0, 0, -5})
	narrowed, replaced := NarrowFrustum(base, mgl32.Vec3{}, view.Inv(), q)

	for i, r := range replaced {
		if !r {
			t.Errorf("side %d should have been replaced", i)
		}
	}
	if !narrowed.ContainsPoint(mgl32.Vec3{0, 0, -10}) {
		t.Errorf("view axis should still be inside")
	}
	outside := mgl32.Vec3{3, 0, -10}
	if narrowed.ContainsPoint(outside) {
		t.Errorf("%v is outside the portal footprint", outside)
	}
	if !base.ContainsPoint(outside) {
		t.Errorf("%v should be inside the base frustum", outside)
	}
}

func TestNarrowFrustumKeepsWiderPlanes(t *testing.T) {
	proj, view := lookDownZ()
	vp := proj.Mul4(view)
	base := ExtractFrustum(vp)

	// Wider than the screen horizontally, narrow vertically.
	q := OrganizeCorners(view, vp, quadAt(-5, 20, 1), mgl32.Vec3{0, 0, -5})
	narrowed, replaced := NarrowFrustum(base, mgl32.Vec3{}, view.Inv(), q)

	want := [4]bool{false, false, true, true}
	if replaced != want {
		t.Errorf("replaced = %v, want %v", replaced, want)
	}
	if narrowed[PlaneLeft] != base[PlaneLeft] || narrowed[PlaneRight] != base[PlaneRight] {
		t.Errorf("left/right planes must be kept")
	}
}

func TestNarrowFrustumNeverWidens(t *testing.T) {
	proj, view := lookDownZ()
	vp := proj.Mul4(view)
	base := ExtractFrustum(vp)

	quads := []struct {
		name    string
		corners [4]mgl32.Vec3
		center  mgl32.Vec3
	}{
		{"centered", quadAt(-5, 1, 1), mgl32.Vec3{0, 0, -5}},
		{"wide", quadAt(-3, 30, 0.5), mgl32.Vec3{0, 0, -3}},
		{"off to the side", [4]mgl32.Vec3{{3, -1, -6}, {5, -1, -6}, {5, 1, -6}, {3, 1, -6}}, mgl32.Vec3{4, 0, -6}},
		{"straddling the edge", [4]mgl32.Vec3{{-12, -2, -10}, {-6, -2, -10}, {-6, 2, -10}, {-12, 2, -10}}, mgl32.Vec3{-9, 0, -10}},
	}

	for _, tc := range quads {
		q := OrganizeCorners(view, vp, tc.corners, tc.center)
		narrowed, _ := NarrowFrustum(base, mgl32.Vec3{}, view.Inv(), q)

		for x := float32(-40); x <= 40; x += 4 {
			for y := float32(-40); y <= 40; y += 4 {
				for z := float32(-90); z <= 5; z += 5 {
					p := mgl32.Vec3{x, y, z}
					if narrowed.ContainsPoint(p) && !base.ContainsPoint(p) {
						t.Fatalf("%s: %v is inside the narrowed frustum only", tc.name, p)
					}
				}
			}
		}
	}
}
