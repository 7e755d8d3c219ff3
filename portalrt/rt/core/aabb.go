package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis aligned box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// AABBFromCenter builds a box from its center and half extents.
func AABBFromCenter(center, extents mgl32.Vec3) AABB {
	return AABB{Min: center.Sub(extents), Max: center.Add(extents)}
}

// AABBFromPoints returns the smallest box holding every point.
func AABBFromPoints(points []mgl32.Vec3) AABB {
	inf := math32.Inf(1)
	b := AABB{Min: mgl32.Vec3{inf, inf, inf}, Max: mgl32.Vec3{-inf, -inf, -inf}}
	for _, p := range points {
		b = b.ExpandByPoint(p)
	}
	return b
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extents returns the half size of the box.
func (b AABB) Extents() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

func (b AABB) IsEmpty() bool {
	return b.Max.X() < b.Min.X() || b.Max.Y() < b.Min.Y() || b.Max.Z() < b.Min.Z()
}

func (b AABB) ExpandByPoint(p mgl32.Vec3) AABB {
	return AABB{
		Min: mgl32.Vec3{math32.Min(b.Min.X(), p.X()), math32.Min(b.Min.Y(), p.Y()), math32.Min(b.Min.Z(), p.Z())},
		Max: mgl32.Vec3{math32.Max(b.Max.X(), p.X()), math32.Max(b.Max.Y(), p.Y()), math32.Max(b.Max.Z(), p.Z())},
	}
}

func (b AABB) ContainsPoint(p mgl32.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

// Intersects reports overlap, touching faces included.
func (b AABB) Intersects(o AABB) bool {
	return b.Min.X() <= o.Max.X() && b.Max.X() >= o.Min.X() &&
		b.Min.Y() <= o.Max.Y() && b.Max.Y() >= o.Min.Y() &&
		b.Min.Z() <= o.Max.Z() && b.Max.Z() >= o.Min.Z()
}

// Overlaps reports overlap with a non-zero volume. Boxes that only share a
// face do not overlap.
func (b AABB) Overlaps(o AABB) bool {
	return b.Min.X() < o.Max.X() && b.Max.X() > o.Min.X() &&
		b.Min.Y() < o.Max.Y() && b.Max.Y() > o.Min.Y() &&
		b.Min.Z() < o.Max.Z() && b.Max.Z() > o.Min.Z()
}

// Corners lists the 8 box corners.
func (b AABB) Corners() [8]mgl32.Vec3 {
	return [8]mgl32.Vec3{
		{b.Min.X(), b.Min.Y(), b.Min.Z()},
		{b.Max.X(), b.Min.Y(), b.Min.Z()},
		{b.Min.X(), b.Max.Y(), b.Min.Z()},
		{b.Max.X(), b.Max.Y(), b.Min.Z()},
		{b.Min.X(), b.Min.Y(), b.Max.Z()},
		{b.Max.X(), b.Min.Y(), b.Max.Z()},
		{b.Min.X(), b.Max.Y(), b.Max.Z()},
		{b.Max.X(), b.Max.Y(), b.Max.Z()},
	}
}

// Transform returns a conservative world box of the 8 transformed corners.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	corners := b.Corners()
	for i := range corners {
		corners[i] = MulPoint(m, corners[i])
	}
	return AABBFromPoints(corners[:])
}

// IntersectsPlane reports whether the plane cuts through the box.
func (b AABB) IntersectsPlane(p Plane) bool {
	e := b.Extents()
	projected := e.X()*math32.Abs(p.Normal.X()) + e.Y()*math32.Abs(p.Normal.Y()) + e.Z()*math32.Abs(p.Normal.Z())
	return math32.Abs(p.Distance(b.Center())) <= projected
}

// IntersectSegment clips the segment origin + t*delta, t in [0, 1], against
// the box and returns the entry parameter.
func (b AABB) IntersectSegment(origin, delta mgl32.Vec3) (float32, bool) {
	tMin, tMax := float32(0), float32(1)
	for axis := 0; axis < 3; axis++ {
		o, d := origin[axis], delta[axis]
		if math32.Abs(d) < planeEpsilon {
			if o < b.Min[axis] || o > b.Max[axis] {
				return 0, false
			}
			continue
		}
		inv := 1 / d
		t0 := (b.Min[axis] - o) * inv
		t1 := (b.Max[axis] - o) * inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tMin = math32.Max(tMin, t0)
		tMax = math32.Min(tMax, t1)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}
