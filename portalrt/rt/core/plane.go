package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// planeEpsilon guards divisions by near-zero normal projections.
const planeEpsilon = 1e-6

// Plane is Normal.p + D = 0. Points with a positive distance are on the
// front (inside) half-space.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// NewPlane builds a plane through point with the given normal. The normal is
// normalized.
func NewPlane(normal, point mgl32.Vec3) Plane {
	n := safeNormalize(normal)
	return Plane{Normal: n, D: -n.Dot(point)}
}

// PlaneFromPoints builds the plane through a, b and c with normal
// (b-a) x (c-a).
func PlaneFromPoints(a, b, c mgl32.Vec3) Plane {
	n := b.Sub(a).Cross(c.Sub(a))
	return NewPlane(n, a)
}

// PlaneFromVec4 converts an (a, b, c, d) row into a normalized plane.
func PlaneFromVec4(v mgl32.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{Normal: n, D: v.W()}
	}
	return Plane{Normal: n.Mul(1 / l), D: v.W() / l}
}

func (p Plane) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{p.Normal.X(), p.Normal.Y(), p.Normal.Z(), p.D}
}

// Distance is the signed distance of point to the plane.
func (p Plane) Distance(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.D
}

// GetSide reports whether point is strictly in front of the plane.
func (p Plane) GetSide(point mgl32.Vec3) bool {
	return p.Distance(point) > 0
}

func (p Plane) Flipped() Plane {
	return Plane{Normal: p.Normal.Mul(-1), D: -p.D}
}

func (p Plane) ClosestPoint(point mgl32.Vec3) mgl32.Vec3 {
	return point.Sub(p.Normal.Mul(p.Distance(point)))
}

// Raycast intersects the ray origin + t*dir with the plane. ok is false when
// the ray is parallel to the plane or the hit lies behind origin; t is 0 in
// the parallel case.
func (p Plane) Raycast(origin, dir mgl32.Vec3) (t float32, ok bool) {
	denom := p.Normal.Dot(dir)
	if math32.Abs(denom) < planeEpsilon {
		return 0, false
	}
	t = -p.Distance(origin) / denom
	return t, t >= 0
}

// Transform re-expresses the plane in the space that m maps into.
func (p Plane) Transform(m mgl32.Mat4) Plane {
	point := MulPoint(m, p.Normal.Mul(-p.D))
	normal := m.Inv().Transpose().Mul4x1(p.Normal.Vec4(0)).Vec3()
	return NewPlane(normal, point)
}

// OrientTowards flips the plane if needed so that inside lies on its front
// side. A point on the plane leaves it unchanged.
func (p Plane) OrientTowards(inside mgl32.Vec3) Plane {
	if p.Distance(inside) < 0 {
		return p.Flipped()
	}
	return p
}

// PlanesIntersect returns the single point shared by three planes.
func PlanesIntersect(p0, p1, p2 Plane) (mgl32.Vec3, bool) {
	denom := p0.Normal.Cross(p1.Normal).Dot(p2.Normal)
	if math32.Abs(denom) < planeEpsilon {
		return mgl32.Vec3{}, false
	}
	a := p1.Normal.Cross(p2.Normal).Mul(-p0.D)
	b := p2.Normal.Cross(p0.Normal).Mul(-p1.D)
	c := p0.Normal.Cross(p1.Normal).Mul(-p2.D)
	return a.Add(b).Add(c).Mul(1 / denom), true
}

func safeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}
