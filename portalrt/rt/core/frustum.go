package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Frustum plane indices.
const (
	PlaneLeft = iota
	PlaneRight
	PlaneBottom
	PlaneTop
	PlaneNear
	PlaneFar
)

// Frustum holds 6 planes with normals pointing inside.
type Frustum [6]Plane

// ExtractFrustum extracts the 6 planes of the frustum from the view-projection matrix.
// Returns planes in order: Left, Right, Bottom, Top, Near, Far.
func ExtractFrustum(vp mgl32.Mat4) Frustum {
	var rows [6]mgl32.Vec4

	// Left plane: Row 3 + Row 0
	rows[PlaneLeft] = vp.Row(3).Add(vp.Row(0))
	// Right plane: Row 3 - Row 0
	rows[PlaneRight] = vp.Row(3).Sub(vp.Row(0))
	// Bottom plane: Row 3 + Row 1
	rows[PlaneBottom] = vp.Row(3).Add(vp.Row(1))
	// Top plane: Row 3 - Row 1
	rows[PlaneTop] = vp.Row(3).Sub(vp.Row(1))
	// Near plane: Row 3 + Row 2 (OpenGL-style -1..1)
	rows[PlaneNear] = vp.Row(3).Add(vp.Row(2))
	// Far plane: Row 3 - Row 2
	rows[PlaneFar] = vp.Row(3).Sub(vp.Row(2))

	var f Frustum
	for i := range rows {
		f[i] = PlaneFromVec4(rows[i])
	}
	return f
}

// IntersectsAABB checks if an AABB is at least partially within the frustum.
func (f Frustum) IntersectsAABB(aabb AABB) bool {
	for i := 0; i < 6; i++ {
		plane := f[i]
		// The corner furthest along the normal is the most inside one. If even
		// that corner is behind the plane the whole box is outside.
		var p mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if plane.Normal[axis] > 0 {
				p[axis] = aabb.Max[axis]
			} else {
				p[axis] = aabb.Min[axis]
			}
		}
		if plane.Distance(p) < 0 {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether point is on the inside of every plane.
func (f Frustum) ContainsPoint(point mgl32.Vec3) bool {
	for i := range f {
		if f[i].Distance(point) < 0 {
			return false
		}
	}
	return true
}

// FrustumCorners are the 8 frustum vertices.
type FrustumCorners struct {
	TopNearLeft, TopFarLeft, TopFarRight, TopNearRight mgl32.Vec3
	BotNearLeft, BotFarLeft, BotFarRight, BotNearRight mgl32.Vec3
}

// Corners intersects plane triples. Degenerate triples leave the zero vector.
func (f Frustum) Corners() FrustumCorners {
	var c FrustumCorners
	c.TopNearLeft, _ = PlanesIntersect(f[PlaneTop], f[PlaneNear], f[PlaneLeft])
	c.TopFarLeft, _ = PlanesIntersect(f[PlaneTop], f[PlaneFar], f[PlaneLeft])
	c.TopFarRight, _ = PlanesIntersect(f[PlaneTop], f[PlaneFar], f[PlaneRight])
	c.TopNearRight, _ = PlanesIntersect(f[PlaneTop], f[PlaneNear], f[PlaneRight])
	c.BotNearLeft, _ = PlanesIntersect(f[PlaneBottom], f[PlaneNear], f[PlaneLeft])
	c.BotFarLeft, _ = PlanesIntersect(f[PlaneBottom], f[PlaneFar], f[PlaneLeft])
	c.BotFarRight, _ = PlanesIntersect(f[PlaneBottom], f[PlaneFar], f[PlaneRight])
	c.BotNearRight, _ = PlanesIntersect(f[PlaneBottom], f[PlaneNear], f[PlaneRight])
	return c
}
