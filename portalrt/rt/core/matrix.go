package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MirrorYaw is the 180 degree rotation around +Y applied between two linked
// portals so that entering one keeps moving "forward" out of the other. It is
// built from two mirrors across perpendicular planes through the Y axis,
// which keeps its entries exact.
var MirrorYaw = ReflectionMatrix(NewPlane(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{})).
	Mul4(ReflectionMatrix(NewPlane(mgl32.Vec3{0, 0, 1}, mgl32.Vec3{})))

// ReflectionMatrix mirrors points across plane.
func ReflectionMatrix(plane Plane) mgl32.Mat4 {
	n := plane.Normal
	d := plane.D

	var m mgl32.Mat4
	m.Set(0, 0, 1-2*n.X()*n.X())
	m.Set(0, 1, -2*n.X()*n.Y())
	m.Set(0, 2, -2*n.X()*n.Z())
	m.Set(0, 3, -2*n.X()*d)

	m.Set(1, 0, -2*n.X()*n.Y())
	m.Set(1, 1, 1-2*n.Y()*n.Y())
	m.Set(1, 2, -2*n.Y()*n.Z())
	m.Set(1, 3, -2*n.Y()*d)

	m.Set(2, 0, -2*n.X()*n.Z())
	m.Set(2, 1, -2*n.Y()*n.Z())
	m.Set(2, 2, 1-2*n.Z()*n.Z())
	m.Set(2, 3, -2*n.Z()*d)

	m.Set(3, 3, 1)
	return m
}

// ObliqueNearPlane returns a copy of the perspective projection proj whose
// near clipping plane is replaced by plane, given in camera space with the
// camera on its back side.
func ObliqueNearPlane(proj mgl32.Mat4, plane mgl32.Vec4) mgl32.Mat4 {
	q := mgl32.Vec4{
		(sign(plane.X()) + proj.At(0, 2)) / proj.At(0, 0),
		(sign(plane.Y()) + proj.At(1, 2)) / proj.At(1, 1),
		-1,
		(1 + proj.At(2, 2)) / proj.At(2, 3),
	}
	dot := plane.Dot(q)
	if dot == 0 {
		return proj
	}
	c := plane.Mul(2 / dot)

	out := proj
	out.Set(2, 0, c.X())
	out.Set(2, 1, c.Y())
	out.Set(2, 2, c.Z()+1)
	out.Set(2, 3, c.W())
	return out
}

// CameraSpacePlane re-expresses a world plane with the camera-to-world matrix
// of the viewer, as ObliqueNearPlane expects.
func CameraSpacePlane(cameraToWorld mgl32.Mat4, plane Plane) mgl32.Vec4 {
	return cameraToWorld.Transpose().Mul4x1(plane.Vec4())
}

func sign(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
