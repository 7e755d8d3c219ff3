package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a TRS pose. Forward is local -Z, the same convention
// mgl32.LookAtV uses for cameras.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Dirty    bool
}

func NewTransform() *Transform {
	return &Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Dirty:    true,
	}
}

// NewTransformAt returns a unit-scale transform at position with rotation.
func NewTransformAt(position mgl32.Vec3, rotation mgl32.Quat) *Transform {
	t := NewTransform()
	t.Position = position
	t.Rotation = rotation
	return t
}

func (t *Transform) ObjectToWorld() mgl32.Mat4 {
	// M = T * R * S
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

func (t *Transform) WorldToObject() mgl32.Mat4 {
	// inv(M) = inv(S) * inv(R) * inv(T)
	invScale := mgl32.Scale3D(1.0/t.Scale.X(), 1.0/t.Scale.Y(), 1.0/t.Scale.Z())

	// Conjugate is the inverse for a unit quaternion.
	invRotate := t.Rotation.Conjugate().Mat4()

	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())

	return invScale.Mul4(invRotate).Mul4(invTranslate)
}

func (t *Transform) Forward() mgl32.Vec3 {
	return t.Rotation.Rotate(mgl32.Vec3{0, 0, -1})
}

func (t *Transform) Up() mgl32.Vec3 {
	return t.Rotation.Rotate(mgl32.Vec3{0, 1, 0})
}

func (t *Transform) Right() mgl32.Vec3 {
	return t.Rotation.Rotate(mgl32.Vec3{1, 0, 0})
}

// TransformPoint maps a local point to world space.
func (t *Transform) TransformPoint(p mgl32.Vec3) mgl32.Vec3 {
	return MulPoint(t.ObjectToWorld(), p)
}

// TransformDirection rotates a local direction into world space, ignoring scale.
func (t *Transform) TransformDirection(d mgl32.Vec3) mgl32.Vec3 {
	return t.Rotation.Rotate(d)
}

// SetPose overwrites position and rotation and flags the transform dirty.
func (t *Transform) SetPose(position mgl32.Vec3, rotation mgl32.Quat) {
	t.Position = position
	t.Rotation = rotation.Normalize()
	t.Dirty = true
}

// MulPoint applies an affine matrix to a point (w = 1).
func MulPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// MulVector applies the linear part of m to a direction (w = 0).
func MulVector(m mgl32.Mat4, d mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(d.Vec4(0)).Vec3()
}

// YawRotation returns a rotation of angle radians around +Y.
func YawRotation(angle float32) mgl32.Quat {
	return mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0})
}
