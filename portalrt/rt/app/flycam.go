package app

import (
	"github.com/chewxy/math32"
	"github.com/gekko3d/prp/portalrt/rt/camera"
	"github.com/gekko3d/prp/portalrt/rt/portal"
	"github.com/go-gl/mathgl/mgl32"
)

// FlyingCamera is a free camera steered by keys and mouse. Yaw and Pitch are
// in degrees; yaw 0 looks down -Z.
type FlyingCamera struct {
	Position    mgl32.Vec3
	Yaw         float32
	Pitch       float32
	Speed       float32
	Sensitivity float32
	FovY        float32
}

func NewFlyingCamera(pose camera.Pose) *FlyingCamera {
	c := &FlyingCamera{Position: pose.Position, Speed: 5, Sensitivity: 0.1, FovY: pose.FovY}
	c.face(pose.Rotation.Rotate(mgl32.Vec3{0, 0, -1}))
	return c
}

func (c *FlyingCamera) Forward() mgl32.Vec3 {
	yaw, pitch := mgl32.DegToRad(c.Yaw), mgl32.DegToRad(c.Pitch)
	sy, cy := math32.Sincos(yaw)
	sp, cp := math32.Sincos(pitch)
	return mgl32.Vec3{sy * cp, sp, -cy * cp}.Normalize()
}

// Update turns by look and moves along move (x right, y up, z forward).
func (c *FlyingCamera) Update(move mgl32.Vec3, look mgl32.Vec2, dt float32) {
	if dt <= 0 {
		return
	}
	c.Yaw += look[0] * c.Sensitivity
	c.Pitch -= look[1] * c.Sensitivity
	c.Pitch = mgl32.Clamp(c.Pitch, -89, 89)

	forward := c.Forward()
	right := forward.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	up := mgl32.Vec3{0, 1, 0}
	dir := right.Mul(move[0]).Add(up.Mul(move[1])).Add(forward.Mul(move[2]))
	if dir.Len() > 0 {
		c.Position = c.Position.Add(dir.Normalize().Mul(c.Speed * dt))
	}
}

// Teleport carries the camera through a portal link.
func (c *FlyingCamera) Teleport(link portal.Link) {
	forward := link.Direction(c.Forward())
	c.Position = link.Point(c.Position)
	c.face(forward)
}

func (c *FlyingCamera) face(forward mgl32.Vec3) {
	f := forward.Normalize()
	c.Yaw = mgl32.RadToDeg(math32.Atan2(f.X(), -f.Z()))
	c.Pitch = mgl32.Clamp(mgl32.RadToDeg(math32.Asin(mgl32.Clamp(f.Y(), -1, 1))), -89, 89)
}

func (c *FlyingCamera) Pose(aspect float32) camera.Pose {
	pose := camera.LookAt(c.Position, c.Position.Add(c.Forward()))
	pose.Name = "fly"
	if c.FovY > 0 {
		pose.FovY = c.FovY
	}
	if aspect > 0 {
		pose.Aspect = aspect
	}
	return pose
}
