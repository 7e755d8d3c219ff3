package portal

import (
	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Link carries world space through a portal pair: what lies past the entry
// surface comes out in front of the output's visible face. Forward goes
// through the entry's local frame, turns half a revolution around Y and comes
// out of the output's local frame.
type Link struct {
	Forward mgl32.Mat4
	Inverse mgl32.Mat4
}

func NewLink(in, out *core.Transform) Link {
	worldToIn := in.WorldToObject()
	outToWorld := out.ObjectToWorld()
	forward := outToWorld.Mul4(core.MirrorYaw).Mul4(worldToIn)
	return Link{
		Forward: forward,
		Inverse: forward.Inv(),
	}
}

func (l Link) Point(p mgl32.Vec3) mgl32.Vec3 {
	return core.MulPoint(l.Forward, p)
}

func (l Link) Direction(d mgl32.Vec3) mgl32.Vec3 {
	return core.MulVector(l.Forward, d)
}

// Rotation carries a world orientation through the link. The link must not
// carry scale.
func (l Link) Rotation(q mgl32.Quat) mgl32.Quat {
	return mgl32.Mat4ToQuat(l.Forward).Mul(q).Normalize()
}

// InverseMatrix re-expresses a world-to-camera matrix so that the camera sees
// the output side as it would see the entry side.
func (l Link) InverseMatrix(worldToCamera mgl32.Mat4) mgl32.Mat4 {
	return worldToCamera.Mul4(l.Inverse)
}
