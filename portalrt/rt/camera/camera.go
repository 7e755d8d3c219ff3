package camera

import (
	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/gekko3d/prp/portalrt/rt/portal"
	"github.com/go-gl/mathgl/mgl32"
)

// Pose is a host camera as the renderer receives it each frame. FovY is in
// radians.
type Pose struct {
	Name     string
	Position mgl32.Vec3
	Rotation mgl32.Quat
	FovY     float32
	Aspect   float32
	Near     float32
	Far      float32
}

func NewPose(position mgl32.Vec3, rotation mgl32.Quat) Pose {
	return Pose{
		Position: position,
		Rotation: rotation,
		FovY:     mgl32.DegToRad(60),
		Aspect:   16.0 / 9.0,
		Near:     0.1,
		Far:      1000,
	}
}

// LookAt orients a pose from eye towards target.
func LookAt(eye, target mgl32.Vec3) Pose {
	view := mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
	return NewPose(eye, mgl32.Mat4ToQuat(view).Conjugate())
}

func (p Pose) WorldToCamera() mgl32.Mat4 {
	t := core.Transform{Position: p.Position, Rotation: p.Rotation, Scale: mgl32.Vec3{1, 1, 1}}
	return t.WorldToObject()
}

func (p Pose) Projection() mgl32.Mat4 {
	return mgl32.Perspective(p.FovY, p.Aspect, p.Near, p.Far)
}

// VirtualCamera is one recursion layer's view. Values are never changed
// after construction; Next derives a new one.
type VirtualCamera struct {
	Position          mgl32.Vec3
	WorldToCamera     mgl32.Mat4
	CameraToWorld     mgl32.Mat4
	Projection        mgl32.Mat4
	ObliqueProjection mgl32.Mat4
	WorldToClip       mgl32.Mat4
	Frustum           core.Frustum
	// Output is the portal this layer is seen through. Invalid at depth 0.
	Output portal.Handle
	Depth  int
	// Narrowed flags the side planes tightened to the entry portal.
	Narrowed [4]bool
}

// New builds the depth-0 camera of a host pose.
func New(pose Pose) *VirtualCamera {
	w2c := pose.WorldToCamera()
	proj := pose.Projection()
	w2clip := proj.Mul4(w2c)
	return &VirtualCamera{
		Position:          pose.Position,
		WorldToCamera:     w2c,
		CameraToWorld:     w2c.Inv(),
		Projection:        proj,
		ObliqueProjection: proj,
		WorldToClip:       w2clip,
		Frustum:           core.ExtractFrustum(w2clip),
	}
}

// Derive composes the parent view with a link inverse and places the new
// camera at position. When outputPlane is set it replaces the near plane of
// the frustum and the projection's near plane.
func (c *VirtualCamera) Derive(linkInverse mgl32.Mat4, position mgl32.Vec3, output portal.Handle, outputPlane *core.Plane) *VirtualCamera {
	w2c := c.WorldToCamera.Mul4(linkInverse)
	c2w := w2c.Inv()
	w2clip := c.Projection.Mul4(w2c)
	next := &VirtualCamera{
		Position:          position,
		WorldToCamera:     w2c,
		CameraToWorld:     c2w,
		Projection:        c.Projection,
		ObliqueProjection: c.Projection,
		WorldToClip:       w2clip,
		Frustum:           core.ExtractFrustum(w2clip),
		Output:            output,
		Depth:             c.Depth + 1,
	}
	if outputPlane != nil {
		next.Frustum[core.PlaneNear] = *outputPlane
		next.ObliqueProjection = core.ObliqueNearPlane(c.Projection, core.CameraSpacePlane(c2w, *outputPlane))
	}
	return next
}

// Next returns the camera seeing through entry into its output portal. The
// frustum is narrowed once to the entry's on-screen outline from this camera.
func (c *VirtualCamera) Next(entry *portal.Snapshot) *VirtualCamera {
	plane := exitPlane(entry)
	next := c.Derive(entry.Link.Inverse, entry.Link.Point(c.Position), entry.Output, plane)

	quad := core.OrganizeCorners(c.WorldToCamera, c.WorldToClip, entry.Corners, entry.Center)
	next.Frustum, next.Narrowed = core.NarrowFrustum(next.Frustum, next.Position, next.CameraToWorld, quad)
	return next
}

// exitPlane is the output portal's surface facing its visible side, where a
// traveller comes out. The derived camera sits behind it.
func exitPlane(entry *portal.Snapshot) *core.Plane {
	if !entry.Output.Valid() {
		return nil
	}
	p := entry.ExitPlane
	return &p
}
