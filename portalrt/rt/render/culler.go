package render

import (
	"github.com/gekko3d/prp/portalrt/rt/camera"
	"github.com/gekko3d/prp/portalrt/rt/core"
)

// CullingParameters are computed once per host camera and reused for every
// layer seen from it.
type CullingParameters struct {
	Pose        camera.Pose
	CullingMask uint32
}

// Culler is the host scene as the renderer sees it.
type Culler interface {
	// CullingParameters reports false when the camera cannot be rendered.
	CullingParameters(pose camera.Pose) (CullingParameters, bool)
	Cull(params CullingParameters, frustum core.Frustum) VisibleSet
	Lights() []Light
}

// SceneCuller keeps a flat list of renderables and tests their world boxes
// against the layer frustum.
type SceneCuller struct {
	Objects     []*Renderable
	CullingMask uint32

	lights []Light
}

func NewSceneCuller() *SceneCuller {
	return &SceneCuller{CullingMask: ^uint32(0)}
}

func (s *SceneCuller) Add(r *Renderable) {
	s.Objects = append(s.Objects, r)
}

// Remove drops r and reports whether it was present.
func (s *SceneCuller) Remove(r *Renderable) bool {
	for i, o := range s.Objects {
		if o == r {
			copy(s.Objects[i:], s.Objects[i+1:])
			s.Objects[len(s.Objects)-1] = nil
			s.Objects = s.Objects[:len(s.Objects)-1]
			return true
		}
	}
	return false
}

func (s *SceneCuller) AddLight(l Light) {
	s.lights = append(s.lights, l)
}

func (s *SceneCuller) Lights() []Light {
	return s.lights
}

func (s *SceneCuller) CullingParameters(pose camera.Pose) (CullingParameters, bool) {
	if pose.Near <= 0 || pose.Far <= pose.Near || pose.Aspect <= 0 || pose.FovY <= 0 {
		return CullingParameters{}, false
	}
	return CullingParameters{Pose: pose, CullingMask: s.CullingMask}, true
}

func (s *SceneCuller) Cull(params CullingParameters, frustum core.Frustum) VisibleSet {
	var visible VisibleSet
	for _, obj := range s.Objects {
		if !obj.Enabled || obj.Mesh == nil || params.CullingMask&(1<<obj.Layer) == 0 {
			continue
		}
		if frustum.IntersectsAABB(obj.WorldBounds()) {
			visible.Renderables = append(visible.Renderables, obj)
		}
	}
	return visible
}
