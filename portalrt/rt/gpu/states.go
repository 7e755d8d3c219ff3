package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/prp/portalrt/rt/render"
)

const DepthStencilFormat = wgpu.TextureFormatDepth24PlusStencil8

func stencilFace(compare wgpu.CompareFunction, pass wgpu.StencilOperation) wgpu.StencilFaceState {
	return wgpu.StencilFaceState{
		Compare:     compare,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      pass,
	}
}

func depthStencil(depthWrite bool, depthCompare wgpu.CompareFunction, face wgpu.StencilFaceState) wgpu.DepthStencilState {
	return wgpu.DepthStencilState{
		Format:            DepthStencilFormat,
		DepthWriteEnabled: depthWrite,
		DepthCompare:      depthCompare,
		StencilFront:      face,
		StencilBack:       face,
		StencilReadMask:   0xFF,
		StencilWriteMask:  0xFF,
	}
}

// RegionState is the depth-stencil state of a region counter op. Increase
// and Decrease cover the whole target, Carve and DepthOnly only the portal
// surface.
func RegionState(op render.RegionOp) wgpu.DepthStencilState {
	switch op {
	case render.RegionIncrease:
		return depthStencil(false, wgpu.CompareFunctionAlways, stencilFace(wgpu.CompareFunctionAlways, wgpu.StencilOperationIncrementClamp))
	case render.RegionCarve:
		return depthStencil(false, wgpu.CompareFunctionAlways, stencilFace(wgpu.CompareFunctionEqual, wgpu.StencilOperationDecrementClamp))
	case render.RegionDecrease:
		return depthStencil(false, wgpu.CompareFunctionAlways, stencilFace(wgpu.CompareFunctionAlways, wgpu.StencilOperationDecrementClamp))
	default:
		return depthStencil(true, wgpu.CompareFunctionAlways, stencilFace(wgpu.CompareFunctionEqual, wgpu.StencilOperationKeep))
	}
}

// RegionReference is the stencil reference RegionState compares against.
func RegionReference(op render.RegionOp) uint32 {
	if op == render.RegionCarve {
		return 1
	}
	return 0
}

// SceneState is used for opaque and transparent renderers. Masked draws only
// land where the counter equals the reference.
func SceneState(masked, transparent bool) wgpu.DepthStencilState {
	compare := wgpu.CompareFunctionAlways
	if masked {
		compare = wgpu.CompareFunctionEqual
	}
	return depthStencil(!transparent, wgpu.CompareFunctionLess, stencilFace(compare, wgpu.StencilOperationKeep))
}

// SkyState draws on the far plane, so only untouched depth passes.
func SkyState(masked bool) wgpu.DepthStencilState {
	s := SceneState(masked, true)
	s.DepthCompare = wgpu.CompareFunctionLessEqual
	return s
}
