package gpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/prp/portalrt/rt/render"
	"github.com/stretchr/testify/assert"
)

func TestRegionStates(t *testing.T) {
	tests := []struct {
		op         render.RegionOp
		compare    wgpu.CompareFunction
		pass       wgpu.StencilOperation
		ref        uint32
		depthWrite bool
	}{
		{render.RegionIncrease, wgpu.CompareFunctionAlways, wgpu.StencilOperationIncrementClamp, 0, false},
		{render.RegionCarve, wgpu.CompareFunctionEqual, wgpu.StencilOperationDecrementClamp, 1, false},
		{render.RegionDecrease, wgpu.CompareFunctionAlways, wgpu.StencilOperationDecrementClamp, 0, false},
		{render.RegionDepthOnly, wgpu.CompareFunctionEqual, wgpu.StencilOperationKeep, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			s := RegionState(tt.op)
			assert.Equal(t, DepthStencilFormat, s.Format)
			assert.Equal(t, tt.compare, s.StencilFront.Compare)
			assert.Equal(t, tt.pass, s.StencilFront.PassOp)
			assert.Equal(t, s.StencilFront, s.StencilBack, "both faces behave the same")
			assert.Equal(t, wgpu.StencilOperationKeep, s.StencilFront.FailOp)
			assert.Equal(t, tt.depthWrite, s.DepthWriteEnabled)
			assert.Equal(t, wgpu.CompareFunctionAlways, s.DepthCompare)
			assert.Equal(t, tt.ref, RegionReference(tt.op))
		})
	}
}

func TestSceneStates(t *testing.T) {
	masked := SceneState(true, false)
	assert.Equal(t, wgpu.CompareFunctionEqual, masked.StencilFront.Compare)
	assert.Equal(t, wgpu.StencilOperationKeep, masked.StencilFront.PassOp)
	assert.True(t, masked.DepthWriteEnabled)
	assert.Equal(t, wgpu.CompareFunctionLess, masked.DepthCompare)

	open := SceneState(false, true)
	assert.Equal(t, wgpu.CompareFunctionAlways, open.StencilFront.Compare)
	assert.False(t, open.DepthWriteEnabled, "transparent draws keep depth")

	sky := SkyState(true)
	assert.Equal(t, wgpu.CompareFunctionLessEqual, sky.DepthCompare)
	assert.False(t, sky.DepthWriteEnabled)
	assert.Equal(t, wgpu.CompareFunctionEqual, sky.StencilFront.Compare)
}

func TestUniformRing(t *testing.T) {
	r := uniformRing{slots: 2}
	assert.Equal(t, uint64(512), r.size())

	off, err := r.alloc()
	assert.NoError(t, err)
	assert.Equal(t, uint32(0), off)
	off, err = r.alloc()
	assert.NoError(t, err)
	assert.Equal(t, uint32(UniformSlot), off)

	_, err = r.alloc()
	assert.ErrorIs(t, err, ErrRingFull)

	r.reset()
	off, err = r.alloc()
	assert.NoError(t, err)
	assert.Zero(t, off)
}
