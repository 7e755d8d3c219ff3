package gpu

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/prp/portalrt/rt/camera"
	"github.com/gekko3d/prp/portalrt/rt/mesh"
	"github.com/gekko3d/prp/portalrt/rt/portal"
	"github.com/gekko3d/prp/portalrt/rt/render"
	"github.com/gekko3d/prp/portalrt/rt/shaders"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraUniform matches Camera in the WGSL sources.
type CameraUniform struct {
	ViewProj mgl32.Mat4
	Position mgl32.Vec4
}

// ObjectUniform matches Object in the WGSL sources.
type ObjectUniform struct {
	Model mgl32.Mat4
	Color mgl32.Vec4
}

// LightsUniform matches Lights in scene.wgsl.
type LightsUniform struct {
	Colors                [render.MaxLights]mgl32.Vec4
	DirectionsOrPositions [render.MaxLights]mgl32.Vec4
	Attenuations          [render.MaxLights]mgl32.Vec4
	SpotDirections        [render.MaxLights]mgl32.Vec4
	Info                  mgl32.Vec4
	Sky                   mgl32.Vec4
}

type meshBuffers struct {
	positions *wgpu.Buffer
	normals   *wgpu.Buffer
	indices   *wgpu.Buffer
	capVerts  int
	capIdx    int
	count     uint32
	frame     uint64
}

// PortalPass records a frame of the portal renderer into one wgpu render
// pass with a depth24plus-stencil8 attachment. The stencil value is the
// region counter.
type PortalPass struct {
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Format   wgpu.TextureFormat
	SkyColor mgl32.Vec4
	Ambient  float32

	layout    *wgpu.BindGroupLayout
	bindGroup *wgpu.BindGroup
	uniforms  *wgpu.Buffer
	lights    *wgpu.Buffer
	ring      uniformRing
	identity  uint32

	region [4]*wgpu.RenderPipeline
	scene  [2][2]*wgpu.RenderPipeline
	sky    [2]*wgpu.RenderPipeline

	meshes map[*mesh.Mesh]*meshBuffers
	frame  uint64

	encoder   *wgpu.CommandEncoder
	colorView *wgpu.TextureView
	depthView *wgpu.TextureView
	pass      *wgpu.RenderPassEncoder
	camOffset uint32
	lastErr   error
}

func NewPortalPass(device *wgpu.Device, format wgpu.TextureFormat, slots int) (*PortalPass, error) {
	p := &PortalPass{
		Device:   device,
		Queue:    device.GetQueue(),
		Format:   format,
		SkyColor: mgl32.Vec4{0.35, 0.55, 0.86, 1},
		Ambient:  0.2,
		ring:     uniformRing{slots: slots},
		meshes:   make(map[*mesh.Mesh]*meshBuffers),
	}

	var err error
	p.uniforms, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "PortalUniformRing",
		Size:  p.ring.size(),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	p.lights, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "PortalLights",
		Size:  uint64(unsafe.Sizeof(LightsUniform{})),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	p.layout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "PortalBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   uint64(unsafe.Sizeof(CameraUniform{})),
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   uint64(unsafe.Sizeof(ObjectUniform{})),
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64(unsafe.Sizeof(LightsUniform{})),
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	p.bindGroup, err = device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "PortalBG",
		Layout: p.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.uniforms, Size: uint64(unsafe.Sizeof(CameraUniform{}))},
			{Binding: 1, Buffer: p.uniforms, Size: uint64(unsafe.Sizeof(ObjectUniform{}))},
			{Binding: 2, Buffer: p.lights, Size: uint64(unsafe.Sizeof(LightsUniform{}))},
		},
	})
	if err != nil {
		return nil, err
	}

	if err := p.createPipelines(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PortalPass) createPipelines() error {
	sceneModule, err := p.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "PortalSceneShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.SceneWGSL},
	})
	if err != nil {
		return err
	}
	regionModule, err := p.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "PortalRegionShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.RegionWGSL},
	})
	if err != nil {
		return err
	}
	layout, err := p.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.layout},
	})
	if err != nil {
		return err
	}

	vec3Layout := func(location uint32) wgpu.VertexBufferLayout {
		return wgpu.VertexBufferLayout{
			ArrayStride: uint64(unsafe.Sizeof(mgl32.Vec3{})),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: location},
			},
		}
	}

	build := func(label string, module *wgpu.ShaderModule, vs, fs string, buffers []wgpu.VertexBufferLayout, ds wgpu.DepthStencilState, target wgpu.ColorTargetState) (*wgpu.RenderPipeline, error) {
		return p.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label:  label,
			Layout: layout,
			Vertex: wgpu.VertexState{
				Module:     module,
				EntryPoint: vs,
				Buffers:    buffers,
			},
			Fragment: &wgpu.FragmentState{
				Module:     module,
				EntryPoint: fs,
				Targets:    []wgpu.ColorTargetState{target},
			},
			Primitive: wgpu.PrimitiveState{
				Topology:  wgpu.PrimitiveTopologyTriangleList,
				FrontFace: wgpu.FrontFaceCCW,
				CullMode:  wgpu.CullModeNone,
			},
			DepthStencil: &ds,
			Multisample: wgpu.MultisampleState{
				Count: 1,
				Mask:  0xFFFFFFFF,
			},
		})
	}

	noColor := wgpu.ColorTargetState{Format: p.Format, WriteMask: wgpu.ColorWriteMaskNone}
	opaque := wgpu.ColorTargetState{Format: p.Format, WriteMask: wgpu.ColorWriteMaskAll}
	blended := wgpu.ColorTargetState{
		Format:    p.Format,
		WriteMask: wgpu.ColorWriteMaskAll,
		Blend: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
			Alpha: wgpu.BlendComponent{
				Operation: wgpu.BlendOperationAdd,
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			},
		},
	}

	for _, op := range []render.RegionOp{render.RegionIncrease, render.RegionCarve, render.RegionDecrease, render.RegionDepthOnly} {
		vs, buffers := "vs_fullscreen", []wgpu.VertexBufferLayout(nil)
		if op == render.RegionCarve || op == render.RegionDepthOnly {
			vs, buffers = "vs_portal", []wgpu.VertexBufferLayout{vec3Layout(0)}
		}
		p.region[op], err = build("PortalRegion:"+op.String(), regionModule, vs, "fs_main", buffers, RegionState(op), noColor)
		if err != nil {
			return fmt.Errorf("gpu: region pipeline %s: %w", op, err)
		}
	}

	sceneBuffers := []wgpu.VertexBufferLayout{vec3Layout(0), vec3Layout(1)}
	for m, masked := range []bool{false, true} {
		for t, transparent := range []bool{false, true} {
			target := opaque
			if transparent {
				target = blended
			}
			p.scene[m][t], err = build("PortalScene", sceneModule, "vs_main", "fs_main", sceneBuffers, SceneState(masked, transparent), target)
			if err != nil {
				return fmt.Errorf("gpu: scene pipeline: %w", err)
			}
		}
		p.sky[m], err = build("PortalSky", sceneModule, "vs_sky", "fs_sky", nil, SkyState(masked), opaque)
		if err != nil {
			return fmt.Errorf("gpu: sky pipeline: %w", err)
		}
	}
	return nil
}

// Begin starts a frame. Views must outlive the frame.
func (p *PortalPass) Begin(encoder *wgpu.CommandEncoder, color, depth *wgpu.TextureView) {
	p.encoder = encoder
	p.colorView = color
	p.depthView = depth
	p.ring.reset()
	p.frame++
	p.lastErr = nil
	p.evictMeshes()
	p.identity = p.writeObject(mgl32.Ident4(), mgl32.Vec4{})
}

// Err reports the first error recorded since Begin.
func (p *PortalPass) Err() error { return p.lastErr }

func (p *PortalPass) fail(err error) {
	if p.lastErr == nil {
		p.lastErr = err
	}
}

func (p *PortalPass) writeSlot(data []byte) uint32 {
	off, err := p.ring.alloc()
	if err != nil {
		p.fail(err)
		return 0
	}
	p.Queue.WriteBuffer(p.uniforms, uint64(off), data)
	return off
}

func (p *PortalPass) writeObject(model mgl32.Mat4, color mgl32.Vec4) uint32 {
	u := ObjectUniform{Model: model, Color: color}
	return p.writeSlot(unsafe.Slice((*byte)(unsafe.Pointer(&u)), unsafe.Sizeof(u)))
}

func (p *PortalPass) SetupCamera(cam *camera.VirtualCamera) {
	u := CameraUniform{
		ViewProj: cam.ObliqueProjection.Mul4(cam.WorldToCamera),
		Position: cam.Position.Vec4(1),
	}
	p.camOffset = p.writeSlot(unsafe.Slice((*byte)(unsafe.Pointer(&u)), unsafe.Sizeof(u)))
}

func (p *PortalPass) ClearTarget() {
	if p.pass != nil {
		p.endPass()
	}
	if p.encoder == nil {
		p.fail(fmt.Errorf("gpu: ClearTarget before Begin"))
		return
	}
	p.pass = p.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       p.colorView,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:              p.depthView,
			DepthLoadOp:       wgpu.LoadOpClear,
			DepthStoreOp:      wgpu.StoreOpStore,
			DepthClearValue:   1,
			StencilLoadOp:     wgpu.LoadOpClear,
			StencilStoreOp:    wgpu.StoreOpStore,
			StencilClearValue: 0,
		},
	})
}

func (p *PortalPass) UploadLights(lights render.PackedLights) {
	u := LightsUniform{
		Colors:                lights.Colors,
		DirectionsOrPositions: lights.DirectionsOrPositions,
		Attenuations:          lights.Attenuations,
		SpotDirections:        lights.SpotDirections,
		Info:                  mgl32.Vec4{float32(lights.Count), p.Ambient, 0, 0},
		Sky:                   p.SkyColor,
	}
	p.Queue.WriteBuffer(p.lights, 0, unsafe.Slice((*byte)(unsafe.Pointer(&u)), unsafe.Sizeof(u)))
}

func (p *PortalPass) FillRegion(op render.RegionOp) {
	if p.pass == nil {
		return
	}
	p.pass.SetPipeline(p.region[op])
	p.pass.SetStencilReference(RegionReference(op))
	p.pass.SetBindGroup(0, p.bindGroup, []uint32{p.camOffset, p.identity})
	p.pass.Draw(3, 1, 0, 0)
}

func (p *PortalPass) DrawRegionMesh(s *portal.Snapshot, op render.RegionOp) {
	if p.pass == nil {
		return
	}
	buf := p.upload(s.Portal.Surface)
	if buf == nil {
		return
	}
	obj := p.writeObject(s.LocalToWorld, mgl32.Vec4{})
	p.pass.SetPipeline(p.region[op])
	p.pass.SetStencilReference(RegionReference(op))
	p.pass.SetBindGroup(0, p.bindGroup, []uint32{p.camOffset, obj})
	p.pass.SetVertexBuffer(0, buf.positions, 0, buf.positions.GetSize())
	p.pass.SetIndexBuffer(buf.indices, wgpu.IndexFormatUint32, 0, buf.indices.GetSize())
	p.pass.DrawIndexed(buf.count, 1, 0, 0, 0)
}

func (p *PortalPass) DrawRenderers(cam *camera.VirtualCamera, visible render.VisibleSet, settings render.DrawSettings) {
	if p.pass == nil {
		return
	}
	p.pass.SetPipeline(p.scene[boolIndex(settings.Masked)][boolIndex(settings.Queue == render.QueueTransparent)])
	p.pass.SetStencilReference(uint32(settings.StencilRef))
	for _, r := range visible.Filter(settings.Queue, settings.Sort, cam.Position) {
		buf := p.upload(r.Mesh)
		if buf == nil {
			continue
		}
		color := r.Material.Color
		if color == (mgl32.Vec4{}) {
			color = mgl32.Vec4{1, 1, 1, 1}
		}
		obj := p.writeObject(r.Transform.ObjectToWorld(), color)
		p.pass.SetBindGroup(0, p.bindGroup, []uint32{p.camOffset, obj})
		p.pass.SetVertexBuffer(0, buf.positions, 0, buf.positions.GetSize())
		p.pass.SetVertexBuffer(1, buf.normals, 0, buf.normals.GetSize())
		p.pass.SetIndexBuffer(buf.indices, wgpu.IndexFormatUint32, 0, buf.indices.GetSize())
		p.pass.DrawIndexed(buf.count, 1, 0, 0, 0)
	}
}

func (p *PortalPass) DrawSkybox(cam *camera.VirtualCamera, masked bool) {
	if p.pass == nil {
		return
	}
	p.pass.SetPipeline(p.sky[boolIndex(masked)])
	p.pass.SetStencilReference(0)
	p.pass.SetBindGroup(0, p.bindGroup, []uint32{p.camOffset, p.identity})
	p.pass.Draw(3, 1, 0, 0)
}

func (p *PortalPass) Submit() {
	if p.pass != nil {
		p.endPass()
	}
}

func (p *PortalPass) endPass() {
	if err := p.pass.End(); err != nil {
		p.fail(fmt.Errorf("gpu: end portal pass: %w", err))
	}
	p.pass.Release()
	p.pass = nil
}

// upload streams m into its cached buffers once per frame. Sliced meshes
// change in place, so nothing is assumed static.
func (p *PortalPass) upload(m *mesh.Mesh) *meshBuffers {
	if m == nil || len(m.Indices) == 0 || m.Topology != mesh.Triangles {
		return nil
	}
	buf := p.meshes[m]
	if buf == nil {
		buf = &meshBuffers{}
		p.meshes[m] = buf
	}
	if buf.frame == p.frame {
		return buf
	}

	if len(m.Vertices) > buf.capVerts {
		buf.release()
		buf.capVerts = len(m.Vertices) + 16
		size := uint64(buf.capVerts) * uint64(unsafe.Sizeof(mgl32.Vec3{}))
		var err error
		if buf.positions, err = p.createBuffer("PortalMeshPositions", size, wgpu.BufferUsageVertex); err != nil {
			p.fail(err)
			return nil
		}
		if buf.normals, err = p.createBuffer("PortalMeshNormals", size, wgpu.BufferUsageVertex); err != nil {
			p.fail(err)
			return nil
		}
		buf.capIdx = 0
	}
	if len(m.Indices) > buf.capIdx {
		if buf.indices != nil {
			buf.indices.Release()
		}
		buf.capIdx = len(m.Indices) + 48
		var err error
		if buf.indices, err = p.createBuffer("PortalMeshIndices", uint64(buf.capIdx)*4, wgpu.BufferUsageIndex); err != nil {
			p.fail(err)
			return nil
		}
	}

	normals := m.Normals
	if len(normals) != len(m.Vertices) {
		normals = make([]mgl32.Vec3, len(m.Vertices))
	}
	vSize := uintptr(len(m.Vertices)) * unsafe.Sizeof(mgl32.Vec3{})
	p.Queue.WriteBuffer(buf.positions, 0, unsafe.Slice((*byte)(unsafe.Pointer(&m.Vertices[0])), vSize))
	p.Queue.WriteBuffer(buf.normals, 0, unsafe.Slice((*byte)(unsafe.Pointer(&normals[0])), vSize))
	p.Queue.WriteBuffer(buf.indices, 0, unsafe.Slice((*byte)(unsafe.Pointer(&m.Indices[0])), len(m.Indices)*4))
	buf.count = uint32(len(m.Indices))
	buf.frame = p.frame
	return buf
}

// evictMeshes frees the buffers of meshes not drawn for MeshRetention
// frames, such as those of destroyed clones.
func (p *PortalPass) evictMeshes() int {
	return evictStale(p.meshes, p.frame, MeshRetention,
		func(b *meshBuffers) uint64 { return b.frame },
		(*meshBuffers).release)
}

// Meshes is the number of meshes holding GPU buffers.
func (p *PortalPass) Meshes() int { return len(p.meshes) }

func (p *PortalPass) createBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return p.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
}

func (b *meshBuffers) release() {
	for _, buf := range []*wgpu.Buffer{b.positions, b.normals, b.indices} {
		if buf != nil {
			buf.Release()
		}
	}
	b.positions, b.normals, b.indices = nil, nil, nil
}

// Release frees every GPU object the pass owns.
func (p *PortalPass) Release() {
	for _, b := range p.meshes {
		b.release()
	}
	p.meshes = map[*mesh.Mesh]*meshBuffers{}
	for _, pl := range p.region {
		if pl != nil {
			pl.Release()
		}
	}
	for _, row := range p.scene {
		for _, pl := range row {
			if pl != nil {
				pl.Release()
			}
		}
	}
	for _, pl := range p.sky {
		if pl != nil {
			pl.Release()
		}
	}
	p.bindGroup.Release()
	p.layout.Release()
	p.uniforms.Release()
	p.lights.Release()
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ render.CommandSink = (*PortalPass)(nil)
