package stencil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/chewxy/math32"
	"github.com/gekko3d/prp/portalrt/rt/camera"
	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/gekko3d/prp/portalrt/rt/portal"
	"github.com/gekko3d/prp/portalrt/rt/render"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/vector"
)

// coverageCutoff is the alpha a pixel needs to count as inside a shape.
const coverageCutoff = 128

type Stats struct {
	Submits     int
	RegionOps   int
	DrawnPixels int
}

// Target is a CPU render target with a color image, a depth buffer and an
// 8-bit region counter per pixel. Shapes are rasterized with
// golang.org/x/image/vector and depth is solved per pixel against the
// shape's plane.
type Target struct {
	Width  int
	Height int

	ClearColor color.RGBA
	SkyColor   color.RGBA
	Ambient    float32

	Color *image.RGBA
	Stats Stats

	counter []uint8
	depth   []float32
	cam     *camera.VirtualCamera
	lights  render.PackedLights
	raster  *vector.Rasterizer
	mask    *image.Alpha
}

func NewTarget(width, height int) *Target {
	t := &Target{
		Width:      width,
		Height:     height,
		ClearColor: color.RGBA{0, 0, 0, 255},
		SkyColor:   color.RGBA{90, 140, 220, 255},
		Ambient:    0.2,
		Color:      image.NewRGBA(image.Rect(0, 0, width, height)),
		counter:    make([]uint8, width*height),
		depth:      make([]float32, width*height),
		raster:     vector.NewRasterizer(width, height),
		mask:       image.NewAlpha(image.Rect(0, 0, width, height)),
	}
	t.ClearTarget()
	return t
}

func (t *Target) Counter(x, y int) uint8 { return t.counter[y*t.Width+x] }
func (t *Target) Depth(x, y int) float32 { return t.depth[y*t.Width+x] }
func (t *Target) At(x, y int) color.RGBA { return t.Color.RGBAAt(x, y) }

func (t *Target) SetupCamera(cam *camera.VirtualCamera) { t.cam = cam }

func (t *Target) ClearTarget() {
	draw.Draw(t.Color, t.Color.Bounds(), image.NewUniform(t.ClearColor), image.Point{}, draw.Src)
	for i := range t.depth {
		t.depth[i] = 1
		t.counter[i] = 0
	}
}

func (t *Target) UploadLights(lights render.PackedLights) { t.lights = lights }

func (t *Target) FillRegion(op render.RegionOp) {
	t.Stats.RegionOps++
	for i, c := range t.counter {
		switch op {
		case render.RegionIncrease:
			if c < 255 {
				t.counter[i] = c + 1
			}
		case render.RegionDecrease:
			if c > 0 {
				t.counter[i] = c - 1
			}
		}
	}
}

func (t *Target) DrawRegionMesh(p *portal.Snapshot, op render.RegionOp) {
	if t.cam == nil {
		return
	}
	t.Stats.RegionOps++
	surface := p.Portal.Surface
	unproject := t.cam.WorldToClip.Inv()

	for i := 0; i+2 < len(surface.Indices); i += 3 {
		var tri [3]mgl32.Vec3
		for k := 0; k < 3; k++ {
			tri[k] = core.MulPoint(p.LocalToWorld, surface.Vertices[surface.Indices[i+k]])
		}
		plane := core.PlaneFromPoints(tri[0], tri[1], tri[2])
		if !t.coverWith(t.cam, tri) {
			continue
		}
		t.eachCovered(func(x, y, idx int) {
			switch op {
			case render.RegionCarve:
				if t.counter[idx] == 1 {
					t.counter[idx] = 0
				}
			case render.RegionDepthOnly:
				if t.counter[idx] != 0 {
					return
				}
				if z, _, ok := t.solveDepth(t.cam, unproject, plane, x, y); ok {
					t.depth[idx] = z
				}
			}
		})
	}
}

func (t *Target) DrawRenderers(cam *camera.VirtualCamera, visible render.VisibleSet, settings render.DrawSettings) {
	unproject := cam.WorldToClip.Inv()
	clipNear := cam.Output.Valid()

	for _, r := range visible.Filter(settings.Queue, settings.Sort, cam.Position) {
		if r.Mesh == nil {
			continue
		}
		l2w := r.Transform.ObjectToWorld()
		m := r.Mesh
		for i := 0; i+2 < len(m.Indices); i += 3 {
			var tri [3]mgl32.Vec3
			for k := 0; k < 3; k++ {
				tri[k] = core.MulPoint(l2w, m.Vertices[m.Indices[i+k]])
			}
			plane := core.PlaneFromPoints(tri[0], tri[1], tri[2])
			if plane.Normal.Len() == 0 || !t.coverWith(cam, tri) {
				continue
			}
			shaded := t.shade(r.Material.Color, plane.Normal, tri[0].Add(tri[1]).Add(tri[2]).Mul(1.0/3))

			t.eachCovered(func(x, y, idx int) {
				if settings.Masked && t.counter[idx] != settings.StencilRef {
					return
				}
				z, world, ok := t.solveDepth(cam, unproject, plane, x, y)
				if !ok || z >= t.depth[idx] {
					return
				}
				// Everything between a virtual camera and its exit portal
				// belongs to the wrong side of the portal.
				if clipNear && cam.Frustum[core.PlaneNear].Distance(world) < 0 {
					return
				}
				if !r.Material.Transparent {
					t.depth[idx] = z
				}
				t.Color.SetRGBA(x, y, shaded)
				t.Stats.DrawnPixels++
			})
		}
	}
}

func (t *Target) DrawSkybox(cam *camera.VirtualCamera, masked bool) {
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			idx := y*t.Width + x
			if t.depth[idx] < 1 || (masked && t.counter[idx] != 0) {
				continue
			}
			t.Color.SetRGBA(x, y, t.SkyColor)
		}
	}
}

func (t *Target) Submit() { t.Stats.Submits++ }

// WritePNG encodes the color buffer.
func (t *Target) WritePNG(w io.Writer) error {
	if err := png.Encode(w, t.Color); err != nil {
		return fmt.Errorf("stencil: encode png: %w", err)
	}
	return nil
}

// coverWith rasterizes the triangle, clipped to the near plane, into the
// coverage mask. It reports false when nothing is left to draw.
func (t *Target) coverWith(cam *camera.VirtualCamera, tri [3]mgl32.Vec3) bool {
	var clip []mgl32.Vec4
	for _, p := range tri {
		clip = append(clip, cam.WorldToClip.Mul4x1(p.Vec4(1)))
	}
	clip = clipNearPlane(clip)
	if len(clip) < 3 {
		return false
	}

	for i := range t.mask.Pix {
		t.mask.Pix[i] = 0
	}
	t.raster.Reset(t.Width, t.Height)
	for i, c := range clip {
		sx := (c.X()/c.W()*0.5 + 0.5) * float32(t.Width)
		sy := (0.5 - c.Y()/c.W()*0.5) * float32(t.Height)
		if i == 0 {
			t.raster.MoveTo(sx, sy)
		} else {
			t.raster.LineTo(sx, sy)
		}
	}
	t.raster.ClosePath()
	t.raster.Draw(t.mask, t.mask.Bounds(), image.Opaque, image.Point{})
	return true
}

func (t *Target) eachCovered(fn func(x, y, idx int)) {
	for y := 0; y < t.Height; y++ {
		row := y * t.mask.Stride
		for x := 0; x < t.Width; x++ {
			if t.mask.Pix[row+x] >= coverageCutoff {
				fn(x, y, y*t.Width+x)
			}
		}
	}
}

// solveDepth intersects the view ray through the pixel center with plane
// and returns its NDC depth mapped to [0, 1].
func (t *Target) solveDepth(cam *camera.VirtualCamera, unproject mgl32.Mat4, plane core.Plane, x, y int) (float32, mgl32.Vec3, bool) {
	nx := (float32(x)+0.5)/float32(t.Width)*2 - 1
	ny := 1 - (float32(y)+0.5)/float32(t.Height)*2
	near := unproject.Mul4x1(mgl32.Vec4{nx, ny, -1, 1})
	far := unproject.Mul4x1(mgl32.Vec4{nx, ny, 1, 1})
	if near.W() == 0 || far.W() == 0 {
		return 0, mgl32.Vec3{}, false
	}
	origin := near.Vec3().Mul(1 / near.W())
	dir := far.Vec3().Mul(1 / far.W()).Sub(origin)
	if dir.Len() == 0 {
		return 0, mgl32.Vec3{}, false
	}
	dir = dir.Normalize()
	dist, ok := plane.Raycast(origin, dir)
	if !ok {
		return 0, mgl32.Vec3{}, false
	}
	world := origin.Add(dir.Mul(dist))
	c := cam.WorldToClip.Mul4x1(world.Vec4(1))
	if c.W() <= 0 {
		return 0, world, false
	}
	return c.Z()/c.W()*0.5 + 0.5, world, true
}

// shade applies the packed lights to a flat-shaded triangle.
func (t *Target) shade(base mgl32.Vec4, normal, pos mgl32.Vec3) color.RGBA {
	if base == (mgl32.Vec4{}) {
		base = mgl32.Vec4{1, 1, 1, 1}
	}
	light := mgl32.Vec3{t.Ambient, t.Ambient, t.Ambient}
	for i := 0; i < t.lights.Count; i++ {
		lp := t.lights.DirectionsOrPositions[i]
		toLight := lp.Vec3().Sub(pos.Mul(lp.W()))
		distSqr := math32.Max(toLight.Dot(toLight), 0.00001)
		toLight = toLight.Mul(1 / math32.Sqrt(distSqr))

		atten := t.lights.Attenuations[i]
		rangeFade := saturate(1 - square(distSqr*atten.X()))
		rangeFade *= rangeFade
		spotFade := saturate(t.lights.SpotDirections[i].Vec3().Dot(toLight)*atten.Z() + atten.W())
		spotFade *= spotFade

		diffuse := saturate(normal.Dot(toLight)) * rangeFade * spotFade
		if lp.W() != 0 {
			diffuse /= distSqr
		}
		light = light.Add(t.lights.Colors[i].Vec3().Mul(diffuse))
	}
	return color.RGBA{
		R: channel(base.X() * light.X()),
		G: channel(base.Y() * light.Y()),
		B: channel(base.Z() * light.Z()),
		A: channel(base.W()),
	}
}

// clipNearPlane keeps the part of a clip-space polygon with z >= -w.
func clipNearPlane(poly []mgl32.Vec4) []mgl32.Vec4 {
	const eps = 1e-5
	dist := func(v mgl32.Vec4) float32 { return v.Z() + v.W() - eps }
	var out []mgl32.Vec4
	for i, cur := range poly {
		prev := poly[(i+len(poly)-1)%len(poly)]
		dc, dp := dist(cur), dist(prev)
		if dc >= 0 {
			if dp < 0 {
				out = append(out, lerp4(prev, cur, dp/(dp-dc)))
			}
			out = append(out, cur)
		} else if dp >= 0 {
			out = append(out, lerp4(prev, cur, dp/(dp-dc)))
		}
	}
	return out
}

func lerp4(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}

func saturate(v float32) float32 {
	return math32.Min(math32.Max(v, 0), 1)
}

func square(v float32) float32 { return v * v }

func channel(v float32) uint8 {
	return uint8(saturate(v)*255 + 0.5)
}
