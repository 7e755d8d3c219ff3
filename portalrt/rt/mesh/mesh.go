package mesh

import (
	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

type Topology uint8

const (
	Triangles Topology = iota
	Lines
	Points
)

func (t Topology) String() string {
	switch t {
	case Triangles:
		return "triangles"
	case Lines:
		return "lines"
	case Points:
		return "points"
	}
	return "unknown"
}

// Mesh is an indexed vertex list in object space. Normals are optional; when
// present there is one per vertex.
type Mesh struct {
	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3
	Indices  []uint32
	Topology Topology
}

// Clone returns a deep copy of m.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	return &Mesh{
		Vertices: append([]mgl32.Vec3(nil), m.Vertices...),
		Normals:  append([]mgl32.Vec3(nil), m.Normals...),
		Indices:  append([]uint32(nil), m.Indices...),
		Topology: m.Topology,
	}
}

// Bounds is the object-space box of the referenced vertices.
func (m *Mesh) Bounds() core.AABB {
	return core.AABBFromPoints(m.Vertices)
}

// TriangleCount ignores a trailing partial triangle.
func (m *Mesh) TriangleCount() int {
	if m.Topology != Triangles {
		return 0
	}
	return len(m.Indices) / 3
}

// Triangle returns the positions of triangle i.
func (m *Mesh) Triangle(i int) [3]mgl32.Vec3 {
	return [3]mgl32.Vec3{
		m.Vertices[m.Indices[3*i]],
		m.Vertices[m.Indices[3*i+1]],
		m.Vertices[m.Indices[3*i+2]],
	}
}

// NewQuad builds a width x height quad in the XY plane centered on the
// origin. Its visible face looks down +Z, the back of a portal's Forward.
func NewQuad(width, height float32) *Mesh {
	w, h := width/2, height/2
	n := mgl32.Vec3{0, 0, 1}
	return &Mesh{
		Vertices: []mgl32.Vec3{{-w, -h, 0}, {-w, h, 0}, {w, h, 0}, {w, -h, 0}},
		Normals:  []mgl32.Vec3{n, n, n, n},
		Indices:  []uint32{0, 2, 1, 0, 3, 2},
		Topology: Triangles,
	}
}

// NewBox builds an axis aligned box with flat-shaded faces.
func NewBox(extents mgl32.Vec3) *Mesh {
	ex, ey, ez := extents.X(), extents.Y(), extents.Z()
	faces := []struct {
		normal  mgl32.Vec3
		corners [4]mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{ex, -ey, ez}, {ex, -ey, -ez}, {ex, ey, -ez}, {ex, ey, ez}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-ex, -ey, -ez}, {-ex, -ey, ez}, {-ex, ey, ez}, {-ex, ey, -ez}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-ex, ey, ez}, {ex, ey, ez}, {ex, ey, -ez}, {-ex, ey, -ez}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-ex, -ey, -ez}, {ex, -ey, -ez}, {ex, -ey, ez}, {-ex, -ey, ez}}},
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-ex, -ey, ez}, {ex, -ey, ez}, {ex, ey, ez}, {-ex, ey, ez}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{ex, -ey, -ez}, {-ex, -ey, -ez}, {-ex, ey, -ez}, {ex, ey, -ez}}},
	}

	m := &Mesh{Topology: Triangles}
	for _, f := range faces {
		base := uint32(len(m.Vertices))
		for _, c := range f.corners {
			m.Vertices = append(m.Vertices, c)
			m.Normals = append(m.Normals, f.normal)
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}
