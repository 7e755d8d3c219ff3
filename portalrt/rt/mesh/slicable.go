package mesh

import (
	"errors"

	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

var ErrNotTriangles = errors.New("mesh: slicing needs triangle topology")

// Context places a mesh relative to a portal plane.
type Context uint8

const (
	// Nominal: entirely on the plane's front side.
	Nominal Context = iota
	// Between: the plane cuts through the mesh bounds.
	Between
	// Portaled: entirely behind the plane.
	Portaled
)

func (c Context) String() string {
	switch c {
	case Nominal:
		return "nominal"
	case Between:
		return "between"
	case Portaled:
		return "portaled"
	}
	return "unknown"
}

// Slicable clips a mesh against a plane in place and can restore it. The
// unmodified arrays are cached at construction and every Slice starts over
// from them.
type Slicable struct {
	Mesh *Mesh

	vertices []mgl32.Vec3
	normals  []mgl32.Vec3
	indices  []uint32
	bounds   core.AABB
	sliced   bool
}

func NewSlicable(m *Mesh) *Slicable {
	return &Slicable{
		Mesh:     m,
		vertices: append([]mgl32.Vec3(nil), m.Vertices...),
		normals:  append([]mgl32.Vec3(nil), m.Normals...),
		indices:  append([]uint32(nil), m.Indices...),
		bounds:   core.AABBFromPoints(m.Vertices),
	}
}

// Sliced reports whether the mesh currently holds a clipped copy.
func (s *Slicable) Sliced() bool { return s.sliced }

// Bounds is the object-space box of the unclipped mesh.
func (s *Slicable) Bounds() core.AABB { return s.bounds }

// Classify places the unclipped mesh against plane, given in object space.
func (s *Slicable) Classify(plane core.Plane) Context {
	if s.bounds.IntersectsPlane(plane) {
		return Between
	}
	if plane.GetSide(s.bounds.Center()) {
		return Nominal
	}
	return Portaled
}

// Slice keeps the part of the original mesh on the front side of plane,
// given in object space. Triangles crossing the plane are cut; the new
// vertices copy the normal of the kept vertex they were cut from.
func (s *Slicable) Slice(plane core.Plane) error {
	if s.Mesh.Topology != Triangles {
		return ErrNotTriangles
	}

	withNormals := len(s.normals) == len(s.vertices)
	vertices := append(make([]mgl32.Vec3, 0, len(s.vertices)+len(s.indices)/3*2), s.vertices...)
	var normals []mgl32.Vec3
	if withNormals {
		normals = append(make([]mgl32.Vec3, 0, cap(vertices)), s.normals...)
	}
	indices := make([]uint32, 0, len(s.indices)+len(s.indices)/3*3)

	cut := func(kept, dropped uint32) uint32 {
		origin := s.vertices[kept]
		edge := s.vertices[dropped].Sub(origin)
		length := edge.Len()
		point := origin
		if length > 0 {
			dir := edge.Mul(1 / length)
			if t, ok := plane.Raycast(origin, dir); ok {
				if t > length {
					t = length
				}
				point = origin.Add(dir.Mul(t))
			}
		}
		vertices = append(vertices, point)
		if withNormals {
			normals = append(normals, s.normals[kept])
		}
		return uint32(len(vertices) - 1)
	}

	for i := 0; i+2 < len(s.indices); i += 3 {
		tri := [3]uint32{s.indices[i], s.indices[i+1], s.indices[i+2]}
		var front [3]bool
		count := 0
		for k, idx := range tri {
			if plane.GetSide(s.vertices[idx]) {
				front[k] = true
				count++
			}
		}

		switch count {
		case 3:
			indices = append(indices, tri[0], tri[1], tri[2])
		case 0:
		case 1:
			// a is kept; the polygon is a, a->b, c->a.
			a, b, c := rotate(tri, front, true)
			ab := cut(a, b)
			ac := cut(a, c)
			indices = append(indices, a, ab, ac)
		case 2:
			// a is dropped; the polygon is a->b, b, c, c->a.
			a, b, c := rotate(tri, front, false)
			ba := cut(b, a)
			ca := cut(c, a)
			indices = append(indices, ba, b, c, ba, c, ca)
		}
	}

	s.Mesh.Vertices = vertices
	s.Mesh.Indices = indices
	if withNormals {
		s.Mesh.Normals = normals
	}
	s.sliced = true
	return nil
}

// Pristine returns a new mesh holding the unclipped arrays.
func (s *Slicable) Pristine() *Mesh {
	return &Mesh{
		Vertices: append([]mgl32.Vec3(nil), s.vertices...),
		Normals:  append([]mgl32.Vec3(nil), s.normals...),
		Indices:  append([]uint32(nil), s.indices...),
		Topology: s.Mesh.Topology,
	}
}

// Revert restores the cached arrays.
func (s *Slicable) Revert() {
	s.Mesh.Vertices = append([]mgl32.Vec3(nil), s.vertices...)
	s.Mesh.Normals = append([]mgl32.Vec3(nil), s.normals...)
	s.Mesh.Indices = append([]uint32(nil), s.indices...)
	s.sliced = false
}

// rotate returns tri with the single vertex whose side equals odd first,
// keeping the winding.
func rotate(tri [3]uint32, front [3]bool, odd bool) (uint32, uint32, uint32) {
	for k := 0; k < 3; k++ {
		if front[k] == odd {
			return tri[k], tri[(k+1)%3], tri[(k+2)%3]
		}
	}
	return tri[0], tri[1], tri[2]
}
