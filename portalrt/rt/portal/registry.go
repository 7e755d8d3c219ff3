package portal

import (
	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Handle names a snapshot within one Frame. The zero Handle is invalid.
type Handle struct {
	index int32
	epoch uint64
}

func (h Handle) Valid() bool { return h.epoch != 0 }

// Registry holds the active portals of a scene in registration order.
// Removal leaves a hole that is compacted once holes outnumber portals.
type Registry struct {
	portals []*Portal
	index   map[*Portal]int
	holes   int
	epoch   uint64
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[*Portal]int)}
}

// Register adds p. Registering twice is a no-op.
func (r *Registry) Register(p *Portal) {
	if p == nil {
		return
	}
	if _, ok := r.index[p]; ok {
		return
	}
	r.index[p] = len(r.portals)
	r.portals = append(r.portals, p)
}

// Unregister removes p. Unknown portals are ignored.
func (r *Registry) Unregister(p *Portal) {
	i, ok := r.index[p]
	if !ok {
		return
	}
	delete(r.index, p)
	r.portals[i] = nil
	r.holes++
	if r.holes > len(r.index) {
		r.compact()
	}
}

func (r *Registry) compact() {
	live := r.portals[:0]
	for _, p := range r.portals {
		if p == nil {
			continue
		}
		r.index[p] = len(live)
		live = append(live, p)
	}
	for i := len(live); i < len(r.portals); i++ {
		r.portals[i] = nil
	}
	r.portals = live
	r.holes = 0
}

func (r *Registry) Contains(p *Portal) bool {
	_, ok := r.index[p]
	return ok
}

func (r *Registry) Len() int { return len(r.index) }

// Portals lists the registered portals in registration order.
func (r *Registry) Portals() []*Portal {
	out := make([]*Portal, 0, len(r.index))
	for _, p := range r.portals {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Synchronize freezes every registered portal into a new Frame. All frame
// queries read the returned snapshots only.
func (r *Registry) Synchronize() *Frame {
	r.epoch++
	f := &Frame{
		Epoch:     r.epoch,
		snapshots: make([]Snapshot, 0, len(r.index)),
		lookup:    make(map[*Portal]int32, len(r.index)),
	}
	for _, p := range r.portals {
		if p == nil {
			continue
		}
		f.lookup[p] = int32(len(f.snapshots))
		f.snapshots = append(f.snapshots, snapshot(p))
		p.Transform.Dirty = false
	}
	for i := range f.snapshots {
		s := &f.snapshots[i]
		if out, ok := f.lookup[s.Portal.Output]; ok && s.Portal.Output != nil {
			s.Output = Handle{index: out, epoch: f.Epoch}
			s.ExitPlane = f.snapshots[out].Plane
		}
	}
	return f
}

// Frame is an immutable set of portal snapshots.
type Frame struct {
	Epoch     uint64
	snapshots []Snapshot
	lookup    map[*Portal]int32
}

func (f *Frame) Len() int { return len(f.snapshots) }

// Get resolves h. Handles from another frame are rejected.
func (f *Frame) Get(h Handle) (*Snapshot, bool) {
	if f == nil || h.epoch != f.Epoch || h.index < 0 || int(h.index) >= len(f.snapshots) {
		return nil, false
	}
	return &f.snapshots[h.index], true
}

// Lookup returns the handle of p in this frame.
func (f *Frame) Lookup(p *Portal) (Handle, bool) {
	i, ok := f.lookup[p]
	if !ok {
		return Handle{}, false
	}
	return Handle{index: i, epoch: f.Epoch}, true
}

func (f *Frame) traversable(i int) bool {
	return f.snapshots[i].Output.Valid()
}

// VisibleInFrustum returns the traversable portals overlapping frustum,
// except excluded, whose visible face is turned towards origin.
func (f *Frame) VisibleInFrustum(frustum core.Frustum, excluded Handle, origin mgl32.Vec3) []Handle {
	var out []Handle
	for i := range f.snapshots {
		h := Handle{index: int32(i), epoch: f.Epoch}
		if h == excluded || !f.traversable(i) {
			continue
		}
		s := &f.snapshots[i]
		if s.Forward.Dot(s.Center.Sub(origin)) <= 0 {
			continue
		}
		if !frustum.IntersectsAABB(s.Bounds) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// SegmentCrossed reports the portal passed through when moving from prev to
// curr: the segment must go from the visible side to the back side of the
// portal plane, move along Forward and hit the portal volume. When several
// portals qualify the one crossed first wins.
func (f *Frame) SegmentCrossed(prev, curr mgl32.Vec3) (Handle, bool) {
	if prev == curr {
		return Handle{}, false
	}
	delta := curr.Sub(prev)

	best := Handle{}
	bestT := float32(2)
	for i := range f.snapshots {
		if !f.traversable(i) {
			continue
		}
		s := &f.snapshots[i]
		if delta.Dot(s.Forward) <= 0 {
			continue
		}
		d0, d1 := s.Plane.Distance(prev), s.Plane.Distance(curr)
		if d0 < 0 || d1 >= 0 {
			continue
		}
		localOrigin := core.MulPoint(s.WorldToLocal, prev)
		localDelta := core.MulVector(s.WorldToLocal, delta)
		if _, ok := s.Portal.Volume.IntersectSegment(localOrigin, localDelta); !ok {
			continue
		}
		t := d0 / (d0 - d1)
		if t < bestT {
			bestT = t
			best = Handle{index: int32(i), epoch: f.Epoch}
		}
	}
	return best, best.Valid()
}

// Touching returns the first traversable portal, in registration order,
// whose world volume overlaps bounds. Sharing a face is not touching.
func (f *Frame) Touching(bounds core.AABB) (Handle, bool) {
	for i := range f.snapshots {
		if f.traversable(i) && f.snapshots[i].Bounds.Overlaps(bounds) {
			return Handle{index: int32(i), epoch: f.Epoch}, true
		}
	}
	return Handle{}, false
}
