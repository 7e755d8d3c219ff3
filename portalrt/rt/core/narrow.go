package core

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Quad is a portal outline sorted by its on-screen placement.
type Quad struct {
	BotLeft  mgl32.Vec3
	TopLeft  mgl32.Vec3
	TopRight mgl32.Vec3
	BotRight mgl32.Vec3
}

// clipW is the smallest W for which a perspective divide is trusted.
const clipW = 1e-5

// OrganizeCorners projects the 4 world corners of a portal with the viewer's
// matrices and returns them in camera space as bottom-left, top-left,
// top-right, bottom-right. Corners are split top/bottom by screen Y around
// the projected center, then left/right by screen X within each pair.
func OrganizeCorners(worldToCamera, worldToClip mgl32.Mat4, corners [4]mgl32.Vec3, center mgl32.Vec3) Quad {
	var cam [4]mgl32.Vec3
	var clip [4]mgl32.Vec4
	divide := true
	for i, c := range corners {
		cam[i] = MulPoint(worldToCamera, c)
		clip[i] = worldToClip.Mul4x1(c.Vec4(1))
		if clip[i].W() <= clipW {
			divide = false
		}
	}
	mid := worldToClip.Mul4x1(center.Vec4(1))
	if mid.W() <= clipW {
		divide = false
	}

	screen := func(v mgl32.Vec4) (float32, float32) {
		if divide {
			return v.X() / v.W(), v.Y() / v.W()
		}
		return v.X(), v.Y()
	}
	var xs, ys [4]float32
	for i := range clip {
		xs[i], ys[i] = screen(clip[i])
	}
	_, yMiddle := screen(mid)

	top := make([]int, 0, 4)
	bot := make([]int, 0, 4)
	var onLine []int
	for i := 0; i < 4; i++ {
		switch {
		case ys[i] > yMiddle:
			top = append(top, i)
		case ys[i] < yMiddle:
			bot = append(bot, i)
		default:
			onLine = append(onLine, i)
		}
	}
	for _, i := range onLine {
		if len(top) < 2 {
			top = append(top, i)
		} else {
			bot = append(bot, i)
		}
	}
	if len(top) != 2 || len(bot) != 2 {
		// A strongly skewed projection can put 3 corners on one side of the
		// center; rank by height instead.
		order := []int{0, 1, 2, 3}
		sort.SliceStable(order, func(a, b int) bool { return ys[order[a]] > ys[order[b]] })
		top = order[:2]
		bot = order[2:]
	}

	if xs[top[0]] > xs[top[1]] {
		top[0], top[1] = top[1], top[0]
	}
	if xs[bot[0]] > xs[bot[1]] {
		bot[0], bot[1] = bot[1], bot[0]
	}

	return Quad{
		BotLeft:  cam[bot[0]],
		TopLeft:  cam[top[0]],
		TopRight: cam[top[1]],
		BotRight: cam[bot[1]],
	}
}

// NarrowFrustum tightens the 4 side planes of f to the outline q, given in
// camera space. Each side plane is rebuilt through origin and its two
// corners, and only replaces the existing plane when both corners are inside
// it, so the result is never wider than f. The returned flags report which
// of Left, Right, Bottom, Top were replaced.
func NarrowFrustum(f Frustum, origin mgl32.Vec3, cameraToWorld mgl32.Mat4, q Quad) (Frustum, [4]bool) {
	bl := MulPoint(cameraToWorld, q.BotLeft)
	tl := MulPoint(cameraToWorld, q.TopLeft)
	tr := MulPoint(cameraToWorld, q.TopRight)
	br := MulPoint(cameraToWorld, q.BotRight)

	sides := [4]struct {
		index    int
		a, b     mgl32.Vec3
		opposite mgl32.Vec3
	}{
		{PlaneLeft, tl, bl, tr.Add(br).Mul(0.5)},
		{PlaneRight, br, tr, tl.Add(bl).Mul(0.5)},
		{PlaneBottom, bl, br, tl.Add(tr).Mul(0.5)},
		{PlaneTop, tr, tl, bl.Add(br).Mul(0.5)},
	}

	var replaced [4]bool
	for i, s := range sides {
		current := f[s.index]
		if !current.GetSide(s.a) || !current.GetSide(s.b) {
			continue
		}
		candidate := PlaneFromPoints(origin, s.a, s.b)
		if candidate.Normal.Len() == 0 {
			continue
		}
		f[s.index] = candidate.OrientTowards(s.opposite)
		replaced[i] = true
	}
	return f, replaced
}
