package render

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights is the size of the light arrays uploaded per camera.
const MaxLights = 16

type LightType uint32

const (
	LightTypePoint       LightType = 0
	LightTypeDirectional LightType = 1
	LightTypeSpot        LightType = 2
)

type Light struct {
	Type      LightType
	Position  mgl32.Vec3
	Direction mgl32.Vec3 // direction the light shines towards
	Color     mgl32.Vec3
	Intensity float32
	Range     float32 // point/spot
	SpotAngle float32 // full cone angle in degrees
}

// PackedLights is the light block the forward shaders read. For directional
// lights DirectionsOrPositions holds the direction towards the light (w=0),
// otherwise the position (w=1). Attenuations are (1/range², 0, spot scale,
// spot offset) with the spot terms set to (0, 1) for non-spot lights.
type PackedLights struct {
	Count                 int
	Dropped               int
	Colors                [MaxLights]mgl32.Vec4
	DirectionsOrPositions [MaxLights]mgl32.Vec4
	Attenuations          [MaxLights]mgl32.Vec4
	SpotDirections        [MaxLights]mgl32.Vec4
}

func PackLights(lights []Light) PackedLights {
	var p PackedLights
	for i, l := range lights {
		if i >= MaxLights {
			p.Dropped = len(lights) - MaxLights
			break
		}
		c := l.Color.Mul(l.Intensity)
		p.Colors[i] = mgl32.Vec4{c.X(), c.Y(), c.Z(), 1}
		p.Attenuations[i] = mgl32.Vec4{0, 0, 0, 1}

		switch l.Type {
		case LightTypeDirectional:
			p.DirectionsOrPositions[i] = towards(l.Direction).Vec4(0)
		case LightTypeSpot:
			p.SpotDirections[i] = towards(l.Direction).Vec4(0)
			outer := mgl32.DegToRad(0.5 * l.SpotAngle)
			outerCos := math32.Cos(outer)
			innerCos := math32.Cos(math32.Atan((46.0 / 64.0) * math32.Tan(outer)))
			angleRange := math32.Max(innerCos-outerCos, 0.001)
			p.Attenuations[i][2] = 1 / angleRange
			p.Attenuations[i][3] = -outerCos * p.Attenuations[i][2]
			fallthrough
		default:
			p.DirectionsOrPositions[i] = l.Position.Vec4(1)
			p.Attenuations[i][0] = 1 / math32.Max(l.Range*l.Range, 0.00001)
		}
		p.Count++
	}
	return p
}

func towards(direction mgl32.Vec3) mgl32.Vec3 {
	if direction.Len() == 0 {
		return direction
	}
	return direction.Normalize().Mul(-1)
}
