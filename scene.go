package prp

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gekko3d/prp/portalrt/rt/camera"
	"github.com/gekko3d/prp/portalrt/rt/core"
	"github.com/gekko3d/prp/portalrt/rt/mesh"
	"github.com/gekko3d/prp/portalrt/rt/portal"
	"github.com/gekko3d/prp/portalrt/rt/portalable"
	"github.com/gekko3d/prp/portalrt/rt/render"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownOutput    = errors.New("prp: portal output not found")
	ErrUnknownShape     = errors.New("prp: unknown shape")
	ErrUnknownLightType = errors.New("prp: unknown light type")
	ErrDuplicatePortal  = errors.New("prp: duplicate portal name")
	ErrStaticBody       = errors.New("prp: static object with mass")
)

// SceneDef is a scene description file. Angles are in degrees.
type SceneDef struct {
	Portals []PortalDef `yaml:"portals"`
	Objects []ObjectDef `yaml:"objects"`
	Lights  []LightDef  `yaml:"lights"`
	Cameras []CameraDef `yaml:"cameras"`
}

type PortalDef struct {
	Name     string     `yaml:"name"`
	Position mgl32.Vec3 `yaml:"position"`
	Yaw      float32    `yaml:"yaw"`
	Width    float32    `yaml:"width"`
	Height   float32    `yaml:"height"`
	// Output names the portal things come out of. Empty means not
	// traversable.
	Output string `yaml:"output"`
}

type ObjectDef struct {
	Name        string     `yaml:"name"`
	Shape       string     `yaml:"shape"`
	Size        mgl32.Vec3 `yaml:"size"`
	Position    mgl32.Vec3 `yaml:"position"`
	Yaw         float32    `yaml:"yaw"`
	Color       mgl32.Vec4 `yaml:"color"`
	Transparent bool       `yaml:"transparent"`
	Layer       uint8      `yaml:"layer"`
	// Static objects are drawn but never cloned, sliced or teleported.
	Static bool `yaml:"static"`
	// Mass adds a rigid body when positive.
	Mass     float32    `yaml:"mass"`
	Velocity mgl32.Vec3 `yaml:"velocity"`
}

type LightDef struct {
	Type      LightKind  `yaml:"type"`
	Position  mgl32.Vec3 `yaml:"position"`
	Direction mgl32.Vec3 `yaml:"direction"`
	Color     mgl32.Vec3 `yaml:"color"`
	Intensity float32    `yaml:"intensity"`
	Range     float32    `yaml:"range"`
	SpotAngle float32    `yaml:"spot_angle"`
}

type CameraDef struct {
	Name     string     `yaml:"name"`
	Position mgl32.Vec3 `yaml:"position"`
	Target   mgl32.Vec3 `yaml:"target"`
	Fov      float32    `yaml:"fov"`
	Aspect   float32    `yaml:"aspect"`
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
}

// LightKind reads "point", "directional" or "spot".
type LightKind render.LightType

func (k *LightKind) UnmarshalYAML(value *yaml.Node) error {
	switch strings.ToLower(value.Value) {
	case "point":
		*k = LightKind(render.LightTypePoint)
	case "directional":
		*k = LightKind(render.LightTypeDirectional)
	case "spot":
		*k = LightKind(render.LightTypeSpot)
	default:
		return fmt.Errorf("%w: %q (line %d)", ErrUnknownLightType, value.Value, value.Line)
	}
	return nil
}

func (k LightKind) MarshalYAML() (any, error) {
	switch render.LightType(k) {
	case render.LightTypeDirectional:
		return "directional", nil
	case render.LightTypeSpot:
		return "spot", nil
	}
	return "point", nil
}

func ParseScene(data []byte) (*SceneDef, error) {
	var def SceneDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("prp: parse scene: %w", err)
	}
	return &def, nil
}

func LoadScene(path string) (*SceneDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prp: load scene: %w", err)
	}
	return ParseScene(data)
}

// Loaded is what Build added to a pipeline.
type Loaded struct {
	Portals map[string]*portal.Portal
	Objects map[string]*portalable.Object
	Cameras []camera.Pose
}

// Build creates the described portals, objects and lights in p and returns
// the camera poses. Nothing is added when an error is returned.
func (d *SceneDef) Build(p *Pipeline) (*Loaded, error) {
	out := &Loaded{
		Portals: make(map[string]*portal.Portal),
		Objects: make(map[string]*portalable.Object),
	}

	var portals []*portal.Portal
	for _, pd := range d.Portals {
		if _, ok := out.Portals[pd.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePortal, pd.Name)
		}
		w, h := pd.Width, pd.Height
		if w == 0 {
			w = 2
		}
		if h == 0 {
			h = 3
		}
		tr := core.NewTransformAt(pd.Position, core.YawRotation(mgl32.DegToRad(pd.Yaw)))
		pt := portal.New(pd.Name, tr, w, h)
		out.Portals[pd.Name] = pt
		portals = append(portals, pt)
	}
	for _, pd := range d.Portals {
		if pd.Output == "" {
			continue
		}
		target, ok := out.Portals[pd.Output]
		if !ok {
			return nil, fmt.Errorf("%w: %q wants %q", ErrUnknownOutput, pd.Name, pd.Output)
		}
		out.Portals[pd.Name].Output = target
	}

	var objects, statics []*portalable.Object
	for _, od := range d.Objects {
		obj, err := od.build()
		if err != nil {
			return nil, err
		}
		out.Objects[od.Name] = obj
		if od.Static {
			statics = append(statics, obj)
		} else {
			objects = append(objects, obj)
		}
	}

	for _, cd := range d.Cameras {
		out.Cameras = append(out.Cameras, cd.pose())
	}

	log := p.log.With("scene")
	p.AddPortal(portals...)
	for _, pt := range portals {
		if pt.Output != nil {
			log.Debugf("portal %s -> %s", pt.Name, pt.Output.Name)
		} else {
			log.Debugf("portal %s has no output", pt.Name)
		}
	}
	for _, obj := range statics {
		p.AddStatic(obj)
	}
	for _, obj := range objects {
		p.AddObject(obj)
	}
	for _, ld := range d.Lights {
		p.AddLight(render.Light{
			Type:      render.LightType(ld.Type),
			Position:  ld.Position,
			Direction: ld.Direction,
			Color:     ld.Color,
			Intensity: ld.Intensity,
			Range:     ld.Range,
			SpotAngle: ld.SpotAngle,
		})
	}
	log.Infof("%d portals, %d tracked objects, %d static, %d lights, %d cameras",
		len(portals), len(objects), len(statics), len(d.Lights), len(out.Cameras))
	return out, nil
}

func (od ObjectDef) build() (*portalable.Object, error) {
	size := od.Size
	if size == (mgl32.Vec3{}) {
		size = mgl32.Vec3{1, 1, 1}
	}
	var m *mesh.Mesh
	switch strings.ToLower(od.Shape) {
	case "", "box":
		m = mesh.NewBox(size.Mul(0.5))
	case "quad":
		m = mesh.NewQuad(size.X(), size.Y())
	default:
		return nil, fmt.Errorf("%w: %q for %q", ErrUnknownShape, od.Shape, od.Name)
	}
	if od.Static && od.Mass > 0 {
		return nil, fmt.Errorf("%w: %q", ErrStaticBody, od.Name)
	}
	color := od.Color
	if color == (mgl32.Vec4{}) {
		color = mgl32.Vec4{1, 1, 1, 1}
	}

	tr := core.NewTransformAt(od.Position, core.YawRotation(mgl32.DegToRad(od.Yaw)))
	r := render.NewRenderable(od.Name, m, tr, render.Material{Name: od.Name, Color: color, Transparent: od.Transparent})
	r.Layer = od.Layer
	obj := portalable.NewObject(od.Name, tr, r)
	if od.Mass > 0 {
		obj.Body = portalable.NewRigidBody(od.Mass)
		obj.Body.Velocity = od.Velocity
	}
	return obj, nil
}

func (cd CameraDef) pose() camera.Pose {
	target := cd.Target
	if target == cd.Position {
		target = cd.Position.Add(mgl32.Vec3{0, 0, -1})
	}
	pose := camera.LookAt(cd.Position, target)
	pose.Name = cd.Name
	if cd.Fov > 0 {
		pose.FovY = mgl32.DegToRad(cd.Fov)
	}
	if cd.Aspect > 0 {
		pose.Aspect = cd.Aspect
	}
	if cd.Near > 0 {
		pose.Near = cd.Near
	}
	if cd.Far > 0 {
		pose.Far = cd.Far
	}
	return pose
}
