package shaders

import (
	_ "embed"
)

//go:embed scene.wgsl
var SceneWGSL string

//go:embed region.wgsl
var RegionWGSL string
