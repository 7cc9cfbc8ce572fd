package loaders

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/math"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func TestParseOBJComponents(t *testing.T) {
	src := `# two parts
mtllib tree.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v 0 0 3
vt 0 0
vn 0 0 1
o trunk
f 1/1/1 2/1/1 3/1/1 4/1/1
o canopy
usemtl leaves
f -1 1 2
g empty
`
	mesh, err := ParseOBJ(strings.NewReader(src), "tree.obj")
	require.NoError(t, err)
	assert.Equal(t, "tree.obj", mesh.Name)
	require.Len(t, mesh.Components, 2)

	trunk := mesh.Components[0]
	assert.Equal(t, "trunk", trunk.Name)
	assert.Len(t, trunk.Positions, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, trunk.Indices)
	assert.Len(t, trunk.Normals, 4)
	assert.InDelta(t, 1.0, trunk.Normals[0].Z(), 1e-9)

	canopy := mesh.Components[1]
	assert.Equal(t, "canopy", canopy.Name)
	assert.Equal(t, []math.Vec3{{0, 0, 3}, {0, 0, 0}, {1, 0, 0}}, canopy.Positions)
	assert.Equal(t, 1, canopy.TriangleCount())
}

func TestParseOBJErrors(t *testing.T) {
	cases := map[string]string{
		"no faces":     "v 0 0 0\nv 1 0 0\n",
		"bad vertex":   "v 0 zero 0\n",
		"short vertex": "v 0 0\n",
		"out of range": "v 0 0 0\nv 1 0 0\nv 1 1 0\nf 1 2 9\n",
		"short face":   "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"bad index":    "v 0 0 0\nv 1 0 0\nv 1 1 0\nf 1 2 x\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOBJ(strings.NewReader(src), "broken.obj")
			assert.Error(t, err)
		})
	}
}

func TestParseKMT(t *testing.T) {
	src := `# canopy
name = canopy_green
colour = #bfcf9d
metallic = 0
autorelease = true
shininess = 3
`
	cfg, err := ParseKMT(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "canopy_green", cfg.Name)
	assert.Equal(t, uint8(0xbf), cfg.Color.R)
	assert.Equal(t, 1.0, cfg.Roughness)
	assert.Equal(t, 0.0, cfg.Metallic)
	assert.True(t, cfg.AutoRelease)
}

func TestParseKMTValidation(t *testing.T) {
	_, err := ParseKMT(strings.NewReader("color = #ffffff\n"))
	assert.Error(t, err, "name is required")

	_, err = ParseKMT(strings.NewReader("name = a\ncolor = #ffffff\nroughness = 2\n"))
	assert.Error(t, err)

	_, err = ParseKMT(strings.NewReader("name = a\ncolor = nocolor\n"))
	assert.Error(t, err)
}

const sceneTOML = `
name = "hand-drawn"
title = "Campus, hand drawn"

[environment]
background = "#f6efe0"
atmosphere = false

[camera]
x = 10.0
y = 20.0
z = 400.0
heading = 30.0
tilt = 60.0

[[layers]]
id = "trees"
type = "graphics"

[[pipelines]]
id = "trees"
layer = "trees"
kind = "model"
url = "https://example.test/FeatureServer/0"
out_fields = ["Class", "Height", "Rotation"]

[pipelines.symbol.edges]
type = "sketch"
color = "50,50,50,153"
size = 1.0
extension_length = 5.0

[pipelines.catalog.default]
model = "models/tree.obj"
scale = 0.2

[pipelines.catalog.classes.Eucalyptus]
model = "models/eucalyptus.obj"
scale = 0.15
`

func TestParseSceneConfig(t *testing.T) {
	cfg, err := ParseSceneConfig(strings.NewReader(sceneTOML))
	require.NoError(t, err)
	assert.Equal(t, "hand-drawn", cfg.Name)
	assert.InDelta(t, 60.0, cfg.Camera.Tilt, 1e-9)
	require.Len(t, cfg.Pipelines, 1)
	p := cfg.Pipelines[0]
	assert.Equal(t, []string{"Class", "Height", "Rotation"}, p.OutFields)
	assert.Equal(t, "sketch", p.Symbol.Edges.Type)
	require.NotNil(t, p.Catalog)
	assert.InDelta(t, 0.15, p.Catalog.Classes["Eucalyptus"].Scale, 1e-9)
}

func TestParseSceneConfigRejectsUnknownKeys(t *testing.T) {
	_, err := ParseSceneConfig(strings.NewReader(sceneTOML + "\n[lighting]\nsunny = true\n"))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = ParseSceneConfig(strings.NewReader("name = \n"))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = ParseSceneConfig(strings.NewReader(strings.Replace(sceneTOML, "scale = 0.2", "scale = 0.0", 1)))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
