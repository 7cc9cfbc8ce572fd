package campus

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/campusmap/engine"
	"github.com/spaghettifunk/campusmap/engine/assets"
	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/features"
	"github.com/spaghettifunk/campusmap/engine/math"
	"github.com/spaghettifunk/campusmap/engine/scene"
	"github.com/spaghettifunk/campusmap/engine/systems"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func TestBuiltinScenes(t *testing.T) {
	for _, variant := range append(Variants, "handdrawn") {
		t.Run(variant, func(t *testing.T) {
			cfg, err := LoadBuiltinScene(variant)
			require.NoError(t, err)

			s, err := scene.New(cfg)
			require.NoError(t, err)

			assert.False(t, s.UI.LabelsVisible)
			assert.False(t, s.UI.LocationVisible)
			assert.InDelta(t, 45.34, s.Camera.Heading, 1e-9)
			assert.InDelta(t, 70.69, s.Camera.Tilt, 1e-9)

			buildings, ok := s.Layer("buildings")
			require.True(t, ok)
			assert.True(t, buildings.HasLabels())
			require.NotNil(t, buildings.Popup)

			_, ok = s.GraphicsLayer("location")
			assert.True(t, ok)
		})
	}
}

func TestHandDrawnPipelines(t *testing.T) {
	cfg, err := LoadBuiltinScene(VariantHandDrawn)
	require.NoError(t, err)
	require.Len(t, cfg.Pipelines, 2)

	trees := cfg.Pipelines[0]
	assert.Equal(t, scene.PipelineKindModel, trees.Kind)
	assert.Equal(t, []string{"Class", "Height", "Rotation"}, trees.OutFields)
	require.NotNil(t, trees.Catalog)
	assert.InDelta(t, 0.2, trees.Catalog.Default.Scale, 1e-9)
	assert.InDelta(t, 0.15, trees.Catalog.Classes["Eucalyptus"].Scale, 1e-9)

	pedestrian := cfg.Pipelines[1]
	assert.Equal(t, scene.PipelineKindPolygon, pedestrian.Kind)
	assert.Equal(t, "Class='Pedestrian'", pedestrian.Where)

	for _, variant := range []string{VariantBlueprint, VariantClassical} {
		cfg, err := LoadBuiltinScene(variant)
		require.NoError(t, err)
		assert.Empty(t, cfg.Pipelines, variant)
	}
}

func TestUnknownVariant(t *testing.T) {
	_, err := NewCampusGame(&engine.ApplicationConfig{Variant: "watercolor"})
	assert.ErrorIs(t, err, core.ErrUnknownVariant)

	_, err = LoadBuiltinScene("watercolor")
	assert.ErrorIs(t, err, core.ErrUnknownVariant)
}

const overrideTOML = `
name = "override"

[[layers]]
id = "location"
type = "graphics"
`

func TestBootPrefersOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scenes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scenes", "classical.toml"), []byte(overrideTOML), 0o644))

	am, err := assets.NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	t.Cleanup(func() { _ = am.Shutdown() })

	sm, err := systems.NewSystemManager(&systems.SystemManagerConfig{Workers: 1}, am)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sm.Shutdown() })

	cg, err := NewCampusGame(&engine.ApplicationConfig{Variant: VariantClassical})
	require.NoError(t, err)
	cg.SystemManager = sm

	cfg, err := cg.Boot()
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.Name)

	cg.ApplicationConfig.Variant = VariantBlueprint
	cfg, err = cg.Boot()
	require.NoError(t, err)
	assert.Equal(t, VariantBlueprint, cfg.Name)
}

func campusSource(url string) features.Source {
	return features.SourceFunc(func(ctx context.Context, q features.Query) ([]features.FeatureRecord, error) {
		if strings.HasSuffix(url, "/FeatureServer/2") {
			return []features.FeatureRecord{{
				ObjectID: 1,
				Geometry: features.NewPolygonGeometry([][]math.Vec3{{
					{0, 0, 0}, {10, 0, 0}, {10, 10, 0}, {0, 10, 0}, {0, 0, 0},
				}}),
				Attributes: map[string]interface{}{"Class": "Pedestrian"},
			}}, nil
		}
		return []features.FeatureRecord{
			{ObjectID: 1, Geometry: features.NewPointGeometry(0, 0, 0), Attributes: map[string]interface{}{"Class": "Eucalyptus", "Height": 20.0, "Rotation": 90.0}},
			{ObjectID: 2, Geometry: features.NewPointGeometry(5, 0, 0), Attributes: map[string]interface{}{"Class": "Oak", "Height": 10.0, "Rotation": 0.0}},
			{ObjectID: 3, Geometry: features.NewPointGeometry(10, 0, 0), Attributes: map[string]interface{}{"Class": "Oak", "Height": nil}},
		}, nil
	})
}

func TestHandDrawnEndToEnd(t *testing.T) {
	cfg := &engine.ApplicationConfig{
		Name:                "campusmap-test",
		Variant:             VariantHandDrawn,
		AssetDir:            filepath.Join("..", "assets"),
		LogLevel:            "error",
		Workers:             2,
		JobQueueSize:        4,
		HTTPTimeout:         time.Second,
		DiagnosticsCapacity: 16,
	}
	cg, err := NewCampusGame(cfg)
	require.NoError(t, err)

	e, err := engine.New(cg.Game,
		engine.WithSourceFactory(campusSource),
		engine.WithInput(strings.NewReader("labels\nlocation\n")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.Initialize(ctx))
	require.NoError(t, e.Run(ctx))

	reports := cg.Reports()
	require.Contains(t, reports, "trees")
	require.Contains(t, reports, "pedestrian")
	assert.Equal(t, 3, reports["trees"].Fetched)
	assert.Equal(t, 2, reports["trees"].Appended)
	assert.Equal(t, 1, reports["trees"].Failed)
	assert.Equal(t, 1, reports["pedestrian"].Appended)

	ui := e.Session().UI()
	assert.True(t, ui.LabelsVisible)
	assert.True(t, ui.LocationVisible)

	graphics := map[string]int{}
	for _, l := range e.Session().Snapshot().Layers {
		graphics[l.ID] = l.Graphics
	}
	assert.Equal(t, 2, graphics["trees"])
	assert.Equal(t, 1, graphics["pedestrian"])
	assert.Equal(t, 1, graphics["location"])

	assert.Len(t, cg.SystemManager.Diagnostics.Errors(""), 1)
}
