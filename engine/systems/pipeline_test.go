package systems

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/features"
	"github.com/spaghettifunk/campusmap/engine/math"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
	"github.com/spaghettifunk/campusmap/engine/scene"
)

type collection struct {
	mu       sync.Mutex
	graphics []*metadata.Graphic
}

func (c *collection) Add(g *metadata.Graphic) {
	c.mu.Lock()
	c.graphics = append(c.graphics, g)
	c.mu.Unlock()
}

func (c *collection) Clear() {
	c.mu.Lock()
	c.graphics = nil
	c.mu.Unlock()
}

func (c *collection) byObjectID() map[int64]*metadata.Graphic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int64]*metadata.Graphic, len(c.graphics))
	for _, g := range c.graphics {
		out[g.Attributes["objectId"].(int64)] = g
	}
	return out
}

func (c *collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.graphics)
}

func tree(id int64, class string, height, rotation interface{}, x, y, z float64) features.FeatureRecord {
	return features.FeatureRecord{
		ObjectID: id,
		Geometry: features.NewPointGeometry(x, y, z),
		Attributes: map[string]interface{}{
			"Class":    class,
			"Height":   height,
			"Rotation": rotation,
		},
	}
}

func staticSource(records ...features.FeatureRecord) features.Source {
	return features.SourceFunc(func(ctx context.Context, q features.Query) ([]features.FeatureRecord, error) {
		return records, nil
	})
}

func treeCatalog() *scene.CatalogConfig {
	return &scene.CatalogConfig{
		Default: scene.CatalogEntryConfig{
			Model: "models/tree.obj", Scale: 0.2,
			CanopyColor: "191,207,157", TrunkColor: "204,175,124",
		},
		Classes: map[string]scene.CatalogEntryConfig{
			"Eucalyptus": {
				Model: "models/eucalyptus.obj", Scale: 0.15,
				CanopyComponent: "Leaves", TrunkComponent: "Trunk",
				CanopyColor: "191,207,157", TrunkColor: "204,175,124",
			},
		},
	}
}

func newTreePipeline(t *testing.T, sm *SystemManager, source features.Source, out DisplayCollection, opts ...PipelineOption) *Pipeline {
	t.Helper()
	catalog, err := NewAssetCatalog(treeCatalog(), sm.MaterialSystem)
	require.NoError(t, err)
	edges := metadata.Edges{Type: metadata.EdgeSketch, Color: metadata.MustParseColor("50,50,50,153"), Size: 1, ExtensionLength: 5}
	opts = append([]PipelineOption{WithJobSystem(sm.JobSystem), WithMetrics(sm.Metrics)}, opts...)
	p, err := NewPipeline(PipelineConfig{
		Name:       "trees",
		Query:      features.Query{Where: features.WhereAll, OutFields: []string{"Class", "Height", "Rotation"}, ReturnGeometry: true, ReturnZ: true},
		Concurrent: true,
	}, source, &ModelConverter{
		Meshes:  sm.MeshSystem,
		Catalog: catalog,
		Symbol:  metadata.Symbol{Type: metadata.SymbolMesh, Edges: edges},
	}, out, sm.Diagnostics, opts...)
	require.NoError(t, err)
	return p
}

func TestPipelineEucalyptusAndOak(t *testing.T) {
	sm := newTestManager(t, nil)
	out := &collection{}
	source := staticSource(
		tree(1, "Eucalyptus", 20.0, 90.0, 100, 100, 10),
		tree(2, "Oak", 10.0, 0.0, 200, 50, 12),
	)

	report := newTreePipeline(t, sm, source, out).Start(context.Background()).Wait()
	require.NoError(t, report.Err)
	assert.Equal(t, BatchReport{Pipeline: "trees", Fetched: 2, Appended: 2, Elapsed: report.Elapsed}, report)

	got := out.byObjectID()
	require.Len(t, got, 2)

	euc := got[1]
	assert.Equal(t, "models/eucalyptus.obj", euc.Attributes["asset"])
	assert.InDelta(t, 3.0, euc.Attributes["scale"].(float64), 1e-9)
	assert.InDelta(t, 3.0, euc.Mesh.Transform.Scale.X(), 1e-9)
	assert.InDelta(t, 90.0, euc.Mesh.Transform.HeadingDegrees(), 1e-9)
	// Trunk vertex (2,0,0): scaled by 3 then turned 90 degrees about the anchor.
	trunk := euc.Mesh.Components[0]
	assert.Equal(t, "Trunk", trunk.Name)
	assertVecNear(t, math.Vec3{100, 106, 10}, trunk.Positions[1])
	// Elevation scales, the rotation never tilts.
	assertVecNear(t, math.Vec3{100, 100, 16}, trunk.Positions[2])
	assert.Equal(t, metadata.EdgeSketch, euc.Symbol.Edges.Type)
	assert.Equal(t, uint8(204), trunk.Material.Color.R)
	leaves := euc.Mesh.Components[1]
	assert.Equal(t, uint8(191), leaves.Material.Color.R)
	for _, c := range euc.Mesh.Components {
		assert.Equal(t, 1.0, c.Material.Roughness)
		assert.Equal(t, 0.0, c.Material.Metallic)
	}

	oak := got[2]
	assert.Equal(t, "models/tree.obj", oak.Attributes["asset"])
	assert.InDelta(t, 2.0, oak.Mesh.Transform.Scale.X(), 1e-9)
	assert.InDelta(t, 0.0, oak.Mesh.Transform.HeadingDegrees(), 1e-9)
	assertVecNear(t, math.Vec3{202, 50, 12}, oak.Mesh.Components[0].Positions[1])

	assert.Empty(t, sm.Diagnostics.Errors(""))
	snap := sm.Metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Batches)
	assert.Equal(t, int64(2), snap.Meshes)
}

func TestPipelineUnknownClassUsesDefault(t *testing.T) {
	sm := newTestManager(t, nil)
	out := &collection{}
	source := staticSource(
		tree(1, "Jacaranda", 5.0, 0.0, 0, 0, 0),
		tree(2, "", 5.0, 0.0, 0, 0, 0),
	)

	report := newTreePipeline(t, sm, source, out).Run(context.Background())
	assert.Equal(t, 2, report.Appended)
	assert.Equal(t, 0, report.Failed)
	for _, g := range out.byObjectID() {
		assert.Equal(t, "models/tree.obj", g.Attributes["asset"])
		assert.InDelta(t, 1.0, g.Mesh.Transform.Scale.X(), 1e-9)
	}
	assert.Empty(t, sm.Diagnostics.Entries())
}

func TestPipelineQueryFailureAddsNothing(t *testing.T) {
	sm := newTestManager(t, nil)
	out := &collection{}
	queryErr := errors.New("connection refused")
	source := features.SourceFunc(func(context.Context, features.Query) ([]features.FeatureRecord, error) {
		return nil, queryErr
	})

	report := newTreePipeline(t, sm, source, out).Run(context.Background())
	assert.ErrorIs(t, report.Err, queryErr)
	assert.Equal(t, 0, report.Fetched)
	assert.Equal(t, 0, out.Len())

	errs := sm.Diagnostics.Errors("trees")
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0].Err, queryErr)
	assert.Equal(t, int64(1), sm.Metrics.Snapshot().FailedBatches)
}

func TestPipelineIsolatesRecordFailures(t *testing.T) {
	sm := newTestManager(t, nil)
	out := &collection{}
	noGeometry := tree(3, "Oak", 10.0, 0.0, 0, 0, 0)
	noGeometry.Geometry = nil
	source := staticSource(
		tree(1, "Oak", 10.0, 0.0, 0, 0, 0),
		tree(2, "Eucalyptus", "tall", 0.0, 0, 0, 0),
		noGeometry,
		tree(4, "Oak", "12", nil, 0, 0, 0),
		tree(5, "Eucalyptus", 8.0, 45.0, 0, 0, 0),
	)

	report := newTreePipeline(t, sm, source, out).Run(context.Background())
	assert.Equal(t, 5, report.Fetched)
	assert.Equal(t, 3, report.Appended)
	assert.Equal(t, 2, report.Failed)

	got := out.byObjectID()
	assert.Contains(t, got, int64(1))
	assert.Contains(t, got, int64(4))
	assert.Contains(t, got, int64(5))
	assert.InDelta(t, 2.4, got[4].Mesh.Transform.Scale.X(), 1e-9)

	errs := sm.Diagnostics.Errors("trees")
	require.Len(t, errs, 2)
	for _, e := range errs {
		assert.ErrorIs(t, e.Err, core.ErrMeshConstruction)
	}
}

func TestPipelineRecoversPanickingConverter(t *testing.T) {
	for _, concurrent := range []bool{true, false} {
		name := "sequential"
		if concurrent {
			name = "concurrent"
		}
		t.Run(name, func(t *testing.T) {
			sm := newTestManager(t, nil)
			out := &collection{}
			broken := ConverterFunc(func(ctx context.Context, rec features.FeatureRecord) (*metadata.Graphic, error) {
				if rec.ObjectID == 2 {
					var seen map[int64]bool
					seen[rec.ObjectID] = true
				}
				return &metadata.Graphic{ID: core.NewIdentifier()}, nil
			})
			source := staticSource(
				tree(1, "Oak", 10.0, 0.0, 0, 0, 0),
				tree(2, "Oak", 10.0, 0.0, 0, 0, 0),
				tree(3, "Oak", 10.0, 0.0, 0, 0, 0),
			)
			p, err := NewPipeline(PipelineConfig{Name: "broken", Concurrent: concurrent}, source, broken, out, sm.Diagnostics, WithJobSystem(sm.JobSystem))
			require.NoError(t, err)

			report := p.Run(context.Background())
			require.NoError(t, report.Err)
			assert.Equal(t, 3, report.Fetched)
			assert.Equal(t, 2, report.Appended)
			assert.Equal(t, 1, report.Failed)
			assert.Equal(t, 0, report.Skipped)
			assert.Equal(t, 2, out.Len())

			errs := sm.Diagnostics.Errors("broken")
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0].Err, core.ErrMeshConstruction)
			assert.Contains(t, errs[0].Err.Error(), "record 2")
		})
	}
}

func TestPipelineReportsClosedJobSystem(t *testing.T) {
	sm := newTestManager(t, nil)
	require.NoError(t, sm.JobSystem.Shutdown())
	out := &collection{}
	source := staticSource(
		tree(1, "Oak", 10.0, 0.0, 0, 0, 0),
		tree(2, "Oak", 10.0, 0.0, 0, 0, 0),
	)

	report := newTreePipeline(t, sm, source, out).Run(context.Background())
	assert.ErrorIs(t, report.Err, core.ErrJobSystemClosed)
	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, out.Len())
	assert.Len(t, sm.Diagnostics.Errors("trees"), 1)
}

func TestPipelineModelWithoutTwoParts(t *testing.T) {
	sm := newTestManager(t, nil)
	cfg := treeCatalog()
	cfg.Default.Model = "models/single.obj"
	catalog, err := NewAssetCatalog(cfg, sm.MaterialSystem)
	require.NoError(t, err)
	conv := &ModelConverter{Meshes: sm.MeshSystem, Catalog: catalog}

	_, err = conv.Convert(context.Background(), tree(1, "Oak", 10.0, 0.0, 0, 0, 0))
	assert.ErrorIs(t, err, core.ErrMeshConstruction)
}

func TestPipelineRerunAfterClearIsIdentical(t *testing.T) {
	sm := newTestManager(t, nil)
	out := &collection{}
	source := staticSource(
		tree(1, "Eucalyptus", 20.0, 90.0, 100, 100, 10),
		tree(2, "Oak", 10.0, 30.0, 200, 50, 12),
		tree(3, "Pine", 7.0, 180.0, 10, 20, 3),
	)
	p := newTreePipeline(t, sm, source, out)

	p.Run(context.Background())
	first := out.byObjectID()
	out.Clear()
	p.Run(context.Background())
	second := out.byObjectID()

	require.Len(t, second, len(first))
	for id, g := range first {
		h := second[id]
		require.NotNil(t, h)
		assert.Equal(t, g.Attributes["asset"], h.Attributes["asset"])
		require.Len(t, h.Mesh.Components, len(g.Mesh.Components))
		for i := range g.Mesh.Components {
			assert.Equal(t, g.Mesh.Components[i].Positions, h.Mesh.Components[i].Positions)
			assert.Same(t, g.Mesh.Components[i].Material, h.Mesh.Components[i].Material)
		}
	}
}

func TestPipelineCancelSuppressesAppends(t *testing.T) {
	sm := newTestManager(t, nil)
	out := &collection{}
	ctx, cancel := context.WithCancel(context.Background())

	records := make([]features.FeatureRecord, 50)
	for i := range records {
		records[i] = tree(int64(i), "Oak", 10.0, 0.0, 0, 0, 0)
	}
	var calls atomic.Int32
	slow := ConverterFunc(func(ctx context.Context, rec features.FeatureRecord) (*metadata.Graphic, error) {
		if calls.Add(1) == 1 {
			cancel()
		} else {
			<-ctx.Done()
		}
		return &metadata.Graphic{ID: core.NewIdentifier()}, nil
	})
	p, err := NewPipeline(PipelineConfig{Name: "slow", Concurrent: true}, staticSource(records...), slow, out, sm.Diagnostics, WithJobSystem(sm.JobSystem))
	require.NoError(t, err)

	report := p.Run(ctx)
	assert.Equal(t, 50, report.Fetched)
	assert.Equal(t, 0, report.Appended)
	assert.Equal(t, 50, report.Skipped)
	assert.Equal(t, 0, out.Len())
	assert.Empty(t, sm.Diagnostics.Errors("slow"))
}

func TestPipelinePolygonsSequential(t *testing.T) {
	sm := newTestManager(t, nil)
	out := scene.NewGraphicsLayer("pedestrian")
	var where string
	source := features.SourceFunc(func(ctx context.Context, q features.Query) ([]features.FeatureRecord, error) {
		where = q.Where
		square := features.NewPolygonGeometry([][]math.Vec3{{{0, 0, 0}, {4, 0, 0}, {4, 4, 0}, {0, 4, 0}}})
		return []features.FeatureRecord{
			{ObjectID: 1, Geometry: square},
			{ObjectID: 2, Geometry: features.NewPointGeometry(1, 1, 1)},
		}, nil
	})
	edges := metadata.Edges{Type: metadata.EdgeSketch}
	p, err := NewPipeline(PipelineConfig{
		Name:  "pedestrian",
		Query: features.Query{Where: "category='Pedestrian'"},
	}, source, &PolygonConverter{Meshes: sm.MeshSystem, Symbol: metadata.Symbol{Edges: edges}}, out, sm.Diagnostics)
	require.NoError(t, err)

	report := p.Run(context.Background())
	assert.Equal(t, "category='Pedestrian'", where)
	assert.Equal(t, 1, report.Appended)
	assert.Equal(t, 1, report.Failed)
	require.Equal(t, 1, out.Len())
	g := out.Graphics()[0]
	assert.True(t, g.IsMesh())
	assert.Equal(t, metadata.EdgeSketch, g.Symbol.Edges.Type)
	assert.Equal(t, 2, g.Mesh.Components[0].TriangleCount())
}

func TestPipelineFiresBatchComplete(t *testing.T) {
	sm := newTestManager(t, nil)
	es := core.NewEventSystem()
	reports := make(chan BatchReport, 1)
	es.Register(core.EVENT_CODE_BATCH_COMPLETE, t, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		reports <- data.Data.(BatchReport)
		return true
	})

	b := newTreePipeline(t, sm, staticSource(tree(1, "Oak", 10.0, 0.0, 0, 0, 0)), &collection{}, WithEvents(es)).Start(context.Background())
	select {
	case r := <-reports:
		assert.Equal(t, 1, r.Appended)
	case <-time.After(5 * time.Second):
		t.Fatal("no batch complete event")
	}
	<-b.Done()
}

func TestBuildPipelinesFromScene(t *testing.T) {
	sm := newTestManager(t, staticSource(tree(1, "Eucalyptus", 20.0, 90.0, 0, 0, 0)))
	visible := true
	s, err := scene.New(&scene.Config{
		Name: "test",
		Layers: []scene.LayerConfig{
			{ID: "trees", Type: scene.LayerTypeGraphics, Visible: &visible},
			{ID: "walk", Type: scene.LayerTypeGraphics},
		},
		Pipelines: []scene.PipelineConfig{
			{ID: "trees", Layer: "trees", Kind: scene.PipelineKindModel, URL: "https://example.test/0", Catalog: treeCatalog(),
				Symbol: scene.SymbolConfig{Edges: scene.EdgesConfig{Type: "sketch"}}},
			{ID: "walk", Layer: "walk", Kind: scene.PipelineKindPolygon, URL: "https://example.test/2", Where: "category='Pedestrian'"},
		},
	})
	require.NoError(t, err)

	pipelines, err := sm.BuildPipelines(s, nil)
	require.NoError(t, err)
	require.Len(t, pipelines, 2)
	assert.True(t, pipelines[0].Config.Concurrent)
	assert.False(t, pipelines[1].Config.Concurrent)

	pipelines[0].Run(context.Background())
	trees, _ := s.GraphicsLayer("trees")
	assert.Equal(t, 1, trees.Len())
}
