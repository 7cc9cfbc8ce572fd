package systems

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/spaghettifunk/campusmap/engine/assets"
	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/features"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
	"github.com/spaghettifunk/campusmap/engine/scene"
)

type SystemManagerConfig struct {
	Workers       int
	JobQueueSize  int
	MaxModelCount int
	HTTPTimeout   time.Duration
	// Builds the feature source of a pipeline. Defaults to an HTTP client.
	SourceFactory func(url string) features.Source
}

type SystemManager struct {
	Config         *SystemManagerConfig
	JobSystem      *JobSystem
	ResourceSystem *ResourceSystem
	MaterialSystem *MaterialSystem
	MeshSystem     *MeshSystem
	CameraSystem   *CameraSystem
	Diagnostics    *core.Diagnostics
	Metrics        *core.Metrics
}

func NewSystemManager(config *SystemManagerConfig, am *assets.AssetManager) (*SystemManager, error) {
	if config.MaxModelCount == 0 {
		config.MaxModelCount = 64
	}
	if config.SourceFactory == nil {
		timeout := config.HTTPTimeout
		config.SourceFactory = func(url string) features.Source {
			return features.NewClient(url, features.WithTimeout(timeout))
		}
	}

	js, err := NewJobSystem(config.Workers, config.JobQueueSize)
	if err != nil {
		return nil, err
	}
	rs, err := NewResourceSystem(&ResourceSystemConfig{
		MaxModelCount: config.MaxModelCount,
	}, am)
	if err != nil {
		return nil, err
	}
	ms, err := NewMaterialSystem(&MaterialSystemConfig{}, rs)
	if err != nil {
		return nil, err
	}
	mls, err := NewMeshSystem(rs, ms)
	if err != nil {
		return nil, err
	}
	cs, err := NewCameraSystem(&CameraSystemConfig{
		MaxCameraCount: 16,
	})
	if err != nil {
		return nil, err
	}

	// A changed .kmt file is read again on next use.
	am.OnChange(func(change assets.AssetChange) {
		if change.Type != metadata.ResourceTypeMaterial {
			return
		}
		if dir, file := path.Split(change.Name); strings.TrimSuffix(dir, "/") == ms.Config.MaterialDir {
			ms.Release(strings.TrimSuffix(file, path.Ext(file)))
		}
	})

	return &SystemManager{
		Config:         config,
		JobSystem:      js,
		ResourceSystem: rs,
		MaterialSystem: ms,
		MeshSystem:     mls,
		CameraSystem:   cs,
		Diagnostics:    core.NewDiagnostics(0),
		Metrics:        core.NewMetrics(),
	}, nil
}

// BuildPipelines creates the pipelines a scene declares, each filling its
// graphics layer. Model pipelines run on the job system, polygon
// pipelines convert records in sequence.
func (sm *SystemManager) BuildPipelines(s *scene.Scene, es *core.EventSystem) ([]*Pipeline, error) {
	pipelines := make([]*Pipeline, 0, len(s.Pipelines))
	for _, pc := range s.Pipelines {
		layer, ok := s.GraphicsLayer(pc.Layer)
		if !ok {
			return nil, fmt.Errorf("%w: pipeline '%s' targets unknown graphics layer '%s'", core.ErrInvalidConfig, pc.ID, pc.Layer)
		}
		symbol, err := scene.ParseSymbol(pc.Symbol)
		if err != nil {
			return nil, fmt.Errorf("%w: pipeline '%s': %v", core.ErrInvalidConfig, pc.ID, err)
		}

		var converter RecordConverter
		concurrent := false
		switch pc.Kind {
		case scene.PipelineKindModel:
			catalog, err := NewAssetCatalog(pc.Catalog, sm.MaterialSystem)
			if err != nil {
				return nil, fmt.Errorf("pipeline '%s': %w", pc.ID, err)
			}
			converter = &ModelConverter{
				Meshes:        sm.MeshSystem,
				Catalog:       catalog,
				Symbol:        symbol,
				ClassField:    pc.ClassField,
				HeightField:   pc.HeightField,
				RotationField: pc.RotationField,
			}
			concurrent = true
		case scene.PipelineKindPolygon:
			converter = &PolygonConverter{Meshes: sm.MeshSystem, Symbol: symbol}
		default:
			return nil, fmt.Errorf("%w: pipeline '%s' has unknown kind '%s'", core.ErrInvalidConfig, pc.ID, pc.Kind)
		}

		name := pc.ID
		if name == "" {
			name = pc.Layer
		}
		p, err := NewPipeline(PipelineConfig{
			Name: name,
			Query: features.Query{
				Where:          pc.Where,
				OutFields:      pc.OutFields,
				ReturnGeometry: true,
				ReturnZ:        true,
				OutSR:          pc.OutSR,
			},
			Concurrent: concurrent,
		}, sm.Config.SourceFactory(pc.URL), converter, layer, sm.Diagnostics,
			WithJobSystem(sm.JobSystem), WithMetrics(sm.Metrics), WithEvents(es))
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, nil
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.JobSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.CameraSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.MeshSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.MaterialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.ResourceSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
