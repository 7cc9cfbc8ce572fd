package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/campusmap/engine/assets"
	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
	"github.com/spaghettifunk/campusmap/engine/scene"
)

/** @brief The configuration for the resource system */
type ResourceSystemConfig struct {
	/** @brief Models kept parsed in memory. Oldest loads are evicted first. */
	MaxModelCount int
}

/**
 * @brief Caches parsed asset files. Models are handed out as clones, so
 * every caller may transform its copy freely.
 */
type ResourceSystem struct {
	Config       *ResourceSystemConfig
	assetManager *assets.AssetManager

	mu        sync.Mutex
	models    map[string]*metadata.Mesh
	order     []string
	materials map[string]*metadata.MaterialConfig
}

func NewResourceSystem(config *ResourceSystemConfig, am *assets.AssetManager) (*ResourceSystem, error) {
	if config.MaxModelCount <= 0 {
		err := fmt.Errorf("func NewResourceSystem - config.MaxModelCount must be > 0")
		core.LogError("%s", err)
		return nil, err
	}
	rs := &ResourceSystem{
		Config:       config,
		assetManager: am,
		models:       make(map[string]*metadata.Mesh),
		materials:    make(map[string]*metadata.MaterialConfig),
	}
	am.OnChange(rs.onAssetChange)
	return rs, nil
}

func (rs *ResourceSystem) Shutdown() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.models = make(map[string]*metadata.Mesh)
	rs.materials = make(map[string]*metadata.MaterialConfig)
	rs.order = nil
	return nil
}

// AcquireModel returns a private copy of the model at ref.
func (rs *ResourceSystem) AcquireModel(ref string) (*metadata.Mesh, error) {
	rs.mu.Lock()
	cached, ok := rs.models[ref]
	rs.mu.Unlock()
	if ok {
		return cached.Clone(), nil
	}

	res, err := rs.assetManager.LoadAsset(ref, metadata.ResourceTypeModel, nil)
	if err != nil {
		return nil, err
	}
	defer rs.unload(res)
	mesh, ok := res.Data.(*metadata.Mesh)
	if !ok {
		return nil, fmt.Errorf("asset '%s' did not load as a model", ref)
	}

	rs.mu.Lock()
	if _, exists := rs.models[ref]; !exists {
		rs.models[ref] = mesh
		rs.order = append(rs.order, ref)
		for len(rs.order) > rs.Config.MaxModelCount {
			delete(rs.models, rs.order[0])
			rs.order = rs.order[1:]
		}
	}
	rs.mu.Unlock()
	core.LogDebug("model '%s' loaded with %d vertices", ref, mesh.VertexCount())
	return mesh.Clone(), nil
}

// AcquireMaterial returns the material config stored at ref.
func (rs *ResourceSystem) AcquireMaterial(ref string) (*metadata.MaterialConfig, error) {
	rs.mu.Lock()
	cached, ok := rs.materials[ref]
	rs.mu.Unlock()
	if ok {
		return cached, nil
	}

	res, err := rs.assetManager.LoadAsset(ref, metadata.ResourceTypeMaterial, nil)
	if err != nil {
		return nil, err
	}
	defer rs.unload(res)
	cfg, ok := res.Data.(*metadata.MaterialConfig)
	if !ok {
		return nil, fmt.Errorf("asset '%s' did not load as a material", ref)
	}

	rs.mu.Lock()
	rs.materials[ref] = cfg
	rs.mu.Unlock()
	return cfg, nil
}

// LoadScene reads a scene document from the asset directory. Scenes are not
// cached, each call reads the file again.
func (rs *ResourceSystem) LoadScene(ref string) (*scene.Config, error) {
	res, err := rs.assetManager.LoadAsset(ref, metadata.ResourceTypeScene, nil)
	if err != nil {
		return nil, err
	}
	defer rs.unload(res)
	cfg, ok := res.Data.(*scene.Config)
	if !ok {
		return nil, fmt.Errorf("asset '%s' did not load as a scene", ref)
	}
	return cfg, nil
}

func (rs *ResourceSystem) HasAsset(ref string) bool {
	return rs.assetManager.Has(ref)
}

// Cached reports whether ref is held in memory.
func (rs *ResourceSystem) Cached(ref string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, m := rs.models[ref]
	_, mt := rs.materials[ref]
	return m || mt
}

func (rs *ResourceSystem) unload(res *metadata.Resource) {
	if err := rs.assetManager.UnloadAsset(res); err != nil {
		core.LogWarn("unloading '%s': %s", res.Name, err)
	}
}

func (rs *ResourceSystem) onAssetChange(change assets.AssetChange) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	switch change.Type {
	case metadata.ResourceTypeModel:
		if _, ok := rs.models[change.Name]; !ok {
			return
		}
		delete(rs.models, change.Name)
		for i, ref := range rs.order {
			if ref == change.Name {
				rs.order = append(rs.order[:i], rs.order[i+1:]...)
				break
			}
		}
	case metadata.ResourceTypeMaterial:
		if _, ok := rs.materials[change.Name]; !ok {
			return
		}
		delete(rs.materials, change.Name)
	default:
		return
	}
	core.LogInfo("asset '%s' changed, cached copy dropped", change.Name)
}
