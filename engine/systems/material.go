package systems

import (
	"fmt"
	"image/color"
	"path"
	"strings"
	"sync"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
)

type MaterialSystemConfig struct {
	/** @brief Directory, relative to the asset directory, holding .kmt files. */
	MaterialDir string
}

/**
 * @brief Keeps named materials. Materials are immutable once registered,
 * so the same instance is shared by every mesh using it.
 */
type MaterialSystem struct {
	Config          *MaterialSystemConfig
	DefaultMaterial *metadata.Material
	resourceSystem  *ResourceSystem

	mu        sync.RWMutex
	materials map[string]*metadata.Material
}

func NewMaterialSystem(config *MaterialSystemConfig, rs *ResourceSystem) (*MaterialSystem, error) {
	if config.MaterialDir == "" {
		config.MaterialDir = "materials"
	}
	return &MaterialSystem{
		Config:          config,
		DefaultMaterial: metadata.NewFlatMaterial(metadata.DefaultMaterialName, color.RGBA{200, 200, 200, 255}),
		resourceSystem:  rs,
		materials:       make(map[string]*metadata.Material),
	}, nil
}

func (ms *MaterialSystem) Shutdown() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.materials = make(map[string]*metadata.Material)
	return nil
}

func (ms *MaterialSystem) GetDefault() *metadata.Material {
	return ms.DefaultMaterial
}

// Acquire returns the material called name, loading "<MaterialDir>/<name>.kmt"
// the first time.
func (ms *MaterialSystem) Acquire(name string) (*metadata.Material, error) {
	if name == metadata.DefaultMaterialName {
		return ms.DefaultMaterial, nil
	}
	ms.mu.RLock()
	m, ok := ms.materials[name]
	ms.mu.RUnlock()
	if ok {
		return m, nil
	}

	ref := path.Join(ms.Config.MaterialDir, name+".kmt")
	cfg, err := ms.resourceSystem.AcquireMaterial(ref)
	if err != nil {
		return nil, fmt.Errorf("material '%s': %w", name, err)
	}
	return ms.register(metadata.NewMaterialFromConfig(cfg)), nil
}

// AcquireFlat returns a fully matte, non metallic material. materialName
// wins over colorSpec when both are set; only the color of a named
// material is kept.
func (ms *MaterialSystem) AcquireFlat(materialName, colorSpec string) (*metadata.Material, error) {
	if materialName != "" {
		m, err := ms.Acquire(materialName)
		if err != nil {
			return nil, err
		}
		return ms.Flat(m.Name+"_flat", m.Color), nil
	}
	if colorSpec == "" {
		return ms.DefaultMaterial, nil
	}
	c, err := metadata.ParseColor(colorSpec)
	if err != nil {
		return nil, err
	}
	return ms.Flat("flat_"+strings.TrimPrefix(metadata.FormatColor(c), "#"), c), nil
}

// Flat registers, or returns the already registered, flat material name.
func (ms *MaterialSystem) Flat(name string, c color.RGBA) *metadata.Material {
	ms.mu.RLock()
	m, ok := ms.materials[name]
	ms.mu.RUnlock()
	if ok && m.Color == c {
		return m
	}
	return ms.register(metadata.NewFlatMaterial(name, c))
}

func (ms *MaterialSystem) register(m *metadata.Material) *metadata.Material {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if existing, ok := ms.materials[m.Name]; ok && *existing == *m {
		return existing
	}
	ms.materials[m.Name] = m
	core.LogDebug("material registered: %s", m)
	return m
}

// Release drops name so the next Acquire reads the file again.
func (ms *MaterialSystem) Release(name string) {
	ms.mu.Lock()
	delete(ms.materials, name)
	ms.mu.Unlock()
}
