package systems

import (
	"fmt"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
	"github.com/spaghettifunk/campusmap/engine/scene"
)

const (
	DefaultCanopyComponent = "canopy"
	DefaultTrunkComponent  = "trunk"
)

// CatalogEntry is what a category resolves to.
type CatalogEntry struct {
	AssetRef    string
	ScaleFactor float64
	// Component names. When a model has no component with the name, the
	// trunk falls back to the first component and the canopy to the second.
	CanopyComponent string
	TrunkComponent  string
	Canopy          *metadata.Material
	Trunk           *metadata.Material
}

// AssetCatalog maps categories to models. The default entry is required and
// is used for every category without an entry of its own.
type AssetCatalog struct {
	Default CatalogEntry
	Classes map[string]CatalogEntry
}

// Lookup never fails: unknown or empty categories get the default entry.
func (c *AssetCatalog) Lookup(class string) CatalogEntry {
	if e, ok := c.Classes[class]; ok {
		return e
	}
	return c.Default
}

// NewAssetCatalog resolves the materials of every entry up front so that a
// bad material fails the scene, not each record.
func NewAssetCatalog(cfg *scene.CatalogConfig, ms *MaterialSystem) (*AssetCatalog, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: catalog is missing", core.ErrInvalidConfig)
	}
	def, err := newCatalogEntry(cfg.Default, ms)
	if err != nil {
		return nil, fmt.Errorf("catalog default: %w", err)
	}
	c := &AssetCatalog{
		Default: def,
		Classes: make(map[string]CatalogEntry, len(cfg.Classes)),
	}
	for class, ec := range cfg.Classes {
		e, err := newCatalogEntry(ec, ms)
		if err != nil {
			return nil, fmt.Errorf("catalog class '%s': %w", class, err)
		}
		c.Classes[class] = e
	}
	return c, nil
}

func newCatalogEntry(cfg scene.CatalogEntryConfig, ms *MaterialSystem) (CatalogEntry, error) {
	if cfg.Model == "" || cfg.Scale <= 0 {
		return CatalogEntry{}, fmt.Errorf("%w: model and a positive scale are required", core.ErrInvalidConfig)
	}
	e := CatalogEntry{
		AssetRef:        cfg.Model,
		ScaleFactor:     cfg.Scale,
		CanopyComponent: cfg.CanopyComponent,
		TrunkComponent:  cfg.TrunkComponent,
	}
	if e.CanopyComponent == "" {
		e.CanopyComponent = DefaultCanopyComponent
	}
	if e.TrunkComponent == "" {
		e.TrunkComponent = DefaultTrunkComponent
	}
	var err error
	if e.Canopy, err = ms.AcquireFlat(cfg.CanopyMaterial, cfg.CanopyColor); err != nil {
		return e, fmt.Errorf("canopy material: %w", err)
	}
	if e.Trunk, err = ms.AcquireFlat(cfg.TrunkMaterial, cfg.TrunkColor); err != nil {
		return e, fmt.Errorf("trunk material: %w", err)
	}
	return e, nil
}
