package systems

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/features"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
)

// RecordConverter turns one feature record into a graphic.
type RecordConverter interface {
	Convert(ctx context.Context, rec features.FeatureRecord) (*metadata.Graphic, error)
}

// ConverterFunc adapts a function to RecordConverter.
type ConverterFunc func(ctx context.Context, rec features.FeatureRecord) (*metadata.Graphic, error)

func (f ConverterFunc) Convert(ctx context.Context, rec features.FeatureRecord) (*metadata.Graphic, error) {
	return f(ctx, rec)
}

// Default attribute names read by ModelConverter.
const (
	DefaultClassField    = "Class"
	DefaultHeightField   = "Height"
	DefaultRotationField = "Rotation"
)

// ModelConverter places a catalog model on every record: the model is
// colored, scaled by height times the category scale factor around the
// record location and turned about the vertical axis by the record rotation.
type ModelConverter struct {
	Meshes        *MeshSystem
	Catalog       *AssetCatalog
	Symbol        metadata.Symbol
	ClassField    string
	HeightField   string
	RotationField string
}

func (mc *ModelConverter) fields() (string, string, string) {
	class, height, rotation := mc.ClassField, mc.HeightField, mc.RotationField
	if class == "" {
		class = DefaultClassField
	}
	if height == "" {
		height = DefaultHeightField
	}
	if rotation == "" {
		rotation = DefaultRotationField
	}
	return class, height, rotation
}

func (mc *ModelConverter) Convert(ctx context.Context, rec features.FeatureRecord) (*metadata.Graphic, error) {
	if rec.Geometry == nil {
		return nil, fmt.Errorf("%w: record %d has no geometry", core.ErrMeshConstruction, rec.ObjectID)
	}
	classField, heightField, rotationField := mc.fields()

	anchor, err := rec.Geometry.Anchor()
	if err != nil {
		return nil, fmt.Errorf("%w: record %d: %v", core.ErrMeshConstruction, rec.ObjectID, err)
	}
	height, ok := rec.Float(heightField)
	if !ok {
		return nil, fmt.Errorf("%w: record %d has no numeric '%s'", core.ErrMeshConstruction, rec.ObjectID, heightField)
	}
	// A missing rotation keeps the model heading.
	rotation, _ := rec.Float(rotationField)
	class := rec.String(classField)
	entry := mc.Catalog.Lookup(class)

	mesh, err := mc.Meshes.BuildFromModel(ctx, anchor, entry.AssetRef)
	if err != nil {
		return nil, err
	}
	if err := assignMaterials(mesh, entry); err != nil {
		return nil, err
	}
	mesh.Scale(height*entry.ScaleFactor, anchor)
	mesh.Rotate(rotation, anchor)

	return &metadata.Graphic{
		ID:     mesh.ID,
		Mesh:   mesh,
		Symbol: mc.Symbol,
		Attributes: map[string]interface{}{
			"objectId": rec.ObjectID,
			"class":    class,
			"asset":    entry.AssetRef,
			"scale":    height * entry.ScaleFactor,
			"rotation": rotation,
		},
	}, nil
}

func assignMaterials(mesh *metadata.Mesh, entry CatalogEntry) error {
	trunk, _, ok := mesh.ComponentByName(entry.TrunkComponent)
	if !ok {
		trunk = 0
	}
	canopy, _, ok := mesh.ComponentByName(entry.CanopyComponent)
	if !ok {
		canopy = 1
	}
	if trunk == canopy || len(mesh.Components) < 2 {
		return fmt.Errorf("%w: model '%s' needs separate canopy and trunk components", core.ErrMeshConstruction, entry.AssetRef)
	}
	if err := mesh.SetComponentMaterial(canopy, entry.Canopy); err != nil {
		return fmt.Errorf("%w: %v", core.ErrMeshConstruction, err)
	}
	if err := mesh.SetComponentMaterial(trunk, entry.Trunk); err != nil {
		return fmt.Errorf("%w: %v", core.ErrMeshConstruction, err)
	}
	return nil
}

// PolygonConverter turns each polygon into a surface mesh carrying only the
// edge symbol.
type PolygonConverter struct {
	Meshes *MeshSystem
	Symbol metadata.Symbol
}

func (pc *PolygonConverter) Convert(ctx context.Context, rec features.FeatureRecord) (*metadata.Graphic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mesh, err := pc.Meshes.BuildFromPolygon(rec.Geometry)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.ObjectID, err)
	}
	return &metadata.Graphic{
		ID:     mesh.ID,
		Mesh:   mesh,
		Symbol: pc.Symbol,
		Attributes: map[string]interface{}{
			"objectId": rec.ObjectID,
		},
	}, nil
}
