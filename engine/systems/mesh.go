package systems

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/features"
	"github.com/spaghettifunk/campusmap/engine/math"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
)

// SurfaceComponentName names the single component of polygon meshes.
const SurfaceComponentName = "surface"

type MeshSystem struct {
	resourceSystem *ResourceSystem
	materialSystem *MaterialSystem
}

func NewMeshSystem(rs *ResourceSystem, ms *MaterialSystem) (*MeshSystem, error) {
	return &MeshSystem{
		resourceSystem: rs,
		materialSystem: ms,
	}, nil
}

func (mls *MeshSystem) Shutdown() error {
	return nil
}

/**
 * @brief Places a copy of the model stored at assetRef so that the model
 * origin sits on anchor. Components keep the default material until
 * the caller assigns one.
 */
func (mls *MeshSystem) BuildFromModel(ctx context.Context, anchor math.Vec3, assetRef string) (*metadata.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	model, err := mls.resourceSystem.AcquireModel(assetRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMeshConstruction, err)
	}
	if len(model.Components) == 0 {
		return nil, fmt.Errorf("%w: model '%s' has no components", core.ErrMeshConstruction, assetRef)
	}

	model.ID = core.NewIdentifier()
	model.Name = assetRef
	model.Translate(anchor.Sub(model.Origin))
	for _, c := range model.Components {
		if c.Material == nil {
			c.Material = mls.materialSystem.GetDefault()
		}
	}
	return model, nil
}

/**
 * @brief Triangulates a polygon and its holes into a flat surface mesh
 * following the ring elevations.
 */
func (mls *MeshSystem) BuildFromPolygon(geometry *features.Geometry) (*metadata.Mesh, error) {
	if geometry == nil {
		return nil, fmt.Errorf("%w: record has no geometry", core.ErrMeshConstruction)
	}
	rings, err := geometry.Rings()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMeshConstruction, err)
	}
	positions, indices, err := math.GeometryTriangulatePolygon(rings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMeshConstruction, err)
	}
	anchor, err := geometry.Anchor()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMeshConstruction, err)
	}

	surface := &metadata.Component{
		Name:      SurfaceComponentName,
		Positions: positions,
		Indices:   indices,
		Material:  mls.materialSystem.GetDefault(),
	}
	surface.Normals = math.GeometryGenerateNormals(surface.Positions, surface.Indices)
	return metadata.NewMesh(core.NewIdentifier(), "polygon", anchor, surface), nil
}
