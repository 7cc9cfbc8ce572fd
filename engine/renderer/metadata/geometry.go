package metadata

import (
	"github.com/spaghettifunk/campusmap/engine/math"
)

/**
 * @brief A named part of a mesh with its own material, such as the
 * canopy or the trunk of a tree model.
 */
type Component struct {
	/** @brief The component name, taken from the model's object or group name. */
	Name string
	/** @brief Vertex positions. */
	Positions []math.Vec3
	/** @brief Vertex normals, parallel to Positions. May be empty. */
	Normals []math.Vec3
	/** @brief Triangle list indexing into Positions. */
	Indices []uint32
	/** @brief The material, nil until one is assigned. */
	Material *Material
}

func (c *Component) TriangleCount() int {
	return len(c.Indices) / 3
}

func (c *Component) Clone() *Component {
	out := &Component{
		Name:     c.Name,
		Material: c.Material,
	}
	out.Positions = append([]math.Vec3(nil), c.Positions...)
	out.Normals = append([]math.Vec3(nil), c.Normals...)
	out.Indices = append([]uint32(nil), c.Indices...)
	return out
}
