package metadata

import (
	"fmt"

	"github.com/spaghettifunk/campusmap/engine/math"
)

// Mesh is a 3D surface placed in the scene. Its component positions are
// in scene coordinates; Transform keeps track of what was applied around
// Origin so the accumulated scale and heading can be read back.
type Mesh struct {
	ID         string
	Name       string
	Origin     math.Vec3
	Generation uint8
	Components []*Component
	Transform  *math.Transform
}

func NewMesh(id, name string, origin math.Vec3, components ...*Component) *Mesh {
	return &Mesh{
		ID:         id,
		Name:       name,
		Origin:     origin,
		Components: components,
		Transform:  math.TransformFromPosition(origin),
	}
}

// ComponentByName returns the first component called name.
func (m *Mesh) ComponentByName(name string) (int, *Component, bool) {
	for i, c := range m.Components {
		if c.Name == name {
			return i, c, true
		}
	}
	return -1, nil, false
}

// SetComponentMaterial assigns material to the component at index.
func (m *Mesh) SetComponentMaterial(index int, material *Material) error {
	if index < 0 || index >= len(m.Components) {
		return fmt.Errorf("mesh '%s' has %d components, index %d is out of range", m.Name, len(m.Components), index)
	}
	m.Components[index].Material = material
	m.Generation++
	return nil
}

// Scale scales the mesh uniformly by factor around pivot.
func (m *Mesh) Scale(factor float64, pivot math.Vec3) {
	for _, c := range m.Components {
		math.ScaleAbout(c.Positions, factor, pivot)
	}
	o := []math.Vec3{m.Origin}
	math.ScaleAbout(o, factor, pivot)
	m.Origin = o[0]
	m.Transform.SetPosition(m.Origin)
	m.Transform.ScaleIt(math.Vec3{factor, factor, factor})
	m.Generation++
}

// Rotate turns the mesh by degrees around the vertical axis through pivot.
// Normals are turned with it.
func (m *Mesh) Rotate(degrees float64, pivot math.Vec3) {
	for _, c := range m.Components {
		math.RotateAboutVertical(c.Positions, degrees, pivot)
		math.RotateAboutVertical(c.Normals, degrees, math.Vec3{})
	}
	o := []math.Vec3{m.Origin}
	math.RotateAboutVertical(o, degrees, pivot)
	m.Origin = o[0]
	m.Transform.SetPosition(m.Origin)
	m.Transform.Rotate(math.NewQuatAboutVertical(degrees))
	m.Generation++
}

// Translate moves every vertex by offset.
func (m *Mesh) Translate(offset math.Vec3) {
	for _, c := range m.Components {
		for i := range c.Positions {
			c.Positions[i] = c.Positions[i].Add(offset)
		}
	}
	m.Origin = m.Origin.Add(offset)
	m.Transform.SetPosition(m.Origin)
	m.Generation++
}

func (m *Mesh) VertexCount() int {
	n := 0
	for _, c := range m.Components {
		n += len(c.Positions)
	}
	return n
}

func (m *Mesh) Extents() math.Extents3D {
	all := make([]math.Vec3, 0, m.VertexCount())
	for _, c := range m.Components {
		all = append(all, c.Positions...)
	}
	return math.ExtentsOf(all)
}

// Clone returns a deep copy. Materials are shared, they are never mutated
// in place.
func (m *Mesh) Clone() *Mesh {
	out := &Mesh{
		ID:         m.ID,
		Name:       m.Name,
		Origin:     m.Origin,
		Generation: m.Generation,
		Components: make([]*Component, len(m.Components)),
	}
	t := *m.Transform
	out.Transform = &t
	for i, c := range m.Components {
		out.Components[i] = c.Clone()
	}
	return out
}
