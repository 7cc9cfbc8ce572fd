package metadata

import (
	"image/color"

	"github.com/spaghettifunk/campusmap/engine/math"
)

type EdgeType int

const (
	EdgeNone EdgeType = iota
	EdgeSolid
	EdgeSketch
)

func ParseEdgeType(s string) EdgeType {
	switch s {
	case "solid":
		return EdgeSolid
	case "sketch":
		return EdgeSketch
	default:
		return EdgeNone
	}
}

func (e EdgeType) String() string {
	switch e {
	case EdgeSolid:
		return "solid"
	case EdgeSketch:
		return "sketch"
	default:
		return "none"
	}
}

// Edges highlights the outline of a mesh.
type Edges struct {
	Type  EdgeType
	Color color.RGBA
	// Line width in points.
	Size float64
	// How far the lines extend past the corners, in points.
	ExtensionLength float64
}

type SymbolType int

const (
	SymbolMesh SymbolType = iota
	SymbolPoint
	SymbolFill
	SymbolLine
)

// Symbol describes how a graphic is drawn.
type Symbol struct {
	Type  SymbolType
	Color color.RGBA
	// Marker size or line width in points. Unused for meshes.
	Size    float64
	Outline color.RGBA
	Edges   Edges
}

// Graphic is one displayable item of a graphics layer. Either Mesh or
// Point is set.
type Graphic struct {
	ID         string
	Mesh       *Mesh
	Point      *math.Vec3
	Symbol     Symbol
	Attributes map[string]interface{}
}

func (g *Graphic) IsMesh() bool {
	return g.Mesh != nil
}
