package features

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/math"
)

type GeometryType int

const (
	GeometryNone GeometryType = iota
	GeometryPoint
	GeometryPolygon
)

func (g GeometryType) String() string {
	switch g {
	case GeometryPoint:
		return "point"
	case GeometryPolygon:
		return "polygon"
	default:
		return "none"
	}
}

// Geometry is a feature shape with elevations. The planar part is kept as
// orb geometry; Z values live alongside it since orb is 2D.
type Geometry struct {
	Type GeometryType

	Point orb.Point
	Z     float64

	Polygon orb.Polygon
	// RingZ[i][j] is the elevation of Polygon[i][j].
	RingZ [][]float64
}

func NewPointGeometry(x, y, z float64) *Geometry {
	return &Geometry{Type: GeometryPoint, Point: orb.Point{x, y}, Z: z}
}

// NewPolygonGeometry builds a polygon from rings of [x, y, z] coordinates.
// The first ring is the outer boundary.
func NewPolygonGeometry(rings [][]math.Vec3) *Geometry {
	g := &Geometry{Type: GeometryPolygon}
	for _, r := range rings {
		ring := make(orb.Ring, len(r))
		zs := make([]float64, len(r))
		for i, v := range r {
			ring[i] = orb.Point{v.X(), v.Y()}
			zs[i] = v.Z()
		}
		g.Polygon = append(g.Polygon, ring)
		g.RingZ = append(g.RingZ, zs)
	}
	return g
}

// Anchor returns where a model placed on this geometry goes: the point
// itself, or the area centroid of a polygon at its mean elevation.
func (g *Geometry) Anchor() (math.Vec3, error) {
	switch g.Type {
	case GeometryPoint:
		return math.Vec3{g.Point.X(), g.Point.Y(), g.Z}, nil
	case GeometryPolygon:
		if len(g.Polygon) == 0 || len(g.Polygon[0]) < 3 {
			return math.Vec3{}, fmt.Errorf("polygon has no outer ring: %w", core.ErrUnsupportedGeometry)
		}
		c, area := planar.CentroidArea(g.Polygon)
		if area == 0 {
			return math.Vec3{}, fmt.Errorf("polygon has no area: %w", core.ErrUnsupportedGeometry)
		}
		z := 0.0
		for _, v := range g.RingZ[0] {
			z += v
		}
		z /= float64(len(g.RingZ[0]))
		return math.Vec3{c.X(), c.Y(), z}, nil
	default:
		return math.Vec3{}, fmt.Errorf("geometry of type %s has no anchor: %w", g.Type, core.ErrUnsupportedGeometry)
	}
}

// OuterRing returns the polygon boundary with elevations.
func (g *Geometry) OuterRing() ([]math.Vec3, error) {
	rings, err := g.Rings()
	if err != nil {
		return nil, err
	}
	return rings[0], nil
}

// Rings returns every ring with elevations, the outer boundary first and
// its holes after.
func (g *Geometry) Rings() ([][]math.Vec3, error) {
	if g.Type != GeometryPolygon || len(g.Polygon) == 0 {
		return nil, fmt.Errorf("geometry of type %s has no ring: %w", g.Type, core.ErrUnsupportedGeometry)
	}
	rings := make([][]math.Vec3, len(g.Polygon))
	for r, ring := range g.Polygon {
		out := make([]math.Vec3, len(ring))
		for i, p := range ring {
			z := 0.0
			if r < len(g.RingZ) && i < len(g.RingZ[r]) {
				z = g.RingZ[r][i]
			}
			out[i] = math.Vec3{p.X(), p.Y(), z}
		}
		rings[r] = out
	}
	return rings, nil
}

// Bound returns the planar bounding box.
func (g *Geometry) Bound() orb.Bound {
	switch g.Type {
	case GeometryPoint:
		return g.Point.Bound()
	case GeometryPolygon:
		return g.Polygon.Bound()
	default:
		return orb.Bound{}
	}
}
