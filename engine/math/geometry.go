package math

import (
	"fmt"
	m "math"
	"sort"

	"github.com/spaghettifunk/campusmap/engine/core"
)

// GeometryGenerateNormals returns one smoothed normal per position,
// averaging the face normals of the triangles that share it.
func GeometryGenerateNormals(positions []Vec3, indices []uint32) []Vec3 {
	normals := make([]Vec3, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		edge1 := positions[i1].Sub(positions[i0])
		edge2 := positions[i2].Sub(positions[i0])
		// Not normalized, larger faces weigh more.
		face := edge1.Cross(edge2)
		normals[i0] = normals[i0].Add(face)
		normals[i1] = normals[i1].Add(face)
		normals[i2] = normals[i2].Add(face)
	}
	for i, n := range normals {
		if n.Len() > Epsilon {
			normals[i] = n.Normalize()
		} else {
			normals[i] = Up
		}
	}
	return normals
}

// signedAreaXY is positive for counter-clockwise rings seen from above.
func signedAreaXY(ring []Vec3) float64 {
	area := 0.0
	for i := range ring {
		a, b := ring[i], ring[(i+1)%len(ring)]
		area += a.X()*b.Y() - b.X()*a.Y()
	}
	return area / 2
}

func crossXY(o, a, b Vec3) float64 {
	return (a.X()-o.X())*(b.Y()-o.Y()) - (a.Y()-o.Y())*(b.X()-o.X())
}

func insideTriangleXY(p, a, b, c Vec3) bool {
	d1 := crossXY(a, b, p)
	d2 := crossXY(b, c, p)
	d3 := crossXY(c, a, p)
	hasNeg := d1 < -Epsilon || d2 < -Epsilon || d3 < -Epsilon
	hasPos := d1 > Epsilon || d2 > Epsilon || d3 > Epsilon
	return !(hasNeg && hasPos)
}

// TrimClosingVertex drops the last vertex of a ring when it repeats the first.
func TrimClosingVertex(ring []Vec3) []Vec3 {
	if len(ring) > 1 && ring[0].ApproxEqualThreshold(ring[len(ring)-1], Epsilon) {
		return ring[:len(ring)-1]
	}
	return ring
}

// GeometryTriangulate splits a simple polygon ring into triangles by ear
// clipping on its horizontal projection. The ring may be open or closed and
// wound either way; the triangles are always emitted counter-clockwise so
// their normals face up.
func GeometryTriangulate(ring []Vec3) ([]uint32, error) {
	_, indices, err := GeometryTriangulatePolygon([][]Vec3{ring})
	return indices, err
}

// GeometryTriangulatePolygon triangulates an outer ring and its holes. Each
// hole is bridged to a visible vertex of the outer boundary, rightmost hole
// first, and the resulting single ring is ear clipped. It returns the
// vertices of every ring without closing vertices, outer ring first, and the
// triangle indices into them. Degenerate holes are ignored.
func GeometryTriangulatePolygon(rings [][]Vec3) ([]Vec3, []uint32, error) {
	if len(rings) == 0 {
		return nil, nil, fmt.Errorf("polygon has no rings: %w", core.ErrUnsupportedGeometry)
	}
	outer := TrimClosingVertex(rings[0])
	n := len(outer)
	if n < 3 {
		return nil, nil, fmt.Errorf("ring has %d vertices, need at least 3: %w", n, core.ErrUnsupportedGeometry)
	}
	area := signedAreaXY(outer)
	if m.Abs(area) <= Epsilon {
		return nil, nil, fmt.Errorf("ring has no area: %w", core.ErrUnsupportedGeometry)
	}

	positions := append([]Vec3(nil), outer...)
	// The outer boundary is walked counter-clockwise, holes clockwise.
	polygon := ringOrder(0, n, area > 0)

	type hole struct {
		ring  []uint32
		right uint32
	}
	var holes []hole
	for _, r := range rings[1:] {
		r = TrimClosingVertex(r)
		if len(r) < 3 {
			continue
		}
		holeArea := signedAreaXY(r)
		if m.Abs(holeArea) <= Epsilon {
			continue
		}
		ring := ringOrder(len(positions), len(r), holeArea < 0)
		positions = append(positions, r...)
		right := ring[0]
		for _, i := range ring {
			if positions[i].X() > positions[right].X() {
				right = i
			}
		}
		holes = append(holes, hole{ring: ring, right: right})
	}
	sort.SliceStable(holes, func(a, b int) bool {
		return positions[holes[a].right].X() > positions[holes[b].right].X()
	})

	for k, h := range holes {
		blockers := [][]uint32{polygon, h.ring}
		for _, other := range holes[k+1:] {
			blockers = append(blockers, other.ring)
		}
		var err error
		if polygon, err = bridgeHole(positions, polygon, h.ring, h.right, blockers); err != nil {
			return nil, nil, err
		}
	}

	indices, err := earClip(positions, polygon)
	if err != nil {
		return nil, nil, err
	}
	return positions, indices, nil
}

func ringOrder(start, count int, forward bool) []uint32 {
	order := make([]uint32, count)
	for i := range order {
		if forward {
			order[i] = uint32(start + i)
		} else {
			order[i] = uint32(start + count - 1 - i)
		}
	}
	return order
}

// bridgeHole splices hole into polygon through the nearest polygon vertex
// that the hole's rightmost vertex can see. Both bridge vertices appear
// twice in the result.
func bridgeHole(positions []Vec3, polygon, hole []uint32, right uint32, blockers [][]uint32) ([]uint32, error) {
	h := positions[right]
	best, bestDist := -1, m.Inf(1)
	for i, vi := range polygon {
		v := positions[vi]
		d := m.Hypot(v.X()-h.X(), v.Y()-h.Y())
		if d >= bestDist {
			continue
		}
		if !visibleXY(positions, right, vi, blockers) {
			continue
		}
		best, bestDist = i, d
	}
	if best < 0 {
		return nil, fmt.Errorf("hole cannot be joined to its boundary: %w", core.ErrUnsupportedGeometry)
	}

	start := 0
	for i, hi := range hole {
		if hi == right {
			start = i
			break
		}
	}
	out := make([]uint32, 0, len(polygon)+len(hole)+2)
	out = append(out, polygon[:best+1]...)
	for k := 0; k <= len(hole); k++ {
		out = append(out, hole[(start+k)%len(hole)])
	}
	out = append(out, polygon[best:]...)
	return out, nil
}

// visibleXY reports whether the segment between positions a and b touches
// no ring edge other than the edges meeting at a or b.
func visibleXY(positions []Vec3, a, b uint32, rings [][]uint32) bool {
	pa, pb := positions[a], positions[b]
	for _, ring := range rings {
		for k := range ring {
			i, j := ring[k], ring[(k+1)%len(ring)]
			if i == a || i == b || j == a || j == b {
				continue
			}
			qi, qj := positions[i], positions[j]
			if sameXY(qi, pa) || sameXY(qi, pb) || sameXY(qj, pa) || sameXY(qj, pb) {
				continue
			}
			if segmentsTouchXY(pa, pb, qi, qj) {
				return false
			}
		}
	}
	return true
}

func sameXY(a, b Vec3) bool {
	return m.Abs(a.X()-b.X()) <= Epsilon && m.Abs(a.Y()-b.Y()) <= Epsilon
}

func onSegmentXY(p, q, r Vec3) bool {
	return r.X() >= m.Min(p.X(), q.X())-Epsilon && r.X() <= m.Max(p.X(), q.X())+Epsilon &&
		r.Y() >= m.Min(p.Y(), q.Y())-Epsilon && r.Y() <= m.Max(p.Y(), q.Y())+Epsilon
}

// segmentsTouchXY is true when the segments cross or merely touch.
func segmentsTouchXY(p1, p2, q1, q2 Vec3) bool {
	d1 := crossXY(q1, q2, p1)
	d2 := crossXY(q1, q2, p2)
	d3 := crossXY(p1, p2, q1)
	d4 := crossXY(p1, p2, q2)
	if ((d1 > Epsilon && d2 < -Epsilon) || (d1 < -Epsilon && d2 > Epsilon)) &&
		((d3 > Epsilon && d4 < -Epsilon) || (d3 < -Epsilon && d4 > Epsilon)) {
		return true
	}
	return (m.Abs(d1) <= Epsilon && onSegmentXY(q1, q2, p1)) ||
		(m.Abs(d2) <= Epsilon && onSegmentXY(q1, q2, p2)) ||
		(m.Abs(d3) <= Epsilon && onSegmentXY(p1, p2, q1)) ||
		(m.Abs(d4) <= Epsilon && onSegmentXY(p1, p2, q2))
}

// earClip triangulates a counter-clockwise index ring. Repeated indices and
// coincident vertices, as left by hole bridges, are allowed.
func earClip(positions []Vec3, remaining []uint32) ([]uint32, error) {
	indices := make([]uint32, 0, (len(remaining)-2)*3)
	for len(remaining) > 3 {
		clipped := false
		count := len(remaining)
		for i := 0; i < count; i++ {
			ip := remaining[(i+count-1)%count]
			ic := remaining[i]
			in := remaining[(i+1)%count]
			a, b, c := positions[ip], positions[ic], positions[in]
			if crossXY(a, b, c) <= Epsilon {
				// reflex or collinear corner
				continue
			}
			ear := true
			for _, j := range remaining {
				if j == ip || j == ic || j == in {
					continue
				}
				p := positions[j]
				if sameXY(p, a) || sameXY(p, b) || sameXY(p, c) {
					continue
				}
				if insideTriangleXY(p, a, b, c) {
					ear = false
					break
				}
			}
			if !ear {
				continue
			}
			indices = append(indices, ip, ic, in)
			remaining = append(remaining[:i:i], remaining[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			return nil, fmt.Errorf("ring is self-intersecting: %w", core.ErrUnsupportedGeometry)
		}
	}
	indices = append(indices, remaining[0], remaining[1], remaining[2])
	return indices, nil
}
