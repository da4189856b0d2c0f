package geometry

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// BBoxIntersects reports whether a geometry truly intersects an axis-aligned
// bounding box, not merely whether their bounds overlap. This is the
// in-process counterpart of PostGIS ST_Intersects(geom, ST_MakeEnvelope(...))
// used by the sqlite backend.
func BBoxIntersects(g geom.T, minLon, minLat, maxLon, maxLat float64) bool {
	bounds := g.Bounds()
	if bounds.Min(0) > maxLon || bounds.Max(0) < minLon ||
		bounds.Min(1) > maxLat || bounds.Max(1) < minLat {
		return false
	}

	switch t := g.(type) {
	case *geom.Point:
		// Bounds overlap is containment for a point.
		return true

	case *geom.LineString:
		return pathIntersectsBox(t.FlatCoords(), minLon, minLat, maxLon, maxLat)

	case *geom.Polygon:
		return polygonIntersectsBox(t, minLon, minLat, maxLon, maxLat)

	default:
		// Unknown type: fall back to the bounds overlap already established.
		return true
	}
}

// pathIntersectsBox checks a flat XY coordinate path: any vertex inside the
// box, or any segment crossing a box edge.
func pathIntersectsBox(flat []float64, minLon, minLat, maxLon, maxLat float64) bool {
	for i := 0; i+1 < len(flat); i += 2 {
		if pointInBox(flat[i], flat[i+1], minLon, minLat, maxLon, maxLat) {
			return true
		}
	}
	for i := 0; i+3 < len(flat); i += 2 {
		if segmentIntersectsBox(flat[i], flat[i+1], flat[i+2], flat[i+3], minLon, minLat, maxLon, maxLat) {
			return true
		}
	}
	return false
}

func polygonIntersectsBox(p *geom.Polygon, minLon, minLat, maxLon, maxLat float64) bool {
	if p.NumLinearRings() == 0 {
		return false
	}

	// Boundary crossing or boundary vertex inside the box.
	for i := 0; i < p.NumLinearRings(); i++ {
		if pathIntersectsBox(p.LinearRing(i).FlatCoords(), minLon, minLat, maxLon, maxLat) {
			return true
		}
	}

	// No boundary contact: the box is either fully inside or fully outside
	// the polygon. One box corner decides, minus the holes.
	corner := geom.Coord{minLon, minLat}
	outer := p.LinearRing(0).FlatCoords()
	if !xy.IsPointInRing(geom.XY, corner, outer) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(geom.XY, corner, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

func pointInBox(x, y, minLon, minLat, maxLon, maxLat float64) bool {
	return x >= minLon && x <= maxLon && y >= minLat && y <= maxLat
}

// segmentIntersectsBox checks one segment against the four box edges.
// Endpoints inside the box are handled by the vertex pass in the caller.
func segmentIntersectsBox(x1, y1, x2, y2, minLon, minLat, maxLon, maxLat float64) bool {
	return segmentsCross(x1, y1, x2, y2, minLon, minLat, maxLon, minLat) ||
		segmentsCross(x1, y1, x2, y2, maxLon, minLat, maxLon, maxLat) ||
		segmentsCross(x1, y1, x2, y2, maxLon, maxLat, minLon, maxLat) ||
		segmentsCross(x1, y1, x2, y2, minLon, maxLat, minLon, minLat)
}

// segmentsCross reports proper or touching intersection of two segments
// using orientation tests.
func segmentsCross(ax, ay, bx, by, cx, cy, dx, dy float64) bool {
	d1 := cross(cx, cy, dx, dy, ax, ay)
	d2 := cross(cx, cy, dx, dy, bx, by)
	d3 := cross(ax, ay, bx, by, cx, cy)
	d4 := cross(ax, ay, bx, by, dx, dy)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return (d1 == 0 && onSegment(cx, cy, dx, dy, ax, ay)) ||
		(d2 == 0 && onSegment(cx, cy, dx, dy, bx, by)) ||
		(d3 == 0 && onSegment(ax, ay, bx, by, cx, cy)) ||
		(d4 == 0 && onSegment(ax, ay, bx, by, dx, dy))
}

func cross(ox, oy, ax, ay, bx, by float64) float64 {
	return (ax-ox)*(by-oy) - (ay-oy)*(bx-ox)
}

func onSegment(ax, ay, bx, by, px, py float64) bool {
	return min(ax, bx) <= px && px <= max(ax, bx) &&
		min(ay, by) <= py && py <= max(ay, by)
}
