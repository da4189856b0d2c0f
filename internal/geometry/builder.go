package geometry

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"
)

// Geometry type names as stored and served.
const (
	TypePoint      = "Point"
	TypeLineString = "LineString"
	TypePolygon    = "Polygon"
)

// BuildPoint builds a point from the first parsed coordinate. Returns nil
// when no coordinate is available.
func BuildPoint(coords []geom.Coord) *geom.Point {
	if len(coords) == 0 {
		return nil
	}
	return geom.NewPointFlat(geom.XY, []float64{coords[0][0], coords[0][1]}).SetSRID(4326)
}

// BuildLineString builds a linestring from the parsed coordinates. Returns
// nil when fewer than two coordinates are available.
func BuildLineString(coords []geom.Coord) *geom.LineString {
	if len(coords) < 2 {
		return nil
	}
	return geom.NewLineStringFlat(geom.XY, flatten(coords)).SetSRID(4326)
}

// BuildPolygon builds a polygon from an outer ring and optional holes. The
// outer ring must have at least three distinct coordinates before closing or
// the whole polygon is rejected. Holes are validated independently; a bad
// hole is skipped and the polygon is still built from the outer ring and the
// remaining holes.
func BuildPolygon(outer []geom.Coord, holes [][]geom.Coord) *geom.Polygon {
	outerRing := closeRing(outer)
	if outerRing == nil {
		return nil
	}

	poly := geom.NewPolygon(geom.XY).SetSRID(4326)
	if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flatten(outerRing))); err != nil {
		zap.L().Debug("geometry: rejecting malformed outer ring", zap.Error(err))
		return nil
	}

	for i, hole := range holes {
		holeRing := closeRing(hole)
		if holeRing == nil {
			continue
		}
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flatten(holeRing))); err != nil {
			zap.L().Debug("geometry: skipping malformed hole", zap.Int("hole", i), zap.Error(err))
			continue
		}
	}

	return poly
}

// closeRing closes an open ring by appending its first coordinate. Rings
// with fewer than three distinct coordinates are rejected (nil). The result
// always satisfies ring[0] == ring[last] with at least four points.
func closeRing(coords []geom.Coord) []geom.Coord {
	open := coords
	if len(open) > 1 && coordEqual(open[0], open[len(open)-1]) {
		open = open[:len(open)-1]
	}
	if len(open) < 3 {
		return nil
	}

	closed := make([]geom.Coord, 0, len(open)+1)
	closed = append(closed, open...)
	closed = append(closed, open[0])
	return closed
}

func coordEqual(a, b geom.Coord) bool {
	return a[0] == b[0] && a[1] == b[1]
}

// TypeOf returns the geometry type name for a built geometry.
func TypeOf(g geom.T) string {
	switch g.(type) {
	case *geom.Point:
		return TypePoint
	case *geom.LineString:
		return TypeLineString
	case *geom.Polygon:
		return TypePolygon
	default:
		return ""
	}
}

// EncodeWKT serializes a geometry to WKT text.
func EncodeWKT(g geom.T) (string, error) {
	s, err := wkt.Marshal(g)
	if err != nil {
		return "", eris.Wrap(err, "geometry: encode WKT")
	}
	return s, nil
}

// DecodeWKT parses WKT text back into a geometry.
func DecodeWKT(s string) (geom.T, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: decode WKT")
	}
	return g, nil
}

// EncodeGeoJSON serializes a geometry to GeoJSON text.
func EncodeGeoJSON(g geom.T) (string, error) {
	data, err := geojson.Marshal(g)
	if err != nil {
		return "", eris.Wrap(err, "geometry: encode GeoJSON")
	}
	return string(data), nil
}

// DecodeGeoJSON parses GeoJSON text back into a geometry.
func DecodeGeoJSON(s string) (geom.T, error) {
	var g geom.T
	if err := geojson.Unmarshal([]byte(s), &g); err != nil {
		return nil, eris.Wrap(err, "geometry: decode GeoJSON")
	}
	return g, nil
}

// EncodeWKB serializes a geometry to little-endian WKB for blob storage.
func EncodeWKB(g geom.T) ([]byte, error) {
	data, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: encode WKB")
	}
	return data, nil
}

// DecodeWKB parses WKB bytes back into a geometry.
func DecodeWKB(data []byte) (geom.T, error) {
	g, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: decode WKB")
	}
	return g, nil
}
