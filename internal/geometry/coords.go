// Package geometry turns raw KML coordinate text into go-geom geometries and
// handles the WKT/GeoJSON/WKB encodings used at the store and API boundaries.
package geometry

import (
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
)

// ParseCoordinates parses whitespace-separated "lon,lat[,alt]" tuples into
// XY coordinates. Altitude is discarded. A token that does not yield two
// numeric components is skipped; one bad tuple never discards the rest.
// Longitude/latitude ranges are not validated.
func ParseCoordinates(text string) []geom.Coord {
	var coords []geom.Coord

	for _, token := range strings.Fields(strings.TrimSpace(text)) {
		parts := strings.Split(token, ",")
		if len(parts) < 2 {
			continue
		}

		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			continue
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}

		coords = append(coords, geom.Coord{lon, lat})
	}

	return coords
}

// flatten converts coordinates to the flat layout go-geom constructors take.
func flatten(coords []geom.Coord) []float64 {
	flat := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		flat = append(flat, c[0], c[1])
	}
	return flat
}
