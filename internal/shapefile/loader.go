// Package shapefile converts ESRI shapefile records into placemark features
// so survey data can be imported next to KML documents.
package shapefile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/geomark/internal/feature"
	"github.com/sells-group/geomark/internal/geometry"
)

// Options configures a shapefile load.
type Options struct {
	// Folder is assigned as the single-element folder path of every record.
	// Empty means no folder.
	Folder string
	// NameField is the attribute used as the feature name, matched
	// case-insensitively. Records without it get a positional name.
	NameField string
}

// Load reads a shapefile and returns one feature per record with a usable
// geometry. Records with missing or unsupported shapes are skipped, not
// fatal; attributes become extended data in field order.
func Load(path string, opts Options) ([]feature.Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	nameIdx := -1
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
		if opts.NameField != "" && strings.EqualFold(names[i], opts.NameField) {
			nameIdx = i
		}
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var folderPath []string
	if opts.Folder != "" {
		folderPath = []string{opts.Folder}
	}

	var features []feature.Feature
	var skipped int
	for n := 0; reader.Next(); n++ {
		_, shape := reader.Shape()

		g := convertShape(shape)
		if g == nil {
			skipped++
			continue
		}

		f := feature.Feature{
			Name:         fmt.Sprintf("%s %d", base, n+1),
			FolderPath:   folderPath,
			GeometryType: geometry.TypeOf(g),
		}
		if f.WKT, err = geometry.EncodeWKT(g); err != nil {
			return nil, eris.Wrapf(err, "shapefile: record %d", n)
		}
		if f.Geometry, err = geometry.EncodeGeoJSON(g); err != nil {
			return nil, eris.Wrapf(err, "shapefile: record %d", n)
		}

		for i := range fields {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val == "" {
				continue
			}
			if i == nameIdx {
				f.Name = val
				continue
			}
			f.ExtendedData = append(f.ExtendedData, feature.KVPair{Key: names[i], Value: val})
		}

		features = append(features, f)
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: skipped records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return features, nil
}

// convertShape maps the supported shapefile geometries onto the same three
// types the KML path produces. Polylines keep only their first part;
// polygon parts after the first are treated as holes.
func convertShape(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(4326)
	case *shp.PolyLine:
		coords := partCoords(s.Points, s.Parts, s.NumParts, 0)
		if ls := geometry.BuildLineString(coords); ls != nil {
			return ls
		}
		return nil
	case *shp.Polygon:
		outer := partCoords(s.Points, s.Parts, s.NumParts, 0)
		var holes [][]geom.Coord
		for part := int32(1); part < s.NumParts; part++ {
			holes = append(holes, partCoords(s.Points, s.Parts, s.NumParts, part))
		}
		if poly := geometry.BuildPolygon(outer, holes); poly != nil {
			return poly
		}
		return nil
	default:
		return nil
	}
}

func partCoords(points []shp.Point, parts []int32, numParts, part int32) []geom.Coord {
	if part >= numParts {
		return nil
	}
	start := parts[part]
	end := int32(len(points))
	if part+1 < numParts {
		end = parts[part+1]
	}

	coords := make([]geom.Coord, 0, end-start)
	for _, p := range points[start:end] {
		coords = append(coords, geom.Coord{p.X, p.Y})
	}
	return coords
}
