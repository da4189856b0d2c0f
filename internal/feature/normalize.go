package feature

import (
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/geomark/internal/geometry"
	"github.com/sells-group/geomark/internal/kml"
)

// DefaultMediaLinksKey is the reserved extended-data key whose values are
// media links rather than generic attributes.
const DefaultMediaLinksKey = "gx_media_links"

// Normalize converts one placemark node into a flat Feature. It returns nil
// when the node carries no geometry block or the geometry builder yields
// nothing usable; such placemarks are dropped, not errors. Geometry kind is
// decided by presence, Point before LineString before Polygon.
func Normalize(node kml.Node, mediaLinksKey string) *Feature {
	if mediaLinksKey == "" {
		mediaLinksKey = DefaultMediaLinksKey
	}

	pm := node.Placemark

	var (
		g         geom.T
		coordsRaw string
	)

	switch {
	case pm.Point != nil:
		coordsRaw = strings.TrimSpace(pm.Point.Coordinates)
		if p := geometry.BuildPoint(geometry.ParseCoordinates(coordsRaw)); p != nil {
			g = p
		}
	case pm.LineString != nil:
		coordsRaw = strings.TrimSpace(pm.LineString.Coordinates)
		if ls := geometry.BuildLineString(geometry.ParseCoordinates(coordsRaw)); ls != nil {
			g = ls
		}
	case pm.Polygon != nil:
		coordsRaw = strings.TrimSpace(pm.Polygon.OuterBoundary.LinearRing.Coordinates)
		outer := geometry.ParseCoordinates(coordsRaw)
		holes := make([][]geom.Coord, 0, len(pm.Polygon.InnerBoundary))
		for _, inner := range pm.Polygon.InnerBoundary {
			holes = append(holes, geometry.ParseCoordinates(inner.LinearRing.Coordinates))
		}
		if poly := geometry.BuildPolygon(outer, holes); poly != nil {
			g = poly
		}
	default:
		return nil
	}

	if g == nil {
		return nil
	}

	wkt, err := geometry.EncodeWKT(g)
	if err != nil {
		return nil
	}

	var styleID *string
	if token := strings.TrimPrefix(pm.StyleURL, "#"); token != "" {
		styleID = &token
	}

	var mediaLinks []string
	var extData []KVPair
	if pm.ExtendedData != nil {
		for _, d := range pm.ExtendedData.Data {
			if d.Name == mediaLinksKey {
				mediaLinks = append(mediaLinks, d.Value)
				continue
			}
			extData = append(extData, KVPair{Key: d.Name, Value: d.Value})
		}
	}

	return &Feature{
		Name:           strings.TrimSpace(pm.Name),
		Description:    strings.TrimSpace(pm.Description),
		StyleID:        styleID,
		FolderPath:     node.FolderPath,
		GeometryType:   geometry.TypeOf(g),
		WKT:            wkt,
		CoordinatesRaw: coordsRaw,
		MediaLinks:     mediaLinks,
		ExtendedData:   extData,
	}
}

// NormalizeStyle converts a KML style definition into a Style record.
func NormalizeStyle(s kml.Style) Style {
	out := Style{ID: s.ID}
	if s.IconStyle != nil {
		scale := s.IconStyle.Scale
		out.IconScale = &scale
		if s.IconStyle.Icon != nil {
			href := s.IconStyle.Icon.Href
			out.IconHref = &href
		}
	}
	if s.LabelStyle != nil {
		scale := s.LabelStyle.Scale
		out.LabelScale = &scale
	}
	return out
}
