package feature

import (
	"regexp"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/geomark/internal/geometry"
)

// datePrefix matches names that look like they start with an M/D/YYYY date.
// This is the candidate filter for the timeline view.
var datePrefix = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}`)

// nameTimestamp extracts the full timestamp prefix structurally. Field
// widths vary (10/1 vs 1/1, 09 vs 9), so the prefix cannot be sliced at a
// fixed layout length; the second separator may be one or two spaces in
// names exported with padded time columns.
var nameTimestamp = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}\s{1,2}\d{1,2}:\d{2}:\d{2} [AP]M`)

// timestampLayouts are tried in order against the extracted prefix; the
// first successful parse wins. The non-padded fields also accept padded
// values, so only the spacing variants are needed.
var timestampLayouts = []string{
	"1/2/2006  3:04:05 PM",
	"1/2/2006 3:04:05 PM",
}

// HasDatePrefix reports whether a feature name qualifies for the timeline.
func HasDatePrefix(name string) bool {
	return datePrefix.MatchString(name)
}

// ParseNameTimestamp extracts an embedded timestamp from a feature name.
// Returns nil when no layout matches; the caller still emits the event.
func ParseNameTimestamp(name string) *time.Time {
	prefix := nameTimestamp.FindString(name)
	if prefix == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, prefix); err == nil {
			return &ts
		}
	}
	return nil
}

// PointLocation extracts a lat/lon location from Point GeoJSON. Returns nil
// for non-point or malformed geometry text.
func PointLocation(geoJSON string) *Location {
	g, err := geometry.DecodeGeoJSON(geoJSON)
	if err != nil {
		return nil
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return nil
	}
	coords := p.FlatCoords()
	if len(coords) < 2 {
		return nil
	}
	return &Location{Lon: coords[0], Lat: coords[1]}
}

// DeriveEvent builds the timeline event for one qualifying feature. Location
// is populated only when the stored geometry is a Point.
func DeriveEvent(f Feature) TimelineEvent {
	ev := TimelineEvent{
		Timestamp:   ParseNameTimestamp(f.Name),
		Name:        f.Name,
		Description: f.Description,
		MediaLinks:  f.MediaLinks,
		PlacemarkID: f.ID,
		FolderPath:  f.FolderPath,
	}
	if f.GeometryType == geometry.TypePoint {
		ev.Location = PointLocation(f.Geometry)
	}
	return ev
}
