// Package feature defines the normalized placemark records persisted by the
// store and the derived views served by the API.
package feature

import "time"

// KVPair is one extended-data attribute. Keys are not unique; order is the
// document order.
type KVPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Feature is a flattened placemark record. ID and CreatedAt are assigned by
// the store on insert.
type Feature struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	StyleID        *string   `json:"style_id,omitempty"`
	FolderPath     []string  `json:"folder_path"`
	GeometryType   string    `json:"geometry_type"`
	Geometry       string    `json:"geometry"` // GeoJSON at the API boundary
	WKT            string    `json:"-"`        // write-side encoding
	CoordinatesRaw string    `json:"coordinates_raw,omitempty"`
	MediaLinks     []string  `json:"media_links,omitempty"`
	ExtendedData   []KVPair  `json:"extended_data,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Style is a shared style definition keyed by its document-scoped token.
type Style struct {
	ID         string   `json:"id"`
	IconHref   *string  `json:"icon_href,omitempty"`
	IconScale  *float64 `json:"icon_scale,omitempty"`
	LabelScale *float64 `json:"label_scale,omitempty"`
}

// Location is a point position on a timeline event.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TimelineEvent is derived from a feature whose name starts with a
// date-like prefix. Never persisted; recomputed per query.
type TimelineEvent struct {
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Location    *Location  `json:"location,omitempty"`
	MediaLinks  []string   `json:"media_links,omitempty"`
	PlacemarkID int        `json:"placemark_id"`
	FolderPath  []string   `json:"folder_path"`
}

// BBox is an axis-aligned bounding box in lon/lat space.
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Stats summarizes the persisted data set.
type Stats struct {
	TotalPlacemarks int            `json:"total_placemarks"`
	TotalStyles     int            `json:"total_styles"`
	GeometryTypes   map[string]int `json:"geometry_types"`
	TopFolders      map[string]int `json:"top_folders"`
}
