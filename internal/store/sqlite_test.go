package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geomark/internal/feature"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleStyles() []feature.Style {
	return []feature.Style{
		{ID: "track-red", IconHref: strPtr("http://example.com/red.png"), IconScale: floatPtr(1.2)},
	}
}

func sampleFeatures() []feature.Feature {
	return []feature.Feature{
		{
			Name:           "Trailhead",
			Description:    "start here",
			StyleID:        strPtr("track-red"),
			FolderPath:     []string{"Hikes"},
			GeometryType:   "Point",
			WKT:            "POINT (-97.74 30.27)",
			CoordinatesRaw: "-97.74,30.27",
			MediaLinks:     []string{"http://example.com/a.jpg"},
			ExtendedData:   []feature.KVPair{{Key: "surface", Value: "gravel"}, {Key: "surface", Value: "dirt"}},
		},
		{
			Name:         "Ridge line",
			FolderPath:   []string{"Hikes", "Long"},
			GeometryType: "LineString",
			WKT:          "LINESTRING (-97.70 30.29, -97.69 30.30)",
		},
		{
			Name:         "Preserve",
			FolderPath:   []string{"Parks"},
			GeometryType: "Polygon",
			WKT:          "POLYGON ((-97.8 30.2, -97.7 30.2, -97.7 30.3, -97.8 30.3, -97.8 30.2))",
		},
	}
}

func TestSQLiteImportAndList(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Import(ctx, sampleStyles(), sampleFeatures(), false))

	features, err := s.List(ctx, 10, 0, "")
	require.NoError(t, err)
	require.Len(t, features, 3)

	// insertion order
	assert.Equal(t, "Trailhead", features[0].Name)
	assert.Equal(t, "Ridge line", features[1].Name)
	assert.Equal(t, "Preserve", features[2].Name)

	require.NotNil(t, features[0].StyleID)
	assert.Equal(t, "track-red", *features[0].StyleID)
	assert.Nil(t, features[1].StyleID)
	assert.Equal(t, []string{"Hikes", "Long"}, features[1].FolderPath)
	assert.Contains(t, features[0].Geometry, `"Point"`)
	assert.Equal(t, []string{"http://example.com/a.jpg"}, features[0].MediaLinks)
}

func TestSQLiteListPaginationAndFolderFilter(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Import(ctx, nil, sampleFeatures(), false))

	page, err := s.List(ctx, 2, 0, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Trailhead", page[0].Name)

	page, err = s.List(ctx, 2, 2, "")
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Preserve", page[0].Name)

	// folder filter matches any depth of the path
	hikes, err := s.List(ctx, 10, 0, "Hikes")
	require.NoError(t, err)
	assert.Len(t, hikes, 2)

	long, err := s.List(ctx, 10, 0, "Long")
	require.NoError(t, err)
	require.Len(t, long, 1)
	assert.Equal(t, "Ridge line", long[0].Name)

	none, err := s.List(ctx, 10, 0, "Nope")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteGet(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Import(ctx, nil, sampleFeatures(), false))

	f, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "Trailhead", f.Name)
	assert.Equal(t, "start here", f.Description)
	require.Len(t, f.ExtendedData, 2)
	assert.Equal(t, "surface", f.ExtendedData[0].Key)
	assert.Equal(t, "gravel", f.ExtendedData[0].Value)
	assert.Equal(t, "dirt", f.ExtendedData[1].Value)

	missing, err := s.Get(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteDanglingStyleNulled(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	features := []feature.Feature{{
		Name:         "Orphan",
		StyleID:      strPtr("never-defined"),
		GeometryType: "Point",
		WKT:          "POINT (0 0)",
	}}
	require.NoError(t, s.Import(ctx, nil, features, false))

	f, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Nil(t, f.StyleID)
}

func TestSQLiteQueryBBox(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Import(ctx, nil, sampleFeatures(), false))

	// box around the trailhead point only
	hits, err := s.QueryBBox(ctx, feature.BBox{MinLon: -97.75, MinLat: 30.26, MaxLon: -97.735, MaxLat: 30.275}, 100)
	require.NoError(t, err)
	require.Len(t, hits, 2) // point + polygon both intersect this box
	assert.Equal(t, "Trailhead", hits[0].Name)

	// box far away
	hits, err = s.QueryBBox(ctx, feature.BBox{MinLon: 10, MinLat: 10, MaxLon: 11, MaxLat: 11}, 100)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// limit caps results
	hits, err = s.QueryBBox(ctx, feature.BBox{MinLon: -98, MinLat: 30, MaxLon: -97, MaxLat: 31}, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	// limit <= 0 means no cap
	hits, err = s.QueryBBox(ctx, feature.BBox{MinLon: -98, MinLat: 30, MaxLon: -97, MaxLat: 31}, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestSQLiteTruncateSemantics(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Import(ctx, sampleStyles(), sampleFeatures(), false))
	require.NoError(t, s.Import(ctx, sampleStyles(), sampleFeatures(), false))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalPlacemarks)
	assert.Equal(t, 1, stats.TotalStyles)

	// truncate clears placemarks but never styles
	require.NoError(t, s.Import(ctx, nil, sampleFeatures(), true))
	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalPlacemarks)
	assert.Equal(t, 1, stats.TotalStyles)

	// extended data of removed placemarks is gone with them
	var orphaned int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM placemark_data WHERE placemark_id NOT IN (SELECT id FROM placemarks)`,
	).Scan(&orphaned))
	assert.Zero(t, orphaned)
}

func TestSQLiteImportAtomicity(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	features := []feature.Feature{
		{Name: "ok", GeometryType: "Point", WKT: "POINT (0 0)"},
		{Name: "bad", GeometryType: "Point", WKT: "POINT (broken"},
	}
	err := s.Import(ctx, nil, features, false)
	require.Error(t, err)

	// nothing from the failed run is visible
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalPlacemarks)
}

func TestSQLiteStyleUpsert(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Import(ctx, sampleStyles(), nil, false))

	updated := []feature.Style{
		{ID: "track-red", IconHref: strPtr("http://example.com/new.png")},
	}
	require.NoError(t, s.Import(ctx, updated, nil, false))

	var href string
	require.NoError(t, s.db.QueryRow(`SELECT icon_href FROM styles WHERE id = ?`, "track-red").Scan(&href))
	assert.Equal(t, "http://example.com/new.png", href)
}

func TestSQLiteTimeline(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	features := []feature.Feature{
		{Name: "Plain placemark", GeometryType: "Point", WKT: "POINT (1 1)"},
		{Name: "9/30/2017  08:00:00 AM - Second", GeometryType: "Point", WKT: "POINT (-97.73 30.28)"},
		{Name: "10/1/2017  09:41:56 PM - First", GeometryType: "Point", WKT: "POINT (-97.74 30.27)"},
	}
	require.NoError(t, s.Import(ctx, nil, features, false))

	events, err := s.Timeline(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// lexicographic name order, so 10/... sorts before 9/...
	assert.Equal(t, "10/1/2017  09:41:56 PM - First", events[0].Name)
	assert.Equal(t, "9/30/2017  08:00:00 AM - Second", events[1].Name)

	require.NotNil(t, events[0].Timestamp)
	assert.Equal(t, 2017, events[0].Timestamp.Year())
	require.NotNil(t, events[0].Location)
	assert.InDelta(t, -97.74, events[0].Location.Lon, 1e-9)
}

func TestSQLiteListFolders(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Import(ctx, nil, sampleFeatures(), false))

	folders, err := s.ListFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hikes", "Long", "Parks"}, folders)
}

func TestSQLiteStats(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.Import(ctx, sampleStyles(), sampleFeatures(), false))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalPlacemarks)
	assert.Equal(t, 1, stats.TotalStyles)
	assert.Equal(t, 1, stats.GeometryTypes["Point"])
	assert.Equal(t, 1, stats.GeometryTypes["LineString"])
	assert.Equal(t, 1, stats.GeometryTypes["Polygon"])
	assert.Equal(t, 2, stats.TopFolders["Hikes"])
	assert.Equal(t, 1, stats.TopFolders["Parks"])
}
