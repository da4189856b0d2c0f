package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// ---------------------------------------------------------------------------
// BuildPoint / BuildLineString
// ---------------------------------------------------------------------------

func TestBuildPoint(t *testing.T) {
	p := BuildPoint(ParseCoordinates("-97.743,30.267,0 1,1"))
	require.NotNil(t, p)
	assert.Equal(t, []float64{-97.743, 30.267}, p.FlatCoords())
	assert.Equal(t, 4326, p.SRID())
}

func TestBuildPointEmpty(t *testing.T) {
	assert.Nil(t, BuildPoint(nil))
}

func TestBuildLineString(t *testing.T) {
	ls := BuildLineString(ParseCoordinates("0,0 1,1 2,0"))
	require.NotNil(t, ls)
	assert.Equal(t, 3, ls.NumCoords())
}

func TestBuildLineStringTooFewPoints(t *testing.T) {
	assert.Nil(t, BuildLineString(ParseCoordinates("5,5")))
	assert.Nil(t, BuildLineString(nil))
}

// ---------------------------------------------------------------------------
// BuildPolygon
// ---------------------------------------------------------------------------

func TestBuildPolygonClosesOpenRing(t *testing.T) {
	poly := BuildPolygon(ParseCoordinates("0,0 4,0 4,4 0,4"), nil)
	require.NotNil(t, poly)

	ring := poly.LinearRing(0)
	n := ring.NumCoords()
	assert.Equal(t, 5, n)
	assert.Equal(t, ring.Coord(0), ring.Coord(n-1))
}

func TestBuildPolygonAlreadyClosedRing(t *testing.T) {
	poly := BuildPolygon(ParseCoordinates("0,0 4,0 4,4 0,4 0,0"), nil)
	require.NotNil(t, poly)

	ring := poly.LinearRing(0)
	assert.Equal(t, 5, ring.NumCoords())
	assert.Equal(t, ring.Coord(0), ring.Coord(ring.NumCoords()-1))
}

func TestBuildPolygonRejectsDegenerateOuter(t *testing.T) {
	assert.Nil(t, BuildPolygon(ParseCoordinates("0,0 1,1"), nil))
	// Closed two-point ring: only two distinct coordinates.
	assert.Nil(t, BuildPolygon(ParseCoordinates("0,0 1,1 0,0"), nil))
	assert.Nil(t, BuildPolygon(nil, nil))
}

func TestBuildPolygonWithHoles(t *testing.T) {
	outer := ParseCoordinates("0,0 10,0 10,10 0,10")
	holes := [][]geom.Coord{
		ParseCoordinates("1,1 2,1 2,2 1,2"),
		ParseCoordinates("3,3 4,3"), // degenerate: skipped
		ParseCoordinates("5,5 6,5 6,6 5,6"),
	}

	poly := BuildPolygon(outer, holes)
	require.NotNil(t, poly)
	assert.Equal(t, 3, poly.NumLinearRings())

	for i := 0; i < poly.NumLinearRings(); i++ {
		ring := poly.LinearRing(i)
		assert.GreaterOrEqual(t, ring.NumCoords(), 4)
		assert.Equal(t, ring.Coord(0), ring.Coord(ring.NumCoords()-1))
	}
}

// ---------------------------------------------------------------------------
// Encoding round trips
// ---------------------------------------------------------------------------

func TestWKTEncoding(t *testing.T) {
	p := BuildPoint(ParseCoordinates("-97.743512,30.267891"))
	s, err := EncodeWKT(p)
	require.NoError(t, err)
	assert.Contains(t, s, "POINT")
	assert.Contains(t, s, "-97.743512")

	ls := BuildLineString(ParseCoordinates("0,0 1,1"))
	s, err = EncodeWKT(ls)
	require.NoError(t, err)
	assert.Contains(t, s, "LINESTRING")

	poly := BuildPolygon(ParseCoordinates("0,0 1,0 1,1"), nil)
	s, err = EncodeWKT(poly)
	require.NoError(t, err)
	assert.Contains(t, s, "POLYGON")
}

func TestGeoJSONRoundTrip(t *testing.T) {
	poly := BuildPolygon(ParseCoordinates("0,0 4,0 4,4 0,4"), [][]geom.Coord{
		ParseCoordinates("1,1 2,1 2,2 1,2"),
	})

	encoded, err := EncodeGeoJSON(poly)
	require.NoError(t, err)

	decoded, err := DecodeGeoJSON(encoded)
	require.NoError(t, err)

	back, ok := decoded.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, 2, back.NumLinearRings())
	assert.InDeltaSlice(t, poly.FlatCoords(), back.FlatCoords(), 1e-9)
}

func TestWKBRoundTrip(t *testing.T) {
	ls := BuildLineString(ParseCoordinates("-97.74,30.26 -97.75,30.27 -97.76,30.25"))

	data, err := EncodeWKB(ls)
	require.NoError(t, err)

	decoded, err := DecodeWKB(data)
	require.NoError(t, err)

	back, ok := decoded.(*geom.LineString)
	require.True(t, ok)
	assert.InDeltaSlice(t, ls.FlatCoords(), back.FlatCoords(), 1e-9)
}

func TestDecodeGeoJSONInvalid(t *testing.T) {
	_, err := DecodeGeoJSON("{not json")
	require.Error(t, err)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypePoint, TypeOf(BuildPoint(ParseCoordinates("1,1"))))
	assert.Equal(t, TypeLineString, TypeOf(BuildLineString(ParseCoordinates("0,0 1,1"))))
	assert.Equal(t, TypePolygon, TypeOf(BuildPolygon(ParseCoordinates("0,0 1,0 1,1"), nil)))
}
