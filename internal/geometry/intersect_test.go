package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"
)

func TestBBoxIntersectsPoint(t *testing.T) {
	inside := BuildPoint(ParseCoordinates("5,5"))
	outside := BuildPoint(ParseCoordinates("20,20"))

	assert.True(t, BBoxIntersects(inside, 0, 0, 10, 10))
	assert.False(t, BBoxIntersects(outside, 0, 0, 10, 10))
}

func TestBBoxIntersectsPointOnEdge(t *testing.T) {
	edge := BuildPoint(ParseCoordinates("10,5"))
	assert.True(t, BBoxIntersects(edge, 0, 0, 10, 10))
}

func TestBBoxIntersectsLineStringCrossing(t *testing.T) {
	// Both endpoints outside the box, segment passes through it.
	crossing := BuildLineString(ParseCoordinates("-5,5 15,5"))
	assert.True(t, BBoxIntersects(crossing, 0, 0, 10, 10))
}

func TestBBoxIntersectsLineStringOutside(t *testing.T) {
	// Bounds overlap the box but the segment passes beside it.
	miss := BuildLineString(ParseCoordinates("-5,8 8,25"))
	assert.False(t, BBoxIntersects(miss, 0, 0, 10, 10))
}

func TestBBoxIntersectsLineStringVertexInside(t *testing.T) {
	ls := BuildLineString(ParseCoordinates("5,5 50,50"))
	assert.True(t, BBoxIntersects(ls, 0, 0, 10, 10))
}

func TestBBoxIntersectsPolygonBoundaryCrossing(t *testing.T) {
	poly := BuildPolygon(ParseCoordinates("5,5 15,5 15,15 5,15"), nil)
	assert.True(t, BBoxIntersects(poly, 0, 0, 10, 10))
}

func TestBBoxIntersectsBoxInsidePolygon(t *testing.T) {
	big := BuildPolygon(ParseCoordinates("-100,-100 100,-100 100,100 -100,100"), nil)
	assert.True(t, BBoxIntersects(big, -1, -1, 1, 1))
}

func TestBBoxIntersectsBoxInsideHole(t *testing.T) {
	donut := BuildPolygon(
		ParseCoordinates("-100,-100 100,-100 100,100 -100,100"),
		[][]geom.Coord{ParseCoordinates("-50,-50 50,-50 50,50 -50,50")},
	)
	// Box entirely within the hole does not touch the polygon.
	assert.False(t, BBoxIntersects(donut, -10, -10, 10, 10))
	// Box spanning the hole edge does.
	assert.True(t, BBoxIntersects(donut, -60, -10, -40, 10))
}

func TestBBoxIntersectsPolygonInsideBox(t *testing.T) {
	small := BuildPolygon(ParseCoordinates("1,1 2,1 2,2 1,2"), nil)
	assert.True(t, BBoxIntersects(small, 0, 0, 10, 10))
}

func TestBBoxIntersectsDisjointBounds(t *testing.T) {
	poly := BuildPolygon(ParseCoordinates("20,20 30,20 30,30 20,30"), nil)
	assert.False(t, BBoxIntersects(poly, 0, 0, 10, 10))
}
