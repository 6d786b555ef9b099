package spatial

import (
	"testing"

	"scoutdb/model"
	"scoutdb/util"
)

func squareRing() []model.GeoCoord {
	return []model.GeoCoord{
		{Lat: 48.0, Lon: 11.0},
		{Lat: 48.0, Lon: 11.5},
		{Lat: 48.5, Lon: 11.5},
		{Lat: 48.5, Lon: 11.0},
		{Lat: 48.0, Lon: 11.0},
	}
}

func TestCoordInRing(t *testing.T) {
	ring := squareRing()

	util.AssertTrue(t, CoordInRing(model.GeoCoord{Lat: 48.25, Lon: 11.25}, ring))
	util.AssertFalse(t, CoordInRing(model.GeoCoord{Lat: 49.0, Lon: 11.25}, ring))
	util.AssertFalse(t, CoordInRing(model.GeoCoord{Lat: 48.25, Lon: 10.0}, ring))

	// Degenerate rings contain nothing.
	util.AssertFalse(t, CoordInRing(model.GeoCoord{Lat: 48.25, Lon: 11.25}, ring[:2]))
}

func TestPolylinePartlyInRing_vertexInside(t *testing.T) {
	ring := squareRing()

	inside := []model.GeoCoord{
		{Lat: 48.2, Lon: 11.2},
		{Lat: 48.3, Lon: 11.3},
	}
	util.AssertTrue(t, PolylinePartlyInRing(inside, ring))
}

func TestPolylinePartlyInRing_crossingWithoutVertexInside(t *testing.T) {
	ring := squareRing()

	// Both endpoints outside, but the segment cuts through the square.
	crossing := []model.GeoCoord{
		{Lat: 48.25, Lon: 10.5},
		{Lat: 48.25, Lon: 12.0},
	}
	util.AssertTrue(t, PolylinePartlyInRing(crossing, ring))
}

func TestPolylinePartlyInRing_fullyOutside(t *testing.T) {
	ring := squareRing()

	outside := []model.GeoCoord{
		{Lat: 49.0, Lon: 10.0},
		{Lat: 49.5, Lon: 10.5},
	}
	util.AssertFalse(t, PolylinePartlyInRing(outside, ring))
}

func TestSegmentsIntersect(t *testing.T) {
	a1 := model.GeoCoord{Lat: 0, Lon: 0}.Point()
	a2 := model.GeoCoord{Lat: 2, Lon: 2}.Point()
	b1 := model.GeoCoord{Lat: 0, Lon: 2}.Point()
	b2 := model.GeoCoord{Lat: 2, Lon: 0}.Point()

	util.AssertTrue(t, segmentsIntersect(a1, a2, b1, b2))

	// Disjoint, non-touching segments.
	c1 := model.GeoCoord{Lat: 5, Lon: 0}.Point()
	c2 := model.GeoCoord{Lat: 5, Lon: 2}.Point()
	util.AssertFalse(t, segmentsIntersect(a1, a2, c1, c2))

	// Collinear, overlapping segments.
	d1 := model.GeoCoord{Lat: 1, Lon: 1}.Point()
	d2 := model.GeoCoord{Lat: 3, Lon: 3}.Point()
	util.AssertTrue(t, segmentsIntersect(a1, a2, d1, d2))
}
