package spatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"scoutdb/model"
)

// CoordInRing reports whether the position lies inside the (closed) polygon
// spanned by the ring nodes. Ray casting via the planar package.
func CoordInRing(coord model.GeoCoord, ring []model.GeoCoord) bool {
	if len(ring) < 3 {
		return false
	}
	return planar.RingContains(model.RingOf(ring), coord.Point())
}

// PolylinePartlyInRing reports whether the polyline lies at least partly
// inside the polygon spanned by the ring nodes: either a vertex is contained
// or a polyline segment crosses a ring segment.
func PolylinePartlyInRing(coords []model.GeoCoord, ring []model.GeoCoord) bool {
	if len(ring) < 3 || len(coords) == 0 {
		return false
	}

	orbRing := model.RingOf(ring)
	for _, coord := range coords {
		if planar.RingContains(orbRing, coord.Point()) {
			return true
		}
	}

	for i := 0; i+1 < len(coords); i++ {
		a1 := coords[i].Point()
		a2 := coords[i+1].Point()

		for j := 0; j < len(ring); j++ {
			b1 := ring[j].Point()
			b2 := ring[(j+1)%len(ring)].Point()

			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}

	return false
}

// segmentsIntersect uses the orientation test. Collinear overlaps count as
// intersection.
func segmentsIntersect(a1, a2, b1, b2 orb.Point) bool {
	d1 := orientation(b1, b2, a1)
	d2 := orientation(b1, b2, a2)
	d3 := orientation(a1, a2, b1)
	d4 := orientation(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	if d1 == 0 && onSegment(b1, b2, a1) {
		return true
	}
	if d2 == 0 && onSegment(b1, b2, a2) {
		return true
	}
	if d3 == 0 && onSegment(a1, a2, b1) {
		return true
	}
	if d4 == 0 && onSegment(a1, a2, b2) {
		return true
	}

	return false
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}
