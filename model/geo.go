package model

import (
	"math"

	"github.com/paulmach/orb"
)

// GeoCoord is one geographic position in degrees. Latitude is positive north,
// longitude positive east.
type GeoCoord struct {
	Lat float64
	Lon float64
}

func NewGeoCoord(lat float64, lon float64) GeoCoord {
	return GeoCoord{Lat: lat, Lon: lon}
}

// Point converts the coordinate into the lon/lat order used by orb.
func (c GeoCoord) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// RingOf converts a closed coordinate sequence into an orb ring.
func RingOf(coords []GeoCoord) orb.Ring {
	ring := make(orb.Ring, 0, len(coords))
	for _, coord := range coords {
		ring = append(ring, coord.Point())
	}
	return ring
}

// BoundOfCoords returns the bounding box of the given coordinates.
func BoundOfCoords(coords []GeoCoord) orb.Bound {
	bound := orb.Bound{Min: orb.Point{180.0, 90.0}, Max: orb.Point{-180.0, -90.0}}
	for _, coord := range coords {
		bound = bound.Extend(coord.Point())
	}
	return bound
}

// Magnification describes the zoom of a map view. The level is the power of
// two of the magnification value, i.e. level 0 shows the whole world in one
// tile and each level doubles the detail.
type Magnification struct {
	value float64
}

func NewMagnification(value float64) Magnification {
	return Magnification{value: value}
}

func MagnificationForLevel(level uint32) Magnification {
	return Magnification{value: math.Pow(2, float64(level))}
}

func (m Magnification) Value() float64 {
	return m.value
}

func (m Magnification) Level() uint32 {
	if m.value < 1.0 {
		return 0
	}
	return uint32(math.Log2(m.value))
}
