package database

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"scoutdb/model"
)

// GetClosestRoutableNode finds the way or area node closest to the given
// position among all features routable by the vehicle within the given
// radius (meters). It returns an invalid reference when nothing routable is
// inside the radius. Nodes are not considered, they are not assumed to be
// routable at all.
func (d *Database) GetClosestRoutableNode(lat float64, lon float64, vehicle model.Vehicle, radius float64) (model.ObjectFileRef, int, error) {
	var object model.ObjectFileRef
	nodeIndex := 0

	if !d.isOpen {
		return object, 0, ErrNotOpen
	}

	center := orb.Point{lon, lat}
	topLeft := geo.PointAtBearingAndDistance(center, 315.0, radius)
	bottomRight := geo.PointAtBearingAndDistance(center, 135.0, radius)

	bbox := orb.Bound{
		Min: orb.Point{topLeft[0], bottomRight[1]},
		Max: orb.Point{bottomRight[0], topLeft[1]},
	}

	routableTypes := model.NewTypeSetOf(d.typeConfig, func(info model.TypeInfo) bool {
		return info.CanRoute(vehicle)
	})

	_, ways, areas, err := d.GetObjectsInBound(bbox, routableTypes)
	if err != nil {
		return object, 0, err
	}

	minDistance := math.MaxFloat64

	for _, area := range areas {
		outerRing, err := area.OuterRing()
		if err != nil {
			continue
		}

		for i, coord := range outerRing.Nodes {
			distance := math.Sqrt((coord.Lat-lat)*(coord.Lat-lat) + (coord.Lon-lon)*(coord.Lon-lon))
			if distance < minDistance {
				minDistance = distance
				object = area.ObjectFileRef()
				nodeIndex = i
			}
		}
	}

	for _, way := range ways {
		for i, coord := range way.Nodes {
			distance := math.Sqrt((coord.Lat-lat)*(coord.Lat-lat) + (coord.Lon-lon)*(coord.Lon-lon))
			if distance < minDistance {
				minDistance = distance
				object = way.ObjectFileRef()
				nodeIndex = i
			}
		}
	}

	return object, nodeIndex, nil
}
