package builder

import (
	"github.com/paulmach/osm"

	"scoutdb/model"
	"scoutdb/spatial"
)

// Sample is a small complete dataset around a fictional Springfield inside
// Bavaria. It backs the CLI sample command and the end-to-end tests.
type Sample struct {
	Dataset *Dataset

	TypeAdmin       model.TypeId
	TypeCity        model.TypeId
	TypeResidential model.TypeId
	TypeBench       model.TypeId
	TypeBuilding    model.TypeId

	BenchNode    int
	TownHallNode int
	AliasNode    int
	HouseNode    int

	MainStreetWay int
	ElmStreetWay  int

	BavariaArea     int
	SpringfieldArea int
	BuildingArea    int
}

func square(minLat, minLon, maxLat, maxLon float64) []model.GeoCoord {
	return []model.GeoCoord{
		{Lat: minLat, Lon: minLon},
		{Lat: minLat, Lon: maxLon},
		{Lat: maxLat, Lon: maxLon},
		{Lat: maxLat, Lon: minLon},
		{Lat: minLat, Lon: minLon},
	}
}

func NewSample() *Sample {
	typeConfig := model.NewTypeConfig()

	sample := &Sample{}

	sample.TypeAdmin = typeConfig.RegisterType(model.TypeInfo{
		Name:      "boundary_administrative",
		Tag:       osm.Tag{Key: "boundary", Value: "administrative"},
		CanBeArea: true,
		Indexable: true,
	})
	sample.TypeCity = typeConfig.RegisterType(model.TypeInfo{
		Name:      "place_city",
		Tag:       osm.Tag{Key: "place", Value: "city"},
		CanBeNode: true,
		Indexable: true,
	})
	sample.TypeResidential = typeConfig.RegisterType(model.TypeInfo{
		Name:            "highway_residential",
		Tag:             osm.Tag{Key: "highway", Value: "residential"},
		CanBeWay:        true,
		CanRouteFoot:    true,
		CanRouteBicycle: true,
		CanRouteCar:     true,
		Indexable:       true,
	})
	sample.TypeBench = typeConfig.RegisterType(model.TypeInfo{
		Name:      "amenity_bench",
		Tag:       osm.Tag{Key: "amenity", Value: "bench"},
		CanBeNode: true,
		Indexable: true,
	})
	sample.TypeBuilding = typeConfig.RegisterType(model.TypeInfo{
		Name:      "building",
		Tag:       osm.Tag{Key: "building", Value: "yes"},
		CanBeNode: true,
		CanBeArea: true,
		Indexable: true,
	})

	dataset := NewDataset(typeConfig)
	dataset.MinLat, dataset.MinLon = 48.0, 11.0
	dataset.MaxLat, dataset.MaxLon = 48.5, 11.5

	sample.BenchNode = len(dataset.Nodes)
	dataset.Nodes = append(dataset.Nodes, NodeDef{
		Type:  sample.TypeBench,
		Coord: model.GeoCoord{Lat: 48.25, Lon: 11.25},
		Tags:  map[string]string{"amenity": "bench"},
	})

	sample.TownHallNode = len(dataset.Nodes)
	dataset.Nodes = append(dataset.Nodes, NodeDef{
		Type:  sample.TypeCity,
		Coord: model.GeoCoord{Lat: 48.252, Lon: 11.248},
		Tags:  map[string]string{"name": "Town Hall", "place": "city"},
	})

	sample.AliasNode = len(dataset.Nodes)
	dataset.Nodes = append(dataset.Nodes, NodeDef{
		Type:  sample.TypeCity,
		Coord: model.GeoCoord{Lat: 48.1, Lon: 11.1},
		Tags:  map[string]string{"name": "80331"},
	})

	sample.HouseNode = len(dataset.Nodes)
	dataset.Nodes = append(dataset.Nodes, NodeDef{
		Type:  sample.TypeBuilding,
		Coord: model.GeoCoord{Lat: 48.2505, Lon: 11.2525},
		Tags:  map[string]string{"addr:housenumber": "12"},
	})

	sample.MainStreetWay = len(dataset.Ways)
	dataset.Ways = append(dataset.Ways, WayDef{
		Type:  sample.TypeResidential,
		Attrs: model.SegmentAttributes{Width: 6},
		Nodes: []model.GeoCoord{
			{Lat: 48.25, Lon: 11.24},
			{Lat: 48.25, Lon: 11.25},
			{Lat: 48.25, Lon: 11.26},
		},
	})

	sample.ElmStreetWay = len(dataset.Ways)
	dataset.Ways = append(dataset.Ways, WayDef{
		Type:  sample.TypeResidential,
		Attrs: model.SegmentAttributes{Width: 5},
		Nodes: []model.GeoCoord{
			{Lat: 48.26, Lon: 11.24},
			{Lat: 48.26, Lon: 11.26},
		},
	})

	sample.BavariaArea = len(dataset.Areas)
	dataset.Areas = append(dataset.Areas, AreaDef{
		Rings: []RingDef{{
			Id:    model.OuterRingId,
			Type:  sample.TypeAdmin,
			Nodes: square(48.0, 11.0, 48.5, 11.5),
		}},
	})

	sample.SpringfieldArea = len(dataset.Areas)
	dataset.Areas = append(dataset.Areas, AreaDef{
		Rings: []RingDef{{
			Id:    model.OuterRingId,
			Type:  sample.TypeAdmin,
			Nodes: square(48.2, 11.2, 48.3, 11.3),
		}},
	})

	sample.BuildingArea = len(dataset.Areas)
	dataset.Areas = append(dataset.Areas, AreaDef{
		Rings: []RingDef{{
			Id:    model.OuterRingId,
			Type:  sample.TypeBuilding,
			Attrs: model.SegmentAttributes{IsBuilding: true},
			Nodes: square(48.2501, 11.2501, 48.2503, 11.2503),
		}},
	})

	dataset.Regions = []RegionDef{{
		Name:   "Bavaria",
		Object: ObjectRef{Kind: model.RefArea, Index: sample.BavariaArea},
		Aliases: []AliasDef{{
			Name: "80331",
			Node: ObjectRef{Kind: model.RefNode, Index: sample.AliasNode},
		}},
		Children: []RegionDef{{
			Name:   "Springfield",
			Object: ObjectRef{Kind: model.RefArea, Index: sample.SpringfieldArea},
			POIs: []POIDef{{
				Name:   "Town Hall",
				Object: ObjectRef{Kind: model.RefNode, Index: sample.TownHallNode},
			}},
			Locations: []LocationDef{
				{
					Name:    "Main Street",
					Objects: []ObjectRef{{Kind: model.RefWay, Index: sample.MainStreetWay}},
					Addresses: []AddressDef{
						{Name: "10", Object: ObjectRef{Kind: model.RefArea, Index: sample.BuildingArea}},
						{Name: "12", Object: ObjectRef{Kind: model.RefNode, Index: sample.HouseNode}},
					},
				},
				{
					Name:    "Elm Street",
					Objects: []ObjectRef{{Kind: model.RefWay, Index: sample.ElmStreetWay}},
				},
			},
		}},
	}}

	center := spatial.TileOfCoord(dataset.WaterLevel, 48.25, 11.25)
	dataset.Ground = []GroundDef{
		{Cell: center, State: spatial.GroundLand},
		{Cell: spatial.TileId{center.X() - 1, center.Y()}, State: spatial.GroundWater},
		{Cell: spatial.TileId{center.X(), center.Y() + 1}, State: spatial.GroundCoast, Coast: []model.GeoCoord{
			{Lat: 48.4, Lon: 11.2},
			{Lat: 48.42, Lon: 11.3},
		}},
	}

	dataset.LowZoomMaxLevel = 6
	dataset.LowZoomWays = map[model.TypeId][]WayDef{
		sample.TypeResidential: {{
			Type: sample.TypeResidential,
			Nodes: []model.GeoCoord{
				{Lat: 48.25, Lon: 11.24},
				{Lat: 48.25, Lon: 11.26},
			},
		}},
	}
	dataset.LowZoomAreas = map[model.TypeId][]AreaDef{
		sample.TypeAdmin: {{
			Rings: []RingDef{{
				Id:    model.OuterRingId,
				Type:  sample.TypeAdmin,
				Nodes: square(48.0, 11.0, 48.5, 11.5),
			}},
		}},
	}

	sample.Dataset = dataset
	return sample
}
