package model

import (
	"path"
	"testing"

	"github.com/paulmach/osm"

	"scoutdb/fileio"
	"scoutdb/util"
)

func writeEntities(t *testing.T, write func(writer *fileio.Writer)) string {
	filename := path.Join(t.TempDir(), "entities.dat")

	writer, err := fileio.NewWriter(filename)
	util.AssertNil(t, err)
	write(writer)
	util.AssertNil(t, writer.Close())

	return filename
}

func TestNode_roundTrip(t *testing.T) {
	node := Node{
		Type:  7,
		Coord: GeoCoord{Lat: 48.137, Lon: 11.575},
		Tags: osm.Tags{
			{Key: "amenity", Value: "bench"},
			{Key: "name", Value: "Marienplatz"},
		},
	}

	filename := writeEntities(t, func(writer *fileio.Writer) {
		util.AssertNil(t, node.Write(writer))
	})

	scanner, err := fileio.NewScanner(filename, fileio.ModeLowMemRandom)
	util.AssertNil(t, err)
	defer scanner.Close()

	decoded, err := ReadNode(scanner, 0)
	util.AssertNil(t, err)

	util.AssertEqual(t, TypeId(7), decoded.Type)
	util.AssertApprox(t, 48.137, decoded.Coord.Lat, 1e-6)
	util.AssertApprox(t, 11.575, decoded.Coord.Lon, 1e-6)
	util.AssertEqual(t, node.Tags, decoded.Tags)
	util.AssertEqual(t, NewObjectFileRef(RefNode, 0), decoded.ObjectFileRef())
}

func TestWay_roundTripWithAttributes(t *testing.T) {
	way := Way{
		Type: 3,
		Attrs: SegmentAttributes{
			IsBridge:     true,
			IsTunnel:     false,
			IsBuilding:   false,
			StartIsJoint: true,
			EndIsJoint:   false,
			Width:        12,
			Layer:        -2,
		},
		Nodes: []GeoCoord{
			{Lat: 48.1, Lon: 11.1},
			{Lat: 48.2, Lon: 11.2},
			{Lat: 48.3, Lon: 11.15},
		},
	}

	filename := writeEntities(t, func(writer *fileio.Writer) {
		util.AssertNil(t, way.Write(writer))
	})

	scanner, err := fileio.NewScanner(filename, fileio.ModeLowMemRandom)
	util.AssertNil(t, err)
	defer scanner.Close()

	decoded, err := ReadWay(scanner, 0)
	util.AssertNil(t, err)

	util.AssertEqual(t, TypeId(3), decoded.Type)
	util.AssertEqual(t, way.Attrs, decoded.Attrs)
	util.AssertEqual(t, 3, len(decoded.Nodes))
	util.AssertApprox(t, 48.3, decoded.Nodes[2].Lat, 1e-6)
}

func TestArea_roundTripWithInnerRing(t *testing.T) {
	area := Area{
		Rings: []Ring{
			{
				Id:   OuterRingId,
				Type: 5,
				Nodes: []GeoCoord{
					{Lat: 48.0, Lon: 11.0},
					{Lat: 48.0, Lon: 11.5},
					{Lat: 48.5, Lon: 11.5},
					{Lat: 48.5, Lon: 11.0},
					{Lat: 48.0, Lon: 11.0},
				},
			},
			{
				Id:   1,
				Type: 5,
				Nodes: []GeoCoord{
					{Lat: 48.2, Lon: 11.2},
					{Lat: 48.2, Lon: 11.3},
					{Lat: 48.3, Lon: 11.3},
					{Lat: 48.2, Lon: 11.2},
				},
			},
		},
	}

	filename := writeEntities(t, func(writer *fileio.Writer) {
		util.AssertNil(t, area.Write(writer))
	})

	scanner, err := fileio.NewScanner(filename, fileio.ModeLowMemRandom)
	util.AssertNil(t, err)
	defer scanner.Close()

	decoded, err := ReadArea(scanner, 0)
	util.AssertNil(t, err)

	util.AssertEqual(t, 2, len(decoded.Rings))
	util.AssertEqual(t, TypeId(5), decoded.Type())

	outerRing, err := decoded.OuterRing()
	util.AssertNil(t, err)
	util.AssertEqual(t, 5, len(outerRing.Nodes))
}

func TestArea_missingOuterRingIsCorrupt(t *testing.T) {
	area := Area{
		Rings: []Ring{{
			Id:   1,
			Type: 5,
			Nodes: []GeoCoord{
				{Lat: 48.2, Lon: 11.2},
				{Lat: 48.2, Lon: 11.3},
				{Lat: 48.3, Lon: 11.3},
			},
		}},
	}

	filename := writeEntities(t, func(writer *fileio.Writer) {
		util.AssertNil(t, area.Write(writer))
	})

	scanner, err := fileio.NewScanner(filename, fileio.ModeLowMemRandom)
	util.AssertNil(t, err)
	defer scanner.Close()

	_, err = ReadArea(scanner, 0)
	util.AssertNotNil(t, err)
}

func TestObjectFileRef_roundTrip(t *testing.T) {
	refs := []ObjectFileRef{
		NewObjectFileRef(RefNode, 0),
		NewObjectFileRef(RefWay, 12345),
		NewObjectFileRef(RefArea, 1<<40),
	}

	filename := writeEntities(t, func(writer *fileio.Writer) {
		for _, ref := range refs {
			util.AssertNil(t, WriteObjectFileRef(writer, ref))
		}
	})

	scanner, err := fileio.NewScanner(filename, fileio.ModeLowMemRandom)
	util.AssertNil(t, err)
	defer scanner.Close()

	for _, expected := range refs {
		util.AssertEqual(t, expected, ReadObjectFileRef(scanner))
	}
}

func TestConsecutiveRecordsHaveMonotonicOffsets(t *testing.T) {
	nodes := []Node{
		{Type: 1, Coord: GeoCoord{Lat: 48.1, Lon: 11.1}},
		{Type: 2, Coord: GeoCoord{Lat: 48.2, Lon: 11.2}, Tags: osm.Tags{{Key: "name", Value: "x"}}},
		{Type: 3, Coord: GeoCoord{Lat: 48.3, Lon: 11.3}},
	}

	var offsets []int64
	filename := writeEntities(t, func(writer *fileio.Writer) {
		for _, node := range nodes {
			offsets = append(offsets, writer.Pos())
			util.AssertNil(t, node.Write(writer))
		}
	})

	scanner, err := fileio.NewScanner(filename, fileio.ModeLowMemRandom)
	util.AssertNil(t, err)
	defer scanner.Close()

	for i, offset := range offsets {
		if i > 0 {
			util.AssertTrue(t, offset > offsets[i-1])
		}

		scanner.SetPos(offset)
		decoded, err := ReadNode(scanner, FileOffset(offset))
		util.AssertNil(t, err)
		util.AssertEqual(t, nodes[i].Type, decoded.Type)
	}
}
