package model

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"

	"scoutdb/fileio"
)

// Decoded entities are read-only snapshots. They are shared between the blob
// cache and all callers that hold a reference, so no field may be mutated
// after decode.

// Node is a point feature.
type Node struct {
	FileOffset FileOffset
	Type       TypeId
	Coord      GeoCoord
	Tags       osm.Tags
}

func (n *Node) ObjectFileRef() ObjectFileRef {
	return NewObjectFileRef(RefNode, n.FileOffset)
}

// SegmentAttributes carries the per-segment rendering and topology hints of
// ways and area rings.
type SegmentAttributes struct {
	IsBridge     bool
	IsTunnel     bool
	IsBuilding   bool
	StartIsJoint bool
	EndIsJoint   bool
	Width        uint8
	Layer        int8
}

// Way is an ordered polyline.
type Way struct {
	FileOffset FileOffset
	Type       TypeId
	Attrs      SegmentAttributes
	Nodes      []GeoCoord
}

func (w *Way) ObjectFileRef() ObjectFileRef {
	return NewObjectFileRef(RefWay, w.FileOffset)
}

func (w *Way) Bound() orb.Bound {
	return BoundOfCoords(w.Nodes)
}

// OuterRingId marks the single outer ring of an area. All other ring ids
// denote holes inside it.
const OuterRingId uint8 = 0

type Ring struct {
	Id    uint8
	Type  TypeId
	Attrs SegmentAttributes
	Nodes []GeoCoord
}

// Area is a polygon with one outer ring and zero or more inner rings.
type Area struct {
	FileOffset FileOffset
	Rings      []Ring
}

func (a *Area) ObjectFileRef() ObjectFileRef {
	return NewObjectFileRef(RefArea, a.FileOffset)
}

// OuterRing returns the ring with OuterRingId.
func (a *Area) OuterRing() (*Ring, error) {
	for i := range a.Rings {
		if a.Rings[i].Id == OuterRingId {
			return &a.Rings[i], nil
		}
	}
	return nil, errors.Errorf("area at offset %d has no outer ring", a.FileOffset)
}

// Type returns the type of the outer ring, or TypeIgnore when the area is
// malformed.
func (a *Area) Type() TypeId {
	for i := range a.Rings {
		if a.Rings[i].Id == OuterRingId {
			return a.Rings[i].Type
		}
	}
	return TypeIgnore
}

func (a *Area) Bound() orb.Bound {
	bound := orb.Bound{Min: orb.Point{180.0, 90.0}, Max: orb.Point{-180.0, -90.0}}
	for i := range a.Rings {
		if a.Rings[i].Id == OuterRingId {
			bound = bound.Union(BoundOfCoords(a.Rings[i].Nodes))
		}
	}
	return bound
}

const (
	attrBridge       = 1 << 0
	attrTunnel       = 1 << 1
	attrBuilding     = 1 << 2
	attrStartIsJoint = 1 << 3
	attrEndIsJoint   = 1 << 4
)

func readSegmentAttributes(scanner *fileio.Scanner) SegmentAttributes {
	var attrs SegmentAttributes

	flags := scanner.ReadU8()
	attrs.IsBridge = flags&attrBridge != 0
	attrs.IsTunnel = flags&attrTunnel != 0
	attrs.IsBuilding = flags&attrBuilding != 0
	attrs.StartIsJoint = flags&attrStartIsJoint != 0
	attrs.EndIsJoint = flags&attrEndIsJoint != 0
	attrs.Width = scanner.ReadU8()
	attrs.Layer = int8(scanner.ReadU8())

	return attrs
}

func writeSegmentAttributes(writer *fileio.Writer, attrs SegmentAttributes) error {
	var flags uint8
	if attrs.IsBridge {
		flags |= attrBridge
	}
	if attrs.IsTunnel {
		flags |= attrTunnel
	}
	if attrs.IsBuilding {
		flags |= attrBuilding
	}
	if attrs.StartIsJoint {
		flags |= attrStartIsJoint
	}
	if attrs.EndIsJoint {
		flags |= attrEndIsJoint
	}

	if err := writer.WriteU8(flags); err != nil {
		return err
	}
	if err := writer.WriteU8(attrs.Width); err != nil {
		return err
	}
	return writer.WriteU8(uint8(attrs.Layer))
}

func readCoords(scanner *fileio.Scanner) []GeoCoord {
	count := scanner.ReadVarUint()
	if scanner.HasError() {
		return nil
	}

	coords := make([]GeoCoord, 0, count)
	for i := uint64(0); i < count; i++ {
		lat, lon := scanner.ReadCoord()
		coords = append(coords, GeoCoord{Lat: lat, Lon: lon})
	}
	return coords
}

func writeCoords(writer *fileio.Writer, coords []GeoCoord) error {
	if err := writer.WriteVarUint(uint64(len(coords))); err != nil {
		return err
	}
	for _, coord := range coords {
		if err := writer.WriteCoord(coord.Lat, coord.Lon); err != nil {
			return err
		}
	}
	return nil
}

func readTags(scanner *fileio.Scanner) osm.Tags {
	count := scanner.ReadVarUint()
	if scanner.HasError() || count == 0 {
		return nil
	}

	tags := make(osm.Tags, 0, count)
	for i := uint64(0); i < count; i++ {
		key := scanner.ReadString()
		value := scanner.ReadString()
		tags = append(tags, osm.Tag{Key: key, Value: value})
	}
	return tags
}

func writeTags(writer *fileio.Writer, tags osm.Tags) error {
	if err := writer.WriteVarUint(uint64(len(tags))); err != nil {
		return err
	}
	for _, tag := range tags {
		if err := writer.WriteString(tag.Key); err != nil {
			return err
		}
		if err := writer.WriteString(tag.Value); err != nil {
			return err
		}
	}
	return nil
}

// ReadNode decodes the node record the scanner is positioned on.
func ReadNode(scanner *fileio.Scanner, offset FileOffset) (*Node, error) {
	node := &Node{FileOffset: offset}

	node.Type = TypeId(scanner.ReadVarUint())
	lat, lon := scanner.ReadCoord()
	node.Coord = GeoCoord{Lat: lat, Lon: lon}
	node.Tags = readTags(scanner)

	if scanner.HasError() {
		return nil, errors.Wrapf(scanner.Err(), "error decoding node at offset %d", offset)
	}
	return node, nil
}

func (n *Node) Write(writer *fileio.Writer) error {
	if err := writer.WriteVarUint(uint64(n.Type)); err != nil {
		return err
	}
	if err := writer.WriteCoord(n.Coord.Lat, n.Coord.Lon); err != nil {
		return err
	}
	return writeTags(writer, n.Tags)
}

// ReadWay decodes the way record the scanner is positioned on.
func ReadWay(scanner *fileio.Scanner, offset FileOffset) (*Way, error) {
	way := &Way{FileOffset: offset}

	way.Type = TypeId(scanner.ReadVarUint())
	way.Attrs = readSegmentAttributes(scanner)
	way.Nodes = readCoords(scanner)

	if scanner.HasError() {
		return nil, errors.Wrapf(scanner.Err(), "error decoding way at offset %d", offset)
	}
	return way, nil
}

func (w *Way) Write(writer *fileio.Writer) error {
	if err := writer.WriteVarUint(uint64(w.Type)); err != nil {
		return err
	}
	if err := writeSegmentAttributes(writer, w.Attrs); err != nil {
		return err
	}
	return writeCoords(writer, w.Nodes)
}

// ReadArea decodes the area record the scanner is positioned on.
func ReadArea(scanner *fileio.Scanner, offset FileOffset) (*Area, error) {
	area := &Area{FileOffset: offset}

	ringCount := scanner.ReadVarUint()
	for i := uint64(0); i < ringCount; i++ {
		var ring Ring
		ring.Id = uint8(scanner.ReadVarUint())
		ring.Type = TypeId(scanner.ReadVarUint())
		ring.Attrs = readSegmentAttributes(scanner)
		ring.Nodes = readCoords(scanner)
		area.Rings = append(area.Rings, ring)
	}

	if scanner.HasError() {
		return nil, errors.Wrapf(scanner.Err(), "error decoding area at offset %d", offset)
	}
	if _, err := area.OuterRing(); err != nil {
		return nil, errors.Wrap(fileio.ErrCorruptData, err.Error())
	}
	return area, nil
}

func (a *Area) Write(writer *fileio.Writer) error {
	if err := writer.WriteVarUint(uint64(len(a.Rings))); err != nil {
		return err
	}
	for _, ring := range a.Rings {
		if err := writer.WriteVarUint(uint64(ring.Id)); err != nil {
			return err
		}
		if err := writer.WriteVarUint(uint64(ring.Type)); err != nil {
			return err
		}
		if err := writeSegmentAttributes(writer, ring.Attrs); err != nil {
			return err
		}
		if err := writeCoords(writer, ring.Nodes); err != nil {
			return err
		}
	}
	return nil
}

// ReadObjectFileRef decodes a kind byte plus offset pair.
func ReadObjectFileRef(scanner *fileio.Scanner) ObjectFileRef {
	refType := RefType(scanner.ReadU8())
	offset := scanner.ReadVarUint()
	return NewObjectFileRef(refType, offset)
}

func WriteObjectFileRef(writer *fileio.Writer, ref ObjectFileRef) error {
	if err := writer.WriteU8(uint8(ref.Type)); err != nil {
		return err
	}
	return writer.WriteVarUint(ref.Offset)
}
