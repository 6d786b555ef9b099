// Package builder materializes an in-memory dataset description into the
// on-disk format the database reads. It exists for dataset tooling and test
// fixtures; the query path never writes.
package builder

import (
	"encoding/binary"
	"path"
	"sort"

	"github.com/paulmach/osm"
	"github.com/pkg/errors"

	"scoutdb/fileio"
	"scoutdb/locidx"
	"scoutdb/model"
	"scoutdb/spatial"
)

func osmTag(key string, value string) osm.Tag {
	return osm.Tag{Key: key, Value: value}
}

// ObjectRef references an entity of the dataset description by kind and
// definition index. Offsets only exist after writing.
type ObjectRef struct {
	Kind  model.RefType
	Index int
}

type NodeDef struct {
	Type  model.TypeId
	Coord model.GeoCoord
	Tags  map[string]string
}

type WayDef struct {
	Type  model.TypeId
	Attrs model.SegmentAttributes
	Nodes []model.GeoCoord
}

type RingDef struct {
	Id    uint8
	Type  model.TypeId
	Attrs model.SegmentAttributes
	Nodes []model.GeoCoord
}

type AreaDef struct {
	Rings []RingDef
}

type AliasDef struct {
	Name string
	Node ObjectRef
}

type POIDef struct {
	Name   string
	Object ObjectRef
}

type AddressDef struct {
	Name   string
	Object ObjectRef
}

type LocationDef struct {
	Name      string
	Objects   []ObjectRef
	Addresses []AddressDef
}

type RegionDef struct {
	Name      string
	Object    ObjectRef
	Aliases   []AliasDef
	POIs      []POIDef
	Locations []LocationDef
	Children  []RegionDef
}

type GroundDef struct {
	Cell  spatial.TileId
	State spatial.GroundState
	Coast []model.GeoCoord
}

// Dataset describes one complete dataset. Build writes it below a directory.
type Dataset struct {
	TypeConfig *model.TypeConfig

	MinLat, MinLon float64
	MaxLat, MaxLon float64

	Nodes []NodeDef
	Ways  []WayDef
	Areas []AreaDef

	Regions []RegionDef

	NodeIndexLevel    uint32
	WayIndexLevel     uint32
	AreaIndexMaxLevel uint32

	WaterLevel uint32
	Ground     []GroundDef

	LowZoomMaxLevel uint32
	LowZoomWays     map[model.TypeId][]WayDef
	LowZoomAreas    map[model.TypeId][]AreaDef
}

// NewDataset returns a dataset with the default index granularities.
func NewDataset(typeConfig *model.TypeConfig) *Dataset {
	return &Dataset{
		TypeConfig:        typeConfig,
		NodeIndexLevel:    14,
		WayIndexLevel:     13,
		AreaIndexMaxLevel: 17,
		WaterLevel:        10,
	}
}

// BuiltRefs maps definition indices to the file offsets the build assigned.
type BuiltRefs struct {
	NodeOffsets []model.FileOffset
	WayOffsets  []model.FileOffset
	AreaOffsets []model.FileOffset
}

func (b *BuiltRefs) resolve(ref ObjectRef) (model.ObjectFileRef, error) {
	var offsets []model.FileOffset

	switch ref.Kind {
	case model.RefNode:
		offsets = b.NodeOffsets
	case model.RefWay:
		offsets = b.WayOffsets
	case model.RefArea:
		offsets = b.AreaOffsets
	default:
		return model.ObjectFileRef{}, errors.Errorf("cannot resolve reference of kind %s", ref.Kind)
	}

	if ref.Index < 0 || ref.Index >= len(offsets) {
		return model.ObjectFileRef{}, errors.Errorf("%s reference index %d out of range (%d definitions)", ref.Kind, ref.Index, len(offsets))
	}

	return model.NewObjectFileRef(ref.Kind, offsets[ref.Index]), nil
}

// Build writes all dataset files into the given directory and returns the
// assigned entity offsets.
func (d *Dataset) Build(directory string) (*BuiltRefs, error) {
	refs := &BuiltRefs{}

	if err := d.writeBlobs(directory, refs); err != nil {
		return nil, err
	}
	if err := d.writeTypes(directory); err != nil {
		return nil, err
	}
	if err := d.writeBounding(directory); err != nil {
		return nil, err
	}
	if err := d.writeAreaNodeIndex(directory, refs); err != nil {
		return nil, err
	}
	if err := d.writeAreaWayIndex(directory, refs); err != nil {
		return nil, err
	}
	if err := d.writeAreaAreaIndex(directory, refs); err != nil {
		return nil, err
	}
	if err := d.writeWaterIndex(directory); err != nil {
		return nil, err
	}
	if err := d.writeLowZoom(directory); err != nil {
		return nil, err
	}
	if err := d.writeLocationIndex(directory, refs); err != nil {
		return nil, err
	}

	return refs, nil
}

func (d *Dataset) writeBlobs(directory string, refs *BuiltRefs) error {
	nodeWriter, err := fileio.NewWriter(path.Join(directory, "nodes.dat"))
	if err != nil {
		return err
	}
	for _, def := range d.Nodes {
		refs.NodeOffsets = append(refs.NodeOffsets, model.FileOffset(nodeWriter.Pos()))

		node := model.Node{Type: def.Type, Coord: def.Coord}
		// Tags in sorted key order for deterministic files.
		keys := make([]string, 0, len(def.Tags))
		for key := range def.Tags {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			node.Tags = append(node.Tags, osmTag(key, def.Tags[key]))
		}

		if err := node.Write(nodeWriter); err != nil {
			nodeWriter.Close()
			return errors.Wrap(err, "error writing node record")
		}
	}
	if err := nodeWriter.Close(); err != nil {
		return err
	}

	wayWriter, err := fileio.NewWriter(path.Join(directory, "ways.dat"))
	if err != nil {
		return err
	}
	for _, def := range d.Ways {
		refs.WayOffsets = append(refs.WayOffsets, model.FileOffset(wayWriter.Pos()))

		way := model.Way{Type: def.Type, Attrs: def.Attrs, Nodes: def.Nodes}
		if err := way.Write(wayWriter); err != nil {
			wayWriter.Close()
			return errors.Wrap(err, "error writing way record")
		}
	}
	if err := wayWriter.Close(); err != nil {
		return err
	}

	areaWriter, err := fileio.NewWriter(path.Join(directory, "areas.dat"))
	if err != nil {
		return err
	}
	for _, def := range d.Areas {
		refs.AreaOffsets = append(refs.AreaOffsets, model.FileOffset(areaWriter.Pos()))

		area := areaOfDef(def)
		if err := area.Write(areaWriter); err != nil {
			areaWriter.Close()
			return errors.Wrap(err, "error writing area record")
		}
	}
	return areaWriter.Close()
}

func areaOfDef(def AreaDef) model.Area {
	area := model.Area{}
	for _, ringDef := range def.Rings {
		area.Rings = append(area.Rings, model.Ring{
			Id:    ringDef.Id,
			Type:  ringDef.Type,
			Attrs: ringDef.Attrs,
			Nodes: ringDef.Nodes,
		})
	}
	return area
}

func (d *Dataset) writeTypes(directory string) error {
	writer, err := fileio.NewWriter(path.Join(directory, "types.dat"))
	if err != nil {
		return err
	}
	if err := model.WriteTypeConfig(writer, d.TypeConfig); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func (d *Dataset) writeBounding(directory string) error {
	writer, err := fileio.NewWriter(path.Join(directory, "bounding.dat"))
	if err != nil {
		return err
	}

	for _, value := range []float64{d.MinLat + 90.0, d.MinLon + 180.0, d.MaxLat + 90.0, d.MaxLon + 180.0} {
		if err := writer.WriteVarUint(uint64(value*fileio.ConversionFactor + 0.5)); err != nil {
			writer.Close()
			return err
		}
	}

	return writer.Close()
}

func varUintLen(value uint64) int {
	var scratch [10]byte
	return binary.PutUvarint(scratch[:], value)
}

// writeOffsetBlock writes a length-prefixed block of count plus
// delta-encoded, ascending offsets.
func writeOffsetBlock(writer *fileio.Writer, offsets []model.FileOffset) error {
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	blockLength := varUintLen(uint64(len(offsets)))
	previous := model.FileOffset(0)
	for _, offset := range offsets {
		blockLength += varUintLen(offset - previous)
		previous = offset
	}

	if err := writer.WriteVarUint(uint64(blockLength)); err != nil {
		return err
	}
	if err := writer.WriteVarUint(uint64(len(offsets))); err != nil {
		return err
	}

	previous = 0
	for _, offset := range offsets {
		if err := writer.WriteVarUint(offset - previous); err != nil {
			return err
		}
		previous = offset
	}

	return nil
}

func sortedTypeIds[V any](byType map[model.TypeId]V) []model.TypeId {
	typeIds := make([]model.TypeId, 0, len(byType))
	for typeId := range byType {
		typeIds = append(typeIds, typeId)
	}
	sort.Slice(typeIds, func(i, j int) bool { return typeIds[i] < typeIds[j] })
	return typeIds
}

func sortedTiles[V any](tiles map[spatial.TileId]V) []spatial.TileId {
	cells := make([]spatial.TileId, 0, len(tiles))
	for cell := range tiles {
		cells = append(cells, cell)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].X() != cells[j].X() {
			return cells[i].X() < cells[j].X()
		}
		return cells[i].Y() < cells[j].Y()
	})
	return cells
}

func (d *Dataset) writeAreaNodeIndex(directory string, refs *BuiltRefs) error {
	byType := map[model.TypeId]map[spatial.TileId][]model.FileOffset{}
	for i, def := range d.Nodes {
		tiles, ok := byType[def.Type]
		if !ok {
			tiles = map[spatial.TileId][]model.FileOffset{}
			byType[def.Type] = tiles
		}
		tile := spatial.TileOfCoord(d.NodeIndexLevel, def.Coord.Lat, def.Coord.Lon)
		tiles[tile] = append(tiles[tile], refs.NodeOffsets[i])
	}

	writer, err := fileio.NewWriter(path.Join(directory, spatial.AreaNodeIndexFilename))
	if err != nil {
		return err
	}
	defer writer.Close()

	if err := writer.WriteVarUint(uint64(d.NodeIndexLevel)); err != nil {
		return err
	}
	if err := writer.WriteVarUint(uint64(len(byType))); err != nil {
		return err
	}

	for _, typeId := range sortedTypeIds(byType) {
		tiles := byType[typeId]

		if err := writer.WriteVarUint(uint64(typeId)); err != nil {
			return err
		}
		if err := writer.WriteVarUint(uint64(len(tiles))); err != nil {
			return err
		}

		for _, cell := range sortedTiles(tiles) {
			if err := writer.WriteVarUint(uint64(cell.X())); err != nil {
				return err
			}
			if err := writer.WriteVarUint(uint64(cell.Y())); err != nil {
				return err
			}
			if err := writeOffsetBlock(writer, tiles[cell]); err != nil {
				return err
			}
		}
	}

	return nil
}

func (d *Dataset) writeAreaWayIndex(directory string, refs *BuiltRefs) error {
	byType := map[model.TypeId]map[spatial.TileId][]model.FileOffset{}
	for i, def := range d.Ways {
		tiles, ok := byType[def.Type]
		if !ok {
			tiles = map[spatial.TileId][]model.FileOffset{}
			byType[def.Type] = tiles
		}

		// A way is listed in every cell its bounding box intersects.
		bound := model.BoundOfCoords(def.Nodes)
		minX, minY, maxX, maxY := spatial.TileRange(d.WayIndexLevel, bound)
		for x := minX; x <= maxX; x++ {
			for y := minY; y <= maxY; y++ {
				tile := spatial.TileId{x, y}
				tiles[tile] = append(tiles[tile], refs.WayOffsets[i])
			}
		}
	}

	writer, err := fileio.NewWriter(path.Join(directory, spatial.AreaWayIndexFilename))
	if err != nil {
		return err
	}
	defer writer.Close()

	if err := writer.WriteVarUint(uint64(d.WayIndexLevel)); err != nil {
		return err
	}
	if err := writer.WriteVarUint(uint64(len(byType))); err != nil {
		return err
	}

	for _, typeId := range sortedTypeIds(byType) {
		tiles := byType[typeId]

		if err := writer.WriteVarUint(uint64(typeId)); err != nil {
			return err
		}
		if err := writer.WriteVarUint(uint64(len(tiles))); err != nil {
			return err
		}

		for _, cell := range sortedTiles(tiles) {
			if err := writer.WriteVarUint(uint64(cell.X())); err != nil {
				return err
			}
			if err := writer.WriteVarUint(uint64(cell.Y())); err != nil {
				return err
			}
			if err := writeOffsetBlock(writer, tiles[cell]); err != nil {
				return err
			}
		}
	}

	return nil
}

type areaIndexEntry struct {
	offset model.FileOffset
	typeId model.TypeId
}

func (d *Dataset) writeAreaAreaIndex(directory string, refs *BuiltRefs) error {
	byLevel := make([]map[spatial.TileId][]areaIndexEntry, d.AreaIndexMaxLevel+1)

	for i, def := range d.Areas {
		area := areaOfDef(def)
		level, tile := spatial.FittingTile(d.AreaIndexMaxLevel, area.Bound())

		if byLevel[level] == nil {
			byLevel[level] = map[spatial.TileId][]areaIndexEntry{}
		}
		byLevel[level][tile] = append(byLevel[level][tile], areaIndexEntry{
			offset: refs.AreaOffsets[i],
			typeId: area.Type(),
		})
	}

	writer, err := fileio.NewWriter(path.Join(directory, spatial.AreaAreaIndexFilename))
	if err != nil {
		return err
	}
	defer writer.Close()

	if err := writer.WriteVarUint(uint64(d.AreaIndexMaxLevel)); err != nil {
		return err
	}

	for level := uint32(0); level <= d.AreaIndexMaxLevel; level++ {
		tiles := byLevel[level]

		if err := writer.WriteVarUint(uint64(len(tiles))); err != nil {
			return err
		}

		for _, cell := range sortedTiles(tiles) {
			entries := tiles[cell]
			sort.Slice(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })

			blockLength := varUintLen(uint64(len(entries)))
			previous := model.FileOffset(0)
			for _, entry := range entries {
				blockLength += varUintLen(entry.offset-previous) + varUintLen(uint64(entry.typeId))
				previous = entry.offset
			}

			if err := writer.WriteVarUint(uint64(cell.X())); err != nil {
				return err
			}
			if err := writer.WriteVarUint(uint64(cell.Y())); err != nil {
				return err
			}
			if err := writer.WriteVarUint(uint64(blockLength)); err != nil {
				return err
			}
			if err := writer.WriteVarUint(uint64(len(entries))); err != nil {
				return err
			}

			previous = 0
			for _, entry := range entries {
				if err := writer.WriteVarUint(entry.offset - previous); err != nil {
					return err
				}
				if err := writer.WriteVarUint(uint64(entry.typeId)); err != nil {
					return err
				}
				previous = entry.offset
			}
		}
	}

	return nil
}

func (d *Dataset) writeWaterIndex(directory string) error {
	writer, err := fileio.NewWriter(path.Join(directory, spatial.WaterIndexFilename))
	if err != nil {
		return err
	}
	defer writer.Close()

	if err := writer.WriteVarUint(uint64(d.WaterLevel)); err != nil {
		return err
	}

	if len(d.Ground) == 0 {
		for i := 0; i < 4; i++ {
			if err := writer.WriteVarUint(0); err != nil {
				return err
			}
		}
		return writer.WriteVarUint(0)
	}

	minX, minY := d.Ground[0].Cell.X(), d.Ground[0].Cell.Y()
	maxX, maxY := minX, minY
	for _, ground := range d.Ground[1:] {
		minX = min(minX, ground.Cell.X())
		minY = min(minY, ground.Cell.Y())
		maxX = max(maxX, ground.Cell.X())
		maxY = max(maxY, ground.Cell.Y())
	}
	width := maxX - minX + 1
	height := maxY - minY + 1

	states := make([]spatial.GroundState, width*height)
	var coastCells []GroundDef
	for _, ground := range d.Ground {
		states[(ground.Cell.Y()-minY)*width+(ground.Cell.X()-minX)] = ground.State
		if ground.State == spatial.GroundCoast {
			coastCells = append(coastCells, ground)
		}
	}

	for _, value := range []int{minX, minY, width, height} {
		if err := writer.WriteVarUint(uint64(value)); err != nil {
			return err
		}
	}

	for _, state := range states {
		if err := writer.WriteU8(uint8(state)); err != nil {
			return err
		}
	}

	if err := writer.WriteVarUint(uint64(len(coastCells))); err != nil {
		return err
	}
	for _, ground := range coastCells {
		if err := writer.WriteVarUint(uint64(ground.Cell.X())); err != nil {
			return err
		}
		if err := writer.WriteVarUint(uint64(ground.Cell.Y())); err != nil {
			return err
		}
		if err := writer.WriteVarUint(uint64(len(ground.Coast))); err != nil {
			return err
		}
		for _, coord := range ground.Coast {
			if err := writer.WriteCoord(coord.Lat, coord.Lon); err != nil {
				return err
			}
		}
	}

	return nil
}

func (d *Dataset) writeLowZoom(directory string) error {
	areaWriter, err := fileio.NewWriter(path.Join(directory, spatial.AreasOptFilename))
	if err != nil {
		return err
	}
	if err := d.writeLowZoomAreas(areaWriter); err != nil {
		areaWriter.Close()
		return err
	}
	if err := areaWriter.Close(); err != nil {
		return err
	}

	wayWriter, err := fileio.NewWriter(path.Join(directory, spatial.WaysOptFilename))
	if err != nil {
		return err
	}
	if err := d.writeLowZoomWays(wayWriter); err != nil {
		wayWriter.Close()
		return err
	}
	return wayWriter.Close()
}

func (d *Dataset) writeLowZoomAreas(writer *fileio.Writer) error {
	if err := writer.WriteVarUint(uint64(d.LowZoomMaxLevel)); err != nil {
		return err
	}
	if err := writer.WriteVarUint(uint64(len(d.LowZoomAreas))); err != nil {
		return err
	}

	for _, typeId := range sortedTypeIds(d.LowZoomAreas) {
		defs := d.LowZoomAreas[typeId]

		if err := writer.WriteVarUint(uint64(typeId)); err != nil {
			return err
		}
		if err := writer.WriteVarUint(uint64(len(defs))); err != nil {
			return err
		}
		for _, def := range defs {
			area := areaOfDef(def)
			if err := area.Write(writer); err != nil {
				return err
			}
		}
	}

	return nil
}

func (d *Dataset) writeLowZoomWays(writer *fileio.Writer) error {
	if err := writer.WriteVarUint(uint64(d.LowZoomMaxLevel)); err != nil {
		return err
	}
	if err := writer.WriteVarUint(uint64(len(d.LowZoomWays))); err != nil {
		return err
	}

	for _, typeId := range sortedTypeIds(d.LowZoomWays) {
		defs := d.LowZoomWays[typeId]

		if err := writer.WriteVarUint(uint64(typeId)); err != nil {
			return err
		}
		if err := writer.WriteVarUint(uint64(len(defs))); err != nil {
			return err
		}
		for _, def := range defs {
			way := model.Way{Type: def.Type, Attrs: def.Attrs, Nodes: def.Nodes}
			if err := way.Write(writer); err != nil {
				return err
			}
		}
	}

	return nil
}

// locationChunk is the address.dat position of one location's addresses.
type locationChunk struct {
	offset model.FileOffset
	count  int
}

func (d *Dataset) writeLocationIndex(directory string, refs *BuiltRefs) error {
	// Addresses first, so the region records can point at their chunks.
	addressWriter, err := fileio.NewWriter(path.Join(directory, locidx.AddressDataFilename))
	if err != nil {
		return err
	}

	// A pad byte keeps every chunk offset non-zero, 0 means "no addresses".
	if err := addressWriter.WriteU8(0xff); err != nil {
		addressWriter.Close()
		return err
	}

	chunks := map[*LocationDef]locationChunk{}
	var writeAddresses func(regions []RegionDef) error
	writeAddresses = func(regions []RegionDef) error {
		for r := range regions {
			for l := range regions[r].Locations {
				location := &regions[r].Locations[l]
				if len(location.Addresses) == 0 {
					continue
				}

				chunk := locationChunk{
					offset: model.FileOffset(addressWriter.Pos()),
					count:  len(location.Addresses),
				}

				for _, addressDef := range location.Addresses {
					object, err := refs.resolve(addressDef.Object)
					if err != nil {
						return err
					}
					if err := addressWriter.WriteString(addressDef.Name); err != nil {
						return err
					}
					if err := model.WriteObjectFileRef(addressWriter, object); err != nil {
						return err
					}
				}

				chunks[location] = chunk
			}

			if err := writeAddresses(regions[r].Children); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writeAddresses(d.Regions); err != nil {
		addressWriter.Close()
		return err
	}
	if err := addressWriter.Close(); err != nil {
		return err
	}

	writer, err := fileio.NewWriter(path.Join(directory, locidx.LocationIndexFilename))
	if err != nil {
		return err
	}
	defer writer.Close()

	// Fixed-width header, patched once the root offsets are known.
	if err := writer.WriteU32(uint32(len(d.Regions))); err != nil {
		return err
	}
	rootPatchPos := writer.Pos()
	for range d.Regions {
		if err := writer.WriteU64(0); err != nil {
			return err
		}
	}

	var writeRegion func(region *RegionDef) (model.FileOffset, error)
	writeRegion = func(region *RegionDef) (model.FileOffset, error) {
		// Children first; their parent links are patched afterwards.
		childOffsets := make([]model.FileOffset, 0, len(region.Children))
		for c := range region.Children {
			childOffset, err := writeRegion(&region.Children[c])
			if err != nil {
				return 0, err
			}
			childOffsets = append(childOffsets, childOffset)
		}

		offset := model.FileOffset(writer.Pos())

		// Parent link placeholder, 0 stays for roots.
		if err := writer.WriteU64(0); err != nil {
			return 0, err
		}

		object, err := refs.resolve(region.Object)
		if err != nil {
			return 0, err
		}
		if err := model.WriteObjectFileRef(writer, object); err != nil {
			return 0, err
		}
		if err := writer.WriteString(region.Name); err != nil {
			return 0, err
		}

		if err := writer.WriteVarUint(uint64(len(region.Aliases))); err != nil {
			return 0, err
		}
		for _, alias := range region.Aliases {
			aliasObject, err := refs.resolve(alias.Node)
			if err != nil {
				return 0, err
			}
			if err := writer.WriteString(alias.Name); err != nil {
				return 0, err
			}
			if err := writer.WriteVarUint(aliasObject.Offset); err != nil {
				return 0, err
			}
		}

		if err := writer.WriteVarUint(uint64(len(childOffsets))); err != nil {
			return 0, err
		}
		for _, childOffset := range childOffsets {
			if err := writer.WriteVarUint(childOffset); err != nil {
				return 0, err
			}
		}

		if err := writer.WriteVarUint(uint64(len(region.POIs))); err != nil {
			return 0, err
		}
		for _, poiDef := range region.POIs {
			object, err := refs.resolve(poiDef.Object)
			if err != nil {
				return 0, err
			}
			if err := writer.WriteString(poiDef.Name); err != nil {
				return 0, err
			}
			if err := model.WriteObjectFileRef(writer, object); err != nil {
				return 0, err
			}
		}

		if err := writer.WriteVarUint(uint64(len(region.Locations))); err != nil {
			return 0, err
		}
		for l := range region.Locations {
			location := &region.Locations[l]

			if err := writer.WriteString(location.Name); err != nil {
				return 0, err
			}

			if err := writer.WriteVarUint(uint64(len(location.Objects))); err != nil {
				return 0, err
			}
			for _, objectRef := range location.Objects {
				object, err := refs.resolve(objectRef)
				if err != nil {
					return 0, err
				}
				if err := model.WriteObjectFileRef(writer, object); err != nil {
					return 0, err
				}
			}

			chunk := chunks[location]
			if err := writer.WriteVarUint(chunk.offset); err != nil {
				return 0, err
			}
			if err := writer.WriteVarUint(uint64(chunk.count)); err != nil {
				return 0, err
			}
		}

		// Patch the parent link of all children.
		for _, childOffset := range childOffsets {
			if err := writer.PatchU64(int64(childOffset), offset); err != nil {
				return 0, err
			}
		}

		return offset, nil
	}

	for r := range d.Regions {
		offset, err := writeRegion(&d.Regions[r])
		if err != nil {
			return err
		}
		if err := writer.PatchU64(rootPatchPos+int64(r)*8, offset); err != nil {
			return err
		}
	}

	return nil
}
