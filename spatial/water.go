package spatial

import (
	"path"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"scoutdb/fileio"
	"scoutdb/model"
)

const WaterIndexFilename = "water.idx"

// GroundState classifies a ground tile.
type GroundState uint8

const (
	GroundUnknown GroundState = iota
	GroundLand
	GroundWater
	GroundCoast
)

func (s GroundState) String() string {
	switch s {
	case GroundLand:
		return "land"
	case GroundWater:
		return "water"
	case GroundCoast:
		return "coast"
	default:
		return "unknown"
	}
}

// GroundTile is one cell of the ground raster. Coast tiles carry the
// coastline polyline crossing them.
type GroundTile struct {
	State GroundState
	Cell  TileId
	Bound orb.Bound
	Coast []model.GeoCoord
}

// WaterIndex is the per-tile land/water/coast raster. It covers a rectangle
// of cells at a single level and is small enough to live in memory.
type WaterIndex struct {
	level      uint32
	minX, minY int
	width      int
	height     int
	states     []GroundState
	coastlines map[TileId][]model.GeoCoord
	loaded     bool
}

func NewWaterIndex() *WaterIndex {
	return &WaterIndex{}
}

func (i *WaterIndex) Load(directory string) error {
	scanner, err := fileio.NewScanner(path.Join(directory, WaterIndexFilename), fileio.ModeSequential)
	if err != nil {
		return err
	}
	defer scanner.Close()

	i.level = uint32(scanner.ReadVarUint())
	i.minX = int(scanner.ReadVarUint())
	i.minY = int(scanner.ReadVarUint())
	i.width = int(scanner.ReadVarUint())
	i.height = int(scanner.ReadVarUint())

	if scanner.HasError() {
		return errors.Wrapf(scanner.Err(), "error reading water index header")
	}

	i.states = make([]GroundState, i.width*i.height)
	for n := range i.states {
		i.states[n] = GroundState(scanner.ReadU8())
	}

	i.coastlines = map[TileId][]model.GeoCoord{}
	coastCount := scanner.ReadVarUint()
	for n := uint64(0); n < coastCount; n++ {
		cellX := int(scanner.ReadVarUint())
		cellY := int(scanner.ReadVarUint())

		coordCount := scanner.ReadVarUint()
		coords := make([]model.GeoCoord, 0, coordCount)
		for c := uint64(0); c < coordCount; c++ {
			lat, lon := scanner.ReadCoord()
			coords = append(coords, model.GeoCoord{Lat: lat, Lon: lon})
		}

		i.coastlines[TileId{cellX, cellY}] = coords
	}

	if scanner.HasError() {
		return errors.Wrapf(scanner.Err(), "error reading water index tiles")
	}

	i.loaded = true
	return nil
}

func (i *WaterIndex) Close() error {
	i.states = nil
	i.coastlines = nil
	i.loaded = false
	return nil
}

// GetRegions returns the ground tiles intersecting the bounding box. The
// raster has one fixed level; the magnification only matters to callers
// deciding whether to render the result at all.
func (i *WaterIndex) GetRegions(bbox orb.Bound, magnification model.Magnification) ([]GroundTile, error) {
	if !i.loaded {
		return nil, errors.Errorf("water index is not loaded")
	}

	minX, minY, maxX, maxY := TileRange(i.level, bbox)

	minX = max(minX, i.minX)
	minY = max(minY, i.minY)
	maxX = min(maxX, i.minX+i.width-1)
	maxY = min(maxY, i.minY+i.height-1)

	var tiles []GroundTile
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			cell := TileId{x, y}
			state := i.states[(y-i.minY)*i.width+(x-i.minX)]

			tile := GroundTile{
				State: state,
				Cell:  cell,
				Bound: TileBound(i.level, cell),
			}
			if state == GroundCoast {
				tile.Coast = i.coastlines[cell]
			}

			tiles = append(tiles, tile)
		}
	}

	return tiles, nil
}

func (i *WaterIndex) DumpStatistics() {
	sigolo.Infof("%s: %dx%d cells at level %d, %d coastlines", WaterIndexFilename, i.width, i.height, i.level, len(i.coastlines))
}
