package spatial

import (
	"testing"

	"github.com/paulmach/orb"

	"scoutdb/util"
)

func TestTileOfCoord(t *testing.T) {
	// Level 0: the whole world in one cell.
	util.AssertEqual(t, TileId{0, 0}, TileOfCoord(0, -90, -180))
	util.AssertEqual(t, TileId{0, 0}, TileOfCoord(0, 89, 179))

	// Level 1: two columns and rows of 180x90 degree cells.
	util.AssertEqual(t, TileId{0, 0}, TileOfCoord(1, -50, -100))
	util.AssertEqual(t, TileId{1, 1}, TileOfCoord(1, 50, 100))

	// The eastern and northern edges clamp into the last cell.
	util.AssertEqual(t, TileId{1, 1}, TileOfCoord(1, 90, 180))
}

func TestTileBound_containsItsCoords(t *testing.T) {
	for _, level := range []uint32{3, 8, 14} {
		tile := TileOfCoord(level, 48.137, 11.575)
		bound := TileBound(level, tile)

		util.AssertTrue(t, bound.Contains(orb.Point{11.575, 48.137}))
	}
}

func TestTileRange_coversBbox(t *testing.T) {
	bbox := orb.Bound{
		Min: orb.Point{11.0, 48.0},
		Max: orb.Point{11.5, 48.5},
	}

	minX, minY, maxX, maxY := TileRange(10, bbox)

	util.AssertTrue(t, minX <= maxX)
	util.AssertTrue(t, minY <= maxY)

	util.AssertEqual(t, TileOfCoord(10, 48.0, 11.0), TileId{minX, minY})
	util.AssertEqual(t, TileOfCoord(10, 48.5, 11.5), TileId{maxX, maxY})
}

func TestFittingTile_smallBoundFitsDeep(t *testing.T) {
	small := orb.Bound{
		Min: orb.Point{11.25, 48.25},
		Max: orb.Point{11.2501, 48.2501},
	}

	level, tile := FittingTile(17, small)
	bound := TileBound(level, tile)

	util.AssertTrue(t, bound.Contains(small.Min))
	util.AssertTrue(t, bound.Contains(small.Max))
}

func TestFittingTile_largeBoundForcesCoarseLevel(t *testing.T) {
	// A bound spanning a whole hemisphere cannot fit a deep tile.
	large := orb.Bound{
		Min: orb.Point{-170.0, -80.0},
		Max: orb.Point{170.0, 80.0},
	}

	level, _ := FittingTile(17, large)
	util.AssertEqual(t, uint32(0), level)
}
