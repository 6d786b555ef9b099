package spatial

import (
	"github.com/paulmach/orb"
)

// TileId addresses one cell of the world grid at some zoom level. At level n
// the world is divided into 2^n x 2^n cells of 360/2^n degrees longitude by
// 180/2^n degrees latitude.
type TileId [2]int

func (t TileId) X() int { return t[0] }

func (t TileId) Y() int { return t[1] }

func cellWidth(level uint32) float64 {
	return 360.0 / float64(uint64(1)<<level)
}

func cellHeight(level uint32) float64 {
	return 180.0 / float64(uint64(1)<<level)
}

func maxCellIndex(level uint32) int {
	return int(uint64(1)<<level) - 1
}

func clamp(value int, min int, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// TileOfCoord returns the cell containing the given position at the given
// level.
func TileOfCoord(level uint32, lat float64, lon float64) TileId {
	x := clamp(int((lon+180.0)/cellWidth(level)), 0, maxCellIndex(level))
	y := clamp(int((lat+90.0)/cellHeight(level)), 0, maxCellIndex(level))
	return TileId{x, y}
}

// TileRange returns the inclusive cell range intersecting the given bounding
// box at the given level.
func TileRange(level uint32, bbox orb.Bound) (minX int, minY int, maxX int, maxY int) {
	min := TileOfCoord(level, bbox.Min[1], bbox.Min[0])
	max := TileOfCoord(level, bbox.Max[1], bbox.Max[0])
	return min.X(), min.Y(), max.X(), max.Y()
}

// TileBound returns the geographic rectangle of a cell.
func TileBound(level uint32, tile TileId) orb.Bound {
	width := cellWidth(level)
	height := cellHeight(level)
	minLon := float64(tile.X())*width - 180.0
	minLat := float64(tile.Y())*height - 90.0
	return orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{minLon + width, minLat + height},
	}
}

// FittingTile returns the highest level not above maxLevel at which the given
// bound still fits into a single cell, together with that cell. This is the
// storage rule of the area-area index: an object lives at the level whose
// tile contains it exactly.
func FittingTile(maxLevel uint32, bound orb.Bound) (uint32, TileId) {
	for level := maxLevel; ; level-- {
		minTile := TileOfCoord(level, bound.Min[1], bound.Min[0])
		maxTile := TileOfCoord(level, bound.Max[1], bound.Max[0])
		if minTile == maxTile || level == 0 {
			return level, minTile
		}
	}
}
