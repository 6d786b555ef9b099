package spatial

import (
	"path"
	"sync"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"scoutdb/datafile"
	"scoutdb/fileio"
	"scoutdb/model"
)

const AreaWayIndexFilename = "areaway.idx"

// AreaWayIndex maps grid cells to way offsets per type. It has the same file
// shape as the area-node index, but a way spanning several cells is listed in
// every one of them, so queries deduplicate. The query accepts one TypeSet
// per zoom band to allow different filters per level.
type AreaWayIndex struct {
	scanner   *fileio.Scanner
	mutex     sync.Mutex
	gridLevel uint32
	directory map[model.TypeId]map[TileId]int64
	cache     *datafile.LRUCache[areaNodeCacheKey, []model.FileOffset]
}

func NewAreaWayIndex(cacheSize int) *AreaWayIndex {
	return &AreaWayIndex{
		cache: datafile.NewLRUCache[areaNodeCacheKey, []model.FileOffset](cacheSize),
	}
}

func (i *AreaWayIndex) Load(directory string) error {
	scanner, err := fileio.NewScanner(path.Join(directory, AreaWayIndexFilename), fileio.ModeLowMemRandom)
	if err != nil {
		return err
	}

	i.scanner = scanner
	i.gridLevel = uint32(scanner.ReadVarUint())
	i.directory = map[model.TypeId]map[TileId]int64{}

	typeCount := scanner.ReadVarUint()
	for t := uint64(0); t < typeCount; t++ {
		typeId := model.TypeId(scanner.ReadVarUint())
		entryCount := scanner.ReadVarUint()

		tiles := map[TileId]int64{}
		for e := uint64(0); e < entryCount; e++ {
			tileX := int(scanner.ReadVarUint())
			tileY := int(scanner.ReadVarUint())
			blockLength := scanner.ReadVarUint()
			tiles[TileId{tileX, tileY}] = scanner.GetPos()
			scanner.SetPos(scanner.GetPos() + int64(blockLength))
		}
		i.directory[typeId] = tiles

		if scanner.HasError() {
			break
		}
	}

	if scanner.HasError() {
		err := scanner.Err()
		i.Close()
		return errors.Wrapf(err, "error loading area-way index directory")
	}

	return nil
}

func (i *AreaWayIndex) Close() error {
	if i.scanner == nil {
		return nil
	}
	scanner := i.scanner
	i.scanner = nil
	i.directory = nil
	i.cache.Flush()
	return scanner.Close()
}

func (i *AreaWayIndex) readOffsets(typeId model.TypeId, tile TileId, pos int64) ([]model.FileOffset, error) {
	key := areaNodeCacheKey{typeId: typeId, tile: tile}
	if offsets, ok := i.cache.Get(key); ok {
		return offsets, nil
	}

	i.mutex.Lock()
	i.scanner.SetPos(pos)
	offsetCount := i.scanner.ReadVarUint()
	offsets := make([]model.FileOffset, 0, offsetCount)
	var previous model.FileOffset
	for n := uint64(0); n < offsetCount; n++ {
		previous += i.scanner.ReadVarUint()
		offsets = append(offsets, previous)
	}
	err := i.scanner.Err()
	i.mutex.Unlock()

	if err != nil {
		return nil, errors.Wrapf(err, "error reading area-way offsets of type %d in tile %v", typeId, tile)
	}

	i.cache.Insert(key, offsets)
	return offsets, nil
}

// GetOffsets collects way offsets for all types of all given sets within the
// bounding box. Collection stops at maxCount.
func (i *AreaWayIndex) GetOffsets(bbox orb.Bound, typeSets []model.TypeSet, maxCount int) ([]model.FileOffset, error) {
	if i.scanner == nil {
		return nil, errors.Errorf("area-way index is not loaded")
	}

	var offsets []model.FileOffset
	seen := map[model.FileOffset]struct{}{}
	var visitErr error

	minX, minY, maxX, maxY := TileRange(i.gridLevel, bbox)

	for _, types := range typeSets {
		full := false

		types.ForEach(func(typeId model.TypeId) bool {
			tiles, ok := i.directory[typeId]
			if !ok {
				return true
			}

			for x := minX; x <= maxX; x++ {
				for y := minY; y <= maxY; y++ {
					pos, ok := tiles[TileId{x, y}]
					if !ok {
						continue
					}

					tileOffsets, err := i.readOffsets(typeId, TileId{x, y}, pos)
					if err != nil {
						visitErr = err
						return false
					}

					for _, offset := range tileOffsets {
						if _, ok := seen[offset]; ok {
							continue
						}
						if len(offsets) >= maxCount {
							full = true
							return false
						}
						seen[offset] = struct{}{}
						offsets = append(offsets, offset)
					}
				}
			}

			return true
		})

		if visitErr != nil {
			return nil, visitErr
		}
		if full {
			break
		}
	}

	return offsets, nil
}

func (i *AreaWayIndex) DumpStatistics() {
	hits, misses := i.cache.Statistics()
	dumpTileCacheStatistics(AreaWayIndexFilename, hits, misses)
}
