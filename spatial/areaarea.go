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

const AreaAreaIndexFilename = "areaarea.idx"

type areaAreaCacheKey struct {
	level uint32
	tile  TileId
}

type areaAreaEntry struct {
	offset model.FileOffset
	typeId model.TypeId
}

// AreaAreaIndex is the tiled quadtree over polygon features. An area is
// stored at the level whose tile contains its bounding box exactly, so a
// query has to walk all levels from 0 down to the requested maximum.
type AreaAreaIndex struct {
	scanner  *fileio.Scanner
	mutex    sync.Mutex
	topLevel uint32
	// One tile directory per level, index is the level.
	directory []map[TileId]int64
	cache     *datafile.LRUCache[areaAreaCacheKey, []areaAreaEntry]
}

func NewAreaAreaIndex(cacheSize int) *AreaAreaIndex {
	return &AreaAreaIndex{
		cache: datafile.NewLRUCache[areaAreaCacheKey, []areaAreaEntry](cacheSize),
	}
}

func (i *AreaAreaIndex) Load(directory string) error {
	scanner, err := fileio.NewScanner(path.Join(directory, AreaAreaIndexFilename), fileio.ModeLowMemRandom)
	if err != nil {
		return err
	}

	i.scanner = scanner
	i.topLevel = uint32(scanner.ReadVarUint())
	i.directory = make([]map[TileId]int64, i.topLevel+1)

	for level := uint32(0); level <= i.topLevel; level++ {
		tiles := map[TileId]int64{}

		entryCount := scanner.ReadVarUint()
		for e := uint64(0); e < entryCount; e++ {
			tileX := int(scanner.ReadVarUint())
			tileY := int(scanner.ReadVarUint())
			blockLength := scanner.ReadVarUint()
			tiles[TileId{tileX, tileY}] = scanner.GetPos()
			scanner.SetPos(scanner.GetPos() + int64(blockLength))
		}

		i.directory[level] = tiles

		if scanner.HasError() {
			break
		}
	}

	if scanner.HasError() {
		err := scanner.Err()
		i.Close()
		return errors.Wrapf(err, "error loading area-area index directory")
	}

	return nil
}

func (i *AreaAreaIndex) Close() error {
	if i.scanner == nil {
		return nil
	}
	scanner := i.scanner
	i.scanner = nil
	i.directory = nil
	i.cache.Flush()
	return scanner.Close()
}

func (i *AreaAreaIndex) readEntries(level uint32, tile TileId, pos int64) ([]areaAreaEntry, error) {
	key := areaAreaCacheKey{level: level, tile: tile}
	if entries, ok := i.cache.Get(key); ok {
		return entries, nil
	}

	i.mutex.Lock()
	i.scanner.SetPos(pos)
	entryCount := i.scanner.ReadVarUint()
	entries := make([]areaAreaEntry, 0, entryCount)
	var previous model.FileOffset
	for n := uint64(0); n < entryCount; n++ {
		previous += i.scanner.ReadVarUint()
		typeId := model.TypeId(i.scanner.ReadVarUint())
		entries = append(entries, areaAreaEntry{offset: previous, typeId: typeId})
	}
	err := i.scanner.Err()
	i.mutex.Unlock()

	if err != nil {
		return nil, errors.Wrapf(err, "error reading area-area entries of tile %v at level %d", tile, level)
	}

	i.cache.Insert(key, entries)
	return entries, nil
}

// GetOffsets collects offsets of areas of the selected types whose storage
// tile intersects the bounding box, walking levels 0..maxLevel. Collection
// stops at maxCount.
func (i *AreaAreaIndex) GetOffsets(bbox orb.Bound, maxLevel uint32, types model.TypeSet, maxCount int) ([]model.FileOffset, error) {
	if i.scanner == nil {
		return nil, errors.Errorf("area-area index is not loaded")
	}

	var offsets []model.FileOffset

	lastLevel := min(maxLevel, i.topLevel)
	for level := uint32(0); level <= lastLevel; level++ {
		tiles := i.directory[level]
		if len(tiles) == 0 {
			continue
		}

		minX, minY, maxX, maxY := TileRange(level, bbox)
		for x := minX; x <= maxX; x++ {
			for y := minY; y <= maxY; y++ {
				pos, ok := tiles[TileId{x, y}]
				if !ok {
					continue
				}

				entries, err := i.readEntries(level, TileId{x, y}, pos)
				if err != nil {
					return nil, err
				}

				for _, entry := range entries {
					if !types.HasType(entry.typeId) {
						continue
					}
					if len(offsets) >= maxCount {
						return offsets, nil
					}
					offsets = append(offsets, entry.offset)
				}
			}
		}
	}

	return offsets, nil
}

func (i *AreaAreaIndex) DumpStatistics() {
	hits, misses := i.cache.Statistics()
	dumpTileCacheStatistics(AreaAreaIndexFilename, hits, misses)
}
