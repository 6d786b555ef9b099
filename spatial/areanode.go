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

const AreaNodeIndexFilename = "areanode.idx"

type areaNodeCacheKey struct {
	typeId model.TypeId
	tile   TileId
}

// AreaNodeIndex maps grid cells to the node offsets of each type. The tile
// directory is loaded at open time, the offset lists stay on disk and are
// read (and cached) on demand.
type AreaNodeIndex struct {
	scanner   *fileio.Scanner
	mutex     sync.Mutex
	gridLevel uint32
	directory map[model.TypeId]map[TileId]int64
	cache     *datafile.LRUCache[areaNodeCacheKey, []model.FileOffset]
}

func NewAreaNodeIndex(cacheSize int) *AreaNodeIndex {
	return &AreaNodeIndex{
		cache: datafile.NewLRUCache[areaNodeCacheKey, []model.FileOffset](cacheSize),
	}
}

// Load reads the tile directory. Offset blocks are skipped and resolved
// lazily by GetOffsets.
func (i *AreaNodeIndex) Load(directory string) error {
	scanner, err := fileio.NewScanner(path.Join(directory, AreaNodeIndexFilename), fileio.ModeLowMemRandom)
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
		return errors.Wrapf(err, "error loading area-node index directory")
	}

	return nil
}

func (i *AreaNodeIndex) Close() error {
	if i.scanner == nil {
		return nil
	}
	scanner := i.scanner
	i.scanner = nil
	i.directory = nil
	i.cache.Flush()
	return scanner.Close()
}

func (i *AreaNodeIndex) readOffsets(typeId model.TypeId, tile TileId, pos int64) ([]model.FileOffset, error) {
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
		// Offsets are ascending within a tile and delta-encoded.
		previous += i.scanner.ReadVarUint()
		offsets = append(offsets, previous)
	}
	err := i.scanner.Err()
	i.mutex.Unlock()

	if err != nil {
		return nil, errors.Wrapf(err, "error reading area-node offsets of type %d in tile %v", typeId, tile)
	}

	i.cache.Insert(key, offsets)
	return offsets, nil
}

// GetOffsets collects the offsets of all nodes of the selected types within
// tiles intersecting the bounding box. Collection stops once maxCount offsets
// were gathered; the result is then a subset of all matches.
func (i *AreaNodeIndex) GetOffsets(bbox orb.Bound, types model.TypeSet, maxCount int) ([]model.FileOffset, error) {
	if i.scanner == nil {
		return nil, errors.Errorf("area-node index is not loaded")
	}

	var offsets []model.FileOffset
	var visitErr error

	minX, minY, maxX, maxY := TileRange(i.gridLevel, bbox)

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
					if len(offsets) >= maxCount {
						return false
					}
					offsets = append(offsets, offset)
				}
			}
		}

		return true
	})

	if visitErr != nil {
		return nil, visitErr
	}
	return offsets, nil
}

// DumpStatistics logs the tile-cache hit rate.
func (i *AreaNodeIndex) DumpStatistics() {
	hits, misses := i.cache.Statistics()
	dumpTileCacheStatistics(AreaNodeIndexFilename, hits, misses)
}
