package datafile

import (
	"path"
	"sort"
	"sync"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"

	"scoutdb/fileio"
	"scoutdb/model"
)

// ErrIndexMiss marks a queried file offset that has no resolvable entity
// behind it, i.e. an inconsistency between an index and its data file.
var ErrIndexMiss = errors.New("index miss")

// DecodeFunc decodes one entity record the scanner is positioned on.
type DecodeFunc[T any] func(scanner *fileio.Scanner, offset model.FileOffset) (T, error)

// DataFile is one entity-kind backing file (nodes.dat, ways.dat, areas.dat)
// with an LRU cache keyed by file offset. Decoded entities are immutable and
// shared between the cache and all callers.
type DataFile[T any] struct {
	filename string
	mode     fileio.Mode
	decode   DecodeFunc[T]

	scanner      *fileio.Scanner
	scannerMutex sync.Mutex

	cache *LRUCache[model.FileOffset, T]
}

func NewDataFile[T any](filename string, cacheSize int, decode DecodeFunc[T]) *DataFile[T] {
	return &DataFile[T]{
		filename: filename,
		decode:   decode,
		cache:    NewLRUCache[model.FileOffset, T](cacheSize),
	}
}

// Open mounts the data file below the given dataset directory.
func (f *DataFile[T]) Open(directory string, mode fileio.Mode) error {
	scanner, err := fileio.NewScanner(path.Join(directory, f.filename), mode)
	if err != nil {
		return errors.Wrapf(err, "unable to open data file %s", f.filename)
	}

	f.mode = mode
	f.scanner = scanner

	return nil
}

func (f *DataFile[T]) IsOpen() bool {
	return f.scanner != nil
}

// Close releases the file handle. The cache content is dropped as well.
func (f *DataFile[T]) Close() error {
	if f.scanner == nil {
		return nil
	}

	scanner := f.scanner
	f.scanner = nil
	f.cache.Flush()

	return scanner.Close()
}

// FlushCache empties the LRU without closing the file.
func (f *DataFile[T]) FlushCache() {
	f.cache.Flush()
}

// GetByOffset returns the entity stored at the given offset, decoding it on a
// cache miss.
func (f *DataFile[T]) GetByOffset(offset model.FileOffset) (T, error) {
	var zero T

	if f.scanner == nil {
		return zero, errors.Errorf("data file %s is not open", f.filename)
	}

	if entity, ok := f.cache.Get(offset); ok {
		return entity, nil
	}

	f.scannerMutex.Lock()
	f.scanner.SetPos(int64(offset))
	entity, err := f.decode(f.scanner, offset)
	if err != nil {
		// A failed decode must not poison the scanner for later queries.
		f.scanner.ClearError()
	}
	f.scannerMutex.Unlock()

	if err != nil {
		return zero, errors.Wrapf(ErrIndexMiss, "no entity at offset %d of data file %s: %v", offset, f.filename, err)
	}

	f.cache.Insert(offset, entity)

	return entity, nil
}

// GetByOffsets resolves a batch of offsets and returns the entities in input
// order. Reads are issued in ascending offset order for locality.
func (f *DataFile[T]) GetByOffsets(offsets []model.FileOffset) ([]T, error) {
	readOrder := make([]model.FileOffset, len(offsets))
	copy(readOrder, offsets)
	sort.Slice(readOrder, func(i, j int) bool { return readOrder[i] < readOrder[j] })

	byOffset := make(map[model.FileOffset]T, len(offsets))
	for _, offset := range readOrder {
		if _, ok := byOffset[offset]; ok {
			continue
		}
		entity, err := f.GetByOffset(offset)
		if err != nil {
			return nil, err
		}
		byOffset[offset] = entity
	}

	entities := make([]T, 0, len(offsets))
	for _, offset := range offsets {
		entities = append(entities, byOffset[offset])
	}

	return entities, nil
}

// GetByOffsetSet resolves an unordered batch into an offset-to-entity map.
func (f *DataFile[T]) GetByOffsetSet(offsets map[model.FileOffset]struct{}) (map[model.FileOffset]T, error) {
	readOrder := make([]model.FileOffset, 0, len(offsets))
	for offset := range offsets {
		readOrder = append(readOrder, offset)
	}
	sort.Slice(readOrder, func(i, j int) bool { return readOrder[i] < readOrder[j] })

	entities := make(map[model.FileOffset]T, len(offsets))
	for _, offset := range readOrder {
		entity, err := f.GetByOffset(offset)
		if err != nil {
			return nil, err
		}
		entities[offset] = entity
	}

	return entities, nil
}

// CacheStatistics returns hit/miss counters and the current entry count.
func (f *DataFile[T]) CacheStatistics() (hits uint64, misses uint64, entries int) {
	hits, misses = f.cache.Statistics()
	return hits, misses, f.cache.Len()
}

// DumpStatistics logs the cache hit rate.
func (f *DataFile[T]) DumpStatistics() {
	hits, misses, entries := f.CacheStatistics()
	total := hits + misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	sigolo.Infof("%s: %d cache entries, %d hits, %d misses (hit rate %.2f)", f.filename, entries, hits, misses, hitRate)
}
