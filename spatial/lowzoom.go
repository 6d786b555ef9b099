package spatial

import (
	"path"

	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"scoutdb/fileio"
	"scoutdb/model"
)

const (
	AreasOptFilename = "areasopt.dat"
	WaysOptFilename  = "waysopt.dat"
)

type boundedEntity interface {
	Bound() orb.Bound
}

// OptimizeLowZoom holds pre-simplified geometries per type for coarse
// magnifications. The whole bundle is decoded at open time; it only contains
// heavily reduced geometry.
type OptimizeLowZoom[T boundedEntity] struct {
	filename string
	decode   func(scanner *fileio.Scanner, offset model.FileOffset) (T, error)

	maxLevel uint32
	byType   map[model.TypeId][]T
	loaded   bool
}

func NewOptimizeLowZoom[T boundedEntity](filename string, decode func(scanner *fileio.Scanner, offset model.FileOffset) (T, error)) *OptimizeLowZoom[T] {
	return &OptimizeLowZoom[T]{
		filename: filename,
		decode:   decode,
	}
}

func (o *OptimizeLowZoom[T]) Open(directory string) error {
	scanner, err := fileio.NewScanner(path.Join(directory, o.filename), fileio.ModeSequential)
	if err != nil {
		return err
	}
	defer scanner.Close()

	o.maxLevel = uint32(scanner.ReadVarUint())
	o.byType = map[model.TypeId][]T{}

	typeCount := scanner.ReadVarUint()
	for t := uint64(0); t < typeCount; t++ {
		typeId := model.TypeId(scanner.ReadVarUint())
		itemCount := scanner.ReadVarUint()

		items := make([]T, 0, itemCount)
		for n := uint64(0); n < itemCount; n++ {
			offset := model.FileOffset(scanner.GetPos())
			item, err := o.decode(scanner, offset)
			if err != nil {
				return errors.Wrapf(err, "error decoding low-zoom item %d of type %d in %s", n, typeId, o.filename)
			}
			items = append(items, item)
		}

		o.byType[typeId] = items
	}

	if scanner.HasError() {
		return errors.Wrapf(scanner.Err(), "error loading low-zoom optimizations from %s", o.filename)
	}

	o.loaded = true
	return nil
}

func (o *OptimizeLowZoom[T]) Close() error {
	o.byType = nil
	o.loaded = false
	return nil
}

// HasOptimizations reports whether pre-simplified geometry exists for the
// given magnification.
func (o *OptimizeLowZoom[T]) HasOptimizations(magnification model.Magnification) bool {
	return o.loaded && len(o.byType) > 0 && magnification.Level() <= o.maxLevel
}

// GetObjects appends all pre-simplified objects of the requested types that
// intersect the bounding box, up to maxCount. Types served this way are
// removed from the given set so the fallback index does not fetch them again.
func (o *OptimizeLowZoom[T]) GetObjects(bbox orb.Bound, magnification model.Magnification, maxCount int, types model.TypeSet) ([]T, error) {
	if !o.loaded {
		return nil, errors.Errorf("low-zoom optimizations %s are not loaded", o.filename)
	}
	if !o.HasOptimizations(magnification) {
		return nil, nil
	}

	var servedTypes []model.TypeId
	types.ForEach(func(typeId model.TypeId) bool {
		if _, ok := o.byType[typeId]; ok {
			servedTypes = append(servedTypes, typeId)
		}
		return true
	})

	var objects []T
	for _, typeId := range servedTypes {
		types.RemoveType(typeId)

		for _, item := range o.byType[typeId] {
			if !item.Bound().Intersects(bbox) {
				continue
			}
			if len(objects) >= maxCount {
				return objects, nil
			}
			objects = append(objects, item)
		}
	}

	return objects, nil
}

func (o *OptimizeLowZoom[T]) DumpStatistics() {
	items := 0
	for _, typeItems := range o.byType {
		items += len(typeItems)
	}
	sigolo.Infof("%s: %d pre-simplified objects for %d types up to level %d", o.filename, items, len(o.byType), o.maxLevel)
}
