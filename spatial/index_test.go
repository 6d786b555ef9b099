package spatial_test

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"scoutdb/builder"
	"scoutdb/model"
	"scoutdb/spatial"
	"scoutdb/util"
)

func buildSampleDataset(t *testing.T) (string, *builder.Sample, *builder.BuiltRefs) {
	directory := t.TempDir()
	sample := builder.NewSample()

	refs, err := sample.Dataset.Build(directory)
	util.AssertNil(t, err)

	return directory, sample, refs
}

func sampleBound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{11.0, 48.0},
		Max: orb.Point{11.5, 48.5},
	}
}

func TestAreaNodeIndex_getOffsets(t *testing.T) {
	directory, sample, refs := buildSampleDataset(t)

	index := spatial.NewAreaNodeIndex(100)
	util.AssertNil(t, index.Load(directory))
	defer index.Close()

	offsets, err := index.GetOffsets(sampleBound(), model.NewTypeSet(sample.TypeBench), math.MaxInt)
	util.AssertNil(t, err)

	util.AssertEqual(t, []model.FileOffset{refs.NodeOffsets[sample.BenchNode]}, offsets)
}

func TestAreaNodeIndex_typeFilter(t *testing.T) {
	directory, sample, _ := buildSampleDataset(t)

	index := spatial.NewAreaNodeIndex(100)
	util.AssertNil(t, index.Load(directory))
	defer index.Close()

	// The city type has two nodes (town hall and the alias node).
	offsets, err := index.GetOffsets(sampleBound(), model.NewTypeSet(sample.TypeCity), math.MaxInt)
	util.AssertNil(t, err)
	util.AssertEqual(t, 2, len(offsets))

	// An empty type set yields nothing.
	offsets, err = index.GetOffsets(sampleBound(), model.NewTypeSet(), math.MaxInt)
	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(offsets))
}

func TestAreaNodeIndex_maxCount(t *testing.T) {
	directory, sample, _ := buildSampleDataset(t)

	index := spatial.NewAreaNodeIndex(100)
	util.AssertNil(t, index.Load(directory))
	defer index.Close()

	offsets, err := index.GetOffsets(sampleBound(), model.NewTypeSet(sample.TypeCity), 1)
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(offsets))
}

func TestAreaNodeIndex_bboxOutside(t *testing.T) {
	directory, sample, _ := buildSampleDataset(t)

	index := spatial.NewAreaNodeIndex(100)
	util.AssertNil(t, index.Load(directory))
	defer index.Close()

	outside := orb.Bound{
		Min: orb.Point{0.0, 0.0},
		Max: orb.Point{1.0, 1.0},
	}
	offsets, err := index.GetOffsets(outside, model.NewTypeSet(sample.TypeBench), math.MaxInt)
	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(offsets))
}

func TestAreaWayIndex_getOffsetsDeduplicates(t *testing.T) {
	directory, sample, refs := buildSampleDataset(t)

	index := spatial.NewAreaWayIndex(100)
	util.AssertNil(t, index.Load(directory))
	defer index.Close()

	types := []model.TypeSet{model.NewTypeSet(sample.TypeResidential)}
	offsets, err := index.GetOffsets(sampleBound(), types, math.MaxInt)
	util.AssertNil(t, err)

	// Both ways exactly once, even when listed in several tiles.
	util.AssertEqual(t, 2, len(offsets))
	seen := map[model.FileOffset]bool{}
	for _, offset := range offsets {
		util.AssertFalse(t, seen[offset])
		seen[offset] = true
	}
	util.AssertTrue(t, seen[refs.WayOffsets[sample.MainStreetWay]])
	util.AssertTrue(t, seen[refs.WayOffsets[sample.ElmStreetWay]])
}

func TestAreaAreaIndex_getOffsets(t *testing.T) {
	directory, sample, refs := buildSampleDataset(t)

	index := spatial.NewAreaAreaIndex(100)
	util.AssertNil(t, index.Load(directory))
	defer index.Close()

	offsets, err := index.GetOffsets(sampleBound(), 20, model.NewTypeSet(sample.TypeAdmin), math.MaxInt)
	util.AssertNil(t, err)

	util.AssertEqual(t, 2, len(offsets))
	seen := map[model.FileOffset]bool{}
	for _, offset := range offsets {
		seen[offset] = true
	}
	util.AssertTrue(t, seen[refs.AreaOffsets[sample.BavariaArea]])
	util.AssertTrue(t, seen[refs.AreaOffsets[sample.SpringfieldArea]])
}

func TestAreaAreaIndex_maxLevelLimitsDepth(t *testing.T) {
	directory, sample, refs := buildSampleDataset(t)

	index := spatial.NewAreaAreaIndex(100)
	util.AssertNil(t, index.Load(directory))
	defer index.Close()

	// The tiny building area lives at a deep level. A traversal down to
	// level 2 does not reach it.
	all, err := index.GetOffsets(sampleBound(), 20, model.NewTypeSet(sample.TypeBuilding), math.MaxInt)
	util.AssertNil(t, err)
	util.AssertEqual(t, []model.FileOffset{refs.AreaOffsets[sample.BuildingArea]}, all)

	shallow, err := index.GetOffsets(sampleBound(), 2, model.NewTypeSet(sample.TypeBuilding), math.MaxInt)
	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(shallow))
}

func TestWaterIndex_getRegions(t *testing.T) {
	directory, _, _ := buildSampleDataset(t)

	index := spatial.NewWaterIndex()
	util.AssertNil(t, index.Load(directory))
	defer index.Close()

	tiles, err := index.GetRegions(sampleBound(), model.MagnificationForLevel(10))
	util.AssertNil(t, err)
	util.AssertTrue(t, len(tiles) > 0)

	states := map[spatial.GroundState]int{}
	coastWithPolyline := 0
	for _, tile := range tiles {
		states[tile.State]++
		if tile.State == spatial.GroundCoast && len(tile.Coast) > 0 {
			coastWithPolyline++
		}

		// Every tile rectangle intersects the query box.
		util.AssertTrue(t, tile.Bound.Intersects(sampleBound()))
	}

	util.AssertTrue(t, states[spatial.GroundLand] > 0)
	util.AssertTrue(t, states[spatial.GroundWater] > 0)
	util.AssertEqual(t, 1, coastWithPolyline)
}

func TestOptimizeLowZoom_consumesTypes(t *testing.T) {
	directory, sample, _ := buildSampleDataset(t)

	lowZoom := spatial.NewOptimizeLowZoom(spatial.WaysOptFilename, model.ReadWay)
	util.AssertNil(t, lowZoom.Open(directory))
	defer lowZoom.Close()

	util.AssertTrue(t, lowZoom.HasOptimizations(model.MagnificationForLevel(5)))
	util.AssertFalse(t, lowZoom.HasOptimizations(model.MagnificationForLevel(12)))

	types := model.NewTypeSet(sample.TypeResidential, sample.TypeBench)
	ways, err := lowZoom.GetObjects(sampleBound(), model.MagnificationForLevel(5), math.MaxInt, types)
	util.AssertNil(t, err)

	util.AssertEqual(t, 1, len(ways))

	// The served type is consumed, unrelated types stay.
	util.AssertFalse(t, types.HasType(sample.TypeResidential))
	util.AssertTrue(t, types.HasType(sample.TypeBench))
}
