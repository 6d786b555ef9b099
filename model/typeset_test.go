package model

import (
	"testing"

	"github.com/paulmach/osm"

	"scoutdb/util"
)

func TestTypeSet_basicOperations(t *testing.T) {
	set := NewTypeSet()
	util.AssertFalse(t, set.HasTypes())
	util.AssertEqual(t, 0, set.Count())

	set.SetType(3)
	set.SetType(7)
	set.SetType(3)

	util.AssertTrue(t, set.HasTypes())
	util.AssertEqual(t, 2, set.Count())
	util.AssertTrue(t, set.HasType(3))
	util.AssertTrue(t, set.HasType(7))
	util.AssertFalse(t, set.HasType(4))

	set.RemoveType(3)
	util.AssertFalse(t, set.HasType(3))
	util.AssertEqual(t, 1, set.Count())
}

func TestTypeSet_forEachAscending(t *testing.T) {
	set := NewTypeSet(9, 2, 5)

	var visited []TypeId
	set.ForEach(func(id TypeId) bool {
		visited = append(visited, id)
		return true
	})

	util.AssertEqual(t, []TypeId{2, 5, 9}, visited)
}

func TestTypeSet_forEachEarlyStop(t *testing.T) {
	set := NewTypeSet(1, 2, 3)

	var visited []TypeId
	set.ForEach(func(id TypeId) bool {
		visited = append(visited, id)
		return len(visited) < 2
	})

	util.AssertEqual(t, []TypeId{1, 2}, visited)
}

func TestTypeSet_cloneIsIndependent(t *testing.T) {
	set := NewTypeSet(1, 2)
	clone := set.Clone()

	clone.RemoveType(1)

	util.AssertTrue(t, set.HasType(1))
	util.AssertFalse(t, clone.HasType(1))
}

func TestTypeConfig_registerAndLookup(t *testing.T) {
	config := NewTypeConfig()

	benchId := config.RegisterType(TypeInfo{
		Name:      "amenity_bench",
		Tag:       osm.Tag{Key: "amenity", Value: "bench"},
		CanBeNode: true,
		Indexable: true,
	})
	roadId := config.RegisterType(TypeInfo{
		Name:        "highway_residential",
		Tag:         osm.Tag{Key: "highway", Value: "residential"},
		CanBeWay:    true,
		CanRouteCar: true,
	})

	util.AssertEqual(t, TypeId(1), benchId)
	util.AssertEqual(t, TypeId(2), roadId)
	util.AssertEqual(t, roadId, config.MaxTypeId())

	util.AssertEqual(t, benchId, config.GetTypeIdForTag("amenity", "bench"))
	util.AssertEqual(t, TypeIgnore, config.GetTypeIdForTag("amenity", "fountain"))
	util.AssertEqual(t, TypeIgnore, config.GetTypeIdForTag("building", "yes"))

	info, err := config.GetTypeInfo(roadId)
	util.AssertNil(t, err)
	util.AssertTrue(t, info.CanRoute(VehicleCar))
	util.AssertFalse(t, info.CanRoute(VehicleFoot))

	_, err = config.GetTypeInfo(99)
	util.AssertNotNil(t, err)
}

func TestTypeSetOf_filtersByPredicate(t *testing.T) {
	config := NewTypeConfig()
	config.RegisterType(TypeInfo{Name: "a", Tag: osm.Tag{Key: "k", Value: "a"}, CanRouteFoot: true})
	config.RegisterType(TypeInfo{Name: "b", Tag: osm.Tag{Key: "k", Value: "b"}})
	config.RegisterType(TypeInfo{Name: "c", Tag: osm.Tag{Key: "k", Value: "c"}, CanRouteFoot: true})

	routable := NewTypeSetOf(config, func(info TypeInfo) bool {
		return info.CanRoute(VehicleFoot)
	})

	util.AssertEqual(t, 2, routable.Count())
	util.AssertTrue(t, routable.HasType(1))
	util.AssertFalse(t, routable.HasType(2))
	util.AssertTrue(t, routable.HasType(3))
}
