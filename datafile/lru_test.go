package datafile

import (
	"testing"

	"scoutdb/util"
)

func TestLRUCache_insertAndEviction(t *testing.T) {
	cache := NewLRUCache[string, int](3)

	util.AssertFalse(t, cache.Has("A"))

	cache.Insert("A", 1)
	cache.Insert("B", 2)
	cache.Insert("C", 3)

	util.AssertTrue(t, cache.Has("A"))
	util.AssertTrue(t, cache.Has("B"))
	util.AssertTrue(t, cache.Has("C"))
	util.AssertEqual(t, 3, cache.Len())

	// "A" is the least recently used entry and gets evicted.
	cache.Insert("D", 4)

	util.AssertFalse(t, cache.Has("A"))
	util.AssertTrue(t, cache.Has("B"))
	util.AssertTrue(t, cache.Has("C"))
	util.AssertTrue(t, cache.Has("D"))
	util.AssertEqual(t, 3, cache.Len())
}

func TestLRUCache_getMovesToMostRecent(t *testing.T) {
	cache := NewLRUCache[string, int](3)

	cache.Insert("A", 1)
	cache.Insert("B", 2)
	cache.Insert("C", 3)

	// Touching "A" makes "B" the eviction victim.
	value, ok := cache.Get("A")
	util.AssertTrue(t, ok)
	util.AssertEqual(t, 1, value)

	cache.Insert("D", 4)

	util.AssertTrue(t, cache.Has("A"))
	util.AssertFalse(t, cache.Has("B"))
	util.AssertTrue(t, cache.Has("C"))
	util.AssertTrue(t, cache.Has("D"))
}

func TestLRUCache_getMissing(t *testing.T) {
	cache := NewLRUCache[string, int](3)

	value, ok := cache.Get("A")
	util.AssertFalse(t, ok)
	util.AssertEqual(t, 0, value)
}

func TestLRUCache_insertExistingDoesNotEvict(t *testing.T) {
	cache := NewLRUCache[string, int](2)

	cache.Insert("A", 1)
	cache.Insert("B", 2)
	cache.Insert("A", 10)

	util.AssertTrue(t, cache.Has("A"))
	util.AssertTrue(t, cache.Has("B"))

	value, ok := cache.Get("A")
	util.AssertTrue(t, ok)
	util.AssertEqual(t, 10, value)
}

func TestLRUCache_flushKeepsStatistics(t *testing.T) {
	cache := NewLRUCache[string, int](3)

	cache.Insert("A", 1)
	cache.Get("A")
	cache.Get("B")

	cache.Flush()

	util.AssertEqual(t, 0, cache.Len())
	util.AssertFalse(t, cache.Has("A"))

	hits, misses := cache.Statistics()
	util.AssertEqual(t, uint64(1), hits)
	util.AssertEqual(t, uint64(1), misses)
}

func TestLRUCache_neverExceedsMaxSize(t *testing.T) {
	cache := NewLRUCache[int, int](5)

	for i := 0; i < 100; i++ {
		cache.Insert(i, i)
		util.AssertTrue(t, cache.Len() <= 5)
	}
}
