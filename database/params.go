package database

import "math"

// DatabaseParameter bounds the entry counts of the LRU caches and toggles the
// per-query performance log.
type DatabaseParameter struct {
	AreaAreaIndexCacheSize int
	AreaNodeIndexCacheSize int
	NodeCacheSize          int
	WayCacheSize           int
	AreaCacheSize          int
	DebugPerformance       bool
}

func NewDatabaseParameter() DatabaseParameter {
	return DatabaseParameter{
		AreaAreaIndexCacheSize: 1000,
		AreaNodeIndexCacheSize: 1000,
		NodeCacheSize:          1000,
		WayCacheSize:           4000,
		AreaCacheSize:          4000,
		DebugPerformance:       false,
	}
}

// AreaSearchParameter configures one GetObjects query. Exceeding a maximum
// truncates the result silently.
type AreaSearchParameter struct {
	// MaxAreaLevel is the number of zoom levels beyond the current
	// magnification to descend into the area-area index.
	MaxAreaLevel uint32

	MaxNodes int
	MaxWays  int
	MaxAreas int

	UseLowZoomOptimization bool
	UseMultithreading      bool

	Breaker *Breaker
}

func NewAreaSearchParameter() AreaSearchParameter {
	return AreaSearchParameter{
		MaxAreaLevel:           4,
		MaxNodes:               2000,
		MaxWays:                10000,
		MaxAreas:               math.MaxInt,
		UseLowZoomOptimization: true,
		UseMultithreading:      false,
	}
}

func (p AreaSearchParameter) IsAborted() bool {
	return p.Breaker != nil && p.Breaker.IsAborted()
}
