package spatial

import "github.com/hauke96/sigolo/v2"

func dumpTileCacheStatistics(filename string, hits uint64, misses uint64) {
	total := hits + misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	sigolo.Infof("%s: %d tile-cache hits, %d misses (hit rate %.2f)", filename, hits, misses, hitRate)
}
