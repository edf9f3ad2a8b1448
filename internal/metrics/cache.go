package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Cache hits by cache",
	}, []string{"cache"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Cache misses by cache",
	}, []string{"cache"})

	cacheEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Live entries by cache",
	}, []string{"cache"})

	cacheStats   = make(map[string]*CacheStats)
	cacheStatsMu sync.RWMutex
)

// CacheStats holds counters for one cache.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// IncCacheHit counts a hit.
func IncCacheHit(cache string) {
	cacheHits.WithLabelValues(cache).Inc()
	updateCacheStats(cache, func(s *CacheStats) { s.Hits++ })
}

// IncCacheMiss counts a miss.
func IncCacheMiss(cache string) {
	cacheMisses.WithLabelValues(cache).Inc()
	updateCacheStats(cache, func(s *CacheStats) { s.Misses++ })
}

// SetCacheEntries records the live entry count.
func SetCacheEntries(cache string, n int) {
	cacheEntries.WithLabelValues(cache).Set(float64(n))
	updateCacheStats(cache, func(s *CacheStats) { s.Entries = n })
}

// GetCacheStats returns a copy of the counters for one cache.
func GetCacheStats(cache string) CacheStats {
	cacheStatsMu.RLock()
	defer cacheStatsMu.RUnlock()
	if s, ok := cacheStats[cache]; ok {
		return *s
	}
	return CacheStats{}
}

// ResetCacheStats zeroes the local counters. Prometheus counters are
// monotonic and are left alone.
func ResetCacheStats(cache string) {
	cacheStatsMu.Lock()
	delete(cacheStats, cache)
	cacheStatsMu.Unlock()
}

func updateCacheStats(cache string, update func(*CacheStats)) {
	cacheStatsMu.Lock()
	defer cacheStatsMu.Unlock()
	s, ok := cacheStats[cache]
	if !ok {
		s = &CacheStats{}
		cacheStats[cache] = s
	}
	update(s)
}
