package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts fresh entries served from Redis.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ree_cache_hits_total",
		Help: "Total number of REE response cache hits",
	})

	// CacheMisses counts absent or expired entries.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ree_cache_misses_total",
		Help: "Total number of REE response cache misses",
	})

	// CacheStoredBytes counts bytes written to Redis.
	CacheStoredBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ree_cache_stored_bytes_total",
		Help: "Total bytes of REE responses written to the cache",
	})

	// CacheErrors counts cache operation errors.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ree_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"}) // "get", "set", "delete"
)
