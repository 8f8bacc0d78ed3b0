package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by namespace (titles, courses)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttb_cache_hits_total",
			Help: "Total number of timetable cache hits",
		},
		[]string{"namespace"},
	)

	// CacheMisses tracks cache misses by namespace
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttb_cache_misses_total",
			Help: "Total number of timetable cache misses",
		},
		[]string{"namespace"},
	)

	// CacheStores tracks successful writes
	CacheStores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttb_cache_stores_total",
			Help: "Total number of responses stored in the timetable cache",
		},
		[]string{"namespace"},
	)

	// CacheStoredBytes tracks the number of body bytes written
	CacheStoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ttb_cache_stored_bytes_total",
			Help: "Total number of response bytes written to the timetable cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttb_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "stats"
	)
)
