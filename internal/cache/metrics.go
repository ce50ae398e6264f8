package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LookupsTotal counts cache-aside lookups by outcome: hit, miss, bypass (store down), error.
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffhub_cache_lookups_total",
			Help: "Cache-aside lookups by outcome",
		},
		[]string{"outcome"},
	)

	// StoreErrorsTotal counts store failures swallowed by the accessor.
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staffhub_cache_store_errors_total",
			Help: "Store errors absorbed by the cache accessor",
		},
		[]string{"op"},
	)

	// PatternKeysDeletedTotal counts member keys removed through pattern invalidation.
	PatternKeysDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staffhub_cache_pattern_keys_deleted_total",
			Help: "Keys removed by pattern invalidation",
		},
	)
)
