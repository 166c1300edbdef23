package mapper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_mapping_cache_hits_total",
		Help: "Schema mappings served from the persistent cache.",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_mapping_cache_misses_total",
		Help: "Schema mappings that required classification.",
	})
	heuristicFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_mapping_heuristic_fallbacks_total",
		Help: "Schema mappings produced by keyword heuristics because the classifier had no answer.",
	})
)
