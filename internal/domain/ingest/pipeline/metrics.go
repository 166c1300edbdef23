package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_rows_imported_total",
		Help: "Rows that passed validation and entity resolution.",
	})
	rowsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_rows_failed_total",
		Help: "Rows rejected during validation or entity resolution.",
	})
)
