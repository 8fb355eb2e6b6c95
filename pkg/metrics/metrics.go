package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Storage metrics
	MapSizeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexdb_map_size_bytes",
			Help: "Configured map size of the open environment in bytes",
		},
	)

	MapGrowthsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "indexdb_map_growths_total",
			Help: "Total number of times the environment map size was doubled",
		},
	)

	MapFullRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "indexdb_map_full_retries_total",
			Help: "Total number of write retries triggered by a MapFull condition",
		},
	)

	DBIKeyCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexdb_dbi_keys_total",
			Help: "Number of keys in a sub-database, by name",
		},
		[]string{"dbi"},
	)

	// Ingestion metrics
	UnitsImportedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexdb_units_imported_total",
			Help: "Total number of unit imports by outcome (uptodate, stale, missing)",
		},
		[]string{"outcome"},
	)

	UnitImportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indexdb_unit_import_duration_seconds",
			Help:    "Time taken to import a single unit",
			Buckets: prometheus.DefBuckets,
		},
	)

	UnitsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "indexdb_units_deleted_total",
			Help: "Total number of units removed because their artifact vanished",
		},
	)

	EventQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexdb_event_queue_depth",
			Help: "Number of unit events currently queued for processing",
		},
	)

	EventsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexdb_events_processed_total",
			Help: "Total number of unit events processed by kind",
		},
		[]string{"kind"},
	)

	// Out-of-date tracking
	UnitsOutOfDateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "indexdb_units_out_of_date_total",
			Help: "Total number of out-of-date notifications delivered",
		},
	)

	// Query metrics
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indexdb_query_duration_seconds",
			Help:    "Query latency by query kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexdb_queries_total",
			Help: "Total number of queries served by kind",
		},
		[]string{"query"},
	)

	// Visibility
	VisibilityCacheFlushesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "indexdb_visibility_cache_flushes_total",
			Help: "Total number of times the root-reachability cache was flushed",
		},
	)

	// Background workdir cleanup
	CleanupSweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indexdb_cleanup_sweep_duration_seconds",
			Help:    "Time taken to sweep stale pid-scoped workdirs across all registered roots",
			Buckets: prometheus.DefBuckets,
		},
	)

	CleanupSweepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "indexdb_cleanup_sweeps_total",
			Help: "Total number of background workdir cleanup sweeps run",
		},
	)
)

func init() {
	prometheus.MustRegister(
		MapSizeBytes,
		MapGrowthsTotal,
		MapFullRetriesTotal,
		DBIKeyCount,
		UnitsImportedTotal,
		UnitImportDuration,
		UnitsDeletedTotal,
		EventQueueDepth,
		EventsProcessedTotal,
		UnitsOutOfDateTotal,
		QueryDuration,
		QueriesTotal,
		VisibilityCacheFlushesTotal,
		CleanupSweepDuration,
		CleanupSweepsTotal,
	)
}

// Handler returns the Prometheus HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
