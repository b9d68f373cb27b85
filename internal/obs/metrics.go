package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters/histograms exported around every
// catalog-blocking boundary: one set of query counters per entry
// point, plus the per-wave/per-iteration detail the IVFADC batch
// search and cluster_pq operations need.
type Metrics struct {
	// QueriesTotal and QueryErrorsTotal are labeled by entry point:
	// "pq_search", "ivfadc_search", "ivfadc_batch_search",
	// "pq_search_in", "pq_search_in_cplx", "cluster_pq",
	// "grouping_pq", "insert_batch".
	QueriesTotal     *prometheus.CounterVec
	QueryErrorsTotal *prometheus.CounterVec
	QueryLatency     *prometheus.HistogramVec

	// BatchWaves is registered for ivfadc_batch_search's wave loop
	// iterations. No code in this module updates it (search.Batch
	// takes no Metrics), so it stays at zero.
	BatchWaves prometheus.Counter
	// BatchCellsPerWave is registered for the number of distinct
	// coarse cells one wave's coalesced fetch covers. Like BatchWaves,
	// nothing in this module observes into it.
	BatchCellsPerWave prometheus.Histogram

	// ClusterIterations counts completed Lloyd iterations across all
	// cluster_pq calls (fixed at 10 per call, so this also works as a
	// call-count proxy divided by 10).
	ClusterIterations prometheus.Counter

	// InsertedTerms counts individual terms committed by
	// insert_batch, and InsertBatchErrors counts whole-batch rollbacks.
	InsertedTerms     prometheus.Counter
	InsertBatchErrors prometheus.Counter
}

// NewMetrics registers and returns the engine's metrics against the
// default Prometheus registry via promauto.
func NewMetrics() *Metrics {
	return &Metrics{
		QueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ivfadc_queries_total",
			Help: "Total queries handled, labeled by entry point.",
		}, []string{"entry_point"}),
		QueryErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ivfadc_query_errors_total",
			Help: "Total query failures, labeled by entry point and error code.",
		}, []string{"entry_point", "code"}),
		QueryLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ivfadc_query_latency_seconds",
			Help:    "Query latency in seconds, labeled by entry point.",
			Buckets: prometheus.DefBuckets,
		}, []string{"entry_point"}),
		BatchWaves: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ivfadc_batch_waves_total",
			Help: "Total ivfadc_batch_search wave iterations across all calls.",
		}),
		BatchCellsPerWave: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ivfadc_batch_cells_per_wave",
			Help:    "Distinct coarse cells coalesced into one wave's catalog fetch.",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		}),
		ClusterIterations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ivfadc_cluster_iterations_total",
			Help: "Total Lloyd iterations completed across all cluster_pq calls.",
		}),
		InsertedTerms: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ivfadc_inserted_terms_total",
			Help: "Total terms successfully committed by insert_batch.",
		}),
		InsertBatchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ivfadc_insert_batch_errors_total",
			Help: "Total insert_batch calls that rolled back.",
		}),
	}
}

// ObserveQuery records one entry-point invocation's outcome and
// latency. errCode labels QueryErrorsTotal when non-empty (the
// caller passes ivfadcerr.Code.String()); a successful call passes
// an empty errCode and only increments QueriesTotal/QueryLatency.
func (m *Metrics) ObserveQuery(entryPoint string, seconds float64, errCode string) {
	m.QueriesTotal.WithLabelValues(entryPoint).Inc()
	m.QueryLatency.WithLabelValues(entryPoint).Observe(seconds)
	if errCode != "" {
		m.QueryErrorsTotal.WithLabelValues(entryPoint, errCode).Inc()
	}
}
