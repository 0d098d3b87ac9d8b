package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RowsProcessed    *prometheus.CounterVec
	MatchesByRule    *prometheus.CounterVec
	ImportDuration   prometheus.Histogram
	DynamicPayloadSz prometheus.Histogram
}

// New creates and registers all Prometheus metrics on the given registerer.
// Passing a fresh registry keeps tests isolated from the default one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RowsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_import_rows_total",
			Help: "Rows processed during imports, partitioned by outcome.",
		}, []string{"outcome"}),
		MatchesByRule: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_matches_total",
			Help: "Match verdicts, partitioned by the rule that fired.",
		}, []string{"rule"}),
		ImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "registry_import_duration_seconds",
			Help:    "Wall-clock duration of whole-batch imports.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		DynamicPayloadSz: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "registry_dynamic_payload_bytes",
			Help:    "Serialized size of per-row dynamic attribute payloads.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 9),
		}),
	}
}

// RowOutcome labels for RowsProcessed.
const (
	OutcomeNew     = "new_record"
	OutcomeMatched = "matched"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// ObserveRow records one processed row by outcome.
func (m *Metrics) ObserveRow(outcome string) {
	if m == nil {
		return
	}
	m.RowsProcessed.WithLabelValues(outcome).Inc()
}

// ObservePayload records the serialized dynamic-attribute size of one row.
// Rows without dynamic attributes are not observed.
func (m *Metrics) ObservePayload(bytes int) {
	if m == nil || bytes <= 0 {
		return
	}
	m.DynamicPayloadSz.Observe(float64(bytes))
}

// ObserveMatch records a verdict by rule name.
func (m *Metrics) ObserveMatch(rule string) {
	if m == nil {
		return
	}
	m.MatchesByRule.WithLabelValues(rule).Inc()
}
