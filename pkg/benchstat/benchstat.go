// pkg/benchstat/benchstat.go
// Package benchstat aggregates per-operation timing into Prometheus
// metrics and renders a final textual report, grounded on
// ssargent-freyjadb's pkg/api/metrics.go (promauto counter/histogram
// construction) but scoped to a single benchmark run instead of a long-
// lived HTTP server — there is no metrics endpoint here, only the
// end-of-run text dump spec section 6 asks the driver to print.
package benchstat

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds every counter/histogram one benchmark run reports.
// Built on its own registry (rather than the global default one
// promauto normally targets) so a process can run more than one
// benchmark — or a test can construct more than one Metrics — without
// tripping Prometheus's duplicate-registration panic.
type Metrics struct {
	registry *prometheus.Registry

	opDuration    *prometheus.HistogramVec
	opsTotal      *prometheus.CounterVec
	htmFallbacks  *prometheus.CounterVec
	htmRetries    *prometheus.CounterVec
	checkFailures prometheus.Counter
}

// NewMetrics constructs and registers the metric set for variant (one of
// "single", "olc", "htm", "coarse"), stamped on every series as a label
// so a future run comparing variants in one registry stays distinguishable.
func NewMetrics(variant string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		opDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bptree_operation_duration_seconds",
				Help:    "Duration of a single tree operation.",
				Buckets: prometheus.ExponentialBuckets(1e-7, 4, 12),
				ConstLabels: prometheus.Labels{
					"variant": variant,
				},
			},
			[]string{"op"},
		),
		opsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bptree_operations_total",
				Help: "Total tree operations completed, by type.",
				ConstLabels: prometheus.Labels{
					"variant": variant,
				},
			},
			[]string{"op"},
		),
		htmFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bptree_htm_fallbacks_total",
				Help: "Operations that exhausted the HTM retry budget and fell back to the latched path.",
				ConstLabels: prometheus.Labels{
					"variant": variant,
				},
			},
			[]string{"op"},
		),
		htmRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bptree_htm_retries_total",
				Help: "HTM transaction attempts that aborted, by abort cause bucket.",
				ConstLabels: prometheus.Labels{
					"variant": variant,
				},
			},
			[]string{"op", "cause"},
		),
		checkFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bptree_check_tree_failures_total",
				Help: "checkTree() invariant failures observed during the run.",
				ConstLabels: prometheus.Labels{
					"variant": variant,
				},
			},
		),
	}
	return m
}

// ObserveOp records one completed operation's latency and increments its
// completion counter.
func (m *Metrics) ObserveOp(op string, d time.Duration) {
	m.opDuration.WithLabelValues(op).Observe(d.Seconds())
	m.opsTotal.WithLabelValues(op).Inc()
}

// ObserveFallback adds count operations that exhausted their HTM retry
// budget and completed on the latched path.
func (m *Metrics) ObserveFallback(op string, count int32) {
	if count <= 0 {
		return
	}
	m.htmFallbacks.WithLabelValues(op).Add(float64(count))
}

// ObserveRetryHistogram adds a completed HTM histogram snapshot (indexed
// by abort-cause bucket) to the running totals for op.
func (m *Metrics) ObserveRetryHistogram(op string, causeName func(i int) string, counts *[18]uint32) {
	for i, c := range counts {
		if c == 0 {
			continue
		}
		m.htmRetries.WithLabelValues(op, causeName(i)).Add(float64(c))
	}
}

// ObserveCheckFailure records one checkTree() invariant violation.
func (m *Metrics) ObserveCheckFailure() {
	m.checkFailures.Inc()
}

// WriteReport renders every registered metric family in Prometheus's
// text exposition format to w — the driver's end-of-run report, not a
// scrape endpoint (spec section 6 explicitly excludes standing up an
// HTTP server for this).
func (m *Metrics) WriteReport(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
