// Package metrics exposes perfdash Prometheus metrics.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NavarchProject/perfdash/pkg/perf"
	"github.com/NavarchProject/perfdash/pkg/store"
)

// PrometheusMetrics provides Prometheus metrics for the server and dashboard.
type PrometheusMetrics struct {
	db store.DB

	// Store metrics
	runsTotal   prometheus.Gauge
	releaseTags prometheus.Gauge

	// Request metrics
	apiRequests   *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	staleResults  prometheus.Counter
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance. database may
// be nil when the server does not own a store.
func NewPrometheusMetrics(database store.DB) *PrometheusMetrics {
	return &PrometheusMetrics{
		db: database,
		runsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "perfdash_runs_total",
				Help: "Total number of stored performance runs",
			},
		),
		releaseTags: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "perfdash_release_tags",
				Help: "Number of distinct release tags among stored runs",
			},
		),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "perfdash_api_requests_total",
				Help: "Total number of API requests by route and status code",
			},
			[]string{"route", "code"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "perfdash_fetch_duration_seconds",
				Help:    "Duration of dashboard row fetches by outcome",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		staleResults: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "perfdash_stale_results_total",
				Help: "Total number of fetch results discarded because a newer request was issued",
			},
		),
	}
}

// Describe implements prometheus.Collector.
func (pm *PrometheusMetrics) Describe(ch chan<- *prometheus.Desc) {
	pm.runsTotal.Describe(ch)
	pm.releaseTags.Describe(ch)
	pm.apiRequests.Describe(ch)
	pm.fetchDuration.Describe(ch)
	pm.staleResults.Describe(ch)
}

// Collect implements prometheus.Collector and updates store metrics from the database.
func (pm *PrometheusMetrics) Collect(ch chan<- prometheus.Metric) {
	if pm.db != nil {
		pm.collectStoreMetrics(context.Background())
		pm.runsTotal.Collect(ch)
		pm.releaseTags.Collect(ch)
	}
	pm.apiRequests.Collect(ch)
	pm.fetchDuration.Collect(ch)
	pm.staleResults.Collect(ch)
}

func (pm *PrometheusMetrics) collectStoreMetrics(ctx context.Context) {
	runs, err := pm.db.ListRuns(ctx, perf.Criteria{})
	if err != nil {
		return
	}

	tags := make(map[string]struct{})
	for _, r := range runs {
		if r.ReleaseTag != "" {
			tags[r.ReleaseTag] = struct{}{}
		}
	}
	pm.runsTotal.Set(float64(len(runs)))
	pm.releaseTags.Set(float64(len(tags)))
}

// RecordAPIRequest counts a served API request.
func (pm *PrometheusMetrics) RecordAPIRequest(route string, code int) {
	pm.apiRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveFetch records the duration of a dashboard fetch.
func (pm *PrometheusMetrics) ObserveFetch(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	pm.fetchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordStale counts a discarded stale fetch result.
func (pm *PrometheusMetrics) RecordStale() {
	pm.staleResults.Inc()
}
