package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metric collectors
// ⭐ SSOT: collectors are registered here only
type Metrics struct {
	registry *prometheus.Registry

	// Scheduled job metrics
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec

	// External fetch metrics (polygon, ssga, wikipedia)
	FetchRequests *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Persistence metrics
	RowsWritten *prometheus.CounterVec

	// API serving metrics
	RequestDuration *prometheus.HistogramVec

	// Screen state gauges
	UniverseSize  *prometheus.GaugeVec
	ScoredSymbols *prometheus.GaugeVec
}

// New creates a Metrics instance with its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momo_job_runs_total",
			Help: "Total number of scheduled job runs",
		}, []string{"job", "status"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "momo_job_duration_seconds",
			Help:    "Scheduled job duration in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800},
		}, []string{"job"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momo_fetch_requests_total",
			Help: "Total number of external fetch requests",
		}, []string{"source", "status"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "momo_fetch_duration_seconds",
			Help:    "External fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "momo_rows_written_total",
			Help: "Total number of rows written by table",
		}, []string{"table"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "momo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		UniverseSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "momo_universe_size",
			Help: "Current number of constituents per cohort",
		}, []string{"cohort"}),
		ScoredSymbols: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "momo_scored_symbols",
			Help: "Number of symbols scored in the latest run per cohort",
		}, []string{"cohort"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.JobRuns,
		m.JobDuration,
		m.FetchRequests,
		m.FetchDuration,
		m.RowsWritten,
		m.RequestDuration,
		m.UniverseSize,
		m.ScoredSymbols,
	)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveJob records one job run. Safe to call on a nil receiver so
// callers can pass nil when metrics are disabled.
func (m *Metrics) ObserveJob(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.JobRuns.WithLabelValues(job, status).Inc()
	m.JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// ObserveFetch records one external fetch. Safe on a nil receiver.
func (m *Metrics) ObserveFetch(source string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.FetchRequests.WithLabelValues(source, status).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveRequest records one served HTTP request. Safe on a nil receiver.
func (m *Metrics) ObserveRequest(method, route string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// AddRows records rows written to a table. Safe on a nil receiver.
func (m *Metrics) AddRows(table string, n int) {
	if m == nil {
		return
	}
	m.RowsWritten.WithLabelValues(table).Add(float64(n))
}

// SetUniverseSize records the constituent count for a cohort. Safe on
// a nil receiver.
func (m *Metrics) SetUniverseSize(cohort string, n int) {
	if m == nil {
		return
	}
	m.UniverseSize.WithLabelValues(cohort).Set(float64(n))
}

// SetScoredSymbols records the scored symbol count for a cohort. Safe
// on a nil receiver.
func (m *Metrics) SetScoredSymbols(cohort string, n int) {
	if m == nil {
		return
	}
	m.ScoredSymbols.WithLabelValues(cohort).Set(float64(n))
}
