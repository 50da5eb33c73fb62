package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the playback coordinator.
type Metrics struct {
	registry                     *prometheus.Registry
	requestsTotal                prometheus.Counter
	errorsTotal                  prometheus.Counter
	engineEventsTotal            prometheus.Counter
	resumeSuccessTotal           prometheus.Counter
	resumeFailedTotal            prometheus.Counter
	resumeRetriesTotal           prometheus.Counter
	manifestOffsetsCapturedTotal prometheus.Counter
	bufferingTimeoutsTotal       prometheus.Counter
	activeSessions               prometheus.Gauge
}

// New creates and registers Prometheus metrics for the coordinator.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_http_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	engineEventsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_engine_events_total",
		Help: "Total number of engine events accepted by orchestrators",
	})
	resumeSuccessTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_resume_success_total",
		Help: "Total number of resume flows that restored the start position",
	})
	resumeFailedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_resume_failed_total",
		Help: "Total number of resume flows that exhausted all retries",
	})
	resumeRetriesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_resume_retries_total",
		Help: "Total number of resume retry attempts performed",
	})
	manifestOffsetsCapturedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_manifest_offsets_captured_total",
		Help: "Total number of HLS manifest rebases detected and compensated",
	})
	bufferingTimeoutsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "playback_buffering_timeouts_total",
		Help: "Total number of buffering watchdog expirations",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "playback_active_sessions",
		Help: "Number of registered playback sessions",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		engineEventsTotal,
		resumeSuccessTotal,
		resumeFailedTotal,
		resumeRetriesTotal,
		manifestOffsetsCapturedTotal,
		bufferingTimeoutsTotal,
		activeSessions,
	)

	return &Metrics{
		registry:                     registry,
		requestsTotal:                requestsTotal,
		errorsTotal:                  errorsTotal,
		engineEventsTotal:            engineEventsTotal,
		resumeSuccessTotal:           resumeSuccessTotal,
		resumeFailedTotal:            resumeFailedTotal,
		resumeRetriesTotal:           resumeRetriesTotal,
		manifestOffsetsCapturedTotal: manifestOffsetsCapturedTotal,
		bufferingTimeoutsTotal:       bufferingTimeoutsTotal,
		activeSessions:               activeSessions,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the HTTP error counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncEngineEvents increments the accepted engine event counter.
func (m *Metrics) IncEngineEvents() {
	m.engineEventsTotal.Inc()
}

// IncResumeSuccess increments the successful resume counter.
func (m *Metrics) IncResumeSuccess() {
	m.resumeSuccessTotal.Inc()
}

// IncResumeFailed increments the failed resume counter.
func (m *Metrics) IncResumeFailed() {
	m.resumeFailedTotal.Inc()
}

// AddResumeRetries adds n to the resume retry counter.
func (m *Metrics) AddResumeRetries(n int) {
	if n > 0 {
		m.resumeRetriesTotal.Add(float64(n))
	}
}

// IncManifestOffsetsCaptured increments the manifest rebase counter.
func (m *Metrics) IncManifestOffsetsCaptured() {
	m.manifestOffsetsCapturedTotal.Inc()
}

// IncBufferingTimeouts increments the buffering watchdog counter.
func (m *Metrics) IncBufferingTimeouts() {
	m.bufferingTimeoutsTotal.Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values
// (e.g. active sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
