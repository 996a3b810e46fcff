package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/newthinker/signalbook/internal/core"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Signal metrics
	actionsAppended *prometheus.CounterVec
	signalResults   *prometheus.CounterVec
	signals         *prometheus.GaugeVec
	archiveWritten  prometheus.Counter
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.actionsAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbook_actions_appended_total",
			Help: "Total number of actions appended to signal logs",
		},
		[]string{"type"},
	)
	r.signalResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalbook_signal_results_total",
			Help: "Total number of signals closed, by result",
		},
		[]string{"result"},
	)
	r.signals = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "signalbook_signals",
			Help: "Number of stored signals, by state",
		},
		[]string{"state"},
	)
	r.archiveWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signalbook_archive_written_total",
			Help: "Total number of closed signals written to the archive",
		},
	)

	reg.MustRegister(r.actionsAppended)
	reg.MustRegister(r.signalResults)
	reg.MustRegister(r.signals)
	reg.MustRegister(r.archiveWritten)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordAction records an appended action.
func (r *Registry) RecordAction(t core.ActionType) {
	r.actionsAppended.WithLabelValues(string(t)).Inc()
}

// RecordResult records a signal reaching its terminal result.
func (r *Registry) RecordResult(result core.SignalResult) {
	r.signalResults.WithLabelValues(string(result)).Inc()
}

// SetSignals sets the number of stored signals in a state.
func (r *Registry) SetSignals(state core.SignalState, count int) {
	r.signals.WithLabelValues(string(state)).Set(float64(count))
}

// RecordArchived adds n archived signals.
func (r *Registry) RecordArchived(n int) {
	r.archiveWritten.Add(float64(n))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
