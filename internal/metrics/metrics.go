// Package metrics exposes Prometheus counters and gauges for the playback controller, the model store and the HTTP server.
//
// Every method is safe on a nil [*Metrics] so components can run without instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for a podplay process.
type Metrics struct {
	registry       *prometheus.Registry
	loadsTotal     prometheus.Counter
	loadErrors     prometheus.Counter
	endedTotal     prometheus.Counter
	activeStreams  prometheus.Gauge
	storeMessages  *prometheus.CounterVec
	droppedTotal   prometheus.Counter
	pendingQueries prometheus.Gauge
	requestsTotal  prometheus.Counter
	errorsTotal    prometheus.Counter
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podplay_sounds_loaded_total",
			Help: "Total number of streams that finished loading",
		}),
		loadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podplay_load_errors_total",
			Help: "Total number of streams that failed to load",
		}),
		endedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podplay_play_ended_total",
			Help: "Total number of streams that played to the end",
		}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "podplay_active_streams",
			Help: "Number of engine resources currently alive (0 or 1)",
		}),
		storeMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "podplay_store_messages_total",
			Help: "Total number of messages processed by the store worker",
		}, []string{"type"}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podplay_store_messages_dropped_total",
			Help: "Total number of store messages dropped because storage was unavailable or the payload was invalid",
		}),
		pendingQueries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "podplay_store_pending_queries",
			Help: "Number of get queries waiting for a response",
		}),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podplay_http_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "podplay_http_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
	}

	m.registry.MustRegister(
		m.loadsTotal,
		m.loadErrors,
		m.endedTotal,
		m.activeStreams,
		m.storeMessages,
		m.droppedTotal,
		m.pendingQueries,
		m.requestsTotal,
		m.errorsTotal,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncLoaded increments the loaded streams counter.
func (m *Metrics) IncLoaded() {
	if m == nil {
		return
	}
	m.loadsTotal.Inc()
}

// IncLoadErrors increments the load error counter.
func (m *Metrics) IncLoadErrors() {
	if m == nil {
		return
	}
	m.loadErrors.Inc()
}

// IncEnded increments the natural end counter.
func (m *Metrics) IncEnded() {
	if m == nil {
		return
	}
	m.endedTotal.Inc()
}

// SetActiveStreams sets the active streams gauge.
func (m *Metrics) SetActiveStreams(n int) {
	if m == nil {
		return
	}
	m.activeStreams.Set(float64(n))
}

// IncStoreMessage counts a message of the given type handled by the worker.
func (m *Metrics) IncStoreMessage(kind string) {
	if m == nil {
		return
	}
	m.storeMessages.WithLabelValues(kind).Inc()
}

// IncDropped increments the dropped store message counter.
func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.droppedTotal.Inc()
}

// SetPendingQueries sets the pending queries gauge.
func (m *Metrics) SetPendingQueries(n int) {
	if m == nil {
		return
	}
	m.pendingQueries.Set(float64(n))
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
}

// IncErrors increments the HTTP error counter.
func (m *Metrics) IncErrors() {
	if m == nil {
		return
	}
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			http.Error(w, "metrics disabled", http.StatusNotFound)
			return
		}
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
