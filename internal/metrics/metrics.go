// Package metrics exports Prometheus metrics for focus transitions, the event
// hub and the HTTP API.
//
// Each Metrics value owns its registry, so several can coexist in one process:
//
//	m := metrics.New()
//	manager.AddObserver(m)
//	hub.OnSubscribersChanged(m.SetSubscribers)
//	router.Use(metrics.Middleware(m))
//	router.GET("/metrics", gin.WrapH(m.Handler()))
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskfocus/taskfocus/internal/focus"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Focus metrics
	Transitions        *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	WindowErrors       *prometheus.CounterVec
	VisiblePanels      prometheus.Gauge

	// WebSocket metrics
	Subscribers prometheus.Gauge

	// HTTP metrics
	RequestsTotal *prometheus.CounterVec
}

// New creates a metrics collector with its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskfocus_transitions_total",
				Help: "Total number of focus transitions",
			},
			[]string{"op", "tier", "result"},
		),
		TransitionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskfocus_transition_duration_seconds",
				Help:    "Focus transition duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"op"},
		),
		WindowErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskfocus_window_errors_total",
				Help: "Total number of window-system failures",
			},
			[]string{"op"},
		),
		VisiblePanels: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskfocus_visible_panels",
				Help: "Number of focus panels currently visible",
			},
		),
		Subscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "taskfocus_ws_subscribers",
				Help: "Number of connected event subscribers",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskfocus_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

// ObserveTransition records a completed focus transition
func (m *Metrics) ObserveTransition(t focus.Transition) {
	result := "success"
	if t.Err != nil {
		result = "error"
		m.WindowErrors.WithLabelValues(string(t.Op)).Inc()
	}
	m.Transitions.WithLabelValues(string(t.Op), t.Tier.String(), result).Inc()
	m.TransitionDuration.WithLabelValues(string(t.Op)).Observe(t.Took.Seconds())
	m.VisiblePanels.Set(float64(t.VisiblePanels))
}

// SetSubscribers updates the subscriber gauge
func (m *Metrics) SetSubscribers(n int) {
	m.Subscribers.Set(float64(n))
}

// RecordHTTPRequest counts one served request
func (m *Metrics) RecordHTTPRequest(method, path, status string) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// Registry returns the registry backing these metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var _ focus.Observer = (*Metrics)(nil)
