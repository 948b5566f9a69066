// Package metrics exposes Prometheus instrumentation for the HTTP API, the
// realtime fan-out and the status update service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the server registers.
type Metrics struct {
	gatherer prometheus.Gatherer

	statusUpdates    *prometheus.CounterVec
	eventsDelivered  prometheus.Counter
	eventsDropped    prometheus.Counter
	subscribers      prometheus.Gauge
	requestDurations *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		statusUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "faculty_status_updates_total",
			Help: "status update requests by result",
		}, []string{"result"}),
		eventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "faculty_realtime_events_delivered_total",
			Help: "status events handed to realtime subscribers",
		}),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "faculty_realtime_events_dropped_total",
			Help: "status events skipped because a subscriber buffer was full",
		}),
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "faculty_realtime_subscribers",
			Help: "number of connected realtime subscribers",
		}),
		requestDurations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "faculty_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
}

// StatusUpdate counts one status update outcome.
func (m *Metrics) StatusUpdate(result string) {
	m.statusUpdates.WithLabelValues(result).Inc()
}

func (m *Metrics) Delivered() { m.eventsDelivered.Inc() }

func (m *Metrics) Dropped() { m.eventsDropped.Inc() }

func (m *Metrics) Subscribers(n int) { m.subscribers.Set(float64(n)) }

// Middleware observes request latency. Unmatched routes share one label.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDurations.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
