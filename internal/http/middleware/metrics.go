package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsNamespace prefixes every HTTP series, e.g. property_filter_http_requests_total.
const metricsNamespace = "property_filter"

// unmatchedRoute labels requests that hit no registered route, so raw URLs
// never become label values.
const unmatchedRoute = "unmatched"

// httpMetrics is the collector set behind Metrics.
type httpMetrics struct {
	requests *prometheus.CounterVec   // method, route, status
	latency  *prometheus.HistogramVec // method, route
	size     *prometheus.HistogramVec // method, route
	inflight prometheus.Gauge
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)
	return &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time spent serving HTTP requests.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route"}),
		// Filtered listings range from a few hundred bytes to a few MiB.
		size: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Size of HTTP response bodies.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 9),
		}, []string{"method", "route"}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_inflight",
			Help:      "Requests currently being served.",
		}),
	}
}

var defaultHTTPMetrics = newHTTPMetrics(prometheus.DefaultRegisterer)

// Metrics records request count, latency, in-flight requests and response
// size on the default registry, which /metrics serves:
//
//	r.Use(middleware.Metrics())
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
func Metrics() gin.HandlerFunc {
	return defaultHTTPMetrics.handler()
}

func (m *httpMetrics) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.inflight.Inc()
		start := time.Now()
		defer m.inflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		labels := prometheus.Labels{"method": c.Request.Method, "route": route}

		m.latency.With(labels).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n >= 0 {
			m.size.With(labels).Observe(float64(n))
		}
		labels["status"] = strconv.Itoa(c.Writer.Status())
		m.requests.With(labels).Inc()
	}
}
