// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// Metrics instruments every request with Prometheus collectors under the
// "blog_http" prefix. Labels are method, the registered route (never the raw
// URL) and, for the request counter, the status code. Requests that matched
// no route share the "<unmatched>" route label, so scanners probing random
// paths cannot grow the series count.
//
// Requests turned away by the edge middleware before reaching a handler are
// also counted by reason in blog_http_rejected_total.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "blog"
	metricsSubsystem = "http"

	unmatchedPath = "<unmatched>"
)

// Rejection reasons for blog_http_rejected_total.
const (
	rejectRateLimited       = "rate_limited"
	rejectInvalidIdempotKey = "invalid_idempotency_key"
)

var (
	httpReqs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	// Status is left off the histograms to keep their series count low.
	httpLat = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		// A view is one small transaction; anything past a second is an outage.
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"method", "route"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "requests_inflight",
		Help:      "HTTP requests currently being served.",
	})

	httpRespSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "response_size_bytes",
		Help:      "HTTP response body size by method and route.",
		Buckets: []float64{
			64, 128, 256, 512, // counters and errors
			1 << 10, 4 << 10, 16 << 10, // short comment lists
			64 << 10, 256 << 10, 1 << 20, // long threads
		},
	}, []string{"method", "route"})

	httpRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "rejected_total",
		Help:      "Requests refused by edge middleware, by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, httpRejected)
}

// Metrics records count, latency, in-flight and response size per request.
// Mount it before the edge middleware so rejected requests are counted too.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedPath
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		// Size is -1 when no body was written (204, 304).
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}
