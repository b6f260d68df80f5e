package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caplink-proto/caplink/pkg/wire"
)

var (
	caplinkRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caplink_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	caplinkRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caplink_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	caplinkDispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caplink_dispatch_total",
		Help: "Total protocol dispatches by request kind and outcome.",
	}, []string{"kind", "outcome"})
)

// PrometheusMiddleware returns a gin middleware that records per-request
// metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		caplinkRequestsTotal.WithLabelValues(method, path, status).Inc()
		caplinkRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordDispatch records one protocol dispatch outcome.
func RecordDispatch(kind wire.Kind, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	caplinkDispatchTotal.WithLabelValues(string(kind), outcome).Inc()
}
