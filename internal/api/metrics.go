package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_collection_runs_total",
			Help: "Total number of collection runs by outcome",
		},
		[]string{"outcome"},
	)

	observationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_observations_total",
			Help: "Total number of price observations by result",
		},
		[]string{"result"},
	)
)

// prometheusMiddleware collects HTTP metrics.
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestDuration.WithLabelValues(c.Request.Method, c.FullPath(), status).Observe(duration)
		httpRequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), status).Inc()
	}
}

// recordRunMetrics updates collection counters after a run.
func recordRunMetrics(priced, errored int, failed bool) {
	outcome := "completed"
	if failed {
		outcome = "failed"
	}
	runsTotal.WithLabelValues(outcome).Inc()
	observationsTotal.WithLabelValues("priced").Add(float64(priced))
	observationsTotal.WithLabelValues("errored").Add(float64(errored))
}
