package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	messagesProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_messages_processed_total",
			Help: "Total number of settlement messages by disposition",
		},
		[]string{"outcome"},
	)

	expectationsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expectations_created_total",
			Help: "Total number of expectations recorded by analysis method",
		},
		[]string{"method"},
	)

	reasoningDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reasoning_request_duration_seconds",
			Help:    "Reasoning capability call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation", "outcome"},
	)

	circuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"name"},
	)

	consumerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "settlement_consumer_state",
			Help: "Consumer lifecycle state (0 disconnected, 1 connected, 2 consuming, 3 draining, 4 stopped)",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(messagesProcessedTotal)
	prometheus.MustRegister(expectationsCreatedTotal)
	prometheus.MustRegister(reasoningDuration)
	prometheus.MustRegister(circuitBreakerState)
	prometheus.MustRegister(consumerState)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordMessageOutcome(outcome string) {
	messagesProcessedTotal.WithLabelValues(outcome).Inc()
}

func RecordExpectationCreated(method string) {
	expectationsCreatedTotal.WithLabelValues(method).Inc()
}

func ObserveReasoning(operation string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	reasoningDuration.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
}

func SetCircuitBreakerState(name string, state int) {
	circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func SetConsumerState(state int) {
	consumerState.Set(float64(state))
}
