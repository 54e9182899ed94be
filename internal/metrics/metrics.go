// Package metrics exposes Prometheus instruments for the interview engine.
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

const namespace = "interview"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	sessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_started_total",
		Help:      "Interview sessions created, by difficulty",
	}, []string{"difficulty"})

	sessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_ended_total",
		Help:      "Interview sessions that reached a terminal status",
	}, []string{"status"})

	quotaDenied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_denied_total",
		Help:      "Session starts rejected by the monthly quota",
	})

	providerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_calls_total",
		Help:      "Language model calls, by operation and outcome",
	}, []string{"operation", "outcome"})

	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_call_duration_seconds",
		Help:      "Duration of language model calls in seconds",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"operation"})

	providerTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_tokens_total",
		Help:      "Tokens consumed by language model calls",
	}, []string{"operation"})
)

func SessionStarted(difficulty string) {
	sessionsStarted.WithLabelValues(difficulty).Inc()
}

func SessionEnded(status string) {
	sessionsEnded.WithLabelValues(status).Inc()
}

func QuotaDenied() {
	quotaDenied.Inc()
}

// ProviderCall records one attempt against the language model. outcome is
// "ok" or an error kind.
func ProviderCall(operation, outcome string, took time.Duration, tokens int) {
	providerCalls.WithLabelValues(operation, outcome).Inc()
	providerLatency.WithLabelValues(operation).Observe(took.Seconds())
	if tokens > 0 {
		providerTokens.WithLabelValues(operation).Add(float64(tokens))
	}
}

// Middleware records request metrics labelled by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		httpLatency.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
