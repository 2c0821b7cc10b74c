// Package metrics exposes Prometheus collectors for the relay service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	relayEventsTotal           *prometheus.CounterVec
	relayRemoteCallsTotal      *prometheus.CounterVec
	relayRemoteCallSeconds     *prometheus.HistogramVec
	relayRetryExhaustedTotal   *prometheus.CounterVec
	relayCompletionTokensTotal *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		relayEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_events_total",
				Help: "Total webhook events processed, labeled by action and outcome.",
			},
			[]string{"action", "outcome"},
		)

		relayRemoteCallsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_remote_calls_total",
				Help: "Total outbound content-service calls, labeled by operation and status.",
			},
			[]string{"operation", "status"},
		)

		relayRemoteCallSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_remote_call_duration_seconds",
				Help:    "Histogram of content-service call latencies, labeled by operation.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"operation"},
		)

		relayRetryExhaustedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_retry_exhausted_total",
				Help: "Total retry loops that exhausted all attempts, labeled by operation.",
			},
			[]string{"operation"},
		)

		relayCompletionTokensTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_completion_tokens_total",
				Help: "Total completion-service tokens consumed, labeled by kind.",
			},
			[]string{"kind"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveEvent increments the event counter for an action/outcome pair.
func ObserveEvent(action, outcome string) {
	Init()
	relayEventsTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveRemoteCall records one outbound content-service call.
func ObserveRemoteCall(operation, status string, duration time.Duration) {
	Init()
	relayRemoteCallsTotal.WithLabelValues(operation, status).Inc()
	relayRemoteCallSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveRetryExhausted increments the exhaustion counter for an operation.
func ObserveRetryExhausted(operation string) {
	Init()
	relayRetryExhaustedTotal.WithLabelValues(operation).Inc()
}

// ObserveCompletionTokens records completion-service token usage.
func ObserveCompletionTokens(promptTokens, completionTokens int) {
	Init()
	if promptTokens > 0 {
		relayCompletionTokensTotal.WithLabelValues("prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		relayCompletionTokensTotal.WithLabelValues("completion").Add(float64(completionTokens))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
