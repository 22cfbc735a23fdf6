// Package metrics exposes Prometheus collectors for tool dispatch, the session
// pool and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tool call outcomes.
const (
	OutcomeCollected = "collected"
	OutcomeNotice    = "notice"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomePanic     = "panic"
)

var (
	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webpilot_tool_calls_total",
			Help: "Total number of tool calls by outcome",
		},
		[]string{"tool", "outcome"},
	)

	toolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webpilot_tool_call_duration_seconds",
			Help:    "Tool call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"tool"},
	)

	toolRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webpilot_tool_retries_total",
			Help: "Total number of transient-fault retries",
		},
		[]string{"tool"},
	)

	poolSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "webpilot_pool_sessions",
			Help: "Number of live browser handles in the session pool",
		},
	)

	poolProvisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webpilot_pool_provisions_total",
			Help: "Total number of browser handle provisioning attempts",
		},
		[]string{"status"},
	)

	poolEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webpilot_pool_evictions_total",
			Help: "Total number of pool evictions by reason",
		},
		[]string{"reason"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webpilot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webpilot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webpilot_llm_tokens_total",
			Help: "Total number of LLM tokens",
		},
		[]string{"model", "type"},
	)
)

// RecordToolCall records a finished tool call
func RecordToolCall(tool, outcome string, duration time.Duration) {
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
	toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordToolRetry records a retry after a transient page fault
func RecordToolRetry(tool string) {
	toolRetriesTotal.WithLabelValues(tool).Inc()
}

// SetPoolSessions sets the current pool size
func SetPoolSessions(n int) {
	poolSessions.Set(float64(n))
}

// RecordProvision records a provisioning attempt
func RecordProvision(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	poolProvisionsTotal.WithLabelValues(status).Inc()
}

// RecordEviction records a pool eviction
func RecordEviction(reason string) {
	poolEvictionsTotal.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLLMTokens records token usage reported by a completion
func RecordLLMTokens(model string, promptTokens, completionTokens int) {
	llmTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	llmTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
}

// Handler returns the scrape handler for the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
