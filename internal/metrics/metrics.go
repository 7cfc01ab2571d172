// Package metrics exposes Prometheus collectors for the leads service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
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
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30, 60},
		},
		[]string{"method", "route"},
	)

	httpRateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter, labeled by route.",
		},
		[]string{"route"},
	)

	leadsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_created_total",
			Help: "Total number of lead submissions that reached persistence, labeled by analysis outcome.",
		},
		[]string{"analysis"},
	)

	leadsContinueRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_continue_requests_total",
			Help: "Total number of continuation requests, labeled by result.",
		},
		[]string{"result"},
	)

	pagespeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagespeed_requests_total",
			Help: "Total number of PageSpeed API calls, labeled by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)

	pagespeedRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagespeed_request_duration_seconds",
			Help:    "Histogram of PageSpeed API call latencies, labeled by strategy.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"strategy"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimited counts a request rejected by the rate limiter.
func ObserveRateLimited(route string) {
	httpRateLimitedTotal.WithLabelValues(route).Inc()
}

// ObserveLeadAnalysis counts a lead submission by whether its analysis completed.
func ObserveLeadAnalysis(ok bool) {
	label := "failed"
	if ok {
		label = "ok"
	}
	leadsCreatedTotal.WithLabelValues(label).Inc()
}

// ObserveContinueRequest counts a continuation request by result
// (updated, not_found, error).
func ObserveContinueRequest(result string) {
	leadsContinueRequestsTotal.WithLabelValues(result).Inc()
}

// ObservePageSpeedRequest records one PageSpeed API call.
func ObservePageSpeedRequest(strategy, outcome string, duration time.Duration) {
	pagespeedRequestsTotal.WithLabelValues(strategy, outcome).Inc()
	pagespeedRequestDurationSeconds.WithLabelValues(strategy).Observe(duration.Seconds())
}
