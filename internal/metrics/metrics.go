// Package metrics exposes Prometheus collectors for the SEO checker service.
//
// Collectors are registered at package load via promauto, so any Observe
// helper is usable as soon as the package is linked in.
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
			Name: "seochecker_http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seochecker_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seochecker_provider_requests_total",
			Help: "Total number of upstream provider requests, labeled by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	providerRateLimitDelays = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seochecker_provider_rate_limit_delay_seconds",
			Help:    "Histogram of provider rate limit wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seochecker_analyses_total",
			Help: "Total number of target analyses, labeled by status.",
		},
		[]string{"status"},
	)

	batchDomainsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seochecker_batch_domains_total",
			Help: "Total number of domains categorized through batch analysis.",
		},
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

// ObserveProviderRequest increments the provider request counter.
func ObserveProviderRequest(provider, outcome string) {
	providerRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveRateLimitDelay records the duration of a provider rate limit wait.
func ObserveRateLimitDelay(provider string, duration time.Duration) {
	providerRateLimitDelays.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveAnalysis increments the analysis counter for the given status.
func ObserveAnalysis(status string) {
	analysesTotal.WithLabelValues(status).Inc()
}

// ObserveBatchDomains adds categorized domains to the batch counter.
func ObserveBatchDomains(n int) {
	if n > 0 {
		batchDomainsTotal.Add(float64(n))
	}
}
