package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	decodeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dottie",
			Subsystem: "decode",
			Name:      "results_total",
			Help:      "Decoded documents by winning tier (none on failure).",
		},
		[]string{"tier"},
	)
	fetchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dottie",
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Upstream fetches by endpoint and outcome.",
		},
		[]string{"api", "function", "outcome"},
	)
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dottie",
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Upstream fetch duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"api", "function"},
	)
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dottie",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by result.",
		},
		[]string{"api", "result"},
	)
	cacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dottie",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Entries dropped after a WSF cacheflushdate change.",
		},
		[]string{"api"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dottie",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dottie",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(decodeResults, fetchRequests, fetchDuration,
			cacheLookups, cacheInvalidations, httpRequests, httpDuration)
	})
}

func RecordDecode(tier string) {
	RegisterMetrics()
	decodeResults.WithLabelValues(tier).Inc()
}

func RecordFetch(api, function, outcome string, duration time.Duration) {
	RegisterMetrics()
	fetchRequests.WithLabelValues(api, function, outcome).Inc()
	fetchDuration.WithLabelValues(api, function).Observe(duration.Seconds())
}

func RecordCacheLookup(api string, hit bool) {
	RegisterMetrics()
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(api, result).Inc()
}

func RecordInvalidation(api string, entries int) {
	RegisterMetrics()
	cacheInvalidations.WithLabelValues(api).Add(float64(entries))
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
