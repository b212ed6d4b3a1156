package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gjm",
		Name:      "cache_requests_total",
		Help:      "List requests by cache outcome (hit, miss, stale_error, not_modified)",
	}, []string{"result"})

	CacheRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gjm",
		Name:      "cache_refresh_total",
		Help:      "Snapshot rebuilds by trigger and outcome",
	}, []string{"trigger", "outcome"})

	CacheRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gjm",
		Name:      "cache_refresh_duration_seconds",
		Help:      "Duration of snapshot rebuilds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	CacheRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gjm",
		Name:      "cache_records",
		Help:      "Number of records in the current snapshot",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gjm",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gjm",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
